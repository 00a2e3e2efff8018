package models

// Comment represents one comment on a video. A comment with a nil ParentID is
// a top-level thread root; a comment with ParentID set is a reply displayed
// under that root. Replies are flat: replying to a reply records the reply's
// top-level ancestor as ParentID and the replied user's name in RepliedName.
type Comment struct {
	// Server-assigned positive id. Locally-created comments that have not
	// been confirmed yet carry a negative placeholder id instead.
	ID          int64  `json:"comment_id" gorm:"column:comment_id;primaryKey;autoIncrement"`
	VideoID     int64  `json:"video_id" gorm:"column:video_id;index;not null"`
	UserID      int64  `json:"user_id" gorm:"column:user_id;index"`
	UserName    string `json:"user_name" gorm:"column:user_name"`
	AvatarURL   string `json:"avatar_url" gorm:"column:avatar_url"`
	Content     string `json:"content" gorm:"not null"`
	CreatedAt   string `json:"created_at" gorm:"column:created_at"`
	ParentID    *int64 `json:"parent_comment_id,omitempty" gorm:"column:parent_comment_id;index"`
	RepliedID   int64  `json:"replied_id,omitempty" gorm:"column:replied_id"`
	RepliedName string `json:"replied_name,omitempty" gorm:"column:replied_name"`
	ReplyNum    int    `json:"reply_num" gorm:"column:reply_num;default:0"`
}

// TableName specifies the table name for the Comment model
func (Comment) TableName() string {
	return "comments"
}

// IsReply reports whether the comment belongs under a thread root.
func (c Comment) IsReply() bool {
	return c.ParentID != nil
}

// RootID returns the id of the top-level ancestor: the comment's own id for
// roots, the parent id for replies.
func (c Comment) RootID() int64 {
	if c.ParentID != nil {
		return *c.ParentID
	}
	return c.ID
}
