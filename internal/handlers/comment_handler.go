package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"video-comments/internal/broadcast"
	"video-comments/internal/comments"
	"video-comments/internal/database"
	"video-comments/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SubmitResponse is the body returned by POST /api/comments. A non-success
// response carries a message for the user dialog.
type SubmitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

/*
*
GetComments handles GET /api/comments
Shared endpoint for both pagination dimensions:
  - ?videoId={id}&currentPage={n} returns a top-level page (up to 20 items)
  - ?videoId={id}&parentCommentId={rootId}&currentPage={n} returns one
    thread's reply page (up to 5 items)

The response is a bare JSON array; a page shorter than the page size tells
the client that dimension is exhausted.
*/
func GetComments(c *gin.Context) {
	videoID, err := strconv.ParseInt(c.Query("videoId"), 10, 64)
	if err != nil || videoID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "videoId is required"})
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("currentPage", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	db := database.GetDB()
	query := db.Model(&models.Comment{}).Where("video_id = ?", videoID)

	pageSize := comments.TopPageSize
	if parentStr := c.Query("parentCommentId"); parentStr != "" {
		parentID, err := strconv.ParseInt(parentStr, 10, 64)
		if err != nil || parentID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parentCommentId"})
			return
		}
		pageSize = comments.ReplyPageSize
		// Replies read oldest-first so pages extend the thread downward.
		query = query.Where("parent_comment_id = ?", parentID).Order("comment_id asc")
	} else {
		// Top-level roots read newest-first.
		query = query.Where("parent_comment_id IS NULL").Order("comment_id desc")
	}

	var items []models.Comment
	offset := (page - 1) * pageSize
	if err := query.Limit(pageSize).Offset(offset).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	if items == nil {
		items = []models.Comment{}
	}
	c.JSON(http.StatusOK, items)
}

/*
*
SubmitComment handles POST /api/comments
Accepts the comment shape the client inserted optimistically. The client's
placeholder id and timestamp are discarded: the server assigns the real id
and stamps its own clock. On success the new comment is broadcast to every
realtime watcher of the video.
*/
func SubmitComment(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, SubmitResponse{Success: false, Message: "User not authorized"})
		return
	}

	var comment models.Comment
	if err := c.ShouldBindJSON(&comment); err != nil {
		c.JSON(http.StatusBadRequest, SubmitResponse{Success: false, Message: "Invalid comment payload"})
		return
	}

	if strings.TrimSpace(comment.Content) == "" {
		c.JSON(http.StatusBadRequest, SubmitResponse{Success: false, Message: "Comment content is required"})
		return
	}
	if comment.VideoID <= 0 {
		c.JSON(http.StatusBadRequest, SubmitResponse{Success: false, Message: "videoId is required"})
		return
	}

	db := database.GetDB()

	// Identity comes from the token, not the payload.
	comment.UserID = userID
	comment.UserName = c.GetString("user_name")
	var author models.User
	if err := db.Where("user_id = ?", userID).First(&author).Error; err == nil {
		comment.AvatarURL = author.AvatarURL
	}

	// Placeholder ids are a client-side fiction; the real id is assigned here.
	comment.ID = 0
	comment.CreatedAt = time.Now().Format("2006-01-02 15:04:05")
	comment.ReplyNum = 0

	// The parent's reply_num bump and the reply row must land together: a
	// failed insert must not leave the parent advertising a reply that does
	// not exist.
	err := db.Transaction(func(tx *gorm.DB) error {
		if comment.ParentID != nil {
			var parent models.Comment
			if err := tx.Where("comment_id = ? AND parent_comment_id IS NULL", *comment.ParentID).First(&parent).Error; err != nil {
				return err
			}
			if err := tx.Model(&parent).UpdateColumn("reply_num", gorm.Expr("reply_num + 1")).Error; err != nil {
				return err
			}
		}
		return tx.Create(&comment).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, SubmitResponse{Success: false, Message: "Parent comment not found"})
		} else {
			c.JSON(http.StatusInternalServerError, SubmitResponse{Success: false, Message: "Failed to save comment"})
		}
		return
	}

	// Push the confirmed comment to every realtime watcher of the video.
	evt := map[string]any{
		"type":    "comment_created",
		"comment": comment,
	}
	if bytes, err := json.Marshal(evt); err == nil {
		broadcast.GetHub().Broadcast(comment.VideoID, bytes)
	}

	c.JSON(http.StatusOK, SubmitResponse{Success: true})
}
