package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"video-comments/internal/auth"
	"video-comments/internal/broadcast"
	"video-comments/internal/database"
	"video-comments/internal/middleware"
	"video-comments/internal/models"
	"video-comments/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCommentsDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	database.DB = db
	return db
}

func seedTopLevel(t *testing.T, db *gorm.DB, videoID int64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		c := models.Comment{
			VideoID:   videoID,
			UserID:    1,
			UserName:  "alice",
			Content:   fmt.Sprintf("comment %d", i+1),
			CreatedAt: "2026-08-01 10:00:00",
		}
		require.NoError(t, db.Create(&c).Error)
	}
}

func seedReplies(t *testing.T, db *gorm.DB, videoID, rootID int64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		parent := rootID
		c := models.Comment{
			VideoID:   videoID,
			UserID:    2,
			UserName:  "bob",
			Content:   fmt.Sprintf("reply %d", i+1),
			CreatedAt: "2026-08-01 11:00:00",
			ParentID:  &parent,
		}
		require.NoError(t, db.Create(&c).Error)
	}
	require.NoError(t, db.Model(&models.Comment{}).Where("comment_id = ?", rootID).
		Update("reply_num", n).Error)
}

func getComments(t *testing.T, r *gin.Engine, url string) []models.Comment {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var items []models.Comment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	return items
}

func TestGetComments_TopLevelPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupCommentsDB(t)
	seedTopLevel(t, db, 100, 25)
	seedTopLevel(t, db, 999, 3) // other video, must not leak in

	r := gin.New()
	r.GET("/api/comments", GetComments)

	page1 := getComments(t, r, "/api/comments?videoId=100&currentPage=1")
	require.Len(t, page1, 20)
	// Newest roots first.
	require.Greater(t, page1[0].ID, page1[1].ID)
	for _, c := range page1 {
		require.Equal(t, int64(100), c.VideoID)
		require.Nil(t, c.ParentID)
	}

	page2 := getComments(t, r, "/api/comments?videoId=100&currentPage=2")
	require.Len(t, page2, 5)

	page3 := getComments(t, r, "/api/comments?videoId=100&currentPage=3")
	require.Empty(t, page3)
}

func TestGetComments_ThreadReplyPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupCommentsDB(t)
	seedTopLevel(t, db, 100, 1)

	var root models.Comment
	require.NoError(t, db.Where("video_id = ?", int64(100)).First(&root).Error)
	seedReplies(t, db, 100, root.ID, 8)

	r := gin.New()
	r.GET("/api/comments", GetComments)

	url := fmt.Sprintf("/api/comments?videoId=100&parentCommentId=%d&currentPage=1", root.ID)
	page1 := getComments(t, r, url)
	require.Len(t, page1, 5)
	// Replies read oldest-first.
	require.Less(t, page1[0].ID, page1[1].ID)

	url = fmt.Sprintf("/api/comments?videoId=100&parentCommentId=%d&currentPage=2", root.ID)
	page2 := getComments(t, r, url)
	require.Len(t, page2, 3)

	// Replies never show up in the top-level page.
	top := getComments(t, r, "/api/comments?videoId=100&currentPage=1")
	require.Len(t, top, 1)
	require.Equal(t, 8, top[0].ReplyNum)
}

func TestGetComments_MissingVideoID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	setupCommentsDB(t)

	r := gin.New()
	r.GET("/api/comments", GetComments)

	req := httptest.NewRequest(http.MethodGet, "/api/comments", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

// collectingClient records broadcast messages for assertions.
type collectingClient struct {
	mu       sync.Mutex
	received [][]byte
}

func (c *collectingClient) Send(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, append([]byte(nil), message...))
	return true
}

func (c *collectingClient) Close() {}

func (c *collectingClient) messages() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.received...)
}

func submitRouter() *gin.Engine {
	r := gin.New()
	authed := r.Group("/api")
	authed.Use(middleware.JWTAuthMiddleware())
	authed.POST("/comments", SubmitComment)
	return r
}

func postComment(t *testing.T, r *gin.Engine, token string, payload models.Comment) (int, SubmitResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/comments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestSubmitComment_AssignsServerIdAndBroadcasts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupCommentsDB(t)
	require.NoError(t, db.Create(&models.User{Username: "ann", Password: "x", AvatarURL: "http://cdn/ann.png"}).Error)

	watcher := &collectingClient{}
	broadcast.GetHub().Register(100, watcher)
	defer broadcast.GetHub().Unregister(100, watcher)

	token, err := auth.GenerateToken(1, "ann")
	require.NoError(t, err)

	code, resp := postComment(t, submitRouter(), token, models.Comment{
		ID:        -3, // client placeholder, must be discarded
		VideoID:   100,
		Content:   "hello",
		CreatedAt: "2026-01-01 00:00:00",
	})
	require.Equal(t, http.StatusOK, code)
	require.True(t, resp.Success)

	var saved models.Comment
	require.NoError(t, db.Where("video_id = ?", int64(100)).First(&saved).Error)
	require.Positive(t, saved.ID)
	require.Equal(t, int64(1), saved.UserID)
	require.Equal(t, "ann", saved.UserName)
	require.Equal(t, "http://cdn/ann.png", saved.AvatarURL)
	// Server stamps its own clock, not the client's.
	require.NotEqual(t, "2026-01-01 00:00:00", saved.CreatedAt)

	msgs := watcher.messages()
	require.Len(t, msgs, 1)
	var evt struct {
		Type    string         `json:"type"`
		Comment models.Comment `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(msgs[0], &evt))
	require.Equal(t, "comment_created", evt.Type)
	require.Equal(t, saved.ID, evt.Comment.ID)
}

func TestSubmitComment_ReplyIncrementsParentCount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupCommentsDB(t)
	require.NoError(t, db.Create(&models.User{Username: "ann", Password: "x"}).Error)
	seedTopLevel(t, db, 100, 1)

	var root models.Comment
	require.NoError(t, db.Where("video_id = ?", int64(100)).First(&root).Error)

	token, err := auth.GenerateToken(1, "ann")
	require.NoError(t, err)

	parent := root.ID
	code, resp := postComment(t, submitRouter(), token, models.Comment{
		ID:       -1,
		VideoID:  100,
		Content:  "a reply",
		ParentID: &parent,
	})
	require.Equal(t, http.StatusOK, code)
	require.True(t, resp.Success)

	var reloaded models.Comment
	require.NoError(t, db.Where("comment_id = ?", root.ID).First(&reloaded).Error)
	require.Equal(t, 1, reloaded.ReplyNum)
}

func TestSubmitComment_FailedInsertRollsBackReplyCount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupCommentsDB(t)
	require.NoError(t, db.Create(&models.User{Username: "ann", Password: "x"}).Error)
	seedTopLevel(t, db, 100, 1)

	var root models.Comment
	require.NoError(t, db.Where("video_id = ?", int64(100)).First(&root).Error)

	// Force the reply insert to fail after the parent count was bumped.
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("fail_create", func(tx *gorm.DB) {
		tx.AddError(fmt.Errorf("insert refused"))
	}))

	token, err := auth.GenerateToken(1, "ann")
	require.NoError(t, err)

	parent := root.ID
	code, resp := postComment(t, submitRouter(), token, models.Comment{
		VideoID:  100,
		Content:  "doomed reply",
		ParentID: &parent,
	})
	require.Equal(t, http.StatusInternalServerError, code)
	require.False(t, resp.Success)

	var reloaded models.Comment
	require.NoError(t, db.Where("comment_id = ?", root.ID).First(&reloaded).Error)
	require.Equal(t, 0, reloaded.ReplyNum)

	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Where("parent_comment_id = ?", root.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestSubmitComment_ParentNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupCommentsDB(t)
	require.NoError(t, db.Create(&models.User{Username: "ann", Password: "x"}).Error)

	token, err := auth.GenerateToken(1, "ann")
	require.NoError(t, err)

	missing := int64(9999)
	code, resp := postComment(t, submitRouter(), token, models.Comment{
		VideoID:  100,
		Content:  "orphan",
		ParentID: &missing,
	})
	require.Equal(t, http.StatusBadRequest, code)
	require.False(t, resp.Success)
	require.NotEmpty(t, resp.Message)
}

func TestSubmitComment_EmptyContentRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupCommentsDB(t)
	require.NoError(t, db.Create(&models.User{Username: "ann", Password: "x"}).Error)

	token, err := auth.GenerateToken(1, "ann")
	require.NoError(t, err)

	code, resp := postComment(t, submitRouter(), token, models.Comment{
		VideoID: 100,
		Content: "   ",
	})
	require.Equal(t, http.StatusBadRequest, code)
	require.False(t, resp.Success)
}

func TestSubmitComment_RequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	setupCommentsDB(t)

	r := submitRouter()
	body, _ := json.Marshal(models.Comment{VideoID: 100, Content: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/api/comments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
