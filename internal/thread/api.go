package thread

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"video-comments/internal/models"
)

// CommentAPI is the server surface the controller talks to. Top-level pages
// and reply pages share one fetch operation, distinguished by the optional
// parent id.
type CommentAPI interface {
	FetchComments(ctx context.Context, videoID int64, parentID *int64, page int) ([]models.Comment, error)
	SubmitComment(ctx context.Context, comment models.Comment) error
}

// RejectedError is returned by SubmitComment when the server refused the
// comment; Message carries the server-supplied reason for the user dialog.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// HTTPClient implements CommentAPI against the reference server.
type HTTPClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewHTTPClient builds a client for the given base URL (no trailing slash).
// The token, when set, is sent as a bearer credential on submissions.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) FetchComments(ctx context.Context, videoID int64, parentID *int64, page int) ([]models.Comment, error) {
	url := fmt.Sprintf("%s/api/comments?videoId=%d&currentPage=%d", c.BaseURL, videoID, page)
	if parentID != nil {
		url = fmt.Sprintf("%s&parentCommentId=%d", url, *parentID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch comments: unexpected status %d", resp.StatusCode)
	}

	var items []models.Comment
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *HTTPClient) SubmitComment(ctx context.Context, comment models.Comment) error {
	body, err := json.Marshal(comment)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/comments", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("submit comment: status %d: %w", resp.StatusCode, err)
	}
	if !out.Success {
		return &RejectedError{Message: out.Message}
	}
	return nil
}
