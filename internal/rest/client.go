package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	syncerrors "convsync/pkg/errors"
)

// Client talks to the chat REST API. All calls are plain request/response;
// failures never mutate any local cache, callers get a zero value and an
// error.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

func NewClient(baseURL, accessToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return syncerrors.ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return syncerrors.ErrUnauthorized
	case resp.StatusCode >= 400:
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) ListConversations(ctx context.Context) ([]ConversationRecord, error) {
	var out []ConversationRecord
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetConversation(ctx context.Context, id string) (*ConversationRecord, error) {
	var out ConversationRecord
	if err := c.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]MessageRecord, error) {
	var out []MessageRecord
	path := fmt.Sprintf("/conversations/%s/messages", url.PathEscape(conversationID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) EditMessage(ctx context.Context, conversationID, messageID, text string) (*MessageRecord, error) {
	var out MessageRecord
	path := fmt.Sprintf("/conversations/%s/messages/%s", url.PathEscape(conversationID), url.PathEscape(messageID))
	if err := c.do(ctx, http.MethodPatch, path, map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteMessage(ctx context.Context, conversationID, messageID string) (*MessageRecord, error) {
	var out MessageRecord
	path := fmt.Sprintf("/conversations/%s/messages/%s", url.PathEscape(conversationID), url.PathEscape(messageID))
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ReadBy(ctx context.Context, conversationID string) ([]ReadMark, error) {
	var out []ReadMark
	path := fmt.Sprintf("/conversations/%s/read-by", url.PathEscape(conversationID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListMembers(ctx context.Context, conversationID string) ([]MemberRecord, error) {
	var out []MemberRecord
	path := fmt.Sprintf("/conversations/%s/members", url.PathEscape(conversationID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MarkRead(ctx context.Context, conversationID string, lastReadSeq int64) error {
	path := fmt.Sprintf("/conversations/%s/read", url.PathEscape(conversationID))
	return c.do(ctx, http.MethodPost, path, map[string]int64{"lastReadSeq": lastReadSeq}, nil)
}

func (c *Client) ListActivities(ctx context.Context, conversationID string) ([]ActivityRecord, error) {
	var out []ActivityRecord
	path := fmt.Sprintf("/conversations/%s/activities", url.PathEscape(conversationID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MuteConversation(ctx context.Context, conversationID string, muted bool) error {
	path := fmt.Sprintf("/conversations/%s/mute", url.PathEscape(conversationID))
	return c.do(ctx, http.MethodPost, path, map[string]bool{"muted": muted}, nil)
}

func (c *Client) LeaveConversation(ctx context.Context, conversationID string) error {
	path := fmt.Sprintf("/conversations/%s/leave", url.PathEscape(conversationID))
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// UploadAudioFallback posts the whole blob as multipart form data. It is the
// fallback path for servers without the chunked WebSocket upload.
func (c *Client) UploadAudioFallback(ctx context.Context, conversationID, mimeType string, blob []byte, durationMs int64) (*MessageRecord, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", "voice-message")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(blob); err != nil {
		return nil, err
	}
	_ = writer.WriteField("mimeType", mimeType)
	_ = writer.WriteField("durationMs", fmt.Sprintf("%d", durationMs))
	if err := writer.Close(); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/conversations/%s/audio", url.PathEscape(conversationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("audio upload: status %d", resp.StatusCode)
	}

	var out MessageRecord
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
