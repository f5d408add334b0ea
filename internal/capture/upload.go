package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teamtalk/talktome/internal/audio"
)

// SessionHeader carries the capture session ID on uploads.
const SessionHeader = "X-Capture-Session"

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 64 << 10

// Uploader delivers captured audio and returns the transcript.
type Uploader interface {
	Upload(ctx context.Context, sessionID, meetingID string, p *audio.Payload) (string, error)
}

// UploadError is a non-2xx response from the transcribe endpoint.
type UploadError struct {
	Status int
	Text   string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed (HTTP %d): %s", e.Status, e.Text)
}

// HTTPUploader posts to {BaseURL}/api/transcribe.
type HTTPUploader struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPUploader returns an uploader for the server at baseURL.
func NewHTTPUploader(baseURL string) *HTTPUploader {
	return &HTTPUploader{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// Upload sends the payload as multipart "file" plus "meetingId".
func (u *HTTPUploader) Upload(ctx context.Context, sessionID, meetingID string, p *audio.Payload) (string, error) {
	body, contentType, err := p.EncodeMultipart("file", audio.FormField{Name: "meetingId", Value: meetingID})
	if err != nil {
		return "", fmt.Errorf("encode upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.BaseURL+"/api/transcribe", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Accept", "application/json")
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}

	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &UploadError{Status: resp.StatusCode, Text: errorText(raw)}
	}

	var out struct {
		Transcript *string `json:"transcript"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode transcribe response: %w", err)
	}
	if out.Transcript == nil {
		return "", nil
	}
	return *out.Transcript, nil
}

// errorText prefers the message of a JSON error envelope over the raw body.
func errorText(raw []byte) string {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
