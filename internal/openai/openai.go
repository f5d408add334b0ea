// Package openai is the client for the OpenAI-compatible speech-to-text,
// chat-completion and speech-synthesis API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teamtalk/talktome/internal/audio"
	"github.com/teamtalk/talktome/internal/config"
	"github.com/teamtalk/talktome/internal/errors"
	"github.com/teamtalk/talktome/internal/logger"
)

const (
	// MissingKeyMessage is returned (500) when no API key is configured.
	MissingKeyMessage = "OPENAI_API_KEY not set"

	// MaxErrorText bounds upstream error text surfaced to callers.
	MaxErrorText = 500

	// Temperature is used for every chat completion.
	Temperature = 0.2

	// SpeechFormat is the synthesized audio format.
	SpeechFormat = "mp3"
)

// KeyFunc returns the API key and whether one is set. It is called on every request.
type KeyFunc func() (string, bool)

// EnvKey reads the key from the process environment.
func EnvKey() (string, bool) {
	return config.LookupAPIKey(nil)
}

// Options configures a Client.
type Options struct {
	BaseURL         string
	TranscribeModel string
	ChatModel       string
	SpeechModel     string

	// Timeout bounds one call. 0 means none.
	Timeout time.Duration

	// Key defaults to EnvKey.
	Key KeyFunc

	// HTTPClient defaults to a client with Timeout.
	HTTPClient *http.Client
}

// OptionsFromConfig maps application config onto client options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:         cfg.VendorBaseURL,
		TranscribeModel: cfg.TranscribeModel,
		ChatModel:       cfg.ChatModel,
		SpeechModel:     cfg.SpeechModel,
		Timeout:         time.Duration(cfg.VendorTimeoutSeconds) * time.Second,
	}
}

// Client calls the vendor API. Each method makes exactly one HTTP request
// and never retries.
type Client struct {
	opts Options
	http *http.Client
}

// New creates a Client, filling unset options from config.DefaultConfig.
func New(opts Options) *Client {
	def := OptionsFromConfig(config.DefaultConfig())
	if opts.BaseURL == "" {
		opts.BaseURL = def.BaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.TranscribeModel == "" {
		opts.TranscribeModel = def.TranscribeModel
	}
	if opts.ChatModel == "" {
		opts.ChatModel = def.ChatModel
	}
	if opts.SpeechModel == "" {
		opts.SpeechModel = def.SpeechModel
	}
	if opts.Key == nil {
		opts.Key = EnvKey
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{opts: opts, http: hc}
}

// ChatRequest is a single system+user completion.
type ChatRequest struct {
	// Purpose names the call in error messages ("summarization", "translation").
	Purpose string
	System  string
	User    string
}

// SpeechRequest is a text-to-speech call.
type SpeechRequest struct {
	Input string
	Voice string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatBody struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type speechBody struct {
	Model  string `json:"model"`
	Voice  string `json:"voice"`
	Input  string `json:"input"`
	Format string `json:"format"`
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads p to /audio/transcriptions and returns the text.
func (c *Client) Transcribe(ctx context.Context, p *audio.Payload) (string, error) {
	key, err := c.key()
	if err != nil {
		return "", err
	}

	body, contentType, err := p.EncodeMultipart("file", audio.FormField{Name: "model", Value: c.opts.TranscribeModel})
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("encode transcription form: %w", err))
	}

	data, err := c.do(ctx, "transcription", "/audio/transcriptions", key, contentType, body)
	if err != nil {
		return "", err
	}

	var resp transcriptionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", errors.NewUpstream("transcription failed: invalid response", err)
	}
	return resp.Text, nil
}

// Complete runs a chat completion and returns the first choice's content ("" if none).
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	key, err := c.key()
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(chatBody{
		Model: c.opts.ChatModel,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: Temperature,
	})
	if err != nil {
		return "", errors.NewInternal(err)
	}

	purpose := req.Purpose
	if purpose == "" {
		purpose = "completion"
	}
	data, err := c.do(ctx, purpose, "/chat/completions", key, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", errors.NewUpstream(purpose+" failed: invalid response", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Speak synthesizes req.Input with req.Voice and returns mp3 bytes.
func (c *Client) Speak(ctx context.Context, req SpeechRequest) ([]byte, error) {
	key, err := c.key()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(speechBody{
		Model:  c.opts.SpeechModel,
		Voice:  req.Voice,
		Input:  req.Input,
		Format: SpeechFormat,
	})
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return c.do(ctx, "speech", "/audio/speech", key, "application/json", bytes.NewReader(payload))
}

func (c *Client) key() (string, error) {
	key, ok := c.opts.Key()
	if !ok || key == "" {
		return "", errors.NewConfiguration(MissingKeyMessage)
	}
	return key, nil
}

// do performs one POST and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, purpose, path, key, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+path, body)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("create %s request: %w", purpose, err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+key)

	log := logger.From(ctx)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("purpose", purpose).Msg("vendor request failed")
		return nil, errors.NewUpstream(Truncate(fmt.Sprintf("%s failed: %v", purpose, err), MaxErrorText), err)
	}
	defer resp.Body.Close()
	log.Debug().
		Str("purpose", purpose).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("vendor call")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewUpstream(purpose+" failed: reading response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("%s failed: %d %s", purpose, resp.StatusCode, strings.TrimSpace(string(data)))
		return nil, errors.NewUpstream(Truncate(msg, MaxErrorText), fmt.Errorf("vendor status %d", resp.StatusCode))
	}
	return data, nil
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
