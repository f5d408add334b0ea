package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/teamtalk/talktome/internal/audio"
	"github.com/teamtalk/talktome/internal/db"
	"github.com/teamtalk/talktome/internal/errors"
	"github.com/teamtalk/talktome/internal/meeting"
	"github.com/teamtalk/talktome/internal/openai"
)

// SummarizeInput contains parameters for the Summarize operation.
type SummarizeInput struct {
	MeetingID string `json:"meetingId" validate:"required" msg:"meetingId required"`
	Style     string `json:"style"`
}

// TranslateInput contains parameters for the Translate operation.
type TranslateInput struct {
	Text   string `json:"text" validate:"required" msg:"text and target required"`
	Target string `json:"target" validate:"required" msg:"text and target required"`
}

// TranslateOutput contains the result of the Translate operation.
type TranslateOutput struct {
	Translated string `json:"translated"`
}

// TranscribeInput contains parameters for the Transcribe operation.
type TranscribeInput struct {
	MeetingID string

	// File is the uploaded audio; nil when no file part was sent.
	// Its Container holds the uploaded filename and type as reported.
	File *audio.Payload
}

// SpeakInput contains parameters for the Speak operation.
type SpeakInput struct {
	Text  string `json:"text" validate:"required" msg:"No text provided"`
	Style string `json:"style"`
}

// SpeakOutput is synthesized speech.
type SpeakOutput struct {
	Audio       []byte
	ContentType string
	Voice       string
}

// Summarize generates a summary of the meeting transcript in the given style
// and stores it. A meeting without a transcript is rejected before any vendor call.
func Summarize(ctx context.Context, database *sql.DB, gw Gateway, input SummarizeInput) (*meeting.Meeting, error) {
	input.MeetingID = strings.TrimSpace(input.MeetingID)
	input.Style = strings.TrimSpace(input.Style)
	if err := meeting.Validate(&input); err != nil {
		return nil, err
	}

	m, err := db.GetMeeting(ctx, database, input.MeetingID)
	if err != nil {
		return nil, err
	}
	if !m.HasTranscript() {
		return nil, errors.NewInvalidRequest("Transcript missing")
	}

	summary, err := gw.Complete(ctx, openai.ChatRequest{
		Purpose: "summarization",
		System:  meeting.SummarySystemPrompt,
		User:    meeting.SummaryPrompt(*m.Transcript, input.Style),
	})
	if err != nil {
		return nil, err
	}

	if err := db.SetSummary(ctx, database, m.ID, summary, now()); err != nil {
		return nil, err
	}
	return db.GetMeeting(ctx, database, m.ID)
}

// Translate translates text into the target language.
func Translate(ctx context.Context, gw Gateway, input TranslateInput) (*TranslateOutput, error) {
	input.Target = strings.TrimSpace(input.Target)
	if strings.TrimSpace(input.Text) == "" {
		input.Text = ""
	}
	if err := meeting.Validate(&input); err != nil {
		return nil, err
	}

	translated, err := gw.Complete(ctx, openai.ChatRequest{
		Purpose: "translation",
		System:  meeting.TranslateSystemPrompt,
		User:    meeting.TranslatePrompt(input.Text, input.Target),
	})
	if err != nil {
		return nil, err
	}
	return &TranslateOutput{Translated: translated}, nil
}

// Transcribe sends uploaded audio to the vendor and stores the transcript
// through the audited transcript write. Payloads under audio.MinPayloadBytes
// are rejected without contacting the vendor.
func Transcribe(ctx context.Context, database *sql.DB, gw Gateway, input TranscribeInput) (*meeting.Meeting, error) {
	if input.File == nil {
		return nil, errors.NewInvalidRequest("file required")
	}
	id := strings.TrimSpace(input.MeetingID)
	if id == "" {
		return nil, errors.NewInvalidRequest("meetingId required")
	}

	if _, err := db.GetMeeting(ctx, database, id); err != nil {
		return nil, err
	}

	if input.File.TooSmall() {
		return nil, errors.NewInvalidRequest("empty audio received")
	}

	upload := &audio.Payload{Data: input.File.Data, Container: UploadContainer(input.File.Container)}
	text, err := gw.Transcribe(ctx, upload)
	if err != nil {
		return nil, err
	}

	return writeTranscript(ctx, database, db.TranscriptWrite{MeetingID: id, Text: &text})
}

// UploadContainer keeps a supported uploaded container (judged by MIME type,
// then filename) and relabels anything else as m4a.
func UploadContainer(reported audio.Container) audio.Container {
	if c, ok := audio.KnownContainer(reported.MIMEType); ok {
		return c
	}
	if c, ok := audio.KnownContainer(reported.Filename); ok {
		return c
	}
	return audio.DefaultContainer
}

// Speak synthesizes text with the voice mapped from style.
func Speak(ctx context.Context, gw Gateway, input SpeakInput) (*SpeakOutput, error) {
	input.Text = strings.TrimSpace(input.Text)
	if err := meeting.Validate(&input); err != nil {
		return nil, err
	}

	voice := meeting.VoiceForStyle(input.Style)
	data, err := gw.Speak(ctx, openai.SpeechRequest{
		Input: meeting.SpeechInput(input.Text, input.Style),
		Voice: voice,
	})
	if err != nil {
		return nil, err
	}
	return &SpeakOutput{Audio: data, ContentType: "audio/mpeg", Voice: voice}, nil
}
