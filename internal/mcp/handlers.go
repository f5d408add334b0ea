package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/teamtalk/talktome/internal/config"
	"github.com/teamtalk/talktome/internal/errors"
	"github.com/teamtalk/talktome/internal/logger"
	"github.com/teamtalk/talktome/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	gw  ops.Gateway
	cfg *config.Config
	log zerolog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, gw ops.Gateway, cfg *config.Config, log zerolog.Logger) *Handlers {
	return &Handlers{db: db, gw: gw, cfg: cfg, log: logger.Component(log, "mcp")}
}

// Request types for each tool

// IDRequest is the argument for tools addressing one entity by ID.
type IDRequest struct {
	ID string `json:"id"`
}

// FolderCreateRequest represents the arguments for folder_create.
type FolderCreateRequest struct {
	Name string `json:"name"`
}

// FolderRenameRequest represents the arguments for folder_rename.
type FolderRenameRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MeetingListRequest represents the arguments for meeting_list.
type MeetingListRequest struct {
	FolderID string `json:"folder_id,omitempty"`
}

// MeetingCreateRequest represents the arguments for meeting_create.
type MeetingCreateRequest struct {
	Title       string  `json:"title,omitempty"`
	FolderID    *string `json:"folder_id,omitempty"`
	ScheduledAt *string `json:"scheduled_at,omitempty"`
}

// MeetingUpdateRequest represents the arguments for meeting_update.
type MeetingUpdateRequest struct {
	ID          string               `json:"id"`
	Title       *string              `json:"title,omitempty"`
	FolderID    ops.Optional[string] `json:"folder_id"`
	ScheduledAt ops.Optional[string] `json:"scheduled_at"`
	Summary     ops.Optional[string] `json:"summary"`
	Transcript  *string              `json:"transcript,omitempty"`
}

// MeetingRefRequest is the argument for tools addressing a meeting by meeting_id.
type MeetingRefRequest struct {
	MeetingID string `json:"meeting_id"`
}

// SummarizeRequest represents the arguments for meeting_summarize.
type SummarizeRequest struct {
	MeetingID string `json:"meeting_id"`
	Style     string `json:"style,omitempty"`
}

// TranscriptUpdateRequest represents the arguments for transcript_update.
type TranscriptUpdateRequest struct {
	MeetingID string `json:"meeting_id"`
	Text      string `json:"text"`
}

// TranslateRequest represents the arguments for text_translate.
type TranslateRequest struct {
	Text   string `json:"text"`
	Target string `json:"target"`
}

// Handler implementations

// HandleFolderList handles the folder_list tool call.
func (h *Handlers) HandleFolderList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folders, err := ops.ListFolders(ctx, h.db)
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(map[string]any{"folders": folders})
}

// HandleFolderCreate handles the folder_create tool call.
func (h *Handlers) HandleFolderCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FolderCreateRequest](req)
	if err != nil {
		return h.errorResult(err), nil
	}

	folder, err := ops.CreateFolder(ctx, h.db, ops.CreateFolderInput{Name: input.Name})
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(folder)
}

// HandleFolderRename handles the folder_rename tool call.
func (h *Handlers) HandleFolderRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FolderRenameRequest](req)
	if err != nil {
		return h.errorResult(err), nil
	}

	folder, err := ops.RenameFolder(ctx, h.db, ops.RenameFolderInput{ID: input.ID, Name: input.Name})
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(folder)
}

// HandleFolderDelete handles the folder_delete tool call.
func (h *Handlers) HandleFolderDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return h.errorResult(err), nil
	}

	if err := ops.DeleteFolder(ctx, h.db, input.ID); err != nil {
		return h.errorResult(err), nil
	}
	return successResult(map[string]any{"deleted": true, "id": input.ID})
}

// HandleMeetingList handles the meeting_list tool call.
func (h *Handlers) HandleMeetingList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MeetingListRequest](req)
	if err != nil {
		return h.errorResult(err), nil
	}

	meetings, err := ops.ListMeetings(ctx, h.db, ops.ListMeetingsInput{FolderID: input.FolderID})
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(map[string]any{"meetings": meetings})
}

// HandleMeetingCreate handles the meeting_create tool call.
func (h *Handlers) HandleMeetingCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MeetingCreateRequest](req)
	if err != nil {
		return h.errorResult(err), nil
	}

	m, err := ops.CreateMeeting(ctx, h.db, ops.CreateMeetingInput{
		Title:       input.Title,
		FolderID:    input.FolderID,
		ScheduledAt: input.ScheduledAt,
	})
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(m)
}

// HandleMeetingGet handles the meeting_get tool call.
func (h *Handlers) HandleMeetingGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return h.errorResult(err), nil
	}

	m, err := ops.GetMeeting(ctx, h.db, input.ID)
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(m)
}

// HandleMeetingUpdate handles the meeting_update tool call.
func (h *Handlers) HandleMeetingUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MeetingUpdateRequest](req)
	if err != nil {
		return h.errorResult(err), nil
	}

	m, err := ops.UpdateMeeting(ctx, h.db, ops.UpdateMeetingInput{
		ID:          input.ID,
		Title:       input.Title,
		FolderID:    input.FolderID,
		ScheduledAt: input.ScheduledAt,
		Summary:     input.Summary,
		Transcript:  input.Transcript,
	})
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(m)
}

// HandleMeetingDelete handles the meeting_delete tool call.
func (h *Handlers) HandleMeetingDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return h.errorResult(err), nil
	}

	if err := ops.DeleteMeeting(ctx, h.db, input.ID); err != nil {
		return h.errorResult(err), nil
	}
	return successResult(map[string]any{"deleted": true, "id": input.ID})
}

// HandleMeetingClear handles the meeting_clear tool call.
func (h *Handlers) HandleMeetingClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return h.errorResult(err), nil
	}

	m, err := ops.ClearMeeting(ctx, h.db, input.ID)
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(m)
}

// HandleMeetingICS handles the meeting_ics tool call.
func (h *Handlers) HandleMeetingICS(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return h.errorResult(err), nil
	}

	cal, err := ops.ExportCalendar(ctx, h.db, input.ID)
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(cal)
}

// HandleMeetingSummarize handles the meeting_summarize tool call.
func (h *Handlers) HandleMeetingSummarize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SummarizeRequest](req)
	if err != nil {
		return h.errorResult(err), nil
	}

	m, err := ops.Summarize(ctx, h.db, h.gw, ops.SummarizeInput{MeetingID: input.MeetingID, Style: input.Style})
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(m)
}

// HandleTranscriptUpdate handles the transcript_update tool call.
func (h *Handlers) HandleTranscriptUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TranscriptUpdateRequest](req)
	if err != nil {
		return h.errorResult(err), nil
	}

	m, err := ops.UpdateTranscript(ctx, h.db, ops.UpdateTranscriptInput{MeetingID: input.MeetingID, Text: input.Text})
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(m)
}

// HandleTranscriptHistory handles the transcript_history tool call.
func (h *Handlers) HandleTranscriptHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MeetingRefRequest](req)
	if err != nil {
		return h.errorResult(err), nil
	}

	edits, err := ops.TranscriptHistory(ctx, h.db, input.MeetingID)
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(map[string]any{"edits": edits})
}

// HandleTextTranslate handles the text_translate tool call.
func (h *Handlers) HandleTextTranslate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TranslateRequest](req)
	if err != nil {
		return h.errorResult(err), nil
	}

	out, err := ops.Translate(ctx, h.gw, ops.TranslateInput{Text: input.Text, Target: input.Target})
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(out)
}

// Result helpers

// errorResult logs server-side failures and converts err into an IsError result.
func (h *Handlers) errorResult(err error) *mcp.CallToolResult {
	if appErr, ok := errors.As(err); !ok || appErr.Status >= 500 {
		h.log.Error().Err(err).Msg("tool call failed")
	}
	return errorResult(err)
}

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if appErr, ok := errors.As(err); ok && appErr.Code != errors.ErrInternal {
		errorObj := map[string]any{
			"code":    appErr.Code,
			"message": appErr.Message,
			"status":  appErr.Status,
		}
		if appErr.Details != nil {
			errorObj["details"] = appErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
