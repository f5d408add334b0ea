package web

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/teamtalk/talktome/internal/audio"
	"github.com/teamtalk/talktome/internal/errors"
	"github.com/teamtalk/talktome/internal/logger"
	"github.com/teamtalk/talktome/internal/ops"
)

// multipartMemory is the in-memory threshold for multipart parsing; larger parts spill to disk.
const multipartMemory = 8 << 20

// decodeJSON decodes the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		return errors.NewInvalidRequest("invalid JSON body")
	}
	return nil
}

func isJSONRequest(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/json"
}

func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}

// ListFolders handles GET /api/folders.
func (h *Handlers) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := ops.ListFolders(r.Context(), h.db)
	if err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, folders)
}

// CreateFolder handles POST /api/folders.
func (h *Handlers) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var input ops.CreateFolderInput
	if err := decodeJSON(r, &input); err != nil {
		apiError(w, r, err)
		return
	}

	folder, err := ops.CreateFolder(r.Context(), h.db, input)
	if err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusCreated, folder)
}

// RenameFolder handles PATCH /api/folders/{id}.
func (h *Handlers) RenameFolder(w http.ResponseWriter, r *http.Request) {
	var input ops.RenameFolderInput
	if err := decodeJSON(r, &input); err != nil {
		apiError(w, r, err)
		return
	}
	input.ID = chi.URLParam(r, "id")

	folder, err := ops.RenameFolder(r.Context(), h.db, input)
	if err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, folder)
}

// DeleteFolder handles DELETE /api/folders/{id}.
func (h *Handlers) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := ops.DeleteFolder(r.Context(), h.db, id); err != nil {
		apiError(w, r, err)
		return
	}
	logger.From(r.Context()).Info().Str(logger.FieldFolderID, id).Msg("folder deleted")
	w.WriteHeader(http.StatusNoContent)
}

// ListMeetings handles GET /api/meetings[?folderId=].
func (h *Handlers) ListMeetings(w http.ResponseWriter, r *http.Request) {
	meetings, err := ops.ListMeetings(r.Context(), h.db, ops.ListMeetingsInput{
		FolderID: r.URL.Query().Get("folderId"),
	})
	if err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, meetings)
}

// CreateMeeting handles POST /api/meetings.
func (h *Handlers) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	var input ops.CreateMeetingInput
	if err := decodeJSON(r, &input); err != nil {
		apiError(w, r, err)
		return
	}

	m, err := ops.CreateMeeting(r.Context(), h.db, input)
	if err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusCreated, m)
}

// GetMeeting handles GET /api/meetings/{id}.
func (h *Handlers) GetMeeting(w http.ResponseWriter, r *http.Request) {
	m, err := ops.GetMeeting(r.Context(), h.db, chi.URLParam(r, "id"))
	if err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, m)
}

// UpdateMeeting handles PATCH /api/meetings/{id}.
func (h *Handlers) UpdateMeeting(w http.ResponseWriter, r *http.Request) {
	var input ops.UpdateMeetingInput
	if err := decodeJSON(r, &input); err != nil {
		apiError(w, r, err)
		return
	}
	input.ID = chi.URLParam(r, "id")

	m, err := ops.UpdateMeeting(r.Context(), h.db, input)
	if err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, m)
}

// DeleteMeeting handles DELETE /api/meetings/{id}.
func (h *Handlers) DeleteMeeting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := ops.DeleteMeeting(r.Context(), h.db, id); err != nil {
		apiError(w, r, err)
		return
	}
	logger.From(r.Context()).Info().Str(logger.FieldMeetingID, id).Msg("meeting deleted")
	w.WriteHeader(http.StatusNoContent)
}

// TranscriptHistory handles GET /api/meetings/{id}/transcript.
func (h *Handlers) TranscriptHistory(w http.ResponseWriter, r *http.Request) {
	edits, err := ops.TranscriptHistory(r.Context(), h.db, chi.URLParam(r, "id"))
	if err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, edits)
}

// UpdateTranscript handles PATCH /api/meetings/{id}/transcript.
func (h *Handlers) UpdateTranscript(w http.ResponseWriter, r *http.Request) {
	var input ops.UpdateTranscriptInput
	if err := decodeJSON(r, &input); err != nil {
		apiError(w, r, err)
		return
	}
	input.MeetingID = chi.URLParam(r, "id")

	m, err := ops.UpdateTranscript(r.Context(), h.db, input)
	if err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, m)
}

// ClearMeeting handles POST /api/meetings/{id}/clear.
func (h *Handlers) ClearMeeting(w http.ResponseWriter, r *http.Request) {
	if _, err := ops.ClearMeeting(r.Context(), h.db, chi.URLParam(r, "id")); err != nil {
		apiError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportCalendar handles GET /api/meetings/{id}/ics.
func (h *Handlers) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	cal, err := ops.ExportCalendar(r.Context(), h.db, chi.URLParam(r, "id"))
	if err != nil {
		apiError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", cal.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+cal.Filename)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, cal.Body)
}

// Summarize handles POST /api/summarize with a JSON or form body.
func (h *Handlers) Summarize(w http.ResponseWriter, r *http.Request) {
	var input ops.SummarizeInput
	if isJSONRequest(r) {
		if err := decodeJSON(r, &input); err != nil {
			apiError(w, r, err)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			apiError(w, r, errors.NewInvalidRequest("invalid form data"))
			return
		}
		input.MeetingID = r.FormValue("meetingId")
		input.Style = r.FormValue("style")
	}

	m, err := ops.Summarize(r.Context(), h.db, h.gw, input)
	if err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, m)
}

// Translate handles POST /api/translate.
func (h *Handlers) Translate(w http.ResponseWriter, r *http.Request) {
	var input ops.TranslateInput
	if err := decodeJSON(r, &input); err != nil {
		apiError(w, r, err)
		return
	}

	out, err := ops.Translate(r.Context(), h.gw, input)
	if err != nil {
		apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// Transcribe handles POST /api/transcribe (multipart: file, meetingId).
func (h *Handlers) Transcribe(w http.ResponseWriter, r *http.Request) {
	noStore(w)

	if h.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			apiError(w, r, errors.NewInvalidRequest("file too large"))
			return
		}
		apiError(w, r, errors.NewInvalidRequest("multipart form required"))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	input := ops.TranscribeInput{MeetingID: r.FormValue("meetingId")}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			apiError(w, r, errors.NewInvalidRequest("could not read file"))
			return
		}
		input.File = &audio.Payload{
			Data: data,
			Container: audio.Container{
				Filename: header.Filename,
				MIMEType: header.Header.Get("Content-Type"),
			},
		}
	case stderrors.Is(err, http.ErrMissingFile):
	default:
		apiError(w, r, errors.NewInvalidRequest("could not read file"))
		return
	}

	m, err := ops.Transcribe(r.Context(), h.db, h.gw, input)
	if err != nil {
		apiError(w, r, err)
		return
	}
	logger.From(r.Context()).Info().
		Str(logger.FieldMeetingID, m.ID).
		Int("bytes", len(input.File.Data)).
		Msg("transcribed")
	renderJSON(w, http.StatusOK, m)
}

// Speak handles POST /api/tts and returns audio/mpeg.
func (h *Handlers) Speak(w http.ResponseWriter, r *http.Request) {
	noStore(w)

	var input ops.SpeakInput
	if err := decodeJSON(r, &input); err != nil {
		apiError(w, r, err)
		return
	}

	out, err := ops.Speak(r.Context(), h.gw, input)
	if err != nil {
		apiError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("X-Voice", out.Voice)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Audio)
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{"status": "ok", "version": h.version}
	if err := h.db.PingContext(r.Context()); err != nil {
		logger.From(r.Context()).Error().Err(err).Msg("health check failed")
		status = http.StatusServiceUnavailable
		body["status"] = "unavailable"
	}
	renderJSON(w, status, body)
}

// formValue reads a trimmed form value.
func formValue(r *http.Request, name string) string {
	return strings.TrimSpace(r.FormValue(name))
}
