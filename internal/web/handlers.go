package web

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/teamtalk/talktome/internal/config"
	"github.com/teamtalk/talktome/internal/errors"
	"github.com/teamtalk/talktome/internal/meeting"
	"github.com/teamtalk/talktome/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI and the JSON API.
type Handlers struct {
	db       *sql.DB
	gw       ops.Gateway
	cfg      *config.Config
	renderer *Renderer
	version  string
}

// HandleHome handles GET /. Meetings are optionally filtered by ?folderId=.
func (h *Handlers) HandleHome(w http.ResponseWriter, r *http.Request) {
	folderID := r.URL.Query().Get("folderId")

	folders, err := ops.ListFolders(r.Context(), h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	meetings, err := ops.ListMeetings(r.Context(), h.db, ops.ListMeetingsInput{FolderID: folderID})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	title := "Meetings"
	var current *meeting.Folder
	for i := range folders {
		if folders[i].ID == folderID {
			current = &folders[i]
			title = current.Name
		}
	}

	h.renderer.renderPage(w, r, "home", HomePageData{
		PageData: PageData{
			Title:   title,
			Version: h.version,
		},
		Folders:  folders,
		Meetings: meetings,
		FolderID: folderID,
		Folder:   current,
	})
}

// HandleCreateFolderForm handles POST /folders from the home page form.
func (h *Handlers) HandleCreateFolderForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	folder, err := ops.CreateFolder(r.Context(), h.db, ops.CreateFolderInput{Name: formValue(r, "name")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	redirect(w, r, "/?folderId="+folder.ID)
}

// HandleRenameFolderForm handles POST /folders/{id}/rename.
func (h *Handlers) HandleRenameFolderForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	folder, err := ops.RenameFolder(r.Context(), h.db, ops.RenameFolderInput{
		ID:   chi.URLParam(r, "id"),
		Name: formValue(r, "name"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	redirect(w, r, "/?folderId="+folder.ID)
}

// HandleDeleteFolderForm handles POST /folders/{id}/delete. Meetings in the
// folder go with it.
func (h *Handlers) HandleDeleteFolderForm(w http.ResponseWriter, r *http.Request) {
	if err := ops.DeleteFolder(r.Context(), h.db, chi.URLParam(r, "id")); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	redirect(w, r, "/")
}

// HandleCreateMeetingForm handles POST /meetings from the home page form.
func (h *Handlers) HandleCreateMeetingForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	input := ops.CreateMeetingInput{Title: formValue(r, "title")}
	if v := formValue(r, "folderId"); v != "" {
		input.FolderID = &v
	}
	if v := formValue(r, "scheduledAt"); v != "" {
		input.ScheduledAt = &v
	}

	m, err := ops.CreateMeeting(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	redirect(w, r, "/meetings/"+m.ID)
}

// HandleDetail handles GET /meetings/{id}.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m, err := ops.GetMeeting(r.Context(), h.db, id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	edits, err := ops.TranscriptHistory(r.Context(), h.db, m.ID)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	folders, err := ops.ListFolders(r.Context(), h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	var folder *meeting.Folder
	if m.FolderID != nil {
		for i := range folders {
			if folders[i].ID == *m.FolderID {
				folder = &folders[i]
			}
		}
	}

	data := DetailPageData{
		PageData: PageData{
			Title:   m.Title,
			Version: h.version,
		},
		Meeting:   m,
		Folder:    folder,
		Folders:   folders,
		Edits:     edits,
		Styles:    meeting.Styles,
		Languages: meeting.Languages,
	}
	if m.Summary != nil {
		data.SummaryHTML = renderMarkdown(*m.Summary)
	}

	h.renderer.renderPage(w, r, "detail", data)
}

// HandleEditMeetingForm handles POST /meetings/{id}/edit from the detail page.
// Blank folder and schedule fields clear them.
func (h *Handlers) HandleEditMeetingForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	title := formValue(r, "title")
	input := ops.UpdateMeetingInput{
		ID:          chi.URLParam(r, "id"),
		Title:       &title,
		FolderID:    formOptional(r, "folderId"),
		ScheduledAt: formOptional(r, "scheduledAt"),
	}

	m, err := ops.UpdateMeeting(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	redirect(w, r, "/meetings/"+m.ID)
}

// formOptional maps a blank form value to null.
func formOptional(r *http.Request, name string) ops.Optional[string] {
	if v := formValue(r, name); v != "" {
		return ops.Some(v)
	}
	return ops.Null[string]()
}

// HandleDeleteMeetingForm handles POST /meetings/{id}/delete from the detail page.
func (h *Handlers) HandleDeleteMeetingForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m, err := ops.GetMeeting(r.Context(), h.db, id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if err := ops.DeleteMeeting(r.Context(), h.db, m.ID); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	target := "/"
	if m.FolderID != nil {
		target = "/?folderId=" + *m.FolderID
	}
	redirect(w, r, target)
}

// redirect sends HTMX clients an HX-Redirect and everyone else a 303.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
