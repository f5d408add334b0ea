package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/teamtalk/talktome/internal/audio"
	"github.com/teamtalk/talktome/internal/config"
	"github.com/teamtalk/talktome/internal/db"
	"github.com/teamtalk/talktome/internal/errors"
	"github.com/teamtalk/talktome/internal/meeting"
	"github.com/teamtalk/talktome/internal/ops"
	"github.com/teamtalk/talktome/internal/openai"
)

func stringPtr(s string) *string { return &s }

// fakeGateway stands in for the vendor client.
type fakeGateway struct {
	mu    sync.Mutex
	calls int

	transcript string
	completion string
	speech     []byte
	err        error

	lastUpload *audio.Payload
	lastChat   openai.ChatRequest
	lastSpeech openai.SpeechRequest
}

func (f *fakeGateway) Transcribe(_ context.Context, p *audio.Payload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastUpload = p
	return f.transcript, f.err
}

func (f *fakeGateway) Complete(_ context.Context, req openai.ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastChat = req
	return f.completion, f.err
}

func (f *fakeGateway) Speak(_ context.Context, req openai.SpeechRequest) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastSpeech = req
	return f.speech, f.err
}

type testEnv struct {
	h       *Handlers
	gw      *fakeGateway
	handler http.Handler
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()
	return setupTestWithConfig(t, config.DefaultConfig())
}

func setupTestWithConfig(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		t.Fatalf("static sub-FS: %v", err)
	}

	gw := &fakeGateway{transcript: "hello from the mic", completion: "- shipped", speech: []byte("ID3fake")}
	h := &Handlers{
		db:       database,
		gw:       gw,
		cfg:      cfg,
		renderer: NewRenderer(templateSub, "test"),
		version:  "test",
	}
	return &testEnv{h: h, gw: gw, handler: h.Router(zerolog.Nop(), staticSub)}
}

func (e *testEnv) do(t *testing.T, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func (e *testEnv) seedMeeting(t *testing.T, title string, transcript string) *meeting.Meeting {
	t.Helper()
	ctx := context.Background()
	m, err := ops.CreateMeeting(ctx, e.h.db, ops.CreateMeetingInput{Title: title})
	if err != nil {
		t.Fatalf("seed meeting: %v", err)
	}
	if transcript != "" {
		m, err = ops.UpdateTranscript(ctx, e.h.db, ops.UpdateTranscriptInput{MeetingID: m.ID, Text: transcript})
		if err != nil {
			t.Fatalf("seed transcript: %v", err)
		}
	}
	return m
}

func multipartBody(t *testing.T, meetingID string, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if meetingID != "" {
		if err := mw.WriteField("meetingId", meetingID); err != nil {
			t.Fatal(err)
		}
	}
	if data != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write(data)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

// --- folders ---

func TestFolderAPI_Lifecycle(t *testing.T) {
	e := setupTest(t)

	rec := e.do(t, "POST", "/api/folders", `{"name":"  Weekly  "}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	folder := decode[meeting.Folder](t, rec)
	if folder.Name != "Weekly" {
		t.Errorf("Name = %q, want trimmed", folder.Name)
	}

	rec = e.do(t, "PATCH", "/api/folders/"+folder.ID, `{"name":"Daily"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("rename status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := decode[meeting.Folder](t, rec); got.Name != "Daily" {
		t.Errorf("renamed Name = %q", got.Name)
	}

	rec = e.do(t, "GET", "/api/folders", "")
	folders := decode[[]meeting.Folder](t, rec)
	if len(folders) != 1 || folders[0].ID != folder.ID {
		t.Fatalf("folders = %+v", folders)
	}

	rec = e.do(t, "DELETE", "/api/folders/"+folder.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = e.do(t, "DELETE", "/api/folders/"+folder.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != "folder not found: "+folder.ID {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestFolderAPI_EmptyListIsArray(t *testing.T) {
	e := setupTest(t)

	rec := e.do(t, "GET", "/api/folders", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", rec.Body.String())
	}
}

func TestFolderAPI_EmptyName(t *testing.T) {
	e := setupTest(t)

	rec := e.do(t, "POST", "/api/folders", `{"name":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if rec.Body.String() != "Name required" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

// --- errors ---

func TestAPIError_JSON(t *testing.T) {
	e := setupTest(t)

	rec := e.do(t, "GET", "/api/meetings/missing", "", "Accept", "application/json")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Status  int    `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != string(errors.ErrNotFound) || body.Error.Status != 404 {
		t.Errorf("error = %+v", body.Error)
	}
	if body.Error.Message != "meeting not found: missing" {
		t.Errorf("message = %q", body.Error.Message)
	}
}

func TestAPIError_HTMX(t *testing.T) {
	e := setupTest(t)

	rec := e.do(t, "GET", "/api/meetings/a&b", "", "HX-Request", "true")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `class="error-message"`) || !strings.Contains(body, "a&amp;b") {
		t.Errorf("body = %q, want escaped fragment", body)
	}
}

func TestAPIError_InvalidJSON(t *testing.T) {
	e := setupTest(t)

	rec := e.do(t, "POST", "/api/meetings", `{"title":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if rec.Body.String() != "invalid JSON body" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

// --- meetings ---

func TestMeetingAPI_CreateDefaultsTitle(t *testing.T) {
	e := setupTest(t)

	rec := e.do(t, "POST", "/api/meetings", `{}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var raw map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if raw["title"] != "Untitled Meeting" {
		t.Errorf("title = %v", raw["title"])
	}
	for _, k := range []string{"id", "scheduledAt", "folderId", "transcript", "summary", "createdAt", "updatedAt"} {
		if _, ok := raw[k]; !ok {
			t.Errorf("missing field %q in %v", k, raw)
		}
	}
}

func TestMeetingAPI_UnknownFolder(t *testing.T) {
	e := setupTest(t)

	rec := e.do(t, "POST", "/api/meetings", `{"title":"x","folderId":"ghost"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	rec = e.do(t, "GET", "/api/meetings", "")
	if got := decode[[]meeting.Meeting](t, rec); len(got) != 0 {
		t.Errorf("meetings = %d, want 0", len(got))
	}

	rec = e.do(t, "GET", "/api/meetings?folderId=ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("list status = %d, want 404", rec.Code)
	}
}

func TestMeetingAPI_ListByFolder(t *testing.T) {
	e := setupTest(t)

	folder := decode[meeting.Folder](t, e.do(t, "POST", "/api/folders", `{"name":"Team"}`))
	e.do(t, "POST", "/api/meetings", `{"title":"in","folderId":"`+folder.ID+`"}`)
	e.do(t, "POST", "/api/meetings", `{"title":"out"}`)

	rec := e.do(t, "GET", "/api/meetings?folderId="+url.QueryEscape(folder.ID), "")
	got := decode[[]meeting.Meeting](t, rec)
	if len(got) != 1 || got[0].Title != "in" {
		t.Fatalf("meetings = %+v", got)
	}

	rec = e.do(t, "GET", "/api/meetings", "")
	if all := decode[[]meeting.Meeting](t, rec); len(all) != 2 || all[0].Title != "out" {
		t.Fatalf("all = %+v, want newest first", all)
	}
}

func TestMeetingAPI_UpdateAndDelete(t *testing.T) {
	e := setupTest(t)
	m := e.seedMeeting(t, "Standup", "")

	rec := e.do(t, "PATCH", "/api/meetings/"+m.ID, `{"title":"Retro","scheduledAt":"2025-06-02T09:30:00Z","summary":null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got := decode[meeting.Meeting](t, rec)
	if got.Title != "Retro" || got.ScheduledAt == nil {
		t.Errorf("updated = %+v", got)
	}

	rec = e.do(t, "DELETE", "/api/meetings/"+m.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = e.do(t, "GET", "/api/meetings/"+m.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d", rec.Code)
	}
}

func TestMeetingAPI_RejectedUpdateLeavesMeeting(t *testing.T) {
	e := setupTest(t)
	m := e.seedMeeting(t, "Standup", "first draft")

	rec := e.do(t, "PATCH", "/api/meetings/"+m.ID, `{"title":"Renamed","summary":"new summary","transcript":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, "GET", "/api/meetings/"+m.ID, "")
	got := decode[meeting.Meeting](t, rec)
	if got.Title != "Standup" || got.Summary != nil {
		t.Errorf("meeting changed by rejected update: %+v", got)
	}
	if got.Transcript == nil || *got.Transcript != "first draft" {
		t.Errorf("transcript = %v", got.Transcript)
	}
}

// --- transcript ---

func TestTranscriptAPI_EqualTextWritesNoHistory(t *testing.T) {
	e := setupTest(t)
	m := e.seedMeeting(t, "Standup", "first draft")

	rec := e.do(t, "PATCH", "/api/meetings/"+m.ID+"/transcript", `{"text":"first draft"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[meeting.Meeting](t, rec)
	if !got.UpdatedAt.Equal(m.UpdatedAt) {
		t.Errorf("UpdatedAt changed: %v -> %v", m.UpdatedAt, got.UpdatedAt)
	}

	rec = e.do(t, "PATCH", "/api/meetings/"+m.ID+"/transcript", `{"text":"second draft"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = e.do(t, "GET", "/api/meetings/"+m.ID+"/transcript", "")
	edits := decode[[]meeting.TranscriptEdit](t, rec)
	if len(edits) != 2 {
		t.Fatalf("edits = %d, want 2", len(edits))
	}
	if edits[0].FromText != "first draft" || edits[0].ToText != "second draft" {
		t.Errorf("newest edit = %+v", edits[0])
	}
}

func TestTranscriptAPI_EmptyText(t *testing.T) {
	e := setupTest(t)
	m := e.seedMeeting(t, "Standup", "")

	rec := e.do(t, "PATCH", "/api/meetings/"+m.ID+"/transcript", `{"text":""}`)
	if rec.Code != http.StatusBadRequest || rec.Body.String() != "text required" {
		t.Errorf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
}

func TestClearAPI(t *testing.T) {
	e := setupTest(t)
	m := e.seedMeeting(t, "Standup", "words")

	rec := e.do(t, "POST", "/api/meetings/"+m.ID+"/clear", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[meeting.Meeting](t, e.do(t, "GET", "/api/meetings/"+m.ID, ""))
	if got.Transcript != nil || got.Summary != nil {
		t.Errorf("meeting not cleared: %+v", got)
	}
}

// --- calendar ---

func TestICSAPI(t *testing.T) {
	e := setupTest(t)
	m := e.seedMeeting(t, "Standup", "")
	e.do(t, "PATCH", "/api/meetings/"+m.ID, `{"scheduledAt":"2025-06-02T09:00:00Z"}`)

	rec := e.do(t, "GET", "/api/meetings/"+m.ID+"/ics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/calendar; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "attachment; filename=meeting-"+m.ID+".ics" {
		t.Errorf("Content-Disposition = %q", cd)
	}
	body := rec.Body.String()
	for _, want := range []string{"DTSTART:20250602T090000Z\r\n", "DTEND:20250602T100000Z\r\n", "SUMMARY:Standup\r\n"} {
		if !strings.Contains(body, want) {
			t.Errorf("ics missing %q:\n%s", want, body)
		}
	}
}

// --- vendor-backed routes ---

func TestSummarizeAPI_Form(t *testing.T) {
	e := setupTest(t)
	m := e.seedMeeting(t, "Standup", "we shipped")

	form := url.Values{"meetingId": {m.ID}, "style": {"News Anchor – Formal, and breaking-news style."}}
	req := httptest.NewRequest("POST", "/api/summarize", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got := decode[meeting.Meeting](t, rec)
	if got.Summary == nil || *got.Summary != "- shipped" {
		t.Errorf("Summary = %v", got.Summary)
	}
	if !strings.Contains(e.gw.lastChat.User, "News Anchor") {
		t.Errorf("prompt = %q, want style woven in", e.gw.lastChat.User)
	}
}

func TestSummarizeAPI_MissingTranscript(t *testing.T) {
	e := setupTest(t)
	m := e.seedMeeting(t, "Standup", "")

	rec := e.do(t, "POST", "/api/summarize", `{"meetingId":"`+m.ID+`"}`)
	if rec.Code != http.StatusBadRequest || rec.Body.String() != "Transcript missing" {
		t.Errorf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
	if e.gw.calls != 0 {
		t.Errorf("gateway calls = %d, want 0", e.gw.calls)
	}
}

func TestSummarizeAPI_UpstreamError(t *testing.T) {
	e := setupTest(t)
	m := e.seedMeeting(t, "Standup", "words")
	e.gw.err = errors.NewUpstream("summarization failed: 429 slow down", nil)

	rec := e.do(t, "POST", "/api/summarize", `{"meetingId":"`+m.ID+`"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "summarization failed: 429 slow down" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestTranslateAPI(t *testing.T) {
	e := setupTest(t)
	e.gw.completion = "Bonjour"

	rec := e.do(t, "POST", "/api/translate", `{"text":"Hello","target":"French"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[ops.TranslateOutput](t, rec); got.Translated != "Bonjour" {
		t.Errorf("translated = %q", got.Translated)
	}

	rec = e.do(t, "POST", "/api/translate", `{"text":"Hello"}`)
	if rec.Code != http.StatusBadRequest || rec.Body.String() != "text and target required" {
		t.Errorf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
}

func TestTranscribeAPI(t *testing.T) {
	e := setupTest(t)
	m := e.seedMeeting(t, "Standup", "")

	body, ct := multipartBody(t, m.ID, "clip.webm", "audio/webm", bytes.Repeat([]byte{3}, 2048))
	req := httptest.NewRequest("POST", "/api/transcribe", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}
	got := decode[meeting.Meeting](t, rec)
	if got.Transcript == nil || *got.Transcript != "hello from the mic" {
		t.Errorf("Transcript = %v", got.Transcript)
	}
	if e.gw.lastUpload.Container != audio.WebM {
		t.Errorf("uploaded container = %+v", e.gw.lastUpload.Container)
	}
}

func TestTranscribeAPI_Rejections(t *testing.T) {
	e := setupTest(t)
	m := e.seedMeeting(t, "Standup", "")

	tests := []struct {
		name      string
		meetingID string
		data      []byte
		wantCode  int
		wantBody  string
	}{
		{"tiny payload", m.ID, []byte("tiny"), 400, "empty audio received"},
		{"no file", m.ID, nil, 400, "file required"},
		{"no meeting id", "", bytes.Repeat([]byte{1}, 300), 400, "meetingId required"},
		{"unknown meeting", "ghost", bytes.Repeat([]byte{1}, 300), 404, "meeting not found: ghost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, tt.meetingID, "a.wav", "audio/wav", tt.data)
			req := httptest.NewRequest("POST", "/api/transcribe", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			e.handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode || rec.Body.String() != tt.wantBody {
				t.Errorf("got %d %q, want %d %q", rec.Code, rec.Body.String(), tt.wantCode, tt.wantBody)
			}
			if rec.Header().Get("Cache-Control") != "no-store" {
				t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
			}
		})
	}
	if e.gw.calls != 0 {
		t.Errorf("gateway calls = %d, want 0", e.gw.calls)
	}
}

func TestTranscribeAPI_TooLarge(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxUploadBytes = 1024
	e := setupTestWithConfig(t, cfg)
	m := e.seedMeeting(t, "Standup", "")

	body, ct := multipartBody(t, m.ID, "a.wav", "audio/wav", bytes.Repeat([]byte{1}, 4096))
	req := httptest.NewRequest("POST", "/api/transcribe", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest || rec.Body.String() != "file too large" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestTTSAPI(t *testing.T) {
	e := setupTest(t)

	rec := e.do(t, "POST", "/api/tts", `{"text":"hi","style":"Rapper – Punchy rhyme or a hype bar."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "audio/mpeg" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}
	if rec.Header().Get("X-Voice") != meeting.VoiceVerse {
		t.Errorf("X-Voice = %q", rec.Header().Get("X-Voice"))
	}
	if rec.Body.String() != "ID3fake" {
		t.Errorf("body = %q", rec.Body.String())
	}

	rec = e.do(t, "POST", "/api/tts", `{"text":"  "}`)
	if rec.Code != http.StatusBadRequest || rec.Body.String() != "No text provided" {
		t.Errorf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
}

func TestMissingKey(t *testing.T) {
	e := setupTest(t)
	e.h.gw = openai.New(openai.Options{Key: func() (string, bool) { return "", false }})

	rec := e.do(t, "POST", "/api/translate", `{"text":"Hello","target":"French"}`)
	if rec.Code != http.StatusInternalServerError || rec.Body.String() != "OPENAI_API_KEY not set" {
		t.Errorf("status = %d, body = %q", rec.Code, rec.Body.String())
	}

	// validation still wins
	rec = e.do(t, "POST", "/api/tts", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// --- misc ---

func TestHealthz(t *testing.T) {
	e := setupTest(t)

	rec := e.do(t, "GET", "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[map[string]any](t, rec); got["status"] != "ok" {
		t.Errorf("body = %v", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	e := setupTest(t)

	rec := e.do(t, "GET", "/healthz", "")
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options")
	}
	if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "default-src 'self'") {
		t.Errorf("CSP = %q", rec.Header().Get("Content-Security-Policy"))
	}
}

func TestCORS(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AllowedOrigins = []string{"capacitor://localhost"}
	e := setupTestWithConfig(t, cfg)

	rec := e.do(t, "OPTIONS", "/api/meetings", "",
		"Origin", "capacitor://localhost",
		"Access-Control-Request-Method", "PATCH")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "capacitor://localhost" {
		t.Errorf("Allow-Origin = %q", got)
	}

	rec = e.do(t, "GET", "/api/meetings", "", "Origin", "https://evil.test")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q for unknown origin", got)
	}
}

// --- pages ---

func TestHomePage(t *testing.T) {
	e := setupTest(t)
	e.seedMeeting(t, "Quarterly review", "")

	rec := e.do(t, "GET", "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Quarterly review") {
		t.Error("expected meeting title on home page")
	}
	if !strings.Contains(body, "<html") {
		t.Error("expected full layout")
	}
}

func TestHomePage_HTMXContentOnly(t *testing.T) {
	e := setupTest(t)

	rec := e.do(t, "GET", "/", "", "HX-Request", "true")
	if strings.Contains(rec.Body.String(), "<html") {
		t.Error("HTMX request should receive the content block only")
	}
}

func TestDetailPage(t *testing.T) {
	e := setupTest(t)
	m := e.seedMeeting(t, "Planning", "line one")
	if _, err := ops.UpdateMeeting(context.Background(), e.h.db, ops.UpdateMeetingInput{
		ID:      m.ID,
		Summary: ops.Some("- **ship** it\n- <script>x</script>"),
	}); err != nil {
		t.Fatal(err)
	}

	rec := e.do(t, "GET", "/meetings/"+m.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<strong>ship</strong>") {
		t.Error("expected rendered markdown summary")
	}
	if strings.Contains(body, "<script>x</script>") {
		t.Error("raw HTML in summary must not be rendered")
	}
	if !strings.Contains(body, "Transcript history") {
		t.Error("expected transcript history section")
	}
	if !strings.Contains(body, "/api/meetings/"+m.ID+"/ics") {
		t.Error("expected ICS link")
	}
}

func TestDetailPage_NotFound(t *testing.T) {
	e := setupTest(t)

	rec := e.do(t, "GET", "/meetings/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "meeting not found: missing") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestCreateMeetingForm(t *testing.T) {
	e := setupTest(t)

	form := url.Values{"title": {"From form"}, "scheduledAt": {"2025-06-02T09:00"}}
	req := httptest.NewRequest("POST", "/meetings", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Header().Get("Location"), "/meetings/") {
		t.Errorf("Location = %q", rec.Header().Get("Location"))
	}
}

func TestDeleteMeetingForm(t *testing.T) {
	e := setupTest(t)
	m := e.seedMeeting(t, "Doomed", "")

	rec := e.do(t, "POST", "/meetings/"+m.ID+"/delete", "", "HX-Request", "true")
	if rec.Header().Get("HX-Redirect") != "/" {
		t.Errorf("HX-Redirect = %q", rec.Header().Get("HX-Redirect"))
	}
	if _, err := ops.GetMeeting(context.Background(), e.h.db, m.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("meeting still present: %v", err)
	}
}

func (e *testEnv) postForm(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestEditMeetingForm(t *testing.T) {
	e := setupTest(t)
	ctx := context.Background()
	folder, err := ops.CreateFolder(ctx, e.h.db, ops.CreateFolderInput{Name: "Team"})
	if err != nil {
		t.Fatal(err)
	}
	m := e.seedMeeting(t, "Standup", "notes")

	rec := e.postForm(t, "/meetings/"+m.ID+"/edit", url.Values{
		"title":       {" Weekly sync "},
		"scheduledAt": {"2025-06-02T09:30"},
		"folderId":    {folder.ID},
	})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/meetings/"+m.ID {
		t.Fatalf("status = %d, Location = %q", rec.Code, rec.Header().Get("Location"))
	}
	got, err := ops.GetMeeting(ctx, e.h.db, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Weekly sync" || got.FolderID == nil || *got.FolderID != folder.ID || got.ScheduledAt == nil {
		t.Errorf("edited meeting = %+v", got)
	}
	if *got.Transcript != "notes" {
		t.Errorf("transcript changed: %q", *got.Transcript)
	}

	page := e.do(t, "GET", "/meetings/"+m.ID, "").Body.String()
	if !strings.Contains(page, `value="2025-06-02T09:30"`) {
		t.Error("expected schedule in edit form")
	}
	if !strings.Contains(page, `value="`+folder.ID+`" selected`) {
		t.Error("expected current folder selected")
	}

	// blank fields clear folder and schedule
	rec = e.postForm(t, "/meetings/"+m.ID+"/edit", url.Values{"title": {"Weekly sync"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	got, _ = ops.GetMeeting(ctx, e.h.db, m.ID)
	if got.FolderID != nil || got.ScheduledAt != nil {
		t.Errorf("expected folder and schedule cleared: %+v", got)
	}

	rec = e.postForm(t, "/meetings/"+m.ID+"/edit", url.Values{"title": {"  "}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank title status = %d", rec.Code)
	}
}

func TestFolderForms(t *testing.T) {
	e := setupTest(t)
	ctx := context.Background()
	folder, err := ops.CreateFolder(ctx, e.h.db, ops.CreateFolderInput{Name: "Team"})
	if err != nil {
		t.Fatal(err)
	}
	m, err := ops.CreateMeeting(ctx, e.h.db, ops.CreateMeetingInput{Title: "In folder", FolderID: &folder.ID})
	if err != nil {
		t.Fatal(err)
	}

	page := e.do(t, "GET", "/?folderId="+folder.ID, "").Body.String()
	if !strings.Contains(page, "/folders/"+folder.ID+"/rename") || !strings.Contains(page, "/folders/"+folder.ID+"/delete") {
		t.Error("expected folder actions on the folder page")
	}

	rec := e.postForm(t, "/folders/"+folder.ID+"/rename", url.Values{"name": {"Research"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("rename status = %d, body = %s", rec.Code, rec.Body.String())
	}
	folders, _ := ops.ListFolders(ctx, e.h.db)
	if len(folders) != 1 || folders[0].Name != "Research" {
		t.Errorf("folders after rename = %+v", folders)
	}

	rec = e.postForm(t, "/folders/"+folder.ID+"/rename", url.Values{"name": {""}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty rename status = %d", rec.Code)
	}

	rec = e.postForm(t, "/folders/"+folder.ID+"/delete", url.Values{})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("delete status = %d, Location = %q", rec.Code, rec.Header().Get("Location"))
	}
	if _, err := ops.GetMeeting(ctx, e.h.db, m.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("meeting survived folder delete: %v", err)
	}

	rec = e.postForm(t, "/folders/"+folder.ID+"/delete", url.Values{})
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", rec.Code)
	}
}

func TestFormatChars(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1500, "-1,500"},
	}
	for _, tt := range tests {
		if got := formatChars(tt.n); got != tt.want {
			t.Errorf("formatChars(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestDeref(t *testing.T) {
	if deref((*string)(nil)) != "" {
		t.Error("deref(nil *string) should be empty string")
	}
	if deref(stringPtr("x")) != "x" {
		t.Error("deref(*string) should return value")
	}
	if hasValue((*string)(nil)) {
		t.Error("hasValue(nil) should be false")
	}
}
