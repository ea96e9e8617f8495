package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bgv-dashboard/internal/client"
	"bgv-dashboard/internal/config"
	"bgv-dashboard/internal/model"
	"bgv-dashboard/internal/service"
	"bgv-dashboard/internal/session"
	"bgv-dashboard/internal/util"
	"bgv-dashboard/internal/view"
)

// memoryCache is an in-memory stand-in for the Redis session cache.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]string)}
}

func (c *memoryCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *memoryCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *memoryCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// fakeBackend emulates the verification backend and counts requests per
// endpoint.
type fakeBackend struct {
	srv *httptest.Server

	loginHits  atomic.Int64
	listHits   atomic.Int64
	detailHits atomic.Int64
	uploadHits atomic.Int64
	submitHits atomic.Int64

	mu             sync.Mutex
	listBody       string
	detailBody     string
	uploadBody     string
	uploadStatus   int
	submitBody     string
	submitStatus   int
	rejectAllAuth  bool
	rejectPassword bool
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		listBody:     `{"status":"success","data":[]}`,
		detailBody:   `{"status":"success","data":{"id":5,"status":"pending","first_name":"Asha","last_name":"Rao","email":"c@x.com"}}`,
		uploadBody:   `{"status":"success","data":{"id":9,"status":"pending"}}`,
		uploadStatus: http.StatusCreated,
		submitBody:   `{"status":"success","data":{"id":5,"status":"documents_submitted"}}`,
		submitStatus: http.StatusOK,
	}
	b.srv = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if b.rejectAllAuth && r.URL.Path != "/api/auth/login/" {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"token expired"}`))
		return
	}

	switch {
	case r.URL.Path == "/api/auth/login/":
		b.loginHits.Add(1)
		if b.rejectPassword {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"status":"error","message":"Invalid credentials"}`))
			return
		}
		role := model.RoleRecruiter
		if strings.Contains(readBody(r), "candidate@") {
			role = model.RoleCandidate
		}
		w.Write([]byte(`{
			"message": "Login successful",
			"data": {
				"user": {"id": 1, "email": "u@x.com", "full_name": "U", "role": "` + role + `"},
				"tokens": {"access": "acc", "refresh": "ref"}
			},
			"status": "success"
		}`))
	case r.URL.Path == "/api/bgv/upload/":
		b.uploadHits.Add(1)
		w.WriteHeader(b.uploadStatus)
		w.Write([]byte(b.uploadBody))
	case r.URL.Path == "/api/bgv/" && r.Method == http.MethodGet:
		b.listHits.Add(1)
		w.Write([]byte(b.listBody))
	case strings.HasSuffix(r.URL.Path, "/submit-documents/"):
		b.submitHits.Add(1)
		w.WriteHeader(b.submitStatus)
		w.Write([]byte(b.submitBody))
	default:
		b.detailHits.Add(1)
		w.Write([]byte(b.detailBody))
	}
}

func (b *fakeBackend) set(fn func(*fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func readBody(r *http.Request) string {
	data, _ := io.ReadAll(r.Body)
	return string(data)
}

type testApp struct {
	router  http.Handler
	cache   *memoryCache
	store   *session.Store
	backend *fakeBackend
	cfg     *config.Config
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	backend := newFakeBackend(t)

	cfg := &config.Config{}
	cfg.Environment = "test"
	cfg.Backend.BaseURL = backend.srv.URL
	cfg.Backend.Timeout = 5 * time.Second
	cfg.Session.CookieName = "bgv_session"
	cfg.Session.DefaultTTL = time.Hour

	cache := newMemoryCache()
	store := session.NewStore(cache, cfg.Session.DefaultTTL, util.Get())

	renderer, err := view.NewRenderer(util.Get())
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	backendClient := client.NewBackendClient(cfg, util.Get())
	authService := service.NewAuthService(backendClient, store, nil, util.Get())
	bgvService := service.NewBGVService(backendClient, nil, util.Get())

	h := New(cfg, renderer, store, authService, bgvService, util.Get())
	return &testApp{
		router:  NewRouter(h, util.Get()),
		cache:   cache,
		store:   store,
		backend: backend,
		cfg:     cfg,
	}
}

// loginAs creates a session directly in the store and returns its
// cookie.
func (a *testApp) loginAs(t *testing.T, role string) *http.Cookie {
	t.Helper()
	user := &model.User{ID: 1, Email: role + "@x.com", FullName: "U", Role: role}
	tokens := &model.Tokens{Access: "acc", Refresh: "ref"}
	id, err := a.store.Login(context.Background(), user, tokens)
	if err != nil {
		t.Fatalf("session login: %v", err)
	}
	return &http.Cookie{Name: a.cfg.Session.CookieName, Value: id}
}

func (a *testApp) do(t *testing.T, req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, files map[string][2]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for field, meta := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+meta[0]+`"`)
		header.Set("Content-Type", meta[1])
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		part.Write([]byte("content"))
	}
	writer.Close()
	return &buf, writer.FormDataContentType()
}

func redirectTarget(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 redirect, got %d: %s", rec.Code, rec.Body.String())
	}
	return rec.Header().Get("Location")
}

func TestGuardRedirectsAnonymousToLogin(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/dashboard/recruiter", "/dashboard/candidate", "/dashboard/recruiter/bgv/5"} {
		rec := app.do(t, httptest.NewRequest(http.MethodGet, path, nil), nil)
		if got := redirectTarget(t, rec); got != "/login" {
			t.Errorf("%s: expected redirect to /login, got %s", path, got)
		}
	}
	if app.backend.listHits.Load() != 0 || app.backend.detailHits.Load() != 0 {
		t.Fatal("anonymous visits must not reach the backend")
	}
}

func TestGuardRedirectsWrongRoleHome(t *testing.T) {
	app := newTestApp(t)

	recruiter := app.loginAs(t, model.RoleRecruiter)
	rec := app.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/candidate", nil), recruiter)
	if got := redirectTarget(t, rec); got != "/dashboard/recruiter" {
		t.Errorf("recruiter on candidate route: expected /dashboard/recruiter, got %s", got)
	}

	candidate := app.loginAs(t, model.RoleCandidate)
	rec = app.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/recruiter", nil), candidate)
	if got := redirectTarget(t, rec); got != "/dashboard/candidate" {
		t.Errorf("candidate on recruiter route: expected /dashboard/candidate, got %s", got)
	}
}

func TestHomeRoutesByRole(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	if got := redirectTarget(t, rec); got != "/login" {
		t.Errorf("anonymous /: expected /login, got %s", got)
	}

	rec = app.do(t, httptest.NewRequest(http.MethodGet, "/", nil), app.loginAs(t, model.RoleCandidate))
	if got := redirectTarget(t, rec); got != "/dashboard/candidate" {
		t.Errorf("candidate /: expected /dashboard/candidate, got %s", got)
	}
}

func TestLoginFlow(t *testing.T) {
	app := newTestApp(t)

	form := url.Values{"email": {"recruiter@x.com"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := app.do(t, req, nil)
	if got := redirectTarget(t, rec); got != "/dashboard/recruiter" {
		t.Fatalf("expected role dashboard redirect, got %s", got)
	}

	cookies := rec.Result().Cookies()
	var sessionCookie *http.Cookie
	for _, c := range cookies {
		if c.Name == "bgv_session" {
			sessionCookie = c
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatal("expected session cookie to be set")
	}
	if app.cache.size() != 3 {
		t.Fatalf("expected three persisted session keys, got %d", app.cache.size())
	}

	// The persisted session now drives routing from /.
	rec = app.do(t, httptest.NewRequest(http.MethodGet, "/", nil), sessionCookie)
	if got := redirectTarget(t, rec); got != "/dashboard/recruiter" {
		t.Fatalf("expected persisted session to route /, got %s", got)
	}
}

func TestLoginRejectedCredentials(t *testing.T) {
	app := newTestApp(t)
	app.backend.set(func(b *fakeBackend) { b.rejectPassword = true })

	form := url.Values{"email": {"r@x.com"}, "password": {"bad"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := app.do(t, req, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 render, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid email or password") {
		t.Fatal("expected inline credential error")
	}
	if app.cache.size() != 0 {
		t.Fatal("no session may be created on failed login")
	}
}

func TestBackend401EvictsSessionAndRedirects(t *testing.T) {
	app := newTestApp(t)
	cookie := app.loginAs(t, model.RoleRecruiter)
	app.backend.set(func(b *fakeBackend) { b.rejectAllAuth = true })

	rec := app.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/recruiter", nil), cookie)
	if got := redirectTarget(t, rec); got != "/login" {
		t.Fatalf("expected redirect to /login, got %s", got)
	}
	if app.cache.size() != 0 {
		t.Fatalf("all three session keys must be removed, %d remain", app.cache.size())
	}

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "bgv_session" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected session cookie to be cleared")
	}

	// A second in-flight request with the same stale cookie takes the
	// same path without error: eviction is idempotent.
	rec = app.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/recruiter", nil), cookie)
	if got := redirectTarget(t, rec); got != "/login" {
		t.Fatalf("expected repeat redirect to /login, got %s", got)
	}
}

func TestDetailInvalidIDSkipsBackend(t *testing.T) {
	app := newTestApp(t)
	cookie := app.loginAs(t, model.RoleRecruiter)

	rec := app.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/recruiter/bgv/abc", nil), cookie)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected local 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid verification request ID") {
		t.Fatal("expected local error message")
	}
	if app.backend.detailHits.Load() != 0 {
		t.Fatal("invalid id must not trigger a backend call")
	}
}

func TestResumeUploadRejectsNonPDFLocally(t *testing.T) {
	app := newTestApp(t)
	cookie := app.loginAs(t, model.RoleRecruiter)

	body, contentType := multipartBody(t, map[string][2]string{
		"file": {"resume.pdf", "text/plain"},
	})
	req := httptest.NewRequest(http.MethodPost, "/dashboard/recruiter/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := app.do(t, req, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected inline re-render, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Please upload a PDF file") {
		t.Fatal("expected local validation message")
	}
	if app.backend.uploadHits.Load() != 0 {
		t.Fatal("rejected file must never reach the backend")
	}
}

func TestResumeUploadSuccessRefreshesTable(t *testing.T) {
	app := newTestApp(t)
	cookie := app.loginAs(t, model.RoleRecruiter)

	body, contentType := multipartBody(t, map[string][2]string{
		"file": {"resume.pdf", "application/pdf"},
	})
	req := httptest.NewRequest(http.MethodPost, "/dashboard/recruiter/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := app.do(t, req, cookie)
	if got := redirectTarget(t, rec); got != "/dashboard/recruiter?uploaded=1" {
		t.Fatalf("expected flash redirect, got %s", got)
	}
	if app.backend.uploadHits.Load() != 1 {
		t.Fatalf("expected one upload request, got %d", app.backend.uploadHits.Load())
	}

	// The refreshed table carries the new pending request.
	app.backend.set(func(b *fakeBackend) {
		b.listBody = `{"status":"success","data":[{"id":9,"first_name":"New","last_name":"Hire","status":"pending"}]}`
	})
	rec = app.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/recruiter?uploaded=1", nil), cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected dashboard, got %d", rec.Code)
	}
	page := rec.Body.String()
	if !strings.Contains(page, "Resume uploaded successfully!") {
		t.Fatal("expected upload flash")
	}
	if !strings.Contains(page, "New Hire") || !strings.Contains(page, "In Progress") {
		t.Fatal("expected new request rendered with in-progress badge")
	}
}

func TestCandidateUploadActionVisibility(t *testing.T) {
	app := newTestApp(t)
	cookie := app.loginAs(t, model.RoleCandidate)

	app.backend.set(func(b *fakeBackend) {
		b.listBody = `{"status":"success","data":[
			{"id":5,"role":"Engineer","status":"documents_requested","recruiter":{"full_name":"R"}},
			{"id":6,"role":"Analyst","status":"pending","recruiter":{"full_name":"R"}}
		]}`
	})

	rec := app.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/candidate", nil), cookie)
	page := rec.Body.String()
	if strings.Count(page, "Upload documents") != 1 {
		t.Fatalf("upload action must appear exactly once, page: %s", page)
	}
	if !strings.Contains(page, "/dashboard/candidate/bgv/5#documents") {
		t.Fatal("upload action must target the documents_requested row")
	}
}

func TestDocumentSubmitFlow(t *testing.T) {
	app := newTestApp(t)
	cookie := app.loginAs(t, model.RoleCandidate)

	app.backend.set(func(b *fakeBackend) {
		b.detailBody = `{"status":"success","data":{"id":5,"status":"documents_requested","first_name":"Asha","email":"c@x.com"}}`
	})

	// The detail page shows the upload form while documents are requested.
	rec := app.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/candidate/bgv/5", nil), cookie)
	if !strings.Contains(rec.Body.String(), "Submit Documents") {
		t.Fatal("expected document upload form")
	}

	body, contentType := multipartBody(t, map[string][2]string{
		"pan":     {"pan.png", "image/png"},
		"aadhaar": {"aadhaar.jpg", "image/jpeg"},
	})
	req := httptest.NewRequest(http.MethodPost, "/dashboard/candidate/bgv/5/documents", body)
	req.Header.Set("Content-Type", contentType)

	rec = app.do(t, req, cookie)
	if got := redirectTarget(t, rec); got != "/dashboard/candidate/bgv/5?submitted=1" {
		t.Fatalf("expected confirmation redirect, got %s", got)
	}

	// After submission the re-fetched record has moved on, so the form
	// is gone and the confirmation shows.
	app.backend.set(func(b *fakeBackend) {
		b.detailBody = `{"status":"success","data":{"id":5,"status":"documents_submitted","first_name":"Asha","email":"c@x.com"}}`
	})
	rec = app.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/candidate/bgv/5?submitted=1", nil), cookie)
	page := rec.Body.String()
	if !strings.Contains(page, "Documents uploaded successfully!") {
		t.Fatal("expected confirmation banner")
	}
	if strings.Contains(page, "Submit Documents") {
		t.Fatal("upload form must disappear once documents are submitted")
	}
}

func TestDocumentSubmitMissingFileBlocked(t *testing.T) {
	app := newTestApp(t)
	cookie := app.loginAs(t, model.RoleCandidate)

	app.backend.set(func(b *fakeBackend) {
		b.detailBody = `{"status":"success","data":{"id":5,"status":"documents_requested","first_name":"Asha","email":"c@x.com"}}`
	})

	body, contentType := multipartBody(t, map[string][2]string{
		"pan": {"pan.png", "image/png"},
	})
	req := httptest.NewRequest(http.MethodPost, "/dashboard/candidate/bgv/5/documents", body)
	req.Header.Set("Content-Type", contentType)

	rec := app.do(t, req, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected inline re-render, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Please upload both PAN and Aadhaar documents") {
		t.Fatal("expected both-slots validation message")
	}
	if app.backend.submitHits.Load() != 0 {
		t.Fatal("incomplete submission must not reach the backend")
	}
}

func TestDocumentSubmitFieldErrorKeepsFormOpen(t *testing.T) {
	app := newTestApp(t)
	cookie := app.loginAs(t, model.RoleCandidate)

	app.backend.set(func(b *fakeBackend) {
		b.detailBody = `{"status":"success","data":{"id":5,"status":"documents_requested","first_name":"Asha","email":"c@x.com"}}`
		b.submitStatus = http.StatusBadRequest
		b.submitBody = `{"status":"error","errors":{"pan":["file too large"]}}`
	})

	body, contentType := multipartBody(t, map[string][2]string{
		"pan":     {"pan.png", "image/png"},
		"aadhaar": {"aadhaar.jpg", "image/jpeg"},
	})
	req := httptest.NewRequest(http.MethodPost, "/dashboard/candidate/bgv/5/documents", body)
	req.Header.Set("Content-Type", contentType)

	rec := app.do(t, req, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected inline re-render, got %d", rec.Code)
	}
	page := rec.Body.String()
	if !strings.Contains(page, "file too large") {
		t.Fatal("expected field-level backend message")
	}
	if !strings.Contains(page, "Submit Documents") {
		t.Fatal("the upload form must stay open after a failure")
	}
}

func TestListErrorRendersServerMessage(t *testing.T) {
	app := newTestApp(t)
	cookie := app.loginAs(t, model.RoleRecruiter)

	app.backend.set(func(b *fakeBackend) {
		b.listBody = `{"status":"error","message":"Backend maintenance in progress"}`
	})

	rec := app.do(t, httptest.NewRequest(http.MethodGet, "/dashboard/recruiter", nil), cookie)
	if !strings.Contains(rec.Body.String(), "Backend maintenance in progress") {
		t.Fatal("expected server-provided error message")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	app := newTestApp(t)
	cookie := app.loginAs(t, model.RoleCandidate)

	rec := app.do(t, httptest.NewRequest(http.MethodPost, "/logout", nil), cookie)
	if got := redirectTarget(t, rec); got != "/login" {
		t.Fatalf("expected /login, got %s", got)
	}
	if app.cache.size() != 0 {
		t.Fatalf("expected empty session store, got %d keys", app.cache.size())
	}
}
