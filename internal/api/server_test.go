package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/pulsewire/ingest/internal/covergen"
	"github.com/pulsewire/ingest/internal/ingest"
	"github.com/pulsewire/ingest/internal/store"
)

type fakeRunner struct {
	allCalls  int
	params    []ingest.Params
	runResult int
	runErr    error
	summary   ingest.Summary
}

func (f *fakeRunner) RunAll(ctx context.Context) ingest.Summary {
	f.allCalls++
	return f.summary
}

func (f *fakeRunner) RunCategory(ctx context.Context, p ingest.Params) (int, error) {
	f.params = append(f.params, p)
	return f.runResult, f.runErr
}

type fakeRunStore struct {
	runs []store.Run
}

func (f *fakeRunStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	return f.runs, nil
}

func (f *fakeRunStore) ArticleCount(ctx context.Context) (int, error) { return 12, nil }
func (f *fakeRunStore) RunCount(ctx context.Context) (int, error)     { return 4, nil }

const testPassword = "hunter2-admin"

func newTestServer(t *testing.T, runner *fakeRunner, runs *fakeRunStore) *Server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return NewServer(runner, runs, covergen.New(""), "test-secret", string(hash))
}

func login(t *testing.T, handler http.Handler) string {
	t.Helper()
	body := bytes.NewBufferString(`{"password":"` + testPassword + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp["token"]
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, &fakeRunStore{})
	handler := srv.Routes()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"password":"wrong"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestIngestEndpointsRequireAuth(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, &fakeRunStore{})
	handler := srv.Routes()

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/ingest/run"},
		{http.MethodPost, "/api/ingest/schedule"},
		{http.MethodGet, "/api/ingest/runs"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestRunFansOutWithoutTargetCategory(t *testing.T) {
	runner := &fakeRunner{summary: ingest.Summary{Success: true, ArticlesGenerated: 9}}
	srv := newTestServer(t, runner, &fakeRunStore{})
	handler := srv.Routes()
	token := login(t, handler)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/run",
		strings.NewReader(`{"manualRun":true}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if runner.allCalls != 1 {
		t.Fatalf("expected one RunAll call, got %d", runner.allCalls)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["articlesGenerated"].(float64) != 9 {
		t.Fatalf("unexpected body: %v", resp)
	}
}

func TestRunTargetsSingleCategory(t *testing.T) {
	runner := &fakeRunner{runResult: 3}
	srv := newTestServer(t, runner, &fakeRunStore{})
	handler := srv.Routes()
	token := login(t, handler)

	body := `{"targetCategory":"fintech","query":"neobank","articlesNeeded":3,"useAI":false}`
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/run", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if runner.allCalls != 0 {
		t.Fatal("RunAll must not be called for a targeted run")
	}
	p := runner.params[0]
	if p.Category != "fintech" || p.Query != "neobank" || p.ArticlesNeeded != 3 || p.UseAI {
		t.Fatalf("params not forwarded: %+v", p)
	}
}

func TestRunDefaultsUseAI(t *testing.T) {
	runner := &fakeRunner{runResult: 1}
	srv := newTestServer(t, runner, &fakeRunStore{})
	handler := srv.Routes()
	token := login(t, handler)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/run",
		strings.NewReader(`{"targetCategory":"ai"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !runner.params[0].UseAI {
		t.Fatal("UseAI must default to true")
	}
}

func TestScheduleReturnsSummary(t *testing.T) {
	runner := &fakeRunner{summary: ingest.Summary{Success: true, ArticlesGenerated: 21, ErrorsEncountered: 1}}
	srv := newTestServer(t, runner, &fakeRunStore{})
	handler := srv.Routes()
	token := login(t, handler)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/schedule", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var summary ingest.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.ArticlesGenerated != 21 || summary.ErrorsEncountered != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestListRuns(t *testing.T) {
	runs := &fakeRunStore{runs: []store.Run{
		{ID: "r1", Query: "ai startup", Source: store.SourceName, Status: store.StatusCompleted},
	}}
	srv := newTestServer(t, &fakeRunner{}, runs)
	handler := srv.Routes()
	token := login(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/api/ingest/runs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp struct {
		Runs []runView `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Runs) != 1 || resp.Runs[0].ID != "r1" || resp.Runs[0].Status != "completed" {
		t.Fatalf("unexpected runs payload: %+v", resp.Runs)
	}
}

func TestHealthIsPublic(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, &fakeRunStore{})
	handler := srv.Routes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["articles"].(float64) != 12 || resp["runs"].(float64) != 4 {
		t.Fatalf("unexpected health payload: %v", resp)
	}
}

func TestCoverServesPNG(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, &fakeRunStore{})
	handler := srv.Routes()

	req := httptest.NewRequest(http.MethodGet, "/covers/placeholder.png", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("empty image body")
	}
}

func TestCoverRejectsNonPNGName(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, &fakeRunStore{})
	handler := srv.Routes()

	req := httptest.NewRequest(http.MethodGet, "/covers/placeholder.svg", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
