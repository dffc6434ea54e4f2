package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/llm-gateway/internal/completion"
	"github.com/yungbote/llm-gateway/internal/ingest"
	"github.com/yungbote/llm-gateway/internal/logger"
	"github.com/yungbote/llm-gateway/internal/observability"
	"github.com/yungbote/llm-gateway/internal/parse"
	"github.com/yungbote/llm-gateway/internal/store"
	"github.com/yungbote/llm-gateway/internal/types"
)

type fakeCompleter struct {
	got  *completion.Request
	resp *completion.Response
	err  error
}

func (f *fakeCompleter) Complete(_ context.Context, req *completion.Request) (*completion.Response, error) {
	f.got = req
	return f.resp, f.err
}

type uploadStore struct {
	store.Store
	created []*types.File
}

func (u *uploadStore) CreateFile(_ context.Context, f *types.File) (*types.File, error) {
	created := *f
	created.FileID = "file-row-1"
	u.created = append(u.created, &created)
	return &created, nil
}

func (u *uploadStore) FindFileByHash(context.Context, string) (*types.File, error) {
	return nil, nil
}

type noMedia struct{}

func (noMedia) GenerateFromBytes(context.Context, string, []byte, string) (string, error) {
	return "", errors.New("no media parsing in tests")
}

func testFileService(t *testing.T, st store.Store) *ingest.FileService {
	t.Helper()
	reg := parse.NewRegistry(noMedia{}, logger.Nop())
	return ingest.NewFileService(st, reg, t.TempDir(), 1024*1024, logger.Nop())
}

func completionsRouter(h *CompletionsHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/chat/completions", h.Create)
	return r
}

func TestCompletionsRoutesJSON(t *testing.T) {
	fake := &fakeCompleter{resp: &completion.Response{ThreadID: "t1", Content: "hi"}}
	reg := completion.NewRegistry()
	reg.Register("deepseek", "deepseek-chat", fake)
	h := NewCompletionsHandler(logger.Nop(), reg, testFileService(t, &uploadStore{}))

	body := `{"provider":"deepseek","model":"deepseek-chat","messages":[{"role":"user","content":"hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	completionsRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp completion.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ThreadID != "t1" || resp.Content != "hi" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if fake.got == nil || fake.got.Messages[0].Content != "hello" {
		t.Fatalf("handler did not receive payload: %+v", fake.got)
	}
}

func TestCompletionsUnregisteredProviders(t *testing.T) {
	h := NewCompletionsHandler(logger.Nop(), completion.NewRegistry(), testFileService(t, &uploadStore{}))
	router := completionsRouter(h)

	cases := []struct {
		provider string
		want     int
	}{
		{"openai", http.StatusNotImplemented},
		{"gemini", http.StatusNotImplemented},
		{"anthropic", http.StatusNotImplemented},
		{"mystery", http.StatusBadRequest},
	}
	for _, tc := range cases {
		body := `{"provider":"` + tc.provider + `","model":"some-model","messages":[]}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/completions", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("provider %s: status = %d, want %d", tc.provider, w.Code, tc.want)
		}
	}
}

func TestCompletionsRejectsUnknownPurpose(t *testing.T) {
	fake := &fakeCompleter{resp: &completion.Response{}}
	reg := completion.NewRegistry()
	reg.Register("deepseek", "deepseek-chat", fake)
	h := NewCompletionsHandler(logger.Nop(), reg, testFileService(t, &uploadStore{}))

	body := `{"provider":"deepseek","model":"deepseek-chat","purpose":"newsletter","messages":[]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	completionsRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if fake.got != nil {
		t.Fatal("handler must not run for an unknown purpose")
	}
}

func TestCompletionsMultipartAttachesFiles(t *testing.T) {
	fake := &fakeCompleter{resp: &completion.Response{ThreadID: "t1"}}
	reg := completion.NewRegistry()
	reg.Register("deepseek", "deepseek-reasoner", fake)
	st := &uploadStore{}
	h := NewCompletionsHandler(logger.Nop(), reg, testFileService(t, st))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("json", `{"provider":"deepseek","model":"deepseek-reasoner","messages":[{"role":"user","content":"what does the doc say"}]}`)
	part, _ := mw.CreateFormFile("file", "notes.txt")
	_, _ = part.Write([]byte("document body"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/completions", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	completionsRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if len(st.created) != 1 {
		t.Fatalf("file not stored: %d rows", len(st.created))
	}
	msgs := fake.got.Messages
	if len(msgs) != 1 || len(msgs[0].Attachments) != 1 || msgs[0].Attachments[0] != "file-row-1" {
		t.Fatalf("attachment not wired to user message: %+v", msgs)
	}
}

func TestCompletionsMultipartRequiresJSONField(t *testing.T) {
	h := NewCompletionsHandler(logger.Nop(), completion.NewRegistry(), testFileService(t, &uploadStore{}))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "notes.txt")
	_, _ = part.Write([]byte("data"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/completions", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	completionsRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "json") {
		t.Fatalf("error should name the missing field: %s", w.Body.String())
	}
}

func filesRouter(h *FilesHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/files", h.Upload)
	return r
}

func multipartUpload(t *testing.T, names map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range names {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write([]byte(content))
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestFilesUploadSuccess(t *testing.T) {
	st := &uploadStore{}
	h := NewFilesHandler(logger.Nop(), testFileService(t, st), observability.NewMetrics())

	buf, contentType := multipartUpload(t, map[string]string{"a.txt": "alpha"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	filesRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var env uploadEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Status != 200 || env.Message != "success" || len(env.Result) != 1 {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestFilesUploadPartialFailure(t *testing.T) {
	st := &uploadStore{}
	h := NewFilesHandler(logger.Nop(), testFileService(t, st), observability.NewMetrics())

	buf, contentType := multipartUpload(t, map[string]string{
		"good.txt":    "alpha",
		"archive.zip": "binary junk",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	filesRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusMultiStatus {
		t.Fatalf("status = %d, want 207, body %s", w.Code, w.Body.String())
	}
	var env uploadEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Status != 207 || len(env.Result) != 1 || env.Message == "" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestFilesUploadAllFail(t *testing.T) {
	h := NewFilesHandler(logger.Nop(), testFileService(t, &uploadStore{}), observability.NewMetrics())

	buf, contentType := multipartUpload(t, map[string]string{"archive.zip": "junk"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	filesRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/v1/health", HealthCheck("llm-gateway", "1.0.0"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" || body["service"] != "llm-gateway" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestHumanReadableHelpers(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "0s"},
		{59, "59s"},
		{3661, "1h 1m 1s"},
		{90061, "1d 1h 1m 1s"},
	}
	for _, tc := range cases {
		if got := humanReadableTime(time.Duration(tc.seconds) * time.Second); got != tc.want {
			t.Errorf("humanReadableTime(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}

	if got := humanReadableBytes(512); got != "512.00 B" {
		t.Errorf("bytes = %q", got)
	}
	if got := humanReadableBytes(1536); got != "1.50 KB" {
		t.Errorf("kilobytes = %q", got)
	}
	if got := humanReadableBytes(3 * 1024 * 1024 * 1024); got != "3.00 GB" {
		t.Errorf("gigabytes = %q", got)
	}
}
