package classifyhttp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	stdimage "image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"hotdog-server-go/internal/domain/classify"
	domainimage "hotdog-server-go/internal/domain/image"
	platformerrors "hotdog-server-go/internal/platform/errors"
	"hotdog-server-go/internal/platform/storage"
	platformtesting "hotdog-server-go/internal/platform/testing"
)

// stubClassifier returns a canned result or error without any network call.
type stubClassifier struct {
	result    classify.Result
	err       error
	connected bool
	calls     int
}

func (s *stubClassifier) Classify(_ context.Context, _ *domainimage.Validated) (classify.Result, error) {
	s.calls++
	if s.err != nil {
		return classify.Result{}, s.err
	}
	return s.result, nil
}

func (s *stubClassifier) TestConnection(_ context.Context) bool {
	return s.connected
}

type testHarness struct {
	engine     *gin.Engine
	classifier *stubClassifier
	uploadDir  string
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := platformtesting.SetupTestConfig(t)
	logger := platformtesting.SetupTestLogger(t).Tagged()

	pipeline, err := domainimage.NewPipeline(domainimage.Options{
		Security: &cfg.Security,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}
	fetcher := domainimage.NewFetcher(nil, cfg.Security.MaxFileSize, logger)
	normalizer := domainimage.NewNormalizer(pipeline, fetcher, logger)

	uploads, err := storage.NewUploadStore(&cfg.Upload, logger)
	if err != nil {
		t.Fatalf("failed to create upload store: %v", err)
	}

	classifier := &stubClassifier{
		result:    classify.Result{IsHotdog: true, Description: "A grilled sausage in a bun"},
		connected: true,
	}

	service, err := NewService(cfg, logger, normalizer, classifier, uploads)
	if err != nil {
		t.Fatalf("NewService() failed: %v", err)
	}

	engine := gin.New()
	service.Register(engine.Group("/"))

	return &testHarness{
		engine:     engine,
		classifier: classifier,
		uploadDir:  cfg.Upload.Dir,
	}
}

func (h *testHarness) post(t *testing.T, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/classify", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func (h *testHarness) uploadDirEntries(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(h.uploadDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	return len(entries)
}

func multipartFile(t *testing.T, fieldFilename string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", fieldFilename)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write part failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer failed: %v", err)
	}
	return body, writer.FormDataContentType()
}

func formBody(t *testing.T, field, value string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField(field, value); err != nil {
		t.Fatalf("WriteField failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer failed: %v", err)
	}
	return body, writer.FormDataContentType()
}

func redJPEG(t *testing.T) []byte {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("response is not valid JSON: %v\nbody: %s", err, rec.Body.String())
	}
}

func TestClassify_FileUpload(t *testing.T) {
	h := newHarness(t)
	body, contentType := multipartFile(t, "dog.jpg", redJPEG(t))

	rec := h.post(t, body, contentType)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp ClassifyResponse
	decodeJSON(t, rec, &resp)

	if !strings.Contains(resp.Result, "Hotdog") {
		t.Errorf("Result = %q", resp.Result)
	}
	if !resp.IsHotdog {
		t.Error("expected is_hotdog true")
	}
	if resp.Description != "A grilled sausage in a bun" {
		t.Errorf("Description = %q", resp.Description)
	}
	if resp.Source != "file" {
		t.Errorf("Source = %q", resp.Source)
	}
	if resp.RequestID == "" || resp.Timestamp == "" {
		t.Error("expected request_id and timestamp to be set")
	}
	if resp.ProcessedURL != "" {
		t.Errorf("ProcessedURL should be empty for uploads, got %q", resp.ProcessedURL)
	}
}

func TestClassify_NotHotdogVerdict(t *testing.T) {
	h := newHarness(t)
	h.classifier.result = classify.Result{IsHotdog: false, Description: "A taco on a plate"}

	body, contentType := multipartFile(t, "taco.jpg", redJPEG(t))
	rec := h.post(t, body, contentType)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp ClassifyResponse
	decodeJSON(t, rec, &resp)
	if !strings.Contains(resp.Result, "Not Hotdog") {
		t.Errorf("Result = %q", resp.Result)
	}
	if resp.IsHotdog {
		t.Error("expected is_hotdog false")
	}
}

func TestClassify_NoInputField(t *testing.T) {
	h := newHarness(t)
	body, contentType := formBody(t, "unrelated", "value")

	rec := h.post(t, body, contentType)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp ErrorResponse
	decodeJSON(t, rec, &resp)
	if resp.Error == "" {
		t.Error("expected error message in body")
	}
	if resp.RequestID == "" {
		t.Error("expected request_id in error body")
	}
	if h.classifier.calls != 0 {
		t.Error("classifier must not be called for invalid input")
	}
}

func TestClassify_MultipleInputFields(t *testing.T) {
	h := newHarness(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "dog.jpg")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	part.Write(redJPEG(t))
	writer.WriteField("url", "https://example.com/dog.jpg")
	writer.Close()

	rec := h.post(t, body, writer.FormDataContentType())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
}

func TestClassify_TextFileRejected(t *testing.T) {
	h := newHarness(t)
	body, contentType := multipartFile(t, "notes.txt", []byte("not an image"))

	rec := h.post(t, body, contentType)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp ErrorResponse
	decodeJSON(t, rec, &resp)
	if !strings.Contains(resp.Error, "invalid file type") {
		t.Errorf("Error = %q", resp.Error)
	}
	if h.classifier.calls != 0 {
		t.Error("classifier must not be called for rejected uploads")
	}
}

func TestClassify_Base64Input(t *testing.T) {
	h := newHarness(t)
	dataURI := fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(redJPEG(t)))
	body, contentType := formBody(t, "base64", dataURI)

	rec := h.post(t, body, contentType)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp ClassifyResponse
	decodeJSON(t, rec, &resp)
	if resp.Source != "base64" {
		t.Errorf("Source = %q", resp.Source)
	}
}

func TestClassify_URLSource(t *testing.T) {
	h := newHarness(t)
	payload := redJPEG(t)

	imageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(payload)
	}))
	defer imageServer.Close()

	body, contentType := formBody(t, "url", imageServer.URL+"/dog.jpg")
	rec := h.post(t, body, contentType)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp ClassifyResponse
	decodeJSON(t, rec, &resp)
	if resp.Source != "url" {
		t.Errorf("Source = %q", resp.Source)
	}
	if resp.ProcessedURL == "" {
		t.Error("expected processed_url for url source")
	}
}

func TestClassify_UpstreamFailureStatus(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "connectivity",
			err:        platformerrors.New(platformerrors.KindConnectivity, "classify", "cannot connect to vision API"),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "timeout",
			err:        platformerrors.New(platformerrors.KindTimeout, "classify", "vision API request timed out"),
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "upstream",
			err:        platformerrors.New(platformerrors.KindUpstream, "classify", "vision API returned status 500"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.classifier.err = tt.err
			body, contentType := multipartFile(t, "dog.jpg", redJPEG(t))

			rec := h.post(t, body, contentType)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, expected %d, body: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}

			var resp ErrorResponse
			decodeJSON(t, rec, &resp)
			if resp.Error == "" {
				t.Error("expected error message in body")
			}
		})
	}
}

func TestClassify_StagedFileReleased(t *testing.T) {
	h := newHarness(t)

	// Success path.
	body, contentType := multipartFile(t, "dog.jpg", redJPEG(t))
	rec := h.post(t, body, contentType)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := h.uploadDirEntries(t); got != 0 {
		t.Errorf("upload dir has %d leftover file(s) after success", got)
	}

	// Classifier failure path.
	h.classifier.err = platformerrors.New(platformerrors.KindUpstream, "classify", "boom")
	body, contentType = multipartFile(t, "dog.jpg", redJPEG(t))
	rec = h.post(t, body, contentType)
	if rec.Code == http.StatusOK {
		t.Fatal("expected failure status")
	}
	if got := h.uploadDirEntries(t); got != 0 {
		t.Errorf("upload dir has %d leftover file(s) after failure", got)
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp HealthResponse
	decodeJSON(t, rec, &resp)
	if resp.Status != "healthy" {
		t.Errorf("Status = %q", resp.Status)
	}
	if !resp.APIConnection {
		t.Error("expected api_connection true")
	}
	if resp.Timestamp == "" {
		t.Error("expected timestamp")
	}
}

func TestHealth_Unhealthy(t *testing.T) {
	h := newHarness(t)
	h.classifier.connected = false

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)

	var resp HealthResponse
	decodeJSON(t, rec, &resp)
	if resp.Status != "unhealthy" {
		t.Errorf("Status = %q", resp.Status)
	}
	if resp.APIConnection {
		t.Error("expected api_connection false")
	}
}
