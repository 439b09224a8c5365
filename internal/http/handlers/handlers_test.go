package handlers_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"promovid/internal/domain"
	"promovid/internal/frames"
	"promovid/internal/http/handlers"
	"promovid/internal/http/httpapi"
	"promovid/internal/jobstore"
	"promovid/internal/orchestrator"
	"promovid/internal/prompt"
	"promovid/internal/providers/runware"
	"promovid/internal/storage"
	"promovid/internal/styles"
)

type stubProvider struct{}

func (stubProvider) Submit(ctx context.Context, req runware.SubmitRequest) (*runware.TaskResult, error) {
	return &runware.TaskResult{TaskUUID: "task-1", Status: runware.StatusSuccess, VideoURL: "https://cdn.test/v.mp4"}, nil
}

func (stubProvider) Poll(ctx context.Context, taskUUID string) (*runware.TaskResult, error) {
	return &runware.TaskResult{TaskUUID: taskUUID, Status: runware.StatusSuccess, VideoURL: "https://cdn.test/v.mp4"}, nil
}

func (stubProvider) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("mp4 bytes")), nil
}

type stubVision struct {
	completeFn func(ctx context.Context, instruction string, imageRefs []string) (string, error)
}

func (s *stubVision) Complete(ctx context.Context, instruction string, imageRefs []string) (string, error) {
	if s.completeFn != nil {
		return s.completeFn(ctx, instruction, imageRefs)
	}
	return "Slow orbit on marble surface. Warm rim lighting.", nil
}

type fixture struct {
	app     *handlers.App
	router  http.Handler
	orch    *orchestrator.Orchestrator
	uploads *storage.FileStore
	vision  *stubVision
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	uploads, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	videos, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	registry, err := styles.NewRegistry(styles.Options{})
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}

	vision := &stubVision{}
	orch := orchestrator.New(orchestrator.Options{
		Store:         jobstore.NewMemoryStore(),
		Registry:      registry,
		Frames:        frames.NewResolver(uploads),
		Composer:      prompt.NewComposer(),
		Provider:      stubProvider{},
		Analyzer:      vision,
		Uploads:       uploads,
		Videos:        videos,
		PublicBaseURL: "http://localhost:8080",
		PollInterval:  time.Millisecond,
		PollAttempts:  10,
		Logger:        zerolog.Nop(),
	})
	app := &handlers.App{
		Logger:         zerolog.Nop(),
		Orch:           orch,
		Registry:       registry,
		Uploads:        uploads,
		Videos:         videos,
		Vision:         vision,
		PublicBaseURL:  "http://localhost:8080",
		ProviderKeySet: true,
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		UploadDir: uploads.BasePath(),
		VideoDir:  videos.BasePath(),
	})
	return &fixture{app: app, router: router, orch: orch, uploads: uploads, vision: vision}
}

func (f *fixture) seed(t *testing.T, refs ...string) {
	t.Helper()
	for _, ref := range refs {
		if _, err := f.uploads.Write(context.Background(), ref, []byte("img")); err != nil {
			t.Fatalf("seed %s: %v", ref, err)
		}
	}
}

func (f *fixture) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" || body["has_key"] != true {
		t.Fatalf("body = %v", body)
	}
}

func TestGenerateAcceptedAndTracked(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a.jpg")

	rec := f.postJSON(t, "/api/generate", map[string]any{
		"filenames": []string{"a.jpg"},
		"style":     "rotating",
		"duration":  4,
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("code = %d, body %s, want 202", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	ids, ok := body["job_ids"].([]any)
	if !ok || len(ids) != 1 {
		t.Fatalf("job_ids = %v, want one id", body["job_ids"])
	}
	jobID := ids[0].(string)
	if body["status"] != "processing" {
		t.Fatalf("status = %v, want processing", body["status"])
	}

	<-f.orch.Await(jobID)

	status := f.get(t, "/api/status/"+jobID)
	if status.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", status.Code)
	}
	view := decodeBody(t, status)
	if view["status"] != "completed" {
		t.Fatalf("job view = %v, want completed", view)
	}
	if view["video_url"] == "" {
		t.Fatal("expected video url on completed job")
	}
}

func TestGenerateValidation(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a.jpg")

	rec := f.postJSON(t, "/api/generate", map[string]any{"filenames": []string{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400 for empty filenames", rec.Code)
	}

	rec = f.postJSON(t, "/api/generate", map[string]any{"filenames": []string{"ghost.jpg"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400 for missing image", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "image_not_found" {
		t.Fatalf("error slug = %v, want image_not_found", body["error"])
	}

	rec = f.postJSON(t, "/api/generate", map[string]any{
		"filenames": []string{"a.jpg"},
		"model":     "acme:1@1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400 for unknown model", rec.Code)
	}
}

func TestStatusNotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/api/status/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "not_found" {
		t.Fatalf("error slug = %v, want not_found", body["error"])
	}
}

func TestListJobs(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a.jpg")

	rec := f.postJSON(t, "/api/generate", map[string]any{
		"filenames": []string{"a.jpg"},
		"count":     2,
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("code = %d, want 202", rec.Code)
	}

	list := f.get(t, "/api/jobs")
	if list.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", list.Code)
	}
	body := decodeBody(t, list)
	items, ok := body["items"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("items = %v, want 2 jobs", body["items"])
	}
}

func TestContinueRequiresCapturedFrame(t *testing.T) {
	f := newFixture(t)
	rec := f.postJSON(t, "/api/generate/continue", map[string]any{"duration": 8})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
}

func TestContinueAccepted(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "captured.jpg")

	rec := f.postJSON(t, "/api/generate/continue", map[string]any{
		"captured_frame":  "captured.jpg",
		"previous_prompt": "Slow orbit on marble.",
		"segment_index":   2,
		"duration":        8,
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("code = %d, body %s, want 202", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["job_id"] == "" {
		t.Fatalf("body = %v, want job_id", body)
	}
}

func TestContinueAnalyzerFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "captured.jpg")
	f.vision.completeFn = func(ctx context.Context, instruction string, imageRefs []string) (string, error) {
		return "", errors.New("model runner unreachable")
	}

	rec := f.postJSON(t, "/api/generate/continue", map[string]any{
		"captured_frame": "captured.jpg",
		"duration":       8,
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("code = %d, want 502", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "prompt_generation_failed" {
		t.Fatalf("error slug = %v, want prompt_generation_failed", body["error"])
	}
}

func TestStylesCatalog(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/api/styles")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	items, ok := body["items"].([]any)
	if !ok || len(items) == 0 {
		t.Fatalf("items = %v, want style list", body["items"])
	}
	first := items[0].(map[string]any)
	for _, field := range []string{"key", "name", "model", "base_prompt", "price"} {
		if _, ok := first[field]; !ok {
			t.Fatalf("style view %v missing %q", first, field)
		}
	}
}

func TestAutoPrompt(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a.jpg")

	rec := f.postJSON(t, "/api/auto-prompt", map[string]any{
		"filenames":    []string{"a.jpg"},
		"product_name": "ceramic mug",
		"duration":     6,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s, want 200", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["prompt"] == "" {
		t.Fatalf("body = %v, want prompt text", body)
	}
}

func TestAutoPromptMissingImage(t *testing.T) {
	f := newFixture(t)
	rec := f.postJSON(t, "/api/auto-prompt", map[string]any{"filenames": []string{"ghost.jpg"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
}

func TestAutoPromptVisionFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a.jpg")
	f.vision.completeFn = func(ctx context.Context, instruction string, imageRefs []string) (string, error) {
		return "", errors.New("timeout")
	}

	rec := f.postJSON(t, "/api/auto-prompt", map[string]any{"filenames": []string{"a.jpg"}})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("code = %d, want 502", rec.Code)
	}
}

func TestArchiveJobs(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a.jpg")

	rec := f.postJSON(t, "/api/generate", map[string]any{
		"filenames": []string{"a.jpg"},
		"count":     2,
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("code = %d, want 202", rec.Code)
	}
	ids := decodeBody(t, rec)["job_ids"].([]any)
	for _, id := range ids {
		<-f.orch.Await(id.(string))
	}

	archive := f.get(t, "/api/jobs/archive")
	if archive.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s, want 200", archive.Code, archive.Body.String())
	}
	if got := archive.Header().Get("Content-Type"); got != "application/zip" {
		t.Fatalf("Content-Type = %q, want application/zip", got)
	}

	zr, err := zip.NewReader(bytes.NewReader(archive.Body.Bytes()), int64(archive.Body.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != len(ids) {
		t.Fatalf("archive has %d entries, want %d", len(zr.File), len(ids))
	}
	for _, entry := range zr.File {
		if !strings.HasSuffix(entry.Name, ".mp4") {
			t.Fatalf("entry = %q, want mp4 clip", entry.Name)
		}
	}

	narrowed := f.get(t, "/api/jobs/archive?ids="+ids[0].(string))
	if narrowed.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", narrowed.Code)
	}
	zr, err = zip.NewReader(bytes.NewReader(narrowed.Body.Bytes()), int64(narrowed.Body.Len()))
	if err != nil {
		t.Fatalf("open narrowed archive: %v", err)
	}
	if len(zr.File) != 1 {
		t.Fatalf("narrowed archive has %d entries, want 1", len(zr.File))
	}
}

func TestArchiveJobsEmpty(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/api/jobs/archive")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404 when nothing is cached", rec.Code)
	}
}

func TestUpload(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "product.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("png bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s, want 200", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	filename, _ := body["filename"].(string)
	if !strings.HasSuffix(filename, ".png") {
		t.Fatalf("filename = %q, want original extension kept", filename)
	}
	if !f.uploads.Exists(filename) {
		t.Fatal("uploaded file must be readable under the returned name")
	}
	if url, _ := body["image_url"].(string); !strings.HasPrefix(url, "http://localhost:8080/uploads/") {
		t.Fatalf("image_url = %q, want public uploads url", url)
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "huge.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(bytes.Repeat([]byte("x"), 10<<20+1)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("code = %d, want 413", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "file_too_large" {
		t.Fatalf("error slug = %v, want file_too_large", body["error"])
	}
	entries, err := os.ReadDir(f.uploads.BasePath())
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("upload dir has %d entries, want nothing stored", len(entries))
	}
}

func TestChainSegmentAggregation(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a.jpg", "captured.jpg")

	first := f.postJSON(t, "/api/generate", map[string]any{
		"filenames":    []string{"a.jpg"},
		"style":        "rotating",
		"product_name": "espresso maker",
		"duration":     6,
	})
	if first.Code != http.StatusAccepted {
		t.Fatalf("code = %d, want 202", first.Code)
	}
	firstID := decodeBody(t, first)["job_ids"].([]any)[0].(string)
	<-f.orch.Await(firstID)

	firstJob, err := f.orch.Job(firstID)
	if err != nil {
		t.Fatalf("Job returned error: %v", err)
	}

	second := f.postJSON(t, "/api/generate/continue", map[string]any{
		"captured_frame":  "captured.jpg",
		"product_name":    "espresso maker",
		"previous_prompt": firstJob.Prompt,
		"segment_index":   2,
		"style":           "rotating",
		"duration":        6,
	})
	if second.Code != http.StatusAccepted {
		t.Fatalf("code = %d, want 202", second.Code)
	}
	secondID := decodeBody(t, second)["job_id"].(string)
	<-f.orch.Await(secondID)

	style, err := f.app.Registry.Resolve("rotating")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	var chain []domain.ChainSegment
	for _, id := range []string{firstID, secondID} {
		job, err := f.orch.Job(id)
		if err != nil {
			t.Fatalf("Job returned error: %v", err)
		}
		if job.Status != domain.JobStatusCompleted {
			t.Fatalf("job %s status = %q, want completed", id, job.Status)
		}
		chain = append(chain, domain.ChainSegment{
			JobID:    job.ID,
			VideoURL: job.VideoURL,
			Prompt:   job.Prompt,
			Style:    job.Style,
			Duration: job.Duration,
			Price:    style.Price,
		})
	}

	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2", len(chain))
	}
	if chain[0].JobID != firstID || chain[1].JobID != secondID {
		t.Fatalf("chain order = %q, %q, want generation order preserved", chain[0].JobID, chain[1].JobID)
	}
	for i, seg := range chain {
		if seg.VideoURL == "" {
			t.Fatalf("chain[%d] has no video url", i)
		}
		if seg.Duration != 6 || seg.Style != "rotating" || seg.Price != style.Price {
			t.Fatalf("chain[%d] = %+v, want style metadata carried over", i, seg)
		}
	}
	if !strings.Contains(chain[1].Prompt, chain[0].Prompt) {
		t.Fatalf("continuation prompt %q does not reference the previous segment", chain[1].Prompt)
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("image", "clip.gif")
	_, _ = part.Write([]byte("gif bytes"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "unsupported_type" {
		t.Fatalf("error slug = %v, want unsupported_type", body["error"])
	}
}
