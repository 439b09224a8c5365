// Package orchestrator drives generation jobs through their lifecycle:
// validate, create, submit, poll, finalize. Each job runs as an independent
// background task; callers observe progress only through the job store.
package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"promovid/internal/domain"
	"promovid/internal/frames"
	"promovid/internal/infra"
	"promovid/internal/jobstore"
	"promovid/internal/prompt"
	"promovid/internal/providers/runware"
	"promovid/internal/storage"
	"promovid/internal/styles"
)

const (
	minDuration = 4
	maxDuration = 10
	maxCount    = 4

	defaultRatio = "9:16"
)

// ratioSizes maps aspect-ratio presets to output dimensions (720p class).
var ratioSizes = map[string][2]int{
	"9:16": {720, 1280},
	"16:9": {1280, 720},
	"1:1":  {720, 720},
}

// Provider is the external video generation service.
type Provider interface {
	Submit(ctx context.Context, req runware.SubmitRequest) (*runware.TaskResult, error)
	Poll(ctx context.Context, taskUUID string) (*runware.TaskResult, error)
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Analyzer is the vision model used to describe a captured frame for
// continuation prompts.
type Analyzer interface {
	Complete(ctx context.Context, instruction string, imageRefs []string) (string, error)
}

// Options wires the orchestrator's collaborators.
type Options struct {
	Store         jobstore.Store
	Registry      *styles.Registry
	Frames        *frames.Resolver
	Composer      *prompt.Composer
	Provider      Provider
	Analyzer      Analyzer
	Uploads       *storage.FileStore
	Videos        *storage.FileStore
	PublicBaseURL string
	PollInterval  time.Duration
	PollAttempts  int
	Logger        infra.Logger
}

// Orchestrator owns job creation and the per-job background tasks.
type Orchestrator struct {
	store         jobstore.Store
	registry      *styles.Registry
	frames        *frames.Resolver
	composer      *prompt.Composer
	provider      Provider
	analyzer      Analyzer
	uploads       *storage.FileStore
	videos        *storage.FileStore
	publicBaseURL string
	pollInterval  time.Duration
	pollAttempts  int
	logger        infra.Logger

	mu    sync.Mutex
	tasks map[string]*task
}

// task is the cancellable, awaitable handle of one job's background run.
type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds an orchestrator. PollInterval and PollAttempts fall back to the
// provider defaults (5s, 120 attempts) when unset.
func New(opts Options) *Orchestrator {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	attempts := opts.PollAttempts
	if attempts <= 0 {
		attempts = 120
	}
	return &Orchestrator{
		store:         opts.Store,
		registry:      opts.Registry,
		frames:        opts.Frames,
		composer:      opts.Composer,
		provider:      opts.Provider,
		analyzer:      opts.Analyzer,
		uploads:       opts.Uploads,
		videos:        opts.Videos,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		pollInterval:  interval,
		pollAttempts:  attempts,
		logger:        opts.Logger,
		tasks:         make(map[string]*task),
	}
}

// GenerateRequest is a validated-on-entry request for one or more videos
// from the same frames and prompt.
type GenerateRequest struct {
	ImageRefs   []string
	Style       string
	Model       string
	Prompt      string
	ProductName string
	Ratio       string
	Duration    int
	Count       int
}

// ContinueRequest asks for one more segment chained onto a completed one.
type ContinueRequest struct {
	CapturedFrame  string
	AnchorFrame    string
	ProductName    string
	PreviousPrompt string
	SegmentIndex   int
	Style          string
	Ratio          string
	Duration       int
}

// Generate validates the request, creates count jobs and starts their
// background tasks. Validation failures reject the whole request before any
// job exists.
func (o *Orchestrator) Generate(ctx context.Context, req GenerateRequest) ([]domain.Job, error) {
	style, err := o.resolveStyle(req.Style, req.Model)
	if err != nil {
		return nil, err
	}

	frameList, clamped, err := o.frames.Resolve(req.ImageRefs, style)
	if err != nil {
		return nil, err
	}
	if clamped {
		o.logger.Info().Int("supplied", len(req.ImageRefs)).Msg("orchestrator: reduced reference images to first and last")
	}

	finalPrompt := o.composer.Compose(style, req.Prompt, req.ProductName)
	ratio := clampRatio(req.Ratio)
	duration := clampDuration(req.Duration)
	count := clampCount(req.Count)

	jobs := make([]domain.Job, 0, count)
	for i := 0; i < count; i++ {
		job := o.store.Create(domain.Job{
			Prompt:    finalPrompt,
			Style:     style.Key,
			Model:     style.ModelID,
			Ratio:     ratio,
			Duration:  duration,
			ImageRefs: frameRefs(frameList),
		})
		o.spawn(job.ID, runSpec{
			frames:    frameList,
			prompt:    finalPrompt,
			modelID:   style.ModelID,
			ratio:     ratio,
			duration:  duration,
			overrides: style.Overrides,
		})
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Continue creates one job that picks up where a completed segment left off.
// The captured frame is mandatory; the anchor only closes the clip when the
// segment is long enough. Prompt synthesis failures surface to the caller
// before any job exists.
func (o *Orchestrator) Continue(ctx context.Context, req ContinueRequest) (domain.Job, error) {
	style, err := o.resolveStyle(req.Style, "")
	if err != nil {
		return domain.Job{}, err
	}
	duration := clampDuration(req.Duration)

	frameList, err := o.frames.ResolveContinuation(req.CapturedFrame, req.AnchorFrame, duration)
	if err != nil {
		return domain.Job{}, err
	}

	analysis, err := o.analyzer.Complete(ctx, prompt.AnalysisInstruction(), []string{req.CapturedFrame})
	if err != nil {
		return domain.Job{}, fmt.Errorf("%w: %v", domain.ErrPromptGeneration, err)
	}

	finalPrompt := o.composer.ComposeContinuation(req.ProductName, req.PreviousPrompt, req.SegmentIndex, duration, analysis)
	ratio := clampRatio(req.Ratio)

	job := o.store.Create(domain.Job{
		Prompt:    finalPrompt,
		Style:     style.Key,
		Model:     style.ModelID,
		Ratio:     ratio,
		Duration:  duration,
		ImageRefs: frameRefs(frameList),
	})
	o.spawn(job.ID, runSpec{
		frames:    frameList,
		prompt:    finalPrompt,
		modelID:   style.ModelID,
		ratio:     ratio,
		duration:  duration,
		overrides: style.Overrides,
	})
	return job, nil
}

// Job returns a snapshot of one job.
func (o *Orchestrator) Job(id string) (domain.Job, error) {
	return o.store.Get(id)
}

// Jobs returns snapshots of all jobs.
func (o *Orchestrator) Jobs() []domain.Job {
	return o.store.List()
}

// Await returns a channel closed when the job's background task finishes.
// Unknown IDs get a closed channel.
func (o *Orchestrator) Await(id string) <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	if t, ok := o.tasks[id]; ok {
		return t.done
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// Shutdown cancels all running tasks and waits for them to settle or for ctx
// to expire.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	pending := make([]*task, 0, len(o.tasks))
	for _, t := range o.tasks {
		t.cancel()
		pending = append(pending, t)
	}
	o.mu.Unlock()

	for _, t := range pending {
		select {
		case <-t.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// resolveStyle applies the two lookup policies: style names are lenient
// (unknown → default), explicit model IDs are strict (unknown provider →
// reject).
func (o *Orchestrator) resolveStyle(styleKey, modelID string) (domain.StyleConfig, error) {
	if modelID != "" {
		if style, err := o.registry.Resolve(modelID); err == nil {
			return style, nil
		}
		if runware.KnownProvider(modelID) {
			return domain.StyleConfig{Key: "custom", Name: modelID, ModelID: modelID}, nil
		}
		return domain.StyleConfig{}, fmt.Errorf("%w: unknown model %s", domain.ErrInvalidRequest, modelID)
	}
	style, err := o.registry.Resolve(styleKey)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownStyle) {
			fallback := o.registry.Default()
			o.logger.Info().Str("style", styleKey).Str("fallback", fallback.Key).Msg("orchestrator: unknown style, using default")
			return fallback, nil
		}
		return domain.StyleConfig{}, err
	}
	return style, nil
}

// runSpec carries everything a background task needs; jobs are never read
// back for submission parameters.
type runSpec struct {
	frames    []frames.Frame
	prompt    string
	modelID   string
	ratio     string
	duration  int
	overrides map[string]any
}

func (o *Orchestrator) spawn(jobID string, spec runSpec) {
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}
	o.mu.Lock()
	o.tasks[jobID] = t
	o.mu.Unlock()

	go func() {
		defer close(t.done)
		defer cancel()
		o.run(ctx, jobID, spec)
	}()
}

// run executes the state machine for one job: submit, immediate-result
// check, poll loop, finalize.
func (o *Orchestrator) run(ctx context.Context, jobID string, spec runSpec) {
	log := o.logger.With().Str("job_id", jobID).Logger()
	log.Info().Str("model", spec.modelID).Int("frames", len(spec.frames)).Msg("orchestrator: starting job")

	frameImages, err := o.loadFrames(ctx, spec.frames)
	if err != nil {
		o.fail(jobID, fmt.Sprintf("read reference image: %v", err))
		return
	}

	size, ok := ratioSizes[spec.ratio]
	if !ok {
		size = ratioSizes[defaultRatio]
	}

	result, err := o.provider.Submit(ctx, runware.SubmitRequest{
		Prompt:    spec.prompt,
		ModelID:   spec.modelID,
		Width:     size[0],
		Height:    size[1],
		Duration:  spec.duration,
		Frames:    frameImages,
		Overrides: spec.overrides,
	})
	if err != nil {
		o.fail(jobID, fmt.Sprintf("submit: %v", err))
		return
	}

	switch result.Status {
	case runware.StatusError:
		o.fail(jobID, result.Message)
		return
	case runware.StatusSuccess:
		// Some models answer synchronously; skip polling entirely.
		log.Info().Msg("orchestrator: immediate result")
		o.finalize(ctx, jobID, result.VideoURL)
		return
	}

	log.Info().Str("task_uuid", result.TaskUUID).Msg("orchestrator: submitted, polling")
	o.pollUntilDone(ctx, jobID, result.TaskUUID, log)
}

// pollUntilDone polls the provider on a fixed interval until a terminal
// answer or the attempt budget runs out. Provider-reported task errors fail
// the job immediately; transport errors are retried on the next tick.
func (o *Orchestrator) pollUntilDone(ctx context.Context, jobID, taskUUID string, log infra.Logger) {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < o.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			o.fail(jobID, fmt.Sprintf("aborted: %v", ctx.Err()))
			return
		case <-ticker.C:
		}

		result, err := o.provider.Poll(ctx, taskUUID)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt+1).Msg("orchestrator: poll failed, retrying")
			continue
		}
		switch result.Status {
		case runware.StatusError:
			o.fail(jobID, result.Message)
			return
		case runware.StatusSuccess:
			o.finalize(ctx, jobID, result.VideoURL)
			return
		}
	}
	o.fail(jobID, "timed out waiting for video")
}

// finalize caches the remote artifact locally. A failed download or save
// degrades the result to the remote URL; it never blocks completion.
func (o *Orchestrator) finalize(ctx context.Context, jobID, remoteURL string) {
	log := o.logger.With().Str("job_id", jobID).Logger()
	resultURL := remoteURL

	body, err := o.provider.Download(ctx, remoteURL)
	if err != nil {
		log.Warn().Err(err).Msg("orchestrator: download failed, keeping remote url")
	} else {
		key, written, saveErr := o.videos.WriteFrom(ctx, jobID+".mp4", body)
		_ = body.Close()
		if saveErr != nil {
			log.Warn().Err(saveErr).Msg("orchestrator: save failed, keeping remote url")
		} else {
			resultURL = o.publicBaseURL + "/videos/" + key
			log.Info().Int64("bytes", written).Str("key", key).Msg("orchestrator: video cached")
		}
	}

	if err := o.store.Mutate(jobID, func(j *domain.Job) {
		j.Status = domain.JobStatusCompleted
		j.VideoURL = resultURL
	}); err != nil {
		log.Error().Err(err).Msg("orchestrator: complete transition failed")
		return
	}
	log.Info().Str("video_url", resultURL).Msg("orchestrator: job completed")
}

func (o *Orchestrator) fail(jobID, msg string) {
	if msg == "" {
		msg = "unknown provider error"
	}
	if err := o.store.Mutate(jobID, func(j *domain.Job) {
		j.Status = domain.JobStatusFailed
		j.Error = msg
	}); err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("orchestrator: fail transition failed")
		return
	}
	o.logger.Error().Str("job_id", jobID).Str("reason", msg).Msg("orchestrator: job failed")
}

// loadFrames reads each reference and packages it as a provider frame image.
func (o *Orchestrator) loadFrames(ctx context.Context, list []frames.Frame) ([]runware.FrameImage, error) {
	out := make([]runware.FrameImage, 0, len(list))
	for _, f := range list {
		data, err := o.uploads.Read(ctx, f.Ref)
		if err != nil {
			return nil, err
		}
		out = append(out, runware.FrameImage{
			InputImage: dataURI(f.Ref, data),
			Frame:      string(f.Role),
		})
	}
	return out, nil
}

func dataURI(ref string, data []byte) string {
	mediaType := "image/jpeg"
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".png":
		mediaType = "image/png"
	case ".webp":
		mediaType = "image/webp"
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func frameRefs(list []frames.Frame) []string {
	refs := make([]string, 0, len(list))
	for _, f := range list {
		refs = append(refs, f.Ref)
	}
	return refs
}

func clampDuration(d int) int {
	if d <= 0 {
		return minDuration
	}
	if d < minDuration {
		return minDuration
	}
	if d > maxDuration {
		return maxDuration
	}
	return d
}

func clampCount(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxCount {
		return maxCount
	}
	return n
}

func clampRatio(ratio string) string {
	if _, ok := ratioSizes[ratio]; ok {
		return ratio
	}
	return defaultRatio
}
