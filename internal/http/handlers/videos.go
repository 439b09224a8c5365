package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"promovid/internal/domain"
	"promovid/internal/orchestrator"
)

type generateRequest struct {
	Filenames   []string `json:"filenames"`
	Style       string   `json:"style"`
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	ProductName string   `json:"product_name"`
	Ratio       string   `json:"ratio"`
	Duration    int      `json:"duration"`
	Count       int      `json:"count"`
}

type continueRequest struct {
	CapturedFrame  string `json:"captured_frame"`
	AnchorFrame    string `json:"anchor_frame"`
	ProductName    string `json:"product_name"`
	PreviousPrompt string `json:"previous_prompt"`
	SegmentIndex   int    `json:"segment_index"`
	Style          string `json:"style"`
	Ratio          string `json:"ratio"`
	Duration       int    `json:"duration"`
}

type jobView struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	VideoURL  string `json:"video_url,omitempty"`
	Prompt    string `json:"prompt"`
	Style     string `json:"style"`
	Model     string `json:"model"`
	Ratio     string `json:"ratio"`
	Duration  int    `json:"duration"`
	CreatedAt string `json:"created_at"`
	Error     string `json:"error,omitempty"`
}

func toJobView(j domain.Job) jobView {
	return jobView{
		ID:        j.ID,
		Status:    string(j.Status),
		VideoURL:  j.VideoURL,
		Prompt:    j.Prompt,
		Style:     j.Style,
		Model:     j.Model,
		Ratio:     j.Ratio,
		Duration:  j.Duration,
		CreatedAt: j.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Error:     j.Error,
	}
}

// Generate validates the request and starts one job per requested video.
// The response returns immediately; completion is observed via status polls.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if len(req.Filenames) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "filenames is required")
		return
	}

	jobs, err := a.Orch.Generate(r.Context(), orchestrator.GenerateRequest{
		ImageRefs:   req.Filenames,
		Style:       req.Style,
		Model:       req.Model,
		Prompt:      req.Prompt,
		ProductName: req.ProductName,
		Ratio:       req.Ratio,
		Duration:    req.Duration,
		Count:       req.Count,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}

	ids := make([]string, 0, len(jobs))
	views := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
		views = append(views, toJobView(j))
	}
	a.json(w, http.StatusAccepted, map[string]any{
		"job_ids": ids,
		"jobs":    views,
		"status":  string(domain.JobStatusProcessing),
		"message": "video generation started",
	})
}

// Continue starts one job chained onto a previously completed segment.
func (a *App) Continue(w http.ResponseWriter, r *http.Request) {
	var req continueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.CapturedFrame == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "captured_frame is required")
		return
	}

	job, err := a.Orch.Continue(r.Context(), orchestrator.ContinueRequest{
		CapturedFrame:  req.CapturedFrame,
		AnchorFrame:    req.AnchorFrame,
		ProductName:    req.ProductName,
		PreviousPrompt: req.PreviousPrompt,
		SegmentIndex:   req.SegmentIndex,
		Style:          req.Style,
		Ratio:          req.Ratio,
		Duration:       req.Duration,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{
		"job_id":  job.ID,
		"job":     toJobView(job),
		"status":  string(domain.JobStatusProcessing),
		"message": "continuation started",
	})
}

// Status reports the current state of one job.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job id required")
		return
	}
	job, err := a.Orch.Job(jobID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, toJobView(job))
}

// ListJobs returns all jobs, newest first.
func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := a.Orch.Jobs()
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	views := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, toJobView(j))
	}
	a.json(w, http.StatusOK, map[string]any{"items": views})
}
