// Package runware implements the client for the Runware video inference API:
// task submission, result polling, and artifact download.
package runware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultBaseURL = "https://api.runware.ai/v1"

	submitTimeout   = 60 * time.Second
	pollTimeout     = 30 * time.Second
	downloadTimeout = 2 * time.Minute
)

// TaskStatus is the provider-reported state of a submitted task.
type TaskStatus string

const (
	StatusProcessing TaskStatus = "processing"
	StatusSuccess    TaskStatus = "success"
	StatusError      TaskStatus = "error"
)

// FrameImage is one reference image in the submission payload. Frame is the
// provider role ("first" or "last"); InputImage is a data URI.
type FrameImage struct {
	InputImage string `json:"inputImage"`
	Frame      string `json:"frame,omitempty"`
}

// SubmitRequest describes one video inference task.
type SubmitRequest struct {
	Prompt    string
	ModelID   string
	Width     int
	Height    int
	Duration  int
	Frames    []FrameImage
	Overrides map[string]any
}

// TaskResult is the provider's view of a task after submit or poll.
type TaskResult struct {
	TaskUUID string
	Status   TaskStatus
	VideoURL string
	Message  string
}

// Options configures the client. The three HTTP clients default to sane
// bounded timeouts when nil; tests inject fakes through them.
type Options struct {
	APIKey         string
	BaseURL        string
	SubmitClient   *http.Client
	PollClient     *http.Client
	DownloadClient *http.Client
}

// Client talks to the Runware REST API.
type Client struct {
	apiKey   string
	baseURL  string
	submit   *http.Client
	poll     *http.Client
	download *http.Client
}

// NewClient validates options and builds a client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("runware: api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	submit := opts.SubmitClient
	if submit == nil {
		submit = &http.Client{Timeout: submitTimeout}
	}
	poll := opts.PollClient
	if poll == nil {
		poll = &http.Client{Timeout: pollTimeout}
	}
	download := opts.DownloadClient
	if download == nil {
		download = &http.Client{Timeout: downloadTimeout}
	}
	return &Client{
		apiKey:   strings.TrimSpace(opts.APIKey),
		baseURL:  baseURL,
		submit:   submit,
		poll:     poll,
		download: download,
	}, nil
}

type taskEnvelope struct {
	Data   []taskPayload `json:"data"`
	Errors []apiError    `json:"errors"`
}

type taskPayload struct {
	TaskUUID string `json:"taskUUID"`
	Status   string `json:"status"`
	VideoURL string `json:"videoURL"`
	Message  string `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
}

// Submit posts a videoInference task. The returned result carries the task
// UUID for polling; some models answer synchronously, in which case Status
// is already StatusSuccess with a video URL.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*TaskResult, error) {
	taskUUID := uuid.NewString()

	payload := map[string]any{
		"taskType":       "videoInference",
		"taskUUID":       taskUUID,
		"positivePrompt": req.Prompt,
		"model":          req.ModelID,
		"width":          req.Width,
		"height":         req.Height,
		"duration":       req.Duration,
		"deliveryMethod": "async",
		"outputFormat":   "mp4",
		"numberResults":  1,
		"includeCost":    true,
		"outputQuality":  85,
		"frameImages":    req.Frames,
	}
	applyProviderOptions(req.ModelID, payload)
	for k, v := range req.Overrides {
		payload[k] = v
	}

	env, err := c.post(ctx, c.submit, []map[string]any{payload})
	if err != nil {
		return nil, err
	}
	result := envelopeToResult(env, taskUUID)
	return &result, nil
}

// Poll queries the state of a previously submitted task.
func (c *Client) Poll(ctx context.Context, taskUUID string) (*TaskResult, error) {
	payload := []map[string]any{{
		"taskType": "getResponse",
		"taskUUID": taskUUID,
	}}
	env, err := c.post(ctx, c.poll, payload)
	if err != nil {
		return nil, err
	}
	result := envelopeToResult(env, taskUUID)
	return &result, nil
}

// Download fetches the remote video artifact. The caller owns the returned
// body.
func (c *Client) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("runware: build download request: %w", err)
	}
	resp, err := c.download.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("runware: download: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("runware: download status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *Client) post(ctx context.Context, client *http.Client, payload any) (*taskEnvelope, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("runware: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("runware: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("runware: request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("runware: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("runware: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var env taskEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("runware: decode response: %w", err)
	}
	return &env, nil
}

// envelopeToResult collapses the provider's response envelope into a single
// task result. Errors in the envelope win over data rows; a success row
// without a video URL is still processing.
func envelopeToResult(env *taskEnvelope, taskUUID string) TaskResult {
	for _, e := range env.Errors {
		if e.Message != "" {
			return TaskResult{TaskUUID: taskUUID, Status: StatusError, Message: e.Message}
		}
	}
	for _, row := range env.Data {
		switch row.Status {
		case string(StatusSuccess):
			if row.VideoURL != "" {
				return TaskResult{TaskUUID: taskUUID, Status: StatusSuccess, VideoURL: row.VideoURL}
			}
		case string(StatusError):
			msg := row.Message
			if msg == "" {
				msg = "unknown provider error"
			}
			return TaskResult{TaskUUID: taskUUID, Status: StatusError, Message: msg}
		}
	}
	return TaskResult{TaskUUID: taskUUID, Status: StatusProcessing}
}
