// Package vision calls an OpenAI-compatible vision model to turn reference
// images into prompt text. There is deliberately no fallback here: when the
// model cannot be reached the caller surfaces the failure instead of
// inventing a prompt.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"strings"
	"time"

	_ "image/png"

	"golang.org/x/sync/errgroup"
	_ "golang.org/x/image/webp"

	"promovid/internal/storage"
)

const (
	defaultTimeout = 60 * time.Second
	jpegQuality    = 80
	maxTokens      = 300
)

// Options configures the client.
type Options struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Uploads    *storage.FileStore
}

// Client posts chat completions with inline image parts.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
	uploads *storage.FileStore
}

// NewClient validates options and builds a client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("vision: base url is required")
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("vision: model is required")
	}
	if opts.Uploads == nil {
		return nil, errors.New("vision: upload store is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		model:   opts.Model,
		client:  client,
		uploads: opts.Uploads,
	}, nil
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the instruction plus the referenced upload images and
// returns the model's free-text answer. The response is treated as opaque
// text.
func (c *Client) Complete(ctx context.Context, instruction string, imageRefs []string) (string, error) {
	if len(imageRefs) == 0 {
		return "", errors.New("vision: at least one image is required")
	}
	dataURIs, err := c.encodeImages(ctx, imageRefs)
	if err != nil {
		return "", err
	}

	parts := []contentPart{{Type: "text", Text: instruction}}
	for _, uri := range dataURIs {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: uri}})
	}
	payload := chatRequest{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: parts}},
		MaxTokens: maxTokens,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("vision: encode request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("vision: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("vision: request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vision: status %d", resp.StatusCode)
	}
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("vision: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("vision: empty response")
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("vision: empty response")
	}
	return text, nil
}

// encodeImages re-encodes each reference as JPEG and returns data URIs in
// input order. Uploads may be png/webp/jpeg; the model runner accepts JPEG
// reliably, so everything is normalized.
func (c *Client) encodeImages(ctx context.Context, refs []string) ([]string, error) {
	uris := make([]string, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			raw, err := c.uploads.Read(gctx, ref)
			if err != nil {
				return fmt.Errorf("vision: read image %s: %w", ref, err)
			}
			img, _, err := image.Decode(bytes.NewReader(raw))
			if err != nil {
				return fmt.Errorf("vision: decode image %s: %w", ref, err)
			}
			var jpegBuf bytes.Buffer
			if err := jpeg.Encode(&jpegBuf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
				return fmt.Errorf("vision: encode image %s: %w", ref, err)
			}
			uris[i] = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegBuf.Bytes())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return uris, nil
}
