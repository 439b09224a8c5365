package domain

// StyleConfig is an immutable creative preset binding a provider model to a
// base prompt and a per-video price. Loaded once at startup.
type StyleConfig struct {
	Key        string
	Name       string
	ModelID    string
	BasePrompt string
	Price      float64

	// Reveal marks styles whose narrative places the product at the end of
	// the clip (e.g. unboxing). It changes single-image frame role
	// assignment.
	Reveal bool

	// Overrides carries provider-specific parameters merged into the
	// submission payload after the per-provider defaults.
	Overrides map[string]any
}

// ChainSegment represents one completed video in a multi-segment sequence.
// Chains are aggregated by the caller; the orchestrator only produces the
// next segment.
type ChainSegment struct {
	JobID    string  `json:"job_id"`
	VideoURL string  `json:"video_url"`
	Prompt   string  `json:"prompt"`
	Style    string  `json:"style"`
	Duration int     `json:"duration"`
	Price    float64 `json:"price"`
}
