package handlers

import (
	"encoding/json"
	"net/http"

	"promovid/internal/prompt"
)

type autoPromptRequest struct {
	Filenames       []string `json:"filenames"`
	ProductName     string   `json:"product_name"`
	SceneNumber     int      `json:"scene_number"`
	TotalScenes     int      `json:"total_scenes"`
	Duration        int      `json:"duration"`
	PreviousPrompts []string `json:"previous_prompts"`
}

// AutoPrompt asks the vision model to write a scene prompt from the
// uploaded reference images. Failures surface directly; there is no
// synthetic fallback prompt.
func (a *App) AutoPrompt(w http.ResponseWriter, r *http.Request) {
	var req autoPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if len(req.Filenames) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "filenames is required")
		return
	}
	for _, fn := range req.Filenames {
		if !a.Uploads.Exists(fn) {
			a.error(w, http.StatusBadRequest, "image_not_found", "image not found: "+fn)
			return
		}
	}

	instruction := prompt.AutoInstruction(prompt.AutoRequest{
		ProductName:     req.ProductName,
		SceneNumber:     req.SceneNumber,
		TotalScenes:     req.TotalScenes,
		Duration:        req.Duration,
		PreviousPrompts: req.PreviousPrompts,
	})
	text, err := a.Vision.Complete(r.Context(), instruction, req.Filenames)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: auto prompt failed")
		a.error(w, http.StatusBadGateway, "prompt_generation_failed", err.Error())
		return
	}
	a.json(w, http.StatusOK, map[string]string{"prompt": text})
}
