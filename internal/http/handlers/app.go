package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"promovid/internal/domain"
	"promovid/internal/infra"
	"promovid/internal/orchestrator"
	"promovid/internal/storage"
	"promovid/internal/styles"
)

// PromptGenerator is the vision model behind the auto-prompt endpoint.
type PromptGenerator interface {
	Complete(ctx context.Context, instruction string, imageRefs []string) (string, error)
}

// App bundles the handler dependencies.
type App struct {
	Logger         infra.Logger
	Orch           *orchestrator.Orchestrator
	Registry       *styles.Registry
	Uploads        *storage.FileStore
	Videos         *storage.FileStore
	Vision         PromptGenerator
	PublicBaseURL  string
	ProviderKeySet bool
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, msg string) {
	a.json(w, code, map[string]string{"error": slug, "message": msg})
}

// domainError maps sentinel errors onto HTTP responses. Anything after job
// creation never reaches this path; those failures live on the job record.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrImageNotFound):
		a.error(w, http.StatusBadRequest, "image_not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidRequest):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrUnknownStyle):
		a.error(w, http.StatusBadRequest, "unknown_style", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrPromptGeneration):
		a.error(w, http.StatusBadGateway, "prompt_generation_failed", err.Error())
	default:
		a.Logger.Error().Err(err).Msg("handlers: unexpected error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
