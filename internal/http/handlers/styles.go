package handlers

import "net/http"

type styleView struct {
	Key        string  `json:"key"`
	Name       string  `json:"name"`
	Model      string  `json:"model"`
	BasePrompt string  `json:"base_prompt"`
	Price      float64 `json:"price"`
	Reveal     bool    `json:"reveal"`
}

// Styles lists the generation presets with their per-video prices.
func (a *App) Styles(w http.ResponseWriter, r *http.Request) {
	catalog := a.Registry.List()
	items := make([]styleView, 0, len(catalog))
	for _, s := range catalog {
		items = append(items, styleView{
			Key:        s.Key,
			Name:       s.Name,
			Model:      s.ModelID,
			BasePrompt: s.BasePrompt,
			Price:      s.Price,
			Reveal:     s.Reveal,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
