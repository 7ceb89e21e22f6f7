package handlers

import (
	"net/http"
)

// ListModels returns the generation models and remaining credits advertised
// by the remote API.
func (a *App) ListModels(w http.ResponseWriter, r *http.Request) {
	gen, err := a.generator(r.Context())
	if err != nil {
		a.generationError(w, err)
		return
	}
	catalog, err := gen.ListModels(r.Context())
	if err != nil {
		a.generationError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"models":  catalog.Models,
		"credits": catalog.Credits,
	})
}
