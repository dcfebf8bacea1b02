package handlers

import (
	"net/http"

	"github.com/vhdlcheck/vhdlcheck/internal/models"
)

// ModelsResponse lists the selectable models.
type ModelsResponse struct {
	Success bool           `json:"success"`
	Models  []models.Model `json:"models"`
	Default string         `json:"default"`
}

// ModelsHandler handles GET /api/models.
func ModelsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ModelsResponse{
		Success: true,
		Models:  models.All(),
		Default: models.Default().ID,
	})
}
