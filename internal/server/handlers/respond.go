package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/limitlens/limitlens/internal/errors"
)

// RespondWithError writes err as the flat error body. Nothing this server
// answers may be cached, errors included.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Cache-Control", "no-store")
	apperrors.RespondWithError(w, r, err)
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	RespondWithError(w, r, err)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
