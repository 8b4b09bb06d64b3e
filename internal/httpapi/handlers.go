package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/farkle-backend/internal/hub"
)

func RoomInfo(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, err := h.Get(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, hub.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "room not found"})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "unavailable"})
			return
		}

		view, err := rm.State(r.Context())
		if err != nil {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "room not found"})
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
