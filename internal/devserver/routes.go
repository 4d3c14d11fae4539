package devserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func SetupRoutes(rm *Room, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/ws", Handler(rm, log))
	r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
		if !rm.Post(Reset{}) {
			http.Error(w, "room closed", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
	r.Get("/state", func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan View, 1)
		if !rm.Post(GetState{Reply: reply}) {
			http.Error(w, "room closed", http.StatusServiceUnavailable)
			return
		}
		select {
		case v := <-reply:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(v.State)
		case <-time.After(2 * time.Second):
			http.Error(w, "room busy", http.StatusServiceUnavailable)
		}
	})
	return r
}
