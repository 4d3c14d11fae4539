// Package httpapi exposes the controller to a local presentation layer: the
// renderer polls /view and the camera bridge posts decoded text to /decode.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/infect-client/internal/controller"
)

// Session is the slice of the controller the HTTP bridge drives.
type Session interface {
	Decode(text string) error
	Join(id string) (string, error)
	NewGame() error
	Leave() error
	ReportCameraError(err error) error
	View() (controller.View, error)
}

func SetupRoutes(s Session, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "httpapi"))

	r := chi.NewRouter()
	r.Get("/healthz", Healthz)
	r.Get("/view", GetView(s, log))
	r.Post("/decode", Decode(s, log))
	r.Post("/join", Join(s, log))
	r.Post("/new-game", NewGame(s, log))
	r.Post("/leave", Leave(s, log))
	r.Post("/camera-error", CameraError(s, log))
	return r
}
