package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/DoyleJ11/infect-client/internal/controller"
)

// maxBody bounds every request body. Payloads are a few short strings.
const maxBody = 4 << 10

type decodeRequest struct {
	Text string `json:"text"`
}

type joinRequest struct {
	UserID string `json:"userId"`
}

type joinResponse struct {
	UserID string `json:"userId"`
}

type cameraErrorRequest struct {
	Error string `json:"error"`
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func GetView(s Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := s.View()
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func Decode(s Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req decodeRequest
		if !readJSON(w, r, &req) {
			return
		}
		if err := s.Decode(req.Text); err != nil {
			fail(w, log, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// Join accepts an empty body to generate an identity.
func Join(s Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req joinRequest
		if r.ContentLength != 0 && !readJSON(w, r, &req) {
			return
		}
		id, err := s.Join(req.UserID)
		if err != nil {
			fail(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, joinResponse{UserID: id})
	}
}

func NewGame(s Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.NewGame(); err != nil {
			fail(w, log, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func Leave(s Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Leave(); err != nil {
			fail(w, log, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// CameraError reports a camera failure; an empty error clears it.
func CameraError(s Session, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cameraErrorRequest
		if !readJSON(w, r, &req) {
			return
		}
		var camErr error
		if req.Error != "" {
			camErr = errors.New(req.Error)
		}
		if err := s.ReportCameraError(camErr); err != nil {
			fail(w, log, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// readJSON decodes a bounded request body into v, writing the error response
// itself when it fails.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
		return false
	}
	http.Error(w, "bad json", http.StatusBadRequest)
	return false
}

func fail(w http.ResponseWriter, log *zap.Logger, err error) {
	if errors.Is(err, controller.ErrClosed) {
		http.Error(w, "session closed", http.StatusServiceUnavailable)
		return
	}
	log.Error("request failed", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
