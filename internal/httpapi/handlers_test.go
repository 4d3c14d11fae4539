package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/infect-client/internal/controller"
	"github.com/DoyleJ11/infect-client/internal/game"
)

type fakeSession struct {
	decoded   []string
	joined    []string
	newGames  int
	leaves    int
	cameraErr error
	view      controller.View
	err       error
}

func (f *fakeSession) Decode(text string) error {
	f.decoded = append(f.decoded, text)
	return f.err
}

func (f *fakeSession) Join(id string) (string, error) {
	if id == "" {
		id = "gen123"
	}
	f.joined = append(f.joined, id)
	return id, f.err
}

func (f *fakeSession) NewGame() error {
	f.newGames++
	return f.err
}

func (f *fakeSession) Leave() error {
	f.leaves++
	return f.err
}

func (f *fakeSession) ReportCameraError(err error) error {
	f.cameraErr = err
	return f.err
}

func (f *fakeSession) View() (controller.View, error) { return f.view, f.err }

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	s := &fakeSession{view: controller.View{
		Status:   controller.StatusJoined,
		Identity: "abc",
		GameID:   1,
		Player:   &game.PlayerRow{UserID: "abc", Team: game.TeamHumans, Score: 2},
	}}
	h := SetupRoutes(s, nil)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "").Code)

	rec := do(t, h, http.MethodGet, "/view", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var v map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, "joined", v["status"])
	assert.Equal(t, "abc", v["identity"])

	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/decode", `{"text":"xyz"}`).Code)
	assert.Equal(t, []string{"xyz"}, s.decoded)

	rec = do(t, h, http.MethodPost, "/join", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":"gen123"}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/join", `{"userId":"typed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"gen123", "typed"}, s.joined)

	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/new-game", "").Code)
	assert.Equal(t, 1, s.newGames)
	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/leave", "").Code)
	assert.Equal(t, 1, s.leaves)

	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/camera-error", `{"error":"denied"}`).Code)
	require.Error(t, s.cameraErr)
	assert.Equal(t, "denied", s.cameraErr.Error())
	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/camera-error", `{"error":""}`).Code)
	assert.NoError(t, s.cameraErr)
}

func TestRoutes_Errors(t *testing.T) {
	s := &fakeSession{}
	h := SetupRoutes(s, nil)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/decode", `nope`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/decode", "").Code)

	s.err = controller.ErrClosed
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/view", "").Code)

	s.err = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, do(t, h, http.MethodPost, "/leave", "").Code)
}

func TestRoutes_OversizedBodyRejected(t *testing.T) {
	s := &fakeSession{}
	h := SetupRoutes(s, nil)

	body := `{"text":"` + strings.Repeat("a", 2*maxBody) + `"}`
	assert.Equal(t, http.StatusRequestEntityTooLarge, do(t, h, http.MethodPost, "/decode", body).Code)
	assert.Empty(t, s.decoded)

	body = `{"userId":"` + strings.Repeat("a", 2*maxBody) + `"}`
	assert.Equal(t, http.StatusRequestEntityTooLarge, do(t, h, http.MethodPost, "/join", body).Code)
	assert.Empty(t, s.joined)
}
