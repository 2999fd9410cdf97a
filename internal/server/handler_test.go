package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amestrin/crosstune/internal/auth"
	"github.com/amestrin/crosstune/internal/convert"
	"github.com/amestrin/crosstune/internal/match"
	"github.com/amestrin/crosstune/internal/models"
	"github.com/amestrin/crosstune/internal/session"
	th "github.com/amestrin/crosstune/internal/testing"
	"github.com/labstack/echo/v4"
)

type testEnv struct {
	handler  *Handler
	registry *session.Registry
	source   *th.StubPlatformSession
	target   *th.StubPlatformSession
	library  *th.StubLibrary
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	source := &th.StubPlatformSession{
		Platform: models.PlatformSpotify,
		URL:      "https://accounts.spotify.com/authorize?state=abc",
		Report:   auth.StatusReport{Status: auth.StatusPending},
		Blob:     []byte(`{"access_token":"tok"}`),
	}
	target := &th.StubPlatformSession{
		Platform: models.PlatformYTMusic,
		URL:      "https://music.youtube.com/login",
		Report:   auth.StatusReport{Status: auth.StatusPending},
		Blob:     []byte(`{"cookie":"headers"}`),
	}

	snapshot := models.NewLibrarySnapshot(models.PlatformSpotify)
	snapshot.Tracks["sp1"] = models.Track{SourceID: "sp1", Title: "Hey Jude", Artist: "The Beatles", Source: models.PlatformSpotify}
	snapshot.Tracks["sp2"] = models.Track{SourceID: "sp2", Title: "Yesterday", Artist: "The Beatles", Source: models.PlatformSpotify}

	library := &th.StubLibrary{
		Snapshot:    snapshot,
		PlaylistURL: "https://music.youtube.com/playlist?list=PL123",
	}

	candidates := &th.StubCandidates{ByQuery: map[string][]models.Track{
		"Hey Jude The Beatles": {{SourceID: "yt1", Title: "Hey Jude", Artist: "The Beatles", Source: models.PlatformYTMusic}},
	}}

	registry := session.NewRegistry(session.Deps{
		Launcher: &th.StubLauncher{Sessions: map[models.Platform]*th.StubPlatformSession{
			models.PlatformSpotify: source,
			models.PlatformYTMusic: target,
		}},
		Library:   library,
		Matcher:   match.NewEngine(candidates),
		Assembler: convert.NewAssembler(),
	})

	return &testEnv{
		handler:  NewHandler(registry, nil),
		registry: registry,
		source:   source,
		target:   target,
		library:  library,
	}
}

func (env *testEnv) request(t *testing.T, method, path string, body any, paramID string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	e := echo.New()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if paramID != "" {
		c.SetParamNames("id")
		c.SetParamValues(paramID)
	}

	var err error
	switch {
	case path == "/convert/start":
		err = env.handler.StartConversion(c)
	case path == "/health":
		err = env.handler.Health(c)
	case path == "/status":
		err = env.handler.ServiceStatus(c)
	default:
		t.Fatalf("unmapped path %s", path)
	}
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

// call invokes a session-scoped handler directly.
func (env *testEnv) call(t *testing.T, fn echo.HandlerFunc, method, id string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	e := echo.New()
	req := httptest.NewRequest(method, "/convert/"+id, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)

	if err := fn(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func (env *testEnv) startSession(t *testing.T) string {
	t.Helper()
	rec := env.request(t, http.MethodPost, "/convert/start", StartRequest{
		Source: models.PlatformSpotify,
		Target: models.PlatformYTMusic,
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	id, _ := body["session_id"].(string)
	if id == "" {
		t.Fatal("missing session_id")
	}
	return id
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet, "/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestStartConversion(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.request(t, http.MethodPost, "/convert/start", StartRequest{
			Source: models.PlatformSpotify,
			Target: models.PlatformYTMusic,
		}, "")

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decode(t, rec)
		if body["auth_url"] != env.source.URL {
			t.Errorf("expected source auth URL, got %v", body["auth_url"])
		}
		if body["state"] != "source_auth_pending" {
			t.Errorf("expected source_auth_pending, got %v", body["state"])
		}
	})

	t.Run("same platform is a bad request", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.request(t, http.MethodPost, "/convert/start", StartRequest{
			Source: models.PlatformSpotify,
			Target: models.PlatformSpotify,
		}, "")

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unsupported platform is a bad request", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.request(t, http.MethodPost, "/convert/start", StartRequest{
			Source: "tidal",
			Target: models.PlatformYTMusic,
		}, "")

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestCompleteAuth(t *testing.T) {
	t.Run("pending login conflicts", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.startSession(t)

		rec := env.call(t, env.handler.CompleteAuth, http.MethodPost, id, CompleteAuthRequest{Platform: models.PlatformSpotify})
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("wrong platform conflicts", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.startSession(t)
		env.source.SetStatus(auth.StatusCompleted, "done")

		rec := env.call(t, env.handler.CompleteAuth, http.MethodPost, id, CompleteAuthRequest{Platform: models.PlatformYTMusic})
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("source completion chains target URL", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.startSession(t)
		env.source.SetStatus(auth.StatusCompleted, "done")

		rec := env.call(t, env.handler.CompleteAuth, http.MethodPost, id, CompleteAuthRequest{Platform: models.PlatformSpotify})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decode(t, rec)
		if body["auth_url"] != env.target.URL {
			t.Errorf("expected chained target URL, got %v", body["auth_url"])
		}
	})

	t.Run("unknown session is 404", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.call(t, env.handler.CompleteAuth, http.MethodPost, "nope", CompleteAuthRequest{Platform: models.PlatformSpotify})
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

// drive completes both handshakes and the fetch/match phases via handlers.
func (env *testEnv) drive(t *testing.T, id string) {
	t.Helper()

	env.source.SetStatus(auth.StatusCompleted, "done")
	rec := env.call(t, env.handler.CompleteAuth, http.MethodPost, id, CompleteAuthRequest{Platform: models.PlatformSpotify})
	if rec.Code != http.StatusOK {
		t.Fatalf("source complete failed: %d %s", rec.Code, rec.Body.String())
	}

	env.target.SetStatus(auth.StatusCompleted, "done")
	rec = env.call(t, env.handler.CompleteAuth, http.MethodPost, id, CompleteAuthRequest{Platform: models.PlatformYTMusic})
	if rec.Code != http.StatusOK {
		t.Fatalf("target complete failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.call(t, env.handler.FetchLibrary, http.MethodPost, id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("fetch failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.call(t, env.handler.MatchTracks, http.MethodPost, id, MatchRequest{TrackIDs: []string{"sp1", "sp2", "ghost"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("match failed: %d %s", rec.Code, rec.Body.String())
	}
}

func TestConversionFlow(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)
	env.drive(t, id)

	t.Run("match reports skipped ids", func(t *testing.T) {
		rec := env.call(t, env.handler.SessionStatus, http.MethodGet, id, nil)
		body := decode(t, rec)
		if body["skipped_tracks"] != float64(1) {
			t.Errorf("expected 1 skipped, got %v", body["skipped_tracks"])
		}
		if body["state"] != "matching_done" {
			t.Errorf("expected matching_done, got %v", body["state"])
		}
	})

	t.Run("correct unknown track is 404", func(t *testing.T) {
		rec := env.call(t, env.handler.CorrectMatch, http.MethodPost, id, CorrectRequest{TrackID: "ghost", Title: "x", Artist: "y"})
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("correct without track id is 400", func(t *testing.T) {
		rec := env.call(t, env.handler.CorrectMatch, http.MethodPost, id, CorrectRequest{Title: "x"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("confirm creates the playlist", func(t *testing.T) {
		rec := env.call(t, env.handler.ConfirmConversion, http.MethodPost, id, ConfirmRequest{TrackIDs: []string{"sp1"}})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decode(t, rec)
		if body["playlist_url"] != env.library.PlaylistURL {
			t.Errorf("unexpected playlist URL %v", body["playlist_url"])
		}
	})

	t.Run("fetch after confirm conflicts", func(t *testing.T) {
		rec := env.call(t, env.handler.FetchLibrary, http.MethodPost, id, nil)
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})
}

func TestCancelConversion(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	for i := 0; i < 2; i++ {
		rec := env.call(t, env.handler.CancelConversion, http.MethodPost, id, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("cancel call %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestSessionStatusUnknown(t *testing.T) {
	env := newTestEnv(t)
	rec := env.call(t, env.handler.SessionStatus, http.MethodGet, "nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestServiceStatus(t *testing.T) {
	env := newTestEnv(t)
	env.startSession(t)

	rec := env.request(t, http.MethodGet, "/status", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["active_sessions"] != float64(1) {
		t.Errorf("expected 1 active session, got %v", body["active_sessions"])
	}
}
