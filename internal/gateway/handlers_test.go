package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mkor14/veracity/internal/game"
	"github.com/mkor14/veracity/internal/models"
)

func testMux(svc GameService, ttl time.Duration) *http.ServeMux {
	state := NewCachedStateProvider(svc, ttl)
	h := NewHandlers(svc, state, "http://localhost:8080")
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func TestHandleCreateGame(t *testing.T) {
	created := &models.Game{ID: uuid.New(), Name: "Period 3", JoinCode: "ABC234", Status: models.GameStatusLobby}
	svc := &fakeGameService{created: created}
	mux := testMux(svc, time.Second)

	body, _ := json.Marshal(game.CreateGameRequest{Name: "Period 3", TeamNames: []string{"Red", "Blue"}, RoundsPerTeam: 2})
	req := httptest.NewRequest(http.MethodPost, "/api/games", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body)
	}
	var got models.Game
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.ID != created.ID || got.JoinCode != created.JoinCode {
		t.Errorf("response game = %+v, want %+v", got, created)
	}
}

func TestHandleCreateGameBadBody(t *testing.T) {
	svc := &fakeGameService{}
	mux := testMux(svc, time.Second)

	req := httptest.NewRequest(http.MethodPost, "/api/games", strings.NewReader("{oops"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if calls := svc.callList(); len(calls) != 0 {
		t.Errorf("service calls = %v, want none", calls)
	}
}

func TestHandleListGames(t *testing.T) {
	svc := &fakeGameService{list: []models.Game{{ID: uuid.New()}, {ID: uuid.New()}}}
	mux := testMux(svc, time.Second)

	req := httptest.NewRequest(http.MethodGet, "/api/games", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got []models.Game
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("listed %d games, want 2", len(got))
	}
}

// countingSource counts snapshot reads so cache hits are observable.
type countingSource struct {
	calls int64
	snap  *game.Snapshot
}

func (c *countingSource) Snapshot(id uuid.UUID) (*game.Snapshot, error) {
	atomic.AddInt64(&c.calls, 1)
	return c.snap, nil
}

func TestHandleGameStateCaches(t *testing.T) {
	gameID := uuid.New()
	src := &countingSource{snap: &game.Snapshot{Game: models.Game{ID: gameID, Status: models.GameStatusLobby}}}
	state := NewCachedStateProvider(src, time.Minute)
	svc := &fakeGameService{}
	h := NewHandlers(svc, state, "http://localhost:8080")
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/games/"+gameID.String()+"/state", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
		var snap game.Snapshot
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			t.Fatalf("unmarshal snapshot: %v", err)
		}
		if snap.Game.ID != gameID {
			t.Errorf("snapshot game = %s, want %s", snap.Game.ID, gameID)
		}
	}

	if got := atomic.LoadInt64(&src.calls); got != 1 {
		t.Errorf("snapshot source hit %d times, want 1 with warm cache", got)
	}
}

func TestHandleGameStateNotFound(t *testing.T) {
	svc := &fakeGameService{err: game.ErrGameNotFound}
	mux := testMux(svc, time.Second)

	req := httptest.NewRequest(http.MethodGet, "/api/games/"+uuid.New().String()+"/state", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleGameStateBadID(t *testing.T) {
	svc := &fakeGameService{}
	mux := testMux(svc, time.Second)

	req := httptest.NewRequest(http.MethodGet, "/api/games/not-a-uuid/state", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleJoin(t *testing.T) {
	gameID := uuid.New()
	svc := &fakeGameService{resolved: gameID}
	mux := testMux(svc, time.Second)

	req := httptest.NewRequest(http.MethodGet, "/api/join?code=ABC234", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["game_id"] != gameID.String() {
		t.Errorf("game_id = %q, want %q", body["game_id"], gameID)
	}
}

func TestHandleJoinUnknownCode(t *testing.T) {
	svc := &fakeGameService{err: game.ErrGameNotFound}
	mux := testMux(svc, time.Second)

	req := httptest.NewRequest(http.MethodGet, "/api/join?code=NOSUCH", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleJoinQR(t *testing.T) {
	gameID := uuid.New()
	svc := &fakeGameService{snapshot: &game.Snapshot{Game: models.Game{ID: gameID, JoinCode: "ABC234"}}}
	mux := testMux(svc, time.Second)

	req := httptest.NewRequest(http.MethodGet, "/api/games/"+gameID.String()+"/qr", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG image")
	}
}

func TestHandleHealth(t *testing.T) {
	svc := &fakeGameService{}
	mux := testMux(svc, time.Second)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestExtractGameID(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		path    string
		suffix  string
		want    uuid.UUID
		wantErr bool
	}{
		{"/api/games/" + id.String() + "/state", "/state", id, false},
		{"/api/games/" + id.String() + "/qr", "/qr", id, false},
		{"/api/games//state", "/state", uuid.Nil, true},
		{"/api/games/nope/state", "/state", uuid.Nil, true},
		{"/other/" + id.String() + "/state", "/state", uuid.Nil, true},
	}
	for _, tt := range tests {
		got, err := extractGameID(tt.path, tt.suffix)
		if (err != nil) != tt.wantErr {
			t.Errorf("extractGameID(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("extractGameID(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
