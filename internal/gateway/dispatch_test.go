package gateway

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mkor14/veracity/internal/game"
	"github.com/mkor14/veracity/internal/models"
)

// fakeGameService records calls and returns canned results.
type fakeGameService struct {
	mu    sync.Mutex
	calls []string

	lastTeamID     uuid.UUID
	lastVerdict    models.Verdict
	lastConfidence int

	err      error
	created  *models.Game
	snapshot *game.Snapshot
	list     []models.Game
	resolved uuid.UUID
}

func (f *fakeGameService) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeGameService) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeGameService) CreateGame(req game.CreateGameRequest) (*models.Game, error) {
	f.record("CreateGame")
	if f.err != nil {
		return nil, f.err
	}
	return f.created, nil
}

func (f *fakeGameService) StartGame(id uuid.UUID) error {
	f.record("StartGame")
	return f.err
}

func (f *fakeGameService) SetVerdict(id, teamID uuid.UUID, v models.Verdict) error {
	f.record("SetVerdict")
	f.mu.Lock()
	f.lastTeamID = teamID
	f.lastVerdict = v
	f.mu.Unlock()
	return f.err
}

func (f *fakeGameService) SetConfidence(id, teamID uuid.UUID, level int) error {
	f.record("SetConfidence")
	f.mu.Lock()
	f.lastTeamID = teamID
	f.lastConfidence = level
	f.mu.Unlock()
	return f.err
}

func (f *fakeGameService) Submit(id, teamID uuid.UUID) error {
	f.record("Submit")
	return f.err
}

func (f *fakeGameService) FocusLost(id, teamID uuid.UUID) error {
	f.record("FocusLost")
	return f.err
}

func (f *fakeGameService) NextRound(id uuid.UUID) error {
	f.record("NextRound")
	return f.err
}

func (f *fakeGameService) Snapshot(id uuid.UUID) (*game.Snapshot, error) {
	f.record("Snapshot")
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

func (f *fakeGameService) Games() []models.Game {
	f.record("Games")
	return f.list
}

func (f *fakeGameService) ResolveCode(code string) (uuid.UUID, error) {
	f.record("ResolveCode")
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return f.resolved, nil
}

func testConnection(gameID uuid.UUID) *Connection {
	return &Connection{
		ID:       uuid.New().String(),
		ClientID: "client-1",
		GameID:   gameID,
		send:     make(chan []byte, 16),
	}
}

func readResult(t *testing.T, c *Connection) CommandResult {
	t.Helper()
	select {
	case data := <-c.send:
		var res CommandResult
		if err := json.Unmarshal(data, &res); err != nil {
			t.Fatalf("unmarshal reply %s: %v", data, err)
		}
		return res
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for command reply")
		return CommandResult{}
	}
}

func TestDispatcherRoutesCommands(t *testing.T) {
	gameID := uuid.New()
	teamID := uuid.New()

	tests := []struct {
		name     string
		command  ClientCommand
		wantCall string
	}{
		{"set_verdict", ClientCommand{Type: CmdSetVerdict, TeamID: teamID.String(), Verdict: "true"}, "SetVerdict"},
		{"set_confidence", ClientCommand{Type: CmdSetConfidence, TeamID: teamID.String(), Confidence: 3}, "SetConfidence"},
		{"submit", ClientCommand{Type: CmdSubmit, TeamID: teamID.String()}, "Submit"},
		{"focus_lost", ClientCommand{Type: CmdFocusLost, TeamID: teamID.String()}, "FocusLost"},
		{"next_round", ClientCommand{Type: CmdNextRound}, "NextRound"},
		{"start_game", ClientCommand{Type: CmdStartGame}, "StartGame"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeGameService{}
			d := NewDispatcher(svc, NewCommandLimiter(100, 100), nil)
			conn := testConnection(gameID)

			raw, _ := json.Marshal(tt.command)
			d.Handle(conn, raw)

			res := readResult(t, conn)
			if res.Type != "ack" {
				t.Fatalf("reply = %+v, want ack", res)
			}
			if res.Command != tt.command.Type {
				t.Errorf("reply command = %q, want %q", res.Command, tt.command.Type)
			}
			calls := svc.callList()
			if len(calls) != 1 || calls[0] != tt.wantCall {
				t.Errorf("service calls = %v, want [%s]", calls, tt.wantCall)
			}
		})
	}
}

func TestDispatcherNormalizesVerdict(t *testing.T) {
	svc := &fakeGameService{}
	d := NewDispatcher(svc, NewCommandLimiter(100, 100), nil)
	conn := testConnection(uuid.New())
	teamID := uuid.New()

	raw, _ := json.Marshal(ClientCommand{Type: CmdSetVerdict, TeamID: teamID.String(), Verdict: " mixed "})
	d.Handle(conn, raw)
	readResult(t, conn)

	if svc.lastVerdict != models.VerdictMixed {
		t.Errorf("verdict = %q, want %q", svc.lastVerdict, models.VerdictMixed)
	}
	if svc.lastTeamID != teamID {
		t.Errorf("teamID = %s, want %s", svc.lastTeamID, teamID)
	}
}

func TestDispatcherRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"invalid json", `{not json`},
		{"missing type", `{"team_id":"x"}`},
		{"unknown type", `{"type":"dance"}`},
		{"bad team id", `{"type":"submit","team_id":"not-a-uuid"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeGameService{}
			d := NewDispatcher(svc, NewCommandLimiter(100, 100), nil)
			conn := testConnection(uuid.New())

			d.Handle(conn, []byte(tt.raw))

			res := readResult(t, conn)
			if res.Type != "error" {
				t.Fatalf("reply = %+v, want error", res)
			}
			if calls := svc.callList(); len(calls) != 0 {
				t.Errorf("service calls = %v, want none", calls)
			}
		})
	}
}

func TestDispatcherReportsServiceErrors(t *testing.T) {
	svc := &fakeGameService{err: game.ErrNotYourTurn}
	d := NewDispatcher(svc, NewCommandLimiter(100, 100), nil)
	conn := testConnection(uuid.New())

	raw, _ := json.Marshal(ClientCommand{Type: CmdSubmit, TeamID: uuid.New().String()})
	d.Handle(conn, raw)

	res := readResult(t, conn)
	if res.Type != "error" {
		t.Fatalf("reply = %+v, want error", res)
	}
	if res.Error == "" {
		t.Error("error reply has no message")
	}
}

func TestDispatcherInvalidatesStateCache(t *testing.T) {
	gameID := uuid.New()
	src := &countingSource{snap: &game.Snapshot{Game: models.Game{ID: gameID}}}
	state := NewCachedStateProvider(src, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := state.State(gameID); err != nil {
			t.Fatalf("State() error = %v", err)
		}
	}
	if got := atomic.LoadInt64(&src.calls); got != 1 {
		t.Fatalf("snapshot source hit %d times before command, want 1", got)
	}

	svc := &fakeGameService{}
	d := NewDispatcher(svc, NewCommandLimiter(100, 100), state)
	conn := testConnection(gameID)

	raw, _ := json.Marshal(ClientCommand{Type: CmdNextRound})
	d.Handle(conn, raw)
	if res := readResult(t, conn); res.Type != "ack" {
		t.Fatalf("reply = %+v, want ack", res)
	}

	if _, err := state.State(gameID); err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if got := atomic.LoadInt64(&src.calls); got != 2 {
		t.Errorf("snapshot source hit %d times, want 2 after an applied command", got)
	}
}

func TestDispatcherRateLimitsCommands(t *testing.T) {
	svc := &fakeGameService{}
	// One command of budget, no refill worth mentioning.
	d := NewDispatcher(svc, NewCommandLimiter(0.001, 1), nil)
	conn := testConnection(uuid.New())
	teamID := uuid.New().String()

	raw, _ := json.Marshal(ClientCommand{Type: CmdSubmit, TeamID: teamID})
	d.Handle(conn, raw)
	if res := readResult(t, conn); res.Type != "ack" {
		t.Fatalf("first command reply = %+v, want ack", res)
	}

	d.Handle(conn, raw)
	if res := readResult(t, conn); res.Type != "error" {
		t.Fatalf("second command reply = %+v, want rate limit error", res)
	}

	// Integrity signals must not be throttled.
	focus, _ := json.Marshal(ClientCommand{Type: CmdFocusLost, TeamID: teamID})
	d.Handle(conn, focus)
	if res := readResult(t, conn); res.Type != "ack" {
		t.Fatalf("focus_lost reply = %+v, want ack despite exhausted budget", res)
	}

	calls := svc.callList()
	want := []string{"Submit", "FocusLost"}
	if len(calls) != len(want) || calls[0] != want[0] || calls[1] != want[1] {
		t.Errorf("service calls = %v, want %v", calls, want)
	}
}
