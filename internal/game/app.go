package game

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mkor14/veracity/internal/catalog"
	"github.com/mkor14/veracity/internal/engine"
	"github.com/mkor14/veracity/internal/events"
	"github.com/mkor14/veracity/internal/models"
)

const (
	MinTeams         = 2
	MaxTeams         = 12
	MinRoundsPerTeam = 1
	MaxRoundsPerTeam = 10

	joinCodeLength = 6
	eventQueueSize = 256
	publishTimeout = 5 * time.Second
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrNotYourTurn  = errors.New("not this team's turn")
)

// CreateGameRequest carries the host's lobby setup.
type CreateGameRequest struct {
	Name          string              `json:"name"`
	TeamNames     []string            `json:"team_names"`
	RoundsPerTeam int                 `json:"rounds_per_team"`
	Difficulties  []models.Difficulty `json:"difficulties,omitempty"`
}

// App hosts live games. Each game gets its own round controller; the app
// sequences rounds across teams, accumulates scores and emits game events.
type App struct {
	cfg   engine.Config
	cat   *catalog.Catalog
	pub   events.Publisher
	clock clockwork.Clock

	mu    sync.RWMutex
	games map[uuid.UUID]*liveGame
	codes map[string]uuid.UUID

	rngMu sync.Mutex
	rng   *rand.Rand

	eventCh chan events.GameEvent
	quit    chan struct{}
	done    chan struct{}
}

// liveGame pairs a game's state with its round controller. The mutex guards
// the game struct, the selected claims and the rotation; it is never held
// across controller calls that complete a round, because those deliver
// outcome hooks synchronously and the hooks take this mutex.
type liveGame struct {
	mu         sync.Mutex
	game       models.Game
	controller *engine.Controller
	claims     []models.Claim // play order, one per round
}

// NewApp creates the game service. Pass a clockwork.FakeClock in tests to
// drive round timing deterministically.
func NewApp(cfg engine.Config, cat *catalog.Catalog, pub events.Publisher, clock clockwork.Clock) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	a := &App{
		cfg:     cfg,
		cat:     cat,
		pub:     pub,
		clock:   clock,
		games:   make(map[uuid.UUID]*liveGame),
		codes:   make(map[string]uuid.UUID),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		eventCh: make(chan events.GameEvent, eventQueueSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go a.dispatchEvents()
	return a
}

// Close stops the event dispatcher after draining queued events.
func (a *App) Close() {
	close(a.quit)
	<-a.done
}

// CreateGame validates the lobby setup and registers a new game.
func (a *App) CreateGame(req CreateGameRequest) (*models.Game, error) {
	if err := a.validateCreateGameRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	now := a.clock.Now().UTC()
	teams := make([]models.Team, 0, len(req.TeamNames))
	for _, name := range req.TeamNames {
		teams = append(teams, models.Team{
			ID:   uuid.New(),
			Name: strings.TrimSpace(name),
		})
	}

	g := models.Game{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(req.Name),
		Status:      models.GameStatusLobby,
		Settings:    models.GameSettings{RoundsPerTeam: req.RoundsPerTeam, Difficulties: req.Difficulties},
		Teams:       teams,
		TotalRounds: req.RoundsPerTeam * len(teams),
		CreatedAt:   now,
	}

	lg := &liveGame{game: g}
	lg.controller = engine.NewController(a.cfg, engine.Hooks{
		OnTick:    func(remaining int) { a.onTick(lg, remaining) },
		OnWarn:    func(violations int) { a.onWarn(lg, violations) },
		OnOutcome: func(o models.RoundOutcome) { a.onOutcome(lg, o) },
	}, a.clock)

	a.mu.Lock()
	for {
		code, err := randomJoinCode(joinCodeLength)
		if err != nil {
			a.mu.Unlock()
			return nil, fmt.Errorf("failed to generate join code: %w", err)
		}
		if _, taken := a.codes[code]; !taken {
			lg.game.JoinCode = code
			break
		}
	}
	a.games[lg.game.ID] = lg
	a.codes[lg.game.JoinCode] = lg.game.ID
	a.mu.Unlock()

	snap := lg.game
	a.emit(snap.ID, events.TypeGameCreated, events.GameCreatedData{Game: snap})
	log.Info().
		Str("game_id", snap.ID.String()).
		Str("join_code", snap.JoinCode).
		Int("teams", len(snap.Teams)).
		Int("total_rounds", snap.TotalRounds).
		Msg("created game")
	return &snap, nil
}

// StartGame selects claims for every round and presents the first one.
func (a *App) StartGame(id uuid.UUID) error {
	g, err := a.lookup(id)
	if err != nil {
		return err
	}

	g.mu.Lock()
	if g.game.Status != models.GameStatusLobby {
		g.mu.Unlock()
		return fmt.Errorf("game %s already started", id)
	}
	need := g.game.TotalRounds
	diffs := g.game.Settings.Difficulties
	g.mu.Unlock()

	claims, err := a.pickClaims(need, diffs)
	if err != nil {
		return fmt.Errorf("failed to select claims: %w", err)
	}

	g.mu.Lock()
	if g.game.Status != models.GameStatusLobby {
		g.mu.Unlock()
		return fmt.Errorf("game %s already started", id)
	}
	now := a.clock.Now().UTC()
	g.game.Status = models.GameStatusInProgress
	g.game.StartedAt = &now
	g.claims = claims

	started := g.cloneLocked()
	round, err := a.startRoundLocked(g)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	g.mu.Unlock()

	a.emit(id, events.TypeGameStarted, events.GameStartedData{Game: started})
	a.emit(id, events.TypeRoundStarted, round)
	log.Info().
		Str("game_id", id.String()).
		Int("total_rounds", need).
		Msg("started game")
	return nil
}

// Games lists all games, oldest first.
func (a *App) Games() []models.Game {
	a.mu.RLock()
	live := make([]*liveGame, 0, len(a.games))
	for _, g := range a.games {
		live = append(live, g)
	}
	a.mu.RUnlock()

	out := make([]models.Game, 0, len(live))
	for _, g := range live {
		g.mu.Lock()
		out = append(out, g.cloneLocked())
		g.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ResolveCode maps a join code to its game ID.
func (a *App) ResolveCode(code string) (uuid.UUID, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	id, ok := a.codes[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: code %s", ErrGameNotFound, code)
	}
	return id, nil
}

func (a *App) lookup(id uuid.UUID) (*liveGame, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	g, ok := a.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return g, nil
}

func (a *App) pickClaims(n int, difficulties []models.Difficulty) ([]models.Claim, error) {
	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	return a.cat.Pick(n, difficulties, a.rng)
}

func (a *App) validateCreateGameRequest(req CreateGameRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(req.TeamNames) < MinTeams || len(req.TeamNames) > MaxTeams {
		return fmt.Errorf("team count must be between %d and %d, got %d", MinTeams, MaxTeams, len(req.TeamNames))
	}
	seen := make(map[string]bool, len(req.TeamNames))
	for _, name := range req.TeamNames {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return fmt.Errorf("team names must not be empty")
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			return fmt.Errorf("duplicate team name: %s", trimmed)
		}
		seen[key] = true
	}
	if req.RoundsPerTeam < MinRoundsPerTeam || req.RoundsPerTeam > MaxRoundsPerTeam {
		return fmt.Errorf("rounds per team must be between %d and %d, got %d", MinRoundsPerTeam, MaxRoundsPerTeam, req.RoundsPerTeam)
	}
	for _, d := range req.Difficulties {
		if !d.Valid() {
			return fmt.Errorf("invalid difficulty: %s", d)
		}
		if _, ok := a.cfg.Difficulty[d]; !ok {
			return fmt.Errorf("no timing config for difficulty: %s", d)
		}
	}
	return nil
}

// emit queues an event for publication. The queue never blocks callers; if
// it is full the event is dropped with a warning, because round resolution
// must not wait on the event backbone.
func (a *App) emit(gameID uuid.UUID, t events.EventType, payload any) {
	ev, err := events.NewGameEvent(gameID, t, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(t)).Msg("failed to build event")
		return
	}
	select {
	case a.eventCh <- ev:
	default:
		log.Warn().
			Str("event_type", string(t)).
			Str("game_id", gameID.String()).
			Msg("event queue full, dropping event")
	}
}

func (a *App) dispatchEvents() {
	defer close(a.done)
	for {
		select {
		case ev := <-a.eventCh:
			a.publish(ev)
		case <-a.quit:
			for {
				select {
				case ev := <-a.eventCh:
					a.publish(ev)
				default:
					return
				}
			}
		}
	}
}

func (a *App) publish(ev events.GameEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := a.pub.Publish(ctx, ev); err != nil {
		log.Error().
			Err(err).
			Str("event_type", string(ev.Type)).
			Str("game_id", ev.GameID.String()).
			Msg("failed to publish event")
	}
}

// cloneLocked deep-copies the game so callers can release the lock before
// handing the snapshot out.
func (g *liveGame) cloneLocked() models.Game {
	out := g.game
	out.Teams = append([]models.Team(nil), g.game.Teams...)
	out.Settings.Difficulties = append([]models.Difficulty(nil), g.game.Settings.Difficulties...)
	return out
}

// randomJoinCode draws from an alphabet without the easily confused
// characters (0/O, 1/I), since students type these off a projector.
func randomJoinCode(n int) (string, error) {
	const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const max = byte(255 - (256 % len(letters)))

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)

	for len(out) < n {
		if _, err := crand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b <= max {
				out = append(out, letters[int(b)%len(letters)])
				if len(out) == n {
					return string(out), nil
				}
			}
		}
	}
	return string(out), nil
}
