package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mkor14/veracity/internal/game"
	"github.com/mkor14/veracity/internal/models"
)

// GameService defines what the gateway needs from the game service.
type GameService interface {
	CreateGame(req game.CreateGameRequest) (*models.Game, error)
	StartGame(id uuid.UUID) error
	SetVerdict(id, teamID uuid.UUID, v models.Verdict) error
	SetConfidence(id, teamID uuid.UUID, level int) error
	Submit(id, teamID uuid.UUID) error
	FocusLost(id, teamID uuid.UUID) error
	NextRound(id uuid.UUID) error
	Snapshot(id uuid.UUID) (*game.Snapshot, error)
	Games() []models.Game
	ResolveCode(code string) (uuid.UUID, error)
}

// Dispatcher routes client commands from websocket connections into the game
// service. Commands are rate limited per client; focus_lost is exempt so a
// flapping tab cannot be hidden behind the limiter.
type Dispatcher struct {
	games   GameService
	limiter *CommandLimiter
	state   *CachedStateProvider
}

// NewDispatcher builds a dispatcher over the game service. A state provider
// may be nil; when set, its cache is invalidated after each applied command.
func NewDispatcher(games GameService, limiter *CommandLimiter, state *CachedStateProvider) *Dispatcher {
	return &Dispatcher{games: games, limiter: limiter, state: state}
}

// Handle parses one raw client message and applies it. Every command gets a
// reply: an ack on success, an error result otherwise.
func (d *Dispatcher) Handle(c *Connection, raw []byte) {
	var cmd ClientCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		log.Debug().
			Err(err).
			Str("connection_id", c.ID).
			Msg("unparseable client command")
		c.reply(errorResult("", "invalid command payload"))
		return
	}
	if cmd.Type == "" {
		c.reply(errorResult("", "command type is required"))
		return
	}

	if cmd.Type != CmdFocusLost && !d.limiter.Allow(c.ClientID) {
		log.Warn().
			Str("client_id", c.ClientID).
			Str("command", cmd.Type).
			Msg("client command rate limited")
		c.reply(errorResult(cmd.Type, "too many commands"))
		return
	}

	if err := d.apply(c, cmd); err != nil {
		c.reply(errorResult(cmd.Type, err.Error()))
		return
	}
	if d.state != nil {
		d.state.Invalidate(c.GameID)
	}
	c.reply(ackResult(cmd.Type))
}

func (d *Dispatcher) apply(c *Connection, cmd ClientCommand) error {
	switch cmd.Type {
	case CmdSetVerdict:
		teamID, err := parseTeamID(cmd.TeamID)
		if err != nil {
			return err
		}
		return d.games.SetVerdict(c.GameID, teamID, models.Verdict(strings.ToUpper(strings.TrimSpace(cmd.Verdict))))

	case CmdSetConfidence:
		teamID, err := parseTeamID(cmd.TeamID)
		if err != nil {
			return err
		}
		return d.games.SetConfidence(c.GameID, teamID, cmd.Confidence)

	case CmdSubmit:
		teamID, err := parseTeamID(cmd.TeamID)
		if err != nil {
			return err
		}
		return d.games.Submit(c.GameID, teamID)

	case CmdFocusLost:
		teamID, err := parseTeamID(cmd.TeamID)
		if err != nil {
			return err
		}
		return d.games.FocusLost(c.GameID, teamID)

	case CmdNextRound:
		return d.games.NextRound(c.GameID)

	case CmdStartGame:
		return d.games.StartGame(c.GameID)

	default:
		return fmt.Errorf("unknown command type: %s", cmd.Type)
	}
}

func parseTeamID(raw string) (uuid.UUID, error) {
	teamID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid team_id: %w", err)
	}
	return teamID, nil
}
