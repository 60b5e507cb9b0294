package gateway

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Client command types accepted over the websocket.
const (
	CmdSetVerdict    = "set_verdict"
	CmdSetConfidence = "set_confidence"
	CmdSubmit        = "submit"
	CmdFocusLost     = "focus_lost"
	CmdNextRound     = "next_round"
	CmdStartGame     = "start_game"
)

// ClientCommand is the JSON shape of a command sent by a client.
type ClientCommand struct {
	Type       string `json:"type"`
	TeamID     string `json:"team_id,omitempty"`
	Verdict    string `json:"verdict,omitempty"`
	Confidence int    `json:"confidence,omitempty"`
}

// CommandResult acknowledges or rejects a client command. Game state changes
// themselves arrive as broadcast events, not in the result.
type CommandResult struct {
	Type    string `json:"type"` // "ack" or "error"
	Command string `json:"command,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ackResult(command string) []byte {
	return marshalResult(CommandResult{Type: "ack", Command: command})
}

func errorResult(command, message string) []byte {
	return marshalResult(CommandResult{Type: "error", Command: command, Error: message})
}

func marshalResult(res CommandResult) []byte {
	data, err := json.Marshal(res)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal command result")
		return []byte(`{"type":"error","error":"internal error"}`)
	}
	return data
}
