package engine

import (
	"encoding/json"
	"fmt"

	"github.com/cliffdoyle/chess-arbiter/internal/domain"
)

// snapshotVersion is bumped whenever the exported schema changes shape.
const snapshotVersion = "1.0.0"

// outputSnapshot is the versioned JSON schema an Output is serialized to.
// Kept separate from Output itself so the wire schema can evolve
// independently of the in-process struct.
type outputSnapshot struct {
	Version  string            `json:"version"`
	Pairings []pairingSnapshot `json:"pairings"`
	Warnings []Warning         `json:"warnings"`
}

type pairingSnapshot struct {
	TournamentID string  `json:"tournamentId"`
	Round        int     `json:"round"`
	Section      string  `json:"section"`
	Board        int     `json:"board"`
	WhiteID      *string `json:"whiteId,omitempty"`
	BlackID      *string `json:"blackId,omitempty"`
	ByeType      string  `json:"byeType,omitempty"`
}

// DumpOutput serializes a pairing run to a versioned JSON snapshot, for
// archival or for replaying a round's board list to a client that only
// speaks JSON.
func DumpOutput(out *Output) ([]byte, error) {
	snap := outputSnapshot{
		Version:  snapshotVersion,
		Warnings: out.Warnings,
	}
	for _, p := range out.Pairings {
		snap.Pairings = append(snap.Pairings, pairingSnapshot{
			TournamentID: p.TournamentID,
			Round:        p.Round,
			Section:      p.Section,
			Board:        p.Board,
			WhiteID:      p.WhiteID,
			BlackID:      p.BlackID,
			ByeType:      string(p.ByeType),
		})
	}
	return json.Marshal(snap)
}

// LoadOutput reconstructs an Output from a DumpOutput payload.
func LoadOutput(data []byte) (*Output, error) {
	var snap outputSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode pairing snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported pairing snapshot version %q", snap.Version)
	}

	out := &Output{Warnings: snap.Warnings}
	for _, p := range snap.Pairings {
		out.Pairings = append(out.Pairings, &domain.Pairing{
			TournamentID: p.TournamentID,
			Round:        p.Round,
			Section:      p.Section,
			Board:        p.Board,
			WhiteID:      p.WhiteID,
			BlackID:      p.BlackID,
			ByeType:      domain.ByeType(p.ByeType),
		})
	}
	return out, nil
}
