// Package engine generates pairings: a pure, dispatch-on-format function
// that turns a section's pairable players, history, and round number into an
// ordered board list. It never reads or writes storage and never mutates its
// inputs; the caller persists what it returns.
package engine

import (
	"fmt"

	"github.com/cliffdoyle/chess-arbiter/internal/domain"
)

// PlayerInput is everything the engine needs to know about one pairable
// player, precomputed by the caller (Round Controller) from the Registry and
// the player's recorded results. The engine never queries storage itself.
type PlayerInput struct {
	Player                 *domain.Player
	CumulativeScore        float64
	ColorHistory           []ColorEntry // chronological, byes excluded
	Opponents              map[string]bool
	HadAutomaticByeAlready bool    // no player gets a second automatic bye if avoidable
	FloatedDownLastRounds  [2]bool // rounds r-1 and r-2
}

// ColorEntry is one round's color assignment, mirroring registry.ColorRound
// without importing the registry package (engine stays storage-agnostic).
type ColorEntry struct {
	Round int
	White bool
}

// Input is the pure-function argument set for one section's pairing pass.
type Input struct {
	TournamentID string
	Section      string
	Round        int
	Format       domain.Format
	Pairable     []PlayerInput
	RegisteredByes []*domain.Player // already excluded from Pairable by the caller
	Teams        []*domain.Team    // team_swiss only
	TranspositionCap int           // 0 => DefaultTranspositionCap
	TotalRounds  int               // tournament round count; no generator reads it
}

// Warning records a relaxation the engine had to apply to find a legal
// pairing, such as a forced rematch or an overridden color preference.
type Warning struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// Output is the engine's pure result: an ordered board list plus any
// relaxation warnings.
type Output struct {
	Pairings []*domain.Pairing `json:"pairings"`
	Warnings []Warning         `json:"warnings"`
}

// Generate dispatches on the tournament's format and runs the corresponding
// pairing algorithm.
func Generate(in Input) (*Output, error) {
	switch in.Format {
	case domain.FormatSwiss, domain.FormatOnlineRated:
		return generateSwiss(in)
	case domain.FormatRoundRobin:
		return generateRoundRobin(in)
	case domain.FormatQuad:
		return generateQuad(in)
	case domain.FormatSingleElimination:
		return generateKnockout(in)
	case domain.FormatTeamSwiss:
		return generateTeamSwiss(in)
	default:
		return nil, fmt.Errorf("unsupported tournament format: %s", in.Format)
	}
}

// appendRegisteredByes materializes a section's registered byes as unpaired
// pairings at the end of the board list, with ascending deterministic board
// numbers.
func appendRegisteredByes(pairings []*domain.Pairing, in Input, nextBoard int) []*domain.Pairing {
	for _, p := range in.RegisteredByes {
		id := p.ID
		pairings = append(pairings, &domain.Pairing{
			TournamentID: in.TournamentID,
			Round:        in.Round,
			Section:      in.Section,
			Board:        nextBoard,
			WhiteID:      &id,
			BlackID:      nil,
			ByeType:      domain.Unpaired,
		})
		nextBoard++
	}
	return pairings
}
