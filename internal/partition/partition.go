// Package partition enumerates a tournament's sections. Sections are fully
// independent: pairings, color history, and board numbers never leak across
// them.
package partition

import (
	"context"
	"fmt"
	"sort"

	"github.com/cliffdoyle/chess-arbiter/internal/repository"
)

// Partitioner returns the ordered, independent sections of a tournament.
type Partitioner interface {
	Sections(ctx context.Context, tournamentID string) ([]string, error)
}

type partitioner struct {
	tournaments repository.TournamentRepository
}

// New creates a Partitioner backed by the given tournament repository.
func New(tournaments repository.TournamentRepository) Partitioner {
	return &partitioner{tournaments: tournaments}
}

const defaultSection = "Open"

// Sections returns the sections present in a tournament's roster, in
// deterministic alphabetical order.
func (p *partitioner) Sections(ctx context.Context, tournamentID string) ([]string, error) {
	sections, err := p.tournaments.ListSections(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	if len(sections) == 0 {
		return []string{defaultSection}, nil
	}
	sort.Strings(sections)
	return sections, nil
}
