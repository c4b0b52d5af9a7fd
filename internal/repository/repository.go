// Package repository defines the persistence contract the engine consumes
// and a Postgres implementation of it: raw database/sql + lib/pq, no ORM,
// hand-written scan helpers.
package repository

import (
	"context"

	"github.com/cliffdoyle/chess-arbiter/internal/domain"
)

// TournamentRepository persists Tournament aggregates.
type TournamentRepository interface {
	Get(ctx context.Context, id string) (*domain.Tournament, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) error
	UpdateCurrentRound(ctx context.Context, id string, round int) error
	ListSections(ctx context.Context, tournamentID string) ([]string, error)
}

// PlayerRepository persists tournament rosters.
type PlayerRepository interface {
	ListForTournament(ctx context.Context, tournamentID string) ([]*domain.Player, error)
	ListActiveInSection(ctx context.Context, tournamentID, section string) ([]*domain.Player, error)
	Get(ctx context.Context, id string) (*domain.Player, error)
	GetIntentionalByes(ctx context.Context, playerID string) (map[int]bool, error)
}

// PairingRepository persists Pairing rows. InsertBatch and DeleteRound are
// transactional.
type PairingRepository interface {
	Get(ctx context.Context, id string) (*domain.Pairing, error)
	ListByTournamentRoundSection(ctx context.Context, tournamentID string, round int, section string) ([]*domain.Pairing, error)
	// ListByTournamentRound returns every pairing of a round across every
	// section the Pairing Engine actually materialized for it, however many
	// that turns out to be (quad format splits one roster section into
	// several sub-sections; ListSections on the Tournament repository only
	// ever reflects the roster, not what got paired). Round-completion
	// checking and unscoped listing use this instead of enumerating
	// Partitioner sections, so they can never miss boards the engine wrote
	// under a sub-section name.
	ListByTournamentRound(ctx context.Context, tournamentID string, round int) ([]*domain.Pairing, error)
	ListHistoricalInSection(ctx context.Context, tournamentID, section string, uptoRound int) ([]*domain.Pairing, error)
	InsertBatch(ctx context.Context, pairings []*domain.Pairing) error
	DeleteRound(ctx context.Context, tournamentID string, round int) error
}

// ResultRepository persists Result rows.
type ResultRepository interface {
	// RecordResult writes results and marks the pairing's result code in a
	// single transaction; the pairing's result field and its Result rows
	// are updated together or not at all.
	RecordResult(ctx context.Context, pairingID string, code domain.ResultCode, results []*domain.Result) error
	// ReplaceForPairing atomically clears a pairing's existing Result rows
	// and writes new ones, backing result correction.
	ReplaceForPairing(ctx context.Context, pairingID string, code domain.ResultCode, results []*domain.Result) error
	ListForPairing(ctx context.Context, pairingID string) ([]*domain.Result, error)
	ListForPlayer(ctx context.Context, playerID string) ([]*domain.Result, error)
	ListForTournament(ctx context.Context, tournamentID string) ([]*domain.Result, error)
}
