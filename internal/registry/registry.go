// Package registry provides a filtered, read-only view of a tournament's
// roster to the pairing engine and the round controller.
package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/cliffdoyle/chess-arbiter/internal/apperr"
	"github.com/cliffdoyle/chess-arbiter/internal/domain"
	"github.com/cliffdoyle/chess-arbiter/internal/repository"
)

// Registry answers roster and history questions scoped to one tournament.
type Registry interface {
	ListActive(ctx context.Context, tournamentID, section string) ([]*domain.Player, error)
	PairablePlayersForRound(ctx context.Context, tournamentID string, round int, section string) (pairable, registeredByes []*domain.Player, err error)
	ColorHistory(ctx context.Context, playerID string) ([]ColorRound, error)
	OpponentsOf(ctx context.Context, playerID string) (map[string]bool, error)
}

// ColorRound is one round's color assignment for a player. Byes carry no
// color and are excluded.
type ColorRound struct {
	Round int
	White bool
}

type registry struct {
	players  repository.PlayerRepository
	pairings repository.PairingRepository
}

// New creates a Registry backed by the given repositories.
func New(players repository.PlayerRepository, pairings repository.PairingRepository) Registry {
	return &registry{players: players, pairings: pairings}
}

func (r *registry) ListActive(ctx context.Context, tournamentID, section string) ([]*domain.Player, error) {
	players, err := r.players.ListActiveInSection(ctx, tournamentID, section)
	if err != nil {
		return nil, fmt.Errorf("list active players: %w", err)
	}
	return players, nil
}

// PairablePlayersForRound splits a section's active roster into players
// eligible for game pairing this round and players who pre-registered a bye
// for this round.
func (r *registry) PairablePlayersForRound(ctx context.Context, tournamentID string, round int, section string) ([]*domain.Player, []*domain.Player, error) {
	active, err := r.players.ListActiveInSection(ctx, tournamentID, section)
	if err != nil {
		return nil, nil, fmt.Errorf("list active players: %w", err)
	}

	var pairable, registeredByes []*domain.Player
	for _, p := range active {
		if p.HasRegisteredByeInRound(round) {
			registeredByes = append(registeredByes, p)
		} else {
			pairable = append(pairable, p)
		}
	}

	// Deterministic order: rating desc, name asc.
	sort.Slice(pairable, func(i, j int) bool { return lessByRatingThenName(pairable[i], pairable[j]) })
	sort.Slice(registeredByes, func(i, j int) bool { return lessByRatingThenName(registeredByes[i], registeredByes[j]) })

	return pairable, registeredByes, nil
}

func lessByRatingThenName(a, b *domain.Player) bool {
	ra, rb := a.RatingOrDefault(0), b.RatingOrDefault(0)
	if ra != rb {
		return ra > rb
	}
	return a.DisplayName < b.DisplayName
}

// ColorHistory returns a player's ordered color assignments so far, derived
// from the historical pairings of the player's own section; no separate
// color-log table is kept.
func (r *registry) ColorHistory(ctx context.Context, playerID string) ([]ColorRound, error) {
	p, err := r.players.Get(ctx, playerID)
	if err != nil {
		return nil, &apperr.NotFoundError{Entity: "player", ID: playerID}
	}
	pairings, err := r.pairings.ListHistoricalInSection(ctx, p.TournamentID, p.Section, 1<<30)
	if err != nil {
		return nil, fmt.Errorf("list historical pairings: %w", err)
	}

	var history []ColorRound
	for _, pr := range pairings {
		switch {
		case pr.WhiteID != nil && *pr.WhiteID == playerID && pr.IsGame():
			history = append(history, ColorRound{Round: pr.Round, White: true})
		case pr.BlackID != nil && *pr.BlackID == playerID && pr.IsGame():
			history = append(history, ColorRound{Round: pr.Round, White: false})
		}
	}
	sort.Slice(history, func(i, j int) bool { return history[i].Round < history[j].Round })
	return history, nil
}

// OpponentsOf returns the set of player ids this player has faced in games
// (byes excluded) among the pairings of the player's own section.
func (r *registry) OpponentsOf(ctx context.Context, playerID string) (map[string]bool, error) {
	p, err := r.players.Get(ctx, playerID)
	if err != nil {
		return nil, &apperr.NotFoundError{Entity: "player", ID: playerID}
	}
	pairings, err := r.pairings.ListHistoricalInSection(ctx, p.TournamentID, p.Section, 1<<30)
	if err != nil {
		return nil, fmt.Errorf("list historical pairings: %w", err)
	}

	opponents := make(map[string]bool)
	for _, pr := range pairings {
		if !pr.IsGame() {
			continue
		}
		switch playerID {
		case *pr.WhiteID:
			opponents[*pr.BlackID] = true
		case *pr.BlackID:
			opponents[*pr.WhiteID] = true
		}
	}
	return opponents, nil
}
