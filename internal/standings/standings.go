// Package standings turns a section's full pairing and result history into
// a ranked table, using the tiebreak methods and ordering configured on the
// tournament.
package standings

import (
	"context"
	"fmt"
	"sort"

	"github.com/cliffdoyle/chess-arbiter/internal/domain"
	"github.com/cliffdoyle/chess-arbiter/internal/repository"
)

// Standing is one player's row in a ranked standings table. GamesPlayed and
// the win/loss/draw tallies count recorded games only; byes are excluded.
type Standing struct {
	Player      *domain.Player
	Score       float64
	GamesPlayed int
	Wins        int
	Losses      int
	Draws       int
	Tiebreaks   map[domain.TiebreakKind]float64
	Rank        int
}

// Calculator computes standings for a tournament section.
type Calculator interface {
	Standings(ctx context.Context, tournamentID, section string, order []domain.TiebreakKind) ([]Standing, error)
}

type calculator struct {
	players  repository.PlayerRepository
	pairings repository.PairingRepository
	results  repository.ResultRepository
}

// New creates a Calculator backed by the given repositories.
func New(players repository.PlayerRepository, pairings repository.PairingRepository, results repository.ResultRepository) Calculator {
	return &calculator{players: players, pairings: pairings, results: results}
}

// roundRecord is one player's single-round outcome, used to compute every
// tiebreak without re-querying storage per metric.
type roundRecord struct {
	round      int
	opponentID string // "" for a bye
	points     float64
	isBye      bool
	hasResult  bool
}

func (c *calculator) Standings(ctx context.Context, tournamentID, section string, order []domain.TiebreakKind) ([]Standing, error) {
	players, err := c.players.ListForTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	var sectionPlayers []*domain.Player
	for _, p := range players {
		if p.Section == section {
			sectionPlayers = append(sectionPlayers, p)
		}
	}

	pairings, err := c.pairings.ListHistoricalInSection(ctx, tournamentID, section, 1<<30)
	if err != nil {
		return nil, fmt.Errorf("list pairings: %w", err)
	}

	results, err := c.results.ListForTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	pointsByPairingPlayer := make(map[string]map[string]float64)
	for _, r := range results {
		if pointsByPairingPlayer[r.PairingID] == nil {
			pointsByPairingPlayer[r.PairingID] = make(map[string]float64)
		}
		pointsByPairingPlayer[r.PairingID][r.PlayerID] = r.Points
	}

	history := make(map[string][]roundRecord)
	for _, pr := range pairings {
		if pr.WhiteID != nil {
			history[*pr.WhiteID] = append(history[*pr.WhiteID], recordFor(pr, *pr.WhiteID, pointsByPairingPlayer))
		}
		if pr.BlackID != nil {
			history[*pr.BlackID] = append(history[*pr.BlackID], recordFor(pr, *pr.BlackID, pointsByPairingPlayer))
		}
	}
	for id := range history {
		sort.Slice(history[id], func(i, j int) bool { return history[id][i].round < history[id][j].round })
	}

	finalScore := make(map[string]float64, len(sectionPlayers))
	for _, p := range sectionPlayers {
		var total float64
		for _, rec := range history[p.ID] {
			total += rec.points
		}
		finalScore[p.ID] = total
	}

	rows := make([]Standing, 0, len(sectionPlayers))
	for _, p := range sectionPlayers {
		tb := map[domain.TiebreakKind]float64{
			domain.TiebreakBuchholz:        buchholz(history[p.ID], finalScore),
			domain.TiebreakMedianBuchholz:  medianBuchholz(history[p.ID], finalScore),
			domain.TiebreakSonnebornBerger: sonnebornBerger(history[p.ID], finalScore),
			domain.TiebreakCumulative:      cumulative(history[p.ID]),
			domain.TiebreakSolkoff:         buchholz(history[p.ID], finalScore),
		}
		row := Standing{Player: p, Score: finalScore[p.ID], Tiebreaks: tb}
		for _, rec := range history[p.ID] {
			if rec.isBye || !rec.hasResult {
				continue
			}
			row.GamesPlayed++
			switch {
			case rec.points > 0.5:
				row.Wins++
			case rec.points < 0.5:
				row.Losses++
			default:
				row.Draws++
			}
		}
		rows = append(rows, row)
	}

	sortRows(rows, order, history)
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

func recordFor(pr *domain.Pairing, playerID string, points map[string]map[string]float64) roundRecord {
	rec := roundRecord{round: pr.Round}
	if !pr.IsGame() {
		rec.isBye = true
		if pr.Result != nil {
			rec.points = pr.Result.Points
			rec.hasResult = true
		} else if pointMap, ok := points[pr.ID]; ok {
			rec.points = pointMap[playerID]
			rec.hasResult = true
		}
		return rec
	}
	if pr.WhiteID != nil && *pr.WhiteID == playerID && pr.BlackID != nil {
		rec.opponentID = *pr.BlackID
	} else if pr.BlackID != nil && *pr.BlackID == playerID && pr.WhiteID != nil {
		rec.opponentID = *pr.WhiteID
	}
	if pointMap, ok := points[pr.ID]; ok {
		rec.points = pointMap[playerID]
		rec.hasResult = true
	}
	return rec
}

// buchholz sums the final score of every round opponent. Byes contribute
// zero, mirroring the common FIDE-handbook default of treating a bye as a
// zero-strength opponent.
func buchholz(records []roundRecord, finalScore map[string]float64) float64 {
	var total float64
	for _, r := range records {
		if r.isBye {
			continue
		}
		total += finalScore[r.opponentID]
	}
	return total
}

// medianBuchholz drops the single highest and lowest opponent scores before
// summing; only meaningful from 3 rounds of games upward.
func medianBuchholz(records []roundRecord, finalScore map[string]float64) float64 {
	var scores []float64
	for _, r := range records {
		if r.isBye {
			continue
		}
		scores = append(scores, finalScore[r.opponentID])
	}
	if len(scores) < 3 {
		var total float64
		for _, s := range scores {
			total += s
		}
		return total
	}
	sort.Float64s(scores)
	var total float64
	for _, s := range scores[1 : len(scores)-1] {
		total += s
	}
	return total
}

// sonnebornBerger weights each opponent's final score by the result against
// them: full weight for a win, half for a draw, none for a loss.
func sonnebornBerger(records []roundRecord, finalScore map[string]float64) float64 {
	var total float64
	for _, r := range records {
		if r.isBye {
			continue
		}
		total += finalScore[r.opponentID] * r.points
	}
	return total
}

// cumulative is the sum of the running score after every round played,
// which rewards players who score early.
func cumulative(records []roundRecord) float64 {
	var running, total float64
	for _, r := range records {
		running += r.points
		total += running
	}
	return total
}

func sortRows(rows []Standing, order []domain.TiebreakKind, history map[string][]roundRecord) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		for _, kind := range order {
			if kind == domain.TiebreakDirectEncounter {
				if res, ok := directEncounter(a.Player.ID, b.Player.ID, history); ok {
					return res
				}
				continue
			}
			av, bv := a.Tiebreaks[kind], b.Tiebreaks[kind]
			if av != bv {
				return av > bv
			}
		}
		ra, rb := a.Player.RatingOrDefault(0), b.Player.RatingOrDefault(0)
		if ra != rb {
			return ra > rb
		}
		return a.Player.DisplayName < b.Player.DisplayName
	})
}

// directEncounter reports whether a ranks ahead of b because a beat b in a
// head-to-head game; ok is false if they never played or the game was drawn.
func directEncounter(a, b string, history map[string][]roundRecord) (aAhead bool, ok bool) {
	for _, rec := range history[a] {
		if rec.opponentID != b {
			continue
		}
		switch {
		case rec.points > 0.5:
			return true, true
		case rec.points < 0.5:
			return false, true
		default:
			return false, false
		}
	}
	return false, false
}
