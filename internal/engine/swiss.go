package engine

import (
	"sort"

	"github.com/cliffdoyle/chess-arbiter/internal/domain"
)

// DefaultTranspositionCap bounds how many S2 orderings the matcher explores
// per score group before settling for the best matching seen so far.
const DefaultTranspositionCap = 5000

// generateSwiss implements the FIDE Dutch Swiss system.
func generateSwiss(in Input) (*Output, error) {
	cap := in.TranspositionCap
	if cap <= 0 {
		cap = DefaultTranspositionCap
	}

	pool := append([]PlayerInput(nil), in.Pairable...)
	var warnings []Warning

	// An odd section total gets one automatic (half-point) bye before score
	// grouping, given to the lowest-scoring, lowest-rated player who has not
	// already received one this tournament.
	var autoBye *PlayerInput
	if len(pool)%2 != 0 {
		idx := pickAutomaticByeCandidate(pool)
		cand := pool[idx]
		autoBye = &cand
		pool = append(pool[:idx], pool[idx+1:]...)
	}

	groups := groupByScore(pool)

	var pairings []*domain.Pairing
	board := 1
	var carry []PlayerInput
	for _, group := range groups {
		working := append(append([]PlayerInput(nil), carry...), group...)
		carry = nil
		sortByRatingThenName(working)

		if len(working)%2 != 0 {
			idx := pickFloatDownCandidate(working)
			floater := working[idx]
			working = append(working[:idx], working[idx+1:]...)
			carry = []PlayerInput{floater}
		}

		pairs, grpWarnings := pairScoreGroup(working, cap)
		for _, pr := range pairs {
			pr.TournamentID = in.TournamentID
			pr.Round = in.Round
			pr.Section = in.Section
			pr.Board = board
			board++
		}
		pairings = append(pairings, pairs...)
		warnings = append(warnings, grpWarnings...)
	}

	// Only possible if every group above had a single leftover player cascade
	// all the way down with nobody left to pair against; give them the
	// automatic bye slot instead of dropping them.
	if len(carry) == 1 && autoBye == nil {
		autoBye = &carry[0]
	} else if len(carry) == 1 {
		pairings = append(pairings, byePairing(carry[0].Player.ID, in, board))
		board++
	}

	if autoBye != nil {
		pairings = append(pairings, byePairing(autoBye.Player.ID, in, board))
		board++
	}

	pairings = appendRegisteredByes(pairings, in, board)

	return &Output{Pairings: pairings, Warnings: warnings}, nil
}

func byePairing(playerID string, in Input, board int) *domain.Pairing {
	id := playerID
	return &domain.Pairing{
		TournamentID: in.TournamentID,
		Round:        in.Round,
		Section:      in.Section,
		Board:        board,
		WhiteID:      &id,
		BlackID:      nil,
		ByeType:      domain.Bye,
	}
}

// pickAutomaticByeCandidate selects the lowest score, lowest rated player
// without a prior automatic bye; if everyone has already had one, the
// constraint is relaxed and the plain lowest-score/lowest-rated player is
// picked.
func pickAutomaticByeCandidate(pool []PlayerInput) int {
	best := -1
	for i, p := range pool {
		if p.HadAutomaticByeAlready {
			continue
		}
		if best == -1 || isLowerPriorityForBye(p, pool[best]) {
			best = i
		}
	}
	if best == -1 {
		for i, p := range pool {
			if best == -1 || isLowerPriorityForBye(p, pool[best]) {
				best = i
			}
		}
	}
	return best
}

func isLowerPriorityForBye(a, b PlayerInput) bool {
	if a.CumulativeScore != b.CumulativeScore {
		return a.CumulativeScore < b.CumulativeScore
	}
	ra, rb := a.Player.RatingOrDefault(0), b.Player.RatingOrDefault(0)
	if ra != rb {
		return ra < rb
	}
	return a.Player.DisplayName > b.Player.DisplayName
}

// pickFloatDownCandidate chooses which player in an odd score group floats
// into the next (lower) group: lowest rated, preferring a player who has not
// floated down in either of the last two rounds.
func pickFloatDownCandidate(working []PlayerInput) int {
	best := -1
	for i, p := range working {
		if p.FloatedDownLastRounds[0] || p.FloatedDownLastRounds[1] {
			continue
		}
		if best == -1 || working[i].Player.RatingOrDefault(0) < working[best].Player.RatingOrDefault(0) {
			best = i
		}
	}
	if best == -1 {
		for i := range working {
			if best == -1 || working[i].Player.RatingOrDefault(0) < working[best].Player.RatingOrDefault(0) {
				best = i
			}
		}
	}
	return best
}

func groupByScore(pool []PlayerInput) [][]PlayerInput {
	byScore := make(map[float64][]PlayerInput)
	var scores []float64
	for _, p := range pool {
		if _, ok := byScore[p.CumulativeScore]; !ok {
			scores = append(scores, p.CumulativeScore)
		}
		byScore[p.CumulativeScore] = append(byScore[p.CumulativeScore], p)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))

	groups := make([][]PlayerInput, 0, len(scores))
	for _, s := range scores {
		grp := byScore[s]
		sortByRatingThenName(grp)
		groups = append(groups, grp)
	}
	return groups
}

func sortByRatingThenName(players []PlayerInput) {
	sort.Slice(players, func(i, j int) bool {
		ri, rj := players[i].Player.RatingOrDefault(0), players[j].Player.RatingOrDefault(0)
		if ri != rj {
			return ri > rj
		}
		return players[i].Player.DisplayName < players[j].Player.DisplayName
	})
}

// pairScoreGroup splits an even-sized score group into S1/S2 halves and
// searches for a legal one-to-one matching between them, falling back
// through the relaxation ladder on exhaustion.
func pairScoreGroup(working []PlayerInput, cap int) ([]*domain.Pairing, []Warning) {
	if len(working) == 0 {
		return nil, nil
	}

	half := len(working) / 2
	s1 := working[:half]
	s2 := working[half:]

	match, warnings := findMatching(s1, s2, cap)

	pairings := make([]*domain.Pairing, 0, half)
	for i, p1 := range s1 {
		p2 := s2[match[i]]
		higher, lower := p1, p2
		if lower.Player.RatingOrDefault(0) > higher.Player.RatingOrDefault(0) {
			higher, lower = lower, higher
		}
		higherWhite, _ := decideColor(higher, lower)

		whiteID, blackID := higher.Player.ID, lower.Player.ID
		if !higherWhite {
			whiteID, blackID = lower.Player.ID, higher.Player.ID
		}
		pairings = append(pairings, &domain.Pairing{
			WhiteID: &whiteID,
			BlackID: &blackID,
			ByeType: domain.GameNormal,
		})
	}
	return pairings, warnings
}

// findMatching returns, for each index i in s1, the index in s2 it is paired
// with. It first searches for a zero-repeat, zero-absolute-color-conflict
// perfect matching (preferring the candidate minimizing total rating
// difference), bounded by cap attempts; failing that it relaxes to allow
// repeats (minimizing total repeats, then rating difference), and finally
// allows a color preference to be overridden if one remains unavoidable.
func findMatching(s1, s2 []PlayerInput, cap int) ([]int, []Warning) {
	n := len(s1)
	if n == 0 {
		return nil, nil
	}

	type candidate struct {
		perm     []int
		repeats  int
		conflict bool
		diff     int
	}

	var best *candidate
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	consider := func(p []int) {
		repeats := 0
		conflict := false
		diff := 0
		for i, j := range p {
			p1, p2 := s1[i], s2[j]
			if p1.Opponents[p2.Player.ID] {
				repeats++
			}
			higher, lower := p1, p2
			if lower.Player.RatingOrDefault(0) > higher.Player.RatingOrDefault(0) {
				higher, lower = lower, higher
			}
			_, c := decideColor(higher, lower)
			if c {
				conflict = true
			}
			d := p1.Player.RatingOrDefault(0) - p2.Player.RatingOrDefault(0)
			if d < 0 {
				d = -d
			}
			diff += d
		}
		cand := candidate{perm: append([]int(nil), p...), repeats: repeats, conflict: conflict, diff: diff}
		if best == nil || better(cand, *best) {
			cp := cand
			best = &cp
		}
	}

	permuteBounded(perm, cap, consider)

	var warnings []Warning
	if best.repeats > 0 {
		warnings = append(warnings, Warning{Kind: "repeat_pairing", Detail: "no repeat-free matching without an absolute color clash found within the transposition cap; at least one rematch was required"})
	}
	if best.conflict {
		warnings = append(warnings, Warning{Kind: "color_preference_violated", Detail: "an absolute color preference was overridden to resolve a same-color clash"})
	}
	return best.perm, warnings
}

func better(a, b struct {
	perm     []int
	repeats  int
	conflict bool
	diff     int
}) bool {
	if a.conflict != b.conflict {
		return !a.conflict
	}
	if a.repeats != b.repeats {
		return a.repeats < b.repeats
	}
	return a.diff < b.diff
}

// permuteBounded visits permutations of perm (Heap's algorithm), calling
// visit on each, until cap visits have been made.
func permuteBounded(perm []int, cap int, visit func([]int)) {
	count := 0
	var generate func(k int)
	generate = func(k int) {
		if count >= cap {
			return
		}
		if k == 1 {
			visit(perm)
			count++
			return
		}
		for i := 0; i < k; i++ {
			generate(k - 1)
			if count >= cap {
				return
			}
			if k%2 == 0 {
				perm[i], perm[k-1] = perm[k-1], perm[i]
			} else {
				perm[0], perm[k-1] = perm[k-1], perm[0]
			}
		}
	}
	if len(perm) == 0 {
		return
	}
	generate(len(perm))
}
