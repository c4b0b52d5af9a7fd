package engine

import "github.com/cliffdoyle/chess-arbiter/internal/domain"

// teamInput is one team's pairing-relevant state for a round: its own
// match score and its roster ordered board 1 downward by rating.
type teamInput struct {
	team    *domain.Team
	score   float64
	ratings int
	players []PlayerInput
}

// generateTeamSwiss implements team Swiss: a Swiss pairing run
// at the team level (team match score, not individual game score, drives
// score grouping) whose result is then materialized board by board into the
// same per-player pairing records every other format produces.
func generateTeamSwiss(in Input) (*Output, error) {
	teams := buildTeamInputs(in)

	groups := groupTeamsByScore(teams)

	var pairings []*domain.Pairing
	board := 1
	var carry []teamInput
	for _, group := range groups {
		working := append(append([]teamInput(nil), carry...), group...)
		carry = nil
		sortTeamsByStrength(working)

		if len(working)%2 != 0 {
			carry = []teamInput{working[len(working)-1]}
			working = working[:len(working)-1]
		}

		half := len(working) / 2
		s1 := working[:half]
		s2 := working[half:]
		match := matchTeams(s1, s2)

		for i, t1 := range s1 {
			t2 := s2[match[i]]
			higher, lower := t1, t2
			if teamStrength(t2) > teamStrength(t1) {
				higher, lower = t2, t1
			}
			for _, bp := range materializeBoards(higher, lower, in.Round) {
				bp.TournamentID = in.TournamentID
				bp.Round = in.Round
				bp.Section = in.Section
				bp.Board = board
				board++
				pairings = append(pairings, bp)
			}
		}
	}

	if len(carry) == 1 {
		for _, p := range carry[0].players {
			pairings = append(pairings, byePairing(p.Player.ID, in, board))
			board++
		}
	}

	pairings = appendRegisteredByes(pairings, in, board)
	return &Output{Pairings: pairings}, nil
}

func buildTeamInputs(in Input) []teamInput {
	byTeam := make(map[string]*teamInput)
	order := make([]string, 0, len(in.Teams))
	for _, t := range in.Teams {
		byTeam[t.ID] = &teamInput{team: t}
		order = append(order, t.ID)
	}
	for _, p := range in.Pairable {
		if p.Player.TeamID == nil {
			continue
		}
		ti, ok := byTeam[*p.Player.TeamID]
		if !ok {
			continue
		}
		ti.score += p.CumulativeScore
		ti.ratings += p.Player.RatingOrDefault(0)
		ti.players = append(ti.players, p)
	}

	teams := make([]teamInput, 0, len(order))
	for _, id := range order {
		ti := byTeam[id]
		sortByRatingThenName(ti.players)
		teams = append(teams, *ti)
	}
	return teams
}

func teamStrength(t teamInput) float64 {
	return t.score
}

func groupTeamsByScore(teams []teamInput) [][]teamInput {
	byScore := make(map[float64][]teamInput)
	var scores []float64
	for _, t := range teams {
		if _, ok := byScore[t.score]; !ok {
			scores = append(scores, t.score)
		}
		byScore[t.score] = append(byScore[t.score], t)
	}
	for i := 0; i < len(scores); i++ {
		for j := i + 1; j < len(scores); j++ {
			if scores[j] > scores[i] {
				scores[i], scores[j] = scores[j], scores[i]
			}
		}
	}
	groups := make([][]teamInput, 0, len(scores))
	for _, s := range scores {
		grp := byScore[s]
		sortTeamsByStrength(grp)
		groups = append(groups, grp)
	}
	return groups
}

func sortTeamsByStrength(teams []teamInput) {
	for i := 1; i < len(teams); i++ {
		for j := i; j > 0 && teamLess(teams[j], teams[j-1]); j-- {
			teams[j], teams[j-1] = teams[j-1], teams[j]
		}
	}
}

// teamLess reports whether a ranks ahead of b: higher score, then higher
// total rating, then team name.
func teamLess(a, b teamInput) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.ratings != b.ratings {
		return a.ratings > b.ratings
	}
	return a.team.Name < b.team.Name
}

func matchTeams(s1, s2 []teamInput) []int {
	n := len(s1)
	if n == 0 {
		return nil
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	best := append([]int(nil), perm...)
	bestRepeats := teamRepeats(s1, s2, best)
	permuteBounded(perm, DefaultTranspositionCap, func(p []int) {
		r := teamRepeats(s1, s2, p)
		if r < bestRepeats {
			bestRepeats = r
			best = append([]int(nil), p...)
		}
	})
	return best
}

func teamRepeats(s1, s2 []teamInput, perm []int) int {
	count := 0
	for i, j := range perm {
		t1, t2 := s1[i], s2[j]
		for _, p1 := range t1.players {
			for _, p2 := range t2.players {
				if p1.Opponents[p2.Player.ID] {
					count++
				}
			}
		}
	}
	return count
}

// materializeBoards pairs board i of the higher-scoring team against board i
// of the lower, alternating color by board parity; board 1's color flips
// with the round so neither team sits on the white side of the top board
// every round.
func materializeBoards(higher, lower teamInput, round int) []*domain.Pairing {
	n := len(higher.players)
	if len(lower.players) < n {
		n = len(lower.players)
	}

	higherBoard1White := round%2 == 1
	out := make([]*domain.Pairing, 0, n)
	for i := 0; i < n; i++ {
		hp, lp := higher.players[i], lower.players[i]
		higherWhite := higherBoard1White
		if i%2 == 1 {
			higherWhite = !higherWhite
		}
		whiteID, blackID := hp.Player.ID, lp.Player.ID
		if !higherWhite {
			whiteID, blackID = lp.Player.ID, hp.Player.ID
		}
		out = append(out, &domain.Pairing{WhiteID: &whiteID, BlackID: &blackID, ByeType: domain.GameNormal})
	}
	for _, extra := range higher.players[n:] {
		id := extra.Player.ID
		out = append(out, &domain.Pairing{WhiteID: &id, BlackID: nil, ByeType: domain.Bye})
	}
	for _, extra := range lower.players[n:] {
		id := extra.Player.ID
		out = append(out, &domain.Pairing{WhiteID: &id, BlackID: nil, ByeType: domain.Bye})
	}
	return out
}
