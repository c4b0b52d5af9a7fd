package engine

import "github.com/cliffdoyle/chess-arbiter/internal/domain"

// generateKnockout builds single-elimination bracket pairings: players are
// seeded by rating desc / name asc, the bracket is padded to the next power
// of two, and the top seeds closest to that padding draw a bye rather than
// the bottom seeds, so the strongest players are never eliminated without
// playing. The engine keeps no bracket-tree state of its own between rounds;
// the caller hands in only the surviving players, and seeding is recomputed
// from them each round.
func generateKnockout(in Input) (*Output, error) {
	players := append([]PlayerInput(nil), in.Pairable...)
	sortByRatingThenName(players)

	n := len(players)
	bracketSize := nextPowerOfTwo(n)
	byes := bracketSize - n

	var pairings []*domain.Pairing
	board := 1
	// A bracket bye advances the seed, so it is a full-point unpaired
	// pairing, not the half-point bye an odd Swiss section hands out.
	for i := 0; i < byes; i++ {
		id := players[i].Player.ID
		pairings = append(pairings, &domain.Pairing{
			TournamentID: in.TournamentID,
			Round:        in.Round,
			Section:      in.Section,
			Board:        board,
			WhiteID:      &id,
			BlackID:      nil,
			ByeType:      domain.Unpaired,
		})
		board++
	}

	rest := players[byes:]
	m := len(rest)
	for i := 0; i < m/2; i++ {
		p1, p2 := rest[i], rest[m-1-i]
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
			TournamentID: in.TournamentID,
			Round:        in.Round,
			Section:      in.Section,
			Board:        board,
			WhiteID:      &whiteID,
			BlackID:      &blackID,
			ByeType:      domain.GameNormal,
		})
		board++
	}

	pairings = appendRegisteredByes(pairings, in, board)
	return &Output{Pairings: pairings}, nil
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
