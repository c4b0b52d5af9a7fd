package engine

import "github.com/cliffdoyle/chess-arbiter/internal/domain"

// generateRoundRobin implements the circle method: a fixed
// schedule of n-1 rounds (n players, even) visited by rotating every seat but
// the first. An odd roster gets a phantom seat; whoever draws it receives a
// bye that round.
func generateRoundRobin(in Input) (*Output, error) {
	players := append([]PlayerInput(nil), in.Pairable...)
	sortByRatingThenName(players)

	n := len(players)
	phantom := n%2 != 0
	if phantom {
		n++
	}

	pairs := roundRobinPairs(n, in.Round)

	var pairings []*domain.Pairing
	board := 1
	for _, pr := range pairs {
		a, b := pr[0], pr[1]
		if phantom && (a == n-1 || b == n-1) {
			realIdx := a
			if a == n-1 {
				realIdx = b
			}
			pairings = append(pairings, byePairing(players[realIdx].Player.ID, in, board))
			board++
			continue
		}

		white, black := a, b
		if (a+b+in.Round)%2 != 0 {
			white, black = b, a
		}
		whiteID, blackID := players[white].Player.ID, players[black].Player.ID
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

// roundRobinPairs returns, for an even seat count n, the n/2 seat-index pairs
// for the given 1-indexed round under the standard circle method: seat 0 is
// fixed, every other seat rotates one position clockwise per round.
func roundRobinPairs(n int, round int) [][2]int {
	if n < 2 {
		return nil
	}
	arr := make([]int, n)
	for i := range arr {
		arr[i] = i
	}
	steps := (round - 1) % (n - 1)
	for s := 0; s < steps; s++ {
		last := arr[n-1]
		for i := n - 1; i > 1; i-- {
			arr[i] = arr[i-1]
		}
		arr[1] = last
	}

	pairs := make([][2]int, 0, n/2)
	for i := 0; i < n/2; i++ {
		pairs = append(pairs, [2]int{arr[i], arr[n-1-i]})
	}
	return pairs
}
