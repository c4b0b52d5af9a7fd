package engine

import (
	"testing"

	"github.com/cliffdoyle/chess-arbiter/internal/domain"
)

func TestRoundRobinEvenRosterNoByes(t *testing.T) {
	pairable := []PlayerInput{
		input("a", 2000, 0),
		input("b", 1900, 0),
		input("c", 1800, 0),
		input("d", 1700, 0),
	}
	seen := make(map[[2]string]int)
	for round := 1; round <= 3; round++ {
		out, err := Generate(Input{Format: domain.FormatRoundRobin, Pairable: pairable, Round: round})
		if err != nil {
			t.Fatalf("round %d: generate: %v", round, err)
		}
		if len(out.Pairings) != 2 {
			t.Fatalf("round %d: expected 2 boards, got %d", round, len(out.Pairings))
		}
		for _, p := range out.Pairings {
			if p.ByeType != domain.GameNormal {
				t.Fatalf("round %d: unexpected bye in a 4-player round robin: %+v", round, p)
			}
			key := pairKey(*p.WhiteID, *p.BlackID)
			seen[key]++
		}
	}
	for pair, count := range seen {
		if count != 1 {
			t.Fatalf("pair %v met %d times across 3 rounds; round robin must not repeat within a single cycle", pair, count)
		}
	}
	if len(seen) != 6 {
		t.Fatalf("expected all 6 distinct pairs (C(4,2)) across 3 rounds, got %d", len(seen))
	}
}

func TestRoundRobinOddRosterProducesByes(t *testing.T) {
	pairable := []PlayerInput{
		input("a", 2000, 0),
		input("b", 1900, 0),
		input("c", 1800, 0),
	}
	for round := 1; round <= 3; round++ {
		out, err := Generate(Input{Format: domain.FormatRoundRobin, Pairable: pairable, Round: round})
		if err != nil {
			t.Fatalf("round %d: generate: %v", round, err)
		}
		byeCount := 0
		for _, p := range out.Pairings {
			if p.ByeType == domain.Bye {
				byeCount++
				if p.Result != nil {
					t.Fatalf("round %d: bye pairing should not pre-populate a result", round)
				}
			}
		}
		if byeCount != 1 {
			t.Fatalf("round %d: expected exactly one bye for a 3-player field, got %d", round, byeCount)
		}
	}
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}
