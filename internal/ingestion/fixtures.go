package ingestion

import (
	"fmt"
	"math/rand/v2"
	"time"

	"marksix-lab/internal/domain"
)

// fixtureStart is the date of the first synthetic draw.
var fixtureStart = time.Date(2020, time.January, 2, 0, 0, 0, 0, time.UTC)

// Fixture returns n deterministic synthetic draws, ordered by date,
// two or three days apart. Periods are <year><seq within year>, e.g. "2020001".
func Fixture(n int) []domain.Draw {
	rng := rand.New(rand.NewPCG(2008, 49))

	draws := make([]domain.Draw, 0, n)
	date := fixtureStart
	seq := 0
	for i := 0; i < n; i++ {
		if i > 0 {
			next := date.AddDate(0, 0, 2+i%2)
			if next.Year() != date.Year() {
				seq = 0
			}
			date = next
		}
		seq++

		perm := rng.Perm(domain.MaxNumber)
		var numbers [6]int
		for j := range numbers {
			numbers[j] = perm[j] + 1
		}
		draws = append(draws, domain.Draw{
			Period:  fmt.Sprintf("%d%03d", date.Year(), seq),
			Date:    date,
			Numbers: numbers,
			Special: perm[6] + 1,
		})
	}
	return draws
}

// FixtureSource returns a MemorySource over Fixture(n).
func FixtureSource(n int) *MemorySource {
	return NewMemorySource(fmt.Sprintf("fixture:%d", n), Fixture(n), nil)
}
