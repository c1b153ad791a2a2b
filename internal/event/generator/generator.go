package generator

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"geointel/internal/event/domain"
)

// Generate draws s.Size events. The output depends only on the scenario (seed included)
// and now, so repeated calls with the same inputs return the same dataset. IDs are drawn
// from the seed and the UTC calendar day of now: regenerating on the same day yields the
// same IDs (stores skip them as duplicates), a later day yields new ones.
func Generate(s Scenario, now time.Time) ([]domain.Event, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	now = now.UTC()
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15))
	ids := rand.New(rand.NewPCG(s.Seed, uint64(now.Unix()/86400)))

	out := make([]domain.Event, s.Size)
	for i := range out {
		days := rng.IntN(s.DaysBack)
		out[i] = domain.Event{
			ID:        deterministicID(ids),
			Date:      now.AddDate(0, 0, -days),
			Latitude:  uniform(rng, s.Latitude),
			Longitude: uniform(rng, s.Longitude),
			Group:     s.Groups[rng.IntN(len(s.Groups))],
			Region:    s.Regions[rng.IntN(len(s.Regions))],
			Note:      s.Notes[rng.IntN(len(s.Notes))],
		}
	}
	return out, nil
}

func uniform(rng *rand.Rand, b Bounds) float64 {
	return b.Min + rng.Float64()*(b.Max-b.Min)
}

// deterministicID builds a version 4 UUID from rng.
func deterministicID(rng *rand.Rand) string {
	var b [16]byte
	for i := 0; i < 16; i += 8 {
		v := rng.Uint64()
		for j := 0; j < 8; j++ {
			b[i+j] = byte(v >> (8 * j))
		}
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return uuid.UUID(b).String()
}
