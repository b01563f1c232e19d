package feed

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sivanandareddychinta/PricingServiceDemo/config"
	"github.com/sivanandareddychinta/PricingServiceDemo/pricing"
)

const defaultVolatility = 0.002

type instrumentWalk struct {
	id         string
	price      float64
	volatility float64
}

// generator produces pseudo random price records as a random walk over
// the configured instruments. A fixed seed makes a feed run
// deterministic; without one the walk is seeded from the clock.
type generator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	walks []*instrumentWalk
}

func newGenerator(cfg config.FeedConfig) *generator {
	seed := time.Now().UnixNano()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	walks := make([]*instrumentWalk, 0, len(cfg.Instruments))
	for _, instrument := range cfg.Instruments {
		volatility := instrument.Volatility
		if volatility == 0 {
			volatility = defaultVolatility
		}
		walks = append(walks, &instrumentWalk{
			id:         instrument.ID,
			price:      instrument.InitialPrice,
			volatility: volatility,
		})
	}
	return &generator{rng: rand.New(rand.NewSource(seed)), walks: walks}
}

// chunk builds a chunk of records observed at the given time. Every
// record advances its instrument's walk by one step; payloads are
// decimal prices rounded to four places.
func (g *generator) chunk(now time.Time, size int) []pricing.Record {
	g.mu.Lock()
	defer g.mu.Unlock()

	records := make([]pricing.Record, 0, size)
	for i := 0; i < size; i++ {
		walk := g.walks[g.rng.Intn(len(g.walks))]
		step := 1 + walk.volatility*(g.rng.Float64()*2-1)
		walk.price *= step
		payload := decimal.NewFromFloat(walk.price).Round(4)

		record, err := pricing.NewRecord(walk.id, now.Add(time.Duration(i)*time.Microsecond), payload)
		if err != nil {
			// Walk ids come from validated config, construction cannot fail.
			continue
		}
		records = append(records, record)
	}
	return records
}

// pick returns a random configured instrument id.
func (g *generator) pick() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.walks[g.rng.Intn(len(g.walks))].id
}

// chance reports true with the given probability.
func (g *generator) chance(probability float64) bool {
	if probability <= 0 {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64() < probability
}
