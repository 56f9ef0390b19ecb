package id

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Strategy selects how category ids are synthesized.
type Strategy string

const (
	// StrategyTimestamp emits "<epoch-millis><3-digit-random>".
	StrategyTimestamp Strategy = "timestamp"
	// StrategyUUID emits a random version 4 UUID.
	StrategyUUID Strategy = "uuid"
)

// Generator synthesizes category ids and colors. It is safe for
// concurrent use.
type Generator struct {
	mu         sync.Mutex
	strategy   Strategy
	now        func() time.Time
	rng        *rand.Rand
	lastMillis int64
}

// NewGenerator returns a Generator. A nil now or rng falls back to the
// wall clock and a randomly seeded source.
func NewGenerator(strategy Strategy, now func() time.Time, rng *rand.Rand) *Generator {
	if strategy == "" {
		strategy = StrategyTimestamp
	}
	if now == nil {
		now = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{strategy: strategy, now: now, rng: rng}
}

// NextID returns a new id. Under StrategyTimestamp the millisecond part
// strictly increases across calls, so ids from one Generator never collide.
func (g *Generator) NextID() string {
	if g.strategy == StrategyUUID {
		return uuid.NewString()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.lastMillis {
		ms = g.lastMillis + 1
	}
	g.lastMillis = ms
	return FormatTimestampID(ms, 100+g.rng.IntN(900))
}

// NextColor returns a uniformly random 24-bit color.
func (g *Generator) NextColor() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return FormatColor(g.rng.Uint32() & 0xFFFFFF)
}

// FormatTimestampID returns an id like "1736000000000123".
func FormatTimestampID(millis int64, suffix int) string {
	return fmt.Sprintf("%d%03d", millis, suffix)
}

// FormatColor returns a color like "#0a1b2c".
func FormatColor(rgb uint32) string {
	return fmt.Sprintf("#%06x", rgb&0xFFFFFF)
}
