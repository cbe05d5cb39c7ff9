// Package ordernumber generates short display identifiers for orders.
//
// A number is the prefix, the last 8 digits of the Unix millisecond clock
// and a zero-padded 3 digit random suffix, e.g. ORD12345678042. Numbers are
// not guaranteed unique; the orders table carries a unique index and callers
// retry on collision.
package ordernumber

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const DefaultPrefix = "ORD"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Generator struct {
	prefix string
	clock  Clock
	intn   func(n int) int
}

type Option func(*Generator)

func WithClock(c Clock) Option {
	return func(g *Generator) { g.clock = c }
}

// WithRand replaces the suffix source; intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(g *Generator) { g.intn = intn }
}

func New(prefix string, opts ...Option) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	g := &Generator{prefix: prefix, clock: systemClock{}, intn: rand.IntN}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Generate() string {
	ms := g.clock.Now().UnixMilli() % 100_000_000
	return fmt.Sprintf("%s%08d%03d", g.prefix, ms, g.intn(1000))
}
