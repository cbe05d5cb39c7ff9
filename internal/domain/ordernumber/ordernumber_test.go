package ordernumber_test

import (
	"regexp"
	"testing"
	"time"

	"canteen/internal/domain/ordernumber"

	"github.com/stretchr/testify/assert"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestGenerate_Format(t *testing.T) {
	g := ordernumber.New("")
	re := regexp.MustCompile(`^ORD\d{11}$`)

	for i := 0; i < 50; i++ {
		assert.Regexp(t, re, g.Generate())
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	ts := time.UnixMilli(1_700_000_123_456)
	g := ordernumber.New("ORD",
		ordernumber.WithClock(fixedClock{t: ts}),
		ordernumber.WithRand(func(int) int { return 7 }),
	)

	assert.Equal(t, "ORD00123456007", g.Generate())
}

func TestGenerate_CustomPrefix(t *testing.T) {
	g := ordernumber.New("CNT", ordernumber.WithRand(func(int) int { return 999 }))
	assert.Regexp(t, `^CNT\d{8}999$`, g.Generate())
}
