package scheduler

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// Backoff yields the pause between two polling cycles.
type Backoff interface {
	Next() time.Duration
}

// Gamma draws delays from a Gamma(Shape, Scale) distribution and adds
// Floor. With the defaults the mean is 1.25s and no delay is below 0.25s.
type Gamma struct {
	Shape float64
	Scale time.Duration
	Floor time.Duration

	// Src is the random source; nil uses the global generator.
	Src rand.Source
}

func DefaultBackoff() *Gamma {
	return &Gamma{Shape: 4, Scale: 250 * time.Millisecond, Floor: 250 * time.Millisecond}
}

func (g *Gamma) Next() time.Duration {
	if g.Shape <= 0 || g.Scale <= 0 {
		return g.Floor
	}
	// distuv takes a rate, the inverse of the scale.
	d := distuv.Gamma{Alpha: g.Shape, Beta: 1 / g.Scale.Seconds(), Src: g.Src}
	return g.Floor + time.Duration(d.Rand()*float64(time.Second))
}
