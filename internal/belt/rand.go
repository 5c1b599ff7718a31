package belt

import "math/rand"

// Rand is a seeded random stream that counts what it hands out, so a
// restored simulation can continue the stream instead of replaying it.
type Rand struct {
	*rand.Rand
	src *countedSource
}

type countedSource struct {
	src   rand.Source64
	draws uint64
}

func (c *countedSource) Int63() int64 {
	c.draws++
	return c.src.Int63()
}

func (c *countedSource) Uint64() uint64 {
	c.draws++
	return c.src.Uint64()
}

func (c *countedSource) Seed(seed int64) {
	c.src.Seed(seed)
	c.draws = 0
}

// NewRand returns the stream for seed with the first draws values
// already taken.
func NewRand(seed int64, draws uint64) *Rand {
	src := &countedSource{src: rand.NewSource(seed).(rand.Source64)}
	for src.draws < draws {
		src.Int63()
	}
	return &Rand{Rand: rand.New(src), src: src}
}

// Draws returns how many values have been taken from the stream.
func (r *Rand) Draws() uint64 {
	return r.src.draws
}
