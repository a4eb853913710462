package assistant

import (
	"math/rand"
	"sync"
	"time"
)

// Chooser picks an index in [0, n). Tests inject a fixed one.
type Chooser interface {
	Intn(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandomChooser returns a goroutine-safe uniform chooser. A zero seed
// uses the current time.
func NewRandomChooser(seed int64) Chooser {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// FixedChooser always picks the same index, wrapped into range
type FixedChooser int

func (f FixedChooser) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	i := int(f) % n
	if i < 0 {
		i += n
	}
	return i
}
