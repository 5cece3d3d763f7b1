// Package snowflake generates 64-bit, time-ordered, cluster-unique IDs:
// (ms-since-epoch << 22) | (node << 12) | step. A single Generator owns the
// time/step counters and serializes Generate calls behind a mutex, matching
// the teacher repo's pattern of a small, single-purpose value type guarded
// by its own lock (see serviceregister.Register for the sibling component
// that seeds a Generator's node ID cluster-wide).
package snowflake

import (
	"fmt"
	"sync"
	"time"
)

const (
	nodeBits = 10
	stepBits = 12
	nodeMax  = int64(-1) ^ (int64(-1) << nodeBits) // 1023
	stepMask = int64(-1) ^ (int64(-1) << stepBits) // 4095

	timeShift = nodeBits + stepBits // 22
	nodeShift = stepBits            // 12
)

// DefaultEpoch is used when a Generator is built without an explicit epoch.
var DefaultEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// Generator produces strictly increasing IDs for a fixed node as long as
// wall-clock time does not move backward. On backward clock motion it spins
// until the clock catches up, per the spec's documented behavior.
type Generator struct {
	mu    sync.Mutex
	epoch int64 // ms since unix epoch
	node  int64
	time  int64
	step  int64

	// sleep is overridable in tests to avoid real spinning.
	sleep func(d time.Duration)
}

// New creates a Generator for the given node ID (must fit in 10 bits,
// 0..1023) and epoch. A zero epoch uses DefaultEpoch.
func New(node int16, epoch time.Time) (*Generator, error) {
	if node < 0 || int64(node) > nodeMax {
		return nil, fmt.Errorf("snowflake: node id %d out of range [0, %d]", node, nodeMax)
	}
	if epoch.IsZero() {
		epoch = DefaultEpoch
	}
	return &Generator{
		epoch: epoch.UnixMilli(),
		node:  int64(node),
		sleep: time.Sleep,
	}, nil
}

// NodeID returns the node ID this generator was seeded with.
func (g *Generator) NodeID() int16 {
	return int16(g.node)
}

// Generate returns the next ID, serializing concurrent callers on the
// generator's internal (time, step) state.
func (g *Generator) Generate() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := currentMillis()

	if now < g.time {
		// Clock moved backward: spin until it catches up. Each iteration
		// yields once via sleep so this is a cooperative suspension point,
		// not a hard spin.
		for now < g.time {
			g.sleep(time.Millisecond)
			now = currentMillis()
		}
	}

	if now == g.time {
		g.step = (g.step + 1) & stepMask
		if g.step == 0 {
			// Step space exhausted within this millisecond: wait for the
			// next tick before continuing.
			for now <= g.time {
				g.sleep(time.Millisecond)
				now = currentMillis()
			}
			g.time = now
		}
	} else {
		g.step = 0
		g.time = now
	}

	return ((g.time - g.epoch) << timeShift) | (g.node << nodeShift) | g.step
}

func currentMillis() int64 {
	return time.Now().UnixMilli()
}

// NodeOf extracts the node bits embedded in an ID, per the invariant
// (id >> 12) & 0x3FF == node.
func NodeOf(id int64) int64 {
	return (id >> nodeShift) & nodeMax
}

// TimeOf extracts the embedded timestamp (ms since the given epoch).
func TimeOf(id int64) int64 {
	return id >> timeShift
}

// Base36 renders an ID as base-36, used for trace IDs (§4.3: "trace ID = a
// freshly generated Snowflake in base-36").
func Base36(id int64) string {
	return formatBase36(id)
}

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func formatBase36(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	buf := make([]byte, 0, 16)
	for n > 0 {
		buf = append(buf, base36Alphabet[n%36])
		n /= 36
	}
	if neg {
		buf = append(buf, '-')
	}
	// reverse
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}
