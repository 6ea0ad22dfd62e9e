package asynccore

import (
	"sync/atomic"
)

// Group is a round-robin handle over a fixed set of executors.
//
// The member list is deduplicated and immutable after construction; [Group.Next]
// is safe for concurrent use. A Group must not be copied. It does not take
// ownership of the executors.
//
// Usage:
//
//	group := asynccore.NewGroup(execA, execB, execC)
//	e, err := group.Next()
type Group struct {
	_ [0]func() // prevent copying

	index     atomic.Uint64
	executors []Executor
}

// NewGroup creates a group over the given executors, dropping duplicates while
// preserving first-occurrence order.
func NewGroup(executors ...Executor) *Group {
	g := &Group{}
	seen := make(map[Executor]struct{}, len(executors))
	for _, e := range executors {
		if e == nil {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		g.executors = append(g.executors, e)
	}
	return g
}

// Next returns the next executor in round-robin order. It fails with
// [ErrOutOfRange] on an empty group.
func (g *Group) Next() (Executor, error) {
	if len(g.executors) == 0 {
		return nil, ErrOutOfRange
	}
	return g.NextUnchecked(), nil
}

// NextUnchecked is [Group.Next] without the empty-group check; it panics on an
// empty group.
func (g *Group) NextUnchecked() Executor {
	return g.executors[(g.index.Add(1)-1)%uint64(len(g.executors))]
}

// Size returns the number of distinct executors in the group.
func (g *Group) Size() int {
	return len(g.executors)
}

// Empty reports whether the group has no executors.
func (g *Group) Empty() bool {
	return len(g.executors) == 0
}
