package asynccore

import (
	"fmt"
)

// treeNode is one builder-time context plan entry.
type treeNode struct {
	parentID         int
	childrenCount    int
	workerParameters []WorkerParameters
	concurrencyHint  int
	hasHint          bool
	enabled          bool
}

// Tree is the builder-time plan for a context forest.
//
// Context ids are guaranteed to be the dense sequence 0, 1, 2, ... in creation
// order; id 0 is the root. The first [Tree.AddContext] call creates the root
// and is always allowed, its parent recorded as 0 (the root is its own
// parent). Every later node must name an already-created parent, so a parent
// id is always strictly less than the child's own id.
//
// A Tree is not safe for concurrent use. It is consumed by [New], which copies
// the plan; the Tree may be reused or discarded afterwards.
type Tree struct {
	nodes []treeNode
}

// NewTree returns an empty plan.
func NewTree() *Tree {
	return &Tree{}
}

// AddContext plans a new context and returns its id.
//
// parentID must refer to an already-created context, except on the very first
// call, which creates the root. workerCount default-configured worker slots
// are planned (see [DefaultWorkerParameters]); use [Tree.SetWorkerParameters]
// or [Tree.AddWorker] to customize. Disabled contexts still own an executor,
// but no worker will ever poll them, so their tasks stay pending.
func (t *Tree) AddContext(parentID, workerCount int, enabled bool) (int, error) {
	return t.addContext(parentID, workerCount, enabled, 0, false)
}

// AddContextWithHint is [Tree.AddContext] with a concurrency hint forwarded to
// the context's executor on construction.
func (t *Tree) AddContextWithHint(parentID, workerCount int, enabled bool, concurrencyHint int) (int, error) {
	return t.addContext(parentID, workerCount, enabled, concurrencyHint, true)
}

func (t *Tree) addContext(parentID, workerCount int, enabled bool, hint int, hasHint bool) (int, error) {
	newID := len(t.nodes)
	if newID == 0 {
		// root: parent is always recorded as the root itself
		parentID = 0
	} else if parentID < 0 || parentID >= newID {
		return 0, fmt.Errorf("%w: parent context id %d", ErrOutOfRange, parentID)
	}

	params := make([]WorkerParameters, workerCount)
	for i := range params {
		params[i] = DefaultWorkerParameters()
	}

	t.nodes = append(t.nodes, treeNode{
		parentID:         parentID,
		workerParameters: params,
		concurrencyHint:  hint,
		hasHint:          hasHint,
		enabled:          enabled,
	})
	if newID != 0 {
		t.nodes[parentID].childrenCount++
	}

	return newID, nil
}

// SetWorkerParameters replaces the parameters of an existing worker slot.
// The parameters are normalized first: out-of-domain policy values fall back
// to their defaults, and a DelayRounds of 0 becomes 1.
func (t *Tree) SetWorkerParameters(contextID, workerSlot int, params WorkerParameters) error {
	n, err := t.node(contextID)
	if err != nil {
		return err
	}
	if workerSlot < 0 || workerSlot >= len(n.workerParameters) {
		return fmt.Errorf("%w: worker slot %d of context %d", ErrOutOfRange, workerSlot, contextID)
	}
	n.workerParameters[workerSlot] = fixedWorkerParameters(params)
	return nil
}

// AddWorker plans an additional worker slot on an existing context and returns
// the new slot id. A nil params uses [DefaultWorkerParameters]; otherwise the
// parameters are normalized as for [Tree.SetWorkerParameters].
func (t *Tree) AddWorker(contextID int, params *WorkerParameters) (int, error) {
	n, err := t.node(contextID)
	if err != nil {
		return 0, err
	}
	p := DefaultWorkerParameters()
	if params != nil {
		p = fixedWorkerParameters(*params)
	}
	workerSlot := len(n.workerParameters)
	n.workerParameters = append(n.workerParameters, p)
	return workerSlot, nil
}

// Len returns the number of planned contexts.
func (t *Tree) Len() int {
	return len(t.nodes)
}

func (t *Tree) node(contextID int) (*treeNode, error) {
	if contextID < 0 || contextID >= len(t.nodes) {
		return nil, fmt.Errorf("%w: context id %d", ErrOutOfRange, contextID)
	}
	return &t.nodes[contextID], nil
}
