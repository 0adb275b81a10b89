package graph

import "sort"

// PendingOperations returns the dirty operations below src, sorted by
// (depth asc, id asc). Computing them in that order visits every parent
// before its children.
//
// It does not recompute or otherwise mutate the graph.
func PendingOperations(src DataSource) []*Operation {
	if src == nil {
		return nil
	}
	depth := map[*Operation]int{}
	var pending []*Operation
	var walk func(ops []*Operation, d int)
	walk = func(ops []*Operation, d int) {
		for _, op := range ops {
			if op.dirty {
				pending = append(pending, op)
				depth[op] = d
			}
			walk(op.children, d+1)
		}
	}
	walk(src.Children(), 1)
	sortByDepth(pending, depth)
	return pending
}

// PendingOperations merges the pending operations of every dataset.
func (p *Problem) PendingOperations() []*Operation {
	depth := map[*Operation]int{}
	var pending []*Operation
	for _, ds := range p.datasets {
		for _, op := range PendingOperations(ds) {
			pending = append(pending, op)
			depth[op] = op.Depth()
		}
	}
	sortByDepth(pending, depth)
	return pending
}

func sortByDepth(ops []*Operation, depth map[*Operation]int) {
	sort.SliceStable(ops, func(i, j int) bool {
		a, b := ops[i], ops[j]
		if depth[a] != depth[b] {
			return depth[a] < depth[b]
		}
		return a.id < b.id
	})
}

// Depth is the number of edges between the operation and its root dataset.
func (o *Operation) Depth() int {
	d := 0
	for p := DataSource(o); p != nil && p.Parent() != nil; p = p.Parent() {
		d++
	}
	return d
}

// NodeResult pairs an operation with the outcome of bringing it up to date.
type NodeResult struct {
	Op     *Operation
	Result CacheResult
}

// ComputePending brings every pending operation up to date in dependency
// order. Operations already computed as a side effect of an earlier one are
// reported as ready.
func (p *Problem) ComputePending() []NodeResult {
	pending := p.PendingOperations()
	out := make([]NodeResult, 0, len(pending))
	for _, op := range pending {
		out = append(out, NodeResult{Op: op, Result: op.CheckCache()})
	}
	return out
}
