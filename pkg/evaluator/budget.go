package evaluator

// Budget holds the resource limits for one evaluation. Zero means unlimited.
type Budget struct {
	MaxDepth int
}

// BudgetTracker tracks resource consumption during evaluation.
type BudgetTracker struct {
	Depth   int
	MaxSeen int
	Nodes   int
	Lookups int
}

func (t *BudgetTracker) enter() {
	t.Depth++
	t.Nodes++
	if t.Depth > t.MaxSeen {
		t.MaxSeen = t.Depth
	}
}

func (t *BudgetTracker) leave() {
	t.Depth--
}

func (b Budget) exceeded(t *BudgetTracker) bool {
	return b.MaxDepth > 0 && t.Depth > b.MaxDepth
}
