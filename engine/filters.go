package engine

// ============================================================================
// FILTERS — Column-Based Filtering via RecordView
// ============================================================================
// Single-pass filter: checks ALL column constraints per record in one loop.
// Returns a SubView (index list into parent) — zero data copy.
//
// Constraints on columns the view does not carry are dropped up front, so a
// dataset missing an optional column is filtered as if the constraint were
// never set. A null cell never satisfies an active constraint.
// ============================================================================

// ApplyFilters returns a view of records matching every active constraint.
// Columns are AND-combined; values within a Sets entry are OR-combined.
// Empty filter = no restriction (returns original view).
func ApplyFilters(view RecordView, filters Filters) RecordView {
	if filters.IsEmpty() {
		return view
	}

	preds := compilePredicates(view, filters)
	if len(preds) == 0 {
		return view
	}

	// Single pass — record passes if it matches ALL predicates
	n := view.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		row := view.Index(i)
		pass := true
		for _, p := range preds {
			if !p(row) {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}

	return newSubView(view, indices)
}

type predicate func(row int) bool

// compilePredicates resolves each active constraint to its column once.
func compilePredicates(view RecordView, filters Filters) []predicate {
	var preds []predicate

	for key, allowed := range filters.Sets {
		if len(allowed) == 0 {
			continue
		}
		col, ok := view.Column(key)
		if !ok {
			continue
		}
		set := toSet(allowed)
		preds = append(preds, func(row int) bool {
			v, ok := col.Text(row)
			return ok && set[v]
		})
	}

	for key, r := range filters.Ranges {
		col, ok := view.Column(key)
		if !ok {
			continue
		}
		r := r
		preds = append(preds, func(row int) bool {
			v, ok := col.Float(row)
			return ok && r.Contains(v)
		})
	}

	for key, want := range filters.Equals {
		if want == "" || want == AllValue {
			continue
		}
		col, ok := view.Column(key)
		if !ok {
			continue
		}
		want := want
		preds = append(preds, func(row int) bool {
			v, ok := col.Text(row)
			return ok && v == want
		})
	}

	return preds
}

// toSet converts a string slice to a lookup set.
func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
