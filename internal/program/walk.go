package program

// parent is implemented by units with children.
type parent interface {
	Children() []Unit
}

// Walk calls fn for u and every descendant, depth first in declaration order.
func Walk(u Unit, fn func(u Unit, depth int)) {
	walk(u, 0, fn)
}

func walk(u Unit, depth int, fn func(Unit, int)) {
	fn(u, depth)
	if p, ok := u.(parent); ok {
		for _, c := range p.Children() {
			walk(c, depth+1, fn)
		}
	}
}

// Summary counts the leaves of a graph by state.
type Summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
}

// Summarise counts the leaves under u.
func Summarise(u Unit) Summary {
	var s Summary
	Walk(u, func(n Unit, _ int) {
		if _, ok := n.(parent); ok {
			return
		}
		s.Total++
		switch n.State() {
		case StateCompleted:
			s.Completed++
		case StateFailed:
			s.Failed++
		case StateRunning:
			s.Running++
		default:
			s.Pending++
		}
	})
	return s
}

// LeafFailure is a failed leaf and its error.
type LeafFailure struct {
	Label string `json:"label"`
	Error string `json:"error"`
	err   error
}

// Unwrap returns the leaf's error.
func (f LeafFailure) Unwrap() error { return f.err }

// Failures returns every failed leaf under u in declaration order.
func Failures(u Unit) []LeafFailure {
	var out []LeafFailure
	Walk(u, func(n Unit, _ int) {
		if _, ok := n.(parent); ok {
			return
		}
		if n.State() == StateFailed {
			err := n.Err()
			out = append(out, LeafFailure{Label: n.Label(), Error: err.Error(), err: err})
		}
	})
	return out
}
