package outline

// Stats aggregates a subtree in one traversal.
type Stats struct {
	Nodes     int `json:"nodes"`
	Starred   int `json:"starred"`
	Completed int `json:"completed"`
}

func (s Stats) Incomplete() int { return s.Nodes - s.Completed }

// Stats counts the nodes below root.
func (t *Tree) Stats(root ID) Stats {
	var s Stats
	for n := range t.Walk(root) {
		s.Nodes++
		if n.Starred {
			s.Starred++
		}
		if n.Completed {
			s.Completed++
		}
	}
	return s
}
