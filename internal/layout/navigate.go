package layout

// NextPane returns the ID of the pane following from in the canonical
// depth-first order, wrapping around at the end. When from is absent or the
// tree holds a single pane, from is returned unchanged.
func NextPane(root Node, from PaneID) PaneID {
	return step(root, from, 1)
}

// PrevPane returns the ID of the pane preceding from in the canonical
// depth-first order, wrapping around at the start. When from is absent or
// the tree holds a single pane, from is returned unchanged.
func PrevPane(root Node, from PaneID) PaneID {
	return step(root, from, -1)
}

func step(root Node, from PaneID, delta int) PaneID {
	panes := FindAllPanes(root)
	if len(panes) < 2 {
		return from
	}
	for i, pane := range panes {
		if pane.ID == from {
			next := (i + delta + len(panes)) % len(panes)
			return panes[next].ID
		}
	}
	return from
}
