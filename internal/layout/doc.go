// Package layout implements the pane layout tree for a workspace tab.
//
// A tree is an n-ary structure of split and leaf nodes. Leaves are panes;
// splits divide space among two or more children along one axis. All tree
// operations are pure: they return a new root and share every unaffected
// subtree by reference, so previously held tree versions stay valid and a
// tree can be rebuilt freely without touching the sessions bound to its
// panes. Pane identity is carried by the tree but session state is not;
// the session registry owns that mapping.
//
// Operations are total. Referencing an unknown pane is a silent no-op and
// hitting the same-direction sibling cap returns the input tree unchanged.
package layout
