// Package session owns the process-wide mapping from pane identity to live
// session. A session is a backend handle plus its current display binding.
//
// The registry is deliberately separate from the layout tree: trees are
// torn down and rebuilt for reasons unrelated to session lifetime (resize,
// tab switch, reflow), so a pane's visual container may mount and unmount
// repeatedly while its session persists untouched. Each remount swaps the
// session's output sink via AttachDisplay; the session is destroyed only by
// an explicit Release when the pane itself is closed.
//
// The registry is the sole writer of session entries. Asynchronous results
// (backend handle acquisition, working-directory queries) re-enter through
// the same locked entry points, so every state transition is serialized.
// Handle acquisition cannot be cancelled, so on resolution the registry
// re-checks that the pane is still registered and kills the handle instead
// of attaching it when the pane was closed in the meantime.
package session
