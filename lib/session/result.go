package session

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Flush Result
// --------------------------------------------------------------------------

// VetoRecord reports one entity excluded from a flush by a before-* listener.
type VetoRecord struct {
	ID    string
	Cause error
}

// FlushResult enumerates the per-entity outcome of one SaveChanges call.
// The session never silently swallows a conflict or veto; callers inspect
// this result to see exactly which entities were written, which conflicted
// and which were vetoed.
type FlushResult struct {
	// Applied lists identifiers whose commands took effect, in command order.
	Applied []string
	// Conflicted lists identifiers rejected by the executor's version check.
	// Non-empty only when SaveChanges also returned a ConcurrencyConflict
	// error; the affected entities remain dirty in the session.
	Conflicted []string
	// Vetoed lists entities excluded from the batch by listeners. A vetoed
	// entity does not abort its siblings.
	Vetoed []VetoRecord
}

// Empty reports whether the flush had nothing to do.
func (r *FlushResult) Empty() bool {
	return len(r.Applied) == 0 && len(r.Conflicted) == 0 && len(r.Vetoed) == 0
}

// String returns a compact summary for log output.
func (r *FlushResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "FlushResult{applied=%d", len(r.Applied))
	if len(r.Conflicted) > 0 {
		fmt.Fprintf(&sb, ", conflicted=%s", strings.Join(r.Conflicted, ","))
	}
	if len(r.Vetoed) > 0 {
		fmt.Fprintf(&sb, ", vetoed=%d", len(r.Vetoed))
	}
	sb.WriteString("}")
	return sb.String()
}
