package optimistic

// SubmissionGuard is a one-shot latch that tells a dismiss caused by a
// submit apart from a dismiss the user asked for.
//
// The zero value is ready to use. A guard belongs to one form and is used
// only on its document loop.
type SubmissionGuard struct {
	submitting bool
}

// MarkSubmitting sets the latch. Call it inside the submit handling, before
// anything that may trigger a dismiss.
func (g *SubmissionGuard) MarkSubmitting() {
	g.submitting = true
}

// TryDismiss reports whether a dismiss may proceed. A set latch is consumed
// and the dismiss is refused.
func (g *SubmissionGuard) TryDismiss() (dismissed bool) {
	if g.submitting {
		g.submitting = false
		return false
	}
	return true
}

// Submitting reports whether the latch is set.
func (g *SubmissionGuard) Submitting() bool {
	return g.submitting
}

// Reset clears the latch.
func (g *SubmissionGuard) Reset() {
	g.submitting = false
}
