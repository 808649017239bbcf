package parse

import (
	"fmt"

	"github.com/cognicore/hansard/pkg/hansard/internalerr"
)

// Revision parses pages published under one historical markup convention,
// identified by the span of sitting years it was used for.
//
// No recognition rules exist yet for any revision, so every page is reported
// as unsupported and falls through to the next stage.
type Revision struct {
	From int
	To   int
}

// NewRevision creates a revision stage covering sitting years [from, to].
func NewRevision(from, to int) *Revision {
	return &Revision{From: from, To: to}
}

// Name implements Stage.
func (r *Revision) Name() string {
	return fmt.Sprintf("revision-%d-%d", r.From, r.To)
}

// Attempt implements Stage.
func (r *Revision) Attempt(doc string) (Result, error) {
	return Result{}, fmt.Errorf("%s: markup recognition not implemented: %w", r.Name(), internalerr.ErrUnsupported)
}
