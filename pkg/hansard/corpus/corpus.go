package corpus

import "github.com/cognicore/hansard/pkg/hansard/store"

// Row is one utterance joined with the page it came from.
type Row = store.SpeechRow

// Corpus is the ordered output of one build run. Rows follow the source scan
// order, so they are in ascending date order.
type Corpus struct {
	RunID string
	Rows  []Row
	Stats Stats
}

// Stats summarizes a build run.
type Stats struct {
	// Read is the number of source pages consumed.
	Read int
	// Parsed is the number of pages a stage accepted.
	Parsed int
	// Skipped is the number of pages no stage accepted, or that timed out.
	Skipped int
	// Rows is the number of corpus rows produced.
	Rows int
}

// Len returns the number of rows.
func (c *Corpus) Len() int {
	return len(c.Rows)
}
