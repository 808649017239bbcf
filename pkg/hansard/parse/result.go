package parse

import (
	"fmt"

	"github.com/cognicore/hansard/pkg/hansard/internalerr"
)

// Result holds the utterances extracted from one page. The three slices are
// parallel: index i of each describes the same utterance. An empty speaker or
// speaker ID means the stage could not attribute the speech.
type Result struct {
	SpeakerIDs []string
	Speakers   []string
	Speeches   []string
}

// Single builds a one-utterance result.
func Single(speakerID, speaker, speech string) Result {
	return Result{
		SpeakerIDs: []string{speakerID},
		Speakers:   []string{speaker},
		Speeches:   []string{speech},
	}
}

// Len returns the number of utterances.
func (r Result) Len() int {
	return len(r.Speeches)
}

// Validate checks that the parallel slices line up.
func (r Result) Validate() error {
	if len(r.SpeakerIDs) != len(r.Speeches) || len(r.Speakers) != len(r.Speeches) {
		return fmt.Errorf("%w: result has %d speaker ids, %d speakers, %d speeches",
			internalerr.ErrInvalidArgument, len(r.SpeakerIDs), len(r.Speakers), len(r.Speeches))
	}
	return nil
}
