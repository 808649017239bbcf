package parse

import (
	"errors"
	"testing"

	"github.com/cognicore/hansard/pkg/hansard/internalerr"
)

func TestFallbackStripsMarkup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple paragraph",
			input: "<p>Hello</p>",
			want:  "Hello",
		},
		{
			name:  "multiple tags",
			input: "<div><p>Hello</p><p>World</p></div>",
			want:  "HelloWorld",
		},
		{
			name:  "nested tags",
			input: "<p><strong>Mr SPEAKER</strong> took the chair at <em>2.30 p.m.</em></p>",
			want:  "Mr SPEAKER took the chair at 2.30 p.m.",
		},
		{
			name:  "entities decoded",
			input: "<p>Debt &amp; deficit</p>",
			want:  "Debt & deficit",
		},
		{
			name:  "script and style dropped",
			input: "<html><head><style>p{}</style><script>var x = 1;</script></head><body><p>Order!</p></body></html>",
			want:  "Order!",
		},
		{
			name:  "comments dropped",
			input: "<p>Question<!-- page 12 --> time</p>",
			want:  "Question time",
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "\n  <p>  Adjourned  </p>\n",
			want:  "Adjourned",
		},
		{
			name:  "unclosed tags",
			input: "<p>Hear, hear<p>Order",
			want:  "Hear, hearOrder",
		},
		{
			name:  "empty element",
			input: "<br/>",
			want:  "",
		},
	}

	stage := NewFallback()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := stage.Attempt(tt.input)
			if err != nil {
				t.Fatalf("Attempt(%q) failed: %v", tt.input, err)
			}
			if err := res.Validate(); err != nil {
				t.Fatalf("Invalid result: %v", err)
			}
			if res.Len() != 1 {
				t.Fatalf("Expected a single speech, got %d", res.Len())
			}
			if res.Speeches[0] != tt.want {
				t.Errorf("Attempt(%q) speech = %q, want %q", tt.input, res.Speeches[0], tt.want)
			}
			if res.Speakers[0] != "" || res.SpeakerIDs[0] != "" {
				t.Errorf("Fallback should not attribute speakers, got %+v", res)
			}
		})
	}
}

func TestFallbackRejectsNonMarkup(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"malformed tagless junk",
		"a < b and c > d",
		"<!-- only a comment -->",
	}

	stage := NewFallback()
	for _, input := range inputs {
		_, err := stage.Attempt(input)
		if !errors.Is(err, internalerr.ErrUnsupported) {
			t.Errorf("Attempt(%q) should be unsupported, got %v", input, err)
		}
	}
}

func TestRevisionIsUnsupported(t *testing.T) {
	stage := NewRevision(1901, 1988)

	if stage.Name() != "revision-1901-1988" {
		t.Errorf("Unexpected name %q", stage.Name())
	}

	_, err := stage.Attempt("<p>Mr SPEAKER: Order!</p>")
	if !errors.Is(err, internalerr.ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
}

func TestResultValidate(t *testing.T) {
	if err := (Result{}).Validate(); err != nil {
		t.Errorf("Empty result should be valid: %v", err)
	}
	if err := Single("", "", "x").Validate(); err != nil {
		t.Errorf("Single result should be valid: %v", err)
	}

	ragged := Result{SpeakerIDs: []string{"1", "2"}, Speakers: []string{"a", "b"}, Speeches: []string{"x"}}
	if err := ragged.Validate(); !errors.Is(err, internalerr.ErrInvalidArgument) {
		t.Errorf("Ragged result should fail validation, got %v", err)
	}
}
