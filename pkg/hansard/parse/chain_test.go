package parse

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cognicore/hansard/pkg/hansard/internalerr"
)

// recorder returns stages that log their name to calls when attempted.
func recorder(calls *[]string) func(name string, res Result, err error) Stage {
	return func(name string, res Result, err error) Stage {
		return StageFunc(name, func(doc string) (Result, error) {
			*calls = append(*calls, name)
			return res, err
		})
	}
}

func TestChainFirstMatchWins(t *testing.T) {
	var calls []string
	stage := recorder(&calls)

	chain := NewChain(
		stage("s0", Result{}, internalerr.ErrUnsupported),
		stage("s1", Result{}, internalerr.ErrUnsupported),
		stage("s2", Single("id2", "speaker2", "speech2"), nil),
		stage("s3", Single("id3", "speaker3", "speech3"), nil),
	)

	res, err := chain.Parse("<p>x</p>")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if got := strings.Join(calls, ","); got != "s0,s1,s2" {
		t.Errorf("Expected stages s0,s1,s2 to be tried in order, got %s", got)
	}
	if res.Speeches[0] != "speech2" || res.Speakers[0] != "speaker2" || res.SpeakerIDs[0] != "id2" {
		t.Errorf("Expected result of stage s2, got %+v", res)
	}
}

func TestChainExhaustedAllUnsupported(t *testing.T) {
	var calls []string
	stage := recorder(&calls)

	chain := NewChain(
		stage("a", Result{}, internalerr.ErrUnsupported),
		stage("b", Result{}, internalerr.ErrUnsupported),
	)

	for i := 0; i < 2; i++ {
		_, err := chain.Parse("anything")
		if !errors.Is(err, internalerr.ErrChainExhausted) {
			t.Fatalf("Expected ErrChainExhausted, got %v", err)
		}

		var ex *ExhaustedError
		if !errors.As(err, &ex) {
			t.Fatalf("Expected *ExhaustedError, got %T", err)
		}
		if ex.Cause != nil {
			t.Errorf("No unexpected failure happened, cause should be nil, got %v", ex.Cause)
		}
		if strings.Join(ex.Stages, ",") != "a,b" {
			t.Errorf("Expected stages a,b, got %v", ex.Stages)
		}
	}

	// Repeated parses of the same document behave identically.
	if got := strings.Join(calls, ","); got != "a,b,a,b" {
		t.Errorf("Expected a,b,a,b, got %s", got)
	}
}

func TestChainUnexpectedErrorDelegates(t *testing.T) {
	boom := errors.New("boom")
	chain := NewChain(
		StageFunc("broken", func(string) (Result, error) { return Result{}, boom }),
		StageFunc("ok", func(string) (Result, error) { return Single("", "", "fine"), nil }),
	)

	res, err := chain.Parse("doc")
	if err != nil {
		t.Fatalf("Unexpected error from a non-final stage must be swallowed, got %v", err)
	}
	if res.Speeches[0] != "fine" {
		t.Errorf("Expected result of the second stage, got %+v", res)
	}
}

func TestChainUnexpectedErrorOnLastStage(t *testing.T) {
	boom := errors.New("boom")
	chain := NewChain(
		StageFunc("first", func(string) (Result, error) { return Result{}, internalerr.ErrUnsupported }),
		StageFunc("last", func(string) (Result, error) { return Result{}, boom }),
	)

	_, err := chain.Parse("doc")
	if !errors.Is(err, internalerr.ErrChainExhausted) {
		t.Fatalf("Expected ErrChainExhausted, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Exhausted error should carry the original failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "stage last") {
		t.Errorf("Error should name the failing stage: %v", err)
	}
}

func TestChainPanicIsRecovered(t *testing.T) {
	chain := NewChain(
		StageFunc("panics", func(string) (Result, error) { panic("index out of range") }),
	)

	_, err := chain.Parse("doc")
	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("Expected *ExhaustedError, got %v", err)
	}
	if ex.Cause == nil || !strings.Contains(ex.Cause.Error(), "index out of range") {
		t.Errorf("Expected panic value in cause, got %v", ex.Cause)
	}
	if len(ex.Trace) == 0 {
		t.Error("Expected a stack trace for a panicking stage")
	}
}

func TestChainPanicDelegatesToNextStage(t *testing.T) {
	chain := NewChain(
		StageFunc("panics", func(string) (Result, error) { panic("bad") }),
		NewFallback(),
	)

	res, err := chain.Parse("<p>Hello</p>")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if res.Speeches[0] != "Hello" {
		t.Errorf("Expected fallback result, got %+v", res)
	}
}

func TestChainInvalidResultIsUnexpected(t *testing.T) {
	chain := NewChain(
		StageFunc("ragged", func(string) (Result, error) {
			return Result{SpeakerIDs: []string{"a"}, Speakers: []string{"a", "b"}, Speeches: []string{"x"}}, nil
		}),
	)

	_, err := chain.Parse("doc")
	if !errors.Is(err, internalerr.ErrChainExhausted) {
		t.Fatalf("Expected ErrChainExhausted for a ragged result, got %v", err)
	}
	if !errors.Is(err, internalerr.ErrInvalidArgument) {
		t.Errorf("Cause should be the validation failure, got %v", err)
	}
}

func TestChainWrappedUnsupported(t *testing.T) {
	chain := NewChain(NewRevision(1901, 1988))

	_, err := chain.Parse("<p>x</p>")
	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("Expected *ExhaustedError, got %v", err)
	}
	if ex.Cause != nil {
		t.Errorf("Wrapped ErrUnsupported must not count as unexpected, got %v", ex.Cause)
	}
}

func TestEmptyChainIsExhausted(t *testing.T) {
	_, err := NewChain().Parse("<p>x</p>")
	if !errors.Is(err, internalerr.ErrChainExhausted) {
		t.Errorf("Empty chain should be exhausted, got %v", err)
	}
}

func TestChainParseContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DefaultChain().ParseContext(ctx, "<p>x</p>")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if errors.Is(err, internalerr.ErrChainExhausted) {
		t.Error("Cancellation must not be reported as exhaustion")
	}
}

func TestDefaultChain(t *testing.T) {
	chain := DefaultChain()

	if got := strings.Join(chain.Stages(), ","); got != "revision-1901-1988,fallback" {
		t.Errorf("Unexpected default stages: %s", got)
	}

	res, err := chain.Parse("<p>Hello</p>")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if res.Len() != 1 || res.Speeches[0] != "Hello" || res.Speakers[0] != "" || res.SpeakerIDs[0] != "" {
		t.Errorf("Unexpected result: %+v", res)
	}

	if _, err := chain.Parse("malformed tagless junk"); !errors.Is(err, internalerr.ErrChainExhausted) {
		t.Errorf("Tagless input should exhaust the default chain, got %v", err)
	}
}

func TestNewChainCopiesStages(t *testing.T) {
	stages := []Stage{NewFallback()}
	chain := NewChain(stages...)
	stages[0] = NewRevision(1, 2)

	if chain.Stages()[0] != "fallback" {
		t.Error("Chain should not observe changes to the caller's slice")
	}
}

func TestNewChainDropsNilStages(t *testing.T) {
	chain := NewChain(nil, NewRevision(1901, 1988), nil, NewFallback())

	if got := strings.Join(chain.Stages(), ","); got != "revision-1901-1988,fallback" {
		t.Errorf("Unexpected stages: %s", got)
	}
	res, err := chain.Parse("<p>Hello</p>")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if res.Speeches[0] != "Hello" {
		t.Errorf("Unexpected result: %+v", res)
	}

	if _, err := NewChain(nil).Parse("<p>x</p>"); !errors.Is(err, internalerr.ErrChainExhausted) {
		t.Errorf("A chain of only nil stages should be exhausted, got %v", err)
	}
}
