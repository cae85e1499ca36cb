package ai

import (
	"context"
	"errors"
	"fmt"
	"net"

	openai "github.com/sashabaranov/go-openai"
)

// FailureKind distinguishes retryable assessor failures from permanent ones.
type FailureKind int

const (
	// FailureTransient covers timeouts, rate limits, upstream 5xx responses
	// and connection resets. Callers may retry.
	FailureTransient FailureKind = iota
	// FailureFatal covers malformed requests and authentication failures.
	// Retrying cannot help.
	FailureFatal
)

// Failure wraps an assessor error with its retry classification.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	if f.Kind == FailureFatal {
		return fmt.Sprintf("fatal assessor failure: %v", f.Err)
	}
	return fmt.Sprintf("transient assessor failure: %v", f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// IsTransient reports whether err is an assessor failure worth retrying.
// Unclassified errors are treated as transient; bounded retries make that the
// safe default for a flaky upstream.
func IsTransient(err error) bool {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Kind == FailureTransient
	}
	return true
}

func transient(err error) *Failure { return &Failure{Kind: FailureTransient, Err: err} }

func fatal(err error) *Failure { return &Failure{Kind: FailureFatal, Err: err} }

// classify maps an OpenAI client error onto the retry taxonomy.
func classify(err error) *Failure {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return transient(err)
		case apiErr.HTTPStatusCode >= 500:
			return transient(err)
		case apiErr.HTTPStatusCode >= 400:
			return fatal(err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return transient(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return transient(err)
	}

	return transient(err)
}
