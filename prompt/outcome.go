package prompt

import (
	"fmt"
	"strings"
)

// OutcomeKind tags the result of one submission.
type OutcomeKind string

const (
	OutcomeSkipped      OutcomeKind = "skipped" // local validation, no network call
	OutcomeSuccess      OutcomeKind = "success"
	OutcomeHTTPError    OutcomeKind = "httpError"
	OutcomeNetworkError OutcomeKind = "networkError"
	OutcomeAuthError    OutcomeKind = "authError"
)

// Outcome is the authoritative result of Client.Submit. Exactly one is
// produced per submission.
type Outcome struct {
	Kind     OutcomeKind
	Response string // set for OutcomeSuccess
	Status   int    // set for OutcomeHTTPError
	Detail   string // human-readable error detail
}

// Lines splits a success response into display lines.
func (o Outcome) Lines() []string {
	if o.Response == "" {
		return nil
	}
	return strings.Split(o.Response, "\n")
}

// Message returns a legible, user-facing description of the outcome.
func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomeSuccess:
		return o.Response
	case OutcomeSkipped:
		return "nothing to submit"
	case OutcomeAuthError:
		return fmt.Sprintf("authentication failed: %s", o.Detail)
	case OutcomeNetworkError:
		return fmt.Sprintf("could not reach the server: %s", o.Detail)
	case OutcomeHTTPError:
		if o.Detail != "" {
			return o.Detail
		}
		return fmt.Sprintf("server responded with status %d", o.Status)
	}
	return o.Detail
}

func skipped() Outcome {
	return Outcome{Kind: OutcomeSkipped}
}

func success(response string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Response: response}
}

func httpError(status int, detail string) Outcome {
	return Outcome{Kind: OutcomeHTTPError, Status: status, Detail: detail}
}

func networkError(detail string) Outcome {
	return Outcome{Kind: OutcomeNetworkError, Detail: detail}
}

func authError(detail string) Outcome {
	return Outcome{Kind: OutcomeAuthError, Detail: detail}
}
