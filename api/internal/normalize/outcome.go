package normalize

import (
	"errors"
	"fmt"
	"strings"

	"dp-normalizer/api/internal/fields"
)

// ErrTransport marks failures of the model call itself.
var ErrTransport = errors.New("model transport error")

// ErrNoFallback is returned by RequestFallback on a Normalizer built without one.
var ErrNoFallback = errors.New("no fallback configured")

type State int

const (
	AwaitingFirstReply State = iota
	Extracting
	Flattening
	Validating
	AwaitingFallbackReply
	Extracting2
	Flattening2
	Validating2
	Success
	Failed
)

var stateNames = [...]string{
	AwaitingFirstReply:    "awaiting_first_reply",
	Extracting:            "extracting",
	Flattening:            "flattening",
	Validating:            "validating",
	AwaitingFallbackReply: "awaiting_fallback_reply",
	Extracting2:           "extracting_2",
	Flattening2:           "flattening_2",
	Validating2:           "validating_2",
	Success:               "success",
	Failed:                "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for i, n := range stateNames {
		if n == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

func (s State) Terminal() bool { return s == Success || s == Failed }

// Kind classifies a failed attempt. NoJSONFound and IncompleteFields are
// recovered by the fallback on the first attempt; the other two are terminal.
type Kind int

const (
	NoJSONFound Kind = iota + 1
	IncompleteFields
	TransportError
	FallbackExhausted
)

func (k Kind) String() string {
	switch k {
	case NoJSONFound:
		return "no_json_found"
	case IncompleteFields:
		return "incomplete_fields"
	case TransportError:
		return "transport_error"
	case FallbackExhausted:
		return "fallback_exhausted"
	default:
		return "none"
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

type Failure struct {
	Kind    Kind
	Missing []string
	Invalid []string
	// Cause is the kind of the last failed attempt behind a FallbackExhausted.
	Cause Kind
	Err   error
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Kind.String())
	if f.Cause != 0 {
		b.WriteString(" after " + f.Cause.String())
	}
	if len(f.Missing) > 0 {
		b.WriteString(": missing " + strings.Join(f.Missing, ", "))
	}
	if len(f.Invalid) > 0 {
		b.WriteString(": invalid " + strings.Join(f.Invalid, ", "))
	}
	if f.Err != nil {
		b.WriteString(": " + f.Err.Error())
	}
	return b.String()
}

func (f *Failure) Unwrap() error { return f.Err }

// Outcome is either a complete Record or a Failure, never both.
type Outcome struct {
	Record  fields.Record
	Failure *Failure
	Schema  string
	Trace   []State
	// ModelCalls counts the calls issued, the first one included when known.
	ModelCalls   int
	FallbackUsed bool
	Dropped      []string
}

func (o Outcome) OK() bool { return o.Failure == nil && o.Record != nil }

// Kind is the failure kind, or 0 on success.
func (o Outcome) Kind() Kind {
	if o.Failure == nil {
		return 0
	}
	return o.Failure.Kind
}

// Final is the terminal state reached.
func (o Outcome) Final() State {
	if len(o.Trace) == 0 {
		return AwaitingFirstReply
	}
	return o.Trace[len(o.Trace)-1]
}

// TransportFailure is the outcome of a first call that never produced a
// reply. No fallback follows it.
func TransportFailure(s *fields.Schema, err error) Outcome {
	if !errors.Is(err, ErrTransport) {
		err = fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return Outcome{
		Failure:    &Failure{Kind: TransportError, Err: err},
		Schema:     s.Name(),
		Trace:      []State{AwaitingFirstReply, Failed},
		ModelCalls: 1,
	}
}
