package engine

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrOverflow    = errors.New("token budget overflow")
	ErrUnavailable = errors.New("inference engine unavailable")
	ErrTimeout     = errors.New("inference call timed out")
)

type Kind string

const (
	KindOverflow    Kind = "overflow"
	KindTimeout     Kind = "timeout"
	KindUnavailable Kind = "unavailable"
	KindOther       Kind = "other"
)

// Classify maps an engine error onto the retry taxonomy. Local inference
// servers report overflow in free text, so string sniffing is the fallback
// when no sentinel matched.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrOverflow):
		return KindOverflow
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "timeout"), strings.Contains(e, "deadline"):
		return KindTimeout
	case strings.Contains(e, "context size"), strings.Contains(e, "context length"),
		strings.Contains(e, "too long"), strings.Contains(e, "exceed"), strings.Contains(e, "overflow"):
		return KindOverflow
	case strings.Contains(e, "connection refused"), strings.Contains(e, "no such host"),
		strings.Contains(e, "unavailable"), strings.Contains(e, "eof"):
		return KindUnavailable
	default:
		return KindOther
	}
}

// overflowMarkers are strings local servers emit inside otherwise-successful
// output when the prompt blew the context window.
var overflowMarkers = []string{
	"exceeds the available context size",
	"context length exceeded",
	"input is too long",
}

func OutputIndicatesOverflow(s string) bool {
	low := strings.ToLower(s)
	for _, m := range overflowMarkers {
		if strings.Contains(low, m) {
			return true
		}
	}
	return false
}
