package fetch

import (
	"fmt"
	"strings"
	"time"
)

// ErrorType classifies a fetch failure for retry and reporting policy.
type ErrorType string

const (
	ErrTimeout   ErrorType = "timeout"
	ErrNetwork   ErrorType = "network"
	ErrRateLimit ErrorType = "rate_limit"
	ErrParse     ErrorType = "parse"
	ErrUnknown   ErrorType = "unknown"
)

// Error is the structured failure record carried through the pipeline.
// RetryCount is the number of retries actually spent, which the
// auto-disable pass inspects to find abort-heavy sources.
type Error struct {
	Type       ErrorType
	SourceID   string
	RetryCount int
	Timestamp  time.Time
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s [%s, retries=%d]: %s", e.SourceID, e.Type, e.RetryCount, e.Message)
}

// Classify maps raw error text to an ErrorType by lowercase substring.
func Classify(msg string) ErrorType {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "timeout"), strings.Contains(m, "abort"):
		return ErrTimeout
	case strings.Contains(m, "network"), strings.Contains(m, "fetch"), strings.Contains(m, "connect"):
		return ErrNetwork
	case strings.Contains(m, "rate"), strings.Contains(m, "limit"), strings.Contains(m, "429"):
		return ErrRateLimit
	case strings.Contains(m, "parse"), strings.Contains(m, "json"):
		return ErrParse
	default:
		return ErrUnknown
	}
}
