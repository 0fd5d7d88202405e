package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/apex/log"
	"google.golang.org/api/googleapi"
)

// RetryPolicy controls how generation calls are retried. Overload responses
// get up to MaxAttempts tries with a linearly increasing delay; any other
// failure gets exactly one retry after a short fixed delay.
type RetryPolicy struct {
	MaxAttempts    int
	OverloadDelay  time.Duration // multiplied by the attempt number
	TransientDelay time.Duration

	// Sleep is replaceable for tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

// DefaultRetryPolicy returns the production retry policy: three attempts for
// overload with 2s, 4s waits, one 1s retry for anything else.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		OverloadDelay:  2 * time.Second,
		TransientDelay: 1 * time.Second,
	}
}

// Do runs fn under the policy. Prompts are never cached or deduplicated;
// every invocation of fn is a fresh call.
func (p RetryPolicy) Do(ctx context.Context, fn func() (string, error)) (string, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	attempts := 0
	transientRetried := false
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", &GenerationError{Attempts: attempts, Cause: err}
		}

		out, err := fn()
		attempts = attempt
		if err == nil {
			return out, nil
		}
		lastErr = err

		if IsOverloaded(err) {
			if attempt == maxAttempts {
				break
			}
			delay := time.Duration(attempt) * p.OverloadDelay
			log.WithField("attempt", attempt).WithField("delay", delay).
				Warn("model overloaded, retrying")
			sleep(delay)
			continue
		}

		if transientRetried || attempt == maxAttempts {
			break
		}
		transientRetried = true
		log.WithError(err).WithField("attempt", attempt).Warn("generation attempt failed, retrying once")
		sleep(p.TransientDelay)
	}

	return "", &GenerationError{Attempts: attempts, Cause: lastErr}
}

// IsOverloaded reports whether an error is a "service overloaded" response
// (HTTP 503 from the Gemini API, or the overload phrasing it uses).
func IsOverloaded(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 503 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "overloaded") || strings.Contains(msg, "503")
}
