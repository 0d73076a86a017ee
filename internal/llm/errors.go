package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrCommunication is returned when no credential could complete a call.
var ErrCommunication = errors.New("error communicating with the completion service, please retry")

// Kind categorises a provider failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindRateLimited
	KindUnauthorized
	KindTransient
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindUnauthorized:
		return "unauthorized"
	case KindTransient:
		return "transient"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Error is a classified provider failure.
type Error struct {
	Kind       Kind
	Provider   Provider
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s (status %d): %s", e.Provider, e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf returns the classification of err, KindUnknown when it carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRateLimited reports whether err is a quota or rate-limit failure.
func IsRateLimited(err error) bool {
	return KindOf(err) == KindRateLimited
}

// Classify wraps err in an *Error. Structured status information (gax API errors,
// googleapi errors, gRPC status) wins over message matching.
func Classify(provider Provider, err error) *Error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}

	e := &Error{Kind: KindUnknown, Provider: provider, Cause: err}

	if errors.Is(err, context.DeadlineExceeded) {
		e.Kind = KindTransient
		return e
	}

	if apiErr, ok := apierror.FromError(err); ok {
		if code := apiErr.HTTPCode(); code > 0 {
			e.StatusCode = code
			if k := kindForHTTPStatus(code); k != KindUnknown {
				e.Kind = k
				return e
			}
		}
		if st := apiErr.GRPCStatus(); st != nil {
			if k := kindForCode(st.Code()); k != KindUnknown {
				e.Kind = k
				return e
			}
		}
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		e.StatusCode = gErr.Code
		if k := kindForHTTPStatus(gErr.Code); k != KindUnknown {
			e.Kind = k
			return e
		}
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.OK {
		if k := kindForCode(st.Code()); k != KindUnknown {
			e.Kind = k
			return e
		}
	}

	e.Kind = kindFromMessage(err.Error())
	return e
}

func kindForHTTPStatus(code int) Kind {
	switch code {
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	case http.StatusRequestTimeout, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindTransient
	default:
		return KindUnknown
	}
}

func kindForCode(code codes.Code) Kind {
	switch code {
	case codes.ResourceExhausted:
		return KindRateLimited
	case codes.Unauthenticated, codes.PermissionDenied:
		return KindUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.Internal:
		return KindTransient
	default:
		return KindUnknown
	}
}

var quotaMarkers = []string{"quota", "rate limit", "too many requests", "resource_exhausted", "429"}

func kindFromMessage(msg string) Kind {
	msg = strings.ToLower(msg)
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return KindRateLimited
		}
	}
	return KindUnknown
}
