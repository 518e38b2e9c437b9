package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind categorizes an upstream failure for the visitor-facing notice.
type Kind string

const (
	KindTimeout      Kind = "timeout"
	KindOffline      Kind = "offline"
	KindNotFound     Kind = "not_found"
	KindServer       Kind = "server"
	KindUnauthorized Kind = "unauthorized"
	KindGeneric      Kind = "generic"
)

// Error is returned by every Client call that fails.
type Error struct {
	Kind   Kind
	Status int
	Op     string
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindForStatus maps an HTTP status from the backend to a Kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status >= 500:
		return KindServer
	default:
		return KindGeneric
	}
}

// Classify returns the Kind of err. Errors that did not come from the
// client are classified by their shape.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return kindOfTransportError(err)
}

func kindOfTransportError(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return KindOffline
	}
	return KindGeneric
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	return Classify(err) == KindNotFound
}

// retryable reports whether a failed attempt may be repeated.
func retryable(err error) bool {
	var ue *Error
	if errors.As(err, &ue) {
		if ue.Status == http.StatusTooManyRequests {
			return true
		}
		switch ue.Kind {
		case KindTimeout, KindOffline, KindServer:
			return true
		}
		return false
	}
	switch kindOfTransportError(err) {
	case KindTimeout, KindOffline:
		return true
	}
	return false
}

// Notice is the categorized notification shown to visitors.
type Notice struct {
	Kind    Kind   `json:"kind"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

var notices = map[Kind]Notice{
	KindTimeout: {
		Title:   "The request took too long",
		Message: "The price service did not answer in time. Please try again.",
	},
	KindOffline: {
		Title:   "No connection",
		Message: "We could not reach the price service. Check your connection and retry.",
	},
	KindNotFound: {
		Title:   "Not found",
		Message: "The requested resource does not exist.",
	},
	KindServer: {
		Title:   "Server error",
		Message: "The price service had a problem. Please try again in a moment.",
	},
	KindUnauthorized: {
		Title:   "Access denied",
		Message: "You are not allowed to view this resource.",
	},
	KindGeneric: {
		Title:   "Something went wrong",
		Message: "An unexpected error occurred.",
	},
}

// NoticeFor builds the notice for err.
func NoticeFor(err error) Notice {
	kind := Classify(err)
	if kind == "" {
		kind = KindGeneric
	}
	n := notices[kind]
	n.Kind = kind
	return n
}

// HTTPStatus is the status the storefront answers with for a Kind.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindOffline, KindServer:
		return http.StatusBadGateway
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
