package gateway

import (
	"fmt"
)

// Kind classifies why a forwarded request did not produce a success response.
type Kind int

const (
	// UpstreamBusinessError: the backend answered with a status >= 400.
	UpstreamBusinessError Kind = iota + 1
	// UpstreamUnavailable: no usable answer arrived (refused, DNS, timeout, broken body).
	UpstreamUnavailable
	// InternalError: the outbound request could not be built.
	InternalError
)

func (k Kind) String() string {
	switch k {
	case UpstreamBusinessError:
		return "upstream_business_error"
	case UpstreamUnavailable:
		return "upstream_unavailable"
	case InternalError:
		return "internal_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ProxyError is returned by Client.Forward for every non-success outcome.
// StatusCode, Body and ContentType are set only for UpstreamBusinessError.
type ProxyError struct {
	Kind        Kind
	Service     string
	StatusCode  int
	Body        []byte
	ContentType string
	Err         error
}

func (e *ProxyError) Error() string {
	switch e.Kind {
	case UpstreamBusinessError:
		return fmt.Sprintf("%s responded with status %d", e.Service, e.StatusCode)
	case UpstreamUnavailable:
		return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
	default:
		return fmt.Sprintf("forward to %s: %v", e.Service, e.Err)
	}
}

func (e *ProxyError) Unwrap() error {
	return e.Err
}
