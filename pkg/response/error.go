package response

import (
	"fmt"
	"strings"

	"github.com/sirosfoundation/go-bluem/pkg/xsd"
)

// Kind classifies where an exchange failed.
type Kind int

const (
	// KindValidation means the request failed schema validation and was not sent.
	KindValidation Kind = iota + 1
	// KindTransport means no reply was obtained.
	KindTransport
	// KindProtocol means the provider replied with an error or an unusable document.
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the failure variant of Response.
type Error struct {
	Kind    Kind
	Message string
	// StatusCode is the HTTP status of the reply, or 0 when none was received.
	StatusCode  int
	Diagnostics []xsd.Diagnostic
	Err         error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Status() bool         { return false }
func (e *Error) EntranceCode() string { return "" }
func (e *Error) ErrorMessage() string { return e.Message }

// Messages returned for fixed failure conditions.
const (
	MsgTransport       = "HTTP Request Error"
	MsgEmptyResponse   = "Error: Empty response returned"
	MsgBadRequest      = "Your request was not formed correctly."
	MsgUnauthorized    = "Unauthorized: check your access credentials."
	MsgServerError     = "An unrecoverable error at the server side occurred while processing the request"
	msgInvalidRequest  = "Error: Request is not formed correctly. More details: "
	msgUnparsable      = "Error: Could not create Bluem Response object. More details: "
	msgUnexpectedCode  = "Unexpected / erroneous response (code %d)"
	msgProviderMessage = "Error: "
)

// FromValidation reports a request that failed schema validation.
func FromValidation(res *xsd.Result) *Error {
	return &Error{
		Kind:        KindValidation,
		Message:     msgInvalidRequest + res.String(),
		Diagnostics: res.Errors,
	}
}

// FromTransportError reports a request for which no reply was obtained.
func FromTransportError(err error) *Error {
	return &Error{Kind: KindTransport, Message: MsgTransport, Err: err}
}

func protocolError(status int, format string, args ...any) *Error {
	return &Error{Kind: KindProtocol, StatusCode: status, Message: fmt.Sprintf(format, args...)}
}

func providerError(status int, msg string) *Error {
	return &Error{Kind: KindProtocol, StatusCode: status, Message: msgProviderMessage + strings.TrimSpace(msg)}
}
