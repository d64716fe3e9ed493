package webhook

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"

	"github.com/beevik/etree"

	"github.com/sirosfoundation/go-bluem/pkg/config"
	"github.com/sirosfoundation/go-bluem/pkg/registry"
	"github.com/sirosfoundation/go-bluem/pkg/response"
	"github.com/sirosfoundation/go-bluem/pkg/security"
)

var (
	ErrBadRequest          = errors.New("notification must be posted")
	ErrMalformedXML        = errors.New("notification is not well-formed XML")
	ErrInvalidSignature    = errors.New("notification signature is missing or invalid")
	ErrUnrecognizedPayload = errors.New("notification carries no supported status update")
	ErrNoTrustedKeys       = errors.New("no trusted certificates configured")
)

// KeySource selects the certificates trusted to sign notifications in an
// environment.
type KeySource interface {
	Certificates(env config.Environment) ([]*x509.Certificate, error)
}

// StaticKeys is a fixed KeySource.
type StaticKeys struct {
	byEnv    map[config.Environment][]*x509.Certificate
	fallback []*x509.Certificate
}

// NewStaticKeys trusts certs in every environment without a specific entry.
func NewStaticKeys(certs ...*x509.Certificate) *StaticKeys {
	return &StaticKeys{byEnv: map[config.Environment][]*x509.Certificate{}, fallback: certs}
}

// With returns a copy that trusts certs, and only certs, in env.
func (k *StaticKeys) With(env config.Environment, certs ...*x509.Certificate) *StaticKeys {
	next := &StaticKeys{byEnv: make(map[config.Environment][]*x509.Certificate, len(k.byEnv)+1), fallback: k.fallback}
	for e, c := range k.byEnv {
		next.byEnv[e] = c
	}
	next.byEnv[env] = certs
	return next
}

func (k *StaticKeys) Certificates(env config.Environment) ([]*x509.Certificate, error) {
	certs, ok := k.byEnv[env]
	if !ok {
		certs = k.fallback
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w for environment %s", ErrNoTrustedKeys, env)
	}
	return certs, nil
}

// Kind is the family of a status update.
type Kind string

const (
	KindPayment  Kind = "payment"
	KindMandate  Kind = "mandate"
	KindIdentity Kind = "identity"
)

type payload struct {
	iface  string
	update string
	kind   Kind
	code   registry.TransactionCode
}

var payloads = []payload{
	{"EPaymentInterface", "PaymentStatusUpdate", KindPayment, registry.PaymentStatusUpdate},
	{"EMandateInterface", "EMandateStatusUpdate", KindMandate, registry.MandateStatusUpdate},
	{"IdentityInterface", "IdentityStatusUpdate", KindIdentity, registry.IdentityStatusUpdate},
}

// Notification is a verified status update.
type Notification struct {
	// ID is assigned on receipt for log correlation.
	ID string
	// Probe is set for an empty liveness request; no other field is set.
	Probe bool
	Kind  Kind
	Code  registry.TransactionCode
	// Update is the parsed status update, one of *response.PaymentStatus,
	// *response.MandateStatus or *response.IdentityStatus.
	Update response.Response
	// Signed is the XML covered by the signature.
	Signed []byte
}

// EntranceCode returns the entrance code of the update, or "" for probes.
func (n *Notification) EntranceCode() string {
	if n.Update == nil {
		return ""
	}
	return n.Update.EntranceCode()
}

// Verifier checks inbound notifications for one environment.
type Verifier struct {
	keys KeySource
	env  config.Environment
}

func NewVerifier(keys KeySource, env config.Environment) *Verifier {
	return &Verifier{keys: keys, env: env}
}

// Verify checks one inbound request. A nil error means the notification was
// accepted; check Probe before reading the update.
func (v *Verifier) Verify(method string, body []byte) (*Notification, error) {
	if method != http.MethodPost {
		return nil, fmt.Errorf("%w: got %s", ErrBadRequest, method)
	}
	if len(body) == 0 {
		return &Notification{Probe: true}, nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
	}
	if doc.Root() == nil {
		return nil, ErrMalformedXML
	}

	certs, err := v.keys.Certificates(v.env)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	sv, err := security.NewVerifier(certs...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	signed, err := sv.Verify(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return parseUpdate(signed)
}

// parseUpdate reads the status update from signed content only.
func parseUpdate(signed []byte) (*Notification, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(signed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, ErrUnrecognizedPayload
	}

	for _, p := range payloads {
		if root.Tag != p.iface || root.SelectElement(p.update) == nil {
			continue
		}
		update, err := response.Parse(p.code, signed)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnrecognizedPayload, err)
		}
		return &Notification{Kind: p.kind, Code: p.code, Update: update, Signed: signed}, nil
	}
	return nil, fmt.Errorf("%w: root %s", ErrUnrecognizedPayload, root.Tag)
}
