package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirosfoundation/go-bluem/pkg/config"
)

var (
	// ErrUnknownFamily is returned when a context is requested by an unsupported name.
	ErrUnknownFamily = errors.New("unknown transaction family")
)

// Family is a group of related transactions sharing an interface and schema.
type Family int

const (
	Mandates Family = iota + 1
	Payments
	Identity
	IBANCheck
)

// Families lists every supported family.
func Families() []Family {
	return []Family{Mandates, Payments, Identity, IBANCheck}
}

func (f Family) String() string {
	switch f {
	case Mandates:
		return "Mandates"
	case Payments:
		return "Payments"
	case Identity:
		return "Identity"
	case IBANCheck:
		return "IBANCheck"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// ParseFamily resolves a context name such as "Mandates" or "Payments".
func ParseFamily(name string) (Family, error) {
	for _, f := range Families() {
		if strings.EqualFold(f.String(), name) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q, should be one of Mandates, Payments, Identity, IBANCheck", ErrUnknownFamily, name)
}

// Issuer is a bank that can be selected for a transaction.
type Issuer struct {
	BIC  string
	Name string
}

// Context carries the per-family constants needed to build, validate and
// route a request. Contexts are created by a Registry and never change.
type Context struct {
	family              Family
	schema              string
	interfaceName       string
	urlType             string
	localInstrumentCode config.LocalInstrumentCode
	issuers             []Issuer
}

func (c *Context) Family() Family { return c.family }

// Schema is the path of the family XSD within the schema filesystem.
func (c *Context) Schema() string { return c.schema }

// InterfaceName is the name of the outer envelope element.
func (c *Context) InterfaceName() string { return c.interfaceName }

// URLType is the request URL segment, e.g. "mr" for mandates.
func (c *Context) URLType() string { return c.urlType }

// LocalInstrumentCode is only meaningful for Mandates.
func (c *Context) LocalInstrumentCode() config.LocalInstrumentCode { return c.localInstrumentCode }

// BICs returns a copy of the issuers accepted for this family.
func (c *Context) BICs() []Issuer {
	out := make([]Issuer, len(c.issuers))
	copy(out, c.issuers)
	return out
}

// BICCodes returns only the BIC of every accepted issuer.
func (c *Context) BICCodes() []string {
	out := make([]string, len(c.issuers))
	for i, iss := range c.issuers {
		out[i] = iss.BIC
	}
	return out
}

// Registry owns one Context per family. It is read-only after New.
type Registry struct {
	contexts map[Family]*Context
}

// New builds the registry for the given local instrument code.
func New(lic config.LocalInstrumentCode) *Registry {
	if lic != config.InstrumentB2B {
		lic = config.InstrumentCORE
	}
	mandateIssuers := coreMandateIssuers
	if lic == config.InstrumentB2B {
		mandateIssuers = b2bMandateIssuers
	}

	return &Registry{contexts: map[Family]*Context{
		Mandates: {
			family:              Mandates,
			schema:              "EMandate.xsd",
			interfaceName:       "EMandateInterface",
			urlType:             "mr",
			localInstrumentCode: lic,
			issuers:             mandateIssuers,
		},
		Payments: {
			family:        Payments,
			schema:        "EPayment.xsd",
			interfaceName: "EPaymentInterface",
			urlType:       "pr",
			issuers:       paymentIssuers,
		},
		Identity: {
			family:        Identity,
			schema:        "Identity.xsd",
			interfaceName: "IdentityInterface",
			urlType:       "ir",
			issuers:       identityIssuers,
		},
		IBANCheck: {
			family:        IBANCheck,
			schema:        "IBANCheck.xsd",
			interfaceName: "IBANCheckInterface",
			urlType:       "icr",
		},
	}}
}

// Context returns the context for a family.
func (r *Registry) Context(f Family) (*Context, error) {
	c, ok := r.contexts[f]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFamily, f)
	}
	return c, nil
}

// Lookup returns the context for a family name.
func (r *Registry) Lookup(name string) (*Context, error) {
	f, err := ParseFamily(name)
	if err != nil {
		return nil, err
	}
	return r.Context(f)
}

var (
	coreMandateIssuers = []Issuer{
		{"ABNANL2A", "ABN AMRO"},
		{"ASNBNL21", "ASN Bank"},
		{"BUNQNL2A", "bunq"},
		{"INGBNL2A", "ING"},
		{"KNABNL2H", "Knab"},
		{"RABONL2U", "Rabobank"},
		{"RBRBNL21", "RegioBank"},
		{"SNSBNL2A", "SNS"},
		{"TRIONL2U", "Triodos Bank"},
	}
	b2bMandateIssuers = []Issuer{
		{"ABNANL2A", "ABN AMRO"},
		{"INGBNL2A", "ING"},
		{"RABONL2U", "Rabobank"},
	}
	paymentIssuers = []Issuer{
		{"ABNANL2A", "ABN AMRO"},
		{"ASNBNL21", "ASN Bank"},
		{"BUNQNL2A", "bunq"},
		{"HANDNL2A", "Handelsbanken"},
		{"INGBNL2A", "ING"},
		{"KNABNL2H", "Knab"},
		{"RABONL2U", "Rabobank"},
		{"RBRBNL21", "RegioBank"},
		{"REVOLT21", "Revolut"},
		{"SNSBNL2A", "SNS"},
		{"TRIONL2U", "Triodos Bank"},
		{"FVLBNL22", "Van Lanschot"},
	}
	identityIssuers = []Issuer{
		{"ABNANL2A", "ABN AMRO"},
		{"ASNBNL21", "ASN Bank"},
		{"BUNQNL2A", "bunq"},
		{"INGBNL2A", "ING"},
		{"RABONL2U", "Rabobank"},
		{"RBRBNL21", "RegioBank"},
		{"SNSBNL2A", "SNS"},
	}
)

// IdentityCategory is an attribute set that can be requested through an
// identity transaction.
type IdentityCategory string

const (
	CustomerIDRequest      IdentityCategory = "CustomerIDRequest"
	CustomerIDLoginRequest IdentityCategory = "CustomerIDLoginRequest"
	NameRequest            IdentityCategory = "NameRequest"
	AddressRequest         IdentityCategory = "AddressRequest"
	BirthDateRequest       IdentityCategory = "BirthDateRequest"
	AgeCheckRequest        IdentityCategory = "AgeCheckRequest"
	GenderRequest          IdentityCategory = "GenderRequest"
	TelephoneRequest       IdentityCategory = "TelephoneRequest"
	EmailRequest           IdentityCategory = "EmailRequest"
)

// IdentityCategories lists every identity request category.
func IdentityCategories() []IdentityCategory {
	return []IdentityCategory{
		CustomerIDRequest,
		CustomerIDLoginRequest,
		NameRequest,
		AddressRequest,
		BirthDateRequest,
		AgeCheckRequest,
		GenderRequest,
		TelephoneRequest,
		EmailRequest,
	}
}

// Valid reports whether c is a known category.
func (c IdentityCategory) Valid() bool {
	for _, k := range IdentityCategories() {
		if k == c {
			return true
		}
	}
	return false
}
