package response

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/sirosfoundation/go-bluem/pkg/registry"
)

// TypeErrorResponse is the interface type of a provider error document.
const TypeErrorResponse = "ErrorResponse"

// ErrNoRootElement is returned when a reply holds no XML element.
var ErrNoRootElement = errors.New("no root element")

// Response is the outcome of one provider exchange.
type Response interface {
	// Status reports whether the provider accepted the request.
	Status() bool
	EntranceCode() string
	ErrorMessage() string
}

// TransactionStatus is the provider's state of a transaction.
type TransactionStatus string

const (
	StatusNew        TransactionStatus = "New"
	StatusOpen       TransactionStatus = "Open"
	StatusPending    TransactionStatus = "Pending"
	StatusProcessing TransactionStatus = "Processing"
	StatusSuccess    TransactionStatus = "Success"
	StatusCancelled  TransactionStatus = "Cancelled"
	StatusExpired    TransactionStatus = "Expired"
	StatusFailure    TransactionStatus = "Failure"
)

// Final reports whether the status can no longer change.
func (s TransactionStatus) Final() bool {
	switch s {
	case StatusSuccess, StatusCancelled, StatusExpired, StatusFailure:
		return true
	}
	return false
}

// errorNodes lists the error element names per family. The identity family
// has been seen with both spellings.
var errorNodes = map[registry.Family][]string{
	registry.Mandates:  {"EMandateErrorResponse"},
	registry.Payments:  {"PaymentErrorResponse"},
	registry.Identity:  {"IdentityErrorResponse", "IDentityErrorResponse"},
	registry.IBANCheck: {"IBANCheckErrorResponse"},
}

// document is the part shared by every success variant.
type document struct {
	doc    *etree.Document
	root   *etree.Element
	parent string
	family registry.Family
}

func (d *document) errorElement() *etree.Element {
	for _, name := range errorNodes[d.family] {
		if el := d.root.SelectElement(name); el != nil {
			return el
		}
	}
	return nil
}

func (d *document) Status() bool { return d.errorElement() == nil }

// Type is the type attribute of the outer element.
func (d *document) Type() string { return d.root.SelectAttrValue("type", "") }

// Root returns the outer interface element.
func (d *document) Root() *etree.Element { return d.root }

// Element returns the variant's payload element, or nil when absent.
func (d *document) Element() *etree.Element { return d.root.SelectElement(d.parent) }

func (d *document) EntranceCode() string {
	if el := d.Element(); el != nil {
		return el.SelectAttrValue("entranceCode", "")
	}
	return ""
}

// ErrorMessage returns the provider error text, or "" when there is none.
func (d *document) ErrorMessage() string {
	if el := d.errorElement(); el != nil {
		return text(el, "Error/ErrorMessage")
	}
	return text(d.root, "Error/ErrorMessage")
}

// XML renders the reply document.
func (d *document) XML() ([]byte, error) { return d.doc.WriteToBytes() }

func (d *document) field(path string) string {
	el := d.Element()
	if el == nil {
		return ""
	}
	return text(el, path)
}

func text(el *etree.Element, path string) string {
	if found := el.FindElement(path); found != nil {
		return found.Text()
	}
	return ""
}

func amount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Parse builds the success variant for code from a reply body without
// applying any classification rules.
func Parse(code registry.TransactionCode, body []byte) (Response, error) {
	v, err := code.Variant()
	if err != nil {
		return nil, err
	}
	d, err := parseDocument(body)
	if err != nil {
		return nil, err
	}
	d.family = v.Family()
	return newVariant(v, d), nil
}

func parseDocument(body []byte) (*document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, ErrNoRootElement
	}
	return &document{doc: doc, root: root}, nil
}

func newVariant(v registry.Variant, d *document) Response {
	switch v {
	case registry.MandateStatus:
		d.parent = "EMandateStatusUpdate"
		return &MandateStatus{d}
	case registry.MandateTransaction:
		d.parent = "EMandateTransactionResponse"
		return &MandateTransaction{d}
	case registry.PaymentStatus:
		d.parent = "PaymentStatusUpdate"
		return &PaymentStatus{d}
	case registry.PaymentTransaction:
		d.parent = "PaymentTransactionResponse"
		return &PaymentTransaction{d}
	case registry.IdentityStatus:
		d.parent = "IdentityStatusUpdate"
		return &IdentityStatus{d}
	case registry.IdentityTransaction:
		d.parent = "IdentityTransactionResponse"
		return &IdentityTransaction{d}
	case registry.IBANNameCheck:
		d.parent = "IBANCheckTransactionResponse"
		return &IBANNameCheck{d}
	}
	panic(fmt.Sprintf("response: unhandled variant %s", v))
}
