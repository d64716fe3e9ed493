package security

import (
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"github.com/leifj/signedxml"
)

var (
	ErrMalformedXML     = errors.New("malformed XML")
	ErrSignatureMissing = errors.New("signature missing")
	ErrSignatureInvalid = errors.New("signature invalid")
)

// Verifier checks enveloped signatures against pinned certificates.
type Verifier struct {
	certs []*x509.Certificate
}

// NewVerifier returns a Verifier trusting any of certs. More than one
// certificate allows for key rollover.
func NewVerifier(certs ...*x509.Certificate) (*Verifier, error) {
	var trusted []*x509.Certificate
	for _, c := range certs {
		if c != nil {
			trusted = append(trusted, c)
		}
	}
	if len(trusted) == 0 {
		return nil, ErrNoCertificate
	}
	return &Verifier{certs: trusted}, nil
}

// Certificates returns the trusted certificates.
func (v *Verifier) Certificates() []*x509.Certificate {
	return append([]*x509.Certificate(nil), v.certs...)
}

// Verify validates the signature of doc and returns the signed content.
func (v *Verifier) Verify(doc []byte) ([]byte, error) {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
	}
	root := tree.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedXML)
	}
	if findSignature(root) == nil {
		return nil, ErrSignatureMissing
	}

	var lastErr error
	for _, cert := range v.certs {
		signed, err := verifyWith(string(doc), cert)
		if err == nil {
			return signed, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, lastErr)
}

func verifyWith(doc string, cert *x509.Certificate) ([]byte, error) {
	validator, err := signedxml.NewValidator(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}
	validator.Certificates = append(validator.Certificates, *cert)

	refs, err := validator.ValidateReferences()
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, errors.New("no validated references")
	}
	return []byte(refs[0]), nil
}
