package registry

import (
	"errors"
	"fmt"

	"github.com/sirosfoundation/go-bluem/pkg/config"
)

// ErrUnknownTransactionCode is returned for codes outside the provider's table.
var ErrUnknownTransactionCode = errors.New("invalid transaction type requested")

// TransactionCode identifies both the family and the operation of a message.
type TransactionCode string

const (
	MandateStatusRequest        TransactionCode = "SRX"
	MandateStatusUpdate         TransactionCode = "SUD"
	MandateTransactionRequest   TransactionCode = "TRX"
	MandateTransactionTest      TransactionCode = "TRS"
	PaymentStatusUpdate         TransactionCode = "PSU"
	PaymentStatusRequest        TransactionCode = "PSX"
	PaymentTransactionTest      TransactionCode = "PTS"
	PaymentTransactionRequest   TransactionCode = "PTX"
	IdentityStatusUpdate        TransactionCode = "ISU"
	IdentityStatusRequest       TransactionCode = "ISX"
	IdentityTransactionRequest  TransactionCode = "ITX"
	IBANCheckTransactionTest    TransactionCode = "INS"
	IBANCheckTransactionRequest TransactionCode = "INX"
)

// Codes lists the complete code table.
func Codes() []TransactionCode {
	return []TransactionCode{
		MandateStatusRequest, MandateStatusUpdate,
		MandateTransactionRequest, MandateTransactionTest,
		PaymentStatusUpdate, PaymentStatusRequest,
		PaymentTransactionTest, PaymentTransactionRequest,
		IdentityStatusUpdate, IdentityStatusRequest,
		IdentityTransactionRequest,
		IBANCheckTransactionTest, IBANCheckTransactionRequest,
	}
}

// ParseTransactionCode checks s against the code table.
func ParseTransactionCode(s string) (TransactionCode, error) {
	c := TransactionCode(s)
	if _, err := c.Variant(); err != nil {
		return "", err
	}
	return c, nil
}

// Variant is the kind of response a transaction code produces.
type Variant int

const (
	MandateStatus Variant = iota + 1
	MandateTransaction
	PaymentStatus
	PaymentTransaction
	IdentityStatus
	IdentityTransaction
	IBANNameCheck
)

func (v Variant) String() string {
	switch v {
	case MandateStatus:
		return "MandateStatus"
	case MandateTransaction:
		return "MandateTransaction"
	case PaymentStatus:
		return "PaymentStatus"
	case PaymentTransaction:
		return "PaymentTransaction"
	case IdentityStatus:
		return "IdentityStatus"
	case IdentityTransaction:
		return "IdentityTransaction"
	case IBANNameCheck:
		return "IBANNameCheck"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Family returns the family the variant belongs to.
func (v Variant) Family() Family {
	switch v {
	case MandateStatus, MandateTransaction:
		return Mandates
	case PaymentStatus, PaymentTransaction:
		return Payments
	case IdentityStatus, IdentityTransaction:
		return Identity
	case IBANNameCheck:
		return IBANCheck
	default:
		return 0
	}
}

// Variant maps the code onto its response variant.
func (c TransactionCode) Variant() (Variant, error) {
	switch c {
	case MandateStatusRequest, MandateStatusUpdate:
		return MandateStatus, nil
	case MandateTransactionRequest, MandateTransactionTest:
		return MandateTransaction, nil
	case PaymentStatusUpdate, PaymentStatusRequest:
		return PaymentStatus, nil
	case PaymentTransactionTest, PaymentTransactionRequest:
		return PaymentTransaction, nil
	case IdentityTransactionRequest:
		return IdentityTransaction, nil
	case IdentityStatusUpdate, IdentityStatusRequest:
		return IdentityStatus, nil
	case IBANCheckTransactionTest, IBANCheckTransactionRequest:
		return IBANNameCheck, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTransactionCode, string(c))
	}
}

// Family returns the family of the code.
func (c TransactionCode) Family() (Family, error) {
	v, err := c.Variant()
	if err != nil {
		return 0, err
	}
	return v.Family(), nil
}

// CreateCode returns the transaction code that opens a new transaction in the
// family. The test environment uses a dedicated code for mandates, payments
// and IBAN checks.
func CreateCode(f Family, env config.Environment) (TransactionCode, error) {
	test := env == config.Test
	switch f {
	case Mandates:
		if test {
			return MandateTransactionTest, nil
		}
		return MandateTransactionRequest, nil
	case Payments:
		if test {
			return PaymentTransactionTest, nil
		}
		return PaymentTransactionRequest, nil
	case Identity:
		return IdentityTransactionRequest, nil
	case IBANCheck:
		if test {
			return IBANCheckTransactionTest, nil
		}
		return IBANCheckTransactionRequest, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFamily, f)
	}
}

// StatusCode returns the transaction code used to query a transaction's status.
func StatusCode(f Family) (TransactionCode, error) {
	switch f {
	case Mandates:
		return MandateStatusRequest, nil
	case Payments:
		return PaymentStatusRequest, nil
	case Identity:
		return IdentityStatusRequest, nil
	default:
		return "", fmt.Errorf("%w: %s has no status request", ErrUnknownFamily, f)
	}
}
