package response

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

// Currency of every amount the provider reports.
const Currency = "EUR"

// MandateTransaction is the reply to a new e-mandate.
type MandateTransaction struct{ *document }

// TransactionURL is where the debtor signs the mandate.
func (r *MandateTransaction) TransactionURL() string { return r.field("TransactionURL") }
func (r *MandateTransaction) MandateID() string      { return r.field("MandateID") }
func (r *MandateTransaction) TransactionID() string  { return r.field("TransactionID") }

// MandateStatus is a status reply or status update for an e-mandate.
type MandateStatus struct{ *document }

func (r *MandateStatus) MandateID() string { return r.field("EMandateStatus/MandateID") }

func (r *MandateStatus) TransactionStatus() TransactionStatus {
	return TransactionStatus(r.field("EMandateStatus/Status"))
}

// MaxAmount is the maximum collection amount the debtor accepted, in EUR.
// It is zero when the acceptance report carries none.
func (r *MandateStatus) MaxAmount() decimal.Decimal {
	return amount(r.field("EMandateStatus/AcceptanceReport/MaxAmount"))
}

func (r *MandateStatus) DebtorIBAN() string {
	return r.field("EMandateStatus/AcceptanceReport/DebtorIBAN")
}

func (r *MandateStatus) DebtorAccountName() string {
	return r.field("EMandateStatus/AcceptanceReport/DebtorAccountName")
}

// PaymentTransaction is the reply to a new payment.
type PaymentTransaction struct{ *document }

func (r *PaymentTransaction) TransactionURL() string   { return r.field("TransactionURL") }
func (r *PaymentTransaction) TransactionID() string    { return r.field("TransactionID") }
func (r *PaymentTransaction) PaymentReference() string { return r.field("PaymentReference") }
func (r *PaymentTransaction) DebtorReference() string  { return r.field("DebtorReference") }

// PaymentStatus is a status reply or status update for a payment.
type PaymentStatus struct{ *document }

func (r *PaymentStatus) TransactionID() string { return r.field("TransactionID") }

func (r *PaymentStatus) TransactionStatus() TransactionStatus {
	return TransactionStatus(r.field("Status"))
}

func (r *PaymentStatus) DebtorReference() string { return r.field("DebtorReference") }

// Amount is the paid amount reported in the payment details, or zero.
func (r *PaymentStatus) Amount() decimal.Decimal {
	if s := r.field("PaymentDetails/Amount"); s != "" {
		return amount(s)
	}
	return amount(r.field("Amount"))
}

// IdentityTransaction is the reply to a new identity request.
type IdentityTransaction struct{ *document }

func (r *IdentityTransaction) TransactionURL() string { return r.field("TransactionURL") }
func (r *IdentityTransaction) TransactionID() string  { return r.field("TransactionID") }

// IdentityStatus is a status reply or status update for an identity request.
type IdentityStatus struct{ *document }

func (r *IdentityStatus) TransactionID() string { return r.field("TransactionID") }

func (r *IdentityStatus) TransactionStatus() TransactionStatus {
	return TransactionStatus(r.field("Status"))
}

// IdentityReport flattens the identity report into slash separated element
// paths, for example "NameResponse/LegalLastName".
func (r *IdentityStatus) IdentityReport() map[string]string {
	out := map[string]string{}
	el := r.Element()
	if el == nil {
		return out
	}
	report := el.SelectElement("IdentityReport")
	if report == nil {
		return out
	}
	var walk func(prefix string, children []*etree.Element)
	walk = func(prefix string, children []*etree.Element) {
		for _, c := range children {
			path := c.Tag
			if prefix != "" {
				path = prefix + "/" + c.Tag
			}
			if kids := c.ChildElements(); len(kids) > 0 {
				walk(path, kids)
				continue
			}
			out[path] = strings.TrimSpace(c.Text())
		}
	}
	walk("", report.ChildElements())
	return out
}

// IBANResult is the outcome of the IBAN part of a name check.
type IBANResult string

const (
	IBANKnown          IBANResult = "KNOWN"
	IBANUnknown        IBANResult = "UNKNOWN"
	IBANInvalid        IBANResult = "INVALID"
	IBANUnavailable    IBANResult = "SERVICE_TEMPORARILY_NOT_AVAILABLE"
	IBANForeignAccount IBANResult = "FOREIGN_ACCOUNT"
)

// NameResult is the outcome of the name part of a name check.
type NameResult string

const (
	NameMatching    NameResult = "MATCHING"
	NameMistyped    NameResult = "MISTYPED"
	NameNotMatching NameResult = "NOT_MATCHING"
	NameCannotCheck NameResult = "COULD_NOT_MATCH"
)

// IBANNameCheck is the reply to an IBAN name check.
type IBANNameCheck struct{ *document }

func (r *IBANNameCheck) IBAN() string        { return r.field("IBAN") }
func (r *IBANNameCheck) AssumedName() string { return r.field("AssumedName") }

func (r *IBANNameCheck) IBANResult() IBANResult {
	return IBANResult(r.field("IBANCheckResult/IBANResult"))
}

func (r *IBANNameCheck) NameResult() NameResult {
	return NameResult(r.field("IBANCheckResult/NameResult"))
}

// SuggestedName is set when the name was mistyped.
func (r *IBANNameCheck) SuggestedName() string { return r.field("IBANCheckResult/SuggestedName") }

func (r *IBANNameCheck) AccountStatus() string { return r.field("IBANCheckResult/AccountStatus") }
func (r *IBANNameCheck) AccountType() string   { return r.field("AccountDetails/AccountType") }

func (r *IBANNameCheck) JointAccount() bool {
	return strings.EqualFold(r.field("AccountDetails/IsJointAccount"), "true")
}
