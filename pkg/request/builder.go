package request

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/sirosfoundation/go-bluem/pkg/config"
	"github.com/sirosfoundation/go-bluem/pkg/registry"
)

// Builder constructs requests for one integration configuration.
type Builder struct {
	cfg *config.Config
	reg *registry.Registry
	now func() time.Time
}

// NewBuilder returns a Builder. A nil now uses time.Now.
func NewBuilder(cfg *config.Config, reg *registry.Registry, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	if reg == nil {
		reg = registry.New(cfg.LocalInstrumentCode())
	}
	return &Builder{cfg: cfg, reg: reg, now: now}
}

// Now returns the builder's current time.
func (b *Builder) Now() time.Time { return b.now() }

// EntranceCode generates a fresh entrance code.
func (b *Builder) EntranceCode() string { return EntranceCode(b.now()) }

// MandateID generates a mandate identifier for the configured sender.
func (b *Builder) MandateID(orderID, customerID string) string {
	return MandateID(b.cfg.SenderID(), customerID, orderID, b.now())
}

// TransactionID generates a payment or identity transaction identifier.
func (b *Builder) TransactionID(reference string) string {
	return TransactionID(reference, b.now())
}

func (b *Builder) envelope(f registry.Family, code registry.TransactionCode, typ, object, entranceCode string) (*envelope, error) {
	ctx, err := b.reg.Context(f)
	if err != nil {
		return nil, err
	}
	now := b.now()
	if entranceCode == "" {
		entranceCode = EntranceCode(now)
	}
	expected, _ := b.cfg.ExpectedReturnStatus()
	return &envelope{
		code:          code,
		ctx:           ctx,
		interfaceType: typ,
		objectName:    object,
		senderID:      b.cfg.SenderID(),
		createdAt:     now,
		entranceCode:  entranceCode,
		expected:      expected,
	}, nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	return nil
}

// MandateRequest issues a new e-mandate.
type MandateRequest struct {
	*envelope
	CustomerID string
	OrderID    string
	MandateID  string
}

// Mandate builds an e-mandate transaction request. An empty mandateID is
// generated from the order and customer.
// Outside the test environment the configuration must carry a merchant ID.
func (b *Builder) Mandate(customerID, orderID, mandateID string) (*MandateRequest, error) {
	if err := required("customer ID", customerID); err != nil {
		return nil, err
	}
	if err := required("order ID", orderID); err != nil {
		return nil, err
	}
	if err := required("merchant ID", b.cfg.MerchantID()); err != nil {
		return nil, err
	}
	code, err := registry.CreateCode(registry.Mandates, b.cfg.Environment())
	if err != nil {
		return nil, err
	}
	env, err := b.envelope(registry.Mandates, code, TypeTransactionRequest, "EMandateTransactionRequest", "")
	if err != nil {
		return nil, err
	}
	if mandateID == "" {
		mandateID = MandateID(b.cfg.SenderID(), customerID, orderID, env.createdAt)
	}

	r := &MandateRequest{envelope: env, CustomerID: customerID, OrderID: orderID, MandateID: mandateID}
	env.objectAttrs = []etree.Attr{
		attr("requestType", "Issuing"),
		attr("localInstrumentCode", string(env.ctx.LocalInstrumentCode())),
		attr("merchantID", b.cfg.MerchantID()),
		attr("merchantSubID", b.cfg.MerchantSubID()),
		attr("brandID", b.cfg.BrandID()),
		attr("language", "nl"),
		attr("sendOption", "none"),
	}
	var returnURL string
	if base := b.cfg.MerchantReturnURLBase(); base != "" {
		returnURL, err = merchantReturnURL(base, mandateID)
		if err != nil {
			return nil, err
		}
	}
	reason := b.cfg.EMandateReason()
	env.fill = func(obj *etree.Element) {
		textElement(obj, "MandateID", r.MandateID)
		if returnURL != "" {
			u := textElement(obj, "MerchantReturnURL", returnURL)
			u.CreateAttr("automaticRedirect", "1")
		}
		textElement(obj, "SequenceType", "RCUR")
		if reason != "" {
			textElement(obj, "EMandateReason", reason)
		}
		textElement(obj, "DebtorReference", r.CustomerID)
		textElement(obj, "PurchaseID", r.OrderID)
	}
	return r, nil
}

// merchantReturnURL adds the mandate ID to the query of base, keeping any
// parameters already present.
func merchantReturnURL(base, mandateID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: merchant return URL: %v", ErrInvalidInput, err)
	}
	q := u.Query()
	q.Set("mandateID", mandateID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// MandateStatusRequest queries the status of an e-mandate.
type MandateStatusRequest struct {
	*envelope
	MandateID string
}

// MandateStatus builds an e-mandate status request.
func (b *Builder) MandateStatus(mandateID, entranceCode string) (*MandateStatusRequest, error) {
	if err := required("mandate ID", mandateID); err != nil {
		return nil, err
	}
	env, err := b.envelope(registry.Mandates, registry.MandateStatusRequest, TypeStatusRequest, "EMandateStatusRequest", entranceCode)
	if err != nil {
		return nil, err
	}
	r := &MandateStatusRequest{envelope: env, MandateID: mandateID}
	env.fill = func(obj *etree.Element) {
		textElement(obj, "MandateID", r.MandateID)
	}
	return r, nil
}

// PaymentParams are the caller supplied fields of a payment.
type PaymentParams struct {
	Description     string
	DebtorReference string
	Amount          decimal.Decimal
	// DueDateTime defaults to one day from now.
	DueDateTime time.Time
	// Currency defaults to EUR.
	Currency        string
	EntranceCode    string
	DebtorReturnURL string
}

// PaymentRequest starts a new payment.
type PaymentRequest struct {
	*envelope
	TransactionID string
	Params        PaymentParams
}

// Payment builds a payment transaction request.
func (b *Builder) Payment(p PaymentParams) (*PaymentRequest, error) {
	if err := required("description", p.Description); err != nil {
		return nil, err
	}
	if err := required("debtor reference", p.DebtorReference); err != nil {
		return nil, err
	}
	if !p.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidInput, p.Amount.String())
	}
	if p.Currency == "" {
		p.Currency = "EUR"
	}
	code, err := registry.CreateCode(registry.Payments, b.cfg.Environment())
	if err != nil {
		return nil, err
	}
	env, err := b.envelope(registry.Payments, code, TypeTransactionRequest, "PaymentTransactionRequest", p.EntranceCode)
	if err != nil {
		return nil, err
	}
	if p.DueDateTime.IsZero() {
		p.DueDateTime = env.createdAt.Add(24 * time.Hour)
	}
	p.EntranceCode = env.entranceCode

	r := &PaymentRequest{
		envelope:      env,
		TransactionID: TransactionID(p.DebtorReference, env.createdAt),
		Params:        p,
	}
	env.objectAttrs = []etree.Attr{
		attr("brandID", b.cfg.BrandID()),
		attr("language", "nl"),
		attr("sendOption", "none"),
	}
	env.fill = func(obj *etree.Element) {
		textElement(obj, "PaymentReference", r.TransactionID)
		textElement(obj, "DebtorReference", r.Params.DebtorReference)
		textElement(obj, "Description", r.Params.Description)
		textElement(obj, "Currency", r.Params.Currency)
		textElement(obj, "Amount", r.Params.Amount.StringFixed(2))
		textElement(obj, "DueDateTime", xmlDateTime(r.Params.DueDateTime))
		if r.Params.DebtorReturnURL != "" {
			u := textElement(obj, "DebtorReturnURL", r.Params.DebtorReturnURL)
			u.CreateAttr("automaticRedirect", "1")
		}
	}
	return r, nil
}

// PaymentStatusRequest queries the status of a payment.
type PaymentStatusRequest struct {
	*envelope
	TransactionID string
}

// PaymentStatus builds a payment status request.
func (b *Builder) PaymentStatus(transactionID, entranceCode string) (*PaymentStatusRequest, error) {
	return statusRequest(b, registry.Payments, "PaymentStatusRequest", transactionID, entranceCode,
		func(env *envelope) *PaymentStatusRequest {
			return &PaymentStatusRequest{envelope: env, TransactionID: transactionID}
		})
}

// IdentityParams are the caller supplied fields of an identity request.
type IdentityParams struct {
	Categories      []registry.IdentityCategory
	Description     string
	DebtorReference string
	DebtorReturnURL string
	EntranceCode    string
}

// IdentityRequest starts an identity (IDIN) transaction.
type IdentityRequest struct {
	*envelope
	Params IdentityParams
}

// Identity builds an identity transaction request.
func (b *Builder) Identity(p IdentityParams) (*IdentityRequest, error) {
	if len(p.Categories) == 0 {
		return nil, fmt.Errorf("%w: at least one request category is required", ErrInvalidInput)
	}
	requested := make(map[registry.IdentityCategory]bool, len(p.Categories))
	for _, c := range p.Categories {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: unknown identity category %q", ErrInvalidInput, c)
		}
		requested[c] = true
	}
	if err := required("description", p.Description); err != nil {
		return nil, err
	}
	if err := required("debtor return URL", p.DebtorReturnURL); err != nil {
		return nil, err
	}
	env, err := b.envelope(registry.Identity, registry.IdentityTransactionRequest, TypeTransactionRequest, "IdentityTransactionRequest", p.EntranceCode)
	if err != nil {
		return nil, err
	}
	p.EntranceCode = env.entranceCode

	r := &IdentityRequest{envelope: env, Params: p}
	env.objectAttrs = []etree.Attr{
		attr("brandID", b.cfg.IdentityBrandID()),
		attr("language", "nl"),
		attr("sendOption", "none"),
	}
	env.fill = func(obj *etree.Element) {
		cats := obj.CreateElement("RequestCategory")
		for _, c := range registry.IdentityCategories() {
			action := "skip"
			if requested[c] {
				action = "request"
			}
			cats.CreateElement(string(c)).CreateAttr("action", action)
		}
		textElement(obj, "Description", r.Params.Description)
		if r.Params.DebtorReference != "" {
			textElement(obj, "DebtorReference", r.Params.DebtorReference)
		}
		u := textElement(obj, "DebtorReturnURL", r.Params.DebtorReturnURL)
		u.CreateAttr("automaticRedirect", "1")
	}
	return r, nil
}

// IdentityStatusRequest queries the status of an identity transaction.
type IdentityStatusRequest struct {
	*envelope
	TransactionID string
}

// IdentityStatus builds an identity status request.
func (b *Builder) IdentityStatus(transactionID, entranceCode string) (*IdentityStatusRequest, error) {
	r, err := statusRequest(b, registry.Identity, "IdentityStatusRequest", transactionID, entranceCode,
		func(env *envelope) *IdentityStatusRequest {
			return &IdentityStatusRequest{envelope: env, TransactionID: transactionID}
		})
	if err != nil {
		return nil, err
	}
	r.objectAttrs = []etree.Attr{attr("brandID", b.cfg.IdentityBrandID())}
	return r, nil
}

// statusRequest builds the status request shared by payments and identity,
// which both only carry a TransactionID.
func statusRequest[T any](b *Builder, f registry.Family, object, transactionID, entranceCode string, wrap func(*envelope) *T) (*T, error) {
	if err := required("transaction ID", transactionID); err != nil {
		return nil, err
	}
	code, err := registry.StatusCode(f)
	if err != nil {
		return nil, err
	}
	env, err := b.envelope(f, code, TypeStatusRequest, object, entranceCode)
	if err != nil {
		return nil, err
	}
	env.fill = func(obj *etree.Element) {
		textElement(obj, "TransactionID", transactionID)
	}
	return wrap(env), nil
}

// IBANCheckRequest checks whether a name matches the holder of an IBAN.
type IBANCheckRequest struct {
	*envelope
	IBAN            string
	Name            string
	DebtorReference string
}

// IBANCheck builds an IBAN name check request.
func (b *Builder) IBANCheck(iban, name, debtorReference string) (*IBANCheckRequest, error) {
	if err := required("IBAN", iban); err != nil {
		return nil, err
	}
	if err := required("name", name); err != nil {
		return nil, err
	}
	code, err := registry.CreateCode(registry.IBANCheck, b.cfg.Environment())
	if err != nil {
		return nil, err
	}
	env, err := b.envelope(registry.IBANCheck, code, TypeTransactionRequest, "IBANCheckTransactionRequest", "")
	if err != nil {
		return nil, err
	}
	r := &IBANCheckRequest{
		envelope:        env,
		IBAN:            strings.ToUpper(strings.ReplaceAll(iban, " ", "")),
		Name:            name,
		DebtorReference: debtorReference,
	}
	env.objectAttrs = []etree.Attr{attr("brandID", b.cfg.BrandID())}
	env.fill = func(obj *etree.Element) {
		textElement(obj, "IBAN", r.IBAN)
		textElement(obj, "AssumedName", r.Name)
		if r.DebtorReference != "" {
			textElement(obj, "DebtorReference", r.DebtorReference)
		}
	}
	return r, nil
}
