package bluem

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sirosfoundation/go-bluem/pkg/registry"
	"github.com/sirosfoundation/go-bluem/pkg/request"
	"github.com/sirosfoundation/go-bluem/pkg/response"
)

// CreateEntranceCode returns a fresh entrance code.
func (c *Client) CreateEntranceCode() string { return c.builder.EntranceCode() }

// CreateMandateID returns a mandate identifier for orderID and customerID.
func (c *Client) CreateMandateID(orderID, customerID string) string {
	return c.builder.MandateID(orderID, customerID)
}

func (c *Client) CreatePaymentTransactionID(debtorReference string) string {
	return c.builder.TransactionID(debtorReference)
}

func (c *Client) CreateIdentityTransactionID(debtorReference string) string {
	return c.builder.TransactionID(debtorReference)
}

// CreateMandateRequest builds a mandate request without sending it. An empty
// mandateID is generated from the order and customer.
func (c *Client) CreateMandateRequest(customerID, orderID, mandateID string) (*request.MandateRequest, error) {
	return c.builder.Mandate(customerID, orderID, mandateID)
}

func (c *Client) Mandate(ctx context.Context, customerID, orderID, mandateID string) (response.Response, error) {
	r, err := c.CreateMandateRequest(customerID, orderID, mandateID)
	if err != nil {
		return nil, configError("mandate", err)
	}
	return c.Perform(ctx, r)
}

func (c *Client) MandateStatus(ctx context.Context, mandateID, entranceCode string) (response.Response, error) {
	r, err := c.builder.MandateStatus(mandateID, entranceCode)
	if err != nil {
		return nil, configError("mandate status", err)
	}
	return c.Perform(ctx, r)
}

func (c *Client) CreatePaymentRequest(p request.PaymentParams) (*request.PaymentRequest, error) {
	return c.builder.Payment(p)
}

func (c *Client) Payment(ctx context.Context, p request.PaymentParams) (response.Response, error) {
	r, err := c.CreatePaymentRequest(p)
	if err != nil {
		return nil, configError("payment", err)
	}
	return c.Perform(ctx, r)
}

func (c *Client) PaymentStatus(ctx context.Context, transactionID, entranceCode string) (response.Response, error) {
	r, err := c.builder.PaymentStatus(transactionID, entranceCode)
	if err != nil {
		return nil, configError("payment status", err)
	}
	return c.Perform(ctx, r)
}

func (c *Client) CreateIdentityRequest(p request.IdentityParams) (*request.IdentityRequest, error) {
	return c.builder.Identity(p)
}

func (c *Client) Identity(ctx context.Context, p request.IdentityParams) (response.Response, error) {
	r, err := c.CreateIdentityRequest(p)
	if err != nil {
		return nil, configError("identity", err)
	}
	return c.Perform(ctx, r)
}

func (c *Client) IdentityStatus(ctx context.Context, transactionID, entranceCode string) (response.Response, error) {
	r, err := c.builder.IdentityStatus(transactionID, entranceCode)
	if err != nil {
		return nil, configError("identity status", err)
	}
	return c.Perform(ctx, r)
}

func (c *Client) CreateIBANNameCheckRequest(iban, name, debtorReference string) (*request.IBANCheckRequest, error) {
	return c.builder.IBANCheck(iban, name, debtorReference)
}

func (c *Client) IBANNameCheck(ctx context.Context, iban, name, debtorReference string) (response.Response, error) {
	r, err := c.CreateIBANNameCheckRequest(iban, name, debtorReference)
	if err != nil {
		return nil, configError("iban name check", err)
	}
	return c.Perform(ctx, r)
}

// BICs lists the issuers accepted for the named context: Mandates, Payments
// or Identity.
func (c *Client) BICs(contextName string) ([]registry.Issuer, error) {
	ctx, err := c.reg.Lookup(contextName)
	if err != nil {
		return nil, configError("bics", err)
	}
	return ctx.BICs(), nil
}

// BICCodes is BICs without the bank names.
func (c *Client) BICCodes(contextName string) ([]string, error) {
	ctx, err := c.reg.Lookup(contextName)
	if err != nil {
		return nil, configError("bics", err)
	}
	return ctx.BICCodes(), nil
}

// MaximumAmount returns the maximum amount accepted by the debtor for a
// mandate status response, or zero for any other response.
func MaximumAmount(res response.Response) decimal.Decimal {
	if ms, ok := res.(*response.MandateStatus); ok {
		return ms.MaxAmount()
	}
	return decimal.Zero
}
