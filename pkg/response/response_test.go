package response

import (
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-bluem/pkg/registry"
	"github.com/sirosfoundation/go-bluem/pkg/xsd"
)

const mandateStatusXML = `<?xml version="1.0" encoding="UTF-8"?>
<EMandateInterface type="StatusUpdate" mode="direct" senderID="S1234" version="1.0" createDateTime="2024-03-15T10:30:45.123Z" messageCount="1">
  <EMandateStatusUpdate entranceCode="20240315093045123">
    <EMandateStatus>
      <MandateID>cust4220240315order-9</MandateID>
      <Status>Success</Status>
      <AcceptanceReport>
        <DebtorIBAN>NL91ABNA0417164300</DebtorIBAN>
        <DebtorAccountName>J. Jansen</DebtorAccountName>
        <MaxAmount>150.00</MaxAmount>
      </AcceptanceReport>
    </EMandateStatus>
  </EMandateStatusUpdate>
</EMandateInterface>`

const mandateErrorXML = `<EMandateInterface type="ErrorResponse" mode="direct" senderID="S1234" version="1.0">
  <EMandateErrorResponse>
    <Error>
      <ErrorCode>MD001</ErrorCode>
      <ErrorMessage>Unknown MandateID</ErrorMessage>
    </Error>
  </EMandateErrorResponse>
</EMandateInterface>`

func TestClassify_HTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		msg    string
	}{
		{http.StatusBadRequest, "Your request was not formed correctly."},
		{http.StatusUnauthorized, "Unauthorized: check your access credentials."},
		{http.StatusInternalServerError, "An unrecoverable error at the server side occurred while processing the request"},
		{http.StatusServiceUnavailable, "Unexpected / erroneous response (code 503)"},
		{http.StatusNotFound, "Unexpected / erroneous response (code 404)"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			res, err := Classify(registry.PaymentStatusRequest, tt.status, []byte(mandateStatusXML))
			require.NoError(t, err)

			e, ok := res.(*Error)
			require.True(t, ok, "expected *Error, got %T", res)
			assert.Equal(t, KindProtocol, e.Kind)
			assert.Equal(t, tt.status, e.StatusCode)
			assert.Equal(t, tt.msg, e.Message)
			assert.False(t, e.Status())
		})
	}
}

func TestClassify_NonOKIgnoresCode(t *testing.T) {
	res, err := Classify("XYZ", http.StatusUnauthorized, nil)
	require.NoError(t, err)
	assert.Equal(t, MsgUnauthorized, res.ErrorMessage())
}

func TestClassify_EmptyBody(t *testing.T) {
	res, err := Classify(registry.MandateStatusRequest, http.StatusOK, nil)
	require.NoError(t, err)
	assert.Equal(t, "Error: Empty response returned", res.ErrorMessage())
}

func TestClassify_Unparsable(t *testing.T) {
	for _, body := range []string{"<EMandateInterface", "plain text"} {
		res, err := Classify(registry.MandateStatusRequest, http.StatusOK, []byte(body))
		require.NoError(t, err)

		e, ok := res.(*Error)
		require.True(t, ok)
		assert.Contains(t, e.Message, "Error: Could not create Bluem Response object. More details: ")
		assert.Error(t, e.Err)
	}
}

func TestClassify_UnknownCode(t *testing.T) {
	_, err := Classify("XYZ", http.StatusOK, []byte(mandateStatusXML))
	assert.ErrorIs(t, err, registry.ErrUnknownTransactionCode)
}

func TestClassify_ErrorResponse(t *testing.T) {
	res, err := Classify(registry.MandateStatusRequest, http.StatusOK, []byte(mandateErrorXML))
	require.NoError(t, err)
	assert.Equal(t, "Error: Unknown MandateID", res.ErrorMessage())
	assert.Equal(t, http.StatusOK, res.(*Error).StatusCode)
}

func TestClassify_ErrorResponsePerFamily(t *testing.T) {
	tests := []struct {
		code registry.TransactionCode
		root string
		node string
	}{
		{registry.MandateTransactionTest, "EMandateInterface", "EMandateErrorResponse"},
		{registry.PaymentTransactionRequest, "EPaymentInterface", "PaymentErrorResponse"},
		{registry.IdentityTransactionRequest, "IdentityInterface", "IdentityErrorResponse"},
		{registry.IdentityStatusRequest, "IdentityInterface", "IDentityErrorResponse"},
		{registry.IBANCheckTransactionTest, "IBANCheckInterface", "IBANCheckErrorResponse"},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			body := `<` + tt.root + ` type="ErrorResponse"><` + tt.node + `><Error><ErrorMessage>Rejected by provider</ErrorMessage></Error></` + tt.node + `></` + tt.root + `>`
			res, err := Classify(tt.code, http.StatusOK, []byte(body))
			require.NoError(t, err)
			assert.Equal(t, "Error: Rejected by provider", res.ErrorMessage())
		})
	}
}

func TestClassify_StatusFalse(t *testing.T) {
	body := `<EPaymentInterface type="TransactionResponse">
  <PaymentTransactionResponse entranceCode="ec1"/>
  <PaymentErrorResponse><Error><ErrorMessage>Amount exceeds limit</ErrorMessage></Error></PaymentErrorResponse>
</EPaymentInterface>`

	res, err := Classify(registry.PaymentTransactionTest, http.StatusOK, []byte(body))
	require.NoError(t, err)
	assert.IsType(t, &Error{}, res)
	assert.Equal(t, "Error: Amount exceeds limit", res.ErrorMessage())

	parsed, err := Parse(registry.PaymentTransactionTest, []byte(body))
	require.NoError(t, err)
	assert.False(t, parsed.Status())
	assert.Equal(t, "ec1", parsed.EntranceCode())
}

func TestMandateStatus(t *testing.T) {
	res, err := Classify(registry.MandateStatusRequest, http.StatusOK, []byte(mandateStatusXML))
	require.NoError(t, err)

	r, ok := res.(*MandateStatus)
	require.True(t, ok, "expected *MandateStatus, got %T", res)
	assert.True(t, r.Status())
	assert.Equal(t, "20240315093045123", r.EntranceCode())
	assert.Empty(t, r.ErrorMessage())
	assert.Equal(t, "StatusUpdate", r.Type())
	assert.Equal(t, "cust4220240315order-9", r.MandateID())
	assert.Equal(t, StatusSuccess, r.TransactionStatus())
	assert.True(t, r.TransactionStatus().Final())
	assert.True(t, decimal.RequireFromString("150").Equal(r.MaxAmount()))
	assert.Equal(t, "NL91ABNA0417164300", r.DebtorIBAN())
	assert.Equal(t, "J. Jansen", r.DebtorAccountName())
}

func TestMandateStatus_MaxAmountAbsent(t *testing.T) {
	body := `<EMandateInterface type="StatusUpdate"><EMandateStatusUpdate entranceCode="e"><EMandateStatus><Status>Open</Status></EMandateStatus></EMandateStatusUpdate></EMandateInterface>`
	res, err := Classify(registry.MandateStatusUpdate, http.StatusOK, []byte(body))
	require.NoError(t, err)

	r := res.(*MandateStatus)
	assert.True(t, r.MaxAmount().IsZero())
	assert.False(t, r.TransactionStatus().Final())
}

func TestMandateTransaction(t *testing.T) {
	body := `<EMandateInterface type="TransactionResponse">
  <EMandateTransactionResponse entranceCode="ec-m">
    <TransactionURL>https://test.viamijnbank.net/mandate/abc</TransactionURL>
    <MandateID>M20240315103045</MandateID>
    <TransactionID>TX-M-1</TransactionID>
  </EMandateTransactionResponse>
</EMandateInterface>`

	res, err := Classify(registry.MandateTransactionTest, http.StatusOK, []byte(body))
	require.NoError(t, err)
	r := res.(*MandateTransaction)
	assert.Equal(t, "ec-m", r.EntranceCode())
	assert.Equal(t, "https://test.viamijnbank.net/mandate/abc", r.TransactionURL())
	assert.Equal(t, "M20240315103045", r.MandateID())
	assert.Equal(t, "TX-M-1", r.TransactionID())
}

func TestPaymentVariants(t *testing.T) {
	tx := `<EPaymentInterface type="TransactionResponse">
  <PaymentTransactionResponse entranceCode="ec-p">
    <TransactionURL>https://test.viamijnbank.net/pay/xyz</TransactionURL>
    <TransactionID>TX-P-1</TransactionID>
    <PaymentReference>100120240315</PaymentReference>
    <DebtorReference>1001</DebtorReference>
  </PaymentTransactionResponse>
</EPaymentInterface>`

	res, err := Classify(registry.PaymentTransactionTest, http.StatusOK, []byte(tx))
	require.NoError(t, err)
	p := res.(*PaymentTransaction)
	assert.Equal(t, "https://test.viamijnbank.net/pay/xyz", p.TransactionURL())
	assert.Equal(t, "TX-P-1", p.TransactionID())
	assert.Equal(t, "100120240315", p.PaymentReference())
	assert.Equal(t, "1001", p.DebtorReference())

	status := `<EPaymentInterface type="StatusUpdate">
  <PaymentStatusUpdate entranceCode="ec-ps">
    <TransactionID>TX-P-1</TransactionID>
    <Status>Cancelled</Status>
    <PaymentDetails><Amount>12.50</Amount></PaymentDetails>
  </PaymentStatusUpdate>
</EPaymentInterface>`

	res, err = Classify(registry.PaymentStatusRequest, http.StatusOK, []byte(status))
	require.NoError(t, err)
	ps := res.(*PaymentStatus)
	assert.Equal(t, "ec-ps", ps.EntranceCode())
	assert.Equal(t, StatusCancelled, ps.TransactionStatus())
	assert.Equal(t, "12.5", ps.Amount().String())
}

func TestIdentityVariants(t *testing.T) {
	tx := `<IdentityInterface type="TransactionResponse">
  <IdentityTransactionResponse entranceCode="ec-i">
    <TransactionURL>https://test.viamijnbank.net/idin/1</TransactionURL>
    <TransactionID>TX-I-1</TransactionID>
  </IdentityTransactionResponse>
</IdentityInterface>`

	res, err := Classify(registry.IdentityTransactionRequest, http.StatusOK, []byte(tx))
	require.NoError(t, err)
	it := res.(*IdentityTransaction)
	assert.Equal(t, "https://test.viamijnbank.net/idin/1", it.TransactionURL())
	assert.Equal(t, "TX-I-1", it.TransactionID())

	status := `<IdentityInterface type="StatusUpdate">
  <IdentityStatusUpdate entranceCode="ec-is">
    <TransactionID>TX-I-1</TransactionID>
    <Status>Success</Status>
    <IdentityReport>
      <NameResponse>
        <LegalLastName>Jansen</LegalLastName>
        <Initials>J</Initials>
      </NameResponse>
      <AgeCheckResponse>true</AgeCheckResponse>
    </IdentityReport>
  </IdentityStatusUpdate>
</IdentityInterface>`

	res, err = Classify(registry.IdentityStatusRequest, http.StatusOK, []byte(status))
	require.NoError(t, err)
	is := res.(*IdentityStatus)
	assert.Equal(t, StatusSuccess, is.TransactionStatus())
	assert.Equal(t, map[string]string{
		"NameResponse/LegalLastName": "Jansen",
		"NameResponse/Initials":      "J",
		"AgeCheckResponse":           "true",
	}, is.IdentityReport())
}

func TestIBANNameCheck(t *testing.T) {
	body := `<IBANCheckInterface type="TransactionResponse">
  <IBANCheckTransactionResponse entranceCode="ec-n">
    <IBAN>NL91ABNA0417164300</IBAN>
    <AssumedName>J. Janssen</AssumedName>
    <IBANCheckResult>
      <IBANResult>KNOWN</IBANResult>
      <NameResult>MISTYPED</NameResult>
      <SuggestedName>J. Jansen</SuggestedName>
      <AccountStatus>ACTIVE</AccountStatus>
    </IBANCheckResult>
    <AccountDetails>
      <AccountType>NATURAL_PERSON</AccountType>
      <IsJointAccount>true</IsJointAccount>
    </AccountDetails>
  </IBANCheckTransactionResponse>
</IBANCheckInterface>`

	res, err := Classify(registry.IBANCheckTransactionTest, http.StatusOK, []byte(body))
	require.NoError(t, err)
	r := res.(*IBANNameCheck)
	assert.Equal(t, "ec-n", r.EntranceCode())
	assert.Equal(t, "NL91ABNA0417164300", r.IBAN())
	assert.Equal(t, "J. Janssen", r.AssumedName())
	assert.Equal(t, IBANKnown, r.IBANResult())
	assert.Equal(t, NameMistyped, r.NameResult())
	assert.Equal(t, "J. Jansen", r.SuggestedName())
	assert.Equal(t, "ACTIVE", r.AccountStatus())
	assert.Equal(t, "NATURAL_PERSON", r.AccountType())
	assert.True(t, r.JointAccount())
}

func TestVariantTable(t *testing.T) {
	want := map[registry.TransactionCode]Response{
		registry.MandateStatusRequest:        &MandateStatus{},
		registry.MandateStatusUpdate:         &MandateStatus{},
		registry.MandateTransactionRequest:   &MandateTransaction{},
		registry.MandateTransactionTest:      &MandateTransaction{},
		registry.PaymentStatusUpdate:         &PaymentStatus{},
		registry.PaymentStatusRequest:        &PaymentStatus{},
		registry.PaymentTransactionTest:      &PaymentTransaction{},
		registry.PaymentTransactionRequest:   &PaymentTransaction{},
		registry.IdentityStatusUpdate:        &IdentityStatus{},
		registry.IdentityStatusRequest:       &IdentityStatus{},
		registry.IdentityTransactionRequest:  &IdentityTransaction{},
		registry.IBANCheckTransactionTest:    &IBANNameCheck{},
		registry.IBANCheckTransactionRequest: &IBANNameCheck{},
	}
	require.Len(t, want, len(registry.Codes()))

	for code, typ := range want {
		res, err := Parse(code, []byte(`<Interface type="TransactionResponse"/>`))
		require.NoError(t, err)
		assert.IsType(t, typ, res, code)
		assert.True(t, res.Status(), code)
		assert.Empty(t, res.EntranceCode(), code)
	}
}

func TestFromValidation(t *testing.T) {
	res := &xsd.Result{Errors: []xsd.Diagnostic{
		{Code: 1871, Source: "mr/TRS", Line: 3, Message: "Element 'Bogus': This element is not expected."},
		{Code: 1840, Source: "mr/TRS", Line: 5, Message: "Element 'SequenceType': invalid."},
	}}

	e := FromValidation(res)
	assert.Equal(t, KindValidation, e.Kind)
	assert.Zero(t, e.StatusCode)
	assert.Len(t, e.Diagnostics, 2)
	assert.Equal(t, "Error: Request is not formed correctly. More details: "+
		"1871 in mr/TRS (line 3): Element 'Bogus': This element is not expected.; \n"+
		"1840 in mr/TRS (line 5): Element 'SequenceType': invalid.", e.Message)
}

func TestFromTransportError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	e := FromTransportError(cause)

	assert.Equal(t, KindTransport, e.Kind)
	assert.Equal(t, "HTTP Request Error", e.Error())
	assert.ErrorIs(t, e, cause)

	var target *Error
	assert.True(t, errors.As(error(e), &target))
	assert.Equal(t, "transport", target.Kind.String())
}
