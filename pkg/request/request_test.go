package request

import (
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-bluem/pkg/config"
	"github.com/sirosfoundation/go-bluem/pkg/registry"
	"github.com/sirosfoundation/go-bluem/pkg/xsd"
)

var fixedNow = time.Date(2024, 3, 15, 9, 30, 45, 123_000_000, time.UTC)

func clock() time.Time { return fixedNow }

func testConfig(t *testing.T, env string, mutate ...func(*config.Input)) *config.Config {
	t.Helper()
	in := config.Input{
		Environment:           env,
		SenderID:              "S1234",
		BrandID:               "ExampleBrand",
		TestAccessToken:       "test-token",
		ProductionAccessToken: "prod-token",
		MerchantID:            "0020009999",
		MerchantReturnURLBase: "https://shop.example.com/return",
		EMandateReason:        "Monthly subscription",
		ExpectedReturnStatus:  "bogus",
	}
	for _, m := range mutate {
		m(&in)
	}
	cfg, err := config.Build(in)
	require.NoError(t, err)
	return cfg
}

func testBuilder(t *testing.T, env string, mutate ...func(*config.Input)) *Builder {
	cfg := testConfig(t, env, mutate...)
	return NewBuilder(cfg, registry.New(cfg.LocalInstrumentCode()), clock)
}

func TestEntranceCode(t *testing.T) {
	code := EntranceCode(fixedNow)
	assert.Equal(t, "20240315093045123", code)
	assert.Regexp(t, `^\d{17}$`, code)

	assert.Equal(t, "20240315093045000", EntranceCode(fixedNow.Truncate(time.Second)))

	later := EntranceCode(fixedNow.Add(time.Millisecond))
	assert.GreaterOrEqual(t, later, code)
}

func TestMandateID(t *testing.T) {
	// 09:30 UTC is 10:30 in Amsterdam in March.
	assert.Equal(t, "M20240315103045", MandateID("S1300", "cust", "order", fixedNow))
	assert.Regexp(t, `^M\d{14}$`, MandateID("S1300", "", "", fixedNow))

	assert.Equal(t, "cust4220240315order-9", MandateID("S1234", "cust42", "order-9", fixedNow))

	long := MandateID("S1234", strings.Repeat("c", 20), strings.Repeat("o", 20), fixedNow)
	assert.Equal(t, (strings.Repeat("c", 20) + "20240315" + strings.Repeat("o", 20))[:35], long)
	assert.Len(t, long, 35)
}

func TestMandateID_AmsterdamDate(t *testing.T) {
	lateUTC := time.Date(2024, 7, 1, 23, 15, 0, 0, time.UTC)
	assert.Equal(t, "c20240702o", MandateID("S1234", "c", "o", lateUTC))
}

func TestTransactionID(t *testing.T) {
	assert.Equal(t, "ref20240315", TransactionID("ref", fixedNow))

	ref := strings.Repeat("x", 40)
	assert.Equal(t, strings.Repeat("x", 28)+"20240315", TransactionID(ref, fixedNow))
}

func TestTruncateKeepsRunes(t *testing.T) {
	assert.Equal(t, "ab", truncate("abé", 3))
	assert.Equal(t, "abé", truncate("abé", 4))
}

func parse(t *testing.T, r Request) *etree.Element {
	t.Helper()
	b, err := r.XML()
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(b))
	return doc.Root()
}

func TestMandateRequest(t *testing.T) {
	b := testBuilder(t, "test")

	r, err := b.Mandate("cust42", "order-9", "")
	require.NoError(t, err)

	assert.Equal(t, registry.MandateTransactionTest, r.TransactionCode())
	assert.Equal(t, "mr/TRS", r.Path())
	assert.Equal(t, "20240315093045123", r.EntranceCode())
	assert.Equal(t, "cust4220240315order-9", r.MandateID)

	root := parse(t, r)
	assert.Equal(t, "EMandateInterface", root.Tag)
	assert.Equal(t, "TransactionRequest", root.SelectAttrValue("type", ""))
	assert.Equal(t, "direct", root.SelectAttrValue("mode", ""))
	assert.Equal(t, "S1234", root.SelectAttrValue("senderID", ""))
	assert.Equal(t, "1.0", root.SelectAttrValue("version", ""))
	assert.Equal(t, "2024-03-15T10:30:45.123Z", root.SelectAttrValue("createDateTime", ""))
	assert.Equal(t, "1", root.SelectAttrValue("messageCount", ""))

	obj := root.SelectElement("EMandateTransactionRequest")
	require.NotNil(t, obj)
	assert.Equal(t, "20240315093045123", obj.SelectAttrValue("entranceCode", ""))
	assert.Equal(t, "success", obj.SelectAttrValue("expectedReturnStatus", ""))
	assert.Equal(t, config.StaticTestMerchantID, obj.SelectAttrValue("merchantID", ""))
	assert.Equal(t, "0", obj.SelectAttrValue("merchantSubID", ""))
	assert.Equal(t, "CORE", obj.SelectAttrValue("localInstrumentCode", ""))
	assert.Equal(t, "cust4220240315order-9", obj.SelectElement("MandateID").Text())
	assert.Equal(t, "https://shop.example.com/return?mandateID=cust4220240315order-9", obj.SelectElement("MerchantReturnURL").Text())
	assert.Equal(t, "Monthly subscription", obj.SelectElement("EMandateReason").Text())
}

func TestMandateRequest_Production(t *testing.T) {
	b := testBuilder(t, "prod", func(in *config.Input) { in.LocalInstrumentCode = "B2B" })

	r, err := b.Mandate("cust42", "order-9", "MANDATE-1")
	require.NoError(t, err)
	assert.Equal(t, registry.MandateTransactionRequest, r.TransactionCode())
	assert.Equal(t, "mr/TRX", r.Path())

	obj := parse(t, r).SelectElement("EMandateTransactionRequest")
	require.NotNil(t, obj)
	assert.Nil(t, obj.SelectAttr("expectedReturnStatus"))
	assert.Equal(t, "0020009999", obj.SelectAttrValue("merchantID", ""))
	assert.Equal(t, "B2B", obj.SelectAttrValue("localInstrumentCode", ""))
	assert.Equal(t, "MANDATE-1", obj.SelectElement("MandateID").Text())
}

func TestMandateRequest_MerchantIDRequired(t *testing.T) {
	for _, env := range []string{"acc", "prod"} {
		t.Run(env, func(t *testing.T) {
			b := testBuilder(t, env, func(in *config.Input) { in.MerchantID = "" })

			_, err := b.Mandate("cust42", "order-9", "")
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), "merchant ID")
		})
	}

	// The test environment substitutes the shared test merchant.
	_, err := testBuilder(t, "test", func(in *config.Input) { in.MerchantID = "" }).Mandate("cust42", "order-9", "")
	assert.NoError(t, err)
}

func TestMandateRequest_ReturnURLWithQuery(t *testing.T) {
	b := testBuilder(t, "test", func(in *config.Input) {
		in.MerchantReturnURLBase = "https://shop.example.com/return?lang=nl"
	})

	r, err := b.Mandate("cust42", "order-9", "M 1&2")
	require.NoError(t, err)

	got := parse(t, r).SelectElement("EMandateTransactionRequest").SelectElement("MerchantReturnURL").Text()
	assert.Equal(t, "https://shop.example.com/return?lang=nl&mandateID=M+1%262", got)
	assert.Equal(t, 1, strings.Count(got, "?"))
}

func TestPaymentRequest(t *testing.T) {
	b := testBuilder(t, "test")

	r, err := b.Payment(PaymentParams{
		Description:     "Order 1001",
		DebtorReference: "1001",
		Amount:          decimal.RequireFromString("12.5"),
		DebtorReturnURL: "https://shop.example.com/paid",
	})
	require.NoError(t, err)
	assert.Equal(t, "pr/PTS", r.Path())
	assert.Equal(t, "100120240315", r.TransactionID)

	obj := parse(t, r).SelectElement("PaymentTransactionRequest")
	require.NotNil(t, obj)
	assert.Equal(t, "12.50", obj.SelectElement("Amount").Text())
	assert.Equal(t, "EUR", obj.SelectElement("Currency").Text())
	assert.Equal(t, "2024-03-16T09:30:45.123Z", obj.SelectElement("DueDateTime").Text())
	assert.Equal(t, "ExampleBrand", obj.SelectAttrValue("brandID", ""))
}

func TestIdentityRequest(t *testing.T) {
	b := testBuilder(t, "prod", func(in *config.Input) { in.IdentityBrandID = "ExampleIdentity" })

	r, err := b.Identity(IdentityParams{
		Categories:      []registry.IdentityCategory{registry.NameRequest, registry.AgeCheckRequest},
		Description:     "Verify customer",
		DebtorReference: "cust42",
		DebtorReturnURL: "https://shop.example.com/idin",
		EntranceCode:    "caller-code",
	})
	require.NoError(t, err)
	assert.Equal(t, "ir/ITX", r.Path())
	assert.Equal(t, "caller-code", r.EntranceCode())

	obj := parse(t, r).SelectElement("IdentityTransactionRequest")
	require.NotNil(t, obj)
	assert.Equal(t, "ExampleIdentity", obj.SelectAttrValue("brandID", ""))

	cats := obj.SelectElement("RequestCategory").ChildElements()
	require.Len(t, cats, len(registry.IdentityCategories()))
	actions := map[string]string{}
	for _, c := range cats {
		actions[c.Tag] = c.SelectAttrValue("action", "")
	}
	assert.Equal(t, "request", actions["NameRequest"])
	assert.Equal(t, "request", actions["AgeCheckRequest"])
	assert.Equal(t, "skip", actions["EmailRequest"])
}

func TestStatusRequests(t *testing.T) {
	b := testBuilder(t, "acc")

	ms, err := b.MandateStatus("MANDATE-1", "ec1")
	require.NoError(t, err)
	assert.Equal(t, "mr/SRX", ms.Path())
	assert.Equal(t, "MANDATE-1", parse(t, ms).FindElement("./EMandateStatusRequest/MandateID").Text())

	ps, err := b.PaymentStatus("TX-1", "ec2")
	require.NoError(t, err)
	assert.Equal(t, "pr/PSX", ps.Path())
	assert.Equal(t, "TX-1", parse(t, ps).FindElement("./PaymentStatusRequest/TransactionID").Text())

	is, err := b.IdentityStatus("TX-2", "ec3")
	require.NoError(t, err)
	assert.Equal(t, "ir/ISX", is.Path())
	root := parse(t, is)
	assert.Equal(t, "StatusRequest", root.SelectAttrValue("type", ""))
	assert.Equal(t, "ExampleBrand", root.SelectElement("IdentityStatusRequest").SelectAttrValue("brandID", ""))
}

func TestIBANCheckRequest(t *testing.T) {
	b := testBuilder(t, "test")

	r, err := b.IBANCheck("nl91 abna 0417 1643 00", "J. Jansen", "")
	require.NoError(t, err)
	assert.Equal(t, "icr/INS", r.Path())
	assert.Equal(t, "NL91ABNA0417164300", r.IBAN)

	obj := parse(t, r).SelectElement("IBANCheckTransactionRequest")
	require.NotNil(t, obj)
	assert.Equal(t, "J. Jansen", obj.SelectElement("AssumedName").Text())
	assert.Nil(t, obj.SelectElement("DebtorReference"))
}

func TestInvalidInput(t *testing.T) {
	b := testBuilder(t, "test")

	_, err := b.Mandate("", "order", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = b.MandateStatus("", "ec")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = b.Payment(PaymentParams{Description: "d", DebtorReference: "r", Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = b.Identity(IdentityParams{Description: "d", DebtorReturnURL: "https://x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = b.Identity(IdentityParams{
		Categories:      []registry.IdentityCategory{"ShoeSizeRequest"},
		Description:     "d",
		DebtorReturnURL: "https://x",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = b.IBANCheck("NL91ABNA0417164300", " ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBuiltRequestsAreSchemaValid(t *testing.T) {
	v := xsd.NewValidator(nil)

	for _, env := range []string{"test", "acc", "prod"} {
		b := testBuilder(t, env)

		var reqs []Request
		add := func(r Request, err error) {
			require.NoError(t, err)
			reqs = append(reqs, r)
		}
		add(b.Mandate("cust42", "order-9", ""))
		add(b.MandateStatus("cust4220240315order-9", b.EntranceCode()))
		add(b.Payment(PaymentParams{
			Description:     "Order 1001",
			DebtorReference: "1001",
			Amount:          decimal.RequireFromString("99.99"),
			DebtorReturnURL: "https://shop.example.com/paid",
		}))
		add(b.PaymentStatus("100120240315", b.EntranceCode()))
		add(b.Identity(IdentityParams{
			Categories:      registry.IdentityCategories(),
			Description:     "Verify customer",
			DebtorReturnURL: "https://shop.example.com/idin",
		}))
		add(b.IdentityStatus("ID-1", b.EntranceCode()))
		add(b.IBANCheck("NL91ABNA0417164300", "J. Jansen", "cust42"))

		for _, r := range reqs {
			doc, err := r.XML()
			require.NoError(t, err)

			res, err := v.Validate(r.Context().Schema(), r.Path(), doc)
			require.NoError(t, err)
			assert.True(t, res.Valid(), "%s %s: %s\n%s", env, r.TransactionCode(), res, doc)
		}
	}
}

func TestRenderingIsStable(t *testing.T) {
	b := testBuilder(t, "test")
	r, err := b.PaymentStatus("TX-1", "ec")
	require.NoError(t, err)

	first, err := r.XML()
	require.NoError(t, err)
	second, err := r.XML()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
