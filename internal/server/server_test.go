package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-bluem/internal/config"
	"github.com/sirosfoundation/go-bluem/internal/testutil"
	bluemconfig "github.com/sirosfoundation/go-bluem/pkg/config"
	"github.com/sirosfoundation/go-bluem/pkg/registry"
	"github.com/sirosfoundation/go-bluem/pkg/security"
	"github.com/sirosfoundation/go-bluem/pkg/webhook"
)

const paymentUpdate = `<EPaymentInterface type="StatusUpdate" mode="direct" senderID="S1234" version="1.0">
  <PaymentStatusUpdate entranceCode="20240315093045123">
    <TransactionID>TX-P-1</TransactionID>
    <Status>Success</Status>
  </PaymentStatusUpdate>
</EPaymentInterface>`

type testServer struct {
	*Server
	signer *security.RSASigner
	logs   *bytes.Buffer
}

func newTestServer(t *testing.T, sink webhook.Sink) *testServer {
	t.Helper()
	key, cert := testutil.RSAKeyPair(t, "provider")
	signer, err := security.NewRSASigner(key, cert, 0)
	require.NoError(t, err)

	cfg, err := config.Parse([]byte("server:\n  webhookPath: /hooks/bluem\nlog:\n  level: debug\n"))
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	logger := cfg.Logger(logs)
	verifier := webhook.NewVerifier(webhook.NewStaticKeys(cert), bluemconfig.Test)

	s, err := New(cfg, verifier, sink, logger)
	require.NoError(t, err)
	return &testServer{Server: s, signer: signer, logs: logs}
}

func (ts *testServer) do(method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])

	assert.Equal(t, http.StatusMethodNotAllowed, ts.do(http.MethodPost, "/health", nil).Code)
}

func TestWebhookRoute(t *testing.T) {
	var got []*webhook.Notification
	ts := newTestServer(t, webhook.SinkFunc(func(_ context.Context, n *webhook.Notification) error {
		got = append(got, n)
		return nil
	}))

	signed, err := ts.signer.Sign([]byte(paymentUpdate))
	require.NoError(t, err)

	rec := ts.do(http.MethodPost, "/hooks/bluem", signed)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(webhook.ReceiptHeader))
	require.Len(t, got, 1)
	assert.Equal(t, registry.PaymentStatusUpdate, got[0].Code)

	assert.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/hooks/bluem", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/hooks/bluem", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/hooks/bluem", []byte(paymentUpdate)).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPost, "/webhook", signed).Code)
	assert.Len(t, got, 1)

	assert.Contains(t, ts.logs.String(), "path=/hooks/bluem")
	assert.Contains(t, ts.logs.String(), "request_id=")
}

func TestNew_TLSKeyPairMissing(t *testing.T) {
	cfg, err := config.Parse([]byte("server:\n  tls:\n    enabled: true\n    certFile: /nonexistent/cert.pem\n    keyFile: /nonexistent/key.pem\n"))
	require.NoError(t, err)

	_, err = New(cfg, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, "loading TLS key pair")
}

func TestNew_TLS(t *testing.T) {
	key, cert := testutil.RSAKeyPair(t, "localhost")
	certPath := testutil.WriteFile(t, "cert.pem", testutil.CertificatePEM(cert))
	keyPath := testutil.WriteFile(t, "key.pem", testutil.PrivateKeyPEM(key))

	cfg, err := config.Parse([]byte("server:\n  tls:\n    enabled: true\n    certFile: " + certPath + "\n    keyFile: " + keyPath + "\n"))
	require.NoError(t, err)

	s, err := New(cfg, nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, s.httpSrv.TLS())
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outbox")
	sink, err := NewDirSink(dir)
	require.NoError(t, err)

	n := &webhook.Notification{ID: "abc", Code: registry.PaymentStatusUpdate, Signed: []byte(paymentUpdate)}
	require.NoError(t, sink.Deliver(context.Background(), n))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "PSU-abc.xml", entries[0].Name())

	data, err := os.ReadFile(filepath.Join(dir, "PSU-abc.xml"))
	require.NoError(t, err)
	assert.Equal(t, paymentUpdate, string(data))
}

func TestSinks(t *testing.T) {
	var order []string
	record := func(name string, err error) webhook.Sink {
		return webhook.SinkFunc(func(context.Context, *webhook.Notification) error {
			order = append(order, name)
			return err
		})
	}
	boom := errors.New("boom")

	err := Sinks(record("a", nil), record("b", boom), record("c", nil)).Deliver(context.Background(), &webhook.Notification{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestLogSink(t *testing.T) {
	ts := newTestServer(t, nil)
	signed, err := ts.signer.Sign([]byte(paymentUpdate))
	require.NoError(t, err)

	v := webhook.NewVerifier(webhook.NewStaticKeys(ts.signer.Certificate()), bluemconfig.Test)
	n, err := v.Verify(http.MethodPost, signed)
	require.NoError(t, err)
	n.ID = "r-1"

	var buf bytes.Buffer
	require.NoError(t, LogSink(slog.New(slog.NewTextHandler(&buf, nil))).Deliver(context.Background(), n))
	out := buf.String()
	assert.True(t, strings.Contains(out, "status=Success"), out)
	assert.Contains(t, out, "receipt_id=r-1")
	assert.Contains(t, out, "kind=payment")
}

func TestWebhookRoute_Duplicates(t *testing.T) {
	var delivered int
	ts := newTestServer(t, webhook.SinkFunc(func(context.Context, *webhook.Notification) error {
		delivered++
		return nil
	}))

	signed, err := ts.signer.Sign([]byte(paymentUpdate))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/hooks/bluem", signed).Code)
	}
	assert.Equal(t, 1, delivered)
	assert.Contains(t, ts.logs.String(), "duplicate notification acknowledged")
}

func TestWebhookRoute_DuplicatesDisabled(t *testing.T) {
	key, cert := testutil.RSAKeyPair(t, "provider")
	signer, err := security.NewRSASigner(key, cert, 0)
	require.NoError(t, err)

	cfg, err := config.Parse([]byte("webhook:\n  duplicateWindow: -1s\n"))
	require.NoError(t, err)

	var delivered int
	s, err := New(cfg, webhook.NewVerifier(webhook.NewStaticKeys(cert), bluemconfig.Test),
		webhook.SinkFunc(func(context.Context, *webhook.Notification) error {
			delivered++
			return nil
		}), nil)
	require.NoError(t, err)

	signed, err := signer.Sign([]byte(paymentUpdate))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(signed)))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 2, delivered)
}
