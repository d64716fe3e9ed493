package storage

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-bluem/pkg/registry"
	"github.com/sirosfoundation/go-bluem/pkg/response"
	"github.com/sirosfoundation/go-bluem/pkg/webhook"
)

const (
	mandateUpdate  = `<EMandateInterface type="StatusUpdate"><EMandateStatusUpdate entranceCode="ec-m"><EMandateStatus><MandateID>M-1</MandateID><Status>Success</Status></EMandateStatus></EMandateStatusUpdate></EMandateInterface>`
	paymentUpdate  = `<EPaymentInterface type="StatusUpdate"><PaymentStatusUpdate entranceCode="ec-p"><TransactionID>TX-P-1</TransactionID><Status>Expired</Status></PaymentStatusUpdate></EPaymentInterface>`
	identityUpdate = `<IdentityInterface type="StatusUpdate"><IdentityStatusUpdate entranceCode="ec-i"><TransactionID>TX-I-1</TransactionID><Status>Open</Status></IdentityStatusUpdate></IdentityInterface>`
)

func notification(t *testing.T, id string, kind webhook.Kind, code registry.TransactionCode, body string) *webhook.Notification {
	t.Helper()
	res, err := response.Classify(code, http.StatusOK, []byte(body))
	require.NoError(t, err)
	return &webhook.Notification{ID: id, Kind: kind, Code: code, Update: res, Signed: []byte(body)}
}

// memoryStore is an in-process NotificationStore for tests.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]*Record)}
}

func (m *memoryStore) SaveNotification(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.records[rec.ID]; ok {
		return ErrDuplicate
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *memoryStore) GetNotification(_ context.Context, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id], nil
}

func (m *memoryStore) ListNotifications(context.Context, *RecordFilter) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryStore) Close(context.Context) error { return nil }
func (m *memoryStore) Ping(context.Context) error  { return nil }

func TestNewRecord(t *testing.T) {
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name      string
		n         *webhook.Notification
		entrance  string
		reference string
		status    response.TransactionStatus
	}{
		{"mandate", notification(t, "r-1", webhook.KindMandate, registry.MandateStatusUpdate, mandateUpdate), "ec-m", "M-1", response.StatusSuccess},
		{"payment", notification(t, "r-2", webhook.KindPayment, registry.PaymentStatusUpdate, paymentUpdate), "ec-p", "TX-P-1", response.StatusExpired},
		{"identity", notification(t, "r-3", webhook.KindIdentity, registry.IdentityStatusUpdate, identityUpdate), "ec-i", "TX-I-1", response.StatusOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := NewRecord(tt.n, at)
			require.NoError(t, err)
			assert.Equal(t, tt.n.ID, rec.ID)
			assert.Equal(t, tt.n.Kind, rec.Kind)
			assert.Equal(t, tt.n.Code, rec.Code)
			assert.Equal(t, tt.entrance, rec.EntranceCode)
			assert.Equal(t, tt.reference, rec.Reference)
			assert.Equal(t, tt.status, rec.Status)
			assert.Equal(t, time.UTC, rec.ReceivedAt.Location())
			assert.True(t, at.Equal(rec.ReceivedAt))
		})
	}
}

func TestNewRecord_Probe(t *testing.T) {
	_, err := NewRecord(&webhook.Notification{ID: "p", Probe: true}, time.Now())
	assert.Error(t, err)
}

func TestSink(t *testing.T) {
	store := newMemoryStore()
	sink := Sink(store)
	n := notification(t, "r-1", webhook.KindPayment, registry.PaymentStatusUpdate, paymentUpdate)

	require.NoError(t, sink.Deliver(context.Background(), n))
	require.NoError(t, sink.Deliver(context.Background(), n), "a stored receipt counts as delivered")

	rec, err := store.GetNotification(context.Background(), "r-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, paymentUpdate, string(rec.Signed))
}

func TestSink_StoreFailure(t *testing.T) {
	down := errors.New("connection refused")
	store := newMemoryStore()
	store.err = down

	err := Sink(store).Deliver(context.Background(), notification(t, "r-1", webhook.KindPayment, registry.PaymentStatusUpdate, paymentUpdate))
	assert.ErrorIs(t, err, down)
	assert.ErrorContains(t, err, "storing notification")
}
