// Package storage keeps a history of verified provider notifications.
//
// The webhook server stores each accepted status update as a [Record]; the
// CLI reads them back for inspection. The mongodb sub-package provides the
// MongoDB implementation.
//
// # Concurrency
//
// Store implementations must be safe for concurrent use from multiple
// goroutines.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirosfoundation/go-bluem/pkg/registry"
	"github.com/sirosfoundation/go-bluem/pkg/response"
	"github.com/sirosfoundation/go-bluem/pkg/webhook"
)

// ErrDuplicate is returned when a record with the same ID already exists.
var ErrDuplicate = errors.New("notification already stored")

// NotificationStore persists verified notifications
type NotificationStore interface {
	// SaveNotification stores rec; ErrDuplicate when its ID is taken
	SaveNotification(ctx context.Context, rec *Record) error

	// GetNotification returns the record with the given receipt ID, or nil
	GetNotification(ctx context.Context, id string) (*Record, error)

	// ListNotifications returns matching records, newest first
	ListNotifications(ctx context.Context, filter *RecordFilter) ([]*Record, error)

	// Close releases storage resources
	Close(ctx context.Context) error

	// Ping checks database connectivity
	Ping(ctx context.Context) error
}

// Record is a stored status update
type Record struct {
	ID           string                   `bson:"_id" json:"id"`
	Kind         webhook.Kind             `bson:"kind" json:"kind"`
	Code         registry.TransactionCode `bson:"code" json:"code"`
	EntranceCode string                   `bson:"entrance_code" json:"entranceCode"`
	// Reference is the mandate ID for mandates and the transaction ID otherwise.
	Reference  string                     `bson:"reference" json:"reference"`
	Status     response.TransactionStatus `bson:"status" json:"status"`
	Signed     []byte                     `bson:"signed" json:"-"`
	ReceivedAt time.Time                  `bson:"received_at" json:"receivedAt"`
}

// RecordFilter selects records; zero fields match everything
type RecordFilter struct {
	Kind         webhook.Kind
	Status       response.TransactionStatus
	EntranceCode string
	Reference    string
	Since        *time.Time
	Limit        int
}

// NewRecord converts a verified notification. Probes cannot be stored.
func NewRecord(n *webhook.Notification, receivedAt time.Time) (*Record, error) {
	if n.Probe || n.Update == nil {
		return nil, fmt.Errorf("notification %q carries no update", n.ID)
	}
	rec := &Record{
		ID:           n.ID,
		Kind:         n.Kind,
		Code:         n.Code,
		EntranceCode: n.EntranceCode(),
		Signed:       n.Signed,
		ReceivedAt:   receivedAt.UTC(),
	}
	switch u := n.Update.(type) {
	case *response.MandateStatus:
		rec.Reference = u.MandateID()
		rec.Status = u.TransactionStatus()
	case *response.PaymentStatus:
		rec.Reference = u.TransactionID()
		rec.Status = u.TransactionStatus()
	case *response.IdentityStatus:
		rec.Reference = u.TransactionID()
		rec.Status = u.TransactionStatus()
	}
	return rec, nil
}

// Sink returns a webhook sink saving every notification to store. A record
// already stored under the same receipt ID counts as delivered.
func Sink(store NotificationStore) webhook.Sink {
	return webhook.SinkFunc(func(ctx context.Context, n *webhook.Notification) error {
		rec, err := NewRecord(n, time.Now())
		if err != nil {
			return err
		}
		if err := store.SaveNotification(ctx, rec); err != nil && !errors.Is(err, ErrDuplicate) {
			return fmt.Errorf("storing notification: %w", err)
		}
		return nil
	})
}
