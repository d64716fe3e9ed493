package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sirosfoundation/go-bluem/pkg/response"
	"github.com/sirosfoundation/go-bluem/pkg/webhook"
)

// LogSink records accepted notifications in the log only.
func LogSink(logger *slog.Logger) webhook.Sink {
	return webhook.SinkFunc(func(_ context.Context, n *webhook.Notification) error {
		attrs := []any{
			slog.String("receipt_id", n.ID),
			slog.String("kind", string(n.Kind)),
			slog.String("entrance_code", n.EntranceCode()),
		}
		if st, ok := statusOf(n.Update); ok {
			attrs = append(attrs, slog.String("status", string(st)))
		}
		logger.Info("status update", attrs...)
		return nil
	})
}

// DirSink writes the signed XML of each notification to dir, one file per
// receipt. Files are written to a temporary name and renamed so readers
// never see partial documents.
type DirSink struct {
	dir string
}

func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating outbox: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

func (d *DirSink) Deliver(_ context.Context, n *webhook.Notification) error {
	name := fmt.Sprintf("%s-%s.xml", n.Code, n.ID)
	tmp, err := os.CreateTemp(d.dir, ".incoming-*")
	if err != nil {
		return fmt.Errorf("creating notification file: %w", err)
	}
	if _, err := tmp.Write(n.Signed); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing notification: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing notification: %w", err)
	}
	return os.Rename(tmp.Name(), filepath.Join(d.dir, name))
}

// Sinks delivers to every sink in order and stops at the first failure.
func Sinks(sinks ...webhook.Sink) webhook.Sink {
	return webhook.SinkFunc(func(ctx context.Context, n *webhook.Notification) error {
		for _, s := range sinks {
			if err := s.Deliver(ctx, n); err != nil {
				return err
			}
		}
		return nil
	})
}

func statusOf(r response.Response) (response.TransactionStatus, bool) {
	switch u := r.(type) {
	case *response.PaymentStatus:
		return u.TransactionStatus(), true
	case *response.MandateStatus:
		return u.TransactionStatus(), true
	case *response.IdentityStatus:
		return u.TransactionStatus(), true
	}
	return "", false
}
