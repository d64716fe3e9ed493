package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/sirosfoundation/go-bluem/pkg/reliability"
)

// DefaultMaxBodyBytes bounds the size of an accepted notification.
const DefaultMaxBodyBytes = 1 << 20

// ReceiptHeader carries the receipt ID of an accepted notification.
const ReceiptHeader = "X-Receipt-ID"

// Sink receives accepted notifications. Persisting them is up to the
// implementation.
type Sink interface {
	Deliver(ctx context.Context, n *Notification) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n *Notification) error

func (f SinkFunc) Deliver(ctx context.Context, n *Notification) error { return f(ctx, n) }

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	Verifier     *Verifier
	Sink         Sink
	Logger       *slog.Logger
	MaxBodyBytes int64
	// Duplicates, when set, acknowledges repeated deliveries of an already
	// accepted notification without passing them to the sink again.
	Duplicates *reliability.DuplicateTracker
}

// Handler serves the notification endpoint.
type Handler struct {
	verifier *Verifier
	sink     Sink
	logger   *slog.Logger
	maxBytes int64
	dups     *reliability.DuplicateTracker
}

func NewHandler(cfg *HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return &Handler{
		verifier: cfg.Verifier,
		sink:     cfg.Sink,
		logger:   logger,
		maxBytes: maxBytes,
		dups:     cfg.Duplicates,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	log := h.logger.With(slog.String("receipt_id", id), slog.String("remote", r.RemoteAddr))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		log.Warn("notification rejected", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	n, err := h.verifier.Verify(r.Method, body)
	if err != nil {
		log.Warn("notification rejected",
			slog.String("method", r.Method),
			slog.String("reason", rejectReason(err)),
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if n.Probe {
		log.Debug("liveness probe")
		w.WriteHeader(http.StatusOK)
		return
	}

	n.ID = id
	log = log.With(
		slog.String("kind", string(n.Kind)),
		slog.String("entrance_code", n.EntranceCode()))

	if h.dups != nil && h.dups.Seen(n.Signed) {
		log.Info("duplicate notification acknowledged")
		w.WriteHeader(http.StatusOK)
		return
	}

	if h.sink != nil {
		if err := h.sink.Deliver(r.Context(), n); err != nil {
			if h.dups != nil {
				h.dups.Forget(n.Signed)
			}
			log.Error("notification delivery failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}

	log.Info("notification accepted")
	w.Header().Set(ReceiptHeader, id)
	w.WriteHeader(http.StatusOK)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrBadRequest):
		return "method"
	case errors.Is(err, ErrMalformedXML):
		return "malformed"
	case errors.Is(err, ErrInvalidSignature):
		return "signature"
	case errors.Is(err, ErrUnrecognizedPayload):
		return "payload"
	default:
		return "unknown"
	}
}
