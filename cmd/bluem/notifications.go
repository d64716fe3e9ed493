package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-bluem/internal/config"
	"github.com/sirosfoundation/go-bluem/internal/storage"
	"github.com/sirosfoundation/go-bluem/internal/storage/mongodb"
	"github.com/sirosfoundation/go-bluem/pkg/response"
	"github.com/sirosfoundation/go-bluem/pkg/webhook"
)

// openStore connects the notification history. Tests replace it.
var openStore = func(ctx context.Context, cfg config.StorageConfig) (storage.NotificationStore, error) {
	return mongodb.NewStore(ctx, &mongodb.Config{
		URI:        cfg.MongoDB.URI,
		Database:   cfg.MongoDB.Database,
		Collection: cfg.MongoDB.Collection,
	})
}

// store opens the configured history, or returns nil when none is configured.
func (a *app) store(cmd *cobra.Command) (storage.NotificationStore, error) {
	cfg, err := a.config(cmd)
	if err != nil {
		return nil, err
	}
	if !cfg.Storage.Enabled() {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	s, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening notification store: %w", err)
	}
	return s, nil
}

func (a *app) notificationsCmd() *cobra.Command {
	var (
		filter   storage.RecordFilter
		kind     string
		status   string
		since    time.Duration
		asJSON   bool
		showXML  bool
		receipts []string
	)

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List stored status updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store(cmd)
			if err != nil {
				return err
			}
			if s == nil {
				return fmt.Errorf("no notification store configured")
			}
			defer s.Close(context.Background())

			var records []*storage.Record
			if len(receipts) > 0 {
				for _, id := range receipts {
					rec, err := s.GetNotification(cmd.Context(), id)
					if err != nil {
						return err
					}
					if rec == nil {
						return fmt.Errorf("notification %s not found", id)
					}
					records = append(records, rec)
				}
			} else {
				filter.Kind = webhook.Kind(kind)
				filter.Status = response.TransactionStatus(status)
				if since > 0 {
					t := time.Now().Add(-since)
					filter.Since = &t
				}
				if records, err = s.ListNotifications(cmd.Context(), &filter); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			for _, r := range records {
				fmt.Fprintf(w, "%s  %-36s  %-8s  %-10s  %-20s  %s\n",
					r.ReceivedAt.Format(time.RFC3339), r.ID, r.Kind, r.Status, r.EntranceCode, r.Reference)
				if showXML {
					fmt.Fprintf(w, "%s\n\n", r.Signed)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Only this kind: mandate, payment or identity")
	cmd.Flags().StringVar(&status, "status", "", "Only this status, e.g. Success")
	cmd.Flags().StringVar(&filter.EntranceCode, "entrance-code", "", "Only this entrance code")
	cmd.Flags().StringVar(&filter.Reference, "reference", "", "Only this mandate or transaction ID")
	cmd.Flags().DurationVar(&since, "since", 0, "Only updates received within this period")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "Maximum number of updates")
	cmd.Flags().StringSliceVar(&receipts, "id", nil, "Show these receipt IDs instead of filtering")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().BoolVar(&showXML, "signed", false, "Print the signed XML of each update")
	return cmd
}
