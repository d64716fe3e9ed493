package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-bluem/pkg/registry"
	"github.com/sirosfoundation/go-bluem/pkg/reliability"
	"github.com/sirosfoundation/go-bluem/pkg/request"
	"github.com/sirosfoundation/go-bluem/pkg/response"
)

// errUnsuccessful makes the process exit non-zero after a failed exchange
// whose message was already printed.
var errUnsuccessful = errors.New("request was not successful")

func (a *app) mandateCmd() *cobra.Command {
	var customerID, orderID, mandateID string

	cmd := &cobra.Command{
		Use:   "mandate",
		Short: "Start an e-mandate transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd)
			if err != nil {
				return err
			}
			res, err := c.Mandate(cmd.Context(), customerID, orderID, mandateID)
			if err != nil {
				return err
			}
			return a.report(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&customerID, "customer", "", "Customer ID (debtor reference)")
	cmd.Flags().StringVar(&orderID, "order", "", "Order ID (purchase ID)")
	cmd.Flags().StringVar(&mandateID, "mandate-id", "", "Mandate ID; generated when empty")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}

func (a *app) mandateStatusCmd() *cobra.Command {
	var (
		mandateID, entranceCode string
		w                       waitFlags
	)

	cmd := &cobra.Command{
		Use:   "mandate-status",
		Short: "Query the status of an e-mandate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd)
			if err != nil {
				return err
			}
			res, err := a.await(cmd.Context(), w, func(ctx context.Context) (response.Response, error) {
				return c.MandateStatus(ctx, mandateID, entranceCode)
			})
			if err != nil {
				return err
			}
			return a.report(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&mandateID, "mandate-id", "", "Mandate ID")
	cmd.Flags().StringVar(&entranceCode, "entrance-code", "", "Entrance code of the original transaction")
	_ = cmd.MarkFlagRequired("mandate-id")
	w.register(cmd)
	return cmd
}

func (a *app) paymentCmd() *cobra.Command {
	var (
		p              request.PaymentParams
		amount, dueArg string
	)

	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Start a payment transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if p.Amount, err = decimal.NewFromString(amount); err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			if dueArg != "" {
				if p.DueDateTime, err = time.Parse(time.RFC3339, dueArg); err != nil {
					return fmt.Errorf("invalid due date %q: %w", dueArg, err)
				}
			}
			c, err := a.client(cmd)
			if err != nil {
				return err
			}
			res, err := c.Payment(cmd.Context(), p)
			if err != nil {
				return err
			}
			return a.report(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&p.Description, "description", "", "Description shown to the debtor")
	cmd.Flags().StringVar(&p.DebtorReference, "reference", "", "Debtor reference")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 12.50")
	cmd.Flags().StringVar(&p.Currency, "currency", "EUR", "Currency")
	cmd.Flags().StringVar(&dueArg, "due", "", "Due date (RFC 3339); one day from now when empty")
	cmd.Flags().StringVar(&p.DebtorReturnURL, "return-url", "", "URL the debtor returns to")
	cmd.Flags().StringVar(&p.EntranceCode, "entrance-code", "", "Entrance code; generated when empty")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("reference")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (a *app) paymentStatusCmd() *cobra.Command {
	var (
		transactionID, entranceCode string
		w                           waitFlags
	)

	cmd := &cobra.Command{
		Use:   "payment-status",
		Short: "Query the status of a payment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd)
			if err != nil {
				return err
			}
			res, err := a.await(cmd.Context(), w, func(ctx context.Context) (response.Response, error) {
				return c.PaymentStatus(ctx, transactionID, entranceCode)
			})
			if err != nil {
				return err
			}
			return a.report(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&transactionID, "transaction-id", "", "Transaction ID")
	cmd.Flags().StringVar(&entranceCode, "entrance-code", "", "Entrance code of the original transaction")
	_ = cmd.MarkFlagRequired("transaction-id")
	w.register(cmd)
	return cmd
}

func (a *app) identityCmd() *cobra.Command {
	var (
		p          request.IdentityParams
		categories []string
	)

	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Start an identity transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Categories = p.Categories[:0]
			for _, c := range categories {
				p.Categories = append(p.Categories, registry.IdentityCategory(c))
			}
			c, err := a.client(cmd)
			if err != nil {
				return err
			}
			res, err := c.Identity(cmd.Context(), p)
			if err != nil {
				return err
			}
			return a.report(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringSliceVar(&categories, "category", []string{string(registry.NameRequest)}, "Requested categories, e.g. NameRequest,AgeCheckRequest")
	cmd.Flags().StringVar(&p.Description, "description", "", "Description shown to the user")
	cmd.Flags().StringVar(&p.DebtorReference, "reference", "", "Debtor reference")
	cmd.Flags().StringVar(&p.DebtorReturnURL, "return-url", "", "URL the user returns to")
	cmd.Flags().StringVar(&p.EntranceCode, "entrance-code", "", "Entrance code; generated when empty")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("return-url")
	return cmd
}

func (a *app) identityStatusCmd() *cobra.Command {
	var (
		transactionID, entranceCode string
		w                           waitFlags
	)

	cmd := &cobra.Command{
		Use:   "identity-status",
		Short: "Query the status of an identity transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd)
			if err != nil {
				return err
			}
			res, err := a.await(cmd.Context(), w, func(ctx context.Context) (response.Response, error) {
				return c.IdentityStatus(ctx, transactionID, entranceCode)
			})
			if err != nil {
				return err
			}
			return a.report(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&transactionID, "transaction-id", "", "Transaction ID")
	cmd.Flags().StringVar(&entranceCode, "entrance-code", "", "Entrance code of the original transaction")
	_ = cmd.MarkFlagRequired("transaction-id")
	w.register(cmd)
	return cmd
}

func (a *app) ibanCheckCmd() *cobra.Command {
	var iban, name, reference string

	cmd := &cobra.Command{
		Use:   "iban-check",
		Short: "Check whether a name matches the holder of an IBAN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd)
			if err != nil {
				return err
			}
			res, err := c.IBANNameCheck(cmd.Context(), iban, name, reference)
			if err != nil {
				return err
			}
			return a.report(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&iban, "iban", "", "IBAN to check")
	cmd.Flags().StringVar(&name, "name", "", "Assumed account holder name")
	cmd.Flags().StringVar(&reference, "reference", "", "Optional debtor reference")
	_ = cmd.MarkFlagRequired("iban")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (a *app) banksCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "banks {Mandates|Payments|Identity}",
		Short:     "List the banks accepted for a transaction family",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"Mandates", "Payments", "Identity"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd)
			if err != nil {
				return err
			}
			issuers, err := c.BICs(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, iss := range issuers {
				fmt.Fprintf(w, "%-12s %s\n", iss.BIC, iss.Name)
			}
			return nil
		},
	}
}

// waitFlags let status commands poll until the transaction is final.
type waitFlags struct {
	timeout  time.Duration
	interval time.Duration
}

func (w *waitFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&w.timeout, "wait", 0, "Keep polling up to this long until the status is final")
	cmd.Flags().DurationVar(&w.interval, "poll-interval", reliability.DefaultRetryPolicy().Interval, "Initial delay between polls")
}

// await runs query once, or with --wait until the result is final or the
// exchange fails. The last result is returned when time runs out.
func (a *app) await(ctx context.Context, w waitFlags, query func(context.Context) (response.Response, error)) (response.Response, error) {
	if w.timeout <= 0 {
		return query(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	policy := reliability.DefaultRetryPolicy()
	policy.Interval = w.interval
	policy.MaxRetries = math.MaxInt32

	var last response.Response
	err := reliability.Poll(ctx, policy, func(ctx context.Context) (bool, error) {
		res, err := query(ctx)
		if err != nil {
			return false, err
		}
		if ctx.Err() != nil {
			// cut off mid-exchange; keep the previous answer
			return false, ctx.Err()
		}
		last = res
		st, ok := statusOf(res)
		return !res.Status() || !ok || st.Final(), nil
	})
	switch {
	case err == nil:
		return last, nil
	case last != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, reliability.ErrRetriesExhausted)):
		a.logger.Warn("status not final", slog.Duration("waited", w.timeout))
		return last, nil
	}
	return nil, err
}

func statusOf(res response.Response) (response.TransactionStatus, bool) {
	switch r := res.(type) {
	case *response.MandateStatus:
		return r.TransactionStatus(), true
	case *response.PaymentStatus:
		return r.TransactionStatus(), true
	case *response.IdentityStatus:
		return r.TransactionStatus(), true
	}
	return "", false
}

type field struct {
	name  string
	value string
}

// report prints res and returns errUnsuccessful for failed exchanges.
func (a *app) report(w io.Writer, res response.Response) error {
	if !res.Status() {
		fmt.Fprintln(w, res.ErrorMessage())
		return errUnsuccessful
	}

	fmt.Fprintf(w, "%-20s %s\n", "Entrance code:", res.EntranceCode())
	for _, f := range fields(res) {
		if f.value == "" {
			continue
		}
		fmt.Fprintf(w, "%-20s %s\n", f.name+":", f.value)
	}

	if a.showXML {
		if x, ok := res.(interface{ XML() ([]byte, error) }); ok {
			data, err := x.XML()
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "\n%s\n", data)
		}
	}
	return nil
}

func fields(res response.Response) []field {
	switch r := res.(type) {
	case *response.MandateTransaction:
		return []field{
			{"Transaction URL", r.TransactionURL()},
			{"Mandate ID", r.MandateID()},
			{"Transaction ID", r.TransactionID()},
		}
	case *response.MandateStatus:
		return []field{
			{"Mandate ID", r.MandateID()},
			{"Status", string(r.TransactionStatus())},
			{"Max amount", r.MaxAmount().StringFixed(2)},
			{"Debtor IBAN", r.DebtorIBAN()},
			{"Account name", r.DebtorAccountName()},
		}
	case *response.PaymentTransaction:
		return []field{
			{"Transaction URL", r.TransactionURL()},
			{"Transaction ID", r.TransactionID()},
			{"Payment reference", r.PaymentReference()},
			{"Debtor reference", r.DebtorReference()},
		}
	case *response.PaymentStatus:
		return []field{
			{"Transaction ID", r.TransactionID()},
			{"Status", string(r.TransactionStatus())},
			{"Amount", r.Amount().StringFixed(2)},
			{"Debtor reference", r.DebtorReference()},
		}
	case *response.IdentityTransaction:
		return []field{
			{"Transaction URL", r.TransactionURL()},
			{"Transaction ID", r.TransactionID()},
		}
	case *response.IdentityStatus:
		out := []field{
			{"Transaction ID", r.TransactionID()},
			{"Status", string(r.TransactionStatus())},
		}
		report := r.IdentityReport()
		keys := make([]string, 0, len(report))
		for k := range report {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, field{k, report[k]})
		}
		return out
	case *response.IBANNameCheck:
		return []field{
			{"IBAN", r.IBAN()},
			{"Assumed name", r.AssumedName()},
			{"IBAN result", string(r.IBANResult())},
			{"Name result", string(r.NameResult())},
			{"Suggested name", r.SuggestedName()},
			{"Account status", r.AccountStatus()},
			{"Account type", r.AccountType()},
			{"Joint account", strconv.FormatBool(r.JointAccount())},
		}
	}
	return nil
}
