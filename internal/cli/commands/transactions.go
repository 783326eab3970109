package commands

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"rentals/internal/core"
)

const dateLayout = "2006-01-02"

var errMissingDates = errors.New("Please select start and end dates")

func RentCmd(app *App) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "rent PROPERTY_ID",
		Short: "Request to rent a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, err := app.authorize(ctx, routeFor("/properties/{id}/rent", args[0]))
			if err != nil {
				return err
			}

			req := core.RentalRequest{PropertyID: core.ID(args[0])}
			if req.StartDate, err = parseDate("start", start); err != nil {
				return err
			}
			if req.EndDate, err = parseDate("end", end); err != nil {
				return err
			}
			if errors.Is(req.Validate(), core.ErrMissingRentalDates) {
				return errMissingDates
			}

			tx, err := api.CreateTransaction(ctx, req)
			if err != nil {
				return app.apiError(ctx, err, "Failed to submit rental request")
			}
			printf(cmd, "Rental request submitted successfully! (transaction %s, %s)\n", tx.ID, tx.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD")
	return cmd
}

func TransactionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Rental requests you made or received",
	}
	cmd.AddCommand(transactionsListCmd(app), transactionsApproveCmd(app))
	return cmd
}

func transactionsListCmd(app *App) *cobra.Command {
	var (
		owner bool
		page  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your transactions; --owner for requests on your listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, err := app.authorize(ctx, "/transactions")
			if err != nil {
				return err
			}

			pr := core.PageRequest{Page: page, Size: core.DefaultPageSize}
			var result core.Page[core.Transaction]
			if owner {
				result, err = api.ListOwnerTransactions(ctx, pr)
			} else {
				result, err = api.ListTransactions(ctx, pr)
			}
			if err != nil {
				return app.apiError(ctx, err, "Failed to load transactions")
			}

			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPROPERTY\tFROM\tTO\tAMOUNT\tSTATUS")
			for _, tx := range result.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					tx.ID, tx.PropertyID, tx.StartDate.DateString(), tx.EndDate.DateString(), tx.Amount.StringFixed(2), tx.Status)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			printf(cmd, "page %d of %d\n", result.Number(), result.TotalPages)
			return nil
		},
	}
	cmd.Flags().BoolVar(&owner, "owner", false, "show requests on properties you own")
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page")
	return cmd
}

func transactionsApproveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "approve ID",
		Short: "Approve a pending request on one of your properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, err := app.authorize(ctx, routeFor("/transactions/{id}/approve", args[0]))
			if err != nil {
				return err
			}
			tx, err := api.ApproveTransaction(ctx, core.ID(args[0]))
			if err != nil {
				return app.apiError(ctx, err, "Failed to approve transaction")
			}
			printf(cmd, "Transaction %s is now %s\n", tx.ID, tx.Status)
			return nil
		},
	}
}

func parseDate(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be a date like 2025-01-31", name)
	}
	return t, nil
}

// routeFor fills the {id} of a guarded route pattern.
func routeFor(pattern, id string) string {
	return strings.Replace(pattern, "{id}", url.PathEscape(id), 1)
}
