package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"rentals/internal/core"
)

// CreateTransaction opens a rental request. Dates travel as epoch
// milliseconds in the query string; the API decides whether they are valid.
func (c *Client) CreateTransaction(ctx context.Context, req core.RentalRequest) (core.Transaction, error) {
	if err := req.Validate(); err != nil {
		return core.Transaction{}, err
	}
	q := url.Values{}
	q.Set("propertyId", req.PropertyID.String())
	q.Set("startDate", strconv.FormatInt(req.StartDate.UnixMilli(), 10))
	q.Set("endDate", strconv.FormatInt(req.EndDate.UnixMilli(), 10))

	var out core.Transaction
	err := c.do(ctx, http.MethodPost, "/transactions", q, nil, &out)
	return out, err
}

// ListTransactions returns the caller's rental requests as a tenant.
func (c *Client) ListTransactions(ctx context.Context, page core.PageRequest) (core.Page[core.Transaction], error) {
	return c.transactionPage(ctx, "/transactions", page)
}

// ListOwnerTransactions returns requests made on the caller's properties.
func (c *Client) ListOwnerTransactions(ctx context.Context, page core.PageRequest) (core.Page[core.Transaction], error) {
	return c.transactionPage(ctx, "/transactions/owner", page)
}

func (c *Client) transactionPage(ctx context.Context, path string, page core.PageRequest) (core.Page[core.Transaction], error) {
	if err := page.Validate(); err != nil {
		return core.Page[core.Transaction]{}, err
	}
	var body pageBody[core.Transaction]
	if err := c.do(ctx, http.MethodGet, path, page.Values(), nil, &body); err != nil {
		return core.Page[core.Transaction]{}, err
	}
	return core.Page[core.Transaction]{
		Items:       body.Transactions,
		CurrentPage: body.CurrentPage,
		TotalItems:  body.TotalItems,
		TotalPages:  body.TotalPages,
	}, nil
}

func (c *Client) ApproveTransaction(ctx context.Context, id core.ID) (core.Transaction, error) {
	if id.IsZero() {
		return core.Transaction{}, core.ErrMissingTransactionID
	}
	var out core.Transaction
	err := c.do(ctx, http.MethodPut, "/transactions/"+url.PathEscape(id.String())+"/approve", nil, nil, &out)
	return out, err
}
