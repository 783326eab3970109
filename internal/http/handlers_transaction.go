package http

import (
	"net/http"
	"net/url"
	"sync/atomic"

	"rentals/internal/apiclient"
	"rentals/internal/core"
	"rentals/internal/events"
	rlog "rentals/internal/log"
)

const (
	MsgTransactionsFailed = "Failed to load transactions"
	MsgApproveFailed      = "Failed to approve transaction"
	MsgApproved           = "Transaction approved"
)

type transactionsView struct {
	Page  core.Page[core.Transaction]
	Owner bool
	Query url.Values
}

// handleTransactions shows the tenant dashboard, or the owner one with
// view=owner.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	v, err := s.transactionsPage(r, query)
	if err != nil {
		if s.sessionRejected(w, r, err) {
			return
		}
		s.noteAPIFailure(r, rlog.OpList, err)
		v.Error = userMessage(err, MsgTransactionsFailed)
	}
	s.render(w, r, http.StatusOK, "transactions.html", v)
}

func (s *Server) transactionsPage(r *http.Request, query url.Values) (pageView, error) {
	view := &transactionsView{Owner: query.Get("view") == "owner", Query: query}
	v := s.page(r, "Transactions", view)

	api := s.apiFor(r)
	page := ParsePage(query)
	var err error
	if view.Owner {
		view.Page, err = api.ListOwnerTransactions(detach(r), page)
	} else {
		view.Page, err = api.ListTransactions(detach(r), page)
	}
	return v, err
}

// handleApprove approves a pending transaction. htmx callers get the
// updated card in place; plain form posts are sent back to the owner
// dashboard, which fetches the fresh list.
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := detach(r)
	id := r.PathValue("id")

	tx, err := s.apiFor(r).ApproveTransaction(ctx, core.ID(id))
	if err != nil {
		if s.sessionRejected(w, r, err) {
			return
		}
		s.noteAPIFailure(r, rlog.OpApprove, err)
		msg := apiclient.Message(err, MsgApproveFailed)
		if isHTMX(r) {
			NewHTMXResponse().
				Header("HX-Reswap", "none").
				TriggerErrorNotification(msg).
				Write(w)
			return
		}
		v, listErr := s.transactionsPage(r, url.Values{"view": {"owner"}})
		if listErr != nil {
			s.noteAPIFailure(r, rlog.OpList, listErr)
		}
		v.Error = msg
		s.render(w, r, http.StatusUnprocessableEntity, "transactions.html", v)
		return
	}

	atomic.AddInt64(&s.appMetrics.approvals, 1)
	s.log(ctx).InfoContext(ctx, "Transaction approved",
		rlog.FieldOperation, rlog.OpApprove,
		rlog.FieldTransaction, id)
	s.publish(ctx, events.New(events.TransactionApproved, s.currentUser(r).ID, id))

	if isHTMX(r) {
		s.fragment(r, "transaction_card", cardView{Tx: tx, Owner: true}).
			TriggerTransactionApproved(id).
			TriggerSuccessNotification(MsgApproved).
			Write(w)
		return
	}
	http.Redirect(w, r, "/transactions?view=owner", http.StatusSeeOther)
}
