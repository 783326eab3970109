package http

import (
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"

	"rentals/internal/apiclient"
	"rentals/internal/core"
	"rentals/internal/events"
	"rentals/internal/guard"
	rlog "rentals/internal/log"
	"rentals/internal/session"
)

const (
	MsgSelectDates       = "Please select start and end dates"
	MsgRentalSubmitted   = "Rental request submitted successfully!"
	MsgRentalFailed      = "Failed to submit rental request"
	MsgCreateFailed      = "Failed to create property"
	MsgUpdateFailed      = "Failed to update property"
	MsgDeleteFailed      = "Failed to delete property"
	MsgNotOwner          = "Only the owner can change this listing."
	MsgPropertyDeleted   = "Listing deleted."
	MsgPropertiesFailed  = "Failed to load properties"
	MsgPropertyNotFound  = "Property not found"
	MsgPropertyLoadError = "Failed to load property"
)

type propertiesView struct {
	Page   core.Page[core.Property]
	Filter core.PropertyFilter
	Nearby bool
	Query  url.Values
	Types  []core.PropertyType
}

type detailView struct {
	Property core.Property
	Owner    bool
	Result   *rentResult
}

// rentResult is the verdict shown under the rental form.
type rentResult struct {
	OK         bool
	Message    string
	PropertyID core.ID
}

// propertyFormView backs both the create and the edit form.
type propertyFormView struct {
	Heading string
	Action  string
	Submit  string
	Draft   core.PropertyDraft
	Form    url.Values
	Types   []core.PropertyType
}

func createForm(form url.Values) propertyFormView {
	return propertyFormView{
		Heading: "List a property",
		Action:  "/properties/create",
		Submit:  "Create listing",
		Form:    form,
		Types:   core.PropertyTypes(),
	}
}

func editForm(id string, form url.Values) propertyFormView {
	return propertyFormView{
		Heading: "Edit listing",
		Action:  "/properties/" + url.PathEscape(id) + "/edit",
		Submit:  "Save changes",
		Form:    form,
		Types:   core.PropertyTypes(),
	}
}

func (s *Server) handleProperties(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	view := propertiesView{Query: query, Types: core.PropertyTypes()}
	v := s.page(r, "Properties", &view)

	page, err := s.searchProperties(r, query, &view)
	if err != nil {
		if s.sessionRejected(w, r, err) {
			return
		}
		v.Error = userMessage(err, MsgPropertiesFailed)
		s.noteAPIFailure(r, rlog.OpList, err)
	}
	view.Page = page

	if isHTMX(r) && r.Header.Get("HX-Target") == "results" {
		if v.Error != "" {
			ErrorFragment(v.Error).Write(w)
			return
		}
		s.fragment(r, "property_results", &view).Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "properties.html", v)
}

// searchProperties runs a nearby search when coordinates are given and the
// filtered listing otherwise.
func (s *Server) searchProperties(r *http.Request, query url.Values, view *propertiesView) (core.Page[core.Property], error) {
	nearby, ok, err := ParseNearbyFilter(query)
	if err != nil {
		return core.Page[core.Property]{}, err
	}
	if ok {
		view.Nearby = true
		return s.apiFor(r).SearchNearby(detach(r), nearby)
	}

	filter, err := ParsePropertyFilter(query)
	view.Filter = filter
	if err != nil {
		return core.Page[core.Property]{}, err
	}
	return s.apiFor(r).ListProperties(detach(r), filter)
}

func (s *Server) handlePropertyDetail(w http.ResponseWriter, r *http.Request) {
	prop, err := s.apiFor(r).GetProperty(detach(r), core.ID(r.PathValue("id")))
	if err != nil {
		if s.sessionRejected(w, r, err) {
			return
		}
		s.propertyError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "property_detail.html", s.page(r, prop.Title, s.detail(r, prop, nil)))
}

func (s *Server) detail(r *http.Request, prop core.Property, result *rentResult) detailView {
	return detailView{Property: prop, Owner: prop.OwnedBy(s.currentUser(r).ID), Result: result}
}

func (s *Server) propertyError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		s.renderError(w, r, http.StatusNotFound, MsgPropertyNotFound)
		return
	}
	s.noteAPIFailure(r, rlog.OpRead, err)
	s.renderError(w, r, http.StatusBadGateway, userMessage(err, MsgPropertyLoadError))
}

// handleRent submits a rental request. The API decides whether the dates
// are acceptable; its answer is shown unchanged.
func (s *Server) handleRent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	ctx := detach(r)
	propertyID := r.PathValue("id")
	result := &rentResult{PropertyID: core.ID(propertyID)}

	req, err := ParseRentalRequest(propertyID, r.PostForm)
	if err == nil {
		err = req.Validate()
	}
	switch {
	case errors.Is(err, core.ErrMissingRentalDates):
		result.Message = MsgSelectDates
	case err != nil:
		result.Message = err.Error()
	default:
		tx, apiErr := s.apiFor(r).CreateTransaction(ctx, req)
		if apiErr != nil {
			if s.sessionRejected(w, r, apiErr) {
				return
			}
			s.noteAPIFailure(r, rlog.OpRent, apiErr)
			result.Message = apiclient.Message(apiErr, MsgRentalFailed)
			break
		}
		atomic.AddInt64(&s.appMetrics.rentalRequests, 1)
		result.OK = true
		result.Message = MsgRentalSubmitted
		s.log(ctx).InfoContext(ctx, "Rental requested",
			rlog.FieldOperation, rlog.OpRent,
			rlog.FieldPropertyID, propertyID,
			rlog.FieldTransaction, tx.ID.String())
		s.publish(ctx, events.New(events.TransactionRequested, s.currentUser(r).ID, tx.ID.String()))
	}

	if isHTMX(r) {
		resp := s.fragment(r, "rent_result", result)
		if result.OK {
			resp.TriggerRentalRequested(propertyID).TriggerFormReset()
		}
		resp.Write(w)
		return
	}

	prop, err := s.apiFor(r).GetProperty(ctx, core.ID(propertyID))
	if err != nil {
		if s.sessionRejected(w, r, err) {
			return
		}
		s.propertyError(w, r, err)
		return
	}
	status := http.StatusOK
	if !result.OK {
		status = http.StatusUnprocessableEntity
	}
	s.render(w, r, status, "property_detail.html", s.page(r, prop.Title, s.detail(r, prop, result)))
}

func (s *Server) handleCreatePropertyForm(w http.ResponseWriter, r *http.Request) {
	view := createForm(url.Values{})
	s.render(w, r, http.StatusOK, "property_form.html", s.page(r, view.Heading, view))
}

func (s *Server) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	ctx := detach(r)

	draft, err := ParsePropertyDraft(r.PostForm)
	var prop core.Property
	if err == nil {
		prop, err = s.apiFor(r).CreateProperty(ctx, draft)
	}
	if err != nil {
		if s.sessionRejected(w, r, err) {
			return
		}
		s.noteAPIFailure(r, rlog.OpCreate, err)
		view := createForm(r.PostForm)
		view.Draft = draft
		v := s.page(r, view.Heading, view)
		v.Error = userMessage(err, MsgCreateFailed)
		s.render(w, r, formStatus(r), "property_form.html", v)
		return
	}

	atomic.AddInt64(&s.appMetrics.propertiesCreated, 1)
	s.log(ctx).InfoContext(ctx, "Property created",
		rlog.FieldOperation, rlog.OpCreate,
		rlog.FieldPropertyID, prop.ID.String())
	s.publish(ctx, events.New(events.PropertyCreated, s.currentUser(r).ID, prop.ID.String()))
	s.redirect(w, r, "/properties/"+url.PathEscape(prop.ID.String()))
}

// handleEditPropertyForm shows the listing's current values. Only its
// owner gets the form.
func (s *Server) handleEditPropertyForm(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	prop, err := s.apiFor(r).GetProperty(detach(r), core.ID(id))
	if err != nil {
		if s.sessionRejected(w, r, err) {
			return
		}
		s.propertyError(w, r, err)
		return
	}
	if !prop.OwnedBy(s.currentUser(r).ID) {
		s.renderError(w, r, http.StatusForbidden, MsgNotOwner)
		return
	}
	draft := prop.Draft()
	view := editForm(id, PropertyFormValues(draft))
	view.Draft = draft
	s.render(w, r, http.StatusOK, "property_form.html", s.page(r, view.Heading, view))
}

// handleUpdateProperty sends the edited listing. The API checks ownership;
// its refusal is shown on the form like any other failure.
func (s *Server) handleUpdateProperty(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	ctx := detach(r)
	id := r.PathValue("id")

	draft, err := ParsePropertyDraft(r.PostForm)
	var prop core.Property
	if err == nil {
		prop, err = s.apiFor(r).UpdateProperty(ctx, core.ID(id), draft)
	}
	if err != nil {
		if s.sessionRejected(w, r, err) {
			return
		}
		s.noteAPIFailure(r, rlog.OpUpdate, err)
		view := editForm(id, r.PostForm)
		view.Draft = draft
		v := s.page(r, view.Heading, view)
		v.Error = userMessage(err, MsgUpdateFailed)
		s.render(w, r, formStatus(r), "property_form.html", v)
		return
	}

	if prop.ID.IsZero() {
		prop.ID = core.ID(id)
	}
	atomic.AddInt64(&s.appMetrics.propertiesUpdated, 1)
	s.log(ctx).InfoContext(ctx, "Property updated",
		rlog.FieldOperation, rlog.OpUpdate,
		rlog.FieldPropertyID, prop.ID.String())
	s.publish(ctx, events.New(events.PropertyUpdated, s.currentUser(r).ID, prop.ID.String()))
	s.redirect(w, r, "/properties/"+url.PathEscape(prop.ID.String()))
}

// handleDeleteProperty removes a listing and sends the browser back to the
// listing page. A refusal leaves the detail page in place.
func (s *Server) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	ctx := detach(r)
	id := r.PathValue("id")

	if err := s.apiFor(r).DeleteProperty(ctx, core.ID(id)); err != nil {
		if s.sessionRejected(w, r, err) {
			return
		}
		s.noteAPIFailure(r, rlog.OpDelete, err)
		msg := userMessage(err, MsgDeleteFailed)
		if isHTMX(r) {
			NewHTMXResponse().
				Header("HX-Reswap", "none").
				TriggerErrorNotification(msg).
				Write(w)
			return
		}
		prop, getErr := s.apiFor(r).GetProperty(ctx, core.ID(id))
		if getErr != nil {
			s.renderError(w, r, http.StatusUnprocessableEntity, msg)
			return
		}
		v := s.page(r, prop.Title, s.detail(r, prop, nil))
		v.Error = msg
		s.render(w, r, http.StatusUnprocessableEntity, "property_detail.html", v)
		return
	}

	atomic.AddInt64(&s.appMetrics.propertiesDeleted, 1)
	s.log(ctx).InfoContext(ctx, "Property deleted",
		rlog.FieldOperation, rlog.OpDelete,
		rlog.FieldPropertyID, id)
	s.publish(ctx, events.New(events.PropertyDeleted, s.currentUser(r).ID, id))
	s.redirect(w, r, "/properties")
}

// sessionRejected handles an API 401 on an authenticated request: the
// stored token is no longer accepted, so the session is dropped and the
// browser sent to login. It reports whether the response was written.
func (s *Server) sessionRejected(w http.ResponseWriter, r *http.Request, err error) bool {
	if !apiclient.IsUnauthorized(err) {
		return false
	}
	h := session.FromContext(r.Context())
	if !h.Present(r.Context()) {
		return false
	}
	ctx := detach(r)
	if clearErr := h.Clear(ctx); clearErr != nil {
		s.log(ctx).ErrorContext(ctx, "Failed to clear rejected session", rlog.FieldError, clearErr)
	}
	s.clearSessionCookie(w)
	atomic.AddInt64(&s.appMetrics.sessionsInvalidated, 1)
	s.log(ctx).WarnContext(ctx, "API rejected session token",
		rlog.NewFields().WithSession(h.ID()).WithErrorType(rlog.ErrorTypeAuth).ToSlice()...)
	guard.Redirect(w, r, guard.LoginPath)
	return true
}

func (s *Server) currentUser(r *http.Request) core.User {
	return session.FromContext(r.Context()).Session(r.Context()).User
}

// noteAPIFailure counts a failed API call. Server and network failures are
// errors; 4xx answers are ordinary outcomes and only warned about.
func (s *Server) noteAPIFailure(r *http.Request, op string, err error) {
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		return
	}
	atomic.AddInt64(&s.appMetrics.apiFailures, 1)
	fields := rlog.NewFields()
	fields[rlog.FieldStatusCode] = apiErr.StatusCode

	switch apiErr.Kind {
	case apiclient.KindNetwork:
		s.audit.LogError(r.Context(), "Rental API call failed", err, rlog.ComponentHTTP, op, fields.WithErrorType(rlog.ErrorTypeNetwork))
	case apiclient.KindServer:
		s.audit.LogError(r.Context(), "Rental API call failed", err, rlog.ComponentHTTP, op, fields.WithErrorType(rlog.ErrorTypeServer))
	default:
		s.log(r.Context()).WarnContext(r.Context(), "Rental API call failed",
			fields.WithOperation(op).WithErrorType(rlog.ErrorTypeClient).WithError(err).ToSlice()...)
	}
}

// userMessage picks the text shown for err: the API's own message when it
// sent one, local validation text otherwise, and fallback for everything
// the user cannot act on.
func userMessage(err error, fallback string) string {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return apiclient.Message(err, fallback)
	}
	if err != nil {
		return err.Error()
	}
	return fallback
}
