// Package http serves the rentals web client: server-rendered pages with
// htmx fragments, backed by the rental API.
//
// This file turns form and query values into domain requests.
package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"rentals/internal/core"
)

// dateLayout is what <input type="date"> submits.
const dateLayout = "2006-01-02"

// ParsePage reads the zero-based page query parameter. Garbage reads as the
// first page; negative numbers are kept so the API client can reject them.
func ParsePage(query url.Values) core.PageRequest {
	page, err := strconv.Atoi(strings.TrimSpace(query.Get("page")))
	if err != nil {
		page = 0
	}
	return core.PageRequest{Page: page, Size: core.DefaultPageSize}
}

// ParsePropertyFilter reads the listing search form. Unparseable prices are
// reported so the view can say which field is wrong.
func ParsePropertyFilter(query url.Values) (core.PropertyFilter, error) {
	f := core.PropertyFilter{
		City:        sanitizeInput(query.Get("city")),
		Type:        core.PropertyType(strings.ToUpper(sanitizeInput(query.Get("type")))),
		PageRequest: ParsePage(query),
	}
	var err error
	if f.MinPrice, err = optionalDecimal(query, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = optionalDecimal(query, "maxPrice"); err != nil {
		return f, err
	}
	return f, nil
}

// ParseNearbyFilter reads lat/lng/radius. ok is false when the query does
// not ask for a nearby search at all.
func ParseNearbyFilter(query url.Values) (f core.NearbyFilter, ok bool, err error) {
	lat, lng := strings.TrimSpace(query.Get("lat")), strings.TrimSpace(query.Get("lng"))
	if lat == "" && lng == "" {
		return core.NearbyFilter{}, false, nil
	}
	f.PageRequest = ParsePage(query)
	if f.Latitude, err = strconv.ParseFloat(lat, 64); err != nil {
		return f, true, fmt.Errorf("latitude must be a number")
	}
	if f.Longitude, err = strconv.ParseFloat(lng, 64); err != nil {
		return f, true, fmt.Errorf("longitude must be a number")
	}
	if r := strings.TrimSpace(query.Get("radius")); r != "" {
		if f.Radius, err = strconv.ParseFloat(r, 64); err != nil {
			return f, true, fmt.Errorf("radius must be a number")
		}
	}
	return f, true, nil
}

// ParseRentalRequest reads the rental form. Empty dates are left zero so
// RentalRequest.Validate reports them.
func ParseRentalRequest(propertyID string, form url.Values) (core.RentalRequest, error) {
	req := core.RentalRequest{PropertyID: core.ID(strings.TrimSpace(propertyID))}
	var err error
	if req.StartDate, err = optionalDate(form, "startDate"); err != nil {
		return req, err
	}
	if req.EndDate, err = optionalDate(form, "endDate"); err != nil {
		return req, err
	}
	return req, nil
}

// ParseProfile reads the registration form.
func ParseProfile(form url.Values) core.Profile {
	return core.Profile{
		Email:       sanitizeInput(form.Get("email")),
		Password:    form.Get("password"),
		FirstName:   sanitizeInput(form.Get("firstName")),
		LastName:    sanitizeInput(form.Get("lastName")),
		PhoneNumber: sanitizeInput(form.Get("phoneNumber")),
	}
}

// ParsePropertyDraft reads the create-property form. Amenities and images
// are comma separated; country defaults to USA.
func ParsePropertyDraft(form url.Values) (core.PropertyDraft, error) {
	d := core.PropertyDraft{
		Title:       sanitizeInput(form.Get("title")),
		Description: sanitizeInput(form.Get("description")),
		Address:     sanitizeInput(form.Get("address")),
		City:        sanitizeInput(form.Get("city")),
		State:       sanitizeInput(form.Get("state")),
		ZipCode:     sanitizeInput(form.Get("zipCode")),
		Country:     sanitizeInput(form.Get("country")),
		Type:        core.PropertyType(strings.ToUpper(sanitizeInput(form.Get("type")))),
		Amenities:   splitList(form.Get("amenities")),
		Images:      splitList(form.Get("images")),
	}
	if d.Country == "" {
		d.Country = "USA"
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	price, err := optionalDecimal(form, "price")
	collect(err)
	if price != nil {
		d.Price = *price
	}
	d.Latitude, err = optionalFloat(form, "latitude")
	collect(err)
	d.Longitude, err = optionalFloat(form, "longitude")
	collect(err)
	d.Bedrooms, err = optionalInt(form, "bedrooms")
	collect(err)
	d.Bathrooms, err = optionalInt(form, "bathrooms")
	collect(err)
	d.Area, err = optionalFloat(form, "area")
	collect(err)

	return d, errors.Join(errs...)
}

// PropertyFormValues renders a draft back into the form fields
// ParsePropertyDraft reads.
func PropertyFormValues(d core.PropertyDraft) url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("title", d.Title)
	set("description", d.Description)
	set("address", d.Address)
	set("city", d.City)
	set("state", d.State)
	set("zipCode", d.ZipCode)
	set("country", d.Country)
	set("type", string(d.Type))
	if !d.Price.IsZero() {
		set("price", d.Price.String())
	}
	if d.Latitude != nil {
		set("latitude", strconv.FormatFloat(*d.Latitude, 'f', -1, 64))
	}
	if d.Longitude != nil {
		set("longitude", strconv.FormatFloat(*d.Longitude, 'f', -1, 64))
	}
	if d.Bedrooms != nil {
		set("bedrooms", strconv.Itoa(*d.Bedrooms))
	}
	if d.Bathrooms != nil {
		set("bathrooms", strconv.Itoa(*d.Bathrooms))
	}
	if d.Area != nil {
		set("area", strconv.FormatFloat(*d.Area, 'f', -1, 64))
	}
	set("amenities", strings.Join(d.Amenities, ", "))
	set("images", strings.Join(d.Images, ", "))
	return v
}

func optionalDecimal(v url.Values, key string) (*decimal.Decimal, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &d, nil
}

func optionalFloat(v url.Values, key string) (*float64, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &f, nil
}

func optionalInt(v url.Values, key string) (*int, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%s must be a whole number", key)
	}
	return &n, nil
}

func optionalDate(v url.Values, key string) (time.Time, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date (YYYY-MM-DD)", key)
	}
	return t, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := sanitizeInput(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
