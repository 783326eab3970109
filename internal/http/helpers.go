package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"rentals/internal/core"
)

// formatPrice renders an amount the way listings show it, e.g. "$1,500.00".
func formatPrice(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := "$" + b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

// formatDate renders a timestamp as YYYY-MM-DD, or "" when unset.
func formatDate(t core.Timestamp) string {
	return t.DateString()
}

// pageURL builds a link to page n of path keeping the other query values.
func pageURL(path string, query url.Values, n int) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("page", strconv.Itoa(n))
	return path + "?" + q.Encode()
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// formStatus is the status for a rejected form submission. htmx ignores
// non-2xx bodies, so its requests get 200 and the re-rendered form.
func formStatus(r *http.Request) int {
	if isHTMX(r) {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}
