package core

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultPageSize matches what the listing and dashboard views request.
const DefaultPageSize = 20

var (
	ErrInvalidPage         = errors.New("page must not be negative")
	ErrInvalidPropertyType = errors.New("unknown property type")
	ErrInvalidPriceRange   = errors.New("minimum price is above maximum price")
	ErrInvalidCoordinates  = errors.New("coordinates are out of range")
	ErrInvalidRadius       = errors.New("radius must not be negative")
)

// Page is one slice of a server-side paginated collection.
type Page[T any] struct {
	Items       []T
	CurrentPage int
	TotalItems  int64
	TotalPages  int
}

func (p Page[T]) HasPrev() bool { return p.CurrentPage > 0 }

func (p Page[T]) HasNext() bool { return p.CurrentPage < p.TotalPages-1 }

func (p Page[T]) PrevPage() int { return p.CurrentPage - 1 }

func (p Page[T]) NextPage() int { return p.CurrentPage + 1 }

// Number is the one-based page number for display.
func (p Page[T]) Number() int { return p.CurrentPage + 1 }

// Paginated reports whether there is more than one page to navigate.
func (p Page[T]) Paginated() bool { return p.TotalPages > 1 }

// PageRequest selects a page of a collection.
type PageRequest struct {
	Page int
	Size int
}

func (r PageRequest) Validate() error {
	if r.Page < 0 {
		return ErrInvalidPage
	}
	return nil
}

// Values encodes the request, defaulting the size.
func (r PageRequest) Values() url.Values {
	size := r.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	v := url.Values{}
	v.Set("page", strconv.Itoa(r.Page))
	v.Set("size", strconv.Itoa(size))
	return v
}

// PropertyFilter holds the listing search criteria. Empty fields are omitted.
type PropertyFilter struct {
	City     string
	Type     PropertyType
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	PageRequest
}

func (f PropertyFilter) Validate() error {
	if f.Type != "" && !f.Type.IsValid() {
		return ErrInvalidPropertyType
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return ErrInvalidPriceRange
	}
	return f.PageRequest.Validate()
}

func (f PropertyFilter) Values() url.Values {
	v := f.PageRequest.Values()
	if c := strings.TrimSpace(f.City); c != "" {
		v.Set("city", c)
	}
	if f.Type != "" {
		v.Set("type", string(f.Type))
	}
	if f.MinPrice != nil {
		v.Set("minPrice", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		v.Set("maxPrice", f.MaxPrice.String())
	}
	return v
}

// Query is the filter as a browser query string, without paging, so views
// can build pagination links around it.
func (f PropertyFilter) Query() url.Values {
	v := f.Values()
	v.Del("page")
	v.Del("size")
	return v
}

// NearbyFilter asks for listings around a point. Radius is in metres.
type NearbyFilter struct {
	Latitude  float64
	Longitude float64
	Radius    float64
	PageRequest
}

// DefaultRadius is used when a nearby search omits one.
const DefaultRadius = 5000

func (f NearbyFilter) Validate() error {
	if f.Latitude < -90 || f.Latitude > 90 || f.Longitude < -180 || f.Longitude > 180 {
		return ErrInvalidCoordinates
	}
	if f.Radius < 0 {
		return ErrInvalidRadius
	}
	return f.PageRequest.Validate()
}

func (f NearbyFilter) Values() url.Values {
	v := f.PageRequest.Values()
	radius := f.Radius
	if radius <= 0 {
		radius = DefaultRadius
	}
	v.Set("lat", strconv.FormatFloat(f.Latitude, 'f', -1, 64))
	v.Set("lng", strconv.FormatFloat(f.Longitude, 'f', -1, 64))
	v.Set("radius", strconv.FormatFloat(radius, 'f', -1, 64))
	return v
}
