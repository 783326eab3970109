package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Apartment PropertyType = "APARTMENT"
	House     PropertyType = "HOUSE"
	Condo     PropertyType = "CONDO"
	Townhouse PropertyType = "TOWNHOUSE"
)

const (
	Available   PropertyStatus = "AVAILABLE"
	Rented      PropertyStatus = "RENTED"
	Maintenance PropertyStatus = "MAINTENANCE"
)

const (
	Pending   TransactionStatus = "PENDING"
	Approved  TransactionStatus = "APPROVED"
	Rejected  TransactionStatus = "REJECTED"
	Completed TransactionStatus = "COMPLETED"
	Cancelled TransactionStatus = "CANCELLED"
)

type (
	PropertyType      string
	PropertyStatus    string
	TransactionStatus string

	// Location is the GeoJSON point the API stores for a property.
	// Coordinates are [longitude, latitude]; some serialisers emit x/y instead.
	Location struct {
		Type        string    `json:"type,omitempty"`
		Coordinates []float64 `json:"coordinates,omitempty"`
		X           float64   `json:"x,omitempty"`
		Y           float64   `json:"y,omitempty"`
	}

	Property struct {
		ID          ID              `json:"id"`
		Title       string          `json:"title"`
		Description string          `json:"description,omitempty"`
		Address     string          `json:"address"`
		City        string          `json:"city"`
		State       string          `json:"state,omitempty"`
		ZipCode     string          `json:"zipCode,omitempty"`
		Country     string          `json:"country,omitempty"`
		Location    *Location       `json:"location,omitempty"`
		Type        PropertyType    `json:"type"`
		Price       decimal.Decimal `json:"price"`
		Bedrooms    *int            `json:"bedrooms,omitempty"`
		Bathrooms   *int            `json:"bathrooms,omitempty"`
		Area        *float64        `json:"area,omitempty"`
		Amenities   []string        `json:"amenities,omitempty"`
		Images      []string        `json:"images,omitempty"`
		OwnerID     ID              `json:"ownerId,omitempty"`
		Status      PropertyStatus  `json:"status"`
		CreatedAt   Timestamp       `json:"createdAt,omitempty"`
		UpdatedAt   Timestamp       `json:"updatedAt,omitempty"`
	}

	// PropertyDraft is the payload posted to create a listing.
	PropertyDraft struct {
		Title       string          `json:"title" validate:"required,max=200"`
		Description string          `json:"description,omitempty" validate:"max=5000"`
		Address     string          `json:"address" validate:"required"`
		City        string          `json:"city" validate:"required"`
		State       string          `json:"state,omitempty"`
		ZipCode     string          `json:"zipCode,omitempty"`
		Country     string          `json:"country,omitempty"`
		Latitude    *float64        `json:"latitude" validate:"required,gte=-90,lte=90"`
		Longitude   *float64        `json:"longitude" validate:"required,gte=-180,lte=180"`
		Type        PropertyType    `json:"type" validate:"required,oneof=APARTMENT HOUSE CONDO TOWNHOUSE"`
		Price       decimal.Decimal `json:"price"`
		Bedrooms    *int            `json:"bedrooms" validate:"omitempty,gte=0"`
		Bathrooms   *int            `json:"bathrooms" validate:"omitempty,gte=0"`
		Area        *float64        `json:"area" validate:"omitempty,gt=0"`
		Amenities   []string        `json:"amenities"`
		Images      []string        `json:"images" validate:"dive,url"`
	}

	Transaction struct {
		ID         ID                `json:"id"`
		PropertyID ID                `json:"propertyId"`
		TenantID   ID                `json:"tenantId,omitempty"`
		OwnerID    ID                `json:"ownerId,omitempty"`
		Amount     decimal.Decimal   `json:"amount"`
		StartDate  Timestamp         `json:"startDate"`
		EndDate    Timestamp         `json:"endDate"`
		Status     TransactionStatus `json:"status"`
		CreatedAt  Timestamp         `json:"createdAt,omitempty"`
		UpdatedAt  Timestamp         `json:"updatedAt,omitempty"`
	}

	// RentalRequest asks the API to open a PENDING transaction on a property.
	RentalRequest struct {
		PropertyID ID
		StartDate  time.Time
		EndDate    time.Time
	}
)

var (
	ErrMissingRentalDates   = errors.New("start and end dates are required")
	ErrMissingPropertyID    = errors.New("property id is required")
	ErrMissingTransactionID = errors.New("transaction id is required")
	ErrInvalidPrice         = errors.New("price must be positive")
)

// PropertyTypes lists the listing types in display order.
func PropertyTypes() []PropertyType {
	return []PropertyType{Apartment, House, Condo, Townhouse}
}

func (t PropertyType) IsValid() bool {
	switch t {
	case Apartment, House, Condo, Townhouse:
		return true
	default:
		return false
	}
}

// Label returns the human form of the type, e.g. "Apartment".
func (t PropertyType) Label() string {
	s := strings.ToLower(string(t))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Latitude and Longitude read the point in whichever encoding the API used.
func (l *Location) Latitude() (float64, bool) {
	if l == nil {
		return 0, false
	}
	if len(l.Coordinates) == 2 {
		return l.Coordinates[1], true
	}
	return l.Y, l.X != 0 || l.Y != 0
}

func (l *Location) Longitude() (float64, bool) {
	if l == nil {
		return 0, false
	}
	if len(l.Coordinates) == 2 {
		return l.Coordinates[0], true
	}
	return l.X, l.X != 0 || l.Y != 0
}

func (p Property) IsAvailable() bool {
	return p.Status == Available
}

// CoverImage is the first image URL, or "" when the listing has none.
func (p Property) CoverImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// OwnedBy reports whether user owns the listing. Listings without an owner
// are owned by nobody.
func (p Property) OwnedBy(user ID) bool {
	return !p.OwnerID.IsZero() && p.OwnerID == user
}

// Draft returns the editable fields of the listing, the starting point for
// an update.
func (p Property) Draft() PropertyDraft {
	d := PropertyDraft{
		Title:       p.Title,
		Description: p.Description,
		Address:     p.Address,
		City:        p.City,
		State:       p.State,
		ZipCode:     p.ZipCode,
		Country:     p.Country,
		Type:        p.Type,
		Price:       p.Price,
		Bedrooms:    p.Bedrooms,
		Bathrooms:   p.Bathrooms,
		Area:        p.Area,
		Amenities:   p.Amenities,
		Images:      p.Images,
	}
	if lat, ok := p.Location.Latitude(); ok {
		d.Latitude = &lat
	}
	if lng, ok := p.Location.Longitude(); ok {
		d.Longitude = &lng
	}
	return d
}

func (d PropertyDraft) Validate() error {
	if err := validate.Struct(d); err != nil {
		return ValidationError(err)
	}
	if !d.Price.IsPositive() {
		return ErrInvalidPrice
	}
	return nil
}

// IsPending reports whether an owner may still approve the transaction.
func (t Transaction) IsPending() bool {
	return t.Status == Pending
}

// ShortID is the first eight characters of the id, as shown on dashboards.
func (t Transaction) ShortID() string {
	s := t.ID.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Validate only checks presence. Date ordering is the API's decision and its
// message is shown to the user as is.
func (r RentalRequest) Validate() error {
	if r.PropertyID.IsZero() {
		return ErrMissingPropertyID
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return ErrMissingRentalDates
	}
	return nil
}
