package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"rentals/internal/core"
)

func (c *Client) ListProperties(ctx context.Context, filter core.PropertyFilter) (core.Page[core.Property], error) {
	if err := filter.Validate(); err != nil {
		return core.Page[core.Property]{}, err
	}
	return c.propertyPage(ctx, "/properties", filter.Values())
}

// SearchNearby lists properties within a radius of a point.
func (c *Client) SearchNearby(ctx context.Context, filter core.NearbyFilter) (core.Page[core.Property], error) {
	if err := filter.Validate(); err != nil {
		return core.Page[core.Property]{}, err
	}
	return c.propertyPage(ctx, "/properties/search", filter.Values())
}

func (c *Client) propertyPage(ctx context.Context, path string, query url.Values) (core.Page[core.Property], error) {
	var body pageBody[core.Property]
	if err := c.do(ctx, http.MethodGet, path, query, nil, &body); err != nil {
		return core.Page[core.Property]{}, err
	}
	return core.Page[core.Property]{
		Items:       body.Properties,
		CurrentPage: body.CurrentPage,
		TotalItems:  body.TotalItems,
		TotalPages:  body.TotalPages,
	}, nil
}

func (c *Client) GetProperty(ctx context.Context, id core.ID) (core.Property, error) {
	if id.IsZero() {
		return core.Property{}, core.ErrMissingPropertyID
	}
	var out core.Property
	err := c.do(ctx, http.MethodGet, "/properties/"+url.PathEscape(id.String()), nil, nil, &out)
	return out, err
}

// CreateProperty posts a validated draft and returns the stored listing.
func (c *Client) CreateProperty(ctx context.Context, draft core.PropertyDraft) (core.Property, error) {
	if err := draft.Validate(); err != nil {
		return core.Property{}, err
	}
	var out core.Property
	err := c.do(ctx, http.MethodPost, "/properties", nil, draft, &out)
	return out, err
}

// UpdateProperty replaces the editable fields of a listing. Only its owner
// may do this; anyone else gets a 4xx from the API.
func (c *Client) UpdateProperty(ctx context.Context, id core.ID, draft core.PropertyDraft) (core.Property, error) {
	if id.IsZero() {
		return core.Property{}, core.ErrMissingPropertyID
	}
	if err := draft.Validate(); err != nil {
		return core.Property{}, err
	}
	var out core.Property
	err := c.do(ctx, http.MethodPut, "/properties/"+url.PathEscape(id.String()), nil, draft, &out)
	return out, err
}

func (c *Client) DeleteProperty(ctx context.Context, id core.ID) error {
	if id.IsZero() {
		return core.ErrMissingPropertyID
	}
	return c.do(ctx, http.MethodDelete, "/properties/"+url.PathEscape(id.String()), nil, nil, nil)
}
