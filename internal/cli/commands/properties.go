package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"rentals/internal/core"
)

func PropertiesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "properties",
		Short: "Browse and list properties",
	}
	cmd.AddCommand(
		propertiesListCmd(app),
		propertiesShowCmd(app),
		propertiesCreateCmd(app),
		propertiesUpdateCmd(app),
		propertiesDeleteCmd(app),
	)
	return cmd
}

func propertiesListCmd(app *App) *cobra.Command {
	var (
		city, typ, minPrice, maxPrice string
		page                          int
		lat, lng, radius              float64
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List properties, filtered or near a point",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api := app.API.WithToken(app.handle().Session(ctx).Token)
			pr := core.PageRequest{Page: page, Size: core.DefaultPageSize}

			var (
				result core.Page[core.Property]
				err    error
			)
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
				result, err = api.SearchNearby(ctx, core.NearbyFilter{Latitude: lat, Longitude: lng, Radius: radius, PageRequest: pr})
			} else {
				f := core.PropertyFilter{City: city, Type: core.PropertyType(strings.ToUpper(typ)), PageRequest: pr}
				if f.MinPrice, err = decimalFlag("min-price", minPrice); err != nil {
					return err
				}
				if f.MaxPrice, err = decimalFlag("max-price", maxPrice); err != nil {
					return err
				}
				result, err = api.ListProperties(ctx, f)
			}
			if err != nil {
				return app.apiError(ctx, err, "Failed to load properties")
			}

			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tCITY\tTYPE\tPRICE\tSTATUS")
			for _, p := range result.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Title, p.City, p.Type, p.Price.StringFixed(2), p.Status)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			printf(cmd, "page %d of %d, %d listings\n", result.Number(), result.TotalPages, result.TotalItems)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&city, "city", "", "city")
	f.StringVar(&typ, "type", "", "APARTMENT, HOUSE, CONDO or TOWNHOUSE")
	f.StringVar(&minPrice, "min-price", "", "minimum monthly price")
	f.StringVar(&maxPrice, "max-price", "", "maximum monthly price")
	f.IntVar(&page, "page", 0, "zero-based page")
	f.Float64Var(&lat, "lat", 0, "latitude for a nearby search")
	f.Float64Var(&lng, "lng", 0, "longitude for a nearby search")
	f.Float64Var(&radius, "radius", core.DefaultRadius, "search radius in metres")
	return cmd
}

func propertiesShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := app.API.WithToken(app.handle().Session(ctx).Token).GetProperty(ctx, core.ID(args[0]))
			if err != nil {
				return app.apiError(ctx, err, "Failed to load property")
			}
			printf(cmd, "%s [%s]\n", p.Title, p.Status)
			printf(cmd, "%s, %s %s %s\n", p.Address, p.City, p.State, p.Country)
			printf(cmd, "%s, %s a month\n", p.Type.Label(), p.Price.StringFixed(2))
			if p.Bedrooms != nil {
				printf(cmd, "bedrooms: %d\n", *p.Bedrooms)
			}
			if p.Bathrooms != nil {
				printf(cmd, "bathrooms: %d\n", *p.Bathrooms)
			}
			if len(p.Amenities) > 0 {
				printf(cmd, "amenities: %s\n", strings.Join(p.Amenities, ", "))
			}
			if p.Description != "" {
				printf(cmd, "\n%s\n", p.Description)
			}
			return nil
		},
	}
}

// draftFlags are the listing fields shared by create and update. Only
// flags given on the command line are applied, so update keeps the rest of
// the current listing.
type draftFlags struct {
	title, description, address, city string
	state, zip, country, typ, price   string
	lat, lng, area                    float64
	bedrooms, bathrooms               int
	amenities, images                 []string
}

func (df *draftFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&df.title, "title", "", "listing title")
	f.StringVar(&df.description, "description", "", "description")
	f.StringVar(&df.address, "address", "", "street address")
	f.StringVar(&df.city, "city", "", "city")
	f.StringVar(&df.state, "state", "", "state")
	f.StringVar(&df.zip, "zip", "", "zip code")
	f.StringVar(&df.country, "country", "USA", "country")
	f.StringVar(&df.typ, "type", "", "APARTMENT, HOUSE, CONDO or TOWNHOUSE")
	f.StringVar(&df.price, "price", "", "monthly price")
	f.Float64Var(&df.lat, "lat", 0, "latitude")
	f.Float64Var(&df.lng, "lng", 0, "longitude")
	f.Float64Var(&df.area, "area", 0, "area in square feet")
	f.IntVar(&df.bedrooms, "bedrooms", 0, "bedrooms")
	f.IntVar(&df.bathrooms, "bathrooms", 0, "bathrooms")
	f.StringSliceVar(&df.amenities, "amenities", nil, "comma separated amenities")
	f.StringSliceVar(&df.images, "images", nil, "comma separated image URLs")
}

func (df *draftFlags) apply(cmd *cobra.Command, d *core.PropertyDraft) error {
	changed := cmd.Flags().Changed
	for name, v := range map[string]struct{ from, to *string }{
		"title":       {&df.title, &d.Title},
		"description": {&df.description, &d.Description},
		"address":     {&df.address, &d.Address},
		"city":        {&df.city, &d.City},
		"state":       {&df.state, &d.State},
		"zip":         {&df.zip, &d.ZipCode},
		"country":     {&df.country, &d.Country},
	} {
		if changed(name) {
			*v.to = *v.from
		}
	}
	if changed("type") {
		d.Type = core.PropertyType(strings.ToUpper(df.typ))
	}
	if changed("price") {
		p, err := decimalFlag("price", df.price)
		if err != nil {
			return err
		}
		if p != nil {
			d.Price = *p
		}
	}
	if changed("lat") {
		d.Latitude = &df.lat
	}
	if changed("lng") {
		d.Longitude = &df.lng
	}
	if changed("bedrooms") {
		d.Bedrooms = &df.bedrooms
	}
	if changed("bathrooms") {
		d.Bathrooms = &df.bathrooms
	}
	if changed("area") {
		d.Area = &df.area
	}
	if changed("amenities") {
		d.Amenities = df.amenities
	}
	if changed("images") {
		d.Images = df.images
	}
	return nil
}

func propertiesCreateCmd(app *App) *cobra.Command {
	var df draftFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "List a new property",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, err := app.authorize(ctx, "/properties/create")
			if err != nil {
				return err
			}

			d := core.PropertyDraft{Country: df.country}
			if err := df.apply(cmd, &d); err != nil {
				return err
			}
			created, err := api.CreateProperty(ctx, d)
			if err != nil {
				return app.apiError(ctx, err, "Failed to create property")
			}
			printf(cmd, "Created property %s\n", created.ID)
			return nil
		},
	}
	df.register(cmd)
	return cmd
}

func propertiesUpdateCmd(app *App) *cobra.Command {
	var df draftFlags
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change one of your listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, err := app.authorize(ctx, routeFor("/properties/{id}/edit", args[0]))
			if err != nil {
				return err
			}

			current, err := api.GetProperty(ctx, core.ID(args[0]))
			if err != nil {
				return app.apiError(ctx, err, "Failed to load property")
			}
			d := current.Draft()
			if err := df.apply(cmd, &d); err != nil {
				return err
			}
			updated, err := api.UpdateProperty(ctx, current.ID, d)
			if err != nil {
				return app.apiError(ctx, err, "Failed to update property")
			}
			printf(cmd, "Updated property %s\n", updated.ID)
			return nil
		},
	}
	df.register(cmd)
	return cmd
}

func propertiesDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one of your listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, err := app.authorize(ctx, routeFor("/properties/{id}/delete", args[0]))
			if err != nil {
				return err
			}
			if err := api.DeleteProperty(ctx, core.ID(args[0])); err != nil {
				return app.apiError(ctx, err, "Failed to delete property")
			}
			printf(cmd, "Deleted property %s\n", args[0])
			return nil
		},
	}
}

func decimalFlag(name, v string) (*decimal.Decimal, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return nil, fmt.Errorf("--%s must be a number", name)
	}
	return &d, nil
}
