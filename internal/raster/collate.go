package raster

import (
	"context"
	"fmt"
	"io"

	"github.com/ctessum/geom"

	"github.com/robert-malhotra/blackmarble/internal/fetch"
	"github.com/robert-malhotra/blackmarble/internal/product"
)

// Converter decodes one variable, and its quality flag when the product has
// one, from a stored tile file.
type Converter interface {
	Decode(ctx context.Context, r io.Reader, p product.Product, variable string) (Band, error)
}

// Opener reads stored artifacts.
type Opener interface {
	NewReader(ctx context.Context, key string) (io.ReadCloser, error)
}

// CollateOptions configures CollateBatch.
type CollateOptions struct {
	// Variable defaults to the product's default variable.
	Variable string
	// DropQuality defaults to DefaultDropQuality; use an empty non-nil slice
	// to keep every pixel.
	DropQuality []int
	// Clip masks the mosaic to a region when set.
	Clip geom.Polygonal
}

// CollateBatch decodes, cleans and mosaics the available tiles of a batch.
func CollateBatch(ctx context.Context, open Opener, conv Converter, b *fetch.Batch, opts CollateOptions) (*Grid, error) {
	variable := opts.Variable
	if variable == "" {
		variable = b.Product.DefaultVariable()
	}
	drop := opts.DropQuality
	if drop == nil {
		drop = DefaultDropQuality
	}

	var grids []*Grid
	for _, o := range b.Outcomes {
		if !o.Status.OK() {
			continue
		}
		g, err := decodeTile(ctx, open, conv, o, variable, drop)
		if err != nil {
			return nil, err
		}
		grids = append(grids, g)
	}
	if len(grids) == 0 {
		return nil, fmt.Errorf("%w: batch %s %s has no artifacts", ErrEmpty, b.Product, b.Period.Key())
	}

	mosaic, err := Mosaic(grids...)
	if err != nil {
		return nil, err
	}
	if opts.Clip != nil {
		mosaic.Mask(opts.Clip)
	}
	return mosaic, nil
}

func decodeTile(ctx context.Context, open Opener, conv Converter, o fetch.Outcome, variable string, drop []int) (*Grid, error) {
	r, err := open.NewReader(ctx, o.Key)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	band, err := conv.Decode(ctx, r, o.Unit.Product, variable)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", o.Key, err)
	}
	if band.Variable == "" {
		band.Variable = variable
	}

	values, err := Clean(band, drop)
	if err != nil {
		return nil, fmt.Errorf("clean %s: %w", o.Key, err)
	}
	return TileGrid(o.Unit.Tile, band.Rows, band.Cols, values)
}
