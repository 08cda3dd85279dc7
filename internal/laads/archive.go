package laads

import (
	"context"
	"fmt"
	"io"

	"github.com/robert-malhotra/blackmarble/internal/product"
	"github.com/robert-malhotra/blackmarble/internal/temporal"
	"github.com/robert-malhotra/blackmarble/internal/tiles"
)

// Archive retrieves single tile files. Composite products are listed under
// the first day of their month or year.
type Archive struct {
	client *Client
}

// NewArchive wraps a client.
func NewArchive(client *Client) *Archive {
	return &Archive{client: client}
}

// Fetch writes the archive file for one tile and period into w.
func (a *Archive) Fetch(ctx context.Context, p product.Product, t tiles.Tile, period temporal.Period, w io.Writer) (int64, error) {
	listing, err := a.client.Files(ctx, string(p), period.Date())
	if err != nil {
		return 0, err
	}

	f, ok := listing.ForTile(t.ID())
	if !ok {
		return 0, fmt.Errorf("%w: %s %s %s", ErrTileNotFound, p, t.ID(), period.Key())
	}
	return a.client.Download(ctx, f.FileURL, w)
}
