// Package store keeps downloaded Black Marble artifacts in a blob bucket
// under deterministic names so repeated runs can skip them.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob" // gs:// buckets
	_ "gocloud.dev/blob/memblob" // mem:// buckets
	_ "gocloud.dev/blob/s3blob"  // s3:// buckets
	"gocloud.dev/gcerrors"

	"github.com/robert-malhotra/blackmarble/internal/product"
	"github.com/robert-malhotra/blackmarble/internal/temporal"
	"github.com/robert-malhotra/blackmarble/internal/tiles"
)

// Extension is the artifact file extension.
const Extension = ".h5"

// ErrNotFound is returned when an artifact is not in the store.
var ErrNotFound = errors.New("artifact not found")

// ErrInvalidKey is returned for names that do not follow the artifact scheme.
var ErrInvalidKey = errors.New("invalid artifact key")

// Store is an artifact bucket.
type Store struct {
	bucket *blob.Bucket
	url    string
	prefix string
}

// Artifact describes one stored file.
type Artifact struct {
	Key     string
	Product product.Product
	Tile    tiles.Tile
	Period  temporal.Period
	Size    int64
	ModTime time.Time
}

// Open opens the bucket at rawURL. A value without a scheme is treated as a
// local directory, which is created if missing. An empty value opens an
// in-memory bucket that lives as long as the Store.
func Open(ctx context.Context, rawURL, prefix string) (*Store, error) {
	var (
		bucket *blob.Bucket
		err    error
	)

	switch {
	case rawURL == "":
		rawURL = "mem://"
		bucket, err = blob.OpenBucket(ctx, rawURL)
	case !strings.Contains(rawURL, "://"):
		dir, aerr := filepath.Abs(rawURL)
		if aerr != nil {
			return nil, fmt.Errorf("resolve store directory %s: %w", rawURL, aerr)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", dir, err)
		}
		rawURL = "file://" + filepath.ToSlash(dir)
		bucket, err = fileblob.OpenBucket(dir, nil)
	default:
		bucket, err = blob.OpenBucket(ctx, rawURL)
	}
	if err != nil {
		return nil, fmt.Errorf("open artifact store %s: %w", rawURL, err)
	}

	return &Store{bucket: bucket, url: rawURL, prefix: prefix}, nil
}

// Name returns the artifact file name, e.g. VNP46A2_h10v05_t2022_01_01.h5.
func Name(p product.Product, t tiles.Tile, period temporal.Period) string {
	return fmt.Sprintf("%s_%s_t%s%s", p, t.ID(), period.Key(), Extension)
}

// Key returns the bucket key of an artifact.
func (s *Store) Key(p product.Product, t tiles.Tile, period temporal.Period) string {
	return s.prefix + Name(p, t, period)
}

// ParseName reads an artifact file name back into its parts.
func ParseName(name string) (product.Product, tiles.Tile, temporal.Period, error) {
	base := strings.TrimSuffix(name, Extension)
	if base == name {
		return "", tiles.Tile{}, temporal.Period{}, fmt.Errorf("%w: %q", ErrInvalidKey, name)
	}

	parts := strings.SplitN(base, "_", 3)
	if len(parts) != 3 || !strings.HasPrefix(parts[2], "t") {
		return "", tiles.Tile{}, temporal.Period{}, fmt.Errorf("%w: %q", ErrInvalidKey, name)
	}

	p, err := product.Parse(parts[0])
	if err != nil {
		return "", tiles.Tile{}, temporal.Period{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	t, err := tiles.Parse(parts[1])
	if err != nil {
		return "", tiles.Tile{}, temporal.Period{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	period, err := temporal.ParseKey(parts[2][1:])
	if err != nil {
		return "", tiles.Tile{}, temporal.Period{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return p, t, period, nil
}

// ParseKey strips the store prefix and parses the artifact name.
func (s *Store) ParseKey(key string) (product.Product, tiles.Tile, temporal.Period, error) {
	if !strings.HasPrefix(key, s.prefix) {
		return "", tiles.Tile{}, temporal.Period{}, fmt.Errorf("%w: %q outside prefix %q", ErrInvalidKey, key, s.prefix)
	}
	return ParseName(strings.TrimPrefix(key, s.prefix))
}

// Exists reports whether the artifact is already stored.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.bucket.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", key, err)
	}
	return ok, nil
}

// Put streams an artifact produced by fill into the bucket. If fill fails the
// write is abandoned and no object is left under key.
func (s *Store) Put(ctx context.Context, key string, fill func(io.Writer) (int64, error)) (int64, error) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := s.bucket.NewWriter(wctx, key, &blob.WriterOptions{ContentType: "application/x-hdf5"})
	if err != nil {
		return 0, fmt.Errorf("create writer for %s: %w", key, err)
	}

	n, err := fill(w)
	if err != nil {
		cancel()
		w.Close()
		return n, err
	}

	if err := w.Close(); err != nil {
		return n, fmt.Errorf("close writer for %s: %w", key, err)
	}
	return n, nil
}

// NewReader opens a stored artifact.
func (s *Store) NewReader(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return r, nil
}

// Stat returns the artifact stored under key.
func (s *Store) Stat(ctx context.Context, key string) (Artifact, error) {
	p, t, period, err := s.ParseKey(key)
	if err != nil {
		return Artifact{}, err
	}
	attrs, err := s.bucket.Attributes(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return Artifact{}, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return Artifact{}, fmt.Errorf("stat %s: %w", key, err)
	}
	return Artifact{Key: key, Product: p, Tile: t, Period: period, Size: attrs.Size, ModTime: attrs.ModTime}, nil
}

// List returns the stored artifacts of a product sorted by period then tile.
// Objects that do not follow the naming scheme are ignored.
func (s *Store) List(ctx context.Context, p product.Product) ([]Artifact, error) {
	iter := s.bucket.List(&blob.ListOptions{Prefix: s.prefix + string(p) + "_"})

	var out []Artifact
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s artifacts: %w", p, err)
		}
		if obj.IsDir {
			continue
		}
		ap, t, period, err := s.ParseKey(obj.Key)
		if err != nil || ap != p {
			continue
		}
		out = append(out, Artifact{Key: obj.Key, Product: ap, Tile: t, Period: period, Size: obj.Size, ModTime: obj.ModTime})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Period.Start.Equal(out[j].Period.Start) {
			return out[i].Period.Start.Before(out[j].Period.Start)
		}
		return out[i].Tile.Less(out[j].Tile)
	})
	return out, nil
}

// Location returns a URL-like reference to the artifact.
func (s *Store) Location(key string) string {
	if strings.HasSuffix(s.url, "/") {
		return s.url + key
	}
	return s.url + "/" + key
}

// Close releases the bucket.
func (s *Store) Close() error {
	if s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}
