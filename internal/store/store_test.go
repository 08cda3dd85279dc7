package store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/robert-malhotra/blackmarble/internal/product"
	"github.com/robert-malhotra/blackmarble/internal/temporal"
	"github.com/robert-malhotra/blackmarble/internal/tiles"
)

func day(y int, m time.Month, d int) temporal.Period {
	return temporal.NewPeriod(time.Date(y, m, d, 0, 0, 0, 0, time.UTC), temporal.Day)
}

func TestName(t *testing.T) {
	tests := []struct {
		product product.Product
		period  temporal.Period
		want    string
	}{
		{product.VNP46A2, day(2022, 1, 1), "VNP46A2_h10v05_t2022_01_01.h5"},
		{product.VNP46A3, temporal.NewPeriod(time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC), temporal.Month), "VNP46A3_h10v05_t2022_03.h5"},
		{product.VNP46A4, temporal.NewPeriod(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), temporal.Year), "VNP46A4_h10v05_t2022.h5"},
	}
	for _, tt := range tests {
		got := Name(tt.product, tiles.Tile{H: 10, V: 5}, tt.period)
		if got != tt.want {
			t.Errorf("Name = %s, want %s", got, tt.want)
		}
		p, tile, period, err := ParseName(got)
		if err != nil {
			t.Fatalf("ParseName(%s): %v", got, err)
		}
		if p != tt.product || tile != (tiles.Tile{H: 10, V: 5}) || period.Key() != tt.period.Key() {
			t.Errorf("ParseName(%s) = %s %s %s", got, p, tile, period.Key())
		}
	}
}

func TestParseNameInvalid(t *testing.T) {
	for _, name := range []string{
		"VNP46A2_h10v05_t2022_01_01.tif",
		"VNP46A2_h10v05.h5",
		"VNP99A2_h10v05_t2022_01_01.h5",
		"VNP46A2_x10v05_t2022_01_01.h5",
		"VNP46A2_h10v05_2022_01_01.h5",
		"VNP46A2_h10v05_t2022_13_01.h5",
	} {
		if _, _, _, err := ParseName(name); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ParseName(%s): expected ErrInvalidKey, got %v", name, err)
		}
	}
}

func TestPutExistsRead(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "", "runs/")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	key := s.Key(product.VNP46A2, tiles.Tile{H: 10, V: 5}, day(2022, 1, 1))
	if key != "runs/VNP46A2_h10v05_t2022_01_01.h5" {
		t.Fatalf("unexpected key %s", key)
	}

	ok, err := s.Exists(ctx, key)
	if err != nil || ok {
		t.Fatalf("expected missing artifact, got %v %v", ok, err)
	}

	n, err := s.Put(ctx, key, func(w io.Writer) (int64, error) {
		m, err := io.Copy(w, strings.NewReader("payload"))
		return m, err
	})
	if err != nil || n != 7 {
		t.Fatalf("Put: %d %v", n, err)
	}

	ok, err = s.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected stored artifact, got %v %v", ok, err)
	}

	r, err := s.NewReader(ctx, key)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	data, _ := io.ReadAll(r)
	r.Close()
	if string(data) != "payload" {
		t.Errorf("unexpected contents %q", data)
	}

	a, err := s.Stat(ctx, key)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if a.Size != 7 || a.Tile != (tiles.Tile{H: 10, V: 5}) {
		t.Errorf("unexpected artifact %+v", a)
	}
}

func TestPutAbandonsFailedWrite(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, t.TempDir(), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	key := s.Key(product.VNP46A1, tiles.Tile{H: 1, V: 1}, day(2022, 1, 1))
	boom := errors.New("boom")
	_, err = s.Put(ctx, key, func(w io.Writer) (int64, error) {
		w.Write([]byte("partial"))
		return 7, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected producer error, got %v", err)
	}
	if ok, _ := s.Exists(ctx, key); ok {
		t.Error("failed write left an artifact behind")
	}
}

func TestOpenDirectoryCreatesIt(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "store")
	s, err := Open(context.Background(), dir, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("expected directory to exist: %v", err)
	}
	if !strings.HasPrefix(s.Location("x.h5"), "file://") {
		t.Errorf("unexpected location %s", s.Location("x.h5"))
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	put := func(key string) {
		t.Helper()
		if _, err := s.Put(ctx, key, func(w io.Writer) (int64, error) {
			n, err := w.Write([]byte("x"))
			return int64(n), err
		}); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	put(s.Key(product.VNP46A2, tiles.Tile{H: 11, V: 5}, day(2022, 1, 2)))
	put(s.Key(product.VNP46A2, tiles.Tile{H: 10, V: 5}, day(2022, 1, 2)))
	put(s.Key(product.VNP46A2, tiles.Tile{H: 11, V: 5}, day(2022, 1, 1)))
	put(s.Key(product.VNP46A1, tiles.Tile{H: 11, V: 5}, day(2022, 1, 1)))
	put("VNP46A2_notes.txt")

	got, err := s.List(ctx, product.VNP46A2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{
		"VNP46A2_h11v05_t2022_01_01.h5",
		"VNP46A2_h10v05_t2022_01_02.h5",
		"VNP46A2_h11v05_t2022_01_02.h5",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d artifacts, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Key != want[i] {
			t.Errorf("artifact %d = %s, want %s", i, got[i].Key, want[i])
		}
	}
}

func TestNewReaderMissing(t *testing.T) {
	s, err := Open(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if _, err := s.NewReader(context.Background(), "VNP46A2_h10v05_t2022_01_01.h5"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
