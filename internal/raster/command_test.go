package raster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/robert-malhotra/blackmarble/internal/product"
)

// TestConverterHelperProcess stands in for an external converter when
// started by converterCommand. It reports the size of its input in every
// cell of a 2x2 band.
func TestConverterHelperProcess(t *testing.T) {
	if os.Getenv("BLACKMARBLE_CONVERTER_HELPER") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) != 3 {
		fmt.Fprintf(os.Stderr, "want product and variable, got %q", args)
		os.Exit(2)
	}
	if args[1] == "FAIL" {
		fmt.Fprint(os.Stderr, "cannot read tile")
		os.Exit(1)
	}
	n, _ := io.Copy(io.Discard, os.Stdin)
	v := float64(n)
	json.NewEncoder(os.Stdout).Encode(Band{
		Variable: args[2],
		Rows:     2,
		Cols:     2,
		Values:   []float64{v, v, v, v},
	})
	os.Exit(0)
}

func converterCommand(t *testing.T) *CommandConverter {
	t.Helper()
	t.Setenv("BLACKMARBLE_CONVERTER_HELPER", "1")
	return &CommandConverter{
		Path: os.Args[0],
		Args: []string{"-test.run=^TestConverterHelperProcess$", "--"},
	}
}

func TestCommandConverter(t *testing.T) {
	conv := converterCommand(t)

	b, err := conv.Decode(context.Background(), strings.NewReader("abc"), product.VNP46A2, "Gap_Filled_DNB_BRDF-Corrected_NTL")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b.Rows != 2 || b.Cols != 2 || b.Values[0] != 3 {
		t.Errorf("unexpected band %+v", b)
	}
	if b.Variable != "Gap_Filled_DNB_BRDF-Corrected_NTL" {
		t.Errorf("variable = %q", b.Variable)
	}

	_, err = conv.Decode(context.Background(), strings.NewReader("abc"), "FAIL", "x")
	if !errors.Is(err, ErrConverter) || !strings.Contains(err.Error(), "cannot read tile") {
		t.Errorf("expected converter error with stderr, got %v", err)
	}
}

func TestParseCommand(t *testing.T) {
	c, err := ParseCommand("  h5band --scaled  ")
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if c.Path != "h5band" || len(c.Args) != 1 || c.Args[0] != "--scaled" {
		t.Errorf("unexpected command %+v", c)
	}
	if _, err := ParseCommand(" "); !errors.Is(err, ErrConverter) {
		t.Errorf("expected ErrConverter for an empty command, got %v", err)
	}
}
