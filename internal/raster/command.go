package raster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/robert-malhotra/blackmarble/internal/product"
)

// ErrConverter is returned when the external converter fails or prints
// something other than a band.
var ErrConverter = errors.New("converter failed")

// CommandConverter decodes tile files with an external program. The file is
// piped to its stdin, the product and variable are appended to its arguments
// and it must print the Band as JSON on stdout.
type CommandConverter struct {
	Path string
	Args []string
}

// ParseCommand splits a command line such as "h5band --scaled" on spaces.
func ParseCommand(line string) (*CommandConverter, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrConverter)
	}
	return &CommandConverter{Path: fields[0], Args: fields[1:]}, nil
}

func (c *CommandConverter) Decode(ctx context.Context, r io.Reader, p product.Product, variable string) (Band, error) {
	args := append(append([]string(nil), c.Args...), string(p), variable)
	cmd := exec.CommandContext(ctx, c.Path, args...)
	cmd.Stdin = r

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return Band{}, fmt.Errorf("%w: %s: %v", ErrConverter, c.Path, err)
		}
		return Band{}, fmt.Errorf("%w: %s: %v: %s", ErrConverter, c.Path, err, msg)
	}

	var b Band
	if err := json.Unmarshal(stdout.Bytes(), &b); err != nil {
		return Band{}, fmt.Errorf("%w: %s printed invalid JSON: %v", ErrConverter, c.Path, err)
	}
	return b, nil
}
