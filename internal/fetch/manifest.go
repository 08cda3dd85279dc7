package fetch

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML summary written after a run.
type Manifest struct {
	RunID       string         `yaml:"run_id"`
	Started     time.Time      `yaml:"started"`
	Finished    time.Time      `yaml:"finished"`
	Interrupted bool           `yaml:"interrupted"`
	Units       int            `yaml:"units"`
	Counts      map[string]int `yaml:"counts"`
	Batches     []BatchSummary `yaml:"batches"`
	Gaps        []Gap          `yaml:"gaps"`
}

// BatchSummary is one batch line of the manifest.
type BatchSummary struct {
	Product   string `yaml:"product"`
	Timestamp string `yaml:"timestamp"`
	Tiles     int    `yaml:"tiles"`
	Available int    `yaml:"available"`
	Usable    bool   `yaml:"usable"`
}

// Manifest summarises the collection.
func (c *Collection) Manifest() Manifest {
	m := Manifest{
		RunID:       c.RunID,
		Started:     c.Started.UTC(),
		Finished:    c.Finished.UTC(),
		Interrupted: c.Interrupted,
		Counts:      make(map[string]int),
		Gaps:        c.Gaps(),
	}
	for status, n := range c.Counts() {
		m.Counts[status.String()] = n
		m.Units += n
	}
	for _, b := range c.Batches {
		m.Batches = append(m.Batches, BatchSummary{
			Product:   string(b.Product),
			Timestamp: b.Period.Key(),
			Tiles:     len(b.Outcomes),
			Available: len(b.Keys()),
			Usable:    b.Usable,
		})
	}
	return m
}

// WriteManifest writes the collection's manifest as YAML.
func (c *Collection) WriteManifest(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c.Manifest()); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return enc.Close()
}

// ReadManifest parses a manifest written by WriteManifest.
func ReadManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}
