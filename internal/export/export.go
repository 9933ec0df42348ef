// Package export writes decoded sessions to disk, either as readable JSON
// or as a gzip-packed binary dump for archival.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"rcx5sync/internal/geo"
	"rcx5sync/internal/session"
)

// taggedSample is session.Sample plus a geohash string, computed once at
// export time rather than carried through the decoder, since the core
// Sample type is fixed by the decode pipeline itself.
type taggedSample struct {
	session.Sample
	Geohash string `json:"geohash,omitempty"`
}

// Document is the on-disk JSON shape for one decoded session.
type Document struct {
	Metadata session.SessionMetadata `json:"metadata"`
	Samples  []taggedSample          `json:"samples"`
}

func buildDocument(meta session.SessionMetadata, samples []session.Sample) Document {
	tagged := make([]taggedSample, len(samples))
	for i, s := range samples {
		tagged[i].Sample = s
		if s.Lat != nil && s.Lon != nil {
			tagged[i].Geohash = geo.Geohash(*s.Lat, *s.Lon)
		}
	}
	return Document{Metadata: meta, Samples: tagged}
}

// WriteJSON marshals a decoded session to indented JSON and writes it to
// dir/<name>.json.
func WriteJSON(dir, name string, meta session.SessionMetadata, samples []session.Sample) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create output dir: %w", err)
	}
	path := filepath.Join(dir, name+".json")

	doc := buildDocument(meta, samples)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("export: write %s: %w", path, err)
	}
	return path, nil
}

// WritePacked gzip-compresses the session's JSON encoding and writes it to
// dir/<name>.json.gz, for long-term storage of many sessions where
// readability doesn't matter.
func WritePacked(dir, name string, meta session.SessionMetadata, samples []session.Sample) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create output dir: %w", err)
	}
	path := filepath.Join(dir, name+".json.gz")

	doc := buildDocument(meta, samples)
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("export: marshal session: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("export: create %s: %w", path, err)
	}
	defer f.Close()

	gw, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		return "", fmt.Errorf("export: init gzip writer: %w", err)
	}
	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return "", fmt.Errorf("export: write packed session: %w", err)
	}
	if err := gw.Close(); err != nil {
		return "", fmt.Errorf("export: flush packed session: %w", err)
	}
	return path, nil
}

// SessionFilename derives a stable, sortable filename stem for a session
// from its recorded start time, e.g. "20260731-071500".
func SessionFilename(startLocal time.Time) string {
	return startLocal.Format("20060102-150405")
}

// Write dispatches to WriteJSON or WritePacked based on format: "packed"
// selects WritePacked, "json" or the empty string selects WriteJSON, and any
// other value is an error.
func Write(format, dir string, meta session.SessionMetadata, samples []session.Sample) (string, error) {
	name := SessionFilename(meta.StartLocal)
	switch format {
	case "packed":
		return WritePacked(dir, name, meta, samples)
	case "json", "":
		return WriteJSON(dir, name, meta, samples)
	default:
		return "", fmt.Errorf("export: unknown format %q", format)
	}
}
