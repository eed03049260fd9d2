// Package catalog moves question catalogs in and out of the system as
// versioned JSON or YAML documents.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/masterypath/internal/bank"
)

// FormatVersion is written into every export. Imports accept any version
// with the same major number.
const FormatVersion = "v1.0.0"

// Envelope wraps an exported catalog with its format metadata.
type Envelope struct {
	Version    string        `json:"version" yaml:"version"`
	ExportedAt time.Time     `json:"exported_at" yaml:"exported_at"`
	Catalog    bank.Document `json:"catalog" yaml:"catalog"`
}

// Export writes cat to w in the given format.
func Export(w io.Writer, cat *bank.Catalog, format bank.Format, now time.Time) error {
	data, err := bank.Marshal(Envelope{
		Version:    FormatVersion,
		ExportedAt: now.UTC(),
		Catalog:    cat.Document(),
	}, format)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}

// probe peeks at a document without rejecting unknown fields.
type probe struct {
	Version string          `json:"version" yaml:"version"`
	Catalog *map[string]any `json:"catalog" yaml:"catalog"`
}

// Import reads an exported envelope, or a bare catalog document, from r and
// validates it.
func Import(r io.Reader, format bank.Format) (*bank.Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var p probe
	switch format {
	case bank.FormatJSON:
		err = json.Unmarshal(data, &p)
	default:
		err = yaml.Unmarshal(data, &p)
	}
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	var doc bank.Document
	if p.Catalog != nil {
		if err := CheckVersion(p.Version); err != nil {
			return nil, err
		}
		var env Envelope
		if err := bank.Unmarshal(data, format, &env); err != nil {
			return nil, fmt.Errorf("decode catalog envelope: %w", err)
		}
		doc = env.Catalog
	} else if err := bank.Unmarshal(data, format, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog document: %w", err)
	}

	cat, err := bank.NewCatalog(doc)
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// CheckVersion accepts versions whose major number matches FormatVersion.
// A missing "v" prefix is tolerated.
func CheckVersion(v string) error {
	if v == "" {
		return fmt.Errorf("catalog envelope has no version")
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("invalid catalog version %q", v)
	}
	if semver.Major(v) != semver.Major(FormatVersion) {
		return fmt.Errorf("unsupported catalog version %s: this build reads %s.x", v, semver.Major(FormatVersion))
	}
	return nil
}
