// Package config provides the manifest loader for forage.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.trai.ch/forage/internal/core/domain"
	"go.trai.ch/forage/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader for TOML and YAML manifests, chosen
// by file extension.
type Loader struct {
	disabled map[string]bool
}

// NewLoader creates a Loader with all variants enabled.
func NewLoader() *Loader {
	return &Loader{disabled: make(map[string]bool)}
}

// Disable marks a source variant as unavailable.
func (l *Loader) Disable(variant string) {
	l.disabled[variant] = true
}

// Discover locates a manifest starting at dir and walking up through parent
// directories.
func (l *Loader) Discover(dir string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", zerr.Wrap(err, "failed to resolve directory")
	}
	for {
		for _, name := range domain.ManifestNames() {
			candidate := filepath.Join(current, name)
			info, err := os.Stat(candidate)
			if err == nil && info.Mode().IsRegular() {
				return candidate, nil
			}
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return "", zerr.Wrap(err, "failed to stat manifest candidate")
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", domain.ErrManifestNotFound
		}
		current = parent
	}
}

// Load parses the manifest at path into a named source table. All
// validation failures carry the offending source's name; any failure
// aborts the whole load so nothing is fetched from a bad manifest.
func (l *Loader) Load(path string) (domain.Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read manifest")
	}

	var doc map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, zerr.Wrap(err, "failed to parse manifest")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, zerr.Wrap(err, "failed to parse manifest")
		}
	default:
		return nil, zerr.With(zerr.New("unsupported manifest format"), "extension", ext)
	}

	table, ok := doc["sources"]
	if !ok {
		return nil, domain.ErrNoSourcesTable
	}
	entries, ok := asTable(table)
	if !ok {
		return nil, zerr.With(domain.ErrValueNotTable, "key", "sources")
	}

	sources := make(domain.Sources, len(entries))
	for name, value := range entries {
		src, err := l.parseSource(name, value)
		if err != nil {
			return nil, err
		}
		sources[name] = src
	}
	return sources, nil
}

// parseSource validates the variant key of one source table and decodes it.
func (l *Loader) parseSource(name string, value any) (domain.Source, error) {
	fields, ok := asTable(value)
	if !ok {
		return nil, zerr.With(domain.ErrValueNotTable, "source", name)
	}

	variant := ""
	for key := range fields {
		if !knownVariant(key) {
			continue
		}
		if variant != "" {
			return nil, zerr.With(domain.ErrVariantMultiple, "source", name)
		}
		variant = key
	}
	if variant == "" {
		return nil, zerr.With(domain.ErrVariantUnknown, "source", name)
	}
	if l.disabled[variant] {
		return nil, zerr.With(zerr.With(domain.ErrVariantDisabled, "source", name), "variant", variant)
	}

	switch variant {
	case variantGit:
		return parseGit(name, fields)
	default:
		return parseTar(name, fields)
	}
}

func parseGit(name string, fields map[string]any) (domain.Source, error) {
	url, err := stringField(name, fields, variantGit)
	if err != nil {
		return nil, err
	}
	src := domain.Git{URL: url}

	var ref *domain.Reference
	for _, kind := range []domain.RefKind{domain.RefBranch, domain.RefTag, domain.RefRev} {
		raw, present := fields[string(kind)]
		if !present {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			return nil, zerr.With(zerr.With(zerr.New("expected a string value"), "source", name), "key", string(kind))
		}
		if ref != nil {
			return nil, zerr.With(domain.ErrReferenceConflict, "source", name)
		}
		ref = &domain.Reference{Kind: kind, Value: value}
	}
	src.Reference = ref

	if raw, present := fields["recursive"]; present {
		recursive, ok := raw.(bool)
		if !ok {
			return nil, zerr.With(zerr.With(zerr.New("expected a boolean value"), "source", name), "key", "recursive")
		}
		src.Recursive = recursive
	}
	return src, nil
}

func parseTar(name string, fields map[string]any) (domain.Source, error) {
	url, err := stringField(name, fields, variantTar)
	if err != nil {
		return nil, err
	}
	return domain.Tar{URL: url}, nil
}

func stringField(name string, fields map[string]any, key string) (string, error) {
	value, ok := fields[key].(string)
	if !ok || value == "" {
		return "", zerr.With(zerr.With(zerr.New("expected a non-empty string value"), "source", name), "key", key)
	}
	return value, nil
}

// asTable normalizes the decoded table form of both parsers. yaml.v3
// produces map[string]any for string-keyed mappings and BurntSushi/toml
// produces map[string]any for tables, but nested YAML tables can surface
// as map[any]any depending on the document.
func asTable(value any) (map[string]any, bool) {
	switch t := value.(type) {
	case map[string]any:
		return t, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = v
		}
		return out, true
	default:
		return nil, false
	}
}
