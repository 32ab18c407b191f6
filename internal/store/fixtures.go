// Loads seed data for the store from YAML, JSON or JSONL files.

package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// Format is a fixture file encoding.
type Format string

const (
	// FormatYAML is a YAML document with a top-level collections object.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON document with a top-level collections object.
	FormatJSON Format = "json"
)

// Fixtures is the seed document loaded at process start.
type Fixtures struct {
	Collections map[string][]Record `json:"collections" yaml:"collections" jsonschema:"description=Rows per collection name, in insertion order"`
}

// FormatFromPath guesses the fixture format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported fixture extension %q", filepath.Ext(path))
	}
}

// LoadFixtures reads fixtures from a YAML/JSON file or a directory of
// <collection>.jsonl files.
func LoadFixtures(path string) (*Fixtures, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat fixtures %s: %w", path, err)
	}
	if fi.IsDir() {
		return loadJSONLDir(path)
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: fixture path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures %s: %w", path, err)
	}
	f, err := ParseFixtures(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fixtures %s: %w", path, err)
	}
	return f, nil
}

// ParseFixtures decodes a fixture document.
func ParseFixtures(data []byte, format Format) (*Fixtures, error) {
	var raw struct {
		Collections map[string][]map[string]any `json:"collections" yaml:"collections"`
	}
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case FormatJSON:
		d := json.NewDecoder(bytes.NewReader(data))
		d.UseNumber()
		if err := d.Decode(&raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown fixture format %q", format)
	}
	f := &Fixtures{Collections: make(map[string][]Record, len(raw.Collections))}
	for name, rows := range raw.Collections {
		if name == "" {
			return nil, fmt.Errorf("collection name is required")
		}
		out := make([]Record, len(rows))
		for i, r := range rows {
			out[i] = NormalizeRecord(r)
		}
		f.Collections[name] = out
	}
	return f, nil
}

// Names returns the sorted collection names in the fixtures.
func (f *Fixtures) Names() []string {
	names := make([]string, 0, len(f.Collections))
	for name := range f.Collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func loadJSONLDir(dir string) (*Fixtures, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture directory %s: %w", dir, err)
	}
	f := &Fixtures{Collections: make(map[string][]Record)}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".jsonl")
		rows, err := readJSONLFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		f.Collections[name] = rows
	}
	return f, nil
}

func readJSONLFile(path string) ([]Record, error) {
	fh, err := os.Open(path) //nolint:gosec // G304: path is built from the fixture directory listing
	if err != nil {
		return nil, fmt.Errorf("failed to open table file %s: %w", path, err)
	}
	defer func() {
		_ = fh.Close()
	}()
	rows, err := ReadJSONL(fh)
	if err != nil {
		return nil, fmt.Errorf("failed to read table file %s: %w", path, err)
	}
	return rows, nil
}

// ReadJSONL decodes one record per line. Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]Record, error) {
	rows := []Record{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		d := json.NewDecoder(bytes.NewReader(data))
		d.UseNumber()
		var row map[string]any
		if err := d.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to unmarshal row on line %d: %w", line, err)
		}
		rows = append(rows, NormalizeRecord(row))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// WriteJSONL encodes one record per line.
func WriteJSONL(w io.Writer, rows []Record) error {
	writer := bufio.NewWriter(w)
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		if _, err := writer.Write(data); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write newline: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	return nil
}

// FixturesSchema returns the JSON schema describing a fixture document.
func FixturesSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	return r.Reflect(&Fixtures{})
}
