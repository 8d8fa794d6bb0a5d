// Package yamlfile reads and writes linked pairs as YAML documents for
// backup, review, and bulk import.
package yamlfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"

	"github.com/agentstation/tasklink/pkg/constants"
	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/records"
)

// Version is the document format version written by Encode.
const Version = 1

// Document is the on-disk layout of a pairs file.
type Document struct {
	Version    int                  `yaml:"version"`
	ExportedAt *utc.Time            `yaml:"exported_at,omitempty"`
	Pairs      []records.LinkedPair `yaml:"pairs"`
}

// Encode writes pairs to w.
func Encode(w io.Writer, pairs []*records.LinkedPair, at utc.Time) error {
	doc := Document{Version: Version, ExportedAt: &at, Pairs: make([]records.LinkedPair, 0, len(pairs))}
	for _, p := range pairs {
		doc.Pairs = append(doc.Pairs, *p)
	}

	data, err := yaml.MarshalWithOptions(doc, yaml.IndentSequence(true))
	if err != nil {
		return errors.WrapParse("yaml", "", err)
	}
	_, err = w.Write(data)
	return err
}

// Decode reads and validates a pairs document. Entries may omit ids
// and timestamps; an entry must name at least one record.
func Decode(r io.Reader) ([]records.LinkedPair, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapParse("yaml", "", err)
	}
	if doc.Version > Version {
		return nil, &errors.ParseError{Format: "yaml", Message: fmt.Sprintf("unsupported version %d", doc.Version)}
	}

	for i, p := range doc.Pairs {
		if p.SourceID == "" && p.TargetID == "" {
			return nil, errors.NewValidationError(fmt.Sprintf("pairs[%d]", i), nil, "entry must name a source_id or target_id")
		}
		if p.Confidence < 0 || p.Confidence > 1 {
			return nil, errors.NewValidationError(fmt.Sprintf("pairs[%d].confidence", i), p.Confidence, "must be within [0,1]")
		}
		if p.Method == "" {
			doc.Pairs[i].Method = records.MethodImport
		}
	}
	return doc.Pairs, nil
}

// WriteFile exports pairs to path, creating parent directories.
func WriteFile(path string, pairs []*records.LinkedPair, at utc.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return errors.WrapStore("mkdir", "export", path, err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, pairs, at); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), constants.FilePermissions); err != nil {
		return errors.WrapStore("write", "export", path, err)
	}
	return nil
}

// ReadFile imports pairs from path.
func ReadFile(path string) ([]records.LinkedPair, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("file", path)
		}
		return nil, errors.WrapStore("open", "import", path, err)
	}
	defer f.Close()

	pairs, err := Decode(f)
	if err != nil {
		var perr *errors.ParseError
		if errors.As(err, &perr) && perr.File == "" {
			perr.File = path
		}
		return nil, err
	}
	return pairs, nil
}
