package graph

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
)

// Version is the current roster document version.
const Version = 1

// Format is an on-disk encoding of a roster document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	// FormatZstd is zstd-compressed JSON.
	FormatZstd Format = "llz"
)

// MaxDecodedSize caps the decompressed size of a zstd roster document.
var MaxDecodedSize int64 = 64 << 20

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".llz", ".zst":
		return FormatZstd, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported file extension %q (want .json, .yaml, .yml or .llz)", ext)
	}
}

// =============================================================================
// Document - Roster Serialization
// =============================================================================

// Document is the canonical serialization of one family tree.
//
//	{
//	  "version": 1,
//	  "tree": "smith",
//	  "members": [{"id": "alice", "name": "Alice", ...}]
//	}
type Document struct {
	Version int             `json:"version" yaml:"version"`
	Tree    string          `json:"tree,omitempty" yaml:"tree,omitempty"`
	Members []family.Member `json:"members" yaml:"members"`
}

// NewDocument wraps a roster for serialization.
func NewDocument(tree string, r *family.Roster) Document {
	members := []family.Member{}
	if r != nil && r.Members != nil {
		members = r.Members
	}
	return Document{Version: Version, Tree: tree, Members: members}
}

// Roster returns a roster over the document's members.
func (d Document) Roster() *family.Roster {
	return family.NewRoster(d.Members...)
}

func (d *Document) check() error {
	if d.Version == 0 {
		d.Version = Version
	}
	if d.Version > Version {
		return errors.New(errors.ErrCodeUnsupported, "roster document version %d is newer than supported version %d", d.Version, Version)
	}
	if d.Members == nil {
		d.Members = []family.Member{}
	}
	return nil
}

// =============================================================================
// Roster Serialization API
// =============================================================================

// MarshalRoster encodes a roster as indented JSON.
func MarshalRoster(tree string, r *family.Roster) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteRoster(&buf, FormatJSON, NewDocument(tree, r)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalRoster decodes a JSON roster document.
func UnmarshalRoster(data []byte) (Document, error) {
	return ReadRoster(bytes.NewReader(data), FormatJSON)
}

// WriteRoster encodes doc to w in the given format.
func WriteRoster(w io.Writer, format Format, doc Document) error {
	if doc.Version == 0 {
		doc.Version = Version
	}
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("zstd writer: %w", err)
		}
		if err := json.NewEncoder(zw).Encode(doc); err != nil {
			zw.Close()
			return fmt.Errorf("encode: %w", err)
		}
		return zw.Close()
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return nil
	}
	return errors.New(errors.ErrCodeInvalidFormat, "unknown roster format %q", format)
}

// ReadRoster decodes a roster document from r.
func ReadRoster(r io.Reader, format Format) (Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !stderrors.Is(err, io.EOF) {
			return Document{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode yaml")
		}
	case FormatZstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderMaxMemory(uint64(MaxDecodedSize)))
		if err != nil {
			return Document{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "zstd reader")
		}
		defer zr.Close()
		lr := &io.LimitedReader{R: zr, N: MaxDecodedSize + 1}
		err = json.NewDecoder(lr).Decode(&doc)
		if lr.N <= 0 {
			return Document{}, errors.New(errors.ErrCodeInvalidFormat, "decompressed roster exceeds %d bytes", MaxDecodedSize)
		}
		if err != nil {
			return Document{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode")
		}
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return Document{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode")
		}
	default:
		return Document{}, errors.New(errors.ErrCodeInvalidFormat, "unknown roster format %q", format)
	}
	if err := doc.check(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// WriteRosterFile writes doc to path, choosing the format from the
// extension. The file is created with 0644 permissions.
func WriteRosterFile(path string, doc Document) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteRoster(f, format, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadRosterFile reads a roster document, choosing the format from the
// extension.
func ReadRosterFile(path string) (Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Document{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return Document{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadRoster(f, format)
}
