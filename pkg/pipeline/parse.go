package pipeline

import (
	"bytes"
	"strings"

	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/graph"
)

// ImportMode selects how an imported roster combines with a stored one.
type ImportMode string

const (
	// ImportReplace discards the stored roster.
	ImportReplace ImportMode = "replace"
	// ImportMerge folds imported members into the stored roster.
	ImportMerge ImportMode = "merge"
)

// ParseImportMode accepts "replace" and "merge"; empty means merge.
func ParseImportMode(s string) (ImportMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "merge":
		return ImportMerge, nil
	case "replace":
		return ImportReplace, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "invalid import mode: %q (must be one of: merge, replace)", s)
}

// Parse decodes a roster document. Unlike store loads, parsed members are
// normalized: genders are canonical, edges symmetric, and repeated ids
// folded into one member. A member with an invalid profile fails the parse.
func Parse(data []byte, format graph.Format) (*family.Roster, error) {
	doc, err := graph.ReadRoster(bytes.NewReader(data), format)
	if err != nil {
		return nil, err
	}
	return fromDocument(doc)
}

// ParseFile reads a roster document from disk, format chosen by extension.
func ParseFile(path string) (*family.Roster, error) {
	doc, err := graph.ReadRosterFile(path)
	if err != nil {
		return nil, err
	}
	return fromDocument(doc)
}

func fromDocument(doc graph.Document) (*family.Roster, error) {
	r := family.NewRoster()
	if _, _, err := r.Merge(doc.Members); err != nil {
		return nil, err
	}
	return r, nil
}

// Combine applies an import to the stored roster and returns the result
// with any integrity issues it still has. Incoming members with invalid
// profiles (empty names, malformed dates, non-http links) are rejected
// with INVALID_MEMBER and nothing is combined.
func Combine(stored, incoming *family.Roster, mode ImportMode) (*family.Roster, []family.Issue, error) {
	var out *family.Roster
	switch {
	case mode == ImportReplace || stored == nil:
		if err := family.ValidateMembers(incoming.Members); err != nil {
			return nil, nil, err
		}
		out = incoming.Clone()
	default:
		out = stored.Clone()
		if _, _, err := out.Merge(incoming.Members); err != nil {
			return nil, nil, err
		}
	}
	return out, out.Validate(), nil
}
