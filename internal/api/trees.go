package api

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/legacylink/legacylink/pkg/auth"
	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/graph"
	"github.com/legacylink/legacylink/pkg/pipeline"
)

// ownerPrefix namespaces the stored trees of a signed-in user. The local
// user owns the unprefixed namespace.
func ownerPrefix(u *auth.User) string {
	if u == nil || u.ID == auth.LocalUser.ID {
		return ""
	}
	sum := sha256.Sum256([]byte(u.ID))
	return "u" + hex.EncodeToString(sum[:6]) + "."
}

// storedTree returns the store key of the {treeID} in the request path.
func storedTree(r *http.Request) (string, error) {
	id := chi.URLParam(r, "treeID")
	if err := errors.ValidateTreeID(id); err != nil {
		return "", err
	}
	user, _ := UserFrom(r.Context())
	return ownerPrefix(user) + id, nil
}

// loadTree resolves and loads the request's tree, writing the error
// response itself on failure.
func (s *Server) loadTree(w http.ResponseWriter, r *http.Request) (string, *family.Roster, bool) {
	tree, err := storedTree(r)
	if err != nil {
		s.writeError(w, r, err)
		return "", nil, false
	}
	roster, err := s.runner.Load(r.Context(), tree)
	if err != nil {
		s.writeError(w, r, err)
		return "", nil, false
	}
	return tree, roster, true
}

// mutate applies fn to the request's tree and saves the result.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(*family.Roster) error) (*family.Roster, bool) {
	tree, err := storedTree(r)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	roster, err := s.runner.Mutate(r.Context(), tree, fn)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return roster, true
}

func (s *Server) handleListTrees(w http.ResponseWriter, r *http.Request) {
	ids, err := s.runner.Store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user, _ := UserFrom(r.Context())
	prefix := ownerPrefix(user)

	trees := []string{}
	for _, id := range ids {
		switch {
		case prefix != "" && strings.HasPrefix(id, prefix):
			trees = append(trees, strings.TrimPrefix(id, prefix))
		case prefix == "" && !isOwned(id):
			trees = append(trees, id)
		}
	}
	slices.Sort(trees)
	s.writeJSON(w, http.StatusOK, map[string]any{"trees": trees})
}

// isOwned reports whether a stored tree id carries a user prefix.
func isOwned(id string) bool {
	head, _, ok := strings.Cut(id, ".")
	if !ok || len(head) != 13 || head[0] != 'u' {
		return false
	}
	_, err := hex.DecodeString(head[1:])
	return err == nil
}

func (s *Server) handleDeleteTree(w http.ResponseWriter, r *http.Request) {
	tree, err := storedTree(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.runner.Store.Delete(r.Context(), tree); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type importResponse struct {
	Members int            `json:"members"`
	Issues  []family.Issue `json:"issues"`
}

// handleImport reads a roster document from the body. The format comes
// from ?format= (json, yaml or llz) and defaults to json.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	tree, err := storedTree(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	mode, err := pipeline.ParseImportMode(r.URL.Query().Get("mode"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := graph.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		if format, err = graph.FormatFromPath("import." + f); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}
	incoming, err := pipeline.Parse(data, format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	roster, issues, err := s.runner.Import(r.Context(), tree, incoming, mode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if issues == nil {
		issues = []family.Issue{}
	}
	s.writeJSON(w, http.StatusOK, importResponse{Members: roster.Len(), Issues: issues})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	_, roster, ok := s.loadTree(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, roster.Stats())
}

type validateResponse struct {
	Valid  bool           `json:"valid"`
	Issues []family.Issue `json:"issues"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	_, roster, ok := s.loadTree(w, r)
	if !ok {
		return
	}
	issues := roster.Validate()
	if issues == nil {
		issues = []family.Issue{}
	}
	s.writeJSON(w, http.StatusOK, validateResponse{Valid: len(issues) == 0, Issues: issues})
}

type fixResponse struct {
	Symmetrized  int            `json:"symmetrized"`
	CyclesBroken int            `json:"cycles_broken"`
	Issues       []family.Issue `json:"issues"`
}

func (s *Server) handleFix(w http.ResponseWriter, r *http.Request) {
	var resp fixResponse
	roster, ok := s.mutate(w, r, func(roster *family.Roster) error {
		resp.Symmetrized, resp.CyclesBroken = roster.Repair()
		return nil
	})
	if !ok {
		return
	}
	resp.Issues = roster.Validate()
	if resp.Issues == nil {
		resp.Issues = []family.Issue{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}
