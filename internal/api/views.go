package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/kinship"
	"github.com/legacylink/legacylink/pkg/pipeline"
	"github.com/legacylink/legacylink/pkg/search"
)

func setCacheHeader(w http.ResponseWriter, hit bool) {
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
}

func queryBool(q url.Values, name string) (*bool, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid %s: %q", name, v)
	}
	return &b, nil
}

func queryInt(q url.Values, name string) (*int, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid %s: %q", name, v)
	}
	return &n, nil
}

// layoutOptions reads focus, order, and siblings over the configured
// layout defaults. An explicit focus must name a member.
func (s *Server) layoutOptions(r *http.Request, roster *family.Roster) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.OptionsFromConfig(s.cfg.Layout)
	opts.Focus = q.Get("focus")
	if o := q.Get("order"); o != "" {
		opts.Order = o
	}
	siblings, err := queryBool(q, "siblings")
	if err != nil {
		return opts, err
	}
	if siblings != nil {
		opts.Siblings = *siblings
	}
	if opts.Focus != "" && !roster.Has(opts.Focus) {
		return opts, errors.New(errors.ErrCodeMemberNotFound, "focus member %q not found", opts.Focus)
	}
	return opts, opts.ValidateForLayout()
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	_, roster, ok := s.loadTree(w, r)
	if !ok {
		return
	}
	opts, err := s.layoutOptions(r, roster)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, hit, err := s.runner.LayoutWithCacheInfo(r.Context(), roster, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setCacheHeader(w, hit)
	s.writeJSON(w, http.StatusOK, res)
}

type relationshipResponse struct {
	Person       string               `json:"person"`
	RelativeTo   string               `json:"relative_to"`
	Relationship kinship.Relationship `json:"relationship"`
}

// handleRelationship answers "what is person to relative_to".
func (s *Server) handleRelationship(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	person, relativeTo := q.Get("person"), q.Get("relative_to")
	if person == "" || relativeTo == "" {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "person and relative_to are required"))
		return
	}
	_, roster, ok := s.loadTree(w, r)
	if !ok {
		return
	}
	rel, err := kinship.NewResolver(roster.Members).Resolve(person, relativeTo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, relationshipResponse{Person: person, RelativeTo: relativeTo, Relationship: rel})
}

type relationsResponse struct {
	Member        string         `json:"member"`
	Relationships []kinship.Pair `json:"relationships"`
}

func (s *Server) handleMemberRelationships(w http.ResponseWriter, r *http.Request) {
	_, roster, ok := s.loadTree(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "memberID")
	pairs, err := s.runner.Relations(r.Context(), roster, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if pairs == nil {
		pairs = []kinship.Pair{}
	}
	s.writeJSON(w, http.StatusOK, relationsResponse{Member: id, Relationships: pairs})
}

type searchResponse struct {
	Matches []search.Match `json:"matches"`
	Count   int            `json:"count"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := search.Query{
		Text:  q.Get("q"),
		Focus: q.Get("focus"),
	}
	if g := q.Get("gender"); g != "" {
		query.Gender = family.ParseGender(g)
	}

	var err error
	if query.Living, err = queryBool(q, "living"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if query.Generation, err = queryInt(q, "generation"); err != nil {
		s.writeError(w, r, err)
		return
	}
	for name, dst := range map[string]*int{
		"born_after":  &query.BornAfter,
		"born_before": &query.BornBefore,
		"limit":       &query.Limit,
	} {
		n, err := queryInt(q, name)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if n != nil {
			*dst = *n
		}
	}
	if query.Limit < 0 {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "limit must not be negative"))
		return
	}

	_, roster, ok := s.loadTree(w, r)
	if !ok {
		return
	}
	matches := search.Search(roster.Members, query)
	s.writeJSON(w, http.StatusOK, searchResponse{Matches: matches, Count: len(matches)})
}

// handleExport renders the tree in one of the pipeline formats. ?download
// adds an attachment disposition.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := pipeline.ValidateFormat(format); err != nil {
		s.writeError(w, r, err)
		return
	}
	_, roster, ok := s.loadTree(w, r)
	if !ok {
		return
	}
	opts, err := s.layoutOptions(r, roster)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	opts.Formats = []string{format}
	opts.Title = q.Get("title")
	opts.Highlight = q.Get("highlight")
	for name, dst := range map[string]*bool{
		"detailed":    &opts.Detailed,
		"interactive": &opts.Interactive,
	} {
		b, err := queryBool(q, name)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if b != nil {
			*dst = *b
		}
	}
	if err := opts.ValidateForRender(); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, layoutHit, err := s.runner.LayoutWithCacheInfo(r.Context(), roster, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	artifacts, renderHit, err := s.runner.RenderWithCacheInfo(r.Context(), roster, res, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	setCacheHeader(w, layoutHit && renderHit)
	w.Header().Set("Content-Type", pipeline.ContentTypes[format])
	if download, _ := queryBool(q, "download"); download != nil && *download {
		name := chi.URLParam(r, "treeID") + pipeline.Extensions[format]
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifacts[format]); err != nil {
		s.logger.Warn("write export", "format", format, "err", err)
	}
}
