package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
)

// memberRequest is the body of member create and update. Relationships are
// only read on create; edges of existing members change through /links.
type memberRequest struct {
	ID            string               `json:"id" validate:"omitempty,max=128"`
	Name          string               `json:"name" validate:"required,max=200"`
	Gender        string               `json:"gender" validate:"omitempty,max=20"`
	DateOfBirth   string               `json:"date_of_birth" validate:"omitempty,max=10"`
	DateOfDeath   string               `json:"date_of_death" validate:"omitempty,max=10"`
	Photo         string               `json:"photo" validate:"omitempty,max=2048"`
	Biography     string               `json:"biography" validate:"max=20000"`
	VoiceNote     string               `json:"voice_note" validate:"omitempty,max=2048"`
	SocialLinks   map[string]string    `json:"social_links" validate:"omitempty,dive,url"`
	Media         []family.MediaItem   `json:"media"`
	Notes         string               `json:"notes" validate:"max=20000"`
	Relationships family.Relationships `json:"relationships"`
}

func (req memberRequest) member() family.Member {
	return family.Member{
		ID:            req.ID,
		Name:          req.Name,
		Gender:        family.ParseGender(req.Gender),
		DateOfBirth:   req.DateOfBirth,
		DateOfDeath:   req.DateOfDeath,
		Photo:         req.Photo,
		Biography:     req.Biography,
		VoiceNote:     req.VoiceNote,
		SocialLinks:   req.SocialLinks,
		Media:         req.Media,
		Notes:         req.Notes,
		Relationships: req.Relationships,
	}
}

type membersResponse struct {
	Members []family.Member `json:"members"`
	Count   int             `json:"count"`
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	_, roster, ok := s.loadTree(w, r)
	if !ok {
		return
	}
	members := roster.Members
	if members == nil {
		members = []family.Member{}
	}
	s.writeJSON(w, http.StatusOK, membersResponse{Members: members, Count: len(members)})
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var added family.Member
	if _, ok := s.mutate(w, r, func(roster *family.Roster) error {
		var err error
		added, err = roster.Add(req.member())
		return err
	}); !ok {
		return
	}
	w.Header().Set("Location", r.URL.Path+"/"+url.PathEscape(added.ID))
	s.writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	_, roster, ok := s.loadTree(w, r)
	if !ok {
		return
	}
	m, err := roster.Get(chi.URLParam(r, "memberID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

// handleUpdateMember replaces the profile of a member. Fields missing from
// the body are cleared.
func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "memberID")
	if req.ID != "" && req.ID != id {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "body id %q does not match path id %q", req.ID, id))
		return
	}
	req.ID = id

	var updated family.Member
	if _, ok := s.mutate(w, r, func(roster *family.Roster) error {
		var err error
		updated, err = roster.Update(req.member())
		return err
	}); !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "memberID")
	if _, ok := s.mutate(w, r, func(roster *family.Roster) error {
		_, err := roster.Remove(id)
		return err
	}); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type linkRequest struct {
	Member   string `json:"member" validate:"required"`
	Other    string `json:"other" validate:"required"`
	Relation string `json:"relation" validate:"required"`
}

// handleLink records that other is member's relation. The response is the
// member with its updated edges.
func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	s.changeLink(w, r, (*family.Roster).Link)
}

func (s *Server) handleUnlink(w http.ResponseWriter, r *http.Request) {
	s.changeLink(w, r, (*family.Roster).Unlink)
}

func (s *Server) changeLink(w http.ResponseWriter, r *http.Request, op func(*family.Roster, string, string, family.Relation) error) {
	var req linkRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rel, err := family.ParseRelation(req.Relation)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	roster, ok := s.mutate(w, r, func(roster *family.Roster) error {
		return op(roster, req.Member, req.Other, rel)
	})
	if !ok {
		return
	}
	m, err := roster.Get(req.Member)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

type biographyResponse struct {
	Member    string `json:"member"`
	Biography string `json:"biography"`
	Saved     bool   `json:"saved"`
}

// handleBiography drafts a biography for a member. With ?save=true the
// draft replaces the stored biography.
func (s *Server) handleBiography(w http.ResponseWriter, r *http.Request) {
	save := false
	if v := r.URL.Query().Get("save"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid save flag %q", v))
			return
		}
		save = b
	}

	_, roster, ok := s.loadTree(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "memberID")
	m, err := roster.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	text, err := s.bio.Generate(r.Context(), *m, roster.Members)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if save {
		if _, ok := s.mutate(w, r, func(roster *family.Roster) error {
			cur, err := roster.Get(id)
			if err != nil {
				return err
			}
			next := cur.Clone()
			next.Biography = text
			_, err = roster.Update(next)
			return err
		}); !ok {
			return
		}
	}
	s.writeJSON(w, http.StatusOK, biographyResponse{Member: id, Biography: text, Saved: save})
}
