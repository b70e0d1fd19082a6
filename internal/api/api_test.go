package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/legacylink/legacylink/pkg/cache"
	"github.com/legacylink/legacylink/pkg/config"
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/layout"
	"github.com/legacylink/legacylink/pkg/observability"
	"github.com/legacylink/legacylink/pkg/pipeline"
	"github.com/legacylink/legacylink/pkg/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testServer struct {
	*Server
	runner *pipeline.Runner
}

func newTestServer(t *testing.T, authDisabled bool) *testServer {
	t.Helper()
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	logger := log.NewWithOptions(io.Discard, log.Options{})
	runner := pipeline.NewRunner(store.NewMemory(), fc, nil, logger)
	t.Cleanup(func() { _ = runner.Close() })

	cfg := config.Default()
	cfg.Auth.Secret = "test-secret"
	cfg.Auth.Disabled = authDisabled

	s, err := New(Options{Runner: runner, Config: cfg, Logger: logger})
	require.NoError(t, err)
	return &testServer{Server: s, runner: runner}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return string(decodeBody[errorBody](t, rec).Error.Code)
}

// seedFamily creates gran -> mom -> me through the API.
func (ts *testServer) seedFamily(t *testing.T, tree, token string) {
	t.Helper()
	base := "/api/v1/trees/" + tree
	for _, m := range []map[string]any{
		{"id": "gran", "name": "Gran", "gender": "female", "date_of_birth": "1930"},
		{"id": "mom", "name": "Mom", "gender": "f", "date_of_birth": "1960-04-02",
			"relationships": map[string]any{"parents": []string{"gran"}}},
		{"id": "me", "name": "Me", "gender": "male", "date_of_birth": "1990"},
	} {
		rec := ts.do(t, http.MethodPost, base+"/members", m, token)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec := ts.do(t, http.MethodPost, base+"/links",
		map[string]string{"member": "me", "other": "mom", "relation": "parent"}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func login(t *testing.T, ts *testServer, email string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": email}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[loginResponse](t, rec)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealthAndVersion(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/version", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version"`)
}

func TestNewRequiresSecret(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.Secret = ""
	_, err := New(Options{Config: cfg, Logger: log.NewWithOptions(io.Discard, log.Options{})})
	assert.Error(t, err)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodGet, "/api/v1/trees/smith/members", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/v1/trees/smith/members", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginFlow(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "nope"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", errorCode(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "ada@example.com", "provider": "myspace"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	token := login(t, ts, "Ada@Example.com")

	rec = ts.do(t, http.MethodGet, "/api/v1/auth/me", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "ada@example.com", me["email"])
	assert.Equal(t, "email", me["provider"])

	rec = ts.do(t, http.MethodPost, "/api/v1/auth/logout", nil, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/auth/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "SESSION_EXPIRED", errorCode(t, rec))
}

func TestLoginDisabled(t *testing.T) {
	ts := newTestServer(t, true)
	rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "a@b.co"}, "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/auth/me", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "local", decodeBody[map[string]string](t, rec)["id"])
}

func TestMembersCRUD(t *testing.T) {
	ts := newTestServer(t, true)
	ts.seedFamily(t, "smith", "")
	base := "/api/v1/trees/smith/members"

	rec := ts.do(t, http.MethodGet, base, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[membersResponse](t, rec)
	assert.Equal(t, 3, list.Count)

	rec = ts.do(t, http.MethodGet, base+"/mom", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	mom := decodeBody[family.Member](t, rec)
	assert.Equal(t, family.GenderFemale, mom.Gender)
	assert.Equal(t, []string{"gran"}, mom.Relationships.Parents)
	assert.Equal(t, []string{"me"}, mom.Relationships.Children)

	rec = ts.do(t, http.MethodPut, base+"/mom", map[string]any{"name": "Mother", "gender": "female"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[family.Member](t, rec)
	assert.Equal(t, "Mother", updated.Name)
	assert.Empty(t, updated.DateOfBirth)
	assert.Equal(t, []string{"gran"}, updated.Relationships.Parents, "edges survive updates")

	rec = ts.do(t, http.MethodPut, base+"/mom", map[string]any{"id": "other", "name": "X"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, base+"/mom", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, base+"/mom", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "MEMBER_NOT_FOUND", errorCode(t, rec))

	rec = ts.do(t, http.MethodGet, base+"/me", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[family.Member](t, rec).Relationships.Parents, "removal cascades")
}

func TestCreateMemberErrors(t *testing.T) {
	ts := newTestServer(t, true)
	base := "/api/v1/trees/smith/members"

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"empty body", "", http.StatusBadRequest, "INVALID_INPUT"},
		{"malformed", "{", http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown field", `{"name":"A","age":3}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"missing name", map[string]any{"id": "a"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad date", map[string]any{"name": "A", "date_of_birth": "1990-13-01"}, http.StatusBadRequest, "INVALID_DATE"},
		{"bad social link", map[string]any{"name": "A", "social_links": map[string]string{"x": "not a url"}}, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown relative", map[string]any{"name": "A", "relationships": map[string]any{"parents": []string{"ghost"}}}, http.StatusNotFound, "MEMBER_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, base, tt.body, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}

	rec := ts.do(t, http.MethodPost, base, map[string]any{"id": "a", "name": "A"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, base+"/a", rec.Header().Get("Location"))

	rec = ts.do(t, http.MethodPost, base, map[string]any{"id": "a", "name": "A"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_MEMBER", errorCode(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/v1/trees/..bad/members", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLinks(t *testing.T) {
	ts := newTestServer(t, true)
	ts.seedFamily(t, "smith", "")
	base := "/api/v1/trees/smith/links"

	rec := ts.do(t, http.MethodPost, base, map[string]string{"member": "gran", "other": "me", "relation": "parent"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CYCLE", errorCode(t, rec))

	rec = ts.do(t, http.MethodPost, base, map[string]string{"member": "me", "other": "me", "relation": "sibling"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, base, map[string]string{"member": "me", "other": "mom", "relation": "cousin"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_RELATION", errorCode(t, rec))

	rec = ts.do(t, http.MethodDelete, base, map[string]string{"member": "me", "other": "mom", "relation": "parent"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decodeBody[family.Member](t, rec).Relationships.Parents)
}

func TestRelationship(t *testing.T) {
	ts := newTestServer(t, true)
	ts.seedFamily(t, "smith", "")
	base := "/api/v1/trees/smith"

	rec := ts.do(t, http.MethodGet, base+"/relationship?person=gran&relative_to=me", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[relationshipResponse](t, rec)
	assert.Equal(t, "Grandmother", resp.Relationship.Label)

	rec = ts.do(t, http.MethodGet, base+"/relationship?person=gran", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, base+"/relationship?person=gran&relative_to=ghost", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, base+"/members/me/relationships", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rels := decodeBody[relationsResponse](t, rec)
	labels := map[string]string{}
	for _, p := range rels.Relationships {
		labels[p.Member.ID] = p.Relationship.Label
	}
	assert.Equal(t, map[string]string{"gran": "Grandmother", "mom": "Mother"}, labels)

	rec = ts.do(t, http.MethodGet, base+"/members/ghost/relationships", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLayout(t *testing.T) {
	ts := newTestServer(t, true)
	ts.seedFamily(t, "smith", "")
	path := "/api/v1/trees/smith/layout?focus=me&siblings=true"

	rec := ts.do(t, http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	res := decodeBody[layout.Result](t, rec)
	assert.Equal(t, "me", res.Seed)
	assert.Equal(t, []int{2, 1, 0}, res.Generations)
	assert.Len(t, res.Nodes, 3)

	rec = ts.do(t, http.MethodGet, path, nil, "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	rec = ts.do(t, http.MethodGet, "/api/v1/trees/smith/layout?order=asc", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{-2, -1, 0}, decodeBody[layout.Result](t, rec).Generations)

	rec = ts.do(t, http.MethodGet, "/api/v1/trees/smith/layout?focus=ghost", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/trees/smith/layout?order=sideways", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/trees/empty/layout", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[layout.Result](t, rec).Nodes)
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t, true)
	ts.seedFamily(t, "smith", "")
	base := "/api/v1/trees/smith/search"

	rec := ts.do(t, http.MethodGet, base+"?q=gra", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[searchResponse](t, rec)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "gran", resp.Matches[0].Member.ID)

	rec = ts.do(t, http.MethodGet, base+"?gender=female&born_after=1950", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody[searchResponse](t, rec)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "mom", resp.Matches[0].Member.ID)

	rec = ts.do(t, http.MethodGet, base+"?living=maybe", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, base+"?limit=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport(t *testing.T) {
	ts := newTestServer(t, true)
	ts.seedFamily(t, "smith", "")
	base := "/api/v1/trees/smith/export/"

	rec := ts.do(t, http.MethodGet, base+"svg?focus=me&title=Smiths", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")
	assert.Contains(t, rec.Body.String(), "Smiths")

	rec = ts.do(t, http.MethodGet, base+"markdown?download=true", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="smith.md"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "Gran")

	rec = ts.do(t, http.MethodGet, base+"dot", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"gran" -> "mom";`)

	rec = ts.do(t, http.MethodGet, base+"dot", nil, "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	rec = ts.do(t, http.MethodGet, base+"pdf", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_FORMAT", errorCode(t, rec))
}

func TestValidateAndFix(t *testing.T) {
	ts := newTestServer(t, true)
	broken := family.NewRoster(
		family.Member{ID: "a", Name: "A", Relationships: family.Relationships{Children: []string{"b"}}},
		family.Member{ID: "b", Name: "B"},
	)
	require.NoError(t, ts.runner.Save(context.Background(), "smith", broken))
	base := "/api/v1/trees/smith/validate"

	rec := ts.do(t, http.MethodGet, base, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeBody[validateResponse](t, rec)
	assert.False(t, v.Valid)
	assert.NotEmpty(t, v.Issues)

	rec = ts.do(t, http.MethodPost, base+"/fix", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	fix := decodeBody[fixResponse](t, rec)
	assert.Equal(t, 1, fix.Symmetrized)
	assert.Empty(t, fix.Issues)

	rec = ts.do(t, http.MethodGet, base, nil, "")
	assert.True(t, decodeBody[validateResponse](t, rec).Valid)
}

func TestStats(t *testing.T) {
	ts := newTestServer(t, true)
	ts.seedFamily(t, "smith", "")

	rec := ts.do(t, http.MethodGet, "/api/v1/trees/smith/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[family.Stats](t, rec)
	assert.Equal(t, 3, stats.Members)
	assert.Equal(t, 2, stats.ParentLinks)
	assert.Equal(t, 1, stats.Components)
}

func TestImportAndTrees(t *testing.T) {
	ts := newTestServer(t, true)
	doc := `{"version":1,"members":[
		{"id":"x","name":"X","gender":"M","relationships":{"children":["y"]}},
		{"id":"y","name":"Y"}]}`

	rec := ts.do(t, http.MethodPost, "/api/v1/trees/imported/import", doc, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[importResponse](t, rec)
	assert.Equal(t, 2, resp.Members)
	assert.Empty(t, resp.Issues)

	rec = ts.do(t, http.MethodGet, "/api/v1/trees/imported/members/y", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"x"}, decodeBody[family.Member](t, rec).Relationships.Parents)

	rec = ts.do(t, http.MethodPost, "/api/v1/trees/imported/import?mode=append", doc, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/v1/trees/imported/import?format=xml", doc, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/trees", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"trees":["imported"]}`, rec.Body.String())

	rec = ts.do(t, http.MethodDelete, "/api/v1/trees/imported", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/v1/trees", nil, "")
	assert.JSONEq(t, `{"trees":[]}`, rec.Body.String())
}

func TestImportRejectsInvalidMembers(t *testing.T) {
	ts := newTestServer(t, true)
	for name, doc := range map[string]string{
		"no name":   `{"version":1,"members":[{"id":"x","name":""}]}`,
		"bad date":  `{"version":1,"members":[{"id":"x","name":"X","date_of_birth":"1990-13-40"}]}`,
		"bad link":  `{"version":1,"members":[{"id":"x","name":"X","social_links":{"web":"javascript:alert(1)"}}]}`,
		"long name": `{"version":1,"members":[{"id":"x","name":"` + strings.Repeat("n", 500) + `"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/v1/trees/imported/import", doc, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), "INVALID_MEMBER")
		})
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/trees", nil, "")
	assert.JSONEq(t, `{"trees":[]}`, rec.Body.String())
}

func TestTreesArePerUser(t *testing.T) {
	ts := newTestServer(t, false)
	ada := login(t, ts, "ada@example.com")
	bob := login(t, ts, "bob@example.com")

	ts.seedFamily(t, "smith", ada)

	rec := ts.do(t, http.MethodGet, "/api/v1/trees/smith/members", nil, bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decodeBody[membersResponse](t, rec).Count)

	rec = ts.do(t, http.MethodGet, "/api/v1/trees", nil, ada)
	assert.JSONEq(t, `{"trees":["smith"]}`, rec.Body.String())
	rec = ts.do(t, http.MethodGet, "/api/v1/trees", nil, bob)
	assert.JSONEq(t, `{"trees":[]}`, rec.Body.String())
}

func TestBiography(t *testing.T) {
	ts := newTestServer(t, true)
	ts.seedFamily(t, "smith", "")

	rec := ts.do(t, http.MethodPost, "/api/v1/trees/smith/members/mom/biography?save=true", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[biographyResponse](t, rec)
	assert.True(t, resp.Saved)
	assert.Contains(t, resp.Biography, "Mom")

	rec = ts.do(t, http.MethodGet, "/api/v1/trees/smith/members/mom", nil, "")
	assert.Equal(t, resp.Biography, decodeBody[family.Member](t, rec).Biography)

	rec = ts.do(t, http.MethodPost, "/api/v1/trees/smith/members/ghost/biography", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t, true)
	ts.Metrics().Install()
	t.Cleanup(observability.Reset)

	ts.seedFamily(t, "smith", "")
	ts.do(t, http.MethodGet, "/api/v1/trees/smith/layout", nil, "")

	rec := ts.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `legacylink_http_requests_total{method="POST",route="/api/v1/trees/{treeID}/members",status="201"} 3`)
	assert.Contains(t, body, `legacylink_pipeline_stage_duration_seconds_count{stage="layout"}`)
	assert.Contains(t, body, `legacylink_cache_operations_total{result="miss",type="layout"} 1`)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, true)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/trees", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServeShutdown(t *testing.T) {
	ts := newTestServer(t, true)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- ts.Serve(ctx, l) }()

	tr := &http.Transport{DisableKeepAlives: true}
	client := &http.Client{Transport: tr, Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + l.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	tr.CloseIdleConnections()

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
