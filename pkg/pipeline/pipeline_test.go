package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/graph"
	"github.com/legacylink/legacylink/pkg/observability"
	"github.com/legacylink/legacylink/pkg/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// Helpers
// =============================================================================

// mapCache is an in-memory cache that counts hits.
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	hits int
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if ok {
		c.hits++
	}
	return v, ok, nil
}

func (c *mapCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	c.ttls[key] = ttl
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *mapCache) Close() error { return nil }

func family3(t *testing.T) *family.Roster {
	t.Helper()
	r := family.NewRoster()
	for _, m := range []family.Member{
		{ID: "gran", Name: "Edith", Gender: family.GenderFemale, DateOfBirth: "1931", DateOfDeath: "2010"},
		{ID: "mom", Name: "Mary", Gender: family.GenderFemale, DateOfBirth: "1960"},
		{ID: "me", Name: "Ann", Gender: family.GenderFemale, DateOfBirth: "1990"},
	} {
		if _, err := r.Add(m); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Link("mom", "gran", family.RelationParent); err != nil {
		t.Fatal(err)
	}
	if err := r.Link("me", "mom", family.RelationParent); err != nil {
		t.Fatal(err)
	}
	return r
}

func newTestRunner(t *testing.T) (*Runner, *mapCache) {
	t.Helper()
	c := newMapCache()
	r := NewRunner(store.NewMemory(), c, nil, nil)
	if err := r.Save(context.Background(), "smith", family3(t)); err != nil {
		t.Fatal(err)
	}
	return r, c
}

// =============================================================================
// Validation
// =============================================================================

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"dot", false},
		{"gvsvg", false},
		{"json", false},
		{"html", false},
		{"markdown", false},
		{"pdf", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %s", tt.format, errors.GetCode(err))
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "dot"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}
	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestFormatTables(t *testing.T) {
	for f := range ValidFormats {
		if ContentTypes[f] == "" || Extensions[f] == "" {
			t.Errorf("format %q lacks a content type or extension", f)
		}
	}
	if got := FormatNames(); got[0] != "dot" || len(got) != len(ValidFormats) {
		t.Errorf("FormatNames() = %v", got)
	}
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	opts := Options{Focus: "me"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Tree != DefaultTree || opts.Order != DefaultOrder {
		t.Errorf("tree %q order %q", opts.Tree, opts.Order)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatSVG {
		t.Errorf("Formats should be [svg], got %v", opts.Formats)
	}
	if opts.Highlight != "me" {
		t.Errorf("Highlight should default to focus, got %q", opts.Highlight)
	}
	if opts.Logger == nil {
		t.Error("Logger should default to a discard logger")
	}

	before := opts
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Tree != before.Tree || opts.Order != before.Order || opts.Highlight != before.Highlight {
		t.Error("second call changed options")
	}
}

func TestOptionsValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"bad tree", Options{Tree: "../x"}, errors.ErrCodeInvalidTree},
		{"bad order", Options{Order: "sideways"}, errors.ErrCodeInvalidInput},
		{"negative size", Options{NodeWidth: -1}, errors.ErrCodeInvalidInput},
		{"bad format", Options{Formats: []string{"pdf"}}, errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestLayoutKeyOptsAppliesDefaults(t *testing.T) {
	a := Options{Order: "desc"}
	b := Options{Order: "descending", NodeWidth: 120, RowHeight: 150}
	if a.LayoutKeyOpts() != b.LayoutKeyOpts() {
		t.Errorf("equivalent options give different keys: %+v vs %+v", a.LayoutKeyOpts(), b.LayoutKeyOpts())
	}
	c := Options{Order: "asc"}
	if a.LayoutKeyOpts() == c.LayoutKeyOpts() {
		t.Error("order should be part of the layout key")
	}
}

// =============================================================================
// Runner
// =============================================================================

func TestExecute(t *testing.T) {
	ctx := context.Background()
	r, c := newTestRunner(t)

	opts := Options{Tree: "smith", Focus: "me", Formats: []string{FormatSVG, FormatDOT, FormatJSON, FormatHTML, FormatMarkdown}}
	res, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Members != 3 || res.Stats.Generations != 3 || res.Stats.Connections != 2 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if res.CacheInfo.LayoutHit || res.CacheInfo.RenderHit {
		t.Errorf("first run should miss the cache: %+v", res.CacheInfo)
	}
	if res.Layout.Seed != "me" {
		t.Errorf("layout seed = %q, want me", res.Layout.Seed)
	}
	for format, want := range map[string]string{
		FormatSVG:      "<svg",
		FormatDOT:      "digraph family",
		FormatJSON:     `"nodes"`,
		FormatHTML:     "<h1>Family Tree</h1>",
		FormatMarkdown: "# Family Tree",
	} {
		if !strings.Contains(string(res.Artifacts[format]), want) {
			t.Errorf("%s artifact missing %q", format, want)
		}
	}

	again, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !again.CacheInfo.LayoutHit || !again.CacheInfo.RenderHit {
		t.Errorf("second run should hit the cache: %+v", again.CacheInfo)
	}
	if c.hits != 6 {
		t.Errorf("cache hits = %d, want 6 (layout + 5 artifacts)", c.hits)
	}

	opts.Refresh = true
	fresh, _ := r.Execute(ctx, opts)
	if fresh.CacheInfo.LayoutHit || fresh.CacheInfo.RenderHit {
		t.Error("refresh should bypass cache reads")
	}
}

func TestExecuteEditChangesKeys(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRunner(t)
	opts := Options{Tree: "smith", Formats: []string{FormatMarkdown}}
	if _, err := r.Execute(ctx, opts); err != nil {
		t.Fatal(err)
	}

	// A biography edit leaves the layout unchanged but not the document.
	_, err := r.Mutate(ctx, "smith", func(roster *family.Roster) error {
		m, _ := roster.Get("gran")
		m.Biography = "Ran the village bakery."
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	res, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheInfo.RenderHit {
		t.Error("edited roster should not reuse cached artifacts")
	}
	if !strings.Contains(string(res.Artifacts[FormatMarkdown]), "village bakery") {
		t.Error("markdown should include the new biography")
	}
}

func TestExecuteEmptyTree(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil)
	res, err := r.Execute(context.Background(), Options{Tree: "new"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Members != 0 || len(res.Artifacts[FormatSVG]) == 0 {
		t.Errorf("empty tree: stats %+v, svg %d bytes", res.Stats, len(res.Artifacts[FormatSVG]))
	}
}

func TestMutate(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRunner(t)

	_, err := r.Mutate(ctx, "smith", func(roster *family.Roster) error {
		if _, err := roster.Remove("gran"); err != nil {
			return err
		}
		return errors.New(errors.ErrCodeConflict, "abort")
	})
	if !errors.Is(err, errors.ErrCodeConflict) {
		t.Fatalf("err = %v", err)
	}
	stored, _ := r.Load(ctx, "smith")
	if !stored.Has("gran") {
		t.Error("failed mutation should not be saved")
	}

	updated, err := r.Mutate(ctx, "smith", func(roster *family.Roster) error {
		_, err := roster.Add(family.Member{ID: "dad", Name: "John", Relationships: family.Relationships{Children: []string{"me"}}})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	stored, _ = r.Load(ctx, "smith")
	if stored.Len() != 4 || updated.Len() != 4 {
		t.Errorf("stored %d members, returned %d", stored.Len(), updated.Len())
	}
}

func TestMutateConcurrent(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(nil, nil, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Mutate(ctx, "busy", func(roster *family.Roster) error {
				_, err := roster.Add(family.Member{Name: "someone"})
				return err
			})
		}()
	}
	wg.Wait()

	roster, _ := r.Load(ctx, "busy")
	if roster.Len() != 20 {
		t.Errorf("members = %d, want 20", roster.Len())
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRunner(t)

	doc := []byte(`{"version":1,"members":[
		{"id":"me","name":"Annie","relationships":{"parents":["dad"]}},
		{"id":"dad","name":"John","gender":"M"}
	]}`)
	incoming, err := Parse(doc, graph.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if d, _ := incoming.Get("dad"); d.Gender != family.GenderMale {
		t.Errorf("parsed gender = %q, want normalized male", d.Gender)
	}

	merged, issues, err := r.Import(ctx, "smith", incoming, ImportMerge)
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 0 {
		t.Errorf("issues = %v", issues)
	}
	me, _ := merged.Get("me")
	if me.Name != "Annie" || len(me.Relationships.Parents) != 2 {
		t.Errorf("merged me = %+v", me)
	}

	replaced, _, err := r.Import(ctx, "smith", incoming, ImportReplace)
	if err != nil {
		t.Fatal(err)
	}
	if replaced.Len() != 2 || replaced.Has("gran") {
		t.Errorf("replace kept %d members", replaced.Len())
	}
}

func TestImportRejectsInvalidMembers(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		incoming *family.Roster
		mode     ImportMode
	}{
		{"merge empty name", family.NewRoster(family.Member{ID: "x"}), ImportMerge},
		{"merge bad date", family.NewRoster(family.Member{ID: "x", Name: "X", DateOfBirth: "1990-13-40"}), ImportMerge},
		{"replace bad link", family.NewRoster(family.Member{ID: "x", Name: "X", SocialLinks: map[string]string{"web": "javascript:alert(1)"}}), ImportReplace},
		{"replace long name", family.NewRoster(family.Member{ID: "x", Name: strings.Repeat("n", 500)}), ImportReplace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRunner(t)
			before, err := r.Load(ctx, "smith")
			if err != nil {
				t.Fatal(err)
			}

			_, _, err = r.Import(ctx, "smith", tt.incoming, tt.mode)
			if !errors.Is(err, errors.ErrCodeInvalidMember) {
				t.Fatalf("Import() error = %v, want %s", err, errors.ErrCodeInvalidMember)
			}
			after, _ := r.Load(ctx, "smith")
			if after.Len() != before.Len() || after.Has("x") {
				t.Errorf("stored tree changed: %d -> %d members", before.Len(), after.Len())
			}
		})
	}
}

func TestParseRejectsInvalidMembers(t *testing.T) {
	doc := []byte(`{"version":1,"members":[{"id":"a","name":"  "}]}`)
	if _, err := Parse(doc, graph.FormatJSON); !errors.Is(err, errors.ErrCodeInvalidMember) {
		t.Errorf("Parse() error = %v, want %s", err, errors.ErrCodeInvalidMember)
	}
}

func TestParseImportMode(t *testing.T) {
	for in, want := range map[string]ImportMode{"": ImportMerge, "merge": ImportMerge, "Replace": ImportReplace} {
		if got, err := ParseImportMode(in); err != nil || got != want {
			t.Errorf("ParseImportMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseImportMode("append"); err == nil {
		t.Error("unknown mode should fail")
	}
}

func TestRelations(t *testing.T) {
	ctx := context.Background()
	r, c := newTestRunner(t)
	roster, _ := r.Load(ctx, "smith")

	pairs, err := r.Relations(ctx, roster, "me")
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]string{}
	for _, p := range pairs {
		got[p.Member.ID] = p.Relationship.Label
	}
	if got["mom"] != "Mother" || got["gran"] != "Grandmother" {
		t.Errorf("relations = %v", got)
	}

	cached, err := r.Relations(ctx, roster, "me")
	if err != nil || c.hits != 1 || len(cached) != len(pairs) {
		t.Errorf("second call: err %v, hits %d", err, c.hits)
	}
	if cached[0].Relationship != pairs[0].Relationship {
		t.Errorf("cached relationship %+v != %+v", cached[0].Relationship, pairs[0].Relationship)
	}

	if _, err := r.Relations(ctx, roster, "ghost"); !errors.Is(err, errors.ErrCodeMemberNotFound) {
		t.Errorf("unknown person err = %v", err)
	}
}

func TestRunnerTTLCapsEntries(t *testing.T) {
	ctx := context.Background()
	r, c := newTestRunner(t)
	r.TTL = time.Hour
	roster, _ := r.Load(ctx, "smith")

	if _, err := r.Layout(ctx, roster, Options{}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Relations(ctx, roster, "me"); err != nil {
		t.Fatal(err)
	}
	if len(c.ttls) != 2 {
		t.Fatalf("cache entries = %d, want 2", len(c.ttls))
	}
	for key, ttl := range c.ttls {
		if ttl != time.Hour {
			t.Errorf("ttl for %s = %v, want 1h", key, ttl)
		}
	}
}

// =============================================================================
// Observability
// =============================================================================

type renderRecorder struct {
	observability.NoopPipelineHooks
	mu      sync.Mutex
	formats []string
}

func (h *renderRecorder) OnRenderComplete(ctx context.Context, format string, size int, d time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.formats = append(h.formats, format)
}

func TestRenderHooks(t *testing.T) {
	rec := &renderRecorder{}
	observability.SetPipelineHooks(rec)
	defer observability.Reset()

	r, _ := newTestRunner(t)
	if _, err := r.Execute(context.Background(), Options{Tree: "smith", Formats: []string{FormatDOT, FormatJSON}}); err != nil {
		t.Fatal(err)
	}
	if strings.Join(rec.formats, ",") != "dot,json" {
		t.Errorf("render hooks saw %v", rec.formats)
	}
}

func TestRenderFromLayoutData(t *testing.T) {
	roster := family3(t)
	res := GenerateLayout(roster, Options{})
	data, err := graph.MarshalLayout(res)
	if err != nil {
		t.Fatal(err)
	}
	out, err := RenderFromLayoutData(context.Background(), data, roster.Members, Options{Formats: []string{FormatDOT}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out[FormatDOT]), `"gran" -> "mom"`) {
		t.Errorf("dot output:\n%s", out[FormatDOT])
	}
	if _, err := RenderFromLayoutData(context.Background(), []byte("nope"), nil, Options{}); err == nil {
		t.Error("bad layout data should fail")
	}
}
