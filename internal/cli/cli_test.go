package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/graph"
	"github.com/legacylink/legacylink/pkg/kinship"
	"github.com/legacylink/legacylink/pkg/layout"
	"github.com/legacylink/legacylink/pkg/search"
)

func decodeOutput[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	return v
}

func TestMemberLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	members := decodeOutput[[]family.Member](t, env.mustRun(t, "member", "list", "--json"))
	if len(members) != 3 {
		t.Fatalf("members = %d, want 3", len(members))
	}

	mom := decodeOutput[family.Member](t, env.mustRun(t, "member", "show", "ann hale", "--json"))
	if diff := cmp.Diff([]string{"gran"}, mom.Relationships.Parents); diff != "" {
		t.Errorf("mom parents (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"me"}, mom.Relationships.Children); diff != "" {
		t.Errorf("mom children (-want +got):\n%s", diff)
	}

	env.mustRun(t, "member", "edit", "gran", "--died", "2019-03-02", "--social", "site=https://example.com/rose")
	gran := decodeOutput[family.Member](t, env.mustRun(t, "member", "show", "gran", "--json"))
	if gran.DateOfDeath != "2019-03-02" || gran.SocialLinks["site"] != "https://example.com/rose" {
		t.Errorf("edited gran = %+v", gran)
	}
	if gran.DateOfBirth != "1931" {
		t.Errorf("edit cleared untouched field: born %q", gran.DateOfBirth)
	}

	out := env.mustRun(t, "member", "show", "gran")
	if !strings.Contains(out, "Rose Hale") || !strings.Contains(out, "Ann Hale") {
		t.Errorf("show output lacks names:\n%s", out)
	}

	env.mustRun(t, "member", "remove", "mom")
	me := decodeOutput[family.Member](t, env.mustRun(t, "member", "show", "me", "--json"))
	if len(me.Relationships.Parents) != 0 {
		t.Errorf("removing mom left parents %v", me.Relationships.Parents)
	}
}

func TestMemberErrors(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"unknown parent", []string{"member", "add", "X", "--parent", "nobody"}, errors.ErrCodeMemberNotFound},
		{"duplicate id", []string{"member", "add", "X", "--id", "me"}, errors.ErrCodeDuplicateMember},
		{"bad date", []string{"member", "add", "X", "--born", "last year"}, errors.ErrCodeInvalidDate},
		{"bad social", []string{"member", "add", "X", "--social", "nolink"}, errors.ErrCodeInvalidInput},
		{"edit nothing", []string{"member", "edit", "me"}, errors.ErrCodeInvalidInput},
		{"show missing", []string{"member", "show", "zed"}, errors.ErrCodeMemberNotFound},
		{"cycle", []string{"link", "gran", "parent", "me"}, errors.ErrCodeCycle},
		{"bad relation", []string{"link", "gran", "cousin", "me"}, errors.ErrCodeInvalidRelation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(t, tt.args...)
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("code = %q, want %q (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestLinkAndUnlink(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	env.mustRun(t, "member", "add", "Lee Hale", "--id", "dad", "--gender", "male")

	env.mustRun(t, "link", "mom", "spouse", "dad")
	dad := decodeOutput[family.Member](t, env.mustRun(t, "member", "show", "dad", "--json"))
	if diff := cmp.Diff([]string{"mom"}, dad.Relationships.Spouses); diff != "" {
		t.Errorf("dad spouses (-want +got):\n%s", diff)
	}

	env.mustRun(t, "unlink", "dad", "spouse", "mom")
	mom := decodeOutput[family.Member](t, env.mustRun(t, "member", "show", "mom", "--json"))
	if len(mom.Relationships.Spouses) != 0 {
		t.Errorf("unlink left spouses %v", mom.Relationships.Spouses)
	}
}

func TestRelationCommands(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	out := env.mustRun(t, "relation", "Rose Hale", "Tom Hale")
	if !strings.Contains(out, "Grandmother") {
		t.Errorf("relation output = %q", out)
	}

	pairs := decodeOutput[[]kinship.Pair](t, env.mustRun(t, "relations", "me", "--json"))
	got := map[string]string{}
	for _, p := range pairs {
		got[p.Member.ID] = p.Relationship.Label
	}
	want := map[string]string{"mom": "Mother", "gran": "Grandmother"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("relations (-want +got):\n%s", diff)
	}
}

func TestLayoutCommand(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	res := decodeOutput[layout.Result](t, env.mustRun(t, "layout", "--focus", "me", "--json"))
	if diff := cmp.Diff([]int{2, 1, 0}, res.Generations); diff != "" {
		t.Errorf("generations (-want +got):\n%s", diff)
	}
	if res.Seed != "me" || len(res.Nodes) != 3 {
		t.Errorf("seed %q, nodes %d", res.Seed, len(res.Nodes))
	}

	res = decodeOutput[layout.Result](t, env.mustRun(t, "layout", "--focus", "me", "--order", "asc", "--json"))
	if diff := cmp.Diff([]int{0, 1, 2}, res.Generations); diff != "" {
		t.Errorf("asc generations (-want +got):\n%s", diff)
	}

	out := env.mustRun(t, "layout")
	if !strings.Contains(out, "Rose Hale") || !strings.Contains(out, "3 generations") {
		t.Errorf("layout table:\n%s", out)
	}

	if _, err := env.run(t, "layout", "--order", "sideways"); err == nil {
		t.Error("invalid order accepted")
	}
}

func TestSearchCommand(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"text", []string{"search", "rose"}, []string{"gran"}},
		{"gender", []string{"search", "--gender", "female"}, []string{"gran", "mom"}},
		{"born before", []string{"search", "--born-before", "1960"}, []string{"gran", "mom"}},
		{"generation", []string{"search", "--focus", "gran", "--generation", "-2"}, []string{"me"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := decodeOutput[[]search.Match](t, env.mustRun(t, append(tt.args, "--json")...))
			var got []string
			for _, m := range matches {
				got = append(got, m.Member.ID)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("matches (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := env.run(t, "search", "--living", "--deceased"); err == nil {
		t.Error("--living with --deceased accepted")
	}
}

func TestStatsCommand(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	st := decodeOutput[family.Stats](t, env.mustRun(t, "stats", "--json"))
	want := family.Stats{Members: 3, Living: 3, ParentLinks: 2, Components: 1}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
}

func TestRenderAndExport(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	base := filepath.Join(env.dir, "out", "hale")

	out := env.mustRun(t, "render", "-f", "svg,dot", "-o", base, "--focus", "me")
	for _, ext := range []string{".svg", ".dot"} {
		data, err := os.ReadFile(base + ext)
		if err != nil {
			t.Fatalf("missing %s: %v", ext, err)
		}
		if !strings.Contains(string(data), "Tom Hale") {
			t.Errorf("%s lacks member name", ext)
		}
	}
	if !strings.Contains(out, "3 members") {
		t.Errorf("render summary:\n%s", out)
	}

	md := env.mustRun(t, "export", "-f", "markdown", "-o", "-", "--title", "The Hales")
	if !strings.Contains(md, "The Hales") || !strings.Contains(md, "Rose Hale") {
		t.Errorf("markdown export:\n%s", md)
	}

	if _, err := env.run(t, "render", "-f", "html"); errors.GetCode(err) != errors.ErrCodeInvalidFormat {
		t.Errorf("render accepted html: %v", err)
	}
	if _, err := env.run(t, "export", "-f", "html,markdown", "-o", "-"); err == nil {
		t.Error("two formats to stdout accepted")
	}
}

func TestOutputPaths(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		formats []string
		want    map[string]string
	}{
		{"single explicit", "tree.svg", []string{"svg"}, map[string]string{"svg": "tree.svg"}},
		{"single default", "", []string{"dot"}, map[string]string{"dot": "hale.dot"}},
		{"several", "out/fam.svg", []string{"svg", "json"}, map[string]string{"svg": "out/fam.svg", "json": "out/fam.json"}},
		{"two svgs", "", []string{"svg", "gvsvg"}, map[string]string{"svg": "hale.svg", "gvsvg": "hale.gv.svg"}},
		{"markdown", "book", []string{"html", "markdown"}, map[string]string{"html": "book.html", "markdown": "book.md"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := outputPaths(tt.output, "hale", tt.formats)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("outputPaths (-want +got):\n%s", diff)
			}
		})
	}
}

func TestImportBackupValidate(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	backup := filepath.Join(env.dir, "hale.yaml")
	env.mustRun(t, "backup", backup)
	doc, err := graph.ReadRosterFile(backup)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Tree != "default" || len(doc.Members) != 3 {
		t.Fatalf("backup doc: tree %q, %d members", doc.Tree, len(doc.Members))
	}

	// A one-sided parent link imports as-is and fails validation.
	broken := graph.Document{Members: []family.Member{
		{ID: "a", Name: "Ada", Relationships: family.Relationships{Parents: []string{"b"}}},
		{ID: "b", Name: "Bo"},
	}}
	file := filepath.Join(env.dir, "broken.json")
	if err := graph.WriteRosterFile(file, broken); err != nil {
		t.Fatal(err)
	}
	out := env.mustRun(t, "--tree", "other", "import", file, "--mode", "replace")
	if !strings.Contains(out, "validate --fix") {
		t.Errorf("import did not report problems:\n%s", out)
	}
	if _, err := env.run(t, "--tree", "other", "validate"); errors.GetCode(err) != errors.ErrCodeInvalidTree {
		t.Errorf("validate err = %v", err)
	}
	out = env.mustRun(t, "--tree", "other", "validate", "--fix")
	if !strings.Contains(out, "Added 1 reverse links") {
		t.Errorf("fix output:\n%s", out)
	}
	env.mustRun(t, "--tree", "other", "validate")

	// Merging the backup into the default tree changes nothing.
	env.mustRun(t, "import", backup)
	members := decodeOutput[[]family.Member](t, env.mustRun(t, "member", "list", "--json"))
	if len(members) != 3 {
		t.Errorf("merge of identical backup gave %d members", len(members))
	}
}

func TestImportStdin(t *testing.T) {
	env := newTestEnv(t)
	prev := stdin
	t.Cleanup(func() { stdin = prev })
	stdin = strings.NewReader(`{"version":1,"members":[{"id":"solo","name":"Solo","gender":"other","relationships":{}}]}`)

	env.mustRun(t, "import", "-", "--format", "json")
	m := decodeOutput[family.Member](t, env.mustRun(t, "member", "show", "solo", "--json"))
	if m.Name != "Solo" {
		t.Errorf("imported member = %+v", m)
	}
}

func TestLoginWhoamiLogout(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.run(t, "whoami"); errors.GetCode(err) != errors.ErrCodeUnauthorized {
		t.Errorf("whoami before login: %v", err)
	}
	env.mustRun(t, "login", "--email", "Rose@Example.com", "--name", "Rose")
	out := env.mustRun(t, "whoami", "--token")
	if !strings.Contains(out, "rose@example.com") || !strings.Contains(out, "Token") {
		t.Errorf("whoami output:\n%s", out)
	}
	if out := env.mustRun(t, "login", "--email", "x@example.com"); !strings.Contains(out, "Already logged in") {
		t.Errorf("second login:\n%s", out)
	}
	env.mustRun(t, "logout")
	if _, err := env.run(t, "whoami"); err == nil {
		t.Error("whoami after logout succeeded")
	}
	if _, err := env.run(t, "login", "--provider", "myspace", "--email", "a@b.co"); err == nil {
		t.Error("unknown provider accepted")
	}
}

func TestLoginSwitch(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun(t, "login", "--email", "rose@example.com")
	env.mustRun(t, "login", "--switch", "--email", "tom@example.com")
	out := env.mustRun(t, "whoami")
	if !strings.Contains(out, "tom@example.com") || !strings.Contains(out, "also signed in: rose@example.com") {
		t.Errorf("whoami after switch:\n%s", out)
	}

	// Same user again replaces the session instead of adding one.
	env.mustRun(t, "login", "--switch", "--email", "tom@example.com")
	out = env.mustRun(t, "whoami")
	if strings.Count(out, "tom@example.com") != 1 {
		t.Errorf("tom should hold one session:\n%s", out)
	}

	env.mustRun(t, "logout")
	if _, err := env.run(t, "whoami"); errors.GetCode(err) != errors.ErrCodeUnauthorized {
		t.Errorf("whoami after logout: %v", err)
	}
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "config", "show")
	if strings.Contains(out, "test-secret") || !strings.Contains(out, mask) {
		t.Errorf("config show should mask the secret:\n%s", out)
	}
	if out := env.mustRun(t, "config", "show", "--reveal"); !strings.Contains(out, "test-secret") {
		t.Errorf("--reveal hid the secret:\n%s", out)
	}

	path := filepath.Join(env.dir, "fresh.toml")
	env.mustRun(t, "--config", path, "config", "init")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config init wrote nothing: %v", err)
	}
	if _, err := env.run(t, "--config", path, "config", "init"); errors.GetCode(err) != errors.ErrCodeConflict {
		t.Errorf("init over existing file: %v", err)
	}
	env.mustRun(t, "--config", path, "config", "init", "--force")
	if got := strings.TrimSpace(env.mustRun(t, "--config", path, "config", "path")); got != path {
		t.Errorf("config path = %q, want %q", got, path)
	}
}

func TestCacheCommands(t *testing.T) {
	env := newTestEnv(t)
	cacheDir := filepath.Join(env.dir, "render-cache")
	cfg := filepath.Join(env.dir, "cached.toml")
	content := "[store]\nbackend = \"file\"\npath = \"" + filepath.ToSlash(filepath.Join(env.dir, "trees")) +
		"\"\n\n[cache]\nbackend = \"file\"\ndir = \"" + filepath.ToSlash(cacheDir) + "\"\n"
	if err := os.WriteFile(cfg, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	env.seed(t)
	if got := strings.TrimSpace(env.mustRun(t, "--config", cfg, "cache", "path")); got != cacheDir {
		t.Errorf("cache path = %q, want %q", got, cacheDir)
	}
	env.mustRun(t, "--config", cfg, "layout")
	out := env.mustRun(t, "--config", cfg, "layout")
	if !strings.Contains(out, iconCached) {
		t.Errorf("second layout not cached:\n%s", out)
	}
	if out := env.mustRun(t, "--config", cfg, "cache", "clear"); !strings.Contains(out, "Cleared") {
		t.Errorf("cache clear:\n%s", out)
	}
	if out := env.mustRun(t, "--config", cfg, "cache", "clear"); !strings.Contains(out, "empty") {
		t.Errorf("second clear:\n%s", out)
	}
}

func TestCompletionCommand(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "completion", "bash")
	if !strings.Contains(out, "legacylink") {
		t.Errorf("bash completion does not mention legacylink")
	}
}
