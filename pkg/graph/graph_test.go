package graph

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zstd"

	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/layout"
)

func sampleRoster() *family.Roster {
	return family.NewRoster(
		family.Member{
			ID: "alice", Name: "Alice", Gender: family.GenderFemale, DateOfBirth: "1950-03-01",
			Relationships: family.Relationships{Parents: []string{}, Children: []string{"bob"}, Siblings: []string{}, Spouses: []string{}},
			SocialLinks:   map[string]string{"web": "https://example.com/alice"},
		},
		family.Member{
			ID: "bob", Name: "Bob", Gender: family.GenderMale,
			Relationships: family.Relationships{Parents: []string{"alice"}, Children: []string{}, Siblings: []string{}, Spouses: []string{}},
		},
	)
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"tree.json":  FormatJSON,
		"tree.YAML":  FormatYAML,
		"tree.yml":   FormatYAML,
		"backup.llz": FormatZstd,
		"backup.zst": FormatZstd,
	}
	for path, want := range tests {
		got, err := FormatFromPath(path)
		if err != nil || got != want {
			t.Errorf("FormatFromPath(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
	for _, path := range []string{"no-extension", "dir.v2/tree.md"} {
		if _, err := FormatFromPath(path); !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("FormatFromPath(%q) error = %v, want INVALID_FORMAT", path, err)
		}
	}
}

func TestRosterRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML, FormatZstd} {
		t.Run(string(format), func(t *testing.T) {
			want := NewDocument("smith", sampleRoster())

			var buf bytes.Buffer
			if err := WriteRoster(&buf, format, want); err != nil {
				t.Fatalf("WriteRoster: %v", err)
			}
			got, err := ReadRoster(&buf, format)
			if err != nil {
				t.Fatalf("ReadRoster: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMarshalRoster(t *testing.T) {
	data, err := MarshalRoster("smith", sampleRoster())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"version": 1`, `"tree": "smith"`, `"id": "alice"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("output missing %s:\n%s", want, data)
		}
	}

	doc, err := UnmarshalRoster(data)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Roster().Len() != 2 {
		t.Errorf("roster has %d members, want 2", doc.Roster().Len())
	}
}

func TestMarshalRosterNil(t *testing.T) {
	data, err := MarshalRoster("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"members": []`) {
		t.Errorf("nil roster should encode an empty member list:\n%s", data)
	}
}

func TestReadRosterErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
		code   errors.Code
	}{
		{"malformed json", `{"members": [`, FormatJSON, errors.ErrCodeInvalidFormat},
		{"malformed yaml", "members: [unterminated", FormatYAML, errors.ErrCodeInvalidFormat},
		{"not zstd", "plain text", FormatZstd, errors.ErrCodeInvalidFormat},
		{"future version", `{"version": 99, "members": []}`, FormatJSON, errors.ErrCodeUnsupported},
		{"unknown format", `{}`, Format("xml"), errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRoster(strings.NewReader(tt.input), tt.format)
			if !errors.Is(err, tt.code) {
				t.Errorf("ReadRoster() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestReadRosterZstdSizeLimit(t *testing.T) {
	old := MaxDecodedSize
	MaxDecodedSize = 64 << 10
	t.Cleanup(func() { MaxDecodedSize = old })

	compress := func(t *testing.T, doc string, opts ...zstd.EOption) []byte {
		t.Helper()
		var buf bytes.Buffer
		zw, err := zstd.NewWriter(&buf, opts...)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := zw.Write([]byte(doc)); err != nil {
			t.Fatal(err)
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}
	bomb := `{"version":1,"members":[{"id":"a","name":"` + strings.Repeat("a", 4<<20) + `"}]}`

	tests := []struct {
		name string
		opts []zstd.EOption
	}{
		{"default window", nil},
		{"small window", []zstd.EOption{zstd.WithWindowSize(zstd.MinWindowSize)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := compress(t, bomb, tt.opts...)
			if len(data) > 64<<10 {
				t.Fatalf("compressed payload is %d bytes, want a high ratio", len(data))
			}
			doc, err := ReadRoster(bytes.NewReader(data), FormatZstd)
			if !errors.Is(err, errors.ErrCodeInvalidFormat) {
				t.Fatalf("ReadRoster() = %d members, error %v; want %s", len(doc.Members), err, errors.ErrCodeInvalidFormat)
			}
		})
	}

	t.Run("under the limit", func(t *testing.T) {
		data := compress(t, `{"version":1,"members":[{"id":"a","name":"Alice"}]}`)
		doc, err := ReadRoster(bytes.NewReader(data), FormatZstd)
		if err != nil {
			t.Fatal(err)
		}
		if len(doc.Members) != 1 || doc.Members[0].Name != "Alice" {
			t.Errorf("members = %+v", doc.Members)
		}
	})
}

func TestReadRosterDefaults(t *testing.T) {
	doc, err := ReadRoster(strings.NewReader(`{}`), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Version != Version {
		t.Errorf("Version = %d, want %d", doc.Version, Version)
	}
	if doc.Members == nil {
		t.Error("Members should be an empty slice")
	}

	doc, err = ReadRoster(strings.NewReader(""), FormatYAML)
	if err != nil {
		t.Fatalf("empty yaml: %v", err)
	}
	if len(doc.Members) != 0 {
		t.Errorf("empty yaml gave %d members", len(doc.Members))
	}
}

func TestRosterFiles(t *testing.T) {
	dir := t.TempDir()
	want := NewDocument("smith", sampleRoster())

	for _, name := range []string{"tree.json", "tree.yaml", "tree.llz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := WriteRosterFile(path, want); err != nil {
				t.Fatalf("WriteRosterFile: %v", err)
			}
			got, err := ReadRosterFile(path)
			if err != nil {
				t.Fatalf("ReadRosterFile: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("compressed is smaller", func(t *testing.T) {
		plain, _ := os.Stat(filepath.Join(dir, "tree.json"))
		packed, _ := os.Stat(filepath.Join(dir, "tree.llz"))
		if plain == nil || packed == nil {
			t.Skip("files not written")
		}
		if packed.Size() >= plain.Size() {
			t.Errorf("llz (%d bytes) not smaller than json (%d bytes)", packed.Size(), plain.Size())
		}
	})

	t.Run("missing", func(t *testing.T) {
		_, err := ReadRosterFile(filepath.Join(dir, "nope.json"))
		if !errors.IsNotFound(err) {
			t.Errorf("error = %v, want not found", err)
		}
	})
}

func TestLayoutRoundTrip(t *testing.T) {
	res := layout.Compute(sampleRoster().Members, layout.WithSiblingConnections(true))

	data, err := MarshalLayout(res)
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalLayout(data)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(res, got); diff != "" {
		t.Errorf("layout mismatch (-want +got):\n%s", diff)
	}

	path := filepath.Join(t.TempDir(), "layout.json")
	if err := WriteLayoutFile(res, path); err != nil {
		t.Fatal(err)
	}
	fromFile, err := ReadLayoutFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(fromFile.Nodes) != 2 {
		t.Errorf("got %d nodes from file", len(fromFile.Nodes))
	}
}

func TestUnmarshalLayoutValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty object", `{}`, false},
		{"valid", `{"nodes":[{"id":"a"},{"id":"b"}],"connections":[{"from":"a","to":"b","type":"parent"}]}`, false},
		{"dangling connection", `{"nodes":[{"id":"a"}],"connections":[{"from":"a","to":"b","type":"parent"}]}`, true},
		{"node without id", `{"nodes":[{"name":"x"}]}`, true},
		{"not json", `nodes: []`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := UnmarshalLayout([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalLayout() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (res.Nodes == nil || res.Connections == nil) {
				t.Error("decoded layout should have non-nil slices")
			}
		})
	}
}
