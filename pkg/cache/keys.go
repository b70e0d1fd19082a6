package cache

// Key type names, used as key prefixes and as the keyType label of cache
// hooks.
const (
	KeyTypeLayout    = "layout"
	KeyTypeArtifact  = "artifact"
	KeyTypeRelations = "relations"
)

// LayoutKeyOpts are the layout inputs that change the result.
type LayoutKeyOpts struct {
	Focus      string  `json:"focus,omitempty"`
	Order      string  `json:"order,omitempty"`
	Siblings   bool    `json:"siblings,omitempty"`
	NodeWidth  float64 `json:"node_width,omitempty"`
	NodeHeight float64 `json:"node_height,omitempty"`
	Spacing    float64 `json:"spacing,omitempty"`
	RowHeight  float64 `json:"row_height,omitempty"`
	Margin     float64 `json:"margin,omitempty"`
}

// ArtifactKeyOpts are the render inputs that change the output bytes.
type ArtifactKeyOpts struct {
	Format    string `json:"format"`
	Title     string `json:"title,omitempty"`
	Highlight string `json:"highlight,omitempty"`
	Detailed  bool   `json:"detailed,omitempty"`

	// Interactive embeds hover scripts in SVG output.
	Interactive bool `json:"interactive,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	LayoutKey(rosterHash string, opts LayoutKeyOpts) string
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
	RelationsKey(rosterHash, personID string) string
}

// DefaultKeyer builds unscoped keys of the form "type:sha256".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) LayoutKey(rosterHash string, opts LayoutKeyOpts) string {
	return hashKey(KeyTypeLayout, rosterHash, opts)
}

func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey(KeyTypeArtifact, layoutHash, opts)
}

func (DefaultKeyer) RelationsKey(rosterHash, personID string) string {
	return hashKey(KeyTypeRelations, rosterHash, personID)
}
