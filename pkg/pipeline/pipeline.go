// Package pipeline provides the load → layout → render pipeline shared by
// the CLI and the API server.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: read a tree's roster from a [store.RosterStore]
//  2. Layout: assign generations and coordinates to every member
//  3. Render: produce artifacts (SVG, DOT, Graphviz SVG, JSON, HTML, Markdown)
//
// Each stage can be run on its own or through [Runner.Execute]. Layouts and
// artifacts are cached under content hashes, so edits to a tree never need
// explicit invalidation.
//
// # Usage
//
//	runner := pipeline.NewRunner(rosters, cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Tree:    "smith",
//	    Focus:   "alice",
//	    Formats: []string{"svg", "html"},
//	})
//	if err != nil {
//	    return err
//	}
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	roster, err := runner.Load(ctx, "smith")
//	res, err := runner.Layout(ctx, roster, opts)
//	artifacts, err := runner.Render(ctx, roster, res, opts)
package pipeline

import (
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/legacylink/legacylink/pkg/cache"
	"github.com/legacylink/legacylink/pkg/config"
	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/layout"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultTree is the tree used when none is named.
	DefaultTree = "default"

	// DefaultOrder draws the oldest generation at the top.
	DefaultOrder = string(layout.Descending)
)

// Format constants for output formats.
const (
	FormatSVG         = "svg"
	FormatDOT         = "dot"
	FormatGraphvizSVG = "gvsvg"
	FormatJSON        = "json"
	FormatHTML        = "html"
	FormatMarkdown    = "markdown"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:         true,
	FormatDOT:         true,
	FormatGraphvizSVG: true,
	FormatJSON:        true,
	FormatHTML:        true,
	FormatMarkdown:    true,
}

// ContentTypes maps each format to its MIME type.
var ContentTypes = map[string]string{
	FormatSVG:         "image/svg+xml",
	FormatDOT:         "text/vnd.graphviz; charset=utf-8",
	FormatGraphvizSVG: "image/svg+xml",
	FormatJSON:        "application/json",
	FormatHTML:        "text/html; charset=utf-8",
	FormatMarkdown:    "text/markdown; charset=utf-8",
}

// Extensions maps each format to a file extension.
var Extensions = map[string]string{
	FormatSVG:         ".svg",
	FormatDOT:         ".dot",
	FormatGraphvizSVG: ".svg",
	FormatJSON:        ".json",
	FormatHTML:        ".html",
	FormatMarkdown:    ".md",
}

// FormatNames returns the supported formats in a stable order.
func FormatNames() []string {
	names := make([]string, 0, len(ValidFormats))
	for f := range ValidFormats {
		names = append(names, f)
	}
	slices.Sort(names)
	return names
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options
	Tree string `json:"tree,omitempty"`

	// Layout options
	Focus      string  `json:"focus,omitempty"`
	Order      string  `json:"order,omitempty"`
	Siblings   bool    `json:"siblings,omitempty"`
	NodeWidth  float64 `json:"node_width,omitempty"`
	NodeHeight float64 `json:"node_height,omitempty"`
	Spacing    float64 `json:"spacing,omitempty"`
	RowHeight  float64 `json:"row_height,omitempty"`
	Margin     float64 `json:"margin,omitempty"`

	// Render options
	Formats     []string `json:"formats,omitempty"`
	Title       string   `json:"title,omitempty"`
	Highlight   string   `json:"highlight,omitempty"` // defaults to Focus
	Detailed    bool     `json:"detailed,omitempty"`  // generation numbers in DOT labels
	Interactive bool     `json:"interactive,omitempty"`

	// Refresh skips cache reads; results are still written.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Roster is the loaded tree.
	Roster *family.Roster

	// RosterHash is the content hash of the roster.
	RosterHash string

	// Layout is the computed layout.
	Layout layout.Result

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Members     int
	Connections int
	Generations int
	LoadTime    time.Duration
	LayoutTime  time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool
	RenderHit bool // every requested artifact came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)",
			format, strings.Join(FormatNames(), ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateOrder checks a generation order name.
func ValidateOrder(order string) error {
	if _, err := layout.ParseOrder(order); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid order")
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks all fields and applies defaults for the full
// pipeline. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks the tree id, defaulting it.
func (o *Options) ValidateForLoad() error {
	if o.Tree == "" {
		o.Tree = DefaultTree
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return errors.ValidateTreeID(o.Tree)
}

// SetLayoutDefaults sets default values for layout computation.
func (o *Options) SetLayoutDefaults() {
	if o.Order == "" {
		o.Order = DefaultOrder
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForLayout validates and sets defaults for layout computation.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if err := ValidateOrder(o.Order); err != nil {
		return err
	}
	if o.NodeWidth < 0 || o.NodeHeight < 0 || o.RowHeight < 0 || o.Margin < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "layout sizes must not be negative")
	}
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Highlight == "" {
		o.Highlight = o.Focus
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	o.SetRenderDefaults()
	return ValidateFormats(o.Formats)
}

// LayoutOptions converts to layout engine options.
func (o *Options) LayoutOptions() layout.Options {
	order, _ := layout.ParseOrder(o.Order)
	return layout.Options{
		Focus:      o.Focus,
		NodeWidth:  o.NodeWidth,
		NodeHeight: o.NodeHeight,
		Spacing:    o.Spacing,
		RowHeight:  o.RowHeight,
		Margin:     o.Margin,
		Order:      order,
		Siblings:   o.Siblings,
	}
}

// LayoutKeyOpts returns cache key options for layout computation. Geometry
// is keyed after defaults so equivalent requests share an entry.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	lo := o.LayoutOptions().WithDefaults()
	return cache.LayoutKeyOpts{
		Focus:      lo.Focus,
		Order:      string(lo.Order),
		Siblings:   lo.Siblings,
		NodeWidth:  lo.NodeWidth,
		NodeHeight: lo.NodeHeight,
		Spacing:    lo.Spacing,
		RowHeight:  lo.RowHeight,
		Margin:     lo.Margin,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:      format,
		Title:       o.Title,
		Highlight:   o.Highlight,
		Detailed:    o.Detailed,
		Interactive: o.Interactive,
	}
}

// OptionsFromConfig seeds layout options with the configured defaults.
func OptionsFromConfig(c config.LayoutConfig) Options {
	return Options{
		Order:      c.Order,
		Siblings:   c.Siblings,
		NodeWidth:  c.NodeWidth,
		NodeHeight: c.NodeHeight,
		Spacing:    c.Spacing,
		RowHeight:  c.RowHeight,
		Margin:     c.Margin,
	}
}
