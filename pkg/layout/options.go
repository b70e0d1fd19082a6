package layout

import (
	"fmt"
	"strings"
)

// Order selects which end of the generation range is drawn at the top.
type Order string

const (
	// Descending draws the highest (oldest) generation at the top.
	Descending Order = "desc"
	// Ascending draws the lowest (youngest) generation at the top.
	Ascending Order = "asc"
)

// ParseOrder accepts "desc", "descending", "asc" and "ascending".
// The empty string is [Descending].
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "descending":
		return Descending, nil
	case "asc", "ascending":
		return Ascending, nil
	}
	return "", fmt.Errorf("invalid order: %q (must be one of: asc, desc)", s)
}

// Default geometry, in pixels.
const (
	DefaultNodeWidth  = 120.0
	DefaultNodeHeight = 60.0
	DefaultSpacing    = 40.0
	DefaultRowHeight  = 150.0
	DefaultMargin     = 20.0
)

// Options controls a layout run. The zero value is valid; zero geometry
// fields fall back to the defaults.
type Options struct {
	Focus      string  `json:"focus,omitempty"`
	NodeWidth  float64 `json:"node_width,omitempty"`
	NodeHeight float64 `json:"node_height,omitempty"`
	Spacing    float64 `json:"spacing,omitempty"`
	RowHeight  float64 `json:"row_height,omitempty"`
	Margin     float64 `json:"margin,omitempty"`
	Order      Order   `json:"order,omitempty"`
	Siblings   bool    `json:"siblings,omitempty"`
}

// WithDefaults returns a copy with every unset field filled in.
func (o Options) WithDefaults() Options {
	if o.NodeWidth <= 0 {
		o.NodeWidth = DefaultNodeWidth
	}
	if o.NodeHeight <= 0 {
		o.NodeHeight = DefaultNodeHeight
	}
	if o.Spacing < 0 {
		o.Spacing = 0
	} else if o.Spacing == 0 {
		o.Spacing = DefaultSpacing
	}
	if o.RowHeight <= 0 {
		o.RowHeight = DefaultRowHeight
	}
	if o.Margin < 0 {
		o.Margin = 0
	} else if o.Margin == 0 {
		o.Margin = DefaultMargin
	}
	if o.Order != Ascending {
		o.Order = Descending
	}
	return o
}

// Option configures a layout run.
type Option func(*Options)

// WithFocus seeds generation 0 at the member with id.
func WithFocus(id string) Option {
	return func(o *Options) { o.Focus = id }
}

// WithNodeSize sets the box size of every node.
func WithNodeSize(width, height float64) Option {
	return func(o *Options) { o.NodeWidth, o.NodeHeight = width, height }
}

// WithSpacing sets the horizontal gap between nodes in a row.
func WithSpacing(px float64) Option {
	return func(o *Options) { o.Spacing = px }
}

// WithRowHeight sets the vertical distance between generation rows.
func WithRowHeight(px float64) Option {
	return func(o *Options) { o.RowHeight = px }
}

// WithMargin sets the canvas margin on every side.
func WithMargin(px float64) Option {
	return func(o *Options) { o.Margin = px }
}

// WithOrder sets the vertical generation order.
func WithOrder(order Order) Option {
	return func(o *Options) { o.Order = order }
}

// WithSiblingConnections enables sibling connections in the result.
func WithSiblingConnections(enabled bool) Option {
	return func(o *Options) { o.Siblings = enabled }
}
