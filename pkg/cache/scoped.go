package cache

// ScopedKeyer wraps a Keyer with a prefix so that trees, or users of a
// shared server, get separate cache namespaces.
//
//	treeKeys := NewScopedKeyer(NewDefaultKeyer(), "tree:smith:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// LayoutKey generates a prefixed key for layout caching.
func (k *ScopedKeyer) LayoutKey(rosterHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(rosterHash, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(layoutHash, opts)
}

// RelationsKey generates a prefixed key for relationship batches.
func (k *ScopedKeyer) RelationsKey(rosterHash, personID string) string {
	return k.prefix + k.inner.RelationsKey(rosterHash, personID)
}
