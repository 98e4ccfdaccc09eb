package cache

// ScopedKeyer wraps a Keyer with a prefix so that projects sharing one
// backing cache never see each other's entries.
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "project:orders:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means the
// DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ProjectScope returns the prefix used for a project namespace.
func ProjectScope(project string) string { return "project:" + project + ":" }

// ArtifactKey implements Keyer.
func (k *ScopedKeyer) ArtifactKey(documentHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(documentHash, opts)
}

// DocumentKey implements Keyer.
func (k *ScopedKeyer) DocumentKey(project, activityID string, version int64) string {
	return k.prefix + k.inner.DocumentKey(project, activityID, version)
}
