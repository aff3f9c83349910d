package gldf

type readConfig struct {
	limits     Limits
	strictRefs bool
}

type ReadOption func(*readConfig)

func WithReadLimits(l Limits) ReadOption {
	return func(c *readConfig) { c.limits = l }
}

// WithStrictReferences promotes dangling file references (variant pictures,
// model geometry files) to parse errors. The default is tolerant parsing:
// dangling references surface only when resolved.
func WithStrictReferences(v bool) ReadOption {
	return func(c *readConfig) { c.strictRefs = v }
}

type writeConfig struct {
	limits       Limits
	storedAssets bool
	meta         *MetaInformation
}

type WriteOption func(*writeConfig)

func WithWriteLimits(l Limits) WriteOption {
	return func(c *writeConfig) { c.limits = l }
}

// WithStoredAssets writes embedded assets uncompressed. Photometry text
// still deflates well, but images and L3D models are already compressed and
// only waste CPU in the deflater.
func WithStoredAssets(v bool) WriteOption {
	return func(c *writeConfig) { c.storedAssets = v }
}

// WithMetaInformation includes a meta-information.xml entry in the written
// container.
func WithMetaInformation(mi *MetaInformation) WriteOption {
	return func(c *writeConfig) { c.meta = mi }
}

type engineConfig struct {
	limits       Limits
	strictRefs   bool
	historyLimit int
	snapshotComp Compression
}

type EngineOption func(*engineConfig)

func WithEngineLimits(l Limits) EngineOption {
	return func(c *engineConfig) { c.limits = l }
}

// WithEngineStrictReferences applies WithStrictReferences to documents the
// engine loads.
func WithEngineStrictReferences(v bool) EngineOption {
	return func(c *engineConfig) { c.strictRefs = v }
}

// WithHistoryLimit caps the number of undo snapshots kept. Zero or negative
// restores the default of 50.
func WithHistoryLimit(n int) EngineOption {
	return func(c *engineConfig) {
		if n <= 0 {
			n = defaultHistoryLimit
		}
		c.historyLimit = n
	}
}

// WithSnapshotCompression selects the codec for undo history snapshots.
func WithSnapshotCompression(comp Compression) EngineOption {
	return func(c *engineConfig) { c.snapshotComp = comp }
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		limits:       defaultLimits(),
		historyLimit: defaultHistoryLimit,
		snapshotComp: CompZSTD,
	}
}
