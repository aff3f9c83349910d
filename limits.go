package gldf

// Limits bounds allocations while decoding containers, documents and history
// snapshots. A zero field means "use the default".
type Limits struct {
	MaxArchiveEntries  int
	MaxEntrySize       uint64 // uncompressed bytes per archive entry
	MaxProductXMLSize  uint64
	MaxJSONSize        uint64
	MaxFiles           int
	MaxLightSources    int
	MaxGeometries      int
	MaxVariants        int
	MaxSnapshotSize    uint64 // JSON bytes after snapshot decompression
	MaxEmbeddedPerFile uint64
}

func defaultLimits() Limits {
	return Limits{
		MaxArchiveEntries:  4_096,
		MaxEntrySize:       512 << 20, // 512 MiB
		MaxProductXMLSize:  64 << 20,  // 64 MiB
		MaxJSONSize:        64 << 20,
		MaxFiles:           10_000,
		MaxLightSources:    10_000,
		MaxGeometries:      10_000,
		MaxVariants:        10_000,
		MaxSnapshotSize:    64 << 20,
		MaxEmbeddedPerFile: 512 << 20,
	}
}

func (l Limits) withDefaults() Limits {
	d := defaultLimits()
	if l.MaxArchiveEntries == 0 {
		l.MaxArchiveEntries = d.MaxArchiveEntries
	}
	if l.MaxEntrySize == 0 {
		l.MaxEntrySize = d.MaxEntrySize
	}
	if l.MaxProductXMLSize == 0 {
		l.MaxProductXMLSize = d.MaxProductXMLSize
	}
	if l.MaxJSONSize == 0 {
		l.MaxJSONSize = d.MaxJSONSize
	}
	if l.MaxFiles == 0 {
		l.MaxFiles = d.MaxFiles
	}
	if l.MaxLightSources == 0 {
		l.MaxLightSources = d.MaxLightSources
	}
	if l.MaxGeometries == 0 {
		l.MaxGeometries = d.MaxGeometries
	}
	if l.MaxVariants == 0 {
		l.MaxVariants = d.MaxVariants
	}
	if l.MaxSnapshotSize == 0 {
		l.MaxSnapshotSize = d.MaxSnapshotSize
	}
	if l.MaxEmbeddedPerFile == 0 {
		l.MaxEmbeddedPerFile = d.MaxEmbeddedPerFile
	}
	return l
}
