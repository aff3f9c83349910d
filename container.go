package gldf

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/zip"
)

// Archive is a read-only view of an opened GLDF container. It performs pure
// extraction and knows nothing about the product schema.
type Archive struct {
	reader *zip.Reader
	limits Limits
}

// OpenArchive opens a GLDF ZIP container held in memory.
//
// It fails with ErrCorruptArchive when the ZIP directory is unreadable and
// with ErrLimitExceeded when the entry count exceeds the configured limits.
func OpenArchive(data []byte, opts ...ReadOption) (*Archive, error) {
	cfg := readConfig{limits: defaultLimits()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	if len(zr.File) > cfg.limits.MaxArchiveEntries {
		return nil, fmt.Errorf("%w: %d archive entries", ErrLimitExceeded, len(zr.File))
	}
	return &Archive{reader: zr, limits: cfg.limits}, nil
}

// Entries returns the entry names of all files in directory order.
// Directory placeholders are skipped. Ordering carries no semantic meaning.
func (a *Archive) Entries() []string {
	names := make([]string, 0, len(a.reader.File))
	for _, f := range a.reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, f.Name)
	}
	return names
}

// HasEntry reports whether a file entry with the given name exists.
func (a *Archive) HasEntry(name string) bool {
	for _, f := range a.reader.File {
		if f.Name == name && !f.FileInfo().IsDir() {
			return true
		}
	}
	return false
}

// ReadEntry extracts the raw bytes of the named entry.
//
// It fails with ErrEntryNotFound when the entry is absent and with
// ErrLimitExceeded when the entry declares or expands beyond MaxEntrySize.
func (a *Archive) ReadEntry(name string) ([]byte, error) {
	return a.readEntryLimited(name, a.limits.MaxEntrySize)
}

func (a *Archive) readEntryLimited(name string, maxSize uint64) ([]byte, error) {
	for _, f := range a.reader.File {
		if f.Name != name || f.FileInfo().IsDir() {
			continue
		}
		if f.UncompressedSize64 > maxSize {
			return nil, fmt.Errorf("%w: entry %q declares %d bytes", ErrLimitExceeded, name, f.UncompressedSize64)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(io.LimitReader(rc, int64(maxSize)+1))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
		}
		if uint64(len(b)) > maxSize {
			return nil, fmt.Errorf("%w: entry %q expanded beyond %d bytes", ErrLimitExceeded, name, maxSize)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, name)
}

// WriteArchive writes a GLDF container: product.xml first, then every
// embedded asset at its content-type folder path, then any embedded entries
// whose keys match no file definition id, verbatim under their keys (the
// loader keys unreferenced container entries by path; repacking must not
// lose them). URL-typed file definitions are skipped; assets without
// embedded bytes are silently omitted, matching tolerant reading.
func WriteArchive(w io.Writer, p *Product, embedded map[string][]byte, opts ...WriteOption) error {
	cfg := writeConfig{limits: defaultLimits()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()
	if p == nil {
		return fmt.Errorf("%w: product is nil", ErrValidation)
	}

	xmlBytes, err := MarshalProductXML(p)
	if err != nil {
		return err
	}

	method := zip.Deflate
	if cfg.storedAssets {
		method = zip.Store
	}

	zw := zip.NewWriter(w)
	if err := writeZipEntry(zw, ProductEntryName, xmlBytes, zip.Deflate); err != nil {
		_ = zw.Close()
		return err
	}
	if cfg.meta != nil {
		metaBytes, err := MarshalMetaXML(cfg.meta)
		if err != nil {
			_ = zw.Close()
			return err
		}
		if err := writeZipEntry(zw, MetaEntryName, metaBytes, zip.Deflate); err != nil {
			_ = zw.Close()
			return err
		}
	}
	written := map[string]struct{}{ProductEntryName: {}, MetaEntryName: {}}
	defIDs := make(map[string]struct{}, len(p.GeneralDefinitions.Files.File))
	for _, def := range p.GeneralDefinitions.Files.File {
		defIDs[def.ID] = struct{}{}
		if def.Type.IsURL() {
			continue
		}
		content, ok := embedded[def.ID]
		if !ok {
			continue
		}
		if uint64(len(content)) > cfg.limits.MaxEmbeddedPerFile {
			_ = zw.Close()
			return fmt.Errorf("%w: embedded file %q is %d bytes", ErrLimitExceeded, def.ID, len(content))
		}
		entryName := ZipPathForFile(def.ContentType, def.FileName)
		if err := writeZipEntry(zw, entryName, content, method); err != nil {
			_ = zw.Close()
			return err
		}
		written[entryName] = struct{}{}
	}

	// Entries keyed by path rather than by a file definition id were loaded
	// from a container nothing references; carry them through unchanged.
	orphans := make([]string, 0, len(embedded))
	for key := range embedded {
		if _, ok := defIDs[key]; ok {
			continue
		}
		if _, ok := written[key]; ok {
			continue
		}
		orphans = append(orphans, key)
	}
	sort.Strings(orphans)
	for _, name := range orphans {
		content := embedded[name]
		if uint64(len(content)) > cfg.limits.MaxEmbeddedPerFile {
			_ = zw.Close()
			return fmt.Errorf("%w: embedded file %q is %d bytes", ErrLimitExceeded, name, len(content))
		}
		if err := writeZipEntry(zw, name, content, method); err != nil {
			_ = zw.Close()
			return err
		}
	}
	return zw.Close()
}

func writeZipEntry(zw *zip.Writer, name string, content []byte, method uint16) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
	if err != nil {
		return err
	}
	_, err = fw.Write(content)
	return err
}
