package gldf

import (
	"fmt"
	"path"
	"strings"
)

// RefKind discriminates where a resolved file reference points.
type RefKind uint8

const (
	// RefInArchive content lives inside the container.
	RefInArchive RefKind = iota
	// RefExternal content lives at an external URL; fetching it is the
	// caller's responsibility.
	RefExternal
)

// ContentRef is the resolved location of a file definition's content.
type ContentRef struct {
	Kind      RefKind
	FileID    string
	EntryName string // set for RefInArchive
	URL       string // set for RefExternal
}

// Resolve locates the content of the file definition with the given id.
//
// It fails with ErrUnresolvedReference when no file definition carries the
// id. This is the point where references that parsed tolerantly finally
// surface as errors.
func Resolve(p *Product, fileID string) (ContentRef, error) {
	if p == nil {
		return ContentRef{}, fmt.Errorf("%w: product is nil", ErrValidation)
	}
	def := p.fileByID(fileID)
	if def == nil {
		return ContentRef{}, fmt.Errorf("%w: file id %q", ErrUnresolvedReference, fileID)
	}
	if def.Type.IsURL() {
		return ContentRef{Kind: RefExternal, FileID: fileID, URL: def.FileName}, nil
	}
	return ContentRef{
		Kind:      RefInArchive,
		FileID:    fileID,
		EntryName: ZipPathForFile(def.ContentType, def.FileName),
	}, nil
}

// FetchContent extracts the bytes behind an in-archive reference.
//
// Producers are inconsistent about asset paths, so the lookup tries the
// content-type folder path, the raw file name, and finally a basename scan
// over all entries. External references fail with ErrExternalContent; the
// URL is in the reference, fetching it is up to the caller.
func FetchContent(a *Archive, ref ContentRef) ([]byte, error) {
	if ref.Kind == RefExternal {
		return nil, fmt.Errorf("%w: %s", ErrExternalContent, ref.URL)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: no archive to read from", ErrEntryNotFound)
	}
	if b, err := a.ReadEntry(ref.EntryName); err == nil {
		return b, nil
	}
	base := path.Base(ref.EntryName)
	if b, err := a.ReadEntry(base); err == nil {
		return b, nil
	}
	for _, name := range a.Entries() {
		if path.Base(name) == base {
			return a.ReadEntry(name)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, ref.EntryName)
}

// ZipPathForFile maps a file definition to its canonical container path:
// assets are grouped into a folder derived from the content type category.
func ZipPathForFile(contentType, fileName string) string {
	var folder string
	switch {
	case strings.HasPrefix(contentType, "ldc"):
		folder = "ldc"
	case strings.HasPrefix(contentType, "geo"):
		folder = "geo"
	case strings.HasPrefix(contentType, "image"):
		folder = "image"
	case strings.HasPrefix(contentType, "document"):
		folder = "doc"
	case strings.HasPrefix(contentType, "spectrum"):
		folder = "spectrum"
	case strings.HasPrefix(contentType, "sensor"):
		folder = "sensor"
	case strings.HasPrefix(contentType, "symbol"):
		folder = "symbol"
	default:
		folder = "other"
	}
	return folder + "/" + fileName
}
