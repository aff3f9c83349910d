package gldf

import (
	"fmt"
	"io"
	"strings"
)

// LightSourceKind tags the unified light source view.
type LightSourceKind string

const (
	LightSourceFixed      LightSourceKind = "fixed"
	LightSourceChangeable LightSourceKind = "changeable"
)

// LightSource is the unified read view over fixed and changeable light
// sources.
type LightSource struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Kind LightSourceKind `json:"kind"`
}

// Stats are aggregate counts derived from the current document. They are
// recomputed on every call and never cached.
type Stats struct {
	Files                  int `json:"files"`
	PhotometricFiles       int `json:"photometricFiles"`
	FixedLightSources      int `json:"fixedLightSources"`
	ChangeableLightSources int `json:"changeableLightSources"`
	Variants               int `json:"variants"`
	SimpleGeometries       int `json:"simpleGeometries"`
	ModelGeometries        int `json:"modelGeometries"`
	EmbeddedFiles          int `json:"embeddedFiles"`
	EmbeddedBytes          int `json:"embeddedBytes"`
}

// Engine owns one Product and mediates all mutation. It tracks a dirty flag
// that flips on every successful mutation and resets when a fresh document
// is loaded. Mutations are all-or-nothing: a failed operation leaves the
// document and the dirty flag untouched.
//
// An Engine is a single-writer structure; see the package documentation for
// the concurrency contract.
type Engine struct {
	product  *Product
	meta     *MetaInformation
	embedded map[string][]byte
	modified bool
	cfg      engineConfig
	history  history
}

// NewEmpty creates an engine owning an empty skeleton document: defaulted
// header with all-empty fields and empty lists. The engine starts clean.
func NewEmpty(opts ...EngineOption) *Engine {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()
	p := &Product{}
	p.normalize()
	return &Engine{
		product:  p,
		embedded: make(map[string][]byte),
		cfg:      cfg,
	}
}

// FromProduct wraps an already-parsed Product. The engine takes ownership;
// the caller must not touch the product afterwards.
func FromProduct(p *Product, opts ...EngineOption) *Engine {
	e := NewEmpty(opts...)
	if p != nil {
		p.normalize()
		e.product = p
	}
	return e
}

// FromBytes opens a GLDF container, parses product.xml, loads every
// embedded asset keyed by its file definition id, and parses
// meta-information.xml when present. The engine starts clean.
func FromBytes(data []byte, opts ...EngineOption) (*Engine, error) {
	e := NewEmpty(opts...)
	readOpts := []ReadOption{
		WithReadLimits(e.cfg.limits),
		WithStrictReferences(e.cfg.strictRefs),
	}

	a, err := OpenArchive(data, readOpts...)
	if err != nil {
		return nil, err
	}
	xmlBytes, err := a.ReadEntry(ProductEntryName)
	if err != nil {
		return nil, err
	}
	p, err := ParseProductXML(xmlBytes, readOpts...)
	if err != nil {
		return nil, err
	}
	e.product = p

	if a.HasEntry(MetaEntryName) {
		metaBytes, err := a.ReadEntry(MetaEntryName)
		if err != nil {
			return nil, err
		}
		mi, err := ParseMetaXML(metaBytes)
		if err != nil {
			return nil, err
		}
		e.meta = mi
	}

	// Map container paths back to file definition ids so assets are keyed
	// the way the document refers to them. Entries nothing points at keep
	// their path as key; tolerant reading preserves them for repacking.
	pathToID := make(map[string]string)
	for _, def := range p.GeneralDefinitions.Files.File {
		if def.Type.IsURL() {
			continue
		}
		pathToID[ZipPathForFile(def.ContentType, def.FileName)] = def.ID
		pathToID[def.FileName] = def.ID
	}
	for _, name := range a.Entries() {
		if name == ProductEntryName || name == MetaEntryName {
			continue
		}
		content, err := a.readEntryLimited(name, e.cfg.limits.MaxEmbeddedPerFile)
		if err != nil {
			return nil, err
		}
		if id, ok := pathToID[name]; ok {
			e.embedded[id] = content
		} else {
			e.embedded[name] = content
		}
	}
	return e, nil
}

// FromProductJSON creates an engine from the JSON form of a product. No
// embedded assets are loaded.
func FromProductJSON(text string, opts ...EngineOption) (*Engine, error) {
	e := NewEmpty(opts...)
	p, err := ParseProductJSON([]byte(text),
		WithReadLimits(e.cfg.limits),
		WithStrictReferences(e.cfg.strictRefs))
	if err != nil {
		return nil, err
	}
	e.product = p
	return e, nil
}

// ==================== Reads ====================

// IsModified reports whether the document changed since it was loaded or
// last marked saved.
func (e *Engine) IsModified() bool { return e.modified }

// MarkSaved clears the dirty flag. Exporting never does this implicitly;
// what counts as "saved" belongs to the caller.
func (e *Engine) MarkSaved() { e.modified = false }

// Header returns a copy of the document header.
func (e *Engine) Header() Header {
	return e.product.Header
}

// Files returns a copy of the file definition list in document order.
func (e *Engine) Files() []File {
	out := make([]File, len(e.product.GeneralDefinitions.Files.File))
	copy(out, e.product.GeneralDefinitions.Files.File)
	return out
}

// LightSources returns the unified light source view: fixed sources first,
// then changeable, each in document order.
func (e *Engine) LightSources() []LightSource {
	ls := e.product.GeneralDefinitions.LightSources
	if ls == nil {
		return nil
	}
	out := make([]LightSource, 0, len(ls.FixedLightSource)+len(ls.ChangeableLightSource))
	for _, s := range ls.FixedLightSource {
		out = append(out, LightSource{ID: s.ID, Name: firstLocale(s.Name), Kind: LightSourceFixed})
	}
	for _, s := range ls.ChangeableLightSource {
		out = append(out, LightSource{ID: s.ID, Name: firstLocale(s.Name), Kind: LightSourceChangeable})
	}
	return out
}

// Variants returns a deep copy of the variant list in document order.
// Mutating the result never touches the document.
func (e *Engine) Variants() []Variant {
	vs := e.product.ProductDefinitions.Variants
	if vs == nil {
		return nil
	}
	out := make([]Variant, len(vs.Variant))
	for i, v := range vs.Variant {
		out[i] = copyVariant(v)
	}
	return out
}

func copyVariant(v Variant) Variant {
	v.Name = append([]Locale(nil), v.Name...)
	v.Description = append([]Locale(nil), v.Description...)
	v.Pictures = append([]Image(nil), v.Pictures...)
	return v
}

func copySimpleGeometry(g SimpleGeometry) SimpleGeometry {
	if g.Cuboid != nil {
		c := *g.Cuboid
		g.Cuboid = &c
	}
	if g.Cylinder != nil {
		c := *g.Cylinder
		g.Cylinder = &c
	}
	return g
}

func copyModelGeometry(g ModelGeometry) ModelGeometry {
	g.GeometryFileReference = append([]GeometryFileReference(nil), g.GeometryFileReference...)
	return g
}

// SimpleGeometries returns a deep copy of the simple geometry list.
func (e *Engine) SimpleGeometries() []SimpleGeometry {
	g := e.product.GeneralDefinitions.Geometries
	if g == nil {
		return nil
	}
	out := make([]SimpleGeometry, len(g.SimpleGeometry))
	for i, sg := range g.SimpleGeometry {
		out[i] = copySimpleGeometry(sg)
	}
	return out
}

// Geometries returns a deep copy of the geometry block, or nil when the
// document defines none.
func (e *Engine) Geometries() *Geometries {
	g := e.product.GeneralDefinitions.Geometries
	if g == nil {
		return nil
	}
	return &Geometries{
		SimpleGeometry: e.SimpleGeometries(),
		ModelGeometry:  e.ModelGeometries(),
	}
}

// ModelGeometries returns a deep copy of the model geometry list.
func (e *Engine) ModelGeometries() []ModelGeometry {
	g := e.product.GeneralDefinitions.Geometries
	if g == nil {
		return nil
	}
	out := make([]ModelGeometry, len(g.ModelGeometry))
	for i, mg := range g.ModelGeometry {
		out[i] = copyModelGeometry(mg)
	}
	return out
}

// MetaInformation returns the parsed meta-information.xml content, or nil
// when the container had none.
func (e *Engine) MetaInformation() *MetaInformation {
	if e.meta == nil {
		return nil
	}
	mi := *e.meta
	mi.Property = append([]MetaProperty(nil), e.meta.Property...)
	return &mi
}

// Stats recomputes aggregate counts from the current document.
func (e *Engine) Stats() Stats {
	var s Stats
	s.Files = len(e.product.GeneralDefinitions.Files.File)
	for _, f := range e.product.GeneralDefinitions.Files.File {
		if IsPhotometricContent(f.ContentType) {
			s.PhotometricFiles++
		}
	}
	if ls := e.product.GeneralDefinitions.LightSources; ls != nil {
		s.FixedLightSources = len(ls.FixedLightSource)
		s.ChangeableLightSources = len(ls.ChangeableLightSource)
	}
	if vs := e.product.ProductDefinitions.Variants; vs != nil {
		s.Variants = len(vs.Variant)
	}
	if g := e.product.GeneralDefinitions.Geometries; g != nil {
		s.SimpleGeometries = len(g.SimpleGeometry)
		s.ModelGeometries = len(g.ModelGeometry)
	}
	s.EmbeddedFiles = len(e.embedded)
	for _, b := range e.embedded {
		s.EmbeddedBytes += len(b)
	}
	return s
}

// GenerateUniqueID returns "prefix_N" for the smallest N not colliding with
// any id in the document.
func (e *Engine) GenerateUniqueID(prefix string) string {
	ids := e.product.allIDs()
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d", prefix, n)
		if _, ok := ids[candidate]; !ok {
			return candidate
		}
	}
}

// ==================== Header mutation ====================

func (e *Engine) SetManufacturer(v string) {
	e.product.Header.Manufacturer = v
	e.modified = true
}

func (e *Engine) SetAuthor(v string) {
	e.product.Header.Author = v
	e.modified = true
}

func (e *Engine) SetCreatedWithApplication(v string) {
	e.product.Header.CreatedWithApplication = v
	e.modified = true
}

func (e *Engine) SetCreationTimeCode(v string) {
	e.product.Header.CreationTimeCode = v
	e.modified = true
}

// SetFormatVersion parses a semantic-version-like string ("1.0.0-rc.3").
func (e *Engine) SetFormatVersion(v string) {
	e.product.Header.FormatVersion = ParseFormatVersion(v)
	e.modified = true
}

func (e *Engine) SetUniqueGldfID(v string) {
	e.product.Header.UniqueGldfID = v
	e.modified = true
}

func (e *Engine) SetDefaultLanguage(v string) {
	e.product.Header.DefaultLanguage = v
	e.modified = true
}

// ==================== File mutation ====================

// AddFile appends a file definition. The id must be non-empty and unused
// anywhere in the document; duplicates fail with ErrDuplicateID and leave
// the list unchanged.
func (e *Engine) AddFile(f File) error {
	if strings.TrimSpace(f.ID) == "" {
		return fmt.Errorf("%w: file id is empty", ErrValidation)
	}
	if _, ok := e.product.allIDs()[f.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateID, f.ID)
	}
	e.product.GeneralDefinitions.Files.File = append(e.product.GeneralDefinitions.Files.File, f)
	e.modified = true
	return nil
}

// UpdateFile replaces the file definition with the given id in place,
// preserving its list position. Changing the id to one already in use fails
// with ErrDuplicateID; an absent id fails with ErrNotFound.
func (e *Engine) UpdateFile(id string, f File) error {
	files := e.product.GeneralDefinitions.Files.File
	pos := -1
	for i := range files {
		if files[i].ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return fmt.Errorf("%w: file %q", ErrNotFound, id)
	}
	if f.ID == "" {
		f.ID = id
	}
	if f.ID != id {
		if _, ok := e.product.allIDs()[f.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateID, f.ID)
		}
	}
	files[pos] = f
	e.modified = true
	return nil
}

// RemoveFile deletes the file definition and any embedded bytes for the id.
// Removal is idempotent: a missing id is a no-op, reported by the return
// value, and only an actual removal marks the document modified.
func (e *Engine) RemoveFile(id string) bool {
	files := e.product.GeneralDefinitions.Files.File
	for i := range files {
		if files[i].ID == id {
			e.product.GeneralDefinitions.Files.File = append(files[:i], files[i+1:]...)
			delete(e.embedded, id)
			e.modified = true
			return true
		}
	}
	return false
}

// ==================== Light source mutation ====================

func (e *Engine) AddFixedLightSource(s FixedLightSource) error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: light source id is empty", ErrValidation)
	}
	if _, ok := e.product.allIDs()[s.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateID, s.ID)
	}
	if e.product.GeneralDefinitions.LightSources == nil {
		e.product.GeneralDefinitions.LightSources = &LightSources{}
	}
	ls := e.product.GeneralDefinitions.LightSources
	ls.FixedLightSource = append(ls.FixedLightSource, s)
	e.modified = true
	return nil
}

func (e *Engine) AddChangeableLightSource(s ChangeableLightSource) error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: light source id is empty", ErrValidation)
	}
	if _, ok := e.product.allIDs()[s.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateID, s.ID)
	}
	if e.product.GeneralDefinitions.LightSources == nil {
		e.product.GeneralDefinitions.LightSources = &LightSources{}
	}
	ls := e.product.GeneralDefinitions.LightSources
	ls.ChangeableLightSource = append(ls.ChangeableLightSource, s)
	e.modified = true
	return nil
}

// UpdateLightSourceName replaces the localized name of the light source
// with the given id, fixed or changeable.
func (e *Engine) UpdateLightSourceName(id string, name []Locale) error {
	ls := e.product.GeneralDefinitions.LightSources
	if ls != nil {
		for i := range ls.FixedLightSource {
			if ls.FixedLightSource[i].ID == id {
				ls.FixedLightSource[i].Name = name
				e.modified = true
				return nil
			}
		}
		for i := range ls.ChangeableLightSource {
			if ls.ChangeableLightSource[i].ID == id {
				ls.ChangeableLightSource[i].Name = name
				e.modified = true
				return nil
			}
		}
	}
	return fmt.Errorf("%w: light source %q", ErrNotFound, id)
}

// RemoveLightSource deletes the light source with the given id from
// whichever list holds it. Idempotent like RemoveFile.
func (e *Engine) RemoveLightSource(id string) bool {
	ls := e.product.GeneralDefinitions.LightSources
	if ls == nil {
		return false
	}
	for i := range ls.FixedLightSource {
		if ls.FixedLightSource[i].ID == id {
			ls.FixedLightSource = append(ls.FixedLightSource[:i], ls.FixedLightSource[i+1:]...)
			e.modified = true
			return true
		}
	}
	for i := range ls.ChangeableLightSource {
		if ls.ChangeableLightSource[i].ID == id {
			ls.ChangeableLightSource = append(ls.ChangeableLightSource[:i], ls.ChangeableLightSource[i+1:]...)
			e.modified = true
			return true
		}
	}
	return false
}

// ==================== Variant mutation ====================

func (e *Engine) AddVariant(v Variant) error {
	if strings.TrimSpace(v.ID) == "" {
		return fmt.Errorf("%w: variant id is empty", ErrValidation)
	}
	if _, ok := e.product.allIDs()[v.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateID, v.ID)
	}
	if e.product.ProductDefinitions.Variants == nil {
		e.product.ProductDefinitions.Variants = &Variants{}
	}
	vs := e.product.ProductDefinitions.Variants
	vs.Variant = append(vs.Variant, v)
	e.modified = true
	return nil
}

func (e *Engine) UpdateVariant(id string, v Variant) error {
	vs := e.product.ProductDefinitions.Variants
	if vs == nil {
		return fmt.Errorf("%w: variant %q", ErrNotFound, id)
	}
	pos := -1
	for i := range vs.Variant {
		if vs.Variant[i].ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return fmt.Errorf("%w: variant %q", ErrNotFound, id)
	}
	if v.ID == "" {
		v.ID = id
	}
	if v.ID != id {
		if _, ok := e.product.allIDs()[v.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateID, v.ID)
		}
	}
	vs.Variant[pos] = v
	e.modified = true
	return nil
}

func (e *Engine) RemoveVariant(id string) bool {
	vs := e.product.ProductDefinitions.Variants
	if vs == nil {
		return false
	}
	for i := range vs.Variant {
		if vs.Variant[i].ID == id {
			vs.Variant = append(vs.Variant[:i], vs.Variant[i+1:]...)
			e.modified = true
			return true
		}
	}
	return false
}

// ==================== Geometry mutation ====================

func (e *Engine) AddSimpleGeometry(g SimpleGeometry) error {
	if strings.TrimSpace(g.ID) == "" {
		return fmt.Errorf("%w: geometry id is empty", ErrValidation)
	}
	if _, ok := e.product.allIDs()[g.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateID, g.ID)
	}
	if e.product.GeneralDefinitions.Geometries == nil {
		e.product.GeneralDefinitions.Geometries = &Geometries{}
	}
	gs := e.product.GeneralDefinitions.Geometries
	gs.SimpleGeometry = append(gs.SimpleGeometry, g)
	e.modified = true
	return nil
}

func (e *Engine) AddModelGeometry(g ModelGeometry) error {
	if strings.TrimSpace(g.ID) == "" {
		return fmt.Errorf("%w: geometry id is empty", ErrValidation)
	}
	if _, ok := e.product.allIDs()[g.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateID, g.ID)
	}
	if e.product.GeneralDefinitions.Geometries == nil {
		e.product.GeneralDefinitions.Geometries = &Geometries{}
	}
	gs := e.product.GeneralDefinitions.Geometries
	gs.ModelGeometry = append(gs.ModelGeometry, g)
	e.modified = true
	return nil
}

// RemoveGeometry deletes the geometry with the given id from either list.
func (e *Engine) RemoveGeometry(id string) bool {
	gs := e.product.GeneralDefinitions.Geometries
	if gs == nil {
		return false
	}
	for i := range gs.SimpleGeometry {
		if gs.SimpleGeometry[i].ID == id {
			gs.SimpleGeometry = append(gs.SimpleGeometry[:i], gs.SimpleGeometry[i+1:]...)
			e.modified = true
			return true
		}
	}
	for i := range gs.ModelGeometry {
		if gs.ModelGeometry[i].ID == id {
			gs.ModelGeometry = append(gs.ModelGeometry[:i], gs.ModelGeometry[i+1:]...)
			e.modified = true
			return true
		}
	}
	return false
}

// SetProductMetaData replaces the product metadata block.
func (e *Engine) SetProductMetaData(meta ProductMetaData) {
	e.product.ProductDefinitions.ProductMetaData = &meta
	e.modified = true
}

// ==================== Embedded assets ====================

// SetEmbeddedFile stores or replaces the binary content for a file id.
func (e *Engine) SetEmbeddedFile(id string, data []byte) {
	e.embedded[id] = append([]byte(nil), data...)
	e.modified = true
}

// RemoveEmbeddedFile drops the binary content for a file id. Idempotent.
func (e *Engine) RemoveEmbeddedFile(id string) bool {
	if _, ok := e.embedded[id]; !ok {
		return false
	}
	delete(e.embedded, id)
	e.modified = true
	return true
}

// EmbeddedFile returns a copy of the stored binary content for a file id.
func (e *Engine) EmbeddedFile(id string) ([]byte, bool) {
	content, ok := e.embedded[id]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), content...), true
}

// HasEmbeddedFile reports whether binary content is stored for the id.
func (e *Engine) HasEmbeddedFile(id string) bool {
	_, ok := e.embedded[id]
	return ok
}

// EmbeddedFileIDs returns the keys of all stored binary content.
func (e *Engine) EmbeddedFileIDs() []string {
	ids := make([]string, 0, len(e.embedded))
	for id := range e.embedded {
		ids = append(ids, id)
	}
	return ids
}

// ==================== Asset access ====================

// ResolveFile locates the content of a file definition; see Resolve.
func (e *Engine) ResolveFile(id string) (ContentRef, error) {
	return Resolve(e.product, id)
}

// FileContent returns the embedded bytes for a file definition id. URL
// references fail with ErrExternalContent (the caller fetches those);
// definitions without embedded content fail with ErrEntryNotFound.
func (e *Engine) FileContent(id string) ([]byte, error) {
	ref, err := e.ResolveFile(id)
	if err != nil {
		return nil, err
	}
	if ref.Kind == RefExternal {
		return nil, fmt.Errorf("%w: %s", ErrExternalContent, ref.URL)
	}
	if content, ok := e.embedded[id]; ok {
		return append([]byte(nil), content...), nil
	}
	return nil, fmt.Errorf("%w: no embedded content for %q", ErrEntryNotFound, id)
}

// FileContentAsString returns embedded content decoded as text. Only
// text-based content types qualify; others fail with ErrNotText.
func (e *Engine) FileContentAsString(id string) (string, error) {
	def := e.product.fileByID(id)
	if def == nil {
		return "", fmt.Errorf("%w: file id %q", ErrUnresolvedReference, id)
	}
	if !IsTextContent(def.ContentType) {
		return "", fmt.Errorf("%w: %q is %s", ErrNotText, id, def.ContentType)
	}
	b, err := e.FileContent(id)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ==================== Export ====================

// ToXML serializes the current document as product.xml text. Exporting does
// not change the dirty flag.
func (e *Engine) ToXML() (string, error) {
	b, err := MarshalProductXML(e.product)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToJSON serializes the current document as compact JSON.
func (e *Engine) ToJSON() (string, error) {
	b, err := MarshalProductJSON(e.product)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToPrettyJSON serializes the current document as indented JSON.
func (e *Engine) ToPrettyJSON() (string, error) {
	b, err := MarshalProductJSONIndent(e.product)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Pack writes a complete GLDF container with the current document, its
// meta-information (if any) and all embedded assets. The dirty flag is not
// touched; call MarkSaved once the caller considers the result persisted.
func (e *Engine) Pack(w io.Writer, opts ...WriteOption) error {
	all := make([]WriteOption, 0, len(opts)+2)
	all = append(all, WithWriteLimits(e.cfg.limits))
	if e.meta != nil {
		all = append(all, WithMetaInformation(e.meta))
	}
	all = append(all, opts...)
	return WriteArchive(w, e.product, e.embedded, all...)
}
