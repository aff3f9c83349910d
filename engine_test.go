package gldf

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

func sampleEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := FromBytes(sampleContainer(t))
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	return eng
}

func TestNewEmpty_AllEmptyHeader(t *testing.T) {
	eng := NewEmpty()
	h := eng.Header()
	if h.Manufacturer != "" || h.Author != "" || h.CreatedWithApplication != "" ||
		h.CreationTimeCode != "" || h.UniqueGldfID != "" || h.DefaultLanguage != "" {
		t.Fatalf("header not empty: %+v", h)
	}
	if !h.FormatVersion.IsZero() || h.FormatVersion.String() != "" {
		t.Fatalf("format version not empty: %+v", h.FormatVersion)
	}
	if eng.IsModified() {
		t.Fatal("fresh engine must be clean")
	}

	// A skeleton document still serializes to well-formed XML that parses
	// back to the same empty document.
	xmlText, err := eng.ToXML()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(xmlText, "<Root") || !strings.Contains(xmlText, "<Header>") {
		t.Fatalf("skeleton xml missing structure:\n%s", xmlText)
	}
	p, err := ParseProductXML([]byte(xmlText))
	if err != nil {
		t.Fatalf("skeleton xml does not parse back: %v", err)
	}
	if p.Header != (Header{}) {
		t.Fatalf("round-tripped header not empty: %+v", p.Header)
	}
}

func TestFromBytes_LoadsEverything(t *testing.T) {
	eng := sampleEngine(t)
	if eng.IsModified() {
		t.Fatal("loaded engine must start clean")
	}
	if got := eng.Header().Manufacturer; got != "Example Lighting" {
		t.Errorf("Manufacturer = %q", got)
	}
	if n := len(eng.Files()); n != 3 {
		t.Errorf("files = %d, want 3", n)
	}
	// Embedded assets are keyed by file definition id, not container path.
	if !eng.HasEmbeddedFile("ldc_1") || !eng.HasEmbeddedFile("img_1") {
		t.Errorf("embedded ids = %v", eng.EmbeddedFileIDs())
	}
	ls := eng.LightSources()
	if len(ls) != 2 || ls[0].Kind != LightSourceFixed || ls[1].Kind != LightSourceChangeable {
		t.Errorf("light sources = %+v", ls)
	}
	if ls[0].Name != "LED module" {
		t.Errorf("light source name = %q", ls[0].Name)
	}
}

func TestFromBytes_MissingProductXML(t *testing.T) {
	// A valid zip without a product.xml entry.
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, err := zw.Create("ldc/orphan.ldt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("orphan")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	_, err = FromBytes(buf.Bytes())
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestRemoveFile_Scenario(t *testing.T) {
	eng := NewEmpty()
	for _, id := range []string{"f1", "f2", "f3"} {
		err := eng.AddFile(File{ID: id, ContentType: ContentTypeLDCEulumdat, Type: FileTypeLocal, FileName: id + ".ldt"})
		if err != nil {
			t.Fatalf("AddFile(%s): %v", id, err)
		}
	}
	if !eng.RemoveFile("f2") {
		t.Fatal("RemoveFile(f2) = false")
	}
	var ids []string
	for _, f := range eng.Files() {
		ids = append(ids, f.ID)
	}
	if !reflect.DeepEqual(ids, []string{"f1", "f3"}) {
		t.Fatalf("remaining files = %v, want [f1 f3]", ids)
	}
	if !eng.IsModified() {
		t.Fatal("engine must be dirty after removal")
	}
}

func TestRemoveFile_Idempotent(t *testing.T) {
	eng := NewEmpty()
	if err := eng.AddFile(File{ID: "f1", ContentType: ContentTypeLDCIES, FileName: "a.ies"}); err != nil {
		t.Fatal(err)
	}
	eng.MarkSaved()
	if eng.RemoveFile("ghost") {
		t.Fatal("removing an absent id must report false")
	}
	if eng.IsModified() {
		t.Fatal("no-op removal must not dirty the document")
	}
	if !eng.RemoveFile("f1") || eng.RemoveFile("f1") {
		t.Fatal("second removal must report false")
	}
}

func TestRemoveFile_DropsEmbeddedBytes(t *testing.T) {
	eng := sampleEngine(t)
	if !eng.RemoveFile("ldc_1") {
		t.Fatal("RemoveFile failed")
	}
	if eng.HasEmbeddedFile("ldc_1") {
		t.Fatal("embedded bytes must be dropped with the definition")
	}
}

func TestAddFile_DuplicateID(t *testing.T) {
	eng := sampleEngine(t)
	eng.MarkSaved()
	err := eng.AddFile(File{ID: "ldc_1", ContentType: ContentTypeLDCIES, FileName: "dup.ies"})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if eng.IsModified() {
		t.Fatal("failed add must not dirty the document")
	}
	if n := len(eng.Files()); n != 3 {
		t.Fatalf("files = %d after failed add", n)
	}
	// Ids are unique document-wide, not per list.
	err = eng.AddFile(File{ID: "variant_1", ContentType: ContentTypeImagePNG, FileName: "x.png"})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected cross-list ErrDuplicateID, got %v", err)
	}
}

func TestUpdateFile(t *testing.T) {
	eng := sampleEngine(t)
	if err := eng.UpdateFile("img_1", File{ContentType: ContentTypeImageJPG, Type: FileTypeLocal, FileName: "front.jpg"}); err != nil {
		t.Fatal(err)
	}
	files := eng.Files()
	if files[1].ID != "img_1" || files[1].FileName != "front.jpg" {
		t.Fatalf("update did not preserve position: %+v", files)
	}
	if err := eng.UpdateFile("ghost", File{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	err := eng.UpdateFile("img_1", File{ID: "ldc_1", ContentType: ContentTypeImageJPG, FileName: "x.jpg"})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID on rename collision, got %v", err)
	}
}

func TestHeaderSetters(t *testing.T) {
	eng := NewEmpty()
	eng.SetManufacturer("Acme")
	eng.SetAuthor("QA")
	eng.SetCreatedWithApplication("tests")
	eng.SetCreationTimeCode("2024-03-01T12:00:00")
	eng.SetFormatVersion("1.0.0-rc.3")
	eng.SetUniqueGldfID("uid-1")
	eng.SetDefaultLanguage("en")

	h := eng.Header()
	if h.Manufacturer != "Acme" || h.Author != "QA" || h.UniqueGldfID != "uid-1" {
		t.Fatalf("header = %+v", h)
	}
	if h.FormatVersion.String() != "1.0.0-rc.3" {
		t.Fatalf("format version = %q", h.FormatVersion.String())
	}
	if !eng.IsModified() {
		t.Fatal("setters must dirty the document")
	}
}

func TestLightSourceCRUD(t *testing.T) {
	eng := NewEmpty()
	if err := eng.AddFixedLightSource(FixedLightSource{ID: "led", Name: []Locale{{Value: "LED"}}}); err != nil {
		t.Fatal(err)
	}
	if err := eng.AddChangeableLightSource(ChangeableLightSource{ID: "led"}); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID across kinds, got %v", err)
	}
	if err := eng.AddChangeableLightSource(ChangeableLightSource{ID: "lamp"}); err != nil {
		t.Fatal(err)
	}
	if err := eng.UpdateLightSourceName("lamp", []Locale{{Language: "en", Value: "Lamp"}}); err != nil {
		t.Fatal(err)
	}
	ls := eng.LightSources()
	if len(ls) != 2 || ls[1].Name != "Lamp" {
		t.Fatalf("light sources = %+v", ls)
	}
	if err := eng.UpdateLightSourceName("ghost", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !eng.RemoveLightSource("led") || eng.RemoveLightSource("led") {
		t.Fatal("removal must be idempotent")
	}
}

func TestVariantCRUD(t *testing.T) {
	eng := NewEmpty()
	if err := eng.AddVariant(Variant{ID: "v1", Name: []Locale{{Value: "Standard"}}}); err != nil {
		t.Fatal(err)
	}
	if err := eng.AddVariant(Variant{ID: "v1"}); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if err := eng.UpdateVariant("v1", Variant{SortOrder: 2}); err != nil {
		t.Fatal(err)
	}
	vs := eng.Variants()
	if len(vs) != 1 || vs[0].ID != "v1" || vs[0].SortOrder != 2 {
		t.Fatalf("variants = %+v", vs)
	}
	if err := eng.UpdateVariant("ghost", Variant{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !eng.RemoveVariant("v1") || eng.RemoveVariant("v1") {
		t.Fatal("removal must be idempotent")
	}
}

func TestGeometryCRUD(t *testing.T) {
	eng := NewEmpty()
	if err := eng.AddSimpleGeometry(SimpleGeometry{ID: "g1", Cuboid: &Cuboid{Width: 1, Length: 2, Height: 3}}); err != nil {
		t.Fatal(err)
	}
	if err := eng.AddModelGeometry(ModelGeometry{ID: "g1"}); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID across geometry kinds, got %v", err)
	}
	if err := eng.AddModelGeometry(ModelGeometry{ID: "g2", GeometryFileReference: []GeometryFileReference{{FileID: "geo_file"}}}); err != nil {
		t.Fatal(err)
	}
	if len(eng.SimpleGeometries()) != 1 || len(eng.ModelGeometries()) != 1 {
		t.Fatal("geometry lists wrong")
	}
	if g := eng.Geometries(); g == nil || len(g.SimpleGeometry) != 1 || len(g.ModelGeometry) != 1 {
		t.Fatalf("Geometries() = %+v", g)
	}
	if NewEmpty().Geometries() != nil {
		t.Fatal("empty document has no geometry block")
	}
	if !eng.RemoveGeometry("g2") || eng.RemoveGeometry("g2") {
		t.Fatal("removal must be idempotent")
	}
}

// Read accessors return detached copies: writing through a returned element
// must never reach the document.
func TestReadAccessorsDetached(t *testing.T) {
	eng := sampleEngine(t)
	if err := eng.AddModelGeometry(ModelGeometry{
		ID:                    "geo_model",
		GeometryFileReference: []GeometryFileReference{{FileID: "img_1"}},
	}); err != nil {
		t.Fatal(err)
	}
	eng.MarkSaved()

	vs := eng.Variants()
	vs[0].Name[0].Value = "hacked"
	vs[0].Pictures[0].FileID = "hacked"
	if got := eng.Variants()[0]; got.Name[0].Value != "Standard" || got.Pictures[0].FileID != "img_1" {
		t.Fatalf("variant mutated through accessor copy: %+v", got)
	}

	sg := eng.SimpleGeometries()
	sg[0].Cuboid.Width = 9999
	if got := eng.SimpleGeometries()[0]; got.Cuboid.Width != 100 {
		t.Fatalf("cuboid mutated through accessor copy: %+v", got)
	}

	mg := eng.ModelGeometries()
	mg[0].GeometryFileReference[0].FileID = "hacked"
	if got := eng.ModelGeometries()[0]; got.GeometryFileReference[0].FileID != "img_1" {
		t.Fatalf("geometry reference mutated through accessor copy: %+v", got)
	}

	g := eng.Geometries()
	g.SimpleGeometry[0].Cuboid.Height = 0
	if got := eng.Geometries().SimpleGeometry[0]; got.Cuboid.Height != 50 {
		t.Fatalf("geometry block mutated through accessor copy: %+v", got)
	}

	if eng.IsModified() {
		t.Fatal("accessor writes must not dirty the document")
	}
}

func TestGenerateUniqueID(t *testing.T) {
	eng := NewEmpty()
	if got := eng.GenerateUniqueID("file"); got != "file_1" {
		t.Fatalf("GenerateUniqueID = %q, want file_1", got)
	}
	if err := eng.AddFile(File{ID: "file_1", ContentType: ContentTypeLDCIES, FileName: "a.ies"}); err != nil {
		t.Fatal(err)
	}
	if got := eng.GenerateUniqueID("file"); got != "file_2" {
		t.Fatalf("GenerateUniqueID = %q, want file_2", got)
	}
	// Collisions with non-file ids count too.
	if err := eng.AddVariant(Variant{ID: "file_2"}); err != nil {
		t.Fatal(err)
	}
	if got := eng.GenerateUniqueID("file"); got != "file_3" {
		t.Fatalf("GenerateUniqueID = %q, want file_3", got)
	}
}

func TestStats(t *testing.T) {
	eng := sampleEngine(t)
	s := eng.Stats()
	want := Stats{
		Files:                  3,
		PhotometricFiles:       1,
		FixedLightSources:      1,
		ChangeableLightSources: 1,
		Variants:               1,
		SimpleGeometries:       1,
		EmbeddedFiles:          2,
		EmbeddedBytes:          len(sampleEmbedded()["ldc_1"]) + len(sampleEmbedded()["img_1"]),
	}
	if s != want {
		t.Fatalf("stats = %+v, want %+v", s, want)
	}

	eng.RemoveFile("ldc_1")
	s = eng.Stats()
	if s.Files != 2 || s.PhotometricFiles != 0 || s.EmbeddedFiles != 1 {
		t.Fatalf("stats not recomputed: %+v", s)
	}
}

func TestFileContent(t *testing.T) {
	eng := sampleEngine(t)
	b, err := eng.FileContent("ldc_1")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, sampleEmbedded()["ldc_1"]) {
		t.Fatalf("content = %q", b)
	}
	if _, err := eng.FileContent("ghost"); !errors.Is(err, ErrUnresolvedReference) {
		t.Fatalf("expected ErrUnresolvedReference, got %v", err)
	}
	if _, err := eng.FileContent("datasheet"); !errors.Is(err, ErrExternalContent) {
		t.Fatalf("expected ErrExternalContent, got %v", err)
	}
}

func TestFileContentAsString(t *testing.T) {
	eng := sampleEngine(t)
	s, err := eng.FileContentAsString("ldc_1")
	if err != nil {
		t.Fatal(err)
	}
	if s != string(sampleEmbedded()["ldc_1"]) {
		t.Fatalf("content = %q", s)
	}
	if _, err := eng.FileContentAsString("img_1"); !errors.Is(err, ErrNotText) {
		t.Fatalf("expected ErrNotText for image content, got %v", err)
	}
}

func TestSetEmbeddedFile(t *testing.T) {
	eng := NewEmpty()
	eng.MarkSaved()
	eng.SetEmbeddedFile("x", []byte("data"))
	if !eng.HasEmbeddedFile("x") || !eng.IsModified() {
		t.Fatal("SetEmbeddedFile must store and dirty")
	}
	b, ok := eng.EmbeddedFile("x")
	if !ok || !bytes.Equal(b, []byte("data")) {
		t.Fatalf("EmbeddedFile = %q, %v", b, ok)
	}
	b[0] = 'X'
	if again, _ := eng.EmbeddedFile("x"); !bytes.Equal(again, []byte("data")) {
		t.Fatal("EmbeddedFile must return a copy")
	}
	if _, ok := eng.EmbeddedFile("ghost"); ok {
		t.Fatal("EmbeddedFile must miss absent ids")
	}
	if !eng.RemoveEmbeddedFile("x") || eng.RemoveEmbeddedFile("x") {
		t.Fatal("RemoveEmbeddedFile must be idempotent")
	}
}

func TestExportDoesNotTouchDirtyFlag(t *testing.T) {
	eng := sampleEngine(t)
	if _, err := eng.ToXML(); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.ToJSON(); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := eng.Pack(&buf); err != nil {
		t.Fatal(err)
	}
	if eng.IsModified() {
		t.Fatal("export must not dirty a clean engine")
	}

	eng.SetManufacturer("Changed")
	if _, err := eng.ToXML(); err != nil {
		t.Fatal(err)
	}
	if !eng.IsModified() {
		t.Fatal("export must not clear the dirty flag either")
	}
	eng.MarkSaved()
	if eng.IsModified() {
		t.Fatal("MarkSaved must clear the dirty flag")
	}
}

func TestPackRoundTrip(t *testing.T) {
	eng := sampleEngine(t)
	eng.SetManufacturer("Repacked")

	var buf bytes.Buffer
	if err := eng.Pack(&buf); err != nil {
		t.Fatal(err)
	}
	again, err := FromBytes(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got := again.Header().Manufacturer; got != "Repacked" {
		t.Errorf("Manufacturer = %q", got)
	}
	if !again.HasEmbeddedFile("ldc_1") || !again.HasEmbeddedFile("img_1") {
		t.Errorf("embedded assets lost on repack: %v", again.EmbeddedFileIDs())
	}
	if again.IsModified() {
		t.Error("freshly loaded engine must be clean")
	}
}

// Container entries no file definition references are loaded keyed by path
// and must come back out of a repack byte-for-byte.
func TestPack_PreservesUnreferencedEntries(t *testing.T) {
	orphan := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	base, err := OpenArchive(sampleContainer(t))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range base.Entries() {
		b, err := base.ReadEntry(name)
		if err != nil {
			t.Fatal(err)
		}
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(b); err != nil {
			t.Fatal(err)
		}
	}
	fw, err := zw.Create("other/unreferenced.bin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(orphan); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	eng, err := FromBytes(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !eng.HasEmbeddedFile("other/unreferenced.bin") {
		t.Fatal("unreferenced entry not loaded")
	}

	var out bytes.Buffer
	if err := eng.Pack(&out); err != nil {
		t.Fatal(err)
	}
	again, err := OpenArchive(out.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	b, err := again.ReadEntry("other/unreferenced.bin")
	if err != nil {
		t.Fatalf("unreferenced entry lost on repack: %v", err)
	}
	if !bytes.Equal(b, orphan) {
		t.Fatalf("unreferenced entry content = %x", b)
	}
	// Referenced assets still land at their canonical paths.
	if !again.HasEntry("ldc/photometry.ldt") || !again.HasEntry("image/front.png") {
		t.Fatalf("entries = %v", again.Entries())
	}
}

func TestPack_CarriesMetaInformation(t *testing.T) {
	meta := &MetaInformation{Property: []MetaProperty{{Name: "tool", Value: "tests"}}}
	eng, err := FromBytes(sampleContainer(t, WithMetaInformation(meta)))
	if err != nil {
		t.Fatal(err)
	}
	mi := eng.MetaInformation()
	if mi == nil || len(mi.Property) != 1 || mi.Property[0].Name != "tool" {
		t.Fatalf("meta = %+v", mi)
	}

	var buf bytes.Buffer
	if err := eng.Pack(&buf); err != nil {
		t.Fatal(err)
	}
	a, err := OpenArchive(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !a.HasEntry(MetaEntryName) {
		t.Fatal("meta-information.xml lost on repack")
	}
}

func TestFromProductJSON(t *testing.T) {
	jsonBytes, err := MarshalProductJSON(sampleProduct())
	if err != nil {
		t.Fatal(err)
	}
	eng, err := FromProductJSON(string(jsonBytes))
	if err != nil {
		t.Fatal(err)
	}
	if eng.IsModified() {
		t.Fatal("engine must start clean")
	}
	if got := eng.Header().Manufacturer; got != "Example Lighting" {
		t.Errorf("Manufacturer = %q", got)
	}
	if _, err := FromProductJSON("{broken"); !errors.Is(err, ErrMalformedJSON) {
		t.Fatalf("expected ErrMalformedJSON, got %v", err)
	}
}
