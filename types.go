package gldf

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Canonical entry names inside a GLDF container.
const (
	ProductEntryName = "product.xml"
	MetaEntryName    = "meta-information.xml"
)

// Schema attributes emitted on the Root element of serialized products.
const (
	xmlnsXSI       = "http://www.w3.org/2001/XMLSchema-instance"
	schemaLocation = "https://gldf.io/xsd/gldf/1.0.0-rc.3/gldf.xsd"
)

// FileType classifies how a file definition's name is to be interpreted:
// as a path inside the container or as an absolute URL. Unknown wire values
// are preserved as-is so re-serialization never invents data.
type FileType string

const (
	FileTypeLocal FileType = "localFileName"
	FileTypeURL   FileType = "url"
)

// Known reports whether t is one of the file types defined by the GLDF
// schema.
func (t FileType) Known() bool {
	return t == FileTypeLocal || t == FileTypeURL
}

// IsURL reports whether the file name is an external URL.
func (t FileType) IsURL() bool { return t == FileTypeURL }

// Content type categories used by GLDF file definitions. The list is open:
// any "category/subtype" string is carried through unchanged.
const (
	ContentTypeLDCEulumdat = "ldc/eulumdat"
	ContentTypeLDCIES      = "ldc/ies"
	ContentTypeGeoL3D      = "geo/l3d"
	ContentTypeImageJPG    = "image/jpg"
	ContentTypeImagePNG    = "image/png"
	ContentTypeDocumentPDF = "document/pdf"
	ContentTypeSpectrum    = "spectrum/text"
	ContentTypeSymbolDXF   = "symbol/dxf"
)

// IsPhotometricContent reports whether a content type names a photometric
// data format (ldc/eulumdat, ldc/ies, ...).
func IsPhotometricContent(contentType string) bool {
	return strings.HasPrefix(contentType, "ldc")
}

// IsTextContent reports whether content of the given type should be decoded
// as UTF-8 text rather than treated as opaque binary. Photometric and
// spectrum formats are line-oriented text.
func IsTextContent(contentType string) bool {
	return IsPhotometricContent(contentType) || strings.HasPrefix(contentType, "spectrum")
}

// File is a single file definition: a named reference to an asset inside the
// container or at an external URL, with a declared content type.
type File struct {
	ID          string   `xml:"id,attr" json:"id"`
	ContentType string   `xml:"contentType,attr" json:"contentType"`
	Type        FileType `xml:"type,attr,omitempty" json:"type,omitempty"`
	Language    string   `xml:"language,attr,omitempty" json:"language,omitempty"`
	FileName    string   `xml:",chardata" json:"fileName"`
}

// Files is the ordered file definition list.
type Files struct {
	File []File `xml:"File" json:"file,omitempty"`
}

// Locale is a localized text value.
type Locale struct {
	Language string `xml:"language,attr,omitempty" json:"language,omitempty"`
	Value    string `xml:",chardata" json:"value"`
}

func firstLocale(locales []Locale) string {
	if len(locales) == 0 {
		return ""
	}
	return locales[0].Value
}

// FixedLightSource is a light source permanently built into the luminaire.
type FixedLightSource struct {
	ID   string   `xml:"id,attr" json:"id"`
	Name []Locale `xml:"Name>Locale" json:"name,omitempty"`
}

// ChangeableLightSource is a replaceable light source.
type ChangeableLightSource struct {
	ID   string   `xml:"id,attr" json:"id"`
	Name []Locale `xml:"Name>Locale" json:"name,omitempty"`
}

// LightSources holds the fixed and changeable light source lists.
type LightSources struct {
	FixedLightSource      []FixedLightSource      `xml:"FixedLightSource" json:"fixedLightSource,omitempty"`
	ChangeableLightSource []ChangeableLightSource `xml:"ChangeableLightSource" json:"changeableLightSource,omitempty"`
}

// Cuboid describes box dimensions in millimeters.
type Cuboid struct {
	Width  int `xml:"Width" json:"width"`
	Length int `xml:"Length" json:"length"`
	Height int `xml:"Height" json:"height"`
}

// Cylinder describes cylindrical dimensions in millimeters.
type Cylinder struct {
	Plane    string `xml:"plane,attr,omitempty" json:"plane,omitempty"`
	Diameter int    `xml:"Diameter" json:"diameter"`
	Height   int    `xml:"Height" json:"height"`
}

// SimpleGeometry is a parametric luminaire shape.
type SimpleGeometry struct {
	ID       string    `xml:"id,attr" json:"id"`
	Cuboid   *Cuboid   `xml:"Cuboid,omitempty" json:"cuboid,omitempty"`
	Cylinder *Cylinder `xml:"Cylinder,omitempty" json:"cylinder,omitempty"`
}

// GeometryFileReference points a model geometry at a geometry file
// definition. The reference is advisory: it may dangle until resolved.
type GeometryFileReference struct {
	FileID        string `xml:"fileId,attr" json:"fileId"`
	LevelOfDetail string `xml:"levelOfDetail,attr,omitempty" json:"levelOfDetail,omitempty"`
}

// ModelGeometry references one or more external 3D model files.
type ModelGeometry struct {
	ID                    string                  `xml:"id,attr" json:"id"`
	GeometryFileReference []GeometryFileReference `xml:"GeometryFileReference" json:"geometryFileReference,omitempty"`
}

// Geometries holds the simple and model geometry lists.
type Geometries struct {
	SimpleGeometry []SimpleGeometry `xml:"SimpleGeometry" json:"simpleGeometry,omitempty"`
	ModelGeometry  []ModelGeometry  `xml:"ModelGeometry" json:"modelGeometry,omitempty"`
}

// GeneralDefinitions is the definitions section of a product: files, light
// sources and geometries. Files is mandatory per schema; the others are
// optional blocks.
type GeneralDefinitions struct {
	Files        Files         `xml:"Files" json:"files"`
	LightSources *LightSources `xml:"LightSources,omitempty" json:"lightSources,omitempty"`
	Geometries   *Geometries   `xml:"Geometries,omitempty" json:"geometries,omitempty"`
}

// Image is a picture reference on a variant, pointing at an image file
// definition by id.
type Image struct {
	FileID    string `xml:"fileId,attr" json:"fileId"`
	ImageType string `xml:"imageType,attr,omitempty" json:"imageType,omitempty"`
}

// Variant is one sellable configuration of the product.
type Variant struct {
	ID          string   `xml:"id,attr" json:"id"`
	SortOrder   int      `xml:"sortOrder,attr,omitempty" json:"sortOrder,omitempty"`
	Name        []Locale `xml:"Name>Locale" json:"name,omitempty"`
	Description []Locale `xml:"Description>Locale" json:"description,omitempty"`
	Pictures    []Image  `xml:"Pictures>Image" json:"pictures,omitempty"`
}

// Variants is the ordered variant list.
type Variants struct {
	Variant []Variant `xml:"Variant" json:"variant,omitempty"`
}

// ProductMetaData carries localized product naming.
type ProductMetaData struct {
	ProductNumber []Locale `xml:"ProductNumber>Locale" json:"productNumber,omitempty"`
	Name          []Locale `xml:"Name>Locale" json:"name,omitempty"`
	Description   []Locale `xml:"Description>Locale" json:"description,omitempty"`
}

// ProductDefinitions is the product-facing section: metadata and variants.
type ProductDefinitions struct {
	ProductMetaData *ProductMetaData `xml:"ProductMetaData,omitempty" json:"productMetaData,omitempty"`
	Variants        *Variants        `xml:"Variants,omitempty" json:"variants,omitempty"`
}

// FormatVersion is the GLDF format version, written as a major/minor/
// pre-release attribute triple. Old files carry a plain text body such as
// "1.0.0-rc.3" instead; that form is accepted on input only.
type FormatVersion struct {
	Major      int `json:"major"`
	Minor      int `json:"minor"`
	PreRelease int `json:"preRelease,omitempty"`
}

// IsZero reports whether v carries no version at all.
func (v FormatVersion) IsZero() bool {
	return v.Major == 0 && v.Minor == 0 && v.PreRelease == 0
}

// String renders the semantic form, e.g. "1.0.0-rc.3". The zero value
// renders as the empty string.
func (v FormatVersion) String() string {
	if v.IsZero() {
		return ""
	}
	if v.PreRelease != 0 {
		return fmt.Sprintf("%d.%d.0-rc.%d", v.Major, v.Minor, v.PreRelease)
	}
	return fmt.Sprintf("%d.%d.0", v.Major, v.Minor)
}

// ParseFormatVersion parses a semantic-version-like string such as
// "1.0.0-rc.3" or "1.0". Unparseable components default to 1.0.
func ParseFormatVersion(s string) FormatVersion {
	s = strings.TrimSpace(s)
	if s == "" {
		return FormatVersion{}
	}
	v := FormatVersion{Major: 1, Minor: 0}
	base, pre, _ := strings.Cut(s, "-")
	parts := strings.Split(base, ".")
	if n, err := strconv.Atoi(parts[0]); err == nil {
		v.Major = n
	}
	if len(parts) > 1 {
		if n, err := strconv.Atoi(parts[1]); err == nil {
			v.Minor = n
		}
	}
	if pre != "" {
		// "rc.3" -> 3
		if i := strings.LastIndex(pre, "."); i >= 0 {
			pre = pre[i+1:]
		}
		if n, err := strconv.Atoi(pre); err == nil {
			v.PreRelease = n
		}
	}
	return v
}

// MarshalXML writes the attribute form. The zero value serializes as an
// empty element so a defaulted header stays all-empty on the wire.
func (v FormatVersion) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = start.Attr[:0]
	if !v.IsZero() {
		start.Attr = append(start.Attr,
			xml.Attr{Name: xml.Name{Local: "major"}, Value: strconv.Itoa(v.Major)},
			xml.Attr{Name: xml.Name{Local: "minor"}, Value: strconv.Itoa(v.Minor)},
		)
		if v.PreRelease != 0 {
			start.Attr = append(start.Attr,
				xml.Attr{Name: xml.Name{Local: "pre-release"}, Value: strconv.Itoa(v.PreRelease)})
		}
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// UnmarshalXML accepts both the attribute triple and the legacy text body.
// Attributes win when both are present.
func (v *FormatVersion) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var hasAttrs bool
	for _, a := range start.Attr {
		n, err := strconv.Atoi(a.Value)
		if err != nil {
			continue
		}
		switch a.Name.Local {
		case "major":
			v.Major = n
			hasAttrs = true
		case "minor":
			v.Minor = n
			hasAttrs = true
		case "pre-release":
			v.PreRelease = n
			hasAttrs = true
		}
	}
	var text string
	if err := d.DecodeElement(&text, &start); err != nil {
		return err
	}
	if !hasAttrs {
		*v = ParseFormatVersion(text)
	}
	return nil
}

// Header is the product header block. The schema-required fields serialize
// even when empty; UniqueGldfID and DefaultLanguage are omitted when unset.
type Header struct {
	Manufacturer           string        `xml:"Manufacturer" json:"manufacturer"`
	FormatVersion          FormatVersion `xml:"FormatVersion" json:"formatVersion"`
	CreatedWithApplication string        `xml:"CreatedWithApplication" json:"createdWithApplication"`
	CreationTimeCode       string        `xml:"GldfCreationTimeCode" json:"creationTimeCode"`
	UniqueGldfID           string        `xml:"UniqueGldfId,omitempty" json:"uniqueGldfId,omitempty"`
	DefaultLanguage        string        `xml:"DefaultLanguage,omitempty" json:"defaultLanguage,omitempty"`
	Author                 string        `xml:"Author" json:"author"`

	// Pre-1.0 files named the element CreationTimeCode. Captured on input
	// and folded into CreationTimeCode by normalize; never serialized.
	LegacyCreationTimeCode string `xml:"CreationTimeCode,omitempty" json:"-"`
}

// Product is the aggregate document root, serialized as the <Root> element
// of product.xml. It owns all child lists; children have no independent
// lifecycle.
type Product struct {
	XMLName            xml.Name           `xml:"Root" json:"-"`
	XMLNSXSI           string             `xml:"xmlns:xsi,attr,omitempty" json:"-"`
	SchemaLocation     string             `xml:"xsi:noNamespaceSchemaLocation,attr,omitempty" json:"-"`
	Header             Header             `xml:"Header" json:"header"`
	GeneralDefinitions GeneralDefinitions `xml:"GeneralDefinitions" json:"generalDefinitions"`
	ProductDefinitions ProductDefinitions `xml:"ProductDefinitions" json:"productDefinitions"`
}

// normalize applies the deterministic input defaults: legacy element names
// are folded into their current fields and schema attributes are pinned to
// the canonical values this package serializes.
func (p *Product) normalize() {
	if p.Header.CreationTimeCode == "" && p.Header.LegacyCreationTimeCode != "" {
		p.Header.CreationTimeCode = p.Header.LegacyCreationTimeCode
	}
	p.Header.LegacyCreationTimeCode = ""
	p.XMLName = xml.Name{Local: "Root"}
	p.XMLNSXSI = xmlnsXSI
	p.SchemaLocation = schemaLocation
}

// fileByID returns the file definition with the given id, or nil.
func (p *Product) fileByID(id string) *File {
	for i := range p.GeneralDefinitions.Files.File {
		if p.GeneralDefinitions.Files.File[i].ID == id {
			return &p.GeneralDefinitions.Files.File[i]
		}
	}
	return nil
}

// allIDs collects every id used anywhere in the product. Used for
// document-wide uniqueness checks and id generation.
func (p *Product) allIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, f := range p.GeneralDefinitions.Files.File {
		ids[f.ID] = struct{}{}
	}
	if ls := p.GeneralDefinitions.LightSources; ls != nil {
		for _, s := range ls.FixedLightSource {
			ids[s.ID] = struct{}{}
		}
		for _, s := range ls.ChangeableLightSource {
			ids[s.ID] = struct{}{}
		}
	}
	if g := p.GeneralDefinitions.Geometries; g != nil {
		for _, sg := range g.SimpleGeometry {
			ids[sg.ID] = struct{}{}
		}
		for _, mg := range g.ModelGeometry {
			ids[mg.ID] = struct{}{}
		}
	}
	if vs := p.ProductDefinitions.Variants; vs != nil {
		for _, v := range vs.Variant {
			ids[v.ID] = struct{}{}
		}
	}
	return ids
}

// MetaProperty is one name/value pair from meta-information.xml.
type MetaProperty struct {
	Name  string `xml:"name,attr" json:"name"`
	Value string `xml:",chardata" json:"value"`
}

// MetaInformation is the optional meta-information.xml entry: free-form
// properties written by signing and authoring tools.
type MetaInformation struct {
	XMLName  xml.Name       `xml:"MetaInformation" json:"-"`
	Property []MetaProperty `xml:"Property" json:"property,omitempty"`
}
