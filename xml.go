package gldf

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// Matches the <Root ...> open tag only: the char after "Root" must end
	// the tag or start attributes, and quoted attribute values may contain
	// ">" without ending the match.
	rootTagRe = regexp.MustCompile(`<Root(?:[\s/](?:[^>"']|"[^"]*"|'[^']*')*)?>`)
	xmlDeclRe = regexp.MustCompile(`(?s)^\s*<\?xml.*?\?>`)
)

// ParseProductXML parses product.xml bytes into a Product.
//
// Real-world GLDF files are messy: the parser strips UTF-8 and UTF-16 byte
// order marks, honors encoding declarations, and ignores whatever namespace
// attributes the root element carries. Missing optional elements default to
// zero values. Structurally invalid input fails with ErrMalformedXML and
// undecodable text with ErrEncoding; a Document is never partially
// populated.
func ParseProductXML(data []byte, opts ...ReadOption) (*Product, error) {
	cfg := readConfig{limits: defaultLimits()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()
	if uint64(len(data)) > cfg.limits.MaxProductXMLSize {
		return nil, fmt.Errorf("%w: product.xml is %d bytes", ErrLimitExceeded, len(data))
	}

	text, err := normalizeUnicode(data)
	if err != nil {
		return nil, err
	}
	text = sanitizeRootTag(text)

	var p Product
	if err := decodeXML(text, &p); err != nil {
		return nil, err
	}
	p.normalize()
	if err := checkListLimits(&p, cfg.limits); err != nil {
		return nil, err
	}
	if cfg.strictRefs {
		if problems := CheckReferences(&p); len(problems) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedReference, problems[0])
		}
	}
	return &p, nil
}

// MarshalProductXML serializes a Product as pretty-printed product.xml with
// the canonical schema attributes on the root element. Element and attribute
// order is a pure function of the model's field and list order, so repeated
// serialization of an unchanged Product is byte-identical.
func MarshalProductXML(p *Product) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: product is nil", ErrValidation)
	}
	out := *p
	out.XMLName = xml.Name{Local: "Root"}
	out.XMLNSXSI = xmlnsXSI
	out.SchemaLocation = schemaLocation
	body, err := xml.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
	}
	buf := make([]byte, 0, len(xml.Header)+len(body)+1)
	buf = append(buf, xml.Header...)
	buf = append(buf, body...)
	return append(buf, '\n'), nil
}

// ParseMetaXML parses an optional meta-information.xml entry.
func ParseMetaXML(data []byte) (*MetaInformation, error) {
	text, err := normalizeUnicode(data)
	if err != nil {
		return nil, err
	}
	var mi MetaInformation
	if err := decodeXML(text, &mi); err != nil {
		return nil, err
	}
	mi.XMLName = xml.Name{Local: "MetaInformation"}
	return &mi, nil
}

// MarshalMetaXML serializes a MetaInformation document.
func MarshalMetaXML(mi *MetaInformation) ([]byte, error) {
	if mi == nil {
		return nil, fmt.Errorf("%w: meta information is nil", ErrValidation)
	}
	out := *mi
	out.XMLName = xml.Name{Local: "MetaInformation"}
	body, err := xml.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
	}
	buf := make([]byte, 0, len(xml.Header)+len(body)+1)
	buf = append(buf, xml.Header...)
	buf = append(buf, body...)
	return append(buf, '\n'), nil
}

func decodeXML(text []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(text))
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		r, err := charset.NewReaderLabel(label, input)
		if err != nil {
			return nil, fmt.Errorf("%w: charset %q", ErrEncoding, label)
		}
		return r, nil
	}
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, ErrEncoding) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrMalformedXML, err)
	}
	return nil
}

// normalizeUnicode strips a UTF-8 BOM and converts UTF-16 input (detected by
// BOM) to UTF-8. Bytes without a BOM pass through untouched so declared
// non-Unicode charsets still reach the decoder's CharsetReader intact.
func normalizeUnicode(data []byte) ([]byte, error) {
	hadUTF16BOM := len(data) >= 2 &&
		((data[0] == 0xFE && data[1] == 0xFF) || (data[0] == 0xFF && data[1] == 0xFE))

	t := unicode.BOMOverride(encoding.Nop.NewDecoder())
	out, _, err := transform.Bytes(t, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	if hadUTF16BOM {
		// The declaration still says UTF-16; drop it so the decoder reads
		// the converted bytes as UTF-8.
		out = xmlDeclRe.ReplaceAll(out, nil)
	}
	return out, nil
}

// sanitizeRootTag rewrites the first <Root ...> open tag to a bare <Root>,
// keeping a self-closing tag self-closing. GLDF producers disagree about
// schema locations and namespace prefixes on the root element; none of them
// affect the document content.
func sanitizeRootTag(data []byte) []byte {
	loc := rootTagRe.FindIndex(data)
	if loc == nil {
		return data
	}
	repl := "<Root>"
	if bytes.HasSuffix(data[loc[0]:loc[1]], []byte("/>")) {
		repl = "<Root/>"
	}
	out := make([]byte, 0, len(data))
	out = append(out, data[:loc[0]]...)
	out = append(out, repl...)
	return append(out, data[loc[1]:]...)
}

func checkListLimits(p *Product, limits Limits) error {
	if n := len(p.GeneralDefinitions.Files.File); n > limits.MaxFiles {
		return fmt.Errorf("%w: %d file definitions", ErrLimitExceeded, n)
	}
	if ls := p.GeneralDefinitions.LightSources; ls != nil {
		if n := len(ls.FixedLightSource) + len(ls.ChangeableLightSource); n > limits.MaxLightSources {
			return fmt.Errorf("%w: %d light sources", ErrLimitExceeded, n)
		}
	}
	if g := p.GeneralDefinitions.Geometries; g != nil {
		if n := len(g.SimpleGeometry) + len(g.ModelGeometry); n > limits.MaxGeometries {
			return fmt.Errorf("%w: %d geometries", ErrLimitExceeded, n)
		}
	}
	if vs := p.ProductDefinitions.Variants; vs != nil {
		if n := len(vs.Variant); n > limits.MaxVariants {
			return fmt.Errorf("%w: %d variants", ErrLimitExceeded, n)
		}
	}
	return nil
}
