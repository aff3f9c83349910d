package gldf

import (
	"fmt"
	"strings"
)

// ValidateProduct checks the structural invariants of a product: non-empty
// ids, id uniqueness within each list and across the whole document, and
// recognized file types. Reference integrity is deliberately not checked
// here; see CheckReferences.
func ValidateProduct(p *Product) error {
	if p == nil {
		return fmt.Errorf("%w: product is nil", ErrValidation)
	}
	seen := make(map[string]struct{})
	claim := func(kind, id string) error {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: %s has empty id", ErrValidation, kind)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s id %q used twice", ErrValidation, kind, id)
		}
		seen[id] = struct{}{}
		return nil
	}

	for _, f := range p.GeneralDefinitions.Files.File {
		if err := claim("file", f.ID); err != nil {
			return err
		}
		if f.Type != "" && !f.Type.Known() {
			return fmt.Errorf("%w: file %q has unknown type %q", ErrValidation, f.ID, f.Type)
		}
		if strings.TrimSpace(f.FileName) == "" {
			return fmt.Errorf("%w: file %q has empty file name", ErrValidation, f.ID)
		}
	}
	if ls := p.GeneralDefinitions.LightSources; ls != nil {
		for _, s := range ls.FixedLightSource {
			if err := claim("light source", s.ID); err != nil {
				return err
			}
		}
		for _, s := range ls.ChangeableLightSource {
			if err := claim("light source", s.ID); err != nil {
				return err
			}
		}
	}
	if g := p.GeneralDefinitions.Geometries; g != nil {
		for _, sg := range g.SimpleGeometry {
			if err := claim("geometry", sg.ID); err != nil {
				return err
			}
		}
		for _, mg := range g.ModelGeometry {
			if err := claim("geometry", mg.ID); err != nil {
				return err
			}
		}
	}
	if vs := p.ProductDefinitions.Variants; vs != nil {
		for _, v := range vs.Variant {
			if err := claim("variant", v.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReferenceProblem describes one dangling file reference.
type ReferenceProblem struct {
	Source   string // "variant picture" or "model geometry"
	SourceID string
	FileID   string
}

func (r ReferenceProblem) String() string {
	return fmt.Sprintf("%s %q references missing file %q", r.Source, r.SourceID, r.FileID)
}

// CheckReferences scans for references that point at file ids absent from
// the file definition list. Problems are advisory: parsing tolerates them
// and they only become errors on resolution (or under WithStrictReferences).
func CheckReferences(p *Product) []ReferenceProblem {
	if p == nil {
		return nil
	}
	defined := make(map[string]struct{}, len(p.GeneralDefinitions.Files.File))
	for _, f := range p.GeneralDefinitions.Files.File {
		defined[f.ID] = struct{}{}
	}

	var problems []ReferenceProblem
	if g := p.GeneralDefinitions.Geometries; g != nil {
		for _, mg := range g.ModelGeometry {
			for _, ref := range mg.GeometryFileReference {
				if _, ok := defined[ref.FileID]; !ok {
					problems = append(problems, ReferenceProblem{
						Source: "model geometry", SourceID: mg.ID, FileID: ref.FileID,
					})
				}
			}
		}
	}
	if vs := p.ProductDefinitions.Variants; vs != nil {
		for _, v := range vs.Variant {
			for _, pic := range v.Pictures {
				if _, ok := defined[pic.FileID]; !ok {
					problems = append(problems, ReferenceProblem{
						Source: "variant picture", SourceID: v.ID, FileID: pic.FileID,
					})
				}
			}
		}
	}
	return problems
}
