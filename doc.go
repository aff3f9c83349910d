// Package gldf implements the GLDF (Global Lighting Data Format) container
// format for lighting product data.
//
// A GLDF file is a ZIP archive holding one structured product definition
// (product.xml), an optional meta-information.xml entry, and embedded binary
// assets such as photometry files (Eulumdat/IES), images and 3D models.
//
// # Format Overview
//
// A GLDF container consists of:
//   - product.xml: the product definition (header, file definitions, light
//     sources, geometries, variants)
//   - meta-information.xml: optional signing/tooling properties
//   - Asset entries referenced by file definitions, grouped into folders by
//     content type (ldc/, geo/, image/, ...)
//
// The product definition maps losslessly between its XML wire form and a
// JSON form whose field names mirror the in-memory model one-to-one.
//
// # Basic Usage
//
// To load and edit a GLDF file:
//
//	data, _ := os.ReadFile("luminaire.gldf")
//	eng, err := gldf.FromBytes(data)
//	if err != nil {
//		log.Fatal(err)
//	}
//	eng.SetAuthor("New Author")
//	xmlText, _ := eng.ToXML()
//
// To create a new product from scratch:
//
//	eng := gldf.NewEmpty()
//	err := eng.AddFile(gldf.File{
//		ID:          "ldc1",
//		ContentType: gldf.ContentTypeLDCEulumdat,
//		Type:        gldf.FileTypeLocal,
//		FileName:    "photometry.ldt",
//	})
//
// # Security Considerations
//
// The package includes built-in protection against oversized allocations via
// configurable [Limits]. Archive entry counts, entry sizes, product.xml size
// and history snapshot sizes are all enforced during decoding.
//
// # Concurrency
//
// An [Engine] and the product it owns are single-writer structures. The
// package performs no internal locking; callers sharing an Engine across
// goroutines must serialize access themselves. Independent Engine instances
// may be used fully in parallel.
package gldf
