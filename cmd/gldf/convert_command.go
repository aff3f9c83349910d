package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/logicossoftware/go-gldf"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Convert between container, XML and JSON forms",
		Long: `Convert reads a .gldf container, a product.xml document or a product
JSON document and writes the target form. The target is inferred from the
output extension (.gldf, .xml, .json) unless --to overrides it. Converting
to .gldf repacks embedded assets when the input was a container.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inPath, outPath := args[0], args[1]
			data, err := os.ReadFile(inPath)
			if err != nil {
				return err
			}

			eng, err := loadEngine(data, inPath)
			if err != nil {
				return err
			}

			target := format
			if target == "" {
				target = strings.TrimPrefix(filepath.Ext(outPath), ".")
			}

			var out []byte
			switch target {
			case "xml":
				s, err := eng.ToXML()
				if err != nil {
					return err
				}
				out = []byte(s)
			case "json":
				s, err := eng.ToPrettyJSON()
				if err != nil {
					return err
				}
				out = []byte(s)
			case "gldf":
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				if err := eng.Pack(f); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				ctx.logger.Info("wrote container", "path", outPath)
				return nil
			default:
				return fmt.Errorf("unknown target format %q (want gldf, xml or json)", target)
			}

			if err := os.WriteFile(outPath, out, 0o644); err != nil {
				return err
			}
			ctx.logger.Info("converted", "from", inPath, "to", outPath, "format", target)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "to", "", "Target format: gldf, xml or json (default: by output extension)")
	return cmd
}

// loadEngine sniffs the input form: ZIP container, JSON document or XML.
func loadEngine(data []byte, path string) (*gldf.Engine, error) {
	switch {
	case len(data) >= 2 && data[0] == 'P' && data[1] == 'K':
		return gldf.FromBytes(data)
	case strings.EqualFold(filepath.Ext(path), ".json"):
		return gldf.FromProductJSON(string(data))
	default:
		p, err := gldf.ParseProductXML(data)
		if err != nil {
			return nil, err
		}
		return gldf.FromProduct(p), nil
	}
}
