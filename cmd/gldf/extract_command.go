package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/logicossoftware/go-gldf"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var outDir string
	var onlyID string

	cmd := &cobra.Command{
		Use:   "extract <file.gldf>",
		Short: "Extract product.xml and embedded assets to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			eng, err := gldf.FromBytes(data)
			if err != nil {
				return err
			}
			if outDir == "" {
				base := filepath.Base(args[0])
				outDir = base[:len(base)-len(filepath.Ext(base))]
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			found := false
			if onlyID == "" {
				xmlText, err := eng.ToXML()
				if err != nil {
					return err
				}
				if err := os.WriteFile(filepath.Join(outDir, gldf.ProductEntryName), []byte(xmlText), 0o644); err != nil {
					return err
				}
			}

			for _, def := range eng.Files() {
				if onlyID != "" && def.ID != onlyID {
					continue
				}
				content, err := eng.FileContent(def.ID)
				if err != nil {
					if onlyID != "" {
						return err
					}
					ctx.logger.Debug("skipping file", "id", def.ID, "reason", err)
					continue
				}
				found = true
				entry := gldf.ZipPathForFile(def.ContentType, def.FileName)
				dest := filepath.Join(outDir, filepath.FromSlash(entry))
				if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(dest, content, 0o644); err != nil {
					return err
				}
				ctx.logger.Info("extracted", "id", def.ID, "path", dest, "bytes", len(content))
			}
			if onlyID != "" && !found {
				return fmt.Errorf("no file definition with id %q", onlyID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: input name without extension)")
	cmd.Flags().StringVar(&onlyID, "id", "", "Extract only the asset with this file definition id")
	return cmd
}
