package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/logicossoftware/go-gldf"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <file.gldf>",
		Short: "Show header, file definitions and aggregate counts",
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

			if asJSON {
				out := struct {
					Header gldf.Header `json:"header"`
					Stats  gldf.Stats  `json:"stats"`
					Files  []gldf.File `json:"files"`
				}{eng.Header(), eng.Stats(), eng.Files()}
				b, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}

			h := eng.Header()
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Field", "Value"},
				[][]string{
					{"Manufacturer", h.Manufacturer},
					{"Format version", h.FormatVersion.String()},
					{"Created with", h.CreatedWithApplication},
					{"Creation time", h.CreationTimeCode},
					{"Unique GLDF id", h.UniqueGldfID},
					{"Default language", h.DefaultLanguage},
					{"Author", h.Author},
				},
				nil,
			))

			s := eng.Stats()
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Count", "Value"},
				[][]string{
					{"Files", strconv.Itoa(s.Files)},
					{"Photometric files", strconv.Itoa(s.PhotometricFiles)},
					{"Fixed light sources", strconv.Itoa(s.FixedLightSources)},
					{"Changeable light sources", strconv.Itoa(s.ChangeableLightSources)},
					{"Variants", strconv.Itoa(s.Variants)},
					{"Simple geometries", strconv.Itoa(s.SimpleGeometries)},
					{"Model geometries", strconv.Itoa(s.ModelGeometries)},
					{"Embedded assets", strconv.Itoa(s.EmbeddedFiles)},
					{"Embedded bytes", strconv.Itoa(s.EmbeddedBytes)},
				},
				[]columnAlignment{alignLeft, alignRight},
			))

			files := eng.Files()
			if len(files) > 0 {
				rows := make([][]string, 0, len(files))
				for _, f := range files {
					embedded := "-"
					if eng.HasEmbeddedFile(f.ID) {
						embedded = "yes"
					} else if f.Type.IsURL() {
						embedded = "url"
					}
					rows = append(rows, []string{f.ID, f.ContentType, string(f.Type), f.FileName, embedded})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"File ID", "Content type", "Type", "Name", "Embedded"},
					rows, nil,
				))
			}

			ctx.logger.Debug("inspected container", "path", args[0], "files", s.Files)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON instead of tables")
	return cmd
}
