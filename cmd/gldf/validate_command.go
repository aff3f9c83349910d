package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/logicossoftware/go-gldf"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <file.gldf|file.xml>",
		Short: "Check structural invariants and file references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			p, err := loadProduct(data, strict)
			if err != nil {
				return err
			}
			if err := gldf.ValidateProduct(p); err != nil {
				return err
			}
			problems := gldf.CheckReferences(p)
			for _, prob := range problems {
				ctx.logger.Warn(prob.String())
			}
			if len(problems) > 0 {
				return fmt.Errorf("%d dangling file reference(s)", len(problems))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail parsing on dangling file references")
	return cmd
}

// loadProduct accepts either a full container or bare product.xml. ZIP input
// starts with the "PK" local header magic.
func loadProduct(data []byte, strict bool) (*gldf.Product, error) {
	opts := []gldf.ReadOption{gldf.WithStrictReferences(strict)}
	if len(data) >= 2 && data[0] == 'P' && data[1] == 'K' {
		a, err := gldf.OpenArchive(data)
		if err != nil {
			return nil, err
		}
		xmlBytes, err := a.ReadEntry(gldf.ProductEntryName)
		if err != nil {
			return nil, err
		}
		return gldf.ParseProductXML(xmlBytes, opts...)
	}
	return gldf.ParseProductXML(data, opts...)
}
