package main

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/logicossoftware/go-gldf"
)

func newNewCommand(ctx *commandContext) *cobra.Command {
	var manufacturer, author, application string

	cmd := &cobra.Command{
		Use:   "new <out.gldf>",
		Short: "Create a skeleton container with a fresh unique id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := gldf.NewEmpty()
			eng.SetManufacturer(manufacturer)
			eng.SetAuthor(author)
			eng.SetCreatedWithApplication(application)
			eng.SetFormatVersion("1.0.0-rc.3")
			eng.SetUniqueGldfID(uuid.NewString())
			eng.SetCreationTimeCode(time.Now().UTC().Format("2006-01-02T15:04:05"))

			f, err := os.Create(args[0])
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
			ctx.logger.Info("created container", "path", args[0], "id", eng.Header().UniqueGldfID)
			return nil
		},
	}

	cmd.Flags().StringVar(&manufacturer, "manufacturer", "", "Manufacturer name")
	cmd.Flags().StringVar(&author, "author", "", "Author name")
	cmd.Flags().StringVar(&application, "application", "gldf-cli", "Creating application name")
	return cmd
}
