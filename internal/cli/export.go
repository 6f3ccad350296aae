package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"genfity-order-reports/internal/export"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newExportCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the report as an xlsx or pdf file",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(v.GetString("format"))
			if err != nil {
				return err
			}
			r, err := newRun(cmd, v)
			if err != nil {
				return err
			}
			defer func() { _ = r.logger.Sync() }()

			artifact, _, err := r.service.Export(cmd.Context(), r.request, format)
			if err != nil {
				return err
			}

			dir := v.GetString("out-dir")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			target := filepath.Join(dir, artifact.Filename)
			if err := os.WriteFile(target, artifact.Body, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), target)
			return nil
		},
	}
	cmd.Flags().String("format", "xlsx", "output format: xlsx or pdf")
	cmd.Flags().String("out-dir", ".", "directory the report file is written to")
	_ = v.BindPFlags(cmd.Flags())
	return cmd
}
