package cli

import (
	"github.com/spf13/cobra"

	"outliner-cli/internal/config"
	"outliner-cli/internal/render"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.text() {
				return app.writeOut(cmd, out(app.cfg, nil))
			}
			b, err := app.cfg.TOML()
			if err != nil {
				return writeErr(cmd, err)
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration unless one exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrCreate(app.cfg.Dir())
			if err != nil {
				return writeErr(cmd, err)
			}
			app.cfg = cfg
			return app.writeOut(cmd, out(map[string]any{"path": cfg.Path()}, func(p *render.Printer) error {
				return p.Message("config at %s", cfg.Path())
			}))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.writeOut(cmd, out(map[string]any{"path": app.cfg.Path()}, func(p *render.Printer) error {
				return p.Message("%s", app.cfg.Path())
			}))
		},
	})
	return cmd
}
