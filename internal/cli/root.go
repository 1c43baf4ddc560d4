package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vonheldenundgestalten/tokenlogin/internal/config"
	"github.com/vonheldenundgestalten/tokenlogin/internal/logging"
)

var (
	configPath string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tokenlogin",
	Short: "Single-use email token login service",
	Long: `tokenlogin runs the magic-link login endpoint for a site's members:
tokens are minted out-of-band, presented once at /login/{token}, and
exchanged for a session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger = logging.Setup(cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(memberCmd)
	rootCmd.AddCommand(purgeCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
