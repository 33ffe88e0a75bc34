package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/terraconstructs/herbledger/cmd/herbledger/cmd/batch"
	"github.com/terraconstructs/herbledger/cmd/herbledger/cmd/roles"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/config"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/logging"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "herbledger",
	Short: "Permissioned custody ledger for staged herb batches",
	Long: `herbledger records the custody chain of herb batches through four ordered
stages (collector, middleman, lab, manufacturer). Each stage slot holds a
content id written once by a principal holding the matching role.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger = logging.Setup(cfg.Debug, cfg.Observability.ServiceName)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to a YAML config file")
	flags.String("db-url", "", "Database connection URL (env: HERB_DATABASE_URL)")
	flags.String("server-addr", "", "Server bind address (env: HERB_SERVER_ADDR)")
	flags.String("server-url", "", "Public server base URL (env: HERB_SERVER_URL)")
	flags.String("admin", "", "Administrator principal (env: HERB_ADMIN_PRINCIPAL)")
	flags.Bool("debug", false, "Enable debug logging (env: HERB_DEBUG)")

	_ = viper.BindPFlag("database_url", flags.Lookup("db-url"))
	_ = viper.BindPFlag("server_addr", flags.Lookup("server-addr"))
	_ = viper.BindPFlag("server_url", flags.Lookup("server-url"))
	_ = viper.BindPFlag("admin_principal", flags.Lookup("admin"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))

	rootCmd.AddCommand(roles.RolesCmd)
	rootCmd.AddCommand(batch.BatchCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
