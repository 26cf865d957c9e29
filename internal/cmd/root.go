package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kaizengine/shopfloor/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "shopfloor",
	Short: "BOM-driven parallel production pipeline",
	Long: `ShopFloor turns a bill-of-materials breakdown into work orders,
schedules them by dependency layer, and runs them in parallel on
isolated workstations backed by git worktrees. Quality gates inspect
every result and failed orders are re-enqueued for rework.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/shopfloor/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/shopfloor")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SHOPFLOOR")
	// Replace dots with underscores for nested keys in env vars
	// e.g., SHOPFLOOR_PRODUCTION_MAX_CYCLES for production.max_cycles
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
