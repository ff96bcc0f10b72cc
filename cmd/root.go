// Package cmd implements the roulette command line.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/teslashibe/go-roulette/internal/config"
	"github.com/teslashibe/go-roulette/internal/log"
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// app carries state shared by subcommands. Flags that override config keys
// are bound to v.
type app struct {
	v          *viper.Viper
	configPath string
}

// load reads the configuration and initializes logging.
func (a *app) load() (config.Config, error) {
	cfg, err := config.LoadWith(a.v, a.configPath)
	if err != nil {
		return config.Config{}, err
	}
	log.Init(cfg.LogLevel)
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "roulette",
		Short:         "Predict where a roulette ball will land from a video feed",
		Long:          "roulette locates the wheel and ball in camera frames, tracks the ball's angular velocity and simulates its deceleration to predict the resting pocket.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./roulette.yaml or ~/.config/roulette/roulette.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(a),
		newSimulateCmd(a),
		newStatusCmd(),
		newBrowseCmd(),
	)

	return rootCmd
}
