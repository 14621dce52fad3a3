package cli

import (
	"fmt"
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/relab/qbft/logging"
)

// rootCmd represents the base command when called without any subcommands
var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "qbft",
		Short: "A command-line utility for running QBFT consensus instances.",
		Long: `qbft is a command-line utility for running QBFT consensus instances
in a simulated group of operators.

To run an instance, use the 'qbft run' command.
By default, this command runs a group of four operators locally.
Use 'qbft help run' to view all possible parameters for this command.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return initLogging()
		},
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.qbft.yaml)")

	rootCmd.PersistentFlags().String("log-level", "info", "sets the log level (debug, info, warn, error)")
	cobra.CheckErr(viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")))
	rootCmd.PersistentFlags().StringSlice("log-pkgs", []string{}, "set the log level on a per-package basis (package:level)")
	cobra.CheckErr(viper.BindPFlag("log-pkgs", rootCmd.PersistentFlags().Lookup("log-pkgs")))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".qbft" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".qbft")
	}

	viper.SetEnvPrefix("qbft")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func initLogging() error {
	level := viper.GetString("log-level")
	if _, err := logging.ParseLevel(level); err != nil {
		return err
	}
	logging.SetLogLevel(level)

	for _, packageLevel := range viper.GetStringSlice("log-pkgs") {
		pkg, lvl, ok := strings.Cut(packageLevel, ":")
		if !ok {
			return fmt.Errorf("log-pkgs must be a comma-separated list of package:level strings, got %q", packageLevel)
		}
		if _, err := logging.ParseLevel(lvl); err != nil {
			return err
		}
		logging.SetPackageLogLevel(pkg, lvl)
	}
	return nil
}
