package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "codegen",
	Short: "codegen - a data-driven template compiler",
	Long: `codegen expands a structured schema document against a text template
containing embedded directives, producing generated source code,
configuration, or documentation.

Configuration file locations (in order of precedence):
  1. --config flag
  2. .codegen.yaml in current directory
  3. ~/.config/codegen/config.yaml`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .codegen.yaml)")

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".codegen")
	}

	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("CODEGEN")
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if _, notFound := err.(viper.ConfigFileNotFoundError); notFound {
		if home, herr := os.UserHomeDir(); herr == nil {
			viper.SetConfigFile(filepath.Join(home, ".config", "codegen", "config.yaml"))
			err = viper.ReadInConfig()
		}
	}
	if err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
