package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	cfgFile      string
)

var rootCmd = &cobra.Command{
	Use:   "apfs-btree",
	Short: "Read-only inspector for the APFS B-tree engine",
	Long: `apfs-btree loads a raw APFS block device or image and walks its
B-tree structures: object map nodes, free-queue nodes, and catalog nodes.

It never mounts a volume or modifies a device; it only parses and prints
the on-disk B-tree format this repository implements.`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./apfs-btree-config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "quiet mode (the btree subcommands print their output regardless)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (the btree subcommands print plain text regardless)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))

	rootCmd.AddCommand(btreeCmd)
}

// initConfig reads in a config file and environment variables, matching
// the precedence order (flag > env > file > default) viper gives for
// free once bound.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("apfs-btree-config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.apfs-btree")
	}

	viper.SetDefault("block_size", 4096)
	viper.SetEnvPrefix("APFS_BTREE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v\n", err)
		}
	}
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quiet
}

// GetOutputFormat returns the output format
func GetOutputFormat() string {
	return outputFormat
}
