package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/loomlabs/loom/pkg/config"
	"github.com/loomlabs/loom/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Terminal client for streaming chat backends",
	Long: `Loom is a terminal chat client for backends that stream replies as
server-sent chunk records. It renders assistant text as it arrives,
shows tool output separately, and keeps conversations resumable
through the backend's history API.`,
	Run: func(cmd *cobra.Command, args []string) {
		prompt := viper.GetString("prompt")
		threadID := viper.GetString("thread")

		if prompt != "" {
			runOnce(prompt, threadID)
			return
		}
		if err := runRepl(context.Background(), threadID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is .loom/settings.yaml)")

	rootCmd.PersistentFlags().StringP("server", "s", "", "chat backend base URL")
	viper.BindPFlag("server.url", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.Flags().StringP("prompt", "p", "", "send a single prompt and exit")
	viper.BindPFlag("prompt", rootCmd.Flags().Lookup("prompt"))

	rootCmd.Flags().StringP("thread", "t", "", "resume an existing conversation thread")
	viper.BindPFlag("thread", rootCmd.Flags().Lookup("thread"))

	rootCmd.Flags().Bool("no-color", false, "disable styled output")
	viper.BindPFlag("no_color", rootCmd.Flags().Lookup("no-color"))
}

func initConfig() {
	settings, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	level := logger.ParseLevel(settings.Logging.Level)
	if err := logger.Init(level, settings.Logging.LogFile, settings.Logging.Preserve); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
}
