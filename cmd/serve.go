package cmd

import (
	"fmt"
	"os"

	"github.com/loomlabs/loom/pkg/config"
	"github.com/loomlabs/loom/pkg/mockserver"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the embedded development chat backend",
	Long: `Serve runs a local stand-in for the real chat backend. It answers the
streaming chat endpoint with scripted replies and keeps conversation
history in memory, which is enough to exercise the client offline.`,
	Run: func(cmd *cobra.Command, args []string) {
		settings := config.Get()

		server := mockserver.New(
			mockserver.WithChunkDelay(settings.Serve.ChunkDelay),
		)

		addr := viper.GetString("serve.addr")
		fmt.Printf("Development server listening on %s\n", addr)
		if err := server.ListenAndServe(addr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "", "listen address")
	viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}
