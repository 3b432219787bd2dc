package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/loomlabs/loom/pkg/config"
	"github.com/loomlabs/loom/pkg/history"
	"github.com/loomlabs/loom/pkg/render"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored conversations",
	Run: func(cmd *cobra.Command, args []string) {
		client := historyClient()
		conversations, err := client.List(context.Background())
		exitOnError(err)

		if len(conversations) == 0 {
			fmt.Println("No conversations yet.")
			return
		}
		for _, conv := range conversations {
			fmt.Printf("%s  %s  %s\n", conv.ThreadID, conv.LastMessageTS, conv.Preview)
		}
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <thread>",
	Short: "Print the full transcript of a conversation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := historyClient()
		transcript, err := client.Messages(context.Background(), args[0])
		exitOnError(err)

		settings := config.Get()
		color := settings.Render.Color && !viper.GetBool("no_color")
		renderer := render.NewRenderer(color, settings.Render.SyntaxTheme)
		fmt.Print(renderer.Transcript(transcript))
	},
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <thread>",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := historyClient()
		exitOnError(client.Delete(context.Background(), args[0]))
		fmt.Printf("Deleted conversation %s\n", args[0])
	},
}

func historyClient() *history.Client {
	return history.NewClient(config.Get().Server.URL)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyRmCmd)
	rootCmd.AddCommand(historyCmd)
}
