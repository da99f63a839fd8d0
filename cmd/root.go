package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "kanobot",
	Short: "kanobot: personal AI assistant with a forced-decision mode",
	Long:  "kanobot is a personal AI assistant that answers on Telegram, Discord, and Slack, and refuses to sit on the fence when you ask it to JustAnswerMe.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
}
