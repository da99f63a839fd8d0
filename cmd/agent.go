package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Laeyoung/kanobot/internal/bus"
	"github.com/Laeyoung/kanobot/internal/channels"
	"github.com/Laeyoung/kanobot/internal/config"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Interact with the agent directly",
	RunE:  runAgent,
}

var (
	agentMessage string
	agentJam     bool
)

func init() {
	agentCmd.Flags().StringVarP(&agentMessage, "message", "m", "", "Message to send to the agent")
	agentCmd.Flags().BoolVar(&agentJam, "jam", false, "Force JAM (JustAnswerMe) mode")
	rootCmd.AddCommand(agentCmd)
}

// prepareInput applies the --jam flag or the same !jam//jam prefix convention
// the chat channels use.
func prepareInput(input string) (string, map[string]any) {
	if agentJam {
		return input, map[string]any{"mode": "jam"}
	}
	return channels.DetectJamPrefix(input, nil)
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	msgBus := bus.NewMessageBus()
	loop := makeAgentLoop(msgBus, cfg)

	if agentMessage != "" {
		content, md := prepareInput(agentMessage)
		resp, err := loop.ProcessDirect(context.Background(), content, "cli", "direct", md)
		if err != nil {
			return err
		}
		fmt.Println(resp)
		return nil
	}

	fmt.Println("🐈 kanobot interactive mode (type 'exit' or Ctrl+C to quit)")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nGoodbye!")
		cancel()
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	exitCommands := map[string]bool{
		"exit": true, "quit": true, "/exit": true, "/quit": true, ":q": true,
	}

	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if exitCommands[strings.ToLower(input)] {
			fmt.Println("Goodbye!")
			break
		}

		content, md := prepareInput(input)
		resp, err := loop.ProcessDirect(ctx, content, "cli", "direct", md)
		if err != nil {
			log.Error("agent error", "err", err)
			continue
		}
		fmt.Println()
		fmt.Println("🐈 kanobot")
		fmt.Println(resp)
		fmt.Println()
	}

	return nil
}
