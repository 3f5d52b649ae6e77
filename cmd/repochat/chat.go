package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var chatTopK int

var chatCmd = &cobra.Command{
	Use:   "chat <namespace> [question]",
	Short: "Ask questions about an indexed repository",
	Long: `Ask a question about an indexed repository. With a question argument
the answer is printed once; without one an interactive prompt starts.

Examples:
  # One-shot question
  repochat chat myproject "how is authentication implemented?"

  # Interactive session
  repochat chat myproject`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().IntVar(&chatTopK, "top-k", 0, "number of code chunks retrieved as context (default: configured value)")
}

func runChat(cmd *cobra.Command, args []string) error {
	namespace := args[0]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	engine, err := a.engine()
	if err != nil {
		return err
	}

	topK := chatTopK
	if topK == 0 {
		topK = a.cfg.LLM.TopK
	}

	ask := func(question string) error {
		answer, err := engine.Ask(cmd.Context(), question, namespace, topK)
		if err != nil {
			return err
		}
		fmt.Println(answer.Text)
		if len(answer.Sources) > 0 {
			fmt.Println("\nSources:")
			for _, src := range answer.Sources {
				fmt.Printf("  %s (chunk %d/%d, score %.2f)\n", src.Filepath, src.ChunkIndex, src.TotalChunks, src.Score)
			}
		}
		return nil
	}

	if len(args) == 2 {
		return ask(args[1])
	}

	// Interactive session. Empty line or EOF ends it.
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Printf("%s> ", namespace)
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			return nil
		}
		if err := ask(question); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		fmt.Println()
	}
}
