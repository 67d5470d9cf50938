package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/geminichat/internal/chat"
	"github.com/jmylchreest/geminichat/internal/logger"
	"github.com/jmylchreest/geminichat/internal/output"
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Send one prompt and print the cleaned response",
	Long: `Send a single prompt to the configured provider and print the response.

The prompt is taken from the arguments, or from stdin when no arguments are
given or the only argument is "-".

Examples:
  geminichat ask "Suggest beautiful places to see on an upcoming road trip"
  geminichat ask -p anthropic --format yaml "Brainstorm team bonding activities"
  cat main.go | geminichat ask --raw`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	flags := askCmd.Flags()
	addProviderFlags(flags)

	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "text", "output format: text, json, jsonl, yaml")
	flags.Bool("raw", false, "print the model text without sanitizing it")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	prompt, err := readPrompt(cmd, args)
	if err != nil {
		logger.Error("failed to read prompt", "error", err)
		return err
	}

	raw, _ := cmd.Flags().GetBool("raw")
	session, err := newSession(cfg, rawCleaner(raw))
	if err != nil {
		logger.Error("failed to create session", "error", err)
		return err
	}

	formatStr, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()
	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			logger.Error("failed to create output file", "path", outPath, "error", err)
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	writer, err := output.NewWriter(out, output.Format(formatStr))
	if err != nil {
		logger.Error("failed to create output writer", "format", formatStr, "error", err)
		return err
	}
	defer func() { _ = writer.Close() }()

	res, err := session.Ask(ctx, prompt)
	if errors.Is(err, chat.ErrEmptyPrompt) {
		err = errors.New("a prompt is required: pass it as arguments or on stdin")
		logger.Error("no prompt", "error", err)
		return err
	}
	if err != nil {
		logger.Error("request failed", "provider", session.Provider().Name(), "error", err)
		return err
	}

	logger.Debug("response received",
		"model", res.Model,
		"size", humanize.Bytes(uint64(len(res.Raw))),
		"duration", res.Duration(),
		"cached", res.Cached,
	)

	if err := writer.Write(res); err != nil {
		logger.Error("failed to write output", "error", err)
		return err
	}
	return writer.Flush()
}

func readPrompt(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}
