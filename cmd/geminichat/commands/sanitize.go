package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/geminichat/internal/logger"
	"github.com/jmylchreest/geminichat/pkg/sanitize"
)

var sanitizeCmd = &cobra.Command{
	Use:   "sanitize [file...]",
	Short: "Clean a raw model reply read from files or stdin",
	Long: `Run the response sanitizer without calling a model.

Input is decoded of HTML entities, code fences become labelled plain-text
blocks, surrounding whitespace is trimmed, runs of blank lines collapse, and
the result is HTML-escaped.

Examples:
  geminichat sanitize < reply.txt
  geminichat sanitize reply1.txt reply2.txt`,
	RunE: runSanitize,
}

func init() {
	rootCmd.AddCommand(sanitizeCmd)
}

func runSanitize(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd); err != nil {
		return err
	}
	logger.Init(logger.Options{
		Debug: viper.GetBool("log.debug"),
		Quiet: viper.GetBool("log.quiet"),
		JSON:  viper.GetBool("log.json"),
	})

	pipeline := sanitize.Pipeline()
	logger.Debug("sanitizer pipeline", "stages", pipeline.Name())

	if len(args) == 0 {
		return sanitizeStream(cmd, "stdin", cmd.InOrStdin())
	}
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			logger.Error("failed to open input", "path", path, "error", err)
			return err
		}
		err = sanitizeStream(cmd, path, f)
		_ = f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func sanitizeStream(cmd *cobra.Command, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		logger.Error("failed to read input", "source", name, "error", err)
		return fmt.Errorf("reading %s: %w", name, err)
	}

	out := sanitize.Sanitize(string(data))
	logger.Debug("sanitized",
		"source", name,
		"in", humanize.Bytes(uint64(len(data))),
		"out", humanize.Bytes(uint64(len(out))),
	)

	if _, err := fmt.Fprintln(cmd.OutOrStdout(), out); err != nil {
		return err
	}
	return nil
}
