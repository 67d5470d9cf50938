package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/geminichat/internal/output"
	"github.com/jmylchreest/geminichat/pkg/llm"
)

type providerInfo struct {
	Name         string `json:"name" yaml:"name"`
	DefaultModel string `json:"default_model" yaml:"default_model"`
	KeySet       bool   `json:"key_set" yaml:"key_set"`
	Detected     bool   `json:"detected" yaml:"detected"`
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the available providers",
	Long: `List the registered providers, their default models, whether an API key
was found in the environment, and which one would be picked automatically.`,
	RunE: runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
	providersCmd.Flags().String("format", "text", "output format: text, json, yaml")
}

func runProviders(cmd *cobra.Command, _ []string) error {
	detected, _ := llm.DetectProvider()

	var infos []providerInfo
	for _, name := range llm.AvailableProviders() {
		infos = append(infos, providerInfo{
			Name:         name,
			DefaultModel: llm.GetDefaultModel(name),
			KeySet:       llm.HasAPIKey(name),
			Detected:     name == detected,
		})
	}

	formatStr, _ := cmd.Flags().GetString("format")
	if output.Format(formatStr) != output.FormatText {
		w, err := output.NewWriter(cmd.OutOrStdout(), output.Format(formatStr))
		if err != nil {
			return err
		}
		items := make([]any, len(infos))
		for i, info := range infos {
			items[i] = info
		}
		if err := w.WriteAll(items); err != nil {
			return err
		}
		return w.Close()
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PROVIDER\tDEFAULT MODEL\tKEY\t")
	for _, info := range infos {
		key := "-"
		if info.KeySet {
			key = "set"
		}
		marker := ""
		if info.Detected {
			marker = "(auto)"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Name, info.DefaultModel, key, marker)
	}
	return tw.Flush()
}
