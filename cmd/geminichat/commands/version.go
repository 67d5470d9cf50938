package commands

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/geminichat/internal/output"
	"github.com/jmylchreest/geminichat/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		formatStr, _ := cmd.Flags().GetString("format")
		w, err := output.NewWriter(cmd.OutOrStdout(), output.Format(formatStr))
		if err != nil {
			return err
		}

		var item any = version.Get()
		if output.Format(formatStr) == output.FormatText {
			item = version.Full()
		}
		if err := w.Write(item); err != nil {
			return err
		}
		return w.Close()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().String("format", "text", "output format: text, json, yaml")
}
