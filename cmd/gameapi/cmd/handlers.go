package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/leoska/gameapi/internal/methods"
)

var handlersOutput string

var handlersCmd = &cobra.Command{
	Use:   "handlers",
	Short: "List the registered API methods",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := buildRegistry(methods.Table())
		if err != nil {
			return err
		}
		return printNames(cmd.OutOrStdout(), reg.Names(), handlersOutput)
	},
}

func init() {
	handlersCmd.Flags().StringVarP(&handlersOutput, "output", "o", "table", "Output format: table, json")
}

func printNames(w io.Writer, names []string, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(names)
	case "table":
		fmt.Fprintf(w, "%-32s  %s\n", "NAME", "PATH")
		for _, name := range names {
			fmt.Fprintf(w, "%-32s  /api/%s.json\n", name, name)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
