package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/muniops/internal/gateway"
)

var (
	planRefresh bool
	planOutput  string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Resolve and show the session plan",
	Long:  "Resolves the subscription plan for the configured identity and prints the session diagnostics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		env.Gateway.Initialize(ctx)
		if planRefresh {
			env.Gateway.ForceRefresh(ctx)
		}

		return writeDebugInfo(os.Stdout, env.Gateway.DebugInfo(), planOutput)
	},
}

func init() {
	planCmd.Flags().BoolVar(&planRefresh, "refresh", false, "discard the resolved plan and look it up again")
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "yaml", "output format: json or yaml")
	rootCmd.AddCommand(planCmd)
}

// writeDebugInfo renders info to w in the given format.
func writeDebugInfo(w io.Writer, info gateway.DebugInfo, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(info), "plan: encode json")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(info); err != nil {
			return eris.Wrap(err, "plan: encode yaml")
		}
		return eris.Wrap(enc.Close(), "plan: encode yaml")
	default:
		return eris.Errorf("plan: unsupported output format %q", format)
	}
}
