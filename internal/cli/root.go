package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the operator CLI. Offline commands need no configuration;
// lookup and tag commands load the same environment as the API.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "callbridgectl",
		Short:        "Operator tools for the CRM to voice-agent call bridge",
		SilenceUsage: true,
	}

	cmd.AddCommand(newNormalizePhoneCmd())
	cmd.AddCommand(newFormatMetricCmd())
	cmd.AddCommand(newBusinessHoursCmd())

	cmd.AddCommand(newLookupEmailCmd())
	cmd.AddCommand(newLookupPhoneCmd())
	cmd.AddCommand(newTagCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
