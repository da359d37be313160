// Command oslhost runs an ACPI interpreter compiled to WebAssembly on a
// hosted machine described by a YAML file.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Set at build time with -ldflags "-X main.Version=...".
var (
	Version   = "dev"
	BuildTime = ""
	CommitID  = ""
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "oslhost:", err)
		os.Exit(1)
	}
}

// newRootCommand builds the command tree. Flags can also be set through
// OSLHOST_* environment variables, e.g. OSLHOST_METRICS_ADDR.
func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("oslhost")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "oslhost <command> [arguments]",
		Short:         "Run ACPI interpreters against hosted OS services.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example:       "oslhost run acpica.wasm --config machine.yaml --entry acpi_main",
	}

	rootCmd.AddCommand(newRunCommand(v))
	rootCmd.AddCommand(newValidateCommand(v))
	rootCmd.AddCommand(newSchemaCommand())
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Print version information.",
		Example: "oslhost version",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s-%s %s\n", Version, CommitID, BuildTime)
		},
	}
}
