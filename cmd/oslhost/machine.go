package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reglet-dev/acpica-osl/host"
	"github.com/reglet-dev/acpica-osl/infrastructure/config"
)

// machineFlags registers the flags every command reading a machine
// description shares. Commands bind their flags to v in PreRunE, so the
// command that runs owns the keys.
func machineFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "machine description (YAML); defaults apply when empty")
	cmd.Flags().StringSlice("set", nil, "template value as key=value, repeatable")
	cmd.Flags().Bool("strict-templates", true, "fail on template keys missing from --set")
}

func bindFlags(v *viper.Viper) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return v.BindPFlags(cmd.Flags())
	}
}

// loadMachine reads the description named by --config.
func loadMachine(v *viper.Viper) (*config.Machine, error) {
	path := v.GetString("config")
	if path == "" {
		m := config.Default()
		return &m, nil
	}

	values, err := parseValues(v.GetStringSlice("set"))
	if err != nil {
		return nil, err
	}
	loader := host.NewLoader(host.WithStrictTemplates(v.GetBool("strict-templates")))
	return loader.LoadMachineFile(path, values)
}

// parseValues turns key=value pairs into template values. Integers, in
// any base strconv accepts, become uint64 so templates can format them.
func parseValues(pairs []string) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: want key=value", pair)
		}
		if n, err := strconv.ParseUint(value, 0, 64); err == nil {
			values[key] = n
			continue
		}
		values[key] = value
	}
	return values, nil
}
