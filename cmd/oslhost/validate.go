package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reglet-dev/acpica-osl/infrastructure/config"
)

func newValidateCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "validate",
		Short:   "Check a machine description without running anything.",
		Example: "oslhost validate --config machine.yaml --set rsdp=0xe0000",
		Args:    cobra.NoArgs,
		PreRunE: bindFlags(v),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if v.GetString("config") == "" {
				return fmt.Errorf("--config is required")
			}
			m, err := loadMachine(v)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d bytes physical memory, %d regions, %d PCI devices, %d ports\n",
				m.Memory.PhysicalSize, len(m.Memory.Regions), len(m.PCI), len(m.Ports))
			return nil
		},
	}
	machineFlags(cmd)
	return cmd
}

func newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "schema",
		Short:   "Print the JSON schema of machine descriptions.",
		Example: "oslhost schema > machine.schema.json",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}
