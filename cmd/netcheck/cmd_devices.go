package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/netcheck-network/netcheck/pkg/cli"
	"github.com/netcheck-network/netcheck/pkg/inventory"
)

func newDevicesCmd() *cobra.Command {
	var invPath string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List inventory devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := inventory.LoadFile(invPath)
			if err != nil {
				return err
			}
			tbl := cli.NewTable(os.Stdout, "DEVICE", "HOST", "PORT", "VENDOR", "USER")
			for _, name := range inv.Names() {
				d := inv.Devices[name]
				port := d.Port
				if port == 0 {
					port = 22
				}
				tbl.Row(name, d.Host, fmt.Sprintf("%d", port), d.Vendor, d.User)
			}
			tbl.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&invPath, "inventory", "i", "inventory.yaml", "inventory YAML file")
	return cmd
}
