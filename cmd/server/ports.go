package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"topomap/internal/domain"
)

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports [device-type]",
		Short: "List device types, or the ports of one type",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if len(args) == 0 {
				fmt.Fprintln(w, "TYPE\tNAME\tPORTS")
				for _, t := range domain.DeviceTypes {
					fmt.Fprintf(w, "%s\t%s\t%d\n", t, t.DisplayName(), len(domain.PortTemplate(t)))
				}
				return nil
			}

			t := domain.DeviceType(args[0])
			if !t.Valid() {
				return fmt.Errorf("unknown device type %q", args[0])
			}
			fmt.Fprintln(w, "PORT\tTYPE\tSPEED")
			for _, p := range domain.PortTemplate(t) {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Type, p.Speed)
			}
			return nil
		},
	}
}
