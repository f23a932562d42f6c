// Package vendors lists the supported vendors.
package vendors

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/SomeAverageDev/konnectors/internal/factory"
)

// Cmd represents the vendors command
var Cmd = &cobra.Command{
	Use:   "vendors",
	Short: "List supported vendors and their linking tolerances",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printVendors(cmd.OutOrStdout())
	},
}

func printVendors(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "VENDOR\tTYPE\tIDENTIFIER\tDAYS\tAMOUNT DELTA")
	for _, vt := range factory.Vendors() {
		def, err := factory.GetDefinition(vt)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d..%d\t%s\n",
			def.Vendor, def.BillType, def.Link.Identifier,
			def.Link.MinDateDelta, def.Link.MaxDateDelta, def.Link.AmountDelta.String())
	}
	return tw.Flush()
}
