// Package bills lists the stored bills.
package bills

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/SomeAverageDev/konnectors/cmd/common"
	"github.com/SomeAverageDev/konnectors/cmd/root"
	"github.com/SomeAverageDev/konnectors/internal/dateutils"
	"github.com/SomeAverageDev/konnectors/internal/store"
)

// ListFlags of the bills list command.
type ListFlags struct {
	Vendor   string
	Folder   string
	From     string
	To       string
	Unlinked bool
	Format   string
}

var listFlags ListFlags

// Cmd represents the bills command
var Cmd = &cobra.Command{
	Use:   "bills",
	Short: "Inspect stored bills",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored bills",
	Long: `List the stored bills in date order.

Example:
  konnectors bills list --vendor edf --from 2024-01-01 --unlinked --format csv`,
	RunE: listFunc,
}

func init() {
	listCmd.Flags().StringVar(&listFlags.Vendor, "vendor", "", "Only bills of this vendor")
	listCmd.Flags().StringVar(&listFlags.Folder, "folder", "", "Only bills of this folder")
	listCmd.Flags().StringVar(&listFlags.From, "from", "", "Only bills dated on or after this day")
	listCmd.Flags().StringVar(&listFlags.To, "to", "", "Only bills dated on or before this day")
	listCmd.Flags().BoolVar(&listFlags.Unlinked, "unlinked", false, "Only bills not linked to a bank operation")
	listCmd.Flags().StringVarP(&listFlags.Format, "format", "f", common.FormatTable, "Output format: table, csv or yaml")
	Cmd.AddCommand(listCmd)
}

func listFunc(cmd *cobra.Command, _ []string) error {
	appContainer := root.GetContainer()
	if appContainer == nil {
		return fmt.Errorf("container not initialized")
	}

	filter, err := billFilter(listFlags)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	bills, err := appContainer.GetStore().ListBills(ctx, filter)
	if err != nil {
		return err
	}
	return common.WriteBills(cmd.OutOrStdout(), bills, listFlags.Format, appContainer.GetConfig().LedgerDelimiter())
}

func billFilter(f ListFlags) (store.BillFilter, error) {
	filter := store.BillFilter{Vendor: f.Vendor, Folder: f.Folder}
	var err error
	if filter.From, err = parseDay(f.From); err != nil {
		return filter, fmt.Errorf("invalid --from: %w", err)
	}
	if filter.To, err = parseDay(f.To); err != nil {
		return filter, fmt.Errorf("invalid --to: %w", err)
	}
	if f.Unlinked {
		linked := false
		filter.Linked = &linked
	}
	return filter, nil
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, _, err := dateutils.ParseDate(s)
	return t, err
}
