// Package ledger manages the bank operations used to link bills.
package ledger

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SomeAverageDev/konnectors/cmd/root"
	"github.com/SomeAverageDev/konnectors/internal/ledger"
	"github.com/SomeAverageDev/konnectors/internal/logging"
)

var delimiter string

// Cmd represents the ledger command
var Cmd = &cobra.Command{
	Use:   "ledger",
	Short: "Manage bank operations",
	Long:  `Manage the bank operations that bills are linked to.`,
}

var importCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Import bank operations from CSV files",
	Long: `Import bank operations from CSV statements into the store.

The CSV header must name the columns id, date, amount, label and account.
Operations already imported are skipped, so a statement can be imported again.

Example:
  konnectors ledger import statements/2024-01.csv statements/2024-02.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: importFunc,
}

func init() {
	importCmd.Flags().StringVarP(&delimiter, "delimiter", "d", "", "CSV delimiter (default: ledger.delimiter)")
	Cmd.AddCommand(importCmd)
}

func importFunc(cmd *cobra.Command, args []string) error {
	appContainer := root.GetContainer()
	if appContainer == nil {
		return fmt.Errorf("container not initialized")
	}
	logger := appContainer.GetLogger()

	delim := appContainer.GetConfig().LedgerDelimiter()
	if delimiter != "" {
		r := []rune(delimiter)
		if len(r) != 1 {
			return fmt.Errorf("delimiter must be a single character, got: %s", delimiter)
		}
		delim = r[0]
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	total := 0
	for _, path := range args {
		ops, err := ledger.ReadCSVFile(path, delim)
		if err != nil {
			return err
		}
		n, err := appContainer.GetStore().ImportOperations(ctx, ops)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		logger.Info("Imported bank operations",
			logging.F(logging.FieldFile, path),
			logging.F(logging.FieldCount, n),
			logging.F("skipped", len(ops)-n))
		total += n
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d bank operations imported\n", total)
	return nil
}
