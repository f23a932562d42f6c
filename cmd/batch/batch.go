// Package batch runs every configured connector.
package batch

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SomeAverageDev/konnectors/cmd/common"
	"github.com/SomeAverageDev/konnectors/cmd/root"
	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/scheduler"
)

var vendorFilter []string

// Cmd represents the batch command
var Cmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch run the configured connectors",
	Long: `Batch run every connector listed under "connectors" in the configuration.

Connectors run concurrently up to run.parallelism.
Connectors for the same vendor and folder never run at the same time.
A failing connector does not stop the others; the command fails when any of
them failed.

Example:
  konnectors batch --config config.yaml --vendor edf`,
	RunE: batchFunc,
}

func init() {
	Cmd.Flags().StringSliceVar(&vendorFilter, "vendor", nil, "Only run connectors of these vendors")
}

func batchFunc(cmd *cobra.Command, _ []string) error {
	appContainer := root.GetContainer()
	if appContainer == nil {
		return fmt.Errorf("container not initialized")
	}
	logger := appContainer.GetLogger()

	jobs, err := appContainer.Jobs()
	if err != nil {
		return err
	}
	jobs = filterJobs(jobs, vendorFilter)
	if len(jobs) == 0 {
		logger.Warn("No connector to run")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger.Info("Batch started", logging.F(logging.FieldCount, len(jobs)))
	results, err := appContainer.GetScheduler().RunBatch(ctx, jobs)
	if err != nil {
		return err
	}

	if err := common.PrintResults(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	return common.FirstError(results)
}

func filterJobs(jobs []scheduler.Job, vendors []string) []scheduler.Job {
	if len(vendors) == 0 {
		return jobs
	}
	keep := make(map[string]bool, len(vendors))
	for _, v := range vendors {
		keep[v] = true
	}
	var out []scheduler.Job
	for _, j := range jobs {
		if keep[j.Runner.Vendor()] {
			out = append(out, j)
		}
	}
	return out
}
