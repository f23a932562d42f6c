// Package run runs one connector for one account.
package run

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SomeAverageDev/konnectors/cmd/common"
	"github.com/SomeAverageDev/konnectors/cmd/root"
	"github.com/SomeAverageDev/konnectors/internal/config"
	"github.com/SomeAverageDev/konnectors/internal/konnector"
	"github.com/SomeAverageDev/konnectors/internal/models"
	"github.com/SomeAverageDev/konnectors/internal/scheduler"
	"github.com/SomeAverageDev/konnectors/internal/vendor"
)

// Flags of the run command.
type Flags struct {
	Vendor      string
	Login       string
	Password    string
	PasswordEnv string
	Folder      string
}

var flags Flags

// Cmd represents the run command
var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Run one connector",
	Long: `Run one connector: log into the vendor portal, store the bills that are
not known yet and link them to bank operations.

Example:
  konnectors run --vendor edf --login jane@example.org --password-env EDF_PASSWORD --folder /Administration/EDF`,
	RunE: runFunc,
}

func init() {
	Cmd.Flags().StringVar(&flags.Vendor, "vendor", "", "Vendor to run (edf, leclercdrive)")
	Cmd.Flags().StringVar(&flags.Login, "login", "", "Portal login")
	Cmd.Flags().StringVar(&flags.Password, "password", "", "Portal password")
	Cmd.Flags().StringVar(&flags.PasswordEnv, "password-env", "", "Environment variable holding the portal password")
	Cmd.Flags().StringVar(&flags.Folder, "folder", "", "Destination folder of the bills")
	_ = Cmd.MarkFlagRequired("vendor")
	_ = Cmd.MarkFlagRequired("folder")
}

func runFunc(cmd *cobra.Command, _ []string) error {
	appContainer := root.GetContainer()
	if appContainer == nil {
		return fmt.Errorf("container not initialized")
	}

	k, err := appContainer.Konnector(flags.Vendor)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := appContainer.GetScheduler().Run(ctx, scheduler.Job{Runner: k, Request: request(flags)})
	if err != nil {
		return err
	}

	if err := common.PrintResults(cmd.OutOrStdout(), []models.RunResult{result}); err != nil {
		return err
	}
	return result.Err
}

func request(f Flags) konnector.Request {
	cc := config.ConnectorConfig{Password: f.Password, PasswordEnv: f.PasswordEnv}
	return konnector.Request{
		Credentials: vendor.Credentials{Login: f.Login, Password: cc.ResolvedPassword()},
		Folder:      f.Folder,
	}
}
