package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamiazya/scopes/internal/ids"
	"github.com/kamiazya/scopes/internal/store"
	syncpkg "github.com/kamiazya/scopes/internal/sync"
)

// NewSyncCommand runs one sync round against a remote device's database
// file (local transport: the other device's store on shared or removable
// storage).
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	var remotePath string
	var strategy string

	cmd := &cobra.Command{
		Use:   "sync <device-id>",
		Short: "Synchronize with a remote device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			device, err := ids.NewDeviceID(args[0])
			if err != nil {
				return err
			}
			if remotePath == "" {
				return WrapExitError(ExitCommandError, "--remote is required", nil)
			}

			remote, err := store.Open(remotePath)
			if err != nil {
				return WrapExitError(ExitCommandError, "open remote database", err)
			}
			defer remote.Close()

			policy := syncpkg.Policy{Strategy: syncpkg.Strategy(strategy)}
			orchestrator := app.NewOrchestrator(store.NewLocalTransport(remote), policy)

			ctx, cancel := context.WithTimeout(cmd.Context(), app.Config.TransportTimeout.Std())
			defer cancel()

			result, err := orchestrator.SyncWith(ctx, device)
			if err != nil {
				return err
			}

			return app.Out.Emit(
				map[string]any{
					"device":    result.DeviceID.String(),
					"status":    string(result.Status),
					"pushed":    result.Pushed,
					"pulled":    result.Pulled,
					"conflicts": result.ConflictsDetected,
					"deferred":  result.ConflictsDeferred,
				},
				fmt.Sprintf("synced with %s: pushed %d, pulled %d, %d conflict(s)",
					result.DeviceID, result.Pushed, result.Pulled, result.ConflictsDetected),
			)
		},
	}

	cmd.Flags().StringVarP(&remotePath, "remote", "r", "", "path to the remote device's database")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", string(syncpkg.StrategyManual),
		"conflict strategy (LAST_WRITE_WINS|KEEP_LOCAL|KEEP_REMOTE|MANUAL|MERGE)")
	return cmd
}
