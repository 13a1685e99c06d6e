package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamiazya/scopes/internal/scope"
)

// NewDeleteCommand deletes a scope. Scopes with children are rejected;
// there is no cascade.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <scope>",
		Short: "Delete a scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			ctx := cmd.Context()

			id, err := app.resolveScope(ctx, args[0])
			if err != nil {
				return err
			}
			exists, err := app.Store.Scopes().ExistsByID(ctx, id)
			if err != nil {
				return err
			}
			if !exists {
				return &scope.Error{Code: scope.ErrCodeNotFound, Message: "scope does not exist", ScopeID: id.String()}
			}

			if err := app.Scopes.ValidateDeletion(ctx, id); err != nil {
				return err
			}

			clock, version, err := app.nextClock(ctx, id.String())
			if err != nil {
				return err
			}
			deleted := scope.Deleted{EventHeader: app.header(id, version+1, clock, time.Now())}
			if err := app.appendScopeEvent(ctx, deleted); err != nil {
				return err
			}

			if err := app.Store.Scopes().Delete(ctx, id); err != nil {
				return err
			}
			return app.Out.Emit(map[string]string{"id": id.String()}, fmt.Sprintf("deleted %s", id))
		},
	}
}
