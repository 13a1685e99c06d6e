package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamiazya/scopes/internal/ids"
	"github.com/kamiazya/scopes/internal/scope"
)

// NewCreateCommand creates a new scope, optionally under a parent.
func NewCreateCommand(opts *RootOptions) *cobra.Command {
	var parentRef string
	var description string

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			ctx := cmd.Context()

			var parentID *ids.ScopeID
			if parentRef != "" {
				id, err := app.resolveScope(ctx, parentRef)
				if err != nil {
					return err
				}
				parentID = &id
			}

			validation, err := app.Scopes.ValidateCreation(ctx, args[0], description, parentID)
			if err != nil {
				return err
			}
			if validation.HasErrors() {
				return validation
			}

			now := time.Now()
			s, err := scope.New(ids.NewScopeID(), parentID, args[0], description, now)
			if err != nil {
				return err
			}
			if err := app.Store.Scopes().Save(ctx, s); err != nil {
				return err
			}

			canonical, err := app.Aliases.EnsureCanonical(ctx, s.ID)
			if err != nil {
				return err
			}

			clock, _, err := app.nextClock(ctx, s.ID.String())
			if err != nil {
				return err
			}
			for _, ev := range s.ToEvents(ids.NewEventID(), clock) {
				if err := app.appendScopeEvent(ctx, ev); err != nil {
					return err
				}
			}

			return app.Out.Emit(
				map[string]string{
					"id":    s.ID.String(),
					"alias": canonical.Name.String(),
					"title": s.Title,
				},
				fmt.Sprintf("created %s (%s)", canonical.Name, s.ID),
			)
		},
	}

	cmd.Flags().StringVarP(&parentRef, "parent", "p", "", "parent scope (id or alias)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "scope description")
	return cmd
}
