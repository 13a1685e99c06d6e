package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamiazya/scopes/internal/alias"
	"github.com/kamiazya/scopes/internal/filter"
	"github.com/kamiazya/scopes/internal/ids"
)

// NewListCommand lists scopes, filtered by the active context or an ad-hoc
// filter expression.
func NewListCommand(opts *RootOptions) *cobra.Command {
	var parentRef string
	var filterSrc string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scopes",
		Args:  cobra.NoArgs,
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

			var expr filter.Expr
			if filterSrc != "" {
				if expr, err = filter.Parse(filterSrc); err != nil {
					return err
				}
			} else if active := app.Contexts.Get(); active != nil {
				if expr, err = active.Expr(); err != nil {
					return err
				}
			}

			scopes, err := app.Store.Scopes().ListByParentID(ctx, parentID)
			if err != nil {
				return err
			}

			var lines []string
			var payload []map[string]any
			for _, s := range scopes {
				if expr != nil {
					match, err := filter.Evaluate(expr, s.Aspects, app.Registry)
					if err != nil {
						return err
					}
					if !match {
						continue
					}
				}
				canonical, err := app.Store.Aliases().FindCanonicalByScopeID(ctx, s.ID)
				if err != nil {
					return err
				}
				lines = append(lines, describeScope(s, canonical))
				var records []alias.Record
				if canonical != nil {
					records = append(records, *canonical)
				}
				payload = append(payload, scopePayload(s, records))
			}

			if len(lines) == 0 {
				return app.Out.Emit([]any{}, "no scopes")
			}
			return app.Out.Emit(payload, strings.Join(lines, "\n"))
		},
	}

	cmd.Flags().StringVarP(&parentRef, "parent", "p", "", "list children of this scope (id or alias)")
	cmd.Flags().StringVarP(&filterSrc, "filter", "f", "", "filter expression (overrides the active context)")
	return cmd
}
