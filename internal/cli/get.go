package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamiazya/scopes/internal/scope"
)

// NewGetCommand shows one scope in full.
func NewGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <scope>",
		Short: "Show a scope",
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
			s, err := app.Store.Scopes().FindByID(ctx, id)
			if err != nil {
				return err
			}
			if s == nil {
				return &scope.Error{Code: scope.ErrCodeNotFound, Message: "scope does not exist", ScopeID: id.String()}
			}

			aliases, err := app.Aliases.List(ctx, id)
			if err != nil {
				return err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "id:          %s\n", s.ID)
			fmt.Fprintf(&b, "title:       %s\n", s.Title)
			if s.Description != "" {
				fmt.Fprintf(&b, "description: %s\n", s.Description)
			}
			if s.ParentID != nil {
				fmt.Fprintf(&b, "parent:      %s\n", s.ParentID)
			}
			for _, record := range aliases {
				fmt.Fprintf(&b, "alias:       %s (%s)\n", record.Name, strings.ToLower(string(record.Type)))
			}
			for _, key := range sortedAspectKeys(s) {
				values := make([]string, 0, len(s.Aspects[key]))
				for _, v := range s.Aspects[key] {
					values = append(values, v.String())
				}
				fmt.Fprintf(&b, "aspect:      %s = %s\n", key, strings.Join(values, ", "))
			}

			return app.Out.Emit(scopePayload(s, aliases), strings.TrimRight(b.String(), "\n"))
		},
	}
}
