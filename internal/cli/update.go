package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamiazya/scopes/internal/ids"
	"github.com/kamiazya/scopes/internal/scope"
)

// NewUpdateCommand changes a scope's title, description, or parent.
func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	var title string
	var description string
	var parentRef string
	var toRoot bool

	cmd := &cobra.Command{
		Use:   "update <scope>",
		Short: "Update a scope",
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

			now := time.Now()
			var events []scope.Event

			if cmd.Flags().Changed("title") {
				validTitle, err := scope.ValidateTitle(title)
				if err != nil {
					return err
				}
				duplicate, err := app.Store.Scopes().ExistsByParentIDAndTitle(ctx, s.ParentID, scope.NormalizeTitle(validTitle))
				if err != nil {
					return err
				}
				if duplicate && scope.NormalizeTitle(validTitle) != scope.NormalizeTitle(s.Title) {
					return &scope.Error{
						Code:    scope.ErrCodeDuplicateTitle,
						Message: "a sibling with this title already exists",
						ScopeID: s.ID.String(),
					}
				}
				s.Title = validTitle
				events = append(events, scope.TitleChanged{Title: validTitle})
			}

			if cmd.Flags().Changed("description") {
				validDescription, err := scope.ValidateDescription(description)
				if err != nil {
					return err
				}
				s.Description = validDescription
				events = append(events, scope.DescriptionChanged{Description: validDescription})
			}

			if toRoot || parentRef != "" {
				var newParent *ids.ScopeID
				if !toRoot {
					parent, err := app.resolveScope(ctx, parentRef)
					if err != nil {
						return err
					}
					newParent = &parent
				}
				if err := app.Scopes.ValidateMove(ctx, s.ID, newParent); err != nil {
					return err
				}
				s.ParentID = newParent
				events = append(events, scope.ParentChanged{ParentID: newParent})
			}

			if len(events) == 0 {
				return app.Out.Emit(map[string]string{"id": s.ID.String()}, "nothing to update")
			}

			clock, version, err := app.nextClock(ctx, s.ID.String())
			if err != nil {
				return err
			}
			for i, ev := range events {
				h := app.header(s.ID, version+int64(i)+1, clock, now)
				switch e := ev.(type) {
				case scope.TitleChanged:
					e.EventHeader = h
					ev = e
				case scope.DescriptionChanged:
					e.EventHeader = h
					ev = e
				case scope.ParentChanged:
					e.EventHeader = h
					ev = e
				}
				if err := app.appendScopeEvent(ctx, ev); err != nil {
					return err
				}
			}

			s.Version = version + int64(len(events))
			s.UpdatedAt = now
			if err := app.Store.Scopes().Update(ctx, s); err != nil {
				return err
			}

			return app.Out.Emit(
				map[string]string{"id": s.ID.String(), "title": s.Title},
				fmt.Sprintf("updated %s", s.ID),
			)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVarP(&parentRef, "parent", "p", "", "move under this scope (id or alias)")
	cmd.Flags().BoolVar(&toRoot, "root", false, "move to the top level")
	return cmd
}
