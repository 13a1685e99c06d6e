package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamiazya/scopes/internal/aspect"
	"github.com/kamiazya/scopes/internal/scope"
)

// NewAspectCommand groups the aspect subcommands.
func NewAspectCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aspect",
		Short: "Manage scope aspects",
	}
	cmd.AddCommand(newAspectSetCommand(opts))
	cmd.AddCommand(newAspectRemoveCommand(opts))
	cmd.AddCommand(newAspectShowCommand(opts))
	cmd.AddCommand(newAspectListCommand(opts))
	cmd.AddCommand(newAspectValidateCommand(opts))
	return cmd
}

// loadScope resolves and fetches a scope for the aspect subcommands.
func loadScope(app *App, cmd *cobra.Command, ref string) (*scope.Scope, error) {
	id, err := app.resolveScope(cmd.Context(), ref)
	if err != nil {
		return nil, err
	}
	s, err := app.Store.Scopes().FindByID(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, &scope.Error{Code: scope.ErrCodeNotFound, Message: "scope does not exist", ScopeID: id.String()}
	}
	return s, nil
}

// persistAspects validates the scope's aspects, stores them, and appends
// the change event.
func persistAspects(app *App, cmd *cobra.Command, s *scope.Scope, key aspect.Key) error {
	ctx := cmd.Context()

	if err := app.Registry.ValidateAll(s.Aspects); err != nil {
		return err
	}

	now := time.Now()
	clock, version, err := app.nextClock(ctx, s.ID.String())
	if err != nil {
		return err
	}
	ev := scope.AspectsChanged{
		EventHeader: app.header(s.ID, version+1, clock, now),
		Key:         key,
		Values:      s.Aspects[key],
	}
	if err := app.appendScopeEvent(ctx, ev); err != nil {
		return err
	}

	s.Version = version + 1
	s.UpdatedAt = now
	return app.Store.Scopes().Update(ctx, s)
}

func newAspectSetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <scope> <key:value>...",
		Short: "Set aspect values on a scope",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			s, err := loadScope(app, cmd, args[0])
			if err != nil {
				return err
			}

			// Entries for the same key accumulate into a value list.
			byKey := make(map[aspect.Key][]aspect.Value)
			var order []aspect.Key
			for _, entry := range args[1:] {
				key, value, err := aspect.ParseEntry(entry)
				if err != nil {
					return err
				}
				if _, seen := byKey[key]; !seen {
					order = append(order, key)
				}
				byKey[key] = append(byKey[key], value)
			}

			now := time.Now()
			for _, key := range order {
				s.SetAspect(key, byKey[key], now)
				if err := persistAspects(app, cmd, s, key); err != nil {
					return err
				}
			}

			return app.Out.Emit(
				map[string]string{"id": s.ID.String()},
				fmt.Sprintf("set %d aspect(s) on %s", len(order), s.ID),
			)
		},
	}
}

func newAspectRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <scope> <key>...",
		Short: "Remove aspects from a scope",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			s, err := loadScope(app, cmd, args[0])
			if err != nil {
				return err
			}

			now := time.Now()
			for _, raw := range args[1:] {
				key := aspect.Key(raw)
				s.RemoveAspect(key, now)
				if err := persistAspects(app, cmd, s, key); err != nil {
					return err
				}
			}

			return app.Out.Emit(
				map[string]string{"id": s.ID.String()},
				fmt.Sprintf("removed %d aspect(s) from %s", len(args)-1, s.ID),
			)
		},
	}
}

func newAspectShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <scope>",
		Short: "Show a scope's aspects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			s, err := loadScope(app, cmd, args[0])
			if err != nil {
				return err
			}

			if len(s.Aspects) == 0 {
				return app.Out.Emit(map[string]any{}, "no aspects")
			}

			var lines []string
			payload := make(map[string][]string)
			for _, key := range sortedAspectKeys(s) {
				values := make([]string, 0, len(s.Aspects[key]))
				for _, v := range s.Aspects[key] {
					values = append(values, v.String())
				}
				lines = append(lines, fmt.Sprintf("%s = %s", key, strings.Join(values, ", ")))
				payload[key.String()] = values
			}
			return app.Out.Emit(payload, strings.Join(lines, "\n"))
		},
	}
}

func newAspectListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the defined aspects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			defs := app.Registry.Definitions()
			if len(defs) == 0 {
				return app.Out.Emit([]any{}, "no aspect definitions")
			}

			var lines []string
			var payload []map[string]any
			for _, d := range defs {
				lines = append(lines, fmt.Sprintf("%-16s %-10s %s", d.Key, typeName(d.Type), d.Description))
				payload = append(payload, map[string]any{
					"key":           d.Key.String(),
					"type":          typeName(d.Type),
					"description":   d.Description,
					"allowMultiple": d.AllowMultiple,
				})
			}
			return app.Out.Emit(payload, strings.Join(lines, "\n"))
		},
	}
}

func newAspectValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scope>",
		Short: "Validate a scope's aspects against their definitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			s, err := loadScope(app, cmd, args[0])
			if err != nil {
				return err
			}
			if err := app.Registry.ValidateAll(s.Aspects); err != nil {
				return err
			}
			return app.Out.Emit(map[string]bool{"valid": true}, "all aspects valid")
		},
	}
}

// typeName renders an aspect type for display.
func typeName(t aspect.Type) string {
	switch t.(type) {
	case aspect.Ordered:
		return "ordered"
	case aspect.Numeric:
		return "numeric"
	case aspect.Boolean:
		return "boolean"
	case aspect.Text:
		return "text"
	case aspect.Duration:
		return "duration"
	default:
		return "unknown"
	}
}
