package store

import (
	"context"
	"database/sql"

	"github.com/kamiazya/scopes/internal/contextview"
)

// ContextViewRepository implements contextview.Repository over the store.
type ContextViewRepository struct {
	s *Store
}

// ContextViews returns the context-view repository view of the store.
func (s *Store) ContextViews() *ContextViewRepository {
	return &ContextViewRepository{s: s}
}

const viewColumns = "id, view_key, name, filter, created_at, updated_at"

// FindByID returns the view, nil when absent.
func (r *ContextViewRepository) FindByID(ctx context.Context, id string) (*contextview.View, error) {
	return r.findOne(ctx, `SELECT `+viewColumns+` FROM context_views WHERE id = ?`, id)
}

// FindByKey returns the view with the given key, nil when absent.
func (r *ContextViewRepository) FindByKey(ctx context.Context, key contextview.Key) (*contextview.View, error) {
	return r.findOne(ctx, `SELECT `+viewColumns+` FROM context_views WHERE view_key = ?`, key.String())
}

// FindByName returns the view with the given name, nil when absent.
func (r *ContextViewRepository) FindByName(ctx context.Context, name string) (*contextview.View, error) {
	return r.findOne(ctx, `SELECT `+viewColumns+` FROM context_views WHERE name = ?`, name)
}

// FindAll returns every view in key order.
func (r *ContextViewRepository) FindAll(ctx context.Context) ([]contextview.View, error) {
	rows, err := r.s.db.QueryContext(ctx,
		`SELECT `+viewColumns+` FROM context_views ORDER BY view_key ASC`)
	if err != nil {
		return nil, wrapErr("list context views", err)
	}
	defer rows.Close()

	var out []contextview.View
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, wrapErr("scan context view", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate context views", err)
	}
	return out, nil
}

// ExistsByKey reports whether a view with the key exists.
func (r *ContextViewRepository) ExistsByKey(ctx context.Context, key contextview.Key) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM context_views WHERE view_key = ?`, key.String())
}

// ExistsByName reports whether a view with the name exists.
func (r *ContextViewRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM context_views WHERE name = ?`, name)
}

// Save upserts a view row.
func (r *ContextViewRepository) Save(ctx context.Context, v *contextview.View) error {
	_, err := r.s.db.ExecContext(ctx, `
		INSERT INTO context_views (id, view_key, name, filter, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			view_key = excluded.view_key,
			name = excluded.name,
			filter = excluded.filter,
			updated_at = excluded.updated_at
	`,
		v.ID,
		v.Key.String(),
		v.Name,
		v.Filter,
		formatTime(v.CreatedAt),
		formatTime(v.UpdatedAt),
	)
	if err != nil {
		return wrapErr("save context view", err)
	}
	return nil
}

// DeleteByID removes a view row.
func (r *ContextViewRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.s.db.ExecContext(ctx, `DELETE FROM context_views WHERE id = ?`, id)
	if err != nil {
		return wrapErr("delete context view", err)
	}
	return nil
}

func (r *ContextViewRepository) findOne(ctx context.Context, query string, arg any) (*contextview.View, error) {
	row := r.s.db.QueryRowContext(ctx, query, arg)
	v, err := scanView(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find context view", err)
	}
	return v, nil
}

func (r *ContextViewRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var one int
	err := r.s.db.QueryRowContext(ctx, query, arg).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, wrapErr("check context view", err)
	}
	return true, nil
}

func scanView(row interface{ Scan(...any) error }) (*contextview.View, error) {
	var (
		v         contextview.View
		rawKey    string
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&v.ID, &rawKey, &v.Name, &v.Filter, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	v.Key = contextview.Key(rawKey)

	var err error
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if v.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}
