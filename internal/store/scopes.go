package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/kamiazya/scopes/internal/aspect"
	"github.com/kamiazya/scopes/internal/ids"
	"github.com/kamiazya/scopes/internal/scope"
)

// ScopeRepository implements scope.Repository over the store.
type ScopeRepository struct {
	s *Store
}

// Scopes returns the scope repository view of the store.
func (s *Store) Scopes() *ScopeRepository {
	return &ScopeRepository{s: s}
}

const scopeColumns = "id, parent_id, title, description, aspects, version, created_at, updated_at"

// FindByID returns the scope, nil when absent.
func (r *ScopeRepository) FindByID(ctx context.Context, id ids.ScopeID) (*scope.Scope, error) {
	row := r.s.db.QueryRowContext(ctx, `
		SELECT `+scopeColumns+` FROM scopes WHERE id = ?
	`, id.String())
	out, err := scanScope(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find scope", err)
	}
	return out, nil
}

// FindHierarchyDepth walks parent pointers with a recursive CTE and returns
// the number of ancestors above the scope.
func (r *ScopeRepository) FindHierarchyDepth(ctx context.Context, id ids.ScopeID) (int, error) {
	var depth int
	err := r.s.db.QueryRowContext(ctx, `
		WITH RECURSIVE ancestors(id, depth) AS (
			SELECT parent_id, 0 FROM scopes WHERE id = ?
			UNION ALL
			SELECT s.parent_id, a.depth + 1 FROM scopes s
			JOIN ancestors a ON s.id = a.id
			WHERE a.id IS NOT NULL
		)
		SELECT COALESCE(MAX(depth), 0) FROM ancestors
	`, id.String()).Scan(&depth)
	if err != nil {
		return 0, wrapErr("find hierarchy depth", err)
	}
	return depth, nil
}

// AncestorPath returns the IDs from the scope up to the root, scope first.
func (r *ScopeRepository) AncestorPath(ctx context.Context, id ids.ScopeID) ([]ids.ScopeID, error) {
	rows, err := r.s.db.QueryContext(ctx, `
		WITH RECURSIVE chain(id, depth) AS (
			SELECT id, 0 FROM scopes WHERE id = ?
			UNION ALL
			SELECT s.parent_id, c.depth + 1 FROM scopes s
			JOIN chain c ON s.id = c.id
			WHERE s.parent_id IS NOT NULL
		)
		SELECT id FROM chain ORDER BY depth ASC
	`, id.String())
	if err != nil {
		return nil, wrapErr("ancestor path", err)
	}
	defer rows.Close()

	var path []ids.ScopeID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, wrapErr("ancestor path", err)
		}
		parsed, err := ids.ParseScopeID(raw)
		if err != nil {
			return nil, wrapErr("ancestor path", err)
		}
		path = append(path, parsed)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("ancestor path", err)
	}
	return path, nil
}

// CountByParentID counts direct children; nil parent counts roots.
func (r *ScopeRepository) CountByParentID(ctx context.Context, parentID *ids.ScopeID) (int, error) {
	var count int
	var err error
	if parentID == nil {
		err = r.s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM scopes WHERE parent_id IS NULL`).Scan(&count)
	} else {
		err = r.s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM scopes WHERE parent_id = ?`, parentID.String()).Scan(&count)
	}
	if err != nil {
		return 0, wrapErr("count children", err)
	}
	return count, nil
}

// ExistsByParentIDAndTitle reports whether a sibling with the normalized
// title exists under parentID (nil for roots).
func (r *ScopeRepository) ExistsByParentIDAndTitle(ctx context.Context, parentID *ids.ScopeID, normalizedTitle string) (bool, error) {
	var one int
	var err error
	if parentID == nil {
		err = r.s.db.QueryRowContext(ctx,
			`SELECT 1 FROM scopes WHERE parent_id IS NULL AND title_norm = ?`, normalizedTitle).Scan(&one)
	} else {
		err = r.s.db.QueryRowContext(ctx,
			`SELECT 1 FROM scopes WHERE parent_id = ? AND title_norm = ?`, parentID.String(), normalizedTitle).Scan(&one)
	}
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, wrapErr("check sibling title", err)
	}
	return true, nil
}

// ExistsByID reports whether the scope exists.
func (r *ScopeRepository) ExistsByID(ctx context.Context, id ids.ScopeID) (bool, error) {
	var one int
	err := r.s.db.QueryRowContext(ctx, `SELECT 1 FROM scopes WHERE id = ?`, id.String()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, wrapErr("check scope", err)
	}
	return true, nil
}

// ListByParentID returns direct children in title order; nil parent lists
// roots.
func (r *ScopeRepository) ListByParentID(ctx context.Context, parentID *ids.ScopeID) ([]*scope.Scope, error) {
	var rows *sql.Rows
	var err error
	if parentID == nil {
		rows, err = r.s.db.QueryContext(ctx,
			`SELECT `+scopeColumns+` FROM scopes WHERE parent_id IS NULL ORDER BY title_norm ASC`)
	} else {
		rows, err = r.s.db.QueryContext(ctx,
			`SELECT `+scopeColumns+` FROM scopes WHERE parent_id = ? ORDER BY title_norm ASC`, parentID.String())
	}
	if err != nil {
		return nil, wrapErr("list scopes", err)
	}
	defer rows.Close()

	var out []*scope.Scope
	for rows.Next() {
		s, err := scanScope(rows)
		if err != nil {
			return nil, wrapErr("list scopes", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list scopes", err)
	}
	return out, nil
}

// Save inserts a new scope row.
func (r *ScopeRepository) Save(ctx context.Context, s *scope.Scope) error {
	aspects, err := marshalAspects(s.Aspects)
	if err != nil {
		return wrapErr("save scope", err)
	}
	_, err = r.s.db.ExecContext(ctx, `
		INSERT INTO scopes (id, parent_id, title, title_norm, description, aspects, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.ID.String(),
		parentArg(s.ParentID),
		s.Title,
		scope.NormalizeTitle(s.Title),
		s.Description,
		aspects,
		s.Version,
		formatTime(s.CreatedAt),
		formatTime(s.UpdatedAt),
	)
	if err != nil {
		return wrapErr("save scope", err)
	}
	return nil
}

// Update persists a mutated scope row.
func (r *ScopeRepository) Update(ctx context.Context, s *scope.Scope) error {
	aspects, err := marshalAspects(s.Aspects)
	if err != nil {
		return wrapErr("update scope", err)
	}
	_, err = r.s.db.ExecContext(ctx, `
		UPDATE scopes
		SET parent_id = ?, title = ?, title_norm = ?, description = ?, aspects = ?, version = ?, updated_at = ?
		WHERE id = ?
	`,
		parentArg(s.ParentID),
		s.Title,
		scope.NormalizeTitle(s.Title),
		s.Description,
		aspects,
		s.Version,
		formatTime(s.UpdatedAt),
		s.ID.String(),
	)
	if err != nil {
		return wrapErr("update scope", err)
	}
	return nil
}

// Delete removes a scope row and its aliases in one transaction.
func (r *ScopeRepository) Delete(ctx context.Context, id ids.ScopeID) error {
	return r.s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM aliases WHERE scope_id = ?`, id.String()); err != nil {
			return wrapErr("delete scope aliases", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM scopes WHERE id = ?`, id.String()); err != nil {
			return wrapErr("delete scope", err)
		}
		return nil
	})
}

// scanScope reads one scope row.
func scanScope(row interface{ Scan(...any) error }) (*scope.Scope, error) {
	var (
		rawID       string
		rawParent   sql.NullString
		title       string
		description string
		rawAspects  string
		version     int64
		createdAt   string
		updatedAt   string
	)
	if err := row.Scan(&rawID, &rawParent, &title, &description, &rawAspects, &version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	id, err := ids.ParseScopeID(rawID)
	if err != nil {
		return nil, err
	}
	out := &scope.Scope{ID: id, Title: title, Description: description, Version: version}

	if rawParent.Valid {
		parent, err := ids.ParseScopeID(rawParent.String)
		if err != nil {
			return nil, err
		}
		out.ParentID = &parent
	}
	if out.Aspects, err = unmarshalAspects(rawAspects); err != nil {
		return nil, err
	}
	if out.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if out.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return out, nil
}

func parentArg(parentID *ids.ScopeID) any {
	if parentID == nil {
		return nil
	}
	return parentID.String()
}

// marshalAspects serializes an aspect map as JSON with string keys and
// string-list values. Keys marshal sorted, so equal maps serialize equal.
func marshalAspects(aspects map[aspect.Key][]aspect.Value) (string, error) {
	m := make(map[string][]string, len(aspects))
	for k, values := range aspects {
		list := make([]string, len(values))
		for i, v := range values {
			list[i] = v.String()
		}
		m[k.String()] = list
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalAspects(raw string) (map[aspect.Key][]aspect.Value, error) {
	if raw == "" || raw == "{}" {
		return make(map[aspect.Key][]aspect.Value), nil
	}
	var m map[string][]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	out := make(map[aspect.Key][]aspect.Value, len(m))
	for k, list := range m {
		values := make([]aspect.Value, len(list))
		for i, v := range list {
			values[i] = aspect.Value(v)
		}
		out[aspect.Key(k)] = values
	}
	return out, nil
}
