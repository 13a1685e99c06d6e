package store

import (
	"context"
	"database/sql"

	"github.com/kamiazya/scopes/internal/alias"
	"github.com/kamiazya/scopes/internal/ids"
)

// AliasRepository implements alias.Repository over the store.
type AliasRepository struct {
	s *Store
}

// Aliases returns the alias repository view of the store.
func (s *Store) Aliases() *AliasRepository {
	return &AliasRepository{s: s}
}

const aliasColumns = "id, scope_id, name, alias_type, created_at, updated_at"

// FindByName returns the record holding the name, nil when absent.
func (r *AliasRepository) FindByName(ctx context.Context, name alias.Name) (*alias.Record, error) {
	row := r.s.db.QueryRowContext(ctx,
		`SELECT `+aliasColumns+` FROM aliases WHERE name = ?`, name.String())
	record, err := scanAlias(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find alias", err)
	}
	return record, nil
}

// FindByScopeID returns every alias of a scope, canonical first.
func (r *AliasRepository) FindByScopeID(ctx context.Context, scopeID ids.ScopeID) ([]alias.Record, error) {
	rows, err := r.s.db.QueryContext(ctx, `
		SELECT `+aliasColumns+` FROM aliases
		WHERE scope_id = ?
		ORDER BY alias_type ASC, name ASC
	`, scopeID.String())
	if err != nil {
		return nil, wrapErr("find aliases", err)
	}
	defer rows.Close()
	return collectAliases(rows)
}

// FindCanonicalByScopeID returns the scope's canonical alias, nil when it
// has none yet.
func (r *AliasRepository) FindCanonicalByScopeID(ctx context.Context, scopeID ids.ScopeID) (*alias.Record, error) {
	row := r.s.db.QueryRowContext(ctx, `
		SELECT `+aliasColumns+` FROM aliases
		WHERE scope_id = ? AND alias_type = 'CANONICAL'
	`, scopeID.String())
	record, err := scanAlias(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find canonical alias", err)
	}
	return record, nil
}

// FindByNamePrefix returns up to limit records whose name starts with
// prefix, in name order.
func (r *AliasRepository) FindByNamePrefix(ctx context.Context, prefix string, limit int) ([]alias.Record, error) {
	rows, err := r.s.db.QueryContext(ctx, `
		SELECT `+aliasColumns+` FROM aliases
		WHERE name LIKE ? ESCAPE '\'
		ORDER BY name ASC
		LIMIT ?
	`, escapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, wrapErr("find aliases by prefix", err)
	}
	defer rows.Close()
	return collectAliases(rows)
}

// Save inserts a new alias row. A name collision surfaces as a DATABASE
// constraint error.
func (r *AliasRepository) Save(ctx context.Context, record alias.Record) error {
	_, err := r.s.db.ExecContext(ctx, `
		INSERT INTO aliases (id, scope_id, name, alias_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		record.ID.String(),
		record.ScopeID.String(),
		record.Name.String(),
		string(record.Type),
		formatTime(record.CreatedAt),
		formatTime(record.UpdatedAt),
	)
	if err != nil {
		return wrapErr("save alias", err)
	}
	return nil
}

// Update persists a mutated alias row (type changes).
func (r *AliasRepository) Update(ctx context.Context, record alias.Record) error {
	_, err := r.s.db.ExecContext(ctx, `
		UPDATE aliases SET alias_type = ?, updated_at = ? WHERE id = ?
	`,
		string(record.Type),
		formatTime(record.UpdatedAt),
		record.ID.String(),
	)
	if err != nil {
		return wrapErr("update alias", err)
	}
	return nil
}

// Rename moves the record at old to new in one transaction. The UNIQUE
// index on name makes the collision atomic: either the whole rename commits
// or nothing changes.
func (r *AliasRepository) Rename(ctx context.Context, old, new alias.Name) error {
	return r.s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE aliases SET name = ? WHERE name = ?`, new.String(), old.String())
		if err != nil {
			return wrapErr("rename alias", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return wrapErr("rename alias", err)
		}
		if affected == 0 {
			return &alias.Error{
				Code:    alias.ErrCodeNotFound,
				Message: "alias does not exist",
				Name:    old.String(),
			}
		}
		return nil
	})
}

// RemoveByName deletes the record holding the name.
func (r *AliasRepository) RemoveByName(ctx context.Context, name alias.Name) error {
	_, err := r.s.db.ExecContext(ctx, `DELETE FROM aliases WHERE name = ?`, name.String())
	if err != nil {
		return wrapErr("remove alias", err)
	}
	return nil
}

func scanAlias(row interface{ Scan(...any) error }) (*alias.Record, error) {
	var (
		rawID     string
		rawScope  string
		rawName   string
		rawType   string
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&rawID, &rawScope, &rawName, &rawType, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	id, err := ids.ParseAliasID(rawID)
	if err != nil {
		return nil, err
	}
	scopeID, err := ids.ParseScopeID(rawScope)
	if err != nil {
		return nil, err
	}
	record := &alias.Record{
		ID:      id,
		ScopeID: scopeID,
		Name:    alias.Name(rawName),
		Type:    alias.Type(rawType),
	}
	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if record.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return record, nil
}

func collectAliases(rows *sql.Rows) ([]alias.Record, error) {
	var out []alias.Record
	for rows.Next() {
		record, err := scanAlias(rows)
		if err != nil {
			return nil, wrapErr("scan alias", err)
		}
		out = append(out, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate aliases", err)
	}
	return out, nil
}

// escapeLike escapes LIKE wildcards in a user-supplied prefix.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
