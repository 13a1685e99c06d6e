package alias

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamiazya/scopes/internal/ids"
)

// memoryRepo is an in-memory Repository with the same atomicity as the
// SQLite implementation: single-row operations and an all-or-nothing
// Rename.
type memoryRepo struct {
	byName map[Name]Record
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byName: make(map[Name]Record)}
}

func (m *memoryRepo) FindByName(_ context.Context, name Name) (*Record, error) {
	if r, ok := m.byName[name]; ok {
		out := r
		return &out, nil
	}
	return nil, nil
}

func (m *memoryRepo) FindByScopeID(_ context.Context, scopeID ids.ScopeID) ([]Record, error) {
	var out []Record
	for _, r := range m.byName {
		if r.ScopeID == scopeID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRepo) FindCanonicalByScopeID(_ context.Context, scopeID ids.ScopeID) (*Record, error) {
	for _, r := range m.byName {
		if r.ScopeID == scopeID && r.Type == TypeCanonical {
			out := r
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memoryRepo) FindByNamePrefix(_ context.Context, prefix string, limit int) ([]Record, error) {
	var out []Record
	for name, r := range m.byName {
		if strings.HasPrefix(name.String(), prefix) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryRepo) Save(_ context.Context, r Record) error {
	if _, taken := m.byName[r.Name]; taken {
		return &Error{Code: ErrCodeDuplicateAlias, Message: "name taken", Name: r.Name.String()}
	}
	m.byName[r.Name] = r
	return nil
}

func (m *memoryRepo) Update(_ context.Context, r Record) error {
	for name, existing := range m.byName {
		if existing.ID == r.ID {
			delete(m.byName, name)
			m.byName[r.Name] = r
			return nil
		}
	}
	return &Error{Code: ErrCodeNotFound, Message: "no such record", Name: r.Name.String()}
}

func (m *memoryRepo) Rename(_ context.Context, old, new Name) error {
	r, ok := m.byName[old]
	if !ok {
		return &Error{Code: ErrCodeNotFound, Message: "no such alias", Name: old.String()}
	}
	if _, taken := m.byName[new]; taken {
		return &Error{Code: ErrCodeDuplicateAlias, Message: "name taken", Name: new.String()}
	}
	delete(m.byName, old)
	r.Name = new
	m.byName[new] = r
	return nil
}

func (m *memoryRepo) RemoveByName(_ context.Context, name Name) error {
	delete(m.byName, name)
	return nil
}

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	return NewService(repo, fixedNow), repo
}

func mustName(t *testing.T, s string) Name {
	t.Helper()
	n, err := NewName(s)
	require.NoError(t, err)
	return n
}

func TestService_EnsureCanonical(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	scopeID := ids.NewScopeID()

	record, err := svc.EnsureCanonical(ctx, scopeID)
	require.NoError(t, err)
	assert.Equal(t, TypeCanonical, record.Type)
	assert.Equal(t, scopeID, record.ScopeID)

	// Idempotent: a second call returns the existing canonical.
	again, err := svc.EnsureCanonical(ctx, scopeID)
	require.NoError(t, err)
	assert.Equal(t, record.Name, again.Name)
	assert.Len(t, repo.byName, 1)
}

func TestService_SetCanonicalDemotesPrevious(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	scopeID := ids.NewScopeID()

	first, err := svc.EnsureCanonical(ctx, scopeID)
	require.NoError(t, err)

	second, err := svc.SetCanonical(ctx, scopeID, mustName(t, "my-project"))
	require.NoError(t, err)
	assert.Equal(t, TypeCanonical, second.Type)

	records, err := svc.List(ctx, scopeID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		if r.Name == first.Name {
			assert.Equal(t, TypeCustom, r.Type, "previous canonical is demoted")
		}
	}
}

func TestService_SetCanonicalPromotesExistingCustom(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	scopeID := ids.NewScopeID()

	_, err := svc.AddCustom(ctx, scopeID, mustName(t, "shortcut"))
	require.NoError(t, err)

	record, err := svc.SetCanonical(ctx, scopeID, mustName(t, "shortcut"))
	require.NoError(t, err)
	assert.Equal(t, TypeCanonical, record.Type)
}

func TestService_SetCanonicalRejectsForeignName(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	s1, s2 := ids.NewScopeID(), ids.NewScopeID()

	_, err := svc.AddCustom(ctx, s1, mustName(t, "taken"))
	require.NoError(t, err)

	_, err = svc.SetCanonical(ctx, s2, mustName(t, "taken"))
	assert.Equal(t, ErrCodeDuplicateAlias, CodeOf(err))
}

func TestService_AddCustomRejectsDuplicates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	s1, s2 := ids.NewScopeID(), ids.NewScopeID()

	_, err := svc.AddCustom(ctx, s1, mustName(t, "shared"))
	require.NoError(t, err)

	_, err = svc.AddCustom(ctx, s2, mustName(t, "shared"))
	require.Error(t, err)

	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, ErrCodeDuplicateAlias, ae.Code)
	assert.Equal(t, s1.String(), ae.ExistingScope)
	assert.Equal(t, s2.String(), ae.AttemptedScope)
}

func TestService_RemoveCanonicalRejected(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	scopeID := ids.NewScopeID()

	record, err := svc.EnsureCanonical(ctx, scopeID)
	require.NoError(t, err)

	err = svc.Remove(ctx, record.Name)
	assert.Equal(t, ErrCodeCannotRemoveCanonical, CodeOf(err))

	_, err = svc.Resolve(ctx, record.Name)
	assert.NoError(t, err, "canonical alias survives the removal attempt")
}

func TestService_RemoveCustom(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	scopeID := ids.NewScopeID()

	record, err := svc.AddCustom(ctx, scopeID, mustName(t, "shortcut"))
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, record.Name))

	_, err = svc.Resolve(ctx, record.Name)
	assert.Equal(t, ErrCodeNotFound, CodeOf(err))
}

func TestService_RenameMovesRecord(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	scopeID := ids.NewScopeID()

	_, err := svc.AddCustom(ctx, scopeID, mustName(t, "old-name"))
	require.NoError(t, err)

	require.NoError(t, svc.Rename(ctx, mustName(t, "old-name"), mustName(t, "new-name")))

	resolved, err := svc.Resolve(ctx, mustName(t, "new-name"))
	require.NoError(t, err)
	assert.Equal(t, scopeID, resolved)

	_, err = svc.Resolve(ctx, mustName(t, "old-name"))
	assert.Equal(t, ErrCodeNotFound, CodeOf(err))
}

func TestService_RenameOntoForeignNameFailsAtomically(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	s1, s2 := ids.NewScopeID(), ids.NewScopeID()

	// a -> S1 (canonical), b -> S2 (custom).
	a, err := svc.SetCanonical(ctx, s1, mustName(t, "alias-a"))
	require.NoError(t, err)
	b, err := svc.AddCustom(ctx, s2, mustName(t, "alias-b"))
	require.NoError(t, err)

	err = svc.Rename(ctx, mustName(t, "alias-a"), mustName(t, "alias-b"))
	require.Error(t, err)

	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, ErrCodeDuplicateAlias, ae.Code)
	assert.Equal(t, s2.String(), ae.ExistingScope)
	assert.Equal(t, s1.String(), ae.AttemptedScope)

	// Both rows are unchanged.
	gotA, err := repo.FindByName(ctx, a.Name)
	require.NoError(t, err)
	require.NotNil(t, gotA)
	assert.Equal(t, TypeCanonical, gotA.Type)
	assert.Equal(t, s1, gotA.ScopeID)

	gotB, err := repo.FindByName(ctx, b.Name)
	require.NoError(t, err)
	require.NotNil(t, gotB)
	assert.Equal(t, TypeCustom, gotB.Type)
	assert.Equal(t, s2, gotB.ScopeID)
}

func TestService_RenamePreservesTypePairs(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	scopeID := ids.NewScopeID()

	_, err := svc.SetCanonical(ctx, scopeID, mustName(t, "main-name"))
	require.NoError(t, err)
	_, err = svc.AddCustom(ctx, scopeID, mustName(t, "extra"))
	require.NoError(t, err)

	before := typePairs(t, svc, ctx, scopeID)
	require.NoError(t, svc.Rename(ctx, mustName(t, "extra"), mustName(t, "spare")))
	after := typePairs(t, svc, ctx, scopeID)

	assert.Equal(t, before, after, "rename preserves (scope, type) pairs")
}

func typePairs(t *testing.T, svc *Service, ctx context.Context, scopeID ids.ScopeID) map[Type]int {
	t.Helper()
	records, err := svc.List(ctx, scopeID)
	require.NoError(t, err)
	out := make(map[Type]int)
	for _, r := range records {
		out[r.Type]++
	}
	return out
}

func TestService_ResolvePrefix(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	s1, s2 := ids.NewScopeID(), ids.NewScopeID()

	_, err := svc.AddCustom(ctx, s1, mustName(t, "alpha-one"))
	require.NoError(t, err)
	_, err = svc.AddCustom(ctx, s2, mustName(t, "alpha-two"))
	require.NoError(t, err)

	resolved, err := svc.ResolvePrefix(ctx, "alpha-o")
	require.NoError(t, err)
	assert.Equal(t, s1, resolved)

	_, err = svc.ResolvePrefix(ctx, "alpha")
	assert.Equal(t, ErrCodeAmbiguousPrefix, CodeOf(err))

	_, err = svc.ResolvePrefix(ctx, "zeta")
	assert.Equal(t, ErrCodeNotFound, CodeOf(err))
}

func TestService_ResolvePrefixExactMatchWins(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	s1, s2 := ids.NewScopeID(), ids.NewScopeID()

	_, err := svc.AddCustom(ctx, s1, mustName(t, "build"))
	require.NoError(t, err)
	_, err = svc.AddCustom(ctx, s2, mustName(t, "build-docs"))
	require.NoError(t, err)

	resolved, err := svc.ResolvePrefix(ctx, "build")
	require.NoError(t, err)
	assert.Equal(t, s1, resolved, "exact match beats prefix matches")
}

func TestService_GenerationFailureAfterRetries(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(exhaustedRepo{repo}, fixedNow)

	_, err := svc.EnsureCanonical(context.Background(), ids.NewScopeID())
	assert.Equal(t, ErrCodeGenerationFailed, CodeOf(err))
}

// exhaustedRepo reports every name as taken, forcing generation retries to
// run out.
type exhaustedRepo struct {
	*memoryRepo
}

func (e exhaustedRepo) FindByName(_ context.Context, name Name) (*Record, error) {
	return &Record{Name: name, ScopeID: ids.NewScopeID(), Type: TypeCustom}, nil
}
