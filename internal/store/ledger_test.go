package store

import (
	"context"
	"testing"

	"ledger-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLedger() (*Ledger, *MemoryKV) {
	kv := NewMemoryKV()
	return NewLedger(kv, zap.NewNop()), kv
}

func TestAppendStampsAndPersists(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	sess := AdminSession("t1")

	first, err := Append(ctx, ledger, sess, RecordMembers, &model.Member{
		Name:          "Alice",
		MonthlyAmount: model.AmountFromString("500"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := Append(ctx, ledger, sess, RecordMembers, &model.Member{Name: "Bob"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID, "each insertion gets a distinct id")

	members, err := Load[*model.Member](ctx, ledger, "t1", RecordMembers)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Alice", members[0].Name)
}

func TestWritesRequireOwningAdmin(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	_, err := Append(ctx, ledger, GuestSession("t1"), RecordMembers, &model.Member{Name: "Nope"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = Append(ctx, ledger, SuperSession(), RecordMembers, &model.Member{Name: "Nope"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = Save(ctx, ledger, GuestSession("t1"), RecordMembers, []*model.Member{})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = ledger.Remove(ctx, GuestSession("t1"), RecordMembers, "any")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// Guest reads stay open
	members, err := Load[*model.Member](ctx, ledger, "t1", RecordMembers)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestLoadAbsentAndMalformedYieldEmpty(t *testing.T) {
	ledger, kv := newTestLedger()
	ctx := context.Background()

	members, err := Load[*model.Member](ctx, ledger, "t1", RecordMembers)
	require.NoError(t, err)
	assert.Empty(t, members)

	require.NoError(t, kv.Put(ctx, ScopedKey("t1", RecordMembers), []byte("not json at all")))
	members, err = Load[*model.Member](ctx, ledger, "t1", RecordMembers)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestCollectionsAreTenantScoped(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	_, err := Append(ctx, ledger, AdminSession("t1"), RecordMembers, &model.Member{Name: "Only t1"})
	require.NoError(t, err)

	other, err := Load[*model.Member](ctx, ledger, "t2", RecordMembers)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSaveReplacesCollection(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	sess := AdminSession("t1")

	_, err := Append(ctx, ledger, sess, RecordMembers, &model.Member{Name: "Old"})
	require.NoError(t, err)

	replacement := []*model.Member{{ID: "fixed", Name: "New"}}
	require.NoError(t, Save(ctx, ledger, sess, RecordMembers, replacement))

	members, err := Load[*model.Member](ctx, ledger, "t1", RecordMembers)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "New", members[0].Name)
}

func TestUpdateReplacesByID(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	sess := AdminSession("t1")

	member, err := Append(ctx, ledger, sess, RecordMembers, &model.Member{Name: "Before"})
	require.NoError(t, err)

	updated := *member
	updated.Name = "After"
	require.NoError(t, Update(ctx, ledger, sess, RecordMembers, &updated))

	members, err := Load[*model.Member](ctx, ledger, "t1", RecordMembers)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "After", members[0].Name)

	missing := model.Member{ID: "does-not-exist"}
	assert.ErrorIs(t, Update(ctx, ledger, sess, RecordMembers, &missing), ErrNotFound)
}

func TestRemoveMemberCascadesToDuesOnly(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	sess := AdminSession("t1")

	member, err := Append(ctx, ledger, sess, RecordMembers, &model.Member{Name: "Leaving"})
	require.NoError(t, err)
	staying, err := Append(ctx, ledger, sess, RecordMembers, &model.Member{Name: "Staying"})
	require.NoError(t, err)

	_, err = Append(ctx, ledger, sess, RecordDues, &model.Payment{
		MemberID: member.ID, Month: "2024-05", Amount: model.AmountFromString("500"),
	})
	require.NoError(t, err)
	_, err = Append(ctx, ledger, sess, RecordDues, &model.Payment{
		MemberID: staying.ID, Month: "2024-05", Amount: model.AmountFromString("300"),
	})
	require.NoError(t, err)
	_, err = Append(ctx, ledger, sess, RecordSalary, &model.Payment{
		MemberID: member.ID, Month: "2024-05", Amount: model.AmountFromString("100"),
	})
	require.NoError(t, err)

	require.NoError(t, ledger.Remove(ctx, sess, RecordMembers, member.ID))

	members, err := Load[*model.Member](ctx, ledger, "t1", RecordMembers)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, staying.ID, members[0].ID)

	dues, err := Load[*model.Payment](ctx, ledger, "t1", RecordDues)
	require.NoError(t, err)
	require.Len(t, dues, 1)
	assert.Equal(t, staying.ID, dues[0].MemberID)

	// Salary history survives the member
	salaries, err := Load[*model.Payment](ctx, ledger, "t1", RecordSalary)
	require.NoError(t, err)
	require.Len(t, salaries, 1)
	assert.Equal(t, member.ID, salaries[0].MemberID)
}

func TestRemoveUnknownIDIsNoOp(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	sess := AdminSession("t1")

	_, err := Append(ctx, ledger, sess, RecordIncome, &model.IncomeEntry{Source: "Donation"})
	require.NoError(t, err)

	require.NoError(t, ledger.Remove(ctx, sess, RecordIncome, "nope"))

	entries, err := Load[*model.IncomeEntry](ctx, ledger, "t1", RecordIncome)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
