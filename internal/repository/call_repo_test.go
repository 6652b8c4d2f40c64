package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/imgproc_go_server/internal/model"
	"github.com/qs3c/imgproc_go_server/internal/testutil"
)

func TestCallRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewCallRepository(db)

	call := &model.BillingCall{
		CallID:          "call-abc",
		RequestID:       "req-1",
		State:           model.CallStatePreCharged,
		EstimatedTokens: 200,
		APIPath:         "/api/v1/resize",
	}
	require.NoError(t, repo.Create(call))

	got, err := repo.GetByCallID("call-abc")
	require.NoError(t, err)
	assert.Equal(t, model.CallStatePreCharged, got.State)
	assert.Equal(t, int64(200), got.EstimatedTokens)
}

func TestCallRepository_GetMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewCallRepository(db)

	_, err := repo.GetByCallID("nope")
	assert.ErrorIs(t, err, ErrCallNotFound)
}

func TestCallRepository_CreateDuplicateCallID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewCallRepository(db)

	testutil.TestCall(t, db, model.CallStatePreCharged, testutil.WithCallID("call-dup"))

	err := repo.Create(&model.BillingCall{CallID: "call-dup", RequestID: "req-2", State: model.CallStatePreCharged})
	assert.Error(t, err)
}

func TestCallRepository_TransitionExactlyOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewCallRepository(db)
	call := testutil.TestCall(t, db, model.CallStatePreCharged)

	moved, err := repo.Transition(call.CallID, model.CallStateConfirmed, "")
	require.NoError(t, err)
	assert.True(t, moved)

	// 终态是吸收态：再次转移不生效
	moved, err = repo.Transition(call.CallID, model.CallStateRefunded, "too late")
	require.NoError(t, err)
	assert.False(t, moved)

	got, err := repo.GetByCallID(call.CallID)
	require.NoError(t, err)
	assert.Equal(t, model.CallStateConfirmed, got.State)
	assert.Empty(t, got.RefundReason)
}

func TestCallRepository_TransitionRecordsRefundReason(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewCallRepository(db)
	call := testutil.TestCall(t, db, model.CallStatePreCharged)

	moved, err := repo.Transition(call.CallID, model.CallStateRefunded, "处理失败")
	require.NoError(t, err)
	assert.True(t, moved)

	got, err := repo.GetByCallID(call.CallID)
	require.NoError(t, err)
	assert.Equal(t, model.CallStateRefunded, got.State)
	assert.Equal(t, "处理失败", got.RefundReason)
}

func TestCallRepository_AddExtraTokens(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewCallRepository(db)
	call := testutil.TestCall(t, db, model.CallStatePreCharged)

	require.NoError(t, repo.AddExtraTokens(call.CallID, 30))
	require.NoError(t, repo.AddExtraTokens(call.CallID, 20))

	got, err := repo.GetByCallID(call.CallID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.ExtraTokens)
}

func TestCallRepository_AddExtraTokensOnTerminalNoOp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewCallRepository(db)
	call := testutil.TestCall(t, db, model.CallStateConfirmed)

	require.NoError(t, repo.AddExtraTokens(call.CallID, 30))

	got, err := repo.GetByCallID(call.CallID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.ExtraTokens)
}

func TestCallRepository_CountByState(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewCallRepository(db)

	testutil.TestCall(t, db, model.CallStatePreCharged)
	testutil.TestCall(t, db, model.CallStateRefunded)
	testutil.TestCall(t, db, model.CallStateRefunded)

	count, err := repo.CountByState(model.CallStateRefunded)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
