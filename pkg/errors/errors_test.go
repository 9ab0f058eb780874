package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var errSample = New(KindConflict, 15001, "guard_double_booked", "该保安当日已在其他岗位值守")

func TestKindOf_WrappedSentinel(t *testing.T) {
	err := fmt.Errorf("%w: 岗位 p-2 于 2025-08-30", errSample)

	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, errors.Is(err, errSample))

	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, 15001, e.Code)
	assert.Equal(t, "guard_double_booked", e.Reason)
}

func TestKindOf_InfrastructureErrors(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(gorm.ErrRecordNotFound))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.Equal(t, KindConflict, KindOf(ErrOptimisticLock))
	assert.Equal(t, KindInternal, KindOf(errors.New("connection reset")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestIsConflict(t *testing.T) {
	assert.True(t, IsConflict(errSample))
	assert.False(t, IsConflict(ErrInternal))
	assert.True(t, IsDuplicateKey(fmt.Errorf("x: %w", gorm.ErrDuplicatedKey)))
}
