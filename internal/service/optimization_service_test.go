package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizationRunGeneratesParamsInBounds(t *testing.T) {
	state := NewLotStateStore()
	state.Put(newTestLot("lot_001"))
	state.Put(newTestLot("lot_002"))
	lotRepo := newLotRepoStub()

	clock := fixedClock(time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC))
	svc := NewOptimizationService(state, lotRepo, fixedRandom(0.5), clock)

	result := svc.Run(context.Background())

	assert.Equal(t, "completed", result.Status)
	assert.Equal(t, time.Time(clock), result.Timestamp)
	require.Len(t, result.Parameters, 2)

	for lotID, params := range result.Parameters {
		// u=0.5: pa = 0.6 + 0.15 = 0.75, rs = 0.1 + 0.1 = 0.2
		assert.Equal(t, 0.75, params.Pa)
		assert.Equal(t, 0.2, params.Rs)

		got, err := state.Get(lotID)
		require.NoError(t, err)
		assert.Equal(t, 0.75, got.Pa, "state sống phải nhận tham số mới")
		assert.Equal(t, 0.2, got.Rs)

		assert.Equal(t, [2]float64{0.75, 0.2}, lotRepo.paramUpdates[lotID], "tham số phải xuống DB")
	}
}

func TestOptimizationRunBoundsWithRandomSource(t *testing.T) {
	state := NewLotStateStore()
	state.Put(newTestLot("lot_001"))
	svc := NewOptimizationService(state, newLotRepoStub(), NewRandomSource(), nil)

	for i := 0; i < 50; i++ {
		result := svc.Run(context.Background())
		params := result.Parameters["lot_001"]
		assert.GreaterOrEqual(t, params.Pa, 0.6)
		assert.LessOrEqual(t, params.Pa, 0.9)
		assert.GreaterOrEqual(t, params.Rs, 0.1)
		assert.LessOrEqual(t, params.Rs, 0.3)
	}
}

func TestOptimizationDoesNotTouchCounters(t *testing.T) {
	state := NewLotStateStore()
	lot := newTestLot("lot_001")
	state.Put(lot)
	svc := NewOptimizationService(state, newLotRepoStub(), fixedRandom(0.3), nil)

	svc.Run(context.Background())

	got, err := state.Get("lot_001")
	require.NoError(t, err)
	assert.Equal(t, lot.OccupiedSlots, got.OccupiedSlots)
	assert.Equal(t, lot.ReservedSlots, got.ReservedSlots)
	assert.Equal(t, lot.AvailableR, got.AvailableR, "optimizer không đụng vào pool reserved đang chạy")
}
