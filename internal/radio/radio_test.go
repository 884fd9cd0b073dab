package radio

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/srg/bleadv/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitsFromMs(t *testing.T) {
	tests := []struct {
		ms    uint32
		units uint32
	}{
		{ms: 100, units: 160},
		{ms: 1010, units: 1616},
		{ms: 10000, units: 16000},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.units, UnitsFromMs(tt.ms))
		assert.Equal(t, tt.ms, MsFromUnits(tt.units))
	}
}

func TestAdvType(t *testing.T) {
	assert.True(t, AdvConnectableScannableUndirected.Scannable())
	assert.True(t, AdvNonconnectableScannableUndirected.Scannable())
	assert.False(t, AdvNonconnectableNonscannableUndirected.Scannable())
	assert.False(t, AdvExtendedConnectableNonscannableUndirected.Scannable())
	assert.Equal(t, "nonconnectable_nonscannable_undirected", AdvNonconnectableNonscannableUndirected.String())
	assert.Equal(t, "unknown", AdvType(0x7F).String())
}

func TestArbiter_Ownership(t *testing.T) {
	a := NewArbiter(logrus.New())

	t.Run("none is not a purpose", func(t *testing.T) {
		assert.ErrorIs(t, a.Init(KindNone), status.ErrInvalidParam)
	})

	require.NoError(t, a.Init(KindAdvertisement))
	assert.Equal(t, KindAdvertisement, a.Owner())

	t.Run("second claim is refused", func(t *testing.T) {
		assert.ErrorIs(t, a.Init(KindGATT), status.ErrInvalidState)
		assert.ErrorIs(t, a.Init(KindAdvertisement), status.ErrInvalidState)
	})

	t.Run("release by non-owner is refused", func(t *testing.T) {
		assert.ErrorIs(t, a.Uninit(KindGATT), status.ErrInvalidState)
		assert.Equal(t, KindAdvertisement, a.Owner(), "owner MUST keep the radio")
	})

	require.NoError(t, a.Uninit(KindAdvertisement))
	assert.Equal(t, KindNone, a.Owner())
	assert.NoError(t, a.Uninit(KindGATT), "release of an unclaimed radio MUST succeed")
}

func TestArbiter_Activity(t *testing.T) {
	a := NewArbiter(nil)
	a.Notify(ActivityAfter) // no handler, no panic

	var seen []Activity
	require.NoError(t, a.Init(KindAdvertisement))
	a.SetActivityHandler(func(evt Activity) { seen = append(seen, evt) })

	a.Notify(ActivityBefore)
	a.Notify(ActivityAfter)
	assert.Equal(t, []Activity{ActivityBefore, ActivityAfter}, seen)

	require.NoError(t, a.Uninit(KindAdvertisement))
	a.Notify(ActivityAfter)
	assert.Len(t, seen, 2, "release MUST drop the activity handler")
}
