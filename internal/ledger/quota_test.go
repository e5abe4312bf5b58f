package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/testutil"
)

func TestComputeQuota(t *testing.T) {
	week := func(class model.SizeClass) model.Movement {
		return model.Movement{SizeClass: class, SameWeek: true}
	}

	tests := []struct {
		name      string
		movements []model.Movement
		want      model.Quota
	}{
		{
			name: "no movements",
			want: model.Quota{model.SizeLarge: 2, model.SizeMedium: 4, model.SizeSmall: 8},
		},
		{
			name:      "one large",
			movements: []model.Movement{week(model.SizeLarge)},
			want:      model.Quota{model.SizeLarge: 1, model.SizeMedium: 4, model.SizeSmall: 8},
		},
		{
			name: "earlier weeks do not count",
			movements: []model.Movement{
				{SizeClass: model.SizeSmall},
				week(model.SizeSmall),
			},
			want: model.Quota{model.SizeLarge: 2, model.SizeMedium: 4, model.SizeSmall: 7},
		},
		{
			name:      "unclassified movements are free",
			movements: []model.Movement{{SameWeek: true}},
			want:      model.Quota{model.SizeLarge: 2, model.SizeMedium: 4, model.SizeSmall: 8},
		},
		{
			name: "counters go negative",
			movements: []model.Movement{
				week(model.SizeLarge), week(model.SizeLarge), week(model.SizeLarge),
			},
			want: model.Quota{model.SizeLarge: -1, model.SizeMedium: 4, model.SizeSmall: 8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeQuota(model.DefaultCaps(), tt.movements)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeQuota_DoesNotMutateCaps(t *testing.T) {
	caps := model.DefaultCaps()
	ComputeQuota(caps, []model.Movement{{SizeClass: model.SizeLarge, SameWeek: true}})
	assert.Equal(t, model.DefaultCaps(), caps)
}

func TestQuotaTracker_Check(t *testing.T) {
	q := NewQuotaTracker(nil)
	remaining := model.Quota{model.SizeLarge: 0, model.SizeMedium: 1, model.SizeSmall: -2}

	assert.NoError(t, q.Check(remaining, model.SizeMedium))
	assert.NoError(t, q.Check(remaining, ""))

	for _, class := range []model.SizeClass{model.SizeLarge, model.SizeSmall} {
		err := q.Check(remaining, class)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrQuotaExhausted)
		assert.Equal(t, common.KindPolicy, common.KindOf(err))
	}
}

func TestQuotaTracker_RemainingWithoutAccount(t *testing.T) {
	caps := model.Quota{model.SizeLarge: 1, model.SizeMedium: 1, model.SizeSmall: 1}
	q := NewQuotaTracker(caps)
	assert.Equal(t, caps, q.Remaining(nil))
	assert.Equal(t, caps, q.Caps())
}

func TestQuota_Monotonic(t *testing.T) {
	f := newFixture(t)
	char := f.open(t, testutil.StandardReference, OpenOptions{})
	ctx := context.Background()
	caps := model.DefaultCaps()

	prev, err := f.ledger.Quota(ctx, char)
	require.NoError(t, err)
	assert.Equal(t, caps, prev)

	purchases := []struct {
		product string
		class   model.SizeClass
	}{
		{"PAN", model.SizeSmall},
		{"CINE", model.SizeMedium},
		{"TELEVISOR", model.SizeLarge},
		{"LUZ", ""},
		{"PAN", model.SizeSmall},
	}

	for _, p := range purchases {
		res := f.buy(t, char, p.product)
		for _, class := range model.SizeClasses {
			assert.LessOrEqual(t, res.Quota[class], caps[class])
			want := prev[class]
			if class == p.class {
				want--
			}
			assert.Equal(t, want, res.Quota[class], "%s after buying %s", class, p.product)
		}
		prev = res.Quota
	}
}

func TestQuota_ExhaustedRefusesWithoutWriting(t *testing.T) {
	f := newFixture(t)
	char := f.open(t, testutil.StandardReference, OpenOptions{})

	f.buy(t, char, "TELEVISOR")
	res := f.buy(t, char, "TELEVISOR")
	assert.Equal(t, 0, res.Quota[model.SizeLarge])

	before := f.movements(t)
	_, err := f.ledger.NewMovement(context.Background(), char, Request{ProductID: f.cat.Product("TELEVISOR")})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrQuotaExhausted)
	assert.Equal(t, common.KindPolicy, common.KindOf(err))
	assert.Equal(t, before, f.movements(t))

	// Other classes are still available.
	f.buy(t, char, "PAN")
}
