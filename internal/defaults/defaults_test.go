package defaults

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iurnickita/primelabel/internal/model"
	"github.com/iurnickita/primelabel/internal/store"
)

func TestRemember(t *testing.T) {
	ctx := context.Background()
	d := NewDefaults(store.NewMemStore())
	weight := model.Weight{Value: 12, Unit: model.WeightUnitOunce}
	dims := model.Dimensions{Length: 10, Width: 6, Height: 2, Unit: model.DimensionUnitInch}

	_, err := d.Get(ctx, "MUG")
	require.ErrorIs(t, err, ErrUnknownSKU)

	// два разных SKU: не запоминаем
	saved, err := d.Remember(ctx, []model.LineItem{{SKU: "MUG"}, {SKU: "CUP"}}, weight, dims)
	require.NoError(t, err)
	assert.False(t, saved)
	_, err = d.Get(ctx, "MUG")
	require.ErrorIs(t, err, ErrUnknownSKU)

	saved, err = d.Remember(ctx, []model.LineItem{{SKU: "MUG", Quantity: 1}, {SKU: "MUG", Quantity: 3}}, weight, dims)
	require.NoError(t, err)
	assert.True(t, saved)

	got, err := d.Get(ctx, "MUG")
	require.NoError(t, err)
	assert.Equal(t, weight, got.Data.Weight)
	assert.Equal(t, dims, got.Data.Dimensions)

	// последняя запись побеждает
	heavier := model.Weight{Value: 2, Unit: model.WeightUnitPound}
	_, err = d.Remember(ctx, []model.LineItem{{SKU: "MUG"}}, heavier, dims)
	require.NoError(t, err)
	got, err = d.Get(ctx, "MUG")
	require.NoError(t, err)
	assert.Equal(t, heavier, got.Data.Weight)

	saved, err = d.Remember(ctx, nil, weight, dims)
	require.NoError(t, err)
	assert.False(t, saved)
}
