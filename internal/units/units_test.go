package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert_Mass(t *testing.T) {
	v, err := Convert(1.5, "g", "mg")
	require.NoError(t, err)
	assert.InDelta(t, 1500, v, 1e-9)

	v, err = Convert(250, "µg", "mg")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, v, 1e-12)

	v, err = Convert(1, "oz", "g")
	require.NoError(t, err)
	assert.InDelta(t, 28.3495, v, 1e-4)
}

func TestConvert_VolumeAndEnergy(t *testing.T) {
	v, err := Convert(2, "cups", "ml")
	require.NoError(t, err)
	assert.InDelta(t, 480, v, 1e-9)

	v, err = Convert(100, "kJ", "kcal")
	require.NoError(t, err)
	assert.InDelta(t, 23.9006, v, 1e-9)
}

func TestConvert_Incompatible(t *testing.T) {
	_, err := Convert(1, "g", "ml")
	assert.ErrorIs(t, err, ErrIncompatibleUnit)

	_, err = Convert(1, "serving", "g")
	assert.ErrorIs(t, err, ErrIncompatibleUnit)

	_, err = Convert(1, "serving", "piece")
	assert.ErrorIs(t, err, ErrIncompatibleUnit)

	_, err = Convert(1, "handful", "handful")
	assert.ErrorIs(t, err, ErrIncompatibleUnit)
}

func TestConvert_CountIdentity(t *testing.T) {
	v, err := Convert(3, "servings", "serving")
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}

func TestConvertNutrient_IU(t *testing.T) {
	v, err := ConvertNutrient("vitamin_d3", 600, "IU", "mcg")
	require.NoError(t, err)
	assert.InDelta(t, 15, v, 1e-9)

	v, err = ConvertNutrient("vitamin_a", 1000, "IU", "mcg")
	require.NoError(t, err)
	assert.InDelta(t, 300, v, 1e-9)

	v, err = ConvertNutrient("vitamin_d3", 15, "mcg", "IU")
	require.NoError(t, err)
	assert.InDelta(t, 600, v, 1e-9)

	_, err = ConvertNutrient("iron", 10, "IU", "mg")
	assert.ErrorIs(t, err, ErrIncompatibleUnit)
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "mcg", Canonical(" UG "))
	assert.Equal(t, "fl_oz", Canonical("fl oz"))
	assert.Equal(t, "kcal", Canonical("KCAL"))
	assert.True(t, Known("Tablespoon"))
	assert.False(t, Known("handful"))
}
