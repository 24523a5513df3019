package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBarcodeReference(t *testing.T) {
	ref, err := NewBarcodeReference("0 12345-67890 5")
	require.NoError(t, err)
	assert.Equal(t, "0012345678905", ref.Value)
	assert.Equal(t, "barcode:0012345678905", ref.Key())

	ref, err = NewBarcodeReference("4006381333931")
	require.NoError(t, err)
	assert.Equal(t, "4006381333931", ref.Value)

	_, err = NewBarcodeReference("12ab")
	assert.ErrorIs(t, err, ErrInvalidReference)

	_, err = NewBarcodeReference("1234")
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestNewNameReference(t *testing.T) {
	ref, err := NewNameReference("  Greek   YOGURT ")
	require.NoError(t, err)
	assert.Equal(t, "name:greek yogurt", ref.Key())

	_, err = NewNameReference("   ")
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestNutrientVector_UnknownSurvivesJSON(t *testing.T) {
	v := NewNutrientVector()
	v.Set(Iron, 0)
	v.Set(Folate, 120)

	raw, err := json.Marshal(v)
	require.NoError(t, err)

	var decoded NutrientVector
	require.NoError(t, json.Unmarshal(raw, &decoded))

	iron, ok := decoded.Amount(Iron)
	assert.True(t, ok)
	assert.Equal(t, 0.0, iron)

	_, ok = decoded.Amount(Choline)
	assert.False(t, ok, "unknown must not decode as zero")
	assert.Equal(t, 2, decoded.KnownCount())
}

func TestNutrientVector_CloneIsIndependent(t *testing.T) {
	v := NutrientVector{Iron: nil}
	v.Set(Zinc, 3)
	c := v.Clone()
	v.Set(Zinc, 9)

	z, ok := c.Amount(Zinc)
	require.True(t, ok)
	assert.Equal(t, 3.0, z)
	assert.Len(t, c, len(TrackedNutrients))
}

func TestNutrientVector_Validate(t *testing.T) {
	v := NewNutrientVector()
	v.Set(Iron, -1)
	assert.Error(t, v.Validate())

	v = NutrientVector{"sodium": nil}
	assert.Error(t, v.Validate())
}

func TestParseMealType(t *testing.T) {
	m, err := ParseMealType("")
	require.NoError(t, err)
	assert.Equal(t, OtherMeal, m)

	_, err = ParseMealType("brunch")
	assert.Error(t, err)
}
