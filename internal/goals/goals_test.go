package goals

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mcp-prenatal-log/internal/models"
	"mcp-prenatal-log/internal/storage"
	"mcp-prenatal-log/internal/units"
)

type memStore struct {
	pregnancies map[string]*models.Pregnancy
	overrides   []models.GoalOverride
}

func (m *memStore) GetPregnancy(ctx context.Context, id string) (*models.Pregnancy, error) {
	p, ok := m.pregnancies[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return p, nil
}

func (m *memStore) ListGoalOverrides(ctx context.Context, pregnancyID string) ([]models.GoalOverride, error) {
	var out []models.GoalOverride
	for _, o := range m.overrides {
		if o.PregnancyID == pregnancyID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) AddGoalOverride(ctx context.Context, o *models.GoalOverride) error {
	m.overrides = append(m.overrides, *o)
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTrimesterBoundaries(t *testing.T) {
	start := date(2024, 1, 1)
	cases := []struct {
		week      int
		trimester int
	}{
		{1, 1}, {13, 1}, {14, 2}, {27, 2}, {28, 3}, {40, 3}, {43, 3},
	}
	for _, tc := range cases {
		// first day of the week
		d := start.AddDate(0, 0, (tc.week-1)*7)
		week, tri, err := Trimester(start, d)
		require.NoError(t, err)
		assert.Equal(t, tc.week, week)
		assert.Equal(t, tc.trimester, tri, "week %d", tc.week)

		// last day of the week
		week, tri, err = Trimester(start, d.AddDate(0, 0, 6))
		require.NoError(t, err)
		assert.Equal(t, tc.week, week)
		assert.Equal(t, tc.trimester, tri)
	}
}

func TestTrimesterIgnoresTimeOfDay(t *testing.T) {
	start := date(2024, 1, 1)
	loc := time.FixedZone("UTC-8", -8*3600)
	week, _, err := Trimester(start, time.Date(2024, 1, 7, 23, 30, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, 1, week)
}

func TestTrimesterBeforeStart(t *testing.T) {
	_, _, err := Trimester(date(2024, 1, 1), date(2023, 12, 31))
	assert.ErrorIs(t, err, ErrDateBeforePregnancyStart)
}

func TestDefaultTable(t *testing.T) {
	t1 := DefaultTable(1)
	assert.Equal(t, 600.0, t1.Goals[models.Folate].DailyGoalAmount)
	assert.Equal(t, "mcg", t1.Goals[models.Folate].Unit)
	assert.Equal(t, models.DefaultGoal, t1.Goals[models.Iron].Source)
	assert.Len(t, t1.Goals, len(models.TrackedNutrients))

	assert.Equal(t, 2340.0, DefaultTable(2).Goals[models.Calories].DailyGoalAmount)
	assert.Equal(t, 82.0, DefaultTable(3).Goals[models.Fat].DailyGoalAmount)

	// copies are independent
	t1.Goals[models.Folate] = models.NutrientGoal{DailyGoalAmount: 1}
	assert.Equal(t, 600.0, DefaultTable(1).Goals[models.Folate].DailyGoalAmount)
}

func TestGoalsForAppliesOverrides(t *testing.T) {
	store := &memStore{pregnancies: map[string]*models.Pregnancy{
		"p1": {ID: "p1", StartDate: date(2024, 1, 1)},
	}}
	r := NewResolver(store, zap.NewNop())
	ctx := context.Background()

	_, err := r.SetOverride(ctx, "p1", models.Iron, 0, 30, "mg")
	require.NoError(t, err)
	_, err = r.SetOverride(ctx, "p1", models.Iron, 2, 35, "mg")
	require.NoError(t, err)
	_, err = r.SetOverride(ctx, "p1", models.Iron, 0, 32, "mg")
	require.NoError(t, err)
	_, err = r.SetOverride(ctx, "p1", models.Folate, 0, 0.8, "mg")
	require.NoError(t, err)

	t1, err := r.GoalsFor(ctx, "p1", date(2024, 1, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, t1.Trimester)
	assert.Equal(t, 32.0, t1.Goals[models.Iron].DailyGoalAmount)
	assert.Equal(t, models.OverrideGoal, t1.Goals[models.Iron].Source)
	assert.InDelta(t, 800, t1.Goals[models.Folate].DailyGoalAmount, 1e-9)
	assert.Equal(t, models.DefaultGoal, t1.Goals[models.Zinc].Source)

	t2, err := r.GoalsFor(ctx, "p1", date(2024, 4, 15))
	require.NoError(t, err)
	assert.Equal(t, 2, t2.Trimester)
	assert.Equal(t, 35.0, t2.Goals[models.Iron].DailyGoalAmount)
}

func TestSetOverrideValidation(t *testing.T) {
	store := &memStore{pregnancies: map[string]*models.Pregnancy{
		"p1": {ID: "p1", StartDate: date(2024, 1, 1)},
	}}
	r := NewResolver(store, zap.NewNop())
	ctx := context.Background()

	_, err := r.SetOverride(ctx, "p1", models.Nutrient("unobtainium"), 0, 1, "mg")
	assert.ErrorIs(t, err, ErrInvalidGoal)
	_, err = r.SetOverride(ctx, "p1", models.Iron, 4, 1, "mg")
	assert.ErrorIs(t, err, ErrInvalidGoal)
	_, err = r.SetOverride(ctx, "p1", models.Iron, 1, -1, "mg")
	assert.ErrorIs(t, err, ErrInvalidGoal)
	_, err = r.SetOverride(ctx, "p1", models.Iron, 1, 1, "ml")
	assert.ErrorIs(t, err, units.ErrIncompatibleUnit)
	_, err = r.SetOverride(ctx, "missing", models.Iron, 1, 1, "mg")
	assert.ErrorIs(t, err, ErrPregnancyNotFound)
	assert.Empty(t, store.overrides)
}

func TestGoalsForUnknownPregnancy(t *testing.T) {
	r := NewResolver(&memStore{}, zap.NewNop())
	_, err := r.GoalsFor(context.Background(), "nope", date(2024, 1, 1))
	assert.ErrorIs(t, err, ErrPregnancyNotFound)
}
