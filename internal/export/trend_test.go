package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"mcp-prenatal-log/internal/models"
)

func TestTrendWorkbook(t *testing.T) {
	half := 0.5
	periods := []models.PeriodProgress{
		{
			Start:     "2024-04-15",
			End:       "2024-04-15",
			Trimester: 2,
			Totals:    models.PerNutrientTotals{EntryCount: 3},
			Progress: map[models.Nutrient]models.NutrientProgress{
				models.Folate: {Ratio: &half, Status: models.StatusComplete},
				models.Iron:   {Status: models.StatusPartial},
			},
		},
	}

	buf, err := TrendWorkbook(periods)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Start", rows[0][0])
	assert.Equal(t, "folate (mcg)", rows[0][4])
	assert.Equal(t, "iron (mg)", rows[0][6])

	raw, err := f.GetCellValue(sheetName, "E2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "0.5", raw)
	assert.Equal(t, "partial", rows[1][6])
	assert.Equal(t, "3", rows[1][3])
}

func TestTrendWorkbook_Empty(t *testing.T) {
	buf, err := TrendWorkbook(nil)
	require.NoError(t, err)
	assert.Greater(t, buf.Len(), 0)
}
