// internal/server/tools.go
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"go.uber.org/zap"

	"mcp-prenatal-log/internal/export"
	"mcp-prenatal-log/internal/models"
	"mcp-prenatal-log/internal/tracker"
)

const dateLayout = "2006-01-02"

type CreatePregnancyParams struct {
	StartDate string `json:"start_date" description:"First day of the last menstrual period (YYYY-MM-DD)"`
}

type FoodRefParams struct {
	Barcode string `json:"barcode,omitempty" description:"EAN/UPC barcode of a packaged food"`
	Name    string `json:"name,omitempty" description:"Free-text food name"`
}

type SubmitNutritionLogParams struct {
	PregnancyID string `json:"pregnancy_id" description:"Pregnancy the entry belongs to"`
	FoodRefParams
	Manual   *tracker.ManualFood `json:"manual,omitempty" description:"Nutrient values entered by hand instead of a lookup"`
	Quantity float64             `json:"quantity" description:"Amount eaten"`
	Unit     string              `json:"unit" description:"Unit of quantity (g, ml, cup, serving, ...)"`
	MealType string              `json:"meal_type,omitempty" description:"breakfast, lunch, dinner, snack or other"`
	LoggedAt string              `json:"logged_at,omitempty" description:"RFC3339 time the food was eaten (defaults to now)"`
}

type CorrectNutritionLogParams struct {
	EntryID string `json:"entry_id" description:"Entry to correct"`
	FoodRefParams
	Manual   *tracker.ManualFood `json:"manual,omitempty" description:"Replacement nutrient values"`
	Quantity *float64            `json:"quantity,omitempty" description:"New amount eaten"`
	Unit     *string             `json:"unit,omitempty" description:"New unit"`
	MealType *string             `json:"meal_type,omitempty" description:"New meal type"`
	LoggedAt *string             `json:"logged_at,omitempty" description:"New RFC3339 time"`
}

type EntryParams struct {
	EntryID string `json:"entry_id" description:"Entry id"`
}

type GetEntriesParams struct {
	PregnancyID       string `json:"pregnancy_id" description:"Pregnancy id"`
	StartDate         string `json:"start_date,omitempty" description:"First day (YYYY-MM-DD)"`
	EndDate           string `json:"end_date,omitempty" description:"Last day, inclusive (YYYY-MM-DD)"`
	IncludeTombstoned bool   `json:"include_tombstoned,omitempty" description:"Include corrected and deleted entries"`
}

type DateParams struct {
	PregnancyID string `json:"pregnancy_id" description:"Pregnancy id"`
	Date        string `json:"date,omitempty" description:"Day (YYYY-MM-DD), defaults to today"`
}

type TrendParams struct {
	PregnancyID string `json:"pregnancy_id" description:"Pregnancy id"`
	StartDate   string `json:"start_date" description:"First day (YYYY-MM-DD)"`
	EndDate     string `json:"end_date" description:"Last day, inclusive (YYYY-MM-DD)"`
	Granularity string `json:"granularity,omitempty" description:"day or week"`
}

type SetGoalOverrideParams struct {
	PregnancyID string  `json:"pregnancy_id" description:"Pregnancy id"`
	Nutrient    string  `json:"nutrient" description:"Nutrient identifier, e.g. folate"`
	Trimester   int     `json:"trimester" description:"1-3, or 0 for every trimester"`
	Amount      float64 `json:"amount" description:"Daily goal amount"`
	Unit        string  `json:"unit,omitempty" description:"Unit of amount, defaults to the nutrient's canonical unit"`
}

func newToolHandler(svc *tracker.Service, logger *zap.Logger) *toolHandler {
	h := &toolHandler{svc: svc, logger: logger}
	h.tools = map[string]toolFunc{
		"create_pregnancy":      h.handleCreatePregnancy,
		"resolve_food":          h.handleResolveFood,
		"submit_nutrition_log":  h.handleSubmitNutritionLog,
		"correct_nutrition_log": h.handleCorrectNutritionLog,
		"delete_nutrition_log":  h.handleDeleteNutritionLog,
		"get_entries":           h.handleGetEntries,
		"get_daily_progress":    h.handleGetDailyProgress,
		"get_trend":             h.handleGetTrend,
		"export_trend":          h.handleExportTrend,
		"get_goals":             h.handleGetGoals,
		"set_goal_override":     h.handleSetGoalOverride,
	}
	return h
}

// extractParams converts the request arguments into target.
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

func (p FoodRefParams) reference() (*models.FoodReference, error) {
	switch {
	case p.Barcode != "" && p.Name != "":
		return nil, fmt.Errorf("%w: give either barcode or name", errInvalidParams)
	case p.Barcode != "":
		ref, err := models.NewBarcodeReference(p.Barcode)
		return &ref, err
	case p.Name != "":
		ref, err := models.NewNameReference(p.Name)
		return &ref, err
	}
	return nil, nil
}

func (h *toolHandler) parseDate(s string, required bool) (time.Time, error) {
	if s == "" {
		if required {
			return time.Time{}, fmt.Errorf("%w: date is required", errInvalidParams)
		}
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation(dateLayout, s, h.svc.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", errInvalidParams, s)
	}
	return d, nil
}

func (h *toolHandler) dayOrToday(s string) (time.Time, error) {
	if s == "" {
		return time.Now().In(h.svc.Location()), nil
	}
	return h.parseDate(s, true)
}

func parseTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid timestamp format: %v", errInvalidParams, err)
	}
	return ts, nil
}

func (h *toolHandler) handleCreatePregnancy(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params CreatePregnancyParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	start, err := h.parseDate(params.StartDate, true)
	if err != nil {
		return nil, err
	}
	p, err := h.svc.CreatePregnancy(ctx, start)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(p)
}

// handleResolveFood looks a food up without logging it.
func (h *toolHandler) handleResolveFood(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params FoodRefParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	ref, err := params.reference()
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, fmt.Errorf("%w: barcode or name is required", errInvalidParams)
	}
	profile, err := h.svc.ResolveFood(ctx, *ref)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(profile)
}

func (h *toolHandler) handleSubmitNutritionLog(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SubmitNutritionLogParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	ref, err := params.reference()
	if err != nil {
		return nil, err
	}

	submit := tracker.SubmitRequest{
		PregnancyID: params.PregnancyID,
		Reference:   ref,
		Manual:      params.Manual,
		Quantity:    params.Quantity,
		Unit:        params.Unit,
		MealType:    params.MealType,
	}
	if params.LoggedAt != "" {
		if submit.LoggedAt, err = parseTimestamp(params.LoggedAt); err != nil {
			return nil, err
		}
	}

	entry, err := h.svc.SubmitNutritionLog(ctx, submit)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(entry)
}

func (h *toolHandler) handleCorrectNutritionLog(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params CorrectNutritionLogParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.EntryID == "" {
		return nil, fmt.Errorf("%w: entry_id is required", errInvalidParams)
	}
	ref, err := params.reference()
	if err != nil {
		return nil, err
	}

	correction := tracker.CorrectionRequest{
		Reference: ref,
		Manual:    params.Manual,
		Quantity:  params.Quantity,
		Unit:      params.Unit,
		MealType:  params.MealType,
	}
	if params.LoggedAt != nil {
		ts, err := parseTimestamp(*params.LoggedAt)
		if err != nil {
			return nil, err
		}
		correction.LoggedAt = &ts
	}

	entry, err := h.svc.CorrectNutritionLog(ctx, params.EntryID, correction)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(entry)
}

func (h *toolHandler) handleDeleteNutritionLog(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params EntryParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.EntryID == "" {
		return nil, fmt.Errorf("%w: entry_id is required", errInvalidParams)
	}
	if err := h.svc.DeleteNutritionLog(ctx, params.EntryID); err != nil {
		return nil, err
	}
	return createJSONResponse(map[string]interface{}{"entry_id": params.EntryID, "deleted": true})
}

func (h *toolHandler) handleGetEntries(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetEntriesParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	from, err := h.parseDate(params.StartDate, false)
	if err != nil {
		return nil, err
	}
	to, err := h.parseDate(params.EndDate, false)
	if err != nil {
		return nil, err
	}
	entries, err := h.svc.ListEntries(ctx, params.PregnancyID, from, to, params.IncludeTombstoned)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.NutritionLogEntry{}
	}
	return createJSONResponse(entries)
}

func (h *toolHandler) handleGetDailyProgress(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params DateParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	day, err := h.dayOrToday(params.Date)
	if err != nil {
		return nil, err
	}
	progress, err := h.svc.GetDailyProgress(ctx, params.PregnancyID, day)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(progress)
}

func (h *toolHandler) trend(ctx context.Context, req *protocol.CallToolRequest) ([]models.PeriodProgress, error) {
	var params TrendParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	start, err := h.parseDate(params.StartDate, true)
	if err != nil {
		return nil, err
	}
	end, err := h.parseDate(params.EndDate, true)
	if err != nil {
		return nil, err
	}
	seq := h.svc.TrendOverRange(ctx, params.PregnancyID, start, end, models.Granularity(params.Granularity))
	return tracker.CollectTrend(seq)
}

func (h *toolHandler) handleGetTrend(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	periods, err := h.trend(ctx, req)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(periods)
}

// handleExportTrend returns the trend as a base64 encoded xlsx workbook.
func (h *toolHandler) handleExportTrend(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	periods, err := h.trend(ctx, req)
	if err != nil {
		return nil, err
	}
	buf, err := export.TrendWorkbook(periods)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(map[string]interface{}{
		"filename":  "nutrition-trend.xlsx",
		"mime_type": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"periods":   len(periods),
		"content":   base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
}

func (h *toolHandler) handleGetGoals(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params DateParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	day, err := h.dayOrToday(params.Date)
	if err != nil {
		return nil, err
	}
	table, err := h.svc.GetGoals(ctx, params.PregnancyID, day)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(table)
}

func (h *toolHandler) handleSetGoalOverride(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SetGoalOverrideParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	o, err := h.svc.SetGoalOverride(ctx, params.PregnancyID, models.Nutrient(params.Nutrient), params.Trimester, params.Amount, params.Unit)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(o)
}
