package http

import (
	"fmt"
	"math"
	"net/http"

	"github.com/go-chi/render"

	apierrors "fintastic/internal/errors"
	"fintastic/internal/forecast"
	"fintastic/internal/middleware"
	"fintastic/internal/table"
	api "fintastic/pkg/contracts/api/v1"
)

// Content types of downloads.
const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// exportFormats are the accepted values of the format query parameter.
var exportFormats = []string{"csv", "xlsx"}

// principal returns the caller attached by RequireAuth. Routes that call it
// are always mounted behind RequireAuth.
func principal(w http.ResponseWriter, r *http.Request, eh *apierrors.ErrorHandler) (middleware.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		eh.HandleError(w, r, apierrors.ErrUnauthorized)
	}
	return p, ok
}

// renderResultError answers a failed transform or forecast. Authentication
// and backend failures stay problem responses.
func renderResultError(w http.ResponseWriter, r *http.Request, eh *apierrors.ErrorHandler, err error) {
	switch apierrors.TypeOf(err) {
	case apierrors.ErrTypeAuthenticationFailure, apierrors.ErrTypeBackendUnavailable:
		eh.HandleError(w, r, err)
		return
	}
	apiErr := apierrors.FromAppError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		eh.HandleError(w, r, err)
		return
	}
	render.Status(r, apiErr.StatusCode)
	render.JSON(w, r, api.ResultResponse{
		Success:   false,
		Message:   apiErr.Message,
		ErrorCode: apiErr.ErrorCode,
	})
}

func attachment(w http.ResponseWriter, filename, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func columnInfo(schema []table.Schema) []api.ColumnInfo {
	out := make([]api.ColumnInfo, len(schema))
	for i, s := range schema {
		out[i] = api.ColumnInfo{Name: s.Name, Kind: s.Kind, Missing: s.Missing}
	}
	return out
}

func tableResponse(tbl *table.Table, totalRows int) api.TableResponse {
	cols := tbl.Columns()
	records := make([]map[string]interface{}, tbl.NumRows())
	for i := range records {
		rec := make(map[string]interface{}, len(cols))
		for _, c := range cols {
			rec[c.Name] = c.Value(i)
		}
		records[i] = rec
	}
	return api.TableResponse{
		Rows:      tbl.NumRows(),
		TotalRows: totalRows,
		Columns:   columnInfo(tbl.Schema()),
		Records:   records,
	}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func summaryStats(summary []table.Summary) []api.SummaryStats {
	if len(summary) == 0 {
		return nil
	}
	out := make([]api.SummaryStats, len(summary))
	for i, s := range summary {
		out[i] = api.SummaryStats{
			Column: s.Column,
			Count:  s.Count,
			Mean:   finite(s.Mean),
			Std:    finite(s.Std),
			Min:    finite(s.Min),
			Q25:    finite(s.Q25),
			Median: finite(s.Q50),
			Q75:    finite(s.Q75),
			Max:    finite(s.Max),
		}
	}
	return out
}

func forecastResponse(res *forecast.Result) api.ForecastResponse {
	out := api.ForecastResponse{
		ResultResponse: api.ResultResponse{
			Success: true,
			Message: fmt.Sprintf("Forecast of %s with %s", res.Column, res.Model),
		},
		Model:    res.Model,
		Column:   res.Column,
		Horizon:  res.Horizon,
		InSample: res.InSample,
		Values:   res.Points(),
	}
	if len(res.Dates) > 0 {
		out.Dates = make([]string, len(res.Dates))
		for i, d := range res.Dates {
			out.Dates[i] = table.FormatDate(d)
		}
	}
	return out
}
