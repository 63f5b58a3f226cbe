package api

import "time"

// ColumnInfo describes one column of the working table.
type ColumnInfo struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Missing int    `json:"missing"`
}

// ResultResponse is the envelope of transform and forecast outcomes. On
// failure Success is false and ErrorCode names the taxonomy type.
type ResultResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
}

// LoginResponse is returned by login and by registration with auto login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

// RegisterResponse acknowledges a new account.
type RegisterResponse struct {
	ResultResponse
	UserID string         `json:"user_id"`
	Login  *LoginResponse `json:"login,omitempty"`
}

// TableResponse is a page of the working table.
type TableResponse struct {
	Rows      int                      `json:"rows"`
	TotalRows int                      `json:"total_rows"`
	Columns   []ColumnInfo             `json:"columns"`
	Records   []map[string]interface{} `json:"records"`
}

// UploadResponse acknowledges an accepted upload.
type UploadResponse struct {
	ResultResponse
	Rows      int          `json:"rows"`
	Persisted int          `json:"persisted"`
	Columns   []ColumnInfo `json:"columns"`
}

// TransformResponse reports an applied operation.
type TransformResponse struct {
	ResultResponse
	Changed bool           `json:"changed"`
	Rows    int            `json:"rows"`
	Columns []ColumnInfo   `json:"columns"`
	Summary []SummaryStats `json:"summary,omitempty"`
}

// SummaryStats holds the describe statistics of one numeric column. Nil
// entries are undefined for the column.
type SummaryStats struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Q25    *float64 `json:"25%"`
	Median *float64 `json:"50%"`
	Q75    *float64 `json:"75%"`
	Max    *float64 `json:"max"`
}

// ForecastResponse carries a finished forecast.
type ForecastResponse struct {
	ResultResponse
	Model    string        `json:"model"`
	Column   string        `json:"column"`
	Horizon  int           `json:"horizon"`
	InSample bool          `json:"in_sample"`
	Values   []interface{} `json:"values"`
	Dates    []string      `json:"dates,omitempty"`
}

// TemplateInfo lists one upload template.
type TemplateInfo struct {
	DataType string   `json:"data_type"`
	Columns  []string `json:"columns"`
	Filename string   `json:"filename"`
}
