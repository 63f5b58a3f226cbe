package session

import (
	"time"

	"github.com/google/uuid"

	"fintastic/internal/dataprocessing"
	"fintastic/internal/forecast"
	"fintastic/internal/table"
)

// Pages a client may report as current.
const (
	PageHome      = "home"
	PageUpload    = "upload"
	PageTransform = "transform"
	PageForecast  = "forecast"
	PageMyData    = "my_data"
)

// Session is one authenticated user's workspace.
type Session struct {
	ID          string
	UserID      string
	Email       string
	Role        string
	DataType    dataprocessing.DataType
	CurrentPage string
	// Table is the working table; nil until an upload or fetch.
	Table *table.Table
	// LastForecast is the most recent forecast on Table.
	LastForecast *forecast.Result
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// New starts a session for an authenticated user.
func New(userID, email, role string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		Email:       email,
		Role:        role,
		CurrentPage: PageHome,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SelectDataType switches the upload template. The working table and any
// forecast belong to the previous selection and are cleared.
func (s *Session) SelectDataType(dt dataprocessing.DataType) {
	if s.DataType == dt {
		return
	}
	s.DataType = dt
	s.Table = nil
	s.LastForecast = nil
}

// SetTable replaces the working table and drops the forecast made on the old one.
func (s *Session) SetTable(t *table.Table) {
	s.Table = t
	s.LastForecast = nil
}

// SetForecast records the last forecast.
func (s *Session) SetForecast(r *forecast.Result) {
	s.LastForecast = r
}

// SetPage records the page the client shows.
func (s *Session) SetPage(page string) {
	s.CurrentPage = page
}

// clone returns a copy that shares the immutable table.
func (s *Session) clone() *Session {
	c := *s
	if s.LastForecast != nil {
		f := *s.LastForecast
		f.Values = append([]float64(nil), s.LastForecast.Values...)
		f.Dates = append([]time.Time(nil), s.LastForecast.Dates...)
		c.LastForecast = &f
	}
	return &c
}

// State is the JSON view of a session.
type State struct {
	ID          string           `json:"session_id"`
	UserID      string           `json:"user_id"`
	Email       string           `json:"email"`
	Role        string           `json:"role"`
	DataType    string           `json:"data_type,omitempty"`
	CurrentPage string           `json:"current_page"`
	HasTable    bool             `json:"has_table"`
	Rows        int              `json:"rows"`
	Columns     []table.Schema   `json:"columns,omitempty"`
	Forecast    *forecast.Result `json:"last_forecast,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// State summarises the session for clients.
func (s *Session) State() State {
	st := State{
		ID:          s.ID,
		UserID:      s.UserID,
		Email:       s.Email,
		Role:        s.Role,
		DataType:    string(s.DataType),
		CurrentPage: s.CurrentPage,
		Forecast:    s.LastForecast,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.Table != nil {
		st.HasTable = true
		st.Rows = s.Table.NumRows()
		st.Columns = s.Table.Schema()
	}
	return st
}
