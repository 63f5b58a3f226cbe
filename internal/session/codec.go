package session

import (
	"encoding/json"
	"math"
	"time"

	"fintastic/internal/dataprocessing"
	"fintastic/internal/forecast"
	"fintastic/internal/table"
)

type forecastRecord struct {
	Model    string      `json:"model"`
	Column   string      `json:"column"`
	Horizon  int         `json:"horizon"`
	Values   []*float64  `json:"values"`
	Dates    []time.Time `json:"dates,omitempty"`
	InSample bool        `json:"in_sample"`
}

type sessionRecord struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Email       string          `json:"email"`
	Role        string          `json:"role"`
	DataType    string          `json:"data_type"`
	CurrentPage string          `json:"current_page"`
	Table       *table.Table    `json:"table,omitempty"`
	Forecast    *forecastRecord `json:"forecast,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// encode serialises a session. Missing forecast values are stored as null.
func encode(s *Session) ([]byte, error) {
	rec := sessionRecord{
		ID:          s.ID,
		UserID:      s.UserID,
		Email:       s.Email,
		Role:        s.Role,
		DataType:    string(s.DataType),
		CurrentPage: s.CurrentPage,
		Table:       s.Table,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if f := s.LastForecast; f != nil {
		values := make([]*float64, len(f.Values))
		for i, v := range f.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			values[i] = &v
		}
		rec.Forecast = &forecastRecord{
			Model:    f.Model,
			Column:   f.Column,
			Horizon:  f.Horizon,
			Values:   values,
			Dates:    f.Dates,
			InSample: f.InSample,
		}
	}
	return json.Marshal(rec)
}

func decode(data []byte) (*Session, error) {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	s := &Session{
		ID:          rec.ID,
		UserID:      rec.UserID,
		Email:       rec.Email,
		Role:        rec.Role,
		DataType:    dataprocessing.DataType(rec.DataType),
		CurrentPage: rec.CurrentPage,
		Table:       rec.Table,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if f := rec.Forecast; f != nil {
		values := make([]float64, len(f.Values))
		for i, v := range f.Values {
			values[i] = math.NaN()
			if v != nil {
				values[i] = *v
			}
		}
		s.LastForecast = &forecast.Result{
			Model:    f.Model,
			Column:   f.Column,
			Horizon:  f.Horizon,
			Values:   values,
			Dates:    f.Dates,
			InSample: f.InSample,
		}
	}
	return s, nil
}
