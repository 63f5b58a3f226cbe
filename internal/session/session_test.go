package session

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintastic/internal/dataprocessing"
	apperrors "fintastic/internal/errors"
	"fintastic/internal/forecast"
	"fintastic/internal/table"
)

func sampleTable() *table.Table {
	return table.MustNew(
		table.NewDateColumn("date", []time.Time{
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		}, nil),
		table.NewNumericColumn("sales", []float64{10, math.NaN()}),
	)
}

func sampleForecast() *forecast.Result {
	return &forecast.Result{
		Model:    forecast.ModelMovingAverage,
		Column:   "sales",
		Horizon:  10,
		Values:   []float64{math.NaN(), 11.5},
		InSample: true,
	}
}

func TestSession_SelectDataTypeClearsWork(t *testing.T) {
	s := New("u1", "a@example.com", "user")
	s.SelectDataType(dataprocessing.DataTypeSales)
	s.SetTable(sampleTable())
	s.SetForecast(sampleForecast())

	s.SelectDataType(dataprocessing.DataTypeSales)
	assert.NotNil(t, s.Table, "same selection keeps the table")

	s.SelectDataType(dataprocessing.DataTypeStocks)
	assert.Nil(t, s.Table)
	assert.Nil(t, s.LastForecast)
	assert.Equal(t, dataprocessing.DataTypeStocks, s.DataType)
}

func TestSession_SetTableDropsForecast(t *testing.T) {
	s := New("u1", "a@example.com", "user")
	s.SetForecast(sampleForecast())
	s.SetTable(sampleTable())
	assert.Nil(t, s.LastForecast)
}

func TestSession_State(t *testing.T) {
	s := New("u1", "a@example.com", "admin")
	st := s.State()
	assert.False(t, st.HasTable)
	assert.Equal(t, PageHome, st.CurrentPage)

	s.SetTable(sampleTable())
	st = s.State()
	assert.True(t, st.HasTable)
	assert.Equal(t, 2, st.Rows)
	require.Len(t, st.Columns, 2)
	assert.Equal(t, "sales", st.Columns[1].Name)
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour, nil)
	s := New("u1", "a@example.com", "user")
	require.NoError(t, store.Create(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	updated, err := store.Update(ctx, s.ID, func(s *Session) error {
		s.SetTable(sampleTable())
		return nil
	})
	require.NoError(t, err)
	assert.True(t, updated.Table.Equal(sampleTable()))

	got.SetPage(PageForecast)
	again, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, PageHome, again.CurrentPage, "copies returned by Get are detached")

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestMemoryStore_UpdateFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0, nil)
	s := New("u1", "a@example.com", "user")
	require.NoError(t, store.Create(ctx, s))

	boom := errors.New("boom")
	_, err := store.Update(ctx, s.ID, func(s *Session) error {
		s.SetPage(PageUpload)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, PageHome, got.CurrentPage)

	_, err = store.Update(ctx, "missing", func(*Session) error { return nil })
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute, nil)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	s := New("u1", "a@example.com", "user")
	require.NoError(t, store.Create(ctx, s))
	assert.Equal(t, 1, store.Len())

	now = now.Add(2 * time.Minute)
	_, err := store.Get(ctx, s.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
	assert.Equal(t, 0, store.Len())
}

func TestCodec_RoundTrip(t *testing.T) {
	s := New("u1", "a@example.com", "user")
	s.SelectDataType(dataprocessing.DataTypeCustom)
	s.SetTable(sampleTable())
	s.SetForecast(sampleForecast())

	data, err := encode(s)
	require.NoError(t, err)
	got, err := decode(data)
	require.NoError(t, err)

	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, dataprocessing.DataTypeCustom, got.DataType)
	assert.True(t, got.Table.Equal(s.Table))
	require.NotNil(t, got.LastForecast)
	assert.True(t, math.IsNaN(got.LastForecast.Values[0]))
	assert.Equal(t, 11.5, got.LastForecast.Values[1])
	assert.True(t, got.LastForecast.InSample)
}
