package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"fintastic/internal/backend"
	"fintastic/internal/config"
	"fintastic/internal/dataprocessing"
	apperrors "fintastic/internal/errors"
	"fintastic/internal/forecast"
	"fintastic/internal/middleware"
	"fintastic/internal/operations"
	"fintastic/internal/session"
	"fintastic/internal/shared/testutil"
	"fintastic/internal/table"
)

const salesCSV = "date,product,quantity,price\n" +
	"2024-01-01,widget,1,2.5\n" +
	"2024-01-02,widget,2,2.5\n" +
	"2024-01-03,gadget,3,4\n" +
	"2024-01-04,gadget,4,4\n" +
	"2024-01-05,widget,5,2.5\n"

type fixture struct {
	backend   backend.Backend
	store     *session.MemoryStore
	tokens    *middleware.TokenManager
	auth      *AuthService
	workspace *WorkspaceService
}

func newFixture(t *testing.T, b backend.Backend, cfg config.AuthConfig) *fixture {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	if b == nil {
		b = backend.NewMemory(logger).WithCost(bcrypt.MinCost)
	}
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = backend.DefaultRole
	}
	store := session.NewMemoryStore(time.Hour, logger)
	tokens := middleware.NewTokenManager("test-secret", time.Hour)
	pipeline := operations.NewPipeline(operations.DefaultRegistry(), logger, nil)
	dispatcher := forecast.NewDispatcher(forecast.DefaultRegistry(), logger)
	return &fixture{
		backend:   b,
		store:     store,
		tokens:    tokens,
		auth:      NewAuthService(b, store, tokens, cfg, nil, logger),
		workspace: NewWorkspaceService(store, b, dataprocessing.NewLoader(logger, nil), pipeline, dispatcher, logger),
	}
}

// login registers and signs in a user, returning the principal a request
// carrying the issued token would have.
func (f *fixture) login(t *testing.T, email string) middleware.Principal {
	t.Helper()
	ctx := context.Background()
	_, err := f.auth.Register(ctx, email, "password1", "")
	require.NoError(t, err)
	res, err := f.auth.Login(ctx, email, "password1")
	require.NoError(t, err)
	p, err := f.tokens.Parse(res.Token)
	require.NoError(t, err)
	return p
}

func (f *fixture) upload(t *testing.T, p middleware.Principal) UploadResult {
	t.Helper()
	res, err := f.workspace.Upload(context.Background(), p, "sales.csv", strings.NewReader(salesCSV))
	require.NoError(t, err)
	return res
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	f := newFixture(t, nil, config.AuthConfig{})
	ctx := context.Background()

	reg, err := f.auth.Register(ctx, "ana@example.com", "password1", "")
	require.NoError(t, err)
	assert.True(t, reg.Success)
	assert.NotEmpty(t, reg.UserID)
	assert.Nil(t, reg.Login)
	assert.Equal(t, 0, f.store.Len())

	login, err := f.auth.Login(ctx, "ana@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, login.UserID)
	assert.Equal(t, "user", login.Role)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, 1, f.store.Len())

	p, err := f.tokens.Parse(login.Token)
	require.NoError(t, err)
	assert.Equal(t, login.SessionID, p.SessionID)
}

func TestAuthService_AutoLoginOnSignup(t *testing.T) {
	f := newFixture(t, nil, config.AuthConfig{AutoLoginOnSignup: true})

	reg, err := f.auth.Register(context.Background(), "ben@example.com", "password1", "admin")
	require.NoError(t, err)
	require.NotNil(t, reg.Login)
	assert.Equal(t, "admin", reg.Login.Role)
	assert.Equal(t, 1, f.store.Len())
}

func TestAuthService_Failures(t *testing.T) {
	f := newFixture(t, nil, config.AuthConfig{})
	ctx := context.Background()
	_, err := f.auth.Register(ctx, "cy@example.com", "password1", "")
	require.NoError(t, err)

	tests := []struct {
		name     string
		run      func() error
		wantType apperrors.ErrorType
	}{
		{"duplicate registration", func() error {
			_, err := f.auth.Register(ctx, "cy@example.com", "password2", "")
			return err
		}, apperrors.ErrTypeConflict},
		{"wrong password", func() error {
			_, err := f.auth.Login(ctx, "cy@example.com", "nope")
			return err
		}, apperrors.ErrTypeAuthenticationFailure},
		{"unknown user", func() error {
			_, err := f.auth.Login(ctx, "ghost@example.com", "password1")
			return err
		}, apperrors.ErrTypeAuthenticationFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
		})
	}
	assert.Equal(t, 0, f.store.Len())
}

func TestAuthService_LogoutClearsSession(t *testing.T) {
	f := newFixture(t, nil, config.AuthConfig{})
	ctx := context.Background()
	p := f.login(t, "dee@example.com")
	f.upload(t, p)

	require.NoError(t, f.auth.Logout(ctx, p.SessionID))
	assert.Equal(t, 0, f.store.Len())

	_, err := f.workspace.State(ctx, p)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeAuthenticationFailure))

	// a second logout with the same token is harmless
	assert.NoError(t, f.auth.Logout(ctx, p.SessionID))
}

func TestWorkspace_UploadTransformForecast(t *testing.T) {
	f := newFixture(t, nil, config.AuthConfig{})
	ctx := context.Background()
	p := f.login(t, "eve@example.com")

	up := f.upload(t, p)
	assert.Equal(t, 5, up.Rows)
	assert.Equal(t, 5, up.Persisted)
	require.Len(t, up.Columns, 4)
	assert.Equal(t, table.Date.String(), up.Columns[0].Kind)

	state, err := f.workspace.State(ctx, p)
	require.NoError(t, err)
	assert.True(t, state.HasTable)
	assert.Equal(t, session.PageTransform, state.CurrentPage)

	tr, err := f.workspace.Transform(ctx, p, operations.OpRenameColumn,
		operations.Params{"from": "quantity", "to": "units"})
	require.NoError(t, err)
	assert.True(t, tr.Success)
	assert.True(t, tr.Changed)

	tbl, err := f.workspace.Table(ctx, p)
	require.NoError(t, err)
	_, ok := tbl.Column("units")
	assert.True(t, ok)

	res, err := f.workspace.Forecast(ctx, p, forecast.Request{
		Model: forecast.ModelLinearRegression, Column: "units", Horizon: 3,
	})
	require.NoError(t, err)
	require.Len(t, res.Values, 3)
	for i, want := range []float64{6, 7, 8} {
		assert.InDelta(t, want, res.Values[i], 1e-9)
	}

	last, err := f.workspace.LastForecast(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "units", last.Column)
}

func TestWorkspace_ReadOnlyTransformKeepsTable(t *testing.T) {
	f := newFixture(t, nil, config.AuthConfig{})
	ctx := context.Background()
	p := f.login(t, "fay@example.com")
	f.upload(t, p)
	before, err := f.workspace.Table(ctx, p)
	require.NoError(t, err)

	tr, err := f.workspace.Transform(ctx, p, operations.OpDescribe, nil)
	require.NoError(t, err)
	assert.False(t, tr.Changed)
	assert.NotEmpty(t, tr.Summary)

	after, err := f.workspace.Table(ctx, p)
	require.NoError(t, err)
	assert.True(t, before.Equal(after))
}

func TestWorkspace_FailedTransformLeavesTable(t *testing.T) {
	f := newFixture(t, nil, config.AuthConfig{})
	ctx := context.Background()
	p := f.login(t, "gus@example.com")
	f.upload(t, p)
	before, err := f.workspace.Table(ctx, p)
	require.NoError(t, err)

	_, err = f.workspace.Transform(ctx, p, operations.OpRenameColumn,
		operations.Params{"from": "quantity", "to": "price"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeDuplicateColumn, apperrors.TypeOf(err))

	after, err := f.workspace.Table(ctx, p)
	require.NoError(t, err)
	assert.True(t, before.Equal(after))
}

func TestWorkspace_NoActiveTable(t *testing.T) {
	f := newFixture(t, nil, config.AuthConfig{})
	ctx := context.Background()
	p := f.login(t, "hal@example.com")

	_, err := f.workspace.Transform(ctx, p, operations.OpNormalize, nil)
	assert.ErrorIs(t, err, apperrors.ErrNoActiveTable)

	_, _, err = f.workspace.Preview(ctx, p, 10)
	assert.ErrorIs(t, err, apperrors.ErrNoActiveTable)

	_, err = f.workspace.Forecast(ctx, p, forecast.Request{Model: forecast.ModelLinearRegression, Column: "quantity"})
	assert.ErrorIs(t, err, apperrors.ErrNoActiveTable)

	_, err = f.workspace.LastForecast(ctx, p)
	assert.ErrorIs(t, err, apperrors.ErrNoForecast)
}

func TestWorkspace_DataTypeSelection(t *testing.T) {
	f := newFixture(t, nil, config.AuthConfig{})
	ctx := context.Background()
	p := f.login(t, "ida@example.com")
	f.upload(t, p)

	state, err := f.workspace.SelectDataType(ctx, p, "Stocks")
	require.NoError(t, err)
	assert.Equal(t, string(dataprocessing.DataTypeStocks), state.DataType)
	assert.False(t, state.HasTable)

	// the legacy sales file lacks the stock template columns
	_, err = f.workspace.Upload(ctx, p, "sales.csv", strings.NewReader(salesCSV))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMissingRequiredColumns))

	_, err = f.workspace.SelectDataType(ctx, p, "bonds")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidParameter))
}

func TestWorkspace_SetPage(t *testing.T) {
	f := newFixture(t, nil, config.AuthConfig{})
	ctx := context.Background()
	p := f.login(t, "jo@example.com")

	state, err := f.workspace.SetPage(ctx, p, session.PageForecast)
	require.NoError(t, err)
	assert.Equal(t, session.PageForecast, state.CurrentPage)

	_, err = f.workspace.SetPage(ctx, p, "admin")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidParameter))
}

func TestWorkspace_PreviewLimit(t *testing.T) {
	f := newFixture(t, nil, config.AuthConfig{})
	ctx := context.Background()
	p := f.login(t, "kit@example.com")
	f.upload(t, p)

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"explicit limit", 2, 2},
		{"limit above rows", 100, 5},
		{"default limit", 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, total, err := f.workspace.Preview(ctx, p, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tbl.NumRows())
			assert.Equal(t, 5, total)
		})
	}
}

func TestWorkspace_FetchRestoresStoredRows(t *testing.T) {
	f := newFixture(t, nil, config.AuthConfig{})
	ctx := context.Background()
	p := f.login(t, "lou@example.com")

	_, err := f.workspace.Fetch(ctx, p)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	f.upload(t, p)
	_, err = f.workspace.Transform(ctx, p, operations.OpRemoveColumns,
		operations.Params{"columns": []interface{}{"price"}})
	require.NoError(t, err)

	state, err := f.workspace.Fetch(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 5, state.Rows)
	assert.Len(t, state.Columns, 4)
	assert.Equal(t, session.PageMyData, state.CurrentPage)
}

func TestWorkspace_SessionsAreIsolated(t *testing.T) {
	f := newFixture(t, nil, config.AuthConfig{})
	ctx := context.Background()
	a := f.login(t, "max@example.com")
	b := f.login(t, "nia@example.com")
	f.upload(t, a)

	_, err := f.workspace.Table(ctx, b)
	assert.ErrorIs(t, err, apperrors.ErrNoActiveTable)

	stolen := b
	stolen.SessionID = a.SessionID
	_, err = f.workspace.Table(ctx, stolen)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeAuthenticationFailure))
}

type failingInsert struct {
	*backend.Memory
}

func (failingInsert) InsertRows(ctx context.Context, userID string, tbl *table.Table) (int, error) {
	return 0, apperrors.NewBackendUnavailableError("insert rows", errors.New("connection refused"))
}

func TestWorkspace_UploadFailsWhenPersistenceFails(t *testing.T) {
	mem := backend.NewMemory(nil).WithCost(bcrypt.MinCost)
	f := newFixture(t, failingInsert{mem}, config.AuthConfig{})
	ctx := context.Background()
	p := f.login(t, "oz@example.com")

	_, err := f.workspace.Upload(ctx, p, "sales.csv", strings.NewReader(salesCSV))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeBackendUnavailable, apperrors.TypeOf(err))

	state, err := f.workspace.State(ctx, p)
	require.NoError(t, err)
	assert.False(t, state.HasTable)
}

func TestWorkspace_ForecastFailureKeepsPreviousResult(t *testing.T) {
	f := newFixture(t, nil, config.AuthConfig{})
	ctx := context.Background()
	p := f.login(t, "pam@example.com")
	f.upload(t, p)

	_, err := f.workspace.Forecast(ctx, p, forecast.Request{Model: forecast.ModelLinearRegression, Column: "quantity", Horizon: 2})
	require.NoError(t, err)

	_, err = f.workspace.Forecast(ctx, p, forecast.Request{Model: forecast.ModelARIMA, Column: "product"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeInvalidColumn, apperrors.TypeOf(err))

	last, err := f.workspace.LastForecast(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, forecast.ModelLinearRegression, last.Model)
	assert.False(t, math.IsNaN(last.Values[0]))
}
