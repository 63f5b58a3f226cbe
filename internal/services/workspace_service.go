package services

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"fintastic/internal/backend"
	"fintastic/internal/dataprocessing"
	apperrors "fintastic/internal/errors"
	"fintastic/internal/forecast"
	"fintastic/internal/middleware"
	"fintastic/internal/operations"
	"fintastic/internal/session"
	"fintastic/internal/table"
)

// DefaultPreviewRows is the preview size when the client does not ask for one.
const DefaultPreviewRows = 50

var validPages = map[string]bool{
	session.PageHome:      true,
	session.PageUpload:    true,
	session.PageTransform: true,
	session.PageForecast:  true,
	session.PageMyData:    true,
}

// WorkspaceService runs uploads, transforms and forecasts against the
// caller's session.
type WorkspaceService struct {
	sessions   session.Store
	backend    backend.Backend
	loader     *dataprocessing.Loader
	pipeline   *operations.Pipeline
	dispatcher *forecast.Dispatcher
	logger     *slog.Logger
}

// UploadResult describes an accepted upload.
type UploadResult struct {
	Rows      int            `json:"rows"`
	Columns   []table.Schema `json:"columns"`
	Persisted int            `json:"persisted"`
}

// TransformResult describes an applied operation.
type TransformResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Changed bool            `json:"changed"`
	Summary []table.Summary `json:"summary,omitempty"`
	Rows    int             `json:"rows"`
	Columns []table.Schema  `json:"columns"`
}

// NewWorkspaceService wires the workspace to its collaborators.
func NewWorkspaceService(sessions session.Store, b backend.Backend, loader *dataprocessing.Loader, pipeline *operations.Pipeline, dispatcher *forecast.Dispatcher, logger *slog.Logger) *WorkspaceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkspaceService{
		sessions:   sessions,
		backend:    b,
		loader:     loader,
		pipeline:   pipeline,
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("component", "workspace_service")),
	}
}

// Operations lists the transforms a client may apply.
func (s *WorkspaceService) Operations() []*operations.Operation {
	return s.pipeline.Registry().List()
}

// Models lists the forecast models.
func (s *WorkspaceService) Models() []forecast.Info {
	return s.dispatcher.Models()
}

// State returns the caller's session summary.
func (s *WorkspaceService) State(ctx context.Context, p middleware.Principal) (session.State, error) {
	sess, err := s.load(ctx, p)
	if err != nil {
		return session.State{}, err
	}
	return sess.State(), nil
}

// SelectDataType chooses the upload template. Changing it clears the table.
func (s *WorkspaceService) SelectDataType(ctx context.Context, p middleware.Principal, raw string) (session.State, error) {
	dt, err := dataprocessing.ParseDataType(raw)
	if err != nil {
		return session.State{}, err
	}
	sess, err := s.update(ctx, p, func(sess *session.Session) error {
		sess.SelectDataType(dt)
		return nil
	})
	if err != nil {
		return session.State{}, err
	}
	s.logger.InfoContext(ctx, "data type selected",
		slog.String("session_id", p.SessionID),
		slog.String("data_type", string(dt)))
	return sess.State(), nil
}

// SetPage records the page the client is showing.
func (s *WorkspaceService) SetPage(ctx context.Context, p middleware.Principal, page string) (session.State, error) {
	if !validPages[page] {
		return session.State{}, apperrors.NewInvalidParameterError("page", "unknown page "+page)
	}
	sess, err := s.update(ctx, p, func(sess *session.Session) error {
		sess.SetPage(page)
		return nil
	})
	if err != nil {
		return session.State{}, err
	}
	return sess.State(), nil
}

// Upload parses a file against the session's data type, persists its rows
// and makes it the working table. Nothing changes when persisting fails.
func (s *WorkspaceService) Upload(ctx context.Context, p middleware.Principal, filename string, r io.Reader) (UploadResult, error) {
	sess, err := s.load(ctx, p)
	if err != nil {
		return UploadResult{}, err
	}

	tbl, err := s.loader.Load(ctx, filename, r, sess.DataType)
	if err != nil {
		return UploadResult{}, err
	}

	persisted, err := s.backend.InsertRows(ctx, p.UserID, tbl)
	if err != nil {
		return UploadResult{}, err
	}

	if _, err := s.update(ctx, p, func(sess *session.Session) error {
		sess.SetTable(tbl)
		sess.SetPage(session.PageTransform)
		return nil
	}); err != nil {
		return UploadResult{}, err
	}

	s.logger.InfoContext(ctx, "upload stored",
		slog.String("session_id", p.SessionID),
		slog.String("filename", filename),
		slog.Int("rows", tbl.NumRows()),
		slog.Int("persisted", persisted))

	return UploadResult{
		Rows:      tbl.NumRows(),
		Columns:   tbl.Schema(),
		Persisted: persisted,
	}, nil
}

// Fetch loads the caller's persisted rows into the session.
func (s *WorkspaceService) Fetch(ctx context.Context, p middleware.Principal) (session.State, error) {
	if _, err := s.load(ctx, p); err != nil {
		return session.State{}, err
	}

	tbl, err := s.backend.FetchRows(ctx, p.UserID)
	if err != nil {
		return session.State{}, err
	}

	sess, err := s.update(ctx, p, func(sess *session.Session) error {
		sess.SetTable(tbl)
		sess.SetPage(session.PageMyData)
		return nil
	})
	if err != nil {
		return session.State{}, err
	}
	s.logger.InfoContext(ctx, "stored rows fetched",
		slog.String("session_id", p.SessionID),
		slog.Int("rows", tbl.NumRows()))
	return sess.State(), nil
}

// Table returns the working table.
func (s *WorkspaceService) Table(ctx context.Context, p middleware.Principal) (*table.Table, error) {
	sess, err := s.load(ctx, p)
	if err != nil {
		return nil, err
	}
	if sess.Table == nil {
		return nil, apperrors.ErrNoActiveTable
	}
	return sess.Table, nil
}

// Preview returns the first limit rows of the working table and its total
// row count. A limit below one uses DefaultPreviewRows.
func (s *WorkspaceService) Preview(ctx context.Context, p middleware.Principal, limit int) (*table.Table, int, error) {
	tbl, err := s.Table(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	if limit < 1 {
		limit = DefaultPreviewRows
	}
	return tbl.Head(limit), tbl.NumRows(), nil
}

// Transform applies one operation to the working table. Read-only
// operations and failures leave the table as it was.
func (s *WorkspaceService) Transform(ctx context.Context, p middleware.Principal, id string, params operations.Params) (TransformResult, error) {
	var res operations.Result
	sess, err := s.update(ctx, p, func(sess *session.Session) error {
		if sess.Table == nil {
			return apperrors.ErrNoActiveTable
		}
		r, err := s.pipeline.Apply(ctx, sess.Table, id, params)
		if err != nil {
			return err
		}
		if r.Changed {
			sess.SetTable(r.Table)
		}
		res = r
		return nil
	})
	if err != nil {
		return TransformResult{}, err
	}

	return TransformResult{
		Success: true,
		Message: res.Message,
		Changed: res.Changed,
		Summary: res.Summary,
		Rows:    sess.Table.NumRows(),
		Columns: sess.Table.Schema(),
	}, nil
}

// Forecast runs a model on the working table and keeps the result as the
// session's last forecast. The fit runs outside the session lock.
func (s *WorkspaceService) Forecast(ctx context.Context, p middleware.Principal, req forecast.Request) (*forecast.Result, error) {
	tbl, err := s.Table(ctx, p)
	if err != nil {
		return nil, err
	}

	res, err := s.dispatcher.Run(ctx, tbl, req)
	if err != nil {
		return nil, err
	}

	if _, err := s.update(ctx, p, func(sess *session.Session) error {
		if sess.Table == nil {
			return apperrors.ErrNoActiveTable
		}
		sess.SetForecast(res)
		sess.SetPage(session.PageForecast)
		return nil
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// LastForecast returns the most recent forecast of the session.
func (s *WorkspaceService) LastForecast(ctx context.Context, p middleware.Principal) (*forecast.Result, error) {
	sess, err := s.load(ctx, p)
	if err != nil {
		return nil, err
	}
	if sess.LastForecast == nil {
		return nil, apperrors.ErrNoForecast
	}
	return sess.LastForecast, nil
}

func (s *WorkspaceService) load(ctx context.Context, p middleware.Principal) (*session.Session, error) {
	sess, err := s.sessions.Get(ctx, p.SessionID)
	if err != nil {
		return nil, sessionError(err)
	}
	if sess.UserID != p.UserID {
		return nil, errSessionOwner()
	}
	return sess, nil
}

func (s *WorkspaceService) update(ctx context.Context, p middleware.Principal, fn func(*session.Session) error) (*session.Session, error) {
	sess, err := s.sessions.Update(ctx, p.SessionID, func(sess *session.Session) error {
		if sess.UserID != p.UserID {
			return errSessionOwner()
		}
		return fn(sess)
	})
	if err != nil {
		return nil, sessionError(err)
	}
	return sess, nil
}

// sessionError turns a missing session into an authentication failure so
// the client logs in again.
func sessionError(err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return apperrors.NewAuthenticationFailureError("Session expired", err)
	}
	return err
}

func errSessionOwner() error {
	return apperrors.NewAuthenticationFailureError("Session does not belong to caller", nil)
}
