package backend

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fintastic/internal/dataprocessing"
	apperrors "fintastic/internal/errors"
	"fintastic/internal/table"
)

// DefaultRole is assigned when registration does not name one.
const DefaultRole = "user"

// User is a registered account.
type User struct {
	ID        string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Backend registers users, checks credentials and persists uploaded rows.
type Backend interface {
	Register(ctx context.Context, email, password, role string) (User, error)
	Authenticate(ctx context.Context, email, password string) (User, error)
	InsertRows(ctx context.Context, userID string, tbl *table.Table) (int, error)
	FetchRows(ctx context.Context, userID string) (*table.Table, error)
	Ping(ctx context.Context) error
	Close()
}

// Row is one stored upload row. Cells align with Columns; nil marks a
// missing cell.
type Row struct {
	Columns []string
	Cells   []*string
}

// RowsFromTable splits tbl into storable rows.
func RowsFromTable(tbl *table.Table) []Row {
	names := tbl.Names()
	cols := tbl.Columns()
	rows := make([]Row, tbl.NumRows())
	for i := range rows {
		cells := make([]*string, len(cols))
		for j, c := range cols {
			if c.IsMissing(i) {
				continue
			}
			v := c.Format(i)
			cells[j] = &v
		}
		rows[i] = Row{Columns: names, Cells: cells}
	}
	return rows
}

// TableFromRows rebuilds a table from stored rows. Rows from uploads with
// different columns are merged; columns keep first-seen order and cells a
// row does not carry are missing.
func TableFromRows(rows []Row) (*table.Table, error) {
	var header []string
	index := make(map[string]int)
	for _, r := range rows {
		for _, name := range r.Columns {
			if _, ok := index[name]; !ok {
				index[name] = len(header)
				header = append(header, name)
			}
		}
	}

	records := make([][]string, len(rows))
	for i, r := range rows {
		record := make([]string, len(header))
		for j, name := range r.Columns {
			if j < len(r.Cells) && r.Cells[j] != nil {
				record[index[name]] = *r.Cells[j]
			}
		}
		records[i] = record
	}
	return dataprocessing.FromRecords(header, records)
}

// normalizeCredentials checks the shape of a registration or login.
func normalizeCredentials(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperrors.NewInvalidParameterError("email", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apperrors.NewInvalidParameterError("email", "is not a valid address")
	}
	if password == "" {
		return "", apperrors.NewInvalidParameterError("password", "is required")
	}
	return email, nil
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", apperrors.NewInvalidParameterError("password", err.Error())
	}
	return string(hash), nil
}

func errInvalidCredentials() error {
	return apperrors.NewAuthenticationFailureError("Invalid email or password", nil)
}

func errEmailTaken() error {
	return apperrors.NewConflictError("email is already registered")
}

func errNoRows() error {
	return apperrors.NewNotFoundError("uploaded data")
}
