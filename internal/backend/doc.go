// Package backend is the account and persistence collaborator of the
// dashboard. It registers and authenticates users and stores the raw rows of
// their uploads so they can be fetched back into a later session.
//
// Two implementations satisfy Backend: Memory, for development and tests,
// and Postgres, backed by a pgx connection pool. Both hash passwords with
// bcrypt and wrap infrastructure failures as BackendUnavailable errors; the
// cause is logged but never shown to the user.
package backend
