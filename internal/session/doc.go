// Package session holds the per-user state of the dashboard: the selected
// data type and page, the current table and the last forecast.
//
// A Session is created at login and deleted at logout. Handlers never share
// mutable state; they load a session from a Store, change it inside
// Store.Update and let the store persist the result. Two stores exist:
// MemoryStore for a single process and RedisStore for a shared deployment.
package session
