// Package database opens the relational store behind the task, folder,
// chat history and calendar token tables.
//
// A DATABASE_URL starting with postgres:// or postgresql:// is opened with the
// pgx stdlib driver. Anything else is treated as a SQLite path (or :memory:)
// and opened with the pure-Go modernc driver. Queries are written with ?
// placeholders and rebound per driver by sqlx.
//
// Schema changes are embedded SQL files applied in version order and recorded
// in a schema_migrations table.
package database
