// Package database provides the PostgreSQL connection pool used by the
// research recorder. The trading core itself never touches the database;
// only the recorder's batch writers do.
package database
