// Package export writes trajectory tables to CSV files, a SQLite run store and PNG plots.
package export
