// Package loader fetches the analytics tables from their source and builds
// an immutable table.Dataset.
//
// Sources:
//   - FileSource reads <dir>/<name>.csv.zst (zstd) or <dir>/<name>.csv
//   - S3Source reads the same object names from a bucket prefix
//   - SQLSource reads SELECT * FROM <name> from postgres or sqlite3
//
// CSV payloads are parsed with the Arrow CSV reader. Every column is read as
// nullable text first; non-identity columns whose values all parse as numbers
// become numeric columns. "", "NA", "NaN", "null" and "None" are null.
//
// Load fetches the four tables concurrently. The type and benchmark tables
// are required; a missing company or performance table is logged and skipped.
package loader
