package loader

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/klauspost/compress/zstd"

	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

const typeCSV = `store_id,company,store_type,date_comment,latitude,longitude,rating,rating_rank,delivery_issues,delivery_issues_rank,address
101,c1,t1,2021-03-31,-23.5,-46.4,4.1,0.4,0.1,0.5,"Rua A, 1"
101,c1,t1,2021-06-30,-23.5,-46.4,NA,,0.2,0.6,"Rua A, 1"
s2,"c2, inc",t1,2021-06-30,,,4.5,0.9,0.05,0.9,Rua B
`

const benchCSV = `store_type,date_comment,rating,delivery_issues
t1,2021-03-31,4.0,0.1
t1,2021-06-30,4.2,0.12
`

// --- DecodeCSV ---

func TestDecodeCSV_Typing(t *testing.T) {
	f, err := DecodeCSV(strings.NewReader(typeCSV))
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}
	if f.Len() != 3 {
		t.Fatalf("rows: got %d, want 3", f.Len())
	}

	id, _ := f.Column("store_id")
	if id.IsNumeric() || id.TextAt(0) != "101" {
		t.Errorf("store_id must stay text: numeric=%v first=%q", id.IsNumeric(), id.TextAt(0))
	}
	company, _ := f.Column("company")
	if company.TextAt(2) != "c2, inc" {
		t.Errorf("quoted company: got %q", company.TextAt(2))
	}
	rating, _ := f.Column("rating")
	if !rating.IsNumeric() {
		t.Fatal("rating should be numeric")
	}
	if rating.NumAt(1).IsSome() {
		t.Error("NA should be null")
	}
	if v, _ := rating.NumAt(2).Unpack(); v != 4.5 {
		t.Errorf("rating[2]: got %v, want 4.5", v)
	}
	rank, _ := f.Column("rating_rank")
	if rank.NumAt(1).IsSome() {
		t.Error("empty cell should be null")
	}
	addr, _ := f.Column("address")
	if addr.IsNumeric() {
		t.Error("address should be text")
	}
}

func TestDecodeCSV_Empty(t *testing.T) {
	if _, err := DecodeCSV(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty input, got nil")
	}
}

func TestDecodeCSV_HeaderOnly(t *testing.T) {
	f, err := DecodeCSV(strings.NewReader("store_type,date_comment,rating\n"))
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}
	if f.Len() != 0 || len(f.Columns) != 3 {
		t.Errorf("got %d rows %d cols, want 0 rows 3 cols", f.Len(), len(f.Columns))
	}
}

// --- FileSource ---

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func compress(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	if _, err := io.WriteString(w, s); err != nil {
		t.Fatalf("zstd write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zstd close: %v", err)
	}
	return buf.Bytes()
}

func TestFileSource_PlainAndCompressed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "type_ts.csv.zst", compress(t, typeCSV))
	writeFile(t, dir, "benchmark_ts.csv", []byte(benchCSV))

	src := NewFileSource(dir)
	f, err := src.Fetch(context.Background(), "type_ts")
	if err != nil {
		t.Fatalf("Fetch compressed: %v", err)
	}
	if f.Len() != 3 {
		t.Errorf("type_ts rows: got %d, want 3", f.Len())
	}
	f, err = src.Fetch(context.Background(), "benchmark_ts")
	if err != nil {
		t.Fatalf("Fetch plain: %v", err)
	}
	if f.Len() != 2 {
		t.Errorf("benchmark_ts rows: got %d, want 2", f.Len())
	}
	_, err = src.Fetch(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: got %v, want ErrNotFound", err)
	}
}

// --- S3Source ---

type fakeS3 struct {
	objects map[string][]byte
	keys    []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.keys = append(f.keys, key)
	data, ok := f.objects[key]
	if !ok {
		return nil, &s3types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Source_Fetch(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{
		"reviews/type_ts.csv":          []byte(typeCSV),
		"reviews/benchmark_ts.csv.zst": compress(t, benchCSV),
	}}
	src := &S3Source{client: fake, bucket: "analytics", prefix: "reviews"}

	f, err := src.Fetch(context.Background(), "type_ts")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if f.Len() != 3 {
		t.Errorf("rows: got %d, want 3", f.Len())
	}
	if len(fake.keys) != 2 || fake.keys[0] != "reviews/type_ts.csv.zst" {
		t.Errorf("lookup order: got %v", fake.keys)
	}
	if _, err := src.Fetch(context.Background(), "benchmark_ts"); err != nil {
		t.Errorf("Fetch compressed: %v", err)
	}
	if _, err := src.Fetch(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: got %v, want ErrNotFound", err)
	}
}

// --- SQLSource ---

func openSQLite(t *testing.T) *SQLSource {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE type_ts (store_id TEXT, company TEXT, store_type TEXT, date_comment TEXT,
			rating REAL, rating_rank REAL, delivery_issues REAL)`,
		`INSERT INTO type_ts VALUES ('s1', 'c1', 't1', '2021-03-31', 4.1, 0.4, 0.1)`,
		`INSERT INTO type_ts VALUES ('s1', 'c1', 't1', '2021-06-30', NULL, 0.5, 0.2)`,
		`INSERT INTO type_ts VALUES ('42', 'c2', 't1', '2021-06-30', 3, 0.2, 0.3)`,
		`CREATE TABLE benchmark_ts (store_type TEXT, date_comment TEXT, rating REAL)`,
		`INSERT INTO benchmark_ts VALUES ('t1', '2021-06-30', 4.0)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	return NewSQLSource(db, "sqlite3")
}

func TestSQLSource_Fetch(t *testing.T) {
	src := openSQLite(t)
	f, err := src.Fetch(context.Background(), "type_ts")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if f.Len() != 3 {
		t.Fatalf("rows: got %d, want 3", f.Len())
	}
	rating, _ := f.Column("rating")
	if !rating.IsNumeric() || rating.NumAt(1).IsSome() {
		t.Errorf("rating: numeric=%v null=%v", rating.IsNumeric(), rating.NumAt(1).IsNone())
	}
	id, _ := f.Column("store_id")
	if id.IsNumeric() || id.TextAt(2) != "42" {
		t.Errorf("store_id: got %q numeric=%v", id.TextAt(2), id.IsNumeric())
	}
}

func TestSQLSource_Errors(t *testing.T) {
	src := openSQLite(t)
	if _, err := src.Fetch(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: got %v, want ErrNotFound", err)
	}
	if _, err := src.Fetch(context.Background(), "type_ts; DROP TABLE type_ts"); err == nil {
		t.Error("expected error for invalid table name, got nil")
	}
}

// --- Load ---

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "type_ts.csv", []byte(typeCSV))
	writeFile(t, dir, "benchmark_ts.csv", []byte(benchCSV))

	names := Tables{Type: "type_ts", Company: "company_ts", Benchmark: "benchmark_ts", Performance: "stores_performance"}
	ds, err := Load(context.Background(), NewFileSource(dir), names, table.DefaultSchema())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Company != nil || ds.Performance != nil {
		t.Error("optional tables should be nil when missing")
	}
	if !ds.Type.HasStore("101") || !ds.Type.HasCompany("c2, inc") {
		t.Error("type table not indexed")
	}
	if got := ds.Type.IssueMetrics(); len(got) != 1 || got[0] != "delivery_issues" {
		t.Errorf("issue metrics: got %v", got)
	}
	if len(ds.Benchmark.Series("t1", "rating")) != 2 {
		t.Error("benchmark series not indexed")
	}
}

func TestLoad_SQL(t *testing.T) {
	names := Tables{Type: "type_ts", Benchmark: "benchmark_ts"}
	ds, err := Load(context.Background(), openSQLite(t), names, table.DefaultSchema())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ds.Type.Stores()) != 2 {
		t.Errorf("stores: got %v", ds.Type.Stores())
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "type_ts.csv", []byte(typeCSV))
	names := Tables{Type: "type_ts", Benchmark: "benchmark_ts"}
	_, err := Load(context.Background(), NewFileSource(dir), names, table.DefaultSchema())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
