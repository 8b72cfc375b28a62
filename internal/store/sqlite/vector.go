// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/expertbridge/postrec/internal/store"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ store.VectorStore = (*VectorStore)(nil)

// VectorStore implements store.VectorStore backed by SQLite with sqlite-vec.
//
// Embeddings live in a plain table as sqlite-vec float32 blobs and are ranked
// with the vec_distance_* scalar functions, so the tag filter is applied in
// the WHERE clause before ordering. The scan is exact.
type VectorStore struct {
	db         *sql.DB
	dimensions int
	metric     store.Metric
}

// NewVectorStore opens (or creates) a SQLite database at dbPath. An existing
// index must have been created with the same dimensions and metric.
func NewVectorStore(dbPath string, dimensions int, metric store.Metric) (*VectorStore, error) {
	if dimensions <= 0 {
		return nil, recerr.Errorf(recerr.CodeIndexOpenInvalid, "dimensions must be positive, got %d", dimensions)
	}
	if metric == "" {
		metric = store.MetricCosine
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "opening sqlite db")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "pinging sqlite db")
	}

	if err := migrateVector(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := checkIndexShape(db, dimensions, metric); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &VectorStore{db: db, dimensions: dimensions, metric: metric}, nil
}

func migrateVector(db *sql.DB) error {
	const recordsDDL = `
CREATE TABLE IF NOT EXISTS records (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	id        TEXT NOT NULL UNIQUE,
	embedding BLOB NOT NULL,
	metadata  TEXT NOT NULL DEFAULT '{}',
	text      TEXT NOT NULL,
	language  TEXT NOT NULL DEFAULT ''
)`
	if _, err := db.Exec(recordsDDL); err != nil {
		return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "creating records table")
	}

	const tagsDDL = `
CREATE TABLE IF NOT EXISTS record_tags (
	id  TEXT NOT NULL REFERENCES records(id) ON DELETE CASCADE,
	tag TEXT NOT NULL,
	PRIMARY KEY (id, tag)
)`
	if _, err := db.Exec(tagsDDL); err != nil {
		return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "creating record_tags table")
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_record_tags_tag ON record_tags(tag)`); err != nil {
		return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "creating record_tags index")
	}

	const metaDDL = `
CREATE TABLE IF NOT EXISTS index_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`
	if _, err := db.Exec(metaDDL); err != nil {
		return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "creating index_meta table")
	}

	return nil
}

// checkIndexShape records dimensions and metric on first open and rejects a
// reopen with different values.
func checkIndexShape(db *sql.DB, dimensions int, metric store.Metric) error {
	want := map[string]string{
		"dimensions": strconv.Itoa(dimensions),
		"metric":     string(metric),
	}

	for _, key := range []string{"dimensions", "metric"} {
		var got string
		err := db.QueryRow(`SELECT value FROM index_meta WHERE key = ?`, key).Scan(&got)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := db.Exec(`INSERT INTO index_meta(key, value) VALUES (?, ?)`, key, want[key]); err != nil {
				return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "recording index %s", key)
			}
		case err != nil:
			return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "reading index %s", key)
		case got != want[key]:
			code := recerr.CodeIndexOpenInvalid
			if key == "dimensions" {
				code = recerr.CodeIndexOpenDimensionMismatch
			}
			return recerr.Errorf(code, "index was created with %s %s, opened with %s", key, got, want[key])
		}
	}
	return nil
}

// Dimensions returns the fixed embedding length of the index.
func (v *VectorStore) Dimensions() int { return v.dimensions }

// Upsert inserts or replaces records in a single transaction. A replaced
// record keeps its original insertion position for tie-breaking.
func (v *VectorStore) Upsert(ctx context.Context, records ...store.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := store.ValidateRecords(v.dimensions, records); err != nil {
		return err
	}

	type prepared struct {
		rec  store.Record
		blob []byte
		meta string
	}
	rows := make([]prepared, 0, len(records))
	for _, r := range records {
		blob, err := sqlite_vec.SerializeFloat32(r.Embedding)
		if err != nil {
			return recerr.Wrapf(err, recerr.CodeIndexUpsertInvalid, "serializing embedding %s", r.ID)
		}
		metaJSON := []byte("{}")
		if len(r.Metadata) > 0 {
			metaJSON, err = json.Marshal(r.Metadata)
			if err != nil {
				return recerr.Wrapf(err, recerr.CodeIndexUpsertInvalid, "marshalling metadata %s", r.ID)
			}
		}
		rows = append(rows, prepared{rec: r, blob: blob, meta: string(metaJSON)})
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	const upsertQ = `INSERT INTO records(id, embedding, metadata, text, language) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	embedding = excluded.embedding,
	metadata  = excluded.metadata,
	text      = excluded.text,
	language  = excluded.language`

	for _, row := range rows {
		id := row.rec.ID
		lang, _ := row.rec.Metadata[store.FieldLanguage].(string)

		if _, err := tx.ExecContext(ctx, upsertQ, id, row.blob, row.meta, row.rec.Text, lang); err != nil {
			return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "upserting record %s", id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM record_tags WHERE id = ?`, id); err != nil {
			return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "clearing tags of %s", id)
		}
		for _, tag := range store.MetadataTags(row.rec.Metadata) {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO record_tags(id, tag) VALUES (?, ?)`, id, tag); err != nil {
				return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "indexing tag %q of %s", tag, id)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "committing upsert")
	}
	return nil
}

// Search performs an exact k-nearest-neighbor scan over the records matching
// filters. Distance is lower for closer matches; 0.0 is an exact match.
func (v *VectorStore) Search(ctx context.Context, query []float32, k int, filters map[string]any) ([]store.VectorResult, error) {
	if err := store.ValidateQuery(v.dimensions, query, k); err != nil {
		return nil, err
	}
	f, err := store.ParseFilter(filters)
	if err != nil {
		return nil, err
	}
	if k == 0 {
		return []store.VectorResult{}, nil
	}

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, recerr.Wrapf(err, recerr.CodeIndexSearchInvalid, "serializing query vector")
	}

	q, args := v.searchQuery(f, blob, k)
	rows, err := v.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "searching vectors")
	}
	defer func() { _ = rows.Close() }()

	results := []store.VectorResult{}
	for rows.Next() {
		var r store.VectorResult
		var metaStr string

		if err := rows.Scan(&r.ID, &r.Distance, &metaStr, &r.Text); err != nil {
			return nil, recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "scanning vector result")
		}

		r.Metadata = map[string]any{}
		if metaStr != "" && metaStr != "{}" {
			if err := json.Unmarshal([]byte(metaStr), &r.Metadata); err != nil {
				return nil, recerr.Wrap(err, recerr.CodeIndexRecordCorrupt,
					fmt.Sprintf("unmarshalling metadata of %s", r.ID), recerr.FieldPostID(r.ID))
			}
		}

		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "iterating vector results")
	}

	return results, nil
}

func (v *VectorStore) searchQuery(f store.Filter, blob []byte, k int) (string, []any) {
	// vec_distance_cosine is NULL when either side has zero norm; rank those
	// rows the way store.Metric.Distance does.
	distance := "COALESCE(vec_distance_cosine(r.embedding, ?), 1.0)"
	if v.metric == store.MetricL2 {
		distance = "vec_distance_l2(r.embedding, ?)"
	}

	var b strings.Builder
	b.WriteString(`SELECT r.id, ` + distance + ` AS distance, r.metadata, r.text
FROM records r`)
	args := []any{blob}

	var conds []string
	if len(f.Tags) > 0 {
		conds = append(conds, `r.id IN (SELECT t.id FROM record_tags t WHERE t.tag IN (`+placeholders(len(f.Tags))+`))`)
		for _, tag := range f.Tags {
			args = append(args, tag)
		}
	}
	if len(f.Languages) > 0 {
		conds = append(conds, `r.language IN (`+placeholders(len(f.Languages))+`)`)
		for _, lang := range f.Languages {
			args = append(args, lang)
		}
	}
	if len(conds) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}

	b.WriteString("\nORDER BY distance, r.seq\nLIMIT ?")
	args = append(args, k)

	return b.String(), args
}

// Count returns the number of records in the index.
func (v *VectorStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := v.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, recerr.Wrapf(err, recerr.CodeIndexDatabaseFailure, "counting records")
	}
	return n, nil
}

// Close closes the underlying database connection.
func (v *VectorStore) Close() error {
	return v.db.Close()
}

func placeholders(n int) string {
	p := strings.Repeat("?,", n)
	return p[:len(p)-1]
}
