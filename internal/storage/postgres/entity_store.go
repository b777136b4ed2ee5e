package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"bonding-curve-indexer/internal/domain"
	"bonding-curve-indexer/internal/storage"
)

// table describes how one entity kind maps onto its table.
// columns[0] is the primary key; values must return arguments in column order.
type table[T any] struct {
	name    string
	columns []string
	values  func(T) []any
	scan    func(row pgx.Row) (T, error)
}

// EntityStore implements storage.EntityStore for one table.
// Every multi-record write runs as a single pgx.Batch inside one transaction.
type EntityStore[T domain.Entity[T]] struct {
	pool *Pool
	t    table[T]

	selectSQL string
	insertSQL string
	upsertSQL string
	updateSQL string
}

func newEntityStore[T domain.Entity[T]](pool *Pool, t table[T]) *EntityStore[T] {
	cols := strings.Join(t.columns, ", ")
	placeholders := make([]string, len(t.columns))
	for i := range t.columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	key := t.columns[0]

	sets := make([]string, 0, len(t.columns)-1)
	excluded := make([]string, 0, len(t.columns)-1)
	for i, col := range t.columns[1:] {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+2))
		excluded = append(excluded, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, cols, strings.Join(placeholders, ", "))

	return &EntityStore[T]{
		pool:      pool,
		t:         t,
		selectSQL: fmt.Sprintf("SELECT %s FROM %s", cols, t.name),
		insertSQL: insert,
		upsertSQL: fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s", insert, key, strings.Join(excluded, ", ")),
		updateSQL: fmt.Sprintf("UPDATE %s SET %s WHERE %s = $1", t.name, strings.Join(sets, ", "), key),
	}
}

// Get retrieves a record by primary key. Returns ErrNotFound if not exists.
func (s *EntityStore[T]) Get(ctx context.Context, id string) (T, error) {
	row := s.pool.QueryRow(ctx, s.selectSQL+" WHERE "+s.t.columns[0]+" = $1", id)
	rec, err := s.t.scan(row)
	if err != nil {
		var zero T
		if isNotFoundError(err) {
			return zero, storage.ErrNotFound
		}
		return zero, classifyError("get "+s.t.name, err)
	}
	return rec, nil
}

// FindByIDs retrieves all records whose key is in ids, ordered by key.
func (s *EntityStore[T]) FindByIDs(ctx context.Context, ids []string) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	key := s.t.columns[0]
	rows, err := s.pool.Query(ctx, s.selectSQL+" WHERE "+key+" = ANY($1) ORDER BY "+key, ids)
	if err != nil {
		return nil, classifyError("find "+s.t.name, err)
	}
	defer rows.Close()

	result := make([]T, 0, len(ids))
	for rows.Next() {
		rec, err := s.t.scan(rows)
		if err != nil {
			return nil, classifyError("scan "+s.t.name, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError("find "+s.t.name, err)
	}
	return result, nil
}

// Insert adds records atomically. Returns ErrDuplicateKey if any key exists.
func (s *EntityStore[T]) Insert(ctx context.Context, records []T) error {
	return s.write(ctx, "insert", s.insertSQL, records)
}

// Update overwrites existing records. Missing keys are ignored.
func (s *EntityStore[T]) Update(ctx context.Context, records []T) error {
	return s.write(ctx, "update", s.updateSQL, records)
}

// Upsert inserts records, overwriting existing keys.
func (s *EntityStore[T]) Upsert(ctx context.Context, records []T) error {
	return s.write(ctx, "upsert", s.upsertSQL, records)
}

func (s *EntityStore[T]) write(ctx context.Context, op, query string, records []T) error {
	if len(records) == 0 {
		return nil
	}
	op = op + " " + s.t.name

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classifyError(op, err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(query, s.t.values(rec)...)
	}

	br := tx.SendBatch(ctx, batch)
	for _, rec := range records {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return classifyError(fmt.Sprintf("%s %s", op, rec.EntityID()), err)
		}
	}
	if err := br.Close(); err != nil {
		return classifyError(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyError(op, err)
	}
	return nil
}
