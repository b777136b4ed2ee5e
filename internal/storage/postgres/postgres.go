package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bonding-curve-indexer/internal/storage"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping postgres: %w", storage.ErrStorageUnavailable, err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation = "23505" // unique_violation

	pgClassDataException      = "22"
	pgClassIntegrityViolation = "23"
)

// classifyError maps driver errors onto storage sentinels.
//
//   - unique_violation → ErrDuplicateKey
//   - SQLSTATE class 22 (data exception) or 23 (integrity) → ErrConstraintViolation
//   - any other server error is returned wrapped as is
//   - client-side encode and scan failures → ErrInvalidInput
//   - connection failures and anything unrecognized → ErrStorageUnavailable
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgErrUniqueViolation:
			return fmt.Errorf("%s: %w: %w", op, storage.ErrDuplicateKey, err)
		case strings.HasPrefix(pgErr.Code, pgClassDataException),
			strings.HasPrefix(pgErr.Code, pgClassIntegrityViolation):
			return fmt.Errorf("%s: %w: %w", op, storage.ErrConstraintViolation, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if isNotFoundError(err) {
		return storage.ErrNotFound
	}
	if isConnectionError(err) {
		return fmt.Errorf("%s: %w: %w", op, storage.ErrStorageUnavailable, err)
	}
	if isRecordError(err) {
		return fmt.Errorf("%s: %w: %w", op, storage.ErrInvalidInput, err)
	}
	return fmt.Errorf("%s: %w: %w", op, storage.ErrStorageUnavailable, err)
}

// isConnectionError reports failures of the connection itself.
func isConnectionError(err error) bool {
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var connectErr *pgconn.ConnectError
	var netErr net.Error
	return errors.As(err, &connectErr) ||
		errors.As(err, &netErr) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// isRecordError reports client-side failures caused by the values of a
// single record: arguments pgx could not encode or columns it could not scan.
func isRecordError(err error) bool {
	var scanErr pgx.ScanArgError
	if errors.As(err, &scanErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "failed to encode") ||
		strings.Contains(msg, "unable to encode") ||
		strings.Contains(msg, "cannot find encode plan")
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
