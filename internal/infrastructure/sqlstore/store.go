// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package sqlstore implements the message record store and the connected
// account and channel readers on top of database/sql, for postgres (pgx) and
// sqlite (modernc).
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/errors"
)

//go:embed schema_postgres.sql schema_sqlite.sql
var schemaFS embed.FS

// Store is a SQL backed message store
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Ensure Store implements the store and reader ports
var (
	_ port.MessageStore           = (*Store)(nil)
	_ port.ConnectedAccountReader = (*Store)(nil)
	_ port.MessageChannelReader   = (*Store)(nil)
)

// Open connects to dsn with the driver of dialect and verifies the connection.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.NewValidation("database dsn is required")
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, errors.NewServiceUnavailable("failed to open database", err)
	}

	if dialect == DialectSQLite {
		// One writer at a time; this also keeps :memory: databases on a single connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.NewServiceUnavailable("failed to ping database", err)
	}

	slog.InfoContext(ctx, "connected to database", "dialect", dialect)

	return New(db, dialect), nil
}

// New wraps an existing connection pool
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Migrate applies the embedded schema. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	schema, err := schemaFS.ReadFile(s.dialect.schemaFile())
	if err != nil {
		return errors.NewUnexpected("failed to read schema", err)
	}

	for _, stmt := range strings.Split(string(schema), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.NewUnexpected("failed to apply schema", err)
		}
	}

	slog.InfoContext(ctx, "database schema applied", "dialect", s.dialect)
	return nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.NewServiceUnavailable("database unreachable", err)
	}
	return nil
}

// Close closes the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// txUnitOfWork is a unit-of-work backed by a database transaction
type txUnitOfWork struct {
	id    string
	tx    *sql.Tx
	store *Store
}

// ID implements port.UnitOfWork
func (u *txUnitOfWork) ID() string { return u.id }

// WithinUnitOfWork runs fn in a transaction. fn's error rolls the transaction
// back and is returned unchanged; a failed commit returns errors.TransactionAborted.
func (s *Store) WithinUnitOfWork(ctx context.Context, fn func(ctx context.Context, uow port.UnitOfWork) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewServiceUnavailable("failed to begin transaction", err)
	}

	uow := &txUnitOfWork{id: uuid.New().String(), tx: tx, store: s}

	if err := fn(ctx, uow); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !stderrors.Is(rbErr, sql.ErrTxDone) {
			slog.WarnContext(ctx, "failed to roll back transaction",
				"error", rbErr,
				"unit_of_work", uow.id)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if s.dialect.isUniqueViolation(err) {
			return errors.NewTransactionAborted("failed to commit transaction", errors.NewConflict("unique constraint violated at commit", err))
		}
		return errors.NewTransactionAborted("failed to commit transaction", err)
	}

	return nil
}

func (s *Store) unitOfWork(uow port.UnitOfWork) (*txUnitOfWork, error) {
	txu, ok := uow.(*txUnitOfWork)
	if !ok || txu == nil || txu.store != s {
		return nil, errors.NewValidation(fmt.Sprintf("unit of work %T was not issued by this store", uow))
	}
	return txu, nil
}

// FindOne implements port.RecordStore
func (s *Store) FindOne(ctx context.Context, uow port.UnitOfWork, kind model.EntityKind, filter port.RecordFilter) (model.Record, error) {
	txu, err := s.unitOfWork(uow)
	if err != nil {
		return nil, err
	}

	var (
		record model.Record
		row    *sql.Row
	)

	switch kind {
	case model.EntityKindChannelMessageAssociation:
		if filter.MessageChannelID == "" || filter.MessageExternalID == "" {
			return nil, errors.NewValidation("association lookup requires message channel id and external id")
		}
		var a model.ChannelMessageAssociation
		row = txu.tx.QueryRowContext(ctx, s.dialect.rebind(`
			SELECT message_channel_id, message_id, message_external_id, message_thread_external_id
			FROM message_channel_message_association
			WHERE message_channel_id = ? AND message_external_id = ?`),
			filter.MessageChannelID, filter.MessageExternalID)
		err = row.Scan(&a.MessageChannelID, &a.MessageID, &a.MessageExternalID, &a.MessageThreadExternalID)
		record = a

	case model.EntityKindMessage:
		if filter.HeaderMessageID == "" {
			return nil, errors.NewValidation("message lookup requires header message id")
		}
		var m model.Message
		var direction string
		row = txu.tx.QueryRowContext(ctx, s.dialect.rebind(`
			SELECT id, header_message_id, subject, received_at, direction, text, message_thread_id
			FROM message
			WHERE header_message_id = ?`),
			filter.HeaderMessageID)
		err = row.Scan(&m.ID, &m.HeaderMessageID, &m.Subject, &m.ReceivedAt, &direction, &m.Text, &m.MessageThreadID)
		m.Direction = model.MessageDirection(direction)
		m.ReceivedAt = m.ReceivedAt.UTC()
		record = m

	case model.EntityKindMessageThread:
		if filter.MessageChannelID == "" || filter.MessageThreadExternalID == "" {
			return nil, errors.NewValidation("thread lookup requires message channel id and thread external id")
		}
		var t model.MessageThread
		row = txu.tx.QueryRowContext(ctx, s.dialect.rebind(`
			SELECT t.id
			FROM message_thread t
			JOIN message m ON m.message_thread_id = t.id
			JOIN message_channel_message_association a ON a.message_id = m.id
			WHERE a.message_channel_id = ? AND a.message_thread_external_id = ?
			ORDER BY t.id
			LIMIT 1`),
			filter.MessageChannelID, filter.MessageThreadExternalID)
		err = row.Scan(&t.ID)
		record = t

	default:
		return nil, errors.NewValidation(fmt.Sprintf("unknown entity kind %q", kind))
	}

	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFound(fmt.Sprintf("%s not found", kind))
		}
		return nil, errors.NewUnexpected(fmt.Sprintf("failed to query %s", kind), err)
	}

	return record, nil
}

// Insert implements port.RecordStore
func (s *Store) Insert(ctx context.Context, uow port.UnitOfWork, record model.Record) error {
	txu, err := s.unitOfWork(uow)
	if err != nil {
		return err
	}

	var (
		query string
		args  []any
	)

	switch rec := record.(type) {
	case model.Message:
		query = `INSERT INTO message (id, header_message_id, subject, received_at, direction, text, message_thread_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)`
		args = []any{rec.ID, rec.HeaderMessageID, rec.Subject, rec.ReceivedAt.UTC(), string(rec.Direction), rec.Text, rec.MessageThreadID}
	case model.MessageThread:
		query = `INSERT INTO message_thread (id) VALUES (?)`
		args = []any{rec.ID}
	case model.ChannelMessageAssociation:
		query = `INSERT INTO message_channel_message_association
			(message_channel_id, message_id, message_external_id, message_thread_external_id)
			VALUES (?, ?, ?, ?)`
		args = []any{rec.MessageChannelID, rec.MessageID, rec.MessageExternalID, rec.MessageThreadExternalID}
	default:
		return errors.NewValidation(fmt.Sprintf("unsupported record type %T", record))
	}

	if _, err := txu.tx.ExecContext(ctx, s.dialect.rebind(query), args...); err != nil {
		if s.dialect.isUniqueViolation(err) {
			return errors.NewConflict(fmt.Sprintf("%s already exists", record.Kind()), err)
		}
		return errors.NewUnexpected(fmt.Sprintf("failed to insert %s", record.Kind()), err)
	}

	return nil
}
