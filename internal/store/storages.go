package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fieldline-crm/fieldline/internal/config"
	"github.com/fieldline-crm/fieldline/internal/logger"
)

// Storages groups all local repositories into a single value that is passed
// around the façade and reconciler. Records, Queue and Meta share one SQLite
// database; [Storages.InTx] composes multi-repository writes into a single
// transaction (record write + queue append must commit or roll back
// together).
type Storages struct {
	db *DB

	// Records is the durable keyed store for domain records.
	Records RecordRepository
	// Queue is the durable ordered log of pending remote intents.
	Queue QueueRepository
	// Meta stores sync bookkeeping values.
	Meta MetaRepository

	logger *logger.Logger
}

// NewStorages initialises the local storage layer using the supplied
// configuration and logger. It performs the following steps:
//  1. Opens an SQLite connection to the file path specified in cfg.DB.DSN,
//     creating the database file if it does not yet exist.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Constructs a [Storages] value wired to fresh repositories.
//  4. Requeues any queue entries a previous process left IN_FLIGHT, so
//     intents stranded by a crash stay durable and visible to the next
//     drain pass.
//
// Returns an error if the database connection cannot be established or if
// migration fails.
func NewStorages(cfg config.ClientStorage, logger *logger.Logger) (*Storages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(context.Background(), cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	s := newStorages(db, logger)

	requeued, err := s.Queue.RequeueInFlight(context.Background())
	if err != nil {
		return nil, fmt.Errorf("requeue interrupted entries: %w", err)
	}
	if requeued > 0 {
		logger.Warn().
			Int64("requeued", requeued).
			Msg("requeued queue entries interrupted by previous shutdown")
	}

	return s, nil
}

func newStorages(db *DB, logger *logger.Logger) *Storages {
	return &Storages{
		db:      db,
		Records: NewRecordRepository(db.DB, logger),
		Queue:   NewQueueRepository(db.DB, logger),
		Meta:    NewMetaRepository(db.DB, logger),
		logger:  logger,
	}
}

// InTx runs fn against a transaction-scoped view of the storages. Every
// repository call made through the view joins the same SQL transaction, which
// commits when fn returns nil and rolls back otherwise. This is how the
// façade keeps "write record + append queue entry" atomic.
func (s *Storages) InTx(ctx context.Context, fn func(tx *Storages) error) error {
	if s.db == nil {
		// transaction-scoped views cannot be nested
		return fn(s)
	}

	return s.db.inTx(ctx, func(tx *sql.Tx) error {
		return fn(&Storages{
			Records: NewRecordRepository(tx, s.logger),
			Queue:   NewQueueRepository(tx, s.logger),
			Meta:    NewMetaRepository(tx, s.logger),
			logger:  s.logger,
		})
	})
}

// Close releases the underlying database handle.
func (s *Storages) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
