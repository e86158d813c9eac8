package kvstore

import (
	"context"
	"fmt"

	"github.com/careplanner/backend/internal/azure"
	"github.com/careplanner/backend/internal/security"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Options selects and configures a storage driver
type Options struct {
	Driver        string
	Dir           string
	DatabaseURL   string
	MaxConns      int32
	EncryptionKey string // 64 hex chars; empty disables sealing
	// Blobs backs the blob driver
	Blobs azure.BlobStorage
}

// Pinger is implemented by drivers that can report backend health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Open builds the configured storage. The returned close function releases
// driver resources and is never nil.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Storage, func(), error) {
	var (
		base    Storage
		closeFn = func() {}
	)

	switch opts.Driver {
	case DriverMemory:
		base = NewMemoryStorage()

	case DriverFile:
		fs, err := NewFileStorage(opts.Dir, logger)
		if err != nil {
			return nil, nil, err
		}
		base = fs

	case DriverPostgres:
		poolCfg, err := pgxpool.ParseConfig(opts.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse database url: %w", err)
		}
		if opts.MaxConns > 0 {
			poolCfg.MaxConns = opts.MaxConns
		}

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}

		pg := NewPostgresStorage(pool, logger)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		base = pg
		closeFn = pool.Close

	case DriverBlob:
		if opts.Blobs == nil {
			return nil, nil, fmt.Errorf("blob driver requires a blob storage client")
		}
		base = NewBlobStorage(opts.Blobs, logger)

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}

	storage := Instrument(base, opts.Driver)

	if opts.EncryptionKey != "" {
		encryptor, err := security.NewEncryptorFromHex(opts.EncryptionKey)
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("invalid storage encryption key: %w", err)
		}
		storage = NewSealedStorage(storage, encryptor)
	}

	logger.Info("key/value storage ready",
		zap.String("driver", opts.Driver),
		zap.Bool("sealed", opts.EncryptionKey != ""),
	)

	return storage, closeFn, nil
}

// Ping reports the health of storages whose driver supports it
func Ping(ctx context.Context, s Storage) error {
	for {
		switch v := s.(type) {
		case Pinger:
			return v.Ping(ctx)
		case *instrumented:
			s = v.next
		case *SealedStorage:
			s = v.next
		default:
			return nil
		}
	}
}
