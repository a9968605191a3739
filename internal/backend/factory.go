package backend

import (
	"context"
	"fmt"

	"saku/internal/adapters"
	"saku/internal/amqp"
	"saku/internal/log"
	gsheet "saku/internal/sheets/google"
	"saku/internal/storage"
	"saku/internal/storage/memory"
	"saku/internal/worker"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the store and, depending on role, the event
// transport and the spreadsheet mirror.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config, role Role) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res := &BackendResult{}
	store, err := f.createStore(config)
	if err != nil {
		return nil, err
	}
	res.Store = store
	res.onClose(store.Close)

	if err := f.wire(ctx, config, role, res); err != nil {
		_ = res.Close()
		return nil, err
	}
	return res, nil
}

func (f *DefaultFactory) createStore(config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		s, err := storage.OpenSQLite(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return s, nil
	case PostgresBackend:
		s, err := storage.OpenPostgres(config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
		}
		f.logger.Info("Initialized Postgres backend")
		return s, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) wire(ctx context.Context, config Config, role Role, res *BackendResult) error {
	needMirror := role == RoleWorker || role == RoleAdmin || config.AMQPURL == ""
	if config.GoogleSpreadsheetID != "" && needMirror {
		mirror, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleSheetName,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
			Currency:        config.Currency,
		}, f.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Google Sheets mirror: %w", err)
		}
		res.Mirror = mirror
		f.logger.Info("Initialized Google Sheets mirror", "sheet", config.GoogleSheetName)
	}

	if role == RoleAdmin {
		return nil
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			if role == RoleWorker {
				return fmt.Errorf("failed to initialize AMQP client: %w", err)
			}
			// The API keeps serving; events are dropped until restart.
			f.logger.Warn("Failed to initialize AMQP client, continuing without journal events", log.FieldError, err)
			return nil
		}
		res.AMQP = client
		if role == RoleAPI {
			res.Publisher = adapters.NewAMQPPublisher(client)
		}
		res.onClose(client.Close)
		f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
		return nil
	}

	if role == RoleAPI && res.Mirror != nil {
		res.Publisher = adapters.NewInlinePublisher(worker.NewMirrorWorker(res.Store, res.Mirror, f.logger), f.logger)
		f.logger.Info("No AMQP configured, mirroring journal events inline")
	}
	return nil
}
