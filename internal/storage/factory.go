package storage

import (
	"context"
	"fmt"
	"gitviewer/internal/providers"
	"gitviewer/internal/storage/interfaces"
	"gitviewer/internal/structures"
	"net/http"
	"time"
)

const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverMongo  = "mongo"
	DriverBlob   = "blob"
	DriverSQL    = "sql"

	defaultTimeout = 2 * time.Second
)

// Timeout returns the per-call storage deadline configured for conf.
func Timeout(conf *structures.Config) time.Duration {
	if conf.Storage.Timeout <= 0 {
		return defaultTimeout
	}
	return conf.Storage.Timeout
}

// NewViewStore builds the backend selected by storage.driver. The compressor
// is owned by the file store when compression is on and released otherwise.
func NewViewStore(conf *structures.Config, logger providers.Logger, compressor interfaces.CompressorInterface) (interfaces.ViewStoreInterface, error) {
	st := conf.Storage
	timeout := Timeout(conf)

	if st.Driver != DriverFile || !st.File.Compress {
		compressor.Close()
	}

	switch st.Driver {
	case "", DriverMemory:
		logger.Warnf(providers.TypeStorage, "Using in-memory view store, counters are lost on restart")
		return NewMemoryStore(), nil
	case DriverFile:
		if !st.File.Compress {
			compressor = NoCompression()
		}
		logger.Infof(providers.TypeStorage, "Using file view store at %s (compressed: %t)", st.File.Path, st.File.Compress)
		return NewFileStore(st.File.Path, compressor), nil
	case DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 5*timeout)
		defer cancel()
		store, err := NewMongoStore(ctx, st.Mongo.URI, st.Mongo.Database)
		if err != nil {
			return nil, err
		}
		logger.Infof(providers.TypeStorage, "Using mongo view store, database %s", st.Mongo.Database)
		return store, nil
	case DriverBlob:
		logger.Infof(providers.TypeStorage, "Using blob view store at %s", st.Blob.BaseURL)
		return NewBlobStore(st.Blob.BaseURL, st.Blob.Token, st.Blob.Prefix, &http.Client{Timeout: timeout}), nil
	case DriverSQL:
		store, err := NewSQLStore(st.SQL.DSN)
		if err != nil {
			return nil, err
		}
		logger.Infof(providers.TypeStorage, "Using sql view store")
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, st.Driver)
	}
}
