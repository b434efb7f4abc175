package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

// VectorDBManager encapsulates the chromem-go database operations
type VectorDBManager struct {
	db            *chromem.DB
	collection    *chromem.Collection
	dbPath        string
	inMemory      bool
	compress      bool
	encryptionKey string
	filePath      string
}

const (
	compress = false
)

// NewVectorDBManager opens a vector database. A persistent database lives in dbPath;
// an in-memory one is imported from and exported to a single file inside dbPath.
// An empty dbPath with inMemory gives a throwaway database.
func NewVectorDBManager(dbPath, collectionName string, inMemory bool, encryptionKey string) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	m := &VectorDBManager{
		db:            db,
		dbPath:        dbPath,
		inMemory:      inMemory,
		compress:      compress,
		encryptionKey: encryptionKey,
	}
	if dbPath != "" {
		m.filePath = filepath.Join(dbPath, collectionName+".chromem")
	}
	return m, nil
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection(collectionName string) (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

// add multiple documents
func (m *VectorDBManager) CreateDocs(ctx context.Context, documents []chromem.Document) error {
	if m.collection == nil {
		return errors.New("collection is required")
	}
	err := m.collection.AddDocuments(ctx, documents, runtime.NumCPU())
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	return nil
}

// GetByID returns the stored document, false when it does not exist.
func (m *VectorDBManager) GetByID(ctx context.Context, id string) (chromem.Document, bool) {
	if m.collection == nil {
		return chromem.Document{}, false
	}
	doc, err := m.collection.GetByID(ctx, id)
	if err != nil {
		return chromem.Document{}, false
	}
	return doc, true
}

func (m *VectorDBManager) Count() int {
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// delete collection
func (m *VectorDBManager) DeleteCollection() error {
	if m.collection == nil {
		return errors.New("collection is required")
	}
	err := m.db.DeleteCollection(m.collection.Name)
	if err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	m.collection = nil
	return nil
}

// Export writes an in-memory collection to its file. Persistent databases are a no-op.
func (m *VectorDBManager) Export() error {
	if !m.inMemory || m.filePath == "" {
		return nil
	}
	if m.collection == nil {
		return errors.New("collection is required")
	}

	log.Debug().Str("collection", m.collection.Name).Str("file", m.filePath).Bool("compress", m.compress).Msg("Exporting collection")
	if err := os.MkdirAll(m.dbPath, 0o755); err != nil {
		return fmt.Errorf("failed to create db path: %w", err)
	}
	err := m.db.ExportToFile(m.filePath, m.compress, m.encryptionKey, m.collection.Name)
	if err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import loads a previously exported collection if its file exists.
func (m *VectorDBManager) Import() error {
	if !m.inMemory || m.filePath == "" {
		return nil
	}
	if _, err := os.Stat(m.filePath); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	err := m.db.ImportFromFile(m.filePath, m.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	return nil
}
