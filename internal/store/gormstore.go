package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dojolist/dojolist-engine/internal/pkg/logger"
)

// documentRow is the single-table layout backing GormClient: one row per
// document, fields as a JSON column. AutoMigrate keeps the table current.
type documentRow struct {
	Collection string         `gorm:"column:collection;primaryKey"`
	DocID      string         `gorm:"column:doc_id;primaryKey"`
	Fields     datatypes.JSON `gorm:"column:fields;not null"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;not null;index"`
}

func (documentRow) TableName() string { return "documents" }

// GormClient implements Client over a relational database through gorm.
// Predicates are evaluated in process after the collection is loaded; the
// JSON column keeps the adapter portable between sqlite and postgres.
type GormClient struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewGormPostgresClient connects to postgres with a standard DSN.
func NewGormPostgresClient(log *logger.Logger, dsn string) (*GormClient, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newGormClient(log, db)
}

// NewGormSQLiteClient opens a file-backed (or :memory:) sqlite database,
// used for local development.
func NewGormSQLiteClient(log *logger.Logger, path string) (*GormClient, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newGormClient(log, db)
}

func newGormClient(log *logger.Logger, db *gorm.DB) (*GormClient, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("migrate documents table: %w", err)
	}
	return &GormClient{db: db, log: log.With("client", "GormStore")}, nil
}

func (c *GormClient) normalize(collection, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFoundError(collection, id)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return UnavailableError(collection, err)
	}
	return UnknownError(collection, err)
}

func (c *GormClient) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	var row documentRow
	err := c.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&row).Error
	if err != nil {
		return Document{}, c.normalize(collection, id, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(row.Fields, &fields); err != nil {
		return Document{}, UnknownError(collection, err)
	}
	return Document{ID: id, Fields: fields}, nil
}

func (c *GormClient) Query(ctx context.Context, collection string, preds []Predicate, orderBy *OrderBy, limit int) ([]Document, error) {
	var rows []documentRow
	err := c.db.WithContext(ctx).
		Where("collection = ?", collection).
		Find(&rows).Error
	if err != nil {
		return nil, c.normalize(collection, "", err)
	}

	var out []Document
	for _, row := range rows {
		var fields map[string]any
		if err := json.Unmarshal(row.Fields, &fields); err != nil {
			c.log.Warn("bad document payload", "collection", collection, "id", row.DocID, "error", err)
			continue
		}
		if matchesAll(fields, preds) {
			out = append(out, Document{ID: row.DocID, Fields: fields})
		}
	}
	sortDocuments(out, orderBy)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *GormClient) SetDocument(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	toWrite := fields
	if merge {
		cur, err := c.GetDocument(ctx, collection, id)
		switch {
		case err == nil:
			toWrite = mergeFields(cur.Fields, fields)
		case IsNotFound(err):
		default:
			return err
		}
	}
	raw, err := json.Marshal(toWrite)
	if err != nil {
		return UnknownError(collection, err)
	}
	row := documentRow{
		Collection: collection,
		DocID:      id,
		Fields:     datatypes.JSON(raw),
		UpdatedAt:  time.Now().UTC(),
	}
	err = c.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		Assign(map[string]any{"fields": row.Fields, "updated_at": row.UpdatedAt}).
		FirstOrCreate(&documentRow{Collection: collection, DocID: id, Fields: row.Fields, UpdatedAt: row.UpdatedAt}).Error
	if err != nil {
		return c.normalize(collection, id, err)
	}
	return nil
}

func (c *GormClient) DeleteDocument(ctx context.Context, collection, id string) error {
	res := c.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		Delete(&documentRow{})
	if res.Error != nil {
		return c.normalize(collection, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return NotFoundError(collection, id)
	}
	return nil
}
