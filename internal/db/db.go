package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"document-diff/internal/config"
	"document-diff/internal/helper"
	"document-diff/internal/models"
)

const defaultListLimit = 20

// ComparisonRecord is one archived comparison report.
type ComparisonRecord struct {
	bun.BaseModel `bun:"table:comparison_reports,alias:cr"`
	ID            string                   `bun:"id,pk,type:uuid" json:"id"`
	OriginalName  string                   `bun:"original_name,notnull" json:"originalName"`
	RevisedName   string                   `bun:"revised_name,notnull" json:"revisedName"`
	Additions     int                      `bun:"additions,notnull" json:"additions"`
	Deletions     int                      `bun:"deletions,notnull" json:"deletions"`
	Changes       int                      `bun:"changes,notnull" json:"changes"`
	Report        *models.ComparisonReport `bun:"report,type:jsonb" json:"report,omitempty"`
	CreatedAt     time.Time                `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens (without dialing) the database described by cfg, through pgdriver or lib/pq.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.URL
	if !strings.Contains(dsn, "sslmode=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "sslmode=disable"
	}

	switch cfg.Driver {
	case "pgdriver", "":
		opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	case "pq", "postgres":
		return sql.Open("postgres", dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func InitDB(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*ComparisonRecord)(nil)).IfNotExists().Exec(ctx)
	return err
}

func NewRecord(originalName, revisedName string, report *models.ComparisonReport) (*ComparisonRecord, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	return &ComparisonRecord{
		ID:           id,
		OriginalName: originalName,
		RevisedName:  revisedName,
		Additions:    report.Summary.Additions,
		Deletions:    report.Summary.Deletions,
		Changes:      report.Summary.TotalChanges,
		Report:       report,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func StoreReport(ctx context.Context, db *bun.DB, record *ComparisonRecord) error {
	_, err := db.NewInsert().Model(record).Exec(ctx)
	return err
}

// ListReports returns the most recent records first, without their full report.
func ListReports(ctx context.Context, db *bun.DB, limit int) ([]ComparisonRecord, error) {
	records := []ComparisonRecord{}
	err := listQuery(db, &records, limit).Scan(ctx)
	return records, err
}

func listQuery(db *bun.DB, records *[]ComparisonRecord, limit int) *bun.SelectQuery {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return db.NewSelect().
		Model(records).
		Column("id", "original_name", "revised_name", "additions", "deletions", "changes", "created_at").
		OrderExpr("created_at DESC").
		Limit(limit)
}

func DropReports(ctx context.Context, db *bun.DB) error {
	_, err := dropQuery(db).Exec(ctx)
	return err
}

func dropQuery(db *bun.DB) *bun.DropTableQuery {
	return db.NewDropTable().Model((*ComparisonRecord)(nil)).IfExists()
}

// Archive keeps comparison reports in a bun database.
type Archive struct {
	db *bun.DB
}

func NewArchive(db *bun.DB) *Archive {
	return &Archive{db: db}
}

func (a *Archive) Store(ctx context.Context, originalName, revisedName string, report *models.ComparisonReport) error {
	record, err := NewRecord(originalName, revisedName, report)
	if err != nil {
		return err
	}
	if err := StoreReport(ctx, a.db, record); err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	log.Debug().Str("id", record.ID).Msg("Archived comparison report")
	return nil
}

func (a *Archive) List(ctx context.Context, limit int) ([]ComparisonRecord, error) {
	return ListReports(ctx, a.db, limit)
}

func (a *Archive) Close() error {
	return a.db.Close()
}
