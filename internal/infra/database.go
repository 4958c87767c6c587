package infra

import (
	"fmt"

	"dukapos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies any idempotent SQL patches that GORM
// cannot express (partial unique indexes, sequences).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Surfaces unique violations as gorm.ErrDuplicatedKey so the
		// repositories can map index races to conflicts.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// RunMigrations creates / updates all tables and applies the SQL patches.
// Also used by integration tests against a throwaway database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Cashier{},
		&model.RegisterSession{},
		&model.AgentSession{},
		&model.AgentMovement{},
		&model.Product{},
		&model.ProductVariant{},
		&model.Sale{},
		&model.SaleItem{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// express.  The partial unique indexes are load-bearing: they are what enforces
// "at most one OPEN session per cashier" and ref-code uniqueness under
// concurrent requests, not just application-level checks.  Each statement uses
// IF NOT EXISTS semantics so re-running on an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// At most one OPEN register session per cashier.
		{"partial unique idx register_sessions open per cashier", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uq_register_sessions_open_cashier') THEN
    CREATE UNIQUE INDEX uq_register_sessions_open_cashier
        ON register_sessions (cashier_id)
        WHERE status = 'OPEN';
  END IF;
END $$`},
		// At most one OPEN agent session per cashier.
		{"partial unique idx agent_sessions open per cashier", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uq_agent_sessions_open_cashier') THEN
    CREATE UNIQUE INDEX uq_agent_sessions_open_cashier
        ON agent_sessions (cashier_id)
        WHERE status = 'OPEN';
  END IF;
END $$`},
		// Transaction reference codes are globally unique when present.
		{"partial unique idx agent_movements ref_code", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uq_agent_movements_ref_code') THEN
    CREATE UNIQUE INDEX uq_agent_movements_ref_code
        ON agent_movements (ref_code)
        WHERE ref_code IS NOT NULL;
  END IF;
END $$`},
		// Receipt numbers come from a dedicated sequence, reserved inside the
		// checkout transaction.
		{"sequence sales_receipt_seq", `
CREATE SEQUENCE IF NOT EXISTS sales_receipt_seq START 1`},
		// Movement listing is always (created_at, id) ordered per session.
		{"idx agent_movements session created_at", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_agent_movements_session_created') THEN
    CREATE INDEX idx_agent_movements_session_created
        ON agent_movements (session_id, created_at);
  END IF;
END $$`},
		// Daily report scans sales by creation day.
		{"idx sales created_at", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_sales_created_at') THEN
    CREATE INDEX idx_sales_created_at ON sales (created_at);
  END IF;
END $$`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
