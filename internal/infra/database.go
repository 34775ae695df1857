package infra

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and applies the
// idempotent schema statements below.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
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

// GORM AutoMigrate is not used: the CHECK constraints and cascades the sale
// engine relies on are easier to keep exact in plain DDL.
var schema = []struct{ descr, sql string }{
	{"extension pgcrypto", `CREATE EXTENSION IF NOT EXISTS pgcrypto`},
	{"usuarios", `
CREATE TABLE IF NOT EXISTS usuarios (
  id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  email         TEXT NOT NULL UNIQUE,
  nombre        TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  activo        BOOLEAN NOT NULL DEFAULT true,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"joyas", `
CREATE TABLE IF NOT EXISTS joyas (
  id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  nombre        TEXT NOT NULL,
  tipo          TEXT NOT NULL DEFAULT 'Sin tipo',
  precio_compra DECIMAL(12,2) NOT NULL CHECK (precio_compra >= 0),
  precio_venta  DECIMAL(12,2) NOT NULL CHECK (precio_venta >= 0),
  cantidad      INT NOT NULL DEFAULT 0 CHECK (cantidad >= 0),
  imagen_url    TEXT,
  imagen_objeto TEXT,
  miniatura_url TEXT,
  miniatura_objeto TEXT,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"idx_joyas_nombre", `CREATE INDEX IF NOT EXISTS idx_joyas_nombre ON joyas (nombre)`},
	{"ventas", `
CREATE TABLE IF NOT EXISTS ventas (
  id                  UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  articulos           TEXT NOT NULL,
  joya_id             UUID,
  comprador           TEXT NOT NULL,
  telefono            TEXT NOT NULL DEFAULT '',
  precio_venta_total  DECIMAL(12,2) NOT NULL,
  precio_compra_total DECIMAL(12,2) NOT NULL,
  cuotas              INT NOT NULL CHECK (cuotas = -1 OR cuotas >= 1),
  monto_cuota         DECIMAL(12,2),
  cuotas_restantes    INT NOT NULL DEFAULT 0 CHECK (cuotas_restantes >= 0),
  saldo_restante      DECIMAL(12,2) NOT NULL DEFAULT 0 CHECK (saldo_restante >= 0),
  created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"idx_ventas_created_at", `CREATE INDEX IF NOT EXISTS idx_ventas_created_at ON ventas (created_at)`},
	{"venta_items", `
CREATE TABLE IF NOT EXISTS venta_items (
  id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  venta_id      UUID NOT NULL REFERENCES ventas(id) ON DELETE CASCADE,
  joya_id       UUID NOT NULL,
  orden         INT NOT NULL,
  nombre        TEXT NOT NULL,
  precio_venta  DECIMAL(12,2) NOT NULL,
  precio_compra DECIMAL(12,2) NOT NULL
)`},
	{"idx_venta_items_venta", `CREATE INDEX IF NOT EXISTS idx_venta_items_venta ON venta_items (venta_id)`},
	{"venta_pagos", `
CREATE TABLE IF NOT EXISTS venta_pagos (
  id       UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  venta_id UUID NOT NULL REFERENCES ventas(id) ON DELETE CASCADE,
  numero   INT NOT NULL,
  monto    DECIMAL(12,2) NOT NULL CHECK (monto >= 0),
  fecha    TIMESTAMPTZ NOT NULL,
  UNIQUE (venta_id, numero)
)`},
	{"movimientos_stock", `
CREATE TABLE IF NOT EXISTS movimientos_stock (
  id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  joya_id        UUID NOT NULL REFERENCES joyas(id) ON DELETE CASCADE,
  tipo           TEXT NOT NULL,
  cantidad       INT NOT NULL,
  stock_anterior INT NOT NULL,
  stock_nuevo    INT NOT NULL,
  motivo         TEXT,
  referencia_id  UUID,
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"idx_movimientos_stock_joya", `CREATE INDEX IF NOT EXISTS idx_movimientos_stock_joya ON movimientos_stock (joya_id)`},
}

// RunMigrations applies the schema. Every statement is idempotent, so it runs
// on each start and in integration tests.
func RunMigrations(db *gorm.DB) error {
	for _, s := range schema {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("schema %q: %w", s.descr, err)
		}
	}
	return nil
}
