package storage

// sqlite.go — record store del engine sobre SQLite (pure Go, sin CGo).
//
// Estrategia:
//   - Una transacción SQL por operación del engine: todo o nada.
//   - Una sola conexión abierta: SQLite es single-writer, así que las
//     operaciones quedan serializadas igual que en el entorno de ejecución.
//   - Montos uint64 guardados como INTEGER con cast bit a bit (int64 ↔ uint64);
//     el acumulador de fees (uint256) como TEXT decimal.
//   - Timestamps como unix nanos (0 = sin valor).

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/outcomex/internal/domain"
	"github.com/alejandrodnm/outcomex/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS config (
    id                     INTEGER PRIMARY KEY CHECK (id = 1),
    authority              TEXT    NOT NULL,
    pending_authority      TEXT    NOT NULL DEFAULT '',
    treasury               TEXT    NOT NULL,
    collateral_asset       TEXT    NOT NULL DEFAULT '',
    platform_buy_bps       INTEGER NOT NULL DEFAULT 0,
    platform_sell_bps      INTEGER NOT NULL DEFAULT 0,
    lp_buy_bps             INTEGER NOT NULL DEFAULT 0,
    lp_sell_bps            INTEGER NOT NULL DEFAULT 0,
    token_decimals         INTEGER NOT NULL DEFAULT 6,
    min_liquidity          INTEGER NOT NULL DEFAULT 0,
    min_trading_liquidity  INTEGER NOT NULL DEFAULT 0,
    paused                 INTEGER NOT NULL DEFAULT 0,
    pause_reason           TEXT    NOT NULL DEFAULT '',
    allow_list_enabled     INTEGER NOT NULL DEFAULT 0,
    require_signatures     INTEGER NOT NULL DEFAULT 0,
    dispute_window_ns      INTEGER NOT NULL DEFAULT 0,
    ins_enabled            INTEGER NOT NULL DEFAULT 0,
    ins_balance            INTEGER NOT NULL DEFAULT 0,
    ins_allocation_bps     INTEGER NOT NULL DEFAULT 0,
    ins_loss_threshold_bps INTEGER NOT NULL DEFAULT 0,
    ins_max_comp_bps       INTEGER NOT NULL DEFAULT 0,
    updated_at             INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS markets (
    rec_key              TEXT PRIMARY KEY,
    yes_token            TEXT    NOT NULL,
    no_token             TEXT    NOT NULL,
    creator              TEXT    NOT NULL,
    end_time             INTEGER NOT NULL DEFAULT 0,
    collateral_locked    INTEGER NOT NULL DEFAULT 0,
    yes_minted           INTEGER NOT NULL DEFAULT 0,
    no_minted            INTEGER NOT NULL DEFAULT 0,
    pool_collateral      INTEGER NOT NULL DEFAULT 0,
    pool_yes             INTEGER NOT NULL DEFAULT 0,
    pool_no              INTEGER NOT NULL DEFAULT 0,
    total_shares         INTEGER NOT NULL DEFAULT 0,
    lp_fee_pot           INTEGER NOT NULL DEFAULT 0,
    acc_fee_per_share    TEXT    NOT NULL DEFAULT '0',
    lp_fees_accrued      INTEGER NOT NULL DEFAULT 0,
    platform_fees        INTEGER NOT NULL DEFAULT 0,
    is_completed         INTEGER NOT NULL DEFAULT 0,
    winner               TEXT    NOT NULL DEFAULT '',
    yes_ratio_bps        INTEGER NOT NULL DEFAULT 0,
    no_ratio_bps         INTEGER NOT NULL DEFAULT 0,
    pool_settled         INTEGER NOT NULL DEFAULT 0,
    open_disputes        INTEGER NOT NULL DEFAULT 0,
    total_claimed        INTEGER NOT NULL DEFAULT 0,
    claims_paid          INTEGER NOT NULL DEFAULT 0,
    needs_reconciliation INTEGER NOT NULL DEFAULT 0,
    created_at           INTEGER NOT NULL DEFAULT 0,
    updated_at           INTEGER NOT NULL DEFAULT 0,
    UNIQUE (yes_token, no_token)
);

CREATE INDEX IF NOT EXISTS idx_markets_yes_token ON markets(yes_token);
CREATE INDEX IF NOT EXISTS idx_markets_no_token ON markets(no_token);

CREATE TABLE IF NOT EXISTS lp_positions (
    rec_key              TEXT PRIMARY KEY,
    market               TEXT    NOT NULL,
    provider             TEXT    NOT NULL,
    shares               INTEGER NOT NULL DEFAULT 0,
    invested_collateral  INTEGER NOT NULL DEFAULT 0,
    withdrawn_collateral INTEGER NOT NULL DEFAULT 0,
    fee_debt             TEXT    NOT NULL DEFAULT '0',
    fees_collected       INTEGER NOT NULL DEFAULT 0,
    updated_at           INTEGER NOT NULL DEFAULT 0,
    UNIQUE (market, provider)
);

CREATE TABLE IF NOT EXISTS user_infos (
    rec_key        TEXT PRIMARY KEY,
    market         TEXT    NOT NULL,
    holder         TEXT    NOT NULL,
    yes_balance    INTEGER NOT NULL DEFAULT 0,
    no_balance     INTEGER NOT NULL DEFAULT 0,
    claimed        INTEGER NOT NULL DEFAULT 0,
    claimed_amount INTEGER NOT NULL DEFAULT 0,
    last_claim_at  INTEGER NOT NULL DEFAULT 0,
    updated_at     INTEGER NOT NULL DEFAULT 0,
    UNIQUE (market, holder)
);

CREATE TABLE IF NOT EXISTS resolutions (
    rec_key             TEXT PRIMARY KEY,
    market              TEXT    NOT NULL UNIQUE,
    yes_ratio_bps       INTEGER NOT NULL,
    no_ratio_bps        INTEGER NOT NULL,
    winner              TEXT    NOT NULL,
    evidence_ref        TEXT    NOT NULL DEFAULT '',
    resolved_by         TEXT    NOT NULL,
    resolved_at         INTEGER NOT NULL,
    dispute_window_ends INTEGER NOT NULL,
    finalized           INTEGER NOT NULL DEFAULT 0,
    overturned          INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS disputes (
    rec_key         TEXT PRIMARY KEY,
    id              TEXT    NOT NULL UNIQUE,
    market          TEXT    NOT NULL,
    resolution      TEXT    NOT NULL,
    disputer        TEXT    NOT NULL,
    reason          TEXT    NOT NULL,
    evidence        TEXT    NOT NULL DEFAULT '[]',
    status          TEXT    NOT NULL,
    auto_decision   TEXT    NOT NULL DEFAULT '',
    auto_confidence REAL    NOT NULL DEFAULT 0,
    auto_rationale  TEXT    NOT NULL DEFAULT '',
    auto_at         INTEGER NOT NULL DEFAULT 0,
    human_decision  TEXT    NOT NULL DEFAULT '',
    human_reason    TEXT    NOT NULL DEFAULT '',
    human_reviewer  TEXT    NOT NULL DEFAULT '',
    human_at        INTEGER NOT NULL DEFAULT 0,
    new_winner      TEXT    NOT NULL DEFAULT '',
    new_yes_bps     INTEGER NOT NULL DEFAULT 0,
    new_no_bps      INTEGER NOT NULL DEFAULT 0,
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL DEFAULT 0,
    UNIQUE (resolution, disputer)
);

CREATE INDEX IF NOT EXISTS idx_disputes_disputer ON disputes(disputer, created_at);
CREATE INDEX IF NOT EXISTS idx_disputes_status   ON disputes(status);

CREATE TABLE IF NOT EXISTS creator_allow_list (
    creator TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS used_nonces (
    signer TEXT    NOT NULL,
    nonce  INTEGER NOT NULL,
    PRIMARY KEY (signer, nonce)
);

CREATE TABLE IF NOT EXISTS collateral_balances (
    owner   TEXT PRIMARY KEY,
    balance INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS token_balances (
    token   TEXT    NOT NULL,
    owner   TEXT    NOT NULL,
    balance INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (token, owner)
);

CREATE TABLE IF NOT EXISTS events (
    seq    INTEGER PRIMARY KEY AUTOINCREMENT,
    id     TEXT    NOT NULL UNIQUE,
    kind   TEXT    NOT NULL,
    market TEXT    NOT NULL DEFAULT '',
    actor  TEXT    NOT NULL DEFAULT '',
    attrs  TEXT    NOT NULL DEFAULT '{}',
    at     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_market ON events(market, seq);
`

// SQLiteStorage implementa ports.Store usando SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

var _ ports.Store = (*SQLiteStorage)(nil)

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
// Usar ":memory:" para tests.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // una base ":memory:" muere con su conexión

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// Atomic ejecuta fn dentro de una transacción; hace rollback si fn falla.
func (s *SQLiteStorage) Atomic(ctx context.Context, fn func(tx ports.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.Atomic: begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("storage.Atomic: commit: %w", err)
	}
	return nil
}

// View ejecuta fn sobre un snapshot; nunca hace commit.
func (s *SQLiteStorage) View(ctx context.Context, fn func(tx ports.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.View: begin tx: %w", err)
	}
	defer sqlTx.Rollback()
	return fn(&txStore{tx: sqlTx})
}

// Close cierra la conexión a la base de datos limpiamente.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// txStore implementa ports.Tx sobre una transacción abierta.
type txStore struct {
	tx *sql.Tx
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// i64/u64 convierten bit a bit; todo uint64 sobrevive el round-trip.
func i64(v uint64) int64 { return int64(v) }
func u64(v int64) uint64 { return uint64(v) }

func ts(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromTS(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func addr(s string) domain.Address {
	if s == "" {
		return domain.Address{}
	}
	return common.HexToAddress(s)
}

func addrHex(a domain.Address) string {
	if a == (domain.Address{}) {
		return ""
	}
	return a.Hex()
}

func keyOf(s string) domain.Key {
	k, _ := domain.KeyFromHex(s)
	return k
}

func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("storage.%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("storage.%s: %w", op, err)
}
