package storage

// ledger.go — saldos de colateral y de outcome tokens.
//
// Tablas:
//   collateral_balances — colateral por cuenta (usuarios, vaults, treasury, insurance)
//   token_balances      — saldo por (token, owner); el supply es la suma por token
//
// Lectura-modificación-escritura dentro de la misma transacción del engine.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alejandrodnm/outcomex/internal/domain"
)

func (t *txStore) CollateralBalance(ctx context.Context, owner domain.Address) (uint64, error) {
	var bal int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT balance FROM collateral_balances WHERE owner = ?`, owner.Hex()).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("storage.CollateralBalance: %w", err)
	}
	return u64(bal), nil
}

func (t *txStore) setCollateral(ctx context.Context, owner domain.Address, bal uint64) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO collateral_balances (owner, balance) VALUES (?, ?)`,
		owner.Hex(), i64(bal))
	return err
}

func (t *txStore) TransferCollateral(ctx context.Context, from, to domain.Address, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}
	fromBal, err := t.CollateralBalance(ctx, from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return fmt.Errorf("storage.TransferCollateral: %s has %d, needs %d: %w",
			from.Hex(), fromBal, amount, domain.ErrInsufficientBalance)
	}
	toBal, err := t.CollateralBalance(ctx, to)
	if err != nil {
		return err
	}
	newTo, err := domain.AddU64(toBal, amount)
	if err != nil {
		return fmt.Errorf("storage.TransferCollateral: credit %s: %w", to.Hex(), err)
	}
	if err := t.setCollateral(ctx, from, fromBal-amount); err != nil {
		return fmt.Errorf("storage.TransferCollateral: debit: %w", err)
	}
	if err := t.setCollateral(ctx, to, newTo); err != nil {
		return fmt.Errorf("storage.TransferCollateral: credit: %w", err)
	}
	return nil
}

func (t *txStore) DepositCollateral(ctx context.Context, owner domain.Address, amount uint64) error {
	bal, err := t.CollateralBalance(ctx, owner)
	if err != nil {
		return err
	}
	next, err := domain.AddU64(bal, amount)
	if err != nil {
		return fmt.Errorf("storage.DepositCollateral: %w", err)
	}
	if err := t.setCollateral(ctx, owner, next); err != nil {
		return fmt.Errorf("storage.DepositCollateral: %w", err)
	}
	return nil
}

func (t *txStore) TokenBalance(ctx context.Context, token, owner domain.Address) (uint64, error) {
	var bal int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT balance FROM token_balances WHERE token = ? AND owner = ?`,
		token.Hex(), owner.Hex()).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("storage.TokenBalance: %w", err)
	}
	return u64(bal), nil
}

func (t *txStore) setToken(ctx context.Context, token, owner domain.Address, bal uint64) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO token_balances (token, owner, balance) VALUES (?, ?, ?)`,
		token.Hex(), owner.Hex(), i64(bal))
	return err
}

func (t *txStore) MintTokens(ctx context.Context, token, owner domain.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	supply, err := t.TokenSupply(ctx, token)
	if err != nil {
		return err
	}
	if _, err := domain.AddU64(supply, amount); err != nil {
		return fmt.Errorf("storage.MintTokens: supply: %w", err)
	}
	bal, err := t.TokenBalance(ctx, token, owner)
	if err != nil {
		return err
	}
	next, err := domain.AddU64(bal, amount)
	if err != nil {
		return fmt.Errorf("storage.MintTokens: %w", err)
	}
	if err := t.setToken(ctx, token, owner, next); err != nil {
		return fmt.Errorf("storage.MintTokens: %w", err)
	}
	return nil
}

func (t *txStore) BurnTokens(ctx context.Context, token, owner domain.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	bal, err := t.TokenBalance(ctx, token, owner)
	if err != nil {
		return err
	}
	if bal < amount {
		return fmt.Errorf("storage.BurnTokens: %s holds %d of %s, needs %d: %w",
			owner.Hex(), bal, token.Hex(), amount, domain.ErrInsufficientBalance)
	}
	if err := t.setToken(ctx, token, owner, bal-amount); err != nil {
		return fmt.Errorf("storage.BurnTokens: %w", err)
	}
	return nil
}

func (t *txStore) TokenSupply(ctx context.Context, token domain.Address) (uint64, error) {
	// Se suma en Go: SUM() de SQLite vería como negativos los saldos > MaxInt64.
	rows, err := t.tx.QueryContext(ctx, `SELECT balance FROM token_balances WHERE token = ?`, token.Hex())
	if err != nil {
		return 0, fmt.Errorf("storage.TokenSupply: %w", err)
	}
	defer rows.Close()

	var total uint64
	for rows.Next() {
		var bal int64
		if err := rows.Scan(&bal); err != nil {
			return 0, fmt.Errorf("storage.TokenSupply: scan: %w", err)
		}
		total, err = domain.AddU64(total, u64(bal))
		if err != nil {
			return 0, fmt.Errorf("storage.TokenSupply: %w", err)
		}
	}
	return total, rows.Err()
}
