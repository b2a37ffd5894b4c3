package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/outcomex/internal/domain"
)

// Store persiste los registros del engine. Atomic corre fn dentro de una
// transacción: o se confirman todas las escrituras hechas con el Tx o ninguna.
type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error

	// View corre fn sobre un snapshot de solo lectura.
	View(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}

// Tx es el conjunto de registros que una operación puede tocar. Los getters
// devuelven domain.ErrNotFound (envuelto) si el registro no existe.
type Tx interface {
	RecordStore
	Ledger
	AppendEvent(ctx context.Context, ev domain.Event) error
}

// RecordStore lee y escribe los registros propios del engine.
type RecordStore interface {
	GetConfig(ctx context.Context) (domain.Config, error)
	PutConfig(ctx context.Context, cfg domain.Config) error

	GetMarket(ctx context.Context, key domain.Key) (domain.Market, error)
	PutMarket(ctx context.Context, m domain.Market) error
	ListMarkets(ctx context.Context) ([]domain.Market, error)
	// MarketByToken busca el mercado que emite token en cualquiera de sus lados.
	MarketByToken(ctx context.Context, token domain.Address) (domain.Market, error)

	GetLPPosition(ctx context.Context, key domain.Key) (domain.LPPosition, error)
	PutLPPosition(ctx context.Context, p domain.LPPosition) error

	GetUserInfo(ctx context.Context, key domain.Key) (domain.UserInfo, error)
	PutUserInfo(ctx context.Context, u domain.UserInfo) error

	GetResolution(ctx context.Context, key domain.Key) (domain.Resolution, error)
	PutResolution(ctx context.Context, r domain.Resolution) error

	GetDispute(ctx context.Context, key domain.Key) (domain.Dispute, error)
	PutDispute(ctx context.Context, d domain.Dispute) error
	ListDisputes(ctx context.Context, resolution domain.Key) ([]domain.Dispute, error)
	ListDisputesByStatus(ctx context.Context, status domain.DisputeStatus) ([]domain.Dispute, error)
	// CountDisputesSince cuenta las disputas de user creadas en since o
	// después, en todos los mercados.
	CountDisputesSince(ctx context.Context, user domain.Address, since time.Time) (int, error)

	IsCreatorAllowed(ctx context.Context, creator domain.Address) (bool, error)
	SetCreatorAllowed(ctx context.Context, creator domain.Address, allowed bool) error

	// UseNonce registra el nonce de un request firmado; falla con
	// domain.ErrInvalidSignature si el nonce ya se usó.
	UseNonce(ctx context.Context, signer domain.Address, nonce uint64) error
}

// Ledger es el servicio de saldos de colateral y outcome tokens. En
// producción son primitivas atómicas externas; acá comparten la transacción
// de la operación.
type Ledger interface {
	CollateralBalance(ctx context.Context, owner domain.Address) (uint64, error)
	// TransferCollateral mueve amount entre cuentas; falla con
	// domain.ErrInsufficientBalance si a from no le alcanza.
	TransferCollateral(ctx context.Context, from, to domain.Address, amount uint64) error
	// DepositCollateral acredita una cuenta desde fuera del sistema (faucet,
	// bridge). Lo usan operadores y tests.
	DepositCollateral(ctx context.Context, owner domain.Address, amount uint64) error

	TokenBalance(ctx context.Context, token, owner domain.Address) (uint64, error)
	MintTokens(ctx context.Context, token, owner domain.Address, amount uint64) error
	// BurnTokens falla con domain.ErrInsufficientBalance si a owner no le alcanza.
	BurnTokens(ctx context.Context, token, owner domain.Address, amount uint64) error
	TokenSupply(ctx context.Context, token domain.Address) (uint64, error)
}
