package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/alejandrodnm/outcomex/internal/auth"
	"github.com/alejandrodnm/outcomex/internal/domain"
	"github.com/alejandrodnm/outcomex/internal/ports"
	"github.com/google/uuid"
)

// DefaultDisputeWindow se usa cuando Initialize no recibe ventana.
const DefaultDisputeWindow = 48 * time.Hour

// Call identifica a quien actúa. Auth es obligatorio en las operaciones que
// debitan al caller cuando Config.RequireSignatures está activo.
type Call struct {
	Caller domain.Address
	Auth   *auth.Authorization
}

// As es el atajo para una llamada sin firma.
func As(caller domain.Address) Call { return Call{Caller: caller} }

// Engine aplica las operaciones de mercado sobre un Store. Cada operación
// exportada corre en una única transacción y publica sus eventos solo después
// del commit.
type Engine struct {
	store ports.Store
	sink  ports.EventSink
	now   func() time.Time
	newID func() string
}

// Option personaliza un Engine.
type Option func(*Engine)

// WithClock reemplaza time.Now; los tests lo usan para mover las ventanas de disputa.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDs reemplaza el generador de uuid de eventos y disputas.
func WithIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// New crea un engine. sink puede ser nil.
func New(store ports.Store, sink ports.EventSink, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		sink:  sink,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// txn es el estado de una operación en curso.
type txn struct {
	ctx    context.Context
	tx     ports.Tx
	now    time.Time
	e      *Engine
	events []domain.Event
}

// run ejecuta fn de forma atómica. Los eventos de emit se guardan en la
// misma transacción y se publican después del commit.
func (e *Engine) run(ctx context.Context, op string, fn func(t *txn) error) error {
	var events []domain.Event
	err := e.store.Atomic(ctx, func(tx ports.Tx) error {
		t := &txn{ctx: ctx, tx: tx, now: e.now(), e: e}
		if err := fn(t); err != nil {
			return err
		}
		for _, ev := range t.events {
			if err := tx.AppendEvent(ctx, ev); err != nil {
				return err
			}
		}
		events = t.events
		return nil
	})
	if err != nil {
		slog.Debug("engine: operation rejected", "op", op, "code", domain.Code(err), "err", err)
		return fmt.Errorf("engine.%s: %w", op, err)
	}
	if e.sink != nil && len(events) > 0 {
		if err := e.sink.Publish(ctx, events); err != nil {
			slog.Warn("engine: publish events", "op", op, "err", err)
		}
	}
	return nil
}

// view ejecuta fn sobre un snapshot de solo lectura.
func (e *Engine) view(ctx context.Context, op string, fn func(t *txn) error) error {
	err := e.store.View(ctx, func(tx ports.Tx) error {
		return fn(&txn{ctx: ctx, tx: tx, now: e.now(), e: e})
	})
	if err != nil {
		return fmt.Errorf("engine.%s: %w", op, err)
	}
	return nil
}

func (t *txn) emit(kind domain.EventKind, market domain.Key, actor domain.Address, attrs map[string]string) {
	t.events = append(t.events, domain.Event{
		ID:     t.e.newID(),
		Kind:   kind,
		Market: market,
		Actor:  actor,
		Attrs:  attrs,
		At:     t.now,
	})
}

// ─── acceso a registros ──────────────────────────────────────────────────────

func (t *txn) config() (domain.Config, error) {
	cfg, err := t.tx.GetConfig(t.ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Config{}, domain.ErrNotInitialized
	}
	return cfg, err
}

// activeConfig carga Config y falla si el sistema está en pausa.
func (t *txn) activeConfig() (domain.Config, error) {
	cfg, err := t.config()
	if err != nil {
		return cfg, err
	}
	if cfg.Paused {
		return cfg, fmt.Errorf("%s: %w", cfg.PauseReason, domain.ErrSystemPaused)
	}
	return cfg, nil
}

// authorityConfig carga Config y comprueba que caller sea la authority.
func (t *txn) authorityConfig(caller domain.Address) (domain.Config, error) {
	cfg, err := t.config()
	if err != nil {
		return cfg, err
	}
	if !cfg.IsAuthority(caller) {
		return cfg, fmt.Errorf("caller %s: %w", caller.Hex(), domain.ErrIncorrectAuthority)
	}
	return cfg, nil
}

func (t *txn) market(key domain.Key) (domain.Market, error) {
	m, err := t.tx.GetMarket(t.ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Market{}, fmt.Errorf("%s: %w", key.Hex(), domain.ErrMarketNotFound)
	}
	return m, err
}

func (t *txn) putMarket(m domain.Market) error {
	m.UpdatedAt = t.now
	return t.tx.PutMarket(t.ctx, m)
}

// userInfo carga el registro contable del usuario o devuelve uno nuevo.
func (t *txn) userInfo(market domain.Key, user domain.Address) (domain.UserInfo, error) {
	key := domain.UserInfoKey(market, user)
	u, err := t.tx.GetUserInfo(t.ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.UserInfo{Key: key, Market: market, User: user}, nil
	}
	return u, err
}

func (t *txn) putUserInfo(u domain.UserInfo) error {
	u.UpdatedAt = t.now
	return t.tx.PutUserInfo(t.ctx, u)
}

// lpPosition carga la posición del LP o devuelve una nueva.
func (t *txn) lpPosition(market domain.Key, provider domain.Address) (domain.LPPosition, bool, error) {
	key := domain.LPPositionKey(market, provider)
	p, err := t.tx.GetLPPosition(t.ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.LPPosition{Key: key, Market: market, Provider: provider}, false, nil
	}
	return p, err == nil, err
}

func (t *txn) putLPPosition(p domain.LPPosition) error {
	p.UpdatedAt = t.now
	return t.tx.PutLPPosition(t.ctx, p)
}

// authorize verifica la autorización firmada de un débito de amount cuando
// se exigen firmas, y consume su nonce.
func (t *txn) authorize(cfg domain.Config, call Call, op string, market domain.Key, amount uint64) error {
	if !cfg.RequireSignatures {
		return nil
	}
	if call.Auth == nil {
		return fmt.Errorf("%s: missing authorization: %w", op, domain.ErrInvalidSignature)
	}
	if call.Auth.Signer != call.Caller {
		return fmt.Errorf("%s: signer %s is not caller %s: %w",
			op, call.Auth.Signer.Hex(), call.Caller.Hex(), domain.ErrInvalidSignature)
	}
	if err := auth.Verify(*call.Auth, op, market, amount, t.now); err != nil {
		return err
	}
	return t.tx.UseNonce(t.ctx, call.Auth.Signer, call.Auth.Nonce)
}

// payPlatformFee mueve fee de `from` a la treasury y desvía la parte del
// seguro a su cuenta. cfg se modifica en el lugar; si el bool devuelto es
// true el caller debe guardarlo.
func (t *txn) payPlatformFee(cfg *domain.Config, from domain.Address, fee uint64) (bool, error) {
	if fee == 0 {
		return false, nil
	}
	var alloc uint64
	if cfg.Insurance.Enabled && cfg.Insurance.AllocationBps > 0 {
		var err error
		if alloc, err = domain.BpsOf(fee, cfg.Insurance.AllocationBps); err != nil {
			return false, err
		}
	}
	if err := t.tx.TransferCollateral(t.ctx, from, cfg.Treasury, fee-alloc); err != nil {
		return false, fmt.Errorf("platform fee: %w", err)
	}
	if alloc == 0 {
		return false, nil
	}
	if err := t.tx.TransferCollateral(t.ctx, from, domain.InsuranceAddress(), alloc); err != nil {
		return false, fmt.Errorf("insurance allocation: %w", err)
	}
	bal, err := domain.AddU64(cfg.Insurance.Balance, alloc)
	if err != nil {
		return false, err
	}
	cfg.Insurance.Balance = bal
	return true, nil
}

func num(v uint64) string { return strconv.FormatUint(v, 10) }
