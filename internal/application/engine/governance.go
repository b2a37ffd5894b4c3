package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alejandrodnm/outcomex/internal/domain"
)

// InitParams configura el sistema en Initialize. El caller pasa a ser la
// authority.
type InitParams struct {
	Treasury            domain.Address
	CollateralAsset     domain.Address
	Fees                domain.FeeSchedule
	TokenDecimals       uint8
	MinLiquidity        uint64
	MinTradingLiquidity uint64
	AllowListEnabled    bool
	RequireSignatures   bool
	DisputeWindow       time.Duration
	Insurance           domain.InsuranceParams
}

// ConfigUpdate cambia los campos no nil y deja el resto igual. El balance del
// seguro solo lo cambian FundInsurance y los pagos.
type ConfigUpdate struct {
	Treasury            *domain.Address
	Fees                *domain.FeeSchedule
	MinLiquidity        *uint64
	MinTradingLiquidity *uint64
	AllowListEnabled    *bool
	RequireSignatures   *bool
	DisputeWindow       *time.Duration
	InsuranceEnabled    *bool
	AllocationBps       *uint64
	LossThresholdBps    *uint64
	MaxCompensationBps  *uint64
}

// Initialize crea el Config global. Solo puede correr una vez.
func (e *Engine) Initialize(ctx context.Context, call Call, p InitParams) (domain.Config, error) {
	var cfg domain.Config
	err := e.run(ctx, "Initialize", func(t *txn) error {
		_, err := t.tx.GetConfig(ctx)
		if err == nil {
			return domain.ErrAlreadyInitialized
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if call.Caller == (domain.Address{}) || p.Treasury == (domain.Address{}) {
			return fmt.Errorf("authority and treasury must be set: %w", domain.ErrInvalidAuthority)
		}
		if err := p.Fees.Validate(); err != nil {
			return err
		}
		p.Insurance.Balance = 0
		if err := p.Insurance.Validate(); err != nil {
			return err
		}
		if p.DisputeWindow <= 0 {
			p.DisputeWindow = DefaultDisputeWindow
		}
		cfg = domain.Config{
			Authority:           call.Caller,
			Treasury:            p.Treasury,
			CollateralAsset:     p.CollateralAsset,
			Fees:                p.Fees,
			TokenDecimals:       p.TokenDecimals,
			MinLiquidity:        p.MinLiquidity,
			MinTradingLiquidity: p.MinTradingLiquidity,
			AllowListEnabled:    p.AllowListEnabled,
			RequireSignatures:   p.RequireSignatures,
			DisputeWindow:       p.DisputeWindow,
			Insurance:           p.Insurance,
			UpdatedAt:           t.now,
		}
		if err := t.tx.PutConfig(ctx, cfg); err != nil {
			return err
		}
		t.emit(domain.EventInitialized, domain.Key{}, call.Caller, map[string]string{
			"treasury":       p.Treasury.Hex(),
			"dispute_window": p.DisputeWindow.String(),
		})
		return nil
	})
	return cfg, err
}

// UpdateConfig aplica un cambio de fees, umbrales o parámetros del seguro.
// Solo la authority.
func (e *Engine) UpdateConfig(ctx context.Context, call Call, u ConfigUpdate) (domain.Config, error) {
	var cfg domain.Config
	err := e.run(ctx, "UpdateConfig", func(t *txn) error {
		var err error
		if cfg, err = t.authorityConfig(call.Caller); err != nil {
			return err
		}
		changed := map[string]string{}
		if u.Treasury != nil {
			if *u.Treasury == (domain.Address{}) {
				return fmt.Errorf("zero treasury: %w", domain.ErrInvalidAuthority)
			}
			cfg.Treasury = *u.Treasury
			changed["treasury"] = u.Treasury.Hex()
		}
		if u.Fees != nil {
			if err := u.Fees.Validate(); err != nil {
				return err
			}
			cfg.Fees = *u.Fees
			changed["buy_bps"] = num(u.Fees.BuyBps())
			changed["sell_bps"] = num(u.Fees.SellBps())
		}
		if u.MinLiquidity != nil {
			cfg.MinLiquidity = *u.MinLiquidity
			changed["min_liquidity"] = num(*u.MinLiquidity)
		}
		if u.MinTradingLiquidity != nil {
			cfg.MinTradingLiquidity = *u.MinTradingLiquidity
			changed["min_trading_liquidity"] = num(*u.MinTradingLiquidity)
		}
		if u.AllowListEnabled != nil {
			cfg.AllowListEnabled = *u.AllowListEnabled
			changed["allow_list_enabled"] = strconv.FormatBool(*u.AllowListEnabled)
		}
		if u.RequireSignatures != nil {
			cfg.RequireSignatures = *u.RequireSignatures
			changed["require_signatures"] = strconv.FormatBool(*u.RequireSignatures)
		}
		if u.DisputeWindow != nil {
			if *u.DisputeWindow <= 0 {
				return fmt.Errorf("dispute window %s: %w", *u.DisputeWindow, domain.ErrInvalidAmount)
			}
			cfg.DisputeWindow = *u.DisputeWindow
			changed["dispute_window"] = u.DisputeWindow.String()
		}
		if u.InsuranceEnabled != nil {
			cfg.Insurance.Enabled = *u.InsuranceEnabled
			changed["insurance_enabled"] = strconv.FormatBool(*u.InsuranceEnabled)
		}
		if u.AllocationBps != nil {
			cfg.Insurance.AllocationBps = *u.AllocationBps
			changed["allocation_bps"] = num(*u.AllocationBps)
		}
		if u.LossThresholdBps != nil {
			cfg.Insurance.LossThresholdBps = *u.LossThresholdBps
			changed["loss_threshold_bps"] = num(*u.LossThresholdBps)
		}
		if u.MaxCompensationBps != nil {
			cfg.Insurance.MaxCompensationBps = *u.MaxCompensationBps
			changed["max_compensation_bps"] = num(*u.MaxCompensationBps)
		}
		if err := cfg.Insurance.Validate(); err != nil {
			return err
		}
		cfg.UpdatedAt = t.now
		if err := t.tx.PutConfig(ctx, cfg); err != nil {
			return err
		}
		t.emit(domain.EventConfigUpdated, domain.Key{}, call.Caller, changed)
		return nil
	})
	return cfg, err
}

// FundInsurance mueve colateral del caller al fondo de seguro.
func (e *Engine) FundInsurance(ctx context.Context, call Call, amount uint64) error {
	return e.run(ctx, "FundInsurance", func(t *txn) error {
		cfg, err := t.config()
		if err != nil {
			return err
		}
		if amount == 0 {
			return domain.ErrInvalidAmount
		}
		if err := t.authorize(cfg, call, "fund_insurance", domain.Key{}, amount); err != nil {
			return err
		}
		if err := t.tx.TransferCollateral(ctx, call.Caller, domain.InsuranceAddress(), amount); err != nil {
			return err
		}
		if cfg.Insurance.Balance, err = domain.AddU64(cfg.Insurance.Balance, amount); err != nil {
			return err
		}
		cfg.UpdatedAt = t.now
		if err := t.tx.PutConfig(ctx, cfg); err != nil {
			return err
		}
		t.emit(domain.EventConfigUpdated, domain.Key{}, call.Caller, map[string]string{
			"insurance_funded":  num(amount),
			"insurance_balance": num(cfg.Insurance.Balance),
		})
		return nil
	})
}

// EmergencyPause detiene trading, emisión y cambios de liquidez. Los claims
// y las disputas siguen disponibles.
func (e *Engine) EmergencyPause(ctx context.Context, call Call, reason string) error {
	return e.setPaused(ctx, "EmergencyPause", call, true, reason)
}

// EmergencyUnpause levanta la pausa.
func (e *Engine) EmergencyUnpause(ctx context.Context, call Call, reason string) error {
	return e.setPaused(ctx, "EmergencyUnpause", call, false, reason)
}

func (e *Engine) setPaused(ctx context.Context, op string, call Call, paused bool, reason string) error {
	return e.run(ctx, op, func(t *txn) error {
		cfg, err := t.authorityConfig(call.Caller)
		if err != nil {
			return err
		}
		cfg.Paused = paused
		cfg.PauseReason = ""
		if paused {
			cfg.PauseReason = reason
		}
		cfg.UpdatedAt = t.now
		if err := t.tx.PutConfig(ctx, cfg); err != nil {
			return err
		}
		kind := domain.EventUnpaused
		if paused {
			kind = domain.EventPaused
		}
		t.emit(kind, domain.Key{}, call.Caller, map[string]string{"reason": reason})
		return nil
	})
}

// NominateAuthority inicia la transferencia de authority en dos pasos.
func (e *Engine) NominateAuthority(ctx context.Context, call Call, candidate domain.Address) error {
	return e.run(ctx, "NominateAuthority", func(t *txn) error {
		cfg, err := t.authorityConfig(call.Caller)
		if err != nil {
			return err
		}
		if candidate == (domain.Address{}) || candidate == cfg.Authority {
			return fmt.Errorf("candidate %s: %w", candidate.Hex(), domain.ErrInvalidAuthority)
		}
		cfg.PendingAuthority = candidate
		cfg.UpdatedAt = t.now
		if err := t.tx.PutConfig(ctx, cfg); err != nil {
			return err
		}
		t.emit(domain.EventAuthorityNominated, domain.Key{}, call.Caller, map[string]string{
			"candidate": candidate.Hex(),
		})
		return nil
	})
}

// AcceptAuthority completa la transferencia; solo la puede llamar la cuenta nominada.
func (e *Engine) AcceptAuthority(ctx context.Context, call Call) error {
	return e.run(ctx, "AcceptAuthority", func(t *txn) error {
		cfg, err := t.config()
		if err != nil {
			return err
		}
		if !cfg.HasPendingAuthority() || call.Caller != cfg.PendingAuthority {
			return fmt.Errorf("caller %s is not the pending authority: %w", call.Caller.Hex(), domain.ErrIncorrectAuthority)
		}
		previous := cfg.Authority
		cfg.Authority = cfg.PendingAuthority
		cfg.PendingAuthority = domain.Address{}
		cfg.UpdatedAt = t.now
		if err := t.tx.PutConfig(ctx, cfg); err != nil {
			return err
		}
		t.emit(domain.EventAuthorityAccepted, domain.Key{}, call.Caller, map[string]string{
			"previous": previous.Hex(),
		})
		return nil
	})
}

// SetCreatorAllowed agrega o quita un creador de mercados de la allow-list.
func (e *Engine) SetCreatorAllowed(ctx context.Context, call Call, creator domain.Address, allowed bool) error {
	return e.run(ctx, "SetCreatorAllowed", func(t *txn) error {
		if _, err := t.authorityConfig(call.Caller); err != nil {
			return err
		}
		if err := t.tx.SetCreatorAllowed(ctx, creator, allowed); err != nil {
			return err
		}
		t.emit(domain.EventAllowListUpdated, domain.Key{}, call.Caller, map[string]string{
			"creator": creator.Hex(),
			"allowed": strconv.FormatBool(allowed),
		})
		return nil
	})
}

// CreateMarket registra el par de tokens (yes, no). endTime puede ser cero
// para un mercado sin fecha límite de trading.
func (e *Engine) CreateMarket(ctx context.Context, call Call, yesToken, noToken domain.Address, endTime time.Time) (domain.Market, error) {
	var m domain.Market
	err := e.run(ctx, "CreateMarket", func(t *txn) error {
		cfg, err := t.activeConfig()
		if err != nil {
			return err
		}
		zero := domain.Address{}
		if yesToken == zero || noToken == zero || yesToken == noToken {
			return fmt.Errorf("tokens %s/%s: %w", yesToken.Hex(), noToken.Hex(), domain.ErrInvalidAmount)
		}
		if !endTime.IsZero() && !endTime.After(t.now) {
			return fmt.Errorf("end time %s in the past: %w", endTime.Format(time.RFC3339), domain.ErrInvalidAmount)
		}
		if cfg.AllowListEnabled && !cfg.IsAuthority(call.Caller) {
			ok, err := t.tx.IsCreatorAllowed(ctx, call.Caller)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("creator %s: %w", call.Caller.Hex(), domain.ErrCreatorNotAllowed)
			}
		}
		key := domain.MarketKey(yesToken, noToken)
		_, err = t.tx.GetMarket(ctx, key)
		if err == nil {
			return domain.ErrMarketAlreadyExists
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		// Los saldos se indexan solo por token: cada token respalda un único mercado.
		for _, tok := range []domain.Address{yesToken, noToken} {
			other, err := t.tx.MarketByToken(ctx, tok)
			if err == nil {
				return fmt.Errorf("token %s already issued by market %s: %w",
					tok.Hex(), other.Key.Hex(), domain.ErrMarketAlreadyExists)
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}
		m = domain.Market{
			Key:       key,
			YesToken:  yesToken,
			NoToken:   noToken,
			Creator:   call.Caller,
			EndTime:   endTime,
			CreatedAt: t.now,
			UpdatedAt: t.now,
		}
		if err := t.tx.PutMarket(ctx, m); err != nil {
			return err
		}
		t.emit(domain.EventMarketCreated, key, call.Caller, map[string]string{
			"yes_token": yesToken.Hex(),
			"no_token":  noToken.Hex(),
		})
		return nil
	})
	return m, err
}
