package storage

// records.go — persistencia de Config, Market, LPPosition, UserInfo,
// Resolution y Dispute. Todas las escrituras son upserts completos del
// registro: el engine siempre lee, muta y vuelve a escribir el struct entero.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alejandrodnm/outcomex/internal/domain"
	"github.com/holiman/uint256"
)

// ─── Config ──────────────────────────────────────────────────────────────────

func (t *txStore) GetConfig(ctx context.Context) (domain.Config, error) {
	var (
		c                                     domain.Config
		authority, pending, treasury, asset   string
		pBuy, pSell, lBuy, lSell              int64
		minLiq, minTrade, window, insBal      int64
		insAlloc, insLoss, insMax, updatedAt  int64
		paused, allowList, reqSig, insEnabled int
		decimals                              int
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT authority, pending_authority, treasury, collateral_asset,
		       platform_buy_bps, platform_sell_bps, lp_buy_bps, lp_sell_bps,
		       token_decimals, min_liquidity, min_trading_liquidity,
		       paused, pause_reason, allow_list_enabled, require_signatures,
		       dispute_window_ns, ins_enabled, ins_balance, ins_allocation_bps,
		       ins_loss_threshold_bps, ins_max_comp_bps, updated_at
		FROM config WHERE id = 1`).Scan(
		&authority, &pending, &treasury, &asset,
		&pBuy, &pSell, &lBuy, &lSell,
		&decimals, &minLiq, &minTrade,
		&paused, &c.PauseReason, &allowList, &reqSig,
		&window, &insEnabled, &insBal, &insAlloc,
		&insLoss, &insMax, &updatedAt,
	)
	if err != nil {
		return domain.Config{}, notFound("GetConfig", err)
	}
	c.Authority = addr(authority)
	c.PendingAuthority = addr(pending)
	c.Treasury = addr(treasury)
	c.CollateralAsset = addr(asset)
	c.Fees = domain.FeeSchedule{
		PlatformBuyBps:  u64(pBuy),
		PlatformSellBps: u64(pSell),
		LPBuyBps:        u64(lBuy),
		LPSellBps:       u64(lSell),
	}
	c.TokenDecimals = uint8(decimals)
	c.MinLiquidity = u64(minLiq)
	c.MinTradingLiquidity = u64(minTrade)
	c.Paused = paused == 1
	c.AllowListEnabled = allowList == 1
	c.RequireSignatures = reqSig == 1
	c.DisputeWindow = time.Duration(window)
	c.Insurance = domain.InsuranceParams{
		Enabled:            insEnabled == 1,
		Balance:            u64(insBal),
		AllocationBps:      u64(insAlloc),
		LossThresholdBps:   u64(insLoss),
		MaxCompensationBps: u64(insMax),
	}
	c.UpdatedAt = fromTS(updatedAt)
	return c, nil
}

func (t *txStore) PutConfig(ctx context.Context, c domain.Config) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO config (
			id, authority, pending_authority, treasury, collateral_asset,
			platform_buy_bps, platform_sell_bps, lp_buy_bps, lp_sell_bps,
			token_decimals, min_liquidity, min_trading_liquidity,
			paused, pause_reason, allow_list_enabled, require_signatures,
			dispute_window_ns, ins_enabled, ins_balance, ins_allocation_bps,
			ins_loss_threshold_bps, ins_max_comp_bps, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		addrHex(c.Authority), addrHex(c.PendingAuthority), addrHex(c.Treasury), addrHex(c.CollateralAsset),
		i64(c.Fees.PlatformBuyBps), i64(c.Fees.PlatformSellBps), i64(c.Fees.LPBuyBps), i64(c.Fees.LPSellBps),
		int(c.TokenDecimals), i64(c.MinLiquidity), i64(c.MinTradingLiquidity),
		boolInt(c.Paused), c.PauseReason, boolInt(c.AllowListEnabled), boolInt(c.RequireSignatures),
		int64(c.DisputeWindow), boolInt(c.Insurance.Enabled), i64(c.Insurance.Balance), i64(c.Insurance.AllocationBps),
		i64(c.Insurance.LossThresholdBps), i64(c.Insurance.MaxCompensationBps), ts(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.PutConfig: %w", err)
	}
	return nil
}

// ─── Markets ─────────────────────────────────────────────────────────────────

const marketColumns = `
	rec_key, yes_token, no_token, creator, end_time,
	collateral_locked, yes_minted, no_minted,
	pool_collateral, pool_yes, pool_no, total_shares,
	lp_fee_pot, acc_fee_per_share, lp_fees_accrued, platform_fees,
	is_completed, winner, yes_ratio_bps, no_ratio_bps, pool_settled,
	open_disputes, total_claimed, claims_paid, needs_reconciliation,
	created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMarket(row scanner) (domain.Market, error) {
	var (
		m                                    domain.Market
		key, yes, no, creator, acc, winner   string
		endTime, locked, yesMinted, noMinted int64
		pColl, pYes, pNo, shares, pot        int64
		lpFees, platformFees, yesBps, noBps  int64
		totalClaimed, createdAt, updatedAt   int64
		completed, settled, reconcile        int
	)
	if err := row.Scan(
		&key, &yes, &no, &creator, &endTime,
		&locked, &yesMinted, &noMinted,
		&pColl, &pYes, &pNo, &shares,
		&pot, &acc, &lpFees, &platformFees,
		&completed, &winner, &yesBps, &noBps, &settled,
		&m.OpenDisputes, &totalClaimed, &m.ClaimsPaid, &reconcile,
		&createdAt, &updatedAt,
	); err != nil {
		return domain.Market{}, err
	}
	accFee, err := uint256.FromDecimal(acc)
	if err != nil {
		return domain.Market{}, fmt.Errorf("acc_fee_per_share %q: %w", acc, err)
	}
	m.Key = keyOf(key)
	m.YesToken, m.NoToken, m.Creator = addr(yes), addr(no), addr(creator)
	m.EndTime = fromTS(endTime)
	m.Settlement = domain.SettlementLedger{
		CollateralLocked: u64(locked),
		YesMinted:        u64(yesMinted),
		NoMinted:         u64(noMinted),
	}
	m.Pool = domain.PoolLedger{
		CollateralReserve: u64(pColl),
		YesReserve:        u64(pYes),
		NoReserve:         u64(pNo),
		TotalShares:       u64(shares),
	}
	m.LPFeePot = u64(pot)
	m.AccFeePerShare = *accFee
	m.LPFeesAccrued = u64(lpFees)
	m.PlatformFees = u64(platformFees)
	m.IsCompleted = completed == 1
	m.Winner = domain.TokenType(winner)
	m.YesRatioBps, m.NoRatioBps = u64(yesBps), u64(noBps)
	m.PoolSettled = settled == 1
	m.TotalClaimed = u64(totalClaimed)
	m.NeedsReconciliation = reconcile == 1
	m.CreatedAt, m.UpdatedAt = fromTS(createdAt), fromTS(updatedAt)
	return m, nil
}

func (t *txStore) GetMarket(ctx context.Context, key domain.Key) (domain.Market, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+marketColumns+` FROM markets WHERE rec_key = ?`, key.Hex())
	m, err := scanMarket(row)
	if err != nil {
		return domain.Market{}, notFound("GetMarket "+key.Hex(), err)
	}
	return m, nil
}

// MarketByToken busca el mercado que emite token en cualquiera de los dos lados.
func (t *txStore) MarketByToken(ctx context.Context, token domain.Address) (domain.Market, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+marketColumns+` FROM markets
		WHERE yes_token = ? OR no_token = ? LIMIT 1`, token.Hex(), token.Hex())
	m, err := scanMarket(row)
	if err != nil {
		return domain.Market{}, notFound("MarketByToken "+token.Hex(), err)
	}
	return m, nil
}

func (t *txStore) ListMarkets(ctx context.Context) ([]domain.Market, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+marketColumns+` FROM markets ORDER BY created_at, rec_key`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListMarkets: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ListMarkets: scan row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *txStore) PutMarket(ctx context.Context, m domain.Market) error {
	_, err := t.tx.ExecContext(ctx, `INSERT OR REPLACE INTO markets (`+marketColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Key.Hex(), m.YesToken.Hex(), m.NoToken.Hex(), addrHex(m.Creator), ts(m.EndTime),
		i64(m.Settlement.CollateralLocked), i64(m.Settlement.YesMinted), i64(m.Settlement.NoMinted),
		i64(m.Pool.CollateralReserve), i64(m.Pool.YesReserve), i64(m.Pool.NoReserve), i64(m.Pool.TotalShares),
		i64(m.LPFeePot), m.AccFeePerShare.Dec(), i64(m.LPFeesAccrued), i64(m.PlatformFees),
		boolInt(m.IsCompleted), string(m.Winner), i64(m.YesRatioBps), i64(m.NoRatioBps), boolInt(m.PoolSettled),
		m.OpenDisputes, i64(m.TotalClaimed), m.ClaimsPaid, boolInt(m.NeedsReconciliation),
		ts(m.CreatedAt), ts(m.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.PutMarket %s: %w", m.Key.Hex(), err)
	}
	return nil
}

// ─── LP positions ────────────────────────────────────────────────────────────

func (t *txStore) GetLPPosition(ctx context.Context, key domain.Key) (domain.LPPosition, error) {
	var (
		p                                       domain.LPPosition
		k, market, provider, debt               string
		shares, invested, withdrawn, fees, upAt int64
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT rec_key, market, provider, shares, invested_collateral,
		       withdrawn_collateral, fee_debt, fees_collected, updated_at
		FROM lp_positions WHERE rec_key = ?`, key.Hex()).Scan(
		&k, &market, &provider, &shares, &invested, &withdrawn, &debt, &fees, &upAt,
	)
	if err != nil {
		return domain.LPPosition{}, notFound("GetLPPosition "+key.Hex(), err)
	}
	feeDebt, err := uint256.FromDecimal(debt)
	if err != nil {
		return domain.LPPosition{}, fmt.Errorf("storage.GetLPPosition: fee_debt %q: %w", debt, err)
	}
	p.Key, p.Market, p.Provider = keyOf(k), keyOf(market), addr(provider)
	p.Shares = u64(shares)
	p.InvestedCollateral = u64(invested)
	p.WithdrawnCollateral = u64(withdrawn)
	p.FeeDebt = *feeDebt
	p.FeesCollected = u64(fees)
	p.UpdatedAt = fromTS(upAt)
	return p, nil
}

func (t *txStore) PutLPPosition(ctx context.Context, p domain.LPPosition) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO lp_positions (
			rec_key, market, provider, shares, invested_collateral,
			withdrawn_collateral, fee_debt, fees_collected, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Key.Hex(), p.Market.Hex(), p.Provider.Hex(), i64(p.Shares), i64(p.InvestedCollateral),
		i64(p.WithdrawnCollateral), p.FeeDebt.Dec(), i64(p.FeesCollected), ts(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.PutLPPosition %s: %w", p.Key.Hex(), err)
	}
	return nil
}

// ─── User infos ──────────────────────────────────────────────────────────────

func (t *txStore) GetUserInfo(ctx context.Context, key domain.Key) (domain.UserInfo, error) {
	var (
		u                                    domain.UserInfo
		k, market, holder                    string
		yes, no, claimedAmt, lastClaim, upAt int64
		claimed                              int
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT rec_key, market, holder, yes_balance, no_balance,
		       claimed, claimed_amount, last_claim_at, updated_at
		FROM user_infos WHERE rec_key = ?`, key.Hex()).Scan(
		&k, &market, &holder, &yes, &no, &claimed, &claimedAmt, &lastClaim, &upAt,
	)
	if err != nil {
		return domain.UserInfo{}, notFound("GetUserInfo "+key.Hex(), err)
	}
	u.Key, u.Market, u.User = keyOf(k), keyOf(market), addr(holder)
	u.YesBalance, u.NoBalance = u64(yes), u64(no)
	u.Claimed = claimed == 1
	u.ClaimedAmount = u64(claimedAmt)
	if lastClaim != 0 {
		at := fromTS(lastClaim)
		u.LastClaimAt = &at
	}
	u.UpdatedAt = fromTS(upAt)
	return u, nil
}

func (t *txStore) PutUserInfo(ctx context.Context, u domain.UserInfo) error {
	var lastClaim int64
	if u.LastClaimAt != nil {
		lastClaim = ts(*u.LastClaimAt)
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO user_infos (
			rec_key, market, holder, yes_balance, no_balance,
			claimed, claimed_amount, last_claim_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Key.Hex(), u.Market.Hex(), u.User.Hex(), i64(u.YesBalance), i64(u.NoBalance),
		boolInt(u.Claimed), i64(u.ClaimedAmount), lastClaim, ts(u.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.PutUserInfo %s: %w", u.Key.Hex(), err)
	}
	return nil
}

// ─── Resolutions ─────────────────────────────────────────────────────────────

func (t *txStore) GetResolution(ctx context.Context, key domain.Key) (domain.Resolution, error) {
	var (
		r                                    domain.Resolution
		k, market, winner, by                string
		yesBps, noBps, resolvedAt, windowEnd int64
		finalized, overturned                int
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT rec_key, market, yes_ratio_bps, no_ratio_bps, winner, evidence_ref,
		       resolved_by, resolved_at, dispute_window_ends, finalized, overturned
		FROM resolutions WHERE rec_key = ?`, key.Hex()).Scan(
		&k, &market, &yesBps, &noBps, &winner, &r.EvidenceRef,
		&by, &resolvedAt, &windowEnd, &finalized, &overturned,
	)
	if err != nil {
		return domain.Resolution{}, notFound("GetResolution "+key.Hex(), err)
	}
	r.Key, r.Market = keyOf(k), keyOf(market)
	r.YesRatioBps, r.NoRatioBps = u64(yesBps), u64(noBps)
	r.Winner = domain.TokenType(winner)
	r.ResolvedBy = addr(by)
	r.ResolvedAt, r.DisputeWindowEnds = fromTS(resolvedAt), fromTS(windowEnd)
	r.Finalized, r.Overturned = finalized == 1, overturned == 1
	return r, nil
}

func (t *txStore) PutResolution(ctx context.Context, r domain.Resolution) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO resolutions (
			rec_key, market, yes_ratio_bps, no_ratio_bps, winner, evidence_ref,
			resolved_by, resolved_at, dispute_window_ends, finalized, overturned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Key.Hex(), r.Market.Hex(), i64(r.YesRatioBps), i64(r.NoRatioBps), string(r.Winner), r.EvidenceRef,
		addrHex(r.ResolvedBy), ts(r.ResolvedAt), ts(r.DisputeWindowEnds), boolInt(r.Finalized), boolInt(r.Overturned),
	)
	if err != nil {
		return fmt.Errorf("storage.PutResolution %s: %w", r.Key.Hex(), err)
	}
	return nil
}

// ─── Disputes ────────────────────────────────────────────────────────────────

const disputeColumns = `
	rec_key, id, market, resolution, disputer, reason, evidence, status,
	auto_decision, auto_confidence, auto_rationale, auto_at,
	human_decision, human_reason, human_reviewer, human_at,
	new_winner, new_yes_bps, new_no_bps, created_at, updated_at`

func scanDispute(row scanner) (domain.Dispute, error) {
	var (
		d                                           domain.Dispute
		k, market, res, disputer, evidence, status  string
		autoDec, autoRat, humDec, humReason, humBy  string
		newWinner                                   string
		autoConf                                    float64
		autoAt, humAt, newYes, newNo, created, upAt int64
	)
	if err := row.Scan(
		&k, &d.ID, &market, &res, &disputer, &d.Reason, &evidence, &status,
		&autoDec, &autoConf, &autoRat, &autoAt,
		&humDec, &humReason, &humBy, &humAt,
		&newWinner, &newYes, &newNo, &created, &upAt,
	); err != nil {
		return domain.Dispute{}, err
	}
	if err := json.Unmarshal([]byte(evidence), &d.Evidence); err != nil {
		return domain.Dispute{}, fmt.Errorf("evidence: %w", err)
	}
	d.Key, d.Market, d.Resolution = keyOf(k), keyOf(market), keyOf(res)
	d.Disputer = addr(disputer)
	d.Status = domain.DisputeStatus(status)
	if autoDec != "" {
		d.Automated = &domain.AutomatedReview{
			Decision:   domain.ReviewDecision(autoDec),
			Confidence: autoConf,
			Rationale:  autoRat,
			AssessedAt: fromTS(autoAt),
		}
	}
	if humDec != "" {
		d.Human = &domain.HumanReview{
			Decision:   domain.ReviewDecision(humDec),
			Reason:     humReason,
			Reviewer:   addr(humBy),
			ReviewedAt: fromTS(humAt),
		}
	}
	if newWinner != "" {
		d.NewResult = &domain.DisputeResult{
			YesRatioBps: u64(newYes),
			NoRatioBps:  u64(newNo),
			Winner:      domain.TokenType(newWinner),
		}
	}
	d.CreatedAt, d.UpdatedAt = fromTS(created), fromTS(upAt)
	return d, nil
}

func (t *txStore) GetDispute(ctx context.Context, key domain.Key) (domain.Dispute, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE rec_key = ?`, key.Hex())
	d, err := scanDispute(row)
	if err != nil {
		return domain.Dispute{}, notFound("GetDispute "+key.Hex(), err)
	}
	return d, nil
}

func (t *txStore) listDisputes(ctx context.Context, op, where string, args ...any) ([]domain.Dispute, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE `+where+` ORDER BY created_at, rec_key`, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.%s: query: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.%s: scan row: %w", op, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (t *txStore) ListDisputes(ctx context.Context, resolution domain.Key) ([]domain.Dispute, error) {
	return t.listDisputes(ctx, "ListDisputes", "resolution = ?", resolution.Hex())
}

func (t *txStore) ListDisputesByStatus(ctx context.Context, status domain.DisputeStatus) ([]domain.Dispute, error) {
	return t.listDisputes(ctx, "ListDisputesByStatus", "status = ?", string(status))
}

func (t *txStore) PutDispute(ctx context.Context, d domain.Dispute) error {
	evidence := d.Evidence
	if evidence == nil {
		evidence = []string{}
	}
	ev, err := json.Marshal(evidence)
	if err != nil {
		return fmt.Errorf("storage.PutDispute: marshal evidence: %w", err)
	}
	var (
		autoDec, autoRat, humDec, humReason, humBy, newWinner string
		autoConf                                              float64
		autoAt, humAt, newYes, newNo                          int64
	)
	if a := d.Automated; a != nil {
		autoDec, autoConf, autoRat, autoAt = string(a.Decision), a.Confidence, a.Rationale, ts(a.AssessedAt)
	}
	if h := d.Human; h != nil {
		humDec, humReason, humBy, humAt = string(h.Decision), h.Reason, addrHex(h.Reviewer), ts(h.ReviewedAt)
	}
	if r := d.NewResult; r != nil {
		newWinner, newYes, newNo = string(r.Winner), i64(r.YesRatioBps), i64(r.NoRatioBps)
	}
	_, err = t.tx.ExecContext(ctx, `INSERT OR REPLACE INTO disputes (`+disputeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Key.Hex(), d.ID, d.Market.Hex(), d.Resolution.Hex(), d.Disputer.Hex(), d.Reason, string(ev), string(d.Status),
		autoDec, autoConf, autoRat, autoAt,
		humDec, humReason, humBy, humAt,
		newWinner, newYes, newNo, ts(d.CreatedAt), ts(d.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.PutDispute %s: %w", d.Key.Hex(), err)
	}
	return nil
}

func (t *txStore) CountDisputesSince(ctx context.Context, user domain.Address, since time.Time) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM disputes WHERE disputer = ? AND created_at >= ?`,
		user.Hex(), ts(since),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage.CountDisputesSince: %w", err)
	}
	return n, nil
}

// ─── Allow-list & nonces ─────────────────────────────────────────────────────

func (t *txStore) IsCreatorAllowed(ctx context.Context, creator domain.Address) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM creator_allow_list WHERE creator = ?`, creator.Hex()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("storage.IsCreatorAllowed: %w", err)
	}
	return n > 0, nil
}

func (t *txStore) SetCreatorAllowed(ctx context.Context, creator domain.Address, allowed bool) error {
	var err error
	if allowed {
		_, err = t.tx.ExecContext(ctx, `INSERT OR IGNORE INTO creator_allow_list (creator) VALUES (?)`, creator.Hex())
	} else {
		_, err = t.tx.ExecContext(ctx, `DELETE FROM creator_allow_list WHERE creator = ?`, creator.Hex())
	}
	if err != nil {
		return fmt.Errorf("storage.SetCreatorAllowed: %w", err)
	}
	return nil
}

func (t *txStore) UseNonce(ctx context.Context, signer domain.Address, nonce uint64) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO used_nonces (signer, nonce) VALUES (?, ?)`, signer.Hex(), i64(nonce))
	if err != nil {
		return fmt.Errorf("storage.UseNonce: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage.UseNonce: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("storage.UseNonce: nonce %d already used: %w", nonce, domain.ErrInvalidSignature)
	}
	return nil
}
