package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/outcomex/internal/application/engine"
	"github.com/alejandrodnm/outcomex/internal/auth"
	"github.com/alejandrodnm/outcomex/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"init":           {"initialize the engine from config; the caller becomes authority", runInit},
	"update-config":  {"[-treasury addr] [-platform-buy bps] ... change global config", runUpdateConfig},
	"config":         {"show global config", runShowConfig},
	"deposit":        {"<owner> <amount>  credit collateral to an account (local ledger)", runDeposit},
	"balance":        {"<market> [owner]  collateral, YES and NO balances", runBalance},
	"create-market":  {"[-end 72h|RFC3339] <yes-token> <no-token>", runCreateMarket},
	"mint":           {"<market> <amount>  lock collateral for YES+NO", runMint},
	"redeem":         {"<market> <amount>  burn YES+NO for collateral", runRedeem},
	"seed":           {"[-price bps] <market> <collateral>  first liquidity", runSeed},
	"add":            {"<market> <collateral>  add liquidity", runAdd},
	"withdraw":       {"[-min n] <market> <shares>  withdraw liquidity", runWithdraw},
	"collect":        {"<market>  harvest LP fees", runCollect},
	"swap":           {"[-min n] [-deadline 5m] <market> buy|sell yes|no <amount>", runSwap},
	"quote":          {"<market> buy|sell yes|no <amount>", runQuote},
	"resolve":        {"-winner yes|no [-yes bps -no bps] [-evidence ref] <market>", runResolve},
	"claim":          {"<market>  claim rewards for winning tokens", runClaim},
	"settle":         {"<market>  settle the pool after resolution", runSettle},
	"finalize":       {"<market>  close the resolution once the window passed", runFinalize},
	"dispute":        {"-reason text [-evidence url]... <market>", runDispute},
	"review":         {"-reason text <dispute-key> uphold|overturn", runReview},
	"review-run":     {"[-once]  automated assessment of pending disputes", runReviewLoop},
	"pause":          {"<reason>  emergency pause", runPause},
	"unpause":        {"<reason>  lift emergency pause", runUnpause},
	"nominate":       {"<addr>  nominate the next authority", runNominate},
	"accept":         {"accept a pending authority nomination", runAccept},
	"allow":          {"[-revoke] <creator>  edit the market creator allow-list", runAllow},
	"fund-insurance": {"<amount>  move collateral into the insurance pool", runFundInsurance},
	"markets":        {"list markets", runMarkets},
	"market":         {"<market>  show one market", runMarket},
	"position":       {"<market> [owner]  LP position and user info", runPosition},
	"disputes":       {"[market]  disputes of a market, or all pending", runDisputes},
	"events":         {"[-limit n] [market]  event history", runEvents},
}

// ─── gobierno ────────────────────────────────────────────────────────────────

func runInit(ctx context.Context, a *app, _ []string) error {
	ec := a.cfg.Engine
	treasury, err := parseAddr(ec.Treasury)
	if err != nil {
		return fmt.Errorf("engine.treasury: %w", err)
	}
	var collateral domain.Address
	if ec.CollateralAsset != "" {
		if collateral, err = parseAddr(ec.CollateralAsset); err != nil {
			return fmt.Errorf("engine.collateral_asset: %w", err)
		}
	}
	cfg, err := a.eng.Initialize(ctx, engine.As(a.caller), engine.InitParams{
		Treasury:        treasury,
		CollateralAsset: collateral,
		Fees: domain.FeeSchedule{
			PlatformBuyBps:  ec.PlatformBuyBps,
			PlatformSellBps: ec.PlatformSellBps,
			LPBuyBps:        ec.LPBuyBps,
			LPSellBps:       ec.LPSellBps,
		},
		TokenDecimals:       ec.TokenDecimals,
		MinLiquidity:        ec.MinLiquidity,
		MinTradingLiquidity: ec.MinTradingLiquidity,
		AllowListEnabled:    ec.AllowListEnabled,
		RequireSignatures:   ec.RequireSignatures,
		DisputeWindow:       a.cfg.DisputeWindow(),
		Insurance: domain.InsuranceParams{
			Enabled:            ec.Insurance.Enabled,
			AllocationBps:      ec.Insurance.AllocationBps,
			LossThresholdBps:   ec.Insurance.LossThresholdBps,
			MaxCompensationBps: ec.Insurance.MaxCompensationBps,
		},
	})
	if err != nil {
		return err
	}
	a.console.PrintConfig(cfg)
	return nil
}

func runUpdateConfig(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("update-config", flag.ContinueOnError)
	treasury := fs.String("treasury", "", "treasury address")
	pBuy := fs.Uint64("platform-buy", 0, "platform buy fee, bps")
	pSell := fs.Uint64("platform-sell", 0, "platform sell fee, bps")
	lBuy := fs.Uint64("lp-buy", 0, "LP buy fee, bps")
	lSell := fs.Uint64("lp-sell", 0, "LP sell fee, bps")
	minLiq := fs.Uint64("min-liquidity", 0, "minimum liquidity contribution")
	minTrade := fs.Uint64("min-trading-liquidity", 0, "pool collateral below which swaps stop")
	allowList := fs.Bool("allow-list", false, "require allow-listed market creators")
	signatures := fs.Bool("signatures", false, "require signed authorizations on debits")
	window := fs.Duration("dispute-window", 0, "dispute window")
	insurance := fs.Bool("insurance", false, "enable the insurance pool")
	alloc := fs.Uint64("insurance-alloc", 0, "share of platform fees to insurance, bps")
	threshold := fs.Uint64("insurance-threshold", 0, "minimum shortfall for insurance, bps")
	maxComp := fs.Uint64("insurance-max", 0, "insurance cap relative to the payout, bps")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cur, err := a.eng.Config(ctx)
	if err != nil {
		return err
	}
	var u engine.ConfigUpdate
	fees := cur.Fees
	var parseErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "treasury":
			addr, err := parseAddr(*treasury)
			if err != nil {
				parseErr = err
				return
			}
			u.Treasury = &addr
		case "platform-buy":
			fees.PlatformBuyBps = *pBuy
			u.Fees = &fees
		case "platform-sell":
			fees.PlatformSellBps = *pSell
			u.Fees = &fees
		case "lp-buy":
			fees.LPBuyBps = *lBuy
			u.Fees = &fees
		case "lp-sell":
			fees.LPSellBps = *lSell
			u.Fees = &fees
		case "min-liquidity":
			u.MinLiquidity = minLiq
		case "min-trading-liquidity":
			u.MinTradingLiquidity = minTrade
		case "allow-list":
			u.AllowListEnabled = allowList
		case "signatures":
			u.RequireSignatures = signatures
		case "dispute-window":
			u.DisputeWindow = window
		case "insurance":
			u.InsuranceEnabled = insurance
		case "insurance-alloc":
			u.AllocationBps = alloc
		case "insurance-threshold":
			u.LossThresholdBps = threshold
		case "insurance-max":
			u.MaxCompensationBps = maxComp
		}
	})
	if parseErr != nil {
		return parseErr
	}

	cfg, err := a.eng.UpdateConfig(ctx, engine.As(a.caller), u)
	if err != nil {
		return err
	}
	a.console.PrintConfig(cfg)
	return nil
}

func runShowConfig(ctx context.Context, a *app, _ []string) error {
	cfg, err := a.eng.Config(ctx)
	if err != nil {
		return err
	}
	a.console.PrintConfig(cfg)
	return nil
}

func runPause(ctx context.Context, a *app, args []string) error {
	return a.eng.EmergencyPause(ctx, engine.As(a.caller), strings.Join(args, " "))
}

func runUnpause(ctx context.Context, a *app, args []string) error {
	return a.eng.EmergencyUnpause(ctx, engine.As(a.caller), strings.Join(args, " "))
}

func runNominate(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	candidate, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	return a.eng.NominateAuthority(ctx, engine.As(a.caller), candidate)
}

func runAccept(ctx context.Context, a *app, _ []string) error {
	return a.eng.AcceptAuthority(ctx, engine.As(a.caller))
}

func runAllow(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("allow", flag.ContinueOnError)
	revoke := fs.Bool("revoke", false, "remove the creator instead")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := wantArgs(fs.Args(), 1); err != nil {
		return err
	}
	creator, err := parseAddr(fs.Arg(0))
	if err != nil {
		return err
	}
	return a.eng.SetCreatorAllowed(ctx, engine.As(a.caller), creator, !*revoke)
}

func runFundInsurance(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	amount, err := parseAmount(args[0])
	if err != nil {
		return err
	}
	call, err := a.call("fund_insurance", domain.Key{}, amount)
	if err != nil {
		return err
	}
	return a.eng.FundInsurance(ctx, call, amount)
}

// ─── cuentas y mercados ──────────────────────────────────────────────────────

func runDeposit(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 2); err != nil {
		return err
	}
	owner, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}
	if err := a.eng.Deposit(ctx, owner, amount); err != nil {
		return err
	}
	bal, err := a.eng.CollateralBalance(ctx, owner)
	if err != nil {
		return err
	}
	fmt.Printf("%s collateral=%d\n", owner.Hex(), bal)
	return nil
}

func runBalance(ctx context.Context, a *app, args []string) error {
	market, owner, err := a.marketAndOwner(args)
	if err != nil {
		return err
	}
	b, err := a.eng.Balances(ctx, market, owner)
	if err != nil {
		return err
	}
	fmt.Printf("%s collateral=%d yes=%d no=%d\n", owner.Hex(), b.Collateral, b.Yes, b.No)
	return nil
}

func runCreateMarket(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("create-market", flag.ContinueOnError)
	end := fs.String("end", "", "trading deadline: duration from now (72h) or RFC3339")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := wantArgs(fs.Args(), 2); err != nil {
		return err
	}
	yes, err := parseAddr(fs.Arg(0))
	if err != nil {
		return err
	}
	no, err := parseAddr(fs.Arg(1))
	if err != nil {
		return err
	}
	endTime, err := parseEnd(*end)
	if err != nil {
		return err
	}
	m, err := a.eng.CreateMarket(ctx, engine.As(a.caller), yes, no, endTime)
	if err != nil {
		return err
	}
	fmt.Println(m.Key.Hex())
	return nil
}

func runMarkets(ctx context.Context, a *app, _ []string) error {
	markets, err := a.eng.Markets(ctx)
	if err != nil {
		return err
	}
	a.console.PrintMarkets(markets)
	return nil
}

func runMarket(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	key, err := domain.KeyFromHex(args[0])
	if err != nil {
		return fmt.Errorf("market %q: %w", args[0], err)
	}
	m, err := a.eng.Market(ctx, key)
	if err != nil {
		return err
	}
	a.console.PrintMarket(m)
	return nil
}

func runPosition(ctx context.Context, a *app, args []string) error {
	market, owner, err := a.marketAndOwner(args)
	if err != nil {
		return err
	}
	pos, err := a.eng.LPPosition(ctx, market, owner)
	if err != nil {
		return err
	}
	ui, err := a.eng.UserInfo(ctx, market, owner)
	if err != nil {
		return err
	}
	fmt.Printf("LP:   shares=%d invested=%d withdrawn=%d fees_collected=%d\n",
		pos.Shares, pos.InvestedCollateral, pos.WithdrawnCollateral, pos.FeesCollected)
	fmt.Printf("USER: yes=%d no=%d claimed=%t claimed_amount=%d\n",
		ui.YesBalance, ui.NoBalance, ui.Claimed, ui.ClaimedAmount)
	return nil
}

func runEvents(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	limit := fs.Int("limit", 0, "max events (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var market domain.Key
	if fs.NArg() > 0 {
		k, err := domain.KeyFromHex(fs.Arg(0))
		if err != nil {
			return fmt.Errorf("market %q: %w", fs.Arg(0), err)
		}
		market = k
	}
	events, err := a.store.ListEvents(ctx, market, *limit)
	if err != nil {
		return err
	}
	a.console.PrintEvents(events)
	return nil
}

// ─── emisión y pool ──────────────────────────────────────────────────────────

func runMint(ctx context.Context, a *app, args []string) error {
	market, amount, err := marketAmount(args)
	if err != nil {
		return err
	}
	call, err := a.call("mint", market, amount)
	if err != nil {
		return err
	}
	return a.eng.MintCompleteSet(ctx, call, market, amount)
}

func runRedeem(ctx context.Context, a *app, args []string) error {
	market, amount, err := marketAmount(args)
	if err != nil {
		return err
	}
	call, err := a.call("redeem", market, amount)
	if err != nil {
		return err
	}
	return a.eng.RedeemCompleteSet(ctx, call, market, amount)
}

func runSeed(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	price := fs.Uint64("price", 0, "starting YES price in bps (0 = 50/50)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	market, amount, err := marketAmount(fs.Args())
	if err != nil {
		return err
	}
	call, err := a.call("seed", market, amount)
	if err != nil {
		return err
	}
	res, err := a.eng.SeedPool(ctx, call, market, amount, *price)
	if err != nil {
		return err
	}
	printLiquidity(res)
	return nil
}

func runAdd(ctx context.Context, a *app, args []string) error {
	market, amount, err := marketAmount(args)
	if err != nil {
		return err
	}
	call, err := a.call("add_liquidity", market, amount)
	if err != nil {
		return err
	}
	res, err := a.eng.AddLiquidity(ctx, call, market, amount)
	if err != nil {
		return err
	}
	printLiquidity(res)
	return nil
}

func runWithdraw(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("withdraw", flag.ContinueOnError)
	minOut := fs.Uint64("min", 0, "minimum collateral out")
	if err := fs.Parse(args); err != nil {
		return err
	}
	market, shares, err := marketAmount(fs.Args())
	if err != nil {
		return err
	}
	call, err := a.call("withdraw_liquidity", market, shares)
	if err != nil {
		return err
	}
	res, err := a.eng.WithdrawLiquidity(ctx, call, market, shares, *minOut)
	if err != nil {
		return err
	}
	printLiquidity(res)
	return nil
}

func runCollect(ctx context.Context, a *app, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	market, err := domain.KeyFromHex(args[0])
	if err != nil {
		return fmt.Errorf("market %q: %w", args[0], err)
	}
	fees, err := a.eng.CollectFees(ctx, engine.As(a.caller), market)
	if err != nil {
		return err
	}
	fmt.Printf("collected=%d\n", fees)
	return nil
}

func runSwap(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("swap", flag.ContinueOnError)
	minOut := fs.Uint64("min", 0, "minimum amount out")
	deadline := fs.Duration("deadline", 0, "reject if not executed within this duration")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := parseSwap(fs.Args())
	if err != nil {
		return err
	}
	p.MinOut = *minOut
	if *deadline > 0 {
		p.Deadline = time.Now().UTC().Add(*deadline)
	}
	op := "swap_buy"
	if p.Direction == domain.DirectionSell {
		op = "swap_sell"
	}
	call, err := a.call(op, p.Market, p.Amount)
	if err != nil {
		return err
	}
	q, err := a.eng.Swap(ctx, call, p)
	if err != nil {
		return err
	}
	printQuote(q)
	return nil
}

func runQuote(ctx context.Context, a *app, args []string) error {
	p, err := parseSwap(args)
	if err != nil {
		return err
	}
	q, err := a.eng.Quote(ctx, p.Market, p.Amount, p.Direction, p.Token)
	if err != nil {
		return err
	}
	printQuote(q)
	return nil
}

// ─── resolución y disputas ───────────────────────────────────────────────────

func runResolve(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	winner := fs.String("winner", "", "winning side: yes|no")
	yesBps := fs.Uint64("yes", 0, "YES payout ratio, bps (default: 10000 for the winner)")
	noBps := fs.Uint64("no", 0, "NO payout ratio, bps")
	evidence := fs.String("evidence", "", "reference to the resolution source")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := wantArgs(fs.Args(), 1); err != nil {
		return err
	}
	market, err := domain.KeyFromHex(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("market %q: %w", fs.Arg(0), err)
	}
	w, err := parseToken(*winner)
	if err != nil {
		return err
	}
	yes, no := *yesBps, *noBps
	if yes == 0 && no == 0 {
		if w == domain.TokenYes {
			yes = domain.BasisPoints
		} else {
			no = domain.BasisPoints
		}
	}
	res, err := a.eng.Resolve(ctx, engine.As(a.caller), market, engine.ResolveParams{
		YesRatioBps: yes,
		NoRatioBps:  no,
		Winner:      w,
		IsCompleted: true,
		EvidenceRef: *evidence,
	})
	if err != nil {
		return err
	}
	fmt.Printf("resolved winner=%s yes=%d no=%d dispute_window_ends=%s\n",
		res.Winner, res.YesRatioBps, res.NoRatioBps, res.DisputeWindowEnds.Format(time.RFC3339))
	return nil
}

func runClaim(ctx context.Context, a *app, args []string) error {
	market, err := oneMarket(args)
	if err != nil {
		return err
	}
	res, err := a.eng.ClaimRewards(ctx, engine.As(a.caller), market)
	if err != nil {
		return err
	}
	fmt.Printf("payout=%d settlement=%d pool=%d insurance=%d burned_yes=%d burned_no=%d\n",
		res.Payout, res.FromSettlement, res.FromPool, res.FromInsurance, res.YesBurned, res.NoBurned)
	return nil
}

func runSettle(ctx context.Context, a *app, args []string) error {
	market, err := oneMarket(args)
	if err != nil {
		return err
	}
	res, err := a.eng.SettlePool(ctx, engine.As(a.caller), market)
	if err != nil {
		return err
	}
	if res.Swept == "" {
		fmt.Println("settled, nothing swept")
		return nil
	}
	fmt.Printf("settled, swept %d %s to treasury\n", res.Amount, res.Swept)
	return nil
}

func runFinalize(ctx context.Context, a *app, args []string) error {
	market, err := oneMarket(args)
	if err != nil {
		return err
	}
	_, err = a.eng.FinalizeResolution(ctx, engine.As(a.caller), market)
	return err
}

func runDispute(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("dispute", flag.ContinueOnError)
	reason := fs.String("reason", "", "why the resolution is wrong")
	var evidence stringList
	fs.Var(&evidence, "evidence", "supporting URL (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	market, err := oneMarket(fs.Args())
	if err != nil {
		return err
	}
	d, err := a.eng.SubmitDispute(ctx, engine.As(a.caller), market, *reason, evidence)
	if err != nil {
		return err
	}
	fmt.Printf("dispute %s key=%s\n", d.ID, d.Key.Hex())
	return nil
}

func runReview(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("review", flag.ContinueOnError)
	reason := fs.String("reason", "", "verdict rationale")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := wantArgs(fs.Args(), 2); err != nil {
		return err
	}
	key, err := domain.KeyFromHex(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("dispute %q: %w", fs.Arg(0), err)
	}
	decision := domain.ReviewDecision(strings.ToUpper(fs.Arg(1)))
	d, err := a.eng.ReviewDispute(ctx, engine.As(a.caller), key, decision, *reason)
	if err != nil {
		return err
	}
	a.console.PrintDisputes([]domain.Dispute{d})
	return nil
}

func runDisputes(ctx context.Context, a *app, args []string) error {
	var (
		disputes []domain.Dispute
		err      error
	)
	if len(args) == 0 {
		disputes, err = a.eng.PendingDisputes(ctx)
	} else {
		var market domain.Key
		if market, err = oneMarket(args); err != nil {
			return err
		}
		disputes, err = a.eng.Disputes(ctx, market)
	}
	if err != nil {
		return err
	}
	a.console.PrintDisputes(disputes)
	return nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// call arma la identidad de una operación que debita al caller. Con clave
// privada la firma; sin ella la llamada va sin firmar y el engine la rechaza
// si la config exige firmas.
func (a *app) call(op string, market domain.Key, amount uint64) (engine.Call, error) {
	c := engine.As(a.caller)
	if a.key == nil {
		return c, nil
	}
	authz, err := auth.Sign(a.key, auth.Request{
		Op:     op,
		Market: market,
		Amount: amount,
		Nonce:  uint64(time.Now().UnixNano()),
		Expiry: time.Now().UTC().Add(5 * time.Minute).Truncate(time.Second),
	})
	if err != nil {
		return c, err
	}
	c.Auth = &authz
	return c, nil
}

func (a *app) marketAndOwner(args []string) (domain.Key, domain.Address, error) {
	if len(args) < 1 || len(args) > 2 {
		return domain.Key{}, domain.Address{}, fmt.Errorf("want <market> [owner], got %d args", len(args))
	}
	market, err := domain.KeyFromHex(args[0])
	if err != nil {
		return domain.Key{}, domain.Address{}, fmt.Errorf("market %q: %w", args[0], err)
	}
	owner := a.caller
	if len(args) == 2 {
		if owner, err = parseAddr(args[1]); err != nil {
			return domain.Key{}, domain.Address{}, err
		}
	}
	return market, owner, nil
}

func wantArgs(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("want %d args, got %d", n, len(args))
	}
	return nil
}

func oneMarket(args []string) (domain.Key, error) {
	if err := wantArgs(args, 1); err != nil {
		return domain.Key{}, err
	}
	k, err := domain.KeyFromHex(args[0])
	if err != nil {
		return domain.Key{}, fmt.Errorf("market %q: %w", args[0], err)
	}
	return k, nil
}

func marketAmount(args []string) (domain.Key, uint64, error) {
	if err := wantArgs(args, 2); err != nil {
		return domain.Key{}, 0, err
	}
	k, err := domain.KeyFromHex(args[0])
	if err != nil {
		return domain.Key{}, 0, fmt.Errorf("market %q: %w", args[0], err)
	}
	amount, err := parseAmount(args[1])
	return k, amount, err
}

func parseSwap(args []string) (engine.SwapParams, error) {
	if err := wantArgs(args, 4); err != nil {
		return engine.SwapParams{}, err
	}
	market, err := domain.KeyFromHex(args[0])
	if err != nil {
		return engine.SwapParams{}, fmt.Errorf("market %q: %w", args[0], err)
	}
	dir := domain.Direction(strings.ToUpper(args[1]))
	if !dir.Valid() {
		return engine.SwapParams{}, fmt.Errorf("direction %q: want buy|sell", args[1])
	}
	token, err := parseToken(args[2])
	if err != nil {
		return engine.SwapParams{}, err
	}
	amount, err := parseAmount(args[3])
	if err != nil {
		return engine.SwapParams{}, err
	}
	return engine.SwapParams{Market: market, Amount: amount, Direction: dir, Token: token}, nil
}

func parseAddr(s string) (domain.Address, error) {
	if !common.IsHexAddress(s) {
		return domain.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseAmount(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}
	return n, nil
}

func parseToken(s string) (domain.TokenType, error) {
	t := domain.TokenType(strings.ToUpper(s))
	if !t.Valid() {
		return "", fmt.Errorf("token %q: want yes|no", s)
	}
	return t, nil
}

func parseEnd(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return time.Now().UTC().Add(d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("end %q: want a duration or RFC3339 time", s)
	}
	return t.UTC(), nil
}

func printLiquidity(r engine.LiquidityResult) {
	fmt.Printf("shares=%d collateral=%d yes=%d no=%d fees_harvested=%d\n",
		r.Shares, r.Collateral, r.Yes, r.No, r.FeesHarvested)
}

func printQuote(q domain.SwapQuote) {
	fmt.Printf("%s %s in=%d gross=%d platform_fee=%d lp_fee=%d out=%d price=%d->%d bps\n",
		q.Direction, q.Token, q.AmountIn, q.Gross, q.PlatformFee, q.LPFee, q.AmountOut, q.PriceBefore, q.PriceAfter)
}

// stringList es un flag repetible.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }
