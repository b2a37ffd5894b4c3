package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/outcomex/internal/domain"
	"github.com/alejandrodnm/outcomex/internal/ports"
	"github.com/olekukonko/tablewriter"
)

var _ ports.EventSink = (*Console)(nil)

// Console implementa ports.EventSink y las vistas de consola del CLI.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un Console que escribe a stdout.
// Con table=false los eventos salen en formato compacto de una línea.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un Console para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Publish imprime los eventos de una operación confirmada.
func (c *Console) Publish(_ context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	if c.table {
		c.PrintEvents(events)
		return nil
	}
	for _, ev := range events {
		fmt.Fprintf(c.out, "[%s] %-24s %s %s\n",
			ev.At.Format("15:04:05"), ev.Kind, shortKey(ev.Market), formatAttrs(ev.Attrs))
	}
	return nil
}

// PrintEvents imprime un historial de eventos.
func (c *Console) PrintEvents(events []domain.Event) {
	if len(events) == 0 {
		fmt.Fprintln(c.out, "  no events")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Time", "Event", "Market", "Actor", "Details")
	for _, ev := range events {
		table.Append(
			ev.At.Format(time.DateTime),
			string(ev.Kind),
			shortKey(ev.Market),
			shortAddr(ev.Actor),
			formatAttrs(ev.Attrs),
		)
	}
	table.Render()
}

// PrintMarkets imprime la tabla de mercados con sus dos ledgers.
func (c *Console) PrintMarkets(markets []domain.Market) {
	if len(markets) == 0 {
		fmt.Fprintln(c.out, "  no markets")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Status", "Locked", "Pool C", "YES res", "NO res", "Shares", "YES px", "Fees pot", "Disputes")
	for _, m := range markets {
		table.Append(
			shortKey(m.Key),
			statusLabel(m),
			fmt.Sprintf("%d", m.Settlement.CollateralLocked),
			fmt.Sprintf("%d", m.Pool.CollateralReserve),
			fmt.Sprintf("%d", m.Pool.YesReserve),
			fmt.Sprintf("%d", m.Pool.NoReserve),
			fmt.Sprintf("%d", m.Pool.TotalShares),
			bpsLabel(m.YesPriceBps()),
			fmt.Sprintf("%d", m.LPFeePot),
			fmt.Sprintf("%d", m.OpenDisputes),
		)
	}
	table.Render()
}

// PrintMarket imprime el detalle de un mercado.
func (c *Console) PrintMarket(m domain.Market) {
	fmt.Fprintf(c.out, "\n=== MARKET %s [%s] ===\n", m.Key.Hex(), statusLabel(m))
	fmt.Fprintf(c.out, "  YES token: %s\n", m.YesToken.Hex())
	fmt.Fprintf(c.out, "  NO token:  %s\n", m.NoToken.Hex())
	fmt.Fprintf(c.out, "  Creator:   %s\n", m.Creator.Hex())
	if !m.EndTime.IsZero() {
		fmt.Fprintf(c.out, "  Ends:      %s\n", m.EndTime.Format(time.RFC3339))
	}

	fmt.Fprintf(c.out, "\n  SETTLEMENT: locked=%d yes_minted=%d no_minted=%d\n",
		m.Settlement.CollateralLocked, m.Settlement.YesMinted, m.Settlement.NoMinted)
	fmt.Fprintf(c.out, "  POOL:       collateral=%d yes=%d no=%d shares=%d price(YES)=%s\n",
		m.Pool.CollateralReserve, m.Pool.YesReserve, m.Pool.NoReserve, m.Pool.TotalShares, bpsLabel(m.YesPriceBps()))
	fmt.Fprintf(c.out, "  FEES:       lp_pot=%d lp_lifetime=%d platform_lifetime=%d\n",
		m.LPFeePot, m.LPFeesAccrued, m.PlatformFees)

	if m.IsCompleted {
		fmt.Fprintf(c.out, "\n  RESULT:     winner=%s yes=%s no=%s pool_settled=%t\n",
			m.Winner, bpsLabel(m.YesRatioBps), bpsLabel(m.NoRatioBps), m.PoolSettled)
		fmt.Fprintf(c.out, "  CLAIMS:     %d paid, %d total\n", m.ClaimsPaid, m.TotalClaimed)
	}
	if m.OpenDisputes > 0 {
		fmt.Fprintf(c.out, "  !! %d open disputes: claims and settlement blocked\n", m.OpenDisputes)
	}
	if m.NeedsReconciliation {
		fmt.Fprintln(c.out, "  !! overturned after payouts: needs manual reconciliation")
	}
	fmt.Fprintln(c.out)
}

// PrintDisputes imprime las disputas con su revisión automática y humana.
func (c *Console) PrintDisputes(disputes []domain.Dispute) {
	if len(disputes) == 0 {
		fmt.Fprintln(c.out, "  no disputes")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("ID", "Market", "Disputer", "Status", "Auto", "Conf", "Human", "Reason")
	for _, d := range disputes {
		auto, conf, human := "-", "-", "-"
		if d.Automated != nil {
			auto = string(d.Automated.Decision)
			conf = fmt.Sprintf("%.2f", d.Automated.Confidence)
		}
		if d.Human != nil {
			human = string(d.Human.Decision)
		}
		table.Append(
			d.ID,
			shortKey(d.Market),
			shortAddr(d.Disputer),
			string(d.Status),
			auto,
			conf,
			human,
			truncate(d.Reason, 40),
		)
	}
	table.Render()
}

// PrintConfig imprime la configuración global.
func (c *Console) PrintConfig(cfg domain.Config) {
	fmt.Fprintln(c.out, "\n=== CONFIG ===")
	fmt.Fprintf(c.out, "  Authority:        %s\n", cfg.Authority.Hex())
	if cfg.HasPendingAuthority() {
		fmt.Fprintf(c.out, "  Pending:          %s\n", cfg.PendingAuthority.Hex())
	}
	fmt.Fprintf(c.out, "  Treasury:         %s\n", cfg.Treasury.Hex())
	fmt.Fprintf(c.out, "  Fees buy:         platform %s + lp %s\n", bpsLabel(cfg.Fees.PlatformBuyBps), bpsLabel(cfg.Fees.LPBuyBps))
	fmt.Fprintf(c.out, "  Fees sell:        platform %s + lp %s\n", bpsLabel(cfg.Fees.PlatformSellBps), bpsLabel(cfg.Fees.LPSellBps))
	fmt.Fprintf(c.out, "  Min liquidity:    %d (trading %d)\n", cfg.MinLiquidity, cfg.MinTradingLiquidity)
	fmt.Fprintf(c.out, "  Dispute window:   %s\n", cfg.DisputeWindow)
	fmt.Fprintf(c.out, "  Allow-list:       %t\n", cfg.AllowListEnabled)
	fmt.Fprintf(c.out, "  Signatures:       %t\n", cfg.RequireSignatures)
	fmt.Fprintf(c.out, "  Insurance:        enabled=%t balance=%d alloc=%s\n",
		cfg.Insurance.Enabled, cfg.Insurance.Balance, bpsLabel(cfg.Insurance.AllocationBps))
	if cfg.Paused {
		fmt.Fprintf(c.out, "  !! PAUSED: %s\n", cfg.PauseReason)
	}
	fmt.Fprintln(c.out)
}

// --- helpers ---

func statusLabel(m domain.Market) string {
	s := string(m.Status())
	if m.OpenDisputes > 0 {
		s += "*"
	}
	return s
}

func bpsLabel(bps uint64) string {
	return fmt.Sprintf("%d.%02d%%", bps/100, bps%100)
}

func formatAttrs(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, " ")
}

func shortKey(k domain.Key) string {
	if k.IsZero() {
		return "-"
	}
	return k.Hex()[:10] + "…"
}

func shortAddr(a domain.Address) string {
	h := a.Hex()
	return h[:8] + "…" + h[len(h)-4:]
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
