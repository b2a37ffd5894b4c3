package storage

// events.go — log de eventos del engine, append-only.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alejandrodnm/outcomex/internal/domain"
)

func (t *txStore) AppendEvent(ctx context.Context, ev domain.Event) error {
	attrs := ev.Attrs
	if attrs == nil {
		attrs = map[string]string{}
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("storage.AppendEvent: marshal attrs: %w", err)
	}
	var market string
	if !ev.Market.IsZero() {
		market = ev.Market.Hex()
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO events (id, kind, market, actor, attrs, at) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, string(ev.Kind), market, addrHex(ev.Actor), string(raw), ts(ev.At),
	)
	if err != nil {
		return fmt.Errorf("storage.AppendEvent %s: %w", ev.Kind, err)
	}
	return nil
}

// ListEvents devuelve los eventos en orden de inserción. Con market en cero
// devuelve el log completo; limit <= 0 significa sin límite.
func (s *SQLiteStorage) ListEvents(ctx context.Context, market domain.Key, limit int) ([]domain.Event, error) {
	q := `SELECT id, kind, market, actor, attrs, at FROM events`
	var args []any
	if !market.IsZero() {
		q += ` WHERE market = ?`
		args = append(args, market.Hex())
	}
	q += ` ORDER BY seq`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.ListEvents: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var (
			ev                         domain.Event
			kind, mkt, actor, rawAttrs string
			at                         int64
		)
		if err := rows.Scan(&ev.ID, &kind, &mkt, &actor, &rawAttrs, &at); err != nil {
			return nil, fmt.Errorf("storage.ListEvents: scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(rawAttrs), &ev.Attrs); err != nil {
			return nil, fmt.Errorf("storage.ListEvents: attrs: %w", err)
		}
		ev.Kind = domain.EventKind(kind)
		if mkt != "" {
			ev.Market = keyOf(mkt)
		}
		ev.Actor = addr(actor)
		ev.At = fromTS(at)
		out = append(out, ev)
	}
	return out, rows.Err()
}
