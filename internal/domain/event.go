package domain

import "time"

// EventKind nombra una transición observable del engine.
type EventKind string

const (
	EventInitialized         EventKind = "initialized"
	EventConfigUpdated       EventKind = "config_updated"
	EventMarketCreated       EventKind = "market_created"
	EventMinted              EventKind = "complete_set_minted"
	EventRedeemed            EventKind = "complete_set_redeemed"
	EventPoolSeeded          EventKind = "pool_seeded"
	EventLiquidityAdded      EventKind = "liquidity_added"
	EventLiquidityWithdrawn  EventKind = "liquidity_withdrawn"
	EventFeesCollected       EventKind = "lp_fees_collected"
	EventSwap                EventKind = "swap"
	EventResolved            EventKind = "market_resolved"
	EventResolutionFinalized EventKind = "resolution_finalized"
	EventClaimed             EventKind = "rewards_claimed"
	EventPoolSettled         EventKind = "pool_settled"
	EventDisputeSubmitted    EventKind = "dispute_submitted"
	EventDisputeAssessed     EventKind = "dispute_assessed"
	EventDisputeReviewed     EventKind = "dispute_reviewed"
	EventReconciliation      EventKind = "reconciliation_required"
	EventPaused              EventKind = "emergency_paused"
	EventUnpaused            EventKind = "emergency_unpaused"
	EventAuthorityNominated  EventKind = "authority_nominated"
	EventAuthorityAccepted   EventKind = "authority_transferred"
	EventAllowListUpdated    EventKind = "allow_list_updated"
	EventInsuranceDrawn      EventKind = "insurance_drawn"
)

// Event lo emite toda operación exitosa y se publica después del commit.
type Event struct {
	ID     string
	Kind   EventKind
	Market Key // cero en eventos globales
	Actor  Address
	Attrs  map[string]string
	At     time.Time
}
