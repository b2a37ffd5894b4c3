package ports

import (
	"context"

	"github.com/alejandrodnm/outcomex/internal/domain"
)

// EventSink recibe los eventos del engine después del commit de la operación
// que los produjo. No debe bloquear al engine por mucho tiempo.
type EventSink interface {
	Publish(ctx context.Context, events []domain.Event) error
}
