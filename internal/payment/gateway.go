// Package payment is the boundary to whatever settles money. The order core owns the
// Payment record; a Gateway only reports how an attempt ended.
package payment

import (
	"context"
	"errors"
	"fmt"

	"foodDelivery/models"
)

// Gateway settles a payment and reports COMPLETED or FAILED.
type Gateway interface {
	Settle(ctx context.Context, p *models.Payment) (models.PaymentStatus, error)
}

// OfflineGateway settles without talking to a processor: cash is collected by the
// rider at handoff and cards/wallets are accepted as captured.
// Declined forces FAILED for the listed methods.
type OfflineGateway struct {
	Declined map[models.PaymentMethod]bool
}

func (g OfflineGateway) Settle(ctx context.Context, p *models.Payment) (models.PaymentStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p == nil {
		return "", errors.New("payment is nil")
	}
	if p.Amount < 0 {
		return "", fmt.Errorf("payment %d has negative amount %d", p.ID, p.Amount)
	}
	if g.Declined[p.Method] {
		return models.PaymentStatusFailed, nil
	}
	return models.PaymentStatusCompleted, nil
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, p *models.Payment) (models.PaymentStatus, error)

func (f GatewayFunc) Settle(ctx context.Context, p *models.Payment) (models.PaymentStatus, error) {
	return f(ctx, p)
}
