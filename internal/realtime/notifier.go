// Package realtime pushes order status changes to restaurants and customers
// over whichever transport the deployment uses.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hoangvu1420/YummyZoom-sub001/pkg/contracts"
)

// Target selects who hears about a status change.
type Target int

const (
	TargetCustomer Target = iota + 1
	TargetRestaurant
	TargetBoth
)

func (t Target) audiences() []string {
	switch t {
	case TargetCustomer:
		return []string{contracts.AudienceCustomer}
	case TargetRestaurant:
		return []string{contracts.AudienceRestaurant}
	default:
		return []string{contracts.AudienceRestaurant, contracts.AudienceCustomer}
	}
}

type Notifier interface {
	NotifyOrderPlaced(ctx context.Context, b contracts.OrderStatusBroadcast) error
	NotifyOrderAccepted(ctx context.Context, b contracts.OrderStatusBroadcast) error
	NotifyOrderStatusChanged(ctx context.Context, b contracts.OrderStatusBroadcast, target Target) error
}

// Publisher delivers a single addressed notification.
type Publisher interface {
	Publish(ctx context.Context, n contracts.StatusNotification) error
}

// BroadcastNotifier fans each call out to one notification per audience.
type BroadcastNotifier struct {
	pub Publisher
}

var _ Notifier = (*BroadcastNotifier)(nil)

func NewNotifier(pub Publisher) *BroadcastNotifier {
	return &BroadcastNotifier{pub: pub}
}

// NotifyOrderPlaced alerts the restaurant to a new order and confirms it to
// the customer.
func (n *BroadcastNotifier) NotifyOrderPlaced(ctx context.Context, b contracts.OrderStatusBroadcast) error {
	return n.send(ctx, b, TargetBoth)
}

func (n *BroadcastNotifier) NotifyOrderAccepted(ctx context.Context, b contracts.OrderStatusBroadcast) error {
	return n.send(ctx, b, TargetBoth)
}

func (n *BroadcastNotifier) NotifyOrderStatusChanged(ctx context.Context, b contracts.OrderStatusBroadcast, target Target) error {
	return n.send(ctx, b, target)
}

func (n *BroadcastNotifier) send(ctx context.Context, b contracts.OrderStatusBroadcast, target Target) error {
	var errs []error
	for _, audience := range target.audiences() {
		msg := contracts.StatusNotification{Audience: audience, RecipientID: recipient(b, audience), Broadcast: b}
		if err := n.pub.Publish(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", audience, err))
		}
	}
	return errors.Join(errs...)
}

func recipient(b contracts.OrderStatusBroadcast, audience string) string {
	if audience == contracts.AudienceRestaurant {
		return b.RestaurantID
	}
	return b.CustomerID
}

// RoutingKey addresses n as "<audience>.<recipient>.<status>", e.g.
// "restaurant.r-42.placed". Topic exchanges and Redis channels both use it.
func RoutingKey(n contracts.StatusNotification) string {
	return n.Audience + "." + n.RecipientID + "." + strings.ToLower(n.Broadcast.Status)
}
