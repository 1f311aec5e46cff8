package engine

import (
	"context"

	"levelranks/core"
)

// BusNotifier publishes notifications as engine events so realtime clients,
// webhooks and analytics can consume them.
type BusNotifier struct {
	bus *EventBus
}

func NewBusNotifier(bus *EventBus) *BusNotifier {
	if bus == nil {
		panic("NewBusNotifier requires a non-nil bus")
	}
	return &BusNotifier{bus: bus}
}

func (n *BusNotifier) Notify(ctx context.Context, p PointNotice) {
	n.bus.Publish(ctx, core.NewPointsChanged(p.Player, p.Reason, p.Amount, p.Total, p.Context))
}

func (n *BusNotifier) NotifyRankChange(ctx context.Context, c RankChange) {
	n.bus.Publish(ctx, core.NewRankChanged(c.Player, c.Old, c.New, c.Promoted, c.Total))
}

func (n *BusNotifier) NotifySummary(ctx context.Context, s RoundSummary) {
	n.bus.Publish(ctx, core.NewRoundSummary(s.Player, s.RoundPoints, s.Total))
}

var _ Notifier = (*BusNotifier)(nil)
