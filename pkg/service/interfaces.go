package service

import (
	"context"
	"time"

	"github.com/sccp-protocol/sccp-go/pkg/hint"
)

// HintTracker defines the busy lamp subscription operations used by the
// gateway. It is satisfied by *hint.Manager.
type HintTracker interface {
	Subscribe(device string, instance uint8, line string) (uint32, error)
	UnsubscribeDevice(device string) int
	Prime(subscriptionID uint32, ev hint.Event) bool
	Notify(ev hint.Event) bool
	NotifyStatus(st hint.LineStatus) bool
	OnNotification(fn func(hint.Notification))
	ClearAll()
	Count() int
}

// Compile-time check: *hint.Manager implements HintTracker.
var _ HintTracker = (*hint.Manager)(nil)

// Management is the operator surface of a running gateway. The console of
// the gateway binary drives it.
type Management interface {
	Snapshot() Snapshot
	RestartDevice(ctx context.Context, deviceID string, reset bool) error
	DisplayMessage(ctx context.Context, deviceID, text string, timeout time.Duration) error
}

var _ Management = (*Gateway)(nil)
