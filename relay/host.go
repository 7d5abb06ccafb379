package relay

import (
	"context"

	tprltypes "github.com/TopiaNetwork/topia-wallet/relay/types"
)

// Host is the platform the relay runs in: it opens wallet surfaces and reaches the pages.
type Host interface {
	OpenSurface(ctx context.Context, location string) error

	// SendToSurface fails when no surface is listening at location yet.
	SendToSurface(ctx context.Context, location string, msg *tprltypes.BackgroundRequest) error

	// ActiveTab returns the foreground page of the active window; ok is false when there is none.
	ActiveTab(ctx context.Context) (tabID string, ok bool, err error)

	SendToTab(ctx context.Context, tabID string, msg *tprltypes.BackgroundRequest) error
}
