// internal/domain/trend/detector.go

package trend

import (
	"context"
)

// Detector produces the global trend snapshot
type Detector interface {
	// GetTrends never fails; upstream problems degrade to cached or synthetic data
	GetTrends(ctx context.Context) Response
}

// SnapshotStore keeps the last trends response obtained from a real upstream
type SnapshotStore interface {
	Save(ctx context.Context, resp Response) error
	Latest(ctx context.Context) (*Response, error)
}

// Publisher announces trend and analysis events to interested consumers
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) error
}
