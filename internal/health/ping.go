package health

import "context"

// HealthPinger is implemented by every store adapter and the embedder.
// HealthPing must return nil when the component is reachable.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
