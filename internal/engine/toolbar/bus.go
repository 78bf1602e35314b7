package toolbar

import "context"

// Envelope addresses an event to a project.
type Envelope struct {
	Project string
	Event   Event
}

// Bus feeds events from a channel into a Manager.
type Bus struct {
	manager *Manager
}

func NewBus(manager *Manager) *Bus {
	return &Bus{manager: manager}
}

// Run dispatches envelopes until ctx is done or in is closed. It returns
// ctx.Err() on cancellation and nil when the channel closes.
func (b *Bus) Run(ctx context.Context, in <-chan Envelope) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-in:
			if !ok {
				return nil
			}
			if env.Event == nil {
				continue
			}
			b.manager.Dispatch(env.Project, env.Event)
		}
	}
}
