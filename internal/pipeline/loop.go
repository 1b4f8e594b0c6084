package pipeline

import "context"

// Run starts m and dispatches events from t until a fatal error, a clean
// terminal state, the transport closing its event channel, or ctx being
// cancelled. Only the fatal case returns an error.
func Run(ctx context.Context, t Transport, m *Machine) error {
	if err := m.Start(); err != nil {
		return err
	}

	events := t.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := m.Handle(ev); err != nil {
				return err
			}
			if m.Done() {
				return nil
			}
		}
	}
}
