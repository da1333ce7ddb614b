package stats

import "context"

// Recorder is the common surface of the stats backends in this
// package; it mirrors the recorder interface the limiter accepts.
type Recorder interface {
	Record(ctx context.Context, client string, allowed bool) error
}

// multi fans one event out to several recorders.
type multi struct {
	recorders []Recorder
}

// Multi combines recorders into one. Every recorder sees every event;
// the first error is returned after all recorders have run.
func Multi(recorders ...Recorder) Recorder {
	return &multi{recorders: recorders}
}

func (m *multi) Record(ctx context.Context, client string, allowed bool) error {
	var firstErr error
	for _, r := range m.recorders {
		if err := r.Record(ctx, client, allowed); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
