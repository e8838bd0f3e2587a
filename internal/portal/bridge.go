package portal

import (
	"context"

	"github.com/janessatran/portal/internal/debug"
	"github.com/janessatran/portal/internal/remote"
)

// Bridge serves the control channel by running every request on the
// render thread through q.
type Bridge struct {
	q   *Queue
	exp *Experience
}

func NewBridge(q *Queue, exp *Experience) *Bridge {
	return &Bridge{q: q, exp: exp}
}

var _ remote.Handler = (*Bridge)(nil)

func (b *Bridge) Apply(ctx context.Context, c debug.Change) error {
	return b.q.Do(ctx, func() error { return b.exp.Apply(c) })
}

func (b *Bridge) Snapshot(ctx context.Context) ([]remote.ControlState, error) {
	var out []remote.ControlState
	err := b.q.Do(ctx, func() error {
		params := b.exp.Params()
		out = make([]remote.ControlState, 0, len(b.exp.Controls()))
		for _, c := range b.exp.Controls() {
			v, err := params.Value(c.Name)
			if err != nil {
				return err
			}
			out = append(out, remote.ControlState{Control: c, Value: v})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
