package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nstehr/vimy/vimy-perception/ipc"
	"github.com/nstehr/vimy/vimy-perception/mapmgr"
)

// ReplayStats counts what a replay went through.
type ReplayStats struct {
	Messages int
	Ticks    int
	Cycles   int
	Skipped  int // unknown message types
	Errors   int // messages the session rejected
}

// Replay feeds a stream of JSON envelopes, usually one per line, through the
// session. Each cycle a tick starts is waited for, so a replay publishes the
// same field on every run. A final cycle covers events after the last tick.
func (a *Agent) Replay(ctx context.Context, r io.Reader) (ReplayStats, error) {
	var st ReplayStats
	dec := json.NewDecoder(r)
	for {
		var env ipc.Envelope
		if err := dec.Decode(&env); err != nil {
			if err == io.EOF {
				break
			}
			return st, fmt.Errorf("message %d: %w", st.Messages+1, err)
		}
		st.Messages++
		if err := a.replayOne(ctx, env, &st); err != nil {
			if env.Type == ipc.TypeHello || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return st, fmt.Errorf("message %d: %w", st.Messages, err)
			}
			st.Errors++
			a.log.Warn("replay message rejected", "message", st.Messages, "type", env.Type, "error", err)
		}
	}
	if a.manager == nil {
		return st, errors.New("replay has no hello")
	}
	if err := a.Flush(ctx); err != nil {
		return st, err
	}
	st.Cycles++
	return st, nil
}

func (a *Agent) replayOne(ctx context.Context, env ipc.Envelope, st *ReplayStats) error {
	switch env.Type {
	case ipc.TypeHello:
		var msg ipc.HelloMessage
		if err := env.Decode(&msg); err != nil {
			return err
		}
		return a.Init(msg)
	case ipc.TypeEvents:
		var msg ipc.EventsMessage
		if err := env.Decode(&msg); err != nil {
			return err
		}
		return a.Events(msg)
	case ipc.TypeVisibility:
		var msg ipc.VisibilityMessage
		if err := env.Decode(&msg); err != nil {
			return err
		}
		return a.Visible(msg)
	case ipc.TypeTerrain:
		var msg ipc.TerrainData
		if err := env.Decode(&msg); err != nil {
			return err
		}
		return a.Terrain(&msg)
	case ipc.TypeTick:
		var msg ipc.TickMessage
		if err := env.Decode(&msg); err != nil {
			return err
		}
		st.Ticks++
		sum, err := a.Tick(msg.Frame)
		if err != nil {
			return err
		}
		if sum.Started {
			st.Cycles++
			return a.sched.WaitGameJob(ctx)
		}
		return nil
	default:
		st.Skipped++
		return nil
	}
}

// Flush waits for any cycle in flight, then runs one more over the current
// registry and waits for it to publish.
func (a *Agent) Flush(ctx context.Context) error {
	if a.manager == nil {
		return mapmgr.ErrNotInitialized
	}
	if a.manager.Engine().IsUpdating() {
		if err := a.sched.WaitGameJob(ctx); err != nil {
			return err
		}
	}
	if !a.manager.EnqueueUpdate() {
		return errors.New("flush: cycle did not start")
	}
	return a.sched.WaitGameJob(ctx)
}
