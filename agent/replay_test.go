package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nstehr/vimy/vimy-perception/config"
	"github.com/nstehr/vimy/vimy-perception/ipc"
	"github.com/nstehr/vimy/vimy-perception/model"
	"github.com/nstehr/vimy/vimy-perception/threat"
)

func replayLog(t *testing.T, msgs ...any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for i := 0; i < len(msgs); i += 2 {
		env, err := ipc.NewEnvelope(msgs[i].(string), msgs[i+1])
		if err != nil {
			t.Fatal(err)
		}
		line, err := json.Marshal(env)
		if err != nil {
			t.Fatal(err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return &buf
}

func runReplay(t *testing.T, log *bytes.Buffer) (*Agent, ReplayStats) {
	t.Helper()
	a := New(context.Background(), nil, config.Default(), nil)
	t.Cleanup(a.Close)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	st, err := a.Replay(ctx, log)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	return a, st
}

func TestReplayPublishesFinalState(t *testing.T) {
	log := replayLog(t,
		ipc.TypeHello, testHello(),
		ipc.TypeEvents, ipc.EventsMessage{Frame: 1, Items: []ipc.EventItem{
			{Kind: ipc.EventEnterLOS, ID: 100, Def: intp(2), Pos: cellPos(20, 20), Health: 300},
		}},
		ipc.TypeTick, ipc.TickMessage{Frame: 10},
		"chatter", map[string]string{"hello": "there"},
		ipc.TypeEvents, ipc.EventsMessage{Frame: 11, Items: []ipc.EventItem{
			{Kind: ipc.EventEnterLOS, ID: 101, Def: intp(1), Pos: cellPos(40, 40), Health: 100},
		}},
		ipc.TypeTick, ipc.TickMessage{Frame: 12}, // inside the update period
	)
	a, st := runReplay(t, log)

	if st.Messages != 6 || st.Ticks != 2 || st.Skipped != 1 || st.Errors != 0 {
		t.Errorf("stats: %+v", st)
	}
	// one cycle from tick 10, one from the final flush
	if st.Cycles != 2 {
		t.Errorf("cycles: got %d, want 2", st.Cycles)
	}
	eng := a.Manager().Engine()
	if eng.LayerAt(threat.LayerSurface, cellPos(20, 20)) <= 0 {
		t.Error("tank missing from surface layer")
	}
	if eng.LayerAt(threat.LayerAir, cellPos(40, 40)) <= 0 {
		t.Error("flush did not pick up events after the last tick")
	}
}

func TestReplayIsDeterministic(t *testing.T) {
	build := func() *bytes.Buffer {
		items := make([]ipc.EventItem, 0, 20)
		for i := 0; i < 20; i++ {
			def := 1 + i%3
			items = append(items, ipc.EventItem{Kind: ipc.EventEnterLOS, ID: 200 + i, Def: intp(def),
				Pos: cellPos(3*i%64, 7*i%64), Vel: model.Pos{X: float32(i % 4)}, Health: 50})
		}
		return replayLog(t,
			ipc.TypeHello, testHello(),
			ipc.TypeEvents, ipc.EventsMessage{Frame: 1, Items: items},
			ipc.TypeTick, ipc.TickMessage{Frame: 10},
		)
	}
	a1, _ := runReplay(t, build())
	a2, _ := runReplay(t, build())
	for k := threat.LayerAir; k < threat.LayerCount; k++ {
		l1 := a1.Manager().Engine().Layer(k)
		l2 := a2.Manager().Engine().Layer(k)
		for i := range l1 {
			if l1[i] != l2[i] {
				t.Fatalf("%v layer differs at %d: %v vs %v", k, i, l1[i], l2[i])
			}
		}
	}
}

func TestReplayRejectedMessagesCounted(t *testing.T) {
	log := replayLog(t,
		ipc.TypeHello, testHello(),
		ipc.TypeEvents, ipc.EventsMessage{Items: []ipc.EventItem{{Kind: "warp", ID: 1}}},
	)
	_, st := runReplay(t, log)
	if st.Errors != 1 {
		t.Errorf("errors: got %d, want 1", st.Errors)
	}
}

func TestReplayFailures(t *testing.T) {
	tests := []struct {
		name string
		log  string
	}{
		{"no hello", `{"type":"tick","data":{"frame":1}}` + "\n"},
		{"bad json", "{not json\n"},
		{"bad hello", `{"type":"hello","data":{"player":"x"}}` + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(context.Background(), nil, config.Default(), nil)
			defer a.Close()
			if _, err := a.Replay(context.Background(), strings.NewReader(tt.log)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestReplayAppliesTerrain(t *testing.T) {
	types := make([]int, 64*64)
	types[64*5+5] = int(model.Water)
	log := replayLog(t,
		ipc.TypeHello, testHello(),
		ipc.TypeTerrain, ipc.TerrainData{SquareSize: model.SquareSize, Width: 64, Height: 64, Types: types},
		ipc.TypeTick, ipc.TickMessage{Frame: 10},
	)
	a, st := runReplay(t, log)
	if st.Skipped != 0 || st.Errors != 0 {
		t.Errorf("stats: %+v", st)
	}
	if !a.Manager().Grid().At(5, 5).IsWater() {
		t.Error("terrain message not replayed")
	}
}
