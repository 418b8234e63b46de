package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/gridsnake/game/engine"
	"github.com/wricardo/gridsnake/game/service"
)

type quietRand struct{}

func (quietRand) Float64() float64 { return 0.99 }
func (quietRand) Intn(n int) int   { return 0 }

// fakeSink records frames and summaries without ever blocking the loop
type fakeSink struct {
	frames    chan *service.Frame
	summaries chan *service.Summary
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		frames:    make(chan *service.Frame, 1024),
		summaries: make(chan *service.Summary, 16),
	}
}

func (f *fakeSink) Publish(frame *service.Frame) {
	select {
	case f.frames <- frame:
	default:
	}
}

func (f *fakeSink) Conclude(summary *service.Summary) {
	f.summaries <- summary
}

func (f *fakeSink) waitSummary(t *testing.T) *service.Summary {
	t.Helper()
	select {
	case s := <-f.summaries:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the round to end")
		return nil
	}
}

type names map[uint64]string

func (n names) DisplayName(id uint64) string {
	if name, ok := n[id]; ok {
		return name
	}
	return fmt.Sprint(id)
}

// memArchive is an in-memory service.ResultArchive
type memArchive struct {
	mu      sync.Mutex
	results map[string]*service.Summary
}

func newMemArchive() *memArchive {
	return &memArchive{results: make(map[string]*service.Summary)}
}

func (a *memArchive) Save(s *service.Summary) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results[s.ID] = s
	return nil
}

func (a *memArchive) Load(id string) (*service.Summary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.results[id]
	if !ok {
		return nil, service.ErrResultNotFound
	}
	return s, nil
}

func (a *memArchive) Delete(id string) error {
	return nil
}

func (a *memArchive) ListAll() ([]string, error) {
	return nil, nil
}

func (a *memArchive) Exists(id string) bool {
	_, err := a.Load(id)
	return err == nil
}

func (a *memArchive) Prune(time.Duration) (int, error) {
	return 0, nil
}

func newTestManager(t *testing.T, interval time.Duration, opts ...Option) (*Manager, *fakeSink, *memArchive) {
	t.Helper()
	sink := newFakeSink()
	archive := newMemArchive()
	opts = append([]Option{
		WithTickInterval(interval),
		WithSink(sink),
		WithGameOptions(engine.WithRand(quietRand{})),
	}, opts...)
	m := NewManager(archive, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		m.Shutdown(ctx)
	})
	return m, sink, archive
}

func mentions(ids ...uint64) []service.Mention {
	out := make([]service.Mention, len(ids))
	for i, id := range ids {
		out[i] = service.Mention{ID: id}
	}
	return out
}

func TestManager_StartValidation(t *testing.T) {
	m, _, _ := newTestManager(t, time.Hour)
	ctx := context.Background()

	if _, err := m.Start(ctx, service.StartRequest{Location: "busy", Mode: engine.ModeSolo, Requester: 1}); err != nil {
		t.Fatalf("Failed to start round: %v", err)
	}

	tests := []struct {
		name     string
		req      service.StartRequest
		expected error
	}{
		{
			name:     "round in progress beats everything",
			req:      service.StartRequest{Location: "busy", Mode: "tetris", Mentions: []service.Mention{{ID: 1, IsRole: true}}},
			expected: ErrRoundInProgress,
		},
		{
			name:     "role before repeat",
			req:      service.StartRequest{Location: "a", Mode: engine.ModeSnake, Mentions: []service.Mention{{ID: 1}, {ID: 1}, {ID: 2, IsRole: true}}},
			expected: ErrRoleNotAllowed,
		},
		{
			name:     "role in solo",
			req:      service.StartRequest{Location: "a", Mode: engine.ModeSolo, Requester: 1, Mentions: []service.Mention{{ID: 2, IsRole: true}}},
			expected: ErrRoleNotAllowed,
		},
		{
			name:     "repeat before mode",
			req:      service.StartRequest{Location: "a", Mode: "tetris", Mentions: mentions(1, 2, 1)},
			expected: ErrRepeatedPlayers,
		},
		{
			name:     "unknown mode",
			req:      service.StartRequest{Location: "a", Mode: "tetris", Mentions: mentions(1)},
			expected: ErrUnknownMode,
		},
		{
			name:     "too few",
			req:      service.StartRequest{Location: "a", Mode: engine.ModeSnake, Mentions: mentions(1)},
			expected: ErrTooFewPlayers,
		},
		{
			name:     "none",
			req:      service.StartRequest{Location: "a", Mode: engine.ModeSnake},
			expected: ErrTooFewPlayers,
		},
		{
			name:     "too many",
			req:      service.StartRequest{Location: "a", Mode: engine.ModeSnake, Mentions: mentions(1, 2, 3, 4, 5, 6)},
			expected: ErrTooManyPlayers,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := m.Start(ctx, test.req)
			if !errors.Is(err, test.expected) {
				t.Errorf("Expected %v, got %v", test.expected, err)
			}
		})
	}

	if m.Count() != 1 {
		t.Errorf("Rejected starts must not register rounds, got %d", m.Count())
	}
}

func TestManager_StartInfo(t *testing.T) {
	m, _, _ := newTestManager(t, time.Hour)

	info, err := m.Start(context.Background(), service.StartRequest{
		Location:  "general",
		Mode:      engine.ModeSnake,
		Requester: 9,
		Mentions:  mentions(30, 10, 20),
		Stage:     777,
	})
	if err != nil {
		t.Fatalf("Failed to start round: %v", err)
	}

	if info.Round == "" || info.Location != "general" || info.Mode != engine.ModeSnake {
		t.Errorf("Unexpected info %+v", info)
	}
	expected := []uint64{30, 10, 20}
	for i, id := range expected {
		if info.Players[i] != id {
			t.Errorf("Expected mention order %v, got %v", expected, info.Players)
			break
		}
	}
	if info.State.Stage != 777 || info.State.Tick != 0 {
		t.Errorf("Expected stage 777 at tick 0, got %d at %d", info.State.Stage, info.State.Tick)
	}
	if len(info.Rankings) != 3 || info.Rankings[0].Place != 1 {
		t.Errorf("Unexpected initial rankings %+v", info.Rankings)
	}

	got, err := m.Get("general")
	if err != nil || got.Round != info.Round {
		t.Errorf("Expected Get to find the round, got %v", err)
	}
	if _, err := m.Get("elsewhere"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_SoloRoundLifecycle(t *testing.T) {
	m, sink, archive := newTestManager(t, 5*time.Millisecond, WithResolver(names{42: "alice"}))
	ctx := context.Background()

	info, err := m.Start(ctx, service.StartRequest{Location: "general", Mode: engine.ModeSolo, Requester: 42})
	if err != nil {
		t.Fatalf("Failed to start round: %v", err)
	}
	s, _ := m.Session("general")

	select {
	case frame := <-sink.frames:
		if frame.Round != info.Round || frame.Tick != 1 || frame.Board == "" {
			t.Errorf("Unexpected first frame %+v", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for a frame")
	}

	if !m.Send("general", service.Input{PlayerID: 42, Action: engine.ActionCancel}) {
		t.Fatal("Expected input to be queued")
	}

	summary := sink.waitSummary(t)
	if len(summary.Outcome) != 1 || summary.Outcome[0] != 42 {
		t.Errorf("Expected outcome [42], got %v", summary.Outcome)
	}
	if len(summary.OutcomeNames) != 1 || summary.OutcomeNames[0] != "alice" {
		t.Errorf("Expected resolved names, got %v", summary.OutcomeNames)
	}
	if summary.Rankings[0].Name != "alice" || summary.Rankings[0].Alive {
		t.Errorf("Unexpected final ranking %+v", summary.Rankings[0])
	}

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Session goroutine did not exit")
	}

	if !archive.Exists(summary.ID) {
		t.Error("Expected summary to be archived")
	}
	if _, err := m.Get("general"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected location to be released, got %v", err)
	}
	if m.Send("general", service.Input{PlayerID: 42, Action: engine.ActionUp}) {
		t.Error("Expected input for an ended round to be dropped")
	}
	if _, err := m.Start(ctx, service.StartRequest{Location: "general", Mode: engine.ModeSolo, Requester: 42}); err != nil {
		t.Errorf("Expected a new round to start after release, got %v", err)
	}
}

func TestManager_MultiplayerSurvivor(t *testing.T) {
	m, sink, _ := newTestManager(t, 5*time.Millisecond)

	_, err := m.Start(context.Background(), service.StartRequest{
		Location: "general",
		Mode:     engine.ModeSnake,
		Mentions: mentions(1, 2, 3),
	})
	if err != nil {
		t.Fatalf("Failed to start round: %v", err)
	}

	m.Send("general", service.Input{PlayerID: 1, Action: engine.ActionCancel})
	m.Send("general", service.Input{PlayerID: 3, Action: engine.ActionCancel})
	m.Send("general", service.Input{PlayerID: 99, Action: engine.ActionCancel})

	summary := sink.waitSummary(t)
	if len(summary.Outcome) != 1 || summary.Outcome[0] != 2 {
		t.Errorf("Expected player 2 to win, got %v", summary.Outcome)
	}
	if summary.OutcomeNames[0] != "2" {
		t.Errorf("Expected decimal id as default name, got %q", summary.OutcomeNames[0])
	}
	if !summary.Rankings[0].Alive || summary.Rankings[0].ID != 2 {
		t.Errorf("Expected survivor ranked first, got %+v", summary.Rankings[0])
	}
}

func TestManager_SendDropped(t *testing.T) {
	m, _, _ := newTestManager(t, time.Hour, WithInboxSize(1))

	if m.Send("nowhere", service.Input{PlayerID: 1}) {
		t.Error("Expected input for an unknown location to be dropped")
	}

	m.Start(context.Background(), service.StartRequest{Location: "general", Mode: engine.ModeSolo, Requester: 1})

	if !m.Send("general", service.Input{PlayerID: 1, Action: engine.ActionUp}) {
		t.Fatal("Expected first input to be queued")
	}
	if m.Send("general", service.Input{PlayerID: 1, Action: engine.ActionDown}) {
		t.Error("Expected input to a full inbox to be dropped")
	}
}

func TestSession_DrainLastWriteWins(t *testing.T) {
	game, _ := engine.NewGame(engine.ModeSnake, 1, []uint64{1, 2}, engine.WithRand(quietRand{}))
	s := &Session{
		game:  game,
		inbox: make(chan service.Input, 8),
		done:  make(chan struct{}),
	}

	s.send(service.Input{PlayerID: 1, Action: engine.ActionUp})
	s.send(service.Input{PlayerID: 2, Action: engine.ActionCancel})
	s.send(service.Input{PlayerID: 1, Action: engine.ActionDown})
	s.send(service.Input{PlayerID: 2, Action: engine.ActionLeft})
	s.drain()

	if p, _ := game.PlayerByID(1); p.Heading != engine.ActionDown {
		t.Errorf("Expected last heading down, got %s", p.Heading)
	}
	if p, _ := game.PlayerByID(2); !p.IsDead() || p.Heading != engine.ActionRight {
		t.Errorf("Expected cancelled player to stay dead facing right, got %s", p.Heading)
	}
	if len(s.inbox) != 0 {
		t.Errorf("Expected empty inbox, got %d", len(s.inbox))
	}

	close(s.done)
	if s.send(service.Input{PlayerID: 1}) {
		t.Error("Expected send after done to be dropped")
	}
}

func TestManager_ConcurrentStart(t *testing.T) {
	m, _, _ := newTestManager(t, time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	started, rejected := 0, 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Start(context.Background(), service.StartRequest{
				Location:  "general",
				Mode:      engine.ModeSolo,
				Requester: uint64(i + 1),
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				started++
			} else if errors.Is(err, ErrRoundInProgress) {
				rejected++
			}
		}(i)
	}
	wg.Wait()

	if started != 1 || rejected != 19 {
		t.Errorf("Expected 1 start and 19 rejections, got %d and %d", started, rejected)
	}
}

func TestManager_ConcurrentSendAndRead(t *testing.T) {
	m, _, _ := newTestManager(t, time.Millisecond)
	m.Start(context.Background(), service.StartRequest{Location: "general", Mode: engine.ModeSnake, Mentions: mentions(1, 2)})

	actions := []engine.Action{engine.ActionUp, engine.ActionLeft, engine.ActionDown, engine.ActionRight}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Send("general", service.Input{PlayerID: uint64(i%2 + 1), Action: actions[j%4]})
				m.List()
				m.Get("general")
			}
		}(i)
	}
	wg.Wait()
}

func TestManager_Shutdown(t *testing.T) {
	m, sink, _ := newTestManager(t, time.Hour)
	ctx := context.Background()

	for _, loc := range []string{"a", "b"} {
		if _, err := m.Start(ctx, service.StartRequest{Location: loc, Mode: engine.ModeSolo, Requester: 1}); err != nil {
			t.Fatalf("Failed to start %s: %v", loc, err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := m.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if m.Count() != 0 {
		t.Errorf("Expected every location released, got %d", m.Count())
	}
	select {
	case s := <-sink.summaries:
		t.Errorf("Aborted rounds must not conclude, got %+v", s)
	default:
	}
	if _, err := m.Start(ctx, service.StartRequest{Location: "a", Mode: engine.ModeSolo, Requester: 1}); !errors.Is(err, ErrManagerClosed) {
		t.Errorf("Expected ErrManagerClosed, got %v", err)
	}
}
