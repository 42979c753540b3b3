package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/okian/autorole/internal/domain/gate"
	"github.com/okian/autorole/internal/domain/model"
	"github.com/okian/autorole/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	goleak.VerifyTestMain(m)
}

func req(id string) model.Request {
	return model.Request{ID: id, GuildID: "g1", Requester: model.Requester{MemberID: "m-" + id}}
}

// recorder records start/finish events of handled requests.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func closeQueue(t *testing.T, q *RequestQueue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRequestQueue_SerializesBackToBackRequests(t *testing.T) {
	rec := &recorder{}
	release := make(chan struct{})
	firstStarted := make(chan struct{})

	q := NewRequestQueue("g1", HandlerFunc(func(ctx context.Context, r model.Request) error {
		rec.add("start " + r.ID)
		if r.ID == "first" {
			close(firstStarted)
			<-release
		}
		rec.add("done " + r.ID)
		return nil
	}))
	ctx := context.Background()

	pos, err := q.Enqueue(ctx, req("first"))
	if err != nil || pos != 0 {
		t.Fatalf("first enqueue: pos=%d err=%v", pos, err)
	}
	<-firstStarted

	pos, err = q.Enqueue(ctx, req("second"))
	if err != nil || pos != 1 {
		t.Fatalf("second enqueue: pos=%d err=%v", pos, err)
	}
	if !q.Processing() || q.Len() != 1 {
		t.Fatalf("expected processing with one pending, got processing=%v len=%d", q.Processing(), q.Len())
	}

	time.Sleep(20 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 1 {
		t.Fatalf("second request started before the first finished: %v", got)
	}

	close(release)
	closeQueue(t, q)

	want := []string{"start first", "done first", "start second", "done second"}
	got := rec.snapshot()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if q.Processing() {
		t.Error("expected queue to be idle after draining")
	}
}

func TestRequestQueue_FIFO(t *testing.T) {
	rec := &recorder{}
	release := make(chan struct{})
	q := NewRequestQueue("g1", HandlerFunc(func(ctx context.Context, r model.Request) error {
		if r.ID == "r0" {
			<-release
		}
		rec.add(r.ID)
		return nil
	}))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		pos, err := q.Enqueue(ctx, req(fmt.Sprintf("r%d", i)))
		if err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
		if pos != i {
			t.Errorf("request %d: expected position %d, got %d", i, i, pos)
		}
	}
	close(release)
	closeQueue(t, q)

	got := rec.snapshot()
	for i, id := range got {
		if id != fmt.Sprintf("r%d", i) {
			t.Fatalf("out of order: %v", got)
		}
	}
	if st := q.Stats(); st.Handled != 10 || st.Failed != 0 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestRequestQueue_FailureIsolation(t *testing.T) {
	rec := &recorder{}
	release := make(chan struct{})
	q := NewRequestQueue("g1", HandlerFunc(func(ctx context.Context, r model.Request) error {
		switch r.ID {
		case "blocker":
			<-release
		case "fails":
			return errors.New("acquisition failed")
		case "panics":
			panic("boom")
		}
		rec.add(r.ID)
		return nil
	}))
	ctx := context.Background()

	for _, id := range []string{"blocker", "fails", "panics", "after"} {
		if _, err := q.Enqueue(ctx, req(id)); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	close(release)
	closeQueue(t, q)

	got := rec.snapshot()
	if fmt.Sprint(got) != "[blocker after]" {
		t.Fatalf("expected the queue to resume after failures, got %v", got)
	}
	if st := q.Stats(); st.Handled != 4 || st.Failed != 2 {
		t.Errorf("unexpected stats %+v", st)
	}

	// An idle queue restarts on the next enqueue after a failure.
	q2 := NewRequestQueue("g2", HandlerFunc(func(ctx context.Context, r model.Request) error {
		return errors.New("always")
	}))
	for i := 0; i < 3; i++ {
		if _, err := q2.Enqueue(ctx, req("x")); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		waitIdle(t, q2)
	}
	closeQueue(t, q2)
	if st := q2.Stats(); st.Handled != 3 || st.Failed != 3 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func waitIdle(t *testing.T, q *RequestQueue) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for q.Processing() {
		if time.Now().After(deadline) {
			t.Fatal("queue did not become idle")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRequestQueue_Admission(t *testing.T) {
	g := gate.New()
	q := NewRequestQueue("g1", HandlerFunc(func(ctx context.Context, r model.Request) error { return nil }), WithAdmitter(g))
	ctx := context.Background()

	g.Disable()
	if _, err := q.Enqueue(ctx, req("a")); !errors.Is(err, gate.ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}

	g.Enable()
	g.Mute("m-a")
	if _, err := q.Enqueue(ctx, req("a")); !errors.Is(err, gate.ErrMuted) {
		t.Errorf("expected ErrMuted, got %v", err)
	}
	if _, err := q.Enqueue(ctx, req("b")); err != nil {
		t.Errorf("expected unmuted member to be admitted, got %v", err)
	}
	closeQueue(t, q)

	if _, err := q.Enqueue(ctx, req("b")); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped after close, got %v", err)
	}
}

func TestRequestQueue_StartHookPrecedesHandler(t *testing.T) {
	rec := &recorder{}
	release := make(chan struct{})
	q := NewRequestQueue("g1", HandlerFunc(func(ctx context.Context, r model.Request) error {
		if r.ID == "first" {
			<-release
		}
		rec.add("handle " + r.ID)
		return nil
	}), WithStartHook(func(ctx context.Context, r model.Request) {
		rec.add("start " + r.ID)
	}))
	ctx := context.Background()

	if pos, err := q.Enqueue(ctx, req("first")); err != nil || pos != 0 {
		t.Fatalf("first enqueue: pos=%d err=%v", pos, err)
	}
	if pos, err := q.Enqueue(ctx, req("second")); err != nil || pos != 1 {
		t.Fatalf("second enqueue: pos=%d err=%v", pos, err)
	}
	close(release)
	closeQueue(t, q)

	want := []string{"start first", "handle first", "handle second"}
	if got := rec.snapshot(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRequestQueue_Capacity(t *testing.T) {
	release := make(chan struct{})
	q := NewRequestQueue("g1", HandlerFunc(func(ctx context.Context, r model.Request) error {
		<-release
		return nil
	}), WithCapacity(2))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := q.Enqueue(ctx, req(fmt.Sprint(i))); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if _, err := q.Enqueue(ctx, req("overflow")); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	close(release)
	closeQueue(t, q)
}

func TestRequestQueue_CloseTimeout(t *testing.T) {
	release := make(chan struct{})
	q := NewRequestQueue("g1", HandlerFunc(func(ctx context.Context, r model.Request) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return ctx.Err()
	}))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := q.Enqueue(ctx, req(fmt.Sprint(i))); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := q.Close(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if q.Len() != 0 {
		t.Errorf("expected pending requests to be dropped, got %d", q.Len())
	}
	waitIdle(t, q)
	close(release)
}

func TestRegistry_PerGuildQueues(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	started := map[string]int{}
	r := NewRegistry(HandlerFunc(func(ctx context.Context, rq model.Request) error {
		mu.Lock()
		started[rq.GuildID]++
		mu.Unlock()
		if rq.GuildID == "g1" {
			<-release
		}
		return nil
	}))
	ctx := context.Background()

	a := req("a")
	b := req("b")
	c := req("c")
	c.GuildID = "g2"

	if pos, _ := r.Enqueue(ctx, a); pos != 0 {
		t.Errorf("expected g1 to start immediately, got %d", pos)
	}
	if pos, _ := r.Enqueue(ctx, b); pos != 1 {
		t.Errorf("expected g1 position 1, got %d", pos)
	}
	if pos, _ := r.Enqueue(ctx, c); pos != 0 {
		t.Errorf("expected g2 to start independently, got %d", pos)
	}

	q2, err := r.Queue("g2")
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	waitIdle(t, q2)

	stats := r.Stats()
	if len(stats) != 2 || stats[0].GuildID != "g1" || stats[1].Handled != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	close(release)
	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Close(closeCtx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := r.Enqueue(ctx, model.Request{GuildID: "g3"}); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped for a new guild after close, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if started["g1"] != 2 || started["g2"] != 1 {
		t.Errorf("unexpected handled counts %v", started)
	}
}
