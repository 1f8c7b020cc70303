package resource

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/baymaxhuang/atomix/internal/cluster"
	"github.com/baymaxhuang/atomix/internal/engine"
	"github.com/baymaxhuang/atomix/internal/protocol"
	"github.com/baymaxhuang/atomix/pkg/future"
)

// fakeEngine counts lifecycle calls and lets tests control their outcome.
type fakeEngine struct {
	mu         sync.Mutex
	opens      int
	closes     int
	openGate   chan struct{}
	failOpen   error
	failClose  error
	recovering bool

	writes  []protocol.WriteRequest
	reads   []protocol.ReadRequest
	deletes []protocol.DeleteRequest

	respond func() *future.Future[protocol.Response]
}

func (e *fakeEngine) Open() *future.Future[struct{}] {
	f := future.New[struct{}]()
	gate := e.openGate
	go func() {
		if gate != nil {
			<-gate
		}
		e.mu.Lock()
		e.opens++
		fail := e.failOpen
		e.mu.Unlock()
		if fail != nil {
			f.Fail(fail)
			return
		}
		f.Complete(struct{}{})
	}()
	return f
}

func (e *fakeEngine) Close() *future.Future[struct{}] {
	e.mu.Lock()
	e.closes++
	fail := e.failClose
	e.mu.Unlock()
	if fail != nil {
		return future.Failed[struct{}](fail)
	}
	return future.Completed(struct{}{})
}

func (e *fakeEngine) Read(req protocol.ReadRequest) *future.Future[protocol.Response] {
	e.mu.Lock()
	e.reads = append(e.reads, req)
	e.mu.Unlock()
	return e.response()
}

func (e *fakeEngine) Write(req protocol.WriteRequest) *future.Future[protocol.Response] {
	e.mu.Lock()
	e.writes = append(e.writes, req)
	e.mu.Unlock()
	return e.response()
}

func (e *fakeEngine) Delete(req protocol.DeleteRequest) *future.Future[protocol.Response] {
	e.mu.Lock()
	e.deletes = append(e.deletes, req)
	e.mu.Unlock()
	return e.response()
}

func (e *fakeEngine) response() *future.Future[protocol.Response] {
	if e.respond != nil {
		return e.respond()
	}
	return future.Completed(protocol.OKResponse([]byte("ok")))
}

func (e *fakeEngine) CommitHandler(engine.CommitHandler) {}

func (e *fakeEngine) IsRecovering() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recovering
}

func (e *fakeEngine) openCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opens
}

func threeMemberCluster() cluster.Config {
	return cluster.Config{
		LocalID: 1,
		Members: []cluster.Member{{ID: 1}, {ID: 2}, {ID: 3}},
	}
}

func newContextForTest(t *testing.T, fe *fakeEngine) *Context {
	t.Helper()
	ctx, err := NewContext(Config{Name: "test"}, threeMemberCluster(), func(engine.Config) engine.Engine { return fe })
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	return ctx
}

func TestInvalidReplicaFailsConstruction(t *testing.T) {
	_, err := NewContext(
		Config{Name: "test", Replicas: []int{1, 2, 9}},
		threeMemberCluster(),
		func(engine.Config) engine.Engine { return &fakeEngine{} },
	)
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("want ConfigurationError, got %v", err)
	}
	if !strings.Contains(cerr.Error(), "9") {
		t.Fatalf("error should identify member 9: %v", cerr)
	}
}

func TestReplicaSubsetResolved(t *testing.T) {
	var got engine.Config
	_, err := NewContext(
		Config{Name: "test", Replicas: []int{1, 3}},
		threeMemberCluster(),
		func(cfg engine.Config) engine.Engine {
			got = cfg
			return &fakeEngine{}
		},
	)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	if got.MemberID != 1 {
		t.Fatalf("local member: %d", got.MemberID)
	}
	if len(got.Members) != 2 || got.Members[0] != 1 || got.Members[1] != 3 {
		t.Fatalf("members: %v", got.Members)
	}
}

func TestFullClusterWhenNoReplicas(t *testing.T) {
	var got engine.Config
	_, err := NewContext(Config{Name: "test"}, threeMemberCluster(), func(cfg engine.Config) engine.Engine {
		got = cfg
		return &fakeEngine{}
	})
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	if len(got.Members) != 3 {
		t.Fatalf("members: %v", got.Members)
	}
}

func TestOperationsFailBeforeOpen(t *testing.T) {
	fe := &fakeEngine{}
	ctx := newContextForTest(t, fe)

	for name, f := range map[string]*future.Future[[]byte]{
		"read":   ctx.Read([]byte("k"), []byte("e"), protocol.ConsistencyStrict),
		"write":  ctx.Write([]byte("k"), []byte("e")),
		"delete": ctx.Delete([]byte("k")),
	} {
		if !f.IsDone() {
			t.Fatalf("%s: future should be pre-completed", name)
		}
		if _, err := f.Get(); !errors.Is(err, ErrNotOpen) {
			t.Fatalf("%s: want ErrNotOpen, got %v", name, err)
		}
	}
	if len(fe.reads)+len(fe.writes)+len(fe.deletes) != 0 {
		t.Fatalf("engine reached while closed")
	}
}

func TestConcurrentOpenSingleFlight(t *testing.T) {
	fe := &fakeEngine{openGate: make(chan struct{})}
	ctx := newContextForTest(t, fe)

	const n = 8
	futures := make([]*future.Future[*Context], n)
	for i := 0; i < n; i++ {
		futures[i] = ctx.Open()
	}
	for i := 1; i < n; i++ {
		if futures[i] != futures[0] {
			t.Fatalf("concurrent callers should share one future instance")
		}
	}

	close(fe.openGate)
	for i, f := range futures {
		got, err := f.Get()
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if got != ctx {
			t.Fatalf("open %d resolved to wrong context", i)
		}
	}
	if fe.openCount() != 1 {
		t.Fatalf("engine opened %d times, want 1", fe.openCount())
	}
	if !ctx.IsOpen() {
		t.Fatalf("context should be open")
	}

	// Idempotent once open: immediate success, no extra engine call.
	f := ctx.Open()
	if !f.IsDone() {
		t.Fatalf("open on open context should complete immediately")
	}
	if fe.openCount() != 1 {
		t.Fatalf("extra engine open after idempotent call")
	}
}

func TestOpenFailureAllowsRetry(t *testing.T) {
	fe := &fakeEngine{failOpen: errors.New("no quorum")}
	ctx := newContextForTest(t, fe)

	if _, err := ctx.Open().Get(); err == nil {
		t.Fatalf("expected open failure")
	}
	if ctx.IsOpen() {
		t.Fatalf("failed open must not mark context open")
	}

	fe.mu.Lock()
	fe.failOpen = nil
	fe.mu.Unlock()
	if _, err := ctx.Open().Get(); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if fe.openCount() != 2 {
		t.Fatalf("retry should start a fresh attempt, opens=%d", fe.openCount())
	}
}

func TestCloseCoalescedAndIdempotent(t *testing.T) {
	fe := &fakeEngine{}
	ctx := newContextForTest(t, fe)
	if _, err := ctx.Open().Get(); err != nil {
		t.Fatalf("open: %v", err)
	}

	f1 := ctx.Close()
	f2 := ctx.Close()
	// Either both hit the pending slot or the first already completed; in the
	// pending case the instances must be identical.
	if !f1.IsDone() && f1 != f2 {
		t.Fatalf("concurrent close should share one future")
	}
	if _, err := f1.Get(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := f2.Get(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if ctx.IsOpen() {
		t.Fatalf("context should be closed")
	}

	f3 := ctx.Close()
	if !f3.IsDone() {
		t.Fatalf("close on closed context should complete immediately")
	}
	if _, err := f3.Get(); err != nil {
		t.Fatalf("close on closed: %v", err)
	}
}

func TestOpenAfterFinalCloseFails(t *testing.T) {
	fe := &fakeEngine{}
	ctx := newContextForTest(t, fe)
	if _, err := ctx.Open().Get(); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := ctx.Close().Get(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := ctx.Open().Get(); !errors.Is(err, ErrSchedulerStopped) {
		t.Fatalf("want ErrSchedulerStopped, got %v", err)
	}
}

func TestWriteBuildsRequestAndResolvesResult(t *testing.T) {
	fe := &fakeEngine{}
	ctx := newContextForTest(t, fe)
	if _, err := ctx.Open().Get(); err != nil {
		t.Fatalf("open: %v", err)
	}

	got, err := ctx.Write([]byte("k"), []byte("e")).Get()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if string(got) != "ok" {
		t.Fatalf("result: %q", got)
	}
	if len(fe.writes) != 1 {
		t.Fatalf("writes: %d", len(fe.writes))
	}
	req := fe.writes[0]
	if req.Member != 1 || string(req.Key) != "k" || string(req.Entry) != "e" {
		t.Fatalf("request: %+v", req)
	}
}

func TestReadCarriesConsistency(t *testing.T) {
	fe := &fakeEngine{}
	ctx := newContextForTest(t, fe)
	if _, err := ctx.Open().Get(); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := ctx.Read([]byte("k"), []byte("e"), protocol.ConsistencyLease).Get(); err != nil {
		t.Fatalf("read: %v", err)
	}
	if fe.reads[0].Consistency != protocol.ConsistencyLease {
		t.Fatalf("consistency not passed through: %+v", fe.reads[0])
	}
}

func TestErrorResponseMapsToDomainError(t *testing.T) {
	fe := &fakeEngine{
		respond: func() *future.Future[protocol.Response] {
			return future.Completed(protocol.ErrorResponse(protocol.NewError(protocol.CodeApplication, "rejected")))
		},
	}
	ctx := newContextForTest(t, fe)
	if _, err := ctx.Open().Get(); err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err := ctx.Write([]byte("k"), []byte("e")).Get()
	var perr *protocol.Error
	if !errors.As(err, &perr) || perr.Code != protocol.CodeApplication {
		t.Fatalf("want application error, got %v", err)
	}
}

func TestRequestFailurePropagatesUnchanged(t *testing.T) {
	sentinel := errors.New("transport down")
	fe := &fakeEngine{
		respond: func() *future.Future[protocol.Response] {
			return future.Failed[protocol.Response](sentinel)
		},
	}
	ctx := newContextForTest(t, fe)
	if _, err := ctx.Open().Get(); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := ctx.Delete([]byte("k")).Get(); !errors.Is(err, sentinel) {
		t.Fatalf("want sentinel, got %v", err)
	}
}

func TestStateReflectsRecovering(t *testing.T) {
	fe := &fakeEngine{}
	ctx := newContextForTest(t, fe)
	if ctx.State() != StateHealthy {
		t.Fatalf("want healthy")
	}
	fe.mu.Lock()
	fe.recovering = true
	fe.mu.Unlock()
	if ctx.State() != StateRecover {
		t.Fatalf("want recover")
	}
}

func TestOpenCloseStrictOrdering(t *testing.T) {
	fe := &fakeEngine{}
	ctx := newContextForTest(t, fe)

	tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := ctx.Open().Await(tctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := ctx.Close().Await(tctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if fe.openCount() != 1 || fe.closes != 1 {
		t.Fatalf("lifecycle calls: opens=%d closes=%d", fe.opens, fe.closes)
	}
}
