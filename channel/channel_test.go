package channel

import (
	"errors"
	"math"
	"testing"

	"github.com/danmuck/framelink/internal/testutil/testlog"
	"github.com/danmuck/framelink/transport"
	"github.com/danmuck/framelink/value"
)

// newPair links a host and a guest over an in-memory pipe; both sides have
// completed the handshake by the time it returns.
func newPair(t *testing.T) (*Channel, *Channel) {
	t.Helper()
	return newScopedPair(t, "")
}

func newScopedPair(t *testing.T, scope string) (*Channel, *Channel) {
	t.Helper()
	left, right := transport.Pipe()
	host, err := New(Config{PeerOrigin: transport.RightOrigin, Scope: scope, Role: RoleHost}, left)
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	guest, err := New(Config{PeerOrigin: transport.LeftOrigin, Scope: scope, Role: RoleGuest}, right)
	if err != nil {
		t.Fatalf("new guest: %v", err)
	}
	if !host.Ready() || !guest.Ready() {
		t.Fatalf("handshake incomplete: host=%v guest=%v", host.Ready(), guest.Ready())
	}
	return host, guest
}

func TestQueryEcho(t *testing.T) {
	testlog.Start(t)
	host, guest := newPair(t)
	if err := guest.Bind("echo", func(_ *Trans, params value.Value) (value.Value, error) {
		return params, nil
	}); err != nil {
		t.Fatalf("bind: %v", err)
	}

	var got string
	calls := 0
	err := host.Query(Query{
		Method: "echo",
		Params: value.String("hi"),
		Success: func(v value.Value) {
			got = v.Str()
			calls++
		},
		Failure: func(code, message string) {
			t.Errorf("failure fired: %s %s", code, message)
		},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got != "hi" || calls != 1 {
		t.Fatalf("unexpected echo: got=%q calls=%d", got, calls)
	}
	if host.Open() != 0 || guest.Open() != 0 {
		t.Fatalf("transactions leaked: host=%d guest=%d", host.Open(), guest.Open())
	}
}

func TestHandlerPanicString(t *testing.T) {
	testlog.Start(t)
	host, guest := newPair(t)
	_ = guest.Bind("explode", func(*Trans, value.Value) (value.Value, error) {
		panic("bad")
	})

	var code, message string
	err := host.Query(Query{
		Method:  "explode",
		Params:  value.Null(),
		Success: func(value.Value) { t.Errorf("success fired for a fault") },
		Failure: func(c, m string) { code, message = c, m },
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if code != "runtime_error" || message != "bad" {
		t.Fatalf("unexpected fault: code=%q message=%q", code, message)
	}
	if host.Open() != 0 {
		t.Fatalf("transaction leaked: %d", host.Open())
	}
}

func TestHandlerPanicCodedPair(t *testing.T) {
	testlog.Start(t)
	host, guest := newPair(t)
	_ = guest.Bind("explode", func(*Trans, value.Value) (value.Value, error) {
		panic([2]string{"custom_code", "oops"})
	})

	var code, message string
	err := host.Query(Query{
		Method:  "explode",
		Params:  value.Null(),
		Success: func(value.Value) { t.Errorf("success fired for a fault") },
		Failure: func(c, m string) { code, message = c, m },
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if code != "custom_code" || message != "oops" {
		t.Fatalf("unexpected fault: code=%q message=%q", code, message)
	}
}

func TestHandlerReturnedFault(t *testing.T) {
	testlog.Start(t)
	host, guest := newPair(t)
	_ = guest.Bind("explode", func(*Trans, value.Value) (value.Value, error) {
		return value.Null(), Faultf("quota_exceeded", "limit %d", 5)
	})

	var code, message string
	_ = host.Query(Query{
		Method:  "explode",
		Params:  value.Null(),
		Success: func(value.Value) { t.Errorf("success fired for a fault") },
		Failure: func(c, m string) { code, message = c, m },
	})
	if code != "quota_exceeded" || message != "limit 5" {
		t.Fatalf("unexpected fault: code=%q message=%q", code, message)
	}
}

func TestHandlerReturnedPlainError(t *testing.T) {
	testlog.Start(t)
	host, guest := newPair(t)
	_ = guest.Bind("explode", func(*Trans, value.Value) (value.Value, error) {
		return value.Null(), errors.New("disk on fire")
	})

	var code, message string
	_ = host.Query(Query{
		Method:  "explode",
		Params:  value.Null(),
		Success: func(value.Value) { t.Errorf("success fired for a fault") },
		Failure: func(c, m string) { code, message = c, m },
	})
	if code != "runtime_error" || message != "disk on fire" {
		t.Fatalf("unexpected fault: code=%q message=%q", code, message)
	}
}

func TestCallbackBeforeResponse(t *testing.T) {
	testlog.Start(t)
	host, guest := newPair(t)
	_ = guest.Bind("work", func(_ *Trans, params value.Value) (value.Value, error) {
		cb, ok := params.Map().Get("cb")
		if !ok || cb.Kind() != value.KindFunc {
			t.Errorf("stub not spliced: %v", cb)
			return value.Null(), nil
		}
		cb.Func()(value.Number(42))
		return value.String("done"), nil
	})

	var seq []string
	params := value.NewMap()
	params.Set("cb", value.FuncOf(func(v value.Value) {
		if v.Num() == 42 {
			seq = append(seq, "progress")
		}
	}))
	err := host.Query(Query{
		Method:  "work",
		Params:  value.OfMap(params),
		Success: func(v value.Value) { seq = append(seq, "success:"+v.Str()) },
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(seq) != 2 || seq[0] != "progress" || seq[1] != "success:done" {
		t.Fatalf("unexpected sequence: %v", seq)
	}
}

func TestCallbackNestedPathRoundTrip(t *testing.T) {
	testlog.Start(t)
	host, guest := newPair(t)
	_ = guest.Bind("watch", func(_ *Trans, params value.Value) (value.Value, error) {
		nested, _ := params.Map().Get("a")
		cb, ok := nested.Map().Get("b")
		if !ok || cb.Kind() != value.KindFunc {
			t.Errorf("stub not spliced at a/b")
			return value.Null(), nil
		}
		cb.Func()(value.String("v"))
		return value.Null(), nil
	})

	var got string
	inner := value.NewMap()
	inner.Set("b", value.FuncOf(func(v value.Value) { got = v.Str() }))
	params := value.NewMap()
	params.Set("a", value.OfMap(inner))
	if err := host.Query(Query{
		Method:  "watch",
		Params:  value.OfMap(params),
		Success: func(value.Value) {},
	}); err != nil {
		t.Fatalf("query: %v", err)
	}
	if got != "v" {
		t.Fatalf("callback value lost: %q", got)
	}
}

func TestLateCallbackStubIsInert(t *testing.T) {
	testlog.Start(t)
	host, guest := newPair(t)
	var stub value.Func
	_ = guest.Bind("later", func(_ *Trans, params value.Value) (value.Value, error) {
		cb, _ := params.Map().Get("cb")
		stub = cb.Func()
		return value.Null(), nil
	})

	hits := 0
	params := value.NewMap()
	params.Set("cb", value.FuncOf(func(value.Value) { hits++ }))
	if err := host.Query(Query{
		Method:  "later",
		Params:  value.OfMap(params),
		Success: func(value.Value) {},
	}); err != nil {
		t.Fatalf("query: %v", err)
	}
	stub(value.Null())
	if hits != 0 {
		t.Fatalf("stub fired after the transaction terminated: %d", hits)
	}
}

func TestDelayReturn(t *testing.T) {
	testlog.Start(t)
	host, guest := newPair(t)
	var held *Trans
	_ = guest.Bind("slow", func(tr *Trans, _ value.Value) (value.Value, error) {
		tr.SetDelayReturn(true)
		held = tr
		return value.Null(), nil
	})

	var got string
	if err := host.Query(Query{
		Method:  "slow",
		Params:  value.Null(),
		Success: func(v value.Value) { got = v.Str() },
	}); err != nil {
		t.Fatalf("query: %v", err)
	}
	if got != "" {
		t.Fatalf("auto-complete ran despite delayReturn: %q", got)
	}
	if host.Open() != 1 || guest.Open() != 1 {
		t.Fatalf("transaction should stay open: host=%d guest=%d", host.Open(), guest.Open())
	}

	if err := held.Complete(value.String("finally")); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != "finally" {
		t.Fatalf("late completion lost: %q", got)
	}
	if host.Open() != 0 || guest.Open() != 0 {
		t.Fatalf("transactions leaked: host=%d guest=%d", host.Open(), guest.Open())
	}
}

func TestTerminalIdempotenceViolation(t *testing.T) {
	testlog.Start(t)
	host, guest := newPair(t)
	var held *Trans
	_ = guest.Bind("once", func(tr *Trans, _ value.Value) (value.Value, error) {
		tr.SetDelayReturn(true)
		held = tr
		return value.Null(), nil
	})
	if err := host.Query(Query{
		Method:  "once",
		Params:  value.Null(),
		Success: func(value.Value) {},
	}); err != nil {
		t.Fatalf("query: %v", err)
	}

	if err := held.Complete(value.Bool(true)); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	if !held.Completed() {
		t.Fatalf("handle should read completed")
	}
	if err := held.Complete(value.Bool(true)); !errors.Is(err, ErrUnknownTransaction) {
		t.Fatalf("second complete: expected ErrUnknownTransaction, got %v", err)
	}
	if err := held.Fail("late", "nope"); !errors.Is(err, ErrUnknownTransaction) {
		t.Fatalf("fail after complete: expected ErrUnknownTransaction, got %v", err)
	}
}

func TestUnboundMethodNeverAnswers(t *testing.T) {
	testlog.Start(t)
	host, _ := newPair(t)
	fired := false
	if err := host.Query(Query{
		Method:  "nobody/home",
		Params:  value.Null(),
		Success: func(value.Value) { fired = true },
		Failure: func(string, string) { fired = true },
	}); err != nil {
		t.Fatalf("query: %v", err)
	}
	if fired {
		t.Fatalf("no continuation may fire for an unbound method")
	}
	// indistinguishable from a lost message: the entry stays open
	if host.Open() != 1 {
		t.Fatalf("expected the transaction to stay open, got %d", host.Open())
	}
}

func TestNotifyInvokesHandlerOnce(t *testing.T) {
	testlog.Start(t)
	host, guest := newPair(t)
	var got []string
	_ = guest.Bind("log", func(tr *Trans, params value.Value) (value.Value, error) {
		if tr != nil {
			t.Errorf("notification handler received a transaction handle")
		}
		got = append(got, params.Str())
		return value.String("ignored"), nil
	})
	if err := host.Notify("log", value.String("line")); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(got) != 1 || got[0] != "line" {
		t.Fatalf("unexpected deliveries: %v", got)
	}
	if host.Open() != 0 || guest.Open() != 0 {
		t.Fatalf("notifications must not touch the table")
	}
}

func TestNotificationPanicPropagates(t *testing.T) {
	testlog.Start(t)
	host, guest := newPair(t)
	_ = guest.Bind("boom", func(*Trans, value.Value) (value.Value, error) {
		panic("unhandled")
	})
	defer func() {
		if recover() == nil {
			t.Fatalf("notification handler panic should propagate")
		}
	}()
	_ = host.Notify("boom", value.Null())
}

func TestReentrantQueryFromHandler(t *testing.T) {
	testlog.Start(t)
	host, guest := newPair(t)
	_ = host.Bind("sub", func(*Trans, value.Value) (value.Value, error) {
		return value.String("inner"), nil
	})
	_ = guest.Bind("main", func(*Trans, value.Value) (value.Value, error) {
		var sub string
		if err := guest.Query(Query{
			Method:  "sub",
			Params:  value.Null(),
			Success: func(v value.Value) { sub = v.Str() },
		}); err != nil {
			return value.Null(), err
		}
		return value.String("outer+" + sub), nil
	})

	var got string
	if err := host.Query(Query{
		Method:  "main",
		Params:  value.Null(),
		Success: func(v value.Value) { got = v.Str() },
	}); err != nil {
		t.Fatalf("query: %v", err)
	}
	if got != "outer+inner" {
		t.Fatalf("re-entrant dispatch broke: %q", got)
	}
	if host.Open() != 0 || guest.Open() != 0 {
		t.Fatalf("transactions leaked: host=%d guest=%d", host.Open(), guest.Open())
	}
}

func TestQueryEncodeFailureRollsBack(t *testing.T) {
	testlog.Start(t)
	host, _ := newPair(t)
	err := host.Query(Query{
		Method:  "m",
		Params:  value.Number(math.NaN()),
		Success: func(value.Value) {},
	})
	if err == nil {
		t.Fatalf("expected encode error")
	}
	if host.Open() != 0 {
		t.Fatalf("failed query left a table entry: %d", host.Open())
	}
}

func TestCloseStopsTraffic(t *testing.T) {
	testlog.Start(t)
	host, guest := newPair(t)
	fired := false
	_ = host.Bind("in", func(*Trans, value.Value) (value.Value, error) {
		fired = true
		return value.Null(), nil
	})

	if err := host.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := host.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := host.Query(Query{Method: "m", Params: value.Null(), Success: func(value.Value) {}}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := host.Notify("m", value.Null()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := host.Bind("x", func(*Trans, value.Value) (value.Value, error) { return value.Null(), nil }); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	_ = guest.Query(Query{Method: "in", Params: value.Null(), Success: func(value.Value) {}})
	if fired {
		t.Fatalf("closed channel still routed a request")
	}
	if host.Open() != 0 {
		t.Fatalf("close should drop channel state")
	}
}
