package main

import (
	"fmt"
	"os"

	"github.com/danmuck/framelink/channel"
	"github.com/danmuck/framelink/internal/observability"
	"github.com/danmuck/framelink/transport"
	"github.com/danmuck/framelink/value"
)

// linkctl pairs a host and a guest channel over an in-memory pipe and
// walks the protocol end to end: a notification, a query carrying an
// embedded progress callback, and a delayed-return query. Any unexpected
// outcome exits non-zero.
func main() {
	observability.InitLogger("linkctl")

	left, right := transport.Pipe()
	host := mustChannel("host", channel.Config{
		PeerOrigin: transport.RightOrigin,
		Scope:      "demo",
		Role:       channel.RoleHost,
	}, left)
	guest := mustChannel("guest", channel.Config{
		PeerOrigin: transport.LeftOrigin,
		Scope:      "demo",
		Role:       channel.RoleGuest,
	}, right)
	if !host.Ready() || !guest.Ready() {
		fatalf("handshake incomplete: host=%v guest=%v", host.Ready(), guest.Ready())
	}
	fmt.Println("linkctl: handshake complete")

	var deferred *channel.Trans
	bindGuest(guest, &deferred)

	if err := host.Notify("log", value.String("starting demo")); err != nil {
		fatalf("notify: %v", err)
	}

	runProgressQuery(host)
	runDeferredQuery(host, &deferred)

	if host.Open() != 0 || guest.Open() != 0 {
		fatalf("transactions leaked: host=%d guest=%d", host.Open(), guest.Open())
	}
	fmt.Println("linkctl: all exchanges completed")
}

func bindGuest(guest *channel.Channel, deferred **channel.Trans) {
	mustBind(guest, "log", func(_ *channel.Trans, params value.Value) (value.Value, error) {
		fmt.Printf("guest log: %s\n", params.Str())
		return value.Null(), nil
	})
	mustBind(guest, "resize", func(_ *channel.Trans, params value.Value) (value.Value, error) {
		name, _ := params.Map().Get("name")
		progress, ok := params.Map().Get("progress")
		if !ok || progress.Kind() != value.KindFunc {
			return value.Null(), channel.Faultf("bad_request", "progress callback missing")
		}
		progress.Func()(value.Number(25))
		progress.Func()(value.Number(100))
		return value.String("done:" + name.Str()), nil
	})
	mustBind(guest, "defer", func(tr *channel.Trans, _ value.Value) (value.Value, error) {
		tr.SetDelayReturn(true)
		*deferred = tr
		return value.Null(), nil
	})
}

func runProgressQuery(host *channel.Channel) {
	var steps []float64
	var result string
	params := value.NewMap()
	params.Set("name", value.String("banner.png"))
	params.Set("progress", value.FuncOf(func(v value.Value) {
		steps = append(steps, v.Num())
		fmt.Printf("host progress: %.0f%%\n", v.Num())
	}))
	err := host.Query(channel.Query{
		Method:  "resize",
		Params:  value.OfMap(params),
		Success: func(v value.Value) { result = v.Str() },
		Failure: func(code, message string) { fatalf("resize failed: %s %s", code, message) },
	})
	if err != nil {
		fatalf("resize query: %v", err)
	}
	if len(steps) != 2 || steps[0] != 25 || steps[1] != 100 {
		fatalf("unexpected progress: %v", steps)
	}
	if result != "done:banner.png" {
		fatalf("unexpected result: %q", result)
	}
	fmt.Printf("host result: %s\n", result)
}

func runDeferredQuery(host *channel.Channel, deferred **channel.Trans) {
	var result string
	err := host.Query(channel.Query{
		Method:  "defer",
		Params:  value.Null(),
		Success: func(v value.Value) { result = v.Str() },
		Failure: func(code, message string) { fatalf("defer failed: %s %s", code, message) },
	})
	if err != nil {
		fatalf("defer query: %v", err)
	}
	if result != "" {
		fatalf("deferred transaction answered early: %q", result)
	}
	if *deferred == nil {
		fatalf("guest did not hold the transaction")
	}
	if err := (*deferred).Complete(value.String("deferred answer")); err != nil {
		fatalf("deferred complete: %v", err)
	}
	if result != "deferred answer" {
		fatalf("deferred result lost: %q", result)
	}
	fmt.Printf("host deferred result: %s\n", result)
}

func mustChannel(name string, cfg channel.Config, port transport.Port) *channel.Channel {
	c, err := channel.New(cfg, port)
	if err != nil {
		fatalf("%s channel: %v", name, err)
	}
	return c
}

func mustBind(c *channel.Channel, method string, h channel.Handler) {
	if err := c.Bind(method, h); err != nil {
		fatalf("bind %s: %v", method, err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "linkctl: "+format+"\n", args...)
	os.Exit(1)
}
