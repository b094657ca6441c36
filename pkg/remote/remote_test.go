package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/optilist/pkg/dom"
	"github.com/vango-dev/optilist/pkg/protocol"
	"github.com/vango-dev/optilist/pkg/vdom"
)

func renderItem(id, text string) *vdom.VNode {
	return vdom.Li(vdom.ID(id), vdom.Text(text))
}

func newList(t *testing.T) (*dom.Document, *dom.Element) {
	t.Helper()
	doc := dom.NewDocument()
	list, err := doc.Mount(doc.Body(), vdom.Ul(vdom.ID("items")))
	if err != nil {
		t.Fatal(err)
	}
	return doc, list
}

func TestOnce(t *testing.T) {
	n := 0
	r := Once(ReleaseFunc(func() { n++ }))
	if !r.Release() || r.Release() {
		t.Error("Once should report true only for the first release")
	}
	if Once(r) != r {
		t.Error("Once should not wrap twice")
	}
	if n != 1 {
		t.Errorf("released %d times", n)
	}
	if Once(nil) != nil {
		t.Error("Once(nil) should be nil")
	}
}

func TestStringPayload(t *testing.T) {
	got := StringPayload(map[string]any{"title": "Buy milk", "n": 3, "none": nil})
	if got["title"] != "Buy milk" || got["n"] != "3" || got["none"] != "" {
		t.Errorf("StringPayload() = %v", got)
	}
	if StringPayload(nil) != nil {
		t.Error("empty payload should be nil")
	}
}

func TestLoopbackManual(t *testing.T) {
	doc := dom.NewDocument()
	var applied []string
	lb := NewLoopback(doc, WithHandler(func(_ context.Context, c Call) error {
		applied = append(applied, c.Payload["title"].(string))
		return nil
	}))

	var released []string
	for _, title := range []string{"A", "B"} {
		title := title
		err := lb.PushEventTo(context.Background(), "lists/x", "create",
			map[string]any{"title": title},
			ReleaseFunc(func() { released = append(released, title) }))
		if err != nil {
			t.Fatal(err)
		}
	}

	calls := lb.Calls()
	if len(calls) != 2 || calls[0].Ref == calls[1].Ref {
		t.Fatalf("calls = %+v", calls)
	}
	if !lb.Ack(calls[1].Ref) || lb.Ack(calls[1].Ref) {
		t.Error("Ack should succeed once per ref")
	}
	if len(released) != 0 {
		t.Error("release must wait for the document loop")
	}
	doc.RunPending()
	if strings.Join(released, ",") != "B" || strings.Join(applied, ",") != "B" {
		t.Errorf("released %v applied %v", released, applied)
	}

	if !lb.Fail(calls[0].Ref, "boom") {
		t.Error("Fail() = false")
	}
	doc.RunPending()
	if len(released) != 1 {
		t.Error("a failed call must never release")
	}
}

func TestLoopbackHandlerError(t *testing.T) {
	doc := dom.NewDocument()
	lb := NewLoopback(doc, WithAutoAck(), WithHandler(func(context.Context, Call) error {
		return errors.New("rejected")
	}))
	n := 0
	lb.PushEventTo(context.Background(), "t", "create", nil, ReleaseFunc(func() { n++ }))
	doc.RunPending()
	if n != 0 {
		t.Error("handler error must not release")
	}
}

func TestLoopbackClosed(t *testing.T) {
	doc := dom.NewDocument()
	lb := NewLoopback(doc)
	lb.Close()
	if err := lb.PushEventTo(context.Background(), "t", "e", nil, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewLoopback(doc).PushEventTo(ctx, "t", "e", nil, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestApplyPatches(t *testing.T) {
	doc, list := newList(t)

	err := ApplyPatches(doc, []protocol.Patch{
		{Op: protocol.PatchInsert, Container: "items", ID: "item-1", Text: "Buy milk"},
		{Op: protocol.PatchInsert, Container: "items", ID: "item-2", Text: "Eggs"},
		{Op: protocol.PatchInsert, Container: "items", ID: "item-1", Text: "Buy oat milk"},
		{Op: protocol.PatchSetText, ID: "item-2", Text: "Free-range eggs"},
	}, renderItem)
	if err != nil {
		t.Fatal(err)
	}
	if got := list.InnerHTML(); got != `<li id="item-1">Buy oat milk</li><li id="item-2">Free-range eggs</li>` {
		t.Errorf("list = %s", got)
	}

	err = ApplyPatches(doc, []protocol.Patch{
		{Op: protocol.PatchRemove, ID: "item-1"},
		{Op: protocol.PatchRemove, ID: "missing"},
		{Op: protocol.PatchInsert, Container: "nope", ID: "item-3", Text: "x"},
		{Op: protocol.PatchSetText, ID: "missing", Text: "x"},
	}, renderItem)
	if err == nil {
		t.Error("missing targets should be reported")
	}
	if got := len(list.Children()); got != 1 {
		t.Errorf("children = %d, want 1", got)
	}
}

// serveWS runs a WebSocket server that answers each push with the frames
// returned by handle.
func serveWS(t *testing.T, handle func(*protocol.Push) []*protocol.Frame) string {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			f, err := protocol.DecodeFrame(msg)
			if err != nil || f.Type != protocol.FramePush {
				continue
			}
			push, err := protocol.DecodePush(f.Payload)
			if err != nil {
				continue
			}
			for _, out := range handle(push) {
				data, _ := out.Encode()
				if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitFor(t *testing.T, doc *dom.Document, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		doc.RunPending()
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("timed out")
}

func TestClientRoundTrip(t *testing.T) {
	url := serveWS(t, func(p *protocol.Push) []*protocol.Frame {
		return []*protocol.Frame{
			protocol.EncodePatches([]protocol.Patch{{
				Op: protocol.PatchInsert, Container: "items", ID: "item-1", Text: p.Payload["title"],
			}}),
			(&protocol.Reply{Ref: p.Ref, Status: protocol.ReplyOK}).Frame(),
		}
	})

	doc, list := newList(t)
	c, err := Dial(context.Background(), url, doc, WithPatchHandler(PatchApplier(doc, renderItem)))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	released := 0
	var sawServerItem bool
	err = c.PushEventTo(context.Background(), "lists/groceries", "create",
		map[string]any{"title": "Buy milk"},
		ReleaseFunc(func() {
			released++
			sawServerItem = doc.GetElementByID("item-1") != nil
		}))
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, doc, func() bool { return released > 0 })
	if !sawServerItem {
		t.Error("server item should be inserted before the release runs")
	}
	if list.FirstElementChild().TextContent() != "Buy milk" {
		t.Errorf("list = %s", list.InnerHTML())
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d", c.Pending())
	}
}

func TestClientErrorReply(t *testing.T) {
	url := serveWS(t, func(p *protocol.Push) []*protocol.Frame {
		return []*protocol.Frame{(&protocol.Reply{Ref: p.Ref, Status: protocol.ReplyError, Reason: "invalid"}).Frame()}
	})

	doc, _ := newList(t)
	c, err := Dial(context.Background(), url, doc)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	released := 0
	if err := c.PushEventTo(context.Background(), "t", "create", nil, ReleaseFunc(func() { released++ })); err != nil {
		t.Fatal(err)
	}
	waitFor(t, doc, func() bool { return c.Pending() == 0 })
	doc.RunPending()
	if released != 0 {
		t.Error("an error reply must not release")
	}
}

func TestClientClosed(t *testing.T) {
	url := serveWS(t, func(*protocol.Push) []*protocol.Frame { return nil })
	doc := dom.NewDocument()
	c, err := Dial(context.Background(), url, doc)
	if err != nil {
		t.Fatal(err)
	}
	released := 0
	c.PushEventTo(context.Background(), "t", "create", nil, ReleaseFunc(func() { released++ }))
	c.Close()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed")
	}
	if err := c.PushEventTo(context.Background(), "t", "create", nil, nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
	doc.RunPending()
	if released != 0 || c.Pending() != 0 {
		t.Error("pushes lost on close must not release")
	}
}

func TestDialError(t *testing.T) {
	doc := dom.NewDocument()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := Dial(ctx, "ws://127.0.0.1:1/live", doc); err == nil {
		t.Error("Dial to a closed port should fail")
	}
}
