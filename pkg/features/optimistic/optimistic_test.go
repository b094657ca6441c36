package optimistic

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vango-dev/optilist/pkg/dom"
	"github.com/vango-dev/optilist/pkg/features/hooks"
	"github.com/vango-dev/optilist/pkg/remote"
	"github.com/vango-dev/optilist/pkg/vdom"
)

type fixture struct {
	doc  *dom.Document
	root *dom.Element
	list *dom.Element
	c    *Coordinator
	lb   *remote.Loopback
}

func setup(t *testing.T, mc MarkupConfig, opts ...Option) *fixture {
	t.Helper()
	doc := dom.NewDocument()
	list, err := doc.Mount(doc.Body(), List("items"))
	if err != nil {
		t.Fatalf("mount list: %v", err)
	}
	if mc.InsertInto == "" {
		mc.InsertInto = "items"
	}
	root, err := doc.Mount(doc.Body(), Markup(mc))
	if err != nil {
		t.Fatalf("mount form: %v", err)
	}
	lb := remote.NewLoopback(doc)
	c, err := New(root, append([]Option{WithChannel(lb)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(c.Close)
	return &fixture{doc: doc, root: root, list: list, c: c, lb: lb}
}

// open clicks the add button and runs the deferred focus.
func (f *fixture) open(t *testing.T) {
	t.Helper()
	f.root.QueryTag("button").Click()
	f.doc.RunPending()
	if f.c.State() != FormOpen {
		t.Fatalf("state = %v, want form-open", f.c.State())
	}
}

func (f *fixture) submit(text string) {
	f.c.Input().TypeText(text)
	f.c.Form().RequestSubmit()
}

func itemText(el *dom.Element) string {
	if in := el.QueryTag("input"); in != nil {
		return in.Value()
	}
	return el.TextContent()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatal(err)
	}
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func TestOpen(t *testing.T) {
	f := setup(t, MarkupConfig{})
	form, button, input := f.c.Form(), f.root.QueryTag("button"), f.c.Input()

	if f.c.State() != Idle || !form.Hidden() {
		t.Fatalf("initial state = %v, form hidden = %v", f.c.State(), form.Hidden())
	}
	input.SetValue("leftover")

	button.Click()
	if form.Hidden() || !button.Hidden() {
		t.Error("open should show the form and hide the button")
	}
	if input.Value() != "" {
		t.Errorf("input = %q, want cleared", input.Value())
	}
	if f.doc.ActiveElement() == input {
		t.Error("focus should wait for the next turn")
	}
	f.doc.RunPending()
	if f.doc.ActiveElement() != input {
		t.Error("input should be focused after the deferred turn")
	}
}

func TestSubmitBuyMilk(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := setup(t, MarkupConfig{}, WithMetrics(reg))
	f.open(t)

	f.submit("Buy milk")

	pending := f.c.Pending()
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	item := pending[0]
	if got := itemText(item); got != "Buy milk" {
		t.Errorf("pending text = %q", got)
	}
	if f.list.LastElementChild() != item {
		t.Error("pending item should be the last child of the list")
	}
	if item.GetAttribute(PendingStateAttr) != StatePending || item.GetAttribute(hooks.BusyAttr) != "true" {
		t.Errorf("pending item attrs = %v", item.Attributes())
	}
	if f.c.Input().Value() != "" {
		t.Errorf("input = %q, want cleared", f.c.Input().Value())
	}
	if f.c.State() != FormOpen || f.c.Form().Hidden() {
		t.Error("form should stay open after submit")
	}
	if len(f.doc.Navigations()) != 0 {
		t.Error("submit must not navigate")
	}
	if f.c.Form().HasAttribute(hooks.InertAttr) || f.c.Input().Disabled() {
		t.Error("form should be unlocked for the next item")
	}

	calls := f.lb.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	if calls[0].Target != "lists/items" || calls[0].Event != "create" || calls[0].Payload["title"] != "Buy milk" {
		t.Errorf("call = %+v", calls[0])
	}
	if got := gaugeValue(t, f.c.metrics.pendingItems); got != 1 {
		t.Errorf("pending_items = %v", got)
	}

	f.doc.RunPending()
	if f.doc.ActiveElement() != f.c.Input() {
		t.Error("input should regain focus")
	}

	f.lb.Ack(calls[0].Ref)
	f.doc.RunPending()
	if item.IsConnected() || len(f.c.Pending()) != 0 {
		t.Error("ack should remove the pending item")
	}
	if got := gaugeValue(t, f.c.metrics.pendingItems); got != 0 {
		t.Errorf("pending_items = %v after ack", got)
	}
	if got := counterValue(t, f.c.metrics.releases); got != 1 {
		t.Errorf("releases_total = %v", got)
	}
}

func TestSubmitEmpty(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"spaces", "   "},
		{"whitespace", "\t\n "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, MarkupConfig{})
			f.open(t)

			later := 0
			f.c.Form().AddEventListener(dom.EventSubmit, func(*dom.Event) { later++ })
			f.root.AddEventListener(dom.EventSubmit, func(*dom.Event) { later++ })

			f.submit(tt.text)

			if f.list.LastElementChild() != nil || len(f.c.Pending()) != 0 {
				t.Error("empty submit must not create a pending item")
			}
			if f.c.State() != FormOpen || f.c.Form().Hidden() {
				t.Error("form should stay open")
			}
			if later != 0 {
				t.Errorf("submit reached %d later listeners", later)
			}
			if len(f.doc.Navigations()) != 0 {
				t.Error("empty submit must not navigate")
			}
			if len(f.lb.Calls()) != 0 {
				t.Error("empty submit must not push")
			}
			if got := counterValue(t, f.c.metrics.submissions.WithLabelValues(resultEmpty)); got != 1 {
				t.Errorf("empty submissions = %v", got)
			}
		})
	}
}

func TestEscapeWithoutSubmitCloses(t *testing.T) {
	f := setup(t, MarkupConfig{})
	f.open(t)

	f.c.Input().KeyDown("Escape")

	if f.c.State() != Idle || !f.c.Form().Hidden() {
		t.Error("escape should close the form")
	}
	if f.root.QueryTag("button").Hidden() {
		t.Error("button should be shown again")
	}
	if f.list.LastElementChild() != nil {
		t.Error("no pending item should appear")
	}
	if f.doc.ActiveElement() != nil {
		t.Error("closing should blur the input")
	}
	if got := counterValue(t, f.c.metrics.dismissals.WithLabelValues(resultClosed)); got != 1 {
		t.Errorf("closed dismissals = %v, want 1", got)
	}
}

func TestBlurWithoutSubmitCloses(t *testing.T) {
	f := setup(t, MarkupConfig{})
	f.open(t)

	f.c.Input().Blur()
	if f.c.State() != Idle {
		t.Errorf("state = %v, want idle", f.c.State())
	}
}

func TestDismissSameTurnAsSubmit(t *testing.T) {
	// Rendered open and never focused, so the submit itself causes no blur.
	f := setup(t, MarkupConfig{Open: true})

	f.doc.Turn(func() {
		f.c.Input().SetValue("A")
		f.c.Form().RequestSubmit()
		if f.c.Dismiss() {
			t.Error("dismiss in the submit turn should be suppressed")
		}
	})
	if f.c.State() != FormOpen || f.c.Form().Hidden() {
		t.Error("form should stay open")
	}
	if len(f.c.Pending()) != 1 {
		t.Errorf("pending = %d, want 1", len(f.c.Pending()))
	}

	f.doc.Turn(func() {
		f.c.Input().SetValue("B")
		f.c.Form().RequestSubmit()
	})
	if f.c.Guard().Submitting() {
		t.Error("latch must be cleared when the turn ends")
	}
	if !f.c.Dismiss() {
		t.Error("a dismiss in a later turn should close the form")
	}
}

func TestSubmitBlurIsConsumed(t *testing.T) {
	f := setup(t, MarkupConfig{})
	f.open(t)
	if f.doc.ActiveElement() != f.c.Input() {
		t.Fatal("input should be focused")
	}

	f.submit("A")

	if f.c.State() != FormOpen {
		t.Errorf("state = %v: the blur caused by submit closed the form", f.c.State())
	}
	if got := counterValue(t, f.c.metrics.dismissals.WithLabelValues(resultSuppressed)); got != 1 {
		t.Errorf("suppressed dismissals = %v, want 1", got)
	}
	if f.c.Guard().Submitting() {
		t.Error("latch should be consumed")
	}

	// The next escape is a real dismiss.
	f.c.Input().KeyDown("Escape")
	if f.c.State() != Idle {
		t.Error("escape after the submit should close the form")
	}
}

func TestConcurrentPendingItems(t *testing.T) {
	f := setup(t, MarkupConfig{})
	f.open(t)

	f.submit("A")
	f.submit("B")
	f.submit("C")

	pending := f.c.Pending()
	if len(pending) != 3 {
		t.Fatalf("pending = %d, want 3", len(pending))
	}
	calls := f.lb.Calls()

	// Acknowledge B first.
	f.lb.Ack(calls[1].Ref)
	f.doc.RunPending()

	var texts []string
	for _, el := range f.list.Children() {
		texts = append(texts, itemText(el))
	}
	if strings.Join(texts, ",") != "A,C" {
		t.Errorf("list = %v, want A,C", texts)
	}

	f.lb.Ack(calls[2].Ref)
	f.lb.Ack(calls[0].Ref)
	f.doc.RunPending()
	if len(f.list.Children()) != 0 || len(f.c.Pending()) != 0 {
		t.Error("all items should be released")
	}
}

func TestReleaseIdempotent(t *testing.T) {
	f := setup(t, MarkupConfig{})
	f.open(t)
	f.submit("A")
	f.submit("B")
	a, b := f.c.Pending()[0], f.c.Pending()[1]

	// Local unlock releases first; the later ack must be a no-op.
	f.c.Binding().JS.Unlock([]*dom.Element{a})
	f.c.Binding().JS.Unlock([]*dom.Element{a})
	f.lb.AckAll()
	f.doc.RunPending()

	if a.IsConnected() || b.IsConnected() {
		t.Error("both items should be gone")
	}
	if got := counterValue(t, f.c.metrics.releases); got != 2 {
		t.Errorf("releases_total = %v, want 2", got)
	}
	if got := gaugeValue(t, f.c.metrics.pendingItems); got != 0 {
		t.Errorf("pending_items = %v, want 0", got)
	}
}

func TestReleaseAfterExternalRemove(t *testing.T) {
	f := setup(t, MarkupConfig{})
	f.open(t)
	f.submit("A")
	f.submit("B")
	a, b := f.c.Pending()[0], f.c.Pending()[1]

	if !a.Remove() {
		t.Fatal("Remove() = false")
	}
	if got := f.c.Pending(); len(got) != 1 || got[0] != b {
		t.Fatalf("pending = %v, want only B", got)
	}

	if n := f.lb.AckAll(); n != 2 {
		t.Fatalf("AckAll() = %d", n)
	}
	f.doc.RunPending()

	if a.IsConnected() || b.IsConnected() {
		t.Error("no item should remain")
	}
	if len(f.list.Children()) != 0 || len(f.c.Pending()) != 0 {
		t.Errorf("list = %s", f.list.InnerHTML())
	}
	if got := counterValue(t, f.c.metrics.releases); got != 2 {
		t.Errorf("releases_total = %v, want 2", got)
	}
	if got := gaugeValue(t, f.c.metrics.pendingItems); got != 0 {
		t.Errorf("pending_items = %v, want 0", got)
	}
}

func TestSubmitWhileClosedIgnored(t *testing.T) {
	tests := []struct {
		name   string
		submit func(t *testing.T, f *fixture)
	}{
		{"hook call", func(_ *testing.T, f *fixture) { f.c.Binding().Call(CallSubmit, nil) }},
		{"method", func(t *testing.T, f *fixture) {
			if item, err := f.c.Submit(); item != nil || err != nil {
				t.Errorf("Submit() = %v, %v", item, err)
			}
		}},
		{"form submit", func(_ *testing.T, f *fixture) { f.c.Form().RequestSubmit() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, MarkupConfig{})
			if f.c.State() != Idle || !f.c.Form().Hidden() {
				t.Fatal("form should start closed")
			}
			f.c.Input().SetValue("ghost")
			tt.submit(t, f)

			if f.c.State() != Idle {
				t.Errorf("state = %v, want idle", f.c.State())
			}
			if !f.c.Form().Hidden() {
				t.Error("form should stay hidden")
			}
			if len(f.c.Pending()) != 0 || len(f.lb.Calls()) != 0 {
				t.Errorf("pending = %d, calls = %d", len(f.c.Pending()), len(f.lb.Calls()))
			}
		})
	}
}

func TestDefaultTargetIsListTarget(t *testing.T) {
	f := setup(t, MarkupConfig{Open: true})
	f.submit("A")
	calls := f.lb.Calls()
	if len(calls) != 1 || calls[0].Target != remote.ListTarget("items") {
		t.Errorf("calls = %+v", calls)
	}

	g := setup(t, MarkupConfig{Open: true, SubmitTo: "lists/other"})
	g.submit("A")
	if got := g.lb.Calls()[0].Target; got != "lists/other" {
		t.Errorf("target = %q", got)
	}
}

func TestFailedPushStaysPending(t *testing.T) {
	f := setup(t, MarkupConfig{})
	f.open(t)
	f.submit("A")

	ref := f.lb.Calls()[0].Ref
	if !f.lb.Fail(ref, "server error") {
		t.Fatal("Fail() = false")
	}
	f.doc.RunPending()
	if len(f.c.Pending()) != 1 {
		t.Error("a failed create should leave the item pending")
	}
}

func TestNoChannelStaysPending(t *testing.T) {
	doc := dom.NewDocument()
	doc.Mount(doc.Body(), List("items"))
	root, _ := doc.Mount(doc.Body(), Markup(MarkupConfig{InsertInto: "items", Open: true}))
	c, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	c.Input().SetValue("A")
	item, err := c.Submit()
	if err != nil || item == nil {
		t.Fatalf("Submit() = %v, %v", item, err)
	}
	if !item.IsConnected() || len(c.Pending()) != 1 {
		t.Error("item should stay pending without a channel")
	}
}

func TestStaleAfter(t *testing.T) {
	f := setup(t, MarkupConfig{}, WithStaleAfter(5*time.Millisecond))
	f.open(t)
	f.submit("A")
	item := f.c.Pending()[0]

	deadline := time.Now().Add(2 * time.Second)
	for item.GetAttribute(PendingStateAttr) != StateStale && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
		f.doc.RunPending()
	}
	if item.GetAttribute(PendingStateAttr) != StateStale {
		t.Fatal("item should be marked stale")
	}
	if !item.IsConnected() {
		t.Error("stale items are never removed")
	}

	f.lb.AckAll()
	f.doc.RunPending()
	if item.IsConnected() {
		t.Error("a late ack should still remove the stale item")
	}
}

func TestHookCallbacks(t *testing.T) {
	f := setup(t, MarkupConfig{})
	b := f.c.Binding()

	b.Call(CallOpen, nil)
	if f.c.State() != FormOpen {
		t.Fatalf("state = %v after %s", f.c.State(), CallOpen)
	}
	f.c.Input().SetValue("From call")
	b.Call(CallSubmit, nil)
	if len(f.c.Pending()) != 1 {
		t.Error("submit callback should create a pending item")
	}
	b.Call(CallDismiss, nil)
	if f.c.State() != Idle {
		t.Error("first dismiss after the submit turn ended should close")
	}
}

func TestOnDismissCommand(t *testing.T) {
	doc := dom.NewDocument()
	doc.Mount(doc.Body(), List("items"))
	notice, _ := doc.Mount(doc.Body(), vdom.Div(vdom.ID("notice"), vdom.Hidden()))
	root, _ := doc.Mount(doc.Body(), Markup(MarkupConfig{
		InsertInto: "items",
		OnDismiss:  "show:#notice",
		Open:       true,
	}))
	c, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if !c.Dismiss() {
		t.Fatal("Dismiss() = false")
	}
	if notice.Hidden() {
		t.Error("on-dismiss command should show the notice")
	}
}

func TestClose(t *testing.T) {
	f := setup(t, MarkupConfig{})
	f.open(t)
	f.submit("A")
	f.c.Close()

	f.c.Input().KeyDown("Escape")
	if f.c.State() != FormOpen {
		t.Error("closed coordinator should ignore escape")
	}

	// Items pushed before Close are still released.
	f.lb.AckAll()
	f.doc.RunPending()
	if len(f.list.Children()) != 0 {
		t.Error("release after Close should still remove the item")
	}
}

func TestNewErrors(t *testing.T) {
	t.Run("not attached", func(t *testing.T) {
		doc := dom.NewDocument()
		root := doc.Render(Markup(MarkupConfig{InsertInto: "items"}))
		if _, err := New(root); !errors.Is(err, hooks.ErrNotAttached) {
			t.Errorf("err = %v, want ErrNotAttached", err)
		}
	})
	t.Run("no container", func(t *testing.T) {
		doc := dom.NewDocument()
		root, _ := doc.Mount(doc.Body(), Markup(MarkupConfig{InsertInto: "missing"}))
		if _, err := New(root); !errors.Is(err, ErrNoContainer) {
			t.Errorf("err = %v, want ErrNoContainer", err)
		}
	})
	t.Run("no template", func(t *testing.T) {
		doc := dom.NewDocument()
		doc.Mount(doc.Body(), List("items"))
		root, _ := doc.Mount(doc.Body(), vdom.Div(vdom.Form(vdom.Input())))
		if _, err := New(root, WithInsertInto("items")); !errors.Is(err, ErrMissingPart) {
			t.Errorf("err = %v, want ErrMissingPart", err)
		}
	})
}

func TestRegistryMount(t *testing.T) {
	doc := dom.NewDocument()
	doc.Mount(doc.Body(), List("items"))
	doc.Mount(doc.Body(), Markup(MarkupConfig{InsertInto: "items", SubmitTo: "lists/groceries"}))
	lb := remote.NewLoopback(doc, remote.WithAutoAck())

	r := hooks.NewRegistry(hooks.WithChannel(lb))
	r.Define(HookName, Mounter(WithMetrics(prometheus.NewRegistry())))
	if err := r.Connect(doc.Body()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	root := doc.GetElementByID("item-add")
	c, ok := Mounted(r, root)
	if !ok {
		t.Fatal("form not mounted")
	}
	if _, ok := Mounted(r, doc.Body()); ok {
		t.Error("body has no coordinator")
	}
	c.Open()
	c.Input().SetValue("Eggs")
	if _, err := c.Submit(); err != nil {
		t.Fatal(err)
	}
	if len(c.Pending()) != 1 {
		t.Fatal("expected one pending item")
	}
	doc.RunPending()
	if len(c.Pending()) != 0 {
		t.Error("auto-ack should release the item")
	}
	if n := r.Disconnect(doc.Body()); n != 1 {
		t.Errorf("Disconnect() = %d", n)
	}
}

func TestSharedRegistererMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := setup(t, MarkupConfig{}, WithMetrics(reg))
	b := setup(t, MarkupConfig{}, WithMetrics(reg))
	if a.c.metrics.releases != b.c.metrics.releases {
		t.Error("coordinators on one registerer should share collectors")
	}
}

func TestFactoryInsert(t *testing.T) {
	doc := dom.NewDocument()
	list, _ := doc.Mount(doc.Body(), List("items", Item("item-1", "Existing")))
	f := NewPendingItemFactory(nil)

	tests := []struct {
		name     string
		template *vdom.VNode
		want     string
		wantErr  error
	}{
		{
			name:     "first input",
			template: vdom.Template(vdom.Li(vdom.Input(vdom.Type("text")), vdom.Input())),
			want:     "Buy milk",
		},
		{
			name:     "tagged slot",
			template: vdom.Template(vdom.Li(vdom.Input(vdom.Ref("other")), vdom.Span(vdom.Ref(TextSlotRef)))),
			want:     "Buy milk",
		},
		{
			name:     "no slot",
			template: vdom.Template(vdom.Li(vdom.Span("placeholder"))),
			want:     "placeholder",
		},
		{
			name:     "element template",
			template: vdom.Li(vdom.Input()),
			want:     "Buy milk",
		},
		{
			name:     "two elements",
			template: vdom.Template(vdom.Li(), vdom.Li()),
			wantErr:  ErrTemplateShape,
		},
		{
			name:     "empty",
			template: vdom.Template(),
			wantErr:  ErrTemplateShape,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := doc.Render(tt.template)
			item, err := f.Insert(list, tmpl, "Buy milk")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Insert() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if list.LastElementChild() != item {
				t.Error("item should be the last child")
			}
			slot := textSlot(item)
			got := item.TextContent()
			if slot != nil && slot.Tag() == "input" {
				got = slot.Value()
			} else if slot != nil {
				got = slot.TextContent()
			}
			if got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
			if item.GetAttribute(PendingStateAttr) != StatePending {
				t.Error("item should be marked pending")
			}
		})
	}

	if list.FirstElementChild().ID() != "item-1" {
		t.Error("insert must append, never reorder")
	}

	detached := doc.CreateElement("ul")
	if _, err := f.Insert(detached, doc.Render(vdom.Li()), "x"); !errors.Is(err, ErrContainerDetached) {
		t.Errorf("detached err = %v", err)
	}
	if _, err := f.Insert(list, nil, "x"); !errors.Is(err, ErrTemplateShape) {
		t.Errorf("nil template err = %v", err)
	}
}

func TestGuard(t *testing.T) {
	tests := []struct {
		name  string
		steps func(g *SubmissionGuard) []bool
		want  []bool
	}{
		{
			name:  "dismiss without submit",
			steps: func(g *SubmissionGuard) []bool { return []bool{g.TryDismiss(), g.TryDismiss()} },
			want:  []bool{true, true},
		},
		{
			name: "one dismiss consumed per submit",
			steps: func(g *SubmissionGuard) []bool {
				g.MarkSubmitting()
				return []bool{g.TryDismiss(), g.TryDismiss()}
			},
			want: []bool{false, true},
		},
		{
			name: "marks do not stack",
			steps: func(g *SubmissionGuard) []bool {
				g.MarkSubmitting()
				g.MarkSubmitting()
				return []bool{g.TryDismiss(), g.TryDismiss()}
			},
			want: []bool{false, true},
		},
		{
			name: "reset",
			steps: func(g *SubmissionGuard) []bool {
				g.MarkSubmitting()
				g.Reset()
				return []bool{g.Submitting(), g.TryDismiss()}
			},
			want: []bool{false, true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g SubmissionGuard
			got := tt.steps(&g)
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("step %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMarkup(t *testing.T) {
	doc := dom.NewDocument()
	root, err := doc.Mount(doc.Body(), Markup(MarkupConfig{InsertInto: "items", Placeholder: "New item"}))
	if err != nil {
		t.Fatal(err)
	}
	name, cfg, err := hooks.ParseHook(root.GetAttribute(hooks.HookAttr))
	if err != nil || name != HookName || cfg["insertInto"] != "items" {
		t.Errorf("hook = %q %v %v", name, cfg, err)
	}
	if _, ok := cfg["onDismiss"]; ok {
		t.Error("empty settings should be omitted")
	}
	html := root.OuterHTML()
	for _, want := range []string{
		`<div data-hook=`,
		`id="item-add"`,
		`<form data-ref="form" hidden>`,
		`placeholder="New item"`,
		`<template data-ref="template"><li class="item">`,
		`>Add item</button>`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("markup missing %q:\n%s", want, html)
		}
	}
}

func TestStateString(t *testing.T) {
	if Idle.String() != "idle" || FormOpen.String() != "form-open" || Submitting.String() != "submitting" {
		t.Error("unexpected state names")
	}
	if State(9).String() != "State(9)" {
		t.Error("unknown state name")
	}
}
