package vtest

import (
	"slices"
	"strings"
	"testing"

	"github.com/vango-dev/optilist/internal/store"
	"github.com/vango-dev/optilist/pkg/dom"
	"github.com/vango-dev/optilist/pkg/features/hooks"
	"github.com/vango-dev/optilist/pkg/features/optimistic"
	"github.com/vango-dev/optilist/pkg/remote"
	"github.com/vango-dev/optilist/pkg/server"
)

// Form is a mounted list with an optimistic add-item form.
type Form struct {
	t testing.TB

	Doc         *dom.Document
	List        *dom.Element
	Root        *dom.Element
	Coordinator *optimistic.Coordinator
	Channel     *remote.Loopback
	Items       store.ItemStore
}

type formConfig struct {
	list   string
	markup optimistic.MarkupConfig
	opts   []optimistic.Option
	items  store.ItemStore
	server []server.Option
}

// FormOption configures a Form.
type FormOption func(*formConfig)

// WithList sets the list name. Default: "groceries".
func WithList(name string) FormOption {
	return func(c *formConfig) { c.list = name }
}

// WithMarkup edits the form markup before it is mounted.
func WithMarkup(fn func(*optimistic.MarkupConfig)) FormOption {
	return func(c *formConfig) { fn(&c.markup) }
}

// WithOptions passes options to optimistic.New.
func WithOptions(opts ...optimistic.Option) FormOption {
	return func(c *formConfig) { c.opts = append(c.opts, opts...) }
}

// WithItems sets the store behind the in-process server. Default: a
// fresh memory store.
func WithItems(items store.ItemStore) FormOption {
	return func(c *formConfig) { c.items = items }
}

// WithServerOptions passes options to the in-process server.
func WithServerOptions(opts ...server.Option) FormOption {
	return func(c *formConfig) { c.server = append(c.server, opts...) }
}

// NewForm mounts the list and form, connects the form's hook through a
// hooks.Registry and wires the coordinator to a manual loopback backed by
// an in-process server. Pushes wait until Ack, AckAll
// or Fail. Everything is closed when the test ends.
func NewForm(t testing.TB, opts ...FormOption) *Form {
	t.Helper()
	cfg := formConfig{list: "groceries", markup: optimistic.MarkupConfig{Open: true}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.markup.InsertInto == "" {
		cfg.markup.InsertInto = cfg.list
	}
	if cfg.items == nil {
		cfg.items = store.NewMemoryStore()
	}

	doc := dom.NewDocument()
	list, err := doc.Mount(doc.Body(), optimistic.List(cfg.list))
	if err != nil {
		t.Fatalf("mount list: %v", err)
	}
	root, err := doc.Mount(doc.Body(), optimistic.Markup(cfg.markup))
	if err != nil {
		t.Fatalf("mount form: %v", err)
	}

	srv := server.New(cfg.items, cfg.server...)
	lb := remote.NewLoopback(doc, remote.WithHandler(srv.LoopbackHandler(doc, optimistic.Item)))

	reg := hooks.NewRegistry(hooks.WithChannel(lb))
	reg.Define(optimistic.HookName, optimistic.Mounter(cfg.opts...))
	if err := reg.Connect(doc.Body()); err != nil {
		t.Fatalf("connect hooks: %v", err)
	}
	c, ok := optimistic.Mounted(reg, root)
	if !ok {
		t.Fatalf("no coordinator mounted on %s", root)
	}

	t.Cleanup(func() {
		reg.Disconnect(doc.Body())
		lb.Close()
		doc.Close()
	})
	return &Form{
		t:           t,
		Doc:         doc,
		List:        list,
		Root:        root,
		Coordinator: c,
		Channel:     lb,
		Items:       cfg.items,
	}
}

// Add types title into the form and submits it.
func (f *Form) Add(title string) {
	f.Coordinator.Input().TypeText(title)
	f.Coordinator.Form().RequestSubmit()
}

// AckAll acknowledges every waiting push and runs the document loop.
func (f *Form) AckAll() int {
	n := f.Channel.AckAll()
	f.Doc.RunPending()
	return n
}

// FailAll rejects every waiting push and runs the document loop.
func (f *Form) FailAll(reason string) int {
	n := 0
	for _, c := range f.Channel.Calls() {
		if f.Channel.Fail(c.Ref, reason) {
			n++
		}
	}
	f.Doc.RunPending()
	return n
}

// PendingTitles returns the titles of the pending items in order.
func (f *Form) PendingTitles() []string {
	var titles []string
	for _, el := range f.Coordinator.Pending() {
		titles = append(titles, pendingTitle(el))
	}
	return titles
}

// ItemTexts returns the text of every confirmed item in the list.
func (f *Form) ItemTexts() []string {
	pending := f.Coordinator.Pending()
	var texts []string
	for _, el := range f.List.Children() {
		if slices.Contains(pending, el) {
			continue
		}
		texts = append(texts, strings.TrimSpace(el.TextContent()))
	}
	return texts
}

// ExpectPending asserts the number of pending items.
func (f *Form) ExpectPending(n int) {
	f.t.Helper()
	if got := len(f.Coordinator.Pending()); got != n {
		f.t.Errorf("pending = %d %q, want %d", got, f.PendingTitles(), n)
	}
}

// ExpectItems asserts the confirmed item texts in order.
func (f *Form) ExpectItems(texts ...string) {
	f.t.Helper()
	got := f.ItemTexts()
	if !slices.Equal(got, texts) {
		f.t.Errorf("items = %q, want %q", got, texts)
	}
}

// ExpectState asserts the coordinator state.
func (f *Form) ExpectState(s optimistic.State) {
	f.t.Helper()
	if got := f.Coordinator.State(); got != s {
		f.t.Errorf("state = %s, want %s", got, s)
	}
}

// pendingTitle reads the title a pending item displays: the value of its
// input, or its text when it has none.
func pendingTitle(el *dom.Element) string {
	if in := el.QueryTag("input"); in != nil {
		return in.Value()
	}
	return strings.TrimSpace(el.TextContent())
}
