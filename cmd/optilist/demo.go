package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/optilist/internal/config"
	"github.com/vango-dev/optilist/internal/errors"
	"github.com/vango-dev/optilist/internal/store"
	"github.com/vango-dev/optilist/pkg/dom"
	"github.com/vango-dev/optilist/pkg/features/hooks"
	"github.com/vango-dev/optilist/pkg/features/optimistic"
	"github.com/vango-dev/optilist/pkg/remote"
	"github.com/vango-dev/optilist/pkg/server"
)

type demoOptions struct {
	url     string
	list    string
	offline bool
	timeout time.Duration
	html    bool
	verbose bool
}

func demoCmd(load loader) *cobra.Command {
	var o demoOptions

	cmd := &cobra.Command{
		Use:   "demo [title...]",
		Short: "Add items through the optimistic form",
		Long: `Add items through a headless optimistic add-item form.

Each title is typed into the form and submitted. The item shows up as
a pending row at once and is replaced when the server confirms it.
With --offline the server runs in-process on an in-memory store.

Examples:
  optilist demo "Buy milk" Eggs
  optilist demo --url ws://localhost:9000/live --list chores Laundry
  optilist demo --offline --html Bread`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if o.url == "" {
				o.url = cfg.Client.URL
			}
			if o.list == "" {
				o.list = cfg.Client.List
			}
			logger, err := newLogger(cfg, o.verbose)
			if err != nil {
				return err
			}
			doc := dom.NewDocument(dom.WithLogger(logger))
			defer doc.Close()
			return runDemo(cmd.Context(), cmd.OutOrStdout(), doc, cfg, o, args)
		},
	}

	cmd.Flags().StringVarP(&o.url, "url", "u", "", "Server WebSocket URL (default from config)")
	cmd.Flags().StringVarP(&o.list, "list", "l", "", "List to add to (default from config)")
	cmd.Flags().BoolVar(&o.offline, "offline", false, "Run the server in-process")
	cmd.Flags().DurationVarP(&o.timeout, "timeout", "t", 10*time.Second, "How long to wait for confirmations")
	cmd.Flags().BoolVar(&o.html, "html", false, "Print the list markup")
	cmd.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "Log at debug level")

	return cmd
}

func runDemo(ctx context.Context, out io.Writer, doc *dom.Document, cfg *config.Config, o demoOptions, titles []string) error {
	list, err := doc.Mount(doc.Body(), optimistic.List(o.list))
	if err != nil {
		return err
	}
	root, err := doc.Mount(doc.Body(), optimistic.Markup(optimistic.MarkupConfig{
		InsertInto: o.list,
		Open:       true,
	}))
	if err != nil {
		return err
	}

	var ch remote.Channel
	if o.offline {
		lb := offlineChannel(doc)
		defer lb.Close()
		ch = lb
	} else {
		cc := remote.DefaultClientConfig()
		cc.DialTimeout = cfg.Client.DialTimeout.Std()
		cc.HeartbeatInterval = cfg.Client.HeartbeatInterval.Std()
		client, err := remote.Dial(ctx, o.url, doc,
			remote.WithClientConfig(cc),
			remote.WithClientLogger(doc.Logger()),
			remote.WithPatchHandler(remote.PatchApplier(doc, optimistic.Item)))
		if err != nil {
			return errors.New("E202").WithDetail(fmt.Sprintf("%s: %v", o.url, err)).Wrap(err)
		}
		defer client.Close()
		ch = client
	}

	reg := hooks.NewRegistry(hooks.WithChannel(ch), hooks.WithLogger(doc.Logger()))
	reg.Define(optimistic.HookName, optimistic.Mounter(
		optimistic.WithLogger(doc.Logger()),
		optimistic.WithStaleAfter(cfg.Client.StaleAfter.Std())))
	if err := reg.Connect(doc.Body()); err != nil {
		return err
	}
	defer reg.Disconnect(doc.Body())
	c, ok := optimistic.Mounted(reg, root)
	if !ok {
		return fmt.Errorf("no %s hook mounted on %s", optimistic.HookName, root)
	}

	for _, title := range titles {
		c.Input().TypeText(title)
		c.Form().RequestSubmit()
	}
	info("%d pending", len(c.Pending()))

	if err := awaitConfirmed(ctx, doc, c, o.timeout); err != nil {
		return err
	}
	success("%d confirmed", len(titles))

	if o.html {
		fmt.Fprintln(out, list.OuterHTML())
		return nil
	}
	for _, li := range list.Children() {
		fmt.Fprintf(out, "%s\t%s\n", li.ID(), li.TextContent())
	}
	return nil
}

// awaitConfirmed runs the document loop until no item is pending.
func awaitConfirmed(ctx context.Context, doc *dom.Document, c *optimistic.Coordinator, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	for {
		doc.RunPending()
		n := len(c.Pending())
		if n == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.New("E203").WithDetail(fmt.Sprintf("%d items still pending after %s", n, timeout))
		case <-tick.C:
		}
	}
}

// offlineChannel serves pushes with an in-process server over a memory
// store.
func offlineChannel(doc *dom.Document) *remote.Loopback {
	srv := server.New(store.NewMemoryStore(), server.WithLogger(doc.Logger()))
	return remote.NewLoopback(doc,
		remote.WithAutoAck(),
		remote.WithLoopbackLogger(doc.Logger()),
		remote.WithHandler(srv.LoopbackHandler(doc, optimistic.Item)))
}
