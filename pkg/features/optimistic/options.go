package optimistic

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/optilist/pkg/dom"
	"github.com/vango-dev/optilist/pkg/features/hooks"
	"github.com/vango-dev/optilist/pkg/remote"
)

// DefaultEvent is the event name of the create command.
const DefaultEvent = "create"

// Option configures a Coordinator.
type Option func(*config)

type config struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	channel    remote.Channel
	hookOpts   []hooks.Option
	container  *dom.Element
	insertInto string
	target     string
	event      string
	onDismiss  string
	staleAfter time.Duration
}

func defaultConfig() config {
	return config{
		logger: slog.Default(),
		event:  DefaultEvent,
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics registers the coordinator's metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *config) { c.registerer = reg }
}

// WithChannel sets the channel create commands are pushed on.
func WithChannel(ch remote.Channel) Option {
	return func(c *config) { c.channel = ch }
}

// WithHookOptions passes options through to hooks.Bind.
func WithHookOptions(opts ...hooks.Option) Option {
	return func(c *config) { c.hookOpts = append(c.hookOpts, opts...) }
}

// WithContainer sets the list pending items are appended to.
func WithContainer(el *dom.Element) Option {
	return func(c *config) { c.container = el }
}

// WithInsertInto names the list pending items are appended to by id.
func WithInsertInto(id string) Option {
	return func(c *config) { c.insertInto = id }
}

// WithTarget sets the target of the create command.
func WithTarget(target string) Option {
	return func(c *config) { c.target = target }
}

// WithEvent sets the event name of the create command.
func WithEvent(event string) Option {
	return func(c *config) {
		if event != "" {
			c.event = event
		}
	}
}

// WithOnDismiss sets a command run after the form is dismissed, in the
// syntax of hooks.Binding.Exec.
func WithOnDismiss(cmd string) Option {
	return func(c *config) { c.onDismiss = cmd }
}

// WithStaleAfter marks an item still pending after d as stale.
// Zero disables the check.
func WithStaleAfter(d time.Duration) Option {
	return func(c *config) { c.staleAfter = d }
}
