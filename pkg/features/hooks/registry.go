package hooks

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/vango-dev/optilist/pkg/dom"
)

// Instance is a mounted hook.
type Instance interface {
	Close()
}

// MountFunc mounts the hook declared on el with its parsed config.
// The options carry the registry's channel and logger.
type MountFunc func(el *dom.Element, config map[string]any, opts ...Option) (Instance, error)

// Registry maps hook names to mount functions and tracks mounted elements.
type Registry struct {
	mu      sync.Mutex
	defs    map[string]MountFunc
	mounted map[*dom.Element]Instance
	opts    []Option
	logger  *slog.Logger
}

// NewRegistry creates a registry. opts are handed to every mount.
func NewRegistry(opts ...Option) *Registry {
	cfg := bindConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry{
		defs:    make(map[string]MountFunc),
		mounted: make(map[*dom.Element]Instance),
		opts:    opts,
		logger:  cfg.logger.With("component", "hooks.registry"),
	}
}

// Define registers mount under name, replacing any previous definition.
func (r *Registry) Define(name string, mount MountFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[name] = mount
}

// Names returns the defined hook names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Connect mounts every element under root (root included) that declares a
// hook and is not mounted yet. Failures do not stop the walk; they are
// joined into the returned error.
func (r *Registry) Connect(root *dom.Element) error {
	var targets []*dom.Element
	if root.HasAttribute(HookAttr) {
		targets = append(targets, root)
	}
	targets = append(targets, root.QueryAttr(HookAttr)...)

	var errs []error
	for _, el := range targets {
		if err := r.mount(el); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) mount(el *dom.Element) error {
	r.mu.Lock()
	if _, ok := r.mounted[el]; ok {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	name, config, err := ParseHook(el.GetAttribute(HookAttr))
	if err != nil {
		return &BindError{Hook: name, Element: el.String(), Err: err}
	}

	r.mu.Lock()
	mount, ok := r.defs[name]
	r.mu.Unlock()
	if !ok {
		return &BindError{Hook: name, Element: el.String(), Err: ErrUnknownHook}
	}

	opts := append([]Option{WithName(name)}, r.opts...)
	inst, err := mount(el, config, opts...)
	if err != nil {
		var be *BindError
		if errors.As(err, &be) {
			return err
		}
		return &BindError{Hook: name, Element: el.String(), Err: err}
	}

	r.mu.Lock()
	r.mounted[el] = inst
	r.mu.Unlock()
	r.logger.Debug("hook mounted", "hook", name, "element", el.String())
	return nil
}

// Disconnect closes the instances mounted on root or its descendants and
// returns how many were closed.
func (r *Registry) Disconnect(root *dom.Element) int {
	r.mu.Lock()
	var closing []Instance
	for el, inst := range r.mounted {
		if root.Contains(el) {
			closing = append(closing, inst)
			delete(r.mounted, el)
		}
	}
	r.mu.Unlock()

	for _, inst := range closing {
		inst.Close()
	}
	return len(closing)
}

// Mounted returns the instance mounted on el, if any.
func (r *Registry) Mounted(el *dom.Element) (Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.mounted[el]
	return inst, ok
}

// String describes the registry for logs.
func (r *Registry) String() string {
	return fmt.Sprintf("hooks.Registry(%d defined, %d mounted)", len(r.Names()), r.count())
}

func (r *Registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mounted)
}
