package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/asana/internal/challenge"
	"github.com/ayusman/asana/internal/log"
	"github.com/ayusman/asana/internal/store"
)

// HookSource lists the hooks bound to an event.
type HookSource interface {
	ListEnabled(event string) ([]*store.Hook, error)
}

// Dispatcher runs plugins for challenge events. Hooks stored in the database
// take precedence; when none are bound to an event, plugins that subscribe to
// it in their manifest run their default action.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	hooks    HookSource
}

// NewDispatcher creates a Dispatcher. hooks may be nil.
func NewDispatcher(manager *Manager, executor *Executor, hooks HookSource) *Dispatcher {
	return &Dispatcher{manager: manager, executor: executor, hooks: hooks}
}

type job struct {
	plugin *Plugin
	action string
	config json.RawMessage
}

// Dispatch runs every plugin bound to ev and returns the joined errors.
// Plugins run one after another so their side effects do not overlap.
func (d *Dispatcher) Dispatch(ctx context.Context, ev challenge.Event) error {
	event := string(ev.Kind)

	jobs, err := d.jobs(event)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	params, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var errs []error
	for _, j := range jobs {
		req := &Request{Action: j.action, Event: event, Config: j.config, Params: params}
		resp, err := d.executor.Execute(ctx, j.plugin, req)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", j.plugin.Manifest.Name, j.action, err))
			continue
		}
		if !resp.Success {
			errs = append(errs, fmt.Errorf("%s/%s: %s", j.plugin.Manifest.Name, j.action, resp.Error))
			continue
		}
		log.Debug("plugin ran", "plugin", j.plugin.Manifest.Name, "action", j.action, "event", event)
	}

	return errors.Join(errs...)
}

func (d *Dispatcher) jobs(event string) ([]job, error) {
	var jobs []job

	if d.hooks != nil {
		hooks, err := d.hooks.ListEnabled(event)
		if err != nil {
			return nil, fmt.Errorf("list hooks: %w", err)
		}
		for _, h := range hooks {
			p, err := d.manager.Get(h.PluginName)
			if err != nil {
				log.Warn("hook references unknown plugin", "hook", h.ID, "plugin", h.PluginName)
				continue
			}
			jobs = append(jobs, job{plugin: p, action: h.ActionName, config: h.Config})
		}
		if len(hooks) > 0 {
			return jobs, nil
		}
	}

	for _, p := range d.manager.Subscribers(event) {
		jobs = append(jobs, job{plugin: p, action: p.DefaultAction(event), config: json.RawMessage("{}")})
	}
	return jobs, nil
}
