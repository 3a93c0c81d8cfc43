package experiment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/reach/internal/arm"
	"github.com/san-kum/reach/internal/config"
	"github.com/san-kum/reach/internal/control"
	"github.com/san-kum/reach/internal/dynamo"
	"github.com/san-kum/reach/internal/integrators"
)

var ErrUnknown = errors.New("experiment: unknown component")

// ControllerFactory builds a controller for the given arm.
type ControllerFactory func(link *arm.OneLink, gains config.GainsConfig, dt float64) control.Controller

type Registry struct {
	integrators map[string]func() dynamo.Integrator
	controllers map[string]ControllerFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
		controllers: make(map[string]ControllerFactory),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }
	r.integrators["verlet"] = func() dynamo.Integrator { return integrators.NewVerlet() }

	r.controllers["osc"] = func(link *arm.OneLink, g config.GainsConfig, dt float64) control.Controller {
		return control.NewOSC(link, g.Kp, g.Kv)
	}
	r.controllers["floating"] = func(link *arm.OneLink, g config.GainsConfig, dt float64) control.Controller {
		return control.NewFloating(link)
	}
	r.controllers["joint"] = func(link *arm.OneLink, g config.GainsConfig, dt float64) control.Controller {
		return control.NewJoint(link, link, g.Kp, g.Ki, g.Kv, dt)
	}

	return r
}

// RegisterController adds or replaces a controller factory.
func (r *Registry) RegisterController(name string, fn ControllerFactory) {
	r.controllers[name] = fn
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("%w: integrator %q", ErrUnknown, name)
	}
	return fn(), nil
}

func (r *Registry) GetController(name string, link *arm.OneLink, gains config.GainsConfig, dt float64) (control.Controller, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("%w: controller %q", ErrUnknown, name)
	}
	return fn(link, gains, dt), nil
}

func (r *Registry) ListIntegrators() []string {
	return sortedKeys(r.integrators)
}

func (r *Registry) ListControllers() []string {
	return sortedKeys(r.controllers)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
