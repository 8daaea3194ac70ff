// Package resourcefx wires a resource.Manager and its host-call binding
// into an fx application.
package resourcefx

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/wippyai/hostres/hostcall"
	"github.com/wippyai/hostres/resource"
)

// Params are the optional dependencies of the manager.
type Params struct {
	fx.In

	Config     *resource.Config      `optional:"true"`
	Logger     *zap.Logger           `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// Module provides *resource.Manager and *hostcall.Host. The manager is
// closed when the application stops.
var Module = fx.Module("hostres",
	fx.Provide(
		ProvideManager,
		hostcall.New,
	),
	fx.Invoke(registerLifecycle),
)

// ProvideManager builds a Manager from p. Logger and Registerer override
// the corresponding Config settings when present.
func ProvideManager(p Params) *resource.Manager {
	cfg := p.Config
	if cfg == nil {
		cfg = resource.NewConfig()
	}
	if p.Logger != nil {
		cfg.WithLogger(p.Logger.Named("hostres"))
	}
	if p.Registerer != nil {
		cfg.WithRegisterer(p.Registerer)
	}
	return resource.New(cfg)
}

func registerLifecycle(lc fx.Lifecycle, m *resource.Manager) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return m.Close()
		},
	})
}
