package mount

import (
	"fmt"
	"log/slog"

	"subroute/internal/domain/route"
	"subroute/internal/infra/routefile"
	"subroute/internal/usecase/subrouter"
)

// ControllerFactory returns the controller for the named router.
type ControllerFactory func(router string) route.Controller

// Service builds sub-routers from a routes file.
type Service struct {
	deps        subrouter.Deps
	controllers ControllerFactory
	logger      *slog.Logger
}

// NewService creates a mount service. A nil factory mounts every router
// with LoggingController.
func NewService(deps subrouter.Deps, controllers ControllerFactory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if controllers == nil {
		controllers = func(router string) route.Controller {
			return LoggingController(router, logger)
		}
	}
	return &Service{deps: deps, controllers: controllers, logger: logger}
}

// Mount constructs the routers of file in order and adds them to reg. The
// first failure stops mounting.
func (s *Service) Mount(file *routefile.File, reg *subrouter.Registry) error {
	if file == nil {
		return nil
	}
	for _, r := range file.Routers {
		def := subrouter.Definition{
			Prefix:                    r.Prefix,
			Controller:                s.controllers(r.Name),
			CreateTrailingSlashRoutes: r.TrailingSlashRoutes,
			Routes:                    r.Routes,
		}
		sr, err := subrouter.New(def, s.deps, "")
		if err != nil {
			return fmt.Errorf("mount router %q: %w", r.Name, err)
		}
		if err := reg.Add(r.Name, sr); err != nil {
			return err
		}
		pattern, dispatched := sr.InitialDispatch()
		s.logger.Info("router mounted",
			"router", r.Name,
			"prefix", sr.Prefix(),
			"routes", sr.Table().Len(),
			"dispatched", dispatched,
			"pattern", pattern,
		)
	}
	return nil
}

// LoggingController resolves every handler name to an action that logs the
// call.
func LoggingController(router string, logger *slog.Logger) route.Controller {
	return route.ControllerFunc(func(name string) (route.Action, bool) {
		return func(call route.Call) error {
			params := make(map[string]string, len(call.Names))
			for _, n := range call.Names {
				params[n] = call.Param(n)
			}
			logger.Info("route action",
				"router", router,
				"handler", name,
				"pattern", call.Pattern,
				"location", call.Location,
				"params", params,
				"query", call.Query,
			)
			return nil
		}, true
	})
}
