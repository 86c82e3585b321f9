package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yolotrainer/portal/internal/pkg/apidocs"
	"github.com/yolotrainer/portal/internal/pkg/metrics"
)

type OpsRouter struct {
	d *Dependencies
}

func NewOpsRouter(d *Dependencies) *OpsRouter {
	return &OpsRouter{d: d}
}

func (o OpsRouter) InstallRouter(app *fiber.App) {
	app.Get("/healthz", o.d.Health.HandleHealthz)

	metricsHandler := adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	if o.d.MetricsUser != "" {
		auth := basicauth.New(basicauth.Config{
			Users: map[string]string{o.d.MetricsUser: o.d.MetricsPassword},
		})
		app.Get("/metrics", auth, metricsHandler)
		app.Get("/monitor", auth, monitor.New(monitor.Config{Title: "YOLO Trainer Portal"}))
	} else {
		app.Get("/metrics", metricsHandler)
	}

	if o.d.DocsPath != "" {
		app.Use(apidocs.Handler(o.d.DocsPath))
	}
}
