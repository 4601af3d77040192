package app

import (
	"context"
	"fmt"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/middleware"

	"github.com/dineinclub/slipd/internal/device"
	"github.com/dineinclub/slipd/internal/events"
	slipdmongo "github.com/dineinclub/slipd/internal/mongo"
	"github.com/dineinclub/slipd/internal/printing"
	"github.com/dineinclub/slipd/pkg"
)

const (
	AppName    = "slipd"
	AppVersion = "0.1.0"
)

// App encapsulates the slip dispatch service.
type App struct {
	config *aqm.Config
	logger aqm.Logger
	micro  *aqm.Micro
}

func New(config *aqm.Config, logger aqm.Logger) (*App, error) {
	return &App{
		config: config,
		logger: logger,
	}, nil
}

// Initialize builds the dependency graph: order store, printer routing,
// device sink, dispatcher, trigger engine, event source and the
// diagnostics HTTP surface.
func (a *App) Initialize(ctx context.Context) error {
	triggerField := a.config.GetStringOrDef("print.trigger.field", "payment_status")
	triggerValue := a.config.GetStringOrDef("print.trigger.value", "paid")

	orderRepo := slipdmongo.NewOrderRepo(a.config, triggerField, triggerValue, a.logger)

	defaultPrinter, _ := a.config.GetString("print.default")
	if defaultPrinter == "" {
		return fmt.Errorf("print.default is required")
	}

	routeSpec, _ := a.config.GetString("print.routes")
	overrides, err := printing.ParseRoutes(routeSpec)
	if err != nil {
		return fmt.Errorf("cannot parse print.routes: %w", err)
	}
	routes := printing.NewPrinterRoutes(overrides, defaultPrinter)

	sink := device.NewTCPSink(a.printerAddrs(routes), a.logger)

	shop := printing.ShopInfo{
		Name:    a.config.GetStringOrDef("shop.name", "Dine-In Club"),
		Address: a.config.GetStringOrDef("shop.address", ""),
		Phone:   a.config.GetStringOrDef("shop.phone", ""),
	}

	drawer := a.config.GetStringOrDef("print.drawer", "false") == "true"
	alert := a.config.GetStringOrDef("print.alert", "false") == "true"
	autoPrint := a.config.GetStringOrDef("print.auto", "true") == "true"

	natsURL := a.config.GetStringOrDef("nats.url", "nats://localhost:4222")
	publisher, err := pkg.NewNATSPublisher(natsURL)
	if err != nil {
		return fmt.Errorf("cannot connect to NATS publisher: %w", err)
	}
	subscriber, err := pkg.NewNATSSubscriber(natsURL)
	if err != nil {
		return fmt.Errorf("cannot connect to NATS subscriber: %w", err)
	}

	dispatcher := printing.NewDispatcher(shop, routes, sink, drawer, a.logger)
	ledger := printing.NewLedger(printing.DefaultLedgerCapacity)
	engine := printing.NewTriggerEngine(printing.TriggerDeps{
		Store:      orderRepo,
		Dispatcher: dispatcher,
		Ledger:     ledger,
		Publisher:  publisher,
	}, triggerValue, alert, a.logger)

	var source *events.Source
	if autoPrint {
		source = events.NewSource(orderRepo, engine, a.logger)
	} else {
		a.logger.Info("auto print disabled, serving manual print requests only")
	}

	reprintSub := events.NewPrintRequestSubscriber(subscriber, engine, a.logger)

	deps := printing.HandlerDeps{
		Engine:  engine,
		Routes:  routes,
		Ledger:  ledger,
		Devices: sink,
	}
	if source != nil {
		deps.Source = source
	}
	handler := printing.NewHandler(deps, a.config, a.logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      a.logger,
		DisableCORS: true,
	})
	stack = append(stack, middleware.InternalOnly())

	lifecycles := []interface{}{orderRepo, reprintSub}
	if source != nil {
		lifecycles = append(lifecycles, source)
	}
	lifecycles = append(lifecycles,
		aqm.LifecycleHooks{OnStop: func(context.Context) error { return publisher.Close() }},
		aqm.LifecycleHooks{OnStop: func(context.Context) error { return subscriber.Close() }},
	)

	options := []aqm.Option{
		aqm.WithConfig(a.config),
		aqm.WithLogger(a.logger),
		aqm.WithHTTPMiddleware(stack...),
		aqm.WithHTTPServerModules("web.port", handler),
		aqm.WithLifecycle(lifecycles...),
		aqm.WithHealthChecks(AppName),
	}

	a.micro = aqm.NewMicro(options...)
	return nil
}

// printerAddrs builds the name-to-address table for every printer the
// routing can resolve to. Printers without an explicit address default to
// raw port 9100 on a host of the same name.
func (a *App) printerAddrs(routes *printing.PrinterRoutes) map[string]string {
	addrs := make(map[string]string)
	for printer := range routes.Destinations() {
		addrs[printer] = a.config.GetStringOrDef("printers."+printer+".addr", printer+":9100")
	}
	return addrs
}

// Run starts the service and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)
	if err := a.micro.Run(ctx); err != nil {
		return err
	}
	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return nil
}
