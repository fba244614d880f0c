package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"vitals-alert/internal/config"
	"vitals-alert/internal/database"
	"vitals-alert/internal/httpapi"
	"vitals-alert/internal/metrics"
	"vitals-alert/internal/modem"
	"vitals-alert/internal/monitor"
	"vitals-alert/internal/patient"
	"vitals-alert/internal/queue"
	"vitals-alert/internal/recorder"
	"vitals-alert/internal/status"
)

const connectTimeout = 5 * time.Second

// AppContext holds every runtime dependency of the monitor and releases
// them in reverse order of acquisition.
type AppContext struct {
	Config   config.Config
	Logger   *zap.Logger
	Roster   *patient.Roster
	Driver   *modem.Driver // nil in evaluation-only mode
	Board    *status.Board
	Registry *prometheus.Registry
	Metrics  *metrics.Collector
	Sinks    *recorder.Fanout

	RedisClient  *redis.Client
	AlertHistory *recorder.RedisAlertStore
	MySQL        *database.MySQLDB
	Producer     *queue.AlertProducer
}

// InitAppContext builds the context. Only a required modem that cannot
// be opened, or an unreadable roster, is fatal; optional stores that fail
// to connect are logged and left out.
func InitAppContext(ctx context.Context, cfg config.Config, logger *zap.Logger) (*AppContext, error) {
	app := &AppContext{
		Config:   cfg,
		Logger:   logger,
		Board:    status.NewBoard(0),
		Registry: prometheus.NewRegistry(),
		Sinks:    recorder.NewFanout(logger),
	}
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Metrics = metrics.New(app.Registry)

	roster, err := loadRoster(cfg.Roster, logger)
	if err != nil {
		return nil, err
	}
	app.Roster = roster

	if err := app.openModem(); err != nil {
		return nil, err
	}

	app.initVitalSignsLog()
	app.initRedis(ctx)
	app.initMySQL(ctx)
	app.initProducer()

	return app, nil
}

// loadRoster reads the roster CSVs when asked to. On first use the files
// do not exist yet: the built-in roster is written out and used.
func loadRoster(cfg config.Roster, logger *zap.Logger) (*patient.Roster, error) {
	if !cfg.LoadFromCSV {
		return patient.DefaultRoster(), nil
	}

	roster, err := patient.LoadRosterCSV(cfg.PatientsCSV, cfg.ResponsibleCSV)
	if err == nil {
		logger.Info("roster loaded", zap.String("patients", cfg.PatientsCSV), zap.Int("count", roster.Len()))
		return roster, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	roster = patient.DefaultRoster()
	if err := patient.SaveRosterCSV(roster, cfg.PatientsCSV, cfg.ResponsibleCSV); err != nil {
		return nil, fmt.Errorf("save default roster: %w", err)
	}
	logger.Info("default roster written", zap.String("patients", cfg.PatientsCSV), zap.String("responsible", cfg.ResponsibleCSV))
	return roster, nil
}

// openModem opens the configured port. Without a port, or when opening
// fails and the modem is optional, the monitor runs evaluation-only.
func (app *AppContext) openModem() error {
	cfg := app.Config.Modem
	if cfg.PortName == "" {
		app.Logger.Warn("no modem port configured, alerts will not be transmitted")
		return nil
	}

	driver, err := modem.OpenSerial(cfg.PortName,
		modem.WithLogger(app.Logger),
		modem.WithSettleDelay(cfg.SettleDelay),
		modem.WithResponseDelay(cfg.ResponseDelay),
	)
	if err != nil {
		if cfg.Required {
			return fmt.Errorf("open modem: %w", err)
		}
		app.Logger.Warn("modem unavailable, alerts will not be transmitted", zap.Error(err))
		return nil
	}

	app.Driver = driver
	app.Board.SetModem(true, driver.PortName(), driver.State().String())
	app.Metrics.SetModemConnected(true)
	return nil
}

func (app *AppContext) initVitalSignsLog() {
	if !app.Config.Roster.LogVitalSigns {
		return
	}
	app.Sinks.AddReadingSink(recorder.NewVitalSignsLog(app.Config.Roster.VitalSignsCSV))
	app.Logger.Info("vital signs log enabled", zap.String("path", app.Config.Roster.VitalSignsCSV))
}

func (app *AppContext) initRedis(ctx context.Context) {
	cfg := app.Config.Storage
	if cfg.RedisAddr == "" {
		return
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		app.Logger.Warn("redis unavailable, alert history disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		client.Close()
		return
	}

	app.RedisClient = client
	app.AlertHistory = recorder.NewRedisAlertStore(client, cfg.Namespace, cfg.MaxKeep, cfg.TTL)
	app.Sinks.AddAlertSink(app.AlertHistory)
}

func (app *AppContext) initMySQL(ctx context.Context) {
	cfg := app.Config.Storage.MySQL
	if cfg.DSN == "" {
		return
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	db, err := database.NewMySQLDB(connectCtx, cfg, app.Logger)
	if err != nil {
		app.Logger.Warn("mysql unavailable, reading store disabled", zap.Error(err))
		return
	}
	if err := db.InitTables(connectCtx); err != nil {
		app.Logger.Warn("mysql schema init failed, reading store disabled", zap.Error(err))
		db.Close()
		return
	}

	app.MySQL = db
	store := recorder.NewMySQLReadingStore(db.DB)
	app.Sinks.AddReadingSink(store).AddAlertSink(store)
}

func (app *AppContext) initProducer() {
	cfg := app.Config.NSQ
	if cfg.ProducerAddr == "" {
		return
	}

	producer, err := queue.NewAlertProducer(cfg.ProducerAddr, cfg.Topic, app.Logger)
	if err != nil {
		app.Logger.Warn("nsq producer unavailable, alert fan-out disabled", zap.Error(err))
		return
	}
	app.Producer = producer
	app.Sinks.AddAlertSink(producer)
}

// Close releases everything. The modem is normally closed by the loop
// already; closing it again is a no-op.
func (app *AppContext) Close() {
	if app.Driver != nil {
		if err := app.Driver.Close(); err != nil {
			app.Logger.Warn("close modem failed", zap.Error(err))
		}
	}
	if app.Producer != nil {
		app.Producer.Close()
	}
	if app.MySQL != nil {
		if err := app.MySQL.Close(); err != nil {
			app.Logger.Warn("close mysql failed", zap.Error(err))
		}
	}
	if app.RedisClient != nil {
		if err := app.RedisClient.Close(); err != nil {
			app.Logger.Warn("close redis failed", zap.Error(err))
		}
	}
}

func (app *AppContext) loopOptions() []monitor.Option {
	opts := []monitor.Option{
		monitor.WithDuration(app.Config.Monitor.Duration),
		monitor.WithInterval(app.Config.Monitor.Interval),
		monitor.WithStatusBoard(app.Board),
		monitor.WithMetrics(app.Metrics),
		monitor.WithLogger(app.Logger),
		monitor.WithSummaryWriter(os.Stdout),
	}
	if app.Driver != nil {
		opts = append(opts, monitor.WithNotifier(app.Driver))
	}
	if !app.Sinks.Empty() {
		opts = append(opts, monitor.WithReadingSink(app.Sinks), monitor.WithAlertSink(app.Sinks))
	}
	return opts
}

func (app *AppContext) router() http.Handler {
	opts := httpapi.Options{
		Board:    app.Board,
		Roster:   app.Roster,
		Gatherer: app.Registry,
		Logger:   app.Logger,
	}
	if app.AlertHistory != nil {
		opts.Alerts = app.AlertHistory
	}
	return httpapi.NewRouter(opts)
}
