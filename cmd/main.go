package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sirupsen/logrus"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"

	"github.com/Megamind2600/TimerAD/internal/core/focus"
	"github.com/Megamind2600/TimerAD/internal/log"
	loglogrus "github.com/Megamind2600/TimerAD/internal/log/logrus"
	"github.com/Megamind2600/TimerAD/internal/platform"
	"github.com/Megamind2600/TimerAD/internal/storage"
	storagememory "github.com/Megamind2600/TimerAD/internal/storage/memory"
	storagesqlite "github.com/Megamind2600/TimerAD/internal/storage/sqlite"
	"github.com/Megamind2600/TimerAD/internal/ui/floatwin"
	"github.com/Megamind2600/TimerAD/internal/ui/preferences"
	"github.com/Megamind2600/TimerAD/internal/ui/tasks"
	"github.com/Megamind2600/TimerAD/internal/ui/tray"
)

const (
	appName = "TimerAD"
	appID   = "com.timerad.app"

	// Version is the application version (set via ldflags).
	Version = "dev"
)

const (
	loggerTypeDefault = "default"
	loggerTypeJSON    = "json"
)

// cmdConfig holds the parsed command line flags.
type cmdConfig struct {
	Debug      bool
	NoLog      bool
	LoggerType string
	DBPath     string
	InMemory   bool
}

func parseFlags(args []string) (*cmdConfig, error) {
	cfg := &cmdConfig{}

	app := kingpin.New(appName, "Personal task tracker with a focus timer.")
	app.DefaultEnvars()
	app.Version(Version)

	app.Flag("debug", "Enable debug mode.").BoolVar(&cfg.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&cfg.NoLog)
	app.Flag("logger", "Logger type.").Default(loggerTypeDefault).EnumVar(&cfg.LoggerType, loggerTypeDefault, loggerTypeJSON)
	app.Flag("db-path", "Path to the task database file.").StringVar(&cfg.DBPath)
	app.Flag("memory", "Use an in-memory task store (nothing is persisted).").BoolVar(&cfg.InMemory)

	if _, err := app.Parse(args[1:]); err != nil {
		return nil, fmt.Errorf("invalid command configuration: %w", err)
	}
	return cfg, nil
}

// getLogger returns the application logger.
func getLogger(cfg cmdConfig) log.Logger {
	if cfg.NoLog {
		return log.Noop
	}

	logrusLog := logrus.New()
	logrusLog.Out = os.Stderr
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if cfg.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	switch cfg.LoggerType {
	case loggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
	})

	logger.Debugf("Debug level is enabled")

	return logger
}

func newRepository(ctx context.Context, cfg cmdConfig, logger log.Logger) (storage.Repository, func() error, error) {
	if cfg.InMemory {
		repo, err := storagememory.NewRepository(storagememory.RepositoryConfig{Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		return repo, func() error { return nil }, nil
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve user config dir: %w", err)
		}
		dbPath = filepath.Join(configDir, appName, "tasks.db")
	}

	repo, err := storagesqlite.NewRepository(ctx, storagesqlite.RepositoryConfig{
		DBPath: dbPath,
		Logger: logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return repo, repo.Close, nil
}

func run(ctx context.Context, args []string) error {
	cfg, err := parseFlags(args)
	if err != nil {
		return err
	}
	logger := getLogger(*cfg)

	guard, err := platform.AcquireSingleInstance(appName)
	if err != nil {
		return fmt.Errorf("another %s instance is already running: %w", appName, err)
	}
	defer func() {
		_ = guard.Release()
	}()

	repo, closeRepo, err := newRepository(ctx, *cfg, logger)
	if err != nil {
		return fmt.Errorf("could not open task repository: %w", err)
	}
	defer func() {
		_ = closeRepo()
	}()

	settings, err := storage.LoadSettings(appName)
	if err != nil {
		logger.Warningf("could not load settings, using defaults: %v", err)
	}

	fyneApp := app.NewWithID(appID)

	// Visibility plus idle fuse into the distraction signal the timer
	// consumes.
	focusCfg := settings.FocusConfig()
	watcherCfg := platform.VisibilityWatcherConfig{Logger: logger}
	if focusCfg.IdleAsDistraction {
		watcherCfg.Idle = platform.NewIdleProvider()
		watcherCfg.IdleAfter = focusCfg.IdleAfter
		watcherCfg.IdleCheckInterval = focusCfg.IdleCheckInterval
	}
	watcher, err := platform.NewVisibilityWatcher(watcherCfg)
	if err != nil {
		return fmt.Errorf("could not create visibility watcher: %w", err)
	}
	watcher.Start()
	defer watcher.Stop()

	lifecycle := fyneApp.Lifecycle()
	lifecycle.SetOnEnteredForeground(func() { watcher.SetForeground(true) })
	lifecycle.SetOnExitedForeground(func() { watcher.SetForeground(false) })

	surface := floatwin.New(fyneApp, floatwin.Config{
		Opacity: opacityToAlpha(settings.SurfaceOpacity),
	})

	controller, err := focus.NewController(focus.ControllerConfig{
		Store:   repo,
		Surface: surface,
		Clock:   focus.NewTickerClock(focusCfg.TickInterval),
		Signal:  watcher,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create focus controller: %w", err)
	}
	defer controller.Close()

	tasksWindow, err := tasks.New(tasks.Config{
		App:        fyneApp,
		Repository: repo,
		Controller: controller,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create task window: %w", err)
	}

	prefsWindow := preferences.New(fyneApp, settings, func(updated preferences.Settings) {
		settings = updated
		if err := storage.SaveSettings(appName, settings); err != nil {
			logger.Errorf("could not save settings: %v", err)
		}
		logger.Infof("settings saved, idle and opacity changes apply on next launch")
	})

	var trayManager *tray.Manager
	if desktopApp, ok := fyneApp.(desktop.App); ok {
		trayManager = tray.New(desktopApp, tray.Callbacks{
			OnShowTasks:   tasksWindow.Show,
			OnPreferences: prefsWindow.Show,
			OnStopFocus:   controller.Stop,
			OnQuit:        fyneApp.Quit,
		})
	} else {
		logger.Warningf("system tray unsupported on this platform")
	}

	events := controller.Subscribe(16)
	go func() {
		for event := range events {
			handleFocusEvent(event, tasksWindow, trayManager)
		}
	}()

	go tasksWindow.Reload()
	tasksWindow.Show()
	fyneApp.Run()
	return nil
}

func handleFocusEvent(event focus.Event, tasksWindow *tasks.Window, trayManager *tray.Manager) {
	switch event.Type {
	case focus.EventSessionStarted:
		tasksWindow.RefreshFocusState()
		if trayManager != nil {
			setTrayFocus(trayManager, true, "focusing on "+event.TaskTitle)
		}
	case focus.EventSessionStopped, focus.EventSessionError:
		tasksWindow.RefreshFocusState()
		tasksWindow.Reload()
		if trayManager != nil {
			setTrayFocus(trayManager, false, "idle")
		}
	case focus.EventTick:
		tasksWindow.ApplyTaskCounters(event.TaskID, event.TimeSpent, event.DistractionTime)
	case focus.EventDistractionChange:
		if trayManager != nil && event.Distracted {
			setTrayFocus(trayManager, true, "distracted from "+event.TaskTitle)
		} else if trayManager != nil {
			setTrayFocus(trayManager, true, "focusing on "+event.TaskTitle)
		}
	}
}

func setTrayFocus(trayManager *tray.Manager, active bool, status string) {
	trayManager.SetFocusActive(active)
	trayManager.SetStatus(status)
}

func opacityToAlpha(opacity float64) uint8 {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	return uint8(opacity * 255)
}

func main() {
	if err := run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
