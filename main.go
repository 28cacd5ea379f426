package main

import (
	"context"
	"embed"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"go.uber.org/zap"

	"globe-desktop/internal/cache"
	"globe-desktop/internal/config"
	"globe-desktop/internal/logger"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	if err := run(); err != nil {
		logger.Log.Error("fatal", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run() error {
	config.ParseFlags()

	settings, err := config.LoadSettings()
	loadErr := err
	if err != nil {
		settings = config.DefaultSettings()
	}
	config.ApplyFlags(settings)

	logFile := settings.LogFile
	if logFile == "" {
		logFile = filepath.Join(filepath.Dir(config.GetSettingsDir()), "logs", "globe-desktop.log")
	}
	if err := logger.Init(settings.LogLevel, logFile); err != nil {
		return err
	}
	defer logger.Sync()

	log := logger.Named("main")
	if loadErr != nil {
		log.Warn("failed to load settings, using defaults", zap.Error(loadErr))
	}
	log.Info("settings loaded", zap.String("path", config.GetSettingsPath()))

	if settings.AnalyticsID == "" {
		settings.AnalyticsID = uuid.NewString()
		if err := config.SaveSettings(settings); err != nil {
			log.Warn("failed to save settings", zap.Error(err))
		}
	}

	app, err := NewApp(settings, cache.GetCacheDir())
	if err != nil {
		return err
	}
	if err := app.StartServer(); err != nil {
		return err
	}

	return wails.Run(&options.App{
		Title:  "Globe Desktop",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 0, G: 0, B: 0, A: 1},
		OnStartup:        app.startup,
		OnShutdown: func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			app.shutdown(ctx)
		},
		Bind: []interface{}{
			app,
		},
	})
}
