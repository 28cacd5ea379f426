package main

import (
	"fmt"

	"go.uber.org/zap"

	"globe-desktop/internal/config"
)

// ===================
// Settings Management
// ===================

// GetSettings returns current user settings
func (a *App) GetSettings() (*config.Settings, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// copy so the frontend cannot mutate live state
	settingsCopy := *a.settings
	return &settingsCopy, nil
}

// SaveSettings validates and saves settings. Tile source, cache and zoom
// changes apply on next restart.
func (a *App) SaveSettings(settings *config.Settings) error {
	if settings == nil {
		return fmt.Errorf("settings cannot be nil")
	}
	if settings.CacheMaxSizeMB <= 0 {
		return fmt.Errorf("cache size must be positive")
	}
	if settings.CacheTTLDays <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if settings.OverlayRefreshMins <= 0 {
		return fmt.Errorf("overlay refresh interval must be positive")
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// keep the install's analytics identity
	settings.AnalyticsID = a.settings.AnalyticsID
	if err := config.SaveSettings(settings); err != nil {
		return err
	}
	a.settings = settings
	a.log.Info("[App] settings saved; tile and cache settings apply on next restart",
		zap.String("path", config.GetSettingsPath()))
	return nil
}

// GetSettingsPath returns the settings file path
func (a *App) GetSettingsPath() string {
	return config.GetSettingsPath()
}

// ResetSettings restores defaults and saves them
func (a *App) ResetSettings() (*config.Settings, error) {
	defaults := config.DefaultSettings()
	if err := a.SaveSettings(defaults); err != nil {
		return nil, err
	}
	return a.GetSettings()
}
