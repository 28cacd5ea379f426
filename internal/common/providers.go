package common

// Provider name constants for consistent naming across the application
const (
	// ProviderOSM is the cache and rate-limit identifier for OpenStreetMap raster tiles
	ProviderOSM = "openstreetmap"

	// ProviderNominatim identifies the geocoding service
	ProviderNominatim = "nominatim"

	// ProviderRSS2JSON identifies the feed conversion service
	ProviderRSS2JSON = "rss2json"

	// ProviderOpenWeather identifies the temperature data service
	ProviderOpenWeather = "openweathermap"

	// DisplayNameOSM is the human-readable name shown in the UI
	DisplayNameOSM = "OpenStreetMap"
)

// DisplayName returns the human-readable name of a provider identifier
func DisplayName(provider string) string {
	switch provider {
	case ProviderOSM:
		return DisplayNameOSM
	case ProviderNominatim:
		return "Nominatim"
	case ProviderRSS2JSON:
		return "rss2json"
	case ProviderOpenWeather:
		return "OpenWeatherMap"
	default:
		return provider
	}
}
