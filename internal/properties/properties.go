package properties

import (
	"os"
	"strings"
)

func RootPath() string {
	return os.Getenv("ROOT_PATH")
}

type Color struct {
	R, G, B uint8
}

// NNIColorMap colors a cell by nitrogen status class.
var NNIColorMap = map[string]Color{
	"deficient": {215, 48, 39},
	"low":       {252, 141, 89},
	"optimal":   {26, 152, 80},
	"excess":    {69, 117, 180},
	"unknown":   {160, 160, 160},
}

func CopernicusClientIDs() []string {
	return splitList(os.Getenv("COPERNICUS_CLIENT_ID"))
}

func CopernicusClientSecrets() []string {
	return splitList(os.Getenv("COPERNICUS_CLIENT_SECRET"))
}

func CopernicusTokenURL() string {
	return os.Getenv("COPERNICUS_TOKEN_URL")
}

func ProcessAPIURL() string {
	if url := os.Getenv("COPERNICUS_PROCESS_URL"); url != "" {
		return url
	}
	return "https://sh.dataspace.copernicus.eu/api/v1/process"
}

// ModelKind is "linear" for a local ridge artifact or "grpc" for a remote model server.
func ModelKind() string {
	if kind := os.Getenv("MODEL_KIND"); kind != "" {
		return kind
	}
	return "linear"
}

// ModelLocation is a file path for linear models and a host:port for grpc ones.
func ModelLocation() string {
	if location := os.Getenv("MODEL_LOCATION"); location != "" {
		return location
	}
	return RootPath() + "/data/model/ridge_pnc_pipeline.json"
}

func TrainingMeansPath() string {
	if path := os.Getenv("TRAINING_MEANS_PATH"); path != "" {
		return path
	}
	return RootPath() + "/data/model/feature_means.json"
}

func SettingsPath() string {
	if path := os.Getenv("SETTINGS_PATH"); path != "" {
		return path
	}
	return RootPath() + "/config.yaml"
}

func LogLevel() string {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		return level
	}
	return "info"
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}

func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
