package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/harvest-ai/nni-research-cli/internal/cache"
	"github.com/harvest-ai/nni-research-cli/internal/dataset"
	"github.com/harvest-ai/nni-research-cli/internal/delivery"
	"github.com/harvest-ai/nni-research-cli/internal/ml"
	"github.com/harvest-ai/nni-research-cli/internal/notification"
	"github.com/harvest-ai/nni-research-cli/internal/properties"
	"github.com/harvest-ai/nni-research-cli/internal/sentinel"
	"github.com/harvest-ai/nni-research-cli/internal/ui"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func printBanner() {
	figure1 := figure.NewFigure("NNI", "isometric1", true)
	figure2 := figure.NewFigure("CLI", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan(figure2.String())
	fmt.Println()
}

func loadEnv() {
	for _, path := range []string{"../../.env", "../.env", ".env"} {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
	fmt.Printf("\033[33mNo .env file found, using the process environment\033[0m\n")
}

func setupLogging() {
	level, err := log.ParseLevel(properties.LogLevel())
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

func newPipeline(settings *properties.Settings) *delivery.Pipeline {
	var featureCache cache.CacheService[*dataset.FeatureMatrix]
	if settings.Processing.CacheFeatures {
		featureCache = cache.NewFileCache[*dataset.FeatureMatrix](cache.DataDir("features"))
	}
	return delivery.NewPipeline(sentinel.NewProcessAPIProvider(), featureCache)
}

func loadEngine() (*ml.Engine, error) {
	model, err := ml.LoadModel(properties.ModelKind(), properties.ModelLocation())
	if err != nil {
		return nil, err
	}
	means, err := ml.LoadTrainingMeans(properties.TrainingMeansPath())
	if err != nil {
		return nil, err
	}
	return ml.NewEngine(model, means)
}

// reportPanic prints where the CLI crashed and forwards the stack to the error webhook.
func reportPanic() {
	r := recover()
	if r == nil {
		return
	}
	pc, file, line, ok := runtime.Caller(3)
	location := "Unknown location"
	if ok {
		location = fmt.Sprintf("%s:%d in %s", file, line, runtime.FuncForPC(pc).Name())
	}

	fmt.Printf("\n\033[31mPANIC: %v\033[0m\n", r)
	fmt.Printf("\033[31mLocation: %s\033[0m\n", location)
	fmt.Printf("\033[31mPlease check the input and try again.\033[0m\n")

	errMessage := fmt.Sprintf("NNI CLI panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, debug.Stack())
	if err := notification.SendDiscordErrorNotification(errMessage); err != nil {
		fmt.Printf("\033[31mFailed to send notification: %s\033[0m\n", err.Error())
	}
	os.Exit(2)
}

func newRootCmd() *cobra.Command {
	var settingsPath string

	root := &cobra.Command{
		Use:           "nni",
		Short:         "Field nitrogen nutrition index from Sentinel-2 composites",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := properties.LoadSettings(settingsPath)
			if err != nil {
				return err
			}
			printBanner()
			ui.ShowMenu(&ui.Session{
				Pipeline:   newPipeline(settings),
				Settings:   settings,
				LoadEngine: loadEngine,
			})
			return nil
		},
	}
	root.PersistentFlags().StringVar(&settingsPath, "config", properties.SettingsPath(), "request defaults file")

	root.AddCommand(
		newPredictCmd(&settingsPath),
		newFarmCmd(&settingsPath),
		newCompositeCmd(&settingsPath),
		newServeModelCmd(),
	)
	return root
}

func main() {
	defer reportPanic()

	loadEnv()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Printf("\033[31mError: %s\033[0m\n", err.Error())
		os.Exit(1)
	}
}
