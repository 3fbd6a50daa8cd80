package main

import (
	"fmt"

	"github.com/harvest-ai/nni-research-cli/internal/delivery"
	"github.com/harvest-ai/nni-research-cli/internal/notification"
	"github.com/harvest-ai/nni-research-cli/output"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newFarmCmd(settingsPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "farm <name>",
		Short: "Predict the NNI grid of every field in data/geojsons/<name>.geojson",
		Args:  cobra.ExactArgs(1),
	}
	request := addRequestFlags(cmd, settingsPath)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		farm := args[0]
		settings, params, err := request.params(cmd)
		if err != nil {
			return err
		}
		engine, err := loadEngine()
		if err != nil {
			return fmt.Errorf("failed to load model: %w", err)
		}

		result, err := newPipeline(settings).EvaluateFarm(cmd.Context(), farm, params, engine, delivery.DryMatterFromSettings(settings), settings.Processing.Workers)
		if err != nil {
			return err
		}

		for _, field := range result.Fields {
			base := output.ResultPath(fmt.Sprintf("%s_%s_%s", farm, field.Field.ID, settings.Imagery.DateEnd), "")
			if _, err := output.SaveAll(field.Result, base); err != nil {
				log.WithField("field", field.Field.ID).WithError(err).Error("[Output] failed to write results")
			}
		}
		for _, failure := range result.Failures {
			log.WithField("field", failure.FieldID).Error(failure.Err)
		}

		message := fmt.Sprintf("Farm %s: %d fields evaluated, %d failed", farm, len(result.Fields), len(result.Failures))
		fmt.Println(message)
		if len(result.Failures) > 0 {
			if err := notification.SendDiscordErrorNotification(message); err != nil {
				log.WithError(err).Warn("[Notification] failed to notify")
			}
			return fmt.Errorf("%d of %d fields failed", len(result.Failures), len(result.Failures)+len(result.Fields))
		}
		if err := notification.SendDiscordSuccessNotification(message); err != nil {
			log.WithError(err).Warn("[Notification] failed to notify")
		}
		return nil
	}
	return cmd
}
