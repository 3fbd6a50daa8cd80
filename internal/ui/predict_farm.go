package ui

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/harvest-ai/nni-research-cli/internal/delivery"
	"github.com/harvest-ai/nni-research-cli/internal/notification"
	"github.com/harvest-ai/nni-research-cli/output"
)

// PredictFarm handles the UI for predicting every field of a farm
func PredictFarm(s *Session) {
	PrintWarning("- A '.geojson' file with the farm name should be present in data/geojsons folder.\n- Every field of the farm is evaluated, failed fields are reported at the end.")

	engine, err := s.Engine()
	if err != nil {
		PrintError(fmt.Sprintf("Error loading model: %s", err.Error()))
		return
	}

	PrintInfo("Available farms: ")
	ListFarms()
	farm := ReadString("Enter the farm name: ")
	if farm == "" {
		PrintError("farm name cannot be empty")
		return
	}

	settings, err := ReadRequestSettings(s.Settings)
	if err != nil {
		PrintError(err.Error())
		return
	}
	params, err := delivery.ParamsFromSettings(settings)
	if err != nil {
		PrintError(err.Error())
		return
	}

	result, err := s.Pipeline.EvaluateFarm(context.Background(), farm, params, engine, delivery.DryMatterFromSettings(settings), settings.Processing.Workers)
	if err != nil {
		PrintError(fmt.Sprintf("Error evaluating farm: %s", err.Error()))
		return
	}

	resultPath, err := CreateResultDirectory(farm, "nni")
	if err != nil {
		PrintError(err.Error())
		return
	}
	for _, field := range result.Fields {
		basePath := filepath.Join(resultPath, fmt.Sprintf("%s_%s_%s", farm, field.Field.ID, settings.Imagery.DateEnd))
		if _, err := output.SaveAll(field.Result, basePath); err != nil {
			PrintError(fmt.Sprintf("Error creating result files for field %s: %s", field.Field.ID, err.Error()))
		}
	}

	for _, failure := range result.Failures {
		PrintError(failure.Error())
	}
	message := fmt.Sprintf("Farm %s: %d fields evaluated, %d failed\nResults located at: %s", farm, len(result.Fields), len(result.Failures), resultPath)
	if len(result.Failures) > 0 {
		notification.SendDiscordErrorNotification(fmt.Sprintf("NNI CLI\n\n%s", message))
	} else {
		notification.SendDiscordSuccessNotification(fmt.Sprintf("NNI CLI\n\n%s", message))
	}
	PrintSuccess(message)
}
