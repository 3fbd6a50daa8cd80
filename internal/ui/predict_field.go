package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/harvest-ai/nni-research-cli/internal/delivery"
	"github.com/harvest-ai/nni-research-cli/internal/notification"
	"github.com/harvest-ai/nni-research-cli/internal/sentinel"
	"github.com/harvest-ai/nni-research-cli/output"
)

// PredictField handles the UI for predicting the NNI grid of one field
func PredictField(s *Session) {
	PrintWarning("- A '.geojson' file with the farm name should be present in data/geojsons folder.\n- The '.geojson' file should contain the desired field in its features identified by field_id.")

	engine, err := s.Engine()
	if err != nil {
		PrintError(fmt.Sprintf("Error loading model: %s", err.Error()))
		return
	}

	farm, fieldID, err := ReadFarmAndField()
	if err != nil {
		PrintError(err.Error())
		return
	}
	polygon, err := sentinel.GetFieldPolygon(farm, fieldID)
	if err != nil {
		PrintError(err.Error())
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

	field := sentinel.Field{Farm: farm, ID: fieldID, Polygon: polygon}
	result, err := s.Pipeline.EvaluateField(context.Background(), field, params, engine, delivery.DryMatterFromSettings(settings))
	if err != nil {
		PrintError(fmt.Sprintf("Error evaluating field: %s", err.Error()))
		notification.SendDiscordErrorNotification(fmt.Sprintf("NNI CLI\n\nError evaluating field %s/%s: %s", farm, fieldID, err.Error()))
		return
	}

	resultPath, err := CreateResultDirectory(farm, "nni")
	if err != nil {
		PrintError(err.Error())
		return
	}
	basePath := filepath.Join(resultPath, fmt.Sprintf("%s_%s_%s", farm, fieldID, settings.Imagery.DateEnd))
	paths, err := output.SaveAll(result.Result, basePath)
	if err != nil {
		PrintError(fmt.Sprintf("Error creating result files: %s", err.Error()))
		return
	}

	message := fmt.Sprintf("Successful analysis!\n%d cells, %d missing values imputed\nResult files:\n%s",
		result.Result.Meta.N, result.Result.Meta.NaNCount, strings.Join(paths, "\n"))
	PrintSuccess(message)
	notification.SendDiscordSuccessNotification(fmt.Sprintf("NNI CLI\n\nField %s/%s\n%s", farm, fieldID, message))
}
