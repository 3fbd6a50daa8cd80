package ui

import (
	"fmt"

	"github.com/harvest-ai/nni-research-cli/internal/properties"
	"github.com/harvest-ai/nni-research-cli/internal/sentinel"
)

// ListFarms handles the UI for viewing the list of available farms
func ListFarms() {
	farms, err := sentinel.ListFarms()
	if err != nil {
		PrintError(fmt.Sprintf("Error reading geojsons folder: %s", err.Error()))
		return
	}

	PrintWarning("To add a new farm, add its '.geojson' file at 'data/geojsons' folder.")

	fmt.Printf("\n%sAvailable farms:%s\n", ColorGreen, ColorReset)
	for _, farm := range farms {
		fmt.Printf("%s- %s%s\n", ColorGreen, farm, ColorReset)
	}
}

// ListFields handles the UI for viewing the fields of a farm
func ListFields(farm string) {
	PrintWarning("To add a field to a farm add the 'field_id' property at the '.geojson' file from the farm of your choice.\nThe 'field_id' property should be located at 'features[N]properties.field_id'.")

	if farm == "" {
		farm = ReadString("Enter the farm name: ")
	}

	fields, err := sentinel.LoadFarm(sentinel.FarmPath(farm))
	if err != nil {
		PrintError(err.Error())
		return
	}

	fmt.Printf("\n%sAvailable fields:%s\n", ColorGreen, ColorReset)
	for _, field := range fields {
		fmt.Printf("%s- %s%s\n", ColorGreen, field.ID, ColorReset)
	}
}

func ShowSettings(s *properties.Settings) {
	fmt.Printf("\n%sImagery:%s %s .. %s, composite %s, red edge %s, max cloud %.0f%%\n", ColorGreen, ColorReset,
		s.Imagery.DateStart, s.Imagery.DateEnd, s.Imagery.Composite, s.Imagery.RedEdgeBand, s.Imagery.MaxCloudPct)
	fmt.Printf("%sGrid:%s %g m cells\n", ColorGreen, ColorReset, s.Grid.CellSizeM)
	fmt.Printf("%sInference:%s dry matter %g t/ha\n", ColorGreen, ColorReset, s.Inference.DryMatter)
	fmt.Printf("%sProcessing:%s %d workers, feature cache %t\n", ColorGreen, ColorReset, s.Processing.Workers, s.Processing.CacheFeatures)
	PrintInfo(fmt.Sprintf("Edit %s to change the defaults.\n", properties.SettingsPath()))
}
