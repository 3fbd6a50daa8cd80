package ui

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/harvest-ai/nni-research-cli/internal/properties"
)

// Colors for consistent UI
const (
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorReset  = "\033[0m"
)

var stdin = bufio.NewReader(os.Stdin)

// PrintWarning displays a warning message with consistent formatting
func PrintWarning(message string) {
	fmt.Printf("%s\nWarning:%s\n", ColorYellow, ColorReset)
	fmt.Printf("%s%s%s\n", ColorYellow, message, ColorReset)
}

// PrintError displays an error message with consistent formatting
func PrintError(message string) {
	fmt.Printf("\n%sError: %s%s\n", ColorRed, message, ColorReset)
}

// PrintSuccess displays a success message with consistent formatting
func PrintSuccess(message string) {
	fmt.Printf("\n%s%s%s\n", ColorGreen, message, ColorReset)
}

// PrintInfo displays an info message with consistent formatting
func PrintInfo(message string) {
	fmt.Printf("%s%s%s", ColorBlue, message, ColorReset)
}

// ReadString reads a string from stdin with trimming
func ReadString(prompt string) string {
	PrintInfo(prompt)
	input, _ := stdin.ReadString('\n')
	return strings.TrimSpace(input)
}

// ReadOptionalFloat returns def when the user just presses enter.
func ReadOptionalFloat(prompt string, def float64) (float64, error) {
	input := ReadString(fmt.Sprintf("%s[%g]: ", prompt, def))
	if input == "" {
		return def, nil
	}
	value, err := strconv.ParseFloat(input, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", input)
	}
	return value, nil
}

// ReadOptionalDate reads a YYYY-MM-DD date, keeping def on empty input.
func ReadOptionalDate(prompt, def string) (string, error) {
	input := ReadString(fmt.Sprintf("%s[%s]: ", prompt, def))
	if input == "" {
		return def, nil
	}
	if input == "today" {
		return time.Now().Format("2006-01-02"), nil
	}
	if _, err := time.Parse("2006-01-02", input); err != nil {
		return "", fmt.Errorf("invalid date format: %s. Please use YYYY-MM-DD", input)
	}
	return input, nil
}

// ReadFarmAndField reads farm and field information
func ReadFarmAndField() (string, string, error) {
	PrintInfo("Available farms: ")
	ListFarms()
	farm := ReadString("Enter the farm name: ")
	PrintInfo("Available fields: ")
	ListFields(farm)
	field := ReadString("Enter the field id: ")

	if farm == "" || field == "" {
		return "", "", fmt.Errorf("farm name and field id cannot be empty")
	}

	return farm, field, nil
}

// ReadRequestSettings lets the user override the imagery window and grid size of one run.
func ReadRequestSettings(s *properties.Settings) (*properties.Settings, error) {
	run := *s
	var err error
	if run.Imagery.DateStart, err = ReadOptionalDate("Start date (YYYY-MM-DD) ", s.Imagery.DateStart); err != nil {
		return nil, err
	}
	if run.Imagery.DateEnd, err = ReadOptionalDate("End date (YYYY-MM-DD | today) ", s.Imagery.DateEnd); err != nil {
		return nil, err
	}
	if run.Grid.CellSizeM, err = ReadOptionalFloat("Cell size in meters ", s.Grid.CellSizeM); err != nil {
		return nil, err
	}
	if run.Inference.DryMatter, err = ReadOptionalFloat("Dry matter in t/ha ", s.Inference.DryMatter); err != nil {
		return nil, err
	}
	return &run, nil
}

// CreateResultDirectory creates data/result/<farm>/<kind>
func CreateResultDirectory(farm, kind string) (string, error) {
	resultPath := filepath.Join(properties.RootPath(), "data", "result", farm, kind)
	err := os.MkdirAll(resultPath, os.ModePerm)
	if err != nil {
		return "", fmt.Errorf("failed to create result folder: %v", err)
	}
	return resultPath, nil
}
