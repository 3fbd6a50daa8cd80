package ui

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/harvest-ai/nni-research-cli/internal/delivery"
	"github.com/harvest-ai/nni-research-cli/internal/ml"
	"github.com/harvest-ai/nni-research-cli/internal/properties"
)

// Session carries what the interactive screens share. The model is loaded on first use so
// listing farms works without one.
type Session struct {
	Pipeline   *delivery.Pipeline
	Settings   *properties.Settings
	LoadEngine func() (*ml.Engine, error)

	engine *ml.Engine
}

func (s *Session) Engine() (*ml.Engine, error) {
	if s.engine != nil {
		return s.engine, nil
	}
	engine, err := s.LoadEngine()
	if err != nil {
		return nil, err
	}
	s.engine = engine
	return engine, nil
}

type menuOption struct {
	title   string
	handler func()
}

// ShowMenu displays the main menu and handles user input
func ShowMenu(s *Session) {
	menuOptions := []menuOption{
		{"Predict the nitrogen nutrition index of a field", func() { PredictField(s) }},
		{"Predict the nitrogen nutrition index of every field in a farm", func() { PredictFarm(s) }},
		{"View the list of available farms", ListFarms},
		{"View the list of fields in a farm", func() { ListFields("") }},
		{"Show the current request settings", func() { ShowSettings(s.Settings) }},
		{"Exit the application", func() { fmt.Println("Exiting..."); os.Exit(0) }},
	}

	for {
		fmt.Println("\033[34m===================\033[0m")
		for i, opt := range menuOptions {
			fmt.Printf("\033[34m%d. %s\033[0m\n", i+1, opt.title)
		}
		fmt.Println("\033[34mPlease enter your choice:\033[0m")

		line, err := stdin.ReadString('\n')
		if err == io.EOF && strings.TrimSpace(line) == "" {
			return
		}
		choice, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			fmt.Printf("\n\033[31mInvalid input. Please enter a number.\033[0m\n")
			continue
		}

		if choice < 1 || choice > len(menuOptions) {
			fmt.Println("\033[31mInvalid choice. Please try again.\033[0m")
			continue
		}

		menuOptions[choice-1].handler()
	}
}
