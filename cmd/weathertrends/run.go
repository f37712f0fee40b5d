package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/weathertrends/weathertrends/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run [city ...]",
	Short: "Execute one pipeline pass, prompting for a city if none is given",
	Long: `Runs one fetch-through-render pipeline pass.

With city arguments, the pass covers all of them; cities whose fetch
fails are skipped. Without arguments, it prompts for a city name and
keeps prompting until one full pass succeeds.`,
	RunE: runPipeline,
}

func runPipeline(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if len(args) > 0 {
		res, err := a.runner.Run(cmd.Context(), args)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	}

	// Interactive loop: fetch failures re-prompt, everything else aborts.
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("Enter the city: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		city := strings.TrimSpace(scanner.Text())
		if city == "" {
			continue
		}

		res, err := a.runner.Run(cmd.Context(), []string{city})
		if errors.Is(err, pipeline.ErrNoForecasts) {
			fmt.Printf("Failed to fetch data for %q: %s. Please try again.\n", city, res.Failed[city])
			continue
		}
		if err != nil {
			return err
		}

		printResult(res)
		return nil
	}
}

func printResult(res *pipeline.Result) {
	fmt.Printf("Stored %d readings for %s.\n", res.Stored, strings.Join(res.Fetched, ", "))
	for city, reason := range res.Failed {
		fmt.Printf("Skipped %s: %s\n", city, reason)
	}
	for _, s := range res.Aggregates {
		fmt.Printf("%-20s %s  avg temp %6.2f°C  avg humidity %5.1f%%\n",
			s.City, s.Date.Format("2006-01-02"), s.AvgTemperature, s.AvgHumidity)
	}
}
