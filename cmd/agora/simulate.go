package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"agora/internal/config"
	"agora/internal/errors"
	"agora/internal/llm"
	"agora/internal/logging"
	"agora/internal/metrics"
	"agora/internal/simulation"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func newSimulateCommand(configPath *string) *cobra.Command {
	var (
		idea         string
		personasFile string
		reactions    int
		concurrency  int
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a variant simulation against a persona panel",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTTY() {
				color.NoColor = true
			}

			personas, err := loadPersonas(personasFile)
			if err != nil {
				return err
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if concurrency > 0 {
				cfg.Simulation.ReactionConcurrency = concurrency
			}

			orch, err := buildOrchestrator(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("%s %s\n", bold("Idea:"), idea)
			fmt.Printf("%s %d personas, %d reactions each\n\n", gray("Panel:"), len(personas), reactions)

			result, err := orch.Run(ctx, simulation.RunRequest{
				Idea:          idea,
				Personas:      personas,
				ReactionCount: reactions,
			}, func(completed, total int) {
				fmt.Printf("\r%s %d/%d reactions", gray("Simulating:"), completed, total)
			})
			fmt.Println()
			if err != nil {
				return err
			}

			printReport(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&idea, "idea", "i", "", "Post idea to expand and test (required)")
	cmd.Flags().StringVarP(&personasFile, "personas-file", "p", "", "JSON file with the persona panel (required)")
	cmd.Flags().IntVarP(&reactions, "reactions", "r", 5, "Reactions to sample per variant")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Concurrent reaction-call cap (0 = config default)")
	_ = cmd.MarkFlagRequired("idea")
	_ = cmd.MarkFlagRequired("personas-file")

	return cmd
}

func buildOrchestrator(cfg *config.Config) (*simulation.Orchestrator, error) {
	client, err := llm.NewOpenAIClient(llm.Config{
		Model:      cfg.Model.Model,
		APIKey:     cfg.Model.APIKey,
		BaseURL:    cfg.Model.BaseURL,
		Timeout:    cfg.Model.TimeoutSecs,
		MaxRetries: cfg.Model.MaxRetries,
		Headers:    cfg.Model.Headers,
	})
	if err != nil {
		return nil, err
	}

	retryConfig := errors.DefaultRetryConfig()
	retryConfig.MaxAttempts = cfg.Model.MaxRetries
	client = llm.NewRetryClient(client, retryConfig)

	return simulation.NewOrchestrator(client, simulation.Options{
		ReactionConcurrency: cfg.Simulation.ReactionConcurrency,
		MaxReactionFailures: cfg.Simulation.MaxReactionFailures,
		Temperature:         cfg.Model.Temperature,
	}, metrics.Default(), logging.NewComponentLogger("simulation")), nil
}

func loadPersonas(path string) ([]simulation.Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read personas file: %w", err)
	}

	var personas []simulation.Persona
	if err := json.Unmarshal(data, &personas); err != nil {
		return nil, fmt.Errorf("parse personas file: %w", err)
	}
	if len(personas) == 0 {
		return nil, fmt.Errorf("personas file %s contains no personas", path)
	}
	for i := range personas {
		if personas[i].ID == "" {
			personas[i].ID = fmt.Sprintf("persona-%d", i+1)
		}
	}
	return personas, nil
}

func printReport(result *simulation.SimulationResult) {
	type ranked struct {
		index   int
		variant simulation.VariantResult
	}
	order := make([]ranked, len(result.Variants))
	for i, v := range result.Variants {
		order[i] = ranked{index: i, variant: v}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return order[a].variant.Score > order[b].variant.Score
	})

	fmt.Printf("\n%s\n\n", bold("Results (best first)"))
	for _, r := range order {
		marker := "  "
		if r.index == result.BestVariantIndex {
			marker = cyan("★ ")
		}
		fmt.Printf("%s%s %s\n", marker, scoreLabel(r.variant.Score), r.variant.Text)
	}

	best := result.Variants[result.BestVariantIndex]
	fmt.Printf("\n%s variant #%d\n", bold("Winner:"), result.BestVariantIndex+1)
	fmt.Printf("  %s %s\n", green("+"), best.Highlights.Positive)
	fmt.Printf("  %s %s\n", yellow("~"), best.Highlights.Neutral)
	fmt.Printf("  %s %s\n", red("-"), best.Highlights.Negative)
}

func scoreLabel(score int) string {
	label := fmt.Sprintf("[%+4d]", score)
	switch {
	case score > 0:
		return green(label)
	case score < 0:
		return red(label)
	default:
		return yellow(label)
	}
}
