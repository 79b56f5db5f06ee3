// Command monitord runs judge health monitoring cycles on a schedule against
// a SQLite metrics store.
package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/iofold/evalcore/monitor"
	"github.com/iofold/evalcore/store"
)

// Config holds the daemon configuration
type Config struct {
	DBPath     string   `yaml:"db_path"`
	Schedule   string   `yaml:"schedule"`
	WindowDays int      `yaml:"window_days"`
	JudgeIDs   []string `yaml:"judge_ids"`
}

// LoadConfig reads config.yaml (or CONFIG_PATH) and applies defaults
func LoadConfig() Config {
	cfg := Config{
		DBPath:   "./evalcore.db",
		Schedule: "@hourly",
	}

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	if envPath := os.Getenv("DB_PATH"); envPath != "" {
		cfg.DBPath = envPath
	}

	return cfg
}

func main() {
	// .env is optional; environment variables may come from the shell
	_ = godotenv.Load()

	cfg := LoadConfig()

	metricsStore, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open metrics store at %s: %v", cfg.DBPath, err)
	}
	defer metricsStore.Close()

	mon, err := monitor.NewMonitor(monitor.Config{Store: metricsStore})
	if err != nil {
		log.Fatalf("Failed to create monitor: %v", err)
	}

	runCycle := func() {
		ctx := context.Background()
		results, err := mon.RunMonitoring(ctx, cfg.JudgeIDs, cfg.WindowDays)
		if err != nil {
			log.Printf("Monitoring cycle failed: %v", err)
			return
		}

		for _, result := range results {
			if result.Err != nil {
				log.Printf("judge %s: cycle error: %v", result.JudgeID, result.Err)
				continue
			}
			log.Printf("judge %s: %d executions, %d alerts, drift=%v, auto-refine=%v",
				result.JudgeID, result.Metrics.ExecutionCount, len(result.Alerts),
				result.DriftDetected, result.AutoRefineTriggered)
			for _, alert := range result.Alerts {
				log.Printf("judge %s: [%s] %s: %s", result.JudgeID, alert.Severity, alert.Type, alert.Message)
			}
		}
	}

	log.Printf("Starting monitord with schedule %q against %s", cfg.Schedule, cfg.DBPath)
	runCycle()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Schedule, runCycle); err != nil {
		log.Fatalf("Invalid schedule %q: %v", cfg.Schedule, err)
	}
	scheduler.Run()
}
