package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"

	"github.com/ErickG09/api-muro-eolico/config"
	"github.com/ErickG09/api-muro-eolico/database"
	"github.com/ErickG09/api-muro-eolico/localtime"
	"github.com/ErickG09/api-muro-eolico/logger"
	"github.com/ErickG09/api-muro-eolico/rollup"
	"github.com/ErickG09/api-muro-eolico/server"
)

func main() {
	if len(os.Args) < 2 {
		showHelp()
		return
	}

	command := os.Args[1]

	// Initialize logging only for commands that need it
	if needsLogging(command) {
		cfg := loadConfig()
		if err := logger.Init(cfg); err != nil {
			log.Fatalf("Failed to initialize logging: %v", err)
		}
		defer func() {
			err := logger.Close()
			if err != nil {
				log.Fatalf("Failed to close logging: %v", err)
			}
		}()
	}

	switch command {
	case "serve":
		serveCommand()
	case "connect":
		connectCommand()
	case "migrate":
		migrateCommand()
	case "migrate:create":
		if len(os.Args) < 3 {
			fmt.Println("Error: migration name required")
			fmt.Println("Usage: api-muro-eolico migrate:create <migration_name>")
			return
		}
		createMigrationCommand(os.Args[2])
	case "migrate:status":
		migrationStatusCommand()
	case "db:info":
		dbInfoCommand()
	case "seed":
		count := 100
		if len(os.Args) >= 3 {
			parsed, err := strconv.Atoi(os.Args[2])
			if err != nil || parsed <= 0 {
				fmt.Println("Error: seed count must be a positive integer")
				return
			}
			count = parsed
		}
		seedCommand(count)
	case "help":
		showHelp()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		showHelp()
	}
}

// needsLogging determines which commands need logging
func needsLogging(command string) bool {
	loggingCommands := map[string]bool{
		"serve":          true,
		"migrate":        true,
		"migrate:create": true,
		"migrate:status": true,
		"connect":        true,
		"seed":           true,
	}
	return loggingCommands[command]
}

func showHelp() {
	fmt.Println("Wind Wall API - Sensor Aggregation Service")
	fmt.Println("")
	fmt.Println("Usage: api-muro-eolico <command> [arguments]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  serve                Run the HTTP API")
	fmt.Println("  connect              Test database connection")
	fmt.Println("  migrate              Run pending migrations")
	fmt.Println("  migrate:create <name> Create a new migration file")
	fmt.Println("  migrate:status       Show migration status")
	fmt.Println("  db:info              Show database information")
	fmt.Println("  seed [n]             Submit n synthetic readings through the ingestion path")
	fmt.Println("  help                 Show this help message")
	fmt.Println("")
	fmt.Println("Configuration:")
	fmt.Println("  Edit config.yaml to configure database, server, and ingestion settings")
}

func loadConfig() *config.Config {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

func connectDatabase() (*config.Config, error) {
	cfg := loadConfig()

	_, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return cfg, nil
}

// buildService wires the rollup core from configuration
func buildService(cfg *config.Config) *rollup.Service {
	clock, err := localtime.New(cfg.Time.Locale)
	if err != nil {
		logger.Fatalf("Failed to load locale: %v\n", err)
	}
	return rollup.New(database.GetDB(), clock, cfg.Ingest)
}

func serveCommand() {
	cfg, err := connectDatabase()
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v\n", err)
	}

	runner := database.NewMigrationRunner(database.GetDB(), cfg)
	if err := runner.RunMigrations(); err != nil {
		logger.Fatalf("Migration failed: %v\n", err)
	}

	clock, err := localtime.New(cfg.Time.Locale)
	if err != nil {
		logger.Fatalf("Failed to load locale: %v\n", err)
	}
	service := rollup.New(database.GetDB(), clock, cfg.Ingest)

	srv := server.New(service, clock, cfg.Server)
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatalf("Server stopped: %v\n", err)
	}
}

func connectCommand() {
	logger.Println("Testing database connection...")

	cfg, err := connectDatabase()
	if err != nil {
		logger.Fatalf("Connection failed: %v\n", err)
	}

	logger.Printf("Successfully connected to %s database\n", cfg.Database.Driver)

	// Show connection info
	info := database.GetDatabaseInfo(cfg)
	infoJSON, _ := json.MarshalIndent(info, "", "  ")
	logger.Printf("Connection info: %s\n", infoJSON)
}

func migrateCommand() {
	logger.Println("Running database migrations...")

	cfg, err := connectDatabase()
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v\n", err)
	}

	runner := database.NewMigrationRunner(database.GetDB(), cfg)

	if err := runner.RunMigrations(); err != nil {
		logger.Fatalf("Migration failed: %v\n", err)
	}
}

func createMigrationCommand(name string) {
	logger.Printf("Creating migration: %s\n", name)

	cfg := loadConfig()
	runner := database.NewMigrationRunner(nil, cfg) // Don't need DB connection to create files

	filePath, err := runner.CreateMigration(name)
	if err != nil {
		logger.Fatalf("Failed to create migration: %v\n", err)
	}

	logger.Printf("Migration created: %s\n", filePath)
}

func migrationStatusCommand() {
	logger.Println("Checking migration status...")

	cfg, err := connectDatabase()
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v\n", err)
	}

	runner := database.NewMigrationRunner(database.GetDB(), cfg)

	migrations, err := runner.GetMigrationStatus()
	if err != nil {
		logger.Fatalf("Failed to get migration status: %v\n", err)
	}

	if len(migrations) == 0 {
		logger.Println("No migrations found")
		return
	}

	logger.Printf("%-20s %-40s %s\n", "Version", "Name", "Status")
	logger.Println("-------------------------------------------------------------------")

	for _, migration := range migrations {
		status := "Pending"
		if migration.Applied {
			status = "Applied"
		}
		logger.Printf("%-20s %-40s %s\n", migration.Version, migration.Name, status)
	}
}

func dbInfoCommand() {
	cfg, err := connectDatabase()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	info := database.GetDatabaseInfo(cfg)
	infoJSON, _ := json.MarshalIndent(info, "", "  ")
	fmt.Printf("Database information:\n%s\n", infoJSON)
}

// seedCommand submits synthetic readings through the real ingestion path
// so the rollup tables stay consistent with the raw data.
func seedCommand(count int) {
	cfg, err := connectDatabase()
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v\n", err)
	}

	runner := database.NewMigrationRunner(database.GetDB(), cfg)
	if err := runner.RunMigrations(); err != nil {
		logger.Fatalf("Migration failed: %v\n", err)
	}

	service := buildService(cfg)

	logger.Printf("Submitting %d synthetic readings...\n", count)
	saved := 0
	skipped := 0
	for i := 0; i < count; i++ {
		in := rollup.SubmitInput{
			Propeller1: randMagnitude(),
			Propeller2: randMagnitude(),
			Propeller3: randMagnitude(),
			Propeller4: randMagnitude(),
			Propeller5: randMagnitude(),
			Group:      1 + rand.Intn(3),
		}
		result, err := service.SubmitReading(in)
		if err != nil {
			logger.Errorf("Failed to submit reading %d: %v\n", i+1, err)
			continue
		}
		if result.Saved {
			saved++
		} else {
			skipped++
		}
	}
	logger.Printf("Seed complete: %d saved, %d below threshold\n", saved, skipped)
}

// randMagnitude produces a plausible propeller value, occasionally idle
func randMagnitude() *float64 {
	v := 0.0
	if rand.Float64() > 0.1 {
		v = rand.Float64() * 3.0
	}
	return &v
}
