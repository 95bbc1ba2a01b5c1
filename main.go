package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"depsweep-go/internal/config"
	"depsweep-go/internal/service"
	"depsweep-go/pkg/analyzer"
	"depsweep-go/pkg/logger"
	"depsweep-go/pkg/organizer"
	"depsweep-go/pkg/search"
	"depsweep-go/pkg/toolchain"
)

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns environment variable as int or default
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBoolOrDefault returns environment variable as bool or default
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func main() {
	// Global panic recovery to prevent application crash
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("CRITICAL ERROR: Application panic recovered: %v\n", r)
			fmt.Printf("Please check the logs for more details and report this issue.\n")
			os.Exit(1)
		}
	}()

	// Environment variable defaults (CI friendly)
	defaultMode := getEnvOrDefault("DEPSWEEP_MODE", "analyze")
	defaultProject := getEnvOrDefault("DEPSWEEP_PROJECT", "")
	defaultConfig := getEnvOrDefault("DEPSWEEP_CONFIG", "")
	defaultWorkers := getEnvIntOrDefault("DEPSWEEP_WORKERS", 0)
	defaultGrace := getEnvIntOrDefault("DEPSWEEP_GRACE_SECONDS", 0)
	defaultDebug := getEnvBoolOrDefault("DEBUG", false)
	defaultEndpoint := getEnvOrDefault("DEPSWEEP_REPORT_ENDPOINT", "")
	defaultAPIKey := getEnvOrDefault("DEPSWEEP_REPORT_API_KEY", "")

	// Command line flags (override environment variables)
	var (
		mode       = flag.String("mode", defaultMode, "Run mode: analyze, fix, watch, organize, lint, search (env: DEPSWEEP_MODE)")
		project    = flag.String("project", defaultProject, "Project root to operate on (env: DEPSWEEP_PROJECT)")
		configPath = flag.String("config", defaultConfig, "Configuration file path (env: DEPSWEEP_CONFIG)")
		workers    = flag.Int("workers", defaultWorkers, "Concurrent scan workers, 0 uses config default (env: DEPSWEEP_WORKERS)")
		grace      = flag.Int("grace", defaultGrace, "Dev-server grace period in seconds, 0 uses config default (env: DEPSWEEP_GRACE_SECONDS)")
		debug      = flag.Bool("debug", defaultDebug, "Enable debug logging (env: DEBUG)")
		endpoint   = flag.String("report-endpoint", defaultEndpoint, "Optional HTTP endpoint to publish reports to (env: DEPSWEEP_REPORT_ENDPOINT)")
		apiKey     = flag.String("report-api-key", defaultAPIKey, "API key for report publishing (env: DEPSWEEP_REPORT_API_KEY)")
		terms      = flag.String("terms", "", "Comma-separated search terms (search mode only)")
		help       = flag.Bool("help", false, "Show help message")
	)

	flag.Parse()

	if *help {
		printUsage()
		return
	}

	cfg, err := config.NewManager().Load(*configPath)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}

	// Flags win over both defaults and file values.
	if *project != "" {
		cfg.Project.Root = *project
	}
	if *workers > 0 {
		cfg.Worker.MaxWorkers = *workers
	}
	if *grace > 0 {
		cfg.Validate.GraceSeconds = *grace
	}
	if *endpoint != "" {
		cfg.Report.Endpoint = *endpoint
	}
	if *apiKey != "" {
		cfg.Report.APIKey = *apiKey
	}
	if *debug {
		cfg.Logger.Level = "debug"
	}

	logger.SetLogger(logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		TimeFormat: cfg.Logger.TimeFormat,
	}))
	log := logger.GetLogger().WithField("component", "main")

	if *mode != "watch" && cfg.Project.Root == "" {
		fmt.Println("ERROR: Project root is required.")
		fmt.Println("Use -project flag or DEPSWEEP_PROJECT environment variable.")
		fmt.Println("")
		printUsage()
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"mode":    *mode,
		"project": cfg.Project.Root,
		"workers": cfg.Worker.MaxWorkers,
	}).Info("Starting dependency sweep")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	startTime := time.Now()

	svc := service.New(cfg)

	var runErr error
	switch *mode {
	case "analyze":
		runErr = runAnalyze(ctx, svc, cfg.Project.Root)
	case "fix":
		runErr = runFix(ctx, svc, cfg.Project.Root)
	case "watch":
		runErr = runWatch(ctx, svc)
	case "organize":
		runErr = runOrganize(cfg)
	case "lint":
		runErr = toolchain.NewLinter().SetupAndRun(cfg.Project.Root)
	case "search":
		runErr = runSearch(cfg, *terms)
	default:
		fmt.Printf("ERROR: Unknown mode %q.\n\n", *mode)
		printUsage()
		os.Exit(1)
	}

	if runErr != nil {
		log.WithError(runErr).Fatal("Run failed")
	}

	log.WithField("duration", time.Since(startTime).String()).Info("Run completed")
}

func runAnalyze(ctx context.Context, svc service.AnalyzerService, root string) error {
	rep, err := svc.Analyze(ctx, root)
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Dependency Analysis ===\n")
	fmt.Printf("%s\n", rep.Summary())
	for _, name := range rep.UnusedDependencies {
		fmt.Printf("  unused: %s\n", name)
	}
	if len(rep.SkippedFiles) > 0 {
		fmt.Printf("Skipped %d undecodable files.\n", len(rep.SkippedFiles))
	}
	return nil
}

func runFix(ctx context.Context, svc service.FixService, root string) error {
	rep, err := svc.Fix(ctx, root, nil)
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Fix Pipeline Results ===\n")
	fmt.Printf("%s\n", rep.Summary())
	for _, fix := range rep.Fixes {
		fmt.Printf("  %s %s (%s)\n", fix.Status, fix.Descriptor.Dependency, fix.Branch)
	}
	return nil
}

func runWatch(ctx context.Context, svc service.IntakeService) error {
	fmt.Println("Waiting for a project archive... Press Ctrl+C to stop.")
	projectPath, err := svc.Intake(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Project extracted and prepared at %s\n", projectPath)
	return nil
}

func runOrganize(cfg *config.Config) error {
	org := organizer.NewOrganizer(organizer.DefaultCategories(), cfg.Scan.IgnoreDirs)
	moved, err := org.Organize(cfg.Project.Root)
	if err != nil {
		return err
	}
	fmt.Printf("Organized %d files into category folders.\n", moved)
	return nil
}

func runSearch(cfg *config.Config, rawTerms string) error {
	if rawTerms == "" {
		return fmt.Errorf("search mode requires -terms")
	}
	terms := strings.Split(rawTerms, ",")
	for i := range terms {
		terms[i] = strings.TrimSpace(terms[i])
	}

	agg := analyzer.NewAggregator(analyzer.Options{
		IgnoreDirs:  cfg.Scan.IgnoreDirs,
		IgnoreFiles: cfg.Scan.IgnoreFiles,
		Extensions:  cfg.Scan.Extensions,
		Workers:     cfg.Worker.MaxWorkers,
	})
	files, err := agg.SourceFiles(cfg.Project.Root)
	if err != nil {
		return err
	}

	matches := search.InFiles(files, terms)
	fmt.Printf("\n=== Search Results (%d matches) ===\n", len(matches))
	for _, m := range matches {
		fmt.Printf("%s:%d: %s\n", m.File, m.Line, m.Text)
	}
	return nil
}

func printUsage() {
	fmt.Println("depsweep-go Dependency Cleanup Tool")
	fmt.Println("")
	fmt.Println("USAGE:")
	fmt.Println("    ./depsweep-go -mode <MODE> -project <DIR> [OPTIONS]")
	fmt.Println("    ./depsweep-go  # Uses environment variables")
	fmt.Println("")
	fmt.Println("MODES:")
	fmt.Println("    analyze    Scan imports and report unused dependencies (default)")
	fmt.Println("    fix        Remove unused dependencies with validation and rollback")
	fmt.Println("    watch      Wait for a project archive and prepare it")
	fmt.Println("    organize   Sort loose source files into category folders")
	fmt.Println("    lint       Install and run eslint and prettier")
	fmt.Println("    search     Find lines matching all -terms across source files")
	fmt.Println("")
	fmt.Println("OPTIONS:")
	fmt.Println("    -project string        Project root directory (env: DEPSWEEP_PROJECT)")
	fmt.Println("    -config string         Configuration file path (env: DEPSWEEP_CONFIG)")
	fmt.Println("    -workers int           Concurrent scan workers (env: DEPSWEEP_WORKERS)")
	fmt.Println("    -grace int             Dev-server grace seconds (env: DEPSWEEP_GRACE_SECONDS)")
	fmt.Println("    -report-endpoint string Publish reports to this URL (env: DEPSWEEP_REPORT_ENDPOINT)")
	fmt.Println("    -report-api-key string  API key for publishing (env: DEPSWEEP_REPORT_API_KEY)")
	fmt.Println("    -terms string          Comma-separated search terms (search mode)")
	fmt.Println("    -debug                 Enable debug logging (env: DEBUG)")
	fmt.Println("    -help                  Show this help message")
	fmt.Println("")
	fmt.Println("EXAMPLES:")
	fmt.Println("    ./depsweep-go -mode analyze -project ./my-react-app")
	fmt.Println("    ./depsweep-go -mode fix -project ./my-react-app -grace 10")
	fmt.Println("    DEPSWEEP_PROJECT=./my-react-app ./depsweep-go -mode search -terms useEffect,fetch")
}
