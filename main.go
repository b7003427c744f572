package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Partial per-collector failures never reach here; only fatal
		// errors (scope resolution, credentials, bad flags) do.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "oci-inventory",
		Short:         "Best-effort inventory crawl across every OCI compartment and resource category",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCrawlCommand())
	root.AddCommand(newDiffCommand())
	root.AddCommand(newConfigCommand())
	return root
}

func newCrawlCommand() *cobra.Command {
	var (
		credentialsSource  string
		categories         string
		excludeCategories  string
		compartments       string
		excludeCompartment string
		namePattern        string
		outputFormat       string
		outputFile         string
		callTimeout        int
		maxWorkers         int
		throttleRetries    int
		logLevel           string
		showProgress       bool
		accessLevel        string
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run one inventory crawl and emit the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig()
			if err != nil {
				return err
			}

			// CLI flags override the configuration file.
			flags := cmd.Flags()
			if flags.Changed("format") {
				config.General.OutputFormat = outputFormat
			}
			if flags.Changed("output") {
				config.Output.File = outputFile
			}
			if flags.Changed("timeout") {
				config.General.CallTimeout = callTimeout
			}
			if flags.Changed("workers") {
				config.General.MaxWorkers = maxWorkers
			}
			if flags.Changed("retries") {
				config.General.ThrottleRetries = throttleRetries
			}
			if flags.Changed("log-level") {
				config.General.LogLevel = logLevel
			}
			if flags.Changed("progress") {
				config.General.Progress = showProgress
			}
			if flags.Changed("access-level") {
				config.General.AccessLevel = accessLevel
			}
			if flags.Changed("categories") {
				config.Filters.IncludeCategories = ParseCSVList(categories)
			}
			if flags.Changed("exclude-categories") {
				config.Filters.ExcludeCategories = ParseCSVList(excludeCategories)
			}
			if flags.Changed("compartments") {
				config.Filters.IncludeCompartments = ParseCSVList(compartments)
			}
			if flags.Changed("exclude-compartments") {
				config.Filters.ExcludeCompartments = ParseCSVList(excludeCompartment)
			}
			if flags.Changed("name-pattern") {
				config.Filters.NamePattern = namePattern
			}
			if err := validateConfig(config); err != nil {
				return err
			}
			if err := ValidateFilterConfig(config.Filters); err != nil {
				return err
			}

			level, err := ParseLogLevel(config.General.LogLevel)
			if err != nil {
				return err
			}
			logger = NewLogger(level)

			creds, err := LoadCredentials(credentialsSource)
			if err != nil {
				return err
			}

			clients, err := NewServiceClients(creds.Provider())
			if err != nil {
				return err
			}

			registry := FilterRegistry(NewDefaultRegistry(clients), config.Filters)
			if registry.Len() == 0 {
				return fmt.Errorf("category filters leave no collectors registered")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			crawler := &Crawler{
				Enumerator: NewScopeEnumerator(clients.Identity, config.General.AccessLevel),
				Registry:   registry,
				Breakers:   clients,
				Filters:    config.Filters,
				Progress:   NewProgressTracker(ProgressEnabled(config.General.Progress)),
				Options: CrawlOptions{
					MaxWorkers:      config.General.MaxWorkers,
					CallTimeout:     time.Duration(config.General.CallTimeout) * time.Second,
					ThrottleRetries: config.General.ThrottleRetries,
					RetryBaseDelay:  time.Second,
				},
			}

			report, err := crawler.Crawl(ctx, creds.TenancyID)
			if err != nil {
				return err
			}

			if len(report.Failures) > 0 {
				logger.Info("Crawl recorded %d partial failures; see the failures section of the report", len(report.Failures))
			}
			if report.Cancelled {
				logger.Info("Crawl cancelled; emitting partial report")
			}

			return WriteReport(report, registry.Categories(), config.General.OutputFormat, config.Output.File)
		},
	}

	cmd.Flags().StringVarP(&credentialsSource, "credentials", "c", "", "Credentials as inline JSON or a path to a JSON file (required)")
	cmd.Flags().StringVar(&categories, "categories", "", "Comma-separated categories to include")
	cmd.Flags().StringVar(&excludeCategories, "exclude-categories", "", "Comma-separated categories to exclude")
	cmd.Flags().StringVar(&compartments, "compartments", "", "Comma-separated compartment OCIDs or names to include")
	cmd.Flags().StringVar(&excludeCompartment, "exclude-compartments", "", "Comma-separated compartment OCIDs or names to exclude")
	cmd.Flags().StringVar(&namePattern, "name-pattern", "", "Regex resources must match by display name")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json, csv, tsv")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default stdout)")
	cmd.Flags().IntVar(&callTimeout, "timeout", 60, "Per-API-call timeout in seconds")
	cmd.Flags().IntVar(&maxWorkers, "workers", 5, "Concurrent collector invocations")
	cmd.Flags().IntVar(&throttleRetries, "retries", 3, "Retries with backoff for throttled calls")
	cmd.Flags().StringVar(&logLevel, "log-level", "normal", "Log level: silent, normal, verbose, debug")
	cmd.Flags().BoolVar(&showProgress, "progress", true, "Show progress bar when stderr is a terminal")
	cmd.Flags().StringVar(&accessLevel, "access-level", "accessible", "Compartment listing access level: accessible, any")
	_ = cmd.MarkFlagRequired("credentials")

	return cmd
}

func newDiffCommand() *cobra.Command {
	var (
		format   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "diff <old-report> <new-report>",
		Short: "Compare two saved inventory reports",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := DiffConfig{Format: format, Detailed: detailed}
			result, err := CompareReports(args[0], args[1], config)
			if err != nil {
				return err
			}
			return OutputDiffResult(result, config, os.Stdout)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Diff output format: json, text")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "Include per-field changes")

	return cmd
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "./oci-inventory.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := GenerateDefaultConfigFile(path); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote default configuration to %s\n", path)
			return nil
		},
	})
	return cmd
}
