package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"folio-go/internal/app"
	"folio-go/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file from the default location.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates a FolioApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Ingest", "ResolveDedup").
func newApp(ctx context.Context, operation string) (*app.FolioApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewFolioApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// readPassphrase prompts on stderr and reads a passphrase without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:          "folio",
	Short:        "Portfolio upload ingestion and project identity",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		userID := uuid.New().String()
		cfg := config.NewConfig(userID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("User ID:  %s\n", userID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Println("Run `folio db migrate` before ingesting.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		mc := cfg.MatchConfig()
		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("User ID:    %s\n", cfg.UserID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Blob Store: %s\n", cfg.BlobStore.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		fmt.Printf("Matching:   high=%.2f low=%.2f small<%d overlap>=%d sketch=%d\n",
			mc.HighThreshold, mc.LowThreshold, mc.SmallProjectFiles, mc.MinAbsoluteOverlap, mc.SketchSize)
		if err := cfg.Validate(); err != nil {
			fmt.Printf("\nWarning: %v\n", err)
		}
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage blob encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the age key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		pass, err := readPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := app.SetupKeys(cfg, pass); err != nil {
			return err
		}
		fmt.Printf("Keys written to %s and %s\n", cfg.Encryption.PublicKeyPath, cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the metadata database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		status, err := app.MigrateDatabase(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("Database at schema version %d\n", status.CurrentVersion)
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		status, err := app.DatabaseStatus(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("Current: %d\nLatest:  %d\n", status.CurrentVersion, status.LatestVersion)
		switch {
		case status.Dirty:
			fmt.Println("Status:  dirty")
		case status.Pending:
			fmt.Println("Status:  pending migrations")
		default:
			fmt.Println("Status:  up to date")
		}
		return nil
	},
}

// ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest PATH",
	Short: "Ingest a directory or zip archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "Ingest")
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.Ingest(ctx, args[0])
		if err != nil {
			return describeError("ingest", err)
		}
		printSession(sess)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		ctx := cmd.Context()

		a, err := newApp(ctx, "GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(ctx, limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				duration = op.FinishedAt.Time.Sub(op.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-20s  %s  %-8s  %-8s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	keysCmd.AddCommand(keysInitCmd)

	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(blobCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
