package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"obslog/internal/app"
	"obslog/internal/config"
	"obslog/internal/logbook"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an ObslogApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "SubmitImport", "RunQueue").
func newApp(cmd *cobra.Command, operation string) (*app.ObslogApp, error) {
	cfg, _, err := readConfig()
	if err != nil {
		return nil, err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	a, err := app.NewObslogApp(cmd.Context(), cfg, operation, app.Options{Verbose: verbose})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func readConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

var stdin = bufio.NewReader(os.Stdin)

// readPassphrase prompts on the terminal without echo. Input that is not a
// terminal is read as one line.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:          "obslog",
	Short:        "Astronomy observation logbook",
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

		ownerID, _ := cmd.Flags().GetString("owner")
		if ownerID == "" {
			ownerID = uuid.New().String()
		}

		cfg := config.NewConfig(ownerID, defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Owner ID: %s\n", ownerID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := readConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Owner ID:   %s\n", cfg.OwnerID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Archive:    %s (encrypted: %t)\n", cfg.Archive.Type, cfg.Archive.Encrypted)
		fmt.Printf("Queue:      %s %s\n", cfg.Queue.Type, cfg.Queue.QueueDir)
		fmt.Printf("Batch size: %d\n", cfg.Import.BatchSize)
		if err := cfg.Validate(); err != nil {
			fmt.Printf("\nProblems:\n%v\n", err)
		}
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage archive encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the archive key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := readConfig()
		if err != nil {
			return err
		}
		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return errors.New("passphrases do not match")
		}
		if err := app.SetupKeys(cfg.Encryption, pass); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s (passphrase protected)\n", cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import observation logs",
}

var importSubmitCmd = &cobra.Command{
	Use:   "submit FILE",
	Short: "Queue an observation log for import",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		a, err := newApp(cmd, "SubmitImport")
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.SubmitImport(cmd.Context(), args[0], sessionID)
		if err != nil {
			return fmt.Errorf("submitting import: %w", err)
		}
		fmt.Printf("Queued import %s\n", rec.ID)
		return nil
	},
}

var importRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Process queued imports",
	RunE: func(cmd *cobra.Command, args []string) error {
		watch, _ := cmd.Flags().GetBool("watch")

		a, err := newApp(cmd, "RunQueue")
		if err != nil {
			return err
		}
		defer a.Close()

		var dc logbook.DecryptionContext
		if a.NeedsPassphrase() {
			pass, err := readPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
			if dc, err = a.Unlock(pass); err != nil {
				return fmt.Errorf("unlocking key: %w", err)
			}
		}

		if watch {
			return a.WatchQueue(cmd.Context(), dc)
		}
		n, err := a.RunQueue(cmd.Context(), dc)
		if err != nil {
			return fmt.Errorf("processing imports: %w", err)
		}
		fmt.Printf("Processed %d import(s)\n", n)
		return nil
	},
}

var importHistoryCmd = &cobra.Command{
	Use:   "history [RECORD]",
	Short: "View imports, or the log of one import",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			rec, err := a.GetImport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Import %s (%s)\n", rec.ID, rec.Kind)
			fmt.Printf("Status: %s\n", rec.Status)
			fmt.Printf("Submitted: %s\n\n", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Print(rec.Log)
			return nil
		}

		recs, err := a.GetHistory(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("No imports recorded.")
			return nil
		}
		for _, rec := range recs {
			fmt.Printf("%s  %s  %-12s  %-10s  %s\n",
				rec.ID,
				rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				rec.Kind,
				rec.Status,
				rec.Outcome,
			)
		}
		return nil
	},
}

var importDeleteCmd = &cobra.Command{
	Use:   "delete RECORD",
	Short: "Remove everything an import created",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "DeleteImport")
		if err != nil {
			return err
		}
		defer a.Close()

		deleted, err := a.DeleteImport(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("deleting import: %w", err)
		}
		fmt.Printf("Deleted %d observation(s), %d session(s), %d location(s), %d equipment item(s)\n",
			deleted.Observations, deleted.Sessions, deleted.Locations, deleted.Equipment)
		return nil
	},
}

// session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage observing sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List observing sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListSessions")
		if err != nil {
			return err
		}
		defer a.Close()

		sessions, err := a.ListSessions(cmd.Context())
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions.")
			return nil
		}
		for _, s := range sessions {
			edited := ""
			if s.UserEdited {
				edited = "  [edited]"
			}
			fmt.Printf("%s  %s  %5s  %s%s\n",
				s.ID,
				s.DateFrom.Local().Format("2006-01-02 15:04"),
				s.DateTo.Sub(s.DateFrom).Truncate(time.Minute).String(),
				s.Title,
				edited,
			)
		}
		return nil
	},
}

var sessionRenameCmd = &cobra.Command{
	Use:   "rename SESSION TITLE",
	Short: "Rename a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "RenameSession")
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.RenameSession(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("renaming session: %w", err)
		}
		fmt.Printf("Session %s is now %q\n", s.ID, s.Title)
		return nil
	},
}

// catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the object catalogue",
}

var catalogAddDSOCmd = &cobra.Command{
	Use:   "add-dso NAME",
	Short: "Add a deep-sky object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		objType, _ := cmd.Flags().GetString("type")
		constellation, _ := cmd.Flags().GetString("constellation")
		aliases, _ := cmd.Flags().GetStringSlice("alias")

		a, err := newApp(cmd, "AddDeepSkyObject")
		if err != nil {
			return err
		}
		defer a.Close()

		dso, err := a.AddDeepSkyObject(cmd.Context(), args[0], objType, constellation, aliases)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%s)\n", dso.Name, dso.ID)
		return nil
	},
}

var catalogAddDoubleCmd = &cobra.Command{
	Use:   "add-double NAME",
	Short: "Add a double star",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wds, _ := cmd.Flags().GetString("wds")
		constellation, _ := cmd.Flags().GetString("constellation")

		a, err := newApp(cmd, "AddDoubleStar")
		if err != nil {
			return err
		}
		defer a.Close()

		ds, err := a.AddDoubleStar(cmd.Context(), args[0], wds, constellation)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%s)\n", ds.CommonName, ds.ID)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug messages")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("owner", "", "Logbook owner id (default: a new UUID)")
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// import subcommands
	importCmd.AddCommand(importSubmitCmd)
	importSubmitCmd.Flags().StringP("session", "s", "", "Import every observation into this existing session")
	importCmd.AddCommand(importRunCmd)
	importRunCmd.Flags().BoolP("watch", "w", false, "Keep running and process imports as they are submitted")
	importCmd.AddCommand(importHistoryCmd)
	importHistoryCmd.Flags().IntP("limit", "n", 50, "Maximum number of imports to show")
	importCmd.AddCommand(importDeleteCmd)

	// session subcommands
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionRenameCmd)

	// catalog subcommands
	catalogCmd.AddCommand(catalogAddDSOCmd)
	catalogAddDSOCmd.Flags().String("type", "", "Object type code (GX, OC, GC, PN, ...)")
	catalogAddDSOCmd.Flags().String("constellation", "", "Constellation abbreviation")
	catalogAddDSOCmd.Flags().StringSlice("alias", nil, "Alternative designation (repeatable)")
	catalogCmd.AddCommand(catalogAddDoubleCmd)
	catalogAddDoubleCmd.Flags().String("wds", "", "WDS discoverer designation")
	catalogAddDoubleCmd.Flags().String("constellation", "", "Constellation abbreviation")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(catalogCmd)
}
