package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pbaille/shore/internal/api"
	"github.com/pbaille/shore/internal/companion"
	"github.com/pbaille/shore/internal/config"
	"github.com/pbaille/shore/internal/domain"
	"github.com/pbaille/shore/internal/journal"
	"github.com/pbaille/shore/internal/logger"
	"github.com/pbaille/shore/internal/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
	timezone   string
	logLevel   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	configPath, dbPath, timezone, logLevel = "", "", "", ""

	rootCmd := &cobra.Command{
		Use:           "shore",
		Short:         "A calm place to set down what you feel, one day at a time",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/shore/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path")
	rootCmd.PersistentFlags().StringVar(&timezone, "tz", "", "timezone used to group entries by day")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(daysCmd())
	rootCmd.AddCommand(dayCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(rmCmd())
	rootCmd.AddCommand(companionsCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	return rootCmd
}

// loadConfig merges file, environment and flags
func loadConfig() (config.Config, error) {
	var cfg config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, err
	}

	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if timezone != "" {
		cfg.Timezone = timezone
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return config.Normalize(cfg), nil
}

// session is one opened journal plus whatever must be closed afterwards
type session struct {
	cfg     config.Config
	log     zerolog.Logger
	journal *journal.Service
	close   func()
}

// openSession builds the journal service. With memory set, nothing is persisted.
func openSession(ctx context.Context, memory bool) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.Console(cfg.LogLevel)

	st := journal.New(journal.WithLocation(cfg.Location()))
	closeFn := func() {}

	var repo journal.Repository
	if !memory {
		db, err := store.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		repo = db
		closeFn = func() {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("close database")
			}
		}
	}

	svc := journal.NewService(st, repo, log)
	if err := svc.Open(ctx); err != nil {
		closeFn()
		return nil, err
	}
	return &session{cfg: cfg, log: log, journal: svc, close: closeFn}, nil
}

func addCmd() *cobra.Command {
	var emotion string
	var tags []string

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Set down a new entry",
		Long:  "Set down a new entry. Without arguments the content is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.Join(args, " ")
			if strings.TrimSpace(content) == "" {
				var err error
				content, err = readContent(cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
			}

			var opts []journal.EntryOption
			if emotion != "" {
				em, err := domain.ParseEmotion(emotion)
				if err != nil {
					return err
				}
				opts = append(opts, journal.WithEmotion(em))
			}
			if len(tags) > 0 {
				opts = append(opts, journal.WithTags(tags...))
			}

			s, err := openSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			entry, err := s.journal.Add(cmd.Context(), content, opts...)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "已接住你的情緒！")
			fmt.Fprintf(cmd.OutOrStdout(), "Added entry: %s\n", shortID(entry.ID))
			return nil
		},
	}

	cmd.Flags().StringVarP(&emotion, "emotion", "e", "", "emotion tag (happy, sad, angry, anxious, calm, excited, neutral)")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "label to attach (repeatable)")
	return cmd
}

// readContent prompts for an entry and reads until EOF
func readContent(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "想說什麼都可以，這裡安全接住你的每個情緒\n> ")
	b, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	return string(b), nil
}

func listCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			entries := s.journal.Entries()
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No entries yet. Use 'shore add' to create one.")
				return nil
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			printEntries(cmd.OutOrStdout(), entries, s.journal.Store().Location(), "2006-01-02 15:04")
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of entries to show (0 = all)")
	return cmd
}

func daysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "days",
		Short: "List the days that have entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			groups := s.journal.GroupByDay()
			days := journal.SortedDays(groups)
			if len(days) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No entries yet.")
				return nil
			}
			for _, d := range days {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %d\n", d, len(groups[d]))
			}
			return nil
		},
	}
}

func dayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "day [YYYY-MM-DD|today]",
		Short: "Show the entries of one day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			loc := s.journal.Store().Location()
			day := domain.DayOf(time.Now(), loc)
			if len(args) == 1 && args[0] != "today" {
				day, err = domain.ParseDay(args[0])
				if err != nil {
					return err
				}
			}

			entries := s.journal.Day(day)
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Nothing on %s.\n", day)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", day)
			printEntries(cmd.OutOrStdout(), entries, loc, "15:04")
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show entry details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			entry, err := s.journal.FindByPrefix(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:      %s\n", entry.ID)
			fmt.Fprintf(out, "Created: %s\n", entry.Timestamp.In(s.journal.Store().Location()).Format("2006-01-02 15:04:05"))
			if entry.Emotion != nil {
				fmt.Fprintf(out, "Emotion: %s (%s)\n", *entry.Emotion, entry.Emotion.Label())
			}
			fmt.Fprintf(out, "Content:\n%s\n", entry.Content)

			if len(entry.Tags) > 0 {
				fmt.Fprintf(out, "\nTags:\n")
				for _, t := range entry.Tags {
					fmt.Fprintf(out, "  - %s\n", t)
				}
			}
			return nil
		},
	}
}

func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm [id]",
		Aliases: []string{"burn"},
		Short:   "Delete an entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			entry, err := s.journal.FindByPrefix(args[0])
			if err != nil {
				return err
			}
			if _, err := s.journal.Remove(cmd.Context(), entry.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", shortID(entry.ID))
			return nil
		},
	}
}

func companionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "companions",
		Short: "List the AI companions an entry can be shared with",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range companion.Characters() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-5s %s  %s\n", c.Slug, c.Name, c.Description)
			}
			return nil
		},
	}
}

func chatCmd() *cobra.Command {
	var character string

	cmd := &cobra.Command{
		Use:   "chat [id]",
		Short: "Open a companion conversation about an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			entry, err := s.journal.FindByPrefix(args[0])
			if err != nil {
				return err
			}
			conv, err := companion.Start(entry, character, time.Now())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", conv.Character.Name, truncate(entry.Content, 60))
			fmt.Fprintln(cmd.OutOrStdout(), conv.Prompt)
			return nil
		},
	}

	cmd.Flags().StringVarP(&character, "character", "c", "qing", "companion slug")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string
	var memory bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), memory)
			if err != nil {
				return err
			}
			defer s.close()

			if addr == "" {
				addr = s.cfg.Addr
			}

			unsubscribe := s.journal.Store().Subscribe(func(c journal.Change) {
				s.log.Info().Str("change", string(c.Kind)).Str("id", c.Entry.ID).Int("entries", s.journal.Store().Len()).Msg("journal changed")
			})
			defer unsubscribe()

			server := api.New(s.journal, addr, s.log)
			return server.Run()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (default from config, :8080)")
	cmd.Flags().BoolVar(&memory, "memory", false, "keep entries in memory only")
	return cmd
}

func configCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Print the effective configuration. With --write it is also saved to the config file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if write {
				path := configPath
				if path == "" {
					if path, err = config.Path(); err != nil {
						return err
					}
				}
				if err := config.Save(path, cfg); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %s\n", path)
			}
			fmt.Fprintf(out, "db_path   = %s\n", cfg.DBPath)
			fmt.Fprintf(out, "addr      = %s\n", cfg.Addr)
			fmt.Fprintf(out, "log_level = %s\n", cfg.LogLevel)
			fmt.Fprintf(out, "timezone  = %s\n", cfg.Location())
			return nil
		},
	}

	cmd.Flags().BoolVar(&write, "write", false, "save the effective configuration")
	return cmd
}

func printEntries(w io.Writer, entries []domain.Entry, loc *time.Location, layout string) {
	for _, e := range entries {
		mood := ""
		if e.Emotion != nil {
			mood = " [" + e.Emotion.Label() + "]"
		}
		fmt.Fprintf(w, "%s  %s  %s%s\n", shortID(e.ID), e.Timestamp.In(loc).Format(layout), truncate(e.Content, 60), mood)
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
