package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apperr "github.com/agentmem/agentmem/internal/errors"
	"github.com/agentmem/agentmem/internal/observability"
	"github.com/agentmem/agentmem/internal/profile"
	"github.com/agentmem/agentmem/internal/version"
	"github.com/agentmem/agentmem/memory"
	"github.com/agentmem/agentmem/store"
	"github.com/agentmem/agentmem/store/db"
)

const commandTimeout = 30 * time.Second

var (
	rootCmd = &cobra.Command{
		Use:   "agentmem",
		Short: "Persistent working memory for AI agent sessions",
	}

	createCmd = &cobra.Command{
		Use:   "create",
		Short: "Create an empty memory session for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, "create", func(ctx context.Context, svc *memory.Service, rc *observability.RequestContext) error {
				sessionID, err := svc.CreateSession(ctx, viper.GetString("user"))
				if err != nil {
					return err
				}
				return printJSON(map[string]string{"sessionId": sessionID})
			})
		},
	}

	appendCmd = &cobra.Command{
		Use:   "append",
		Short: "Append one interaction to a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Command-local flags are read from the command itself: binding
			// them through viper would collide on the "session" key shared
			// with the delete command.
			sessionID, _ := cmd.Flags().GetString("session")
			thought, _ := cmd.Flags().GetString("thought")
			action, _ := cmd.Flags().GetString("action")
			observation, _ := cmd.Flags().GetString("observation")
			return withService(cmd, "append", func(ctx context.Context, svc *memory.Service, rc *observability.RequestContext) error {
				err := svc.AppendInteraction(ctx, viper.GetString("user"), sessionID, memory.Interaction{
					Thought:     thought,
					Action:      action,
					Observation: observation,
				})
				if err != nil {
					return err
				}
				return printJSON(map[string]string{"status": "appended"})
			})
		},
	}

	searchCmd = &cobra.Command{
		Use:   "search [query]",
		Short: "Search a user's sessions by relevance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			limit, _ := cmd.Flags().GetInt("limit")
			return withService(cmd, "search", func(ctx context.Context, svc *memory.Service, rc *observability.RequestContext) error {
				results, err := svc.SearchRelevantMemories(ctx, viper.GetString("user"), query, limit)
				if err != nil {
					return err
				}
				return printJSON(results)
			})
		},
	}

	sessionsCmd = &cobra.Command{
		Use:   "sessions",
		Short: "List a user's sessions, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, "sessions", func(ctx context.Context, svc *memory.Service, rc *observability.RequestContext) error {
				sessions, err := svc.GetUserSessions(ctx, viper.GetString("user"))
				if err != nil {
					return err
				}
				return printJSON(sessions)
			})
		},
	}

	deleteCmd = &cobra.Command{
		Use:   "delete",
		Short: "Delete a session and its interactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessionID, _ := cmd.Flags().GetString("session")
			return withService(cmd, "delete", func(ctx context.Context, svc *memory.Service, rc *observability.RequestContext) error {
				if err := svc.DeleteSession(ctx, viper.GetString("user"), sessionID); err != nil {
					return err
				}
				return printJSON(map[string]string{"status": "deleted"})
			})
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Initialize the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, "migrate", func(_ context.Context, _ *memory.Service, rc *observability.RequestContext) error {
				// Migration already ran during service setup.
				rc.Info("schema up to date")
				return printJSON(map[string]string{"status": "migrated"})
			})
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(version.GetCurrentVersion(viper.GetString("mode")))
		},
	}
)

// withService builds a service from the runtime profile, runs fn against it
// with a bounded context, and tears the store down afterwards.
func withService(cmd *cobra.Command, op string, fn func(context.Context, *memory.Service, *observability.RequestContext) error) error {
	instanceProfile := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Data:    viper.GetString("data"),
		DSN:     viper.GetString("dsn"),
		Driver:  viper.GetString("driver"),
		Version: version.GetCurrentVersion(viper.GetString("mode")),
	}
	if err := instanceProfile.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	logger := observability.NewLogger(instanceProfile.IsDev())
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	driver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return fmt.Errorf("failed to create db driver: %w", err)
	}
	storeInstance := store.New(driver, instanceProfile)
	defer storeInstance.Close()

	// A store without a schema serves nothing; refuse to start.
	if err := storeInstance.Migrate(ctx); err != nil {
		return apperr.SchemaInitFailure(err)
	}

	rc := observability.NewRequestContext(logger, op, viper.GetString("user"))
	svc := memory.NewService(storeInstance, logger)

	if err := fn(ctx, svc, rc); err != nil {
		rc.Error("operation failed", err)
		return err
	}
	rc.Info("operation completed", slog.Int64(observability.LogFieldDuration, rc.DurationMs()))
	return nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", `database driver, can be "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("user", "", "user id owning the memory sessions")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}

	appendCmd.Flags().String("session", "", "session id")
	appendCmd.Flags().String("thought", "", "agent reasoning for this step")
	appendCmd.Flags().String("action", "", "action the agent took")
	appendCmd.Flags().String("observation", "", "what the agent observed")
	deleteCmd.Flags().String("session", "", "session id")
	searchCmd.Flags().Int("limit", 0, "maximum number of results")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(appendCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)

	viper.SetEnvPrefix("agentmem")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
