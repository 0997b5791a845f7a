package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"casework/internal/app"
	"casework/internal/archive"
	"casework/internal/db"
	"casework/internal/engine"
	"casework/internal/migrate"
	"casework/internal/repo"
	"casework/internal/server"
	"casework/internal/wizard"
)

var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "cw",
	Short: "Casework CLI",
	Long: `Casework keeps the family registry of a social assistance ministry.
- Families register themselves through the five-step wizard (cw serve exposes it publicly) or are entered with cw family register.
- Caseworkers follow each family with a status, an urgency level, visits, tasks and attendance notes.
- Reports (family list, visits, statistics, family sheet) are rendered as PDF or CSV and can be archived to disk or S3.
- Every change is written to the event log; read it with 'cw log tail'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(viper.GetBool("debug"))
		if err != nil {
			return err
		}
		logger = l
		if viper.GetString("database-url") != "" {
			return nil
		}
		_, err = db.EnsureWorkspace(viper.GetString("workspace"))
		return err
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CASEWORK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	loadWorkspaceEnv(filepath.Join(viper.GetString("workspace"), ".env"))
}

// loadWorkspaceEnv reads CASEWORK_* entries of a workspace .env file as
// defaults below flags and the process environment.
func loadWorkspaceEnv(path string) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return
	}
	for _, k := range v.AllKeys() {
		if !strings.HasPrefix(k, "casework_") {
			continue
		}
		key := strings.ReplaceAll(strings.TrimPrefix(k, "casework_"), "_", "-")
		viper.SetDefault(key, v.GetString(k))
	}
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL URL (default: SQLite file in the workspace)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().Bool("debug", false, "debug logging")
	for _, name := range []string{"workspace", "database-url", "json", "actor-id", "debug"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
	addArchiveFlags(rootCmd.PersistentFlags())
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(familyCmd())
	rootCmd.AddCommand(visitCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// addArchiveFlags registers the report archive settings shared by serve and
// the report commands.
func addArchiveFlags(flags *pflag.FlagSet) {
	flags.String("archive", "", "archive generated reports: fs or s3")
	flags.String("archive-dir", "", "directory for the fs archive (default <workspace>/.casework/reports)")
	flags.String("s3-bucket", "", "bucket for the s3 archive")
	flags.String("s3-region", "", "region for the s3 archive")
	flags.String("s3-endpoint", "", "custom S3 endpoint (MinIO, LocalStack)")
	flags.String("s3-prefix", "casework", "key prefix for the s3 archive")
	for _, name := range []string{"archive", "archive-dir", "s3-bucket", "s3-region", "s3-endpoint", "s3-prefix"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func archiveConfig() archive.Config {
	dir := viper.GetString("archive-dir")
	if dir == "" {
		dir = filepath.Join(viper.GetString("workspace"), ".casework", "reports")
	}
	return archive.Config{
		Kind:     archive.Kind(viper.GetString("archive")),
		Dir:      dir,
		Bucket:   viper.GetString("s3-bucket"),
		Region:   viper.GetString("s3-region"),
		Endpoint: viper.GetString("s3-endpoint"),
		Prefix:   viper.GetString("s3-prefix"),
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		Long:  "Serves the public registration wizard and the authenticated caseworker API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				authCfg := server.AuthConfig{
					JWTSecret: viper.GetString("jwt-secret"),
					DevLogin:  viper.GetBool("dev-login"),
					TokenTTL:  viper.GetDuration("token-ttl"),
				}
				if authCfg.JWTSecret == "" {
					return fmt.Errorf("CASEWORK_JWT_SECRET is required for bearer auth")
				}
				var sessions wizard.SessionStore
				if url := viper.GetString("redis-url"); url != "" {
					client, err := wizard.DialRedis(ctx, url)
					if err != nil {
						return err
					}
					defer client.Close()
					sessions = wizard.NewRedisStore(client, e.Settings().SessionTTL())
					logger.Info("wizard sessions in redis", zap.String("addr", client.Options().Addr))
				}
				handler, err := server.New(server.Config{
					Engine:    e,
					BasePath:  basePath,
					Auth:      authCfg,
					Sessions:  sessions,
					RateLimit: server.RateLimit{RPS: viper.GetFloat64("rate-rps"), Burst: viper.GetInt("rate-burst")},
					Logger:    logger,
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				logger.Info("serving casework API",
					zap.String("url", "http://"+addr+basePath),
					zap.String("openapi", basePath+"/openapi.json"),
					zap.String("docs", "/docs"))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().String("jwt-secret", "", "HS256 secret for bearer tokens")
	cmd.Flags().Bool("dev-login", false, "enable POST /auth/dev/login")
	cmd.Flags().Duration("token-ttl", 12*time.Hour, "lifetime of dev-login tokens")
	cmd.Flags().String("redis-url", "", "store wizard sessions in Redis (redis://host:6379/0)")
	cmd.Flags().Float64("rate-rps", 2, "registration requests per second per IP (0 disables)")
	cmd.Flags().Int("rate-burst", 20, "registration burst per IP")
	for _, name := range []string{"jwt-secret", "dev-login", "token-ttl", "redis-url", "rate-rps", "rate-burst"} {
		_ = viper.BindPFlag(name, cmd.Flags().Lookup(name))
	}
	return cmd
}

// --- helpers ---

func dbConfig() db.Config {
	return db.Config{Workspace: viper.GetString("workspace"), DSN: viper.GetString("database-url")}
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	dbCfg := dbConfig()
	conn, err := db.Open(dbCfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.MigrateDialect(conn, dbCfg.Dialect()); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn, Dialect: dbCfg.Dialect()})
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	return withRepo(ctx, func(ctx context.Context, r repo.Repo) error {
		cfg, err := app.ResolveConfig(ctx, viper.GetString("workspace"), actorID(), r)
		if err != nil {
			return err
		}
		e := engine.New(r.DB, r.Dialect, cfg)
		e.Logger = logger
		arch, err := archive.Open(ctx, archiveConfig())
		if err != nil {
			return err
		}
		e.Archive = arch
		return fn(ctx, e)
	})
}

func actorID() string {
	return viper.GetString("actor-id")
}

func printJSONOrTable(v any, render func(table.Writer)) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	render(tw)
	tw.Render()
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
