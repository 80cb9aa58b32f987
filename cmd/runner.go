package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"ytbatch/internal/identity"
	"ytbatch/internal/journal"
	"ytbatch/internal/quota"
	"ytbatch/internal/repositories"
	"ytbatch/internal/retry"
	"ytbatch/internal/services"
	"ytbatch/internal/shared"
	"ytbatch/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, ledger, pool and engine are wired lazily by [Runner.bootstrap]
// so commands that never touch the journal (setup, config) work without a
// database file.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db        *sql.DB
	extractor services.Extractor
	writer    services.WriteClient
	ledger    *quota.Ledger
	pool      *identity.Pool
	store     *journal.Store
	engine    *tasks.Engine
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Extractor, Writer and DB are test seams; when nil, bootstrap builds the
// HTTP clients and opens the configured database.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB
	Extractor  services.Extractor
	Writer     services.WriteClient
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
		extractor:  opts.Extractor,
		writer:     opts.Writer,
	}
}

// bootstrap opens the database and wires the quota ledger, identity pool,
// journal store and batch engine. Safe to call from every command action;
// subsequent calls are no-ops.
func (r *Runner) bootstrap() error {
	if r.engine != nil {
		return nil
	}

	if len(r.config.Identities) == 0 {
		return fmt.Errorf("%w: no identities configured", shared.ErrInvalidConfig)
	}

	if r.db == nil {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		r.db = db
	}
	if err := shared.RunMigrations(r.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	ledger, err := quota.NewLedger(r.config.Identities, quota.LedgerOpts{
		Store:        quota.NewSQLStateStore(r.db),
		SafetyMargin: r.config.Quota.SafetyMargin,
	})
	if err != nil {
		return fmt.Errorf("failed to build quota ledger: %w", err)
	}
	r.ledger = ledger

	pool, err := identity.NewPool(r.config.Identities, ledger)
	if err != nil {
		return fmt.Errorf("failed to build identity pool: %w", err)
	}
	r.pool = pool

	if r.extractor == nil {
		r.extractor = services.NewHTTPExtractor(services.ExtractorOpts{
			BaseURL:    r.config.Extractor.BaseURL,
			HTTPClient: r.httpClient,
			RateLimit:  r.config.Extractor.RateLimit,
			Cache:      repositories.NewPlaylistCacheRepository(r.db),
			CacheTTL:   time.Duration(r.config.Extractor.CacheTTLMinutes) * time.Minute,
		})
	}
	if r.writer == nil {
		tokenFiles := make(map[string]string, len(r.config.Identities))
		for _, id := range r.config.Identities {
			tokenFiles[id.Name] = id.TokenFile
		}
		creds := services.NewFileCredentialStore(tokenFiles)
		r.writer = services.NewHTTPWriteClient(r.config.Writer.BaseURL, r.httpClient, creds)
	}

	r.store = journal.NewStore(r.db)
	r.engine = tasks.NewEngine(tasks.EngineOpts{
		Extractor: r.extractor,
		Writer:    r.writer,
		Ledger:    r.ledger,
		Pool:      r.pool,
		Journal:   r.store,
		Retry:     retry.PolicyOpts{},
	})

	return nil
}

// Close releases the database connection if bootstrap opened one.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, batchCommand, quotaCommand, identityCommand, exportCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// runOptsFromFlags builds the engine routing options shared by the batch
// subcommands.
func runOptsFromFlags(cmd *cli.Command) tasks.RunOpts {
	return tasks.RunOpts{
		Group:       cmd.String("group"),
		Environment: cmd.String("env"),
		Identity:    cmd.String("identity"),
		Strict:      cmd.Bool("strict"),
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
