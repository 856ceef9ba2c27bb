package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/rdeepak-711/spotify-playlist-app/internal/catalog"
	"github.com/rdeepak-711/spotify-playlist-app/internal/credits"
	"github.com/rdeepak-711/spotify-playlist-app/internal/enrichment"
	"github.com/rdeepak-711/spotify-playlist-app/internal/models"
	"github.com/rdeepak-711/spotify-playlist-app/internal/repositories"
	"github.com/rdeepak-711/spotify-playlist-app/internal/services"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"github.com/rdeepak-711/spotify-playlist-app/internal/tasks"
	"github.com/rdeepak-711/spotify-playlist-app/internal/tokens"
	"github.com/rdeepak-711/spotify-playlist-app/internal/vault"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Collaborators are built on first use so that a command only needs the
// configuration it actually touches.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	jsonOutput bool

	store     models.Store
	ownsStore bool
	catalog   services.Catalog
	endpoint  services.TokenEndpoint
	oracle    services.Oracle
	cipher    vault.Cipher

	tokens *tokens.Manager
	engine *tasks.Engine
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Any collaborator left nil is built from Config when a command needs it.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Store      models.Store
	Catalog    services.Catalog
	Endpoint   services.TokenEndpoint
	Oracle     services.Oracle
	Cipher     vault.Cipher
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		store:      opts.Store,
		catalog:    opts.Catalog,
		endpoint:   opts.Endpoint,
		oracle:     opts.Oracle,
		cipher:     opts.Cipher,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, authCommand, syncCommand, enrichCommand,
		creditsCommand, playlistsCommand, classifyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before resolves the configuration and output mode from the global flags.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	r.jsonOutput = cmd.Bool("json")
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.config == nil {
		config, err := shared.ResolveConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	level := shared.ParseLogLevel(r.config.Log.Level)
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)
	return ctx, nil
}

// after closes the store when the runner opened it.
func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	if r.store == nil || !r.ownsStore {
		return nil
	}
	err := r.store.Close(context.WithoutCancel(ctx))
	r.store, r.ownsStore = nil, false
	r.tokens, r.engine = nil, nil
	return err
}

// SetLogger replaces the logger used by the runner and everything it builds afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

func (r *Runner) openStore(ctx context.Context) (models.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	store, err := repositories.Open(ctx, r.cfg().Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	r.logger.Debug("store opened", "driver", r.cfg().Database.Driver)
	r.store, r.ownsStore = store, true
	return store, nil
}

func (r *Runner) spotifyClient() error {
	if r.catalog != nil && r.endpoint != nil {
		return nil
	}
	if err := r.cfg().RequireSpotify(); err != nil {
		return err
	}

	creds := r.cfg().Credentials.Spotify
	svc, err := services.NewSpotifyService(map[string]string{
		"client_id":     creds.ClientID,
		"client_secret": creds.ClientSecret,
		"redirect_uri":  creds.RedirectURI,
	})
	if err != nil {
		return err
	}
	if r.catalog == nil {
		r.catalog = svc
	}
	if r.endpoint == nil {
		r.endpoint = svc
	}
	return nil
}

func (r *Runner) vault() (vault.Cipher, error) {
	if r.cipher != nil {
		return r.cipher, nil
	}
	if err := r.cfg().RequireVault(); err != nil {
		return nil, err
	}

	v, err := vault.New(r.cfg().Vault.SecretKey)
	if err != nil {
		return nil, err
	}
	r.cipher = v
	return v, nil
}

func (r *Runner) tokenManager(ctx context.Context) (*tokens.Manager, error) {
	if r.tokens != nil {
		return r.tokens, nil
	}

	store, err := r.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.spotifyClient(); err != nil {
		return nil, err
	}
	cipher, err := r.vault()
	if err != nil {
		return nil, err
	}

	r.tokens = tokens.NewManager(store, cipher, r.endpoint, r.catalog, r.logger)
	return r.tokens, nil
}

// syncEngine builds the reconciliation engine.
//
// Without Spotify credentials the engine can still read the store and
// recompute aggregates; any sync attempt fails with the missing credential.
func (r *Runner) syncEngine(ctx context.Context) (*tasks.Engine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	store, err := r.openStore(ctx)
	if err != nil {
		return nil, err
	}

	var bearers tasks.BearerSource = offlineBearers{reason: "spotify credentials are not configured"}
	if mgr, err := r.tokenManager(ctx); err == nil {
		bearers = mgr
	} else {
		r.logger.Debug("sync engine is store-only", "err", err)
	}

	sync := r.cfg().Sync
	fetcher := catalog.NewFetcher(r.catalog, catalog.Options{
		FanOut:            sync.FanOut,
		RequestsPerSecond: sync.RequestsPerSecond,
		Logger:            r.logger,
	})

	r.engine = tasks.NewEngine(store, fetcher, bearers, r.logger)
	return r.engine, nil
}

func (r *Runner) classifier() (*enrichment.Classifier, error) {
	if r.oracle == nil {
		if err := r.cfg().RequireOracle(); err != nil {
			return nil, err
		}
		svc, err := services.NewAnthropicService(r.cfg().Credentials.Anthropic)
		if err != nil {
			return nil, err
		}
		r.oracle = svc
	}
	return enrichment.NewClassifier(r.oracle, r.logger), nil
}

// ledger builds the credit ledger; balance and grant work without an oracle.
func (r *Runner) ledger(ctx context.Context, withOracle bool) (*credits.Ledger, error) {
	store, err := r.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if !withOracle {
		return credits.NewLedger(store, nil, 0, r.logger), nil
	}

	classifier, err := r.classifier()
	if err != nil {
		return nil, err
	}
	engine, err := r.syncEngine(ctx)
	if err != nil {
		return nil, err
	}

	enricher := enrichment.NewEnricher(store, classifier, engine, r.logger)
	return credits.NewLedger(store, enricher, r.cfg().Enrichment.Concurrency, r.logger), nil
}

type offlineBearers struct {
	reason string
}

func (o offlineBearers) Bearer(ctx context.Context, userID string) (*catalog.Bearer, error) {
	return nil, fmt.Errorf("%w: %s", shared.ErrMissingCredentials, o.reason)
}

// emit writes res as JSON in --json mode and calls plain otherwise.
func (r *Runner) emit(res shared.Result, plain func() error) error {
	if r.jsonOutput || plain == nil {
		return r.writeJSON(res, true)
	}
	return plain()
}

// notef prints interactive progress; in --json mode it goes to the log so stdout stays parseable.
func (r *Runner) notef(format string, args ...any) {
	if r.jsonOutput {
		r.logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
		return
	}
	r.writePlain(format, args...)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
