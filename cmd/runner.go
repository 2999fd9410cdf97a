package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/amestrin/crosstune/internal/auth"
	"github.com/amestrin/crosstune/internal/convert"
	"github.com/amestrin/crosstune/internal/library"
	"github.com/amestrin/crosstune/internal/match"
	"github.com/amestrin/crosstune/internal/repositories"
	"github.com/amestrin/crosstune/internal/session"
	"github.com/amestrin/crosstune/internal/shared"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
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
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, convertCommand, matchCommand, reportCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// stack bundles the wired collaborators behind one conversion run.
type stack struct {
	db        *sql.DB
	store     *repositories.CredentialRepository
	directory *library.Directory
	engine    *match.Engine
	registry  *session.Registry
}

func (s *stack) Close() error {
	return s.db.Close()
}

// buildStack opens the database and wires the launcher, library sources,
// match engine, and session registry from the runner's config.
func (r *Runner) buildStack() (*stack, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	store := repositories.NewCredentialRepository(db)
	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	launcher := auth.NewSessionLauncher(r.config, store, r.logger)

	directory := library.NewDirectory(5,
		library.NewSpotifySource(store),
		library.NewYTMusicSource(r.config.Credentials.YTMusic.ProxyURL, r.httpClient, store),
	)

	engine := match.NewEngine(directory,
		match.WithThreshold(r.config.Matching.ConfidenceThreshold),
		match.WithCandidateLimit(r.config.Matching.CandidateLimit),
	)

	registry := session.NewRegistry(session.Deps{
		Launcher:  launcher,
		Library:   directory,
		Matcher:   engine,
		Assembler: convert.NewAssembler(),
		Logger:    r.logger,
	})

	return &stack{
		db:        db,
		store:     store,
		directory: directory,
		engine:    engine,
		registry:  registry,
	}, nil
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
