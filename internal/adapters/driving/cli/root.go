// Package cli implements the clausewise command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clausewise/internal/core/ports/driving"
	"github.com/custodia-labs/clausewise/internal/logger"
)

// skipBootstrap marks commands that run without the service graph.
const skipBootstrap = "clausewise/skip-bootstrap"

// Services is the service graph the commands run against.
type Services struct {
	Legal    driving.LegalService
	Index    driving.IndexService
	Settings driving.SettingsService
}

// BootstrapFunc builds the services for a data directory. The returned
// cleanup func is called once the command finishes and may be nil.
type BootstrapFunc func(ctx context.Context, dataDir string) (*Services, func(), error)

var (
	version = "dev"

	verbose bool
	dataDir string

	bootstrap BootstrapFunc
	cleanup   func()
	initErr   error

	legalService    driving.LegalService
	indexService    driving.IndexService
	settingsService driving.SettingsService
)

var rootCmd = &cobra.Command{
	Use:   "clausewise",
	Short: "Ask questions about legal documents",
	Long: `Clausewise answers questions about an uploaded contract or legal
document, points at the clause that supports each answer, and flags risky
clauses. Answers come from direct references, known questions, semantic
retrieval over the document, or a general-knowledge fallback.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.clausewise)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap sets the function that builds the services before a command runs.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// Execute runs the root command and releases the services afterwards,
// whether or not the command succeeded.
func Execute(ctx context.Context) error {
	defer teardownServices()
	return rootCmd.ExecuteContext(ctx)
}

func setupServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if bootstrap == nil || cmd.Annotations[skipBootstrap] == "true" {
		return nil
	}

	services, done, err := bootstrap(cmd.Context(), dataDir)
	cleanup = done
	if err != nil {
		// Commands that need the failed service report it; settings stay usable.
		initErr = err
		logger.Debug("bootstrap failed: %v", err)
	}
	if services == nil {
		return nil
	}
	if services.Legal != nil {
		legalService = services.Legal
	}
	if services.Index != nil {
		indexService = services.Index
	}
	if services.Settings != nil {
		settingsService = services.Settings
	}
	return nil
}

func teardownServices() {
	if cleanup != nil {
		cleanup()
		cleanup = nil
	}
}

func requireLegal() (driving.LegalService, error) {
	if legalService != nil {
		return legalService, nil
	}
	return nil, unavailable("legal")
}

func requireIndex() (driving.IndexService, error) {
	if indexService != nil {
		return indexService, nil
	}
	return nil, unavailable("index")
}

func unavailable(name string) error {
	if initErr != nil {
		return fmt.Errorf("%s service unavailable: %w", name, initErr)
	}
	return errors.New(name + " service not configured")
}
