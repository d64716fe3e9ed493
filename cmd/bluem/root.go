package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-bluem/internal/config"
	"github.com/sirosfoundation/go-bluem/pkg/bluem"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	envFile    string
	showXML    bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "bluem",
		Short: "Client for the Bluem transaction API",
		Long: `bluem creates e-mandates, payments, identity and IBAN name checks
against the Bluem transaction API and receives their signed status updates.

Configuration is read from a YAML file. Environment variables referenced in
it are expanded after loading the optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadEnv()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "bluem.yaml", "Configuration file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Environment file loaded before the configuration")
	root.PersistentFlags().BoolVar(&a.showXML, "xml", false, "Print the raw response XML")

	root.AddCommand(
		a.mandateCmd(),
		a.mandateStatusCmd(),
		a.paymentCmd(),
		a.paymentStatusCmd(),
		a.identityCmd(),
		a.identityStatusCmd(),
		a.ibanCheckCmd(),
		a.banksCmd(),
		a.serveCmd(),
		a.notificationsCmd(),
		a.signCmd(),
		a.verifyCmd(),
	)
	return root
}

// loadEnv reads the env file if it exists. Variables already set in the
// process environment win.
func (a *app) loadEnv() error {
	if a.envFile == "" {
		return nil
	}
	if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", a.envFile, err)
	}
	return nil
}

// config loads the configuration file on first use and installs its logger.
func (a *app) config(cmd *cobra.Command) (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	a.logger = cfg.Logger(cmd.ErrOrStderr())
	return cfg, nil
}

func (a *app) client(cmd *cobra.Command) (*bluem.Client, error) {
	cfg, err := a.config(cmd)
	if err != nil {
		return nil, err
	}
	integration, err := cfg.Integration()
	if err != nil {
		return nil, err
	}
	return bluem.New(integration, bluem.WithLogger(a.logger))
}
