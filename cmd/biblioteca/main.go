package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/biblioteca-api/pkg/config"
	"github.com/noah-isme/biblioteca-api/pkg/logger"
)

// @title Biblioteca API
// @version 1.0
// @description Loan ledger, sanctions and reporting for a university library.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries state resolved once in the root pre-run hook.
type cli struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "biblioteca",
		Short:         "Library loan ledger service and maintenance tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			c.cfg, c.logger = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.AddCommand(
		c.serveCommand(),
		c.migrateCommand(),
		c.sanctionsCommand(),
		c.semestersCommand(),
		c.triggersCommand(),
		c.reportsCommand(),
		c.tokenCommand(),
	)
	return root
}

// withApp wires the application for a single command run and closes it afterwards.
func (c *cli) withApp(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := newApp(cmd.Context(), c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
