// Command ragbook runs the RAG and interview booking service.
package main

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xiaot623/ragbook/internal/config"
	"github.com/xiaot623/ragbook/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "ragbook",
		Short:        "Document Q&A with conversational interview booking",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment")

	cmd.AddCommand(newServeCmd(opts), newIngestCmd(opts))
	return cmd
}

// loadConfig reads configuration and builds the logger it asks for.
func (o *rootOptions) loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(o.envFile)
	var warn *config.DotenvWarning
	if err != nil && !errors.As(err, &warn) {
		return nil, nil, err
	}

	log := logger.New(cfg.LogLevel)
	if warn != nil {
		log.WithError(warn.Err).Debug("no dotenv file loaded")
	}
	return cfg, log, nil
}
