package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xiaot623/ragbook/internal/config"
	"github.com/xiaot623/ragbook/internal/domain"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var strategy string
	cmd := &cobra.Command{
		Use:   "ingest <files...>",
		Short: "Index local .txt and .md files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), opts, domain.ChunkStrategy(strategy), args)
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", string(domain.ChunkStrategyFixed), "chunking strategy: fixed, simple or paragraph")
	return cmd
}

func runIngest(ctx context.Context, opts *rootOptions, strategy domain.ChunkStrategy, paths []string) error {
	cfg, log, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if cfg.VectorBackend != config.VectorPGVector {
		return errors.New("ingest writes to a persistent index: set RAGBOOK_VECTOR_BACKEND=pgvector")
	}

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var failed int
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.WithError(err).WithField("file", path).Error("failed to read file")
			failed++
			continue
		}
		resp, err := a.svc.Upload(ctx, filepath.Base(path), data, strategy)
		if err != nil {
			log.WithError(err).WithField("file", path).Error("failed to ingest file")
			failed++
			continue
		}
		fmt.Printf("%s: %d chunks (document %s)\n", resp.FileName, resp.TotalChunks, resp.DocumentID)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}
