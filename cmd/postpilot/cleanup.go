package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/postpilot/config"
	"github.com/mohammad-safakhou/postpilot/internal/artifact"
	"github.com/mohammad-safakhou/postpilot/internal/cleanup"
	"github.com/mohammad-safakhou/postpilot/internal/session"
	"github.com/mohammad-safakhou/postpilot/internal/vectorstore"
	"github.com/mohammad-safakhou/postpilot/models"
)

// buildEngine wires the cleanup engine directly from config, without the
// HTTP server. Only persistent backends are visible from a separate process;
// with in-memory backends the command still reclaims the artifact folder.
func buildEngine(cfgPath string) (*cleanup.Engine, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	store, err := vectorstore.New(cfg.Vector, cfg.Embedding.Dimension)
	if err != nil {
		return nil, err
	}
	registry, err := session.NewRegistry(cfg.Session)
	if err != nil {
		return nil, err
	}
	artifacts, err := artifact.NewStore(cfg.Artifact.Root)
	if err != nil {
		return nil, err
	}
	return cleanup.NewEngine(artifacts, store, registry), nil
}

func cleanupCMD() *cobra.Command {
	var cfgPath string
	var confirm bool
	var scope string
	var cmd = &cobra.Command{
		Use:   "cleanup",
		Short: "Delete session artifacts and vectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine(cfgPath)
			if err != nil {
				return err
			}
			result, err := engine.Cleanup(context.Background(), scope, confirm)
			if err != nil {
				return err
			}
			fmt.Printf("scope %s: %d files deleted (%d errors), %d vectors deleted (%d -> %d)\n",
				result.Scope, result.Folder.DeletedCount, len(result.Folder.Errors),
				result.Vector.VectorsDeleted, result.Vector.VectorsBefore, result.Vector.VectorsAfter)
			for _, e := range result.Folder.Errors {
				fmt.Printf("  folder: %s\n", e)
			}
			if result.Vector.Error != "" {
				fmt.Printf("  vector: %s\n", result.Vector.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", models.CleanupScopeAll, "session id, or 'all' for everything")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "required before anything is deleted")
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return cmd
}
