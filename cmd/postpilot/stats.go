package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func statsCMD() *cobra.Command {
	var cfgPath string
	var cmd = &cobra.Command{
		Use:   "stats",
		Short: "Show artifact folder and vector store usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine(cfgPath)
			if err != nil {
				return err
			}
			folder, store, err := engine.Stats(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("artifact folder %s: %d files\n", folder.Root, folder.FileCount)
			fmt.Printf("vector store: %d vectors (dimension %d)\n", store.TotalVectors, store.Dimension)
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return cmd
}
