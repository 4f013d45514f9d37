package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"topomap/internal/codec"
	"topomap/internal/service"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON or YAML topology into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			c, err := codec.ForPath(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			svc, closeDB, err := openService(cmd, cfg, logger)
			if err != nil {
				return err
			}
			defer closeDB()

			result, err := svc.Import(cmd.Context(), f, c.Format(), service.ImportStrategy(strategy))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: imported %d nodes and %d links (now %d nodes, %d links)\n",
				result.Strategy, result.NodesImported, result.LinksImported, result.NodesTotal, result.LinksTotal)
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", string(service.ImportMerge), "merge or replace")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored topology as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if output != "" && !cmd.Flags().Changed("format") {
				if c, err := codec.ForPath(output); err == nil {
					format = c.Format()
				}
			}

			svc, closeDB, err := openService(cmd, cfg, logger)
			if err != nil {
				return err
			}
			defer closeDB()

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return svc.Export(out, strings.ToLower(format))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
