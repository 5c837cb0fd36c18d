package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/laminark/laminark/internal/config"
	"github.com/laminark/laminark/internal/embedding"
	"github.com/laminark/laminark/internal/logging"
	"github.com/laminark/laminark/internal/rpcserver"
	"github.com/laminark/laminark/internal/webserver"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

func buildServeCmd() *cobra.Command {
	var webPort int
	var noEmbed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server, the read-only dashboard, and the embedding worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(webPort, noEmbed)
		},
	}
	cmd.Flags().IntVar(&webPort, "web-port", 7461, "starting port for the read-only dashboard server")
	cmd.Flags().BoolVar(&noEmbed, "no-embed", false, "skip starting the embedding worker (MCP still works with keyword-only search)")
	return cmd
}

func runServe(webPort int, noEmbed bool) error {
	d, repos, err := openRepos()
	if err != nil {
		return err
	}
	defer d.Close()

	log := logging.New("laminarkctl")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	watcher, err := config.NewWatcher(cfg.DataDir, cfg.Privacy, log)
	if err != nil {
		return fmt.Errorf("laminark: start config watcher: %w", err)
	}
	defer watcher.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var embedClient *embedding.Client
	if !noEmbed {
		embedClient, err = embedding.NewClient()
		if err != nil {
			log.Warn().Err(err).Msg("embedding client unavailable, continuing with keyword-only search")
			embedClient = nil
		}
	}
	if embedClient != nil {
		worker := embedding.NewWorker(d.Conn(), embedClient, d.HasVectors(), log)
		worker.Start(ctx)
		defer worker.Stop()
	}

	web := webserver.New(repos, log)
	go web.Start(ctx, webPort)

	mcp := rpcserver.New(repos, embedClient, watcher.Privacy)
	log.Info().Msg("laminarkctl serving over stdio")
	if err := mcpserver.ServeStdio(mcp); err != nil {
		return fmt.Errorf("laminark: mcp server: %w", err)
	}
	return nil
}
