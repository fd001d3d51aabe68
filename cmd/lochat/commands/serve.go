package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"lochat/internal/logging"
	"lochat/internal/server"
)

// NewServeCmd constructs the `lochat serve` command, which exposes the
// conversational session over a REST/SSE API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the lochat HTTP server",
		Long: `Start the lochat HTTP server on localhost.

The server exposes one conversational session over REST/SSE:

  POST /api/chat    run a chat turn, streamed as Server-Sent Events
  POST /api/index   index a document for retrieval-augmented answers
  POST /api/reset   restart the conversation
  GET  /api/models  list chat-capable models
  GET  /api/health  liveness, GET /api/ready readiness, GET /metrics

Examples:
  lochat serve
  lochat serve --port 9090
  LOCHAT_API_KEY=secret lochat serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			// Flags win; otherwise the env (possibly filled from YAML) decides.
			if !cmd.Flags().Changed("host") {
				if v := os.Getenv("LOCHAT_HOST"); v != "" {
					host = v
				}
			}
			if !cmd.Flags().Changed("port") {
				if v, err := strconv.Atoi(os.Getenv("LOCHAT_PORT")); err == nil {
					port = v
				}
			}

			sess, client := buildSession(log)

			log.Info("serve starting",
				slog.String("ollama_host", os.Getenv("OLLAMA_HOST")),
				slog.String("model", envModel()),
			)

			rateLimit, _ := strconv.ParseFloat(os.Getenv("LOCHAT_RATE_LIMIT"), 64)
			rateBurst, _ := strconv.Atoi(os.Getenv("LOCHAT_RATE_BURST"))

			srv, err := server.New(sess, &server.Config{
				Host:      host,
				Port:      port,
				Logger:    log,
				Pingers:   []server.Pinger{server.NewOllamaPinger(client)},
				APIKey:    os.Getenv("LOCHAT_API_KEY"),
				RateLimit: rateLimit,
				RateBurst: rateBurst,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
