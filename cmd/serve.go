package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/scholar/internal/ai"
	"github.com/arin/scholar/internal/server"
	"github.com/arin/scholar/internal/voice"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API for a browser front end",
	Long: `Serve conversations, streamed replies (server-sent events) and the live voice
relay (WebSocket) over HTTP.

Endpoints:
  GET  /healthz
  GET  /api/conversations
  POST /api/conversations
  GET  /api/conversations/{id}
  POST /api/conversations/{id}/messages              {"text","mode","readingContext"}
  POST /api/conversations/{id}/messages/{msgID}/retry
  POST /api/conversations/{id}/suggest
  GET  /api/voice?conversation={id}                  WebSocket`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		opts := []server.Option{server.WithLogger(a.logger)}
		if a.cfg.GoogleAPIKey != "" {
			opts = append(opts, server.WithVoice(voice.GeminiDialer(a.cfg.GoogleAPIKey, ai.SystemInstruction(ai.ModeChat), nil)))
		}
		srv := server.New(a.store, a.runner("server"), opts...)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		color.New(color.FgCyan, color.Bold).Fprintf(os.Stderr, "\n  scholar serving on %s (provider %s)\n\n", serveAddr, a.cfg.Provider)
		return srv.ListenAndServe(ctx, serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Address to listen on")
}
