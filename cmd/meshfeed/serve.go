package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/rickgao/meshview/internal/geometry"
)

var (
	serveAddr     string
	serveInterval time.Duration
	servePattern  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve demo geometry over WebSocket",
	Long:  "Accept viewer connections and send one update per interval to each of them.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":9223", "listen address")
	serveCmd.Flags().DurationVar(&serveInterval, "interval", time.Second, "time between updates")
	serveCmd.Flags().StringVar(&servePattern, "pattern", patternAlternate, "alternate, mesh or lines")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if _, err := frameAt(servePattern, 0); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           newFeedHandler(servePattern, serveInterval, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving geometry", "addr", serveAddr, "pattern", servePattern, "interval", serveInterval)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newFeedHandler upgrades every request and streams frames until the peer leaves.
func newFeedHandler(pattern string, interval time.Duration, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		peer := r.RemoteAddr
		logger.Info("viewer connected", "peer", peer)

		// The read side only watches for the peer going away.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for n := 0; ; n++ {
			if err := sendFrame(conn, pattern, n); err != nil {
				logger.Info("viewer disconnected", "peer", peer, "frames", n, "error", err)
				return
			}

			select {
			case <-gone:
				logger.Info("viewer disconnected", "peer", peer, "frames", n+1)
				return
			case <-r.Context().Done():
				return
			case <-ticker.C:
			}
		}
	})
}

func sendFrame(conn *websocket.Conn, pattern string, n int) error {
	u, err := frameAt(pattern, n)
	if err != nil {
		return err
	}
	data, err := geometry.Encode(u)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}
