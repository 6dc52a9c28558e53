package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pevans/versescrape/api"
	"github.com/pevans/versescrape/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve harvested verses from the database over HTTP",
	Long: `Start a read-only HTTP API over the SQLite database written by scrape.

Routes:
  GET /api/v1/books[?status=complete|failed]
  GET /api/v1/books/:book
  GET /api/v1/books/:book/chapters/:chapter
  GET /api/v1/verses/:id`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.NewStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		if cfg.Log.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		addr := net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port))
		srv := &http.Server{
			Addr:              addr,
			Handler:           api.NewServer(st).SetupRouter(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("starting verse API", "url", fmt.Sprintf("http://%s/api/v1/books", addr), "db", cfg.Store.Path)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-cmd.Context().Done():
		}

		logger.Info("shutting down verse API")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	serveCmd.Flags().String("host", "localhost", "host to bind to")
	serveCmd.Flags().Int("port", 8080, "port to listen on")
	serveCmd.Flags().String("db", "versescrape.db", "SQLite database path")
}
