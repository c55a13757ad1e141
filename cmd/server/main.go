package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-link-server/credstore"
	"github.com/jrsteele09/go-link-server/internal/config"
	"github.com/jrsteele09/go-link-server/linker"
	"github.com/jrsteele09/go-link-server/linksession"
	"github.com/jrsteele09/go-link-server/protocol/whatsmeowdrv"
	"github.com/jrsteele09/go-link-server/server"
	"github.com/rs/zerolog"
)

func main() {
	log := newLogger()
	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run(log zerolog.Logger) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	c := config.New()
	displayAppname(c.GetAppName())

	creds := credstore.NewStore(c.GetDataFolder(), c.GetTokenPrefix())
	codes := credstore.NewShortCodeStore(c.GetDataFolder())
	sessions := linksession.NewInMemoryRepo()
	dialer := whatsmeowdrv.NewDialer(log)

	linkService, err := linker.NewService(dialer, creds, codes, sessions, c.GetLinkTimeout(), log)
	if err != nil {
		return fmt.Errorf("linker.NewService: %w", err)
	}

	srv, err := server.New(c, linkService, sessions, codes, log)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer, log)
	waitForStopSignal()
	return shutdown(httpServer)
}

func newLogger() zerolog.Logger {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if (config.EnvVars{}).GetEnv() == "DEV" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return log
}

func listenAndServe(server *http.Server, log zerolog.Logger) {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
