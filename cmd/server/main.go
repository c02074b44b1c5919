package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/steadmanrj/linkfolio/auth"
	"github.com/steadmanrj/linkfolio/authflow"
	"github.com/steadmanrj/linkfolio/identity"
	identitypg "github.com/steadmanrj/linkfolio/identity/postgres"
	"github.com/steadmanrj/linkfolio/identity/storefakes"
	"github.com/steadmanrj/linkfolio/internal/config"
	"github.com/steadmanrj/linkfolio/provider"
	"github.com/steadmanrj/linkfolio/server"
	"github.com/steadmanrj/linkfolio/sessions"
	"github.com/steadmanrj/linkfolio/sessions/redisrepo"
	"github.com/steadmanrj/linkfolio/sessions/repofakes"
	"github.com/steadmanrj/linkfolio/token"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()

	c := config.New()
	if c.GetEnv() == "DEV" {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	displayAppname(c.GetAppName())

	authService, err := buildAuthService(c)
	if err != nil {
		return fmt.Errorf("failed to build auth service: %w", err)
	}

	srv, err := server.New(c, authService)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func buildAuthService(c config.Config) (*auth.Service, error) {
	identityStore, err := buildIdentityStore(c)
	if err != nil {
		return nil, err
	}

	sessionManager, err := sessions.NewManager(buildSessionRepo(c), sessions.WithTTL(c.GetSessionTTL()))
	if err != nil {
		return nil, err
	}

	minter, err := token.NewMinter(token.NewHMACSigner(c.GetTokenSecret()), token.WithExpiry(c.GetTokenExpiry()))
	if err != nil {
		return nil, err
	}

	idp, err := provider.NewOIDCClient(
		context.Background(),
		c.GetOAuthIssuer(),
		c.GetOAuthClientID(),
		c.GetOAuthClientSecret(),
		c.GetOAuthRedirectURL(),
	)
	if err != nil {
		return nil, fmt.Errorf("oidc provider setup: %w", err)
	}

	return auth.NewService(
		auth.Repos{
			Identities: identityStore,
			Flow:       authflow.NewInMemoryRepo(),
		},
		sessionManager,
		minter,
		idp,
	)
}

func buildIdentityStore(c config.Config) (identity.Store, error) {
	if dsn := c.GetDatabaseURL(); dsn != "" {
		return identitypg.Open(dsn)
	}
	zlog.Warn().Msg("DATABASE_URL not set, using in-memory identity store")
	return storefakes.NewFakeStore(), nil
}

func buildSessionRepo(c config.Config) sessions.Repo {
	if addr := c.GetRedisAddr(); addr != "" {
		return redisrepo.New(redis.NewClient(&redis.Options{Addr: addr}))
	}
	zlog.Warn().Msg("REDIS_ADDR not set, using in-memory session repo")
	return repofakes.NewFakeSessionRepo()
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
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
