package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adapthttp "restoadmin/internal/adapter/http"
	"restoadmin/internal/adapter/file"
	"restoadmin/internal/adapter/memory"
	"restoadmin/internal/adapter/postgres"
	"restoadmin/internal/adapter/redisstore"
	"restoadmin/internal/adapter/rest"
	"restoadmin/internal/app"
	"restoadmin/internal/config"
	"restoadmin/internal/domain"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(env("CONFIG_FILE", "restoadmin.yaml"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, closer, err := openCredentialStore(cfg.Credentials)
	if err != nil {
		log.Fatalf("credential store: %v", err)
	}
	defer func() { _ = closer.Close() }()
	log.Printf("credential store: %s (namespace %s)", cfg.Credentials.Store, cfg.Credentials.Namespace)

	// No retrying transport on the auth client: SessionManager handles its own 401s.
	authClient := rest.NewClient(cfg.Services.Auth, &http.Client{Timeout: cfg.LoginTimeout})
	session := app.NewSessionManager(rest.NewAuthAPI(authClient), store, app.SessionOptions{
		RequestTimeout: cfg.HTTPTimeout,
		LoginTimeout:   cfg.LoginTimeout,
	})
	defer session.Close()

	authed := &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: &rest.Transport{Tokens: store, Refresher: session},
	}
	customers := rest.NewCustomerAPI(rest.NewClient(cfg.Services.Customer, authed))
	billing := rest.NewBillingAPI(
		rest.NewClient(cfg.Services.Billing, authed),
		rest.NewClient(cfg.Services.Tables, authed),
	)
	dashboard := rest.NewDashboardAPI(rest.NewClient(cfg.Services.Dashboard, authed))
	users := rest.NewUsersAPI(rest.NewClient(cfg.Services.Auth, authed))

	if err := session.Restore(context.Background()); err != nil {
		log.Printf("session restore: %v", err)
	}
	if snap := session.Snapshot(); snap.Authenticated() {
		log.Printf("session restored for %s", snap.User.Username)
	}

	h := adapthttp.New(
		session,
		app.NewCheckoutService(customers, billing),
		app.NewBillingService(billing),
		app.NewDashboardService(dashboard),
		app.NewAdminService(users),
	).Handler()

	srv := &http.Server{Addr: cfg.Addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Printf("listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openCredentialStore(c config.Credentials) (domain.CredentialStore, io.Closer, error) {
	switch c.Store {
	case "memory":
		return memory.New(), nopCloser{}, nil
	case "file":
		s, err := file.Open(c.File, c.Passphrase)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	case "postgres":
		db, err := postgres.Open(c.DatabaseURL, c.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	case "redis":
		s, err := redisstore.Open(redisstore.Config{
			Addr:      c.RedisAddr,
			Password:  c.RedisPassword,
			DB:        c.RedisDB,
			Namespace: c.Namespace,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
	return nil, nil, fmt.Errorf("unknown credential store %q", c.Store)
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
