package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/aggregate"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/api"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/app"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/auth"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/cache"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/config"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/events"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/persist"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/reconcile"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/remote"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/store"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/syncer"
)

func main() {
	// 1. Parse Flags
	loginEmail := flag.String("login", "", "Log in with the given email and exit")
	registerEmail := flag.String("register", "", "Register the given email and exit")
	password := flag.String("password", "", "Password for -login / -register")
	name := flag.String("name", "", "Display name for -register")
	doLogout := flag.Bool("logout", false, "Log out and exit")
	once := flag.Bool("once", false, "Run one status sweep and sync, then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	session := auth.NewSession(cfg.RemoteURL, cfg.RemoteKey, cfg.DataDir)

	// 2. Handle Auth Flows
	ctx := context.Background()
	switch {
	case *doLogout:
		if err := session.Logout(ctx); err != nil {
			log.Fatalf("Logout failed: %v", err)
		}
		fmt.Println("Logged out.")
		return
	case *loginEmail != "":
		if err := session.Login(ctx, *loginEmail, *password); err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		fmt.Printf("Logged in as %s (user %s)\n", *loginEmail, session.UserID())
		return
	case *registerEmail != "":
		if err := session.Register(ctx, *registerEmail, *password, *name); err != nil {
			log.Fatalf("Registration failed: %v", err)
		}
		fmt.Printf("Registered %s (user %s)\n", *registerEmail, session.UserID())
		return
	}

	// 3. Build the Core
	local, err := cache.Open(cfg.CachePath())
	if err != nil {
		log.Fatalf("Could not open local cache: %v", err)
	}
	defer local.Close()

	backend := buildBackend(cfg, session)
	if backend == nil {
		log.Printf("No remote backend configured; running local-only")
	}

	taskStore := store.New()
	bus := events.NewBus()
	adapter := persist.NewAdapter(backend, local)
	projector := aggregate.NewProjector(cfg.KPIMemoTTL)
	reconciler := reconcile.New(taskStore, adapter, bus, cfg.ReconcileInterval)
	coordinator := syncer.New(taskStore, adapter, bus,
		cfg.SyncMinInterval, cfg.SyncActiveInterval, cfg.SyncIdleInterval)
	core := app.New(taskStore, adapter, bus, reconciler, coordinator, projector)

	// The UI must be usable against the last good snapshot before any
	// network round trip happens.
	if err := core.LoadLocal(); err != nil {
		log.Printf("Warning: could not load local snapshot: %v", err)
	}

	// 4. One-Shot Mode
	if *once {
		reconciler.Sweep(ctx, time.Now().UTC())
		if backend != nil {
			if err := coordinator.SyncNow(ctx, true); err != nil {
				log.Printf("Sync failed: %v", err)
			}
		}
		return
	}

	// 5. Serve
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go reconciler.Run(runCtx)
	go coordinator.Run(runCtx)
	if backend != nil && session.IsAuthenticated() {
		go coordinator.SyncNow(runCtx, true)
	}

	server := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: api.NewServer(core, session, backend != nil).Router(),
	}
	go func() {
		log.Printf("Listening on %s", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

// buildBackend resolves the remote capability once at startup; nil means the
// core runs against the local cache alone.
func buildBackend(cfg *config.Config, session *auth.Session) remote.Backend {
	switch cfg.Backend {
	case "rest":
		if !session.IsAuthenticated() {
			log.Printf("Not logged in; remote sync will start after login (run with -login)")
		}
		return remote.NewRESTBackend(cfg.RemoteURL, cfg.RemoteKey, session)
	case "postgres":
		backend, err := remote.NewPostgresBackend(cfg.PostgresDSN, cfg.UserID)
		if err != nil {
			log.Printf("Warning: postgres backend unavailable, running local-only: %v", err)
			return nil
		}
		return backend
	default:
		return nil
	}
}
