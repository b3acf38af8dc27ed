package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	modeladmin "github.com/ZJUSCT/backoffice/internal/admin"
	"github.com/ZJUSCT/backoffice/internal/admins"
	"github.com/ZJUSCT/backoffice/internal/api/admin"
	"github.com/ZJUSCT/backoffice/internal/auth"
	"github.com/ZJUSCT/backoffice/internal/config"
	"github.com/ZJUSCT/backoffice/internal/database"
	"github.com/ZJUSCT/backoffice/internal/pubsub"

	"github.com/fatih/color"
	"go.uber.org/zap"
)

var Version = "dev-build"

// activityHistory is how many activity messages a new dashboard receives.
const activityHistory = 50

func main() {
	color.New(color.FgCyan).Fprintf(os.Stderr, "ZJUSCT Backoffice %s", Version)
	color.New(color.FgHiBlack).Fprintln(os.Stderr, " - CRUD administration for users, contests and announcements")
	fmt.Fprintln(os.Stderr)

	// config
	var configPath string
	flag.StringVar(&configPath, "c", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// logger
	var logger *zap.Logger
	if cfg.Logger.Level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// database
	db, err := database.Init(cfg.Database.Path)
	if err != nil {
		zap.S().Fatalf("failed to initialize database: %v", err)
	}
	zap.S().Info("database initialized successfully")

	if err := database.Bootstrap(db, cfg.Auth.BootstrapPassword); err != nil {
		zap.S().Fatalf("failed to bootstrap admin user: %v", err)
	}

	// admins
	roles := make([]string, 0, len(cfg.Security.Roles))
	for role := range cfg.Security.Roles {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	broker := pubsub.NewBroker(activityHistory)
	set, err := admins.Build(modeladmin.Deps{
		DB:      db,
		Policy:  auth.NewPolicy(cfg.Security.Roles),
		Broker:  broker,
		PerPage: cfg.Admin.PerPage,
	}, roles)
	if err != nil {
		zap.S().Fatalf("failed to build admins: %v", err)
	}
	zap.S().Infof("registered %d admins", len(set.Pool.Admins()))

	engine, err := admin.NewAdminRouter(admin.NewHandler(cfg, db, set, broker))
	if err != nil {
		zap.S().Fatalf("failed to create admin router: %v", err)
	}

	// start server
	srv := &http.Server{Addr: cfg.Listen, Handler: engine}
	go func() {
		color.New(color.FgGreen).Fprint(os.Stderr, "    ▶ ")
		fmt.Fprintf(os.Stderr, "Backoffice: http://%s%s/\n", cfg.Listen, modeladmin.DefaultPrefix)
		zap.S().Infof("starting admin server at %s", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalf("failed to start admin server: %v", err)
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.S().Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.S().Errorf("server forced to shut down: %v", err)
	}
}
