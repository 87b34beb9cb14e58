package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"mop.org/internal/auth"
	"mop.org/internal/cases"
	"mop.org/internal/config"
	"mop.org/internal/domain"
	"mop.org/internal/httpapi"
	"mop.org/internal/obs"
	"mop.org/internal/refdata"
	"mop.org/internal/store/pg"
	"mop.org/internal/stream"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

type stores struct {
	cases    cases.Store
	identity auth.Store
	params   refdata.Store
	probe    httpapi.ReadyProbe
	close    func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mop-api: %v\n", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Log)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("mop-api stopped with error", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st, err := openStores(cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = st.close() }()

	created, err := auth.EnsureCatalog(ctx, st.identity, nil)
	if err != nil {
		return fmt.Errorf("ensure catalog: %w", err)
	}
	logger.Info("catalog ensured", "created", created)

	resolver := auth.NewResolver(st.identity,
		auth.WithAdminRole(cfg.RBAC.AdminRoleID),
		auth.WithWildcardPermission(cfg.RBAC.WildcardPermissionID),
		auth.WithCheckObserver(obs.PermissionMetrics{}),
	)
	users, err := auth.NewUserService(st.identity,
		auth.WithProtectedRole(cfg.RBAC.AdminRoleID),
		auth.WithUserLogger(logger),
	)
	if err != nil {
		return err
	}
	rbac, err := auth.NewRBACService(st.identity,
		auth.WithGuardedDeletes(cfg.RBAC.GuardDeletes),
		auth.WithRBACLogger(logger),
	)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret,
		auth.WithIssuer(cfg.Auth.JWTIssuer),
		auth.WithAccessTTL(cfg.Auth.AccessTokenTTL),
		auth.WithRefreshTTL(cfg.Auth.RefreshTokenTTL),
	)
	if err != nil {
		return err
	}
	authn, err := auth.NewAuthenticator(users, tokens, resolver, st.identity, cfg.RBAC.DefaultRoleID)
	if err != nil {
		return err
	}
	if err := bootstrapAdmin(ctx, users, cfg, logger); err != nil {
		return err
	}

	events := stream.New(nil)
	caseOpts := []cases.ServiceOption{
		cases.WithIDPrefix(cfg.Cases.IDPrefix),
		cases.WithMaxIDAttempts(cfg.Cases.MaxIDAttempts),
		cases.WithObserver(obs.CaseMetrics{}),
		cases.WithObserver(events),
		cases.WithLogger(logger),
	}
	if cfg.Cases.StrictTransitions {
		caseOpts = append(caseOpts, cases.WithTransitions(cases.ReviewWorkflow()))
	}
	caseSvc, err := cases.NewService(st.cases, caseOpts...)
	if err != nil {
		return err
	}
	stats, err := cases.NewAggregator(st.cases, nil, cfg.Cases.StatsWindow())
	if err != nil {
		return err
	}
	params, err := refdata.NewService(st.params, nil)
	if err != nil {
		return err
	}

	api := httpapi.New(st.probe, version,
		httpapi.WithLogger(logger),
		httpapi.WithAuth(authn),
		httpapi.WithRBAC(rbac, users, resolver),
		httpapi.WithCases(caseSvc, stats),
		httpapi.WithBusinessParams(params),
		httpapi.WithEvents(events),
		httpapi.WithCORSOrigins(cfg.CORS.Origins()),
		httpapi.WithLimits(cfg.Server.MaxBodyBytes, cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
	)

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	grpcSrv := grpc.NewServer()
	httpapi.NewHealthServer(st.probe).Register(grpcSrv)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc %s: %w", cfg.Server.GRPCAddr, err)
	}

	errc := make(chan error, 2)
	go func() {
		logger.Info("http listening", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		logger.Info("grpc listening", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errc <- fmt.Errorf("grpc: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	grpcSrv.GracefulStop()
	return runErr
}

func openStores(cfg config.DatabaseConfig) (*stores, error) {
	if cfg.Driver == config.DriverPostgres {
		db, err := pg.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return &stores{
			cases:    db.Cases(),
			identity: db.Identity(),
			params:   db.BusinessParams(),
			probe:    httpapi.ReadyProbe{DB: db},
			close:    db.Close,
		}, nil
	}
	return &stores{
		cases:    cases.NewInMemory(),
		identity: auth.NewInMemory(),
		params:   refdata.NewInMemory(),
		close:    func() error { return nil },
	}, nil
}

// bootstrapAdmin creates the configured administrator once.
func bootstrapAdmin(ctx context.Context, users *auth.UserService, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Auth.AdminEmail == "" {
		return nil
	}
	_, err := users.GetUserByEmail(ctx, cfg.Auth.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}
	u, err := users.CreateUser(ctx, auth.UserInput{
		Name:     "Administrator",
		Email:    cfg.Auth.AdminEmail,
		Password: cfg.Auth.AdminPassword,
		RoleIDs:  []string{cfg.RBAC.AdminRoleID},
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	logger.Info("bootstrap administrator created", "user_id", u.ID)
	return nil
}
