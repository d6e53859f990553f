package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"payledger/config"
	"payledger/core/events"
	"payledger/gateway/middleware"
	"payledger/native/access"
	"payledger/native/payment"
	"payledger/observability"
	"payledger/rpc"
	"payledger/storage"
	"payledger/storage/eventlog"
)

type daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	engine *payment.Engine
	events *eventlog.Store
	server *rpc.Server
}

// newDaemon builds the ledger on db, seeds it from genesis on first start and
// wires the event archive and RPC server.
func newDaemon(cfg *config.Config, db storage.Database, logger *slog.Logger) (*daemon, error) {
	gen, err := config.LoadGenesis(cfg.GenesisFile)
	if err != nil {
		return nil, err
	}
	admins, err := gen.AdminAddresses()
	if err != nil {
		return nil, err
	}
	ledger, err := cfg.Ledger()
	if err != nil {
		return nil, err
	}
	engine, err := payment.NewEngine(db, payment.Options{
		ChainID: cfg.ChainIDBig(),
		Address: ledger,
		Admins:  access.NewStaticRegistry(admins...),
	})
	if err != nil {
		return nil, err
	}
	if err := bootstrap(engine, gen, logger); err != nil {
		return nil, err
	}

	store, err := eventlog.Open(cfg.EventLogPath, logger)
	if err != nil {
		return nil, err
	}
	engine.SetEmitter(events.Multi{store, observability.Events()})

	server, err := rpc.NewServer(engine, rpc.NewNonceStore(db), rpc.ServerOptions{
		Logger: logger,
		Events: store,
		Auth: middleware.AuthConfig{
			Enabled:       cfg.Auth.Enabled,
			HMACSecret:    cfg.Auth.HMACSecret,
			Issuer:        cfg.Auth.Issuer,
			Audience:      cfg.Auth.Audience,
			ScopeClaim:    cfg.Auth.ScopeClaim,
			OptionalPaths: cfg.Auth.OptionalPaths,
			ClockSkew:     cfg.Auth.ClockSkew(),
		},
		RequiredScopes: cfg.Auth.RequiredScopes,
		RateLimit: middleware.RateLimit{
			RatePerSecond: cfg.RateLimit.RatePerSecond,
			Burst:         cfg.RateLimit.Burst,
		},
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &daemon{cfg: cfg, logger: logger, engine: engine, events: store, server: server}, nil
}

// bootstrap initialises a fresh ledger from genesis and seeds the token
// allocations. An initialised ledger is left untouched.
func bootstrap(engine *payment.Engine, gen *config.Genesis, logger *slog.Logger) error {
	initialized, err := engine.Initialized()
	if err != nil {
		return err
	}
	if initialized {
		logger.Info("Ledger already initialised; genesis settings ignored")
		return nil
	}
	domainHash, err := engine.DefaultDomainHash()
	if err != nil {
		return err
	}
	settings, err := gen.Settings(domainHash)
	if err != nil {
		return err
	}
	allocations, err := gen.ParsedAllocations()
	if err != nil {
		return err
	}
	if err := engine.Initialize(settings); err != nil {
		return fmt.Errorf("initialise ledger: %w", err)
	}
	for _, alloc := range allocations {
		if err := engine.Allocate(alloc.Token, alloc.Holder, alloc.Amount); err != nil {
			return fmt.Errorf("allocate %s to %s: %w", alloc.Token.Hex(), alloc.Holder.Hex(), err)
		}
	}
	logger.Info("Ledger initialised from genesis",
		slog.String("owner", settings.Owner.Hex()),
		slog.String("signer", settings.Signer.Hex()),
		slog.Int("allocations", len(allocations)))
	return nil
}

// Serve runs the RPC endpoint until ctx is cancelled, then drains in-flight
// requests.
func (d *daemon) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", d.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return d.serveListener(ctx, listener)
}

func (d *daemon) serveListener(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:      d.server.Handler(),
		ReadTimeout:  time.Duration(d.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(d.cfg.WriteTimeout) * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("JSON-RPC server listening", slog.String("address", listener.Addr().String()))
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(d.cfg.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("Graceful shutdown failed", slog.Any("error", err))
		return err
	}
	return nil
}

func (d *daemon) Close() error {
	return d.events.Close()
}
