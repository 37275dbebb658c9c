// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/dbgctl/internal/errors"
	"github.com/kraklabs/dbgctl/internal/metrics"
	"github.com/kraklabs/dbgctl/pkg/control"
	"github.com/kraklabs/dbgctl/pkg/registry"
)

// runServe executes the 'serve' CLI command: it exposes the control
// surface (spec.md §4.7) as an HTTP endpoint — POST writes a command
// block, GET reads the registry back — alongside a Prometheus /metrics
// endpoint, for operators who'd rather curl than edit a control file.
func runServe(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	listenAddr := fs.String("listen", "", "Address to listen on (default: config.serve.listen_addr)")
	metricsAddr := fs.String("metrics-listen", "", "Address for the Prometheus endpoint (default: config.metrics.listen_addr)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: dbgctl serve [options]

Description:
  Serve the control surface over HTTP:
    POST /control   body = command block, returns match count as text
    GET  /control    returns the control-read listing
    GET  /metrics     Prometheus metrics (queries, matches, enabled sites)

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	lr := openRegistry(configPath, globals)

	addr := lr.cfg.Serve.ListenAddr
	if *listenAddr != "" {
		addr = *listenAddr
	}
	mAddr := lr.cfg.Metrics.ListenAddr
	if *metricsAddr != "" {
		mAddr = *metricsAddr
	}
	mPath := lr.cfg.Metrics.Path
	if mPath == "" {
		mPath = "/metrics"
	}

	logger := slog.Default()
	if globals.Verbose >= 2 {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/control", controlHandler(lr.reg, logger))

	var metricsSrv *http.Server
	if mAddr != "" {
		metricsMux := http.NewServeMux()
		promHandler := promhttp.Handler()
		metricsMux.Handle(mPath, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			metrics.Sample(lr.reg)
			promHandler.ServeHTTP(w, req)
		}))
		metricsSrv = &http.Server{Addr: mAddr, Handler: metricsMux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			logger.Info("metrics.http.start", "addr", mAddr, "path", mPath)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		_ = srv.Shutdown(ctx)
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(ctx)
		}
		cancel()
	}()

	logger.Info("control.http.start", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		errors.FatalError(errors.NewNetworkError("control server failed", err.Error(), "check that the listen address is free", err), globals.JSON)
	}
}

func controlHandler(r *registry.Registry, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = io.WriteString(w, control.Read(r))
		case http.MethodPost:
			body, err := io.ReadAll(io.LimitReader(req.Body, control.MaxWriteSize+1))
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if len(body) > control.MaxWriteSize {
				http.Error(w, "command block too large", http.StatusRequestEntityTooLarge)
				return
			}
			matches, err := control.Write(r, string(body), req.URL.Query().Get("module"))
			metrics.RecordQuery(matches)
			if err != nil {
				logger.Warn("control.write.error", "err", err)
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprintf(w, "%d\n%v\n", matches, err)
				return
			}
			fmt.Fprintf(w, "%d\n", matches)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
