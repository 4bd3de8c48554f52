package main

import (
	"context"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/graphweave/graphweave/config"
	"github.com/graphweave/graphweave/events"
	"github.com/graphweave/graphweave/graph"
	"github.com/graphweave/graphweave/patterns"
	"github.com/graphweave/graphweave/step"
	"github.com/graphweave/graphweave/store"
)

const maxRequestBody = 1 << 20

// serve runs the HTTP front end: pattern runs streamed as wire records or
// over a WebSocket, plus health and Prometheus metrics endpoints.
func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	logger, err := cfg.BuildLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *graph.Collector
	registry := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		metrics = graph.NewCollector(cfg.Metrics.Namespace, registry)
	}

	var kv store.Store
	if cfg.Engine.CacheEnabled {
		rs, err := store.NewRedisStore(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("completion cache disabled, redis unavailable", zap.Error(err))
		} else {
			kv = rs
			defer rs.Close()
		}
	}

	srv := &runServer{
		cfg:     cfg,
		logger:  logger.With(zap.String("component", "server")),
		invoker: &step.StubInvoker{},
		metrics: metrics,
		store:   kv,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", srv.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("POST /run", srv.handleRun)
	mux.HandleFunc("GET /ws", srv.handleWS)

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	logger.Info("shutting down")
	return httpSrv.Shutdown(shutdownCtx)
}

type runServer struct {
	cfg     *config.Config
	logger  *zap.Logger
	invoker step.Invoker
	metrics *graph.Collector
	store   store.Store
}

func (s *runServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// handleRun executes a pattern and streams progress events to the response
// body in the wire format, flushing after every event.
func (s *runServer) handleRun(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req, err := patterns.ParseRequest(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Model == "" {
		req.Model = s.cfg.Engine.DefaultModel
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, _ := w.(http.Flusher)

	writer := events.NewWireWriter(w)
	sink := writer.Sink(s.logger)
	ch := events.NewChannel(s.logger).WithSink(func(ev events.Event) {
		sink(ev)
		if flusher != nil {
			flusher.Flush()
		}
	})
	defer ch.Close()

	if _, err := patterns.Run(r.Context(), s.runtime(ch), req); err != nil {
		// The terminal error event is already on the stream; headers are
		// gone, so there is nothing more to send.
		s.logger.Warn("pattern run failed", zap.String("pattern", req.Pattern), zap.Error(err))
	}
}

// handleWS upgrades to a WebSocket, reads one run request, and streams the
// run's events as JSON text messages.
func (s *runServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	stream := events.NewWSStream(conn, s.logger)
	defer stream.Close()

	ctx := r.Context()
	_, data, err := conn.Read(ctx)
	if err != nil {
		s.logger.Warn("websocket read failed", zap.Error(err))
		return
	}

	req, err := patterns.ParseRequest(data)
	if err != nil {
		conn.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}
	if req.Model == "" {
		req.Model = s.cfg.Engine.DefaultModel
	}

	ch := events.NewChannel(s.logger).WithSink(stream.Sink(ctx))
	defer ch.Close()

	if _, err := patterns.Run(ctx, s.runtime(ch), req); err != nil {
		s.logger.Warn("pattern run failed", zap.String("pattern", req.Pattern), zap.Error(err))
	}
}

func (s *runServer) runtime(ch *events.Channel) *patterns.Runtime {
	rt := patterns.NewRuntime(s.invoker).
		WithEvents(ch).
		WithLogger(s.logger).
		WithMetrics(s.metrics)
	if s.store != nil {
		rt = rt.WithStore(s.store)
	}
	return rt
}
