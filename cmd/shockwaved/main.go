package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/watt-toolkit/shockwave/pkg/shockwave/http11"
	"github.com/watt-toolkit/shockwave/pkg/shockwave/middleware"
	"github.com/watt-toolkit/shockwave/pkg/shockwave/server"
	"github.com/watt-toolkit/shockwave/pkg/shockwave/socket"
)

const version = "0.1.0"

type serveOptions struct {
	addr           string
	maxRequests    int
	idleTimeout    time.Duration
	highThroughput bool
	lowLatency     bool
	logFormat      string
	logLevel       string
	perCPUPools    bool
	warmupPool     int
}

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd builds the shockwaved command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shockwaved",
		Short: "shockwaved runs the reference HTTP/1.x server built on http11",
		Long:  "shockwaved is a reference binary wiring the http11 protocol engine to a TCP acceptor loop; it exists to exercise the core, not as a hardened production server.",
	}
	cmd.AddCommand(VersionCommand(), ServeCommand())
	return cmd
}

// VersionCommand prints the binary version.
func VersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the shockwaved version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("shockwaved %s\n", version)
			return nil
		},
	}
}

// ServeCommand starts the reference server with an echo handler.
func ServeCommand() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the reference server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.addr, "addr", "a", ":8080", "address to listen on")
	cmd.Flags().IntVar(&opts.maxRequests, "max-requests", 0, "maximum requests per keep-alive connection (0 = unlimited)")
	cmd.Flags().DurationVar(&opts.idleTimeout, "idle-timeout", 60*time.Second, "close a connection idle this long")
	cmd.Flags().BoolVar(&opts.highThroughput, "high-throughput", false, "tune sockets for high throughput over latency")
	cmd.Flags().BoolVar(&opts.lowLatency, "low-latency", false, "tune sockets for low latency over throughput")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "text", "log output format: text or json")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&opts.perCPUPools, "per-cpu-pools", false, "shard Request pools per GOMAXPROCS to cut contention under sustained concurrency")
	cmd.Flags().IntVar(&opts.warmupPool, "warmup-pool", 0, "pre-allocate this many pooled objects before accepting connections (0 = skip warmup)")

	return cmd
}

func runServe(opts serveOptions) error {
	logger := logrus.StandardLogger()
	if opts.logFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(opts.logLevel); err == nil {
		logger.SetLevel(level)
	}

	sockCfg := socket.DefaultConfig()
	switch {
	case opts.highThroughput:
		sockCfg = socket.HighThroughputConfig()
	case opts.lowLatency:
		sockCfg = socket.LowLatencyConfig()
	}

	if opts.perCPUPools {
		http11.SetPoolStrategy(http11.PoolStrategyPerCPU)
	}
	if opts.warmupPool > 0 {
		http11.WarmupPools(opts.warmupPool)
	}

	handler := middleware.Chain(
		http11.HandlerFunc(echoHandler),
		middleware.Recovery(),
		middleware.Logger(),
	)

	srv := server.New(server.Config{
		Addr:                     opts.addr,
		Handler:                  handler,
		MaxRequestsPerConnection: opts.maxRequests,
		IdleTimeout:              opts.idleTimeout,
		SocketConfig:             sockCfg,
		Logger:                   logger,
	})

	logger.WithField("addr", opts.addr).Info("shockwaved: listening")
	return srv.ListenAndServe()
}

func echoHandler(req *http11.Request, resp *http11.FreshResponse) {
	resp.SetStatus(200)
	resp.Headers().Set([]byte("Content-Type"), []byte("text/plain; charset=utf-8"))
	resp.Send([]byte(req.Method() + " " + req.Path() + "\n"))
}
