// Command mockrecon launches the mock image-recognition service: the
// target-management (VWS) surface, the query (VWQ) surface and the
// administrative store seam, each on its own listener.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmhodges/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mockrecon/mockrecon/admin"
	"github.com/mockrecon/mockrecon/cmd"
	"github.com/mockrecon/mockrecon/config"
	"github.com/mockrecon/mockrecon/core"
	"github.com/mockrecon/mockrecon/logging"
	"github.com/mockrecon/mockrecon/match"
	"github.com/mockrecon/mockrecon/metrics"
	"github.com/mockrecon/mockrecon/rate"
	"github.com/mockrecon/mockrecon/store"
	"github.com/mockrecon/mockrecon/vwq"
	"github.com/mockrecon/mockrecon/vws"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println(cmd.VersionString())
		return
	}

	cfg, err := config.New(os.Args[1:])
	cmd.FailOnError(err, "loading configuration")

	logger := logging.New(cfg.LogLevel, os.Stdout)
	logging.Set(logger)

	clk := clock.New()

	var matcher core.Matcher
	switch cfg.Matcher {
	case config.MatcherExact:
		matcher = match.Exact{}
	default:
		matcher = match.NewAverageHash()
	}

	var rater core.Rater
	switch cfg.Rater {
	case config.RaterPerceptualQuality:
		rater = rate.PerceptualQuality{}
	default:
		rater = rate.Random{}
	}

	st := store.New(clk, rater)

	reg := prometheus.NewRegistry()
	vwsServer := vws.NewServer(st, clk, matcher, metrics.NewCollectors(reg, "vws"))
	vwqServer := vwq.NewServer(st, clk, matcher,
		cfg.DeletionRecognitionSeconds, cfg.DeletionProcessingSeconds,
		metrics.NewCollectors(reg, "vwq"))
	adminServer := admin.NewServer(st, clk)

	// The admin listener doubles as the debug listener: it carries the
	// store seams plus /metrics.
	adminMux := chi.NewRouter()
	adminMux.Handle("/metrics", metrics.Handler(reg))
	adminMux.Mount("/", adminServer)

	serve := func(name, addr string, h http.Handler) *http.Server {
		ln, err := net.Listen("tcp", addr)
		cmd.FailOnError(err, fmt.Sprintf("binding %s listener on %q", name, addr))
		srv := &http.Server{Handler: h}
		go func() {
			if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
				cmd.FailOnError(err, fmt.Sprintf("serving %s", name))
			}
		}()
		logger.Info(fmt.Sprintf("%s listening on %s", name, ln.Addr()))
		return srv
	}

	servers := []*http.Server{
		serve("vws", cfg.VWSAddr, vwsServer),
		serve("vwq", cfg.VWQAddr, vwqServer),
		serve("admin", cfg.AdminAddr, adminMux),
	}

	cmd.CatchSignals(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			_ = srv.Shutdown(ctx)
		}
	})
}
