package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/aukilabs/bigspace/cell"
	"github.com/aukilabs/bigspace/featureflag"
	"github.com/aukilabs/bigspace/frame"
	bigspacehttp "github.com/aukilabs/bigspace/http"
	"github.com/aukilabs/bigspace/models"
	"github.com/aukilabs/bigspace/modules/dagaz"
	"github.com/aukilabs/bigspace/propagation"
	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
)

var (
	// The bigspace version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "bigspace_info",
		Help:        "Bigspace information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	AdminAddr          string        `cli:""        env:"BIGSPACE_ADMIN_ADDR"           help:"Admin listening address."`
	LogLevel           string        `cli:""        env:"BIGSPACE_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"BIGSPACE_LOG_INDENT"           help:"Indent logs."`
	FrameDuration      time.Duration `cli:",hidden" env:"BIGSPACE_FRAME_DURATION"       help:"The duration of a world frame."`
	LogSummaryInterval time.Duration `cli:",hidden" env:"BIGSPACE_LOG_SUMMARY_INTERVAL" help:"The duration between each frame log summary."`
	Precision          string        `cli:""        env:"BIGSPACE_PRECISION"            help:"Cell coordinate precision (i8|i16|i32|i64|i128)."`
	PropagationWorkers int           `cli:",hidden" env:"BIGSPACE_PROPAGATION_WORKERS"  help:"The number of goroutines computing render transforms. 0 uses the number of CPUs."`
	Adjacency          string        `cli:""        env:"BIGSPACE_ADJACENCY"            help:"Cell adjacency of the index (faces|full)."`
	ExcludedTags       []string      `cli:",hidden" env:"BIGSPACE_EXCLUDED_TAGS"        help:"Comma separated tags of the entities left out of the index."`
	FeatureFlags       []string      `cli:",hidden" env:"BIGSPACE_FEATURE_FLAGS"        help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                             help:"Show version."`
	Help               bool          `cli:""        env:"-"                             help:"Show help."`
}

func main() {
	conf := config{
		AdminAddr:          ":18190",
		LogLevel:           logs.InfoLevel.String(),
		FrameDuration:      time.Millisecond * 15,
		LogSummaryInterval: time.Minute,
		Precision:          cell.DefaultPrecision.String(),
		Adjacency:          cell.Faces.String(),
		ExcludedTags:       []string{dagaz.DefaultExcludedTag},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts a bigspace world.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	precision, _ := cell.ParsePrecision(conf.Precision)
	adjacency, _ := cell.ParseAdjacency(conf.Adjacency)
	featureFlags := featureflag.New(conf.FeatureFlags)

	world, err := models.NewWorld(1, systemGrid, precision)
	if err != nil {
		logs.Fatal(errors.New("creating world failed").Wrap(err))
	}
	defer world.Close()

	system, err := spawnSolarSystem(world)
	if err != nil {
		logs.Fatal(errors.New("spawning solar system failed").Wrap(err))
	}
	defer world.HandleFrame(system.animate(conf.FrameDuration))()

	index := dagaz.New("", adjacency, featureFlags)
	index.Filter.Excluded = conf.ExcludedTags

	var h frame.Handler = frame.NewPassHandler(world,
		featureFlags,
		propagation.Propagator{Workers: conf.PropagationWorkers},
		index,
	)
	h = frame.HandlerWithLogs(h, world.UUID, conf.LogSummaryInterval)
	h = frame.HandlerWithMetrics(h, world.UUID)
	defer h.Close()

	readinessCheck := func() error {
		if world.Frames() == 0 {
			return errors.New("no frame ran yet")
		}
		if _, ok, err := world.ResolveOrigin(); !ok {
			return err
		}
		return nil
	}

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", bigspacehttp.HandleHealthCheck)
	admin.HandleFunc("/ready", bigspacehttp.HandleReadyCheck(readinessCheck))
	admin.HandleFunc("/version", bigspacehttp.HandleVersion(version))
	admin.HandleFunc("/stats", bigspacehttp.HandleWorldStats(world, index.Name()))
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("world_uuid", world.UUID).
		WithTag("precision", precision.String()).
		WithTag("adjacency", adjacency.String()).
		WithTag("feature_flags", conf.FeatureFlags).
		Info("starting bigspace world")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		frame.Run(ctx, h, conf.FrameDuration)
	}()

	bigspacehttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.AdminAddr, Handler: metrics.HTTPHandler(&admin,
			bigspacehttp.MetricsPathFormatter)},
	)

	wg.Wait()
}

func validateConfig(conf config) error {
	if _, err := cell.ParsePrecision(conf.Precision); err != nil {
		return errors.New("invalid precision").Wrap(err)
	}

	if _, err := cell.ParseAdjacency(conf.Adjacency); err != nil {
		return errors.New("invalid adjacency").Wrap(err)
	}

	if conf.FrameDuration <= 0 {
		return errors.New("frame duration must be positive").
			WithTag("frame_duration", conf.FrameDuration)
	}

	if conf.LogSummaryInterval <= 0 {
		return errors.New("log summary interval must be positive").
			WithTag("log_summary_interval", conf.LogSummaryInterval)
	}

	if conf.PropagationWorkers < 0 {
		return errors.New("propagation workers must not be negative").
			WithTag("propagation_workers", conf.PropagationWorkers)
	}

	return nil
}
