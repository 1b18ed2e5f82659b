package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/fracture-sim/core"
	"github.com/signalsfoundry/fracture-sim/internal/logging"
	"github.com/signalsfoundry/fracture-sim/internal/observability"
	"github.com/signalsfoundry/fracture-sim/internal/store"
	"github.com/signalsfoundry/fracture-sim/kb"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "simulator: %v\n", err)
		os.Exit(1)
	}
}

// overrides collects repeated -set key=value flags.
type overrides map[string]string

func (o overrides) String() string {
	keys := make([]string, 0, len(o))
	for k, v := range o {
		keys = append(keys, k+"="+v)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func (o overrides) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("want key=value, got %q", s)
	}
	o[strings.TrimSpace(k)] = strings.TrimSpace(v)
	return nil
}

type options struct {
	input       string
	grid        string
	cellSize    float64
	configPath  string
	sets        overrides
	resistance  string
	waveFreq    float64
	printPath   bool
	metricsAddr string
	metricsHold bool
	snapshotDB  string
	saveAs      string
	loadFrom    string
}

func parseFlags(args []string, out io.Writer) (*options, error) {
	opts := &options{sets: overrides{}}
	fs := flag.NewFlagSet("simulator", flag.ContinueOnError)
	fs.SetOutput(out)

	fs.StringVar(&opts.input, "input", "", "JSON cell decomposition to load (default: generated box grid)")
	fs.StringVar(&opts.grid, "grid", "4,4,8", "box grid dimensions nx,ny,nz when no -input is given")
	fs.Float64Var(&opts.cellSize, "cell-size", 1, "box grid cell edge length")
	fs.StringVar(&opts.configPath, "config", "", "JSON simulation config")
	fs.Var(opts.sets, "set", "simulation config override key=value (repeatable)")
	fs.StringVar(&opts.resistance, "resistance", "constant", "resistance field: constant or wave")
	fs.Float64Var(&opts.waveFreq, "wave-frequency", 1, "frequency of the wave resistance field")
	fs.BoolVar(&opts.printPath, "print-path", false, "print the trace of every infiltration")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.BoolVar(&opts.metricsHold, "metrics-hold", false, "keep serving metrics after the run until interrupted")
	fs.StringVar(&opts.snapshotDB, "snapshot-db", "", "snapshot database directory (default: in-memory)")
	fs.StringVar(&opts.saveAs, "save", "", "save link and cell state under this snapshot name after the run")
	fs.StringVar(&opts.loadFrom, "load", "", "restore link and cell state from this snapshot before the run")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseFlags(args, out)
	if err != nil {
		return err
	}

	ctx, log := logging.WithRunLogger(ctx, logging.NewFromEnv())
	ctx = logging.ContextWithLogger(ctx, log)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	if opts.metricsAddr != "" {
		srv := serveMetrics(opts.metricsAddr, collector, log)
		defer shutdownServer(srv, log)
	}

	cont, err := loadContainer(ctx, opts, log)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	field, err := resistanceField(opts)
	if err != nil {
		return err
	}

	engine, err := core.NewSimulationEngine(ctx, cont, cfg,
		core.WithEngineLogger(log),
		core.WithEngineGraphOptions(core.WithGraphMetrics(collector)),
		core.WithEngineSimOptions(core.WithSimMetrics(collector), core.WithResistanceField(field)),
	)
	if err != nil {
		return err
	}
	defer engine.Close()

	var snaps *store.SnapshotStore
	if opts.saveAs != "" || opts.loadFrom != "" {
		snaps, err = store.Open(opts.snapshotDB, log)
		if err != nil {
			return err
		}
		defer snaps.Close()
	}
	if opts.loadFrom != "" {
		if err := restoreSnapshot(snaps, opts.loadFrom, engine); err != nil {
			return err
		}
		log.Info(ctx, "snapshot restored", logging.String("name", opts.loadFrom))
	}

	g := engine.Graph
	minArea, maxArea, avgArea := g.AreaStats()
	fmt.Fprintf(out, "Link graph: %d cells, %d internal links, %d external links, %d components, %d unresolved faces\n",
		cont.Len(), len(g.Internal()), len(g.External()), len(g.Components()), g.Unresolved())
	fmt.Fprintf(out, "Link area: min=%.4f max=%.4f avg=%.4f\n", minArea, maxArea, avgArea)

	engine.RegisterIterationListener(func(i int, res core.InfiltrationResult) {
		fmt.Fprintf(out, "infiltration %d: exit=%s steps=%d water=%.3f\n", i+1, res.Exit, res.Steps, res.Water)
		if opts.printPath {
			for _, step := range res.Path {
				fmt.Fprintf(out, "  %s water=%.3f\n", step.Key, step.Water)
			}
		}
	})

	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}
	printSummary(out, result, g)

	if opts.saveAs != "" {
		err := snaps.Save(ctx, store.Snapshot{
			Name:  opts.saveAs,
			Graph: g.Snapshot(),
			Cells: cont.SnapshotStates(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved snapshot %q\n", opts.saveAs)
	}

	if opts.metricsAddr != "" && opts.metricsHold {
		log.Info(ctx, "run finished; serving metrics until interrupted")
		<-ctx.Done()
	}
	return nil
}

func loadContainer(ctx context.Context, opts *options, log logging.Logger) (*kb.Container, error) {
	if opts.input == "" {
		dims, err := parseGrid(opts.grid)
		if err != nil {
			return nil, err
		}
		cont, err := kb.NewBoxGrid(dims[0], dims[1], dims[2], opts.cellSize)
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "generated box grid",
			logging.String("grid", opts.grid),
			logging.Float("cell_size", opts.cellSize),
		)
		return cont, nil
	}

	f, err := os.Open(opts.input)
	if err != nil {
		return nil, fmt.Errorf("open decomposition %q: %w", opts.input, err)
	}
	defer f.Close()

	cont, summary, err := kb.LoadContainer(f)
	if err != nil {
		return nil, fmt.Errorf("load decomposition %q: %w", opts.input, err)
	}
	log.Info(ctx, "loaded decomposition",
		logging.String("path", opts.input),
		logging.Int("cells", len(summary.CellIDs)),
		logging.Int("faces", summary.Faces),
		logging.Int("asymmetric_faces", summary.Asymmetries),
		logging.Int("missing_neighbors", summary.Missing),
	)
	return cont, nil
}

func loadConfig(opts *options) (core.SimConfig, error) {
	cfg := core.DefaultSimConfig()
	if opts.configPath != "" {
		f, err := os.Open(opts.configPath)
		if err != nil {
			return cfg, fmt.Errorf("open config %q: %w", opts.configPath, err)
		}
		defer f.Close()
		if cfg, err = core.LoadSimConfig(f); err != nil {
			return cfg, fmt.Errorf("load config %q: %w", opts.configPath, err)
		}
	}
	if err := cfg.ApplyOverrides(opts.sets); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func resistanceField(opts *options) (core.ResistanceField, error) {
	switch strings.ToLower(opts.resistance) {
	case "", "constant":
		return core.ConstantField(1), nil
	case "wave":
		return core.WaveField{Frequency: opts.waveFreq}, nil
	default:
		return nil, fmt.Errorf("unknown resistance field %q", opts.resistance)
	}
}

func parseGrid(s string) ([3]int, error) {
	var dims [3]int
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return dims, fmt.Errorf("grid: want nx,ny,nz, got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return dims, fmt.Errorf("grid: %w", err)
		}
		dims[i] = v
	}
	return dims, nil
}

func restoreSnapshot(snaps *store.SnapshotStore, name string, engine *core.SimulationEngine) error {
	snap, err := snaps.Load(name)
	if err != nil {
		return err
	}
	if err := engine.Graph.Restore(snap.Graph); err != nil {
		return err
	}
	return engine.Container.RestoreStates(snap.Cells)
}

func printSummary(out io.Writer, res *core.RunResult, g *core.LinkGraph) {
	exits := make([]core.ExitCondition, 0, len(res.Exits))
	for e := range res.Exits {
		exits = append(exits, e)
	}
	sort.Slice(exits, func(i, j int) bool { return exits[i] < exits[j] })

	fmt.Fprintf(out, "Simulation complete: %d infiltrations\n", len(res.Results))
	for _, e := range exits {
		fmt.Fprintf(out, "  %-22s %d\n", e, res.Exits[e])
	}
	fmt.Fprintf(out, "Broken links: %d, air links: %d\n", res.BrokenLinks, len(g.AirLinks()))
}

func serveMetrics(addr string, collector *observability.Collector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func shutdownServer(srv *http.Server, log logging.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn(ctx, "metrics server shutdown failed", logging.Err(err))
	}
}
