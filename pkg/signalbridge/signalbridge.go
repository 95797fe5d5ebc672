package signalbridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/randalmurphal/signalbridge/pkg/signalbridge/bridge"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/config"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/envelope"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/observability"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/perf"
	"github.com/randalmurphal/signalbridge/pkg/signalbridge/replay"
)

// GRPCDialer opens a client connection to a gRPC sink target.
type GRPCDialer func(target string) (grpc.ClientConnInterface, io.Closer, error)

// Bridge is a fully wired Signal Bus bridge.
type Bridge struct {
	cfg config.Config

	Context  *bridge.Context
	Router   *observability.ObservedRouter
	Monitor  *observability.HealthMonitor
	Recorder *replay.Recorder
	Perf     *perf.Monitor

	closers []io.Closer
}

type options struct {
	registry       *envelope.Registry
	contractWriter io.Writer
	diag           *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	dial           GRPCDialer
}

// Option configures the assembly.
type Option func(*options)

// WithRegistry overrides the validator registry.
func WithRegistry(registry *envelope.Registry) Option {
	return func(o *options) { o.registry = registry }
}

// WithContractLog writes contract records to w.
func WithContractLog(w io.Writer) Option {
	return func(o *options) { o.contractWriter = w }
}

// WithDiagnostics sets the slog logger for ambient diagnostics.
func WithDiagnostics(diag *slog.Logger) Option {
	return func(o *options) { o.diag = diag }
}

// WithMetrics enables a metrics recorder.
func WithMetrics(metrics observability.MetricsRecorder) Option {
	return func(o *options) { o.metrics = metrics }
}

// WithSpans enables a span manager.
func WithSpans(spans observability.SpanManager) Option {
	return func(o *options) { o.spans = spans }
}

// WithGRPCDialer overrides how gRPC sink connections are opened.
func WithGRPCDialer(dial GRPCDialer) Option {
	return func(o *options) { o.dial = dial }
}

func defaultGRPCDialer(target string) (grpc.ClientConnInterface, io.Closer, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return conn, conn, nil
}

// New validates the configuration and assembles a bridge from it.
func New(cfg config.Config, opts ...Option) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bridge config: %w", err)
	}

	o := options{dial: defaultGRPCDialer}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = envelope.NewRegistry()
	}

	b := &Bridge{
		cfg:     cfg,
		Context: bridge.NewContext(cfg.SessionID, cfg.SDKSurface, cfg.Capabilities),
		Monitor: observability.NewHealthMonitor(),
		Perf:    perf.NewMonitor(o.registry, cfg.Perf.BufferCapacity),
	}

	observedOpts := []observability.ObservedOption{
		observability.WithHealthMonitor(b.Monitor),
	}
	if o.contractWriter != nil {
		observedOpts = append(observedOpts,
			observability.WithContractLog(observability.NewStructuredLogger(o.contractWriter)))
	}
	if cfg.Replay.Enabled {
		b.Recorder = replay.NewRecorder()
		observedOpts = append(observedOpts, observability.WithReplayRecorder(b.Recorder))
	}
	if o.diag != nil {
		observedOpts = append(observedOpts, observability.WithDiagnostics(o.diag))
	}
	if o.metrics != nil {
		observedOpts = append(observedOpts, observability.WithMetrics(o.metrics))
	}
	if o.spans != nil {
		observedOpts = append(observedOpts, observability.WithSpans(o.spans))
	}
	b.Router = observability.NewObservedRouter(bridge.NewRouter(o.registry), observedOpts...)

	for _, sinkCfg := range cfg.Sinks {
		sink, err := b.buildSink(sinkCfg, o.dial)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("build sink %q: %w", sinkCfg.Name, err)
		}
		if err := b.Router.AddSink(sink); err != nil {
			b.Close()
			return nil, err
		}
	}
	return b, nil
}

func (b *Bridge) buildSink(cfg config.SinkConfig, dial GRPCDialer) (bridge.Sink, error) {
	var topts []bridge.TransportOption
	if cfg.Rate > 0 || cfg.Burst > 0 {
		topts = append(topts, bridge.WithRateLimiter(bridge.NewRateLimiter(cfg.Rate, cfg.Burst)))
	}

	switch cfg.Type {
	case config.SinkUDP:
		return bridge.NewUDPSink(cfg.Name, cfg.Address, nil, topts...), nil
	case config.SinkOSC:
		return bridge.NewOSCSink(cfg.Name, cfg.Pattern, cfg.Address, nil, nil, topts...), nil
	case config.SinkGRPC:
		conn, closer, err := dial(cfg.Address)
		if err != nil {
			return nil, err
		}
		if closer != nil {
			b.closers = append(b.closers, closer)
		}
		return bridge.NewGRPCSink(cfg.Name, bridge.NewGRPCStub(conn, cfg.Method), topts...), nil
	case config.SinkMemory:
		return bridge.NewMemorySink(cfg.Name), nil
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
}

// Dispatch routes one payload through the observed router under the
// bridge's session context.
func (b *Bridge) Dispatch(ctx context.Context, kind envelope.Kind, payload map[string]any) error {
	return b.Router.Dispatch(ctx, kind, payload, b.Context)
}

// Pulse returns the current per-sink health snapshot.
func (b *Bridge) Pulse() observability.Pulse {
	return b.Monitor.Pulse()
}

// ArchiveReplay persists the captured replay frames under the named session
// in the configured SQLite archive.
func (b *Bridge) ArchiveReplay(session string) error {
	if b.Recorder == nil {
		return fmt.Errorf("replay capture is not enabled")
	}
	archive, err := replay.NewSQLiteArchive(b.cfg.Replay.ArchivePath)
	if err != nil {
		return err
	}
	defer archive.Close()
	return b.Recorder.ArchiveTo(archive, session)
}

// Close releases sink connections. The bridge must not dispatch afterwards.
func (b *Bridge) Close() error {
	var firstErr error
	for _, closer := range b.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.closers = nil
	return firstErr
}
