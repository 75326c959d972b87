package extension

import (
	"context"
	"fmt"

	"github.com/bcube-dev/bcube-setup/internal/config"
	"github.com/bcube-dev/bcube-setup/internal/feature"
	"github.com/bcube-dev/bcube-setup/internal/framework"
	"github.com/bcube-dev/bcube-setup/internal/gpu"
	"github.com/bcube-dev/bcube-setup/internal/log"
	"github.com/bcube-dev/bcube-setup/internal/probe"
	"github.com/bcube-dev/bcube-setup/internal/rdma"
)

// Macros the extension's sources test for.
const (
	MacroHaveCUDA = "HAVE_CUDA"
	MacroHaveRDMA = "HAVE_RDMA"
)

// Reporter receives coarse progress for each pipeline step.
type Reporter interface {
	Start(step string)
	Done(detail string)
	Fail()
}

type noopReporter struct{}

func (noopReporter) Start(string) {}
func (noopReporter) Done(string)  {}
func (noopReporter) Fail()        {}

// Builder runs the configuration pipeline for one build invocation.
type Builder struct {
	cfg       config.Config
	fw        framework.Framework
	prober    probe.Prober
	rdma      rdma.Locator
	logger    log.Logger
	reporter  Reporter
	sysfsRoot string
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder's logger.
func WithLogger(l log.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithRDMALocator replaces the default RDMA directory resolver.
func WithRDMALocator(l rdma.Locator) Option {
	return func(b *Builder) { b.rdma = l }
}

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) Option {
	return func(b *Builder) { b.reporter = r }
}

// WithSysfsRoot points GPU device detection at a different root.
func WithSysfsRoot(root string) Option {
	return func(b *Builder) { b.sysfsRoot = root }
}

// NewBuilder returns a Builder for cfg.
func NewBuilder(cfg config.Config, fw framework.Framework, prober probe.Prober, opts ...Option) *Builder {
	b := &Builder{
		cfg:      cfg,
		fw:       fw,
		prober:   prober,
		rdma:     rdma.SystemLocator{},
		logger:   log.Default(),
		reporter: noopReporter{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs every step in order and returns the finished descriptor. Any
// error aborts the run; no partial descriptor is returned.
func (b *Builder) Build(ctx context.Context) (Descriptor, error) {
	// Transport selections are pure configuration and are checked before
	// anything that could start a probe.
	sels, err := feature.Select(b.cfg.Env)
	if err != nil {
		return Descriptor{}, err
	}

	b.reporter.Start("Checking TensorFlow version")
	v, err := framework.CheckVersion(ctx, b.fw)
	if err != nil {
		b.reporter.Fail()
		return Descriptor{}, err
	}
	b.reporter.Done(v.String())

	b.reporter.Start("Resolving TensorFlow flags")
	tf, err := framework.ResolveFlags(ctx, b.fw, b.prober, b.logger)
	if err != nil {
		b.reporter.Fail()
		return Descriptor{}, err
	}
	b.reporter.Done(string(tf.Source))

	var cudaDirs, rdmaDirs probe.Dirs
	haveCUDA := sels.AnyEnabled()
	if haveCUDA {
		if !gpu.HasNVIDIADevice(b.sysfsRoot) {
			b.logger.Warn("GPU transport selected but no NVIDIA device found on this host")
		}
		b.reporter.Start("Locating CUDA")
		cudaDirs, err = gpu.Locate(ctx, b.cfg.Env, b.prober, b.logger)
		if err != nil {
			b.reporter.Fail()
			return Descriptor{}, err
		}
		b.reporter.Done(fmt.Sprint(cudaDirs.Include))
	}

	haveRDMA := sels.Of("allreduce") == feature.TransportRDMA
	if haveRDMA {
		b.reporter.Start("Locating RDMA")
		rdmaDirs, err = b.rdma.Locate(ctx, cudaDirs)
		if err != nil {
			b.reporter.Fail()
			return Descriptor{}, &probe.PlatformError{
				Dependency: "RDMA",
				Message:    "Unable to locate RDMA headers and libraries.",
				Diagnostic: err.Error(),
				Err:        err,
			}
		}
		b.reporter.Done(fmt.Sprint(rdmaDirs.Include))
	}

	acc := newAccumulator(b.cfg.Extension.Name, b.cfg.Extension.Sources)
	acc.compileFlags("-std=" + b.cfg.Toolchain.Std)
	acc.compileFlags(tf.Compile...)
	acc.linkFlags(tf.Link...)

	if haveCUDA {
		acc.define(MacroHaveCUDA, "1")
		acc.includeDirs(cudaDirs.Include...)
		acc.libraryDirs(cudaDirs.Lib...)
		acc.libraries(gpu.RuntimeLibrary)
	}
	if haveRDMA {
		acc.define(MacroHaveRDMA, "1")
		acc.includeDirs(rdmaDirs.Include...)
		acc.libraryDirs(rdmaDirs.Lib...)
		acc.libraries(rdma.Library)
	}
	for _, sel := range sels {
		if sel.Transport.Enabled() {
			acc.define(sel.Operation.Macro, sel.Transport.Selector())
		}
	}

	d := acc.freeze()
	b.logDescriptor(d)
	return d, nil
}

func (b *Builder) logDescriptor(d Descriptor) {
	b.logger.Info("descriptor assembled",
		"define_macros", d.Macros,
		"include_dirs", d.IncludeDirs,
		"sources", d.Sources,
		"extra_compile_args", d.CompileFlags,
		"extra_link_args", d.LinkFlags,
		"library_dirs", d.LibraryDirs,
		"libraries", d.Libraries,
	)
}
