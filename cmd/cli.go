package cmd

import (
	"fmt"
	"io"
	"time"

	"wavelab/internal/config"
	"wavelab/pkg/build"

	"github.com/spf13/cobra"
)

// Command names.
const (
	CommandGenerate  = "generate"
	CommandSpectrum  = "spectrum"
	CommandRoundtrip = "roundtrip"
	CommandServe     = "serve"
)

// Output formats for generate and spectrum.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Options is the parsed command line: the selected command, its flags, and
// the configuration after file, env and flag overrides.
type Options struct {
	Config *config.Config

	ConfigPath string
	Format     string  // table or json
	Peaks      int     // spectrum: peaks to report
	MaxError   float64 // roundtrip: fail above this error when positive
}

// flagValues holds raw flag values; they are copied onto the config only
// when the flag was set on the command line.
type flagValues struct {
	logLevel string
	verbose  bool

	kind       string
	mode       string
	frequency  float64
	amplitude  float64
	phase      float64
	sampleRate float64
	harmonics  int
	windowSize int
	tolerance  float64
	window     string

	input    string
	output   string
	bitDepth int

	wsAddress   string
	maxWindow   int
	udpEnabled  bool
	udpTarget   string
	udpInterval time.Duration
}

// ParseArgs parses args (without the program name) into Options. A nil
// Options with a nil error means nothing is left to run, e.g. after --help.
func ParseArgs(args []string, out io.Writer) (*Options, error) {
	info := build.GetBuildInfo()
	opts := &Options{Format: FormatTable, Peaks: 5}
	var fv flagValues
	var selected *cobra.Command

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         info.Description,
		Version:       info.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	selectCmd := func(cmd *cobra.Command, _ []string) error {
		selected = cmd
		return nil
	}

	generateCmd := &cobra.Command{
		Use:   CommandGenerate,
		Short: "Render a waveform and print it or write it to a WAV file",
		Args:  cobra.NoArgs,
		RunE:  selectCmd,
	}
	generateCmd.Flags().StringVarP(&fv.output, "output", "o", "", "Write the signal to this WAV file instead of stdout")
	generateCmd.Flags().IntVar(&fv.bitDepth, "bit-depth", config.DefaultBitDepth, "WAV bit depth (16, 24 or 32)")
	generateCmd.Flags().StringVarP(&opts.Format, "format", "f", FormatTable, "Output format (table or json)")

	spectrumCmd := &cobra.Command{
		Use:   CommandSpectrum,
		Short: "Transform a waveform or WAV file and print its centered spectrum",
		Args:  cobra.NoArgs,
		RunE:  selectCmd,
	}
	spectrumCmd.Flags().StringVarP(&fv.input, "input", "i", "", "Mono WAV file to analyze instead of the generator")
	spectrumCmd.Flags().StringVarP(&opts.Format, "format", "f", FormatTable, "Output format (table or json)")
	spectrumCmd.Flags().IntVarP(&opts.Peaks, "peaks", "p", 5, "Number of peaks to report")

	roundtripCmd := &cobra.Command{
		Use:   CommandRoundtrip,
		Short: "Transform and reconstruct a waveform, reporting the largest error",
		Args:  cobra.NoArgs,
		RunE:  selectCmd,
	}
	roundtripCmd.Flags().StringVarP(&fv.input, "input", "i", "", "Mono WAV file to use instead of the generator")
	roundtripCmd.Flags().Float64Var(&opts.MaxError, "max-error", 0, "Exit with an error when the reconstruction error exceeds this value")

	serveCmd := &cobra.Command{
		Use:   CommandServe,
		Short: "Serve spectra over WebSocket and optionally stream magnitudes over UDP",
		Args:  cobra.NoArgs,
		RunE:  selectCmd,
	}
	serveCmd.Flags().StringVar(&fv.wsAddress, "addr", config.DefaultWSAddress, "WebSocket listen address")
	serveCmd.Flags().IntVar(&fv.maxWindow, "max-window-size", config.DefaultServeWindowSize, "Largest request length accepted from clients")
	serveCmd.Flags().BoolVar(&fv.udpEnabled, "udp", false, "Stream magnitudes over UDP")
	serveCmd.Flags().StringVar(&fv.udpTarget, "udp-target", config.DefaultUDPTargetAddress, "UDP target address")
	serveCmd.Flags().DurationVar(&fv.udpInterval, "udp-interval", config.DefaultUDPSendInterval, "Interval between UDP packets")

	rootCmd.AddCommand(generateCmd, spectrumCmd, roundtripCmd, serveCmd)

	// Global Configuration
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", "", "Path to a YAML config file (default: ./config.yaml when present)")
	pf.StringVar(&fv.logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	pf.BoolVarP(&fv.verbose, "verbose", "v", false, "Show verbose output (debug logging)")

	// Waveform Configuration
	pf.StringVarP(&fv.kind, "kind", "k", config.DefaultKind, "Waveform kind (sine, square, triangular, sawtooth, custom)")
	pf.StringVarP(&fv.mode, "mode", "m", config.DefaultMode, "Rendering mode (reference or harmonic)")
	pf.Float64VarP(&fv.frequency, "frequency", "F", config.DefaultFrequency, "Frequency in cycles per unit time")
	pf.Float64VarP(&fv.amplitude, "amplitude", "a", config.DefaultAmplitude, "Peak amplitude")
	pf.Float64Var(&fv.phase, "phase", config.DefaultPhase, "Phase in radians")
	pf.Float64VarP(&fv.sampleRate, "sample-rate", "s", config.DefaultSampleRate, "Samples per unit time (0 derives 3·harmonics·frequency)")
	pf.IntVarP(&fv.harmonics, "harmonics", "H", config.DefaultHarmonics, "Series terms in harmonic mode")

	// Transform Configuration
	pf.IntVarP(&fv.windowSize, "length", "n", config.DefaultWindowSize, "Window size N (signal length)")
	pf.Float64Var(&fv.tolerance, "tolerance", config.DefaultTolerance, "Components below this magnitude are snapped to zero")
	pf.StringVarP(&fv.window, "window", "w", config.DefaultWindow, "Window function applied before the transform")

	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if selected == nil {
		return nil, nil
	}

	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.Command = selected.Name()
	applyFlags(cfg, selected, &fv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	switch opts.Format {
	case FormatTable, FormatJSON:
	default:
		return nil, fmt.Errorf("unknown format '%s'", opts.Format)
	}

	opts.Config = cfg
	return opts, nil
}

// applyFlags copies every flag set on the command line onto cfg.
func applyFlags(cfg *config.Config, cmd *cobra.Command, fv *flagValues) {
	changed := cmd.Flags().Changed

	if changed("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if changed("verbose") {
		cfg.Debug = fv.verbose
	}

	if changed("kind") {
		cfg.Waveform.Kind = fv.kind
	}
	if changed("mode") {
		cfg.Waveform.Mode = fv.mode
	}
	if changed("frequency") {
		cfg.Waveform.Frequency = fv.frequency
	}
	if changed("amplitude") {
		cfg.Waveform.Amplitude = fv.amplitude
	}
	if changed("phase") {
		cfg.Waveform.Phase = fv.phase
	}
	if changed("sample-rate") {
		cfg.Waveform.SampleRate = fv.sampleRate
	}
	if changed("harmonics") {
		cfg.Waveform.Harmonics = fv.harmonics
	}

	if changed("length") {
		cfg.Transform.WindowSize = fv.windowSize
	}
	if changed("tolerance") {
		cfg.Transform.Tolerance = fv.tolerance
	}
	if changed("window") {
		cfg.Transform.Window = fv.window
	}

	if changed("input") {
		cfg.Export.Input = fv.input
	}
	if changed("output") {
		cfg.Export.Output = fv.output
	}
	if changed("bit-depth") {
		cfg.Export.BitDepth = fv.bitDepth
	}

	if changed("addr") {
		cfg.Transport.WSAddress = fv.wsAddress
	}
	if changed("max-window-size") {
		cfg.Transport.MaxWindowSize = fv.maxWindow
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = fv.udpEnabled
	}
	if changed("udp-target") {
		cfg.Transport.UDPTargetAddress = fv.udpTarget
	}
	if changed("udp-interval") {
		cfg.Transport.UDPSendInterval = fv.udpInterval
	}
}
