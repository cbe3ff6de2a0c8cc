// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"wavelab/internal/audio"
	applog "wavelab/internal/log"
	"wavelab/internal/session"
)

// Execute runs the command selected by ParseArgs, writing results to out.
func Execute(ctx context.Context, opts *Options, out io.Writer) error {
	switch opts.Config.Command {
	case CommandGenerate:
		return runGenerate(opts, out)
	case CommandSpectrum:
		return runSpectrum(opts, out)
	case CommandRoundtrip:
		return runRoundtrip(opts, out)
	case CommandServe:
		return runServe(ctx, opts)
	default:
		return fmt.Errorf("unknown command '%s'", opts.Config.Command)
	}
}

func runGenerate(opts *Options, out io.Writer) error {
	cfg := opts.Config
	params := cfg.WaveformParams()
	signal := params.Render(cfg.Mode())

	if cfg.Export.Output != "" {
		rate := int(math.Round(params.SamplingRate))
		if err := audio.WriteWAV(cfg.Export.Output, signal, rate, cfg.Export.BitDepth); err != nil {
			return err
		}
		applog.Infof("generate: wrote %d %s samples to %s", len(signal), params.Kind, cfg.Export.Output)
		return nil
	}

	if opts.Format == FormatJSON {
		return writeJSON(out, signal)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "n\tt\tx")
	for i, x := range signal {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i, formatFloat(float64(i)/params.SamplingRate), formatFloat(x))
	}
	return tw.Flush()
}

// computeRequest builds the session from config and computes the request,
// taking the signal from the input WAV file when one is set.
func computeRequest(opts *Options, peaks int) (*session.Result, error) {
	cfg := opts.Config
	s, err := session.New(session.Options{
		Tolerance: cfg.Transform.Tolerance,
		Window:    cfg.WindowFunc(),
		PeakCount: peaks,
	})
	if err != nil {
		return nil, err
	}

	req := session.RequestFromConfig(cfg)
	req.Peaks = peaks
	if cfg.Export.Input != "" {
		samples, rate, err := audio.ReadWAV(cfg.Export.Input)
		if err != nil {
			return nil, err
		}
		if len(samples) < req.Length {
			return nil, fmt.Errorf("%s has %d samples, need at least %d", cfg.Export.Input, len(samples), req.Length)
		}
		req.Signal = samples[:req.Length]
		req.SampleRate = float64(rate)
	}

	return s.Compute(req)
}

func runSpectrum(opts *Options, out io.Writer) error {
	res, err := computeRequest(opts, opts.Peaks)
	if err != nil {
		return err
	}

	if opts.Format == FormatJSON {
		return writeJSON(out, res)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "k\tw\tre\tim\tr\tphi\t")
	for _, b := range res.Spectrum {
		phi := "-"
		if b.Phi != nil {
			phi = formatFloat(*b.Phi)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
			b.K, formatFloat(b.W), formatFloat(b.Re), formatFloat(b.Im), formatFloat(b.R), phi)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nN=%d fs=%s window=%s\n", len(res.Spectrum), formatFloat(res.SampleRate), res.Window)
	for i, p := range res.Peaks {
		fmt.Fprintf(out, "peak %d: w=%s r=%s\n", i+1, formatFloat(p.W), formatFloat(p.R))
	}
	return nil
}

func runRoundtrip(opts *Options, out io.Writer) error {
	res, err := computeRequest(opts, 0)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "N=%d window=%s max_error=%g\n", len(res.Signal), res.Window, res.MaxError)
	if opts.MaxError > 0 && res.MaxError > opts.MaxError {
		return fmt.Errorf("reconstruction error %g exceeds %g", res.MaxError, opts.MaxError)
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
