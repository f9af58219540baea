// Command igtrace is the ray-tracer front-end described by spec §6: it
// loads a scene, reads rays from a file or stdin, and writes back one
// radiance sample per ray.
//
// The CLI itself is an out-of-scope "external collaborator" per the
// specification (§1); only its flag surface is specified. This
// implementation is a thin cobra/pflag wrapper over the runtime
// package, following the cobra.Command{Use, Short, Long, RunE} shape
// the rest of the retrieved pack uses for its own command-line tools,
// collapsed into a single file since igtrace has exactly one verb.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/embervale/photon/jit"
	"github.com/embervale/photon/linear"
	"github.com/embervale/photon/runtime"
	"github.com/embervale/photon/target"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

type flags struct {
	count      int
	inputPath  string
	outputPath string
	targetName string
	device     int
	useCPU     bool
	useGPU     bool
	quiet      bool
	verbose    bool
	noColor    bool
}

func main() {
	var f flags

	root := &cobra.Command{
		Use:     "igtrace [options] scene.json",
		Short:   "Trace a batch of rays against a loaded scene",
		Long:    "igtrace loads a scene description, traces rays read from a file or stdin through the technique's primary ray-generation entry point, and writes the resulting radiance back one line per ray.",
		Args:    cobra.ExactArgs(1),
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], f)
		},
	}
	root.SetVersionTemplate("igtrace {{.Version}}\n")

	pf := root.Flags()
	pf.IntVarP(&f.count, "count", "n", 1, "samples per ray")
	pf.StringVarP(&f.inputPath, "input", "i", "", "read rays from file (default: stdin)")
	pf.StringVarP(&f.outputPath, "output", "o", "", "write radiance per ray to file (default: stdout)")
	pf.StringVarP(&f.targetName, "target", "t", "", "compile target: sse42/avx/avx2/avx512/asimd/nvvm/amdgpu/generic")
	pf.IntVarP(&f.device, "device", "d", 0, "GPU device index")
	pf.BoolVar(&f.useCPU, "cpu", false, "auto-detect the best CPU target")
	pf.BoolVar(&f.useGPU, "gpu", false, "select a GPU target (requires -t for the device family)")
	pf.BoolVarP(&f.quiet, "quiet", "q", false, "suppress informational output")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "print additional diagnostic output")
	pf.BoolVar(&f.noColor, "no-color", false, "disable ANSI color in diagnostic output")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorizeError(err.Error(), f.noColor))
		os.Exit(1)
	}
}

// colorizeError wraps msg in a red ANSI escape unless disabled, the
// "-q/-v/--no-color/-h/--version" standard conveniences table's
// `--no-color` entry.
func colorizeError(msg string, disabled bool) string {
	if disabled {
		return msg
	}
	return "\x1b[31m" + msg + "\x1b[0m"
}

func resolveTarget(f flags) (target.Target, error) {
	switch {
	case f.targetName != "":
		tgt, ok := target.Parse(f.targetName)
		if !ok {
			return target.Target{}, errors.Errorf("igtrace: unknown target %q", f.targetName)
		}
		tgt.DeviceIndex = f.device
		return tgt, nil
	case f.useGPU:
		return target.Target{}, errors.New("igtrace: --gpu auto-detection needs an external device-enumeration collaborator; pass -t explicitly")
	case f.useCPU:
		return target.DetectCPU(), nil
	default:
		return target.DetectCPU(), nil
	}
}

func run(cmd *cobra.Command, scenePath string, f flags) error {
	tgt, err := resolveTarget(f)
	if err != nil {
		return err
	}

	compiler, err := jit.Open(tgt.ISA.String())
	if err != nil {
		return errors.Wrapf(err, "igtrace: no JIT backend registered for target %q (link one via blank import)", tgt.ISA)
	}

	opts := runtime.DefaultOptions()
	opts.Target = tgt

	rt, err := runtime.New(opts, compiler)
	if err != nil {
		return errors.Wrap(err, "igtrace")
	}
	defer rt.Close()

	if f.verbose && !f.quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "igtrace: target=%s loading %s\n", tgt.ISA, scenePath)
	}
	if err := rt.LoadFromFile(scenePath); err != nil {
		return errors.Wrap(err, "igtrace: load")
	}

	in, closeIn, err := openInput(f.inputPath)
	if err != nil {
		return err
	}
	defer closeIn()

	rays, err := readRays(in)
	if err != nil {
		return errors.Wrap(err, "igtrace: parse")
	}

	out, closeOut, err := openOutput(f.outputPath)
	if err != nil {
		return err
	}
	defer closeOut()

	if err := traceAndWrite(rt, rays, f.count, out); err != nil {
		return errors.Wrap(err, "igtrace: trace")
	}
	if f.verbose && !f.quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "igtrace: traced %d ray(s)\n", len(rays))
	}
	return nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" {
		return os.Stdin, func() {}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "igtrace: opening ray file")
	}
	return file, func() { file.Close() }, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "igtrace: creating output file")
	}
	return file, func() { file.Close() }, nil
}

// readRays parses one runtime.Ray per non-blank line, in the
// "ox oy oz dx dy dz tmin tmax" format spec §6 names for the ray file.
func readRays(r io.Reader) ([]runtime.Ray, error) {
	var rays []runtime.Ray
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 8 {
			return nil, errors.Errorf("line %d: expected 8 fields (ox oy oz dx dy dz tmin tmax), got %d", lineNo, len(fields))
		}
		var v [8]float32
		for i, s := range fields {
			f, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: field %d", lineNo, i+1)
			}
			v[i] = float32(f)
		}
		rays = append(rays, runtime.Ray{
			Origin: linear.V3{v[0], v[1], v[2]},
			Dir:    linear.V3{v[3], v[4], v[5]},
			TMin:   v[6],
			TMax:   v[7],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rays, nil
}

// traceAndWrite traces rays count times each, averaging the result
// (spec §6's "-n/--count N: samples per ray"), and writes one "r g b"
// line per ray.
func traceAndWrite(rt *runtime.Runtime, rays []runtime.Ray, count int, w io.Writer) error {
	if count < 1 {
		count = 1
	}
	sums := make([]linear.V3, len(rays))
	for i := 0; i < count; i++ {
		out, err := rt.Trace(rays)
		if err != nil {
			return err
		}
		for j, v := range out {
			sums[j].Add(&sums[j], &v)
		}
	}
	bw := bufio.NewWriter(w)
	defer bw.Flush()
	inv := 1.0 / float32(count)
	for _, s := range sums {
		var avg linear.V3
		avg.Scale(inv, &s)
		if _, err := fmt.Fprintf(bw, "%g %g %g\n", avg[0], avg[1], avg[2]); err != nil {
			return err
		}
	}
	return nil
}
