package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/UOAF/bms-logcat/internal/common"
	"github.com/UOAF/bms-logcat/internal/logbook"
	"github.com/UOAF/bms-logcat/internal/manifest"
	"github.com/UOAF/bms-logcat/internal/report"
	"github.com/UOAF/bms-logcat/internal/watch"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	switch cmd {
	case "read":
		readCmd(os.Args[2:])
	case "write":
		writeCmd(os.Args[2:])
	case "create":
		createCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	case "batch":
		batchCmd(os.Args[2:])
	case "watch":
		watchCmd(os.Args[2:])
	case "manifest":
		manifestCmd(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Printf(`logcat %s (built %s) <command> [options]

Commands:
  read     --in <file.lbk|-> [--out <file|->] [--format json|yaml] [--pretty]
  write    --in <file|-> [--out <file.lbk|->] [--format json|yaml]
  create   --name <name> --callsign <callsign> [--password <pw> | --prompt-password] --out <file.lbk>
  report   --in <file.lbk> --pdf <file.pdf>
  batch    --in <dir> --out-dir <dir> [--format json|yaml]
  watch    --dir <dir> --out-dir <dir> [--format json|yaml]
  manifest --inputs <comma-separated> [--out <manifest.json>]

Use - as a path to read standard input or write standard output.
`, version, buildDate)
}

// countFlag lets -v repeat (-v -v) to raise verbosity.
type countFlag int

func (c *countFlag) String() string   { return strconv.Itoa(int(*c)) }
func (c *countFlag) IsBoolFlag() bool { return true }

func (c *countFlag) Set(string) error {
	*c++
	return nil
}

// addCommonFlags registers the diagnostic flags every command carries.
func addCommonFlags(fs *flag.FlagSet) (*countFlag, *string) {
	verbose := new(countFlag)
	fs.Var(verbose, "v", "increase verbosity (repeatable)")
	color := fs.String("color", "auto", "diagnostic color: auto, always or never")
	return verbose, color
}

func setupLogging(verbose *countFlag, color *string) {
	pref, err := common.ParseColor(*color)
	if err != nil {
		fmt.Println("color:", err)
		os.Exit(1)
	}
	common.SetupLogging(int(*verbose), pref)
}

func pickFormat(flagValue, path string) logbook.Format {
	if flagValue != "" {
		f, err := logbook.ParseFormat(flagValue)
		if err != nil {
			fmt.Println("format:", err)
			os.Exit(1)
		}
		return f
	}
	if path == common.StdioPath {
		return logbook.FormatJSON
	}
	return logbook.FormatForPath(path)
}

func readCmd(args []string) {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	in := fs.String("in", "", "input .lbk file, or - for stdin")
	out := fs.String("out", common.StdioPath, "output file, or - for stdout")
	formatFlag := fs.String("format", "", "output format: json or yaml")
	pretty := fs.Bool("pretty", false, "indent JSON output")
	verbose, color := addCommonFlags(fs)
	fs.Parse(args)
	setupLogging(verbose, color)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	format := pickFormat(*formatFlag, *out)

	data, err := common.ReadInput(*in)
	if err != nil {
		common.Errorf("%v", err)
		os.Exit(1)
	}
	common.Debugf("read %d bytes from %s", len(data), *in)
	lb, err := logbook.Decode(bytes.NewReader(data))
	if err != nil {
		common.Errorf("decode %s: %v", *in, err)
		os.Exit(1)
	}
	text, err := logbook.MarshalRecord(lb, format, *pretty)
	if err != nil {
		common.Errorf("marshal: %v", err)
		os.Exit(1)
	}
	if format == logbook.FormatJSON && !bytes.HasSuffix(text, []byte("\n")) {
		text = append(text, '\n')
	}
	if err := common.WriteOutput(*out, text); err != nil {
		common.Errorf("%v", err)
		os.Exit(1)
	}
	common.Infof("decoded %s (%s, callsign %q)", *in, format, lb.Callsign)
}

func writeCmd(args []string) {
	fs := flag.NewFlagSet("write", flag.ExitOnError)
	in := fs.String("in", "", "input json/yaml record, or - for stdin")
	out := fs.String("out", common.StdioPath, "output .lbk file, or - for stdout")
	formatFlag := fs.String("format", "", "input format: json or yaml")
	verbose, color := addCommonFlags(fs)
	fs.Parse(args)
	setupLogging(verbose, color)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	format := pickFormat(*formatFlag, *in)

	data, err := common.ReadInput(*in)
	if err != nil {
		common.Errorf("%v", err)
		os.Exit(1)
	}
	lb, err := logbook.UnmarshalRecord(data, format)
	if err != nil {
		common.Errorf("parse %s: %v", *in, err)
		os.Exit(1)
	}
	var buf bytes.Buffer
	if err := logbook.Encode(&buf, lb); err != nil {
		common.Errorf("encode: %v", err)
		os.Exit(1)
	}
	if err := common.WriteOutput(*out, buf.Bytes()); err != nil {
		common.Errorf("%v", err)
		os.Exit(1)
	}
	common.Infof("wrote %d byte record to %s", buf.Len(), *out)
}

func createCmd(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "pilot name")
	callsign := fs.String("callsign", "", "pilot callsign")
	password := fs.String("password", "", "logbook password")
	promptPassword := fs.Bool("prompt-password", false, "prompt for the password without echo")
	out := fs.String("out", "", "output .lbk file")
	verbose, color := addCommonFlags(fs)
	fs.Parse(args)
	setupLogging(verbose, color)

	if *name == "" || *callsign == "" || *out == "" {
		fmt.Println("required: --name, --callsign, --out")
		os.Exit(1)
	}
	if *password != "" && *promptPassword {
		fmt.Println("--password and --prompt-password cannot be used together")
		os.Exit(1)
	}
	pw := *password
	if *promptPassword {
		var err error
		pw, err = readPassword()
		if err != nil {
			common.Errorf("read password: %v", err)
			os.Exit(1)
		}
	}

	lb := logbook.New(*name, *callsign, pw)
	var buf bytes.Buffer
	if err := logbook.Encode(&buf, lb); err != nil {
		common.Errorf("encode: %v", err)
		os.Exit(1)
	}
	if err := common.WriteOutput(*out, buf.Bytes()); err != nil {
		common.Errorf("%v", err)
		os.Exit(1)
	}
	fmt.Printf("Created %s for %s %q\n", *out, lb.Rank, lb.Callsign)
}

func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Confirm: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if !bytes.Equal(first, second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	in := fs.String("in", "", "input .lbk file")
	pdf := fs.String("pdf", "", "output PDF file")
	verbose, color := addCommonFlags(fs)
	fs.Parse(args)
	setupLogging(verbose, color)

	if *in == "" || *pdf == "" {
		fmt.Println("required: --in, --pdf")
		os.Exit(1)
	}
	digest, _, err := common.Sha256OfFile(*in)
	if err != nil {
		common.Errorf("hash %s: %v", *in, err)
		os.Exit(1)
	}
	data, err := common.ReadInput(*in)
	if err != nil {
		common.Errorf("%v", err)
		os.Exit(1)
	}
	lb, err := logbook.Decode(bytes.NewReader(data))
	if err != nil {
		common.Errorf("decode %s: %v", *in, err)
		os.Exit(1)
	}
	src := report.Source{Path: *in, Sha256: digest}
	if err := report.SavePilotPDF(lb, src, *pdf); err != nil {
		common.Errorf("write pdf: %v", err)
		os.Exit(1)
	}
	fmt.Println("Wrote PDF:", *pdf)
}

// convertLogbook reads one binary record and writes its text form next to the
// others in outDir, named after the source file.
func convertLogbook(path, outDir string, format logbook.Format) (int64, error) {
	data, err := common.ReadInput(path)
	if err != nil {
		return 0, err
	}
	lb, err := logbook.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}
	text, err := logbook.MarshalRecord(lb, format, true)
	if err != nil {
		return 0, fmt.Errorf("marshal %s: %w", path, err)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := filepath.Join(outDir, base+format.Ext())
	if err := common.WriteOutput(outPath, text); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func batchCmd(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	inDir := fs.String("in", "", "input directory")
	outDir := fs.String("out-dir", "", "output directory")
	formatFlag := fs.String("format", "json", "output format: json or yaml")
	verbose, color := addCommonFlags(fs)
	fs.Parse(args)
	setupLogging(verbose, color)

	if *inDir == "" || *outDir == "" {
		fmt.Println("required: --in, --out-dir")
		os.Exit(1)
	}
	format, err := logbook.ParseFormat(*formatFlag)
	if err != nil {
		fmt.Println("format:", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		common.Errorf("create %s: %v", *outDir, err)
		os.Exit(1)
	}
	entries, err := os.ReadDir(*inDir)
	if err != nil {
		common.Errorf("read %s: %v", *inDir, err)
		os.Exit(1)
	}

	metrics := common.NewMetrics()
	metrics.Start()
	for _, entry := range entries {
		if entry.IsDir() || !watch.IsLogbook(entry.Name()) {
			continue
		}
		path := filepath.Join(*inDir, entry.Name())
		size, err := convertLogbook(path, *outDir, format)
		if err != nil {
			metrics.IncFailure()
			common.Errorf("%v", err)
			continue
		}
		metrics.AddRecord(size)
		common.Infof("converted %s", path)
	}
	metrics.Stop()

	snap := metrics.Snapshot()
	fmt.Printf("Converted %d logbook(s), %d failed, %s in %s\n",
		snap.Records, snap.Failures, common.FormatBytes(snap.Bytes),
		snap.Duration.Round(time.Millisecond))
	if snap.Failures > 0 {
		os.Exit(1)
	}
}

func watchCmd(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	dir := fs.String("dir", "", "directory to watch")
	outDir := fs.String("out-dir", "", "output directory")
	formatFlag := fs.String("format", "json", "output format: json or yaml")
	verbose, color := addCommonFlags(fs)
	fs.Parse(args)
	setupLogging(verbose, color)

	if *dir == "" || *outDir == "" {
		fmt.Println("required: --dir, --out-dir")
		os.Exit(1)
	}
	format, err := logbook.ParseFormat(*formatFlag)
	if err != nil {
		fmt.Println("format:", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		common.Errorf("create %s: %v", *outDir, err)
		os.Exit(1)
	}

	w, err := watch.New(*dir, watch.DefaultDebounce)
	if err != nil {
		common.Errorf("%v", err)
		os.Exit(1)
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Watching %s, exporting %s to %s\n", *dir, format, *outDir)
	w.Run(ctx, func(ev watch.Event) error {
		size, err := convertLogbook(ev.Path, *outDir, format)
		if err != nil {
			return err
		}
		common.Infof("exported %s (%s)", ev.Path, common.FormatBytes(size))
		return nil
	}, func(err error) {
		common.Errorf("%v", err)
	})
}

func manifestCmd(args []string) {
	fs := flag.NewFlagSet("manifest", flag.ExitOnError)
	inputs := fs.String("inputs", "", "comma-separated paths")
	out := fs.String("out", "manifest.json", "output json")
	verbose, color := addCommonFlags(fs)
	fs.Parse(args)
	setupLogging(verbose, color)

	if *inputs == "" {
		fmt.Println("required: --inputs")
		os.Exit(1)
	}
	var paths []string
	for _, p := range strings.Split(*inputs, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		fmt.Println("no input paths specified")
		os.Exit(1)
	}

	m, err := manifest.Build(paths)
	if err != nil {
		common.Errorf("manifest build: %v", err)
		os.Exit(1)
	}
	if err := manifest.Save(m, *out); err != nil {
		common.Errorf("manifest save: %v", err)
		os.Exit(1)
	}
	fmt.Println("Wrote", *out)
}
