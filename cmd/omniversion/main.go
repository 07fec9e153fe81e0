// Command omniversion compiles version grammars and parses, compares, sorts
// and validates omni versions.
//
//	omniversion [flags] compile <grammar>
//	omniversion [flags] parse <text>...
//	omniversion [flags] compare <a> <b>
//	omniversion [flags] sort <text>...
//	omniversion [flags] validate <text>...
//	omniversion [flags] formats
//	omniversion [flags] watch
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/valentin-kaiser/omniversion/apperror"
	"github.com/valentin-kaiser/omniversion/config"
	"github.com/valentin-kaiser/omniversion/flag"
	"github.com/valentin-kaiser/omniversion/interruption"
	"github.com/valentin-kaiser/omniversion/logging"
	"github.com/valentin-kaiser/omniversion/version"
	"github.com/valentin-kaiser/omniversion/zlog"
	"golang.org/x/sync/errgroup"
)

// BuildVersion is set at link time
var BuildVersion = "dev"

var logger = logging.For("main")

type options struct {
	format    string
	catalog   string
	rangeSafe bool
	logFile   string
}

func main() {
	os.Exit(run())
}

func run() (code int) {
	defer interruption.CatchExit(&code)

	var opts options
	flag.Register("format,f", &opts.format, "Grammar text or catalog name used to parse versions")
	flag.Register("config", &opts.catalog, "Path of the format catalog (default <path>/formats.yaml)")
	flag.Register("range-safe", &opts.rangeSafe, "Escape version text for use inside ranges")
	flag.Register("log-file", &opts.logFile, "Also write logs to this rotated file")
	flag.Init()

	if flag.Help {
		flag.PrintHelp()
		return 0
	}
	if flag.Version {
		fmt.Println(BuildVersion)
		return 0
	}

	level := zerolog.WarnLevel
	if flag.Debug {
		level = zerolog.DebugLevel
	}
	l := zlog.New().WithConsole(os.Stderr)
	if opts.logFile != "" {
		l.WithLogFile(opts.logFile)
	}
	l.Init(level)
	defer l.Stop()

	ctx, stop := interruption.WithSignals(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.catalog == "" {
		opts.catalog = config.Path(flag.Path)
	}

	err := execute(ctx, opts, flag.Arguments(), os.Stdout)
	if err != nil {
		logger.Error().Err(err).Msg("command failed")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func execute(ctx context.Context, opts options, args []string, out io.Writer) error {
	if len(args) == 0 {
		return apperror.NewError(apperror.KindInvalidArgument, "missing command, expected one of compile, parse, compare, sort, validate, formats, watch")
	}

	catalog, err := config.Load(opts.catalog)
	if err != nil {
		return apperror.Wrap(err)
	}
	catalog.Apply()

	cmd, args := args[0], args[1:]
	logger.Debug().Str("command", cmd).Int("arguments", len(args)).Msg("executing command")

	switch cmd {
	case "compile":
		return compile(args, out)
	case "parse":
		return parse(ctx, catalog, opts, args, out)
	case "compare":
		return compare(ctx, catalog, opts, args, out)
	case "sort":
		return sortVersions(ctx, catalog, opts, args, out)
	case "validate":
		return validate(ctx, catalog, opts, args, out)
	case "formats":
		return formats(catalog, out)
	case "watch":
		return watch(ctx, opts, out)
	default:
		return apperror.NewErrorf(apperror.KindInvalidArgument, "unknown command %q", cmd)
	}
}

func compile(args []string, out io.Writer) error {
	if len(args) != 1 {
		return apperror.NewError(apperror.KindInvalidArgument, "compile expects exactly one grammar")
	}
	f, err := version.Compile(args[0])
	if err != nil {
		return apperror.Wrap(err)
	}
	_, err = fmt.Fprintln(out, f.Canonical())
	return err
}

// parser returns the function used to read version text. Without a requested
// or default format the text forms of version.Parse apply.
func parser(catalog *config.Catalog, opts options) (func(string) (*version.Version, error), error) {
	ref := opts.format
	if ref == "" {
		ref = catalog.Default
	}
	if ref == "" {
		return func(text string) (*version.Version, error) {
			v, err := version.Parse(text)
			if err == nil && v == nil {
				err = apperror.NewError(apperror.KindInvalidArgument, "empty version text")
			}
			return v, err
		}, nil
	}

	f, err := catalog.Resolve(ref)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return f.Parse, nil
}

// parseAll parses texts in parallel and keeps their order
func parseAll(ctx context.Context, catalog *config.Catalog, opts options, texts []string) ([]*version.Version, error) {
	read, err := parser(catalog, opts)
	if err != nil {
		return nil, err
	}

	versions := make([]*version.Version, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() (err error) {
			defer interruption.Recover(&err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			v, err := read(text)
			if err != nil {
				return apperror.Wrap(err)
			}
			versions[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return versions, nil
}

func printVersion(out io.Writer, v *version.Version, rangeSafe bool) error {
	var b strings.Builder
	v.AppendTo(&b, rangeSafe)
	_, err := fmt.Fprintln(out, b.String())
	return err
}

func parse(ctx context.Context, catalog *config.Catalog, opts options, args []string, out io.Writer) error {
	if len(args) == 0 {
		return apperror.NewError(apperror.KindInvalidArgument, "parse expects at least one version")
	}
	versions, err := parseAll(ctx, catalog, opts, args)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if err := printVersion(out, v, opts.rangeSafe); err != nil {
			return err
		}
	}
	return nil
}

func compare(ctx context.Context, catalog *config.Catalog, opts options, args []string, out io.Writer) error {
	if len(args) != 2 {
		return apperror.NewError(apperror.KindInvalidArgument, "compare expects exactly two versions")
	}
	versions, err := parseAll(ctx, catalog, opts, args)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, versions[0].Compare(versions[1]))
	return err
}

func sortVersions(ctx context.Context, catalog *config.Catalog, opts options, args []string, out io.Writer) error {
	versions, err := parseAll(ctx, catalog, opts, args)
	if err != nil {
		return err
	}
	version.Sort(versions)
	for _, v := range versions {
		if err := printVersion(out, v, opts.rangeSafe); err != nil {
			return err
		}
	}
	return nil
}

func validate(ctx context.Context, catalog *config.Catalog, opts options, args []string, out io.Writer) error {
	if len(args) == 0 {
		return apperror.NewError(apperror.KindInvalidArgument, "validate expects at least one version")
	}
	versions, err := parseAll(ctx, catalog, opts, args)
	if err != nil {
		return err
	}

	invalid := 0
	for i, v := range versions {
		if err := v.ValidateOSGi(); err != nil {
			invalid++
			fmt.Fprintf(out, "%s: %v\n", args[i], err)
			continue
		}
		fmt.Fprintf(out, "%s: ok\n", args[i])
	}
	if invalid > 0 {
		return apperror.NewErrorf(apperror.KindInvalidArgument, "%d of %d versions are not OSGi versions", invalid, len(versions))
	}
	return nil
}

func formats(catalog *config.Catalog, out io.Writer) error {
	names := append([]string{config.OSGi, config.Raw}, catalog.Names()...)
	for _, name := range names {
		f, err := catalog.Lookup(name)
		if err != nil {
			return err
		}
		marker := ""
		if name == catalog.Default {
			marker = " (default)"
		}
		fmt.Fprintf(out, "%s%s\t%s\n", name, marker, f.Canonical())
	}
	return nil
}

func watch(ctx context.Context, opts options, out io.Writer) error {
	err := config.Watch(ctx, opts.catalog, func(c *config.Catalog) {
		c.Apply()
		fmt.Fprintf(out, "reloaded %s with %d formats\n", opts.catalog, len(c.Formats))
	})
	if err != nil {
		return apperror.Wrap(err)
	}
	<-ctx.Done()
	return nil
}
