package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"subroute/internal/app/mount"
	"subroute/internal/domain/dispatch"
	"subroute/internal/infra/chirouter"
	"subroute/internal/infra/history"
	"subroute/internal/infra/routefile"
	"subroute/internal/platform/logger"
	"subroute/internal/usecase/journal"
	"subroute/internal/usecase/subrouter"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type locations []string

func (l *locations) String() string { return strings.Join(*l, ",") }

func (l *locations) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type options struct {
	file      string
	router    string
	prefix    string
	trailing  string
	url       string
	root      string
	pushState bool
	navigate  locations
	asJSON    bool
	verbose   bool
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("routes", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.file, "file", "routes.yaml", "routes file")
	fs.StringVar(&opts.router, "router", "", "only mount the named router")
	fs.StringVar(&opts.prefix, "prefix", "", "override the prefix of the selected router (requires -router)")
	fs.StringVar(&opts.trailing, "trailing", "", "override trailing-slash routes of the selected router: true or false (requires -router)")
	fs.StringVar(&opts.url, "url", "", "URL loaded before routers are mounted")
	fs.StringVar(&opts.root, "root", "/", "application root for pushState URLs")
	fs.BoolVar(&opts.pushState, "pushstate", false, "read the location from the URL path instead of the fragment")
	fs.Var(&opts.navigate, "navigate", "location to dispatch after mounting (repeatable)")
	fs.BoolVar(&opts.asJSON, "json", false, "print JSON")
	fs.BoolVar(&opts.verbose, "v", false, "log route actions to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	report, err := build(opts, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "routes: %v\n", err)
		return 1
	}
	if opts.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			_, _ = fmt.Fprintf(stderr, "routes: %v\n", err)
			return 1
		}
		return 0
	}
	printReport(stdout, report)
	return 0
}

type routerReport struct {
	Name                string        `json:"name"`
	Prefix              string        `json:"prefix"`
	Separator           string        `json:"separator"`
	TrailingSlashRoutes bool          `json:"trailing_slash_routes"`
	Table               []tableReport `json:"table"`
	InitialDispatch     string        `json:"initial_dispatch,omitempty"`
}

type tableReport struct {
	Pattern string `json:"pattern"`
	Handler string `json:"handler"`
}

type report struct {
	Location   string            `json:"location"`
	Routers    []routerReport    `json:"routers"`
	Dispatches []dispatch.Record `json:"dispatches"`
}

func build(opts options, stderr io.Writer) (*report, error) {
	file, err := routefile.Load(opts.file)
	if err != nil {
		return nil, err
	}
	if err := selectRouter(file, opts); err != nil {
		return nil, err
	}

	level := logger.LevelWarn
	if opts.verbose {
		level = logger.LevelInfo
	}
	log := logger.New(logger.Config{Level: level, Format: logger.FormatText, Output: stderr})

	mode := history.ModeHash
	if opts.pushState {
		mode = history.ModePushState
	}
	journalService := journal.NewService(journal.NewMemoryStore(0), log)
	matchers := chirouter.NewCompiler()
	hist := history.New(history.Config{Root: opts.root, Mode: mode}, matchers, log, history.WithRecorder(journalService))
	if _, err := hist.Start(opts.url, true); err != nil {
		return nil, err
	}

	registry := subrouter.NewRegistry()
	deps := subrouter.Deps{Registrar: hist, Matchers: matchers, Location: hist, Logger: log}
	if err := mount.NewService(deps, nil, log).Mount(file, registry); err != nil {
		return nil, err
	}
	location := hist.CurrentLocation()

	for _, loc := range opts.navigate {
		if _, err := hist.LoadURL(loc); err != nil {
			return nil, fmt.Errorf("navigate %q: %w", loc, err)
		}
	}

	out := &report{Location: location}
	for _, n := range registry.List() {
		r := routerReport{
			Name:                n.Name,
			Prefix:              n.Router.Prefix(),
			Separator:           n.Router.Separator(),
			TrailingSlashRoutes: n.Router.TrailingSlashRoutes(),
		}
		for _, e := range n.Router.Table().Entries() {
			r.Table = append(r.Table, tableReport{Pattern: e.Pattern, Handler: e.Handler.String()})
		}
		if pattern, ok := n.Router.InitialDispatch(); ok {
			r.InitialDispatch = pattern
		}
		out.Routers = append(out.Routers, r)
	}

	records, err := journalService.Recent(context.Background(), 200)
	if err != nil {
		return nil, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		out.Dispatches = append(out.Dispatches, records[i])
	}
	return out, nil
}

func selectRouter(file *routefile.File, opts options) error {
	if opts.router == "" {
		if opts.prefix != "" || opts.trailing != "" {
			return fmt.Errorf("-prefix and -trailing require -router")
		}
		return nil
	}
	r, ok := file.Router(opts.router)
	if !ok {
		return fmt.Errorf("router %q not found in %s", opts.router, opts.file)
	}
	if opts.prefix != "" {
		r.Prefix = opts.prefix
	}
	if opts.trailing != "" {
		v, err := strconv.ParseBool(opts.trailing)
		if err != nil {
			return fmt.Errorf("-trailing must be true or false")
		}
		r.TrailingSlashRoutes = v
	}
	file.Routers = []routefile.Router{r}
	return nil
}

func printReport(w io.Writer, rep *report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "location:\t%q\n", rep.Location)
	for _, r := range rep.Routers {
		_, _ = fmt.Fprintf(tw, "\nrouter %s\tprefix=%q separator=%q trailing=%t\n", r.Name, r.Prefix, r.Separator, r.TrailingSlashRoutes)
		for _, e := range r.Table {
			_, _ = fmt.Fprintf(tw, "  %q\t-> %s\n", e.Pattern, e.Handler)
		}
		if r.InitialDispatch != "" {
			_, _ = fmt.Fprintf(tw, "  initial dispatch:\t%q\n", r.InitialDispatch)
		}
	}
	if len(rep.Dispatches) > 0 {
		_, _ = fmt.Fprintln(tw, "\ndispatches:")
		for _, d := range rep.Dispatches {
			status := "no match"
			if d.Matched {
				status = fmt.Sprintf("%s -> %s", d.Pattern, d.Handler)
			}
			_, _ = fmt.Fprintf(tw, "  %q\t%s\n", d.Location, status)
		}
	}
	_ = tw.Flush()
}
