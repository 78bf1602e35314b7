package cli

import (
	"flag"
	"fmt"
	"strings"
)

const defaultConfigPath = "./data/config/pathref.toml"

type cliOptions struct {
	configPath string
	roots      string
	libraries  bool
	refs       string
	once       bool
	ui         bool
	serve      bool
	history    bool
	since      string
	historyTSV string
	limit      int
	verbose    bool
	version    bool
	args       []string
}

func parseOptions(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("pathref", flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.StringVar(&opts.roots, "roots", "", "Print the resolution roots of a module and exit")
	fs.BoolVar(&opts.libraries, "libraries", false, "Include library roots in --roots output")
	fs.StringVar(&opts.refs, "refs", "", "Print the path references found in a file and exit")
	fs.BoolVar(&opts.once, "once", false, "Run single scan and exit")
	fs.BoolVar(&opts.ui, "ui", false, "Enable terminal UI mode")
	fs.BoolVar(&opts.serve, "serve", false, "Serve the HTTP query API even when observability is disabled")
	fs.BoolVar(&opts.history, "history", false, "Print recorded scan history (requires db.enabled)")
	fs.StringVar(&opts.since, "since", "", "Include scans at/after this timestamp (RFC3339 or YYYY-MM-DD)")
	fs.StringVar(&opts.historyTSV, "history-tsv", "", "Write scan history TSV to this path (requires --history)")
	fs.IntVar(&opts.limit, "limit", 20, "Maximum number of diagnostics in the summary (0 = all)")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}

// validate rejects flag combinations that select more than one mode.
func (o cliOptions) validate() error {
	modes := 0
	for _, on := range []bool{strings.TrimSpace(o.roots) != "", strings.TrimSpace(o.refs) != "", o.ui} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		return fmt.Errorf("--roots, --refs and --ui cannot be combined")
	}
	if o.libraries && strings.TrimSpace(o.roots) == "" {
		return fmt.Errorf("--libraries requires --roots")
	}
	if (o.since != "" || o.historyTSV != "") && !o.history {
		return fmt.Errorf("--since/--history-tsv require --history")
	}
	if o.limit < 0 {
		return fmt.Errorf("--limit must be >= 0, got %d", o.limit)
	}
	if len(o.args) > 1 {
		return fmt.Errorf("at most one project root argument is accepted, got %d", len(o.args))
	}
	return nil
}

// singleShot reports whether the run ends after the initial scan.
func (o cliOptions) singleShot() bool {
	return o.once || o.roots != "" || o.refs != "" || o.history
}
