package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/catherinevee/mdcagent/internal/app"
	"github.com/catherinevee/mdcagent/internal/cli"
	"github.com/catherinevee/mdcagent/internal/models"
	"github.com/catherinevee/mdcagent/internal/shared/config"
	apperrors "github.com/catherinevee/mdcagent/internal/shared/errors"
	"github.com/catherinevee/mdcagent/internal/shared/logging"
)

const usage = `mdcagent - Microsoft Defender for Cloud recommendations

Usage:
  mdcagent list [flags]       List recommendations
  mdcagent get [flags] <id>   Show one recommendation by assessment name
  mdcagent version            Print the version

Run "mdcagent <command> -h" for command flags.
`

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "list":
		return runList(ctx, args[1:], stdout, stderr)
	case "get":
		return runGet(ctx, args[1:], stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, app.Version)
		return 0
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}

type commonFlags struct {
	configPath   string
	subscription string
	output       string
	jsonOut      bool
	noColor      bool
	verbose      bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&c.subscription, "subscription", "", "Subscription id (defaults to AZURE_SUBSCRIPTION_ID)")
	fs.StringVar(&c.output, "output", "table", "Output format: table or json")
	fs.BoolVar(&c.jsonOut, "json", false, "Shorthand for -output json")
	fs.BoolVar(&c.noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&c.verbose, "v", false, "Log provider calls to stderr")
}

func (c *commonFlags) setup(stdout, stderr io.Writer) (*config.Config, *cli.OutputFormatter, error) {
	format, err := cli.ParseFormat(c.output)
	if err != nil {
		return nil, nil, err
	}
	if c.jsonOut {
		format = cli.FormatJSON
	}

	formatter := cli.NewOutputFormatter(stdout, format)
	if c.noColor {
		formatter.DisableColor()
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, err
	}

	logCfg := cfg.Logging
	logCfg.Format = "console"
	logCfg.Level = "warn"
	if c.verbose {
		logCfg.Level = "debug"
		cfg.Debug = true
	}
	if err := logging.InitWithWriter(logCfg, app.Version, stderr); err != nil {
		return nil, nil, err
	}

	return cfg, formatter, nil
}

func runList(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)

	var severities, statuses stringList
	q := models.NewListQuery()
	fs.Var(&severities, "severity", "Severity filter, repeatable or comma-separated (Critical, High, Medium, Low)")
	fs.Var(&statuses, "status", "Assessment status filter, repeatable (Healthy, Unhealthy, NotApplicable)")
	fs.StringVar(&q.ResourceType, "resource-type", "", "Resource type substring")
	fs.StringVar(&q.ResourceGroup, "resource-group", "", "Resource group name")
	fs.StringVar(&q.AssignmentStatus, "assignment", q.AssignmentStatus, "Assignment status (assigned, unassigned, overdue, all)")
	fs.IntVar(&q.Limit, "limit", q.Limit, "Page size (1-1000)")
	fs.IntVar(&q.Offset, "offset", q.Offset, "Page offset")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, formatter, err := common.setup(stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	q.SubscriptionID = common.subscription
	q.Severity = severities
	q.AssessmentStatus = statuses

	service, err := app.NewService(cfg, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	result, err := service.List(ctx, q)
	if err != nil {
		return reportError(formatter, stderr, err)
	}
	if err := formatter.RecommendationList(result.Response); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runGet(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: get takes exactly one assessment name")
		return 2
	}

	cfg, formatter, err := common.setup(stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	service, err := app.NewService(cfg, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	result, err := service.Get(ctx, common.subscription, fs.Arg(0))
	if err != nil {
		return reportError(formatter, stderr, err)
	}
	if err := formatter.Recommendation(result.Recommendation); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func reportError(formatter *cli.OutputFormatter, stderr io.Writer, err error) int {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Classify(err)
	}
	if writeErr := formatter.AppError(appErr); writeErr != nil {
		fmt.Fprintf(stderr, "Error: %s: %s (%v)\n", appErr.Kind, appErr.Message, writeErr)
	}
	return 1
}
