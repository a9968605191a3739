package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"saku/internal/backend"
	"saku/internal/cli"
	"saku/internal/config"
	"saku/internal/core"
	"saku/internal/log"
	"saku/internal/storage"
	"saku/internal/worker"
)

var commands = []subcommands.Command{
	&balanceCmd{},
	&transferCmd{},
	&fundCmd{},
	&budgetStatusCmd{},
	&reportCmd{},
}

// adminLogger writes to stderr so command output stays clean.
func adminLogger() *log.Logger {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	return log.New(log.Config{
		Level:     log.ParseLevel(level),
		Format:    os.Getenv("LOG_FORMAT"),
		Component: log.ComponentApp,
		Output:    os.Stderr,
	})
}

func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withRuntime opens the configured backend, runs fn and maps its error to
// an exit status.
func withRuntime(ctx context.Context, fn func(ctx context.Context, rt *cli.Runtime, cfg *config.Config) error) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	rt, err := cli.OpenRuntime(ctx, cfg, adminLogger(), backend.RoleAdmin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rt.Close()

	if err := fn(ctx, rt, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// ownerFlag is the -owner flag shared by commands that act for one owner.
type ownerFlag struct {
	owner string
}

func (o *ownerFlag) register(f *flag.FlagSet) {
	f.StringVar(&o.owner, "owner", os.Getenv("SAKU_OWNER"), "Owner id (defaults to $SAKU_OWNER)")
}

func (o *ownerFlag) check() bool {
	if o.owner == "" {
		fmt.Fprintln(os.Stderr, "Error: -owner is required.")
		return false
	}
	return true
}

// periodFlag parses -period YYYY-MM, defaulting to the current month.
func periodFlag(s string) (core.Period, error) {
	if s == "" {
		return core.PeriodOf(time.Now()), nil
	}
	return core.ParsePeriod(s)
}

type balanceCmd struct {
	ownerFlag
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "print the total and per-pocket balances" }
func (*balanceCmd) Usage() string {
	return `saku-admin balance -owner <id>

  Prints the owner's total balance followed by the balance of every pocket.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *balanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.check() {
		return subcommands.ExitUsageError
	}
	return withRuntime(ctx, func(ctx context.Context, rt *cli.Runtime, cfg *config.Config) error {
		total, err := rt.Engine.Reports.TotalBalance(ctx, c.owner)
		if err != nil {
			return err
		}
		lines, err := rt.Engine.Reports.PocketBalances(ctx, c.owner)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
		for _, l := range lines {
			fmt.Fprintf(w, "%s\t%s\t\n", l.Pocket.Name, l.Balance.Format(cfg.Currency))
		}
		fmt.Fprintf(w, "Total\t%s\t\n", total.Format(cfg.Currency))
		return w.Flush()
	})
}

type transferCmd struct {
	ownerFlag
	from, to int64
	amount   string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move money between two pockets" }
func (*transferCmd) Usage() string {
	return `saku-admin transfer -owner <id> -from <pocket> -to <pocket> -amount <amount>

  Records a correlated outflow/inflow pair and prints the correlation id.
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.Int64Var(&c.from, "from", 0, "Source pocket id")
	f.Int64Var(&c.to, "to", 0, "Destination pocket id")
	f.StringVar(&c.amount, "amount", "", "Amount in major units, e.g. 50000 or 12.50")
}

func (c *transferCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.check() {
		return subcommands.ExitUsageError
	}
	return withRuntime(ctx, func(ctx context.Context, rt *cli.Runtime, cfg *config.Config) error {
		amount, err := core.ParseAmount(c.amount, cfg.Currency)
		if err != nil {
			return err
		}
		tr, err := rt.Engine.Transfers.TransferBetweenPockets(ctx, c.owner, c.from, c.to, amount)
		if err != nil {
			return err
		}
		fmt.Printf("Transferred %s (%s -> entries %d, %d)\ncorrelation id: %s\n",
			tr.Amount.Format(cfg.Currency), tr.Outflow.Description, tr.Outflow.ID, tr.Inflow.ID, tr.CorrelationID)
		return nil
	})
}

type fundCmd struct {
	ownerFlag
	goal, pocket int64
	amount       string
}

func (*fundCmd) Name() string     { return "fund" }
func (*fundCmd) Synopsis() string { return "move money from a pocket into a savings goal" }
func (*fundCmd) Usage() string {
	return `saku-admin fund -owner <id> -goal <goal> -pocket <pocket> -amount <amount>

  Records the outflow from the pocket and adds the amount to the goal.
`
}

func (c *fundCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.Int64Var(&c.goal, "goal", 0, "Goal id")
	f.Int64Var(&c.pocket, "pocket", 0, "Source pocket id")
	f.StringVar(&c.amount, "amount", "", "Amount in major units")
}

func (c *fundCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.check() {
		return subcommands.ExitUsageError
	}
	return withRuntime(ctx, func(ctx context.Context, rt *cli.Runtime, cfg *config.Config) error {
		amount, err := core.ParseAmount(c.amount, cfg.Currency)
		if err != nil {
			return err
		}
		f, err := rt.Engine.Transfers.FundGoal(ctx, c.owner, c.goal, c.pocket, amount)
		if err != nil {
			return err
		}
		p := core.EvaluateGoal(f.Goal)
		fmt.Printf("%s: %s of %s (%d%%)\n", f.Goal.Name,
			f.Goal.Current.Format(cfg.Currency), f.Goal.Target.Format(cfg.Currency), p.Whole())
		return nil
	})
}

type budgetStatusCmd struct {
	ownerFlag
	period string
}

func (*budgetStatusCmd) Name() string     { return "budget-status" }
func (*budgetStatusCmd) Synopsis() string { return "show spend against each budget for a month" }
func (*budgetStatusCmd) Usage() string {
	return `saku-admin budget-status -owner <id> [-period YYYY-MM]
`
}

func (c *budgetStatusCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.StringVar(&c.period, "period", "", "Month as YYYY-MM (defaults to the current month)")
}

func (c *budgetStatusCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.check() {
		return subcommands.ExitUsageError
	}
	period, err := periodFlag(c.period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return withRuntime(ctx, func(ctx context.Context, rt *cli.Runtime, cfg *config.Config) error {
		lines, err := rt.Engine.Budgets.BudgetStatus(ctx, c.owner, period)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			fmt.Printf("No budgets for %s\n", period)
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tSPENT\tCAP\tUSED\tSTATUS")
		for _, l := range lines {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s%%\t%s\n", l.CategoryName,
				l.Spent.Format(cfg.Currency), l.Budget.Amount.Format(cfg.Currency),
				l.Percentage.StringFixed(1), l.Status)
		}
		return w.Flush()
	})
}

type reportCmd struct {
	ownerFlag
	period string
	raw    bool
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "render a monthly balance, budget and goal report" }
func (*reportCmd) Usage() string {
	return `saku-admin report -owner <id> [-period YYYY-MM] [-raw]

  Renders the month's summary, pocket balances, budgets and goals as
  markdown for the terminal. -raw prints the markdown source.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.StringVar(&c.period, "period", "", "Month as YYYY-MM (defaults to the current month)")
	f.BoolVar(&c.raw, "raw", false, "Print markdown without terminal rendering")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.check() {
		return subcommands.ExitUsageError
	}
	period, err := periodFlag(c.period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return withRuntime(ctx, func(ctx context.Context, rt *cli.Runtime, cfg *config.Config) error {
		d, err := rt.Engine.Reports.Dashboard(ctx, c.owner, period)
		if err != nil {
			return err
		}
		r, err := rt.Engine.Reports.Report(ctx, c.owner, period.Range())
		if err != nil {
			return err
		}
		md := reportMarkdown(d, r, cfg.Currency)
		if c.raw {
			fmt.Print(md)
			return nil
		}
		return printMarkdown(md)
	})
}

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply the embedded schema migrations" }
func (*migrateCmd) Usage() string {
	return `saku-admin migrate

  Applies pending migrations to the database selected by DATA_BACKEND.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	switch backend.BackendType(cfg.DataBackend) {
	case backend.SQLiteBackend:
		err = storage.MigrateSQLite(cfg.SQLiteDBPath)
	case backend.PostgresBackend:
		err = storage.RunMigrations(storage.DialectPostgres, cfg.DatabaseURL)
	default:
		fmt.Println("memory backend has no schema")
		return subcommands.ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s schema is up to date\n", cfg.DataBackend)
	return subcommands.ExitSuccess
}

type backfillCmd struct {
	ownerFlag
	from, to string
}

func (*backfillCmd) Name() string     { return "mirror-backfill" }
func (*backfillCmd) Synopsis() string { return "write existing entries to the spreadsheet mirror" }
func (*backfillCmd) Usage() string {
	return `saku-admin mirror-backfill -owner <id> [-from YYYY-MM-DD] [-to YYYY-MM-DD]

  Appends every matching entry to the configured Google Sheet. Use it to
  seed a new sheet or to recover from lost journal events.
`
}

func (c *backfillCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.StringVar(&c.from, "from", "", "First day to include")
	f.StringVar(&c.to, "to", "", "Last day to include")
}

func (c *backfillCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.check() {
		return subcommands.ExitUsageError
	}
	filter := core.EntryFilter{Owner: c.owner, Order: core.Ascending}
	if c.from != "" {
		t, err := time.Parse("2006-01-02", c.from)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -from: %v\n", err)
			return subcommands.ExitUsageError
		}
		filter.From = t
	}
	if c.to != "" {
		t, err := time.Parse("2006-01-02", c.to)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -to: %v\n", err)
			return subcommands.ExitUsageError
		}
		filter.To = t.AddDate(0, 0, 1)
	}
	return withRuntime(ctx, func(ctx context.Context, rt *cli.Runtime, _ *config.Config) error {
		if rt.Backend.Mirror == nil {
			return errors.New("no spreadsheet configured (set GOOGLE_SPREADSHEET_ID)")
		}
		n, err := worker.NewMirrorWorker(rt.Backend.Store, rt.Backend.Mirror, adminLogger()).Backfill(ctx, filter)
		if err != nil {
			return err
		}
		fmt.Printf("Mirrored %d entries\n", n)
		return nil
	})
}
