package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/timmy/hakconsole/internal/domain"
	"github.com/timmy/hakconsole/internal/jobview"
	"github.com/timmy/hakconsole/internal/registry"
	"golang.org/x/sync/errgroup"
)

// loadRegistry fetches both plugin lists concurrently.
func loadRegistry(ctx *commandContext) (*registry.Registry, error) {
	g, gctx := errgroup.WithContext(ctx.Ctx)

	var providers, publishers []domain.PluginDescriptor
	g.Go(func() (err error) {
		providers, err = ctx.API.Providers(gctx)
		return err
	})
	g.Go(func() (err error) {
		publishers, err = ctx.API.Publishers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return registry.New(providers, publishers), nil
}

func loadRows(ctx *commandContext) ([]jobview.Row, error) {
	reg, err := loadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	jobs, err := ctx.API.Jobs(ctx.Ctx)
	if err != nil {
		return nil, err
	}
	return ctx.Formatter.Enrich(jobs, reg), nil
}

func runJobs(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	search := fs.String("search", "", "Case-insensitive filter")
	sortBy := fs.String("sort", jobview.SortByCreated, "Column to sort by")
	desc := fs.Bool("desc", false, "Sort descending")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rows, err := loadRows(ctx)
	if err != nil {
		return err
	}
	rows = jobview.FilterRows(rows, *search)
	jobview.SortRows(rows, *sortBy, *desc)
	return writeJobsTable(ctx.Out, rows)
}

func writeJobsTable(out io.Writer, rows []jobview.Row) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UUID\tNAME\tPROVIDER\tPUBLISHER\tSTATE\tCREATED\tCOMPLETED\tDURATION")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.UUID, r.Name, dash(r.ProviderName), dash(r.PublisherName), dash(r.StateLabel),
			dash(r.Created), dash(r.Completed), dash(r.Duration))
	}
	return tw.Flush()
}

func runJob(ctx *commandContext, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: job <uuid> [suffix]")
	}
	jobUUID := args[0]

	if len(args) > 1 {
		text, err := ctx.API.JobText(ctx.Ctx, jobUUID, args[1])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(ctx.Out, text)
		return err
	}

	rows, err := loadRows(ctx)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if r.UUID == jobUUID {
			return writeJobDetail(ctx.Out, r)
		}
	}
	return fmt.Errorf("job %s not found", jobUUID)
}

func writeJobDetail(out io.Writer, r jobview.Row) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "UUID\t%s\n", r.UUID)
	fmt.Fprintf(tw, "Name\t%s\n", r.Name)
	fmt.Fprintf(tw, "Provider\t%s\n", dash(r.ProviderName))
	fmt.Fprintf(tw, "Publisher\t%s\n", dash(r.PublisherName))
	fmt.Fprintf(tw, "State\t%s\n", dash(r.StateLabel))
	fmt.Fprintf(tw, "Created\t%s\n", dash(r.Created))
	fmt.Fprintf(tw, "Started\t%s\n", dash(r.Started))
	fmt.Fprintf(tw, "Completed\t%s\n", dash(r.Completed))
	fmt.Fprintf(tw, "Duration\t%s\n", dash(r.Duration))
	if r.HasConsole() {
		fmt.Fprintf(tw, "Console\thakctl console %s\n", r.UUID)
	}
	return tw.Flush()
}

func runConsole(ctx *commandContext, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: console <uuid>")
	}
	text, err := ctx.API.ConsoleText(ctx.Ctx, args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(ctx.Out, text)
	return err
}

func runSystem(ctx *commandContext, _ []string) error {
	about, err := ctx.API.About(ctx.Ctx)
	if err != nil {
		return err
	}
	reg, err := loadRegistry(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Application\t%s\n", about.Application)
	fmt.Fprintf(tw, "Version\t%s\n", about.Version)
	fmt.Fprintf(tw, "Timestamp\t%s\n", about.Timestamp)
	fmt.Fprintln(tw, "\nKIND\tNAME\tCLASS\tCONSOLE")
	for _, p := range reg.Providers() {
		fmt.Fprintf(tw, "provider\t%s\t%s\t%t\n", p.Name, p.Class, p.Console)
	}
	for _, p := range reg.Publishers() {
		fmt.Fprintf(tw, "publisher\t%s\t%s\t%t\n", p.Name, p.Class, p.Console)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
