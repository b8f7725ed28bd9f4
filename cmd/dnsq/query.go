package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lc/dnsq/internal/board"
	"github.com/lc/dnsq/internal/catalog"
	"github.com/lc/dnsq/internal/dispatch"
	"github.com/lc/dnsq/internal/query"
	"github.com/lc/dnsq/internal/render"
	"github.com/lc/dnsq/internal/validate"
	"github.com/lc/dnsq/pkg/api"
)

func (a *app) queryCommand() *cobra.Command {
	var (
		recordType string
		resolvers  []string
		custom     string
		all        bool
	)

	cmd := &cobra.Command{
		Use:   "query <domain>",
		Short: "Look a domain up against several resolvers",
		Long: `Send one question to every selected resolver at once. A custom
resolver address given with --server is queried first, then the known
resolvers in the order they were given.

Examples:
  dnsq query example.com -r google -r cloudflare
  dnsq query example.com -t TXT -s 9.9.9.9
  dnsq query example.com -t AAAA --all`,
		Example: "dnsq query example.com -t A -r google -r ali",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				resolvers = append(resolvers, catalog.Keys()...)
			}
			form := validate.Form{
				Domain:         args[0],
				CustomResolver: custom,
				RecordType:     recordType,
				Resolvers:      resolvers,
			}

			table := render.NewTable()
			sink := render.Multi{table, render.NewProgress(os.Stderr)}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if _, err := runStandard(ctx, form, a.looker, sink, dispatch.AlertFunc(alert)); err != nil {
				return err
			}

			table.Render(os.Stdout)
			return nil
		},
	}

	cmd.Flags().StringVarP(&recordType, "type", "t", "A", "record type: A, AAAA, CNAME, NS or TXT")
	cmd.Flags().StringArrayVarP(&resolvers, "resolver", "r", nil, "known resolver key, repeatable (see dnsq resolvers)")
	cmd.Flags().StringVarP(&custom, "server", "s", "", "custom resolver IPv4 address")
	cmd.Flags().BoolVar(&all, "all", false, "query every known resolver")
	return cmd
}

func (a *app) dnssecCommand() *cobra.Command {
	var (
		recordType string
		resolver   string
	)

	cmd := &cobra.Command{
		Use:   "dnssec <domain>",
		Short: "DNSSEC lookup against one resolver",
		Long: `Send one question with the DNSSEC OK bit set to a single known
resolver and print every answer, signatures included, one per line:

  <domain> <ttl> <value>`,
		Example: "dnsq dnssec example.com -t A -r cloudflare",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sel query.Selection
			if cmd.Flags().Changed("resolver") {
				sel.Select(resolver)
			}
			form := validate.SecurityForm{
				Domain:     args[0],
				RecordType: recordType,
				Resolver:   sel,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			_, err := runSecurity(ctx, form, a.looker, os.Stdout, dispatch.AlertFunc(alert))
			return err
		},
	}

	cmd.Flags().StringVarP(&recordType, "type", "t", "A", "record type: A, AAAA, CNAME, NS or TXT")
	cmd.Flags().StringVarP(&resolver, "resolver", "r", "", "known resolver key (see dnsq resolvers)")
	return cmd
}

// lookerFunc builds the backend client. It is only called for a valid form.
type lookerFunc func() (dispatch.Looker, error)

// runStandard validates form and dispatches one lookup per target to the
// standard endpoint. An invalid form alerts every failure and returns
// errInvalidForm before any lookup is made.
func runStandard(ctx context.Context, form validate.Form, newLooker lookerFunc, sink render.Sink, alerts dispatch.Alerter) ([]board.Slot, error) {
	if err := alertFailures(validate.Standard(form), alerts); err != nil {
		return nil, err
	}
	looker, err := newLooker()
	if err != nil {
		return nil, err
	}

	d := dispatch.New(looker, api.PathQuery, sink, alerts)
	return d.Run(ctx, dispatch.Submission{
		Domain:     strings.TrimSpace(form.Domain),
		RecordType: strings.ToUpper(strings.TrimSpace(form.RecordType)),
		Targets:    query.Targets(form.CustomResolver, form.Resolvers),
	}), nil
}

// runSecurity is runStandard for the DNSSEC form. Results are appended to
// out below a one-line header.
func runSecurity(ctx context.Context, form validate.SecurityForm, newLooker lookerFunc, out io.Writer, alerts dispatch.Alerter) ([]board.Slot, error) {
	if err := alertFailures(validate.Security(form), alerts); err != nil {
		return nil, err
	}
	looker, err := newLooker()
	if err != nil {
		return nil, err
	}

	domain := strings.TrimSpace(form.Domain)
	recordType := strings.ToUpper(strings.TrimSpace(form.RecordType))
	key, _ := form.Resolver.Get()
	color.New(color.Bold).Fprintf(out, "%s %s @ %s\n", domain, recordType, catalog.LabelOrRaw(key))

	d := dispatch.New(looker, api.PathQueryDNSSEC, render.NewLog(out), alerts)
	return d.Run(ctx, dispatch.Submission{
		Domain:     domain,
		RecordType: recordType,
		Targets:    form.Resolver.Targets(),
	}), nil
}
