// Command `dnsq` looks a domain up against several public resolvers at
// once through the dnsqd lookup API.
//
// Usage:
//
//	dnsq query <domain> -t <type> -r <key>... [-s <ip>]  - Standard lookup, one row per resolver
//	dnsq dnssec <domain> -t <type> -r <key>              - DNSSEC lookup against one resolver
//	dnsq resolvers                                       - List the known resolvers
//	dnsq status                                          - Show daemon status
//
// Examples:
//
//	dnsq query example.com -r google -r cloudflare     - A records from two resolvers
//	dnsq query example.com -t TXT -s 9.9.9.9 --all     - every known resolver plus 9.9.9.9
//	dnsq dnssec example.com -t A -r cloudflare         - answers with their RRSIGs
//
// Results appear as they arrive; the table is printed in resolver order
// once every lookup has finished.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lc/dnsq/internal/buildinfo"
	"github.com/lc/dnsq/internal/config"
	"github.com/lc/dnsq/internal/dispatch"
	"github.com/lc/dnsq/internal/filesys"
	"github.com/lc/dnsq/internal/log"
	"github.com/lc/dnsq/internal/validate"
	"github.com/lc/dnsq/pkg/client"
)

// errInvalidForm is returned after validation alerts have been printed.
var errInvalidForm = errors.New("invalid input")

type app struct {
	configPath string
	endpoint   string
	logLevel   string
	noColor    bool

	provider config.Provider
	cfg      *config.Config
}

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:   "dnsq",
		Short: "Multi-resolver DNS lookup CLI",
		Long: `dnsq sends the same DNS question to several resolvers at once and
shows every answer side by side. Lookups are performed by the dnsqd daemon.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/"+config.DefaultConfigPath+")")
	root.PersistentFlags().StringVar(&a.endpoint, "endpoint", "", "lookup API endpoint, http(s)://host:port or unix:/path")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	// ---- version command ----
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("version: %s\n", buildinfo.Version)
			fmt.Printf("commit: %s\n", buildinfo.Commit)
		},
	}

	root.AddCommand(
		a.queryCommand(),
		a.dnssecCommand(),
		a.resolversCommand(),
		a.statusCommand(),
		a.tokenCommand(),
		a.configCommand(),
		versionCmd,
	)

	err := root.Execute()
	log.Sync()
	if err != nil {
		if !errors.Is(err, errInvalidForm) {
			color.New(color.FgHiRed, color.Bold).Fprint(os.Stderr, "error: ")
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func (a *app) init() error {
	if a.noColor {
		color.NoColor = true
	}
	if a.logLevel != "" {
		if err := log.SetLevel(a.logLevel); err != nil {
			return err
		}
	}

	if a.configPath != "" {
		a.provider = config.NewWithPath(filesys.OS(), a.configPath)
	} else {
		a.provider = config.New()
	}
	cfg, err := a.provider.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if a.endpoint != "" {
		cfg.Client.Endpoint = a.endpoint
	}
	a.cfg = cfg
	log.Debug("config loaded", "path", a.provider.Path(), "endpoint", cfg.Client.Endpoint)
	return nil
}

func (a *app) client() (*client.Client, error) {
	return client.New(a.cfg.Client.Endpoint,
		client.WithTimeout(a.cfg.Client.Timeout),
		client.WithToken(a.cfg.Client.Token),
	)
}

func (a *app) looker() (dispatch.Looker, error) {
	cli, err := a.client()
	if err != nil {
		return nil, err
	}
	return cli, nil
}

// alert prints msg on stderr, outside the results.
func alert(msg string) {
	color.New(color.FgHiRed, color.Bold).Fprint(os.Stderr, "! ")
	color.New(color.FgYellow).Fprintln(os.Stderr, msg)
}

// alertFailures raises one alert per validation failure and returns
// errInvalidForm, or nil when err is nil.
func alertFailures(err error, alerts dispatch.Alerter) error {
	if err == nil {
		return nil
	}
	for _, f := range validate.Failures(err) {
		alerts.Alert(f.Error())
	}
	return errInvalidForm
}
