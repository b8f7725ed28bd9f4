package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/lc/dnsq/internal/catalog"
	"github.com/lc/dnsq/internal/config"
	"github.com/lc/dnsq/internal/filesys"
	"github.com/lc/dnsq/pkg/api"
)

func (a *app) resolversCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "resolvers",
		Short:   "List the known resolvers",
		Example: "dnsq resolvers",
		Args:    cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Key", "Name", "Address"})
			table.SetHeaderColor(
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
			)
			table.SetBorder(false)
			table.SetColumnColor(
				tablewriter.Colors{tablewriter.FgGreenColor},
				tablewriter.Colors{tablewriter.FgHiWhiteColor},
				tablewriter.Colors{tablewriter.FgYellowColor},
			)
			for _, e := range catalog.Entries() {
				table.Append([]string{e.Key, e.Label, e.Address})
			}
			table.Render()
		},
	}
}

func (a *app) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show dnsqd status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			st, err := cli.Status(ctx)
			if err != nil {
				return err
			}
			color.New(color.Bold).Println("DNSQD STATUS:")
			fmt.Printf("endpoint: %s\n", a.cfg.Client.Endpoint)
			fmt.Printf("version:  %s (%s)\n", st.Version, st.Commit)
			fmt.Printf("uptime:   %s\n", st.Uptime.Round(time.Second))
			fmt.Printf("lookups:  %d\n", st.Lookups)
			return nil
		},
	}
}

func (a *app) tokenCommand() *cobra.Command {
	var (
		ttl     time.Duration
		subject string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generate a bearer token for the lookup API",
		Long: `Sign a bearer token with server.jwt_secret from the config file.
Put it in client.token to authenticate the CLI against a dnsqd that
requires tokens.`,
		Example: "dnsq token --ttl 720h",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			secret := a.cfg.Server.JWTSecret
			if secret == "" {
				return errors.New("server.jwt_secret is not set")
			}
			token, err := api.NewToken([]byte(secret), subject, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	cmd.Flags().StringVar(&subject, "subject", "dnsq", "token subject")
	return cmd
}

func (a *app) configCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Args:  cobra.NoArgs,
		// the file may not exist or parse yet
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if a.configPath != "" {
				a.provider = config.NewWithPath(filesys.OS(), a.configPath)
			} else {
				a.provider = config.New()
			}
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			path := a.provider.Path()
			if _, err := filesys.OS().Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			if err := a.provider.Save(config.Default()); err != nil {
				return err
			}
			color.New(color.FgGreen, color.Bold).Print("✓ Wrote ")
			color.New(color.FgHiGreen, color.Bold).Println(path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
