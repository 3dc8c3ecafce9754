package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/apiprobe/internal/bridge"
	"github.com/kingrea/apiprobe/internal/config"
	"github.com/kingrea/apiprobe/internal/schedule"
	"github.com/kingrea/apiprobe/internal/tui"
)

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:          "apiprobe",
		Short:        "apiprobe - browse, resolve and send API test commands",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.projectDir, "project", "", "project directory holding .apiprobe (defaults to the working directory)")
	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "catalog definition file or directory (overrides config)")
	root.AddCommand(
		newListCmd(opts),
		newShowCmd(opts),
		newResolveCmd(opts),
		newSendCmd(opts),
		newServeCmd(opts),
		newScheduleCmd(opts),
		newTUICmd(opts),
	)
	return root
}

// withProject loads the project for the duration of fn.
func withProject(opts *globalOptions, fn func(*project) error) error {
	p, err := loadProject(opts)
	if err != nil {
		return err
	}
	defer p.Close()
	return fn(p)
}

func newListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories and their APIs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(opts, func(p *project) error {
				out := cmd.OutOrStdout()
				for _, category := range p.catalog.ListCategories() {
					fmt.Fprintf(out, "%s (%s)\n", category.Key, category.Label)
					w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
					for _, entry := range category.APIs {
						fmt.Fprintf(w, "  %s\t%s\n", entry.Name, entry.Description)
					}
					w.Flush()
				}
				return nil
			})
		},
	}
}

func newShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <category> <api>",
		Short: "Show an API's parameters without resolving them",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(opts, func(p *project) error {
				entry, err := p.catalog.FindAPI(args[0], args[1])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s.%s\n", args[0], entry.Name)
				if entry.Description != "" {
					fmt.Fprintf(out, "%s\n", entry.Description)
				}
				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, param := range entry.Params {
					kind := "static"
					if param.IsDynamic() {
						kind = "dynamic"
					}
					fmt.Fprintf(w, "  %s\t%s\t%s\n", param.Name, kind, param.Describe())
				}
				return w.Flush()
			})
		},
	}
}

func newResolveCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <category> <api>",
		Short: "Resolve an API's parameters and print the payload",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(opts, func(p *project) error {
				_, payload, err := p.invoker(false).Preview(args[0], args[1])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), payload)
			})
		},
	}
}

func newSendCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <category> <api>",
		Short: "Resolve an API and deliver it to the target surface",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(opts, func(p *project) error {
				result, err := p.invoker(true).Invoke(commandContext(cmd), args[0], args[1])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result.Receipt)
			})
		},
	}
	cmd.Flags().StringVar(&opts.target, "target", "", "base URL of the receiving surface (overrides config)")
	return cmd
}

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the receiving bridge server and print accepted envelopes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(opts, func(p *project) error {
				ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return serve(ctx, p, cmd.OutOrStdout())
			})
		},
	}
}

func serve(ctx context.Context, p *project, out io.Writer) error {
	router := bridge.NewRouter(bridge.RouterWithLogger(p.logger))
	sub := router.Subscribe(bridge.AnyCategory)
	defer sub.Close()
	server := bridge.NewServer(p.settings, bridge.WithProcessor(router), bridge.WithLogger(p.logger))
	if err := server.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "listening on %s\n", server.BaseURL())
	defer server.Shutdown(context.Background())
	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-sub.Envelopes:
			if !ok {
				return nil
			}
			params, _ := json.Marshal(env.Params)
			fmt.Fprintf(out, "%s %s.%s %s\n", env.MessageID, env.Category, env.API, params)
		}
	}
}

func newScheduleCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Fire the configured schedules until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(opts, func(p *project) error {
				runner, err := buildRunner(p)
				if err != nil {
					return err
				}
				if len(runner.Jobs()) == 0 {
					return fmt.Errorf("no schedules configured in %s", p.cfg.ProjectConfigPath())
				}
				ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				runner.Start(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "running %d schedules against %s\n", len(runner.Jobs()), p.settings.TargetURL())
				<-ctx.Done()
				runner.Stop()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.target, "target", "", "base URL of the receiving surface (overrides config)")
	cmd.AddCommand(newScheduleAddCmd(opts), newScheduleListCmd(opts))
	return cmd
}

func buildRunner(p *project) (*schedule.Runner, error) {
	runner := schedule.New(p.catalog, p.invoker(true), schedule.WithLogger(p.logger))
	for _, cfg := range p.cfg.Schedules() {
		if err := runner.Add(cfg); err != nil {
			return nil, err
		}
	}
	return runner, nil
}

func newScheduleAddCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <spec> <category> <api>",
		Short: "Validate and persist a new schedule",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(opts, func(p *project) error {
				entry := config.ScheduleConfig{Name: args[0], Spec: args[1], Category: args[2], API: args[3]}
				if err := schedule.New(p.catalog, nil).Validate(entry); err != nil {
					return err
				}
				if err := p.cfg.AddSchedule(entry); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added schedule %s (%s) for %s.%s\n", entry.Name, entry.Spec, entry.Category, entry.API)
				return nil
			})
		},
	}
}

func newScheduleListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(opts, func(p *project) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, s := range p.cfg.Schedules() {
					fmt.Fprintf(w, "%s\t%s\t%s.%s\n", s.Name, s.Spec, s.Category, s.API)
				}
				return w.Flush()
			})
		},
	}
}

func newTUICmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(opts, func(p *project) error {
				app := tui.NewApp(p.invoker(true), tui.WithLogbook(p.journal))
				_, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
				return err
			})
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", data)
	return err
}
