package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/yourorg/routegen/internal/config"
	"github.com/yourorg/routegen/internal/generator"
	"github.com/yourorg/routegen/internal/logger"
	"github.com/yourorg/routegen/internal/schema"
	"github.com/yourorg/routegen/internal/store"
	"github.com/yourorg/routegen/internal/watcher"
	"github.com/yourorg/routegen/pkg/types"
)

const starterManifest = `modules:
  ./users/dto:
    types:
      UserDto: "{ id: number; email: string; createdAt: Date }"
      CreateUserDto: "{ email: string; password: string }"

routes:
  - path: /api/users
    method: POST
    controller: UsersController.create
    body: CreateUserDto
    response: Promise<UserDto>
  - path: /api/users/:id
    method: GET
    controller: UsersController.get
    params: "{ id: string }"
    response: UserDto
`

type rootOptions struct {
	cfgPath  string
	verbose  bool
	jsonLogs bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		if hint := errors.FlattenHints(err); hint != "" {
			pterm.Info.Println(hint)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "routegen",
		Short:         "Generate a typed route map declaration file from route declarations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "info"
			if cfg, err := config.Load(opts.cfgPath); err == nil {
				level = cfg.Log.Level
			}
			if opts.verbose {
				level = "debug"
			}
			return logger.Initialize(level, opts.jsonLogs)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Cleanup()
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgPath, "config", "", "config file path (default "+config.DefaultPath+")")
	root.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&opts.jsonLogs, "json-logs", false, "emit logs as JSON")

	root.AddCommand(newInitCmd(opts))
	root.AddCommand(newGenerateCmd(opts))
	root.AddCommand(newCheckCmd(opts))
	root.AddCommand(newRoutesCmd(opts))
	root.AddCommand(newHistoryCmd(opts))
	root.AddCommand(newShowCmd(opts))
	root.AddCommand(newDeleteCmd(opts))

	return root
}

func configPath(opts *rootOptions) string {
	if opts.cfgPath != "" {
		return opts.cfgPath
	}
	return config.DefaultPath
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	return config.Load(opts.cfgPath)
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	return store.Open(cfg.Store.Path)
}

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config and a starter route manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := configPath(opts)
			cfg := config.Default()
			if err := writeIfMissing(cmd, cfgFile, func() ([]byte, error) { return cfg.Encode() }); err != nil {
				return err
			}
			return writeIfMissing(cmd, cfg.Input, func() ([]byte, error) { return []byte(starterManifest), nil })
		},
	}
}

func writeIfMissing(cmd *cobra.Command, path string, content func() ([]byte, error)) error {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		fmt.Fprintln(cmd.OutOrStdout(), "exists", path)
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return err
	}
	data, err := content()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "created", path)
	return nil
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var input, output string
	var watch, noHistory bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the route map declaration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if input != "" {
				cfg.Input = input
			}
			if output != "" {
				cfg.Output = output
			}
			if noHistory {
				cfg.Store.Enabled = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var st store.Store
			if cfg.Store.Enabled {
				s, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer s.Close()
				st = s
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := runGenerate(ctx, cmd, cfg, st); err != nil {
				if !watch {
					return err
				}
				pterm.Error.Println(err)
			}
			if !watch {
				return nil
			}

			w, err := watcher.New([]string{cfg.Input, configPath(opts)}, watcher.DefaultDebounce, func(ctx context.Context) error {
				reloaded, err := loadConfig(opts)
				if err != nil {
					return err
				}
				if input != "" {
					reloaded.Input = input
				}
				if output != "" {
					reloaded.Output = output
				}
				reloaded.Store.Enabled = cfg.Store.Enabled
				return runGenerate(ctx, cmd, reloaded, st)
			})
			if err != nil {
				return err
			}
			pterm.Info.Printf("Watching %s for changes (Ctrl+C to stop)\n", cfg.Input)
			return w.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "route manifest path (overrides config)")
	cmd.Flags().StringVar(&output, "output", "", "declaration file path (overrides config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "regenerate when the manifest or config changes")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the run")
	return cmd
}

func runGenerate(ctx context.Context, cmd *cobra.Command, cfg *config.Config, st store.Store) error {
	doc, err := schema.Load(cfg.Input)
	if err != nil {
		return err
	}
	res, err := generator.Generate(ctx, doc, cfg, st, func(stage string) {
		logger.Debugw("generate", "stage", stage)
	})
	if err != nil {
		return err
	}
	if res.Changed {
		pterm.Success.Printf("Wrote %s (%d routes, %d paths)\n", res.Path, res.Registry.Len(), len(res.Registry.Paths()))
	} else {
		pterm.Info.Printf("%s is up to date\n", res.Path)
	}
	for _, key := range res.Registry.Duplicates() {
		pterm.Warning.Printf("Duplicate route %s\n", key)
	}
	return nil
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fail when the declaration file is out of date",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			doc, err := schema.Load(cfg.Input)
			if err != nil {
				return err
			}
			if _, err := generator.Check(cmd.Context(), doc, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is up to date\n", cfg.Output)
			return nil
		},
	}
}

func newRoutesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the resolved route table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			doc, err := schema.Load(cfg.Input)
			if err != nil {
				return err
			}
			out, err := generator.Render(cmd.Context(), doc, cfg, nil)
			if err != nil {
				return err
			}
			data := pterm.TableData{{"Method", "Path", "Body", "Query", "Params", "Response"}}
			for _, e := range out.Registry.All() {
				data = append(data, []string{e.Method, e.Path, dash(e.Body), dash(e.Query), dash(e.Params), dash(e.Response)})
			}
			return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render()
		},
	}
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded generation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()
			runs, err := s.ListRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}
			data := pterm.TableData{{"Run", "Status", "Routes", "Paths", "Duration", "Created"}}
			for _, r := range runs {
				data = append(data, []string{
					r.ID, r.Status, strconv.Itoa(r.RouteCount), strconv.Itoa(r.PathCount),
					r.Duration.String(), r.CreatedAt.Local().Format(time.DateTime),
				})
			}
			return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs (0 for all)")
	return cmd
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a recorded run and its routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()
			run, err := s.GetRun(runID)
			if err != nil {
				return err
			}
			routes, err := s.GetRoutes(runID)
			if err != nil {
				return err
			}
			printRun(cmd, run)
			data := pterm.TableData{{"#", "Method", "Path", "Controller", "Response"}}
			for _, r := range routes {
				data = append(data, []string{strconv.Itoa(r.Seq), r.Method, r.Path, dash(r.Controller), r.Response})
			}
			return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render()
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

func printRun(cmd *cobra.Command, run *types.Run) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "run:      %s\n", run.ID)
	fmt.Fprintf(w, "status:   %s\n", run.Status)
	fmt.Fprintf(w, "input:    %s\n", run.Input)
	fmt.Fprintf(w, "output:   %s\n", run.Output)
	fmt.Fprintf(w, "hash:     %s\n", run.ContentHash)
	fmt.Fprintf(w, "duration: %s\n", run.Duration)
	if run.ErrorMsg != "" {
		fmt.Fprintf(w, "error:    %s\n", run.ErrorMsg)
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a recorded run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.DeleteRun(runID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", runID)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
