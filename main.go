package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chazu/coping/pkg/config"
)

// ErrFailed is returned by a command whose scene or run produced errors.
// The errors themselves have already been printed.
var ErrFailed = errors.New("coping: failed")

// cli holds the flag values and shared state of one invocation.
type cli struct {
	verbose    bool
	configPath string
	selectName string
	reportPath string
	meshPath   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "coping",
		Short: "Classify the faces of a body and cope it against its neighbours",
		Long: `coping loads a Lisp scene into an in-memory BRep design, picks a body or
component, classifies every face of the picked body, splits its inward faces
by the outward faces of neighbouring components and presses the smallest
interior faces inward.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger, err = cfg.Logging.Logger(c.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config file")

	runCmd := &cobra.Command{
		Use:   "run <scene.lisp>",
		Short: "Split and press-pull the selected body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.evaluate(cmd, args[0], false)
		},
	}
	classifyCmd := &cobra.Command{
		Use:   "classify <scene.lisp>",
		Short: "Print the face classes and candidate sets without modifying the design",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.evaluate(cmd, args[0], true)
		},
	}
	for _, cmd := range []*cobra.Command{runCmd, classifyCmd} {
		cmd.Flags().StringVarP(&c.selectName, "select", "s", "", "entity to pick: occurrence, body or occurrence/body (default: the scene target)")
		cmd.Flags().StringVar(&c.reportPath, "report", "", "write the run report as JSON")
		cmd.Flags().StringVar(&c.meshPath, "mesh-out", "", "write face and body meshes as JSON")
	}

	checkCmd := &cobra.Command{
		Use:   "check <scene.lisp>",
		Short: "Load and validate a scene",
		Args:  cobra.ExactArgs(1),
		RunE:  c.check,
	}

	root.AddCommand(runCmd, classifyCmd, checkCmd)
	return root
}

func (c *cli) app() (*App, error) {
	return NewApp(c.cfg, c.logger)
}

func (c *cli) evaluate(cmd *cobra.Command, path string, dry bool) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read scene: %w", err)
	}
	app, err := c.app()
	if err != nil {
		return err
	}

	result := app.Evaluate(cmd.Context(), string(source), Request{
		Select: c.selectName,
		DryRun: dry,
		Meshes: c.meshPath != "",
	})

	out := cmd.OutOrStdout()
	printFindings(out, result)
	if rep := result.Report; rep != nil {
		printReport(out, result, dry)
		if c.reportPath != "" {
			if err := writeJSON(c.reportPath, rep); err != nil {
				return err
			}
		}
	}
	if c.meshPath != "" && len(result.Meshes) > 0 {
		meshes := struct {
			Faces  []MeshData `json:"faces"`
			Bodies []MeshData `json:"bodies"`
		}{result.Meshes, result.Bodies}
		if err := writeJSON(c.meshPath, meshes); err != nil {
			return err
		}
	}
	if len(result.Errors) > 0 {
		return ErrFailed
	}
	return nil
}

func (c *cli) check(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read scene: %w", err)
	}
	app, err := c.app()
	if err != nil {
		return err
	}
	result := app.Check(string(source))
	out := cmd.OutOrStdout()
	printFindings(out, result)
	if len(result.Errors) > 0 {
		return ErrFailed
	}
	fmt.Fprintln(out, "ok")
	return nil
}

func printFindings(w io.Writer, result EvalResult) {
	for _, e := range result.Errors {
		if e.Line > 0 {
			fmt.Fprintf(w, "error: line %d: %s\n", e.Line, e.Message)
			continue
		}
		fmt.Fprintf(w, "error: %s\n", e.Message)
	}
	for _, e := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", e.Message)
	}
}

func printReport(w io.Writer, result EvalResult, dry bool) {
	rep := result.Report
	if rep.Body == "" {
		return
	}
	fmt.Fprintf(w, "body %s: %d faces\n", rep.Body, len(rep.Faces))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FACE\tCLASS\tORIENTATION\tAREA")
	for _, row := range rep.Faces {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.3f\n", row.ID, row.Class, row.Orientation, row.Area)
	}
	tw.Flush()

	fmt.Fprintf(w, "split targets: %v\n", rep.Targets)
	fmt.Fprintf(w, "split tools:   %v\n", rep.Tools)
	fmt.Fprintf(w, "interior:      %v\n", rep.Interior)
	fmt.Fprintf(w, "press-pull:    %v (area %.3f, distance %g)\n", rep.PressPull, rep.CandidateArea, rep.Distance)
	if !dry {
		fmt.Fprintf(w, "split requested: %t, press-pull requested: %t\n", rep.Split, rep.PressPulled)
	}
	for _, n := range rep.Notices {
		fmt.Fprintf(w, "note: %s\n", n)
	}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		stop()
		os.Exit(1)
	}
}
