package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sitemanager/core-go/internal/httpapi"
	"sitemanager/core-go/internal/render"
	"sitemanager/core-go/internal/tree"
)

type renderFlags struct {
	treePath     string
	devicesPath  string
	baselinePath string
	asJSON       bool
	noColor      bool
}

func newRenderCmd(flags *globalFlags) *cobra.Command {
	rf := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Process tree and device files and print the result",
		Long: `render runs the reconciliation pipeline on local files. A missing --tree or
--devices flag stands for an absent input. Output is a colored tree, or JSON
with --json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, flags, rf)
		},
	}

	cmd.Flags().StringVar(&rf.treePath, "tree", "", "path to a user tree JSON file (nested or flat)")
	cmd.Flags().StringVar(&rf.devicesPath, "devices", "", "path to a devices JSON file")
	cmd.Flags().StringVar(&rf.baselinePath, "baseline", "", "path to a baseline tree YAML file (default: built-in tree)")
	cmd.Flags().BoolVar(&rf.asJSON, "json", false, "print JSON instead of a tree")
	cmd.Flags().BoolVar(&rf.noColor, "no-color", false, "disable colored output")
	return cmd
}

func readOptional(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func runRender(cmd *cobra.Command, flags *globalFlags, rf *renderFlags) error {
	level := flags.logLevel
	if level == "" {
		level = "warn"
	}
	logger := httpapi.NewLoggerTo(cmd.ErrOrStderr(), level)

	treeJSON, err := readOptional(rf.treePath)
	if err != nil {
		return fmt.Errorf("read tree: %w", err)
	}
	devicesJSON, err := readOptional(rf.devicesPath)
	if err != nil {
		return fmt.Errorf("read devices: %w", err)
	}
	baseline, err := loadBaseline(rf.baselinePath)
	if err != nil {
		return err
	}

	proc := tree.NewProcessor(logger, baseline, nil)
	nodes, err := proc.Process(treeJSON, devicesJSON)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	out := cmd.OutOrStdout()
	if rf.asJSON {
		return render.JSON(out, nodes)
	}
	return render.Text(out, nodes, render.Options{NoColor: rf.noColor || color.NoColor})
}
