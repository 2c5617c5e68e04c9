package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/taskimport/internal/application"
	"github.com/JonMunkholm/taskimport/internal/core"
	"github.com/JonMunkholm/taskimport/internal/source"
	"github.com/spf13/cobra"
)

func importCmd(c *cli) *cobra.Command {
	var (
		dryRun bool
		dir    string
		quiet  bool
	)

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a task export CSV",
		Long: `Import a task export CSV into the configured store.

Without a file argument, the .csv files in --dir are listed and one is
chosen interactively. Folders and projects are matched by name, so running
the same export twice reuses them; tasks are always created.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var picker source.Picker = source.PromptPicker{Dir: dir, In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()}
			if len(args) == 1 {
				picker = source.StaticPicker{Path: args[0]}
			}

			path, err := picker.PickSingleFile(cmd.Context(), source.CSVTypes)
			if err != nil {
				return err
			}

			text, err := source.FileReader{MaxSize: c.cfg.Import.MaxFileSize}.ReadFileContents(cmd.Context(), path)
			if err != nil {
				return err
			}

			app, err := application.New(cmd.Context(), c.cfg, application.Options{DryRun: dryRun})
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Service.ImportText(cmd.Context(), filepath.Base(path), text)
			if err != nil {
				return err
			}

			printRun(cmd.OutOrStdout(), result, !quiet)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "import into an in-memory copy of the store and report what would be created")
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory to list when no file is given")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "omit the skipped-row listing")
	return cmd
}

// printRun writes the run summary and, when failures is set, each skipped row.
func printRun(w io.Writer, r *core.RunResult, failures bool) {
	title := "Import complete"
	if r.DryRun {
		title = "Dry run complete (nothing was written)"
	}
	fmt.Fprintf(w, "%s: %s\n", title, r.FileName)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  Rows:\t%d\n", r.Stats.TotalRows)
	fmt.Fprintf(tw, "  Created tasks:\t%d\n", r.Stats.CreatedTasks)
	fmt.Fprintf(tw, "  Skipped rows:\t%d\n", r.Stats.SkippedTasks)
	if len(r.CreatedFolders) > 0 {
		fmt.Fprintf(tw, "  New folders:\t%s\n", strings.Join(r.CreatedFolders, ", "))
	}
	if len(r.CreatedProjects) > 0 {
		fmt.Fprintf(tw, "  New projects:\t%s\n", strings.Join(r.CreatedProjects, ", "))
	}
	tw.Flush()

	if !failures || len(r.Failures) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSkipped:")
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  line %d: %s\n", f.Line, f.Reason)
	}
}
