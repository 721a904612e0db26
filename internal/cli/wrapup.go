package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pbarry-r7/metasploit-stats/internal/changes"
	"github.com/pbarry-r7/metasploit-stats/internal/report"
)

var (
	wrapupHead    bool
	wrapupOutDir  string
	wrapupOptions moduleOptions
)

var wrapupCmd = &cobra.Command{
	Use:   "wrapup [<prev> [<release>]]",
	Short: "Write the New Modules section of the weekly wrapup",
	Long: `Diff two release markers, check the modules the diff creates, and print the
"# New Modules" Markdown for the weekly wrapup post, followed by the "# Get it"
section linking the merged pull requests and the full diff.

Marker selection works like 'msfstats diff'. The diff artifacts are written to
the output directory as a side effect.`,
	Example: `  # Newest tag against HEAD
  msfstats wrapup --head --framework-path ~/rapid7/msf > wrapup.md

  # Two explicit tags, URLs only
  msfstats wrapup 4.13.0 4.13.1 --url`,
	Args: maxArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		return runWrapup(cmd.Context(), s, args, wrapupHead, wrapupOutDir, wrapupOptions)
	},
}

func init() {
	wrapupCmd.GroupID = GroupRelease
	wrapupCmd.Flags().BoolVar(&wrapupHead, "head", false, "Compare the last tag with HEAD instead of the last two tags")
	wrapupCmd.Flags().StringVarP(&wrapupOutDir, "out", "o", "", "Directory for the diff artifacts (default: output_dir)")
	wrapupCmd.Flags().StringVarP(&wrapupOptions.FrameworkPath, "framework-path", "f", "", "Path to metasploit-framework (default: framework_path)")
	wrapupCmd.Flags().BoolVarP(&wrapupOptions.URLsOnly, "url", "u", false, "Show just URLs, no summary")
	rootCmd.AddCommand(wrapupCmd)
}

// runWrapup renders the wrapup Markdown for a pair of markers.
func runWrapup(ctx context.Context, s *session, args []string, head bool, outDir string, opts moduleOptions) error {
	repo, err := s.openRepo()
	if err != nil {
		return err
	}

	r, err := s.resolveRange(repo, args, head)
	if err != nil {
		return err
	}
	if r, err = r.Date(repo); err != nil {
		return revisionError(err)
	}
	s.status.Step("Comparing: %s with %s", r.Prev, r.Release)

	d, err := repo.Diff(ctx, r.Prev, r.Release)
	if err != nil {
		return revisionError(err)
	}
	if outDir == "" {
		outDir = s.cfg.OutputDir
	}
	if _, err := changes.WriteArtifacts(outDir, d); err != nil {
		return err
	}

	paths := changes.NewModules(d.Summary(), s.cfg.ExtractPolicy())
	for _, p := range paths {
		fmt.Fprintln(s.errOut, p)
	}

	s.frameworkPath(opts.FrameworkPath)
	buckets, err := s.describeModules(ctx, paths)
	if err != nil {
		return err
	}

	if opts.URLsOnly {
		return report.WriteURLs(s.out, buckets)
	}
	if err := report.WriteWrapup(s.out, s.cfg.Project(), buckets, r); err != nil {
		return err
	}
	fmt.Fprint(s.out, "\n\n")
	return nil
}
