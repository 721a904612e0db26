package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbarry-r7/metasploit-stats/internal/changes"
)

var (
	diffHead   bool
	diffOutDir string
)

var diffCmd = &cobra.Command{
	Use:   "diff [<prev> [<release>]]",
	Short: "Write names, summary and full diff between two release tags",
	Long: `Compare two release markers and write three artifacts into the output
directory: names.txt (changed paths), summary.txt (created and deleted files)
and details.diff (the full diff).

Without markers the two newest tags by tag date are compared. With --head the
newest tag (or the given <prev>) is compared with HEAD. The new module files
are listed at the end, ready to open in an editor.`,
	Example: `  # The two newest tags
  msfstats diff

  # Newest tag against HEAD
  msfstats diff --head

  # Explicit markers, artifacts in /tmp/wrapup
  msfstats diff 4.13.0 4.13.1 --out /tmp/wrapup`,
	Args: maxArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		_, err = runDiff(cmd.Context(), s, args, diffHead, diffOutDir)
		return err
	},
}

func init() {
	diffCmd.GroupID = GroupRelease
	diffCmd.Flags().BoolVar(&diffHead, "head", false, "Compare the last tag with HEAD instead of the last two tags")
	diffCmd.Flags().StringVarP(&diffOutDir, "out", "o", "", "Directory for the artifacts (default: output_dir)")
	rootCmd.AddCommand(diffCmd)
}

// runDiff writes the diff artifacts and lists the new modules.
func runDiff(ctx context.Context, s *session, args []string, head bool, outDir string) (changes.Artifacts, error) {
	repo, err := s.openRepo()
	if err != nil {
		return changes.Artifacts{}, err
	}

	r, err := s.resolveRange(repo, args, head)
	if err != nil {
		return changes.Artifacts{}, err
	}
	fmt.Fprintf(s.out, "Comparing: %s with %s\n", r.Prev, r.Release)

	d, err := repo.Diff(ctx, r.Prev, r.Release)
	if err != nil {
		return changes.Artifacts{}, revisionError(err)
	}

	if outDir == "" {
		outDir = s.cfg.OutputDir
	}
	artifacts, err := changes.WriteArtifacts(outDir, d)
	if err != nil {
		return changes.Artifacts{}, err
	}
	for _, path := range []string{artifacts.Diff, artifacts.Names, artifacts.Summary} {
		s.status.Success("wrote %s", path)
	}

	mods := changes.NewModules(d.Summary(), changes.ExtractPolicy{})
	if len(mods) == 0 {
		fmt.Fprintln(s.out, "Done, no new modules.")
		return artifacts, nil
	}
	fmt.Fprintln(s.out, "Done, to edit modules:")
	fmt.Fprintln(s.out)
	fmt.Fprintf(s.out, "%s %s\n", editor(), strings.Join(mods, " "))
	return artifacts, nil
}

func editor() string {
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	return "vim"
}
