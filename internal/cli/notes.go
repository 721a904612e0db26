package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pbarry-r7/metasploit-stats/internal/changes"
	clierrors "github.com/pbarry-r7/metasploit-stats/internal/errors"
	"github.com/pbarry-r7/metasploit-stats/internal/report"
	"github.com/pbarry-r7/metasploit-stats/internal/tracker"
)

var notesCmd = &cobra.Command{
	Use:   "notes <start-tag> [<end-tag>]",
	Short: "Collect landed pull requests and their release notes",
	Long: `Collect the pull requests landed between two release tags, look up their
milestone and "Release Notes" comment, and save them as an HTML table.

Commits count as landed when their message starts with "Land", "See #N" or
"Fix #N"; pull request numbers come from "Land #N" messages. Without an end
tag everything up to the most recent commit is collected.

The page is saved as release_notes_<start>[_<end>].html in output_dir.`,
	Example: `  # Everything landed since 4.11.0
  msfstats notes 4.11.0

  # A closed range
  msfstats notes 4.11.0 4.12.5`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return clierrors.MissingStartTag()
		}
		if len(args) > 2 {
			return clierrors.NewArgumentErrorWithUsage(
				fmt.Sprintf("expected at most two tags, got %d", len(args)),
				"msfstats notes <start-tag> [<end-tag>]",
			)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		start, end := args[0], ""
		if len(args) > 1 {
			end = args[1]
		}
		_, err = runNotes(cmd.Context(), s, start, end)
		return err
	},
}

func init() {
	notesCmd.GroupID = GroupRelease
	rootCmd.AddCommand(notesCmd)
}

// runNotes collects, enriches and renders the release notes. It returns the saved page's path.
func runNotes(ctx context.Context, s *session, start, end string) (string, error) {
	if s.cfg.RepoPath == "" {
		return "", clierrors.MissingRepoPath()
	}
	repo, err := s.openRepo()
	if err != nil {
		return "", err
	}

	landed, err := changes.Landed(ctx, repo, start, end)
	if err != nil {
		return "", revisionError(err)
	}

	fmt.Fprintln(s.out, "Found the following landed PRs:")
	for _, subject := range changes.LandedSubjects(landed) {
		fmt.Fprintln(s.out, subject)
	}
	fmt.Fprintln(s.out)

	client, err := tracker.NewClient(s.cfg.TrackerClientConfig())
	if err != nil {
		return "", clierrors.Wrap(err, clierrors.Configuration, "Check tracker.base_url in the config")
	}
	enricher := &tracker.Enricher{
		Source:      client,
		Concurrency: s.cfg.Tracker.Concurrency,
		Warn:        s.status.Warn,
	}

	numbers := changes.LandedNumbers(landed)
	s.steps.Start(fmt.Sprintf("Fetching %d pull requests", len(numbers)))
	notes, err := enricher.Enrich(ctx, numbers)
	if err != nil {
		s.steps.Fail(err)
		return "", err
	}
	s.steps.Done("")

	fmt.Fprintln(s.out, "Release Notes:")
	for _, n := range notes {
		fmt.Fprintln(s.out, report.NoteLine(n))
	}

	path := filepath.Join(s.cfg.OutputDir, report.NotesFileName(start, end))
	if err := writeNotesPage(path, s.cfg.Project(), notes); err != nil {
		return "", err
	}

	fmt.Fprintln(s.out)
	fmt.Fprintf(s.out, "Release notes saved as: %s\n", path)
	return path, nil
}

func writeNotesPage(path string, project report.Project, notes []tracker.Note) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	return report.WriteNotesHTML(f, project, notes)
}
