package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pbarry-r7/metasploit-stats/internal/changes"
	clierrors "github.com/pbarry-r7/metasploit-stats/internal/errors"
	"github.com/pbarry-r7/metasploit-stats/internal/report"
)

// moduleOptions are the flags fix and wrapup share.
type moduleOptions struct {
	FrameworkPath string
	URLsOnly      bool
}

var (
	fixInfile  string
	fixOptions moduleOptions
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Check new modules with msftidy and summarize them as HTML",
	Long: `Read a diff summary written by 'msfstats diff', run msftidy on every module
it creates and ask msfconsole for their names, authors and references.

Prints an HTML list per module bucket followed by a Markdown count digest.
Payloads and encoders are skipped unless modules.skip_payloads or
modules.skip_encoders is turned off.`,
	Example: `  # Summary from the default output directory, framework in the current directory
  msfstats fix

  # Explicit summary and framework checkout
  msfstats fix --infile /tmp/wrapup/summary.txt --framework-path ~/rapid7/msf

  # Only the module URLs
  msfstats fix --url`,
	Args: maxArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		return runFix(cmd.Context(), s, fixInfile, fixOptions)
	},
}

func init() {
	fixCmd.GroupID = GroupRelease
	fixCmd.Flags().StringVarP(&fixInfile, "infile", "i", "", "Path to summary.txt written by 'msfstats diff' (default: output_dir/summary.txt)")
	fixCmd.Flags().StringVarP(&fixOptions.FrameworkPath, "framework-path", "f", "", "Path to metasploit-framework (default: framework_path)")
	fixCmd.Flags().BoolVarP(&fixOptions.URLsOnly, "url", "u", false, "Show just URLs, no summary")
	rootCmd.AddCommand(fixCmd)
}

// runFix renders the module summary for a diff summary file.
func runFix(ctx context.Context, s *session, infile string, opts moduleOptions) error {
	if infile == "" {
		infile = filepath.Join(s.cfg.OutputDir, changes.SummaryFile)
	}
	summary, err := changes.ReadSummary(infile)
	if err != nil {
		return clierrors.MissingSummary(infile, err)
	}
	s.frameworkPath(opts.FrameworkPath)

	paths := changes.NewModules(summary, s.cfg.ExtractPolicy())
	buckets, err := s.describeModules(ctx, paths)
	if err != nil {
		return err
	}

	if opts.URLsOnly {
		return report.WriteURLs(s.out, buckets)
	}
	if err := report.WriteModulesHTML(s.out, buckets); err != nil {
		return err
	}
	fmt.Fprint(s.out, "\n\n\n")
	return report.WriteDigest(s.out, buckets)
}
