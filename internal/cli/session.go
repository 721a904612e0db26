package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pbarry-r7/metasploit-stats/internal/changes"
	"github.com/pbarry-r7/metasploit-stats/internal/config"
	"github.com/pbarry-r7/metasploit-stats/internal/console"
	clierrors "github.com/pbarry-r7/metasploit-stats/internal/errors"
	"github.com/pbarry-r7/metasploit-stats/internal/git"
	"github.com/pbarry-r7/metasploit-stats/internal/modinfo"
	"github.com/pbarry-r7/metasploit-stats/internal/module"
	"github.com/pbarry-r7/metasploit-stats/internal/output"
	"github.com/pbarry-r7/metasploit-stats/internal/progress"
)

// session is what a command run needs besides its own flags.
// Reports go to out; status lines and progress go to stderr so out can be piped.
type session struct {
	cfg    *config.Configuration
	out    io.Writer
	errOut io.Writer
	status *output.Printer
	steps  *progress.Indicator
	debug  bool
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newSessionWith(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), plainOutput, debugMode), nil
}

func newSessionWith(cfg *config.Configuration, out, errOut io.Writer, plain, debug bool) *session {
	var caps progress.TerminalCapabilities
	if f, ok := errOut.(*os.File); ok {
		caps = progress.DetectTerminalCapabilitiesFor(f)
	}
	if plain {
		caps.SupportsColor = false
	}
	return &session{
		cfg:    cfg,
		out:    out,
		errOut: errOut,
		status: output.New(errOut, plain),
		steps:  progress.NewIndicator(errOut, caps),
		debug:  debug,
	}
}

// openRepo opens the configured checkout, or the working directory when none is set.
func (s *session) openRepo() (*git.Repo, error) {
	repo, err := git.Open(s.cfg.RepoPath)
	if err != nil {
		return nil, clierrors.WrapWithMessage(err, clierrors.Prerequisite,
			"cannot open metasploit-framework checkout",
			"Set MSFDIR or repo_path to your local metasploit-framework repository",
			"Or run msfstats from inside the checkout",
		)
	}
	return repo, nil
}

// resolveRange picks the markers and their dates for diff based commands.
func (s *session) resolveRange(repo *git.Repo, args []string, head bool) (changes.Range, error) {
	r, err := changes.ResolveRange(repo, args, head)
	if err != nil {
		if stderrors.Is(err, changes.ErrNoTags) {
			return r, clierrors.NoReleaseTags(err)
		}
		return r, err
	}
	return r, nil
}

// revisionError turns an unknown marker into guidance for the user.
func revisionError(err error) error {
	var revErr *git.RevisionError
	if stderrors.As(err, &revErr) {
		return clierrors.UnknownRevision(revErr.Rev, err)
	}
	return err
}

// frameworkPath applies a --framework-path override.
func (s *session) frameworkPath(override string) {
	if override != "" {
		s.cfg.FrameworkPath = override
	}
}

// describeModules checks new modules with msftidy, then asks msfconsole about them.
func (s *session) describeModules(ctx context.Context, paths []string) (modinfo.Buckets, error) {
	if len(paths) == 0 {
		s.status.Warn("no new modules found")
		return modinfo.Buckets{}, nil
	}

	s.steps.Start(fmt.Sprintf("Running msftidy on %d modules", len(paths)))
	findings, err := console.Tidy(ctx, s.cfg.TidyRunner(), paths)
	if err != nil {
		s.steps.Fail(err)
		return modinfo.Buckets{}, err
	}
	s.steps.Done(fmt.Sprintf("%d with findings", len(findings)))
	for _, f := range findings {
		fmt.Fprintln(s.errOut, f.Output)
	}

	classifier := module.NewClassifier(s.cfg.Modules.BaseURL)
	refs, skipped := classifier.ClassifyAll(paths)
	for _, p := range skipped {
		s.status.Warn("%s: %v", p, module.ErrUnknownKind)
	}

	driver := &console.Driver{Runner: s.cfg.ConsoleRunner()}
	if s.debug {
		driver.Follow = s.errOut
	}

	s.steps.Start("Running the console")
	result, err := driver.Describe(ctx, refs)
	if err != nil {
		s.steps.Fail(err)
		if ctx.Err() != nil {
			return modinfo.Buckets{}, ctx.Err()
		}
		return modinfo.Buckets{}, clierrors.ConsoleFailed(s.cfg.FrameworkPath, err)
	}
	s.steps.Done(fmt.Sprintf("%d exploits, %d other modules", len(result.Buckets.Exploits), len(result.Buckets.Others)))

	for _, ref := range refs {
		if _, ok := result.Buckets.Get(ref.URL); !ok {
			s.status.Warn("no info for %s", ref.Name)
		}
	}
	return result.Buckets, nil
}
