// Package release manages the data collection version. The VERSION
// file at the repo root is the published semver; bumps are classified
// from git history since the last release tag. Commits that touch the
// data zones mean new or changed records and warrant a minor bump,
// anything else is a patch. Major bumps are never inferred, only
// requested.
package release

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"go.uber.org/zap"

	"github.com/emberline/curator/errors"
	"github.com/emberline/curator/safeio"
	"github.com/emberline/curator/sym"
)

// Bump is the semver component a release increments.
type Bump string

const (
	BumpMajor Bump = "major"
	BumpMinor Bump = "minor"
	BumpPatch Bump = "patch"
)

// VersionFile is the published collection version at the repo root.
const VersionFile = "VERSION"

// ChangelogFile receives a stub entry for every release.
const ChangelogFile = "CHANGELOG.md"

// changelogMessages caps how many commit subjects land in the stub.
const changelogMessages = 5

// Plan describes a release before it is applied.
type Plan struct {
	Current    string   `json:"current"`
	Next       string   `json:"next"`
	Bump       Bump     `json:"bump"`
	Reason     string   `json:"reason"`
	SinceTag   string   `json:"since_tag,omitempty"`
	Commits    int      `json:"commits"`
	DataFiles  int      `json:"data_files_changed"`
	OtherFiles int      `json:"other_files_changed"`
	Messages   []string `json:"messages,omitempty"`
}

// Options configures a release manager.
type Options struct {
	RepoPath  string // data repo root holding VERSION and .git
	Increment Bump   // force a bump; empty means classify from history
	Tag       bool   // create a lightweight vX.Y.Z tag on HEAD
	DryRun    bool
	Logger    *zap.SugaredLogger
}

// Manager plans and applies collection releases.
type Manager struct {
	repoPath  string
	increment Bump
	tag       bool
	dryRun    bool
	log       *zap.SugaredLogger
}

// New creates a release manager rooted at opts.RepoPath.
func New(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = zap.S()
	}
	repoPath := opts.RepoPath
	if repoPath == "" {
		repoPath = "."
	}
	return &Manager{
		repoPath:  repoPath,
		increment: opts.Increment,
		tag:       opts.Tag,
		dryRun:    opts.DryRun,
		log:       log,
	}
}

// Run plans the release and applies it unless dry-run is set. The plan
// is returned either way so callers can print it.
func (m *Manager) Run() (*Plan, error) {
	plan, err := m.Plan()
	if err != nil {
		return nil, err
	}
	if m.dryRun {
		m.log.Infow("Release plan (dry run)",
			"sym", sym.Release,
			"current", plan.Current,
			"next", plan.Next,
			"bump", plan.Bump,
			"reason", plan.Reason,
		)
		return plan, nil
	}
	if err := m.Apply(plan); err != nil {
		return plan, err
	}
	return plan, nil
}

// Plan reads the current version and classifies the bump from git
// history. A forced increment skips classification but still reports
// the history it would have used.
func (m *Manager) Plan() (*Plan, error) {
	current, err := CurrentVersion(m.repoPath)
	if err != nil {
		return nil, err
	}

	plan := m.classify()
	plan.Current = current

	if m.increment != "" {
		plan.Bump = m.increment
		plan.Reason = fmt.Sprintf("%s bump requested", m.increment)
	}

	next, err := apply(current, plan.Bump)
	if err != nil {
		return nil, err
	}
	plan.Next = next
	return plan, nil
}

// Apply writes the bumped VERSION, prepends a changelog stub, and
// optionally tags HEAD.
func (m *Manager) Apply(plan *Plan) error {
	versionPath := filepath.Join(m.repoPath, VersionFile)
	if err := safeio.WriteFileAtomic(versionPath, []byte(plan.Next+"\n"), 0o644); err != nil {
		return err
	}

	if err := m.writeChangelog(plan); err != nil {
		return err
	}

	if m.tag {
		if err := m.tagHead(plan.Next); err != nil {
			return err
		}
	}

	m.log.Infow("Release applied",
		"sym", sym.Release,
		"version", plan.Next,
		"bump", plan.Bump,
		"reason", plan.Reason,
	)
	return nil
}

// CurrentVersion reads the VERSION file under repoPath. A missing file
// means the collection was never released and reads as 0.0.0.
func CurrentVersion(repoPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(repoPath, VersionFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "0.0.0", nil
		}
		return "", errors.Wrapf(err, "failed to read %s", VersionFile)
	}
	return strings.TrimSpace(string(data)), nil
}

// apply bumps a semver string by one component.
func apply(current string, bump Bump) (string, error) {
	v, err := semver.NewVersion(current)
	if err != nil {
		return "", errors.Wrapf(err, "invalid version %q", current)
	}

	var next semver.Version
	switch bump {
	case BumpMajor:
		next = v.IncMajor()
	case BumpMinor:
		next = v.IncMinor()
	case BumpPatch:
		next = v.IncPatch()
	default:
		return "", errors.Wrapf(errors.ErrInvalidConfig, "unknown bump %q", bump)
	}
	return next.String(), nil
}

// classify inspects git history since the last release tag. Any commit
// touching a data zone promotes the bump to minor; a repo without
// usable history defaults to patch, matching how an operator would
// treat an opaque change.
func (m *Manager) classify() *Plan {
	plan := &Plan{Bump: BumpPatch}

	repo, err := git.PlainOpen(m.repoPath)
	if err != nil {
		plan.Reason = "no git history, defaulting to patch"
		return plan
	}

	head, err := repo.Head()
	if err != nil {
		plan.Reason = "no commits yet, defaulting to patch"
		return plan
	}

	sinceTag, sinceHash := lastReleaseTag(repo)
	plan.SinceTag = sinceTag

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		plan.Reason = "cannot walk history, defaulting to patch"
		return plan
	}
	defer iter.Close()

	_ = iter.ForEach(func(c *object.Commit) error {
		if sinceHash != plumbing.ZeroHash && c.Hash == sinceHash {
			return storer.ErrStop
		}
		plan.Commits++
		if len(plan.Messages) < changelogMessages {
			subject := strings.TrimSpace(strings.SplitN(c.Message, "\n", 2)[0])
			if subject != "" {
				plan.Messages = append(plan.Messages, subject)
			}
		}

		stats, err := c.Stats()
		if err != nil {
			return nil
		}
		for _, fs := range stats {
			if isDataPath(fs.Name) {
				plan.DataFiles++
			} else {
				plan.OtherFiles++
			}
		}
		return nil
	})

	since := "full history"
	if sinceTag != "" {
		since = "since " + sinceTag
	}
	if plan.DataFiles > 0 {
		plan.Bump = BumpMinor
		plan.Reason = fmt.Sprintf("%d data file(s) changed across %d commit(s) %s", plan.DataFiles, plan.Commits, since)
	} else {
		plan.Reason = fmt.Sprintf("no data changes across %d commit(s) %s", plan.Commits, since)
	}
	return plan
}

// lastReleaseTag finds the highest semver tag and the commit it points
// at. Annotated tags are peeled to their commit.
func lastReleaseTag(repo *git.Repository) (string, plumbing.Hash) {
	var (
		bestName string
		bestVer  *semver.Version
		bestHash plumbing.Hash
	)

	tags, err := repo.Tags()
	if err != nil {
		return "", plumbing.ZeroHash
	}
	defer tags.Close()

	_ = tags.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		v, err := semver.NewVersion(strings.TrimPrefix(name, "v"))
		if err != nil {
			return nil
		}
		if bestVer != nil && !v.GreaterThan(bestVer) {
			return nil
		}

		hash := ref.Hash()
		if tagObj, err := repo.TagObject(hash); err == nil {
			if c, err := tagObj.Commit(); err == nil {
				hash = c.Hash
			}
		}

		bestName, bestVer, bestHash = name, v, hash
		return nil
	})

	return bestName, bestHash
}

// isDataPath reports whether a repo-relative path belongs to a data
// zone. Dumps and validated records live under data/.
func isDataPath(path string) bool {
	return strings.HasPrefix(filepath.ToSlash(path), "data/")
}

// writeChangelog prepends a stub entry for the release, creating the
// changelog on first use.
func (m *Manager) writeChangelog(plan *Plan) error {
	path := filepath.Join(m.repoPath, ChangelogFile)

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to read %s", ChangelogFile)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## v%s (%s)\n\n", plan.Next, time.Now().UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "%s.\n\n", capitalize(plan.Reason))
	for _, msg := range plan.Messages {
		fmt.Fprintf(&b, "- %s\n", msg)
	}
	if len(plan.Messages) > 0 {
		b.WriteString("\n")
	}

	const header = "# Changelog\n\n"
	body := strings.TrimPrefix(string(existing), header)
	content := header + b.String() + body

	return safeio.WriteFileAtomic(path, []byte(content), 0o644)
}

// tagHead creates a lightweight release tag on HEAD.
func (m *Manager) tagHead(version string) error {
	repo, err := git.PlainOpen(m.repoPath)
	if err != nil {
		return errors.Wrap(err, "cannot tag: not a git repository")
	}
	head, err := repo.Head()
	if err != nil {
		return errors.Wrap(err, "cannot tag: no commits")
	}
	name := "v" + version
	if _, err := repo.CreateTag(name, head.Hash(), nil); err != nil {
		return errors.Wrapf(err, "failed to create tag %s", name)
	}
	m.log.Infow("Tagged release",
		"sym", sym.Release,
		"tag", name,
		"commit", head.Hash().String()[:7],
	)
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
