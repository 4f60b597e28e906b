package merge

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/dxos/version-check/internal/log"
	"github.com/dxos/version-check/internal/manifest"
)

// Merger performs a three-way line merge of ours and theirs into ours and
// returns the tool's exit status: 0 when clean, non-zero when conflicts remain.
type Merger interface {
	Merge(ctx context.Context, ours, ancestor, theirs string) (int, error)
}

// GitMergeFile runs `git merge-file`
type GitMergeFile struct {
	Git string // Path to git; "git" when empty
}

// Merge runs git merge-file in place on ours
func (g GitMergeFile) Merge(ctx context.Context, ours, ancestor, theirs string) (int, error) {
	bin := g.Git
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, "merge-file", ours, ancestor, theirs)
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("running %s merge-file: %w", bin, err)
}

// Options names the three versions of the conflicted manifest
type Options struct {
	Ancestor string
	Ours     string
	Theirs   string

	Merger Merger // GitMergeFile when nil
}

// Files resolves the dependency sections of the three manifests, writes the
// result into both ours and theirs, and then line-merges the files. It
// returns the line merge's exit status.
func Files(ctx context.Context, opts Options) (int, error) {
	ancestor, err := manifest.Load(opts.Ancestor)
	if err != nil {
		return 0, err
	}
	ours, err := manifest.Load(opts.Ours)
	if err != nil {
		return 0, err
	}
	theirs, err := manifest.Load(opts.Theirs)
	if err != nil {
		return 0, err
	}

	for _, section := range manifest.Sections {
		resolved, err := Resolve(ancestor.Section(section), ours.Section(section), theirs.Section(section))
		if err != nil {
			return 0, fmt.Errorf("merging %s: %w", section, err)
		}
		for _, m := range []*manifest.Manifest{ours, theirs} {
			if len(resolved) > 0 || m.HasSection(section) {
				m.ReplaceSection(section, resolved)
			}
		}
	}

	if err := manifest.Save(opts.Ours, ours); err != nil {
		return 0, fmt.Errorf("writing %s: %w", opts.Ours, err)
	}
	if err := manifest.Save(opts.Theirs, theirs); err != nil {
		return 0, fmt.Errorf("writing %s: %w", opts.Theirs, err)
	}

	merger := opts.Merger
	if merger == nil {
		merger = GitMergeFile{}
	}
	status, err := merger.Merge(ctx, opts.Ours, opts.Ancestor, opts.Theirs)
	if err != nil {
		return 0, err
	}
	log.Info("'git merge-file' exited with %d", status)
	return status, nil
}
