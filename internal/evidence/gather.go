// Package evidence assembles the supporting material for one triage run:
// recent commits and a diff summary from the local checkout, log excerpts
// from file fixtures, a per-incident evidence document, and a compressed
// bundle suitable for attachment upload.
package evidence

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// NoRepoDiffSummary is the sentinel diff summary used when the working
// directory is not a git checkout. Its exact value is part of the evidence
// contract: the playbook prompt and tests both key off it.
const NoRepoDiffSummary = "(no git repo)"

// trunkCandidates is the prioritized list of branch names tried when
// resolving a merge base for the default base/head pair.
var trunkCandidates = []string{"origin/main", "origin/master", "main", "master"}

// CommitInfo is the version-control slice of an evidence package.
type CommitInfo struct {
	Commits     []string `json:"commits"`
	DiffSummary string   `json:"diffSummary"`
	BaseSHA     string   `json:"baseSha"`
	HeadSHA     string   `json:"headSha"`
}

// GatherOptions control commit gathering.
type GatherOptions struct {
	// RepoDir is the checkout to inspect, usually the process working dir.
	RepoDir string

	// BaseSHA is an explicit CI-provided base commit. When set it overrides
	// merge-base resolution entirely.
	BaseSHA string

	// CommitDepth bounds the commit list, most-recent-first.
	CommitDepth int
}

// GatherCommits resolves a base/head pair and collects the commits and
// diff-stat between them.
//
// A missing checkout is a valid, handled state: it yields an empty commit
// list and the NoRepoDiffSummary sentinel with no error. Failures inside a
// real checkout are returned as errors and abort the run.
func GatherCommits(opts GatherOptions) (CommitInfo, error) {
	repo, err := git.PlainOpen(opts.RepoDir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return CommitInfo{Commits: []string{}, DiffSummary: NoRepoDiffSummary}, nil
		}
		return CommitInfo{}, fmt.Errorf("open repo %s: %w", opts.RepoDir, err)
	}

	headRef, err := repo.Head()
	if err != nil {
		// Freshly initialized repo with no commits. Treat like no checkout.
		return CommitInfo{Commits: []string{}, DiffSummary: NoRepoDiffSummary}, nil
	}
	headHash := headRef.Hash()

	head, err := repo.CommitObject(headHash)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("resolve head commit %s: %w", headHash, err)
	}

	base := resolveBase(repo, head, opts.BaseSHA)

	commits, err := commitRange(repo, headHash, base.Hash, opts.CommitDepth)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("list commits %s..%s: %w", base.Hash, headHash, err)
	}

	diffSummary, err := diffStat(base, head)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("diff %s..%s: %w", base.Hash, headHash, err)
	}

	return CommitInfo{
		Commits:     commits,
		DiffSummary: diffSummary,
		BaseSHA:     base.Hash.String(),
		HeadSHA:     headHash.String(),
	}, nil
}

// resolveBase picks the base commit for head: an explicit CI base first,
// then the merge base against the first resolvable trunk candidate, then
// head's first parent, and finally head itself.
func resolveBase(repo *git.Repository, head *object.Commit, explicit string) *object.Commit {
	if explicit != "" {
		if c, err := repo.CommitObject(plumbing.NewHash(explicit)); err == nil {
			return c
		}
	}

	for _, branch := range trunkCandidates {
		hash, err := repo.ResolveRevision(plumbing.Revision(branch))
		if err != nil {
			continue
		}
		branchTip, err := repo.CommitObject(*hash)
		if err != nil {
			continue
		}
		bases, err := head.MergeBase(branchTip)
		if err != nil || len(bases) == 0 {
			continue
		}
		return bases[0]
	}

	if parent, err := head.Parent(0); err == nil {
		return parent
	}
	return head
}

// commitRange lists commit hashes reachable from head down to (excluding)
// base, most-recent-first, truncated to depth.
func commitRange(repo *git.Repository, head, base plumbing.Hash, depth int) ([]string, error) {
	if head == base {
		return []string{}, nil
	}

	iter, err := repo.Log(&git.LogOptions{From: head})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	commits := []string{}
	for {
		c, err := iter.Next()
		if err != nil {
			// Reached root of history before seeing base.
			break
		}
		if c.Hash == base {
			break
		}
		commits = append(commits, c.Hash.String())
		if depth > 0 && len(commits) >= depth {
			break
		}
	}
	return commits, nil
}

// diffStat renders a diff-stat summary of base..head.
func diffStat(base, head *object.Commit) (string, error) {
	if base.Hash == head.Hash {
		return "", nil
	}
	patch, err := base.Patch(head)
	if err != nil {
		return "", err
	}
	return patch.Stats().String(), nil
}
