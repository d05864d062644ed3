// Package git shells out to the git binary for diff and log access.
package git

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Commit is one entry of the commit log.
type Commit struct {
	Hash    string `json:"hash"`
	Message string `json:"message"`
	Author  string `json:"author"`
	Date    string `json:"date"`
}

// Repo represents a git repository at a specific directory.
type Repo struct {
	Dir string
}

// NewRepo creates a Repo pointing at the given directory.
func NewRepo(dir string) *Repo {
	return &Repo{Dir: dir}
}

// run executes a git command in the repo directory and returns trimmed stdout.
func (r *Repo) run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out)), nil
}

// MainBranch returns "main" or "master", whichever exists as a local branch.
func (r *Repo) MainBranch() (string, error) {
	for _, name := range []string{"main", "master"} {
		if _, err := r.run("rev-parse", "--verify", "refs/heads/"+name); err == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("neither 'main' nor 'master' branch found")
}

// MergeBase returns the merge-base commit hash between two refs.
func (r *Repo) MergeBase(ref1, ref2 string) (string, error) {
	return r.run("merge-base", ref1, ref2)
}

// Diff returns unified diff text between two refs. If target is empty,
// base is diffed against the working tree (staged + unstaged).
func (r *Repo) Diff(base, target string) (string, error) {
	if target == "" {
		return r.run("diff", "--no-ext-diff", base)
	}
	return r.run("diff", "--no-ext-diff", base, target)
}

// FormatPatch returns the mailbox-format patch for a single commit,
// including the From/Date/Subject header block. -k keeps the commit
// subject as-is instead of wrapping it in [PATCH].
func (r *Repo) FormatPatch(ref string) (string, error) {
	return r.run("format-patch", "-1", "-k", "--stdout", ref)
}

// Commits returns the most recent n commits for the current branch.
func (r *Repo) Commits(n int) ([]Commit, error) {
	// A separator unlikely to appear in commit messages.
	sep := "---COMMIT_SEP---"
	format := strings.Join([]string{"%H", "%s", "%an", "%ai"}, sep)
	out, err := r.run("log", "--format="+format, "-n", strconv.Itoa(n))
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}

	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, sep, 4)
		if len(parts) != 4 {
			continue
		}
		commits = append(commits, Commit{
			Hash:    parts[0],
			Message: parts[1],
			Author:  parts[2],
			Date:    parts[3],
		})
	}
	return commits, nil
}
