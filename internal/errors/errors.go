// Package errors provides sentinel errors and custom error types for upsync.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies which step of a repository sync failed.
type Kind int

// Sync failure kinds. Every SyncError carries exactly one of these.
const (
	KindDirectoryCreateFailed Kind = iota + 1
	KindRepositoryOpenOrInitFailed
	KindNoRemotesConfigured
	KindRemoteNotFound
	KindFetchFailed
	KindUncommittedChanges
	KindDivergedHistory
	KindInvalidBranchReference
	KindNoDefaultBranchResolved
	KindSubmoduleUpdateFailed
	KindPruneBlockedByDirtyTree
)

// Sentinel errors, one per Kind. A *SyncError matches its sentinel with errors.Is.
var (
	// ErrDirectoryCreateFailed indicates the target directory could not be created
	ErrDirectoryCreateFailed = errors.New("failed to create directory")

	// ErrRepositoryOpenOrInitFailed indicates the repository could be neither opened nor initialized
	ErrRepositoryOpenOrInitFailed = errors.New("failed to open or initialize repository")

	// ErrNoRemotesConfigured indicates a target listed no remotes
	ErrNoRemotesConfigured = errors.New("must specify at least one remote")

	// ErrRemoteNotFound indicates a remote could not be found or created
	ErrRemoteNotFound = errors.New("remote not found")

	// ErrFetchFailed indicates fetching from a remote failed
	ErrFetchFailed = errors.New("fetch failed")

	// ErrUncommittedChanges indicates the working tree is dirty
	ErrUncommittedChanges = errors.New("repository has uncommitted changes")

	// ErrDivergedHistory indicates a branch cannot be fast-forwarded
	ErrDivergedHistory = errors.New("cannot fast-forward diverged history")

	// ErrInvalidBranchReference indicates a branch reference is missing or malformed
	ErrInvalidBranchReference = errors.New("invalid branch reference")

	// ErrNoDefaultBranchResolved indicates no branch could be chosen for checkout
	ErrNoDefaultBranchResolved = errors.New("no default branch could be resolved")

	// ErrSubmoduleUpdateFailed indicates a submodule could not be updated
	ErrSubmoduleUpdateFailed = errors.New("submodule update failed")

	// ErrPruneBlockedByDirtyTree indicates pruning was refused because of uncommitted changes
	ErrPruneBlockedByDirtyTree = errors.New("refusing to prune with uncommitted changes")
)

var sentinels = map[Kind]error{
	KindDirectoryCreateFailed:      ErrDirectoryCreateFailed,
	KindRepositoryOpenOrInitFailed: ErrRepositoryOpenOrInitFailed,
	KindNoRemotesConfigured:        ErrNoRemotesConfigured,
	KindRemoteNotFound:             ErrRemoteNotFound,
	KindFetchFailed:                ErrFetchFailed,
	KindUncommittedChanges:         ErrUncommittedChanges,
	KindDivergedHistory:            ErrDivergedHistory,
	KindInvalidBranchReference:     ErrInvalidBranchReference,
	KindNoDefaultBranchResolved:    ErrNoDefaultBranchResolved,
	KindSubmoduleUpdateFailed:      ErrSubmoduleUpdateFailed,
	KindPruneBlockedByDirtyTree:    ErrPruneBlockedByDirtyTree,
}

// Sentinel returns the sentinel error for a kind.
func (k Kind) Sentinel() error {
	return sentinels[k]
}

func (k Kind) String() string {
	if s, ok := sentinels[k]; ok {
		return s.Error()
	}
	return fmt.Sprintf("unknown error kind %d", int(k))
}

// SyncError is the error returned by a repository sync. It carries the
// repository path and, where known, the branch and remote involved.
type SyncError struct {
	Kind   Kind
	Path   string
	Branch string
	Remote string
	// Detail is extra user-facing context, e.g. the dirty status summary.
	Detail string
	// Hint is remediation text appended to the message.
	Hint string
	Err  error
}

func (e *SyncError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Remote != "" {
		fmt.Fprintf(&b, " (remote %s)", e.Remote)
	}
	if e.Branch != "" {
		fmt.Fprintf(&b, " (branch %s)", e.Branch)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " in %s", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, "\n%s", e.Detail)
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, "\n%s", e.Hint)
	}
	return b.String()
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is the sentinel for this error's kind
func (e *SyncError) Is(target error) bool {
	return target == e.Kind.Sentinel()
}

// New creates a SyncError of the given kind wrapping err (which may be nil).
func New(kind Kind, err error) *SyncError {
	return &SyncError{Kind: kind, Err: err}
}

// WithPath returns e with its repository path set if it was not already.
func (e *SyncError) WithPath(path string) *SyncError {
	if e.Path == "" {
		e.Path = path
	}
	return e
}

// WithBranch sets the branch of e.
func (e *SyncError) WithBranch(branch string) *SyncError {
	e.Branch = branch
	return e
}

// WithRemote sets the remote of e.
func (e *SyncError) WithRemote(remote string) *SyncError {
	e.Remote = remote
	return e
}

// WithDetail sets the detail text of e.
func (e *SyncError) WithDetail(detail string) *SyncError {
	e.Detail = detail
	return e
}

// WithHint sets the remediation hint of e.
func (e *SyncError) WithHint(hint string) *SyncError {
	e.Hint = hint
	return e
}

// KindOf returns the Kind of the first SyncError in err's chain, or 0.
func KindOf(err error) Kind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}
