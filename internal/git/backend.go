package git

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Backend is the set of repository capabilities the sync engine relies on.
// Repository implements it with go-git; tests may substitute their own.
type Backend interface {
	History

	Path() string

	// Refs
	HeadState() (HeadState, error)
	FindRef(name plumbing.ReferenceName) (*plumbing.Reference, error)
	ResolveRef(name plumbing.ReferenceName) (plumbing.Hash, error)
	SetRef(name plumbing.ReferenceName, hash plumbing.Hash) error
	SetSymbolicRef(name, target plumbing.ReferenceName) error
	SetHead(branch plumbing.ReferenceName) error
	DeleteBranch(short string) error
	LocalBranches() ([]BranchRef, error)
	RemoteBranches() ([]BranchRef, error)

	// Configuration
	LayeredConfig() (*LayeredConfig, error)
	Upstream(short string) (BranchRef, bool, error)
	SetUpstream(short, remote string, merge plumbing.ReferenceName) error

	// Remotes
	RemoteNames() ([]string, error)
	RemoteInfo(name string) (RemoteInfo, error)
	AddRemote(name, url string) error
	SetRemoteURL(name, url string) error
	SetRemotePushURL(name, url string) error
	FetchRemote(ctx context.Context, remote string, auth transport.AuthMethod) (bool, error)
	ListRemote(ctx context.Context, remote string, auth transport.AuthMethod) ([]*plumbing.Reference, error)

	// Commit graph
	AnalyzeMerge(branch plumbing.ReferenceName, candidate plumbing.Hash) (MergeOutcome, error)

	// Working tree
	Status(ctx context.Context) (Status, error)
	CheckoutForce(branch plumbing.ReferenceName) error
	CheckoutHashForce(hash plumbing.Hash) error
	Submodules() ([]Submodule, error)
	OpenSubmodule(name string) (Backend, error)
	Stashes(ctx context.Context) ([]string, error)
}

var _ Backend = (*Repository)(nil)
