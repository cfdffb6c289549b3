package git

import (
	"context"
	"errors"
	"fmt"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

const remoteSection = "remote"

// RemoteInfo describes a configured remote
type RemoteInfo struct {
	Name     string
	FetchURL string
	// PushURL is remote.<name>.pushurl, empty when unset.
	PushURL string
}

// RemoteNames returns the names of all configured remotes, sorted
func (r *Repository) RemoteNames() ([]string, error) {
	cfg, err := r.Config()
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	names := make([]string, 0, len(cfg.Remotes))
	for name := range cfg.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// RemoteInfo returns the configuration of the named remote. A missing
// remote is reported as gogit.ErrRemoteNotFound.
func (r *Repository) RemoteInfo(name string) (RemoteInfo, error) {
	cfg, err := r.Config()
	if err != nil {
		return RemoteInfo{}, fmt.Errorf("failed to read config: %w", err)
	}

	remote, ok := cfg.Remotes[name]
	if !ok {
		return RemoteInfo{}, gogit.ErrRemoteNotFound
	}

	info := RemoteInfo{Name: name}
	if len(remote.URLs) > 0 {
		info.FetchURL = remote.URLs[0]
	}
	if section := cfg.Raw.Section(remoteSection); section.HasSubsection(name) {
		info.PushURL = section.Subsection(name).Option("pushurl")
	}
	return info, nil
}

// AddRemote creates a remote with the default fetch refspec.
func (r *Repository) AddRemote(name, url string) error {
	_, err := r.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("failed to create remote %s: %w", name, err)
	}
	return nil
}

// SetRemoteURL replaces the fetch URL of an existing remote.
func (r *Repository) SetRemoteURL(name, url string) error {
	cfg, err := r.Config()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	remote, ok := cfg.Remotes[name]
	if !ok {
		return gogit.ErrRemoteNotFound
	}
	remote.URLs = []string{url}

	if err := r.Storer.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to set url of remote %s: %w", name, err)
	}
	return nil
}

// SetRemotePushURL sets remote.<name>.pushurl.
func (r *Repository) SetRemotePushURL(name, url string) error {
	cfg, err := r.Config()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if _, ok := cfg.Remotes[name]; !ok {
		return gogit.ErrRemoteNotFound
	}

	// go-git has no push URL field; the raw subsection is the same one the
	// remote marshals back into, so the option survives SetConfig.
	cfg.Raw.Section(remoteSection).Subsection(name).SetOption("pushurl", url)

	if err := r.Storer.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to set push url of remote %s: %w", name, err)
	}
	return nil
}

// FetchRemote fetches the remote's configured refspecs. updated is false when
// nothing changed, including when the remote has no refs at all.
func (r *Repository) FetchRemote(ctx context.Context, remote string, auth transport.AuthMethod) (updated bool, err error) {
	err = r.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: remote,
		Auth:       auth,
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gogit.NoErrAlreadyUpToDate), errors.Is(err, transport.ErrEmptyRemoteRepository):
		return false, nil
	default:
		return false, err
	}
}

// ListRemote returns the references the remote advertises. An empty remote
// yields no references and no error.
func (r *Repository) ListRemote(ctx context.Context, remote string, auth transport.AuthMethod) ([]*plumbing.Reference, error) {
	rem, err := r.Remote(remote)
	if err != nil {
		return nil, fmt.Errorf("failed to get remote %s: %w", remote, err)
	}

	refs, err := rem.ListContext(ctx, &gogit.ListOptions{Auth: auth})
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// AdvertisedDefaultBranch picks the remote's default branch out of its
// advertised references. Servers that report the HEAD symref give the answer
// directly; otherwise the branch sharing HEAD's commit is used, preferring
// main and then master when several match.
func AdvertisedDefaultBranch(refs []*plumbing.Reference) (string, bool) {
	var head *plumbing.Reference
	for _, ref := range refs {
		if ref.Name() == plumbing.HEAD {
			head = ref
			break
		}
	}
	if head == nil {
		return "", false
	}

	if head.Type() == plumbing.SymbolicReference {
		if !head.Target().IsBranch() {
			return "", false
		}
		return ShortenBranchRef(head.Target().String()), true
	}

	var candidates []string
	for _, ref := range refs {
		if ref.Name().IsBranch() && ref.Hash() == head.Hash() {
			candidates = append(candidates, ShortenBranchRef(ref.Name().String()))
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	for _, preferred := range []string{"main", "master"} {
		for _, c := range candidates {
			if c == preferred {
				return c, true
			}
		}
	}
	sort.Strings(candidates)
	return candidates[0], true
}
