package git

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// userConfig caches the global and system scoped git configuration. Those
// files do not change during a run, so every repository shares one load.
var userConfig struct {
	once   sync.Once
	global *config.Config
	system *config.Config
	err    error
}

func loadUserConfig() (global, system *config.Config, err error) {
	userConfig.once.Do(func() {
		userConfig.global, userConfig.err = config.LoadConfig(config.GlobalScope)
		if userConfig.err != nil {
			userConfig.err = fmt.Errorf("failed to load global git config: %w", userConfig.err)
			return
		}
		userConfig.system, userConfig.err = config.LoadConfig(config.SystemScope)
		if userConfig.err != nil {
			userConfig.err = fmt.Errorf("failed to load system git config: %w", userConfig.err)
		}
	})
	return userConfig.global, userConfig.system, userConfig.err
}

// LayeredConfig answers configuration lookups the way git does: the
// repository's own config wins over the global config, which wins over the
// system config.
type LayeredConfig struct {
	layers []*config.Config
}

// NewLayeredConfig builds a lookup over layers ordered from highest to
// lowest precedence. Nil layers are ignored.
func NewLayeredConfig(layers ...*config.Config) *LayeredConfig {
	return &LayeredConfig{layers: layers}
}

// Get returns the value of section[.subsection].key from the highest
// precedence layer that sets it.
func (c *LayeredConfig) Get(section, subsection, key string) (string, bool) {
	for _, layer := range c.layers {
		if layer == nil || layer.Raw == nil || !layer.Raw.HasSection(section) {
			continue
		}
		s := layer.Raw.Section(section)
		opts := s.Options
		if subsection != "" {
			if !s.HasSubsection(subsection) {
				continue
			}
			opts = s.Subsection(subsection).Options
		}
		// The last occurrence wins, as with git config --get.
		if values := opts.GetAll(key); len(values) > 0 {
			return values[len(values)-1], true
		}
	}
	return "", false
}

// LayeredConfig loads the repository configuration on top of the global and
// system configuration.
func (r *Repository) LayeredConfig() (*LayeredConfig, error) {
	if r.global == nil && r.system == nil {
		global, system, err := loadUserConfig()
		if err != nil {
			return nil, err
		}
		r.global, r.system = global, system
	}

	local, err := r.Config()
	if err != nil {
		return nil, fmt.Errorf("failed to load repository config: %w", err)
	}
	return NewLayeredConfig(local, r.global, r.system), nil
}

// Upstream returns the remote-tracking branch that short is configured to
// track, following branch.<short>.remote and branch.<short>.merge through
// the remote's fetch refspecs. found is false when no upstream is configured
// or the tracking ref does not exist yet.
func (r *Repository) Upstream(short string) (ref BranchRef, found bool, err error) {
	cfg, err := r.Config()
	if err != nil {
		return BranchRef{}, false, fmt.Errorf("failed to read config: %w", err)
	}

	branch, ok := cfg.Branches[short]
	if !ok || branch.Remote == "" || branch.Merge == "" {
		return BranchRef{}, false, nil
	}

	mergeShort := ShortenBranchRef(branch.Merge.String())
	if branch.Remote == "." {
		ref = NewLocalBranchRef(mergeShort)
	} else {
		remote, ok := cfg.Remotes[branch.Remote]
		if !ok {
			return BranchRef{}, false, nil
		}
		ref = NewRemoteBranchRef(branch.Remote, mergeShort)
		for _, spec := range remote.Fetch {
			if spec.Match(branch.Merge) {
				ref.FullName = spec.Dst(branch.Merge)
				break
			}
		}
	}

	if _, err := r.FindRef(ref.FullName); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return BranchRef{}, false, nil
		}
		return BranchRef{}, false, fmt.Errorf("failed to read %s: %w", ref.FullName, err)
	}
	return ref, true, nil
}

// SetUpstream configures short to track merge on remote.
func (r *Repository) SetUpstream(short, remote string, merge plumbing.ReferenceName) error {
	cfg, err := r.Config()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if existing, ok := cfg.Branches[short]; ok {
		existing.Remote = remote
		existing.Merge = merge
	} else {
		cfg.Branches[short] = &config.Branch{Name: short, Remote: remote, Merge: merge}
	}

	if err := r.Storer.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to set upstream of %s: %w", short, err)
	}
	return nil
}
