// Package git provides low-level Git operations over a single on-disk repository.
//
// It wraps go-git and, where go-git has no equivalent, the git command line to provide:
//   - Ref management (find, create, symbolic refs, branch deletion)
//   - Remote management (create, URLs, fetch with credential retry, remote HEAD)
//   - Layered configuration lookup (system, global, repository)
//   - Commit graph queries (merge analysis, merge bases, patch-ids)
//   - Working tree state (porcelain status, forced checkout, submodules, stashes)
//
// The Backend interface is the capability set the sync engine is written against;
// Repository is its go-git implementation.
package git
