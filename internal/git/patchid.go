package git

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// PatchID is a digest of the change a commit introduces, independent of
// its parent, author, timestamp and message.
type PatchID [sha256.Size]byte

func (p PatchID) String() string {
	return hex.EncodeToString(p[:])
}

// History is the commit graph access patch-equivalence needs
type History interface {
	MergeBases(a, b plumbing.Hash) ([]plumbing.Hash, error)
	RevList(from plumbing.Hash, hide []plumbing.Hash) ([]plumbing.Hash, error)
	PatchID(ctx context.Context, commit plumbing.Hash) (PatchID, error)
}

// RevList returns the non-merge commits reachable from from but not from
// any commit in hide, newest first.
func (r *Repository) RevList(from plumbing.Hash, hide []plumbing.Hash) ([]plumbing.Hash, error) {
	start, err := r.CommitObject(from)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", from, err)
	}

	hidden, err := r.ancestors(hide)
	if err != nil {
		return nil, err
	}

	iter := object.NewCommitPreorderIter(start, hidden, nil)
	defer iter.Close()

	var hashes []plumbing.Hash
	err = iter.ForEach(func(c *object.Commit) error {
		if c.NumParents() > 1 {
			return nil
		}
		hashes = append(hashes, c.Hash)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk history from %s: %w", from, err)
	}
	return hashes, nil
}

// ancestors returns every commit reachable from the given commits,
// including themselves. A walk that only stops at the commits themselves
// would still reach their history around a merge.
func (r *Repository) ancestors(tips []plumbing.Hash) (map[plumbing.Hash]bool, error) {
	seen := make(map[plumbing.Hash]bool)
	for _, tip := range tips {
		if seen[tip] {
			continue
		}
		commit, err := r.CommitObject(tip)
		if err != nil {
			return nil, fmt.Errorf("failed to get commit %s: %w", tip, err)
		}
		iter := object.NewCommitPreorderIter(commit, seen, nil)
		err = iter.ForEach(func(c *object.Commit) error {
			seen[c.Hash] = true
			return nil
		})
		iter.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to walk history from %s: %w", tip, err)
		}
	}
	return seen, nil
}

// PatchID computes the patch-id of a commit against its first parent.
func (r *Repository) PatchID(ctx context.Context, hash plumbing.Hash) (PatchID, error) {
	commit, err := r.CommitObject(hash)
	if err != nil {
		return PatchID{}, fmt.Errorf("failed to get commit %s: %w", hash, err)
	}
	return CommitPatchID(ctx, commit)
}

// CommitPatchID hashes the diff between commit and its first parent. For
// every changed file, ordered by path, it writes the file's old and new
// path and mode, then each run of added and removed lines with all
// whitespace stripped. Context lines and line numbers are left out so the
// same change applied on a different parent hashes identically.
func CommitPatchID(ctx context.Context, commit *object.Commit) (PatchID, error) {
	tree, err := commit.Tree()
	if err != nil {
		return PatchID{}, fmt.Errorf("failed to get tree of %s: %w", commit.Hash, err)
	}

	var parentTree *object.Tree
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return PatchID{}, fmt.Errorf("failed to get parent of %s: %w", commit.Hash, err)
		}
		if parentTree, err = parent.Tree(); err != nil {
			return PatchID{}, fmt.Errorf("failed to get tree of %s: %w", parent.Hash, err)
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, &object.DiffTreeOptions{})
	if err != nil {
		return PatchID{}, fmt.Errorf("failed to diff %s: %w", commit.Hash, err)
	}
	patch, err := changes.PatchContext(ctx)
	if err != nil {
		return PatchID{}, fmt.Errorf("failed to build patch for %s: %w", commit.Hash, err)
	}

	filePatches := patch.FilePatches()
	sort.SliceStable(filePatches, func(i, j int) bool {
		return filePatchPath(filePatches[i]) < filePatchPath(filePatches[j])
	})

	h := sha256.New()
	for _, fp := range filePatches {
		writeFilePatch(h, fp)
	}

	var id PatchID
	copy(id[:], h.Sum(nil))
	return id, nil
}

func filePatchPath(fp diff.FilePatch) string {
	from, to := fp.Files()
	if to != nil {
		return to.Path()
	}
	if from != nil {
		return from.Path()
	}
	return ""
}

func writeFilePatch(h hash.Hash, fp diff.FilePatch) {
	from, to := fp.Files()
	writeFileHeader(h, "a", from)
	writeFileHeader(h, "b", to)

	if fp.IsBinary() {
		h.Write([]byte("binary\n"))
		for _, f := range []diff.File{from, to} {
			if f != nil {
				blob := f.Hash()
				h.Write(blob[:])
			}
		}
		return
	}

	inHunk := false
	for _, chunk := range fp.Chunks() {
		var prefix byte
		switch chunk.Type() {
		case diff.Add:
			prefix = '+'
		case diff.Delete:
			prefix = '-'
		default:
			inHunk = false
			continue
		}
		if !inHunk {
			h.Write([]byte("@@\n"))
			inHunk = true
		}
		for _, line := range strings.SplitAfter(chunk.Content(), "\n") {
			if line == "" {
				continue
			}
			h.Write([]byte{prefix})
			h.Write([]byte(strings.Join(strings.Fields(line), "")))
			h.Write([]byte{'\n'})
		}
	}
}

func writeFileHeader(h hash.Hash, side string, f diff.File) {
	if f == nil {
		fmt.Fprintf(h, "%s/dev/null\n", side)
		return
	}
	fmt.Fprintf(h, "%s/%s\n", side, f.Path())
	var mode [4]byte
	binary.BigEndian.PutUint32(mode[:], uint32(f.Mode()))
	h.Write(mode[:])
}

// Unmerged reports whether head has any commit since its merge base with
// upstream whose change is not also present in upstream since that merge
// base. Changes are compared by patch-id, so commits that reached upstream
// through a rebase or cherry-pick count as merged. Merge commits are ignored.
// Histories without a common ancestor are always unmerged.
func Unmerged(ctx context.Context, h History, upstream, head plumbing.Hash) (bool, error) {
	if upstream == head {
		return false, nil
	}

	bases, err := h.MergeBases(upstream, head)
	if err != nil {
		return false, err
	}
	if len(bases) == 0 {
		return true, nil
	}

	headCommits, err := h.RevList(head, bases)
	if err != nil {
		return false, err
	}
	if len(headCommits) == 0 {
		return false, nil
	}

	upstreamCommits, err := h.RevList(upstream, bases)
	if err != nil {
		return false, err
	}
	upstreamIDs := make(map[PatchID]struct{}, len(upstreamCommits))
	for _, c := range upstreamCommits {
		id, err := h.PatchID(ctx, c)
		if err != nil {
			return false, err
		}
		upstreamIDs[id] = struct{}{}
	}

	for _, c := range headCommits {
		id, err := h.PatchID(ctx, c)
		if err != nil {
			return false, err
		}
		if _, ok := upstreamIDs[id]; !ok {
			return true, nil
		}
	}
	return false, nil
}
