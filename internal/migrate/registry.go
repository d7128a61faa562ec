package migrate

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry holds the episode graph. Registration validates the whole graph:
// unique revisions, known predecessors, a single root, a single head and no
// cycles. A valid graph is therefore one linear chain.
type Registry struct {
	mu       sync.RWMutex
	episodes map[string]Episode
	chain    []string
}

// NewRegistry builds a registry from episodes.
func NewRegistry(episodes ...Episode) (*Registry, error) {
	r := &Registry{episodes: map[string]Episode{}}
	if len(episodes) == 0 {
		return r, nil
	}
	if err := r.Register(episodes...); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds episodes. On error the registry is left unchanged.
func (r *Registry) Register(episodes ...Episode) error {
	if r == nil {
		return fmt.Errorf("%w: registry not configured", ErrInvalidGraph)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]Episode, len(r.episodes)+len(episodes))
	for rev, ep := range r.episodes {
		next[rev] = ep
	}
	for _, ep := range episodes {
		ep.Revision = strings.TrimSpace(ep.Revision)
		ep.DownRevision = strings.TrimSpace(ep.DownRevision)
		if ep.Revision == "" || ep.Upgrade == nil {
			return fmt.Errorf("%w: episode requires a revision and an upgrade", ErrInvalidGraph)
		}
		if _, dup := next[ep.Revision]; dup {
			return fmt.Errorf("%w: duplicate revision %q", ErrInvalidGraph, ep.Revision)
		}
		next[ep.Revision] = ep
	}

	chain, err := linearize(next)
	if err != nil {
		return err
	}
	r.episodes = next
	r.chain = chain
	return nil
}

func linearize(episodes map[string]Episode) ([]string, error) {
	var roots []string
	children := map[string][]string{}
	for rev, ep := range episodes {
		if ep.DownRevision == "" {
			roots = append(roots, rev)
			continue
		}
		if _, ok := episodes[ep.DownRevision]; !ok {
			return nil, fmt.Errorf("%w: %q follows unknown revision %q", ErrInvalidGraph, rev, ep.DownRevision)
		}
		children[ep.DownRevision] = append(children[ep.DownRevision], rev)
	}

	// Every node has a known predecessor, so walking down from any revision
	// either reaches a root or loops.
	for rev := range episodes {
		seen := map[string]struct{}{}
		for current := rev; current != ""; current = episodes[current].DownRevision {
			if _, ok := seen[current]; ok {
				return nil, fmt.Errorf("%w: cycle through %q", ErrInvalidGraph, current)
			}
			seen[current] = struct{}{}
		}
	}

	slices.Sort(roots)
	if len(roots) != 1 {
		return nil, fmt.Errorf("%w: expected one root, found %v", ErrInvalidGraph, roots)
	}
	var heads []string
	for rev := range episodes {
		if len(children[rev]) == 0 {
			heads = append(heads, rev)
		}
	}
	slices.Sort(heads)
	if len(heads) != 1 {
		return nil, fmt.Errorf("%w: expected one head, found %v", ErrInvalidGraph, heads)
	}

	chain := make([]string, 0, len(episodes))
	for current := roots[0]; ; {
		chain = append(chain, current)
		next := children[current]
		if len(next) == 0 {
			break
		}
		current = next[0]
	}
	return chain, nil
}

// Get returns the episode for revision.
func (r *Registry) Get(revision string) (Episode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.episodes[revision]
	return ep, ok
}

// Head returns the tip revision, or "" when empty.
func (r *Registry) Head() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.chain) == 0 {
		return ""
	}
	return r.chain[len(r.chain)-1]
}

// Heads lists the tip revisions. A validated registry has at most one.
func (r *Registry) Heads() []string {
	if head := r.Head(); head != "" {
		return []string{head}
	}
	return nil
}

// History returns the episodes from root to head.
func (r *Registry) History() []Episode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Episode, 0, len(r.chain))
	for _, rev := range r.chain {
		out = append(out, r.episodes[rev])
	}
	return out
}

// position returns the chain index of revision; "" maps to -1.
func (r *Registry) position(revision string) (int, error) {
	if revision == "" {
		return -1, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := slices.Index(r.chain, revision)
	if idx < 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRevision, revision)
	}
	return idx, nil
}

// slice returns the episodes at chain positions (from, to].
func (r *Registry) slice(from, to int) []Episode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Episode, 0, to-from)
	for _, rev := range r.chain[from+1 : to+1] {
		out = append(out, r.episodes[rev])
	}
	return out
}

// revisionAt returns the revision at idx, or "" for -1.
func (r *Registry) revisionAt(idx int) string {
	if idx < 0 {
		return ""
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chain[idx]
}
