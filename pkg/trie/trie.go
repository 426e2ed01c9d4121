// Package trie is the core engine: a fixed fan-out prefix trie over the
// lowercase ASCII alphabet with exact lookup and lexicographic autocomplete.
//
// The alphabet is 'a'..'z' only. That restriction is load-bearing: every
// node carries a 26-slot child array indexed by character arithmetic, so
// widening the alphabet means changing the node layout, not just the
// validation. Keys with any other byte are rejected up front and the tree
// is left untouched.
package trie

import (
	"errors"
	"fmt"
)

// AlphabetSize is the fixed node fan-out, one slot per letter 'a'..'z'.
const AlphabetSize = 26

// ErrInvalidCharacter is returned when a key or prefix contains a byte
// outside 'a'..'z'. The failing operation applies no mutation.
var ErrInvalidCharacter = errors.New("invalid character: keys are restricted to 'a'..'z'")

// node is one distinct prefix. Each child slot is exclusively owned by its
// parent, so the structure is a strict tree.
type node struct {
	children [AlphabetSize]*node
	end      bool
}

// Trie maps lowercase words to presence and supports prefix enumeration.
// Operations are synchronous and non-blocking; callers that share a Trie
// across goroutines must serialize access themselves.
type Trie struct {
	root  *node
	count int
	nodes int
}

// New returns an empty Trie: a lone root for the empty prefix, count zero.
func New() *Trie {
	return &Trie{root: &node{}, nodes: 1}
}

// Validate reports whether every byte of key is inside the trie alphabet.
// Exposed so callers can reject input before touching any other state.
func Validate(key string) error {
	for i := 0; i < len(key); i++ {
		if key[i] < 'a' || key[i] > 'z' {
			return fmt.Errorf("%w (byte %q at position %d)", ErrInvalidCharacter, key[i], i)
		}
	}
	return nil
}

// Insert adds key to the trie, creating intermediate nodes lazily, and
// returns the new distinct-word count. Inserting a word that is already
// present leaves the count unchanged. The empty key marks the root itself.
// On ErrInvalidCharacter nothing is created and the count is returned as-is.
func (t *Trie) Insert(key string) (int, error) {
	if err := Validate(key); err != nil {
		return t.count, err
	}
	n := t.root
	for i := 0; i < len(key); i++ {
		idx := key[i] - 'a'
		if n.children[idx] == nil {
			n.children[idx] = &node{}
			t.nodes++
		}
		n = n.children[idx]
	}
	if !n.end {
		n.end = true
		t.count++
	}
	return t.count, nil
}

// Search reports whether key was explicitly inserted. A stored prefix with
// no exact match reads as absent: the end-of-word flag decides, not node
// existence. The empty key queries the root's flag.
func (t *Trie) Search(key string) (bool, error) {
	if err := Validate(key); err != nil {
		return false, err
	}
	n := t.descend(key)
	return n != nil && n.end, nil
}

// Suggest returns every stored word that starts with prefix, in ascending
// lexicographic order. A prefix with no matching subtree yields an empty
// slice, not an error; so does a subtree that contains no complete word.
func (t *Trie) Suggest(prefix string) ([]string, error) {
	if err := Validate(prefix); err != nil {
		return nil, err
	}
	words := []string{}
	base := t.descend(prefix)
	if base == nil {
		return words, nil
	}
	collect(base, prefix, &words)
	return words, nil
}

// Len returns the number of distinct stored words. O(1).
func (t *Trie) Len() int {
	return t.count
}

// Nodes returns the number of live nodes, root included. Used by teardown
// instrumentation to check that Release visits everything exactly once.
func (t *Trie) Nodes() int {
	return t.nodes
}

// Release tears the tree down post-order, children before parents, clearing
// every child slot and flag, and returns how many nodes were released. The
// Trie is unusable afterwards; a second Release releases zero nodes.
func (t *Trie) Release() int {
	if t.root == nil {
		return 0
	}
	freed := release(t.root)
	t.root = nil
	t.count = 0
	t.nodes = 0
	return freed
}

// descend walks key one letter at a time and returns the node reached, or
// nil as soon as a needed child is absent. key must be pre-validated.
func (t *Trie) descend(key string) *node {
	n := t.root
	for i := 0; i < len(key); i++ {
		n = n.children[key[i]-'a']
		if n == nil {
			return nil
		}
	}
	return n
}

// collect does the suggestion DFS. Each recursive call gets its own
// extended copy of the built word, so sibling branches never see each
// other's suffixes. Children are visited a..z, which is what makes the
// output lexicographic.
func collect(n *node, built string, out *[]string) {
	if n.end {
		*out = append(*out, built)
	}
	for i := 0; i < AlphabetSize; i++ {
		if c := n.children[i]; c != nil {
			collect(c, built+string(rune('a'+i)), out)
		}
	}
}

// release frees a subtree post-order and counts the nodes visited. Absent
// children are skipped, not an error.
func release(n *node) int {
	freed := 1
	for i := 0; i < AlphabetSize; i++ {
		if c := n.children[i]; c != nil {
			freed += release(c)
			n.children[i] = nil
		}
	}
	n.end = false
	return freed
}
