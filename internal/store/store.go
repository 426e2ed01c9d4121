// Package store is the in-process host boundary: a keyed map of typed
// values that dispatches trie operations the way the external runtime
// would, including lazy value creation and wrong-type signaling.
package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/trieserve/trieserve/pkg/trie"
)

// ErrWrongType is the standard signal for an operation against a key
// holding a differently typed value.
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

// Value type names as reported by Type.
const (
	TypeNone   = "none"
	TypeTrie   = "trie"
	TypeString = "string"
)

// Store maps keys to typed values. A single RWMutex serializes access, so
// at most one command mutates a given value at a time; the trie engine
// itself carries no locking and relies on this.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
	keys   *patricia.Trie // key names, for prefix scans over the keyspace
}

// New returns an empty store.
func New() *Store {
	return &Store{
		values: make(map[string]any),
		keys:   patricia.NewTrie(),
	}
}

// Insert adds word to the trie stored at key, creating an empty trie first
// if the key does not exist yet. Returns the trie's new word count.
// The word is validated before any state changes, so a rejected insert
// creates neither the value nor the key.
func (s *Store) Insert(key, word string) (int, error) {
	if err := trie.Validate(word); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok {
		t := trie.New()
		s.values[key] = t
		s.keys.Insert(patricia.Prefix(key), struct{}{})
		log.Debugf("created trie value for key %q", key)
		return t.Insert(word)
	}
	t, ok := v.(*trie.Trie)
	if !ok {
		return 0, ErrWrongType
	}
	return t.Insert(word)
}

// Search reports whether word was inserted into the trie at key. A missing
// key behaves as an empty trie.
func (s *Store) Search(key, word string) (bool, error) {
	if err := trie.Validate(word); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.trieAt(key)
	if err != nil || t == nil {
		return false, err
	}
	return t.Search(word)
}

// Suggest returns the stored words under key that start with prefix, in
// lexicographic order. A missing key yields an empty slice.
func (s *Store) Suggest(key, prefix string) ([]string, error) {
	if err := trie.Validate(prefix); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.trieAt(key)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return []string{}, nil
	}
	return t.Suggest(prefix)
}

// Len returns the distinct word count of the trie at key; 0 for a missing
// key.
func (s *Store) Len(key string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.trieAt(key)
	if err != nil || t == nil {
		return 0, err
	}
	return t.Len(), nil
}

// CreateTrie ensures an empty trie value exists at key. Used by snapshot
// replay so that a trie with no words survives a round trip.
func (s *Store) CreateTrie(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok {
		s.values[key] = trie.New()
		s.keys.Insert(patricia.Prefix(key), struct{}{})
		return nil
	}
	if _, ok := v.(*trie.Trie); !ok {
		return ErrWrongType
	}
	return nil
}

// Set stores a plain string at key, replacing any existing value. A
// replaced trie is released first.
func (s *Store) Set(key, val string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.values[key].(*trie.Trie); ok {
		freed := t.Release()
		log.Debugf("released %d nodes replacing trie at key %q", freed, key)
	}
	if _, exists := s.values[key]; !exists {
		s.keys.Insert(patricia.Prefix(key), struct{}{})
	}
	s.values[key] = val
}

// Get returns the string stored at key. A missing key reports ok=false;
// a trie value reports ErrWrongType.
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", false, nil
	}
	str, ok := v.(string)
	if !ok {
		return "", false, ErrWrongType
	}
	return str, true, nil
}

// Del removes key and returns whether it existed. A trie value is released
// node by node before the key is dropped.
func (s *Store) Del(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok {
		return false
	}
	if t, ok := v.(*trie.Trie); ok {
		freed := t.Release()
		log.Debugf("released %d nodes deleting key %q", freed, key)
	}
	delete(s.values, key)
	s.keys.Delete(patricia.Prefix(key))
	return true
}

// Type returns the value type name at key: "trie", "string", or "none".
func (s *Store) Type(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.values[key].(type) {
	case *trie.Trie:
		return TypeTrie
	case string:
		return TypeString
	default:
		return TypeNone
	}
}

// Keys returns every key starting with prefix, sorted. The scan runs over
// the patricia keyspace index rather than the value map, so arbitrary key
// names (not limited to the trie alphabet) are fine.
func (s *Store) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := []string{}
	err := s.keys.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, _ patricia.Item) error {
		names = append(names, string(p))
		return nil
	})
	if err != nil {
		log.Errorf("visiting keyspace subtree: %v", err)
	}
	sort.Strings(names)
	return names
}

// Release tears down every trie value and clears the store. Returns the
// total number of trie nodes released.
func (s *Store) Release() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	freed := 0
	for key, v := range s.values {
		if t, ok := v.(*trie.Trie); ok {
			freed += t.Release()
		}
		delete(s.values, key)
		s.keys.Delete(patricia.Prefix(key))
	}
	return freed
}

// trieAt fetches the trie at key under a held lock. Missing key returns
// (nil, nil); a non-trie value returns ErrWrongType.
func (s *Store) trieAt(key string) (*trie.Trie, error) {
	v, ok := s.values[key]
	if !ok {
		return nil, nil
	}
	t, ok := v.(*trie.Trie)
	if !ok {
		return nil, ErrWrongType
	}
	return t, nil
}
