// Package snapshot persists the value store to a versioned msgpack file
// and loads it back by replaying inserts. The format is this repo's own;
// it deliberately does not track any external host's snapshot layout.
package snapshot

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/trieserve/trieserve/internal/store"
)

// FormatVersion is bumped on any incompatible change to the envelope.
// Load rejects files written with a version it does not know.
const FormatVersion = 1

// File is the on-disk envelope.
type File struct {
	Version int     `msgpack:"v"`
	Entries []Entry `msgpack:"e"`
}

// Entry is one stored key. A trie value is flattened to its full word
// list (which is enough to rebuild it, order included); a string value is
// carried as-is.
type Entry struct {
	Key   string   `msgpack:"k"`
	Type  string   `msgpack:"t"`
	Words []string `msgpack:"w,omitempty"`
	Value string   `msgpack:"s,omitempty"`
}

// Save writes every key of the store to w. Keys are emitted in sorted
// order so identical stores produce identical snapshots.
func Save(w io.Writer, s *store.Store) error {
	file := File{Version: FormatVersion}

	for _, key := range s.Keys("") {
		switch s.Type(key) {
		case store.TypeTrie:
			words, err := s.Suggest(key, "")
			if err != nil {
				return fmt.Errorf("dumping trie at key %q: %w", key, err)
			}
			file.Entries = append(file.Entries, Entry{Key: key, Type: store.TypeTrie, Words: words})
		case store.TypeString:
			val, _, err := s.Get(key)
			if err != nil {
				return fmt.Errorf("dumping string at key %q: %w", key, err)
			}
			file.Entries = append(file.Entries, Entry{Key: key, Type: store.TypeString, Value: val})
		}
	}

	log.Debugf("saving snapshot with %d entries", len(file.Entries))
	return msgpack.NewEncoder(w).Encode(file)
}

// Load reads a snapshot from r and rebuilds a fresh store by replaying
// each entry. Unknown format versions and unknown entry types are
// rejected rather than skipped.
func Load(r io.Reader) (*store.Store, error) {
	var file File
	if err := msgpack.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if file.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d (want %d)", file.Version, FormatVersion)
	}

	s := store.New()
	for _, e := range file.Entries {
		switch e.Type {
		case store.TypeTrie:
			if err := s.CreateTrie(e.Key); err != nil {
				return nil, fmt.Errorf("replaying key %q: %w", e.Key, err)
			}
			for _, w := range e.Words {
				if _, err := s.Insert(e.Key, w); err != nil {
					return nil, fmt.Errorf("replaying word %q into key %q: %w", w, e.Key, err)
				}
			}
		case store.TypeString:
			s.Set(e.Key, e.Value)
		default:
			return nil, fmt.Errorf("unknown entry type %q for key %q", e.Type, e.Key)
		}
	}
	log.Debugf("loaded snapshot with %d entries", len(file.Entries))
	return s, nil
}

// SaveFile writes the snapshot atomically: to a temp file first, then
// renamed over the target.
func SaveFile(path string, s *store.Store) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := Save(f, s); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// LoadFile reads a snapshot from disk.
func LoadFile(path string) (*store.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Rewrite emits the store as a stream of plain-text commands, one per
// line, the shape an append-only-log rewrite would produce: every stored
// word becomes one "insert key word" line, every string one "set key
// value" line. Keys and values containing whitespace are not escaped;
// this surface is for inspection and simple replays.
func Rewrite(w io.Writer, s *store.Store) error {
	for _, key := range s.Keys("") {
		switch s.Type(key) {
		case store.TypeTrie:
			words, err := s.Suggest(key, "")
			if err != nil {
				return err
			}
			for _, word := range words {
				if _, err := fmt.Fprintf(w, "insert %s %s\n", key, word); err != nil {
					return err
				}
			}
		case store.TypeString:
			val, _, err := s.Get(key)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "set %s %s\n", key, val); err != nil {
				return err
			}
		}
	}
	return nil
}
