package snapshot

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/trieserve/trieserve/internal/store"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

func seedStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New()
	for _, w := range []string{"cat", "car", "cart", "dog"} {
		if _, err := s.Insert("dict", w); err != nil {
			t.Fatalf("Insert(%q): %v", w, err)
		}
	}
	s.Set("greeting", "hello")
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := seedStore(t)
	if err := s.CreateTrie("empty"); err != nil {
		t.Fatalf("CreateTrie: %v", err)
	}

	var buf bytes.Buffer
	if err := Save(&buf, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	words, err := loaded.Suggest("dict", "")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if want := []string{"car", "cart", "cat", "dog"}; !reflect.DeepEqual(words, want) {
		t.Errorf("Suggest after reload = %v, want %v", words, want)
	}
	if n, _ := loaded.Len("dict"); n != 4 {
		t.Errorf("Len after reload = %d, want 4", n)
	}

	val, ok, err := loaded.Get("greeting")
	if err != nil || !ok || val != "hello" {
		t.Errorf("Get after reload = (%q, %v, %v), want (hello, true, nil)", val, ok, err)
	}

	// A trie with no words must survive the round trip as a trie.
	if loaded.Type("empty") != store.TypeTrie {
		t.Errorf("Type(empty) = %q, want %q", loaded.Type("empty"), store.TypeTrie)
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(File{Version: 99}); err != nil {
		t.Fatalf("encoding: %v", err)
	}

	if _, err := Load(&buf); err == nil || !strings.Contains(err.Error(), "version") {
		t.Errorf("Load err = %v, want unsupported version error", err)
	}
}

func TestSaveFileLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.snap")
	s := seedStore(t)

	if err := SaveFile(path, s); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if n, _ := loaded.Len("dict"); n != 4 {
		t.Errorf("Len = %d, want 4", n)
	}
}

func TestRewriteEmitsOneCommandPerWord(t *testing.T) {
	s := seedStore(t)

	var buf bytes.Buffer
	if err := Rewrite(&buf, s); err != nil {
		t.Fatalf("Rewrite: %v", err)
	}

	got := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	want := []string{
		"insert dict car",
		"insert dict cart",
		"insert dict cat",
		"insert dict dog",
		"set greeting hello",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rewrite output = %v, want %v", got, want)
	}
}
