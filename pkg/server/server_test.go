package server

import (
	"bytes"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/trieserve/trieserve/internal/store"
	"github.com/trieserve/trieserve/pkg/config"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

// wireReply is a superset of every reply shape the server can emit, so a
// test can decode anything off the stream and inspect what came back.
type wireReply struct {
	ID     string   `msgpack:"id"`
	Count  *int     `msgpack:"n"`
	Value  string   `msgpack:"v"`
	Words  []string `msgpack:"s"`
	Nil    bool     `msgpack:"nil"`
	Error  string   `msgpack:"e"`
	Code   int      `msgpack:"c"`
	Status string   `msgpack:"status"`
}

func strptr(s string) *string { return &s }

// runServer encodes the given requests, runs a server over them until the
// stream drains, and returns every reply after the ready status.
func runServer(t *testing.T, requests []Request) []wireReply {
	t.Helper()

	var in bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	for _, req := range requests {
		if err := enc.Encode(req); err != nil {
			t.Fatalf("encoding request: %v", err)
		}
	}

	var out bytes.Buffer
	srv := NewServerWithIO(store.New(), config.DefaultConfig(), &in, &out)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	dec := msgpack.NewDecoder(&out)
	var ready wireReply
	if err := dec.Decode(&ready); err != nil {
		t.Fatalf("decoding ready status: %v", err)
	}
	if ready.Status != "ready" {
		t.Fatalf("first message status = %q, want ready", ready.Status)
	}

	var replies []wireReply
	for {
		var r wireReply
		if err := dec.Decode(&r); err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("decoding reply: %v", err)
		}
		replies = append(replies, r)
	}
	return replies
}

func TestInsertLenSearchSuggest(t *testing.T) {
	replies := runServer(t, []Request{
		{ID: "1", Op: "insert", Key: "dict", Arg: strptr("cat")},
		{ID: "2", Op: "insert", Key: "dict", Arg: strptr("car")},
		{ID: "3", Op: "insert", Key: "dict", Arg: strptr("cart")},
		{ID: "4", Op: "insert", Key: "dict", Arg: strptr("dog")},
		{ID: "5", Op: "len", Key: "dict"},
		{ID: "6", Op: "search", Key: "dict", Arg: strptr("car")},
		{ID: "7", Op: "search", Key: "dict", Arg: strptr("ca")},
		{ID: "8", Op: "suggest", Key: "dict", Arg: strptr("ca")},
		{ID: "9", Op: "suggest", Key: "dict", Arg: strptr("z")},
	})
	if len(replies) != 9 {
		t.Fatalf("got %d replies, want 9", len(replies))
	}

	if replies[4].Count == nil || *replies[4].Count != 4 {
		t.Errorf("len reply = %+v, want count 4", replies[4])
	}
	if replies[5].Value != TokenYes {
		t.Errorf("search(car) = %q, want %q", replies[5].Value, TokenYes)
	}
	if replies[6].Value != TokenNo {
		t.Errorf("search(ca) = %q, want %q", replies[6].Value, TokenNo)
	}
	if want := []string{"car", "cart", "cat"}; !reflect.DeepEqual(replies[7].Words, want) {
		t.Errorf("suggest(ca) = %v, want %v", replies[7].Words, want)
	}
	if len(replies[8].Words) != 0 {
		t.Errorf("suggest(z) = %v, want empty", replies[8].Words)
	}
}

func TestSuggestLimit(t *testing.T) {
	replies := runServer(t, []Request{
		{ID: "1", Op: "insert", Key: "d", Arg: strptr("aa")},
		{ID: "2", Op: "insert", Key: "d", Arg: strptr("ab")},
		{ID: "3", Op: "insert", Key: "d", Arg: strptr("ac")},
		{ID: "4", Op: "suggest", Key: "d", Arg: strptr("a"), Limit: 2},
	})
	if want := []string{"aa", "ab"}; !reflect.DeepEqual(replies[3].Words, want) {
		t.Errorf("limited suggest = %v, want %v", replies[3].Words, want)
	}
}

func TestWrongArityReply(t *testing.T) {
	replies := runServer(t, []Request{
		{ID: "1", Op: "insert", Key: "dict"}, // missing arg
		{ID: "2", Op: "len"},                 // missing key
	})
	for i, r := range replies {
		if !strings.Contains(r.Error, "wrong number of arguments") {
			t.Errorf("reply %d error = %q, want wrong-arity message", i, r.Error)
		}
		if r.Code != 400 {
			t.Errorf("reply %d code = %d, want 400", i, r.Code)
		}
	}
}

func TestWrongTypeReply(t *testing.T) {
	replies := runServer(t, []Request{
		{ID: "1", Op: "set", Key: "k", Arg: strptr("plain")},
		{ID: "2", Op: "insert", Key: "k", Arg: strptr("cat")},
	})
	if !strings.HasPrefix(replies[1].Error, "WRONGTYPE") {
		t.Errorf("error = %q, want WRONGTYPE prefix", replies[1].Error)
	}
	if replies[1].Code != 409 {
		t.Errorf("code = %d, want 409", replies[1].Code)
	}
}

func TestInvalidCharacterReply(t *testing.T) {
	replies := runServer(t, []Request{
		{ID: "1", Op: "insert", Key: "dict", Arg: strptr("Ab1")},
		{ID: "2", Op: "len", Key: "dict"},
	})
	if !strings.Contains(replies[0].Error, "invalid character") {
		t.Errorf("error = %q, want invalid character message", replies[0].Error)
	}
	// The rejected insert must not have created the trie value either.
	if replies[1].Count == nil || *replies[1].Count != 0 {
		t.Errorf("len after rejected insert = %+v, want 0", replies[1])
	}
}

func TestStringOpsAndKeys(t *testing.T) {
	replies := runServer(t, []Request{
		{ID: "1", Op: "set", Key: "greeting", Arg: strptr("hello")},
		{ID: "2", Op: "get", Key: "greeting"},
		{ID: "3", Op: "get", Key: "missing"},
		{ID: "4", Op: "insert", Key: "dict", Arg: strptr("cat")},
		{ID: "5", Op: "type", Key: "dict"},
		{ID: "6", Op: "keys"},
		{ID: "7", Op: "del", Key: "greeting"},
		{ID: "8", Op: "keys", Arg: strptr("gree")},
	})

	if replies[0].Value != "OK" {
		t.Errorf("set reply = %q, want OK", replies[0].Value)
	}
	if replies[1].Value != "hello" {
		t.Errorf("get = %q, want hello", replies[1].Value)
	}
	if !replies[2].Nil {
		t.Errorf("get on missing key = %+v, want nil reply", replies[2])
	}
	if replies[4].Value != store.TypeTrie {
		t.Errorf("type = %q, want %q", replies[4].Value, store.TypeTrie)
	}
	if want := []string{"dict", "greeting"}; !reflect.DeepEqual(replies[5].Words, want) {
		t.Errorf("keys = %v, want %v", replies[5].Words, want)
	}
	if replies[6].Count == nil || *replies[6].Count != 1 {
		t.Errorf("del reply = %+v, want count 1", replies[6])
	}
	if len(replies[7].Words) != 0 {
		t.Errorf("keys(gree) after del = %v, want empty", replies[7].Words)
	}
}

func TestUnknownCommand(t *testing.T) {
	replies := runServer(t, []Request{{ID: "1", Op: "flush"}})
	if !strings.Contains(replies[0].Error, "unknown command") {
		t.Errorf("error = %q, want unknown command message", replies[0].Error)
	}
}
