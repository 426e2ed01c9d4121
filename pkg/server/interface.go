/*
Package server implements msgpack IPC for the trie value store.

The server speaks binary msgpack over stdin/stdout on a request/response
model: clients send one structured message per operation and receive one
reply. Each message carries an ID field echoed back in the reply, plus
elapsed-time info for profiling.

A request selects an operation with "op" and addresses a stored value
with "k":

	{"id": "req_001", "op": "insert", "k": "dict", "a": "cat"}

Replies mirror the host conventions of the command set: insert, len and
del answer with an integer; search answers with the fixed token YES or
NO; suggest and keys answer with an ordered string array:

	{"id": "req_001", "n": 1, "t": 120}
	{"id": "req_002", "v": "YES", "t": 85}
	{"id": "req_003", "s": ["car", "cart", "cat"], "n": 3, "t": 140}

Ill-formed requests get an error reply instead, never silence. A missing
argument answers with the standard wrong-arity message, an operation
against a differently typed value with the WRONGTYPE message, and a key
or word outside the a..z alphabet with the engine's validation error.
*/
package server

// Request is one incoming operation. Arg is a pointer so that a present
// empty string (a legal word and a legal prefix) is distinguishable from
// a missing argument.
type Request struct {
	ID    string  `msgpack:"id"`
	Op    string  `msgpack:"op"`
	Key   string  `msgpack:"k,omitempty"`
	Arg   *string `msgpack:"a,omitempty"`
	Limit int     `msgpack:"l,omitempty"`
}

// Reply is the single success response shape. Fields that do not apply to
// an operation are omitted from the wire encoding.
type Reply struct {
	ID        string   `msgpack:"id"`
	Count     *int     `msgpack:"n,omitempty"`
	Value     string   `msgpack:"v,omitempty"`
	Words     []string `msgpack:"s,omitempty"`
	Nil       bool     `msgpack:"nil,omitempty"`
	TimeTaken int64    `msgpack:"t"`
}

// ErrorReply holds basic error information for failed requests.
type ErrorReply struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}

// StatusReply is sent once at startup to signal readiness.
type StatusReply struct {
	Status string `msgpack:"status"`
}
