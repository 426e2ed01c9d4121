package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/trieserve/trieserve/internal/store"
	"github.com/trieserve/trieserve/pkg/config"
	"github.com/trieserve/trieserve/pkg/trie"
)

// Fixed reply tokens for search results.
const (
	TokenYes = "YES"
	TokenNo  = "NO"
)

// Server handles the msgpack IPC for trie store operations.
type Server struct {
	store        *store.Store
	cfg          *config.Config
	dec          *msgpack.Decoder
	enc          *msgpack.Encoder
	requestCount int
}

// NewServer creates a server using stdin/stdout for IPC.
func NewServer(st *store.Store, cfg *config.Config) *Server {
	return NewServerWithIO(st, cfg, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server over arbitrary streams. Used directly
// by tests and by embedders that tunnel the protocol over something other
// than the process pipes.
func NewServerWithIO(st *store.Store, cfg *config.Config, r io.Reader, w io.Writer) *Server {
	return &Server{
		store: st,
		cfg:   cfg,
		dec:   msgpack.NewDecoder(r),
		enc:   msgpack.NewEncoder(w),
	}
}

// Start signals readiness and then processes requests until the input
// stream ends. Requests are handled synchronously, one at a time, which
// is what gives every stored value its single-writer guarantee.
func (s *Server) Start() error {
	log.Debug("starting trieserve IPC server")

	if err := s.enc.Encode(StatusReply{Status: "ready"}); err != nil {
		return err
	}

	for {
		var req Request
		if err := s.dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("input stream closed, shutting down")
				return nil
			}
			log.Errorf("decoding request: %v", err)
			return err
		}
		s.requestCount++
		s.handleRequest(req)
	}
}

// handleRequest dispatches a single decoded request.
func (s *Server) handleRequest(req Request) {
	start := time.Now()

	switch req.Op {
	case "insert":
		if !s.requireKeyArg(req) {
			return
		}
		n, err := s.store.Insert(req.Key, *req.Arg)
		if err != nil {
			s.sendOpError(req, err)
			return
		}
		s.sendReply(Reply{ID: req.ID, Count: &n}, start)

	case "search":
		if !s.requireKeyArg(req) {
			return
		}
		found, err := s.store.Search(req.Key, *req.Arg)
		if err != nil {
			s.sendOpError(req, err)
			return
		}
		token := TokenNo
		if found {
			token = TokenYes
		}
		s.sendReply(Reply{ID: req.ID, Value: token}, start)

	case "suggest":
		if !s.requireKeyArg(req) {
			return
		}
		words, err := s.store.Suggest(req.Key, *req.Arg)
		if err != nil {
			s.sendOpError(req, err)
			return
		}
		words = s.applyLimit(words, req.Limit)
		n := len(words)
		s.sendReply(Reply{ID: req.ID, Words: words, Count: &n}, start)

	case "len":
		if !s.requireKey(req) {
			return
		}
		n, err := s.store.Len(req.Key)
		if err != nil {
			s.sendOpError(req, err)
			return
		}
		s.sendReply(Reply{ID: req.ID, Count: &n}, start)

	case "set":
		if !s.requireKeyArg(req) {
			return
		}
		s.store.Set(req.Key, *req.Arg)
		s.sendReply(Reply{ID: req.ID, Value: "OK"}, start)

	case "get":
		if !s.requireKey(req) {
			return
		}
		val, ok, err := s.store.Get(req.Key)
		if err != nil {
			s.sendOpError(req, err)
			return
		}
		if !ok {
			s.sendReply(Reply{ID: req.ID, Nil: true}, start)
			return
		}
		s.sendReply(Reply{ID: req.ID, Value: val}, start)

	case "del":
		if !s.requireKey(req) {
			return
		}
		n := 0
		if s.store.Del(req.Key) {
			n = 1
		}
		s.sendReply(Reply{ID: req.ID, Count: &n}, start)

	case "type":
		if !s.requireKey(req) {
			return
		}
		s.sendReply(Reply{ID: req.ID, Value: s.store.Type(req.Key)}, start)

	case "keys":
		prefix := ""
		if req.Arg != nil {
			prefix = *req.Arg
		}
		names := s.store.Keys(prefix)
		n := len(names)
		s.sendReply(Reply{ID: req.ID, Words: names, Count: &n}, start)

	default:
		s.sendError(req.ID, fmt.Sprintf("ERR unknown command '%s'", req.Op), 400)
	}
}

// requireKeyArg enforces the arity of two-argument commands; Arg must be
// present (an empty string counts as present) and Key must be named.
func (s *Server) requireKeyArg(req Request) bool {
	if req.Key == "" || req.Arg == nil {
		s.sendError(req.ID, fmt.Sprintf("ERR wrong number of arguments for '%s' command", req.Op), 400)
		return false
	}
	if req.Op != "set" && !s.checkArgLength(req) {
		return false
	}
	return true
}

// requireKey enforces the arity of single-argument commands.
func (s *Server) requireKey(req Request) bool {
	if req.Key == "" {
		s.sendError(req.ID, fmt.Sprintf("ERR wrong number of arguments for '%s' command", req.Op), 400)
		return false
	}
	return true
}

// checkArgLength rejects words and prefixes over the configured cap before
// they reach the engine.
func (s *Server) checkArgLength(req Request) bool {
	maxLen := s.cfg.Server.MaxWordLen
	if req.Arg != nil && maxLen > 0 && len(*req.Arg) > maxLen {
		s.sendError(req.ID, fmt.Sprintf("ERR argument exceeds maximum length of %d", maxLen), 400)
		log.Debugf("argument too long in request %s", req.ID)
		return false
	}
	return true
}

// applyLimit truncates an ordered suggestion list. The engine returns the
// full set; limiting is strictly a protocol concern, applied after the
// lexicographic order is fixed.
func (s *Server) applyLimit(words []string, limit int) []string {
	maxLimit := s.cfg.Server.MaxLimit
	if limit < 1 || (maxLimit > 0 && limit > maxLimit) {
		limit = maxLimit
	}
	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}
	return words
}

// sendOpError maps store/engine errors onto protocol error replies.
func (s *Server) sendOpError(req Request, err error) {
	switch {
	case errors.Is(err, store.ErrWrongType):
		s.sendError(req.ID, store.ErrWrongType.Error(), 409)
	case errors.Is(err, trie.ErrInvalidCharacter):
		s.sendError(req.ID, fmt.Sprintf("ERR %v", err), 400)
	default:
		log.Errorf("op %s on key %q: %v", req.Op, req.Key, err)
		s.sendError(req.ID, "ERR internal error", 500)
	}
}

// sendReply encodes a success reply, stamping the elapsed time in
// microseconds.
func (s *Server) sendReply(reply Reply, start time.Time) {
	reply.TimeTaken = time.Since(start).Microseconds()
	if err := s.enc.Encode(reply); err != nil {
		log.Errorf("encoding reply: %v", err)
	}
}

// sendError encodes an error reply.
func (s *Server) sendError(id, message string, code int) {
	if err := s.enc.Encode(ErrorReply{ID: id, Error: message, Code: code}); err != nil {
		log.Errorf("encoding error reply: %v", err)
	}
}
