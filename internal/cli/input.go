// Package cli handles cmd line input against the value store for DBG and testing the engine interactively
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/trieserve/trieserve/internal/store"
)

// InputHandler processes user commands from an input stream, dispatching
// them against the store and printing results with timing info.
type InputHandler struct {
	store        *store.Store
	suggestLimit int
	requestCount int
	out          io.Writer
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(st *store.Store, limit int, out io.Writer) *InputHandler {
	return &InputHandler{
		store:        st,
		suggestLimit: limit,
		out:          out,
	}
}

// Start begins the interface loop.
// It continuously prompts for input, reads a line, and passes the trimmed
// command to handleLine for processing. Loop terminates on stream end.
func (h *InputHandler) Start(in io.Reader) error {
	log.Print("trieserve CLI")
	reader := bufio.NewReader(in)
	log.Print("commands: insert, search, suggest, len, set, get, del, type, keys (Ctrl+D to exit)")

	for {
		log.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		h.handleLine(line)
	}
}

// handleLine parses and executes a single command. Argument counts follow
// the wire protocol: too few or too many tokens is a wrong-arity error,
// not a best-effort guess.
func (h *InputHandler) handleLine(line string) {
	h.requestCount++
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	start := time.Now()

	switch cmd {
	case "insert":
		if !requireArity(cmd, args, 2) {
			return
		}
		n, err := h.store.Insert(args[0], args[1])
		if err != nil {
			log.Errorf("%v", err)
			return
		}
		fmt.Fprintf(h.out, "(integer) %d\n", n)

	case "search":
		if !requireArity(cmd, args, 2) {
			return
		}
		found, err := h.store.Search(args[0], args[1])
		if err != nil {
			log.Errorf("%v", err)
			return
		}
		if found {
			fmt.Fprintln(h.out, "YES")
		} else {
			fmt.Fprintln(h.out, "NO")
		}

	case "suggest":
		// "suggest key" means the empty prefix: list everything.
		if len(args) < 1 || len(args) > 3 {
			wrongArity(cmd)
			return
		}
		prefix := ""
		if len(args) >= 2 {
			prefix = args[1]
		}
		limit := h.suggestLimit
		if len(args) == 3 {
			n, err := strconv.Atoi(args[2])
			if err != nil || n < 1 {
				log.Errorf("invalid limit: %s", args[2])
				return
			}
			limit = n
		}
		words, err := h.store.Suggest(args[0], prefix)
		if err != nil {
			log.Errorf("%v", err)
			return
		}
		if limit > 0 && len(words) > limit {
			words = words[:limit]
		}
		elapsed := time.Since(start)
		log.Debugf("Took [ %v ] for prefix '%s'", elapsed, prefix)
		if len(words) == 0 {
			log.Warnf("No suggestions found for prefix: '%s'", prefix)
			return
		}
		for i, w := range words {
			fmt.Fprintf(h.out, "%2d. %s\n", i+1, w)
		}

	case "len":
		if !requireArity(cmd, args, 1) {
			return
		}
		n, err := h.store.Len(args[0])
		if err != nil {
			log.Errorf("%v", err)
			return
		}
		fmt.Fprintf(h.out, "(integer) %d\n", n)

	case "set":
		if !requireArity(cmd, args, 2) {
			return
		}
		h.store.Set(args[0], args[1])
		fmt.Fprintln(h.out, "OK")

	case "get":
		if !requireArity(cmd, args, 1) {
			return
		}
		val, ok, err := h.store.Get(args[0])
		if err != nil {
			log.Errorf("%v", err)
			return
		}
		if !ok {
			fmt.Fprintln(h.out, "(nil)")
			return
		}
		fmt.Fprintf(h.out, "%q\n", val)

	case "del":
		if !requireArity(cmd, args, 1) {
			return
		}
		n := 0
		if h.store.Del(args[0]) {
			n = 1
		}
		fmt.Fprintf(h.out, "(integer) %d\n", n)

	case "type":
		if !requireArity(cmd, args, 1) {
			return
		}
		fmt.Fprintln(h.out, h.store.Type(args[0]))

	case "keys":
		if len(args) > 1 {
			wrongArity(cmd)
			return
		}
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		names := h.store.Keys(prefix)
		if len(names) == 0 {
			fmt.Fprintln(h.out, "(empty)")
			return
		}
		for i, k := range names {
			fmt.Fprintf(h.out, "%2d. %s\n", i+1, k)
		}

	default:
		log.Errorf("unknown command '%s'", cmd)
	}
}

func requireArity(cmd string, args []string, want int) bool {
	if len(args) != want {
		wrongArity(cmd)
		return false
	}
	return true
}

func wrongArity(cmd string) {
	log.Errorf("wrong number of arguments for '%s' command", cmd)
}
