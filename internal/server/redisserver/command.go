package redisserver

import (
	"errors"
	"strconv"
	"strings"

	"github.com/yndnr/kvmesh-go/internal/core/domain"
	"github.com/yndnr/kvmesh-go/internal/storage/memory"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
)

// CommandHandler decodes parsed frames into store operations and
// writes the RESP reply.
type CommandHandler struct {
	store   *memory.Store
	log     logger.Logger
	metrics *metric.Registry
}

// NewCommandHandler creates a CommandHandler.
func NewCommandHandler(store *memory.Store, log logger.Logger, metrics *metric.Registry) *CommandHandler {
	if log == nil {
		log = logger.Default()
	}
	return &CommandHandler{
		store:   store,
		log:     log,
		metrics: metrics,
	}
}

// Handle executes one command and writes its reply to conn's writer.
// Store or dispatcher panics are contained here so one bad request
// cannot take the connection's worker down without a reply.
func (h *CommandHandler) Handle(conn *Conn, args [][]byte) {
	if len(args) == 0 {
		_ = WriteError(conn.bw, "ERR empty command")
		return
	}

	cmd := normalizeCommandName(args[0])
	h.log.Request(conn.id, commandLine(cmd, args))

	defer func() {
		if r := recover(); r != nil {
			h.log.Warn("command dispatch panicked", "command", cmd, "panic", r)
			_ = WriteError(conn.bw, "ERR internal error")
		}
	}()

	if h.metrics != nil {
		h.metrics.CommandsTotal.WithLabelValues(cmd).Inc()
	}

	switch cmd {
	case "PING":
		h.handlePing(conn, args)
	case "ECHO":
		h.handleEcho(conn, args)
	case "SET":
		h.handleSet(conn, args)
	case "GET":
		h.handleGet(conn, args)
	case "DEL", "UNLINK":
		h.handleDel(conn, args)
	case "FLUSHALL":
		h.handleFlushAll(conn, args)
	case "KEYS":
		h.handleKeys(conn, args)
	case "TYPE":
		h.handleType(conn, args)
	case "EXPIRE":
		h.handleExpire(conn, args)
	case "TTL":
		h.handleTTL(conn, args)
	case "RENAME":
		h.handleRename(conn, args)
	case "INCR":
		h.handleIncr(conn, args)
	case "LPUSH":
		h.handlePush(conn, args, h.store.LPush)
	case "RPUSH":
		h.handlePush(conn, args, h.store.RPush)
	case "LPOP":
		h.handlePop(conn, args, h.store.LPop)
	case "RPOP":
		h.handlePop(conn, args, h.store.RPop)
	case "LLEN":
		h.handleLLen(conn, args)
	case "LRANGE":
		h.handleLRange(conn, args)
	case "LREM":
		h.handleLRem(conn, args)
	case "LINDEX":
		h.handleLIndex(conn, args)
	case "LSET":
		h.handleLSet(conn, args)
	case "LGET":
		h.handleLGet(conn, args)
	case "HSET":
		h.handleHSet(conn, args)
	case "HGET":
		h.handleHGet(conn, args)
	case "HEXISTS":
		h.handleHExists(conn, args)
	case "HDEL":
		h.handleHDel(conn, args)
	case "HGETALL":
		h.handleHGetAll(conn, args)
	case "HKEYS":
		h.handleHKeys(conn, args)
	case "HVALS":
		h.handleHVals(conn, args)
	case "HLEN":
		h.handleHLen(conn, args)
	case "HMSET":
		h.handleHMSet(conn, args)
	default:
		h.log.Warn("unknown command", "command", cmd, "client", conn.id)
		_ = WriteError(conn.bw, "ERR unknown command")
	}

	h.log.Response(conn.id, cmd)
}

// commandLine renders a request for debug logging.
func commandLine(cmd string, args [][]byte) string {
	if len(args) == 1 {
		return cmd
	}
	var b strings.Builder
	b.WriteString(cmd)
	for _, a := range args[1:] {
		b.WriteByte(' ')
		b.Write(a)
	}
	return b.String()
}

// writeStoreError maps store sentinel errors onto RESP error replies.
func writeStoreError(conn *Conn, err error) {
	switch {
	case errors.Is(err, domain.ErrNotInteger):
		_ = WriteError(conn.bw, "ERR value is not an integer")
	case errors.Is(err, domain.ErrWrongType):
		_ = WriteError(conn.bw, "ERR wrong type for operation")
	case errors.Is(err, domain.ErrIndexOutOfRange):
		_ = WriteError(conn.bw, "ERR index out of range")
	case errors.Is(err, domain.ErrKeyNotFound):
		_ = WriteError(conn.bw, "ERR no such key")
	default:
		_ = WriteError(conn.bw, "ERR internal error")
	}
}

func wrongArity(conn *Conn, cmd string) {
	_ = WriteError(conn.bw, "ERR wrong number of arguments for '"+cmd+"' command")
}

func parseIntArg(b []byte) (int64, bool) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	return n, err == nil
}

func (h *CommandHandler) handlePing(conn *Conn, args [][]byte) {
	if len(args) > 1 {
		_ = WriteBulk(conn.bw, args[1])
		return
	}
	_ = WriteSimpleString(conn.bw, "PONG")
}

func (h *CommandHandler) handleEcho(conn *Conn, args [][]byte) {
	if len(args) != 2 {
		wrongArity(conn, "ECHO")
		return
	}
	_ = WriteBulk(conn.bw, args[1])
}

// SET <key> <value> [EX seconds | PX milliseconds]
func (h *CommandHandler) handleSet(conn *Conn, args [][]byte) {
	if len(args) != 3 && len(args) != 5 {
		wrongArity(conn, "SET")
		return
	}

	key := string(args[1])
	h.store.Set(key, args[2])

	if len(args) == 5 {
		n, ok := parseIntArg(args[4])
		if !ok {
			_ = WriteError(conn.bw, "ERR value is not an integer or out of range")
			return
		}
		switch normalizeCommandName(args[3]) {
		case "EX":
			h.store.Expire(key, n)
		case "PX":
			// Whole seconds, rounded up.
			h.store.Expire(key, (n+999)/1000)
		default:
			_ = WriteError(conn.bw, "ERR syntax error")
			return
		}
	}

	_ = WriteSimpleString(conn.bw, "OK")
}

func (h *CommandHandler) handleGet(conn *Conn, args [][]byte) {
	if len(args) != 2 {
		wrongArity(conn, "GET")
		return
	}
	val, err := h.store.Get(string(args[1]))
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			_ = WriteNullBulk(conn.bw)
			return
		}
		writeStoreError(conn, err)
		return
	}
	_ = WriteBulk(conn.bw, val)
}

// DEL <key> [key ...]
func (h *CommandHandler) handleDel(conn *Conn, args [][]byte) {
	if len(args) < 2 {
		wrongArity(conn, "DEL")
		return
	}
	var removed int64
	for _, key := range args[1:] {
		if h.store.Del(string(key)) {
			removed++
		}
	}
	_ = WriteInteger(conn.bw, removed)
}

func (h *CommandHandler) handleFlushAll(conn *Conn, args [][]byte) {
	h.store.FlushAll()
	_ = WriteSimpleString(conn.bw, "OK")
}

// KEYS [pattern]
//
// With no pattern (or "*") every live key is returned.
func (h *CommandHandler) handleKeys(conn *Conn, args [][]byte) {
	if len(args) > 2 {
		wrongArity(conn, "KEYS")
		return
	}
	pattern := "*"
	if len(args) == 2 {
		pattern = string(args[1])
	}

	keys := h.store.Keys()
	matched := keys[:0:0]
	for _, k := range keys {
		if matchGlob(pattern, k) {
			matched = append(matched, k)
		}
	}

	_ = WriteArrayHeader(conn.bw, len(matched))
	for _, k := range matched {
		_ = WriteBulkString(conn.bw, k)
	}
}

func (h *CommandHandler) handleType(conn *Conn, args [][]byte) {
	if len(args) != 2 {
		wrongArity(conn, "TYPE")
		return
	}
	_ = WriteSimpleString(conn.bw, h.store.Type(string(args[1])))
}

func (h *CommandHandler) handleExpire(conn *Conn, args [][]byte) {
	if len(args) != 3 {
		wrongArity(conn, "EXPIRE")
		return
	}
	seconds, ok := parseIntArg(args[2])
	if !ok {
		_ = WriteError(conn.bw, "ERR value is not an integer or out of range")
		return
	}
	if h.store.Expire(string(args[1]), seconds) {
		_ = WriteInteger(conn.bw, 1)
		return
	}
	_ = WriteInteger(conn.bw, 0)
}

func (h *CommandHandler) handleTTL(conn *Conn, args [][]byte) {
	if len(args) != 2 {
		wrongArity(conn, "TTL")
		return
	}
	_ = WriteInteger(conn.bw, h.store.TTL(string(args[1])))
}

func (h *CommandHandler) handleRename(conn *Conn, args [][]byte) {
	if len(args) != 3 {
		wrongArity(conn, "RENAME")
		return
	}
	if !h.store.Rename(string(args[1]), string(args[2])) {
		_ = WriteError(conn.bw, "ERR no such key")
		return
	}
	_ = WriteSimpleString(conn.bw, "OK")
}

func (h *CommandHandler) handleIncr(conn *Conn, args [][]byte) {
	if len(args) != 2 {
		wrongArity(conn, "INCR")
		return
	}
	n, err := h.store.Incr(string(args[1]))
	if err != nil {
		writeStoreError(conn, err)
		return
	}
	_ = WriteInteger(conn.bw, n)
}

// LPUSH/RPUSH <key> <value> [value ...]
func (h *CommandHandler) handlePush(conn *Conn, args [][]byte, push func(string, ...[]byte) (int64, error)) {
	if len(args) < 3 {
		wrongArity(conn, normalizeCommandName(args[0]))
		return
	}
	length, err := push(string(args[1]), args[2:]...)
	if err != nil {
		writeStoreError(conn, err)
		return
	}
	_ = WriteInteger(conn.bw, length)
}

// LPOP/RPOP <key>
func (h *CommandHandler) handlePop(conn *Conn, args [][]byte, pop func(string) ([]byte, error)) {
	if len(args) != 2 {
		wrongArity(conn, normalizeCommandName(args[0]))
		return
	}
	val, err := pop(string(args[1]))
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			_ = WriteNullBulk(conn.bw)
			return
		}
		writeStoreError(conn, err)
		return
	}
	_ = WriteBulk(conn.bw, val)
}

func (h *CommandHandler) handleLLen(conn *Conn, args [][]byte) {
	if len(args) != 2 {
		wrongArity(conn, "LLEN")
		return
	}
	n, err := h.store.LLen(string(args[1]))
	if err != nil {
		writeStoreError(conn, err)
		return
	}
	_ = WriteInteger(conn.bw, n)
}

func (h *CommandHandler) handleLRange(conn *Conn, args [][]byte) {
	if len(args) != 4 {
		wrongArity(conn, "LRANGE")
		return
	}
	start, ok1 := parseIntArg(args[2])
	stop, ok2 := parseIntArg(args[3])
	if !ok1 || !ok2 {
		_ = WriteError(conn.bw, "ERR value is not an integer or out of range")
		return
	}
	items, err := h.store.LRange(string(args[1]), start, stop)
	if err != nil {
		writeStoreError(conn, err)
		return
	}
	writeBulkArray(conn, items)
}

func (h *CommandHandler) handleLRem(conn *Conn, args [][]byte) {
	if len(args) != 4 {
		wrongArity(conn, "LREM")
		return
	}
	count, ok := parseIntArg(args[2])
	if !ok {
		_ = WriteError(conn.bw, "ERR value is not an integer or out of range")
		return
	}
	removed, err := h.store.LRem(string(args[1]), count, args[3])
	if err != nil {
		writeStoreError(conn, err)
		return
	}
	_ = WriteInteger(conn.bw, removed)
}

func (h *CommandHandler) handleLIndex(conn *Conn, args [][]byte) {
	if len(args) != 3 {
		wrongArity(conn, "LINDEX")
		return
	}
	i, ok := parseIntArg(args[2])
	if !ok {
		_ = WriteError(conn.bw, "ERR value is not an integer or out of range")
		return
	}
	val, err := h.store.LIndex(string(args[1]), i)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			_ = WriteNullBulk(conn.bw)
			return
		}
		writeStoreError(conn, err)
		return
	}
	_ = WriteBulk(conn.bw, val)
}

func (h *CommandHandler) handleLSet(conn *Conn, args [][]byte) {
	if len(args) != 4 {
		wrongArity(conn, "LSET")
		return
	}
	i, ok := parseIntArg(args[2])
	if !ok {
		_ = WriteError(conn.bw, "ERR value is not an integer or out of range")
		return
	}
	if err := h.store.LSet(string(args[1]), i, args[3]); err != nil {
		writeStoreError(conn, err)
		return
	}
	_ = WriteSimpleString(conn.bw, "OK")
}

// LGET <key> is equivalent to LRANGE <key> 0 -1.
func (h *CommandHandler) handleLGet(conn *Conn, args [][]byte) {
	if len(args) != 2 {
		wrongArity(conn, "LGET")
		return
	}
	items, err := h.store.LGet(string(args[1]))
	if err != nil {
		writeStoreError(conn, err)
		return
	}
	writeBulkArray(conn, items)
}

func (h *CommandHandler) handleHSet(conn *Conn, args [][]byte) {
	if len(args) != 4 {
		wrongArity(conn, "HSET")
		return
	}
	created, err := h.store.HSet(string(args[1]), string(args[2]), args[3])
	if err != nil {
		writeStoreError(conn, err)
		return
	}
	if created {
		_ = WriteInteger(conn.bw, 1)
		return
	}
	_ = WriteInteger(conn.bw, 0)
}

func (h *CommandHandler) handleHGet(conn *Conn, args [][]byte) {
	if len(args) != 3 {
		wrongArity(conn, "HGET")
		return
	}
	val, err := h.store.HGet(string(args[1]), string(args[2]))
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			_ = WriteNullBulk(conn.bw)
			return
		}
		writeStoreError(conn, err)
		return
	}
	_ = WriteBulk(conn.bw, val)
}

func (h *CommandHandler) handleHExists(conn *Conn, args [][]byte) {
	if len(args) != 3 {
		wrongArity(conn, "HEXISTS")
		return
	}
	exists, err := h.store.HExists(string(args[1]), string(args[2]))
	if err != nil {
		writeStoreError(conn, err)
		return
	}
	if exists {
		_ = WriteInteger(conn.bw, 1)
		return
	}
	_ = WriteInteger(conn.bw, 0)
}

func (h *CommandHandler) handleHDel(conn *Conn, args [][]byte) {
	if len(args) != 3 {
		wrongArity(conn, "HDEL")
		return
	}
	removed, err := h.store.HDel(string(args[1]), string(args[2]))
	if err != nil {
		writeStoreError(conn, err)
		return
	}
	if removed {
		_ = WriteInteger(conn.bw, 1)
		return
	}
	_ = WriteInteger(conn.bw, 0)
}

func (h *CommandHandler) handleHGetAll(conn *Conn, args [][]byte) {
	if len(args) != 2 {
		wrongArity(conn, "HGETALL")
		return
	}
	fields, err := h.store.HGetAll(string(args[1]))
	if err != nil {
		writeStoreError(conn, err)
		return
	}
	_ = WriteArrayHeader(conn.bw, len(fields)*2)
	for f, v := range fields {
		_ = WriteBulkString(conn.bw, f)
		_ = WriteBulk(conn.bw, v)
	}
}

func (h *CommandHandler) handleHKeys(conn *Conn, args [][]byte) {
	if len(args) != 2 {
		wrongArity(conn, "HKEYS")
		return
	}
	fields, err := h.store.HKeys(string(args[1]))
	if err != nil {
		writeStoreError(conn, err)
		return
	}
	_ = WriteArrayHeader(conn.bw, len(fields))
	for _, f := range fields {
		_ = WriteBulkString(conn.bw, f)
	}
}

func (h *CommandHandler) handleHVals(conn *Conn, args [][]byte) {
	if len(args) != 2 {
		wrongArity(conn, "HVALS")
		return
	}
	vals, err := h.store.HVals(string(args[1]))
	if err != nil {
		writeStoreError(conn, err)
		return
	}
	writeBulkArray(conn, vals)
}

func (h *CommandHandler) handleHLen(conn *Conn, args [][]byte) {
	if len(args) != 2 {
		wrongArity(conn, "HLEN")
		return
	}
	n, err := h.store.HLen(string(args[1]))
	if err != nil {
		writeStoreError(conn, err)
		return
	}
	_ = WriteInteger(conn.bw, n)
}

// HMSET <key> <field> <value> [field value ...]
func (h *CommandHandler) handleHMSet(conn *Conn, args [][]byte) {
	if len(args) < 4 || len(args)%2 != 0 {
		wrongArity(conn, "HMSET")
		return
	}
	fields := make([]string, 0, (len(args)-2)/2)
	values := make([][]byte, 0, cap(fields))
	for i := 2; i < len(args); i += 2 {
		fields = append(fields, string(args[i]))
		values = append(values, args[i+1])
	}
	if err := h.store.HMSet(string(args[1]), fields, values); err != nil {
		writeStoreError(conn, err)
		return
	}
	_ = WriteSimpleString(conn.bw, "OK")
}

func writeBulkArray(conn *Conn, items [][]byte) {
	_ = WriteArrayHeader(conn.bw, len(items))
	for _, item := range items {
		_ = WriteBulk(conn.bw, item)
	}
}

// matchGlob matches s against a simple glob pattern where * matches
// any run of characters.
func matchGlob(pattern, s string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return pattern == s
	}

	parts := strings.Split(pattern, "*")

	if parts[0] != "" {
		if !strings.HasPrefix(s, parts[0]) {
			return false
		}
		s = s[len(parts[0]):]
	}

	for i := 1; i < len(parts)-1; i++ {
		if parts[i] == "" {
			continue
		}
		idx := strings.Index(s, parts[i])
		if idx < 0 {
			return false
		}
		s = s[idx+len(parts[i]):]
	}

	last := parts[len(parts)-1]
	if last == "" {
		return true
	}
	return strings.HasSuffix(s, last)
}
