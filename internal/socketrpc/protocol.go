package socketrpc

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// JSON-RPC 2.0 Method Reference
//
// The socket RPC server exposes model.JournalService over a Unix domain
// socket, one request per line.
//
//   Method                        Params                          Result
//   ──────────────────────────    ─────────────────────────────   ──────────────────────
//   SendNotification              (none)                          SendResult
//   StartPeriodicNotifications    (none)                          bool (false if running)
//   Activate                      {Permission: string}            TriggerMode
//   PeriodicSync                  {Tag: string}                   bool (cycle ran)
//   ListEnemies                   (none)                          []Enemy
//   GetEnemy                      {Slug: string}                  Enemy
//   AttachView                    {Origin: string}                string (view id)
//   PollView                      {ID: string}                    PollResult
//   DetachView                    {ID: string}                    bool
//   OpenLink                      {URL: string}                   bool
//   Status                        (none)                          SchedulerStatus
//   RecentDeliveries              {Limit: int}                    []DeliveryRecord
//
// Methods without params accept empty or null params.
//
// Error codes follow JSON-RPC 2.0:
//   -32700  Parse error (malformed JSON)
//   -32601  Method not found
//   -32602  Invalid params
//   -32603  Internal error (marshal failure)
//   -32000  Application error

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

// SendResult reports the outcome of one notification cycle.
type SendResult struct {
	Delivered bool   `json:"delivered"`
	Slug      string `json:"slug,omitempty"`
}

// PollResult is a view's pending command. Known is false when the daemon no
// longer tracks the view and it must attach again.
type PollResult struct {
	Known    bool   `json:"known"`
	Focus    bool   `json:"focus"`
	Navigate string `json:"navigate,omitempty"`
}

// DefaultSocketPath returns the default Unix socket path.
// It prefers $XDG_RUNTIME_DIR/hunters-journal/journald.sock, falling back to
// ~/.local/state/hunters-journal/journald.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "hunters-journal", "journald.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/hunters-journal.sock"
	}
	return filepath.Join(home, ".local", "state", "hunters-journal", "journald.sock")
}

// Origin is the origin string of the daemon listening on socketPath.
func Origin(socketPath string) string {
	return "unix://" + socketPath
}
