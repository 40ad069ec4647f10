package socketrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tinytelemetry/hunters-journal/internal/model"
)

// Client calls the daemon over a Unix domain socket using JSON-RPC 2.0.
type Client struct {
	conn    net.Conn
	mu      sync.Mutex
	nextID  int
	scanner *bufio.Scanner
	encoder *json.Encoder
	timeout time.Duration
}

// Dial connects to the socket RPC server at the given path.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("socketrpc: dial: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	return &Client{
		conn:    conn,
		scanner: scanner,
		encoder: json.NewEncoder(conn),
		timeout: requestTimeout,
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// call performs a JSON-RPC call and unmarshals the result into dest. The
// deadline is the earlier of ctx's and the client timeout.
func (c *Client) call(ctx context.Context, method string, params any, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID

	paramsData, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("socketrpc: marshal params: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  paramsData,
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetDeadline(deadline)
	defer c.conn.SetDeadline(time.Time{})

	if err := c.encoder.Encode(req); err != nil {
		return fmt.Errorf("socketrpc: send: %w", err)
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("socketrpc: read: %w", err)
		}
		return fmt.Errorf("socketrpc: connection closed")
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("socketrpc: unmarshal response: %w", err)
	}
	if resp.ID != id {
		return fmt.Errorf("socketrpc: response id %d, want %d", resp.ID, id)
	}
	if resp.Error != nil {
		return resp.Error
	}

	if dest != nil {
		if err := json.Unmarshal(resp.Result, dest); err != nil {
			return fmt.Errorf("socketrpc: unmarshal result: %w", err)
		}
	}
	return nil
}

func (c *Client) SendNotification(ctx context.Context) (SendResult, error) {
	var result SendResult
	err := c.call(ctx, "SendNotification", nil, &result)
	return result, err
}

func (c *Client) StartPeriodicNotifications(ctx context.Context) (bool, error) {
	var started bool
	err := c.call(ctx, "StartPeriodicNotifications", nil, &started)
	return started, err
}

func (c *Client) Activate(ctx context.Context, permission model.Permission) (model.TriggerMode, error) {
	var mode model.TriggerMode
	err := c.call(ctx, "Activate", map[string]any{"Permission": permission}, &mode)
	return mode, err
}

func (c *Client) PeriodicSync(ctx context.Context, tag string) (bool, error) {
	var ran bool
	err := c.call(ctx, "PeriodicSync", map[string]any{"Tag": tag}, &ran)
	return ran, err
}

// ListEnemies lets the client serve as a model.EnemySource.
func (c *Client) ListEnemies(ctx context.Context) ([]model.Enemy, error) {
	var result []model.Enemy
	err := c.call(ctx, "ListEnemies", nil, &result)
	return result, err
}

func (c *Client) GetEnemy(ctx context.Context, slug string) (model.Enemy, error) {
	var result model.Enemy
	err := c.call(ctx, "GetEnemy", map[string]any{"Slug": slug}, &result)
	return result, err
}

func (c *Client) AttachView(ctx context.Context, origin string) (string, error) {
	var id string
	err := c.call(ctx, "AttachView", map[string]any{"Origin": origin}, &id)
	return id, err
}

func (c *Client) PollView(ctx context.Context, id string) (PollResult, error) {
	var result PollResult
	err := c.call(ctx, "PollView", map[string]any{"ID": id}, &result)
	return result, err
}

func (c *Client) DetachView(ctx context.Context, id string) error {
	return c.call(ctx, "DetachView", map[string]any{"ID": id}, nil)
}

func (c *Client) OpenLink(ctx context.Context, url string) error {
	return c.call(ctx, "OpenLink", map[string]any{"URL": url}, nil)
}

func (c *Client) Status(ctx context.Context) (model.SchedulerStatus, error) {
	var st model.SchedulerStatus
	err := c.call(ctx, "Status", nil, &st)
	return st, err
}

func (c *Client) RecentDeliveries(ctx context.Context, limit int) ([]model.DeliveryRecord, error) {
	var result []model.DeliveryRecord
	err := c.call(ctx, "RecentDeliveries", map[string]any{"Limit": limit}, &result)
	return result, err
}
