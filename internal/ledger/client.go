package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Client is the narrow surface the rest of the system needs from the remote
// ledger. The ERP owns the chart of accounts, taxes, partners, and postable
// documents; everything here is a remote round trip.
type Client interface {
	// SearchRead searches model records matching all conditions in domain and
	// returns the requested fields.
	SearchRead(ctx context.Context, model string, domain []Condition, fields []string, opts *SearchOpts) ([]Record, error)

	// SearchCount returns the number of records matching domain.
	SearchCount(ctx context.Context, model string, domain []Condition) (int, error)

	// Read returns the requested fields for specific record IDs.
	Read(ctx context.Context, model string, ids []int, fields []string) ([]Record, error)

	// Create inserts a record and returns its new ID.
	Create(ctx context.Context, model string, values map[string]any) (int, error)

	// Write updates existing records.
	Write(ctx context.Context, model string, ids []int, values map[string]any) error

	// Exec invokes a server-side method (e.g. action_post) on records.
	Exec(ctx context.Context, model, method string, ids []int) error
}

// SearchOpts carries the optional kwargs of a search_read call.
type SearchOpts struct {
	Limit   int
	Order   string
	Context map[string]any // e.g. allowed_company_ids
}

// Fault is an error reported by the remote ledger itself, as opposed to a
// transport failure. The remote diagnostic text is preserved verbatim.
type Fault struct {
	Message string
	Data    string
}

func (f *Fault) Error() string {
	if f.Data != "" {
		return fmt.Sprintf("ledger fault: %s: %s", f.Message, f.Data)
	}
	return "ledger fault: " + f.Message
}

// Config holds the connection parameters for the remote ledger.
type Config struct {
	URL      string
	Database string
	Username string
	APIKey   string
}

// rpcClient talks JSON-RPC to the ERP's /jsonrpc endpoint. Authentication is
// lazy: the first call resolves the user ID and caches it for the connection's
// lifetime.
type rpcClient struct {
	cfg  Config
	http *http.Client

	mu  sync.Mutex
	uid int
}

// NewClient creates a Client for the given connection config.
func NewClient(cfg Config) Client {
	return &rpcClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Message string `json:"message"`
	Data    struct {
		Message string `json:"message"`
		Debug   string `json:"debug"`
	} `json:"data"`
}

func (c *rpcClient) call(ctx context.Context, service, method string, args []any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      time.Now().UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+"/jsonrpc", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ledger rpc: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read rpc response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ledger rpc: unexpected status %d: %s", resp.StatusCode, raw)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return fmt.Errorf("decode rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		msg := rpcResp.Error.Data.Message
		if msg == "" {
			msg = rpcResp.Error.Message
		}
		return &Fault{Message: msg, Data: rpcResp.Error.Data.Debug}
	}
	if out != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("decode rpc result: %w", err)
		}
	}
	return nil
}

// authenticate resolves and caches the numeric user ID.
func (c *rpcClient) authenticate(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uid != 0 {
		return c.uid, nil
	}

	var uid int
	err := c.call(ctx, "common", "authenticate",
		[]any{c.cfg.Database, c.cfg.Username, c.cfg.APIKey, map[string]any{}}, &uid)
	if err != nil {
		return 0, fmt.Errorf("authenticate: %w", err)
	}
	if uid == 0 {
		return 0, fmt.Errorf("authenticate: ledger rejected credentials for %s", c.cfg.Username)
	}
	c.uid = uid
	return uid, nil
}

func (c *rpcClient) executeKw(ctx context.Context, model, method string, args []any, kwargs map[string]any, out any) error {
	uid, err := c.authenticate(ctx)
	if err != nil {
		return err
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	callArgs := []any{c.cfg.Database, uid, c.cfg.APIKey, model, method, args, kwargs}
	return c.call(ctx, "object", "execute_kw", callArgs, out)
}

func (c *rpcClient) SearchRead(ctx context.Context, model string, domain []Condition, fields []string, opts *SearchOpts) ([]Record, error) {
	kwargs := map[string]any{"fields": fields}
	if opts != nil {
		if opts.Limit > 0 {
			kwargs["limit"] = opts.Limit
		}
		if opts.Order != "" {
			kwargs["order"] = opts.Order
		}
		if opts.Context != nil {
			kwargs["context"] = opts.Context
		}
	}
	var records []Record
	if err := c.executeKw(ctx, model, "search_read", []any{marshalDomain(domain)}, kwargs, &records); err != nil {
		return nil, fmt.Errorf("search_read %s: %w", model, err)
	}
	return records, nil
}

func (c *rpcClient) SearchCount(ctx context.Context, model string, domain []Condition) (int, error) {
	var count int
	if err := c.executeKw(ctx, model, "search_count", []any{marshalDomain(domain)}, nil, &count); err != nil {
		return 0, fmt.Errorf("search_count %s: %w", model, err)
	}
	return count, nil
}

func (c *rpcClient) Read(ctx context.Context, model string, ids []int, fields []string) ([]Record, error) {
	kwargs := map[string]any{"fields": fields}
	var records []Record
	if err := c.executeKw(ctx, model, "read", []any{ids}, kwargs, &records); err != nil {
		return nil, fmt.Errorf("read %s: %w", model, err)
	}
	return records, nil
}

func (c *rpcClient) Create(ctx context.Context, model string, values map[string]any) (int, error) {
	var id int
	if err := c.executeKw(ctx, model, "create", []any{values}, nil, &id); err != nil {
		return 0, fmt.Errorf("create %s: %w", model, err)
	}
	return id, nil
}

func (c *rpcClient) Write(ctx context.Context, model string, ids []int, values map[string]any) error {
	if err := c.executeKw(ctx, model, "write", []any{ids, values}, nil, nil); err != nil {
		return fmt.Errorf("write %s: %w", model, err)
	}
	return nil
}

func (c *rpcClient) Exec(ctx context.Context, model, method string, ids []int) error {
	if err := c.executeKw(ctx, model, method, []any{ids}, nil, nil); err != nil {
		return fmt.Errorf("%s %s: %w", method, model, err)
	}
	return nil
}
