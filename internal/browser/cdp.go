package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a minimal Chrome DevTools Protocol client: enough to
// navigate, evaluate JavaScript and manage cookies. It attaches to an
// already-running Chrome started with --remote-debugging-port.
type Client struct {
	conn *websocket.Conn

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan cdpResponse

	writeMu sync.Mutex
	done    chan struct{}
	readErr error
}

type cdpRequest struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type cdpResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *cdpError       `json:"error"`
}

type cdpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *cdpError) Error() string {
	return fmt.Sprintf("cdp error %d: %s", e.Code, e.Message)
}

// devToolsTarget is one entry from the /json/list discovery endpoint.
type devToolsTarget struct {
	Type                 string `json:"type"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Connect discovers a page target via the DevTools HTTP endpoint and
// dials its websocket. debugURL is the base endpoint, e.g.
// http://127.0.0.1:9222.
func Connect(ctx context.Context, debugURL string) (*Client, error) {
	target, err := discoverPage(ctx, debugURL)
	if err != nil {
		return nil, err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial devtools %s: %w", target, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c := &Client{
		conn:    conn,
		pending: make(map[int64]chan cdpResponse),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// discoverPage picks the first page-type target from /json/list.
func discoverPage(ctx context.Context, debugURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, debugURL+"/json/list", nil)
	if err != nil {
		return "", fmt.Errorf("build discovery request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("query devtools at %s: %w", debugURL, err)
	}
	defer resp.Body.Close()

	var targets []devToolsTarget
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return "", fmt.Errorf("decode devtools targets: %w", err)
	}
	for _, t := range targets {
		if t.Type == "page" && t.WebSocketDebuggerURL != "" {
			return t.WebSocketDebuggerURL, nil
		}
	}
	return "", fmt.Errorf("no page target at %s: open a tab in the debugged Chrome", debugURL)
}

// Close shuts the websocket down.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call sends one CDP command and waits for its response. result may be
// nil when the caller doesn't need the payload.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	var rawParams json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("%s: marshal params: %w", method, err)
		}
		rawParams = data
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	ch := make(chan cdpResponse, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	req := cdpRequest{ID: id, Method: method, Params: rawParams}
	c.writeMu.Lock()
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("%s: write: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return fmt.Errorf("%s: connection closed: %w", method, c.readErr)
	case resp := <-ch:
		if resp.Error != nil {
			return fmt.Errorf("%s: %w", method, resp.Error)
		}
		if result != nil && resp.Result != nil {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("%s: decode result: %w", method, err)
			}
		}
		return nil
	}
}

// readLoop dispatches responses to waiting callers. CDP events (messages
// without an id) are discarded; this client polls page state instead of
// subscribing.
func (c *Client) readLoop() {
	defer close(c.done)
	for {
		var resp cdpResponse
		if err := c.conn.ReadJSON(&resp); err != nil {
			c.readErr = err
			return
		}
		if resp.ID == 0 {
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

// Navigate loads a URL and gives the page time to settle. Instagram
// renders client-side; there is no reliable load event to wait on, so a
// fixed settle pause mirrors what a human-paced session looks like.
func (c *Client) Navigate(ctx context.Context, url string, settle time.Duration) error {
	if err := c.Call(ctx, "Page.navigate", map[string]string{"url": url}, nil); err != nil {
		return err
	}
	return sleep(ctx, settle)
}

// evalResult is the shape of Runtime.evaluate's return payload.
type evalResult struct {
	Result struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	} `json:"result"`
	ExceptionDetails *struct {
		Text string `json:"text"`
	} `json:"exceptionDetails"`
}

// Eval runs a JavaScript expression in the page and decodes its
// by-value result into out (out may be nil).
func (c *Client) Eval(ctx context.Context, expression string, out any) error {
	var res evalResult
	err := c.Call(ctx, "Runtime.evaluate", map[string]any{
		"expression":    expression,
		"returnByValue": true,
	}, &res)
	if err != nil {
		return err
	}
	if res.ExceptionDetails != nil {
		return fmt.Errorf("evaluate: page exception: %s", res.ExceptionDetails.Text)
	}
	if out != nil && res.Result.Value != nil {
		if err := json.Unmarshal(res.Result.Value, out); err != nil {
			return fmt.Errorf("evaluate: decode value: %w", err)
		}
	}
	return nil
}

// CurrentURL reports the page's location.
func (c *Client) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := c.Eval(ctx, "window.location.href", &url); err != nil {
		return "", err
	}
	return url, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
