package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/happy-game/sync-player/internal/model"
	"github.com/happy-game/sync-player/pkg/constants"
)

// sseChannel is the push-only SSE stream. Inbound messages arrive as data
// events; outbound sync writes go through the HTTP endpoints with the
// userInfo cookie, the same path a browser client takes.
type sseChannel struct {
	baseURL string
	cookie  string
	httpc   *http.Client
	cancel  context.CancelFunc
	cb      connCallbacks

	mu     sync.Mutex
	closed bool
}

func dialSSE(ctx context.Context, opts Options, httpc *http.Client, cb connCallbacks) (conn, error) {
	streamURL := fmt.Sprintf("%s%s?userId=%s&roomId=%s",
		opts.BaseURL, constants.PathSSEConnect,
		strconv.FormatUint(uint64(opts.UserID), 10),
		strconv.FormatUint(uint64(opts.RoomID), 10))

	streamCtx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, streamURL, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream must outlive any client-wide timeout.
	resp, err := (&http.Client{Transport: httpc.Transport}).Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("client: sse connect: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("client: sse connect: status %d", resp.StatusCode)
	}

	info, _ := json.Marshal(model.UserInfo{RoomID: opts.RoomID, UserID: opts.UserID})
	c := &sseChannel{
		baseURL: opts.BaseURL,
		cookie:  "userInfo=" + url.QueryEscape(string(info)),
		httpc:   httpc,
		cancel:  cancel,
		cb:      cb,
	}
	go c.readLoop(resp.Body)
	return c, nil
}

// readLoop parses the event stream: comment lines are heartbeats, data
// lines accumulate until the blank line that terminates an event.
func (c *sseChannel) readLoop(body io.ReadCloser) {
	defer body.Close()
	var data bytes.Buffer
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				var msg model.SyncMessage
				if err := json.Unmarshal(data.Bytes(), &msg); err == nil {
					c.cb.onMessage(msg)
				}
				data.Reset()
			}
		case strings.HasPrefix(line, ":"):
			// heartbeat
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if !closed {
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		c.cb.onDisconnect(err)
	}
}

// send posts a sync write to its HTTP endpoint. Only the write operations
// have an HTTP form; anything else on a push-only channel is an error.
func (c *sseChannel) send(msg model.SyncMessage) error {
	var path string
	switch msg.Type {
	case model.MsgUpdateTime:
		path = "/api/sync/updateTime"
	case model.MsgUpdatePause:
		path = "/api/sync/updatePause"
	case model.MsgPing:
		return nil
	default:
		return fmt.Errorf("client: cannot send %q over sse", msg.Type)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(msg.Payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", c.cookie)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("client: %s: status %d", path, resp.StatusCode)
	}
	return nil
}

func (c *sseChannel) close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	return nil
}
