// Package client implements the chat-session side of the messenger
// service: it hydrates history over REST, subscribes to live envelopes
// over the relay socket and merges both into one ordered view.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"messenger-service/internal/apperrors"
	"messenger-service/internal/models"
)

// Client talks to one messenger service on behalf of one principal.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	dialer  *websocket.Dialer
}

// New builds a Client for the service at baseURL, authenticating with the
// given bearer token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    http.DefaultClient,
		dialer:  websocket.DefaultDialer,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error == "" {
			return fmt.Errorf("request failed with status %d", resp.StatusCode)
		}
		return apperrors.New(apperrors.Code(errResp.Error), errResp.Message)
	}
	if out == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// dialSocket opens the relay socket and performs the register handshake.
func (c *Client) dialSocket() (*websocket.Conn, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"
	u.RawQuery = "token=" + url.QueryEscape(c.token)

	conn, _, err := c.dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}

	if err := conn.WriteJSON(models.ClientFrame{Type: models.FrameRegister}); err != nil {
		conn.Close()
		return nil, err
	}

	var ack models.Envelope
	if err := conn.ReadJSON(&ack); err != nil {
		conn.Close()
		return nil, err
	}
	if ack.Type != models.FrameSystem {
		conn.Close()
		return nil, fmt.Errorf("unexpected handshake frame %q", ack.Type)
	}
	return conn, nil
}

// FriendState fetches the caller's connection edges.
func (c *Client) FriendState() (models.FriendState, error) {
	var state models.FriendState
	err := c.get("/friends", &state)
	return state, err
}

// Connect sends a connection request to the target user.
func (c *Client) Connect(targetID int) error {
	return c.post(fmt.Sprintf("/connect/%d", targetID), struct{}{}, nil)
}

// Accept accepts a pending connection request from the requester.
func (c *Client) Accept(requesterID int) error {
	return c.post(fmt.Sprintf("/accept/%d", requesterID), struct{}{}, nil)
}
