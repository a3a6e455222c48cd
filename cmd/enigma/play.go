package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/shizhouxing/project-enigma/internal/domain"
	v1 "github.com/shizhouxing/project-enigma/internal/transport/http/v1"
)

// lockedWriter serializes output from the reader goroutine and the prompt loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// playClient is a websocket client for one session.
type playClient struct {
	conn *websocket.Conn
	out  io.Writer
	done chan struct{}
}

func dialSession(server, sessionID, token, userID string) (*websocket.Conn, error) {
	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/session/" + url.PathEscape(sessionID) + "/ws"

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	if userID != "" {
		header.Set("X-User-ID", userID)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", u, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	return conn, nil
}

// readEvents prints stream events until the connection closes or the
// session reaches a terminal outcome.
func (c *playClient) readEvents() {
	defer close(c.done)
	for {
		var ev domain.StreamEvent
		if err := c.conn.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				fmt.Fprintf(c.out, "\nconnection closed: %v\n", err)
			}
			return
		}

		switch ev.Event {
		case domain.EventMessage:
			fmt.Fprint(c.out, ev.Content)
		case domain.EventError:
			fmt.Fprintf(c.out, "\n[error %s] %s\n", ev.Error.Kind, ev.Error.Message)
		case domain.EventEnd:
			if ev.Outcome == domain.StatusPlaying {
				fmt.Fprint(c.out, "\n> ")
				continue
			}
			fmt.Fprintf(c.out, "\n\nSession ended: %s\n", ev.Outcome)
			return
		}
	}
}

func (c *playClient) send(frame v1.ClientFrame) error {
	return c.conn.WriteJSON(frame)
}

func (c *playClient) close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteMessage(websocket.CloseMessage, msg)
	return c.conn.Close()
}

func newPlayCmd() *cobra.Command {
	var server, sessionID, token, userID string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a session interactively over a websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token == "" && userID == "" {
				return errors.New("--token or --user is required")
			}
			out := &lockedWriter{w: cmd.OutOrStdout()}
			fmt.Fprintf(out, "Connecting to %s...\n", server)

			conn, err := dialSession(server, sessionID, token, userID)
			if err != nil {
				return err
			}
			client := &playClient{conn: conn, out: out, done: make(chan struct{})}
			defer client.close()
			go client.readEvents()

			fmt.Fprintln(out, "Connected. Type a message and press Enter.")
			fmt.Fprintln(out, "Commands: /forfeit to give up, /quit to exit")
			fmt.Fprint(out, "> ")

			lines := make(chan string)
			go func() {
				defer close(lines)
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					lines <- strings.TrimSpace(scanner.Text())
				}
			}()

			for {
				select {
				case <-cmd.Context().Done():
					fmt.Fprintln(out, "\nInterrupted")
					return nil
				case <-client.done:
					return nil
				case input, ok := <-lines:
					if !ok {
						return nil
					}
					var frame v1.ClientFrame
					switch input {
					case "":
						fmt.Fprint(out, "> ")
						continue
					case "/quit":
						fmt.Fprintln(out, "Bye!")
						return nil
					case "/forfeit":
						frame = v1.ClientFrame{Type: v1.FrameForfeit}
					default:
						frame = v1.ClientFrame{Type: v1.FramePrompt, Content: input}
					}
					if err := client.send(frame); err != nil {
						return fmt.Errorf("send: %w", err)
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&server, "server", "ws://localhost:8080", "server base URL")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id from /session/create-chat")
	cmd.Flags().StringVar(&token, "token", "", "bearer token (see enigma token)")
	cmd.Flags().StringVar(&userID, "user", "", "user id, for servers running with AUTH_DISABLED")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
