// Command ragbook-cli is an interactive websocket chat client for ragbook.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xiaot623/ragbook/internal/logger"
	"github.com/xiaot623/ragbook/internal/protocol"
)

// Client is a websocket chat client.
type Client struct {
	conn      *websocket.Conn
	sessionID string
	out       io.Writer
	log       logrus.FieldLogger
}

// NewClient connects to the server.
func NewClient(addr string, out io.Writer, log logrus.FieldLogger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &Client{conn: conn, out: out, log: log}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// Hello binds the connection to sessionID (or a fresh session) and waits for hello_ack.
func (c *Client) Hello(sessionID string) error {
	msg := protocol.HelloMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeHello,
			Ts:        time.Now().UnixMilli(),
			SessionID: sessionID,
		},
		ClientMeta: map[string]string{"client": "ragbook-cli"},
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read hello_ack: %w", err)
	}
	var base protocol.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return fmt.Errorf("unmarshal hello_ack: %w", err)
	}
	if base.Type == protocol.TypeError {
		var errMsg protocol.ErrorMessage
		_ = json.Unmarshal(data, &errMsg)
		return fmt.Errorf("hello failed: %s - %s", errMsg.Code, errMsg.Message)
	}
	if base.Type != protocol.TypeHelloAck {
		return fmt.Errorf("expected hello_ack, got: %s", base.Type)
	}

	c.sessionID = base.SessionID
	return nil
}

// Ask sends one question.
func (c *Client) Ask(query string) error {
	return c.conn.WriteJSON(protocol.AskMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeAsk,
			Ts:        time.Now().UnixMilli(),
			RequestID: fmt.Sprintf("req_%d", time.Now().UnixNano()),
			SessionID: c.sessionID,
		},
		Query: query,
	})
}

// Clear asks the server to forget the session.
func (c *Client) Clear() error {
	return c.conn.WriteJSON(protocol.BaseMessage{
		Type:      protocol.TypeClear,
		Ts:        time.Now().UnixMilli(),
		SessionID: c.sessionID,
	})
}

// ReadMessages prints server messages until the connection closes.
func (c *Client) ReadMessages() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.log.WithError(err).Debug("read stopped")
			}
			return
		}
		c.render(data)
	}
}

func (c *Client) render(data []byte) {
	var base protocol.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		c.log.WithError(err).Warn("unreadable message")
		return
	}

	switch base.Type {
	case protocol.TypeAnswer:
		var msg protocol.AnswerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.WithError(err).Warn("unreadable answer")
			return
		}
		fmt.Fprintf(c.out, "\n%s\n", msg.Answer)
		for _, s := range msg.Sources {
			fmt.Fprintf(c.out, "  - %s: %s\n", s.Source, s.Preview)
		}
		if msg.BookingID != "" {
			fmt.Fprintf(c.out, "  booking id: %s\n", msg.BookingID)
		}
	case protocol.TypeCleared:
		var msg protocol.ClearedMessage
		_ = json.Unmarshal(data, &msg)
		fmt.Fprintf(c.out, "\n%s\n", msg.Message)
	case protocol.TypeError:
		var msg protocol.ErrorMessage
		_ = json.Unmarshal(data, &msg)
		fmt.Fprintf(c.out, "\nerror (%s): %s\n", msg.Code, msg.Message)
	default:
		fmt.Fprintf(c.out, "\n[%s] %s\n", base.Type, string(data))
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr, session, logLevel string
	cmd := &cobra.Command{
		Use:          "ragbook-cli",
		Short:        "Chat with a ragbook server over websocket",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(addr, session, logger.New(logLevel), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "ws://localhost:8080/v1/ws", "websocket server address")
	cmd.Flags().StringVar(&session, "session", "", "session id to resume (empty starts a new session)")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level")
	return cmd
}

func run(addr, session string, log logrus.FieldLogger, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Connecting to %s...\n", addr)
	client, err := NewClient(addr, out, log)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Hello(session); err != nil {
		return err
	}
	fmt.Fprintf(out, "Session: %s\n", client.sessionID)
	fmt.Fprintln(out, "Type a question and press Enter. Commands: /clear, /quit")

	go client.ReadMessages()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/quit":
			return nil
		case "/clear":
			err = client.Clear()
		default:
			err = client.Ask(input)
		}
		if err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}
	return scanner.Err()
}
