// Package stream follows the chat API's websocket message stream and feeds
// pushed messages into a session. Polling stays authoritative; the stream
// only shortens the time until a new message shows up.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"livechat/internal/models"
)

// Sink receives pushed messages.
type Sink interface {
	Ingest(msg models.Message)
}

type Subscriber struct {
	baseURL string
	token   string
	dialer  *websocket.Dialer
	retry   time.Duration
	log     zerolog.Logger
}

type Option func(*Subscriber)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Subscriber) { s.log = l }
}

// WithRetryDelay sets how long Follow waits before redialing a dropped stream.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Subscriber) { s.retry = d }
}

func NewSubscriber(baseURL, token string, opts ...Option) *Subscriber {
	s := &Subscriber{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		retry:   2 * time.Second,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StreamURL returns the websocket URL for roomID.
func StreamURL(baseURL, roomID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/chat/stream"
	u.RawQuery = url.Values{"room_id": {roomID}}.Encode()
	return u.String(), nil
}

// Subscribe streams roomID into sink until ctx is done or the connection
// fails. It returns nil only when ctx ended the stream.
func (s *Subscriber) Subscribe(ctx context.Context, roomID string, sink Sink) error {
	target, err := StreamURL(s.baseURL, roomID)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.token)
	conn, resp, err := s.dialer.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial stream: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial stream: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s.log.Debug().Str("room_id", roomID).Msg("stream connected")
	for {
		var ev models.StreamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
		if ev.Type != models.StreamEventMessage || ev.Data.ID == "" {
			continue
		}
		sink.Ingest(ev.Data)
	}
}

// Follow keeps a stream open for the room active reports, redialing when
// the room changes or the connection drops. It returns when ctx is done.
func (s *Subscriber) Follow(ctx context.Context, active func() string, sink Sink) {
	for ctx.Err() == nil {
		roomID := active()
		if roomID == "" {
			roomID = models.DefaultRoomID
		}

		roomCtx, cancel := context.WithCancel(ctx)
		go s.watchRoom(roomCtx, cancel, roomID, active)
		err := s.Subscribe(roomCtx, roomID, sink)
		roomChanged := roomCtx.Err() != nil && ctx.Err() == nil
		cancel()

		if ctx.Err() != nil || roomChanged {
			continue
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn().Err(err).Str("room_id", roomID).Msg("stream dropped; retrying")
		}
		select {
		case <-ctx.Done():
		case <-time.After(s.retry):
		}
	}
}

func (s *Subscriber) watchRoom(ctx context.Context, cancel context.CancelFunc, roomID string, active func() string) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if current := active(); current != "" && current != roomID {
				cancel()
				return
			}
		}
	}
}
