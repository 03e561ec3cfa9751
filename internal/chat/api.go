package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"livechat/internal/models"
	"livechat/internal/transport"
)

// API is the chat backend as seen by a Session.
type API interface {
	OnlineUsers(ctx context.Context) ([]models.PresenceEntry, error)
	Rooms(ctx context.Context) ([]models.Room, error)
	Messages(ctx context.Context, roomID string) ([]models.Message, error)
	PrivateMessages(ctx context.Context, peerID string) ([]models.Message, error)
	SendMessage(ctx context.Context, req models.SendMessageRequest) (models.Message, error)
	BanUser(ctx context.Context, req models.BanUserRequest) error
}

// RESTClient implements API over the chat REST endpoints.
type RESTClient struct {
	c *transport.Client
}

func NewRESTClient(c *transport.Client) *RESTClient {
	return &RESTClient{c: c}
}

func (r *RESTClient) OnlineUsers(ctx context.Context) ([]models.PresenceEntry, error) {
	var out models.OnlineUsersResponse
	if err := r.c.SendJSON(ctx, http.MethodGet, "/chat/online-users", nil, &out); err != nil {
		return nil, err
	}
	return out.OnlineUsers, nil
}

func (r *RESTClient) Rooms(ctx context.Context) ([]models.Room, error) {
	var out models.RoomsResponse
	if err := r.c.SendJSON(ctx, http.MethodGet, "/chat/rooms", nil, &out); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}

func (r *RESTClient) Messages(ctx context.Context, roomID string) ([]models.Message, error) {
	var out models.MessagesResponse
	if err := r.c.SendJSON(ctx, http.MethodGet, "/chat/messages/"+url.PathEscape(roomID), nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (r *RESTClient) PrivateMessages(ctx context.Context, peerID string) ([]models.Message, error) {
	var out models.MessagesResponse
	if err := r.c.SendJSON(ctx, http.MethodGet, "/chat/private-messages/"+url.PathEscape(peerID), nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (r *RESTClient) SendMessage(ctx context.Context, req models.SendMessageRequest) (models.Message, error) {
	var out models.SendMessageResponse
	if err := r.c.SendJSON(ctx, http.MethodPost, "/chat/send-message", req, &out); err != nil {
		return models.Message{}, err
	}
	return out.Data, nil
}

func (r *RESTClient) BanUser(ctx context.Context, req models.BanUserRequest) error {
	var out models.StatusResponse
	if err := r.c.SendJSON(ctx, http.MethodPost, "/chat/admin/ban-user", req, &out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("%w: %s", ErrBanRejected, out.Message)
	}
	return nil
}
