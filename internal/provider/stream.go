package provider

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"powerarb/internal/model"
)

// StreamClient consumes a live intraday price feed over WebSocket.
type StreamClient struct {
	logger *slog.Logger
	url    string
}

// NewStreamClient creates a new StreamClient for the given feed URL.
func NewStreamClient(logger *slog.Logger, feedURL string) *StreamClient {
	return &StreamClient{logger: logger, url: feedURL}
}

// streamMessage is one tick of the feed.
type streamMessage struct {
	Country   string    `json:"country"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// StartStream connects to the feed and forwards price points for the given
// country onto priceChan until the context is cancelled. Connection drops
// are retried with doubling backoff.
func (s *StreamClient) StartStream(ctx context.Context, priceChan chan<- model.PricePoint, country string) error {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("StreamClient: context cancelled, shutting down")
			return nil
		default:
			s.logger.Info("StreamClient: connecting to feed", "url", s.url, "backoff", backoff)
			c, _, err := websocket.DefaultDialer.Dial(s.url, nil)
			if err != nil {
				s.logger.Error("StreamClient: connection failed", "error", err)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(backoff):
					backoff *= 2
					if backoff > 16*time.Second {
						backoff = 16 * time.Second
					}
				}
				continue
			}

			// Reset backoff on successful connection
			backoff = time.Second

			// Subscribe to the requested bidding zone
			subscription := map[string]interface{}{
				"action":    "subscribe",
				"countries": []string{country},
			}
			if err := c.WriteJSON(subscription); err != nil {
				s.logger.Error("StreamClient: failed to send subscription", "error", err)
				c.Close()
				continue
			}
			s.logger.Info("StreamClient: subscribed", "country", country)

			// Handle incoming messages
			s.readLoop(ctx, c, priceChan, country)
			select {
			case <-ctx.Done():
				return nil
			default:
			}
		}
	}
}

func (s *StreamClient) readLoop(ctx context.Context, c *websocket.Conn, priceChan chan<- model.PricePoint, country string) {
	defer c.Close()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("StreamClient: context cancelled, closing connection")
			return
		default:
			_, message, err := c.ReadMessage()
			if err != nil {
				s.logger.Error("StreamClient: failed to read message", "error", err)
				// Return to trigger reconnection
				return
			}

			var msg streamMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				s.logger.Warn("StreamClient: failed to parse message", "error", err)
				continue
			}
			if msg.Country != country {
				continue
			}

			point := model.PricePoint{Timestamp: msg.Timestamp, Price: msg.Price}
			select {
			case priceChan <- point:
				s.logger.Debug("StreamClient: sent price point", "country", msg.Country, "price", msg.Price)
			case <-ctx.Done():
				s.logger.Info("StreamClient: context cancelled while sending price point")
				return
			}
		}
	}
}
