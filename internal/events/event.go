package events

import (
	"encoding/json"
	"strings"
	"time"
)

// Event types published after successful mutations.
const (
	ArticleCreated = "article.created"
	ArticleVoted   = "article.voted"
	ArticleDeleted = "article.deleted"
	CommentCreated = "comment.created"
	CommentVoted   = "comment.voted"
	CommentDeleted = "comment.deleted"
	TopicCreated   = "topic.created"
)

const channelPrefix = "news:events:"

// ChannelPattern matches every event channel.
const ChannelPattern = channelPrefix + "*"

// Event is the wire form relayed over pub/sub and the live stream.
type Event struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// New builds an event stamped with the current time. The payload is
// marshalled eagerly so a bad value fails at the call site.
func New(eventType, id string, payload any) (Event, error) {
	ev := Event{Type: eventType, ID: id, At: time.Now().UTC()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		ev.Payload = data
	}
	return ev, nil
}

// Channel is the pub/sub channel an event type is published on.
func Channel(eventType string) string {
	return channelPrefix + eventType
}

// TypeFromChannel reverses Channel.
func TypeFromChannel(channel string) string {
	return strings.TrimPrefix(channel, channelPrefix)
}
