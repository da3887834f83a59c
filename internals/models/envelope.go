// Package models provides the wire envelope types carried by the
// bidirectional transport, and the topic-name validation rule applied
// by the admission HTTP layer (the broker registry does not validate
// names).
package models

import (
	"encoding/json"
	"regexp"
	"time"
)

// Inbound envelope kinds understood by the session adapter.
const (
	InSubscribe   = "subscribe"
	InUnsubscribe = "unsubscribe"
	InPublish     = "publish"
	InPing        = "ping"
)

// Outbound envelope kinds emitted by the session adapter.
const (
	OutAck     = "ack"
	OutEvent   = "event"
	OutError   = "error"
	OutPong    = "pong"
	OutInfo    = "info"
)

// Error codes. This is a closed set; SLOW_CONSUMER and UNAUTHORIZED
// are reserved and never emitted by this design.
const (
	ErrBadRequest     = "BAD_REQUEST"
	ErrTopicNotFound  = "TOPIC_NOT_FOUND"
	ErrSlowConsumer   = "SLOW_CONSUMER"
	ErrUnauthorized   = "UNAUTHORIZED"
	ErrInternal       = "INTERNAL"
)

// TopicNamePattern is the closed character set and length bound for
// topic names: non-empty, 1-200 characters of [A-Za-z0-9._-].
var TopicNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,200}$`)

// ValidTopicName reports whether name satisfies TopicNamePattern.
func ValidTopicName(name string) bool {
	return TopicNamePattern.MatchString(name)
}

// Message is the caller-supplied payload envelope: an opaque id and
// an arbitrary structured payload passed through unchanged.
type Message struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// WSClientMsg is an inbound envelope from a client connection.
type WSClientMsg struct {
	Type      string   `json:"type"`
	Topic     string   `json:"topic,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	LastN     int      `json:"last_n,omitempty"`
	Message   *Message `json:"message,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// ServerMsg is an outbound envelope to a client connection. Ts is
// always set; RequestID is echoed when the triggering inbound
// envelope carried one (heartbeats and deletion notices carry none).
type ServerMsg struct {
	Type      string    `json:"type"`
	RequestID string    `json:"request_id,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	Status    string    `json:"status,omitempty"`
	Msg       string    `json:"msg,omitempty"`
	Message   *Message  `json:"message,omitempty"`
	Error     *ErrorObj `json:"error,omitempty"`
	Ts        time.Time `json:"ts"`
}

// ErrorObj is the body of an "error" outbound envelope.
type ErrorObj struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewServerError builds an "error" envelope for requestID.
func NewServerError(requestID, code, message string) ServerMsg {
	return ServerMsg{
		Type:      OutError,
		RequestID: requestID,
		Error:     &ErrorObj{Code: code, Message: message},
		Ts:        time.Now().UTC(),
	}
}

// NewAck builds an "ack" envelope for requestID on topic.
func NewAck(requestID, topic string) ServerMsg {
	return ServerMsg{
		Type:      OutAck,
		RequestID: requestID,
		Topic:     topic,
		Status:    "ok",
		Ts:        time.Now().UTC(),
	}
}

// NewEvent builds an "event" envelope delivering msg on topic.
func NewEvent(topic string, msg Message) ServerMsg {
	return ServerMsg{
		Type:    OutEvent,
		Topic:   topic,
		Message: &msg,
		Ts:      time.Now().UTC(),
	}
}

// NewPong builds a "pong" envelope echoing requestID.
func NewPong(requestID string) ServerMsg {
	return ServerMsg{
		Type:      OutPong,
		RequestID: requestID,
		Ts:        time.Now().UTC(),
	}
}

// NewInfo builds a broadcast "info" envelope. Broadcasts never carry
// a request_id.
func NewInfo(msg string) ServerMsg {
	return ServerMsg{
		Type: OutInfo,
		Msg:  msg,
		Ts:   time.Now().UTC(),
	}
}

// NewTopicDeletedInfo builds the deletion notice sent to every
// subscriber of a deleted topic.
func NewTopicDeletedInfo(topic string) ServerMsg {
	return ServerMsg{
		Type:  OutInfo,
		Topic: topic,
		Msg:   "topic_deleted",
		Ts:    time.Now().UTC(),
	}
}
