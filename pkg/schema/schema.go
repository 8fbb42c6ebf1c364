package schema

import (
	"slices"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
)

// Sender markers used in Message.Sender alongside character ids.
const (
	SenderUser = "user"
	// SenderGroupStream marks the transient message a client shows while a
	// group reply is still arriving. It never appears in a stored transcript.
	SenderGroupStream = "group"
)

type UserProfile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Age    int    `json:"age,omitempty"`
	Gender Gender `json:"gender,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

type Character struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Age               int           `json:"age,omitempty"`
	Gender            Gender        `json:"gender,omitempty"`
	Relationship      Relationship  `json:"relationship,omitempty"`
	Personalities     []Personality `json:"personalities"`
	CustomPersonality string        `json:"customPersonality,omitempty"`
	Avatars           []string      `json:"avatars,omitempty"`
	ActiveAvatarIndex int           `json:"activeAvatarIndex,omitempty"`
	Messages          []Message     `json:"messages"`
}

// HasPersonality reports tag membership. Membership matters, order does not.
func (c Character) HasPersonality(p Personality) bool {
	return slices.Contains(c.Personalities, p)
}

// Persona returns the behavior text shown in prompts: the custom free-text
// persona when present, otherwise the joined tag list.
func (c Character) Persona() string {
	if c.CustomPersonality != "" {
		return c.CustomPersonality
	}
	parts := make([]string, 0, len(c.Personalities))
	for _, p := range c.Personalities {
		parts = append(parts, string(p))
	}
	return strings.Join(parts, ", ")
}

// ActiveAvatar returns the currently selected avatar reference, or "".
func (c Character) ActiveAvatar() string {
	if c.ActiveAvatarIndex >= 0 && c.ActiveAvatarIndex < len(c.Avatars) {
		return c.Avatars[c.ActiveAvatarIndex]
	}
	return ""
}

type Group struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Members  []string  `json:"members"`
	Messages []Message `json:"messages"`
}

type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps a fresh id and the current time.
func NewMessage(sender, text string) Message {
	return Message{
		ID:        NewID("msg"),
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewID returns a prefixed ksuid, e.g. "msg_2bY...".
func NewID(prefix string) string {
	return prefix + "_" + ksuid.New().String()
}
