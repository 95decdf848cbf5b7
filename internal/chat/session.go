// Package chat models one inbound chat message and the reply capability
// available to pipeline stages.
package chat

import (
	"strings"
	"sync"
)

// ElementType identifies a kind of raw message element.
type ElementType string

const (
	// ElementText is a plain text fragment.
	ElementText ElementType = "text"
	// ElementMention references another chat participant.
	ElementMention ElementType = "mention"
	// ElementImage is an attached image; it carries no text content.
	ElementImage ElementType = "image"
)

// Element is a raw inbound message element before transformation.
type Element struct {
	Type ElementType `json:"type"`
	// Text is the fragment content for text elements.
	Text string `json:"text,omitempty"`
	// Target is the mentioned participant id for mention elements.
	Target string `json:"target,omitempty"`
	// TargetName is the mentioned participant's display name, if known.
	TargetName string `json:"target_name,omitempty"`
}

// Replier delivers a reply back to the chat surface. Send is
// fire-and-forget: failures are the replier's own concern.
type Replier interface {
	Send(text string)
}

// Session is the per-message view of who is talking and where. One session
// is built per inbound message and handed to every pipeline stage; it is
// never shared across messages.
type Session struct {
	UserID    string
	UserName  string
	GuildID   string
	GuildName string

	// Direct is true for a one-on-one message, false for group chat.
	Direct bool

	// Elements is the raw inbound message before transformation.
	Elements []Element

	// Content is the transformed plain-text message. Stages may rewrite it
	// for stages downstream of them.
	Content string

	// MentionedBot is set during transformation when an element mentions
	// the bot.
	MentionedBot bool

	repliers []Replier
}

// AddReplier attaches a reply sink to the session.
func (s *Session) AddReplier(r Replier) {
	if r != nil {
		s.repliers = append(s.repliers, r)
	}
}

// Send delivers text to every attached reply sink without ending the
// pipeline.
func (s *Session) Send(text string) {
	for _, r := range s.repliers {
		r.Send(text)
	}
}

// DisplayName is the name new rooms are derived from: the user's name in
// direct chat, the guild's name in group chat.
func (s *Session) DisplayName() string {
	if s.Direct || s.GuildName == "" {
		return s.UserName
	}
	return s.GuildName
}

// Transform flattens the session's raw elements into plain text and flags
// bot mentions. Mentions of the bot are dropped from the content; other
// mentions render as @name.
func (s *Session) Transform(botID string) string {
	var b strings.Builder
	for _, el := range s.Elements {
		switch el.Type {
		case ElementText:
			b.WriteString(el.Text)
		case ElementMention:
			if botID != "" && el.Target == botID {
				s.MentionedBot = true
				continue
			}
			name := el.TargetName
			if name == "" {
				name = el.Target
			}
			b.WriteString("@" + name)
		}
	}
	s.Content = strings.TrimSpace(b.String())
	return s.Content
}

// ParseCommand extracts a leading slash command from content. Returns the
// command name without the slash and true when present.
func ParseCommand(content string) (string, bool) {
	if !strings.HasPrefix(content, "/") {
		return "", false
	}
	cmd := strings.TrimPrefix(strings.Fields(content)[0], "/")
	if cmd == "" {
		return "", false
	}
	return cmd, true
}

// Collector accumulates replies in memory. The HTTP surface uses it to
// return everything the pipeline said in the response body.
type Collector struct {
	mu      sync.Mutex
	replies []string
}

// Send appends text to the collected replies.
func (c *Collector) Send(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, text)
}

// Replies returns a copy of everything sent so far.
func (c *Collector) Replies() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.replies))
	copy(out, c.replies)
	return out
}
