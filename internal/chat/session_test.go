package chat

import (
	"testing"
)

func TestTransform_FlattensElements(t *testing.T) {
	sess := &Session{
		Elements: []Element{
			{Type: ElementText, Text: "hello "},
			{Type: ElementMention, Target: "u2", TargetName: "Bob"},
			{Type: ElementText, Text: " there"},
			{Type: ElementImage},
		},
	}

	content := sess.Transform("bot-1")
	if content != "hello @Bob there" {
		t.Errorf("unexpected content %q", content)
	}
	if sess.MentionedBot {
		t.Error("bot was not mentioned")
	}
}

func TestTransform_BotMentionDroppedAndFlagged(t *testing.T) {
	sess := &Session{
		Elements: []Element{
			{Type: ElementMention, Target: "bot-1"},
			{Type: ElementText, Text: "what's the weather"},
		},
	}

	content := sess.Transform("bot-1")
	if content != "what's the weather" {
		t.Errorf("unexpected content %q", content)
	}
	if !sess.MentionedBot {
		t.Error("expected MentionedBot set")
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		content string
		cmd     string
		ok      bool
	}{
		{"/switch kitchen", "switch", true},
		{"/help", "help", true},
		{"hello", "", false},
		{"/", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		cmd, ok := ParseCommand(tt.content)
		if cmd != tt.cmd || ok != tt.ok {
			t.Errorf("ParseCommand(%q) = %q, %v; want %q, %v", tt.content, cmd, ok, tt.cmd, tt.ok)
		}
	}
}

func TestDisplayName(t *testing.T) {
	direct := &Session{UserName: "Alice", Direct: true, GuildName: "Ops"}
	if got := direct.DisplayName(); got != "Alice" {
		t.Errorf("direct chat should use user name, got %q", got)
	}

	group := &Session{UserName: "Alice", GuildName: "Ops"}
	if got := group.DisplayName(); got != "Ops" {
		t.Errorf("group chat should use guild name, got %q", got)
	}

	noGuild := &Session{UserName: "Alice"}
	if got := noGuild.DisplayName(); got != "Alice" {
		t.Errorf("missing guild name should fall back to user name, got %q", got)
	}
}

func TestSession_SendFansOut(t *testing.T) {
	sess := &Session{}
	a, b := &Collector{}, &Collector{}
	sess.AddReplier(a)
	sess.AddReplier(b)

	sess.Send("hi")
	if got := a.Replies(); len(got) != 1 || got[0] != "hi" {
		t.Errorf("first replier got %v", got)
	}
	if got := b.Replies(); len(got) != 1 || got[0] != "hi" {
		t.Errorf("second replier got %v", got)
	}
}
