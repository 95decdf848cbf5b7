// Package config loads daemon configuration from a YAML file and
// ROOMFLOW_-prefixed environment variables.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	Chat    ChatConfig    `koanf:"chat"`
	Rooms   RoomsConfig   `koanf:"rooms"`
	Log     LogConfig     `koanf:"log"`
}

type ServerConfig struct {
	Port int `koanf:"port"`

	// RequestTimeout bounds how long one inbound message may spend in the
	// pipeline, storage calls included.
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// ChatConfig controls when the bot engages with an inbound message.
type ChatConfig struct {
	// BotID is the bot's own participant id, used to recognize mentions.
	BotID string `koanf:"bot_id"`

	// BotName is the bot's configured name; with IsNickname set, a message
	// starting with it counts as addressing the bot.
	BotName    string `koanf:"bot_name"`
	IsNickname bool   `koanf:"is_nickname"`

	// AllowPrivate permits direct messages at all;
	// PrivateChatWithoutCommand lets them through without a command.
	AllowPrivate              bool `koanf:"allow_private"`
	PrivateChatWithoutCommand bool `koanf:"private_chat_without_command"`

	// AllowAtReply engages when the bot is mentioned.
	AllowAtReply bool `koanf:"allow_at_reply"`

	// AllowChatWithRoomName routes messages whose first token names a
	// joined room.
	AllowChatWithRoomName bool `koanf:"allow_chat_with_room_name"`
}

// RoomsConfig controls room creation and the live defaults template-clone
// rooms resync against.
type RoomsConfig struct {
	AutoCreateRoomFromUser bool `koanf:"auto_create_room_from_user"`

	TemplateRoomName string `koanf:"template_room_name"`

	DefaultPreset   string `koanf:"default_preset"`
	DefaultModel    string `koanf:"default_model"`
	DefaultChatMode string `koanf:"default_chat_mode"`

	// NameSuffix is appended to auto-created private room names,
	// CloneNameSuffix to template-clone room names.
	NameSuffix      string `koanf:"name_suffix"`
	CloneNameSuffix string `koanf:"clone_name_suffix"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

// Load reads configuration from the given YAML file (skipped when absent)
// and ROOMFLOW_-prefixed environment variables, applying defaults for
// anything unset. Environment variables override file values; a double
// underscore separates nesting levels (ROOMFLOW_CHAT__BOT_ID).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	if err := k.Load(env.Provider("ROOMFLOW_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "ROOMFLOW_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	defaults := map[string]any{
		"server.port":              8080,
		"server.request_timeout":   "30s",
		"storage.type":             "sqlite",
		"storage.sqlite.path":      "./data/roomflow.db",
		"chat.bot_name":            "roomflow",
		"chat.allow_private":       true,
		"rooms.template_room_name": "template",
		"rooms.default_preset":     "default",
		"rooms.default_chat_mode":  "chat",
		"rooms.name_suffix":        "room",
		"rooms.clone_name_suffix":  "template-clone room",
		"log.level":                "info",
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
