package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nattydev/whatsguard/pkg/env"
)

// Messages are the templated user-visible replies for permission denials and
// dispatcher failures.
type Messages struct {
	OwnerOnly      string `json:"ownerOnly"`
	AdminOnly      string `json:"adminOnly"`
	ModOnly        string `json:"modOnly"`
	GroupOnly      string `json:"groupOnly"`
	PrivateOnly    string `json:"privateOnly"`
	BotAdminNeeded string `json:"botAdminNeeded"`
	Error          string `json:"error"`
}

// Config is the runtime-mutable process configuration. Owner commands change
// it through Store.Update; everything else reads a snapshot via Store.Get.
type Config struct {
	BotName      string   `json:"botName"`
	Prefix       string   `json:"prefix"`
	OwnerNumbers []string `json:"ownerNumbers"`
	SelfMode     bool     `json:"selfMode"`
	AntiCall     bool     `json:"antiCall"`
	AutoRead     bool     `json:"autoRead"`
	AutoTyping   bool     `json:"autoTyping"`
	AutoSticker  bool     `json:"autoSticker"`
	MaxWarnings  int      `json:"maxWarnings"`
	Messages     Messages `json:"messages"`
}

func defaults() Config {
	return Config{
		BotName:      env.GetEnvStringOrDefault("BOT_NAME", "whatsguard"),
		Prefix:       env.GetEnvStringOrDefault("BOT_PREFIX", "."),
		OwnerNumbers: env.GetEnvStringSliceOrDefault("BOT_OWNER_NUMBERS", nil),
		SelfMode:     env.GetEnvBoolOrDefault("BOT_SELF_MODE", false),
		AntiCall:     env.GetEnvBoolOrDefault("BOT_ANTI_CALL", false),
		AutoRead:     env.GetEnvBoolOrDefault("BOT_AUTO_READ", false),
		AutoTyping:   env.GetEnvBoolOrDefault("BOT_AUTO_TYPING", false),
		AutoSticker:  env.GetEnvBoolOrDefault("BOT_AUTO_STICKER", false),
		MaxWarnings:  env.GetEnvIntOrDefault("BOT_MAX_WARNINGS", 3),
		Messages: Messages{
			OwnerOnly:      "👑 This command is only for bot owner!",
			AdminOnly:      "🛡️ This command is only for group admins!",
			ModOnly:        "🔰 This command is only for bot moderators!",
			GroupOnly:      "👥 This command can only be used in groups!",
			PrivateOnly:    "💬 This command can only be used in private chat!",
			BotAdminNeeded: "🤖 Bot needs to be admin to execute this command!",
			Error:          "❌ Error occurred!",
		},
	}
}

// Store persists Config as a JSON file. Reload picks up edits made outside
// the process; there is no hidden re-read on access.
type Store struct {
	path string

	mu  sync.RWMutex
	cur Config
}

// Load reads the config file, seeding it with env-derived defaults when it
// does not exist yet.
func Load(path string) (*Store, error) {
	s := &Store{path: path, cur: defaults()}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(raw, &s.cur); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	s.normalize()
	return s, nil
}

func (s *Store) normalize() {
	if s.cur.Prefix == "" {
		s.cur.Prefix = "."
	}
	if s.cur.MaxWarnings <= 0 {
		s.cur.MaxWarnings = 3
	}
	def := defaults().Messages
	if s.cur.Messages.OwnerOnly == "" {
		s.cur.Messages.OwnerOnly = def.OwnerOnly
	}
	if s.cur.Messages.AdminOnly == "" {
		s.cur.Messages.AdminOnly = def.AdminOnly
	}
	if s.cur.Messages.ModOnly == "" {
		s.cur.Messages.ModOnly = def.ModOnly
	}
	if s.cur.Messages.GroupOnly == "" {
		s.cur.Messages.GroupOnly = def.GroupOnly
	}
	if s.cur.Messages.PrivateOnly == "" {
		s.cur.Messages.PrivateOnly = def.PrivateOnly
	}
	if s.cur.Messages.BotAdminNeeded == "" {
		s.cur.Messages.BotAdminNeeded = def.BotAdminNeeded
	}
	if s.cur.Messages.Error == "" {
		s.cur.Messages.Error = def.Error
	}
}

// Get returns a snapshot of the current configuration.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.cur
	snapshot.OwnerNumbers = append([]string(nil), s.cur.OwnerNumbers...)
	return snapshot
}

// Reload re-reads the config file.
func (s *Store) Reload() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	var next Config
	if err := json.Unmarshal(raw, &next); err != nil {
		return fmt.Errorf("parse config %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.cur = next
	s.normalize()
	s.mu.Unlock()
	return nil
}

// Update applies a mutation and persists the result.
func (s *Store) Update(mutate func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mutate(&s.cur)
	s.normalize()
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	raw, err := json.MarshalIndent(s.cur, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
