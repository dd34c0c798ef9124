package command

import (
	"sort"
	"strings"
	"sync"
)

var registry = struct {
	mu     sync.RWMutex
	byName map[string]*Command
	all    []*Command
}{
	byName: make(map[string]*Command),
}

// Register adds a command to the registry. Called from init() in the
// handlers package; duplicate names or aliases are a programming error and
// panic at startup.
func Register(cmd *Command) {
	if cmd == nil || cmd.Name == "" || cmd.Execute == nil {
		panic("command: Register called with an incomplete command")
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	names := append([]string{cmd.Name}, cmd.Aliases...)
	for _, name := range names {
		name = strings.ToLower(name)
		if _, exists := registry.byName[name]; exists {
			panic("command: duplicate registration for " + name)
		}
		registry.byName[name] = cmd
	}
	registry.all = append(registry.all, cmd)
}

// Lookup finds a command by name or alias, case-insensitively.
func Lookup(name string) *Command {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return registry.byName[strings.ToLower(name)]
}

// All returns every registered command sorted by name.
func All() []*Command {
	registry.mu.RLock()
	out := append([]*Command(nil), registry.all...)
	registry.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Categories groups commands by category for the menu, category names sorted.
func Categories() ([]string, map[string][]*Command) {
	grouped := make(map[string][]*Command)
	for _, cmd := range All() {
		grouped[cmd.Category] = append(grouped[cmd.Category], cmd)
	}

	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, grouped
}
