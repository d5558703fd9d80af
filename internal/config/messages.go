package config

import (
	"fmt"
	"math/rand/v2"
)

// Messages holds the reply phrase pools. Each reply picks one variant at random.
type Messages struct {
	Added         []string `toml:"added"`
	Removed       []string `toml:"removed"`
	NotFound      []string `toml:"not_found"`
	Empty         []string `toml:"empty"`
	ListHeader    []string `toml:"list_header"`
	Misunderstood []string `toml:"misunderstood"`
}

func (m Messages) validate() error {
	pools := []struct {
		name string
		pool []string
	}{
		{"added", m.Added},
		{"removed", m.Removed},
		{"not_found", m.NotFound},
		{"empty", m.Empty},
		{"list_header", m.ListHeader},
		{"misunderstood", m.Misunderstood},
	}
	for _, p := range pools {
		if len(p.pool) == 0 {
			return fmt.Errorf("messages.%s needs at least one phrase", p.name)
		}
	}
	return nil
}

func pick(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rand.IntN(len(pool))]
}

func (m Messages) AddedMessage() string         { return pick(m.Added) }
func (m Messages) RemovedMessage() string       { return pick(m.Removed) }
func (m Messages) NotFoundMessage() string      { return pick(m.NotFound) }
func (m Messages) EmptyMessage() string         { return pick(m.Empty) }
func (m Messages) ListHeaderMessage() string    { return pick(m.ListHeader) }
func (m Messages) MisunderstoodMessage() string { return pick(m.Misunderstood) }
