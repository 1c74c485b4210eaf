// SPDX-License-Identifier: MIT

package gate

import (
	"fmt"
	"os"

	"github.com/google/renameio/v2"
)

// Publisher performs the atomic visibility swap between the continuously
// rewritten private playlist and the gated public playlist. It holds no state
// beyond what is observable on disk.
type Publisher struct {
	Private string
	Public  string
}

// NewPublisher creates a publisher for the given playlist pair.
func NewPublisher(private, public string) *Publisher {
	return &Publisher{Private: private, Public: public}
}

// Publish copies the current private playlist over the public path via an
// atomic rename. A consumer can never observe a half-written public playlist.
// No-op if the private playlist is currently absent.
func (p *Publisher) Publish() error {
	data, err := os.ReadFile(p.Private)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read private playlist: %w", err)
	}

	// renameio writes to a temp file in the target directory, fsyncs and
	// renames. Rename is the only mutation path for the public playlist.
	if err := renameio.WriteFile(p.Public, data, 0o644); err != nil {
		return fmt.Errorf("publish playlist: %w", err)
	}
	return nil
}

// Unpublish removes the public playlist if present. Idempotent.
func (p *Publisher) Unpublish() error {
	if err := os.Remove(p.Public); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unpublish playlist: %w", err)
	}
	return nil
}

// PublicExists reports whether the public playlist is currently visible.
func (p *Publisher) PublicExists() bool {
	_, err := os.Stat(p.Public)
	return err == nil
}
