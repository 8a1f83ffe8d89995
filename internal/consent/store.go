package consent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"apexgrab/internal/storage"
)

// ErrNotAccepted is returned when a job is requested before the usage policy
// was acknowledged in the current session.
var ErrNotAccepted = errors.New("usage policy not accepted")

// Notice is shown before the user accepts.
const Notice = "By using this tool, you acknowledge that you respect Social Media policies " +
	"and will only use it for legitimate purpose and will not share any of the files."

const fileName = "consent.json"

type record struct {
	Session    string    `json:"session"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// Store persists the acknowledgement for one session key. A record written
// under another session reads as not accepted.
type Store struct {
	files   *storage.FileStore
	session string
	now     func() time.Time
}

// NewStore creates a store in files scoped to session.
func NewStore(files *storage.FileStore, session string) *Store {
	return &Store{files: files, session: session, now: time.Now}
}

// Accepted reports whether the current session has acknowledged the policy.
func (s *Store) Accepted() (bool, error) {
	data, err := s.files.Read(fileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("consent: read: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return false, fmt.Errorf("consent: decode: %w", err)
	}
	return rec.Session == s.session, nil
}

// Accept records the acknowledgement for the current session.
func (s *Store) Accept(ctx context.Context) error {
	data, err := json.MarshalIndent(record{Session: s.session, AcceptedAt: s.now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("consent: encode: %w", err)
	}
	if _, err := s.files.Write(ctx, fileName, data); err != nil {
		return fmt.Errorf("consent: write: %w", err)
	}
	return nil
}

// Gate holds the flag read once at startup and writes it at most once.
type Gate struct {
	mu       sync.Mutex
	store    *Store
	accepted bool
}

// Load reads the flag from store. A corrupt record counts as not accepted.
func Load(store *Store) (*Gate, error) {
	accepted, err := store.Accepted()
	if err != nil {
		return &Gate{store: store}, err
	}
	return &Gate{store: store, accepted: accepted}, nil
}

// Accepted reports the flag.
func (g *Gate) Accepted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.accepted
}

// Accept persists the acknowledgement unless it is already recorded.
func (g *Gate) Accept(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.accepted {
		return nil
	}
	if err := g.store.Accept(ctx); err != nil {
		return err
	}
	g.accepted = true
	return nil
}

// Require returns ErrNotAccepted until the policy was acknowledged.
func (g *Gate) Require() error {
	if !g.Accepted() {
		return ErrNotAccepted
	}
	return nil
}
