package session

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

const StorageKey = "session"

// Store reads and writes the Session under StorageKey.
type Store struct {
	storage Storage
	logger  *zap.Logger
}

func NewStore(storage Storage, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{storage: storage, logger: logger}
}

// Load returns nil when nothing is stored or the stored text does not parse.
func (s *Store) Load() (*Session, error) {
	raw, ok, err := s.storage.GetItem(StorageKey)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		s.logger.Warn("stored session is not valid JSON, ignoring it", zap.Error(err))
		return nil, nil
	}
	return &sess, nil
}

func (s *Store) Save(sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.storage.SetItem(StorageKey, string(data)); err != nil {
		return err
	}
	s.logger.Debug("session saved", zap.String("email", sess.User.Email), zap.Bool("remember", sess.Remember))
	return nil
}

// Clear wipes the whole storage, not only the session key.
func (s *Store) Clear() error {
	if err := s.storage.Clear(); err != nil {
		return err
	}
	s.logger.Debug("session cleared")
	return nil
}
