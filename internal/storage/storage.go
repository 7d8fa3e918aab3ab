// /internal/storage/storage.go
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"novabot/datastore"

	"github.com/google/uuid"
)

const commandHistoryLimit int = 50

type Storage struct {
	ds *datastore.DataStore
}

type CommandHistoryRecord struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Datetime  time.Time `json:"datetime"`
}

type Warning struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ModeratorID string    `json:"moderator_id"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

type Record struct {
	CommandHistory []CommandHistoryRecord `json:"cmd_history"`
	Warnings       []Warning              `json:"warnings"`
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// GetGuildRecord returns the record for a guild, empty if none was stored yet.
func (s *Storage) GetGuildRecord(guildID string) (*Record, error) {
	var record Record
	if _, err := s.ds.Get(guildKey(guildID), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// updateGuildRecord applies fn to the guild record under the store's write lock.
func (s *Storage) updateGuildRecord(guildID string, fn func(*Record) error) error {
	return s.ds.Update(guildKey(guildID), func(raw json.RawMessage) (json.RawMessage, error) {
		var record Record
		if raw != nil {
			if err := json.Unmarshal(raw, &record); err != nil {
				return nil, fmt.Errorf("error unmarshalling guild record: %w", err)
			}
		}
		if err := fn(&record); err != nil {
			return nil, err
		}
		return json.Marshal(&record)
	})
}

// AppendCommandToHistory appends a command history record for a guild, keeping the newest entries.
func (s *Storage) AppendCommandToHistory(guildID string, entry CommandHistoryRecord) error {
	return s.updateGuildRecord(guildID, func(r *Record) error {
		r.CommandHistory = append(r.CommandHistory, entry)
		if len(r.CommandHistory) > commandHistoryLimit {
			r.CommandHistory = r.CommandHistory[len(r.CommandHistory)-commandHistoryLimit:]
		}
		return nil
	})
}

func (s *Storage) FetchCommandHistory(guildID string) ([]CommandHistoryRecord, error) {
	record, err := s.GetGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandHistory, nil
}

// AddWarning stores a new warning and returns it with its generated ID.
func (s *Storage) AddWarning(guildID, userID, moderatorID, reason string) (Warning, error) {
	w := Warning{
		ID:          uuid.NewString(),
		UserID:      userID,
		ModeratorID: moderatorID,
		Reason:      reason,
		CreatedAt:   time.Now().UTC(),
	}
	err := s.updateGuildRecord(guildID, func(r *Record) error {
		r.Warnings = append(r.Warnings, w)
		return nil
	})
	return w, err
}

// Warnings lists a user's warnings, oldest first.
func (s *Storage) Warnings(guildID, userID string) ([]Warning, error) {
	record, err := s.GetGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	var out []Warning
	for _, w := range record.Warnings {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

// ClearWarnings removes all of a user's warnings and returns how many were removed.
func (s *Storage) ClearWarnings(guildID, userID string) (int, error) {
	removed := 0
	err := s.updateGuildRecord(guildID, func(r *Record) error {
		kept := r.Warnings[:0]
		for _, w := range r.Warnings {
			if w.UserID == userID {
				removed++
				continue
			}
			kept = append(kept, w)
		}
		r.Warnings = kept
		return nil
	})
	return removed, err
}

// CommandHash returns the hash of the command set last published to scope
// ("global" or a guild id).
func (s *Storage) CommandHash(scope string) (string, error) {
	var hash string
	if _, err := s.ds.Get(commandsKey(scope), &hash); err != nil {
		return "", err
	}
	return hash, nil
}

func (s *Storage) SetCommandHash(scope, hash string) error {
	return s.ds.Put(commandsKey(scope), hash)
}

func commandsKey(scope string) string {
	return "commands:" + scope
}

func guildKey(guildID string) string {
	return "guild:" + guildID
}
