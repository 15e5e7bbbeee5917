package groups

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DBPair interface for dependency injection (matches db.DBPair).
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// Repository persists group definitions so the hub remembers them across
// restarts. Group membership on the devices themselves is always the
// source of truth; this is the hub's record of what it created.
type Repository struct {
	reader *sql.DB
	writer *sql.DB
}

// NewRepository creates a new groups Repository.
func NewRepository(dbPair DBPair) *Repository {
	return &Repository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// Save writes a group record and returns its generated id.
func (r *Repository) Save(group Group) (string, error) {
	main := group.Main()
	if main.MAC == "" {
		return "", errors.New("group has no main speaker")
	}

	membersJSON, err := json.Marshal(group.Members)
	if err != nil {
		return "", err
	}

	groupID := uuid.New().String()
	createdAt := group.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = r.writer.Exec(`
		INSERT INTO speaker_groups (group_id, name, main_mac, members_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, groupID, group.Name, main.MAC, string(membersJSON), createdAt.Format(time.RFC3339))
	if err != nil {
		return "", err
	}
	return groupID, nil
}

// StoredGroup is a persisted group with its id.
type StoredGroup struct {
	GroupID string `json:"group_id"`
	Group
}

// Get retrieves a group by id. Returns nil, nil if not found.
func (r *Repository) Get(groupID string) (*StoredGroup, error) {
	row := r.reader.QueryRow(`
		SELECT group_id, name, members_json, created_at
		FROM speaker_groups
		WHERE group_id = ?
	`, groupID)

	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return group, nil
}

// List returns all persisted groups, newest first.
func (r *Repository) List() ([]StoredGroup, error) {
	rows, err := r.reader.Query(`
		SELECT group_id, name, members_json, created_at
		FROM speaker_groups
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []StoredGroup{}
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *group)
	}
	return groups, rows.Err()
}

// Delete removes a group record.
func (r *Repository) Delete(groupID string) error {
	_, err := r.writer.Exec("DELETE FROM speaker_groups WHERE group_id = ?", groupID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*StoredGroup, error) {
	var stored StoredGroup
	var membersJSON, createdAt string

	if err := row.Scan(&stored.GroupID, &stored.Name, &membersJSON, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(membersJSON), &stored.Members); err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		stored.CreatedAt = t
	}
	return &stored, nil
}
