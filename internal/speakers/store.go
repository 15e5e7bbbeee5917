package speakers

import (
	"database/sql"
	"errors"
	"time"
)

// DBPair interface for dependency injection (matches db.DBPair).
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// Repository persists the speaker registry across restarts.
// Uses separate reader/writer connections for optimal SQLite concurrency.
type Repository struct {
	reader *sql.DB // For SELECT queries
	writer *sql.DB // For INSERT/UPDATE/DELETE
}

// NewRepository creates a new speakers Repository.
func NewRepository(dbPair DBPair) *Repository {
	return &Repository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// Upsert writes a speaker keyed by MAC, preserving created_at on update.
func (r *Repository) Upsert(speaker Speaker) error {
	if speaker.MAC == "" {
		return errors.New("speaker MAC is required")
	}

	now := nowISO()
	lastSeen := now
	if !speaker.LastSeenAt.IsZero() {
		lastSeen = speaker.LastSeenAt.UTC().Format(time.RFC3339)
	}

	_, err := r.writer.Exec(`
		INSERT INTO speakers (mac, ip, name, volume, muted, led_on, group_name, repeat_mode, ap_ssid, last_seen_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(mac) DO UPDATE SET
			ip = excluded.ip,
			name = excluded.name,
			volume = excluded.volume,
			muted = excluded.muted,
			led_on = excluded.led_on,
			group_name = excluded.group_name,
			repeat_mode = excluded.repeat_mode,
			ap_ssid = excluded.ap_ssid,
			last_seen_at = excluded.last_seen_at
	`, speaker.MAC, speaker.IP, speaker.Name, speaker.Volume, boolInt(speaker.Muted), boolInt(speaker.LEDOn),
		speaker.GroupName, speaker.RepeatMode, speaker.APSSID, lastSeen, now)
	return err
}

// Get retrieves a speaker by MAC. Returns nil, nil if not found.
func (r *Repository) Get(mac string) (*Speaker, error) {
	row := r.reader.QueryRow(`
		SELECT mac, ip, name, volume, muted, led_on, group_name, repeat_mode, ap_ssid, last_seen_at, created_at
		FROM speakers
		WHERE mac = ?
	`, normalizeMAC(mac))

	speaker, err := scanSpeaker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return speaker, nil
}

// List returns all persisted speakers ordered by name.
func (r *Repository) List() ([]Speaker, error) {
	rows, err := r.reader.Query(`
		SELECT mac, ip, name, volume, muted, led_on, group_name, repeat_mode, ap_ssid, last_seen_at, created_at
		FROM speakers
		ORDER BY name, mac
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	speakers := []Speaker{}
	for rows.Next() {
		speaker, err := scanSpeaker(rows)
		if err != nil {
			return nil, err
		}
		speakers = append(speakers, *speaker)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return speakers, nil
}

// Delete removes a speaker by MAC.
func (r *Repository) Delete(mac string) error {
	_, err := r.writer.Exec("DELETE FROM speakers WHERE mac = ?", normalizeMAC(mac))
	return err
}

// KnownIPs returns the last-seen IP of every persisted speaker. These seed
// direct probes on the next scan.
func (r *Repository) KnownIPs() ([]string, error) {
	rows, err := r.reader.Query("SELECT ip FROM speakers WHERE ip != ''")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ips := []string{}
	for rows.Next() {
		var ip string
		if err := rows.Scan(&ip); err != nil {
			return nil, err
		}
		ips = append(ips, ip)
	}
	return ips, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpeaker(row rowScanner) (*Speaker, error) {
	var speaker Speaker
	var muted, ledOn int
	var lastSeen, created string

	err := row.Scan(&speaker.MAC, &speaker.IP, &speaker.Name, &speaker.Volume, &muted, &ledOn,
		&speaker.GroupName, &speaker.RepeatMode, &speaker.APSSID, &lastSeen, &created)
	if err != nil {
		return nil, err
	}

	speaker.Muted = muted != 0
	speaker.LEDOn = ledOn != 0
	if t, err := time.Parse(time.RFC3339, lastSeen); err == nil {
		speaker.LastSeenAt = t
	}
	if t, err := time.Parse(time.RFC3339, created); err == nil {
		speaker.CreatedAt = t
	}
	return &speaker, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
