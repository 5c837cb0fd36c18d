package store

import (
	"database/sql"
	"fmt"
)

// NotificationRepository stores operator-visible suggestions or status
// lines, scoped to one project fingerprint.
type NotificationRepository struct {
	db          *sql.DB
	fingerprint string
}

func NewNotificationRepository(db *sql.DB, projectFingerprint string) *NotificationRepository {
	return &NotificationRepository{db: db, fingerprint: projectFingerprint}
}

func (r *NotificationRepository) Create(message string) (*Notification, error) {
	now := formatTime(nowUTC())
	res, err := r.db.Exec(
		`INSERT INTO notifications (project_fingerprint, message, created_at) VALUES (?, ?, ?)`,
		r.fingerprint, message, now,
	)
	if err != nil {
		return nil, fmt.Errorf("laminark: create notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("laminark: create notification: %w", err)
	}
	return &Notification{ID: id, ProjectFingerprint: r.fingerprint, Message: message, CreatedAt: parseTime(now)}, nil
}

func (r *NotificationRepository) Recent(limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(
		`SELECT id, project_fingerprint, message, created_at FROM notifications WHERE project_fingerprint = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		r.fingerprint, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("laminark: list notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		var createdAt string
		if err := rows.Scan(&n.ID, &n.ProjectFingerprint, &n.Message, &createdAt); err != nil {
			return nil, err
		}
		n.CreatedAt = parseTime(createdAt)
		out = append(out, n)
	}
	return out, rows.Err()
}
