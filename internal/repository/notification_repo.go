package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/fitmatch/fitmatch/internal/db"
	"github.com/fitmatch/fitmatch/internal/utils/pagination"
)

// NotificationRepository provides data access for durable notification rows.
// Rows are created by the event dispatcher and mutated (mark-as-read,
// deleted) only by their recipient.
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new repository bound to the given DB connection.
func NewNotificationRepository(database *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: database}
}

// Append inserts a notification row.
func (r *NotificationRepository) Append(
	ctx context.Context,
	recipientID uint64,
	kind, payload string,
) (db.Notification, error) {
	n := db.Notification{
		RecipientID: recipientID,
		Kind:        kind,
		Payload:     payload,
	}
	err := r.db.WithContext(ctx).Create(&n).Error
	return n, err
}

// ListByRecipient returns the recipient's notifications newest first, with
// cursor-based pagination.
func (r *NotificationRepository) ListByRecipient(
	ctx context.Context,
	recipientID uint64,
	paginationToken *string,
	limit int,
) ([]db.Notification, *string, error) {
	var notifications []db.Notification

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if cursor.ID > 0 && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix)
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			ts, ts, cursor.ID,
		)
	}

	if err := query.Find(&notifications).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(notifications) > limit {
		last := notifications[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ID:          last.ID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		notifications = notifications[:limit]
	}

	return notifications, nextToken, nil
}

// CountUnread returns the recipient's unread notification count from the DB.
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flags one notification as read. The recipient filter enforces
// single-owner mutation; a non-owner sees ErrRecordNotFound.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID uint64) (db.Notification, error) {
	var n db.Notification
	err := r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		First(&n).Error
	if err != nil {
		return db.Notification{}, err
	}

	if n.IsRead {
		return n, nil
	}

	n.IsRead = true
	err = r.db.WithContext(ctx).Model(&n).Update("is_read", true).Error
	return n, err
}

// MarkAllRead flags every unread notification of the recipient as read and
// returns how many rows changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// Delete removes a notification owned by the recipient.
func (r *NotificationRepository) Delete(ctx context.Context, id, recipientID uint64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Delete(&db.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
