package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/erazemk/achados/internal/model"
)

const threadColumns = `id, item_id, owner_id, participant_id, last_message, created_at, updated_at`

const messageColumns = `id, thread_id, sender_id, content, is_read, created_at`

// OpenThread returns the thread between an item's owner and participantID,
// creating it when there is none. created reports whether it is new.
func OpenThread(ctx context.Context, db *sql.DB, itemID string, ownerID, participantID int64, now time.Time) (thread *model.Thread, created bool, err error) {
	now = now.UTC()
	res, err := sq.Insert("threads").
		Columns("item_id", "owner_id", "participant_id", "created_at", "updated_at").
		Values(itemID, ownerID, participantID, now, now).
		Suffix("ON CONFLICT (item_id, participant_id) DO NOTHING").
		RunWith(db).
		ExecContext(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("creating thread: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		created = true
	}

	row := sq.Select(threadColumns).From("threads").
		Where(sq.Eq{"item_id": itemID, "participant_id": participantID}).
		RunWith(db).
		QueryRowContext(ctx)
	thread, err = scanThread(row)
	if err != nil {
		return nil, false, fmt.Errorf("getting thread: %w", err)
	}
	return thread, created, nil
}

// GetThread returns a thread by ID, or nil when there is none.
func GetThread(ctx context.Context, db *sql.DB, id int64) (*model.Thread, error) {
	row := sq.Select(threadColumns).From("threads").Where(sq.Eq{"id": id}).RunWith(db).QueryRowContext(ctx)
	t, err := scanThread(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting thread: %w", err)
	}
	return t, nil
}

// ListThreads returns the threads userID takes part in, most recently active
// first. userID 0 lists every thread.
func ListThreads(ctx context.Context, db *sql.DB, userID int64) ([]model.Thread, error) {
	b := sq.Select(threadColumns).From("threads").OrderBy("updated_at DESC", "id DESC")
	if userID != 0 {
		b = b.Where(sq.Or{sq.Eq{"owner_id": userID}, sq.Eq{"participant_id": userID}})
	}

	rows, err := b.RunWith(db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing threads: %w", err)
	}
	defer rows.Close()

	threads := []model.Thread{}
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning thread: %w", err)
		}
		threads = append(threads, *t)
	}
	return threads, rows.Err()
}

// AddMessage stores a message and moves the thread's last message and
// activity time forward.
func AddMessage(ctx context.Context, db *sql.DB, threadID, senderID int64, content string, now time.Time) (*model.Message, error) {
	now = now.UTC()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := sq.Insert("messages").
		Columns("thread_id", "sender_id", "content", "created_at").
		Values(threadID, senderID, content, now).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("adding message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting message id: %w", err)
	}

	res, err = sq.Update("threads").
		Set("last_message", model.Preview(content)).
		Set("updated_at", now).
		Where(sq.Eq{"id": threadID}).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("updating thread: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("thread %d: %w", threadID, model.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing message: %w", err)
	}
	return &model.Message{ID: id, ThreadID: threadID, SenderID: senderID, Content: content, CreatedAt: now}, nil
}

// ListMessages returns up to limit messages of a thread, newest first.
func ListMessages(ctx context.Context, db *sql.DB, threadID int64, limit int) ([]model.Message, error) {
	rows, err := sq.Select(messageColumns).From("messages").
		Where(sq.Eq{"thread_id": threadID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		RunWith(db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.Content, &m.Read, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func scanThread(s scanner) (*model.Thread, error) {
	t := &model.Thread{}
	if err := s.Scan(&t.ID, &t.ItemID, &t.OwnerID, &t.ParticipantID, &t.LastMessage, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return t, nil
}
