package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/recordroom/internal/models"
	"github.com/desertthunder/recordroom/internal/shared"
)

// NoteRepository persists [models.Note] entities.
type NoteRepository struct {
	db *sql.DB
}

// NewNoteRepository creates a new [NoteRepository] with the given database connection
func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create inserts a new note into the database with generated ID and sequence
func (r *NoteRepository) Create(note *models.Note) error {
	sequence, err := NextSequence(r.db, "notes")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	note.SetID(id)

	if err := note.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO notes (id, sequence, track_id, kind, content, voice_file_path, duration, author, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, note.TrackID(), string(note.Kind()), note.Content(),
		note.VoiceFilePath(), note.Duration(), note.Author(), note.CreatedAt(), note.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}

	return nil
}

// Get retrieves a note by ID, excluding soft-deleted notes
func (r *NoteRepository) Get(id string) (*models.Note, error) {
	query := `
		SELECT id, sequence, track_id, kind, content, voice_file_path, duration, author, created_at, updated_at, deleted_at
		FROM notes
		WHERE id = ? AND deleted_at IS NULL
	`

	note, err := scanNote(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrNoteNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query note: %w", err)
	}

	return note, nil
}

// ListForTrack retrieves all notes for a track ordered by creation time,
// excluding soft-deleted notes
func (r *NoteRepository) ListForTrack(trackID string) ([]*models.Note, error) {
	query := `
		SELECT id, sequence, track_id, kind, content, voice_file_path, duration, author, created_at, updated_at, deleted_at
		FROM notes
		WHERE track_id = ? AND deleted_at IS NULL
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(query, trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []*models.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return notes, nil
}

// Delete soft-deletes a note by ID after verifying the requesting author
// wrote it. The author match here is a client-side courtesy; the hosted data
// store enforces the real rule.
func (r *NoteRepository) Delete(id, author string) error {
	note, err := r.Get(id)
	if err != nil {
		return err
	}

	if note.Author() != author {
		return shared.ErrNoteForbidden
	}

	now := time.Now()

	query := `
		UPDATE notes
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrNoteNotFound, id)
	}

	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanNote.
type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (*models.Note, error) {
	var (
		noteID        string
		sequence      int
		trackID       string
		kind          string
		content       sql.NullString
		voiceFilePath sql.NullString
		duration      sql.NullInt64
		author        string
		createdAt     time.Time
		updatedAt     time.Time
		deletedAt     sql.NullTime
	)

	if err := s.Scan(&noteID, &sequence, &trackID, &kind, &content, &voiceFilePath, &duration, &author, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	var note *models.Note
	if models.NoteKind(kind) == models.VoiceNote {
		note = models.NewVoiceNote(sequence, trackID, voiceFilePath.String, int(duration.Int64), author)
	} else {
		note = models.NewTextNote(sequence, trackID, content.String, author)
	}

	note.SetID(noteID)
	note.SetCreatedAt(createdAt)
	note.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		note.SetDeletedAt(&deletedAt.Time)
	}

	return note, nil
}
