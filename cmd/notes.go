package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/recordroom/internal/models"
	"github.com/desertthunder/recordroom/internal/repositories"
	"github.com/desertthunder/recordroom/internal/shared"
	"github.com/urfave/cli/v3"
)

// noteJSON is the JSON shape for notes list output.
type noteJSON struct {
	ID        string    `json:"id"`
	TrackID   string    `json:"track_id"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content,omitempty"`
	VoicePath string    `json:"voice_file_path,omitempty"`
	Duration  int       `json:"duration,omitempty"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// openNotes opens the configured notes database.
func (r *Runner) openNotes() (*sql.DB, *repositories.NoteRepository, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	return db, repositories.NewNoteRepository(db), nil
}

// NotesList lists a track's notes in creation order.
func (r *Runner) NotesList(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	trackID := cmd.StringArg("track-id")
	if trackID == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	db, repo, err := r.openNotes()
	if err != nil {
		return err
	}
	defer db.Close()

	notes, err := repo.ListForTrack(trackID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]noteJSON, 0, len(notes))
		for _, n := range notes {
			out = append(out, noteJSON{
				ID:        n.ID(),
				TrackID:   n.TrackID(),
				Kind:      string(n.Kind()),
				Content:   n.Content(),
				VoicePath: n.VoiceFilePath(),
				Duration:  n.Duration(),
				Author:    n.Author(),
				CreatedAt: n.CreatedAt(),
			})
		}
		return r.writeJSON(out, true)
	}

	if len(notes) == 0 {
		return r.writePlain("No notes for track %s\n", trackID)
	}

	for _, n := range notes {
		when := n.CreatedAt().Format("2006-01-02 15:04")
		switch n.Kind() {
		case models.VoiceNote:
			r.writePlain("[%s] %s  %s (voice, %ds) %s\n", when, n.Author(), n.VoiceFilePath(), n.Duration(), n.ID())
		default:
			r.writePlain("[%s] %s  %s %s\n", when, n.Author(), n.Content(), n.ID())
		}
	}

	return nil
}

// NotesAdd attaches a text or voice note to a track, authored by the
// signed-in user.
func (r *Runner) NotesAdd(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	trackID := cmd.StringArg("track-id")
	if trackID == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	text := cmd.String("text")
	voice := cmd.String("voice")
	if text == "" && voice == "" {
		return fmt.Errorf("%w: either --text or --voice is required", shared.ErrMissingArgument)
	}
	if text != "" && voice != "" {
		return fmt.Errorf("%w: cannot combine --text and --voice", shared.ErrInvalidInput)
	}

	session, err := r.restoreSession()
	if err != nil {
		return err
	}

	db, repo, err := r.openNotes()
	if err != nil {
		return err
	}
	defer db.Close()

	var note *models.Note
	if voice != "" {
		note = models.NewVoiceNote(0, trackID, voice, cmd.Int("duration"), session.User.ID)
	} else {
		note = models.NewTextNote(0, trackID, text, session.User.ID)
	}

	if err := repo.Create(note); err != nil {
		return err
	}

	r.logger.Info("note created", "id", note.ID(), "track", trackID, "kind", note.Kind())
	return r.writePlain("✓ Note %s added to track %s\n", note.ID(), trackID)
}

// NotesDelete removes one of the signed-in user's own notes.
func (r *Runner) NotesDelete(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	noteID := cmd.StringArg("note-id")
	if noteID == "" {
		return fmt.Errorf("%w: note id", shared.ErrMissingArgument)
	}

	session, err := r.restoreSession()
	if err != nil {
		return err
	}

	db, repo, err := r.openNotes()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repo.Delete(noteID, session.User.ID); err != nil {
		return err
	}

	return r.writePlain("✓ Note %s deleted\n", noteID)
}
