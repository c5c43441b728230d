package models

import (
	"fmt"
	"time"
)

// NoteKind discriminates text notes from voice notes.
type NoteKind string

const (
	TextNote  NoteKind = "text"
	VoiceNote NoteKind = "voice"
)

// Note is a message a user attaches to a track in the shared playlist. Text
// notes carry content; voice notes carry a storage path and a duration in
// seconds. Ordering within a track is by creation time.
type Note struct {
	id            string
	sequence      int
	trackID       string
	kind          NoteKind
	content       string
	voiceFilePath string
	duration      int
	author        string
	createdAt     time.Time
	updatedAt     time.Time
	deletedAt     *time.Time
}

// NewTextNote creates a text note for a track.
func NewTextNote(sequence int, trackID, content, author string) *Note {
	now := time.Now()
	return &Note{
		sequence:  sequence,
		trackID:   trackID,
		kind:      TextNote,
		content:   content,
		author:    author,
		createdAt: now,
		updatedAt: now,
	}
}

// NewVoiceNote creates a voice note for a track. duration is in seconds.
func NewVoiceNote(sequence int, trackID, voiceFilePath string, duration int, author string) *Note {
	now := time.Now()
	return &Note{
		sequence:      sequence,
		trackID:       trackID,
		kind:          VoiceNote,
		voiceFilePath: voiceFilePath,
		duration:      duration,
		author:        author,
		createdAt:     now,
		updatedAt:     now,
	}
}

func (n *Note) ID() string            { return n.id }
func (n *Note) Sequence() int         { return n.sequence }
func (n *Note) TrackID() string       { return n.trackID }
func (n *Note) Kind() NoteKind        { return n.kind }
func (n *Note) Content() string       { return n.content }
func (n *Note) VoiceFilePath() string { return n.voiceFilePath }
func (n *Note) Duration() int         { return n.duration }
func (n *Note) Author() string        { return n.author }
func (n *Note) CreatedAt() time.Time  { return n.createdAt }
func (n *Note) UpdatedAt() time.Time  { return n.updatedAt }
func (n *Note) DeletedAt() *time.Time { return n.deletedAt }

func (n *Note) SetID(id string)           { n.id = id }
func (n *Note) SetCreatedAt(t time.Time)  { n.createdAt = t }
func (n *Note) SetUpdatedAt(t time.Time)  { n.updatedAt = t }
func (n *Note) SetDeletedAt(t *time.Time) { n.deletedAt = t }
func (n *Note) SetContent(content string) { n.content = content }

// Validate checks the note's required fields per kind.
func (n *Note) Validate() error {
	if n.trackID == "" {
		return fmt.Errorf("note requires a track id")
	}
	if n.author == "" {
		return fmt.Errorf("note requires an author")
	}
	switch n.kind {
	case TextNote:
		if n.content == "" {
			return fmt.Errorf("text note requires content")
		}
	case VoiceNote:
		if n.voiceFilePath == "" {
			return fmt.Errorf("voice note requires a file path")
		}
		if n.duration <= 0 {
			return fmt.Errorf("voice note requires a positive duration")
		}
	default:
		return fmt.Errorf("unknown note kind: %s", n.kind)
	}
	return nil
}
