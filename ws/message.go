package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vinizap/foldnote/domain"
	"github.com/vinizap/foldnote/store"
)

type MessageType string

const (
	TypeNewNote   MessageType = "new_note"
	TypeNewFolder MessageType = "new_folder"
)

var errUnknownType = errors.New("unknown message type")

// Message is one frame of the inbound feed. Payload holds a Note or a
// Folder depending on Type.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatcher hands feed messages to the stores' Add.
type Dispatcher struct {
	folders *store.FolderStore
	notes   *store.NoteStore
	log     zerolog.Logger
}

func NewDispatcher(folders *store.FolderStore, notes *store.NoteStore, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{folders: folders, notes: notes, log: log}
}

// Apply adds the payload as-is. A failed write-through is logged and not
// returned: the entity is already in memory.
func (d *Dispatcher) Apply(ctx context.Context, msg Message) error {
	var err error
	switch msg.Type {
	case TypeNewNote:
		var n domain.Note
		if err := json.Unmarshal(msg.Payload, &n); err != nil {
			return fmt.Errorf("decode %s payload: %w", msg.Type, err)
		}
		err = d.notes.Add(ctx, n)
		d.log.Info().Str("type", string(msg.Type)).Str("id", n.ID).Msg("feed note added")
	case TypeNewFolder:
		var f domain.Folder
		if err := json.Unmarshal(msg.Payload, &f); err != nil {
			return fmt.Errorf("decode %s payload: %w", msg.Type, err)
		}
		err = d.folders.Add(ctx, f)
		d.log.Info().Str("type", string(msg.Type)).Str("id", f.ID).Str("slug", f.Slug).Msg("feed folder added")
	default:
		return fmt.Errorf("%w: %q", errUnknownType, msg.Type)
	}

	if errors.Is(err, store.ErrPersist) {
		d.log.Warn().Err(err).Str("type", string(msg.Type)).Msg("feed change kept in memory only")
		return nil
	}
	return err
}
