// Package workspace validates user input, assigns identities and answers
// the path-based listing queries on top of the folder and note stores.
package workspace

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vinizap/foldnote/domain"
	"github.com/vinizap/foldnote/slug"
	"github.com/vinizap/foldnote/store"
)

type Workspace struct {
	Folders *store.FolderStore
	Notes   *store.NoteStore

	newID func() string
	now   func() time.Time
}

type Option func(*Workspace)

// WithIDGenerator replaces uuid.NewString as the source of entity ids.
func WithIDGenerator(fn func() string) Option {
	return func(w *Workspace) { w.newID = fn }
}

// WithClock replaces time.Now for the date stamps.
func WithClock(fn func() time.Time) Option {
	return func(w *Workspace) { w.now = fn }
}

func New(folders *store.FolderStore, notes *store.NoteStore, opts ...Option) *Workspace {
	w := &Workspace{
		Folders: folders,
		Notes:   notes,
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workspace) stamp() int64 {
	return domain.Millis(w.now())
}

func (w *Workspace) slugs() []string {
	folders := w.Folders.All()
	slugs := make([]string, len(folders))
	for i, f := range folders {
		slugs[i] = f.Slug
	}
	return slugs
}

// CreateFolder adds a folder named name below currentPath.
//
// Resolving the slug and adding the folder are two steps; concurrent
// creations of the same name may end up with the same slug.
func (w *Workspace) CreateFolder(ctx context.Context, name, currentPath string) (domain.Folder, error) {
	if name == "" {
		return domain.Folder{}, &domain.ValidationError{Field: "name"}
	}

	f := domain.Folder{
		ID:   w.newID(),
		Name: name,
		Slug: slug.Resolve(name, w.slugs(), currentPath),
		Date: w.stamp(),
	}
	return f, w.Folders.Add(ctx, f)
}

// RenameFolder changes the display name only. The slug stays, so notes
// filed under it keep their folder.
func (w *Workspace) RenameFolder(ctx context.Context, id, name string) (domain.Folder, error) {
	if name == "" {
		return domain.Folder{}, &domain.ValidationError{Field: "name"}
	}

	f, ok := w.Folders.Get(id)
	if !ok {
		return domain.Folder{}, fmt.Errorf("folder %q: %w", id, domain.ErrNotFound)
	}
	f.Name = name
	f.Date = w.stamp()
	return f, w.Folders.Update(ctx, f)
}

// DeleteFolder removes the folder entry. Subfolders and notes filed under
// its slug are left untouched.
func (w *Workspace) DeleteFolder(ctx context.Context, id string) error {
	return w.Folders.Delete(ctx, id)
}

func validateNote(name, text string) error {
	if name == "" {
		return &domain.ValidationError{Field: "name"}
	}
	if text == "" {
		return &domain.ValidationError{Field: "text"}
	}
	return nil
}

// CreateNote files a new note under currentPath.
func (w *Workspace) CreateNote(ctx context.Context, name, text, currentPath string) (domain.Note, error) {
	if err := validateNote(name, text); err != nil {
		return domain.Note{}, err
	}

	n := domain.Note{
		ID:     w.newID(),
		Name:   name,
		Text:   text,
		Date:   w.stamp(),
		Folder: currentPath,
	}
	return n, w.Notes.Add(ctx, n)
}

func (w *Workspace) EditNote(ctx context.Context, id, name, text string) (domain.Note, error) {
	if err := validateNote(name, text); err != nil {
		return domain.Note{}, err
	}

	n, ok := w.Notes.Get(id)
	if !ok {
		return domain.Note{}, fmt.Errorf("note %q: %w", id, domain.ErrNotFound)
	}
	n.Name = name
	n.Text = text
	n.Date = w.stamp()
	return n, w.Notes.Update(ctx, n)
}

func (w *Workspace) DeleteNote(ctx context.Context, id string) error {
	return w.Notes.Delete(ctx, id)
}
