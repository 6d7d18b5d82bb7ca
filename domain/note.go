package domain

import (
	"errors"
	"fmt"
)

// Keys the two collections are persisted under.
const (
	FoldersKey = "folders-data"
	NotesKey   = "notes-data"
)

// RootPath is the path of the implicit top-level folder.
const RootPath = "/"

type Note struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Text   string `json:"text"`
	Date   int64  `json:"date"`
	Folder string `json:"folder"`
}

type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Date int64  `json:"date"`
}

func NoteID(n Note) string     { return n.ID }
func FolderID(f Folder) string { return f.ID }

var ErrNotFound = errors.New("not found")

// ValidationError rejects a create or edit before any store mutation.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: require to fill in the field", e.Field)
}
