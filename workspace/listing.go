package workspace

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vinizap/foldnote/domain"
	"github.com/vinizap/foldnote/filter"
	"github.com/vinizap/foldnote/slug"
)

// FoldersUnder returns the folders shown when viewing path. At the root
// only top-level folders match; below it every descendant matches,
// whatever its depth.
func (w *Workspace) FoldersUnder(path string) []domain.Folder {
	var out []domain.Folder
	for _, f := range w.Folders.All() {
		if path == domain.RootPath {
			if slug.Depth(f.Slug) == 1 {
				out = append(out, f)
			}
			continue
		}
		if strings.HasPrefix(f.Slug, path+"/") {
			out = append(out, f)
		}
	}
	return out
}

// NotesIn returns the notes filed exactly under path.
func (w *Workspace) NotesIn(path string) []domain.Note {
	var out []domain.Note
	for _, n := range w.Notes.All() {
		if n.Folder == path {
			out = append(out, n)
		}
	}
	return out
}

// Search matches query case-insensitively against the names of all notes
// and folders, regardless of the current path.
func (w *Workspace) Search(query string) []domain.Item {
	q := strings.ToLower(query)

	var out []domain.Item
	for _, n := range w.Notes.All() {
		if strings.Contains(strings.ToLower(n.Name), q) {
			out = append(out, domain.NoteItem(n))
		}
	}
	for _, f := range w.Folders.All() {
		if strings.Contains(strings.ToLower(f.Name), q) {
			out = append(out, domain.FolderItem(f))
		}
	}
	return out
}

// Exists reports whether path can be viewed: the root always can, any
// other path needs at least one folder slug starting with it.
func (w *Workspace) Exists(path string) bool {
	if path == domain.RootPath {
		return true
	}
	for _, f := range w.Folders.All() {
		if strings.HasPrefix(f.Slug, path) {
			return true
		}
	}
	return false
}

// List returns what a user sees at path: the search results when query is
// set, otherwise the notes and folders under path. Items are ordered by
// date, newest first; equal dates keep notes before folders. A non-nil
// filter drops items it does not match. An unknown path is ErrNotFound
// even while searching.
func (w *Workspace) List(path, query string, f *filter.Filter) ([]domain.Item, error) {
	if !w.Exists(path) {
		return nil, fmt.Errorf("path %q: %w", path, domain.ErrNotFound)
	}

	var items []domain.Item
	if query != "" {
		items = w.Search(query)
	} else {
		for _, n := range w.NotesIn(path) {
			items = append(items, domain.NoteItem(n))
		}
		for _, fo := range w.FoldersUnder(path) {
			items = append(items, domain.FolderItem(fo))
		}
	}

	if f != nil {
		kept := items[:0]
		for _, it := range items {
			ok, err := f.Match(it)
			if err != nil {
				return nil, err
			}
			if ok {
				kept = append(kept, it)
			}
		}
		items = kept
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date > items[j].Date
	})
	if items == nil {
		items = []domain.Item{}
	}
	return items, nil
}

// Breadcrumb returns the folders along path from the top level down. Path
// segments without a folder of their own are skipped.
func (w *Workspace) Breadcrumb(path string) []domain.Folder {
	bySlug := make(map[string]domain.Folder)
	for _, f := range w.Folders.All() {
		bySlug[f.Slug] = f
	}

	var trail []domain.Folder
	for p := path; p != domain.RootPath && p != ""; p = slug.Parent(p) {
		if f, ok := bySlug[p]; ok {
			trail = append(trail, f)
		}
	}
	for i, j := 0, len(trail)-1; i < j; i, j = i+1, j-1 {
		trail[i], trail[j] = trail[j], trail[i]
	}
	return trail
}
