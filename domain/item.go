package domain

import (
	"regexp"
	"strconv"
	"time"
)

type Kind string

const (
	KindNote   Kind = "note"
	KindFolder Kind = "folder"
)

// Item is a note or a folder as it appears in a listing.
type Item struct {
	Kind   Kind   `json:"type"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Date   int64  `json:"date"`
	Slug   string `json:"slug,omitempty"`
	Text   string `json:"text,omitempty"`
	Folder string `json:"folder,omitempty"`
}

func NoteItem(n Note) Item {
	return Item{Kind: KindNote, ID: n.ID, Name: n.Name, Date: n.Date, Text: n.Text, Folder: n.Folder}
}

func FolderItem(f Folder) Item {
	return Item{Kind: KindFolder, ID: f.ID, Name: f.Name, Date: f.Date, Slug: f.Slug}
}

const DefaultDateFormat = "Y-M-D h:m:s"

var datePlaceholder = regexp.MustCompile(`Y|M|D|h|m|s`)

// FormatTimestamp renders a millisecond timestamp with the placeholders
// Y, M, D, h, m and s. Everything except the year is zero-padded.
func FormatTimestamp(ms int64, format string, loc *time.Location) string {
	if format == "" {
		format = DefaultDateFormat
	}
	if loc == nil {
		loc = time.Local
	}
	t := time.UnixMilli(ms).In(loc)

	pad := func(v int) string {
		if v < 10 {
			return "0" + strconv.Itoa(v)
		}
		return strconv.Itoa(v)
	}

	return datePlaceholder.ReplaceAllStringFunc(format, func(p string) string {
		switch p {
		case "Y":
			return strconv.Itoa(t.Year())
		case "M":
			return pad(int(t.Month()))
		case "D":
			return pad(t.Day())
		case "h":
			return pad(t.Hour())
		case "m":
			return pad(t.Minute())
		case "s":
			return pad(t.Second())
		}
		return p
	})
}

// Millis converts t to the millisecond timestamps stored on entities.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
