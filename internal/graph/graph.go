// Package graph holds the typed Dgraph payloads for the relationship projection and
// the builders that turn committed entries into upsert mutations.
package graph

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/isaac-evs/side-b/internal/model"
)

// Schema is applied through /alter when the graph store initializes.
const Schema = `
user_id: string @index(exact) @upsert .
username: string .
mood_name: string @index(exact) @upsert .
song_id: string @index(exact) @upsert .
title: string .
artist: string @index(exact) .
song_mood: string @index(exact) .
entry_id: string @index(exact) @upsert .
date: datetime @index(day) .
text_length: int .
file_id: string @index(exact) @upsert .
media_type: string @index(exact) .
url: string .
creator: uid @reverse .
has_mood: uid @reverse .
selected_song: uid @reverse .
entry_has_media: [uid] @reverse .

type User {
	user_id
	username
}

type Mood {
	mood_name
}

type Song {
	song_id
	title
	artist
	song_mood
}

type File {
	file_id
	media_type
	url
}

type Entry {
	entry_id
	date
	text_length
	creator
	has_mood
	selected_song
	entry_has_media
}
`

// Ref points at another node, usually through an upsert variable such as uid(u).
type Ref struct {
	UID string `json:"uid"`
}

type UserNode struct {
	UID      string   `json:"uid,omitempty"`
	DType    []string `json:"dgraph.type,omitempty"`
	UserID   string   `json:"user_id"`
	Username string   `json:"username,omitempty"`
}

type MoodNode struct {
	UID      string   `json:"uid,omitempty"`
	DType    []string `json:"dgraph.type,omitempty"`
	MoodName string   `json:"mood_name"`
}

type SongNode struct {
	UID      string   `json:"uid,omitempty"`
	DType    []string `json:"dgraph.type,omitempty"`
	SongID   string   `json:"song_id"`
	Title    string   `json:"title,omitempty"`
	Artist   string   `json:"artist,omitempty"`
	SongMood string   `json:"song_mood,omitempty"`
}

type FileNode struct {
	UID       string   `json:"uid,omitempty"`
	DType     []string `json:"dgraph.type,omitempty"`
	FileID    string   `json:"file_id"`
	MediaType string   `json:"media_type"`
	URL       string   `json:"url,omitempty"`
}

type EntryNode struct {
	UID          string     `json:"uid,omitempty"`
	DType        []string   `json:"dgraph.type,omitempty"`
	EntryID      string     `json:"entry_id,omitempty"`
	Date         *time.Time `json:"date,omitempty"`
	TextLength   int        `json:"text_length,omitempty"`
	Creator      *Ref       `json:"creator,omitempty"`
	HasMood      *Ref       `json:"has_mood,omitempty"`
	SelectedSong *Ref       `json:"selected_song,omitempty"`
	Media        []Ref      `json:"entry_has_media,omitempty"`
}

// Mutation is one upsert block: Query binds uid variables, Set is applied when Cond
// holds (or always when Cond is empty).
type Mutation struct {
	Query string
	Cond  string
	Set   []any
}

// Empty reports whether the mutation has nothing to write.
func (m Mutation) Empty() bool { return len(m.Set) == 0 }

// upsertBuilder collects var blocks for the upsert query.
type upsertBuilder struct {
	vars []string
	set  []any
}

func (b *upsertBuilder) bind(name, predicate, value string) string {
	b.vars = append(b.vars, fmt.Sprintf("%s as var(func: eq(%s, %s))", name, predicate, strconv.Quote(value)))
	return "uid(" + name + ")"
}

func (b *upsertBuilder) mutation(cond string) Mutation {
	return Mutation{
		Query: "{\n  " + strings.Join(b.vars, "\n  ") + "\n}",
		Cond:  cond,
		Set:   b.set,
	}
}

// NewEntryMutation builds the upsert that projects a committed entry: it resolves or
// creates the User, Mood, Song and File nodes by their external ids and links a single
// Entry node to them.
func NewEntryMutation(e *model.Entry, username string) (Mutation, error) {
	if e == nil {
		return Mutation{}, model.NewValidationError("entry", "is required")
	}
	switch {
	case e.EntryID == "":
		return Mutation{}, model.NewValidationError("entryId", "is required")
	case e.UserID == "":
		return Mutation{}, model.NewValidationError("userId", "is required")
	case !model.IsMood(e.Mood):
		return Mutation{}, model.NewValidationError("mood", fmt.Sprintf("unsupported mood %q", e.Mood))
	case e.Date.IsZero():
		return Mutation{}, model.NewValidationError("date", "is required")
	}

	b := &upsertBuilder{}
	user := b.bind("u", "user_id", e.UserID)
	mood := b.bind("m", "mood_name", e.Mood)
	entry := b.bind("e", "entry_id", e.EntryID)

	b.set = append(b.set,
		UserNode{UID: user, DType: []string{"User"}, UserID: e.UserID, Username: username},
		MoodNode{UID: mood, DType: []string{"Mood"}, MoodName: e.Mood},
	)
	day := e.Date.UTC()
	node := EntryNode{
		UID:        entry,
		DType:      []string{"Entry"},
		EntryID:    e.EntryID,
		Date:       &day,
		TextLength: len(e.Text),
		Creator:    &Ref{UID: user},
		HasMood:    &Ref{UID: mood},
	}

	if s := e.Song; s != nil {
		if s.SongID == "" {
			return Mutation{}, model.NewValidationError("song.songId", "is required")
		}
		song := b.bind("s", "song_id", s.SongID)
		b.set = append(b.set, SongNode{UID: song, DType: []string{"Song"}, SongID: s.SongID, Title: s.Title, Artist: s.Artist, SongMood: s.Mood})
		node.SelectedSong = &Ref{UID: song}
	}

	for i, m := range e.Media {
		f, err := fileNode(b, fmt.Sprintf("f%d", i), m)
		if err != nil {
			return Mutation{}, err
		}
		node.Media = append(node.Media, Ref{UID: f})
	}

	b.set = append(b.set, node)
	return b.mutation(""), nil
}

// NewMediaMutation links a new File node to an existing Entry node. The mutation is a
// no-op when the entry has not been projected yet.
func NewMediaMutation(entryID string, m model.MediaAttachment) (Mutation, error) {
	if entryID == "" {
		return Mutation{}, model.NewValidationError("entryId", "is required")
	}
	b := &upsertBuilder{}
	entry := b.bind("e", "entry_id", entryID)
	f, err := fileNode(b, "f", m)
	if err != nil {
		return Mutation{}, err
	}
	b.set = append(b.set, EntryNode{UID: entry, Media: []Ref{{UID: f}}})
	return b.mutation("@if(eq(len(e), 1))"), nil
}

func fileNode(b *upsertBuilder, name string, m model.MediaAttachment) (string, error) {
	if m.FileID == "" {
		return "", model.NewValidationError("media.fileId", "is required")
	}
	if m.FileType == "" {
		return "", model.NewValidationError("media.fileType", "is required")
	}
	ref := b.bind(name, "file_id", m.FileID)
	b.set = append(b.set, FileNode{UID: ref, DType: []string{"File"}, FileID: m.FileID, MediaType: m.FileType, URL: m.URL})
	return ref, nil
}
