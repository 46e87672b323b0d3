package model

import "time"

// Supported mood labels. The set is closed; anything else is rejected at the edges.
const (
	MoodJoy    = "joy"
	MoodCalm   = "calm"
	MoodSad    = "sad"
	MoodStress = "stress"
)

// Moods lists the supported mood labels in anchor seeding order.
var Moods = []string{MoodJoy, MoodSad, MoodCalm, MoodStress}

// IsMood reports whether m is one of the supported mood labels.
func IsMood(m string) bool {
	for _, v := range Moods {
		if v == m {
			return true
		}
	}
	return false
}

// User represents an account in the system.
type User struct {
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	CreationTime time.Time `json:"creationTime"`
}

// SongSelection is a snapshot of a catalog song taken when it was picked for an entry.
type SongSelection struct {
	SongID string `json:"songId"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Mood   string `json:"mood"`
}

// MediaAttachment references a file attached to an entry.
type MediaAttachment struct {
	FileID     string    `json:"fileId"`
	FileType   string    `json:"fileType"`
	URL        string    `json:"url,omitempty"`
	AttachedAt time.Time `json:"attachedAt"`
}

// Entry is a user's journal entry for a single calendar day.
type Entry struct {
	EntryID      string            `json:"entryId"`
	UserID       string            `json:"userId"`
	Date         time.Time         `json:"date"`
	Text         string            `json:"text"`
	Mood         string            `json:"mood"`
	Song         *SongSelection    `json:"song,omitempty"`
	Media        []MediaAttachment `json:"media,omitempty"`
	CreationTime time.Time         `json:"creationTime"`
	UpdateTime   time.Time         `json:"updateTime"`
}

// Song is a canonical catalog entry.
type Song struct {
	SongID      string    `json:"songId" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Artist      string    `json:"artist" yaml:"artist"`
	Album       string    `json:"album,omitempty" yaml:"album"`
	Mood        string    `json:"mood" yaml:"mood"`
	Description string    `json:"description,omitempty" yaml:"description"`
	AlbumArt    string    `json:"albumArt,omitempty" yaml:"albumArt"`
	Duration    int       `json:"duration,omitempty" yaml:"duration"`
	PlaybackRef string    `json:"playbackRef,omitempty" yaml:"playbackRef"`
	CreatedAt   time.Time `json:"createdAt" yaml:"-"`
}

// Selection returns the snapshot embedded into entries that pick this song.
func (s *Song) Selection() *SongSelection {
	return &SongSelection{SongID: s.SongID, Title: s.Title, Artist: s.Artist, Mood: s.Mood}
}

// EmbeddingText returns the text projected into the vector store for this song.
func (s *Song) EmbeddingText() string {
	if s.Description != "" {
		return s.Description
	}
	return s.Title + " by " + s.Artist
}

// MoodAnchor is a labeled exemplar used for nearest-neighbour classification.
type MoodAnchor struct {
	AnchorID string
	Mood     string
	Text     string
	Seq      int
	Version  string
}

// MoodTopSongs groups the most selected songs for one mood.
type MoodTopSongs struct {
	Mood     string      `json:"mood"`
	TopSongs []SongCount `json:"topSongs"`
}

// SongCount is a song with the number of entries that selected it.
type SongCount struct {
	SongID string `json:"songId"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Count  int64  `json:"playCount"`
}

// Stats is the dashboard summary for a user.
type Stats struct {
	Streak      int   `json:"streak"`
	SongsLogged int64 `json:"songsLogged"`
	ThisMonth   int64 `json:"thisMonth"`
	ThisWeek    int   `json:"thisWeek"`
}

// NamedCount is a label with an occurrence count.
type NamedCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// GraphLink connects a mood to a song in the insights graph.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Insights is the graph-derived view of a user's history.
type Insights struct {
	Username     string       `json:"username"`
	TotalEntries int          `json:"totalEntries"`
	TopMoods     []NamedCount `json:"topMoods"`
	TopArtists   []NamedCount `json:"topArtists"`
	Links        []GraphLink  `json:"links"`
}

// SongHistory is how often and when a user picked one song.
type SongHistory struct {
	SongID string     `json:"songId"`
	Count  int64      `json:"count"`
	First  *time.Time `json:"firstSelected,omitempty"`
	Last   *time.Time `json:"lastSelected,omitempty"`
}
