package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/google/renameio/v2"
)

// Format selects how Save writes entries.
type Format string

const (
	// FormatPlus writes the header and #EXTINF lines as they were read (M3U Plus: tvg-id,
	// tvg-logo, group-title and other attributes survive).
	FormatPlus Format = "plus"
	// FormatPlain writes "#EXTINF:<duration>,<name>" with no attributes.
	FormatPlain Format = "plain"
)

// ParseFormat maps a user-supplied format name to a Format. Empty means FormatPlus.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "plus", "m3u_plus", "m3uplus":
		return FormatPlus, nil
	case "plain", "m3u", "m3u8":
		return FormatPlain, nil
	}
	return "", fmt.Errorf("unknown playlist format %q (want plus or plain)", s)
}

// Entry is one channel of a playlist: its #EXTINF line, any directive lines that
// followed it (#EXTGRP, #EXTVLCOPT, #KODIPROP) and the stream URL.
// ID is assigned at load time and stays stable for the life of the Playlist; it is the
// identity used by Remove.
type Entry struct {
	ID       string   `json:"id"`
	Duration string   `json:"duration"`        // "-1" for live streams
	Attrs    string   `json:"attrs,omitempty"` // raw attribute list, e.g. `tvg-id="x" group-title="PL"`
	Name     string   `json:"name"`            // display name, everything after the attribute list's comma
	EXTINF   string   `json:"extinf"`          // original line
	Extra    []string `json:"extra,omitempty"`
	URL      string   `json:"url"`
}

// DisplayName returns the entry's name as shown by players.
func (e Entry) DisplayName() string {
	return e.Name
}

// Playlist is an ordered M3U playlist.
type Playlist struct {
	Header  string  `json:"header"` // "#EXTM3U" line including attributes such as url-tvg
	Entries []Entry `json:"entries"`
}

// New returns an empty playlist.
func New() *Playlist {
	return &Playlist{Header: "#EXTM3U"}
}

// Snapshot returns a copy of the entries for read-only use.
func (p *Playlist) Snapshot() []Entry {
	out := make([]Entry, len(p.Entries))
	copy(out, p.Entries)
	return out
}

// Len returns the number of entries.
func (p *Playlist) Len() int {
	return len(p.Entries)
}

// Remove deletes every entry whose ID is in ids in a single pass and returns how many
// were removed. Order of the remaining entries is preserved.
func (p *Playlist) Remove(ids map[string]struct{}) int {
	if len(ids) == 0 {
		return 0
	}
	kept := p.Entries[:0]
	removed := 0
	for _, e := range p.Entries {
		if _, drop := ids[e.ID]; drop {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	// Clear the tail so dropped entries don't linger in the backing array.
	for i := len(kept); i < len(p.Entries); i++ {
		p.Entries[i] = Entry{}
	}
	p.Entries = kept
	return removed
}

// Encode writes the playlist to w in format f.
func (p *Playlist) Encode(w io.Writer, f Format) error {
	var buf bytes.Buffer
	header := p.Header
	if f == FormatPlain || header == "" {
		header = "#EXTM3U"
	}
	buf.WriteString(header + "\n")
	for _, e := range p.Entries {
		line := e.EXTINF
		if f == FormatPlain || line == "" {
			dur := e.Duration
			if dur == "" {
				dur = "-1"
			}
			line = "#EXTINF:" + dur + "," + e.Name
		}
		buf.WriteString(line + "\n")
		for _, x := range e.Extra {
			buf.WriteString(x + "\n")
		}
		buf.WriteString(e.URL + "\n")
	}
	_, err := io.Copy(w, &buf)
	return err
}

// IsBrotli reports whether path names a brotli-compressed playlist (".br" suffix).
func IsBrotli(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".br")
}

// Save writes the playlist to path, replacing any existing file atomically and durably:
// readers see either the old or the new playlist, never a partial one. The existing
// file's permissions are kept. Paths ending in .br are brotli-compressed.
func (p *Playlist) Save(path string, f Format) error {
	pending, err := renameio.NewPendingFile(filepath.Clean(path), renameio.WithExistingPermissions())
	if err != nil {
		return fmt.Errorf("catalog save: create temp: %w", err)
	}
	defer pending.Cleanup()

	var w io.Writer = pending
	var bw *brotli.Writer
	if IsBrotli(path) {
		bw = brotli.NewWriter(pending)
		w = bw
	}
	if err := p.Encode(w, f); err != nil {
		return fmt.Errorf("catalog save: write: %w", err)
	}
	if bw != nil {
		if err := bw.Close(); err != nil {
			return fmt.Errorf("catalog save: compress: %w", err)
		}
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("catalog save: rename: %w", err)
	}
	return nil
}

// Backup copies path to path+".bak" (atomically, keeping the source's permissions)
// and returns the backup path.
func Backup(path string) (string, error) {
	path = filepath.Clean(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("catalog backup: read: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("catalog backup: stat: %w", err)
	}
	dst := path + ".bak"
	if err := renameio.WriteFile(dst, data, info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("catalog backup: write: %w", err)
	}
	return dst, nil
}
