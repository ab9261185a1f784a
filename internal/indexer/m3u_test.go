package indexer

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
)

const samplePlaylist = `#EXTM3U url-tvg="http://epg.example/guide.xml"
#EXTINF:-1 tvg-id="tvp1.pl" tvg-name="TVP1 HD" group-title="PL | Ogólne",TVP1 HD
http://example.com/1
#EXTINF:-1 tvg-id="tvp1.pl" group-title="PL, Main",Provider, TVP1 FHD
#EXTVLCOPT:http-user-agent=VLC
http://example.com/2

#EXTINF:-1,Polsat
http://example.com/3
`

func TestParseM3UBytes_entries(t *testing.T) {
	p, err := ParseM3UBytes([]byte(samplePlaylist))
	if err != nil {
		t.Fatal(err)
	}
	if p.Header != `#EXTM3U url-tvg="http://epg.example/guide.xml"` {
		t.Errorf("header = %q", p.Header)
	}
	if p.Len() != 3 {
		t.Fatalf("expected 3 entries; got %d", p.Len())
	}
	wantNames := []string{"TVP1 HD", "Provider, TVP1 FHD", "Polsat"}
	wantURLs := []string{"http://example.com/1", "http://example.com/2", "http://example.com/3"}
	for i, e := range p.Entries {
		if e.Name != wantNames[i] || e.URL != wantURLs[i] {
			t.Errorf("entry[%d] = Name=%q URL=%q; want %q / %q", i, e.Name, e.URL, wantNames[i], wantURLs[i])
		}
		if e.Duration != "-1" {
			t.Errorf("entry[%d] duration = %q", i, e.Duration)
		}
	}
	if got := AttrValue(p.Entries[1].Attrs, "group-title"); got != "PL, Main" {
		t.Errorf("quoted comma broke attribute parsing: group-title = %q", got)
	}
	if len(p.Entries[1].Extra) != 1 || p.Entries[1].Extra[0] != "#EXTVLCOPT:http-user-agent=VLC" {
		t.Errorf("extra lines = %v", p.Entries[1].Extra)
	}
	if p.Entries[2].Attrs != "" {
		t.Errorf("attrs = %q", p.Entries[2].Attrs)
	}
}

func TestParseM3UBytes_idsUniqueForIdenticalEntries(t *testing.T) {
	m3u := "#EXTM3U\n#EXTINF:-1,A HD\nhttp://x/a\n#EXTINF:-1,A HD\nhttp://x/a\n"
	p, err := ParseM3UBytes([]byte(m3u))
	if err != nil {
		t.Fatal(err)
	}
	if p.Entries[0].ID == p.Entries[1].ID {
		t.Errorf("identical entries share ID %q", p.Entries[0].ID)
	}
}

func TestParseM3UBytes_headerOnly(t *testing.T) {
	p, err := ParseM3UBytes([]byte("#EXTM3U\n"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 0 {
		t.Errorf("expected no entries; got %d", p.Len())
	}
}

func TestParseM3UBytes_crlfAndBOM(t *testing.T) {
	m3u := "\xEF\xBB\xBF#EXTM3U\r\n#EXTINF:-1,TVP1 HD\r\nhttp://x/1\r\n"
	p, err := ParseM3UBytes([]byte(m3u))
	if err != nil {
		t.Fatal(err)
	}
	if p.Header != "#EXTM3U" || p.Len() != 1 || p.Entries[0].Name != "TVP1 HD" || p.Entries[0].URL != "http://x/1" {
		t.Errorf("parsed %+v", p)
	}
}

func TestParseM3UBytes_utf16(t *testing.T) {
	src := "#EXTM3U\n#EXTINF:-1,TVP1 HD\nhttp://x/1\n"
	data := []byte{0xFF, 0xFE}
	for _, r := range src {
		data = append(data, byte(r), 0)
	}
	p, err := ParseM3UBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 1 || p.Entries[0].Name != "TVP1 HD" {
		t.Errorf("parsed %+v", p.Entries)
	}
}

func TestParseM3UBytes_decodeError(t *testing.T) {
	m3u := []byte("#EXTM3U\n#EXTINF:-1,TVP\xff1\nhttp://x\n")
	_, err := ParseM3UBytes(m3u)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Offset != 22 {
		t.Errorf("offset = %d, want 22", de.Offset)
	}
}

func TestParseM3UBytes_loadErrors(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantLine int
		wantErr  error
	}{
		{"empty", "", 0, errEmpty},
		{"blank", "\n  \n", 0, errEmpty},
		{"no header", "#EXTINF:-1,A\nhttp://x\n", 1, errNoHeader},
		{"no title", "#EXTM3U\n#EXTINF:-1 tvg-id=\"x\"\nhttp://x\n", 2, errNoTitle},
		{"dangling at eof", "#EXTM3U\n#EXTINF:-1,A\n", 2, errDanglingInfo},
		{"two extinf", "#EXTM3U\n#EXTINF:-1,A\n#EXTINF:-1,B\nhttp://x\n", 2, errDanglingInfo},
		{"url without extinf", "#EXTM3U\nhttp://x\n", 2, errURLWithoutInf},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseM3UBytes([]byte(tt.in))
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("expected LoadError, got %v", err)
			}
			if le.Line != tt.wantLine || !errors.Is(err, tt.wantErr) {
				t.Errorf("got line %d err %v; want line %d err %v", le.Line, le.Err, tt.wantLine, tt.wantErr)
			}
		})
	}
}

func TestLoadFile_missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent.m3u")
	_, err := LoadFile(path)
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped ErrNotExist: %v", err)
	}
	if !strings.Contains(err.Error(), "nonexistent.m3u") {
		t.Errorf("error lacks path: %v", err)
	}
}

func TestLoadFile_decodeErrorHasPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.m3u")
	if err := os.WriteFile(path, []byte{'#', 'E', 0xC3, 0x28}, 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFile(path)
	var de *DecodeError
	if !errors.As(err, &de) || de.Path != path {
		t.Fatalf("expected DecodeError with path, got %v", err)
	}
}

func TestLoadFile_brotli(t *testing.T) {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write([]byte(samplePlaylist)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "playlist.m3u.br")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 3 {
		t.Errorf("expected 3 entries; got %d", p.Len())
	}
}

func TestLoadFile_truncatedBrotli(t *testing.T) {
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write([]byte(strings.Repeat(samplePlaylist, 50))); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "playlist.m3u.br")
	if err := os.WriteFile(path, buf.Bytes()[:buf.Len()/2], 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFile(path)
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError, got %v", err)
	}
}

func TestAttrValue(t *testing.T) {
	attrs := `tvg-id="tvp1.pl" tvg-logo="" group-title="PL"`
	if got := AttrValue(attrs, "tvg-id"); got != "tvp1.pl" {
		t.Errorf("tvg-id = %q", got)
	}
	if got := AttrValue(attrs, "tvg-logo"); got != "" {
		t.Errorf("tvg-logo = %q", got)
	}
	if got := AttrValue(attrs, "missing"); got != "" {
		t.Errorf("missing = %q", got)
	}
}

func TestStableID(t *testing.T) {
	a := stableID(3, "http://x/a", "#EXTINF:-1,A HD")
	if a != stableID(3, "http://x/a", "#EXTINF:-1,A HD") {
		t.Error("same input gave different IDs")
	}
	if !strings.HasPrefix(a, "3:") {
		t.Errorf("ID %q does not start with its position", a)
	}
	for _, other := range []string{
		stableID(4, "http://x/a", "#EXTINF:-1,A HD"),
		stableID(3, "http://x/b", "#EXTINF:-1,A HD"),
		stableID(3, "http://x/a", "#EXTINF:-1,A FHD"),
		stableID(3, "http://x/a#EXTINF:-1,A HD", ""),
	} {
		if other == a {
			t.Errorf("distinct entries share ID %q", a)
		}
	}
}
