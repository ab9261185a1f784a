package indexer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/snapetech/playlist-dedup/internal/catalog"
)

const maxLineSize = 1 << 20 // 1 MiB per line

// DecodeError reports playlist bytes that are not valid text.
type DecodeError struct {
	Path   string
	Offset int // byte offset of the first invalid sequence, -1 if unknown
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "playlist is not valid UTF-8 text"
	if e.Offset >= 0 {
		msg += " (first invalid byte at offset " + strconv.Itoa(e.Offset) + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Path != "" {
		return e.Path + ": " + msg
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// LoadError reports any other failure to turn a file into a playlist.
type LoadError struct {
	Path string
	Line int // 1-based; 0 when the failure is not tied to a line
	Err  error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	if e.Line > 0 {
		b.WriteString("line ")
		b.WriteString(strconv.Itoa(e.Line))
		b.WriteString(": ")
	}
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *LoadError) Unwrap() error { return e.Err }

var (
	errNoHeader      = errors.New("missing #EXTM3U header")
	errEmpty         = errors.New("empty playlist")
	errNoTitle       = errors.New("#EXTINF without a title")
	errDanglingInfo  = errors.New("#EXTINF without a stream URL")
	errURLWithoutInf = errors.New("stream URL without #EXTINF")
	errLineTooLong   = errors.New("line exceeds 1 MiB")
)

// LoadFile reads and parses the playlist at path. Files ending in .br are brotli
// decompressed first. Returns *DecodeError when the content is not text and *LoadError
// for every other failure.
func LoadFile(path string) (*catalog.Playlist, error) {
	path = filepath.Clean(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if catalog.IsBrotli(path) {
		data, err = io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("brotli: %w", err)}
		}
	}
	p, err := ParseM3UBytes(data)
	if err != nil {
		var de *DecodeError
		var le *LoadError
		switch {
		case errors.As(err, &de):
			de.Path = path
		case errors.As(err, &le):
			le.Path = path
		}
		return nil, err
	}
	return p, nil
}

// ParseM3U reads all of r and parses it.
func ParseM3U(r io.Reader) (*catalog.Playlist, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	return ParseM3UBytes(data)
}

// ParseM3UBytes parses M3U from bytes. A byte order mark selects UTF-8 or UTF-16;
// without one the content must be UTF-8.
func ParseM3UBytes(data []byte) (*catalog.Playlist, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}
	return parseLines(text)
}

func decodeText(data []byte) (string, error) {
	// The UTF-8 decoder behind BOMOverride replaces bad bytes instead of failing, so
	// anything that is not UTF-16 is validated before the BOM is stripped.
	if !bytes.HasPrefix(data, []byte{0xFF, 0xFE}) && !bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		if !utf8.Valid(data) {
			return "", &DecodeError{Offset: firstInvalid(data)}
		}
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return "", &DecodeError{Offset: -1, Err: err}
	}
	return string(out), nil
}

func firstInvalid(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}

func parseLines(text string) (*catalog.Playlist, error) {
	p := catalog.New()
	var cur *catalog.Entry
	curLine := 0
	sawHeader := false
	for n, raw := range strings.Split(text, "\n") {
		lineNo := n + 1
		if len(raw) > maxLineSize {
			return nil, &LoadError{Line: lineNo, Err: errLineTooLong}
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if !sawHeader {
			if !strings.HasPrefix(line, "#EXTM3U") {
				return nil, &LoadError{Line: lineNo, Err: errNoHeader}
			}
			p.Header = line
			sawHeader = true
			continue
		}
		switch {
		case strings.HasPrefix(line, "#EXTINF:"):
			if cur != nil {
				return nil, &LoadError{Line: curLine, Err: errDanglingInfo}
			}
			e, err := parseEXTINF(line)
			if err != nil {
				return nil, &LoadError{Line: lineNo, Err: err}
			}
			cur, curLine = &e, lineNo
		case strings.HasPrefix(line, "#"):
			// Directives bind to the entry being read; stray comments are dropped.
			if cur != nil {
				cur.Extra = append(cur.Extra, line)
			}
		default:
			if cur == nil {
				return nil, &LoadError{Line: lineNo, Err: errURLWithoutInf}
			}
			cur.URL = line
			cur.ID = stableID(len(p.Entries), line, cur.EXTINF)
			p.Entries = append(p.Entries, *cur)
			cur = nil
		}
	}
	if !sawHeader {
		return nil, &LoadError{Err: errEmpty}
	}
	if cur != nil {
		return nil, &LoadError{Line: curLine, Err: errDanglingInfo}
	}
	return p, nil
}

// parseEXTINF splits `#EXTINF:-1 tvg-id="a,b" group-title="PL",Name, with commas`
// into duration, attribute list and name. The name starts after the first comma
// outside quotes.
func parseEXTINF(line string) (catalog.Entry, error) {
	e := catalog.Entry{EXTINF: line}
	body := strings.TrimPrefix(line, "#EXTINF:")
	comma := -1
	inQuote := false
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				comma = i
			}
		}
		if comma >= 0 {
			break
		}
	}
	if comma < 0 {
		return e, errNoTitle
	}
	head := strings.TrimSpace(body[:comma])
	e.Name = strings.TrimSpace(body[comma+1:])
	e.Duration = head
	if i := strings.IndexAny(head, " \t"); i >= 0 {
		e.Duration = head[:i]
		e.Attrs = strings.TrimSpace(head[i+1:])
	}
	return e, nil
}

// stableID identifies an entry for the life of one loaded playlist. The position is
// part of the ID so byte-identical entries stay distinct.
func stableID(pos int, url, extinf string) string {
	d := xxhash.New()
	_, _ = d.WriteString(extinf)
	_, _ = d.WriteString("\n")
	_, _ = d.WriteString(url)
	return strconv.Itoa(pos) + ":" + strconv.FormatUint(d.Sum64(), 16)
}

// AttrValue returns the value of key="..." in an attribute list, e.g. tvg-id.
func AttrValue(attrs, key string) string {
	prefix := key + `="`
	if i := strings.Index(attrs, prefix); i >= 0 {
		i += len(prefix)
		if j := strings.Index(attrs[i:], `"`); j >= 0 {
			return attrs[i : i+j]
		}
	}
	return ""
}
