// Package histfile reads and writes the text export of a spectrum:
//
//	-_-
//	from: 1476352800
//	to: 1476353400
//	live: 540.000
//	---
//	0
//	12
//	...
//
// The header holds "key: value" lines between the magic line and the
// separator, followed by one count per channel.
package histfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// Magic is the first line of a histogram file.
	Magic = "-_-"
	// Separator ends the header.
	Separator = "---"
)

// Header keys with a meaning.
const (
	KeyFrom = "from"
	KeyTo   = "to"
	KeyLive = "live"
)

// File is a histogram with its acquisition period.
type File struct {
	From time.Time
	To   time.Time
	// Live is the acquisition time, zero when unknown.
	Live time.Duration
	// Meta holds the other header entries, keys in lower case.
	Meta   map[string]string
	Counts []uint32
}

// Duration is the time the counts were accumulated over: Live when
// known, else To - From.
func (f *File) Duration() time.Duration {
	if f.Live > 0 {
		return f.Live
	}
	if f.From.IsZero() || f.To.IsZero() {
		return 0
	}
	return f.To.Sub(f.From)
}

// Total sums all counts.
func (f *File) Total() (n uint64) {
	for _, c := range f.Counts {
		n += uint64(c)
	}
	return
}

// CPM is the rate of counts in channels at or above threshold per minute.
func (f *File) CPM(threshold int) (float64, error) {
	dur := f.Duration()
	if dur <= 0 {
		return 0, fmt.Errorf("no acquisition period")
	}
	var n uint64
	for ch := threshold; ch < len(f.Counts); ch++ {
		n += uint64(f.Counts[ch])
	}
	return float64(n) * 60 / dur.Seconds(), nil
}

// WriteTo implements io.WriterTo.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, Magic)
	if !f.From.IsZero() {
		fmt.Fprintf(&buf, "%s: %d\n", KeyFrom, f.From.Unix())
	}
	if !f.To.IsZero() {
		fmt.Fprintf(&buf, "%s: %d\n", KeyTo, f.To.Unix())
	}
	if f.Live > 0 {
		fmt.Fprintf(&buf, "%s: %.3f\n", KeyLive, f.Live.Seconds())
	}
	keys := make([]string, 0, len(f.Meta))
	for key := range f.Meta {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&buf, "%s: %s\n", key, f.Meta[key])
	}
	fmt.Fprintln(&buf, Separator)
	for _, c := range f.Counts {
		buf.WriteString(strconv.FormatUint(uint64(c), 10))
		buf.WriteByte('\n')
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// Read parses a histogram file.
func Read(r io.Reader) (*File, error) {
	s := bufio.NewScanner(r)
	if !s.Scan() || s.Text() != Magic {
		if err := s.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("invalid magic line")
	}
	f := &File{Meta: make(map[string]string)}
	for {
		if !s.Scan() {
			if err := s.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("missing %q", Separator)
		}
		line := s.Text()
		if line == Separator {
			break
		}
		items := strings.SplitN(line, ": ", 2)
		if len(items) != 2 {
			continue
		}
		key, val := strings.ToLower(strings.TrimSpace(items[0])), strings.TrimSpace(items[1])
		if err := f.setHeader(key, val); err != nil {
			return nil, err
		}
	}
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		c, err := strconv.ParseUint(line, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %v", len(f.Counts), err)
		}
		f.Counts = append(f.Counts, uint32(c))
	}
	return f, s.Err()
}

func (f *File) setHeader(key, val string) error {
	switch key {
	case KeyFrom, KeyTo:
		sec, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", key, err)
		}
		if key == KeyFrom {
			f.From = time.Unix(sec, 0)
		} else {
			f.To = time.Unix(sec, 0)
		}
	case KeyLive:
		sec, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", key, err)
		}
		f.Live = time.Duration(sec * float64(time.Second))
	default:
		f.Meta[key] = val
	}
	return nil
}

// Load reads a histogram file from path.
func Load(path string) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	f, err := Read(fd)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return f, nil
}
