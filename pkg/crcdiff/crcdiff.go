// Package crcdiff finds the first frame at which two recorded checksum
// sessions diverge.
package crcdiff

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/cbodonnell/statexfer/pkg/repositories"
	"github.com/cbodonnell/statexfer/pkg/repositories/models"
	"github.com/cbodonnell/statexfer/pkg/xfer"
	"github.com/spf13/afero"
)

const finalCRCPrefix = "FinalCRC:"

var frameNameRE = regexp.MustCompile(`^crc_frame_(\d+)\.txt$`)

// ErrNoCommonFrames is returned when the two sides share no frame number.
var ErrNoCommonFrames = errors.New("no matching crc_frame_*.txt files found")

// Frame is one frame log of a session.
type Frame struct {
	Number uint32
	Name   string
	Log    []byte
}

// FinalLine is the last non-empty line of the log, normally the FinalCRC trailer.
func (f Frame) FinalLine() string {
	lines := strings.Split(string(f.Log), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// CRC is the value of the FinalCRC trailer, or the whole final line when the
// log has no trailer.
func (f Frame) CRC() string {
	return ExtractCRC(f.FinalLine())
}

func ExtractCRC(line string) string {
	if strings.HasPrefix(line, finalCRCPrefix) {
		return strings.TrimSpace(line[len(finalCRCPrefix):])
	}
	return line
}

// ParseFrameName returns the frame number encoded in a crc_frame_NNNN.txt name.
func ParseFrameName(name string) (uint32, bool) {
	m := frameNameRE.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// ReadDir loads every frame log of dir, ordered by frame number. Files whose
// names do not match crc_frame_NNNN.txt are ignored.
func ReadDir(fs afero.Fs, dir string) ([]Frame, error) {
	info, err := fs.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %v", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", dir, err)
	}

	var frames []Frame
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		number, ok := ParseFrameName(entry.Name())
		if !ok {
			continue
		}
		data, err := afero.ReadFile(fs, filepath.Join(dir, entry.Name()))
		if err != nil {
			// an unreadable log compares as empty
			log.Warn("Failed to read %s: %v", entry.Name(), err)
		}
		frames = append(frames, Frame{Number: number, Name: entry.Name(), Log: data})
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].Number < frames[j].Number })
	return frames, nil
}

// Mismatch describes the first diverging frame.
type Mismatch struct {
	Frame uint32
	Name  string
	LineA string
	LineB string
	// DiffLine is the 1-based number of the first log line that differs,
	// or 0 if the logs agree everywhere but the trailer.
	DiffLine int
	DiffA    string
	DiffB    string
}

type Result struct {
	// Compared counts the frames examined, including the mismatching one.
	Compared int
	// Mismatch is nil when every common frame agrees.
	Mismatch *Mismatch
}

// Compare walks the frames present on both sides in frame order and stops at
// the first whose checksums differ.
func Compare(a, b []Frame) (*Result, error) {
	byNumber := make(map[uint32]Frame, len(b))
	for _, f := range b {
		byNumber[f.Number] = f
	}

	common := make([]Frame, 0, len(a))
	for _, f := range a {
		if _, ok := byNumber[f.Number]; ok {
			common = append(common, f)
		}
	}
	if len(common) == 0 {
		return nil, ErrNoCommonFrames
	}
	sort.Slice(common, func(i, j int) bool { return common[i].Number < common[j].Number })

	result := &Result{}
	for _, fa := range common {
		fb := byNumber[fa.Number]
		result.Compared++
		if fa.CRC() == fb.CRC() {
			continue
		}
		m := &Mismatch{
			Frame: fa.Number,
			Name:  fa.Name,
			LineA: fa.FinalLine(),
			LineB: fb.FinalLine(),
		}
		m.DiffLine, m.DiffA, m.DiffB = firstDifference(fa.Log, fb.Log)
		result.Mismatch = m
		return result, nil
	}
	return result, nil
}

func firstDifference(a, b []byte) (int, string, string) {
	sa := bufio.NewScanner(bytes.NewReader(a))
	sb := bufio.NewScanner(bytes.NewReader(b))
	sa.Buffer(nil, 1<<20)
	sb.Buffer(nil, 1<<20)
	for n := 1; ; n++ {
		okA, okB := sa.Scan(), sb.Scan()
		if !okA && !okB {
			return 0, "", ""
		}
		la, lb := sa.Text(), sb.Text()
		if okA != okB || la != lb {
			if strings.HasPrefix(la, finalCRCPrefix) && strings.HasPrefix(lb, finalCRCPrefix) {
				return 0, "", ""
			}
			return n, la, lb
		}
	}
}

// CompareDirs compares two directories of frame logs.
func CompareDirs(fs afero.Fs, dirA, dirB string) (*Result, error) {
	a, err := ReadDir(fs, dirA)
	if err != nil {
		return nil, err
	}
	b, err := ReadDir(fs, dirB)
	if err != nil {
		return nil, err
	}
	return Compare(a, b)
}

// CompareSessions compares two sessions stored in the repository.
func CompareSessions(ctx context.Context, repo repositories.Repository, sessionA, sessionB string) (*Result, error) {
	a, err := loadSession(ctx, repo, sessionA)
	if err != nil {
		return nil, err
	}
	b, err := loadSession(ctx, repo, sessionB)
	if err != nil {
		return nil, err
	}
	return Compare(a, b)
}

func loadSession(ctx context.Context, repo repositories.Repository, session string) ([]Frame, error) {
	records, err := repo.ListCRCFrames(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %v", session, err)
	}
	frames := make([]Frame, 0, len(records))
	for _, r := range records {
		frames = append(frames, Frame{
			Number: r.Frame,
			Name:   xfer.FrameLogName(r.Frame),
			Log:    r.Log,
		})
	}
	return frames, nil
}

// ImportDir stores every frame log of dir in the repository under session.
func ImportDir(ctx context.Context, fs afero.Fs, repo repositories.Repository, dir, session string) (int, error) {
	frames, err := ReadDir(fs, dir)
	if err != nil {
		return 0, err
	}
	for i, f := range frames {
		crc, err := strconv.ParseUint(f.CRC(), 0, 32)
		if err != nil {
			log.Warn("Frame %d of %s has no FinalCRC trailer", f.Number, dir)
			crc = 0
		}
		if err := repo.SaveCRCFrame(ctx, &models.CRCFrame{
			Session: session,
			Frame:   f.Number,
			CRC:     uint32(crc),
			Log:     f.Log,
		}); err != nil {
			return i, err
		}
	}
	return len(frames), nil
}

// WriteReport prints result in the layout of the frame comparison report.
func WriteReport(w io.Writer, labelA, labelB string, result *Result) error {
	if result.Mismatch == nil {
		_, err := fmt.Fprintln(w, "No mismatches found.")
		return err
	}
	m := result.Mismatch
	var sb strings.Builder
	sb.WriteString("Mismatch found:\n")
	fmt.Fprintf(&sb, "  file: %s\n", m.Name)
	fmt.Fprintf(&sb, "  %s: %s\n", labelA, m.LineA)
	fmt.Fprintf(&sb, "  %s: %s\n", labelB, m.LineB)
	if m.DiffLine > 0 {
		fmt.Fprintf(&sb, "  first differing line %d:\n", m.DiffLine)
		fmt.Fprintf(&sb, "    %s: %s\n", labelA, m.DiffA)
		fmt.Fprintf(&sb, "    %s: %s\n", labelB, m.DiffB)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
