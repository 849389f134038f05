package tle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Parse reads NORAD TLE data from r and returns parsed entries. Both the
// 3-line format (name, line 1, line 2) and bare 2-line sets are accepted.
// Malformed entries are skipped with a warning log.
func Parse(r io.Reader, logger *slog.Logger) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []Entry
	for i := 0; i+1 < len(lines); {
		var name, line1, line2 string
		switch {
		case strings.HasPrefix(lines[i], "1 ") && strings.HasPrefix(lines[i+1], "2 "):
			line1, line2 = lines[i], lines[i+1]
			i += 2
		case i+2 < len(lines) && strings.HasPrefix(lines[i+1], "1 ") && strings.HasPrefix(lines[i+2], "2 "):
			name, line1, line2 = lines[i], lines[i+1], lines[i+2]
			i += 3
		default:
			// Try to find next valid set.
			logger.Warn("skipping malformed TLE entry", "line_index", i, "line", lines[i])
			i++
			continue
		}

		entry, err := parseEntry(name, line1, line2)
		if err != nil {
			logger.Warn("skipping TLE entry", "name", name, "error", err)
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// ParseOne returns the first valid entry in r.
func ParseOne(r io.Reader, logger *slog.Logger) (Entry, error) {
	entries, err := Parse(r, logger)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		return Entry{}, ErrNoEntries
	}
	return entries[0], nil
}

// lineLength is the width of a TLE data line; column 69 holds its checksum.
const lineLength = 69

// ErrChecksum is returned when a TLE line's modulo-10 checksum does not match.
var ErrChecksum = errors.New("TLE checksum mismatch")

// checksum sums the digits of the first 68 columns, counting '-' as 1.
func checksum(line string) int {
	sum := 0
	for _, c := range line[:lineLength-1] {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

func validateLine(n int, line string) error {
	if len(line) < lineLength {
		return fmt.Errorf("line%d too short: %d chars", n, len(line))
	}
	want := line[lineLength-1]
	if want < '0' || want > '9' {
		return fmt.Errorf("line%d: %w: checksum column is %q", n, ErrChecksum, want)
	}
	if got := checksum(line); got != int(want-'0') {
		return fmt.Errorf("line%d: %w: computed %d, line says %c", n, ErrChecksum, got, want)
	}
	return nil
}

func parseEntry(name, line1, line2 string) (Entry, error) {
	if err := validateLine(1, line1); err != nil {
		return Entry{}, err
	}
	if err := validateLine(2, line2); err != nil {
		return Entry{}, err
	}

	// NORAD ID from line1 cols 3-7 (0-indexed: 2..7).
	noradStr := strings.TrimSpace(line1[2:7])
	noradID, err := strconv.Atoi(noradStr)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid NORAD ID %q: %w", noradStr, err)
	}

	// Epoch from line1 cols 19-32 (0-indexed: 18..32).
	epochStr := strings.TrimSpace(line1[18:32])
	epoch, err := parseEpoch(epochStr)
	if err != nil {
		return Entry{}, err
	}

	name = strings.TrimSpace(strings.TrimPrefix(name, "0 "))
	return Entry{
		NORADID: noradID,
		Name:    name,
		Epoch:   epoch,
		Line1:   line1,
		Line2:   line2,
	}, nil
}

// parseEpoch converts a TLE epoch string in YYDDD.DDDDDDDD format to time.Time.
// Year 00-56 → 2000s, 57-99 → 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	yearStr := s[:2]
	dayStr := s[2:]

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", yearStr, err)
	}

	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(dayStr, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", dayStr, err)
	}

	// dayOfYear is 1-based: day 1 = Jan 1.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}
