package recommend

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/recgo/core"
)

// PreferenceReader streams preference records from delimited text input.
// Lines are `userID,itemID,value` (or `userID,itemID` for boolean data);
// comma and tab delimiters are accepted. Empty lines are skipped.
type PreferenceReader struct {
	scanner *bufio.Scanner
	boolean bool
	line    int
}

// NewPreferenceReader creates a reader over r. When boolean is set, the
// value field is optional and every record gets the implicit value 1.0.
func NewPreferenceReader(r io.Reader, boolean bool) *PreferenceReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &PreferenceReader{scanner: sc, boolean: boolean}
}

func splitFields(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == '\t'
	})
}

// Next returns the next preference. It returns io.EOF after the last record
// and ErrMalformedRecord for lines that do not parse.
func (r *PreferenceReader) Next() (Preference, error) {
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}

		fields := splitFields(line)
		if len(fields) < 2 || (!r.boolean && len(fields) < 3) || len(fields) > 3 {
			return Preference{}, fmt.Errorf("%w: line %d: %q", ErrMalformedRecord, r.line, line)
		}

		userID, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return Preference{}, fmt.Errorf("%w: line %d: user %q", ErrMalformedRecord, r.line, fields[0])
		}
		itemID, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			return Preference{}, fmt.Errorf("%w: line %d: item %q", ErrMalformedRecord, r.line, fields[1])
		}

		value := 1.0
		if !r.boolean {
			value, err = strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
			if err != nil {
				return Preference{}, fmt.Errorf("%w: line %d: value %q", ErrMalformedRecord, r.line, fields[2])
			}
		}

		return Preference{
			UserID: core.UserID(userID),
			ItemID: core.ItemID(itemID),
			Value:  value,
		}, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Preference{}, err
	}
	return Preference{}, io.EOF
}

// ReadAllPreferences drains r into a slice, preserving input order.
func ReadAllPreferences(r *PreferenceReader) ([]Preference, error) {
	var prefs []Preference
	for {
		p, err := r.Next()
		if err == io.EOF {
			return prefs, nil
		}
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, p)
	}
}

// ReadUserFilter parses a users file (one user ID per line) into a bitmap of
// users eligible for recommendation.
func ReadUserFilter(r io.Reader) (*roaring64.Bitmap, error) {
	users := roaring64.New()
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		id, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: users file line %d: %q", ErrMalformedRecord, line, text)
		}
		users.Add(uint64(id))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
