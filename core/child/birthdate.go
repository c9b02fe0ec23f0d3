package child

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// UnknownYear is stored in place of the year of a birth date whose year is not known.
const UnknownYear = 1000

const (
	fullDateLayout   = "2006-01-02"
	noYearDateLayout = "--01-02"
)

var ErrInvalidBirthDate = errors.New("birth date must be YYYY-MM-DD, or MM-DD when the year is unknown")

// BirthDate is a calendar date whose year may be unknown.
type BirthDate struct {
	time.Time
}

// ParseBirthDate accepts "YYYY-MM-DD", "--MM-DD" or "MM-DD".
func ParseBirthDate(s string) (BirthDate, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(fullDateLayout, s); err == nil {
		if t.Year() <= UnknownYear {
			return BirthDate{}, ErrInvalidBirthDate
		}
		return BirthDate{t}, nil
	}

	md := strings.TrimPrefix(s, "--")
	if len(md) != len("01-02") {
		return BirthDate{}, ErrInvalidBirthDate
	}
	// the sentinel year is not a leap year, so Feb 29 cannot be stored without a year
	t, err := time.Parse(fullDateLayout, fmt.Sprintf("%04d-%s", UnknownYear, md))
	if err != nil {
		return BirthDate{}, ErrInvalidBirthDate
	}
	return BirthDate{time.Date(UnknownYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}, nil
}

// NewBirthDate wraps a stored date.
func NewBirthDate(t time.Time) BirthDate {
	return BirthDate{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

func (bd BirthDate) YearKnown() bool {
	return bd.Year() != UnknownYear
}

func (bd BirthDate) String() string {
	if !bd.YearKnown() {
		return bd.Format(noYearDateLayout)
	}
	return bd.Format(fullDateLayout)
}

// Age returns the age in full years at t, and false when the year is unknown.
func (bd BirthDate) Age(t time.Time) (int, bool) {
	if !bd.YearKnown() {
		return 0, false
	}
	age := t.Year() - bd.Year()
	if t.Month() < bd.Month() || (t.Month() == bd.Month() && t.Day() < bd.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return age, true
}

func (bd BirthDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(bd.String())
}

func (bd *BirthDate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseBirthDate(s)
	if err != nil {
		return err
	}
	*bd = parsed
	return nil
}
