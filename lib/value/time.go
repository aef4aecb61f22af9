package value

import (
	"fmt"
	"strings"
	"time"

	"github.com/thebagchi/asner/lib/asn"
)

// GeneralizedTime and UTCTime keep their value as text and are encoded as
// a VisibleString with their own tag.

type GeneralizedTime struct {
	CharString
}

func NewGeneralizedTime(opts ...Option) *GeneralizedTime {
	return &GeneralizedTime{*newCharString(asn.TagGeneralizedTime, visibleCharset, opts)}
}

// SetTime stores t as YYYYMMDDHHMMSS[.fff] followed by Z for UTC or the
// numeric offset otherwise.
func (g *GeneralizedTime) SetTime(t time.Time) {
	g.SetValue(t.Format("20060102150405.999999999") + zone(t))
}

// Time parses the stored text.
func (g *GeneralizedTime) Time() (time.Time, error) {
	return parseGeneralizedTime(g.value)
}

// OffsetMinutes returns the offset from UTC of the stored time.
func (g *GeneralizedTime) OffsetMinutes() (int, error) {
	t, err := g.Time()
	if err != nil {
		return 0, err
	}
	return offsetMinutes(t), nil
}

type UTCTime struct {
	CharString
}

func NewUTCTime(opts ...Option) *UTCTime {
	return &UTCTime{*newCharString(asn.TagUTCTime, visibleCharset, opts)}
}

// SetTime stores t as YYMMDDHHMMSS followed by Z or the numeric offset.
// Years outside 1950..2049 cannot be represented.
func (u *UTCTime) SetTime(t time.Time) error {
	if t.Year() < 1950 || t.Year() > 2049 {
		return fmt.Errorf("value: year %d outside UTCTime range: %w", t.Year(), asn.ErrConstraintViolation)
	}
	u.SetValue(t.Format("060102150405") + zone(t))
	return nil
}

// Time parses the stored text. Two digit years 50..99 are 19xx and
// 00..49 are 20xx.
func (u *UTCTime) Time() (time.Time, error) {
	return parseUTCTime(u.value)
}

func (u *UTCTime) OffsetMinutes() (int, error) {
	t, err := u.Time()
	if err != nil {
		return 0, err
	}
	return offsetMinutes(t), nil
}

func zone(t time.Time) string {
	if _, offset := t.Zone(); offset == 0 {
		return "Z"
	}
	return t.Format("-0700")
}

func offsetMinutes(t time.Time) int {
	_, offset := t.Zone()
	return offset / 60
}

func invalidTime(kind, s string) error {
	return fmt.Errorf("value: invalid %s %q: %w", kind, s, asn.ErrInvalidEncoding)
}

func parseUTCTime(s string) (time.Time, error) {
	if len(s) < 11 || len(s) > 17 {
		return time.Time{}, invalidTime("UTCTime", s)
	}
	year := digits(s, 2)
	month := digits(s[2:], 2)
	day := digits(s[4:], 2)
	hour := digits(s[6:], 2)
	minute := digits(s[8:], 2)
	rest := s[10:]
	second := digits(rest, 2)
	if second >= 0 {
		rest = rest[2:]
	} else {
		second = 0
	}
	loc := parseZone(rest)
	if year < 0 || month < 0 || day < 0 || hour < 0 || minute < 0 || loc == nil {
		return time.Time{}, invalidTime("UTCTime", s)
	}
	if year < 50 {
		year += 2000
	} else {
		year += 1900
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day ||
		t.Hour() != hour || t.Minute() != minute || t.Second() != second {
		return time.Time{}, invalidTime("UTCTime", s)
	}
	return t, nil
}

func parseGeneralizedTime(s string) (time.Time, error) {
	if len(s) < 10 {
		return time.Time{}, invalidTime("GeneralizedTime", s)
	}
	year := digits(s, 4)
	month := digits(s[4:], 2)
	day := digits(s[6:], 2)
	hour := digits(s[8:], 2)
	if year < 0 || month < 0 || day < 0 || hour < 0 || hour > 23 {
		return time.Time{}, invalidTime("GeneralizedTime", s)
	}
	rest := s[10:]
	dur := time.Duration(hour) * time.Hour
	unit := time.Hour
	if minute := digits(rest, 2); minute >= 0 {
		if minute > 59 {
			return time.Time{}, invalidTime("GeneralizedTime", s)
		}
		dur += time.Duration(minute) * time.Minute
		unit = time.Minute
		rest = rest[2:]
		if second := digits(rest, 2); second >= 0 {
			if second > 59 {
				return time.Time{}, invalidTime("GeneralizedTime", s)
			}
			dur += time.Duration(second) * time.Second
			unit = time.Second
			rest = rest[2:]
		}
	}
	if len(rest) > 0 && (rest[0] == '.' || rest[0] == ',') {
		i := 1
		for ; i < len(rest) && rest[i] >= '0' && rest[i] <= '9'; i++ {
			unit /= 10
			dur += time.Duration(rest[i]-'0') * unit
		}
		if i == 1 {
			return time.Time{}, invalidTime("GeneralizedTime", s)
		}
		rest = rest[i:]
	}
	loc := time.Local
	if rest != "" {
		if loc = parseZone(rest); loc == nil {
			return time.Time{}, invalidTime("GeneralizedTime", s)
		}
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc).Add(dur)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, invalidTime("GeneralizedTime", s)
	}
	return t, nil
}

// parseZone accepts "Z" or a "+hhmm"/"-hhmm" offset.
func parseZone(s string) *time.Location {
	if s == "Z" {
		return time.UTC
	}
	if len(s) != 5 || !strings.ContainsRune("+-", rune(s[0])) {
		return nil
	}
	hours, minutes := digits(s[1:], 2), digits(s[3:], 2)
	if hours < 0 || minutes < 0 || minutes > 59 {
		return nil
	}
	offset := hours*3600 + minutes*60
	if s[0] == '-' {
		offset = -offset
	}
	return time.FixedZone("", offset)
}

// digits parses the first n decimal digits of s, or returns -1.
func digits(s string, n int) int {
	if len(s) < n {
		return -1
	}
	v := 0
	for i := 0; i < n; i++ {
		if s[i] < '0' || s[i] > '9' {
			return -1
		}
		v = v*10 + int(s[i]-'0')
	}
	return v
}
