package event

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reDotted = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
	reISO    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reSlash  = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	// a serial is plain digits with an optional fraction; ParseFloat
	// alone would also accept "Inf", "NaN", "1e3" and signed text
	reSerial = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// excelEpoch is day zero of the 1900 date system. December 30 rather
// than December 31 absorbs Excel's phantom 1900-02-29 for every date
// after that bug.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// NormalizeDate converts the date shapes accepted on input into the
// canonical DD.MM.YYYY display form: an Excel date serial (numeric
// cell text), DD.MM.YYYY (unchanged), YYYY-MM-DD and DD/MM/YYYY
// (reordered). Anything else is returned verbatim, so callers get a
// string either way but only the listed shapes are guaranteed
// canonical.
func NormalizeDate(raw string) string {
	if raw == "" {
		return ""
	}
	if reSerial.MatchString(raw) {
		serial, err := strconv.ParseFloat(raw, 64)
		if err == nil {
			d := excelEpoch.AddDate(0, 0, int(serial))
			return fmt.Sprintf("%02d.%02d.%04d", d.Day(), int(d.Month()), d.Year())
		}
	}
	switch {
	case reDotted.MatchString(raw):
		return raw
	case reISO.MatchString(raw):
		p := strings.Split(raw, "-")
		return p[2] + "." + p[1] + "." + p[0]
	case reSlash.MatchString(raw):
		p := strings.Split(raw, "/")
		return p[0] + "." + p[1] + "." + p[2]
	}
	return raw
}

// NormalizeGender classifies a raw marker into one of the two
// agreement tokens. Only the feminine marker "ж" (case-insensitive)
// and the feminine token itself select the feminine form; every other
// value, including empty, means masculine. The token is accepted
// because the original entry form posts it directly.
func NormalizeGender(raw string) Gender {
	switch strings.ToLower(raw) {
	case "ж", string(GenderFeminine):
		return GenderFeminine
	}
	return GenderMasculine
}
