package event

import "strings"

// Canonical column labels. These literals are the wire contract for
// uploaded spreadsheets and must not be translated or re-cased.
const (
	colCity    = "Город"
	colDate    = "Дата"
	colTime    = "Время проведения"
	colAddress = "Адрес проведения"
	colSpeaker = "ФИО Спикера"
	colGender  = "Гендер"
)

// RequiredColumns is the ordered set of labels that must each match at
// least one header of an uploaded sheet. Matching is case-sensitive
// substring containment, which tolerates decorated headers ("Город
// проведения"). This is a documented contract, not an implementation
// detail.
var RequiredColumns = []string{colCity, colDate, colTime, colAddress, colSpeaker, colGender}

// MissingColumns returns the required labels with no matching header,
// preserving RequiredColumns order. An empty result means the header
// contract is satisfied.
func MissingColumns(headers []string) []string {
	var missing []string
	for _, col := range RequiredColumns {
		found := false
		for _, h := range headers {
			if strings.Contains(h, col) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, col)
		}
	}
	return missing
}
