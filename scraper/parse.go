package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	// priceStripRegexp removes thousands separators and currency symbols.
	priceStripRegexp = regexp.MustCompile(`[,$€£¥\s]`)
	// priceRegexp captures the first decimal number.
	priceRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)
	// mileageRegexp captures the first run of digits.
	mileageRegexp = regexp.MustCompile(`\d+`)
	// yearRegexp matches a standalone 19xx or 20xx token.
	yearRegexp = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
)

// ParsePrice extracts a price from text like "$25,999.00". No digits means no price.
func ParsePrice(raw string) (float64, bool) {
	cleaned := priceStripRegexp.ReplaceAllString(raw, "")
	match := priceRegexp.FindString(cleaned)
	if match == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

// ParseMileage extracts an integer mileage from text like "45,000 miles".
func ParseMileage(raw string) (int, bool) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	match := mileageRegexp.FindString(cleaned)
	if match == "" {
		return 0, false
	}
	mileage, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return mileage, true
}

// ExtractYear returns the first 19xx/20xx token in title.
func ExtractYear(title string) (int, bool) {
	match := yearRegexp.FindString(title)
	if match == "" {
		return 0, false
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return year, true
}

// SplitMakeModel drops year tokens from title, then takes the first word as
// make and the next one or two words as model.
func SplitMakeModel(title string) (vehicleMake, vehicleModel string) {
	words := strings.Fields(yearRegexp.ReplaceAllString(title, ""))
	switch {
	case len(words) == 0:
		return "", ""
	case len(words) == 1:
		return words[0], ""
	}
	end := 3
	if len(words) < end {
		end = len(words)
	}
	return words[0], strings.Join(words[1:end], " ")
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
