// Package level models lesson levels and parses the tagged level file format.
//
// A level file is plain text containing up to three regions:
//
//	<OBJECTIVE>
//	Make the function return the sum.
//	</OBJECTIVE>
//	<CODE>
//	def add(a, b):
//	    return 0
//	<\CODE>
//	<TESTING>
//	assert add(1, 2) == 3
//	</TESTING>
//
// Markers are matched on the trimmed, uppercased line. Closing markers are
// accepted in both the slash and backslash spellings.
package level

import (
	"fmt"
	"strings"
)

// Region names a tagged section of a level file.
type Region string

const (
	RegionObjective Region = "OBJECTIVE"
	RegionCode      Region = "CODE"
	RegionTesting   Region = "TESTING"
)

// Regions lists every region in file order.
var Regions = []Region{RegionObjective, RegionCode, RegionTesting}

// Level is the parsed content of one level file.
type Level struct {
	Objective string
	Code      string
	Testing   string
}

// Get returns the text of the named region.
func (l Level) Get(region Region) string {
	switch region {
	case RegionObjective:
		return l.Objective
	case RegionCode:
		return l.Code
	case RegionTesting:
		return l.Testing
	default:
		return ""
	}
}

func (l *Level) set(region Region, text string) {
	switch region {
	case RegionObjective:
		l.Objective = text
	case RegionCode:
		l.Code = text
	case RegionTesting:
		l.Testing = text
	}
}

// NotFound returns the sentinel level served when a level file is missing.
// Parsing never produces these texts.
func NotFound() Level {
	return Level{
		Objective: NotFoundText(RegionObjective),
		Code:      NotFoundText(RegionCode),
		Testing:   NotFoundText(RegionTesting),
	}
}

// NotFoundText is the sentinel text for a region of a missing level.
func NotFoundText(region Region) string {
	name := strings.ToLower(string(region))
	return fmt.Sprintf("%s%s not found.", strings.ToUpper(name[:1]), name[1:])
}

// Format serializes the level back into the tagged file format using the
// canonical slash closing markers.
func Format(l Level) string {
	var b strings.Builder
	for _, region := range Regions {
		fmt.Fprintf(&b, "<%s>\n", region)
		if text := l.Get(region); text != "" {
			b.WriteString(text)
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "</%s>\n", region)
	}
	return b.String()
}
