package dberror

import "strings"

// Level is the severity of a database error.
type Level int

const (
	LevelIgnore  Level = 1
	LevelDebug   Level = 2
	LevelNotice  Level = 3
	LevelWarning Level = 4
	LevelError   Level = 5
	LevelFatal   Level = 6
)

var levelNames = map[Level]string{
	LevelIgnore:  "IGNORE",
	LevelDebug:   "DEBUG",
	LevelNotice:  "NOTICE",
	LevelWarning: "WARNING",
	LevelError:   "ERROR",
	LevelFatal:   "FATAL",
}

// LevelFromRaw converts an engine level value. Unknown values resolve to LevelError.
func LevelFromRaw(raw int) Level {
	l := Level(raw)
	if _, ok := levelNames[l]; ok {
		return l
	}
	return LevelError
}

// ParseLevel accepts the names returned by Level.String, case-insensitively.
func ParseLevel(s string) (Level, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "WARN" {
		return LevelWarning, true
	}
	for l, name := range levelNames {
		if name == s {
			return l, true
		}
	}
	return 0, false
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}
