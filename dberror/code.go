package dberror

import "fmt"

// Code mirrors the SQLite primary result codes.
type Code int

const (
	CodeOK                 Code = 0
	CodeError              Code = 1
	CodeInternal           Code = 2
	CodePermission         Code = 3
	CodeAbort              Code = 4
	CodeBusy               Code = 5
	CodeLocked             Code = 6
	CodeNoMemory           Code = 7
	CodeReadonly           Code = 8
	CodeInterrupt          Code = 9
	CodeIOError            Code = 10
	CodeCorrupt            Code = 11
	CodeNotFound           Code = 12
	CodeFull               Code = 13
	CodeCantOpen           Code = 14
	CodeProtocol           Code = 15
	CodeEmpty              Code = 16
	CodeSchema             Code = 17
	CodeExceed             Code = 18
	CodeConstraint         Code = 19
	CodeMismatch           Code = 20
	CodeMisuse             Code = 21
	CodeNoLargeFileSupport Code = 22
	CodeAuthorization      Code = 23
	CodeFormat             Code = 24
	CodeRange              Code = 25
	CodeNotADatabase       Code = 26
	CodeNotice             Code = 27
	CodeWarning            Code = 28
	CodeRow                Code = 100
	CodeDone               Code = 101
)

var codeNames = map[Code]string{
	CodeOK:                 "OK",
	CodeError:              "Error",
	CodeInternal:           "Internal",
	CodePermission:         "Permission",
	CodeAbort:              "Abort",
	CodeBusy:               "Busy",
	CodeLocked:             "Locked",
	CodeNoMemory:           "NoMemory",
	CodeReadonly:           "Readonly",
	CodeInterrupt:          "Interrupt",
	CodeIOError:            "IOError",
	CodeCorrupt:            "Corrupt",
	CodeNotFound:           "NotFound",
	CodeFull:               "Full",
	CodeCantOpen:           "CantOpen",
	CodeProtocol:           "Protocol",
	CodeEmpty:              "Empty",
	CodeSchema:             "Schema",
	CodeExceed:             "Exceed",
	CodeConstraint:         "Constraint",
	CodeMismatch:           "Mismatch",
	CodeMisuse:             "Misuse",
	CodeNoLargeFileSupport: "NoLargeFileSupport",
	CodeAuthorization:      "Authorization",
	CodeFormat:             "Format",
	CodeRange:              "Range",
	CodeNotADatabase:       "NotADatabase",
	CodeNotice:             "Notice",
	CodeWarning:            "Warning",
	CodeRow:                "Row",
	CodeDone:               "Done",
}

// CodeFromRaw converts an engine result code. Extended codes are reduced to
// their primary code; unknown values resolve to CodeError.
func CodeFromRaw(raw int) Code {
	c := Code(raw)
	if _, ok := codeNames[c]; ok {
		return c
	}
	c = Code(raw & 0xff)
	if _, ok := codeNames[c]; ok {
		return c
	}
	return CodeError
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// levelForCode picks the severity the engine would report a code with.
func levelForCode(c Code) Level {
	switch c {
	case CodeOK, CodeRow, CodeDone:
		return LevelIgnore
	case CodeNotice:
		return LevelNotice
	case CodeWarning:
		return LevelWarning
	default:
		return LevelError
	}
}
