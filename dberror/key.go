package dberror

// Key names a well-known error info entry.
type Key string

const (
	KeyInvalid      Key = ""
	KeyTag          Key = "Tag"
	KeyPath         Key = "Path"
	KeyType         Key = "Type"
	KeySource       Key = "Source"
	KeySQL          Key = "SQL"
	KeyExtendedCode Key = "ExtCode"
	KeyMessage      Key = "Message"
)

var wellKnownKeys = []Key{KeyTag, KeyPath, KeyType, KeySource, KeySQL, KeyExtendedCode, KeyMessage}

// KeyFromString maps a raw key to its well-known Key, or KeyInvalid.
func KeyFromString(s string) Key {
	for _, k := range wellKnownKeys {
		if string(k) == s {
			return k
		}
	}
	return KeyInvalid
}

func (k Key) String() string { return string(k) }
