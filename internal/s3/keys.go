package s3

import (
	"fmt"
	"time"
)

// SanitizeFileName keeps letters, digits, '.' and '-'; everything else
// becomes '_'. An empty name falls back to "file".
func SanitizeFileName(name string) string {
	if name == "" {
		return "file"
	}
	out := []rune(name)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

// ObjectKeyFor derives the destination key for an owner's upload. The
// timestamp prefix keeps keys unique across re-uploads of the same name.
func ObjectKeyFor(namespace, ownerID, fileName string) string {
	return fmt.Sprintf("%s/%s/%d-%s", namespace, ownerID, time.Now().UnixMilli(), SanitizeFileName(fileName))
}
