package dsl

import "strings"

// rolePatterns maps a track role to name fragments that imply it. Roles
// are checked in order; the first hit wins.
var rolePatterns = []struct {
	role     string
	patterns []string
}{
	{"bass", []string{"bass", "sub", "low"}},
	{"drums", []string{"drum", "kit", "beat", "perc", "kick", "snare", "hat"}},
	{"keys", []string{"key", "piano", "synth", "pad", "organ"}},
	{"guitar", []string{"guitar", "gtr"}},
	{"vocals", []string{"vocal", "vox", "voice"}},
	{"lead", []string{"lead", "melody"}},
	{"strings", []string{"string", "violin", "cello"}},
	{"brass", []string{"brass", "horn", "trumpet", "sax"}},
}

// RoleOf infers a track's musical role from its name, or returns "".
func RoleOf(name string) string {
	lower := strings.ToLower(name)

	for _, rp := range rolePatterns {
		for _, p := range rp.patterns {
			if strings.Contains(lower, p) {
				return rp.role
			}
		}
	}

	return ""
}
