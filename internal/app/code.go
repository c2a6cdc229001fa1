package app

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// codeAlphabet excludes 0/O/1/I to keep codes unambiguous when read aloud
// or written on a whiteboard.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the length of generated join codes.
const CodeLength = 6

var (
	codeRndMu sync.Mutex
	codeRnd   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// GenerateCode returns a random join code candidate. Uniqueness is enforced
// by the registry, not here.
func GenerateCode() string {
	codeRndMu.Lock()
	defer codeRndMu.Unlock()
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(codeAlphabet[codeRnd.Intn(len(codeAlphabet))])
	}
	return b.String()
}

// NormalizeCode canonicalizes human-entered codes: case-insensitive and
// dash/space-agnostic.
func NormalizeCode(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ':
			return -1
		}
		return r
	}, raw)
	return strings.ToUpper(strings.TrimSpace(cleaned))
}
