package wizard

import (
	"math/rand/v2"
	"strings"
	"time"
)

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// CodeSuffixLen is the number of random base36 characters in a family code.
const CodeSuffixLen = 6

// GenerateFamilyCode returns fam-YYYYMMDD-XXXXXX for the calendar day of now.
// rng may be nil.
func GenerateFamilyCode(now time.Time, rng *rand.Rand) string {
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	var b strings.Builder
	b.Grow(len("fam-20060102-") + CodeSuffixLen)
	b.WriteString("fam-")
	b.WriteString(now.Format("20060102"))
	b.WriteByte('-')
	for i := 0; i < CodeSuffixLen; i++ {
		b.WriteByte(codeAlphabet[intN(len(codeAlphabet))])
	}
	return b.String()
}
