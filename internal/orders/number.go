package orders

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"
)

const numberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewOrderNumber builds ORD-<yyyymmdd>-<base36 unix ms>-<6 random chars>.
func NewOrderNumber(now time.Time) string {
	now = now.UTC()
	var b strings.Builder
	b.WriteString("ORD-")
	b.WriteString(now.Format("20060102"))
	b.WriteByte('-')
	b.WriteString(strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)))
	b.WriteByte('-')
	b.WriteString(randomSuffix(6))
	return b.String()
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	for i, v := range buf {
		buf[i] = numberAlphabet[int(v)%len(numberAlphabet)]
	}
	return string(buf)
}
