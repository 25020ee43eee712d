package checkout

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// NewOrderID returns ORD-<base36 unix millis>-<4 hex>, uppercase. The random
// suffix gives 65536 ids per millisecond; a collision surfaces as a duplicate
// insert at settlement, never as a merged order.
func NewOrderID(now time.Time) string {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		b[0], b[1] = byte(now.UnixNano()>>8), byte(now.UnixNano())
	}
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return "ORD-" + ts + "-" + strings.ToUpper(hex.EncodeToString(b[:]))
}
