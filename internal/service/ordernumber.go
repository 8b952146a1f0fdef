package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const orderNumberPrefix = "FN"

// orderNumberDayPrefix returns the prefix shared by all order numbers created
// on the given day, e.g. "FN-20260830-".
func orderNumberDayPrefix(t time.Time) string {
	return fmt.Sprintf("%s-%s-", orderNumberPrefix, t.Format("20060102"))
}

// buildOrderNumber formats a day prefix and sequence into a full order number.
// The sequence is zero-padded to six digits so lexicographic and numeric order
// agree.
func buildOrderNumber(dayPrefix string, seq int64) string {
	return fmt.Sprintf("%s%06d", dayPrefix, seq)
}

// parseOrderSequence extracts the numeric sequence from an order number of the
// form FN-YYYYMMDD-NNNNNN. Returns 0 when the number does not parse.
func parseOrderSequence(orderNumber string) int64 {
	parts := strings.Split(orderNumber, "-")
	if len(parts) != 3 {
		return 0
	}
	seq, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0
	}
	return seq
}

// fallbackOrderNumber builds a clock-derived order number used when the
// sequential allocation keeps colliding.
func fallbackOrderNumber(dayPrefix string, now time.Time) string {
	return buildOrderNumber(dayPrefix, now.UnixMilli()%1000000)
}
