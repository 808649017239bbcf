package store

import (
	"fmt"
	"time"
)

// DateLayout is the layout used for driver-typed dates at midnight UTC.
const DateLayout = "2006-01-02"

// DateValue returns the text of a date column value. Text is kept verbatim,
// so whatever the source stored is written back unchanged. Drivers that hand
// back a time.Time for DATE or TIMESTAMP columns get it formatted in its own
// zone. NULL becomes the empty string.
func DateValue(v any) string {
	switch d := v.(type) {
	case string:
		return d
	case []byte:
		return string(d)
	case time.Time:
		return formatTime(d)
	case nil:
		return ""
	default:
		return fmt.Sprint(d)
	}
}

func formatTime(t time.Time) string {
	_, offset := t.Zone()
	if offset == 0 && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(DateLayout)
	}
	return t.Format(time.RFC3339Nano)
}
