package stream

import (
	"encoding/json"

	"github.com/papertrail/papertrail/internal/model"
)

// Line encodes one stream event as a compact, LF-terminated NDJSON line.
func Line(ev model.Event) ([]byte, error) {
	buf, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return append(buf, '\n'), nil
}
