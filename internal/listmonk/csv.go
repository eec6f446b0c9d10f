package listmonk

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/ignite/square-listmonk-sync/internal/domain"
)

// csvHeader names listmonk's import columns.
var csvHeader = []string{"email", "name", "attributes"}

// EncodeCSV renders subscribers as listmonk import rows. The header row is
// written only when there is at least one subscriber, so an empty bucket
// encodes to no bytes. The subscribed flag is never part of the row; it
// travels as the import mode.
func EncodeCSV(subs []domain.Subscriber) ([]byte, error) {
	var buf bytes.Buffer
	if len(subs) == 0 {
		return buf.Bytes(), nil
	}

	w := csv.NewWriter(&buf)
	w.Comma = rune(domain.CSVDelimiter[0])

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	for _, s := range subs {
		if err := w.Write([]string{s.Email, s.Name, s.Attributes}); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncode, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}
