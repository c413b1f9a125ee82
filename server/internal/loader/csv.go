package loader

import (
	"bufio"
	"bytes"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/csv"

	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

// DecodeCSV parses a CSV document with a header row into a Frame.
func DecodeCSV(r io.Reader) (*table.Frame, error) {
	br := bufio.NewReader(r)
	headerLine, err := br.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(bytes.TrimSpace(headerLine)) == 0 {
		return nil, errors.New("empty csv: no header row")
	}
	header, err := stdcsv.NewReader(bytes.NewReader(headerLine)).Read()
	if err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	fields := make([]arrow.Field, len(header))
	cols := make([]*rawColumn, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		fields[i] = arrow.Field{Name: h, Type: arrow.BinaryTypes.String, Nullable: true}
		cols[i] = &rawColumn{name: h}
	}

	rdr := csv.NewReader(
		io.MultiReader(bytes.NewReader(headerLine), br),
		arrow.NewSchema(fields, nil),
		csv.WithHeader(true),
		csv.WithNullReader(true, nullTokens...),
		csv.WithChunk(-1),
	)
	defer rdr.Release()

	for rdr.Next() {
		rec := rdr.Record()
		for i := range cols {
			strs, ok := rec.Column(i).(*array.String)
			if !ok {
				return nil, fmt.Errorf("column %q: unexpected arrow type %s", cols[i].name, rec.Column(i).DataType())
			}
			for j := 0; j < strs.Len(); j++ {
				if strs.IsNull(j) {
					cols[i].append("", false)
				} else {
					cols[i].append(strs.Value(j), true)
				}
			}
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return buildFrame(cols)
}
