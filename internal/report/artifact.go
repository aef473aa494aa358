package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"net/url"
	"strings"

	"github.com/adstack/ingest-api/internal/rows"
)

// LocatorScheme is the object-storage scheme a finished report points at.
const LocatorScheme = "gs"

// ObjectStore downloads a whole object. Report artifacts are bounded by the
// vendor's own export limits, so there is no streamed retrieval.
type ObjectStore interface {
	Download(ctx context.Context, bucket, object string) ([]byte, error)
}

// ParseLocator splits a gs://bucket/path locator into bucket and object.
func ParseLocator(locator string) (bucket, object string, err error) {
	if strings.TrimSpace(locator) == "" {
		return "", "", &InvalidLocatorError{Locator: locator, Reason: "empty locator"}
	}
	u, parseErr := url.Parse(locator)
	if parseErr != nil {
		return "", "", &InvalidLocatorError{Locator: locator, Reason: parseErr.Error()}
	}
	if u.Scheme != LocatorScheme {
		return "", "", &InvalidLocatorError{Locator: locator, Reason: "expected scheme " + LocatorScheme}
	}
	bucket = u.Host
	object = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || object == "" {
		return "", "", &InvalidLocatorError{Locator: locator, Reason: "missing bucket or object path"}
	}
	return bucket, object, nil
}

// Retriever turns a completed job's artifact locator into tabular rows.
type Retriever struct {
	Store ObjectStore
}

// Fetch downloads the artifact and decodes it as CSV. The whole object is
// read before parsing; repeated calls on the same locator yield identical
// output.
func (r Retriever) Fetch(ctx context.Context, locator string) (rows.Table, error) {
	bucket, object, err := ParseLocator(locator)
	if err != nil {
		return rows.Table{}, err
	}
	data, err := r.Store.Download(ctx, bucket, object)
	if err != nil {
		return rows.Table{}, &RetrievalError{Locator: locator, Err: err}
	}
	table, err := decodeCSV(data)
	if err != nil {
		return rows.Table{}, &RetrievalError{Locator: locator, Err: err}
	}
	return table, nil
}

// decodeCSV parses the report export. Bid Manager appends a summary section
// after a blank record; decoding stops at the first record that is blank or
// no longer matches the header width.
func decodeCSV(data []byte) (rows.Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return rows.Table{}, nil
	}
	if err != nil {
		return rows.Table{}, err
	}

	table := rows.New(header...)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows.Table{}, err
		}
		if blankRecord(record) || len(record) != len(header) {
			break
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
