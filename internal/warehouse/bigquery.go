package warehouse

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/adstack/ingest-api/internal/rows"
)

// BigQueryLoader is the production Loader. One loader is built per
// invocation from the warehouse credential resolved for that request.
type BigQueryLoader struct {
	client *bigquery.Client
	logger zerolog.Logger
}

func NewBigQueryLoader(ctx context.Context, projectID string, credentialsJSON []byte, logger zerolog.Logger) (*BigQueryLoader, error) {
	client, err := bigquery.NewClient(ctx, projectID, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, errors.Wrap(err, "create bigquery client")
	}
	return &BigQueryLoader{
		client: client,
		logger: logger.With().Str("component", "bigquery_loader").Logger(),
	}, nil
}

func (l *BigQueryLoader) Close() error { return l.client.Close() }

func (l *BigQueryLoader) Load(ctx context.Context, table rows.Table, timestampColumns []string, dest Destination, refresh *Refresh) (int64, error) {
	if table.Empty() {
		l.logger.Info().Str("destination", dest.String()).Msg("no rows to load")
		return 0, nil
	}

	if refresh != nil && refresh.PartitionColumn != "" {
		if err := l.deleteExisting(ctx, dest, refresh); err != nil {
			return 0, errors.Wrap(err, "delete existing rows")
		}
	}

	data, err := encodeCSV(table)
	if err != nil {
		return 0, errors.Wrap(err, "encode rows")
	}

	source := bigquery.NewReaderSource(bytes.NewReader(data))
	source.SourceFormat = bigquery.CSV
	source.SkipLeadingRows = 1
	source.Schema = buildSchema(table.Columns, timestampColumns)

	loader := l.client.DatasetInProject(dest.ProjectID, dest.Dataset).Table(dest.Table).LoaderFrom(source)
	loader.WriteDisposition = bigquery.WriteAppend

	job, err := loader.Run(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "start load job")
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "wait for load job")
	}
	if err := status.Err(); err != nil {
		return 0, errors.Wrap(err, "load job failed")
	}

	loaded := int64(table.RowCount())
	if stats, ok := status.Statistics.Details.(*bigquery.LoadStatistics); ok {
		loaded = stats.OutputRows
	}
	l.logger.Info().Int64("rows", loaded).Str("destination", dest.String()).Msg("rows loaded")
	return loaded, nil
}

// deleteExisting removes the refresh slice. The query is parameterized; only
// the table reference and partition column are interpolated, and both come
// from operator-controlled configuration rather than row data.
func (l *BigQueryLoader) deleteExisting(ctx context.Context, dest Destination, refresh *Refresh) error {
	clause := fmt.Sprintf("DATE(%s) BETWEEN @start_date AND @end_date", refresh.PartitionColumn)
	if len(refresh.EntityIDs) > 0 {
		clause += " AND account_id IN UNNEST(@account_ids)"
	}
	query := l.client.Query(fmt.Sprintf("DELETE FROM `%s` WHERE %s", dest.String(), clause))
	query.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: civil.DateOf(refresh.Start)},
		{Name: "end_date", Value: civil.DateOf(refresh.End)},
	}
	if len(refresh.EntityIDs) > 0 {
		query.Parameters = append(query.Parameters, bigquery.QueryParameter{
			Name: "account_ids", Value: refresh.EntityIDs,
		})
	}

	job, err := query.Run(ctx)
	if err != nil {
		return err
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return err
	}
	if err := status.Err(); err != nil {
		return err
	}
	l.logger.Info().
		Str("destination", dest.String()).
		Str("start_date", refresh.Start.Format("2006-01-02")).
		Str("end_date", refresh.End.Format("2006-01-02")).
		Msg("removed existing rows for date range")
	return nil
}

func buildSchema(columns, timestampColumns []string) bigquery.Schema {
	// Callers declare timestamp columns by source name; the table carries
	// the normalized safe names, so match through the same rewrite.
	isTimestamp := make(map[string]bool, len(timestampColumns))
	for _, col := range timestampColumns {
		isTimestamp[rows.SafeColumn(col)] = true
	}
	schema := make(bigquery.Schema, 0, len(columns))
	for _, col := range columns {
		fieldType := bigquery.StringFieldType
		if isTimestamp[col] {
			fieldType = bigquery.TimestampFieldType
		}
		schema = append(schema, &bigquery.FieldSchema{Name: col, Type: fieldType})
	}
	return schema
}

func encodeCSV(table rows.Table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(table.Columns); err != nil {
		return nil, err
	}
	for _, row := range table.Rows {
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
