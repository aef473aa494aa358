package report

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	doubleclickbidmanager "google.golang.org/api/doubleclickbidmanager/v2"
	"google.golang.org/api/option"
)

// BidManagerService implements Service against the Bid Manager v2 API.
type BidManagerService struct {
	svc *doubleclickbidmanager.Service
}

// NewBidManagerService builds a client from a service account key. Clients
// are constructed per invocation; nothing is shared across requests.
func NewBidManagerService(ctx context.Context, credentialsJSON []byte) (*BidManagerService, error) {
	svc, err := doubleclickbidmanager.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(doubleclickbidmanager.DoubleclickbidmanagerScope),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create bid manager client")
	}
	return &BidManagerService{svc: svc}, nil
}

func (b *BidManagerService) Create(ctx context.Context, spec Spec) (string, error) {
	resp, err := b.svc.Queries.Create(buildQuery(spec)).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(resp.QueryId, 10), nil
}

func (b *BidManagerService) Run(ctx context.Context, queryID string) (Job, error) {
	id, err := parseID("query", queryID)
	if err != nil {
		return Job{}, err
	}
	resp, err := b.svc.Queries.Run(id, &doubleclickbidmanager.RunQueryRequest{}).
		Synchronous(false).
		Context(ctx).
		Do()
	if err != nil {
		return Job{}, err
	}
	job := jobFromReport(resp)
	job.CreatedAt = time.Now().UTC()
	return job, nil
}

func (b *BidManagerService) Status(ctx context.Context, queryID, reportID string) (Job, error) {
	// Guard: a status check on unset ids would address a different resource.
	if queryID == "" || reportID == "" {
		return Job{}, fmt.Errorf("status check requires query and report ids (got %q, %q)", queryID, reportID)
	}
	qid, err := parseID("query", queryID)
	if err != nil {
		return Job{}, err
	}
	rid, err := parseID("report", reportID)
	if err != nil {
		return Job{}, err
	}
	resp, err := b.svc.Queries.Reports.Get(qid, rid).Context(ctx).Do()
	if err != nil {
		return Job{}, err
	}
	return jobFromReport(resp), nil
}

func buildQuery(spec Spec) *doubleclickbidmanager.Query {
	filters := make([]*doubleclickbidmanager.FilterPair, 0, len(spec.AdvertiserIDs))
	for _, advertiserID := range spec.AdvertiserIDs {
		filters = append(filters, &doubleclickbidmanager.FilterPair{
			Type:  "FILTER_ADVERTISER",
			Value: advertiserID,
		})
	}
	return &doubleclickbidmanager.Query{
		Metadata: &doubleclickbidmanager.QueryMetadata{
			Title:  spec.Title,
			Format: "CSV",
			DataRange: &doubleclickbidmanager.DataRange{
				Range:           "CUSTOM_DATES",
				CustomStartDate: dateOf(spec.Start),
				CustomEndDate:   dateOf(spec.End),
			},
		},
		Params: &doubleclickbidmanager.Parameters{
			Type:     "STANDARD",
			GroupBys: spec.Dimensions,
			Filters:  filters,
			Metrics:  spec.Metrics,
		},
		Schedule: &doubleclickbidmanager.QuerySchedule{Frequency: "ONE_TIME"},
	}
}

func dateOf(t time.Time) *doubleclickbidmanager.Date {
	return &doubleclickbidmanager.Date{
		Year:  int64(t.Year()),
		Month: int64(t.Month()),
		Day:   int64(t.Day()),
	}
}

func jobFromReport(rep *doubleclickbidmanager.Report) Job {
	var job Job
	if rep.Key != nil {
		job.QueryID = strconv.FormatInt(rep.Key.QueryId, 10)
		job.ReportID = strconv.FormatInt(rep.Key.ReportId, 10)
	}
	job.State = StateRunning
	if rep.Metadata != nil {
		job.ArtifactLocator = rep.Metadata.GoogleCloudStoragePath
		if rep.Metadata.Status != nil {
			job.State = StateOf(rep.Metadata.Status.State)
		}
	}
	return job
}

func parseID(kind, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed %s id %q", kind, raw)
	}
	return id, nil
}
