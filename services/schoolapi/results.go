package schoolapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/darasa/portal/core/school"
)

// ---- marks entry ----

func (c *client) ClassResults(ctx context.Context, token string, filter school.MarksFilter) ([]school.RosterRow, error) {
	q := make(url.Values)
	q.Set("session_id", filter.SessionID)
	q.Set("class_id", filter.ClassID)
	q.Set("section_id", filter.SectionID)
	q.Set("subject_id", filter.SubjectID)

	var out []school.RosterRow
	err := c.do(ctx, http.MethodGet, withQuery("/results/by-class-section/", q), token, nil, &out)
	return out, err
}

func (c *client) UpsertMark(ctx context.Context, token string, data school.MarkUpsert) (school.Result, error) {
	var out school.Result
	err := c.do(ctx, http.MethodPost, "/results/upsert/", token, data, &out)
	return out, err
}

func (c *client) UpsertMarksBulk(ctx context.Context, token string, data school.BulkMarkUpsert) ([]school.Result, error) {
	var out []school.Result
	err := c.do(ctx, http.MethodPost, "/results/bulk-upsert/", token, data, &out)
	return out, err
}

// ---- marksheets ----

func marksheetQuery(filter school.MarksheetFilter) url.Values {
	q := make(url.Values)
	q.Set("session_id", filter.SessionID)
	q.Set("class_id", filter.ClassID)
	q.Set("section_id", filter.SectionID)
	return q
}

func (c *client) StudentMarksheet(ctx context.Context, token, studentID, sessionID string) (school.StudentMarksheet, error) {
	q := url.Values{"session_id": []string{sessionID}}

	var out school.StudentMarksheet
	err := c.do(ctx, http.MethodGet, withQuery("/marksheets/student/"+studentID+"/", q), token, nil, &out)
	return out, err
}

func (c *client) ClassMarksheet(ctx context.Context, token string, filter school.MarksheetFilter) ([]school.ClassMarksheetRow, error) {
	var out []school.ClassMarksheetRow
	err := c.do(ctx, http.MethodGet, withQuery("/marksheets/class-section/", marksheetQuery(filter)), token, nil, &out)
	return out, err
}

func (c *client) StudentMarksheetPDF(ctx context.Context, token, studentID, sessionID string) (school.PDF, error) {
	q := url.Values{"session_id": []string{sessionID}}
	return c.download(ctx, withQuery("/marksheets/student/"+studentID+"/pdf/", q), token)
}

func (c *client) ClassMarksheetPDF(ctx context.Context, token string, filter school.MarksheetFilter) (school.PDF, error) {
	return c.download(ctx, withQuery("/marksheets/class-section/pdf/", marksheetQuery(filter)), token)
}
