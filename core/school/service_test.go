package school

import (
	"context"
	"net/http"
	"testing"

	"github.com/pkg/errors"

	"github.com/darasa/portal/core"
	"github.com/volatiletech/null/v8"
)

func setupSvc() (*Service, *fakeAPI) {
	api := newFakeAPI()
	catalog := NewCatalog(api, newFakeCache(), core.NopLogger{}, catalogConf())
	return NewService(api, catalog, core.NopLogger{}), api
}

func TestServiceMutationInvalidatesCatalog(t *testing.T) {
	ctx := context.Background()
	svc, api := setupSvc()

	if _, err := svc.Classes(ctx, "tok"); err != nil {
		t.Fatalf("Classes() error = %v", err)
	}
	if _, err := svc.CreateClass(ctx, "tok", NewClass{Name: "Class 2", Level: 2}); err != nil {
		t.Fatalf("CreateClass() error = %v", err)
	}
	if _, err := svc.Classes(ctx, "tok"); err != nil {
		t.Fatalf("Classes() error = %v", err)
	}
	if n := api.callCount("classes"); n != 2 {
		t.Errorf("class fetches = %d, want refetch after the mutation", n)
	}
}

func TestServiceFailedMutationKeepsCache(t *testing.T) {
	ctx := context.Background()
	svc, api := setupSvc()

	if _, err := svc.Classes(ctx, "tok"); err != nil {
		t.Fatalf("Classes() error = %v", err)
	}

	api.setErr(&core.APIError{StatusCode: http.StatusBadRequest, Detail: "name taken"})
	if _, err := svc.CreateClass(ctx, "tok", NewClass{Name: "Class 1"}); err == nil {
		t.Fatal("CreateClass() error = nil, want the upstream rejection")
	}
	api.setErr(nil)

	if _, err := svc.Classes(ctx, "tok"); err != nil {
		t.Fatalf("Classes() error = %v", err)
	}
	if n := api.callCount("classes"); n != 1 {
		t.Errorf("class fetches = %d, want cache kept after a failed mutation", n)
	}
}

func TestServiceMarkUpsertInvalidatesTasks(t *testing.T) {
	ctx := context.Background()
	svc, api := setupSvc()

	if _, err := svc.PendingTasks(ctx, "tok", "t1"); err != nil {
		t.Fatalf("PendingTasks() error = %v", err)
	}
	if _, err := svc.Classes(ctx, "tok"); err != nil {
		t.Fatalf("Classes() error = %v", err)
	}

	mark := MarkUpsert{
		StudentID:              "s1",
		SubjectID:              "sub1",
		SessionID:              "sess1",
		FirstSummativeObtained: null.Float64From(42),
	}
	if _, err := svc.UpsertMark(ctx, "tok", mark); err != nil {
		t.Fatalf("UpsertMark() error = %v", err)
	}

	if _, err := svc.PendingTasks(ctx, "tok", "t1"); err != nil {
		t.Fatalf("PendingTasks() error = %v", err)
	}
	if _, err := svc.Classes(ctx, "tok"); err != nil {
		t.Fatalf("Classes() error = %v", err)
	}

	if n := api.callCount("tasks"); n != 2 {
		t.Errorf("task fetches = %d, want refetch after marks changed", n)
	}
	if n := api.callCount("classes"); n != 1 {
		t.Errorf("class fetches = %d, want catalog untouched by marks", n)
	}
}

func TestServicePassesUpstreamErrorsThrough(t *testing.T) {
	ctx := context.Background()
	svc, api := setupSvc()

	want := &core.APIError{StatusCode: http.StatusForbidden, Detail: "You are not assigned to teach this subject"}
	api.setErr(want)

	_, err := svc.UpsertMark(ctx, "tok", MarkUpsert{StudentID: "s1", SubjectID: "sub1", SessionID: "sess1"})
	var apiErr *core.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("UpsertMark() error = %v, want the 403 passed through", err)
	}
}
