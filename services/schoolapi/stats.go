package schoolapi

import (
	"context"
	"net/http"

	"github.com/darasa/portal/core/school"
)

func (c *client) DashboardStats(ctx context.Context, token string) (school.DashboardStats, error) {
	var out school.DashboardStats
	err := c.do(ctx, http.MethodGet, "/admin/dashboard-stats/", token, nil, &out)
	return out, err
}

func (c *client) StudentFees(ctx context.Context, token string) (school.StudentFees, error) {
	var out school.StudentFees
	err := c.do(ctx, http.MethodGet, "/student/fees/", token, nil, &out)
	return out, err
}
