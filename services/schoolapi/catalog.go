package schoolapi

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasa/portal/core/school"
)

// ---- academic sessions ----

func (c *client) Sessions(ctx context.Context, token string) ([]school.Session, error) {
	var out []school.Session
	err := c.do(ctx, http.MethodGet, "/sessions/", token, nil, &out)
	return out, err
}

func (c *client) CreateSession(ctx context.Context, token string, data school.NewSession) (school.Session, error) {
	var out school.Session
	err := c.do(ctx, http.MethodPost, "/sessions/", token, data, &out)
	return out, err
}

func (c *client) UpdateSession(ctx context.Context, token, id string, data school.NewSession) (school.Session, error) {
	var out school.Session
	err := c.do(ctx, http.MethodPut, "/sessions/"+id+"/", token, data, &out)
	return out, err
}

func (c *client) DeleteSession(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+id+"/", token, nil, nil)
}

// ---- classes ----

func (c *client) Classes(ctx context.Context, token string) ([]school.Class, error) {
	var out []school.Class
	err := c.do(ctx, http.MethodGet, "/classes/", token, nil, &out)
	return out, err
}

func (c *client) GetClass(ctx context.Context, token, id string) (school.Class, error) {
	var out school.Class
	err := c.do(ctx, http.MethodGet, "/classes/"+id+"/", token, nil, &out)
	return out, err
}

func (c *client) CreateClass(ctx context.Context, token string, data school.NewClass) (school.Class, error) {
	var out school.Class
	err := c.do(ctx, http.MethodPost, "/classes/", token, data, &out)
	return out, err
}

func (c *client) UpdateClass(ctx context.Context, token, id string, data school.NewClass) (school.Class, error) {
	var out school.Class
	err := c.do(ctx, http.MethodPut, "/classes/"+id+"/", token, data, &out)
	return out, err
}

func (c *client) DeleteClass(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/classes/"+id+"/", token, nil, nil)
}

// ---- sections ----

func (c *client) Sections(ctx context.Context, token string) ([]school.Section, error) {
	var out []school.Section
	err := c.do(ctx, http.MethodGet, "/sections/", token, nil, &out)
	return out, err
}

func (c *client) CreateSection(ctx context.Context, token string, data school.NewSection) (school.Section, error) {
	var out school.Section
	err := c.do(ctx, http.MethodPost, "/sections/", token, data, &out)
	return out, err
}

func (c *client) UpdateSection(ctx context.Context, token, id string, data school.NewSection) (school.Section, error) {
	var out school.Section
	err := c.do(ctx, http.MethodPut, "/sections/"+id+"/", token, data, &out)
	return out, err
}

func (c *client) DeleteSection(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/sections/"+id+"/", token, nil, nil)
}

// ---- subjects ----

// subjectRow decodes any of the three subject resources; optional
// subjects carry their marks total under a different key.
type subjectRow struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Code             string    `json:"code"`
	FullMarks        null.Int  `json:"full_marks"`
	DefaultFullMarks null.Int  `json:"default_full_marks"`
	CreatedAt        time.Time `json:"created_at"`
}

func (r subjectRow) subject(kind string) school.Subject {
	sub := school.Subject{
		ID:        r.ID,
		Name:      r.Name,
		Code:      r.Code,
		Kind:      kind,
		FullMarks: r.FullMarks,
		CreatedAt: r.CreatedAt,
	}
	if kind == school.SubjectOptional {
		sub.FullMarks = r.DefaultFullMarks
	}
	return sub
}

func subjectPath(kind string) (string, error) {
	switch kind {
	case school.SubjectCore:
		return "/subjects/", nil
	case school.SubjectOptional:
		return "/optional-subjects/", nil
	case school.SubjectCocurricular:
		return "/cocurricular-subjects/", nil
	}
	return "", errors.Errorf("unknown subject kind %q", kind)
}

// subjectBody shapes the write payload per resource; co-curricular
// subjects have no marks total at all.
func subjectBody(data school.NewSubject) interface{} {
	switch data.Kind {
	case school.SubjectOptional:
		return struct {
			Name             string   `json:"name"`
			Code             string   `json:"code"`
			DefaultFullMarks null.Int `json:"default_full_marks"`
		}{data.Name, data.Code, data.FullMarks}
	case school.SubjectCocurricular:
		return struct {
			Name string `json:"name"`
			Code string `json:"code"`
		}{data.Name, data.Code}
	}
	return struct {
		Name      string   `json:"name"`
		Code      string   `json:"code"`
		FullMarks null.Int `json:"full_marks"`
	}{data.Name, data.Code, data.FullMarks}
}

// Subjects merges the school API's three subject resources into one list,
// tagged by kind.
func (c *client) Subjects(ctx context.Context, token string) ([]school.Subject, error) {
	var out []school.Subject
	for _, kind := range []string{school.SubjectCore, school.SubjectOptional, school.SubjectCocurricular} {
		path, err := subjectPath(kind)
		if err != nil {
			return nil, err
		}
		var rows []subjectRow
		if err := c.do(ctx, http.MethodGet, path, token, nil, &rows); err != nil {
			return nil, errors.Wrapf(err, "listing %s subjects", kind)
		}
		for _, r := range rows {
			out = append(out, r.subject(kind))
		}
	}
	return out, nil
}

func (c *client) CreateSubject(ctx context.Context, token string, data school.NewSubject) (school.Subject, error) {
	path, err := subjectPath(data.Kind)
	if err != nil {
		return school.Subject{}, err
	}
	var row subjectRow
	if err := c.do(ctx, http.MethodPost, path, token, subjectBody(data), &row); err != nil {
		return school.Subject{}, err
	}
	return row.subject(data.Kind), nil
}

func (c *client) UpdateSubject(ctx context.Context, token, id string, data school.NewSubject) (school.Subject, error) {
	path, err := subjectPath(data.Kind)
	if err != nil {
		return school.Subject{}, err
	}
	var row subjectRow
	if err := c.do(ctx, http.MethodPut, path+id+"/", token, subjectBody(data), &row); err != nil {
		return school.Subject{}, err
	}
	return row.subject(data.Kind), nil
}

func (c *client) DeleteSubject(ctx context.Context, token, kind, id string) error {
	path, err := subjectPath(kind)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, path+id+"/", token, nil, nil)
}

// ---- class config ----

func (c *client) ClassConfig(ctx context.Context, token, classID string) (school.ClassConfig, error) {
	var out school.ClassConfig
	err := c.do(ctx, http.MethodGet, "/classes/"+classID+"/config/", token, nil, &out)
	return out, err
}

func (c *client) CreateMarksDistribution(ctx context.Context, token string, data school.MarksDistributionUpsert) (school.MarksDistribution, error) {
	var out school.MarksDistribution
	err := c.do(ctx, http.MethodPost, "/class-marks-distribution/", token, data, &out)
	return out, err
}

func (c *client) UpdateMarksDistribution(ctx context.Context, token, id string, data school.MarksDistributionUpsert) (school.MarksDistribution, error) {
	var out school.MarksDistribution
	err := c.do(ctx, http.MethodPut, "/class-marks-distribution/"+id+"/", token, data, &out)
	return out, err
}
