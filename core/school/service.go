package school

import (
	"context"

	"github.com/darasa/portal/core"
)

// The school API surface, split by concern. services/schoolapi implements
// all of them on one HTTP client.
type (
	CatalogAPI interface {
		Sessions(ctx context.Context, token string) ([]Session, error)
		CreateSession(ctx context.Context, token string, data NewSession) (Session, error)
		UpdateSession(ctx context.Context, token, id string, data NewSession) (Session, error)
		DeleteSession(ctx context.Context, token, id string) error

		Classes(ctx context.Context, token string) ([]Class, error)
		GetClass(ctx context.Context, token, id string) (Class, error)
		CreateClass(ctx context.Context, token string, data NewClass) (Class, error)
		UpdateClass(ctx context.Context, token, id string, data NewClass) (Class, error)
		DeleteClass(ctx context.Context, token, id string) error

		Sections(ctx context.Context, token string) ([]Section, error)
		CreateSection(ctx context.Context, token string, data NewSection) (Section, error)
		UpdateSection(ctx context.Context, token, id string, data NewSection) (Section, error)
		DeleteSection(ctx context.Context, token, id string) error

		Subjects(ctx context.Context, token string) ([]Subject, error)
		CreateSubject(ctx context.Context, token string, data NewSubject) (Subject, error)
		UpdateSubject(ctx context.Context, token, id string, data NewSubject) (Subject, error)
		DeleteSubject(ctx context.Context, token, kind, id string) error

		ClassConfig(ctx context.Context, token, classID string) (ClassConfig, error)
		CreateMarksDistribution(ctx context.Context, token string, data MarksDistributionUpsert) (MarksDistribution, error)
		UpdateMarksDistribution(ctx context.Context, token, id string, data MarksDistributionUpsert) (MarksDistribution, error)
	}

	DirectoryAPI interface {
		Students(ctx context.Context, token string, filter StudentFilter) ([]Student, error)
		GetStudent(ctx context.Context, token, id string) (Student, error)
		CreateStudent(ctx context.Context, token string, data NewStudent) (Student, error)
		CreateStudentsBulk(ctx context.Context, token string, data BulkStudents) ([]Student, error)
		UpdateStudent(ctx context.Context, token, id string, data UpdateStudent) (Student, error)
		DeleteStudent(ctx context.Context, token, id string) error
		MyProfile(ctx context.Context, token string) (Student, error)

		Teachers(ctx context.Context, token string) ([]Teacher, error)
		GetTeacher(ctx context.Context, token, id string) (Teacher, error)
		CreateTeacher(ctx context.Context, token string, data NewTeacher) (Teacher, error)
		UpdateTeacher(ctx context.Context, token, id string, data UpdateTeacher) (Teacher, error)
		DeleteTeacher(ctx context.Context, token, id string) error
		ResetTeacherPassword(ctx context.Context, token, id string) (string, error)

		Assignments(ctx context.Context, token string, filter AssignmentFilter) ([]Assignment, error)
		CreateAssignment(ctx context.Context, token string, data NewAssignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, token, id string) error
		MyAssignments(ctx context.Context, token string) (MyAssignments, error)
		PendingTasks(ctx context.Context, token string) (PendingTasks, error)
	}

	ResultsAPI interface {
		ClassResults(ctx context.Context, token string, filter MarksFilter) ([]RosterRow, error)
		UpsertMark(ctx context.Context, token string, data MarkUpsert) (Result, error)
		UpsertMarksBulk(ctx context.Context, token string, data BulkMarkUpsert) ([]Result, error)

		StudentMarksheet(ctx context.Context, token, studentID, sessionID string) (StudentMarksheet, error)
		ClassMarksheet(ctx context.Context, token string, filter MarksheetFilter) ([]ClassMarksheetRow, error)
		StudentMarksheetPDF(ctx context.Context, token, studentID, sessionID string) (PDF, error)
		ClassMarksheetPDF(ctx context.Context, token string, filter MarksheetFilter) (PDF, error)
	}

	FinanceAPI interface {
		StudentFees(ctx context.Context, token string) (StudentFees, error)
	}

	StatsAPI interface {
		DashboardStats(ctx context.Context, token string) (DashboardStats, error)
	}

	Client interface {
		CatalogAPI
		DirectoryAPI
		ResultsAPI
		FinanceAPI
		StatsAPI
	}
)

// Service passes reads and writes through to the school API and keeps the
// Catalog honest: every mutation bumps the cache families it touches.
type Service struct {
	api     Client
	catalog *Catalog
	logger  core.Logger
}

func NewService(api Client, catalog *Catalog, logger core.Logger) *Service {
	return &Service{api: api, catalog: catalog, logger: logger}
}

// ---- academic sessions ----

func (svc *Service) CreateSession(ctx context.Context, token string, data NewSession) (Session, error) {
	out, err := svc.api.CreateSession(ctx, token, data)
	if err != nil {
		return Session{}, err
	}
	svc.invalidateStructure(ctx)
	return out, nil
}

func (svc *Service) UpdateSession(ctx context.Context, token, id string, data NewSession) (Session, error) {
	out, err := svc.api.UpdateSession(ctx, token, id, data)
	if err != nil {
		return Session{}, err
	}
	svc.invalidateStructure(ctx)
	return out, nil
}

func (svc *Service) DeleteSession(ctx context.Context, token, id string) error {
	if err := svc.api.DeleteSession(ctx, token, id); err != nil {
		return err
	}
	svc.invalidateStructure(ctx)
	return nil
}

// ---- classes ----

func (svc *Service) GetClass(ctx context.Context, token, id string) (Class, error) {
	return svc.api.GetClass(ctx, token, id)
}

func (svc *Service) CreateClass(ctx context.Context, token string, data NewClass) (Class, error) {
	out, err := svc.api.CreateClass(ctx, token, data)
	if err != nil {
		return Class{}, err
	}
	svc.invalidateStructure(ctx)
	return out, nil
}

func (svc *Service) UpdateClass(ctx context.Context, token, id string, data NewClass) (Class, error) {
	out, err := svc.api.UpdateClass(ctx, token, id, data)
	if err != nil {
		return Class{}, err
	}
	svc.invalidateStructure(ctx)
	return out, nil
}

func (svc *Service) DeleteClass(ctx context.Context, token, id string) error {
	if err := svc.api.DeleteClass(ctx, token, id); err != nil {
		return err
	}
	svc.invalidateStructure(ctx)
	return nil
}

// ---- sections ----

func (svc *Service) CreateSection(ctx context.Context, token string, data NewSection) (Section, error) {
	out, err := svc.api.CreateSection(ctx, token, data)
	if err != nil {
		return Section{}, err
	}
	svc.invalidateStructure(ctx)
	return out, nil
}

func (svc *Service) UpdateSection(ctx context.Context, token, id string, data NewSection) (Section, error) {
	out, err := svc.api.UpdateSection(ctx, token, id, data)
	if err != nil {
		return Section{}, err
	}
	svc.invalidateStructure(ctx)
	return out, nil
}

func (svc *Service) DeleteSection(ctx context.Context, token, id string) error {
	if err := svc.api.DeleteSection(ctx, token, id); err != nil {
		return err
	}
	svc.invalidateStructure(ctx)
	return nil
}

// ---- subjects ----

func (svc *Service) CreateSubject(ctx context.Context, token string, data NewSubject) (Subject, error) {
	out, err := svc.api.CreateSubject(ctx, token, data)
	if err != nil {
		return Subject{}, err
	}
	svc.invalidateStructure(ctx)
	return out, nil
}

func (svc *Service) UpdateSubject(ctx context.Context, token, id string, data NewSubject) (Subject, error) {
	out, err := svc.api.UpdateSubject(ctx, token, id, data)
	if err != nil {
		return Subject{}, err
	}
	svc.invalidateStructure(ctx)
	return out, nil
}

func (svc *Service) DeleteSubject(ctx context.Context, token, kind, id string) error {
	if err := svc.api.DeleteSubject(ctx, token, kind, id); err != nil {
		return err
	}
	svc.invalidateStructure(ctx)
	return nil
}

// ---- class config ----

func (svc *Service) ClassConfig(ctx context.Context, token, classID string) (ClassConfig, error) {
	return svc.catalog.ClassConfig(ctx, token, classID)
}

func (svc *Service) CreateMarksDistribution(ctx context.Context, token string, data MarksDistributionUpsert) (MarksDistribution, error) {
	out, err := svc.api.CreateMarksDistribution(ctx, token, data)
	if err != nil {
		return MarksDistribution{}, err
	}
	svc.catalog.InvalidateClassConfig(ctx)
	return out, nil
}

func (svc *Service) UpdateMarksDistribution(ctx context.Context, token, id string, data MarksDistributionUpsert) (MarksDistribution, error) {
	out, err := svc.api.UpdateMarksDistribution(ctx, token, id, data)
	if err != nil {
		return MarksDistribution{}, err
	}
	svc.catalog.InvalidateClassConfig(ctx)
	return out, nil
}

// ---- students ----

func (svc *Service) Students(ctx context.Context, token string, filter StudentFilter) ([]Student, error) {
	return svc.api.Students(ctx, token, filter)
}

func (svc *Service) GetStudent(ctx context.Context, token, id string) (Student, error) {
	return svc.api.GetStudent(ctx, token, id)
}

func (svc *Service) CreateStudent(ctx context.Context, token string, data NewStudent) (Student, error) {
	out, err := svc.api.CreateStudent(ctx, token, data)
	if err != nil {
		return Student{}, err
	}
	svc.catalog.InvalidateStats(ctx)
	return out, nil
}

func (svc *Service) CreateStudentsBulk(ctx context.Context, token string, data BulkStudents) ([]Student, error) {
	out, err := svc.api.CreateStudentsBulk(ctx, token, data)
	if err != nil {
		return nil, err
	}
	svc.catalog.InvalidateStats(ctx)
	return out, nil
}

func (svc *Service) UpdateStudent(ctx context.Context, token, id string, data UpdateStudent) (Student, error) {
	return svc.api.UpdateStudent(ctx, token, id, data)
}

func (svc *Service) DeleteStudent(ctx context.Context, token, id string) error {
	if err := svc.api.DeleteStudent(ctx, token, id); err != nil {
		return err
	}
	svc.catalog.InvalidateStats(ctx)
	return nil
}

// MyProfile returns the signed-in student's own record.
func (svc *Service) MyProfile(ctx context.Context, token string) (Student, error) {
	return svc.api.MyProfile(ctx, token)
}

// ---- teachers ----

func (svc *Service) Teachers(ctx context.Context, token string) ([]Teacher, error) {
	return svc.api.Teachers(ctx, token)
}

func (svc *Service) GetTeacher(ctx context.Context, token, id string) (Teacher, error) {
	return svc.api.GetTeacher(ctx, token, id)
}

func (svc *Service) CreateTeacher(ctx context.Context, token string, data NewTeacher) (Teacher, error) {
	out, err := svc.api.CreateTeacher(ctx, token, data)
	if err != nil {
		return Teacher{}, err
	}
	svc.catalog.InvalidateStats(ctx)
	return out, nil
}

func (svc *Service) UpdateTeacher(ctx context.Context, token, id string, data UpdateTeacher) (Teacher, error) {
	return svc.api.UpdateTeacher(ctx, token, id, data)
}

func (svc *Service) DeleteTeacher(ctx context.Context, token, id string) error {
	if err := svc.api.DeleteTeacher(ctx, token, id); err != nil {
		return err
	}
	svc.catalog.InvalidateStats(ctx)
	return nil
}

func (svc *Service) ResetTeacherPassword(ctx context.Context, token, id string) (string, error) {
	return svc.api.ResetTeacherPassword(ctx, token, id)
}

// ---- assignments ----

func (svc *Service) Assignments(ctx context.Context, token string, filter AssignmentFilter) ([]Assignment, error) {
	return svc.api.Assignments(ctx, token, filter)
}

func (svc *Service) CreateAssignment(ctx context.Context, token string, data NewAssignment) (Assignment, error) {
	out, err := svc.api.CreateAssignment(ctx, token, data)
	if err != nil {
		return Assignment{}, err
	}
	svc.catalog.InvalidateClassConfig(ctx)
	svc.catalog.InvalidateTasks(ctx)
	return out, nil
}

func (svc *Service) DeleteAssignment(ctx context.Context, token, id string) error {
	if err := svc.api.DeleteAssignment(ctx, token, id); err != nil {
		return err
	}
	svc.catalog.InvalidateClassConfig(ctx)
	svc.catalog.InvalidateTasks(ctx)
	return nil
}

// MyAssignments and PendingTasks go through the Catalog; both are cached
// per teacher on a short window.
func (svc *Service) MyAssignments(ctx context.Context, token, teacherID string) (MyAssignments, error) {
	return svc.catalog.MyAssignments(ctx, token, teacherID)
}

func (svc *Service) PendingTasks(ctx context.Context, token, teacherID string) (PendingTasks, error) {
	return svc.catalog.PendingTasks(ctx, token, teacherID)
}

// ---- results and marksheets ----

func (svc *Service) ClassResults(ctx context.Context, token string, filter MarksFilter) ([]RosterRow, error) {
	return svc.api.ClassResults(ctx, token, filter)
}

// UpsertMark forwards one row of the marks grid. The school API enforces
// the assignment rule; its 403 for an unassigned teacher passes through.
func (svc *Service) UpsertMark(ctx context.Context, token string, data MarkUpsert) (Result, error) {
	out, err := svc.api.UpsertMark(ctx, token, data)
	if err != nil {
		return Result{}, err
	}
	svc.catalog.InvalidateTasks(ctx)
	return out, nil
}

func (svc *Service) UpsertMarksBulk(ctx context.Context, token string, data BulkMarkUpsert) ([]Result, error) {
	out, err := svc.api.UpsertMarksBulk(ctx, token, data)
	if err != nil {
		return nil, err
	}
	svc.catalog.InvalidateTasks(ctx)
	return out, nil
}

func (svc *Service) StudentMarksheet(ctx context.Context, token, studentID, sessionID string) (StudentMarksheet, error) {
	return svc.api.StudentMarksheet(ctx, token, studentID, sessionID)
}

func (svc *Service) ClassMarksheet(ctx context.Context, token string, filter MarksheetFilter) ([]ClassMarksheetRow, error) {
	return svc.api.ClassMarksheet(ctx, token, filter)
}

// The PDF variants stream through unmodified, content type and filename
// included.
func (svc *Service) StudentMarksheetPDF(ctx context.Context, token, studentID, sessionID string) (PDF, error) {
	return svc.api.StudentMarksheetPDF(ctx, token, studentID, sessionID)
}

func (svc *Service) ClassMarksheetPDF(ctx context.Context, token string, filter MarksheetFilter) (PDF, error) {
	return svc.api.ClassMarksheetPDF(ctx, token, filter)
}

// ---- fees and dashboards ----

func (svc *Service) StudentFees(ctx context.Context, token string) (StudentFees, error) {
	return svc.api.StudentFees(ctx, token)
}

func (svc *Service) DashboardStats(ctx context.Context, token string) (DashboardStats, error) {
	return svc.catalog.DashboardStats(ctx, token)
}

// Reference lists go through the Catalog's long window.

func (svc *Service) Sessions(ctx context.Context, token string) ([]Session, error) {
	return svc.catalog.Sessions(ctx, token)
}

func (svc *Service) Classes(ctx context.Context, token string) ([]Class, error) {
	return svc.catalog.Classes(ctx, token)
}

func (svc *Service) Sections(ctx context.Context, token string) ([]Section, error) {
	return svc.catalog.Sections(ctx, token)
}

func (svc *Service) Subjects(ctx context.Context, token string) ([]Subject, error) {
	return svc.catalog.Subjects(ctx, token)
}

// structure changes ripple: class lists feed dropdowns, class config and
// the admin dashboard counts.
func (svc *Service) invalidateStructure(ctx context.Context) {
	svc.catalog.InvalidateCatalog(ctx)
	svc.catalog.InvalidateClassConfig(ctx)
	svc.catalog.InvalidateStats(ctx)
}
