package school

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/darasa/portal/core"
)

// Reference data and passthrough shapes, mirroring the school API's wire
// format (snake_case, nullable columns as JSON null, dates as "YYYY-MM-DD"
// strings). Aggregates the portal only displays are kept as raw JSON and
// forwarded untouched.

// Session is an academic session (school year), e.g. "2025-2026".
// Not to be confused with identity.Session, the auth record.
type Session struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	StartDate null.String `json:"start_date"`
	EndDate   null.String `json:"end_date"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
}

type NewSession struct {
	Name      string      `json:"name" validate:"required"`
	StartDate null.String `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   null.String `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	IsActive  bool        `json:"is_active"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

type NewClass struct {
	Name  string `json:"name" validate:"required"`
	Level int    `json:"level" validate:"gte=0"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// Section belongs to a class; the school API denormalizes the class name
// into listings.
type Section struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	ClassID   string      `json:"class_id"`
	ClassName null.String `json:"class_name"`
	CreatedAt time.Time   `json:"created_at"`
}

type NewSection struct {
	Name    string `json:"name" validate:"required"`
	ClassID string `json:"class_id" validate:"required"`
}

func (ns *NewSection) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// Subject kinds. The school API keeps core, optional and co-curricular
// subjects as three separate resources; the portal lists the union and
// routes writes by kind.
const (
	SubjectCore         = "core"
	SubjectOptional     = "optional"
	SubjectCocurricular = "cocurricular"
)

// Subject is one row of the merged subject list. FullMarks is null for
// co-curricular subjects, which are graded without a marks total.
type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Kind      string    `json:"kind"`
	FullMarks null.Int  `json:"full_marks"`
	CreatedAt time.Time `json:"created_at"`
}

type NewSubject struct {
	Name      string   `json:"name" validate:"required"`
	Code      string   `json:"code" validate:"required,alphanum_"`
	Kind      string   `json:"kind" validate:"required,oneof=core optional cocurricular"`
	FullMarks null.Int `json:"full_marks"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code, true /* lower */)
	return validate.Struct(ns)
}

// MarksDistribution is a class's term-by-term split of full marks. The
// school API keeps exactly one per class and derives total_marks.
type MarksDistribution struct {
	ID                   string    `json:"id"`
	ClassID              string    `json:"class_id"`
	FirstSummativeMarks  int       `json:"first_summative_marks"`
	FirstFormativeMarks  int       `json:"first_formative_marks"`
	SecondSummativeMarks int       `json:"second_summative_marks"`
	SecondFormativeMarks int       `json:"second_formative_marks"`
	ThirdSummativeMarks  int       `json:"third_summative_marks"`
	ThirdFormativeMarks  int       `json:"third_formative_marks"`
	NumberOfUnitTests    int       `json:"number_of_unit_tests"`
	HasFinalTerm         bool      `json:"has_final_term"`
	UnitTestMarks        int       `json:"unit_test_marks"`
	FormativeMarks       int       `json:"formative_marks"`
	FinalTermMarks       int       `json:"final_term_marks"`
	TotalMarks           int       `json:"total_marks"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type MarksDistributionUpsert struct {
	ClassID              string `json:"class_id" validate:"required"`
	FirstSummativeMarks  int    `json:"first_summative_marks" validate:"gte=0"`
	FirstFormativeMarks  int    `json:"first_formative_marks" validate:"gte=0"`
	SecondSummativeMarks int    `json:"second_summative_marks" validate:"gte=0"`
	SecondFormativeMarks int    `json:"second_formative_marks" validate:"gte=0"`
	ThirdSummativeMarks  int    `json:"third_summative_marks" validate:"gte=0"`
	ThirdFormativeMarks  int    `json:"third_formative_marks" validate:"gte=0"`
	NumberOfUnitTests    int    `json:"number_of_unit_tests" validate:"gte=0"`
	HasFinalTerm         bool   `json:"has_final_term"`
	UnitTestMarks        int    `json:"unit_test_marks" validate:"gte=0"`
	FormativeMarks       int    `json:"formative_marks" validate:"gte=0"`
	FinalTermMarks       int    `json:"final_term_marks" validate:"gte=0"`
}

func (mu *MarksDistributionUpsert) Validate(validate *validator.Validate) error {
	return validate.Struct(mu)
}

// ClassConfig is the school API's one-shot aggregate for a class admin
// page. The optional/co-curricular assignment blocks are forwarded as-is;
// the portal never edits them field by field.
type ClassConfig struct {
	Class               Class              `json:"class"`
	Sections            []Section          `json:"sections"`
	SubjectAssignments  json.RawMessage    `json:"subject_assignments"`
	OptionalConfig      json.RawMessage    `json:"optional_config"`
	OptionalAssignments json.RawMessage    `json:"optional_assignments"`
	CocurricularConfig  json.RawMessage    `json:"cocurricular_config"`
	MarksDistribution   *MarksDistribution `json:"marks_distribution"`
}

// Student as the school API serializes it. The student code is generated
// upstream; roll numbers are free-form text.
type Student struct {
	ID          string      `json:"id"`
	StudentID   string      `json:"student_id"` // human code, e.g. "STU17234"
	RollNo      string      `json:"roll_no"`
	Name        string      `json:"name"`
	DateOfBirth null.String `json:"date_of_birth"`
	FatherName  null.String `json:"father_name"`
	MotherName  null.String `json:"mother_name"`
	Phone       null.String `json:"phone"`
	Address     null.String `json:"address"`
	ClassID     null.String `json:"class_id"`
	SectionID   null.String `json:"section_id"`
	SessionID   null.String `json:"session_id"`
	ClassName   null.String `json:"class_name"`
	SectionName null.String `json:"section_name"`
	SessionName null.String `json:"session_name"`
	IsActive    bool        `json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NewStudent enrolls a student. Password is optional; when blank the
// school API derives the initial one.
type NewStudent struct {
	RollNo      string      `json:"roll_no"`
	Name        string      `json:"name" validate:"required"`
	DateOfBirth null.String `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	FatherName  null.String `json:"father_name"`
	MotherName  null.String `json:"mother_name"`
	Phone       null.String `json:"phone"`
	Address     null.String `json:"address"`
	ClassID     null.String `json:"class_id"`
	SectionID   null.String `json:"section_id"`
	SessionID   null.String `json:"session_id"`
	Password    string      `json:"password,omitempty" validate:"omitempty,min=8"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.RollNo = core.CleanString(ns.RollNo)
	return validate.Struct(ns)
}

type UpdateStudent struct {
	RollNo      string      `json:"roll_no"`
	Name        string      `json:"name" validate:"required"`
	DateOfBirth null.String `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	FatherName  null.String `json:"father_name"`
	MotherName  null.String `json:"mother_name"`
	Phone       null.String `json:"phone"`
	Address     null.String `json:"address"`
	ClassID     null.String `json:"class_id"`
	SectionID   null.String `json:"section_id"`
	SessionID   null.String `json:"session_id"`
	Password    string      `json:"password,omitempty" validate:"omitempty,min=8"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	us.RollNo = core.CleanString(us.RollNo)
	return validate.Struct(us)
}

type BulkStudents struct {
	Students []NewStudent `json:"students" validate:"required,min=1,dive"`
}

func (bs *BulkStudents) Validate(validate *validator.Validate) error {
	for i := range bs.Students {
		bs.Students[i].Name = core.CleanString(bs.Students[i].Name)
		bs.Students[i].RollNo = core.CleanString(bs.Students[i].RollNo)
	}
	return validate.Struct(bs)
}

// StudentFilter narrows student listings; zero fields are ignored.
type StudentFilter struct {
	Search    string `query:"search"`
	ClassID   string `query:"class_id"`
	SectionID string `query:"section_id"`
	SessionID string `query:"session_id"`
}

func (f *StudentFilter) Clean() {
	f.Search = core.CleanString(f.Search)
}

type Teacher struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type NewTeacher struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.Name = core.CleanString(nt.Name)
	return validate.Struct(nt)
}

type UpdateTeacher struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
}

func (ut *UpdateTeacher) Validate(validate *validator.Validate) error {
	ut.Email = core.CleanString(ut.Email, true /* lower */)
	ut.Name = core.CleanString(ut.Name)
	return validate.Struct(ut)
}

// Assignment binds a teacher to a class/section/subject for a session.
// The school API is the authority on it and enforces it on marks entry.
type Assignment struct {
	ID          string    `json:"id"`
	TeacherID   string    `json:"teacher_id"`
	TeacherName string    `json:"teacher_name"`
	ClassID     string    `json:"class_id"`
	ClassName   string    `json:"class_name"`
	SectionID   string    `json:"section_id"`
	SectionName string    `json:"section_name"`
	SubjectID   string    `json:"subject_id"`
	SubjectName string    `json:"subject_name"`
	SessionID   string    `json:"session_id"`
	SessionName string    `json:"session_name"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewAssignment struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	return validate.Struct(na)
}

type AssignmentFilter struct {
	TeacherID string `query:"teacher_id"`
	SessionID string `query:"session_id"`
	ClassID   string `query:"class_id"`
}

// Result is one student's marks in one subject, split by term the way the
// class marks distribution is.
type Result struct {
	ID                      string       `json:"id"`
	StudentID               string       `json:"student_id"`
	SubjectID               string       `json:"subject_id"`
	SessionID               string       `json:"session_id"`
	FirstSummativeObtained  null.Float64 `json:"first_summative_obtained"`
	FirstFormativeObtained  null.Float64 `json:"first_formative_obtained"`
	SecondSummativeObtained null.Float64 `json:"second_summative_obtained"`
	SecondFormativeObtained null.Float64 `json:"second_formative_obtained"`
	ThirdSummativeObtained  null.Float64 `json:"third_summative_obtained"`
	ThirdFormativeObtained  null.Float64 `json:"third_formative_obtained"`
	FinalTermObtained       null.Float64 `json:"final_term_obtained"`
	TotalMarks              float64      `json:"total_marks"`
	Grade                   string       `json:"grade"`
	CreatedAt               time.Time    `json:"created_at"`
}

// RosterRow is one line of the marks entry grid: a student of the selected
// class/section joined with their result for the subject, or null when
// nothing is entered yet.
type RosterRow struct {
	ID     string  `json:"id"`
	RollNo string  `json:"roll_no"`
	Name   string  `json:"name"`
	Result *Result `json:"result"`
}

// MarkUpsert writes one student's marks for one subject. Class and section
// are not part of the payload; the school API derives them from the
// student row when it checks the teacher's assignment.
type MarkUpsert struct {
	StudentID               string       `json:"student_id" validate:"required"`
	SubjectID               string       `json:"subject_id" validate:"required"`
	SessionID               string       `json:"session_id" validate:"required"`
	FirstSummativeObtained  null.Float64 `json:"first_summative_obtained"`
	FirstFormativeObtained  null.Float64 `json:"first_formative_obtained"`
	SecondSummativeObtained null.Float64 `json:"second_summative_obtained"`
	SecondFormativeObtained null.Float64 `json:"second_formative_obtained"`
	ThirdSummativeObtained  null.Float64 `json:"third_summative_obtained"`
	ThirdFormativeObtained  null.Float64 `json:"third_formative_obtained"`
	FinalTermObtained       null.Float64 `json:"final_term_obtained"`
}

func (mu *MarkUpsert) Validate(validate *validator.Validate) error {
	return validate.Struct(mu)
}

type BulkMarkUpsert struct {
	Results []MarkUpsert `json:"results" validate:"required,min=1,dive"`
}

func (bu *BulkMarkUpsert) Validate(validate *validator.Validate) error {
	return validate.Struct(bu)
}

// MarksFilter selects the marks entry grid. The school API requires all
// four coordinates.
type MarksFilter struct {
	SessionID string `json:"session" query:"session" validate:"required"`
	ClassID   string `json:"class" query:"class" validate:"required"`
	SectionID string `json:"section" query:"section" validate:"required"`
	SubjectID string `json:"subject" query:"subject" validate:"required"`
}

func (f *MarksFilter) Validate(validate *validator.Validate) error {
	return validate.Struct(f)
}

// MarksheetStudent is the header block of a student marksheet.
type MarksheetStudent struct {
	ID      string      `json:"id"`
	RollNo  string      `json:"roll_no"`
	Name    string      `json:"name"`
	Class   null.String `json:"class"`
	Section null.String `json:"section"`
	Session null.String `json:"session"`
}

type MarksheetSummary struct {
	TotalMarks     float64 `json:"total_marks"`
	TotalFullMarks float64 `json:"total_full_marks"`
	OptionalTotal  float64 `json:"optional_total"`
	OptionalFull   float64 `json:"optional_full"`
	GrandTotal     float64 `json:"grand_total"`
	GrandFull      float64 `json:"grand_full"`
	Percentage     float64 `json:"percentage"`
	OverallGrade   string  `json:"overall_grade"`
}

// StudentMarksheet is one student's assembled result sheet. The per-kind
// result arrays carry nested subject detail the portal only renders, so
// they stay raw.
type StudentMarksheet struct {
	Student             MarksheetStudent `json:"student"`
	Results             json.RawMessage  `json:"results"`
	CocurricularResults json.RawMessage  `json:"cocurricular_results"`
	OptionalResults     json.RawMessage  `json:"optional_results"`
	Summary             MarksheetSummary `json:"summary"`
}

// ClassMarksheetRow is one student of the ranked class sheet, ordered by
// percentage with 1-based positions.
type ClassMarksheetRow struct {
	ID              string          `json:"id"`
	RollNo          string          `json:"roll_no"`
	Name            string          `json:"name"`
	TotalMarks      float64         `json:"total_marks"`
	TotalFullMarks  float64         `json:"total_full_marks"`
	Percentage      float64         `json:"percentage"`
	Results         json.RawMessage `json:"results"`
	OptionalResults json.RawMessage `json:"optional_results"`
	Position        int             `json:"position"`
}

// MarksheetFilter selects a class sheet; the school API requires all
// three coordinates.
type MarksheetFilter struct {
	SessionID string `json:"session" query:"session" validate:"required"`
	ClassID   string `json:"class" query:"class" validate:"required"`
	SectionID string `json:"section" query:"section" validate:"required"`
}

func (f *MarksheetFilter) Validate(validate *validator.Validate) error {
	return validate.Struct(f)
}

// FeesSummary totals a student's ledger. Amounts are decimal strings,
// exactly as the school API sends them.
type FeesSummary struct {
	TotalGross    string `json:"total_gross"`
	TotalDiscount string `json:"total_discount"`
	TotalNet      string `json:"total_net"`
	TotalPaid     string `json:"total_paid"`
	Balance       string `json:"balance"`
}

// StudentFees is the student portal fee view: the student's fee rows and
// payment history forwarded raw, plus the computed summary.
type StudentFees struct {
	Student  json.RawMessage `json:"student"`
	Fees     json.RawMessage `json:"fees"`
	Payments json.RawMessage `json:"payments"`
	Summary  FeesSummary     `json:"summary"`
}

type StatCounts struct {
	TotalStudents   int `json:"total_students"`
	SessionStudents int `json:"session_students"`
	TotalTeachers   int `json:"total_teachers"`
	TotalClasses    int `json:"total_classes"`
}

// FeeStats is the school-wide collection roll-up. Sums are decimal
// strings; the rate is a percentage rounded upstream.
type FeeStats struct {
	TotalFees      string  `json:"total_fees"`
	TotalCollected string  `json:"total_collected"`
	Pending        string  `json:"pending"`
	CollectionRate float64 `json:"collection_rate"`
}

type ClassCount struct {
	ClassName string `json:"class_name"`
	Count     int    `json:"count"`
}

// DashboardStats backs the admin landing page.
type DashboardStats struct {
	Session           *Session        `json:"session"`
	Counts            StatCounts      `json:"counts"`
	Fees              FeeStats        `json:"fees"`
	RecentPayments    json.RawMessage `json:"recent_payments"`
	ClassDistribution []ClassCount    `json:"class_distribution"`
}

// TermProgress counts how many students of a roster have marks for one
// term. Progress is a whole percentage.
type TermProgress struct {
	Entered  int `json:"entered"`
	Total    int `json:"total"`
	Progress int `json:"progress"`
}

// PendingTask is one assignment a teacher still owes marks for.
type PendingTask struct {
	AssignmentID  string       `json:"assignment_id"`
	ClassID       string       `json:"class_id"`
	ClassName     string       `json:"class_name"`
	SectionID     string       `json:"section_id"`
	SectionName   string       `json:"section_name"`
	SubjectID     string       `json:"subject_id"`
	SubjectName   string       `json:"subject_name"`
	TotalStudents int          `json:"total_students"`
	FirstTerm     TermProgress `json:"first_term"`
	SecondTerm    TermProgress `json:"second_term"`
	ThirdTerm     TermProgress `json:"third_term"`
}

// MyAssignments is the teacher dashboard payload: the teacher's active
// assignments for the active session.
type MyAssignments struct {
	Teacher     Teacher      `json:"teacher"`
	Assignments []Assignment `json:"assignments"`
	Session     *Session     `json:"session"`
}

type PendingTasks struct {
	Teacher Teacher       `json:"teacher"`
	Tasks   []PendingTask `json:"pending_tasks"`
	Session *Session      `json:"session"`
}

// PDF is a binary document streamed through from the school API.
type PDF struct {
	Content     []byte
	ContentType string
	Filename    string
}
