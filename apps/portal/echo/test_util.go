package echoportal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/darasa/portal/core"
	"github.com/darasa/portal/core/health"
	"github.com/darasa/portal/core/identity"
	"github.com/darasa/portal/core/school"
	emailsvc "github.com/darasa/portal/services/email"
	"github.com/darasa/portal/storage/memdb"
)

const testPassword = "Pass1234"

var errNotSignedIn = httpErr{Error: "not signed in"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	role     string
	wantCode int
	wantData []byte
	extra    interface{}
}

// testDeps is everything a handler test needs to drive the full server:
// requests go through ServeHTTP so the edge filter and guards run too.
type testDeps struct {
	app   *Server
	api   *fakeSchoolAPI
	conf  *core.Config
	idSvc *identity.Service
	store identity.SessionStore
}

func testConfig() *core.Config {
	return &core.Config{
		TestMode:  true,
		AppName:   "Darasa",
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			Addr:    ":0",
			BaseURL: "http://localhost:8080",
		},
		Upstream: core.UpstreamConfig{
			BaseURL:      "http://school.test",
			Timeout:      time.Second,
			ProbeTimeout: time.Second,
		},
		Session: core.SessionConfig{
			TTL:           time.Hour,
			FreshFor:      time.Minute,
			WatchInterval: time.Minute,
		},
		Health: core.HealthConfig{Interval: time.Minute},
		Cache: core.CacheConfig{
			ShortTTL:  time.Minute,
			MediumTTL: time.Minute,
			LongTTL:   time.Minute,
			Retention: time.Hour,
		},
	}
}

func initApp(t *testing.T) *testDeps {
	conf := testConfig()

	db, err := memdb.Open()
	if err != nil {
		t.Fatalf("initApp() failed: %v", err)
	}
	store := memdb.NewSessionStore(db)
	api := newFakeSchoolAPI()
	logger := core.NopLogger{}

	idSvc := identity.NewService(store, api, memdb.NewAuditLog(db), logger, conf)
	t.Cleanup(idSvc.StopAllWatchers)

	monitor := health.NewMonitor(api, emailsvc.NewConsoleServiceMock(conf), logger, conf)
	guard := identity.NewGuard(idSvc, monitor, conf)

	catalog := school.NewCatalog(api, memdb.NewCache(db), logger, conf)
	schoolSvc := school.NewService(api, catalog, logger)

	validate := validator.New()
	translator := newTestTranslator(t)
	core.InitValidators(validate, translator)

	app := NewServer(ServerDeps{
		Conf:        conf,
		Logger:      logger,
		IdentitySvc: idSvc,
		Guard:       guard,
		SchoolSvc:   schoolSvc,
		Monitor:     monitor,
		Validate:    validate,
		Translator:  translator,
	})
	return &testDeps{app: app, api: api, conf: conf, idSvc: idSvc, store: store}
}

func newTestTranslator(t *testing.T) ut.Translator {
	lang := en.New()
	translator, ok := ut.New(lang, lang).GetTranslator("en")
	if !ok {
		t.Fatal("newTestTranslator() failed")
	}
	return translator
}

// signIn establishes a real session through the identity service so the
// store, watcher and audit trail all line up with production.
func (d *testDeps) signIn(t *testing.T, role string) identity.Session {
	var username string
	switch role {
	case identity.RoleAdmin:
		username = d.api.admin.Email
	case identity.RoleTeacher:
		username = d.api.teacher.Email
	case identity.RoleStudent:
		username = d.api.student.StudentID
	default:
		t.Fatalf("signIn() unknown role %q", role)
	}

	sess, err := d.idSvc.Login(context.Background(), role, username, testPassword, "192.0.2.10", "test-agent")
	if err != nil {
		t.Fatalf("signIn() failed: %v", err)
	}
	return sess
}

// makeStale pushes a session outside the freshness window so the next
// guarded request has to round-trip to the (fake) school API.
func (d *testDeps) makeStale(t *testing.T, sess identity.Session) {
	sess.LastValidated = time.Time{}
	if err := d.store.SaveSession(context.Background(), sess); err != nil {
		t.Fatalf("makeStale() failed: %v", err)
	}
}

func newAuthRequest(method, path, token, role string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: token})
		req.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: "refresh-" + token})
	}
	if role != "" {
		req.AddCookie(&http.Cookie{Name: userRoleCookie, Value: role})
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", "", data...)
}

// mintAccessToken signs a throwaway JWT; the edge filter only reads the
// expiry claim, so the key never has to match anything.
func mintAccessToken(sub string, exp time.Time) string {
	claims := jwt.StandardClaims{Subject: sub, ExpiresAt: exp.Unix(), IssuedAt: time.Now().Unix()}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("upstream-secret"))
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil { // no-content responses
		if rec.Body.Len() > 0 {
			t.Errorf("failed! data = %v; want empty body", rec.Body.String())
		}
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// checkClearedCookies asserts the response expires the whole cookie triple.
func checkClearedCookies(t *testing.T, rec *httptest.ResponseRecorder) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie, userRoleCookie} {
		c := findCookie(rec, name)
		if c == nil {
			t.Errorf("cookie %q not cleared: no Set-Cookie", name)
			continue
		}
		if c.Value != "" || c.MaxAge >= 0 {
			t.Errorf("cookie %q not cleared: value=%q maxAge=%d", name, c.Value, c.MaxAge)
		}
	}
}

// checkSessionCookies asserts the response issues the triple for a session.
func checkSessionCookies(t *testing.T, rec *httptest.ResponseRecorder, sess identity.Session) {
	access := findCookie(rec, accessTokenCookie)
	if access == nil || access.Value != sess.Tokens.Access || !access.HttpOnly {
		t.Errorf("access cookie = %+v; want HttpOnly value %q", access, sess.Tokens.Access)
	}
	refresh := findCookie(rec, refreshTokenCookie)
	if refresh == nil || refresh.Value != sess.Tokens.Refresh || !refresh.HttpOnly {
		t.Errorf("refresh cookie = %+v; want HttpOnly value %q", refresh, sess.Tokens.Refresh)
	}
	role := findCookie(rec, userRoleCookie)
	if role == nil || role.Value != sess.Role() || role.HttpOnly {
		t.Errorf("role cookie = %+v; want readable value %q", role, sess.Role())
	}
}

// fakeSchoolAPI stands in for the whole school API: the identity service's
// Authenticator, the health prober and the data client all at once. The
// embedded interface makes the compiler happy and panics loudly on anything
// a test did not mean to call.
type fakeSchoolAPI struct {
	school.Client

	mu         sync.Mutex
	down       bool // transport failure on every call
	rejectAuth bool // definitive 401 on token checks and refreshes
	lockedOut  bool // 429 lockout on logins
	authBroken bool // auth canary fails while the API stays reachable

	issued map[string]identity.Identity // access token -> owner

	admin   identity.StaffUser
	teacher identity.StaffUser
	student identity.StudentPrincipal

	tstamp        time.Time
	activeSession school.Session
	classes       []school.Class
	sections      []school.Section
	subjects      []school.Subject
	students      []school.Student
	teachers      []school.Teacher
	assignments   []school.Assignment
	tasks         []school.PendingTask
	roster        []school.RosterRow
	sheetRows     []school.ClassMarksheetRow
	sheet         school.StudentMarksheet
	fees          school.StudentFees
	profile       school.Student
	stats         school.DashboardStats
	pdf           school.PDF

	lastStudentFilter    school.StudentFilter
	lastAssignmentFilter school.AssignmentFilter
	lastMarksFilter      school.MarksFilter
	lastSheetStudentID   string
	markErr              error // forced verdict on mark upserts
}

func newFakeSchoolAPI() *fakeSchoolAPI {
	tstamp := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	ses := school.Session{ID: "ses-1", Name: "2025-2026", StartDate: null.StringFrom("2025-04-01"), IsActive: true, CreatedAt: tstamp}

	f := &fakeSchoolAPI{
		issued:        make(map[string]identity.Identity),
		admin:         identity.StaffUser{ID: "u-adm1", Username: "headadmin", Email: "admin@darasa.test", Name: "Head Admin", Role: identity.RoleAdmin, IsActive: true},
		teacher:       identity.StaffUser{ID: "u-tch1", Username: "jmwangi", Email: "teacher@darasa.test", Name: "Joy Mwangi", Role: identity.RoleTeacher, IsActive: true},
		student:       identity.StudentPrincipal{ID: "stu-1", StudentID: "STU1001", Name: "Neo Park", RollNo: "7", ClassName: null.StringFrom("Class 8"), SectionName: null.StringFrom("A"), SessionName: null.StringFrom("2025-2026")},
		tstamp:        tstamp,
		activeSession: ses,
	}

	f.classes = []school.Class{{ID: "cls-1", Name: "Class 8", Level: 8, CreatedAt: tstamp}}
	f.sections = []school.Section{{ID: "sec-1", Name: "A", ClassID: "cls-1", ClassName: null.StringFrom("Class 8"), CreatedAt: tstamp}}
	f.subjects = []school.Subject{
		{ID: "sub-1", Name: "Mathematics", Code: "math", Kind: school.SubjectCore, FullMarks: null.IntFrom(100), CreatedAt: tstamp},
		{ID: "sub-2", Name: "Music", Code: "mus", Kind: school.SubjectCocurricular, CreatedAt: tstamp},
	}
	f.students = []school.Student{
		{ID: "stu-1", StudentID: "STU1001", RollNo: "7", Name: "Neo Park", ClassID: null.StringFrom("cls-1"), SectionID: null.StringFrom("sec-1"), SessionID: null.StringFrom("ses-1"), ClassName: null.StringFrom("Class 8"), SectionName: null.StringFrom("A"), SessionName: null.StringFrom("2025-2026"), IsActive: true, CreatedAt: tstamp},
		{ID: "stu-2", StudentID: "STU1002", RollNo: "8", Name: "Awa Diop", ClassID: null.StringFrom("cls-1"), SectionID: null.StringFrom("sec-1"), SessionID: null.StringFrom("ses-1"), IsActive: true, CreatedAt: tstamp},
	}
	f.profile = f.students[0]
	f.teachers = []school.Teacher{{ID: "tch-1", Email: "teacher@darasa.test", Name: "Joy Mwangi", CreatedAt: tstamp}}
	f.assignments = []school.Assignment{{
		ID: "asg-1", TeacherID: "tch-1", TeacherName: "Joy Mwangi",
		ClassID: "cls-1", ClassName: "Class 8", SectionID: "sec-1", SectionName: "A",
		SubjectID: "sub-1", SubjectName: "Mathematics", SessionID: "ses-1", SessionName: "2025-2026",
		IsActive: true, CreatedAt: tstamp,
	}}
	f.tasks = []school.PendingTask{{
		AssignmentID: "asg-1", ClassID: "cls-1", ClassName: "Class 8",
		SectionID: "sec-1", SectionName: "A", SubjectID: "sub-1", SubjectName: "Mathematics",
		TotalStudents: 2,
		FirstTerm:     school.TermProgress{Entered: 1, Total: 2, Progress: 50},
	}}
	f.roster = []school.RosterRow{
		{ID: "stu-1", RollNo: "7", Name: "Neo Park", Result: &school.Result{ID: "res-1", StudentID: "stu-1", SubjectID: "sub-1", SessionID: "ses-1", FirstSummativeObtained: null.Float64From(38), TotalMarks: 38, Grade: "B", CreatedAt: tstamp}},
		{ID: "stu-2", RollNo: "8", Name: "Awa Diop"},
	}
	f.sheetRows = []school.ClassMarksheetRow{{
		ID: "stu-1", RollNo: "7", Name: "Neo Park",
		TotalMarks: 412, TotalFullMarks: 500, Percentage: 82.4,
		Results: json.RawMessage(`[{"subject":"Mathematics","total":86}]`), Position: 1,
	}}
	f.sheet = school.StudentMarksheet{
		Student: school.MarksheetStudent{ID: "stu-1", RollNo: "7", Name: "Neo Park", Class: null.StringFrom("Class 8"), Section: null.StringFrom("A"), Session: null.StringFrom("2025-2026")},
		Results: json.RawMessage(`[{"subject":"Mathematics","total":86}]`),
		Summary: school.MarksheetSummary{TotalMarks: 412, TotalFullMarks: 500, GrandTotal: 412, GrandFull: 500, Percentage: 82.4, OverallGrade: "A"},
	}
	f.fees = school.StudentFees{
		Student:  json.RawMessage(`{"id":"stu-1","name":"Neo Park"}`),
		Fees:     json.RawMessage(`[{"id":"fee-1","amount":"1500.00","status":"paid"}]`),
		Payments: json.RawMessage(`[{"id":"pay-1","amount":"1500.00"}]`),
		Summary:  school.FeesSummary{TotalGross: "1500.00", TotalDiscount: "0.00", TotalNet: "1500.00", TotalPaid: "1500.00", Balance: "0.00"},
	}
	f.stats = school.DashboardStats{
		Session:           &ses,
		Counts:            school.StatCounts{TotalStudents: 120, SessionStudents: 118, TotalTeachers: 9, TotalClasses: 6},
		Fees:              school.FeeStats{TotalFees: "450000.00", TotalCollected: "382500.00", Pending: "67500.00", CollectionRate: 85},
		RecentPayments:    json.RawMessage(`[{"id":"pay-1","student_name":"Neo Park","amount":"1500.00"}]`),
		ClassDistribution: []school.ClassCount{{ClassName: "Class 8", Count: 40}},
	}
	f.pdf = school.PDF{Content: []byte("%PDF-1.4 fake marksheet"), ContentType: "application/pdf", Filename: "marksheet.pdf"}
	return f
}

func (f *fakeSchoolAPI) setDown(v bool)       { f.mu.Lock(); f.down = v; f.mu.Unlock() }
func (f *fakeSchoolAPI) setRejectAuth(v bool) { f.mu.Lock(); f.rejectAuth = v; f.mu.Unlock() }
func (f *fakeSchoolAPI) setLockedOut(v bool)  { f.mu.Lock(); f.lockedOut = v; f.mu.Unlock() }
func (f *fakeSchoolAPI) setAuthBroken(v bool) { f.mu.Lock(); f.authBroken = v; f.mu.Unlock() }

// gate fails every call while the fake is down.
func (f *fakeSchoolAPI) gate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errors.Wrap(core.ErrUnavailable, "school API unreachable")
	}
	return nil
}

func (f *fakeSchoolAPI) issue(idn identity.Identity) identity.Tokens {
	access := mintAccessToken(idn.Subject(), time.Now().Add(time.Hour))
	f.mu.Lock()
	f.issued[access] = idn
	f.mu.Unlock()
	return identity.Tokens{Access: access, Refresh: "refresh-" + access[:12]}
}

// identity.Authenticator

func (f *fakeSchoolAPI) StaffLogin(ctx context.Context, email, password string) (identity.Tokens, identity.StaffUser, error) {
	if err := f.gate(); err != nil {
		return identity.Tokens{}, identity.StaffUser{}, err
	}
	f.mu.Lock()
	locked := f.lockedOut
	f.mu.Unlock()
	if locked {
		return identity.Tokens{}, identity.StaffUser{}, &core.APIError{
			StatusCode: http.StatusTooManyRequests,
			Detail:     "Account locked. Try again in 10 minutes.",
			RetryAfter: 600,
		}
	}

	var usr identity.StaffUser
	switch email {
	case f.admin.Email:
		usr = f.admin
	case f.teacher.Email:
		usr = f.teacher
	default:
		return identity.Tokens{}, identity.StaffUser{}, identity.ErrBadCredentials
	}
	if password != testPassword {
		return identity.Tokens{}, identity.StaffUser{}, identity.ErrBadCredentials
	}
	return f.issue(identity.Identity{User: &usr}), usr, nil
}

func (f *fakeSchoolAPI) StudentLogin(ctx context.Context, studentID, password string) (identity.Tokens, identity.StudentPrincipal, error) {
	if err := f.gate(); err != nil {
		return identity.Tokens{}, identity.StudentPrincipal{}, err
	}
	if studentID != f.student.StudentID || password != testPassword {
		return identity.Tokens{}, identity.StudentPrincipal{}, identity.ErrBadCredentials
	}
	stu := f.student
	return f.issue(identity.Identity{Student: &stu}), stu, nil
}

func (f *fakeSchoolAPI) Logout(ctx context.Context, tokens identity.Tokens) error {
	if err := f.gate(); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.issued, tokens.Access)
	f.mu.Unlock()
	return nil
}

func (f *fakeSchoolAPI) Refresh(ctx context.Context, refresh string) (identity.Tokens, error) {
	if err := f.gate(); err != nil {
		return identity.Tokens{}, err
	}
	f.mu.Lock()
	reject := f.rejectAuth
	f.mu.Unlock()
	if reject {
		return identity.Tokens{}, &core.APIError{StatusCode: http.StatusUnauthorized, Detail: "Token is invalid or expired"}
	}

	// the real API does not always rotate the refresh token; leave it blank
	access := mintAccessToken("refreshed", time.Now().Add(time.Hour))
	return identity.Tokens{Access: access}, nil
}

func (f *fakeSchoolAPI) CurrentStaff(ctx context.Context, access string) (identity.StaffUser, error) {
	if err := f.gate(); err != nil {
		return identity.StaffUser{}, err
	}
	f.mu.Lock()
	reject := f.rejectAuth
	idn, known := f.issued[access]
	f.mu.Unlock()
	if reject || !known || idn.User == nil {
		return identity.StaffUser{}, &core.APIError{StatusCode: http.StatusUnauthorized, Detail: "Token is invalid or expired"}
	}
	return *idn.User, nil
}

func (f *fakeSchoolAPI) CurrentStudent(ctx context.Context, access string) (identity.StudentPrincipal, error) {
	if err := f.gate(); err != nil {
		return identity.StudentPrincipal{}, err
	}
	f.mu.Lock()
	reject := f.rejectAuth
	idn, known := f.issued[access]
	f.mu.Unlock()
	if reject || !known || idn.Student == nil {
		return identity.StudentPrincipal{}, &core.APIError{StatusCode: http.StatusUnauthorized, Detail: "Token is invalid or expired"}
	}
	return *idn.Student, nil
}

// health.Prober

func (f *fakeSchoolAPI) ProbeAPI(ctx context.Context) (time.Duration, error) {
	if err := f.gate(); err != nil {
		return 0, err
	}
	return 12 * time.Millisecond, nil
}

func (f *fakeSchoolAPI) ProbeAuth(ctx context.Context) error {
	if err := f.gate(); err != nil {
		return err
	}
	f.mu.Lock()
	broken := f.authBroken
	f.mu.Unlock()
	if broken {
		return errors.Wrap(core.ErrUnavailable, "auth canary: 500")
	}
	return nil
}

// school.Client, the slices the portal routes exercise

func (f *fakeSchoolAPI) Sessions(ctx context.Context, token string) ([]school.Session, error) {
	if err := f.gate(); err != nil {
		return nil, err
	}
	return []school.Session{f.activeSession}, nil
}

func (f *fakeSchoolAPI) Classes(ctx context.Context, token string) ([]school.Class, error) {
	if err := f.gate(); err != nil {
		return nil, err
	}
	return f.classes, nil
}

func (f *fakeSchoolAPI) GetClass(ctx context.Context, token, id string) (school.Class, error) {
	if err := f.gate(); err != nil {
		return school.Class{}, err
	}
	return f.classes[0], nil
}

func (f *fakeSchoolAPI) CreateClass(ctx context.Context, token string, data school.NewClass) (school.Class, error) {
	if err := f.gate(); err != nil {
		return school.Class{}, err
	}
	return school.Class{ID: "cls-new", Name: data.Name, Level: data.Level, CreatedAt: f.tstamp}, nil
}

func (f *fakeSchoolAPI) Sections(ctx context.Context, token string) ([]school.Section, error) {
	if err := f.gate(); err != nil {
		return nil, err
	}
	return f.sections, nil
}

func (f *fakeSchoolAPI) CreateSection(ctx context.Context, token string, data school.NewSection) (school.Section, error) {
	if err := f.gate(); err != nil {
		return school.Section{}, err
	}
	return school.Section{ID: "sec-new", Name: data.Name, ClassID: data.ClassID, CreatedAt: f.tstamp}, nil
}

func (f *fakeSchoolAPI) Subjects(ctx context.Context, token string) ([]school.Subject, error) {
	if err := f.gate(); err != nil {
		return nil, err
	}
	return f.subjects, nil
}

func (f *fakeSchoolAPI) CreateSubject(ctx context.Context, token string, data school.NewSubject) (school.Subject, error) {
	if err := f.gate(); err != nil {
		return school.Subject{}, err
	}
	return school.Subject{ID: "sub-new", Name: data.Name, Code: data.Code, Kind: data.Kind, FullMarks: data.FullMarks, CreatedAt: f.tstamp}, nil
}

func (f *fakeSchoolAPI) DeleteSubject(ctx context.Context, token, kind, id string) error {
	return f.gate()
}

func (f *fakeSchoolAPI) CreateSession(ctx context.Context, token string, data school.NewSession) (school.Session, error) {
	if err := f.gate(); err != nil {
		return school.Session{}, err
	}
	return school.Session{ID: "ses-new", Name: data.Name, StartDate: data.StartDate, EndDate: data.EndDate, IsActive: data.IsActive, CreatedAt: f.tstamp}, nil
}

func (f *fakeSchoolAPI) UpdateSession(ctx context.Context, token, id string, data school.NewSession) (school.Session, error) {
	if err := f.gate(); err != nil {
		return school.Session{}, err
	}
	return school.Session{ID: id, Name: data.Name, StartDate: data.StartDate, EndDate: data.EndDate, IsActive: data.IsActive, CreatedAt: f.tstamp}, nil
}

func (f *fakeSchoolAPI) DeleteSession(ctx context.Context, token, id string) error {
	return f.gate()
}

func (f *fakeSchoolAPI) UpdateClass(ctx context.Context, token, id string, data school.NewClass) (school.Class, error) {
	if err := f.gate(); err != nil {
		return school.Class{}, err
	}
	return school.Class{ID: id, Name: data.Name, Level: data.Level, CreatedAt: f.tstamp}, nil
}

func (f *fakeSchoolAPI) DeleteClass(ctx context.Context, token, id string) error {
	return f.gate()
}

func (f *fakeSchoolAPI) UpdateSection(ctx context.Context, token, id string, data school.NewSection) (school.Section, error) {
	if err := f.gate(); err != nil {
		return school.Section{}, err
	}
	return school.Section{ID: id, Name: data.Name, ClassID: data.ClassID, CreatedAt: f.tstamp}, nil
}

func (f *fakeSchoolAPI) DeleteSection(ctx context.Context, token, id string) error {
	return f.gate()
}

func (f *fakeSchoolAPI) UpdateSubject(ctx context.Context, token, id string, data school.NewSubject) (school.Subject, error) {
	if err := f.gate(); err != nil {
		return school.Subject{}, err
	}
	return school.Subject{ID: id, Name: data.Name, Code: data.Code, Kind: data.Kind, FullMarks: data.FullMarks, CreatedAt: f.tstamp}, nil
}

func (f *fakeSchoolAPI) ClassConfig(ctx context.Context, token, classID string) (school.ClassConfig, error) {
	if err := f.gate(); err != nil {
		return school.ClassConfig{}, err
	}
	return school.ClassConfig{
		Class:              f.classes[0],
		Sections:           f.sections,
		SubjectAssignments: json.RawMessage(`[{"subject_id":"sub-1"}]`),
		MarksDistribution:  &school.MarksDistribution{ID: "dist-1", ClassID: classID, FirstSummativeMarks: 40, TotalMarks: 100, CreatedAt: f.tstamp, UpdatedAt: f.tstamp},
	}, nil
}

func (f *fakeSchoolAPI) CreateMarksDistribution(ctx context.Context, token string, data school.MarksDistributionUpsert) (school.MarksDistribution, error) {
	if err := f.gate(); err != nil {
		return school.MarksDistribution{}, err
	}
	return school.MarksDistribution{ID: "dist-new", ClassID: data.ClassID, FirstSummativeMarks: data.FirstSummativeMarks, TotalMarks: data.FirstSummativeMarks + data.FirstFormativeMarks, CreatedAt: f.tstamp, UpdatedAt: f.tstamp}, nil
}

func (f *fakeSchoolAPI) UpdateMarksDistribution(ctx context.Context, token, id string, data school.MarksDistributionUpsert) (school.MarksDistribution, error) {
	if err := f.gate(); err != nil {
		return school.MarksDistribution{}, err
	}
	return school.MarksDistribution{ID: id, ClassID: data.ClassID, FirstSummativeMarks: data.FirstSummativeMarks, CreatedAt: f.tstamp, UpdatedAt: f.tstamp}, nil
}

func (f *fakeSchoolAPI) Students(ctx context.Context, token string, filter school.StudentFilter) ([]school.Student, error) {
	if err := f.gate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.lastStudentFilter = filter
	f.mu.Unlock()
	return f.students, nil
}

func (f *fakeSchoolAPI) GetStudent(ctx context.Context, token, id string) (school.Student, error) {
	if err := f.gate(); err != nil {
		return school.Student{}, err
	}
	for _, stu := range f.students {
		if stu.ID == id {
			return stu, nil
		}
	}
	return school.Student{}, &core.APIError{StatusCode: http.StatusNotFound, Detail: "Not found."}
}

func (f *fakeSchoolAPI) CreateStudent(ctx context.Context, token string, data school.NewStudent) (school.Student, error) {
	if err := f.gate(); err != nil {
		return school.Student{}, err
	}
	return school.Student{
		ID: "stu-new", StudentID: "STU1099", RollNo: data.RollNo, Name: data.Name,
		ClassID: data.ClassID, SectionID: data.SectionID, SessionID: data.SessionID,
		IsActive: true, CreatedAt: f.tstamp,
	}, nil
}

func (f *fakeSchoolAPI) CreateStudentsBulk(ctx context.Context, token string, data school.BulkStudents) ([]school.Student, error) {
	if err := f.gate(); err != nil {
		return nil, err
	}
	out := make([]school.Student, 0, len(data.Students))
	for i, ns := range data.Students {
		out = append(out, school.Student{
			ID: "stu-bulk-" + strconv.Itoa(i), StudentID: "STU12" + strconv.Itoa(i), RollNo: ns.RollNo, Name: ns.Name,
			ClassID: ns.ClassID, SectionID: ns.SectionID, SessionID: ns.SessionID,
			IsActive: true, CreatedAt: f.tstamp,
		})
	}
	return out, nil
}

func (f *fakeSchoolAPI) UpdateStudent(ctx context.Context, token, id string, data school.UpdateStudent) (school.Student, error) {
	if err := f.gate(); err != nil {
		return school.Student{}, err
	}
	return school.Student{
		ID: id, StudentID: "STU1001", RollNo: data.RollNo, Name: data.Name,
		ClassID: data.ClassID, SectionID: data.SectionID, SessionID: data.SessionID,
		IsActive: true, CreatedAt: f.tstamp,
	}, nil
}

func (f *fakeSchoolAPI) DeleteStudent(ctx context.Context, token, id string) error {
	return f.gate()
}

func (f *fakeSchoolAPI) MyProfile(ctx context.Context, token string) (school.Student, error) {
	if err := f.gate(); err != nil {
		return school.Student{}, err
	}
	return f.profile, nil
}

func (f *fakeSchoolAPI) Teachers(ctx context.Context, token string) ([]school.Teacher, error) {
	if err := f.gate(); err != nil {
		return nil, err
	}
	return f.teachers, nil
}

func (f *fakeSchoolAPI) CreateTeacher(ctx context.Context, token string, data school.NewTeacher) (school.Teacher, error) {
	if err := f.gate(); err != nil {
		return school.Teacher{}, err
	}
	return school.Teacher{ID: "tch-new", Email: data.Email, Name: data.Name, CreatedAt: f.tstamp}, nil
}

func (f *fakeSchoolAPI) GetTeacher(ctx context.Context, token, id string) (school.Teacher, error) {
	if err := f.gate(); err != nil {
		return school.Teacher{}, err
	}
	for _, t := range f.teachers {
		if t.ID == id {
			return t, nil
		}
	}
	return school.Teacher{}, &core.APIError{StatusCode: http.StatusNotFound, Detail: "Not found."}
}

func (f *fakeSchoolAPI) UpdateTeacher(ctx context.Context, token, id string, data school.UpdateTeacher) (school.Teacher, error) {
	if err := f.gate(); err != nil {
		return school.Teacher{}, err
	}
	return school.Teacher{ID: id, Email: data.Email, Name: data.Name, CreatedAt: f.tstamp}, nil
}

func (f *fakeSchoolAPI) DeleteTeacher(ctx context.Context, token, id string) error {
	return f.gate()
}

func (f *fakeSchoolAPI) ResetTeacherPassword(ctx context.Context, token, id string) (string, error) {
	if err := f.gate(); err != nil {
		return "", err
	}
	return "Password reset email sent to teacher@darasa.test", nil
}

func (f *fakeSchoolAPI) Assignments(ctx context.Context, token string, filter school.AssignmentFilter) ([]school.Assignment, error) {
	if err := f.gate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.lastAssignmentFilter = filter
	f.mu.Unlock()
	return f.assignments, nil
}

func (f *fakeSchoolAPI) CreateAssignment(ctx context.Context, token string, data school.NewAssignment) (school.Assignment, error) {
	if err := f.gate(); err != nil {
		return school.Assignment{}, err
	}
	return school.Assignment{
		ID: "asg-new", TeacherID: data.TeacherID, ClassID: data.ClassID, SectionID: data.SectionID,
		SubjectID: data.SubjectID, SessionID: data.SessionID, IsActive: true, CreatedAt: f.tstamp,
	}, nil
}

func (f *fakeSchoolAPI) DeleteAssignment(ctx context.Context, token, id string) error {
	return f.gate()
}

func (f *fakeSchoolAPI) MyAssignments(ctx context.Context, token string) (school.MyAssignments, error) {
	if err := f.gate(); err != nil {
		return school.MyAssignments{}, err
	}
	return school.MyAssignments{Teacher: f.teachers[0], Assignments: f.assignments, Session: &f.activeSession}, nil
}

func (f *fakeSchoolAPI) PendingTasks(ctx context.Context, token string) (school.PendingTasks, error) {
	if err := f.gate(); err != nil {
		return school.PendingTasks{}, err
	}
	return school.PendingTasks{Teacher: f.teachers[0], Tasks: f.tasks, Session: &f.activeSession}, nil
}

func (f *fakeSchoolAPI) ClassResults(ctx context.Context, token string, filter school.MarksFilter) ([]school.RosterRow, error) {
	if err := f.gate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.lastMarksFilter = filter
	f.mu.Unlock()
	return f.roster, nil
}

func (f *fakeSchoolAPI) UpsertMark(ctx context.Context, token string, data school.MarkUpsert) (school.Result, error) {
	if err := f.gate(); err != nil {
		return school.Result{}, err
	}
	f.mu.Lock()
	forced := f.markErr
	f.mu.Unlock()
	if forced != nil {
		return school.Result{}, forced
	}
	return school.Result{
		ID: "res-new", StudentID: data.StudentID, SubjectID: data.SubjectID, SessionID: data.SessionID,
		FirstSummativeObtained: data.FirstSummativeObtained, TotalMarks: data.FirstSummativeObtained.Float64,
		Grade: "B", CreatedAt: f.tstamp,
	}, nil
}

func (f *fakeSchoolAPI) UpsertMarksBulk(ctx context.Context, token string, data school.BulkMarkUpsert) ([]school.Result, error) {
	if err := f.gate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	forced := f.markErr
	f.mu.Unlock()
	if forced != nil {
		return nil, forced
	}
	out := make([]school.Result, 0, len(data.Results))
	for i, mu := range data.Results {
		out = append(out, school.Result{ID: "res-bulk-" + strconv.Itoa(i), StudentID: mu.StudentID, SubjectID: mu.SubjectID, SessionID: mu.SessionID, CreatedAt: f.tstamp})
	}
	return out, nil
}

func (f *fakeSchoolAPI) StudentMarksheet(ctx context.Context, token, studentID, sessionID string) (school.StudentMarksheet, error) {
	if err := f.gate(); err != nil {
		return school.StudentMarksheet{}, err
	}
	f.mu.Lock()
	f.lastSheetStudentID = studentID
	f.mu.Unlock()
	return f.sheet, nil
}

func (f *fakeSchoolAPI) ClassMarksheet(ctx context.Context, token string, filter school.MarksheetFilter) ([]school.ClassMarksheetRow, error) {
	if err := f.gate(); err != nil {
		return nil, err
	}
	return f.sheetRows, nil
}

func (f *fakeSchoolAPI) StudentMarksheetPDF(ctx context.Context, token, studentID, sessionID string) (school.PDF, error) {
	if err := f.gate(); err != nil {
		return school.PDF{}, err
	}
	f.mu.Lock()
	f.lastSheetStudentID = studentID
	f.mu.Unlock()
	return f.pdf, nil
}

func (f *fakeSchoolAPI) ClassMarksheetPDF(ctx context.Context, token string, filter school.MarksheetFilter) (school.PDF, error) {
	if err := f.gate(); err != nil {
		return school.PDF{}, err
	}
	return f.pdf, nil
}

func (f *fakeSchoolAPI) StudentFees(ctx context.Context, token string) (school.StudentFees, error) {
	if err := f.gate(); err != nil {
		return school.StudentFees{}, err
	}
	return f.fees, nil
}

func (f *fakeSchoolAPI) DashboardStats(ctx context.Context, token string) (school.DashboardStats, error) {
	if err := f.gate(); err != nil {
		return school.DashboardStats{}, err
	}
	return f.stats, nil
}
