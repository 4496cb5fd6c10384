package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/isdelr/dr-oncall-be/internal/models"
	"github.com/isdelr/dr-oncall-be/internal/services"
	"github.com/stretchr/testify/require"
)

type fakeUserService struct {
	registerErr error
	authUser    models.User
	authErr     error
}

func (f *fakeUserService) Register(_ context.Context, username, email, _ string) (models.User, error) {
	if f.registerErr != nil {
		return models.User{}, f.registerErr
	}
	return models.User{ID: 1, Username: username, Email: email}, nil
}

func (f *fakeUserService) Authenticate(_ context.Context, _, _ string) (models.User, error) {
	return f.authUser, f.authErr
}

type fakePatientService struct {
	patients     map[int64]models.Patient
	nextID       int64
	err          error
	lastType     string
	lastStatus   *string
	lastLimit    int
	deletedIDs   []int64
	statusCounts map[string]int
}

func newFakePatientService() *fakePatientService {
	return &fakePatientService{patients: map[int64]models.Patient{}, nextID: 1, statusCounts: map[string]int{}}
}

func (f *fakePatientService) ListPatients(context.Context) ([]models.Patient, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Patient{}
	for _, p := range f.patients {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePatientService) GetPatient(_ context.Context, id int64) (models.Patient, error) {
	if f.err != nil {
		return models.Patient{}, f.err
	}
	p, ok := f.patients[id]
	if !ok {
		return models.Patient{}, services.ErrNotFound
	}
	return p, nil
}

func (f *fakePatientService) AddPatient(_ context.Context, p models.Patient) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if p.FirstName == "" {
		return 0, &services.ValidationError{Fields: []string{"first_name"}}
	}
	p.ID = f.nextID
	f.nextID++
	f.patients[p.ID] = p
	return p.ID, nil
}

func (f *fakePatientService) DeletePatient(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.deletedIDs = append(f.deletedIDs, id)
	delete(f.patients, id)
	return nil
}

func (f *fakePatientService) CountPatients(_ context.Context, patientType string) (int, error) {
	f.lastType = patientType
	return len(f.patients), f.err
}

func (f *fakePatientService) CountByStatus(_ context.Context, status *string) (int, error) {
	f.lastStatus = status
	if status == nil {
		return 0, f.err
	}
	return f.statusCounts[*status], f.err
}

func (f *fakePatientService) RecentPatients(ctx context.Context, limit int) ([]models.Patient, error) {
	f.lastLimit = limit
	if limit <= 0 {
		return nil, &services.ValidationError{Fields: []string{"limit"}}
	}
	return f.ListPatients(ctx)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// followCookies copies the cookies set on rec onto req.
func followCookies(req *http.Request, rec *httptest.ResponseRecorder) *http.Request {
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}
