package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/diogopelaes/cemep-digital/internal/models"
	appErrors "github.com/diogopelaes/cemep-digital/pkg/errors"
)

type mockTeacherSectionRepo struct {
	assignments map[string]models.TeacherSectionAssignment
	existing    bool
	created     *models.TeacherSectionAssignment
	deleted     []string
}

func (m *mockTeacherSectionRepo) ListBySection(ctx context.Context, sectionID string) ([]models.TeacherSectionDetail, error) {
	return nil, nil
}

func (m *mockTeacherSectionRepo) ListByStaff(ctx context.Context, staffID string) ([]models.TeacherSectionDetail, error) {
	return nil, nil
}

func (m *mockTeacherSectionRepo) FindByID(ctx context.Context, id string) (*models.TeacherSectionAssignment, error) {
	if assignment, ok := m.assignments[id]; ok {
		return &assignment, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherSectionRepo) Exists(ctx context.Context, staffID, subjectSectionID string) (bool, error) {
	return m.existing, nil
}

func (m *mockTeacherSectionRepo) Create(ctx context.Context, assignment *models.TeacherSectionAssignment) error {
	if m.assignments == nil {
		m.assignments = make(map[string]models.TeacherSectionAssignment)
	}
	if assignment.ID == "" {
		assignment.ID = "new-teacher-section"
	}
	m.assignments[assignment.ID] = *assignment
	m.created = assignment
	return nil
}

func (m *mockTeacherSectionRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.assignments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.assignments, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type stubSubjectSectionReader struct{}

func (stubSubjectSectionReader) FindByID(ctx context.Context, id string) (*models.SubjectSectionAssignment, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.SubjectSectionAssignment{ID: id, SectionID: "9a", SubjectID: "math", SchoolYear: "2026"}, nil
}

type stubStaffReader struct {
	inactive bool
}

func (s stubStaffReader) FindByID(ctx context.Context, id string) (*models.StaffMember, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.StaffMember{ID: id, FullName: "Ada Sousa", Active: !s.inactive}, nil
}

func TestTeacherSectionCreateNotifiesBothOwners(t *testing.T) {
	repo := &mockTeacherSectionRepo{}
	notifier := &mockNotifier{}
	svc := NewTeacherSectionService(repo, stubSubjectSectionReader{}, stubStaffReader{}, notifier, validator.New(), zap.NewNop())

	assignment, err := svc.Create(context.Background(), CreateTeacherSectionRequest{StaffID: "t1", SubjectSectionID: "ss1"}, "u1")
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	require.NotNil(t, assignment.CreatedBy)
	require.Len(t, notifier.changes, 1)
	change := notifier.changes[0]
	assert.Equal(t, models.ChangeTeacherSection, change.Kind)
	assert.Equal(t, "9a", change.SectionID)
	assert.Equal(t, "t1", change.StaffID)
}

func TestTeacherSectionCreateInactiveStaff(t *testing.T) {
	notifier := &mockNotifier{}
	svc := NewTeacherSectionService(&mockTeacherSectionRepo{}, stubSubjectSectionReader{}, stubStaffReader{inactive: true}, notifier, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateTeacherSectionRequest{StaffID: "t1", SubjectSectionID: "ss1"}, "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, notifier.changes)
}

func TestTeacherSectionCreateDuplicateConflicts(t *testing.T) {
	notifier := &mockNotifier{}
	svc := NewTeacherSectionService(&mockTeacherSectionRepo{existing: true}, stubSubjectSectionReader{}, stubStaffReader{}, notifier, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateTeacherSectionRequest{StaffID: "t1", SubjectSectionID: "ss1"}, "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, notifier.changes)
}

func TestTeacherSectionCreateUnknownSubjectSection(t *testing.T) {
	svc := NewTeacherSectionService(&mockTeacherSectionRepo{}, stubSubjectSectionReader{}, stubStaffReader{}, &mockNotifier{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateTeacherSectionRequest{StaffID: "t1", SubjectSectionID: "missing"}, "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTeacherSectionDeleteNotifiesBothOwners(t *testing.T) {
	repo := &mockTeacherSectionRepo{assignments: map[string]models.TeacherSectionAssignment{
		"ts1": {ID: "ts1", StaffID: "t1", SubjectSectionID: "ss1"},
	}}
	notifier := &mockNotifier{}
	svc := NewTeacherSectionService(repo, stubSubjectSectionReader{}, stubStaffReader{}, notifier, validator.New(), zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "ts1"))
	assert.Contains(t, repo.deleted, "ts1")
	require.Len(t, notifier.changes, 1)
	change := notifier.changes[0]
	assert.Equal(t, models.ChangeTeacherSection, change.Kind)
	assert.Equal(t, "9a", change.SectionID)
	assert.Equal(t, "t1", change.StaffID)
}
