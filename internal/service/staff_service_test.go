package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogopelaes/cemep-digital/internal/models"
	appErrors "github.com/diogopelaes/cemep-digital/pkg/errors"
)

type mockStaffRepo struct {
	members map[string]*models.StaffMember
	created []*models.StaffMember
}

func (m *mockStaffRepo) List(ctx context.Context, filter models.StaffFilter) ([]models.StaffMember, int, error) {
	var out []models.StaffMember
	for _, s := range m.members {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockStaffRepo) FindByID(ctx context.Context, id string) (*models.StaffMember, error) {
	s, ok := m.members[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

func (m *mockStaffRepo) Create(ctx context.Context, staff *models.StaffMember) error {
	staff.ID = "t-new"
	m.created = append(m.created, staff)
	return nil
}

func (m *mockStaffRepo) Update(ctx context.Context, staff *models.StaffMember) error {
	m.members[staff.ID] = staff
	return nil
}

func TestStaffServiceCreateNormalizesEmail(t *testing.T) {
	repo := &mockStaffRepo{members: map[string]*models.StaffMember{}}
	svc := NewStaffService(repo, nil, nil)

	member, err := svc.Create(context.Background(), CreateStaffRequest{
		FullName: " Ada Sousa ",
		Email:    "Ada.Sousa@Example.ORG",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada Sousa", member.FullName)
	assert.Equal(t, "ada.sousa@example.org", member.Email)
	assert.True(t, member.Active)
}

func TestStaffServiceCreateRejectsBadEmail(t *testing.T) {
	svc := NewStaffService(&mockStaffRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateStaffRequest{
		FullName: "Ada Sousa",
		Email:    "not-an-email",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStaffServiceUpdateLinksUser(t *testing.T) {
	repo := &mockStaffRepo{members: map[string]*models.StaffMember{
		"t1": {ID: "t1", FullName: "Ada Sousa", Email: "ada@example.org", Active: true},
	}}
	svc := NewStaffService(repo, nil, nil)

	userID := "u1"
	member, err := svc.Update(context.Background(), "t1", UpdateStaffRequest{
		FullName: "Ada Sousa",
		Email:    "ada@example.org",
		UserID:   &userID,
	})
	require.NoError(t, err)

	require.NotNil(t, member.UserID)
	assert.Equal(t, "u1", *member.UserID)
	assert.Equal(t, "u1", member.OwnerUserID())
}

func TestStaffServiceUpdateUnknown(t *testing.T) {
	svc := NewStaffService(&mockStaffRepo{members: map[string]*models.StaffMember{}}, nil, nil)

	_, err := svc.Update(context.Background(), "missing", UpdateStaffRequest{
		FullName: "Ada Sousa",
		Email:    "ada@example.org",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
