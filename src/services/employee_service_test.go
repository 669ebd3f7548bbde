package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/khabaroff/staff-cards/src/authz"
	"github.com/khabaroff/staff-cards/src/models"
	"github.com/khabaroff/staff-cards/src/repositories/mock"
	"github.com/khabaroff/staff-cards/src/validators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func actorWith(role models.Role, status models.Status) *models.AdminUser {
	return &models.AdminUser{ID: uuid.New(), Email: string(role) + "@example.com", Role: role, Status: status}
}

func newEmployeeFixture() (*EmployeeService, *mock.EmployeeRepository, *mock.LinkRepository) {
	links := mock.NewLinkRepository()
	employees := mock.NewEmployeeRepository(links)
	return NewEmployeeService(employees, links), employees, links
}

func employeeRequest() *validators.EmployeeRequest {
	return &validators.EmployeeRequest{
		FirstName: " Ada ",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Website:   "ada.dev",
	}
}

func TestEmployeeCreate(t *testing.T) {
	svc, _, _ := newEmployeeFixture()

	e, err := svc.Create(context.Background(), actorWith(models.RoleOperator, models.StatusActive), employeeRequest())
	require.NoError(t, err)
	assert.Equal(t, "Ada", e.FirstName)
	assert.Equal(t, "ada-lovelace", e.Slug)
	assert.Equal(t, "https://ada.dev", e.Website)
	assert.True(t, e.IsActive)
}

func TestEmployeeCreate_Permissions(t *testing.T) {
	svc, repo, _ := newEmployeeFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, actorWith(models.RoleViewer, models.StatusActive), employeeRequest())
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	_, err = svc.Create(ctx, actorWith(models.RoleAdmin, models.StatusPending), employeeRequest())
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	_, err = svc.Create(ctx, actorWith(models.RoleOverwatch, models.StatusSuspended), employeeRequest())
	assert.ErrorIs(t, err, authz.ErrAccountBlocked)

	assert.Empty(t, repo.Calls["Create"])
}

func TestEmployeeCreate_Validation(t *testing.T) {
	svc, _, _ := newEmployeeFixture()
	req := employeeRequest()
	req.Email = "nope"

	_, err := svc.Create(context.Background(), actorWith(models.RoleAdmin, models.StatusActive), req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
}

func TestEmployeeUpdate_StatusToggleNeedsAdmin(t *testing.T) {
	svc, _, _ := newEmployeeFixture()
	ctx := context.Background()
	e, err := svc.Create(ctx, actorWith(models.RoleAdmin, models.StatusActive), employeeRequest())
	require.NoError(t, err)

	req := employeeRequest()
	req.LastName = "Byron"
	hidden := false
	req.IsActive = &hidden
	_, err = svc.Update(ctx, actorWith(models.RoleOperator, models.StatusActive), e.ID, req)
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	req.IsActive = nil
	updated, err := svc.Update(ctx, actorWith(models.RoleOperator, models.StatusActive), e.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "ada-byron", updated.Slug)
	assert.True(t, updated.IsActive)
}

func TestEmployeeDelete_OverwatchOnly(t *testing.T) {
	svc, _, _ := newEmployeeFixture()
	ctx := context.Background()
	e, err := svc.Create(ctx, actorWith(models.RoleAdmin, models.StatusActive), employeeRequest())
	require.NoError(t, err)

	err = svc.Delete(ctx, actorWith(models.RoleAdmin, models.StatusActive), e.ID)
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	require.NoError(t, svc.Delete(ctx, actorWith(models.RoleOverwatch, models.StatusActive), e.ID))
	assert.ErrorIs(t, svc.Delete(ctx, actorWith(models.RoleOverwatch, models.StatusActive), e.ID), ErrNotFound)
}

func TestPublicProfile_OnlyActiveWithActiveLinks(t *testing.T) {
	svc, _, _ := newEmployeeFixture()
	ctx := context.Background()
	admin := actorWith(models.RoleAdmin, models.StatusActive)

	e, err := svc.Create(ctx, admin, employeeRequest())
	require.NoError(t, err)

	hidden := false
	_, err = svc.CreateLink(ctx, admin, e.ID, &validators.LinkRequest{Label: "GitHub", URL: "github.com/ada", SortOrder: 2})
	require.NoError(t, err)
	_, err = svc.CreateLink(ctx, admin, e.ID, &validators.LinkRequest{Label: "Blog", URL: "https://ada.dev/blog", SortOrder: 1})
	require.NoError(t, err)
	_, err = svc.CreateLink(ctx, admin, e.ID, &validators.LinkRequest{Label: "Old", URL: "https://old.example", IsActive: &hidden})
	require.NoError(t, err)

	profile, err := svc.PublicProfile(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, profile.Links, 2)
	assert.Equal(t, "Blog", profile.Links[0].Label)
	assert.Equal(t, "https://github.com/ada", profile.Links[1].URL)

	require.NoError(t, svc.SetActive(ctx, admin, e.ID, false))
	_, err = svc.PublicProfile(ctx, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLinks_MustBelongToEmployee(t *testing.T) {
	svc, _, _ := newEmployeeFixture()
	ctx := context.Background()
	op := actorWith(models.RoleOperator, models.StatusActive)

	a, err := svc.Create(ctx, op, employeeRequest())
	require.NoError(t, err)
	b, err := svc.Create(ctx, op, employeeRequest())
	require.NoError(t, err)

	link, err := svc.CreateLink(ctx, op, a.ID, &validators.LinkRequest{Label: "Site", URL: "https://a.example"})
	require.NoError(t, err)

	_, err = svc.UpdateLink(ctx, op, b.ID, link.ID, &validators.LinkRequest{Label: "X", URL: "https://x.example"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteLink(ctx, op, b.ID, link.ID), ErrNotFound)

	_, err = svc.CreateLink(ctx, op, a.ID, &validators.LinkRequest{Label: "Bad", URL: "javascript:alert(1)"})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.DeleteLink(ctx, op, a.ID, link.ID))
	links, err := svc.ListLinks(ctx, op, a.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
}
