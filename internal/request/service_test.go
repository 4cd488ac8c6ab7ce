package request_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leajer/leajer/internal/request"
	"github.com/leajer/leajer/internal/shared"
)

type fakeRepo struct {
	records map[string]request.RetailerRequest

	listCalls   int
	getCalls    int
	createCalls int
	updateCalls int
	deleteCalls int

	lastUpdateID     string
	lastUpdateStatus request.Status
	lastDeleteID     string
	lastBearer       string

	failWith error

	// blockCreate, when set, makes Create wait until released.
	blockCreate chan struct{}
	started     chan struct{}
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]request.RetailerRequest)}
}

func (f *fakeRepo) List(ctx context.Context, bearer string) ([]request.RetailerRequest, error) {
	f.listCalls++
	f.lastBearer = bearer
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]request.RetailerRequest, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRepo) Get(ctx context.Context, bearer, id string) (request.RetailerRequest, error) {
	f.getCalls++
	if f.failWith != nil {
		return request.RetailerRequest{}, f.failWith
	}
	r, ok := f.records[id]
	if !ok {
		return request.RetailerRequest{}, shared.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) Create(ctx context.Context, bearer string, body request.CreateBody) (request.RetailerRequest, error) {
	f.createCalls++
	f.lastBearer = bearer
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.blockCreate != nil {
		<-f.blockCreate
	}
	if f.failWith != nil {
		return request.RetailerRequest{}, f.failWith
	}
	now := time.Now().UTC().Truncate(time.Second)
	created := request.RetailerRequest{
		ID:           "req-1",
		RetailerName: body.RetailerName,
		ProductName:  body.ProductName,
		Description:  body.Description,
		UniqueID:     body.UniqueID,
		Status:       request.StatusRequested,
		AttendedBy:   &request.Actor{ID: "u-1", Name: body.AttendedBy, Role: "owner"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.records[created.ID] = created
	return created, nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, bearer, id string, status request.Status) (request.RetailerRequest, error) {
	f.updateCalls++
	f.lastUpdateID = id
	f.lastUpdateStatus = status
	if f.failWith != nil {
		return request.RetailerRequest{}, f.failWith
	}
	r, ok := f.records[id]
	if !ok {
		return request.RetailerRequest{}, shared.ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = r.UpdatedAt.Add(time.Second)
	f.records[id] = r
	return r, nil
}

func (f *fakeRepo) Delete(ctx context.Context, bearer, id string) error {
	f.deleteCalls++
	f.lastDeleteID = id
	if f.failWith != nil {
		return f.failWith
	}
	delete(f.records, id)
	return nil
}

func ownerSession() *shared.Session {
	sess := &shared.Session{ID: "sess-owner"}
	sess.SetIdentity(shared.Identity{UserID: "u-1", Name: "Owner Name", Email: "owner@leajer.test", Role: "owner"}, "owner-token", time.Now())
	return sess
}

func salespersonSession() *shared.Session {
	sess := &shared.Session{ID: "sess-sales"}
	sess.SetIdentity(shared.Identity{UserID: "u-2", Name: "Sales Name", Email: "sales@leajer.test", Role: "salesperson"}, "sales-token", time.Now())
	return sess
}

func TestCreateByOwner(t *testing.T) {
	repo := newFakeRepo()
	svc := request.NewService(repo, nil)

	created, err := svc.Create(context.Background(), ownerSession(), request.CreateInput{
		RetailerName: "ACME",
		ProductName:  "Widget",
		Description:  "d",
	})
	require.NoError(t, err)
	require.Equal(t, 1, repo.createCalls)
	require.Equal(t, "req-1", created.ID)
	require.Equal(t, request.StatusRequested, created.Status)
	require.Equal(t, created.CreatedAt, created.UpdatedAt)
	require.NotNil(t, created.AttendedBy)
	require.Equal(t, "Owner Name", created.AttendedBy.Name)
	require.Equal(t, "owner-token", repo.lastBearer)
}

func TestCreateWithoutSession(t *testing.T) {
	repo := newFakeRepo()
	svc := request.NewService(repo, nil)

	_, err := svc.Create(context.Background(), nil, request.CreateInput{
		RetailerName: "ACME", ProductName: "Widget", Description: "d",
	})
	require.ErrorIs(t, err, shared.ErrPermissionDenied)
	require.Zero(t, repo.createCalls)

	_, err = svc.Create(context.Background(), &shared.Session{ID: "anon"}, request.CreateInput{
		RetailerName: "ACME", ProductName: "Widget", Description: "d",
	})
	require.ErrorIs(t, err, shared.ErrPermissionDenied)
	require.Zero(t, repo.createCalls)
}

func TestCreateValidation(t *testing.T) {
	repo := newFakeRepo()
	svc := request.NewService(repo, nil)

	_, err := svc.Create(context.Background(), ownerSession(), request.CreateInput{
		RetailerName: "", ProductName: "Widget", Description: "d",
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Zero(t, repo.createCalls)
}

func TestCreateRepositoryFailureLeavesLocalStateIntact(t *testing.T) {
	repo := newFakeRepo()
	repo.failWith = shared.ErrPersistence
	svc := request.NewService(repo, nil)

	local := []request.RetailerRequest{
		{ID: "req-9", RetailerName: "Beta"},
	}
	before := append([]request.RetailerRequest(nil), local...)

	_, err := svc.Create(context.Background(), ownerSession(), request.CreateInput{
		RetailerName: "ACME", ProductName: "Widget", Description: "d",
	})
	require.ErrorIs(t, err, shared.ErrPersistence)
	require.Equal(t, before, local)
	require.Empty(t, repo.records)
}

func TestUpdateStatusInvalidValue(t *testing.T) {
	repo := newFakeRepo()
	svc := request.NewService(repo, nil)

	_, err := svc.UpdateStatus(context.Background(), ownerSession(), "req-1", request.Status("shipped"))
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
	require.Zero(t, repo.updateCalls)
}

func TestUpdateStatusRefreshesUpdatedAt(t *testing.T) {
	repo := newFakeRepo()
	svc := request.NewService(repo, nil)

	owner := ownerSession()
	created, err := svc.Create(context.Background(), owner, request.CreateInput{
		RetailerName: "ACME", ProductName: "Widget", Description: "d",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), owner, created.ID, request.StatusPaid)
	require.NoError(t, err)
	require.Equal(t, 1, repo.updateCalls)
	require.Equal(t, created.ID, repo.lastUpdateID)
	require.Equal(t, request.StatusPaid, repo.lastUpdateStatus)
	require.Equal(t, request.StatusPaid, updated.Status)
	require.True(t, updated.UpdatedAt.After(created.UpdatedAt))
}

// Transitions are deliberately unrestricted among the three lifecycle
// values, backward moves included.
func TestUpdateStatusAllowsBackwardTransition(t *testing.T) {
	repo := newFakeRepo()
	svc := request.NewService(repo, nil)

	owner := ownerSession()
	created, err := svc.Create(context.Background(), owner, request.CreateInput{
		RetailerName: "ACME", ProductName: "Widget", Description: "d",
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), owner, created.ID, request.StatusPaid)
	require.NoError(t, err)
	back, err := svc.UpdateStatus(context.Background(), owner, created.ID, request.StatusRequested)
	require.NoError(t, err)
	require.Equal(t, request.StatusRequested, back.Status)
}

func TestUpdateStatusSameValueStillSucceeds(t *testing.T) {
	repo := newFakeRepo()
	svc := request.NewService(repo, nil)

	owner := ownerSession()
	created, err := svc.Create(context.Background(), owner, request.CreateInput{
		RetailerName: "ACME", ProductName: "Widget", Description: "d",
	})
	require.NoError(t, err)

	same, err := svc.UpdateStatus(context.Background(), owner, created.ID, request.StatusRequested)
	require.NoError(t, err)
	require.Equal(t, 1, repo.updateCalls)
	require.True(t, same.UpdatedAt.After(created.UpdatedAt))
}

func TestDeletePermissions(t *testing.T) {
	repo := newFakeRepo()
	svc := request.NewService(repo, nil)

	owner := ownerSession()
	created, err := svc.Create(context.Background(), owner, request.CreateInput{
		RetailerName: "ACME", ProductName: "Widget", Description: "d",
	})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), salespersonSession(), created.ID)
	require.ErrorIs(t, err, shared.ErrPermissionDenied)
	require.Zero(t, repo.deleteCalls)

	err = svc.Delete(context.Background(), owner, created.ID)
	require.NoError(t, err)
	require.Equal(t, 1, repo.deleteCalls)
	require.Equal(t, created.ID, repo.lastDeleteID)
}

func TestSalespersonCanCreateAndEdit(t *testing.T) {
	repo := newFakeRepo()
	svc := request.NewService(repo, nil)

	sales := salespersonSession()
	created, err := svc.Create(context.Background(), sales, request.CreateInput{
		RetailerName: "ACME", ProductName: "Widget", Description: "d",
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), sales, created.ID, request.StatusReturned)
	require.NoError(t, err)
}

func TestMutationSerializedPerSession(t *testing.T) {
	repo := newFakeRepo()
	repo.blockCreate = make(chan struct{})
	repo.started = make(chan struct{})
	svc := request.NewService(repo, nil)

	owner := ownerSession()
	done := make(chan error, 1)
	go func() {
		_, err := svc.Create(context.Background(), owner, request.CreateInput{
			RetailerName: "ACME", ProductName: "Widget", Description: "d",
		})
		done <- err
	}()

	<-repo.started
	_, err := svc.UpdateStatus(context.Background(), owner, "req-1", request.StatusPaid)
	require.ErrorIs(t, err, shared.ErrMutationInFlight)
	require.Zero(t, repo.updateCalls)

	close(repo.blockCreate)
	require.NoError(t, <-done)

	// Slot released after the first call completed.
	_, err = svc.UpdateStatus(context.Background(), owner, "req-1", request.StatusPaid)
	require.NoError(t, err)
}

func TestListRequiresViewPermission(t *testing.T) {
	repo := newFakeRepo()
	svc := request.NewService(repo, nil)

	_, err := svc.List(context.Background(), &shared.Session{ID: "anon"})
	require.ErrorIs(t, err, shared.ErrPermissionDenied)
	require.Zero(t, repo.listCalls)

	_, err = svc.List(context.Background(), salespersonSession())
	require.NoError(t, err)
	require.Equal(t, 1, repo.listCalls)
}

func TestGetUnknownID(t *testing.T) {
	repo := newFakeRepo()
	svc := request.NewService(repo, nil)

	_, err := svc.Get(context.Background(), ownerSession(), "missing")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestExportPermissions(t *testing.T) {
	repo := newFakeRepo()
	svc := request.NewService(repo, nil)

	var sink discardWriter
	err := svc.Export(context.Background(), salespersonSession(), &sink)
	require.ErrorIs(t, err, shared.ErrPermissionDenied)
	require.Zero(t, repo.listCalls)

	err = svc.Export(context.Background(), ownerSession(), &sink)
	require.NoError(t, err)
	require.Equal(t, 1, repo.listCalls)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestDeleteRepositoryFailure(t *testing.T) {
	repo := newFakeRepo()
	svc := request.NewService(repo, nil)

	owner := ownerSession()
	created, err := svc.Create(context.Background(), owner, request.CreateInput{
		RetailerName: "ACME", ProductName: "Widget", Description: "d",
	})
	require.NoError(t, err)

	repo.failWith = shared.ErrPersistence
	err = svc.Delete(context.Background(), owner, created.ID)
	require.ErrorIs(t, err, shared.ErrPersistence)
	// Record still present; the caller must not drop it from any cache.
	repo.failWith = nil
	got, err := svc.Get(context.Background(), owner, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
}
