package docsystem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/domain"
	models "portal/internal/domain/models/docsystem"
	docsysSvc "portal/internal/domain/services/docsystem"
)

func TestVisibility_Ownership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	contracts := f.mkdir(t, f.root(t, f.legal), "Contracts")

	other := f.store.SeedEnterprise("Globex")
	otherService := f.store.SeedService(other.ID, "Legal")

	tests := []struct {
		name      string
		principal *models.Principal
		want      bool
	}{
		{"internal caller", nil, true},
		{"own service", f.employee(f.legal), true},
		{"other service", f.employee(f.sales), false},
		{"enterprise admin", &models.Principal{ID: 1, Role: "admin", EnterpriseID: f.enterprise.ID}, true},
		{"view all flag", &models.Principal{ID: 2, Role: "employee", ServiceID: &f.sales.ID, EnterpriseID: f.enterprise.ID, ViewAllServices: true}, true},
		{"unknown role", &models.Principal{ID: 3, Role: "intern", ServiceID: &f.sales.ID, EnterpriseID: f.enterprise.ID}, false},
		{"admin of another enterprise", &models.Principal{ID: 4, Role: "super_admin", EnterpriseID: other.ID}, false},
		{"same service id, other enterprise", &models.Principal{ID: 5, Role: "employee", ServiceID: &otherService.ID, EnterpriseID: other.ID}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := f.visibility.CanSeeFolder(ctx, tt.principal, contracts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestVisibility_ShareCoversDescendants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := f.root(t, f.legal)
	contracts := f.mkdir(t, root, "Contracts")
	signed := f.mkdir(t, contracts, "Signed")
	deep := f.mkdir(t, signed, "2024")
	sibling := f.mkdir(t, root, "Internal")

	_, err := f.shares.ShareFolder(ctx, &docsysSvc.ShareFolderRequest{
		FolderID:   contracts.ID,
		Visibility: models.VisibilityServices,
		ServiceIDs: []int64{f.sales.ID, f.sales.ID},
	})
	require.NoError(t, err)

	sales := f.employee(f.sales)
	hr := f.employee(f.hr)
	for _, folder := range []*models.Folder{contracts, signed, deep} {
		ok, err := f.visibility.CanSeeFolder(ctx, sales, folder)
		require.NoError(t, err)
		assert.True(t, ok, "sales sees %s", folder.Name)

		ok, err = f.visibility.CanSeeFolder(ctx, hr, folder)
		require.NoError(t, err)
		assert.False(t, ok, "hr does not see %s", folder.Name)
	}

	for _, folder := range []*models.Folder{root, sibling} {
		ok, err := f.visibility.CanSeeFolder(ctx, sales, folder)
		require.NoError(t, err)
		assert.False(t, ok, "share does not reach %s", folder.Name)
	}
}

func TestVisibility_EnterpriseShare(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	policies := f.mkdir(t, f.root(t, f.hr), "Policies")

	_, err := f.shares.ShareFolder(ctx, &docsysSvc.ShareFolderRequest{FolderID: policies.ID, Visibility: models.VisibilityEnterprise})
	require.NoError(t, err)

	for _, service := range []*models.Service{f.legal, f.sales} {
		ok, err := f.visibility.CanSeeFolder(ctx, f.employee(service), policies)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	noService := &models.Principal{ID: 9, Role: "guest", EnterpriseID: f.enterprise.ID}
	ok, err := f.visibility.CanSeeFolder(ctx, noService, policies)
	require.NoError(t, err)
	assert.True(t, ok, "enterprise shares reach principals without a service")
}

func TestVisibility_UpdateShareTakesEffectImmediately(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	contracts := f.mkdir(t, f.root(t, f.legal), "Contracts")
	hr := f.employee(f.hr)

	share, err := f.shares.ShareFolder(ctx, &docsysSvc.ShareFolderRequest{
		FolderID:   contracts.ID,
		Visibility: models.VisibilityServices,
		ServiceIDs: []int64{f.sales.ID},
	})
	require.NoError(t, err)

	ok, err := f.visibility.CanSeeFolder(ctx, hr, contracts)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = f.shares.UpdateShare(ctx, share.ID, &docsysSvc.UpdateShareRequest{
		Visibility: models.VisibilityServices,
		ServiceIDs: []int64{f.sales.ID, f.hr.ID},
	})
	require.NoError(t, err)

	ok, err = f.visibility.CanSeeFolder(ctx, hr, contracts)
	require.NoError(t, err)
	assert.True(t, ok, "cached grants are invalidated by share updates")
}

func TestVisibility_CyclicAncestryIsHidden(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.root(t, f.legal)

	// Two folders pointing at each other, never reaching a root
	x, y := int64(500), int64(501)
	f.store.InsertFolderUnchecked(models.Folder{ID: x, ServiceID: f.legal.ID, ParentID: &y, Name: "X"})
	f.store.InsertFolderUnchecked(models.Folder{ID: y, ServiceID: f.legal.ID, ParentID: &x, Name: "Y"})

	_, err := f.shares.ShareFolder(ctx, &docsysSvc.ShareFolderRequest{FolderID: 1, Visibility: models.VisibilityEnterprise})
	require.NoError(t, err, "share the real root so the overlay is consulted")

	folder, err := f.cfg.Folders.GetByID(ctx, x)
	require.NoError(t, err)

	ok, err := f.visibility.CanSeeFolder(ctx, f.employee(f.sales), folder)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.visibility.CanSeeFolder(ctx, f.employee(f.legal), folder)
	require.NoError(t, err)
	assert.True(t, ok, "ownership does not need the ancestry walk")

	_, err = f.paths.FolderDirPath(ctx, folder)
	assert.ErrorIs(t, err, errBrokenAncestry)

	a := f.mkdir(t, &models.Folder{ID: 1, ServiceID: f.legal.ID}, "A")
	_, err = f.folders.MoveFolder(ctx, a.ID, x)
	assert.ErrorIs(t, err, domain.ErrValidation, "cycle detected while checking the new parent")
}

func TestVisibility_HopBound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := f.root(t, f.legal)
	_, err := f.shares.ShareFolder(ctx, &docsysSvc.ShareFolderRequest{FolderID: root.ID, Visibility: models.VisibilityEnterprise})
	require.NoError(t, err)

	// A chain deeper than the hop bound, built directly in the store
	parent := root.ID
	var leaf models.Folder
	for i := 0; i < DefaultMaxAncestorHops+2; i++ {
		id := int64(1000 + i)
		p := parent
		leaf = models.Folder{ID: id, ServiceID: f.legal.ID, ParentID: &p, Name: "deep"}
		f.store.InsertFolderUnchecked(leaf)
		parent = id
	}

	ok, err := f.visibility.CanSeeFolder(ctx, f.employee(f.sales), &leaf)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVisibleShares(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	legalShared := f.mkdir(t, f.root(t, f.legal), "Contracts")
	hrShared := f.mkdir(t, f.root(t, f.hr), "Policies")
	salesOwn := f.mkdir(t, f.root(t, f.sales), "Pricing")

	_, err := f.shares.ShareFolder(ctx, &docsysSvc.ShareFolderRequest{FolderID: legalShared.ID, Visibility: models.VisibilityServices, ServiceIDs: []int64{f.sales.ID}})
	require.NoError(t, err)
	_, err = f.shares.ShareFolder(ctx, &docsysSvc.ShareFolderRequest{FolderID: hrShared.ID, Visibility: models.VisibilityServices, ServiceIDs: []int64{f.legal.ID}})
	require.NoError(t, err)
	_, err = f.shares.ShareFolder(ctx, &docsysSvc.ShareFolderRequest{FolderID: salesOwn.ID, Visibility: models.VisibilityServices, ServiceIDs: []int64{f.hr.ID}})
	require.NoError(t, err)

	summaries, err := f.shares.ResolveVisible(ctx, f.employee(f.sales))
	require.NoError(t, err)
	var folders []int64
	for _, s := range summaries {
		folders = append(folders, s.FolderID)
	}
	assert.ElementsMatch(t, []int64{legalShared.ID, salesOwn.ID}, folders)

	admin := &models.Principal{ID: 1, Role: "admin", EnterpriseID: f.enterprise.ID}
	all, err := f.shares.ListShares(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	for _, s := range summaries {
		if s.FolderID == legalShared.ID {
			assert.Equal(t, f.legal.ID, s.ServiceID)
			assert.Equal(t, "Legal/Contracts", s.Path)
		}
	}
}
