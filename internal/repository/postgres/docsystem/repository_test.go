package docsystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/domain"
	models "portal/internal/domain/models/docsystem"
	"portal/internal/domain/repositories"
	docsysRepo "portal/internal/domain/repositories/docsystem"
	"portal/internal/repository/postgres"
)

// testDatabaseEnv names a disposable database; these tests skip without it.
const testDatabaseEnv = "PORTAL_TEST_DATABASE_URL"

type pgFixture struct {
	enterprises docsysRepo.EnterpriseRepository
	services    docsysRepo.ServiceRepository
	folders     docsysRepo.FolderRepository
	documents   docsysRepo.DocumentRepository
	shares      docsysRepo.ShareRepository
	tx          repositories.TransactionManager

	enterprise *models.Enterprise
	service    *models.Service
	other      *models.Service
}

func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()

	url := os.Getenv(testDatabaseEnv)
	if url == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, postgres.PoolConfig{URL: url, MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	// Each test gets its own tables so runs never see each other's rows
	tables := postgres.NewTableNames(fmt.Sprintf("it%d_", time.Now().UnixNano()))
	require.NoError(t, postgres.EnsureSchema(ctx, pool, tables))
	t.Cleanup(func() {
		assert.NoError(t, postgres.DropSchema(context.Background(), pool, tables))
	})

	logger := slog.New(slog.DiscardHandler)
	cfg := &postgres.RepositoryConfig{Pool: pool, Tables: tables, Logger: logger}
	f := &pgFixture{
		enterprises: NewEnterpriseRepository(cfg),
		services:    NewServiceRepository(cfg),
		folders:     NewFolderRepository(cfg),
		documents:   NewDocumentRepository(cfg),
		shares:      NewShareRepository(cfg),
		tx:          postgres.NewTransactionManager(pool, logger),
	}

	f.enterprise = &models.Enterprise{Name: "Acme"}
	require.NoError(t, f.enterprises.Create(ctx, f.enterprise))
	f.service = &models.Service{EnterpriseID: f.enterprise.ID, Name: "Legal"}
	require.NoError(t, f.services.Create(ctx, f.service))
	f.other = &models.Service{EnterpriseID: f.enterprise.ID, Name: "Sales"}
	require.NoError(t, f.services.Create(ctx, f.other))
	return f
}

func (f *pgFixture) mkdir(t *testing.T, parent *models.Folder, name string) *models.Folder {
	t.Helper()
	folder := &models.Folder{ServiceID: parent.ServiceID, ParentID: &parent.ID, Name: name}
	require.NoError(t, f.folders.Create(context.Background(), folder))
	return folder
}

func (f *pgFixture) root(t *testing.T) *models.Folder {
	t.Helper()
	root, _, err := f.folders.CreateRootIfNotExists(context.Background(), f.service.ID, f.service.Name)
	require.NoError(t, err)
	return root
}

func TestPGFolders_CreateRootIfNotExists(t *testing.T) {
	ctx := context.Background()
	f := newPGFixture(t)

	first, created, err := f.folders.CreateRootIfNotExists(ctx, f.service.ID, "Legal")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, first.IsRoot())

	second, created, err := f.folders.CreateRootIfNotExists(ctx, f.service.ID, "Legal")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	// A second parentless folder violates the partial unique index
	err = f.folders.Create(ctx, &models.Folder{ServiceID: f.service.ID, Name: "Other root"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, _, err = f.folders.CreateRootIfNotExists(ctx, 999999, "Ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPGFolders_UpdateAndDeleteMany(t *testing.T) {
	ctx := context.Background()
	f := newPGFixture(t)
	root := f.root(t)
	contracts := f.mkdir(t, root, "Contracts")
	signed := f.mkdir(t, contracts, "Signed")
	archive := f.mkdir(t, root, "Archive")

	children, err := f.folders.ListChildren(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "Archive", children[0].Name)

	path := "enterprises/acme/legal/archive/signed"
	signed.ParentID = &archive.ID
	signed.StoragePath = &path
	signed.UpdatedAt = time.Now()
	require.NoError(t, f.folders.Update(ctx, signed))

	got, err := f.folders.GetByID(ctx, signed.ID)
	require.NoError(t, err)
	assert.Equal(t, archive.ID, *got.ParentID)
	assert.Equal(t, path, *got.StoragePath)

	signed.ParentID = ptr(int64(999999))
	assert.ErrorIs(t, f.folders.Update(ctx, signed), domain.ErrNotFound)

	share := &models.SharedFolder{
		EnterpriseID: f.enterprise.ID,
		FolderID:     contracts.ID,
		Name:         contracts.Name,
		Visibility:   models.VisibilityEnterprise,
	}
	require.NoError(t, f.shares.Create(ctx, share))

	require.NoError(t, f.folders.DeleteMany(ctx, []int64{contracts.ID}))
	_, err = f.folders.GetByID(ctx, contracts.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.shares.GetByID(ctx, share.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := f.folders.ListByService(ctx, f.service.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPGDocuments_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newPGFixture(t)
	root := f.root(t)
	contracts := f.mkdir(t, root, "Contracts")

	unfiled := &models.Document{
		EnterpriseID: f.enterprise.ID,
		ServiceID:    f.service.ID,
		Name:         "memo.txt",
		StoragePath:  "enterprises/acme/legal/memo.txt",
		MimeType:     "text/plain",
		Size:         5,
	}
	require.NoError(t, f.documents.Create(ctx, unfiled))
	filed := &models.Document{
		EnterpriseID: f.enterprise.ID,
		ServiceID:    f.service.ID,
		FolderID:     &contracts.ID,
		Name:         "nda.pdf",
		StoragePath:  "enterprises/acme/legal/contracts/nda.pdf",
		MimeType:     "application/pdf",
		Size:         8,
	}
	require.NoError(t, f.documents.Create(ctx, filed))

	docs, err := f.documents.ListUnfiled(ctx, f.service.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, unfiled.ID, docs[0].ID)

	unfiled.FolderID = &contracts.ID
	unfiled.StoragePath = "enterprises/acme/legal/contracts/memo.txt"
	unfiled.UpdatedAt = time.Now()
	require.NoError(t, f.documents.Update(ctx, unfiled))

	docs, err = f.documents.ListByFolders(ctx, []int64{contracts.ID})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	require.NoError(t, f.documents.DeleteMany(ctx, []int64{unfiled.ID, filed.ID}))
	docs, err = f.documents.ListByService(ctx, f.service.ID)
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = f.documents.GetByID(ctx, filed.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPGShares_DuplicateInsideTransaction(t *testing.T) {
	ctx := context.Background()
	f := newPGFixture(t)
	root := f.root(t)
	contracts := f.mkdir(t, root, "Contracts")

	first := &models.SharedFolder{
		EnterpriseID: f.enterprise.ID,
		FolderID:     contracts.ID,
		Name:         "Contracts",
		Visibility:   models.VisibilityServices,
		ServiceIDs:   []int64{f.other.ID},
	}
	require.NoError(t, f.shares.Create(ctx, first))

	var conflictErr error
	err := f.tx.ExecTx(ctx, func(ctx context.Context) error {
		conflictErr = f.shares.Create(ctx, &models.SharedFolder{
			EnterpriseID: f.enterprise.ID,
			FolderID:     contracts.ID,
			Name:         "Contracts",
			Visibility:   models.VisibilityEnterprise,
		})
		// The transaction must still accept statements after the conflict
		_, err := f.shares.GetByFolder(ctx, contracts.ID)
		return err
	})
	require.NoError(t, err)

	var conflict *domain.ConflictError
	require.True(t, errors.As(conflictErr, &conflict), "got %v", conflictErr)
	assert.Equal(t, first.ID, conflict.ResourceID)
	assert.Equal(t, "share", conflict.ResourceType)

	got, err := f.shares.GetByFolder(ctx, contracts.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityServices, got.Visibility)
	assert.Equal(t, []int64{f.other.ID}, got.ServiceIDs)
}

func TestPGShares_ConstraintsMapToDomainErrors(t *testing.T) {
	ctx := context.Background()
	f := newPGFixture(t)
	root := f.root(t)
	contracts := f.mkdir(t, root, "Contracts")

	err := f.shares.Create(ctx, &models.SharedFolder{
		EnterpriseID: f.enterprise.ID,
		FolderID:     contracts.ID,
		Name:         "Contracts",
		Visibility:   models.Visibility("everyone"),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = f.shares.Create(ctx, &models.SharedFolder{
		EnterpriseID: f.enterprise.ID,
		FolderID:     999999,
		Name:         "Ghost",
		Visibility:   models.VisibilityEnterprise,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	share := &models.SharedFolder{
		EnterpriseID: f.enterprise.ID,
		FolderID:     contracts.ID,
		Name:         "Contracts",
		Visibility:   models.VisibilityEnterprise,
	}
	require.NoError(t, f.shares.Create(ctx, share))

	share.Visibility = models.Visibility("everyone")
	share.UpdatedAt = time.Now()
	assert.ErrorIs(t, f.shares.Update(ctx, share), domain.ErrValidation)

	// An unknown target service rolls the whole update back
	share.Visibility = models.VisibilityServices
	share.ServiceIDs = []int64{999999}
	err = f.tx.ExecTx(ctx, func(ctx context.Context) error {
		return f.shares.Update(ctx, share)
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, f.shares.RenameByFolder(ctx, contracts.ID, "Contrats"))
	listed, err := f.shares.ListByEnterprise(ctx, f.enterprise.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Contrats", listed[0].Name)
	assert.Equal(t, models.VisibilityEnterprise, listed[0].Visibility)
}

func TestPGEnterprises_StoragePath(t *testing.T) {
	ctx := context.Background()
	f := newPGFixture(t)

	other := &models.Enterprise{Name: "Acme"}
	require.NoError(t, f.enterprises.Create(ctx, other))

	require.NoError(t, f.enterprises.UpdateStoragePath(ctx, f.enterprise.ID, "enterprises/acme"))
	taken, err := f.enterprises.PathTaken(ctx, "enterprises/acme", other.ID)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = f.enterprises.PathTaken(ctx, "enterprises/acme", f.enterprise.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	err = f.enterprises.UpdateStoragePath(ctx, other.ID, "enterprises/acme")
	assert.ErrorIs(t, err, domain.ErrConflict)

	services, err := f.services.ListByEnterprise(ctx, f.enterprise.ID)
	require.NoError(t, err)
	assert.Len(t, services, 2)
}

func ptr[T any](v T) *T { return &v }
