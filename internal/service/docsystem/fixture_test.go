package docsystem

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	models "portal/internal/domain/models/docsystem"
	docsysSvc "portal/internal/domain/services/docsystem"
	"portal/internal/repository/memory"
	"portal/internal/roles"
	"portal/internal/signal"
	"portal/internal/storage"
	"portal/internal/storage/local"
)

type fixture struct {
	store      *memory.Store
	mirror     *flakyMirror
	signal     *signal.Memory
	cfg        *ServiceConfig
	folders    docsysSvc.FolderService
	documents  docsysSvc.DocumentService
	shares     docsysSvc.ShareService
	tree       docsysSvc.TreeService
	visibility docsysSvc.VisibilityResolver
	paths      docsysSvc.PathResolver

	enterprise *models.Enterprise
	legal      *models.Service
	sales      *models.Service
	hr         *models.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	store := memory.NewStore()
	disk, err := local.NewOS(t.TempDir(), logger)
	require.NoError(t, err)
	mirror := &flakyMirror{Mirror: disk, fail: map[string]bool{}}

	registry, err := roles.NewRegistry()
	require.NoError(t, err)

	enterprises := memory.NewEnterpriseRepository(store)
	services := memory.NewServiceRepository(store)
	folders := memory.NewFolderRepository(store)
	documents := memory.NewDocumentRepository(store)
	shares := memory.NewShareRepository(store)

	visibility, err := NewVisibilityResolver(&VisibilityConfig{
		Services: services,
		Folders:  folders,
		Shares:   shares,
		Roles:    registry,
		Logger:   logger,
	})
	require.NoError(t, err)

	paths := NewPathResolver(enterprises, services, folders, mirror, DefaultMaxAncestorHops)
	sig := signal.NewMemory()

	cfg := &ServiceConfig{
		Enterprises: enterprises,
		Services:    services,
		Folders:     folders,
		Documents:   documents,
		Shares:      shares,
		TxManager:   memory.NewTransactionManager(store),
		Mirror:      mirror,
		Paths:       paths,
		Visibility:  visibility,
		Signal:      sig,
		Logger:      logger,
	}

	folderSvc := NewFolderService(cfg)
	f := &fixture{
		store:      store,
		mirror:     mirror,
		signal:     sig,
		cfg:        cfg,
		folders:    folderSvc,
		documents:  NewDocumentService(cfg, folderSvc),
		shares:     NewShareService(cfg, folderSvc),
		tree:       NewTreeService(folderSvc, folders, documents, services, shares, visibility, logger),
		visibility: visibility,
		paths:      paths,
	}

	f.enterprise = store.SeedEnterprise("Acme")
	f.legal = store.SeedService(f.enterprise.ID, "Legal")
	f.sales = store.SeedService(f.enterprise.ID, "Sales")
	f.hr = store.SeedService(f.enterprise.ID, "HR")
	return f
}

func (f *fixture) changes(t *testing.T) uint64 {
	t.Helper()
	v, err := f.signal.Value(context.Background(), signal.EnterpriseKey(f.enterprise.ID))
	require.NoError(t, err)
	return v
}

func (f *fixture) exists(t *testing.T, p string) bool {
	t.Helper()
	ok, err := f.mirror.Mirror.Exists(context.Background(), p)
	require.NoError(t, err)
	return ok
}

func (f *fixture) root(t *testing.T, service *models.Service) *models.Folder {
	t.Helper()
	root, err := f.folders.GetServiceRoot(context.Background(), service.ID)
	require.NoError(t, err)
	return root
}

func (f *fixture) mkdir(t *testing.T, parent *models.Folder, name string) *models.Folder {
	t.Helper()
	folder, err := f.folders.CreateFolder(context.Background(), &docsysSvc.CreateFolderRequest{
		Name:     name,
		ParentID: &parent.ID,
	})
	require.NoError(t, err)
	return folder
}

func (f *fixture) upload(t *testing.T, folder *models.Folder, name, content string) *models.Document {
	t.Helper()
	doc, err := f.documents.CreateDocument(context.Background(), &docsysSvc.CreateDocumentRequest{
		Name:     name,
		FolderID: &folder.ID,
		Content:  []byte(content),
	})
	require.NoError(t, err)
	return doc
}

func (f *fixture) employee(service *models.Service) *models.Principal {
	return &models.Principal{
		ID:           100 + service.ID,
		Role:         "employee",
		ServiceID:    &service.ID,
		EnterpriseID: service.EnterpriseID,
	}
}

var errDiskDown = errors.New("disk down")

// flakyMirror fails the operations named in fail and delegates the rest.
type flakyMirror struct {
	storage.Mirror

	mu   sync.Mutex
	fail map[string]bool
}

func (m *flakyMirror) set(op string, failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = failing
}

func (m *flakyMirror) failing(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[op] {
		return errors.Join(storage.ErrUnavailable, errDiskDown)
	}
	return nil
}

func (m *flakyMirror) Exists(ctx context.Context, p string) (bool, error) {
	if err := m.failing("exists"); err != nil {
		return false, err
	}
	return m.Mirror.Exists(ctx, p)
}

func (m *flakyMirror) MakeDir(ctx context.Context, p string) error {
	if err := m.failing("mkdir"); err != nil {
		return err
	}
	return m.Mirror.MakeDir(ctx, p)
}

func (m *flakyMirror) Move(ctx context.Context, oldPath, newPath string) error {
	if err := m.failing("move"); err != nil {
		return err
	}
	return m.Mirror.Move(ctx, oldPath, newPath)
}

func (m *flakyMirror) DeleteRecursive(ctx context.Context, p string) error {
	if err := m.failing("delete"); err != nil {
		return err
	}
	return m.Mirror.DeleteRecursive(ctx, p)
}

func (m *flakyMirror) WriteFile(ctx context.Context, dirPath, filename string, data []byte) error {
	if err := m.failing("write"); err != nil {
		return err
	}
	return m.Mirror.WriteFile(ctx, dirPath, filename, data)
}

func (m *flakyMirror) DeleteFile(ctx context.Context, p string) error {
	if err := m.failing("delete"); err != nil {
		return err
	}
	return m.Mirror.DeleteFile(ctx, p)
}

func (m *flakyMirror) ReadStream(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := m.failing("read"); err != nil {
		return nil, err
	}
	return m.Mirror.ReadStream(ctx, p)
}
