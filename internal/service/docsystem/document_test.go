package docsystem

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/domain"
	docsysSvc "portal/internal/domain/services/docsystem"
)

func TestCreateDocument_UnfiledGoesToServiceDirectory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	doc, err := f.documents.CreateDocument(ctx, &docsysSvc.CreateDocumentRequest{
		Name:      "Welcome Pack.txt",
		ServiceID: &f.sales.ID,
		Content:   []byte("hello"),
	})
	require.NoError(t, err)
	assert.Nil(t, doc.FolderID)
	assert.Equal(t, f.enterprise.ID, doc.EnterpriseID)
	assert.Equal(t, "enterprises/acme/sales/welcome-pack.txt", doc.StoragePath)
	assert.Equal(t, "Sales/Welcome Pack.txt", doc.Path)
	assert.Equal(t, "text/plain; charset=utf-8", doc.MimeType)
	assert.True(t, f.exists(t, doc.StoragePath))

	docs, err := f.documents.ListDocuments(ctx, f.employee(f.sales), &docsysSvc.ListDocumentsRequest{ServiceID: &f.sales.ID})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.ID, docs[0].ID)

	_, err = f.documents.ListDocuments(ctx, f.employee(f.legal), &docsysSvc.ListDocumentsRequest{ServiceID: &f.sales.ID})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateDocument_CollisionKeepsExtension(t *testing.T) {
	f := newFixture(t)
	contracts := f.mkdir(t, f.root(t, f.legal), "Contracts")

	first := f.upload(t, contracts, "NDA.pdf", "one")
	second := f.upload(t, contracts, "nda.PDF", "two")

	assert.Equal(t, "enterprises/acme/legal/contracts/nda.pdf", first.StoragePath)
	assert.Equal(t, "enterprises/acme/legal/contracts/nda-"+itoa(second.ID)+".pdf", second.StoragePath)
	assert.True(t, f.exists(t, second.StoragePath))
}

func TestCreateDocument_ExplicitMimeTypeWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder := f.mkdir(t, f.root(t, f.legal), "Data")

	doc, err := f.documents.CreateDocument(ctx, &docsysSvc.CreateDocumentRequest{
		Name:     "rows.csv",
		FolderID: &folder.ID,
		MimeType: "text/csv",
		Content:  []byte("a,b\n1,2\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", doc.MimeType)
}

func TestCreateDocument_WriteFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder := f.mkdir(t, f.root(t, f.legal), "Contracts")
	before := f.changes(t)

	f.mirror.set("write", true)
	_, err := f.documents.CreateDocument(ctx, &docsysSvc.CreateDocumentRequest{
		Name:     "nda.pdf",
		FolderID: &folder.ID,
		Content:  []byte("%PDF-1.4"),
	})
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	docs, err := f.cfg.Documents.ListByFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, before, f.changes(t))
}

func TestCreateDocument_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	legalFolder := f.mkdir(t, f.root(t, f.legal), "Contracts")

	tests := []struct {
		name string
		req  *docsysSvc.CreateDocumentRequest
		want error
	}{
		{"no target", &docsysSvc.CreateDocumentRequest{Name: "a.txt"}, domain.ErrValidation},
		{"empty name", &docsysSvc.CreateDocumentRequest{Name: "", FolderID: &legalFolder.ID}, domain.ErrValidation},
		{"service mismatch", &docsysSvc.CreateDocumentRequest{Name: "a.txt", FolderID: &legalFolder.ID, ServiceID: &f.sales.ID}, domain.ErrValidation},
		{"missing folder", &docsysSvc.CreateDocumentRequest{Name: "a.txt", FolderID: ptr(int64(9999))}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.documents.CreateDocument(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRenameDocument_MovesFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder := f.mkdir(t, f.root(t, f.legal), "Contracts")
	doc := f.upload(t, folder, "NDA.pdf", "%PDF-1.4")

	renamed, err := f.documents.RenameDocument(ctx, doc.ID, "NDA Signed.pdf")
	require.NoError(t, err)
	assert.Equal(t, "NDA Signed.pdf", renamed.Name)
	assert.Equal(t, "enterprises/acme/legal/contracts/nda-signed.pdf", renamed.StoragePath)
	assert.True(t, f.exists(t, renamed.StoragePath))
	assert.False(t, f.exists(t, "enterprises/acme/legal/contracts/nda.pdf"))
}

func TestRenameDocument_UnderRenamedFolder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder := f.mkdir(t, f.root(t, f.legal), "Contracts")
	doc := f.upload(t, folder, "NDA.pdf", "%PDF-1.4")

	_, err := f.folders.RenameFolder(ctx, folder.ID, "Agreements")
	require.NoError(t, err)

	renamed, err := f.documents.RenameDocument(ctx, doc.ID, "Old NDA.pdf")
	require.NoError(t, err)
	assert.Equal(t, "enterprises/acme/legal/agreements/old-nda.pdf", renamed.StoragePath)
	assert.True(t, f.exists(t, renamed.StoragePath))
}

func TestMoveDocument_BetweenFoldersAndUnfiled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	root := f.root(t, f.legal)
	contracts := f.mkdir(t, root, "Contracts")
	archive := f.mkdir(t, root, "Archive")
	doc := f.upload(t, contracts, "nda.pdf", "%PDF-1.4")

	moved, err := f.documents.MoveDocument(ctx, doc.ID, &archive.ID)
	require.NoError(t, err)
	assert.Equal(t, archive.ID, *moved.FolderID)
	assert.Equal(t, "enterprises/acme/legal/archive/nda.pdf", moved.StoragePath)
	assert.True(t, f.exists(t, moved.StoragePath))
	assert.False(t, f.exists(t, "enterprises/acme/legal/contracts/nda.pdf"))

	unfiled, err := f.documents.MoveDocument(ctx, doc.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, unfiled.FolderID)
	assert.Equal(t, "enterprises/acme/legal/nda.pdf", unfiled.StoragePath)
	assert.True(t, f.exists(t, unfiled.StoragePath))

	salesFolder := f.mkdir(t, f.root(t, f.sales), "Pipeline")
	_, err = f.documents.MoveDocument(ctx, doc.ID, &salesFolder.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteDocument_MissingFileIsFine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder := f.mkdir(t, f.root(t, f.legal), "Contracts")
	doc := f.upload(t, folder, "nda.pdf", "%PDF-1.4")
	require.NoError(t, f.mirror.Mirror.DeleteFile(ctx, doc.StoragePath))

	require.NoError(t, f.documents.DeleteDocument(ctx, doc.ID))
	_, err := f.cfg.Documents.GetByID(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, f.documents.DeleteDocument(ctx, doc.ID), domain.ErrNotFound)
}

func TestOpenDocument_MissingContentIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder := f.mkdir(t, f.root(t, f.legal), "Contracts")
	doc := f.upload(t, folder, "nda.pdf", "%PDF-1.4")

	got, rc, err := f.documents.OpenDocument(ctx, nil, doc.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
	assert.Equal(t, "Legal/Contracts/nda.pdf", got.Path)

	require.NoError(t, f.mirror.Mirror.DeleteFile(ctx, doc.StoragePath))
	_, _, err = f.documents.OpenDocument(ctx, nil, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	f.mirror.set("read", true)
	_, _, err = f.documents.OpenDocument(ctx, nil, doc.ID)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestGetDocument_HiddenFromOtherServices(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder := f.mkdir(t, f.root(t, f.legal), "Contracts")
	doc := f.upload(t, folder, "nda.pdf", "%PDF-1.4")

	_, err := f.documents.GetDocument(ctx, f.employee(f.sales), doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.documents.GetDocument(ctx, f.employee(f.legal), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Legal/Contracts/nda.pdf", got.Path)
}
