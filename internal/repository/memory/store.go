// Package memory provides in-process implementations of the docsystem
// repositories. It mirrors the relational constraints of the Postgres schema
// (root uniqueness, one share per folder, cascades) closely enough for tests
// and single-node development.
package memory

import (
	"slices"
	"sync"
	"time"

	models "portal/internal/domain/models/docsystem"
)

// Store holds all tables. Repositories created from the same Store share data.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex // serializes ExecTx callers

	seq         map[string]int64
	enterprises map[int64]models.Enterprise
	services    map[int64]models.Service
	folders     map[int64]models.Folder
	documents   map[int64]models.Document
	shares      map[int64]models.SharedFolder
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		seq:         make(map[string]int64),
		enterprises: make(map[int64]models.Enterprise),
		services:    make(map[int64]models.Service),
		folders:     make(map[int64]models.Folder),
		documents:   make(map[int64]models.Document),
		shares:      make(map[int64]models.SharedFolder),
	}
}

// nextID emulates a BIGSERIAL per table. Caller holds mu.
func (s *Store) nextID(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// SeedEnterprise inserts an enterprise and returns it
func (s *Store) SeedEnterprise(name string) *models.Enterprise {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := models.Enterprise{ID: s.nextID("enterprises"), Name: name, CreatedAt: time.Now()}
	s.enterprises[e.ID] = e
	return &e
}

// SeedService inserts a service and returns it
func (s *Store) SeedService(enterpriseID int64, name string) *models.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc := models.Service{ID: s.nextID("services"), EnterpriseID: enterpriseID, Name: name, CreatedAt: time.Now()}
	s.services[svc.ID] = svc
	return &svc
}

// InsertFolderUnchecked stores a folder row as-is, bypassing every constraint.
// Only useful to build corrupted fixtures (e.g. parent cycles) in tests.
func (s *Store) InsertFolderUnchecked(f models.Folder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == 0 {
		f.ID = s.nextID("folders")
	} else if f.ID > s.seq["folders"] {
		s.seq["folders"] = f.ID
	}
	s.folders[f.ID] = cloneFolder(f)
}

type snapshot struct {
	seq         map[string]int64
	enterprises map[int64]models.Enterprise
	services    map[int64]models.Service
	folders     map[int64]models.Folder
	documents   map[int64]models.Document
	shares      map[int64]models.SharedFolder
}

func (s *Store) snapshot() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := &snapshot{
		seq:         make(map[string]int64, len(s.seq)),
		enterprises: make(map[int64]models.Enterprise, len(s.enterprises)),
		services:    make(map[int64]models.Service, len(s.services)),
		folders:     make(map[int64]models.Folder, len(s.folders)),
		documents:   make(map[int64]models.Document, len(s.documents)),
		shares:      make(map[int64]models.SharedFolder, len(s.shares)),
	}
	for k, v := range s.seq {
		snap.seq[k] = v
	}
	for k, v := range s.enterprises {
		snap.enterprises[k] = cloneEnterprise(v)
	}
	for k, v := range s.services {
		snap.services[k] = cloneService(v)
	}
	for k, v := range s.folders {
		snap.folders[k] = cloneFolder(v)
	}
	for k, v := range s.documents {
		snap.documents[k] = cloneDocument(v)
	}
	for k, v := range s.shares {
		snap.shares[k] = cloneShare(v)
	}
	return snap
}

func (s *Store) restore(snap *snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = snap.seq
	s.enterprises = snap.enterprises
	s.services = snap.services
	s.folders = snap.folders
	s.documents = snap.documents
	s.shares = snap.shares
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneEnterprise(e models.Enterprise) models.Enterprise {
	e.StoragePath = clonePtr(e.StoragePath)
	return e
}

func cloneService(svc models.Service) models.Service {
	svc.StoragePath = clonePtr(svc.StoragePath)
	return svc
}

func cloneFolder(f models.Folder) models.Folder {
	f.ParentID = clonePtr(f.ParentID)
	f.StoragePath = clonePtr(f.StoragePath)
	f.Path = ""
	return f
}

func cloneDocument(d models.Document) models.Document {
	d.FolderID = clonePtr(d.FolderID)
	d.CreatedBy = clonePtr(d.CreatedBy)
	d.Path = ""
	return d
}

func cloneShare(sh models.SharedFolder) models.SharedFolder {
	sh.ServiceIDs = slices.Clone(sh.ServiceIDs)
	return sh
}
