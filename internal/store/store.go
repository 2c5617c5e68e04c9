// Package store opens the task store selected by configuration.
package store

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/taskimport/internal/config"
	"github.com/JonMunkholm/taskimport/internal/core"
	"github.com/JonMunkholm/taskimport/internal/store/memstore"
	"github.com/JonMunkholm/taskimport/internal/store/pgstore"
	"github.com/JonMunkholm/taskimport/internal/store/sqlitestore"
)

// Backend is a core.Store that can also list its containers and seed tags.
type Backend interface {
	core.Store
	ListFolders(ctx context.Context) ([]core.Folder, error)
	ListProjects(ctx context.Context) ([]core.Project, error)
	ListTags(ctx context.Context) ([]core.Tag, error)
	EnsureTag(ctx context.Context, name string) (*core.Tag, error)
}

var (
	_ Backend = (*memstore.Store)(nil)
	_ Backend = (*pgstore.Store)(nil)
	_ Backend = (*sqlitestore.Store)(nil)
)

// Open opens the backend named by cfg.Driver. The returned close function
// releases it and is never nil when err is nil.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Backend, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return memstore.New(), func() {}, nil

	case config.DriverPostgres:
		s, err := pgstore.Open(ctx, cfg.URL, pgstore.PoolConfig{
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.DriverSQLite:
		s, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// Scratch returns an in-memory store holding copies of the folders, projects
// and tags in src. Imports into it resolve names the way they would against
// src while leaving src untouched. Tasks are not copied.
func Scratch(ctx context.Context, src Backend) (*memstore.Store, error) {
	dst := memstore.New()

	folders, err := src.ListFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	folderIDs := make(map[string]*core.Folder, len(folders))
	for _, f := range folders {
		c, err := dst.CreateFolder(ctx, f.Name)
		if err != nil {
			return nil, err
		}
		folderIDs[f.ID] = c
	}

	projects, err := src.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	for _, p := range projects {
		c, err := dst.CreateProject(ctx, p.Name, folderIDs[p.FolderID])
		if err != nil {
			return nil, err
		}
		p.ID, p.FolderID = c.ID, c.FolderID
		if err := dst.UpdateProject(ctx, &p); err != nil {
			return nil, err
		}
	}

	tags, err := src.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	for _, t := range tags {
		if _, err := dst.EnsureTag(ctx, t.Name); err != nil {
			return nil, err
		}
	}
	return dst, nil
}
