package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wagerdeck/questline/questline/quest"
)

// ExecutorFactory builds the query executor for a project's endpoint.
// Injected so tests can substitute fakes without a live backend.
type ExecutorFactory func(endpoint string) QueryExecutor

// ProjectManager owns one QuestService per loaded project. Reloading a
// project document atomically replaces its quest set; in-flight checks
// keep using the service they started with.
type ProjectManager struct {
	mu       sync.RWMutex
	projects map[string]*QuestService
	order    []string

	executors ExecutorFactory
	registry  *quest.Registry
	ledger    *LedgerService
}

func NewProjectManager(executors ExecutorFactory, registry *quest.Registry, ledger *LedgerService) *ProjectManager {
	return &ProjectManager{
		projects:  make(map[string]*QuestService),
		executors: executors,
		registry:  registry,
		ledger:    ledger,
	}
}

// LoadDocument parses one project document and registers (or replaces)
// its QuestService.
func (m *ProjectManager) LoadDocument(data []byte) (*QuestService, error) {
	doc, err := quest.ParseProject(data)
	if err != nil {
		return nil, err
	}

	service := NewQuestService(doc, m.executors(doc.Project.QueryEndpoint), m.registry, m.ledger)

	m.mu.Lock()
	if _, exists := m.projects[doc.Project.ID]; !exists {
		m.order = append(m.order, doc.Project.ID)
	}
	m.projects[doc.Project.ID] = service
	m.mu.Unlock()

	slog.Info("Loaded quest project",
		slog.String("type", "quest"),
		slog.String("project_id", doc.Project.ID),
		slog.Int("quests", len(doc.Quests)))
	return service, nil
}

// LoadDirectory loads every .toml document in dir. A document that
// fails to parse is skipped with a log line; the rest still load.
func (m *ProjectManager) LoadDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read quest directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Error("Failed to read quest document",
				slog.String("type", "quest"),
				slog.String("path", path),
				slog.Any("error", err))
			continue
		}
		if _, err := m.LoadDocument(data); err != nil {
			slog.Error("Failed to load quest document",
				slog.String("type", "quest"),
				slog.String("path", path),
				slog.Any("error", err))
			continue
		}
		loaded++
	}

	if loaded == 0 {
		return fmt.Errorf("no quest documents loaded from %s", dir)
	}
	return nil
}

// LoadFromSpaces loads every quest document under the bucket's quest
// root.
func (m *ProjectManager) LoadFromSpaces(ctx context.Context, spaces *SpacesService) error {
	keys, err := spaces.ListQuestDocuments(ctx)
	if err != nil {
		return err
	}

	loaded := 0
	for _, key := range keys {
		data, err := spaces.FetchQuestDocument(ctx, key)
		if err != nil {
			slog.Error("Failed to fetch quest document",
				slog.String("type", "quest"),
				slog.String("key", key),
				slog.Any("error", err))
			continue
		}
		if _, err := m.LoadDocument(data); err != nil {
			slog.Error("Failed to load quest document",
				slog.String("type", "quest"),
				slog.String("key", key),
				slog.Any("error", err))
			continue
		}
		loaded++
	}

	if loaded == 0 {
		return fmt.Errorf("no quest documents loaded from bucket %s", spaces.GetBucket())
	}
	return nil
}

// Project returns the QuestService for a project id.
func (m *ProjectManager) Project(projectID string) (*QuestService, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	service, ok := m.projects[projectID]
	return service, ok
}

// Projects returns every loaded project's metadata in load order.
func (m *ProjectManager) Projects() []quest.Project {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]quest.Project, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.projects[id].Project())
	}
	return out
}
