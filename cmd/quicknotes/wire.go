package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/quicknotes-agent/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/quicknotes-agent/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/quicknotes-agent/internal/adapters/storage/memory"
	mongostore "github.com/PabloGalante/quicknotes-agent/internal/adapters/storage/mongo"
	"github.com/PabloGalante/quicknotes-agent/internal/adapters/storage/sqlstore"
	"github.com/PabloGalante/quicknotes-agent/internal/app/assistant"
	"github.com/PabloGalante/quicknotes-agent/internal/app/conversation"
	"github.com/PabloGalante/quicknotes-agent/internal/app/format"
	"github.com/PabloGalante/quicknotes-agent/internal/app/notes"
	"github.com/PabloGalante/quicknotes-agent/internal/app/tools"
	"github.com/PabloGalante/quicknotes-agent/internal/config"
	"github.com/PabloGalante/quicknotes-agent/internal/domain"
	"github.com/PabloGalante/quicknotes-agent/internal/observability"
)

// app holds the wired services shared by every subcommand.
type app struct {
	notes     *notes.Service
	executor  *tools.Executor
	assistant *assistant.Service
	formatter *format.Formatter

	close func() error
}

// build resolves the store and model named by c and wires the services.
// The caller must call app.close on shutdown.
func build(ctx context.Context, c *config.Config) (*app, error) {
	store, closeStore, err := openStore(ctx, c.Storage)
	if err != nil {
		return nil, err
	}

	model, err := newLLM(ctx, c.LLM)
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	noteSvc := notes.NewService(store)
	exec := tools.NewExecutor(noteSvc)
	formatter := format.New(c.Location())
	convs := conversation.NewManager(llm.BuildPreamble(""), conversation.WithMaxTurns(c.Assistant.MaxTranscriptTurns))

	return &app{
		notes:     noteSvc,
		executor:  exec,
		assistant: assistant.NewService(convs, model, exec, noteSvc, formatter),
		formatter: formatter,
		close:     closeStore,
	}, nil
}

func openStore(ctx context.Context, sc config.StorageConfig) (domain.NoteStore, func() error, error) {
	log := observability.Logger()
	noop := func() error { return nil }

	switch sc.Backend {
	case config.BackendSQLite:
		log.Info("using sqlite storage", "path", sc.SQLitePath)
		s, err := sqlstore.OpenSQLite(sc.SQLitePath)
		if err != nil {
			return nil, noop, fmt.Errorf("initializing sqlite store: %w", err)
		}
		return s, s.Close, nil

	case config.BackendPostgres:
		log.Info("using postgres storage")
		s, err := sqlstore.OpenPostgres(ctx, sc.PostgresDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("initializing postgres store: %w", err)
		}
		return s, s.Close, nil

	case config.BackendMongo:
		log.Info("using mongo storage", "database", sc.MongoDatabase)
		s, err := mongostore.NewStore(ctx, sc.MongoURI, sc.MongoDatabase)
		if err != nil {
			return nil, noop, fmt.Errorf("initializing mongo store: %w", err)
		}
		return s, s.Close, nil

	case config.BackendFirestore:
		log.Info("using firestore storage", "project", sc.FirestoreProject)
		s, err := firestorestore.NewStore(ctx, sc.FirestoreProject)
		if err != nil {
			return nil, noop, fmt.Errorf("initializing firestore store: %w", err)
		}
		return s, s.Close, nil

	case config.BackendMemory, "":
		log.Info("using in-memory storage")
		return memstore.NewNoteStore(), noop, nil
	}

	return nil, noop, fmt.Errorf("unknown storage backend %q", sc.Backend)
}

func newLLM(ctx context.Context, lc config.LLMConfig) (domain.LLMClient, error) {
	log := observability.Logger()

	switch lc.Provider {
	case config.ProviderMock, "":
		log.Info("using mock LLM client")
		return llm.NewMockLLM(), nil

	case config.ProviderGemini:
		log.Info("using Gemini API client", "model", lc.ModelName)
		return llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:      lc.APIKey,
			Model:       lc.ModelName,
			Temperature: lc.Temperature,
		})

	case config.ProviderVertex:
		log.Info("using Vertex AI client", "model", lc.ModelName, "project", lc.GCPProject, "location", lc.GCPLocation)
		return llm.NewGeminiClient(ctx, llm.GeminiConfig{
			Project:     lc.GCPProject,
			Location:    lc.GCPLocation,
			Model:       lc.ModelName,
			Temperature: lc.Temperature,
		})
	}

	return nil, errors.New("unknown llm provider " + lc.Provider)
}
