package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/shizhouxing/project-enigma/internal/domain"
	"github.com/shizhouxing/project-enigma/internal/registry"
	"github.com/shizhouxing/project-enigma/internal/repository"
)

// Catalog ids seeded by SeedCatalog.
const (
	TextJudgeID  = "judge_text"
	ToolJudgeID  = "judge_refund"
	TextGameID   = "game_text"
	ToolGameID   = "game_refund"
	TextModelID  = "model_text"
	ToolModelID  = "model_tools"
	MockProvider = "mock"
)

// NewTestStore creates an in-memory SQLite store closed at test cleanup.
func NewTestStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	store, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// SeedCatalog writes one text-matching game and one function-call game.
func SeedCatalog(t *testing.T, store repository.Store) {
	t.Helper()
	ctx := context.Background()

	judges := []domain.Judge{
		{ID: TextJudgeID, Name: "Say the words", Active: true,
			Sampler: domain.FunctionRef{Name: registry.SamplerBadWord}, Validator: domain.FunctionRef{Name: registry.ValidatorTarget}},
		{ID: ToolJudgeID, Name: "No refunds", Active: true,
			Sampler: domain.FunctionRef{Name: registry.NoRefundSamplerName(registry.LevelEasy)}, Validator: domain.FunctionRef{Name: registry.ValidatorNoRefundTarget}},
	}
	for i := range judges {
		if err := store.UpsertJudge(ctx, &judges[i]); err != nil {
			t.Fatalf("UpsertJudge: %v", err)
		}
	}

	games := []domain.Game{
		{ID: TextGameID, Name: "Bad word", JudgeID: TextJudgeID, SessionDescription: "Make the model say",
			Metadata: domain.GameMetadata{GameRules: domain.GameRules{Deterministic: true}}},
		{ID: ToolGameID, Name: "No refund", JudgeID: ToolJudgeID, SessionDescription: "Get a refund you are not owed.",
			Metadata: domain.GameMetadata{GameRules: domain.GameRules{ToolsEnabled: true}}},
	}
	for i := range games {
		if err := store.UpsertGame(ctx, &games[i]); err != nil {
			t.Fatalf("UpsertGame: %v", err)
		}
	}

	models := []domain.Model{
		{ID: TextModelID, Name: "Echo", Provider: MockProvider, ModelName: "echo", Available: true},
		{ID: ToolModelID, Name: "Echo tools", Provider: MockProvider, ModelName: "echo-tools", Available: true, Tools: true},
	}
	for i := range models {
		if err := store.UpsertModel(ctx, &models[i]); err != nil {
			t.Fatalf("UpsertModel: %v", err)
		}
	}
}

// NewTestRegistry returns the default registry or fails the test.
func NewTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.NewDefault(context.Background())
	if err != nil {
		t.Fatalf("NewDefault: %v", err)
	}
	return reg
}

// InsertSession stores an in-progress session owned by userID with explicit
// validator kwargs, on the tool game when tools is set.
func InsertSession(t *testing.T, store repository.Store, id, userID string, tools bool, kwargs map[string]any) *domain.GameSession {
	t.Helper()
	s := &domain.GameSession{
		ID:      id,
		UserID:  userID,
		GameID:  TextGameID,
		JudgeID: TextJudgeID,
		AgentID: TextModelID,
		History: []domain.ChatMessage{},
		Metadata: domain.SessionMetadata{
			ModelConfig: domain.ModelConfig{SystemPrompt: "You are a careful agent."},
			Kwargs:      kwargs,
		},
		CreateTime: time.Now().UTC(),
		Visible:    true,
	}
	if tools {
		s.GameID = ToolGameID
		s.JudgeID = ToolJudgeID
		s.AgentID = ToolModelID
		s.Metadata.ModelConfig.ToolsConfig = domain.ToolsConfig{Enabled: true}
	}
	if err := store.CreateSession(context.Background(), s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return s
}
