package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"chat-relay/internal/config"
	"chat-relay/internal/domain"
	"chat-relay/internal/repository"
)

// Scenario es una verificacion del contrato del store contra el backend configurado.
type Scenario struct {
	Name string
	Run  func(ctx context.Context, store repository.ConversationStore) error
}

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadStoreConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	backend, err := repository.Open(ctx, cfg, zap.NewNop())
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer backend.Close()

	if err := backend.Ping(ctx); err != nil {
		log.Fatalf("store ping: %v", err)
	}

	scenarios := []Scenario{
		{Name: "Transcript vacio al crear", Run: checkCreateEmpty},
		{Name: "Orden de append", Run: checkAppendOrder},
		{Name: "Id inexistente", Run: checkMissing},
		{Name: "Listado incluye conversaciones nuevas", Run: checkListing},
	}

	passed := 0
	total := len(scenarios)

	fmt.Printf("Backend: %s\n\n", backend.Name)
	for _, sc := range scenarios {
		fmt.Printf("=== Ejecutando: %s ===\n", sc.Name)
		runCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := sc.Run(runCtx, backend.Store)
		cancel()
		if err != nil {
			fmt.Printf("❌ FAIL [%s] %v\n\n", sc.Name, err)
			continue
		}
		fmt.Printf("✅ PASS [%s]\n\n", sc.Name)
		passed++
	}

	fmt.Printf("Tests: %d/%d pasaron\n", passed, total)
	if passed != total {
		os.Exit(1)
	}
}

func checkCreateEmpty(ctx context.Context, store repository.ConversationStore) error {
	convo, err := store.CreateConversation(ctx)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	fetched, err := store.GetConversation(ctx, convo.ID)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	if len(fetched.Messages) != 0 {
		return fmt.Errorf("expected empty transcript, got %d messages", len(fetched.Messages))
	}
	if fetched.Title != convo.ID {
		return fmt.Errorf("expected title %q, got %q", convo.ID, fetched.Title)
	}
	return nil
}

func checkAppendOrder(ctx context.Context, store repository.ConversationStore) error {
	convo, err := store.CreateConversation(ctx)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	want := []domain.Message{
		{Role: domain.RoleUser, Content: "hello"},
		{Role: domain.RoleAssistant, Content: "hi there"},
		{Role: domain.RoleUser, Content: "bye"},
	}
	for _, m := range want {
		if _, err := store.AddMessageToConversation(ctx, convo.ID, m); err != nil {
			return fmt.Errorf("append: %w", err)
		}
	}
	fetched, err := store.GetConversation(ctx, convo.ID)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	if len(fetched.Messages) != len(want) {
		return fmt.Errorf("expected %d messages, got %d", len(want), len(fetched.Messages))
	}
	for i := range want {
		if fetched.Messages[i] != want[i] {
			return fmt.Errorf("message %d: expected %+v, got %+v", i, want[i], fetched.Messages[i])
		}
	}
	return nil
}

func checkMissing(ctx context.Context, store repository.ConversationStore) error {
	_, err := store.GetConversation(ctx, uuid.NewString())
	if !errors.Is(err, repository.ErrConversationNotFound) {
		return fmt.Errorf("expected not found, got %v", err)
	}
	_, err = store.AddMessageToConversation(ctx, uuid.NewString(), domain.Message{Role: domain.RoleUser, Content: "x"})
	if !errors.Is(err, repository.ErrConversationNotFound) {
		return fmt.Errorf("expected not found on append, got %v", err)
	}
	return nil
}

func checkListing(ctx context.Context, store repository.ConversationStore) error {
	created := make(map[string]bool)
	for i := 0; i < 3; i++ {
		convo, err := store.CreateConversation(ctx)
		if err != nil {
			return fmt.Errorf("create: %w", err)
		}
		created[convo.ID] = true
	}
	summaries, err := store.GetConversations(ctx)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	seen := make(map[string]int)
	for _, s := range summaries {
		seen[s.ConvoID]++
	}
	for id := range created {
		if seen[id] != 1 {
			return fmt.Errorf("conversation %s listed %d times", id, seen[id])
		}
	}
	return nil
}
