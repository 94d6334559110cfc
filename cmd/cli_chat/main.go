package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"chat-relay/internal/config"
	"chat-relay/internal/domain"
	"chat-relay/internal/llm"
	"chat-relay/internal/repository"
	"chat-relay/internal/service"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	backend, err := repository.Open(ctx, &cfg.StoreConfig, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer backend.Close()

	llmClient := llm.NewAnthropicClient(llm.Options{
		BaseURL:      cfg.LLMBaseURL,
		APIKey:       cfg.LLMAPIKey,
		Model:        cfg.LLMModel,
		MaxTokens:    cfg.LLMMaxTokens,
		SystemPrompt: cfg.LLMSystemPrompt,
		Timeout:      cfg.LLMTimeout,
	}, logger)
	chatSvc := service.NewChatService(backend.Store, llmClient, service.NewMemoryConversationLocker(), logger)

	for {
		fmt.Println("===== Conversaciones =====")
		summaries, err := backend.Store.GetConversations(ctx)
		if err != nil {
			log.Fatalf("listar conversaciones: %v", err)
		}
		for i, s := range summaries {
			fmt.Printf("[%d] %s\n", i+1, s.ConvoTitle)
		}
		fmt.Println("[N] Nueva conversacion")
		fmt.Println("[Q] Salir")
		fmt.Print("Selecciona una opcion: ")

		choice, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		choice = strings.TrimSpace(choice)

		var convo domain.Conversation
		switch {
		case strings.EqualFold(choice, "Q"):
			return
		case strings.EqualFold(choice, "N"):
			convo, err = backend.Store.CreateConversation(ctx)
			if err != nil {
				log.Fatalf("crear conversacion: %v", err)
			}
		default:
			idx, err := strconv.Atoi(choice)
			if err != nil || idx < 1 || idx > len(summaries) {
				fmt.Println("Seleccion invalida.")
				continue
			}
			convo, err = backend.Store.GetConversation(ctx, summaries[idx-1].ConvoID)
			if err != nil {
				fmt.Printf("Error abriendo conversacion: %v\n", err)
				continue
			}
		}

		if err := chatFlow(ctx, reader, os.Stdout, chatSvc, convo); err != nil {
			fmt.Printf("Error en chat: %v\n", err)
		}
	}
}

func chatFlow(ctx context.Context, reader *bufio.Reader, out io.Writer, chatSvc *service.ChatService, convo domain.Conversation) error {
	fmt.Fprintf(out, "\n--- Conversacion %s ---\n", convo.ID)
	for _, m := range convo.Messages {
		printMessage(out, m)
	}

	fmt.Fprintln(out, "---- Modo Chat (escribe 'salir' para volver al menu) ----")
	for {
		fmt.Fprint(out, "Tu > ")
		text, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("leer input: %w", err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if strings.EqualFold(text, "salir") || strings.EqualFold(text, "exit") {
			fmt.Fprintln(out, "Saliendo del chat...")
			return nil
		}

		updated, err := chatSvc.Chat(ctx, convo.ID, text)
		if err != nil {
			if errors.Is(err, llm.ErrBadCompletion) {
				fmt.Fprintln(out, "El modelo no devolvio texto (Bad prompt).")
				continue
			}
			fmt.Fprintf(out, "error generando respuesta: %v\n", err)
			continue
		}
		printMessage(out, updated.Messages[len(updated.Messages)-1])
	}
}

func printMessage(out io.Writer, m domain.Message) {
	if m.Role == domain.RoleAssistant {
		fmt.Fprintf(out, "Asistente > %s\n", m.Content)
		return
	}
	fmt.Fprintf(out, "Tu > %s\n", m.Content)
}
