package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vdavid/chatsync/internal/config"
	"github.com/vdavid/chatsync/internal/models"
	"github.com/vdavid/chatsync/internal/testutil"
)

type seedUser struct {
	id   string
	name string
}

var seedUsers = []seedUser{
	{id: "alice", name: "Alice"},
	{id: "bob", name: "Bob"},
	{id: "carol", name: "Carol"},
}

func main() {
	if err := setupTestEnvironment(); err != nil {
		log.Fatalf("Failed to setup test environment: %v", err)
	}

	port := os.Getenv("CHATSYNC_TEST_SERVER_PORT")
	secret := os.Getenv("CHATSYNC_TEST_SERVER_SECRET")

	server := testutil.NewChatServer(secret)
	tokens := seedTestData(server)

	baseURL := "http://localhost:" + port
	log.Printf("Test server: chat backend on %s (socket %s)", baseURL, config.DeriveWebSocketURL(baseURL))
	for _, u := range seedUsers {
		fmt.Printf("CHATSYNC_USER_ID=%s CHATSYNC_USER_NAME=%s CHATSYNC_ACCESS_TOKEN=%s\n", u.id, u.name, tokens[u.id])
	}

	if err := startHTTPServer(":"+port, server); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// setupTestEnvironment fills in defaults for the variables the server reads.
func setupTestEnvironment() error {
	defaults := map[string]string{
		"CHATSYNC_TEST_SERVER_PORT":   "8080",
		"CHATSYNC_TEST_SERVER_SECRET": "chatsync-dev-secret",
	}
	for key, value := range defaults {
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

// seedTestData creates the demo users and conversations and returns a token per user.
func seedTestData(server *testutil.ChatServer) map[string]string {
	tokens := make(map[string]string, len(seedUsers))
	for _, u := range seedUsers {
		tokens[u.id] = server.AddUser(u.id, u.name)
	}

	server.AddConversation(models.Conversation{
		ID:           "direct-alice-bob",
		Type:         models.ConversationDirect,
		Participants: []models.Participant{{UserID: "alice"}, {UserID: "bob"}},
	})
	server.AddConversation(models.Conversation{
		ID:   "team",
		Name: "Team",
		Type: models.ConversationGroup,
		Participants: []models.Participant{
			{UserID: "alice"},
			{UserID: "bob"},
			{UserID: "carol"},
		},
	})
	return tokens
}

func startHTTPServer(addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("Test server: shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
