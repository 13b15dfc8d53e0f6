package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vdavid/chatsync/internal/api"
	"github.com/vdavid/chatsync/internal/auth"
	"github.com/vdavid/chatsync/internal/chat"
	"github.com/vdavid/chatsync/internal/config"
	"github.com/vdavid/chatsync/internal/realtime"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		metricsServer := startMetricsServer(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	a := newApp(cfg, os.Stdout)
	defer a.close()

	log.Printf("chatsync starting for user %s against %s (environment: %s)", cfg.UserID, cfg.APIURL, cfg.Environment)
	a.start(ctx)

	if err := a.run(ctx, os.Stdin); err != nil {
		log.Fatalf("chatsync failed: %v", err)
	}
}

// app is one signed-in chat session: the store, the command layer and the
// socket that feeds the store.
type app struct {
	cfg       *config.Config
	session   *auth.Session
	store     *chat.Store
	commander *chat.Commander
	manager   *realtime.Manager
	typing    *chat.TypingNotifier
	out       io.Writer
	outMu     sync.Mutex

	unbind      func()
	unsubscribe func()
	rendered    chan struct{}
}

func newApp(cfg *config.Config, out io.Writer) *app {
	session := auth.NewSession(cfg.AccessToken, cfg.UserID, cfg.UserName)
	rest := api.NewClient(cfg.APIURL, session, cfg.RequestTimeout)
	store := chat.NewStore(chat.NewState(cfg.UserID))
	manager := realtime.NewManager(realtime.Config{
		URL:             cfg.WebSocketURL,
		Tokens:          session,
		InitialInterval: cfg.ReconnectInitial,
		MaxInterval:     cfg.ReconnectMax,
	})

	commander := chat.NewCommander(store, chat.Dependencies{
		Chat:           rest,
		Drive:          rest,
		Trash:          rest,
		Governance:     rest,
		Classifier:     rest,
		Transport:      manager,
		Session:        session,
		RequestTimeout: cfg.RequestTimeout,
	})

	return &app{
		cfg:       cfg,
		session:   session,
		store:     store,
		commander: commander,
		manager:   manager,
		typing:    chat.NewTypingNotifier(manager, cfg.TypingTimeout),
		out:       out,
		unbind:    realtime.Bind(manager, store),
		rendered:  make(chan struct{}),
	}
}

// start connects the socket, loads the conversation list and begins printing
// state changes. A failed first dial is not fatal: the manager keeps retrying
// and the REST side still works.
func (a *app) start(ctx context.Context) {
	updates, unsubscribe := a.store.Subscribe()
	a.unsubscribe = unsubscribe
	go a.render(updates)

	if err := a.manager.Connect(ctx); err != nil {
		log.Printf("chatsync: socket unavailable, retrying in background: %v", err)
	}

	conversations, err := a.commander.LoadConversations(ctx)
	if err != nil {
		a.printf("! failed to load conversations: %v\n", err)
		return
	}
	a.printf("%d conversations, %d unread. Type /help for commands.\n", len(conversations), chat.TotalUnread(a.store.State()))
}

func (a *app) close() {
	a.typing.Close()
	a.manager.Disconnect()
	a.unbind()
	if a.unsubscribe != nil {
		a.unsubscribe()
		<-a.rendered
	}
}

// run reads commands until EOF, /quit or ctx cancellation.
func (a *app) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			cmd, err := parseCommand(line)
			if errors.Is(err, errEmptyInput) {
				continue
			}
			if err != nil {
				a.printf("! %v\n", err)
				continue
			}
			quit, err := a.execute(ctx, cmd)
			if err != nil {
				a.printf("! %s: %v\n", chat.Classify(err), err)
			}
			if quit {
				return nil
			}
		}
	}
}

// render prints what changed between consecutive snapshots.
func (a *app) render(updates <-chan *chat.State) {
	defer close(a.rendered)

	prev := a.store.State()
	for next := range updates {
		for _, line := range renderUpdates(prev, next) {
			a.printf("%s\n", line)
		}
		prev = next
	}
}

func (a *app) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("chatsync metrics listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("chatsync: metrics server failed: %v", err)
		}
	}()
	return server
}
