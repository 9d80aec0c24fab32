package ws

import (
	"context"
	"log"
	"time"

	"serveease-chat/internal/chat"
	"serveease-chat/internal/models"
	"serveease-chat/internal/observability"
	"serveease-chat/internal/repositories"
)

// Sweeper periodically clears typing indicators that were never explicitly
// stopped, covering clients that crashed without a clean disconnect. Owned by
// the process: started once at startup, stopped at shutdown.
type Sweeper struct {
	typing      repositories.TypingRepository
	users       repositories.UserRepository
	broadcaster chat.Broadcaster
	interval    time.Duration
	maxAge      time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewSweeper constructs a Sweeper. maxAge is the staleness window after which
// an unrefreshed indicator is considered abandoned.
func NewSweeper(typing repositories.TypingRepository, users repositories.UserRepository, broadcaster chat.Broadcaster, interval, maxAge time.Duration) *Sweeper {
	return &Sweeper{
		typing:      typing,
		users:       users,
		broadcaster: broadcaster,
		interval:    interval,
		maxAge:      maxAge,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (s *Sweeper) Start() {
	go s.loop()
}

// Stop halts the loop and waits for it to finish.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sweeper) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.SweepOnce(context.Background()); err != nil {
				log.Printf("typing sweep: %v", err)
			}
		case <-s.stop:
			return
		}
	}
}

// SweepOnce runs a single sweep pass and broadcasts a stop event for every
// cleared indicator. Exposed so tests can trigger it deterministically.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	keys, err := s.typing.SweepStale(ctx, time.Now().Add(-s.maxAge))
	if err != nil {
		return 0, err
	}
	observability.AddTypingSwept(len(keys))

	for _, key := range keys {
		name := ""
		if user, err := s.users.GetUser(ctx, key.UserID); err == nil {
			name = user.Name
		}
		s.broadcaster.ToConversationExcept(key.ConversationID, key.UserID, models.ServerEvent{
			Type: models.EventUserTyping,
			Data: models.TypingEvent{
				ConversationID: key.ConversationID,
				UserID:         key.UserID,
				UserName:       name,
				IsTyping:       false,
			},
		})
	}
	return len(keys), nil
}
