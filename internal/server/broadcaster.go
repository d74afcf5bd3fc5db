package server

import "sync"

// broadcaster tracks which sessions belong to which game and fans frames
// out to them. Each game has its own channel entry with its own lock, so
// broadcasts for unrelated games never queue behind each other, while
// broadcasts for one game are delivered in commit order.
type broadcaster struct {
	mu    sync.Mutex
	games map[string]*gameChannel
}

type gameChannel struct {
	mu       sync.Mutex
	sessions map[*session]struct{}
	// lastRev is the highest commit revision broadcast so far; frames
	// carrying an older revision are dropped so no session ever observes
	// a state older than one it already received.
	lastRev uint64

	// sendMu serializes the write phase so frames for one game go out in
	// commit order. It is separate from mu so a slow peer never blocks
	// register, remove or the read loop's cleanup.
	sendMu sync.Mutex
}

func newBroadcaster() *broadcaster {
	return &broadcaster{games: make(map[string]*gameChannel)}
}

func (b *broadcaster) channel(gameID string) *gameChannel {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.games[gameID]
	if !ok {
		ch = &gameChannel{sessions: make(map[*session]struct{})}
		b.games[gameID] = ch
	}
	return ch
}

// register adds the session to a game's broadcast set, removing it from
// any previous game first.
func (b *broadcaster) register(s *session, gameID string) {
	if prev, _ := s.identity(); prev != "" && prev != gameID {
		b.remove(s)
	}
	ch := b.channel(gameID)
	ch.mu.Lock()
	ch.sessions[s] = struct{}{}
	ch.mu.Unlock()
}

// remove drops a session from its game's broadcast set, if any. Game
// state is unaffected; a disconnected player simply stops receiving
// pushes.
func (b *broadcaster) remove(s *session) {
	gameID, _ := s.identity()
	if gameID == "" {
		return
	}
	b.mu.Lock()
	ch, ok := b.games[gameID]
	b.mu.Unlock()
	if !ok {
		return
	}
	ch.mu.Lock()
	delete(ch.sessions, s)
	ch.mu.Unlock()
}

// broadcast sends one frame per registered session, built per session so
// a frame can differ for its addressee; a nil frame skips that session.
// rev orders deliveries: a frame older than one already sent for this
// game is suppressed.
func (b *broadcaster) broadcast(gameID string, rev uint64, frame func(*session) interface{}) {
	ch := b.channel(gameID)
	ch.sendMu.Lock()
	defer ch.sendMu.Unlock()

	ch.mu.Lock()
	if rev <= ch.lastRev {
		ch.mu.Unlock()
		return
	}
	ch.lastRev = rev
	targets := make([]*session, 0, len(ch.sessions))
	for s := range ch.sessions {
		targets = append(targets, s)
	}
	ch.mu.Unlock()

	// Writes happen off the set lock. Each write is bounded by the
	// session's write deadline, so one dead peer cannot stall the game's
	// fan-out forever, and membership changes proceed immediately.
	for _, s := range targets {
		if f := frame(s); f != nil {
			s.send(f)
		}
	}
}

// count returns the number of sessions registered for a game.
func (b *broadcaster) count(gameID string) int {
	b.mu.Lock()
	ch, ok := b.games[gameID]
	b.mu.Unlock()
	if !ok {
		return 0
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.sessions)
}
