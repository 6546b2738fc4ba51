package broadcast

import (
	"context"
	"sync"

	"github.com/sokinpui/molgen.go/internal/models"
)

// Memory is an in-process broadcast group. It backs single-rank runs and
// lets tests drive multiple role loops as goroutines without a transport.
type Memory struct {
	mu      sync.Mutex
	members []*memoryMember
}

func NewMemory() *Memory {
	return &Memory{}
}

// Join adds a member to the group and returns its handle. All members must
// join before the first Publish.
func (m *Memory) Join() Broadcaster {
	m.mu.Lock()
	defer m.mu.Unlock()

	member := &memoryMember{
		group: m,
		ch:    make(chan *models.RoundMessage, 16),
	}
	m.members = append(m.members, member)
	return member
}

type memoryMember struct {
	group *Memory
	ch    chan *models.RoundMessage
}

func (s *memoryMember) Publish(ctx context.Context, msg *models.RoundMessage) error {
	s.group.mu.Lock()
	members := make([]*memoryMember, len(s.group.members))
	copy(members, s.group.members)
	s.group.mu.Unlock()

	for _, member := range members {
		if member == s {
			continue
		}
		select {
		case member.ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *memoryMember) Receive(ctx context.Context) (*models.RoundMessage, error) {
	select {
	case msg := <-s.ch:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *memoryMember) Close() error {
	return nil
}
