package messaging

import (
	"context"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"
)

const defaultMemoryPartitions = 4

// MemoryBus is an in-process Bus with the same group and per-key ordering
// semantics as the broker backends. Each (topic, group) pair owns a fixed
// set of partitions; a partition is drained by one goroutine and handed to
// member p % len(members). Groups only see messages published after their
// first Subscribe.
type MemoryBus struct {
	logger     *zap.Logger
	partitions int

	mu      sync.RWMutex
	groups  map[string]map[string]*memoryGroup
	closing bool
	closed  bool

	// inflight counts queued and running deliveries across all groups.
	inflightMu sync.Mutex
	inflight   int
	idle       *sync.Cond

	ctx        context.Context
	handlerCtx context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	wg         sync.WaitGroup
}

type handlerKey struct{}

type memoryGroup struct {
	name    string
	mu      sync.RWMutex
	members []Handler
	parts   []*memoryPartition
}

type memoryPartition struct {
	mu     sync.Mutex
	queue  []Message
	notify chan struct{}
}

func NewMemoryBus(logger *zap.Logger, partitions int) *MemoryBus {
	if partitions <= 0 {
		partitions = defaultMemoryPartitions
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &MemoryBus{
		logger:     logger,
		partitions: partitions,
		groups:     make(map[string]map[string]*memoryGroup),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	b.idle = sync.NewCond(&b.inflightMu)
	b.handlerCtx = context.WithValue(ctx, handlerKey{}, b)
	return b
}

func (b *MemoryBus) Subscribe(topic, group string, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closing || b.closed {
		return ErrBusClosed
	}

	byGroup, ok := b.groups[topic]
	if !ok {
		byGroup = make(map[string]*memoryGroup)
		b.groups[topic] = byGroup
	}

	g, ok := byGroup[group]
	if !ok {
		g = &memoryGroup{name: group, parts: make([]*memoryPartition, b.partitions)}
		for i := range g.parts {
			g.parts[i] = &memoryPartition{notify: make(chan struct{}, 1)}
			b.wg.Add(1)
			go b.drain(g, i)
		}
		byGroup[group] = g
	}

	g.mu.Lock()
	g.members = append(g.members, h)
	g.mu.Unlock()

	b.logger.Info("👂 Subscribed", zap.String("topic", topic), zap.String("group", group))
	return nil
}

func (b *MemoryBus) Publish(ctx context.Context, topic, key string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed || (b.closing && !b.fromHandler(ctx)) {
		return ErrBusClosed
	}

	msg := Message{Topic: topic, Key: key, Value: payload, Headers: injectTrace(ctx)}
	idx := partitionFor(key, b.partitions)
	for _, g := range b.groups[topic] {
		b.track(1)
		g.parts[idx].push(msg)
	}
	return nil
}

// fromHandler reports whether ctx belongs to a delivery of this bus.
func (b *MemoryBus) fromHandler(ctx context.Context) bool {
	owner, _ := ctx.Value(handlerKey{}).(*MemoryBus)
	return owner == b
}

func (b *MemoryBus) track(delta int) {
	b.inflightMu.Lock()
	b.inflight += delta
	if b.inflight == 0 {
		b.idle.Broadcast()
	}
	b.inflightMu.Unlock()
}

func (b *MemoryBus) waitIdle() {
	b.inflightMu.Lock()
	for b.inflight > 0 {
		b.idle.Wait()
	}
	b.inflightMu.Unlock()
}

// Run blocks until ctx is done. Delivery starts at Subscribe.
func (b *MemoryBus) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-b.done:
	}
	return nil
}

// Close stops accepting messages from outside the bus and waits until every
// queued message has been handled. Handlers may still publish while the bus
// drains, and their messages are delivered before Close returns.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closing || b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closing = true
	b.mu.Unlock()

	b.waitIdle()

	b.mu.Lock()
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	b.wg.Wait()
	b.cancel()
	return nil
}

func (b *MemoryBus) drain(g *memoryGroup, idx int) {
	defer b.wg.Done()
	p := g.parts[idx]

	for {
		if msg, ok := p.pop(); ok {
			deliver(b.handlerCtx, b.logger, g.name, msg, g.owner(idx))
			b.track(-1)
			continue
		}
		select {
		case <-p.notify:
		case <-b.done:
			return
		}
	}
}

func (g *memoryGroup) owner(idx int) Handler {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.members[idx%len(g.members)]
}

func (p *memoryPartition) push(msg Message) {
	p.mu.Lock()
	p.queue = append(p.queue, msg)
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *memoryPartition) pop() (Message, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == 0 {
		return Message{}, false
	}
	msg := p.queue[0]
	p.queue[0] = Message{}
	p.queue = p.queue[1:]
	return msg, true
}

func partitionFor(key string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}
