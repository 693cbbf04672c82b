package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/demand-service/internal/domain"
)

func ticketKey(id int64) string                  { return fmt.Sprintf("ticket:%d", id) }
func requesterTicketsKey(id int64) string        { return fmt.Sprintf("tickets:requester:%d", id) }
func requesterDeptTicketsKey(dept string) string { return "tickets:requester-dept:" + dept }
func resolverTicketsKey(id int64) string         { return fmt.Sprintf("tickets:resolver:%d", id) }
func resolverDeptTicketsKey(dept string) string  { return "tickets:resolver-dept:" + dept }

type cachedTicketRepository struct {
	TicketRepository
	cache *jsonCache
}

// NewCachedTicketRepository wraps next with cache-aside reads. Writes drop
// every key the ticket may appear under. OpenWorkload is never cached.
func NewCachedTicketRepository(next TicketRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) TicketRepository {
	return &cachedTicketRepository{TicketRepository: next, cache: newJSONCache(client, ttl, logger)}
}

func (r *cachedTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := r.TicketRepository.Create(ctx, ticket); err != nil {
		return err
	}
	r.cache.invalidate(ctx, ticketKeys(ticket)...)
	return nil
}

func (r *cachedTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	err := r.TicketRepository.Update(ctx, ticket)
	// A stale version means the cached copy is outdated too.
	r.cache.invalidate(ctx, ticketKeys(ticket)...)
	return err
}

func (r *cachedTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return cached(ctx, r.cache, ticketKey(id), func() (*domain.Ticket, error) {
		return r.TicketRepository.GetByID(ctx, id)
	})
}

func (r *cachedTicketRepository) ListByRequester(ctx context.Context, requesterID int64) ([]domain.Ticket, error) {
	return cached(ctx, r.cache, requesterTicketsKey(requesterID), func() ([]domain.Ticket, error) {
		return r.TicketRepository.ListByRequester(ctx, requesterID)
	})
}

func (r *cachedTicketRepository) ListByRequesterDepartment(ctx context.Context, department string) ([]domain.Ticket, error) {
	return cached(ctx, r.cache, requesterDeptTicketsKey(department), func() ([]domain.Ticket, error) {
		return r.TicketRepository.ListByRequesterDepartment(ctx, department)
	})
}

func (r *cachedTicketRepository) ListByResolver(ctx context.Context, resolverID int64) ([]domain.Ticket, error) {
	return cached(ctx, r.cache, resolverTicketsKey(resolverID), func() ([]domain.Ticket, error) {
		return r.TicketRepository.ListByResolver(ctx, resolverID)
	})
}

func (r *cachedTicketRepository) ListByResolverDepartment(ctx context.Context, department string) ([]domain.Ticket, error) {
	return cached(ctx, r.cache, resolverDeptTicketsKey(department), func() ([]domain.Ticket, error) {
		return r.TicketRepository.ListByResolverDepartment(ctx, department)
	})
}

// ticketKeys lists the cache keys a ticket can be found under, including the
// lists of every resolver it has passed through.
func ticketKeys(ticket *domain.Ticket) []string {
	keys := []string{
		requesterTicketsKey(ticket.RequesterID),
		requesterDeptTicketsKey(ticket.RequesterDepartment),
		resolverDeptTicketsKey(ticket.ResolverDepartment),
	}
	if ticket.ID != 0 {
		keys = append(keys, ticketKey(ticket.ID))
	}
	seen := map[int64]bool{}
	addResolver := func(id *int64) {
		if id == nil || seen[*id] {
			return
		}
		seen[*id] = true
		keys = append(keys, resolverTicketsKey(*id))
	}
	addResolver(ticket.ResolverID)
	for _, ev := range ticket.Events {
		addResolver(ev.ResolverID)
	}
	return keys
}
