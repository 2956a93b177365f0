package memory

import (
	"context"
	"sync"
	"time"

	"bloodlink/internal/domain"
)

// ActorRepository is an in-memory implementation of store.ActorRepository.
type ActorRepository struct {
	mu     sync.RWMutex
	actors map[string]*domain.Actor
}

// NewActorRepository creates a new in-memory actor repository.
func NewActorRepository() *ActorRepository {
	return &ActorRepository{
		actors: make(map[string]*domain.Actor),
	}
}

// Put stores an actor snapshot. Actors are owned by the external account
// system; this is the seam tests and dev setups use to load them.
func (r *ActorRepository) Put(actor *domain.Actor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors[actor.ID] = copyActor(actor)
}

// GetByID retrieves an actor snapshot.
func (r *ActorRepository) GetByID(ctx context.Context, id string) (*domain.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actor, exists := r.actors[id]
	if !exists {
		return nil, domain.ErrActorNotFound
	}
	return copyActor(actor), nil
}

// List retrieves actors matching the filter criteria.
func (r *ActorRepository) List(ctx context.Context, filter domain.ActorFilter) ([]*domain.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*domain.Actor
	for _, actor := range r.actors {
		if filter.Role != "" && actor.Role != filter.Role {
			continue
		}
		if filter.BloodType != "" && actor.BloodType != filter.BloodType {
			continue
		}
		if filter.Active != nil && actor.Active != *filter.Active {
			continue
		}
		results = append(results, copyActor(actor))
	}
	return results, nil
}

// UpdatePushToken stores a new notification channel token.
func (r *ActorRepository) UpdatePushToken(ctx context.Context, id, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	actor, exists := r.actors[id]
	if !exists {
		return domain.ErrActorNotFound
	}
	actor.PushToken = token
	actor.UpdatedAt = time.Now().UTC()
	return nil
}

// Clear removes all data from the repository. Useful for test cleanup.
func (r *ActorRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors = make(map[string]*domain.Actor)
}

func copyActor(a *domain.Actor) *domain.Actor {
	c := *a
	if a.Location != nil {
		loc := *a.Location
		c.Location = &loc
	}
	return &c
}
