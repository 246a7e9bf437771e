package shared

import (
	"context"
	"strings"
)

// SystemActor identifies work not triggered by a person, such as scheduled jobs.
const SystemActor = "system"

type actorContextKey struct{}

// Actor is the explicit caller identity carried by every mutating call.
type Actor struct {
	ID        string
	RequestID string
}

// ContextWithActor stores the caller identity in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	actor.ID = strings.TrimSpace(actor.ID)
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the caller identity. Calls without one are attributed to the system.
func ActorFromContext(ctx context.Context) Actor {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok || actor.ID == "" {
		actor.ID = SystemActor
	}
	return actor
}
