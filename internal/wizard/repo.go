package wizard

import "context"

// Repo defines persistence operations for wizard sessions.
type Repo interface {
	Create(ctx context.Context, session Session) error
	GetByID(ctx context.Context, userID, sessionID string) (Session, error)
	Update(ctx context.Context, session Session) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Session, error)
}
