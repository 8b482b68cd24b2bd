package gallery

import (
	"context"
	"fmt"
	"strings"

	"github.com/EgorLis/event-gallery/internal/domain"
)

// UpdateSettings applies the present fields of patch. An empty patch
// returns the session unchanged.
func (s *Service) UpdateSettings(ctx context.Context, id domain.SessionID, patch domain.SessionPatch) (domain.Session, error) {
	if patch.Name.Set {
		patch.Name.Value = strings.TrimSpace(patch.Name.Value)
		if patch.Name.Value == "" {
			return domain.Session{}, fmt.Errorf("name is empty: %w", domain.ErrBadParams)
		}
	}
	if patch.Mode.Set && !patch.Mode.Value.Valid() {
		return domain.Session{}, fmt.Errorf("mode %q: %w", patch.Mode.Value, domain.ErrBadParams)
	}

	sess, err := s.activeSession(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if patch.Empty() {
		return sess, nil
	}
	out, err := s.repo.UpdateSession(ctx, id, patch)
	if err != nil {
		return domain.Session{}, err
	}
	s.log.Printf("settings updated session=%s", id)
	return out, nil
}
