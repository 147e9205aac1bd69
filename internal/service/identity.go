package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"stationrent-backend/internal/clock"
	"stationrent-backend/internal/repository"
)

type identityVerifier struct {
	userRepo repository.UserRepository
	clock    clock.Clock
}

// NewIdentityVerifier checks identity documents already on file. Document
// capture and verification happen elsewhere.
func NewIdentityVerifier(userRepo repository.UserRepository, clk clock.Clock) IdentityVerifier {
	return &identityVerifier{userRepo: userRepo, clock: clk}
}

func (v *identityVerifier) AcceptsDocument(ctx context.Context, userID, documentID uuid.UUID) (bool, error) {
	docs, err := v.userRepo.ListDocuments(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to list identity documents: %w", err)
	}
	for i := range docs {
		if docs[i].ID == documentID {
			return docs[i].ValidAt(v.clock.Now()), nil
		}
	}
	return false, nil
}
