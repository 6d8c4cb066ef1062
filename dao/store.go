// Package dao persists conversation state and finished consultations.
package dao

import (
	"context"
	"errors"
	"fmt"

	"voice-aftercare/model"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionConflict = errors.New("session conflict: stored session is newer")
	ErrMaxRetries      = errors.New("max retries exceeded")
	ErrInvalidSession  = errors.New("invalid session")
	ErrInvalidParam    = errors.New("invalid parameter")
)

// SessionStore keeps live sessions. Save is optimistic: the caller's Version must
// match the stored one, and on success both advance by one.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*model.ConversationState, error)
	Save(ctx context.Context, st *model.ConversationState) error
	Delete(ctx context.Context, sessionID string) error
}

// ArchiveStore keeps finished consultations
type ArchiveStore interface {
	Save(ctx context.Context, rec model.ArchiveRecord) error
	List(ctx context.Context, limit int) ([]model.ArchiveRecord, error)
	Get(ctx context.Context, sessionID string) (*model.ArchiveRecord, error)
}

func validateSession(st *model.ConversationState) error {
	if st == nil {
		return fmt.Errorf("%w: session is nil", ErrInvalidSession)
	}
	if st.SessionID == "" {
		return fmt.Errorf("%w: session id is empty", ErrInvalidSession)
	}
	return nil
}

func validateID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: sessionID is empty", ErrInvalidParam)
	}
	return nil
}
