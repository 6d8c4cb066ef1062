package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"voice-aftercare/dao"
	"voice-aftercare/model"
)

// ChatService text-channel session lifecycle over a SessionStore. Turns of one
// session are serialized; different sessions run in parallel.
type ChatService struct {
	dialogue *Dialogue
	store    dao.SessionStore
	archive  dao.ArchiveStore
	log      *zap.SugaredLogger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is dropped from the map once nobody holds or waits on it
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewChatService(dialogue *Dialogue, store dao.SessionStore, archive dao.ArchiveStore, logger *zap.SugaredLogger) *ChatService {
	if archive == nil {
		archive = dao.NoopArchive{}
	}
	return &ChatService{
		dialogue: dialogue,
		store:    store,
		archive:  archive,
		log:      logger,
		locks:    make(map[string]*sessionLock),
	}
}

// StartSession creates and stores a new session
func (s *ChatService) StartSession(ctx context.Context) (*model.SessionResponse, error) {
	st := s.dialogue.Start()
	if err := s.store.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save new session: %w", err)
	}
	return &model.SessionResponse{
		SessionID: st.SessionID,
		Stage:     st.Stage,
		Greeting:  st.LastMessage(model.RoleAssistant),
	}, nil
}

// HandleTurn runs one utterance through the dialogue and persists the result
func (s *ChatService) HandleTurn(ctx context.Context, sessionID, text string) (*model.TurnResponse, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	st, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	next, res := s.dialogue.HandleTurn(ctx, st, text)
	archive := res.Ended && !next.Archived
	if archive {
		if next.EndReason == model.EndNone {
			next.EndReason = res.EndReason
		}
		next.Archived = true
	}

	if err := s.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if archive {
		s.saveArchive(ctx, next)
	}
	return &model.TurnResponse{SessionID: sessionID, TurnResult: *res}, nil
}

// GetSession current state snapshot
func (s *ChatService) GetSession(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	return s.store.Get(ctx, sessionID)
}

// EndSession closes the session, archives it unless already archived and drops it from the store.
// The closing text is empty when the dialogue had already finished.
func (s *ChatService) EndSession(ctx context.Context, sessionID string) (*model.ConversationState, string, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	st, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}

	next, text := s.dialogue.Close(st, model.EndClosed)
	if !next.Archived {
		next.Archived = true
		s.saveArchive(ctx, next)
	}
	if err := s.store.Delete(ctx, sessionID); err != nil && !errors.Is(err, dao.ErrSessionNotFound) {
		return nil, "", fmt.Errorf("delete session: %w", err)
	}
	s.log.Infof("[Chat] session=%s 상담 종료: %s", sessionID, next.EndReason)
	return next, text, nil
}

// Archive finished consultations, newest first
func (s *ChatService) Archive(ctx context.Context, limit int) ([]model.ArchiveRecord, error) {
	return s.archive.List(ctx, limit)
}

// ArchivedSession one finished consultation with its transcript
func (s *ChatService) ArchivedSession(ctx context.Context, sessionID string) (*model.ArchiveRecord, error) {
	return s.archive.Get(ctx, sessionID)
}

func (s *ChatService) saveArchive(ctx context.Context, st *model.ConversationState) {
	if err := s.archive.Save(ctx, st.Archive(s.dialogue.now())); err != nil {
		s.log.Errorf("[Chat] session=%s 상담 기록 저장 실패: %v", st.SessionID, err)
	}
}

func (s *ChatService) lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}

func (s *ChatService) lockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
