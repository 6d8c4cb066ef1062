package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"voice-aftercare/dao"
	"voice-aftercare/model"
	"voice-aftercare/service/flows"
)

func newTestChat(t *testing.T) (*ChatService, *memArchive) {
	t.Helper()
	archive := &memArchive{}
	d := newTestDialogue(t, nil, nil)
	return NewChatService(d, dao.NewMemoryStore(time.Hour), archive, zap.NewNop().Sugar()), archive
}

func TestChatSessionLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, archive := newTestChat(t)

	start, err := svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if start.Greeting != flows.GreetingText || start.Stage != model.StageGreeting {
		t.Errorf("StartSession = %+v", start)
	}

	var res *model.TurnResponse
	for _, text := range []string{"전화 받았는데 확인하고 싶어요", "네", "300만원", "어제", "아니요", "아니요"} {
		res, err = svc.HandleTurn(ctx, start.SessionID, text)
		if err != nil {
			t.Fatalf("HandleTurn(%q): %v", text, err)
		}
	}
	if !res.Ended || res.Stage != model.StageComplete {
		t.Fatalf("last turn = %+v", res.TurnResult)
	}
	if archive.len() != 1 {
		t.Fatalf("archived %d records after completion, want 1", archive.len())
	}
	if n := svc.lockCount(); n != 0 {
		t.Errorf("%d session locks held after completion, want 0", n)
	}

	// post-completion turns answer but never archive twice
	res, err = svc.HandleTurn(ctx, start.SessionID, "고맙습니다")
	if err != nil {
		t.Fatalf("post-completion turn: %v", err)
	}
	if res.Reply != flows.TerminalText {
		t.Errorf("post-completion reply = %q", res.Reply)
	}

	st, err := svc.GetSession(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if !st.Archived || st.EndReason != model.EndComplete {
		t.Errorf("stored state archived=%v reason=%s", st.Archived, st.EndReason)
	}

	if _, _, err := svc.EndSession(ctx, start.SessionID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if archive.len() != 1 {
		t.Errorf("EndSession archived a finished session again")
	}
	if _, err := svc.GetSession(ctx, start.SessionID); !errors.Is(err, dao.ErrSessionNotFound) {
		t.Errorf("GetSession after end err = %v", err)
	}
}

func TestChatEndSessionEarly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, archive := newTestChat(t)
	start, _ := svc.StartSession(ctx)
	svc.HandleTurn(ctx, start.SessionID, "사기 당해서 계좌이체 했어요")

	st, text, err := svc.EndSession(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if st.EndReason != model.EndClosed || text == "" {
		t.Errorf("EndSession reason=%s text=%q", st.EndReason, text)
	}
	recs, _ := archive.List(ctx, 10)
	if len(recs) != 1 || recs[0].EndReason != model.EndClosed || !recs[0].IsEmergency {
		t.Errorf("archive = %+v", recs)
	}
}

func TestChatUnknownSession(t *testing.T) {
	t.Parallel()

	svc, _ := newTestChat(t)
	if _, err := svc.HandleTurn(context.Background(), "nope", "안녕하세요"); !errors.Is(err, dao.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
	if n := svc.lockCount(); n != 0 {
		t.Errorf("lookup of an expired session left %d locks", n)
	}
}

func TestChatConcurrentTurnsAreSerialized(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestChat(t)
	start, _ := svc.StartSession(ctx)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.HandleTurn(ctx, start.SessionID, "음 잘 모르겠어요"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent turn: %v", err)
	}

	st, err := svc.GetSession(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if st.Turns != n {
		t.Errorf("Turns = %d, want %d", st.Turns, n)
	}
	if got := svc.lockCount(); got != 0 {
		t.Errorf("%d session locks left after turns finished, want 0", got)
	}
}
