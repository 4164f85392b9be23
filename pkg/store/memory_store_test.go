package store

import (
	"testing"
	"time"

	"petwalk/pkg/domain"
)

func TestMemoryStoreUserIndexes(t *testing.T) {
	s := NewMemoryStore()
	u := domain.User{ID: "u1", Username: "ana", Email: "ana@example.com", Role: domain.RoleCustomer}
	if err := s.SaveUser(u); err != nil {
		t.Fatalf("save user: %v", err)
	}
	if ok, _ := s.HasUserEmail("ana@example.com"); !ok {
		t.Fatalf("expected email to exist")
	}
	if ok, _ := s.HasUsername("ana"); !ok {
		t.Fatalf("expected username to exist")
	}
	got, ok, err := s.GetUserByEmail("ana@example.com")
	if err != nil || !ok {
		t.Fatalf("get user by email: ok=%v err=%v", ok, err)
	}
	if got.ID != "u1" {
		t.Fatalf("unexpected user: %+v", got)
	}

	// Re-saving under a new email must drop the old index entry.
	u.Email = "ana2@example.com"
	if err := s.SaveUser(u); err != nil {
		t.Fatalf("update user: %v", err)
	}
	if ok, _ := s.HasUserEmail("ana@example.com"); ok {
		t.Fatalf("stale email index entry survived update")
	}
	if ok, _ := s.HasUserEmail("ana2@example.com"); !ok {
		t.Fatalf("expected new email to exist")
	}
}

func TestMemoryStoreCreateUserRejectsDuplicates(t *testing.T) {
	s := NewMemoryStore()
	if err := s.CreateUser(domain.User{ID: "u1", Username: "ana", Email: "ana@example.com"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.CreateUser(domain.User{ID: "u2", Username: "other", Email: "ana@example.com"}); err != ErrDuplicate {
		t.Fatalf("duplicate email: got %v, want ErrDuplicate", err)
	}
	if err := s.CreateUser(domain.User{ID: "u3", Username: "ana", Email: "ana2@example.com"}); err != ErrDuplicate {
		t.Fatalf("duplicate username: got %v, want ErrDuplicate", err)
	}
	if err := s.CreateUser(domain.User{ID: "u4", Username: "bea", Email: "bea@example.com"}); err != nil {
		t.Fatalf("distinct user: %v", err)
	}

	// SaveUser remains an upsert for the owning ID but must not steal
	// another user's indexes.
	if err := s.SaveUser(domain.User{ID: "u4", Username: "ana", Email: "bea@example.com"}); err != ErrDuplicate {
		t.Fatalf("save over foreign username: got %v, want ErrDuplicate", err)
	}
	if err := s.SaveUser(domain.User{ID: "u1", Username: "ana", Email: "ana@example.com", Role: domain.RoleWalker}); err != nil {
		t.Fatalf("self update: %v", err)
	}
}

func TestMemoryStoreDeleteRequestIsNoOpForUnknownID(t *testing.T) {
	s := NewMemoryStore()
	if err := s.SaveRequest(domain.WalkRequest{ID: "r1", OwnerID: "u1", Status: domain.StatusPending}); err != nil {
		t.Fatalf("save request: %v", err)
	}
	if err := s.DeleteRequest("missing"); err != nil {
		t.Fatalf("delete unknown id: %v", err)
	}
	reqs, err := s.ListRequestsByOwner("u1")
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if len(reqs) != 1 || reqs[0].ID != "r1" {
		t.Fatalf("unexpected requests after no-op delete: %+v", reqs)
	}

	if err := s.DeleteRequest("r1"); err != nil {
		t.Fatalf("delete r1: %v", err)
	}
	reqs, _ = s.ListRequestsByOwner("u1")
	if len(reqs) != 0 {
		t.Fatalf("expected empty list after delete, got %+v", reqs)
	}
}

func TestMemoryStoreTranscriptsAreScopedByRequestAndWalker(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now().UTC()
	msg := domain.ChatMessage{ID: "m1", RequestID: "r1", Walker: "Carlos", Sender: domain.SenderUser, Text: "hi", SentAt: now}
	if err := s.AppendMessage(msg); err != nil {
		t.Fatalf("append message: %v", err)
	}

	got, err := s.ListMessages("r1", "Carlos")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(got) != 1 || got[0].Text != "hi" {
		t.Fatalf("unexpected transcript: %+v", got)
	}

	// A different walker name under the same request is a distinct, empty transcript.
	other, err := s.ListMessages("r1", "Maria")
	if err != nil {
		t.Fatalf("list other transcript: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected empty transcript for different walker, got %+v", other)
	}
}

func TestMemoryStoreApplicationsByUserReturnsMostRecent(t *testing.T) {
	s := NewMemoryStore()
	if err := s.SaveApplication(domain.WalkerApplication{ID: "a1", UserID: "u1", Status: domain.ApplicationRejected}); err != nil {
		t.Fatalf("save application: %v", err)
	}
	if err := s.SaveApplication(domain.WalkerApplication{ID: "a2", UserID: "u1", Status: domain.ApplicationPending}); err != nil {
		t.Fatalf("save application: %v", err)
	}
	got, ok, err := s.GetApplicationByUser("u1")
	if err != nil || !ok {
		t.Fatalf("get application by user: ok=%v err=%v", ok, err)
	}
	if got.ID != "a2" {
		t.Fatalf("expected most recent application, got %q", got.ID)
	}

	pending, err := s.ListApplicationsByStatus(domain.ApplicationPending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "a2" {
		t.Fatalf("unexpected pending applications: %+v", pending)
	}
}
