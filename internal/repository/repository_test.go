package repository

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-tracker/internal/domain"
	"github.com/spec-kit/incident-tracker/internal/persistence"
)

func TestTicketRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemoryStore()
	repo := NewTicketRepository(store, zap.NewNop())

	zone := time.FixedZone("UTC+5:30", 5*3600+1800)
	created := time.Date(2024, 3, 1, 9, 0, 0, 123456789, zone)
	resolved := created.Add(6 * time.Hour)
	assignee := "sarah.tech@company.com"
	want := domain.Ticket{
		ID:          "INC-1",
		Title:       "Database Connection Timeout",
		Description: "timeouts",
		Priority:    domain.TicketPriorityP1,
		Status:      domain.TicketStatusResolved,
		AssignedTo:  &assignee,
		ReportedBy:  "john.doe@company.com",
		CreatedAt:   created,
		UpdatedAt:   resolved,
		ResolvedAt:  &resolved,
		Category:    "Infrastructure",
		Tags:        []string{"database", "production"},
		SLADeadline: domain.SLADeadline(domain.TicketPriorityP1, created),
		Escalated:   true,
		Comments: []domain.Comment{
			{ID: "CMT-1", TicketID: "INC-1", Author: "sarah", Content: "looking", CreatedAt: created.Add(time.Minute), Internal: true},
			{ID: "CMT-2", TicketID: "INC-1", Author: "john", Content: "thanks", CreatedAt: created.Add(2 * time.Minute)},
		},
	}

	if err := repo.SaveAll(ctx, []domain.Ticket{want}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d", len(got))
	}
	g := got[0]
	for name, pair := range map[string][2]time.Time{
		"createdAt":   {g.CreatedAt, want.CreatedAt},
		"updatedAt":   {g.UpdatedAt, want.UpdatedAt},
		"resolvedAt":  {*g.ResolvedAt, *want.ResolvedAt},
		"slaDeadline": {g.SLADeadline, want.SLADeadline},
		"comment0":    {g.Comments[0].CreatedAt, want.Comments[0].CreatedAt},
	} {
		if !pair[0].Equal(pair[1]) {
			t.Errorf("%s = %s, want %s", name, pair[0], pair[1])
		}
	}
	if g.Title != want.Title || g.Priority != want.Priority || g.Status != want.Status ||
		*g.AssignedTo != assignee || !g.Escalated || !reflect.DeepEqual(g.Tags, want.Tags) {
		t.Fatalf("fields differ: %+v", g)
	}
	if !g.Comments[0].Internal || g.Comments[1].Internal {
		t.Fatalf("internal flags lost: %+v", g.Comments)
	}
}

func TestTicketLoadAbsentAndMalformed(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemoryStore()
	repo := NewTicketRepository(store, zap.NewNop())

	got, err := repo.LoadAll(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("absent: %v %v", got, err)
	}

	_ = store.Save(ctx, persistence.TicketsCollection, []byte(`{"not":"a list"`))
	got, err = repo.LoadAll(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("malformed: %v %v", got, err)
	}
}

func TestTicketLoadRejectsBadTimestamp(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemoryStore()
	repo := NewTicketRepository(store, zap.NewNop())

	_ = store.Save(ctx, persistence.TicketsCollection, []byte(`[{
		"id":"INC-1","createdAt":"yesterday","updatedAt":"2024-03-01T09:00:00Z",
		"slaDeadline":"2024-03-01T13:00:00Z","comments":[]}]`))
	_, err := repo.LoadAll(ctx)
	if !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("err = %v, want ErrCorruptRecord", err)
	}
}

func TestTicketLoadAcceptsMillisecondISO(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemoryStore()
	repo := NewTicketRepository(store, zap.NewNop())

	_ = store.Save(ctx, persistence.TicketsCollection, []byte(`[{
		"id":"INC-1","title":"t","priority":"P2","status":"Open","reportedBy":"a@x.com",
		"createdAt":"2024-03-01T09:00:00.000Z","updatedAt":"2024-03-01T09:00:00.000Z",
		"slaDeadline":"2024-03-02T09:00:00.000Z","category":"General","tags":["a"],
		"escalated":false,"comments":[]}]`))
	got, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	if !got[0].SLADeadline.Equal(want) || got[0].ResolvedAt != nil || got[0].AssignedTo != nil {
		t.Fatalf("unexpected %+v", got[0])
	}
}

func TestNotificationRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemoryStore()
	repo := NewNotificationRepository(store, zap.NewNop())

	sent := time.Date(2024, 3, 1, 14, 0, 0, 5, time.Local)
	in := []domain.Notification{
		{ID: "EMAIL-1", To: "manager@company.com", Subject: "s", Body: "b", SentAt: sent},
		{ID: "EMAIL-2", To: "a@x.com", Subject: "s2", Body: "b2", SentAt: sent.Add(time.Hour), Acknowledged: true},
	}
	if err := repo.SaveAll(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || !got[0].SentAt.Equal(sent) || !got[1].Acknowledged || got[0].Acknowledged {
		t.Fatalf("unexpected %+v", got)
	}

	_ = store.Save(ctx, persistence.NotificationsCollection, []byte(`garbage`))
	got, err = repo.LoadAll(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("malformed: %v %v", got, err)
	}
}
