package service

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/incident-tracker/internal/domain"
)

//go:embed demo_tickets.yaml
var demoTicketsYAML []byte

type seedFile struct {
	Tickets []seedTicket `yaml:"tickets"`
}

type seedTicket struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Priority    string   `yaml:"priority"`
	Status      string   `yaml:"status"`
	ReportedBy  string   `yaml:"reportedBy"`
	AssignedTo  string   `yaml:"assignedTo"`
	Category    string   `yaml:"category"`
	Tags        []string `yaml:"tags"`
}

// ParseSeedTickets decodes a YAML fixture into creation inputs.
func ParseSeedTickets(data []byte) ([]TicketCreateInput, error) {
	var doc seedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse seed fixture: %w", err)
	}
	inputs := make([]TicketCreateInput, 0, len(doc.Tickets))
	for i, t := range doc.Tickets {
		priority := domain.TicketPriority(t.Priority)
		if priority != "" && !priority.Valid() {
			return nil, fmt.Errorf("seed ticket %d: unknown priority %q", i, t.Priority)
		}
		status := domain.TicketStatus(t.Status)
		if status != "" && !status.Valid() {
			return nil, fmt.Errorf("seed ticket %d: unknown status %q", i, t.Status)
		}
		in := TicketCreateInput{
			Title:       t.Title,
			Description: t.Description,
			Priority:    priority,
			Status:      status,
			ReportedBy:  t.ReportedBy,
			Category:    t.Category,
			Tags:        t.Tags,
		}
		if t.AssignedTo != "" {
			assignee := t.AssignedTo
			in.AssignedTo = &assignee
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// SeedDemoData creates the demo tickets when the collection is empty. A
// non-empty fixturePath replaces the built-in set. The emptiness check
// and the write happen under the service lock, so a concurrent create
// either lands after the seed or makes it a no-op. It returns the number
// of tickets created.
func (s *TicketService) SeedDemoData(ctx context.Context, fixturePath string) (int, error) {
	data := demoTicketsYAML
	if fixturePath != "" {
		var err error
		data, err = os.ReadFile(fixturePath)
		if err != nil {
			return 0, fmt.Errorf("read seed fixture: %w", err)
		}
	}
	inputs, err := ParseSeedTickets(data)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	existing, err := s.tickets.LoadAll(ctx)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	if len(existing) > 0 {
		s.mu.Unlock()
		return 0, nil
	}
	seeded := make([]domain.Ticket, 0, len(inputs))
	for _, in := range inputs {
		seeded = append(seeded, s.newTicket(seeded, in))
	}
	if err := s.tickets.SaveAll(ctx, seeded); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	s.mu.Unlock()

	for _, t := range seeded {
		s.ticketCreated(ctx, t)
	}
	s.logger.Info("demo data seeded", zap.Int("tickets", len(seeded)))
	return len(seeded), nil
}
