package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/incident-tracker/internal/api/dto"
	"github.com/spec-kit/incident-tracker/internal/domain"
	"github.com/spec-kit/incident-tracker/internal/service"
)

const (
	defaultReporter = "user@company.com"
	defaultCategory = "General"
)

type commandFunc func(ctx context.Context, fs *pflag.FlagSet, out *output) error

type output struct {
	w      io.Writer
	format string
}

func (o *output) write(v any) error {
	switch o.format {
	case "yaml":
		enc := yaml.NewEncoder(o.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(o.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", o.format)
	}
}

func (e *environment) dispatch(ctx context.Context, args []string, stdout io.Writer) error {
	commands := map[string]struct {
		flags func(fs *pflag.FlagSet)
		run   commandFunc
	}{
		"seed":          {seedFlags, e.seed},
		"create":        {createFlags, e.create},
		"list":          {listFlags, e.list},
		"show":          {noFlags, e.show},
		"update":        {updateFlags, e.update},
		"delete":        {noFlags, e.delete},
		"comment":       {commentFlags, e.comment},
		"escalate":      {noFlags, e.escalate},
		"stats":         {noFlags, e.stats},
		"notifications": {notificationFlags, e.listNotifications},
		"ack":           {noFlags, e.ack},
	}

	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stdout)
	format := fs.StringP("output", "o", "json", "output format: json or yaml")
	cmd.flags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	return cmd.run(ctx, fs, &output{w: stdout, format: strings.ToLower(*format)})
}

func noFlags(*pflag.FlagSet) {}

func seedFlags(fs *pflag.FlagSet) {
	fs.String("file", "", "YAML fixture to seed instead of the built-in demo tickets")
}

func createFlags(fs *pflag.FlagSet) {
	fs.String("title", "", "ticket title (required)")
	fs.String("description", "", "ticket description (required)")
	fs.String("priority", string(domain.TicketPriorityP3), "priority P1-P4")
	fs.String("status", string(domain.TicketStatusOpen), "initial status")
	fs.String("assignee", "", "assignee email")
	fs.String("reporter", defaultReporter, "reporter email")
	fs.String("category", defaultCategory, "category")
	fs.String("tags", "", "comma separated tags")
}

func updateFlags(fs *pflag.FlagSet) {
	fs.String("title", "", "new title")
	fs.String("description", "", "new description")
	fs.String("priority", "", "new priority")
	fs.String("status", "", "new status")
	fs.String("assignee", "", "new assignee; empty string unassigns")
	fs.String("reporter", "", "new reporter")
	fs.String("category", "", "new category")
	fs.String("tags", "", "comma separated tags, replacing the current set")
}

func listFlags(fs *pflag.FlagSet) {
	fs.StringP("search", "q", "", "match title, description, id or reporter")
	fs.StringSlice("status", nil, "only these statuses")
	fs.StringSlice("priority", nil, "only these priorities")
	fs.String("sort", string(service.SortByCreatedAt), "createdAt, priority, status, title or slaDeadline")
	fs.String("order", string(service.SortDesc), "asc or desc")
}

func commentFlags(fs *pflag.FlagSet) {
	fs.String("author", defaultReporter, "comment author")
	fs.String("content", "", "comment text (required)")
	fs.Bool("internal", false, "hide the comment from the reporter")
}

func notificationFlags(fs *pflag.FlagSet) {
	fs.Int("hours", 24, "window for recent notifications")
	fs.Bool("unacknowledged", false, "list unacknowledged notifications instead")
}

func (e *environment) seed(ctx context.Context, fs *pflag.FlagSet, out *output) error {
	file, _ := fs.GetString("file")
	n, err := e.tickets.SeedDemoData(ctx, file)
	if err != nil {
		return err
	}
	return out.write(map[string]int{"created": n})
}

func (e *environment) create(ctx context.Context, fs *pflag.FlagSet, out *output) error {
	title, _ := fs.GetString("title")
	description, _ := fs.GetString("description")
	reporter, _ := fs.GetString("reporter")
	if strings.TrimSpace(title) == "" || strings.TrimSpace(description) == "" || strings.TrimSpace(reporter) == "" {
		return errors.New("--title, --description and --reporter are required")
	}
	priority, err := priorityFlag(fs)
	if err != nil {
		return err
	}
	status, err := statusFlag(fs)
	if err != nil {
		return err
	}
	category, _ := fs.GetString("category")
	tags, _ := fs.GetString("tags")

	input := service.TicketCreateInput{
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      status,
		ReportedBy:  reporter,
		Category:    category,
		Tags:        splitTags(tags),
	}
	if assignee, _ := fs.GetString("assignee"); assignee != "" {
		input.AssignedTo = &assignee
	}
	ticket, err := e.tickets.CreateTicket(ctx, input)
	if err != nil {
		return err
	}
	return out.write(dto.NewTicketResponse(ticket, e.clock.Now()))
}

func (e *environment) list(ctx context.Context, fs *pflag.FlagSet, out *output) error {
	search, _ := fs.GetString("search")
	statuses, _ := fs.GetStringSlice("status")
	priorities, _ := fs.GetStringSlice("priority")
	sortBy, _ := fs.GetString("sort")
	order, _ := fs.GetString("order")

	filter := service.TicketFilter{
		Search: search,
		SortBy: service.TicketSortField(sortBy),
		Order:  service.SortOrder(strings.ToLower(order)),
	}
	for _, s := range statuses {
		status := domain.TicketStatus(strings.TrimSpace(s))
		if !status.Valid() {
			return fmt.Errorf("unknown status %q", s)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, p := range priorities {
		priority := domain.TicketPriority(strings.ToUpper(strings.TrimSpace(p)))
		if !priority.Valid() {
			return fmt.Errorf("unknown priority %q", p)
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	tickets, err := e.tickets.ListTickets(ctx, filter)
	if err != nil {
		return err
	}
	return out.write(dto.NewTicketResponses(tickets, e.clock.Now()))
}

func (e *environment) show(ctx context.Context, fs *pflag.FlagSet, out *output) error {
	id, err := oneArg(fs, "ticket id")
	if err != nil {
		return err
	}
	ticket, err := e.tickets.GetTicketByID(ctx, id)
	if err != nil {
		return err
	}
	return out.write(dto.NewTicketResponse(ticket, e.clock.Now()))
}

func (e *environment) update(ctx context.Context, fs *pflag.FlagSet, out *output) error {
	id, err := oneArg(fs, "ticket id")
	if err != nil {
		return err
	}

	var patch service.TicketPatch
	patch.Title = changedString(fs, "title")
	patch.Description = changedString(fs, "description")
	patch.AssignedTo = changedString(fs, "assignee")
	patch.ReportedBy = changedString(fs, "reporter")
	patch.Category = changedString(fs, "category")
	if fs.Changed("priority") {
		p, err := priorityFlag(fs)
		if err != nil {
			return err
		}
		patch.Priority = &p
	}
	if fs.Changed("status") {
		s, err := statusFlag(fs)
		if err != nil {
			return err
		}
		patch.Status = &s
	}
	if fs.Changed("tags") {
		tags, _ := fs.GetString("tags")
		patch.Tags = append([]string{}, splitTags(tags)...)
	}

	ticket, err := e.tickets.UpdateTicket(ctx, id, patch)
	if err != nil {
		return err
	}
	return out.write(dto.NewTicketResponse(ticket, e.clock.Now()))
}

func (e *environment) delete(ctx context.Context, fs *pflag.FlagSet, out *output) error {
	id, err := oneArg(fs, "ticket id")
	if err != nil {
		return err
	}
	removed, err := e.tickets.DeleteTicket(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%s: %w", id, service.ErrTicketNotFound)
	}
	return out.write(map[string]any{"id": id, "deleted": true})
}

func (e *environment) comment(ctx context.Context, fs *pflag.FlagSet, out *output) error {
	id, err := oneArg(fs, "ticket id")
	if err != nil {
		return err
	}
	author, _ := fs.GetString("author")
	content, _ := fs.GetString("content")
	internal, _ := fs.GetBool("internal")
	if strings.TrimSpace(content) == "" {
		return errors.New("--content is required")
	}
	comment, err := e.tickets.AddComment(ctx, id, service.CommentInput{Author: author, Content: content, Internal: internal})
	if err != nil {
		return err
	}
	return out.write(dto.NewCommentResponse(comment))
}

func (e *environment) escalate(ctx context.Context, _ *pflag.FlagSet, out *output) error {
	escalated, err := e.escalations.RunOnce(ctx)
	if err != nil {
		return err
	}
	return out.write(dto.NewTicketResponses(escalated, e.clock.Now()))
}

func (e *environment) stats(ctx context.Context, _ *pflag.FlagSet, out *output) error {
	stats, err := e.tickets.GetTicketStats(ctx)
	if err != nil {
		return err
	}
	return out.write(dto.NewTicketStatsResponse(stats))
}

func (e *environment) listNotifications(ctx context.Context, fs *pflag.FlagSet, out *output) error {
	var (
		items []domain.Notification
		err   error
	)
	if unacked, _ := fs.GetBool("unacknowledged"); unacked {
		items, err = e.notifications.GetUnacknowledgedNotifications(ctx)
	} else {
		hours, _ := fs.GetInt("hours")
		items, err = e.notifications.GetRecentNotifications(ctx, hours)
	}
	if err != nil {
		return err
	}
	return out.write(dto.NewNotificationResponses(items))
}

func (e *environment) ack(ctx context.Context, fs *pflag.FlagSet, out *output) error {
	id, err := oneArg(fs, "notification id")
	if err != nil {
		return err
	}
	ok, err := e.notifications.AcknowledgeNotification(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", id, service.ErrNotificationNotFound)
	}
	return out.write(map[string]any{"id": id, "acknowledged": true})
}

func oneArg(fs *pflag.FlagSet, what string) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one %s", what)
	}
	return fs.Arg(0), nil
}

func changedString(fs *pflag.FlagSet, name string) *string {
	if !fs.Changed(name) {
		return nil
	}
	v, _ := fs.GetString(name)
	return &v
}

func priorityFlag(fs *pflag.FlagSet) (domain.TicketPriority, error) {
	raw, _ := fs.GetString("priority")
	p := domain.TicketPriority(strings.ToUpper(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", raw)
	}
	return p, nil
}

func statusFlag(fs *pflag.FlagSet) (domain.TicketStatus, error) {
	raw, _ := fs.GetString("status")
	s := domain.TicketStatus(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// splitTags splits a comma separated list, dropping empty entries.
func splitTags(raw string) []string {
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}
