// Package contextbundle renders a project's recent memory into the
// bounded markdown block injected at SessionStart.
package contextbundle

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/laminark/laminark/internal/store"
)

// MaxContextChars bounds the rendered bundle. Sections are dropped in
// priority order until the render fits; only if the undroppable sections
// alone still exceed it is the render cut at MaxContextChars.
const MaxContextChars = 6000

const recentEventWindow = 200

// section is one named block of the bundle, in render order. Dropping a
// section means skipping it entirely and re-rendering from scratch —
// sections are never trimmed one by one.
type section struct {
	name      string
	droppable bool
	render    func() string
}

// Assembler reads repository state and renders the SessionStart bundle.
type Assembler struct {
	repos *store.Repositories
}

// New builds an Assembler over repos.
func New(repos *store.Repositories) *Assembler {
	return &Assembler{repos: repos}
}

// Assemble renders the bundle, dropping lowest-priority sections (tools,
// then references, then findings, then changes) until it fits within
// MaxContextChars. The session summary and active decisions sections
// are never dropped.
func (a *Assembler) Assemble() (string, error) {
	sess, err := a.repos.Sessions.GetLatest()
	if err != nil && err != store.ErrNotFound {
		return "", fmt.Errorf("laminark: assemble context: %w", err)
	}

	changes, err := a.recentByKind(store.KindChange, 10, 24*time.Hour)
	if err != nil {
		return "", err
	}
	decisions, err := a.recentByKind(store.KindDecision, 5, 7*24*time.Hour)
	if err != nil {
		return "", err
	}
	references, err := a.recentByKind(store.KindReference, 3, 3*24*time.Hour)
	if err != nil {
		return "", err
	}
	findings, err := a.recentByKind(store.KindFinding, 5, 7*24*time.Hour)
	if err != nil {
		return "", err
	}
	toolsText, err := a.renderTools(500)
	if err != nil {
		return "", err
	}

	sections := []section{
		{name: "session", droppable: false, render: func() string { return renderSessionSummary(sess) }},
		{name: "changes", droppable: true, render: func() string { return renderObservationSection("Recent Changes", changes) }},
		{name: "decisions", droppable: false, render: func() string { return renderObservationSection("Active Decisions", decisions) }},
		{name: "references", droppable: true, render: func() string { return renderObservationSection("Reference Docs", references) }},
		{name: "findings", droppable: true, render: func() string { return renderObservationSection("Recent Findings", findings) }},
		{name: "tools", droppable: true, render: func() string { return toolsText }},
	}

	// Priority order for dropping under size pressure: tools first,
	// then references, then findings, then changes.
	dropOrder := []string{"tools", "references", "findings", "changes"}

	dropped := map[string]bool{}
	for {
		rendered := render(sections, dropped)
		if len(rendered) <= MaxContextChars {
			return rendered, nil
		}
		next := nextDroppable(dropOrder, dropped)
		if next == "" {
			return rendered[:MaxContextChars], nil
		}
		dropped[next] = true
	}
}

func nextDroppable(order []string, dropped map[string]bool) string {
	for _, name := range order {
		if !dropped[name] {
			return name
		}
	}
	return ""
}

func render(sections []section, dropped map[string]bool) string {
	var b strings.Builder
	b.WriteString("## Memory from Previous Sessions\n\n")
	for _, s := range sections {
		if dropped[s.name] {
			continue
		}
		text := s.render()
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func (a *Assembler) recentByKind(kind store.Kind, limit int, window time.Duration) ([]store.Observation, error) {
	since := time.Now().UTC().Add(-window)
	return a.repos.Observations.List(store.ObservationListOptions{
		Kind:  &kind,
		Since: &since,
		Limit: limit,
	})
}

func renderSessionSummary(sess *store.Session) string {
	if sess == nil {
		return ""
	}
	summary := "no summary recorded"
	if sess.Summary != nil && strings.TrimSpace(*sess.Summary) != "" {
		summary = *sess.Summary
	}
	return fmt.Sprintf("### Last Session\n- %s (%s): %s\n", sess.ID, relativeTime(sess.StartedAt), summary)
}

func renderObservationSection(title string, obs []store.Observation) string {
	if len(obs) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n", title)
	for _, o := range obs {
		fmt.Fprintf(&b, "- [%s] %s — %s\n", idHandle(o.ID), relativeTime(o.CreatedAt), truncate(o.Content, 200))
	}
	return b.String()
}

func (a *Assembler) renderTools(budget int) (string, error) {
	available, err := a.repos.ToolRegistry.GetAvailableForSession()
	if err != nil {
		return "", fmt.Errorf("laminark: list available tools: %w", err)
	}
	if len(available) == 0 {
		return "", nil
	}

	since := time.Now().UTC().Add(-30 * 24 * time.Hour)
	events, err := a.repos.ToolRegistry.GetUsageSince(formatSQLiteTime(since))
	if err != nil {
		return "", fmt.Errorf("laminark: list recent tool usage: %w", err)
	}
	if len(events) > recentEventWindow {
		events = events[:recentEventWindow]
	}
	counts := map[string]int{}
	for _, e := range events {
		counts[e.ToolName]++
	}
	total := len(events)

	type ranked struct {
		entry store.ToolRegistryEntry
		share float64
	}
	var rows []ranked
	seenServers := map[string]bool{}
	for _, e := range available {
		if e.ToolType == store.ToolTypeBuiltin {
			continue
		}
		dedupeKey := e.Name
		if e.ServerName != nil {
			dedupeKey = *e.ServerName
		}
		if seenServers[dedupeKey] {
			continue
		}
		seenServers[dedupeKey] = true

		share := 0.0
		if total > 0 {
			share = float64(counts[e.Name]) / float64(total)
		}
		rows = append(rows, ranked{entry: e, share: share})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].share > rows[j].share
	})

	var b strings.Builder
	b.WriteString("### Available Tools\n")
	rendered := 0
	for _, r := range rows {
		line := fmt.Sprintf("- %s (%s)\n", r.entry.Name, r.entry.Scope)
		if rendered+len(line) > budget {
			break
		}
		b.WriteString(line)
		rendered += len(line)
	}
	if rendered == 0 {
		return "", nil
	}
	return b.String(), nil
}

func idHandle(id string) string {
	if len(id) < 8 {
		return id
	}
	return id[:8]
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		n := int(d / time.Minute)
		return plural(n, "minute")
	case d < 24*time.Hour:
		n := int(d / time.Hour)
		return plural(n, "hour")
	default:
		n := int(d / (24 * time.Hour))
		return plural(n, "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

func formatSQLiteTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.999999999")
}
