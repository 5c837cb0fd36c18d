package capture

import (
	"github.com/rs/zerolog"

	"github.com/laminark/laminark/internal/config"
	"github.com/laminark/laminark/internal/store"
)

// Pipeline runs the ordered per-event capture decision: dispatch by
// event name, filter self-referential tool calls, extract a summary,
// apply file exclusion and redaction, run the admission filter, and
// finally commit at most one observation plus its usage-event record.
type Pipeline struct {
	repos   *store.Repositories
	privacy func() config.Privacy
	log     zerolog.Logger
}

// NewPipeline builds a Pipeline against repos scoped to one project.
// privacy is called once per event, so a caller can back it with a live
// source such as config.Watcher.Privacy; RunHook passes the snapshot it
// loaded at startup.
func NewPipeline(repos *store.Repositories, privacy func() config.Privacy, log zerolog.Logger) *Pipeline {
	return &Pipeline{repos: repos, privacy: privacy, log: log}
}

// Run processes one event. It never returns an error the caller must
// act on beyond logging — every failure mode here means "write nothing,
// carry on."
func (p *Pipeline) Run(ev *Event) {
	switch EventName(ev.HookEventName) {
	case EventPostToolUse, EventPostToolUseFailure:
		p.runPostToolUse(ev, EventName(ev.HookEventName) == EventPostToolUseFailure)
	case EventSessionStart:
		p.runSessionStart(ev)
	case EventSessionEnd:
		p.runSessionEnd(ev)
	case EventStop:
		// No observation is recorded for Stop: it carries no tool
		// content of its own, and session-level bookkeeping already
		// happens on SessionEnd.
	default:
		p.log.Debug().Str("event", ev.HookEventName).Msg("unrecognized event, ignoring")
	}
}

func (p *Pipeline) runPostToolUse(ev *Event, failed bool) {
	if IsSelfReferential(ev.ToolName) {
		return
	}

	summary, filePath := Summarize(ev.ToolName, ev.ToolInput, ev.ToolResponse)

	privacy := p.privacy()
	if filePath != "" && IsExcludedFile(filePath, privacy.ExcludedFiles) {
		return
	}

	summary = Redact(summary, privacy.AdditionalPatterns)

	if !failed && !Accept(ev.ToolName, summary, filePath != "") {
		p.recordUsageOnly(ev, false)
		return
	}

	sessionID := nullableString(ev.SessionID)
	classification := store.ClassificationDiscovery
	if failed {
		classification = store.ClassificationNoise
	}

	_, err := p.repos.Observations.CreateClassified(store.ObservationInput{
		SessionID: sessionID,
		Source:    ev.ToolName,
		Content:   summary,
		Kind:      store.KindUnclassified,
	}, classification)
	if err != nil {
		p.log.Warn().Err(err).Str("tool", ev.ToolName).Msg("failed to persist observation")
	}

	p.recordUsageOnly(ev, !failed)
}

func (p *Pipeline) recordUsageOnly(ev *Event, success bool) {
	err := p.repos.ToolRegistry.RecordOrCreate(ev.ToolName, store.ToolRegistryEntry{
		Name:     ev.ToolName,
		ToolType: store.ToolTypeBuiltin,
		Scope:    store.ScopeGlobal,
		Source:   "capture",
		Status:   store.ToolStatusActive,
	}, nullableString(ev.SessionID), success)
	if err != nil {
		p.log.Warn().Err(err).Str("tool", ev.ToolName).Msg("failed to record tool usage")
	}
}

func (p *Pipeline) runSessionStart(ev *Event) {
	if _, err := p.repos.Sessions.Create(ev.SessionID); err != nil {
		p.log.Warn().Err(err).Msg("failed to create session")
	}
}

func (p *Pipeline) runSessionEnd(ev *Event) {
	if err := p.repos.Sessions.End(ev.SessionID, nil); err != nil {
		p.log.Warn().Err(err).Msg("failed to end session")
	}
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
