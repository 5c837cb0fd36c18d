package store

import "time"

// Kind categorizes an observation's semantic role in the memory graph.
type Kind string

const (
	KindChange        Kind = "change"
	KindDecision       Kind = "decision"
	KindFinding        Kind = "finding"
	KindReference      Kind = "reference"
	KindUnclassified   Kind = "unclassified"
)

// Classification is the admission-filter verdict, distinct from Kind.
type Classification string

const (
	ClassificationDiscovery Classification = "discovery"
	ClassificationNoise     Classification = "noise"
)

// Scope names where a tool registry entry is available.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeProject Scope = "project"
	ScopePlugin  Scope = "plugin"
)

// ToolType categorizes a discoverable tool.
type ToolType string

const (
	ToolTypeBuiltin      ToolType = "builtin"
	ToolTypeMCPServer    ToolType = "mcp_server"
	ToolTypeMCPTool      ToolType = "mcp_tool"
	ToolTypeSlashCommand ToolType = "slash_command"
	ToolTypeSkill        ToolType = "skill"
	ToolTypePlugin       ToolType = "plugin"
)

// ToolStatus tracks a registry entry's lifecycle.
type ToolStatus string

const (
	ToolStatusActive  ToolStatus = "active"
	ToolStatusDemoted ToolStatus = "demoted"
	ToolStatusRetired ToolStatus = "retired"
)

// EmbeddingDim is the fixed dimension of every stored embedding vector.
const EmbeddingDim = 384

// Observation is the atomic unit of recorded memory.
type Observation struct {
	RowID                 int64
	ID                    string
	ProjectFingerprint    string
	SessionID             *string
	Source                string
	Title                 *string
	Content               string
	Embedding             []float32
	EmbeddingModel        *string
	EmbeddingModelVersion *string
	Kind                  Kind
	Classification        *Classification
	CreatedAt             time.Time
	UpdatedAt             time.Time
	DeletedAt             *time.Time
}

// ObservationInput is the set of fields a caller supplies to create a row.
type ObservationInput struct {
	ProjectFingerprint string
	SessionID          *string
	Source             string
	Title              *string
	Content            string
	Kind               Kind
}

// ObservationPatch mutates only the fields the embedding worker and
// classifier are allowed to touch. Project fingerprint is never mutable.
type ObservationPatch struct {
	Embedding             []float32
	EmbeddingModel        *string
	EmbeddingModelVersion *string
	Kind                  *Kind
	Classification        *Classification
}

// ObservationListOptions filters ObservationRepository.List.
type ObservationListOptions struct {
	SessionID           *string
	Since               *time.Time
	Kind                *Kind
	Limit               int
	IncludeUnclassified bool
}

// Session is a bounded host interaction.
type Session struct {
	ID                 string
	ProjectFingerprint string
	StartedAt          time.Time
	EndedAt            *time.Time
	Summary            *string
}

// ToolRegistryEntry is one row in the cross-project tool catalog.
type ToolRegistryEntry struct {
	Name               string
	ToolType           ToolType
	Scope              Scope
	Source             string
	ProjectFingerprint *string
	Description        *string
	ServerName         *string
	TriggerHints       *string
	Status             ToolStatus
	UsageCount         int64
	LastUsedAt         *time.Time
	DiscoveredAt       time.Time
	UpdatedAt          time.Time
}

// ToolUsageEvent is one append-only record of a tool invocation.
type ToolUsageEvent struct {
	ID                 int64
	ToolName           string
	SessionID          *string
	ProjectFingerprint string
	Success            bool
	CreatedAt          time.Time
}

// Notification is an operator-visible suggestion or status line.
type Notification struct {
	ID                 int64
	ProjectFingerprint string
	Message            string
	CreatedAt          time.Time
}

// ThoughtBranch is a detected work unit; detection itself is external.
type ThoughtBranch struct {
	ID                 string
	ProjectFingerprint string
	Title              string
	StartedAt          time.Time
	EndedAt            *time.Time
}

// BranchObservation links an observation into a thought branch.
type BranchObservation struct {
	BranchID      string
	ObservationID string
	Position      int
}

// DebugPath is a detected failure-investigation arc; detection is external.
type DebugPath struct {
	ID                 string
	ProjectFingerprint string
	Title              string
	StartedAt          time.Time
	EndedAt            *time.Time
	Resolved           bool
}

// PathWaypoint links an observation into a debug path.
type PathWaypoint struct {
	PathID        string
	ObservationID string
	Position      int
}
