package domain

import "time"

// Project is a monitored code repository
type Project struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Path           string     `json:"path"`
	Language       string     `json:"language"`
	Frameworks     []string   `json:"frameworks"`
	ActiveSkills   []string   `json:"active_skills"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAnalyzedAt *time.Time `json:"last_analyzed_at,omitempty"`
}

// CommitStatus tracks whether a commit has been walked through
type CommitStatus string

const (
	StatusPending  CommitStatus = "pending"
	StatusReviewed CommitStatus = "reviewed"
)

// Commit is a single commit awaiting or past review
type Commit struct {
	Hash         string       `json:"hash"`
	Message      string       `json:"message"`
	Author       string       `json:"author"`
	Timestamp    string       `json:"timestamp"`
	FilesChanged int          `json:"files_changed"`
	Additions    int          `json:"additions"`
	Deletions    int          `json:"deletions"`
	Status       CommitStatus `json:"status"`
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Valid reports whether s is one of the known severities
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

type GapCategory string

const (
	GapSecurity        GapCategory = "security"
	GapPerformance     GapCategory = "performance"
	GapReliability     GapCategory = "reliability"
	GapMaintainability GapCategory = "maintainability"
)

// Valid reports whether c is one of the known gap categories
func (c GapCategory) Valid() bool {
	switch c {
	case GapSecurity, GapPerformance, GapReliability, GapMaintainability:
		return true
	}
	return false
}

// Decision is an architectural choice surfaced by a debrief
type Decision struct {
	Decision     string `json:"decision"`
	Alternatives string `json:"alternatives"`
	Tradeoffs    string `json:"tradeoffs"`
}

// Gap is a flagged issue in the reviewed code
type Gap struct {
	ID          string      `json:"id"`
	Severity    Severity    `json:"severity"`
	Category    GapCategory `json:"category"`
	Description string      `json:"description"`
	Explanation string      `json:"explanation"`
	Suggestion  string      `json:"suggestion"`
}

// KnowledgeBaseNote is a note proposed by a debrief, not yet saved
type KnowledgeBaseNote struct {
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	LinksTo  []string `json:"links_to"`
	Content  string   `json:"content"`
}

// DebriefResult is the generated review artifact for one commit
type DebriefResult struct {
	ID                   string               `json:"id"`
	CommitHash           string               `json:"commit_hash"`
	ArchitecturalSummary string               `json:"architectural_summary"`
	PatternsIdentified   []string             `json:"patterns_identified"`
	DecisionsMade        []Decision           `json:"decisions_made"`
	Gaps                 []Gap                `json:"gaps"`
	CheckpointQuestions  []CheckpointQuestion `json:"checkpoint_questions"`
	KnowledgeBaseNotes   []KnowledgeBaseNote  `json:"knowledge_base_notes"`
	SkillsUsed           []string             `json:"skills_used"`
	Status               CommitStatus         `json:"status"`
	CreatedAt            time.Time            `json:"created_at"`
}

// Question looks up a checkpoint question by id
func (d *DebriefResult) Question(id string) *CheckpointQuestion {
	for i := range d.CheckpointQuestions {
		if d.CheckpointQuestions[i].ID == id {
			return &d.CheckpointQuestions[i]
		}
	}
	return nil
}

type CheckpointMode string

const (
	ModeFreeText       CheckpointMode = "free_text"
	ModeMultipleChoice CheckpointMode = "multiple_choice"
)

// CheckpointQuestion is a comprehension question about a commit
type CheckpointQuestion struct {
	ID                 string `json:"id"`
	Question           string `json:"question"`
	Concept            string `json:"concept"`
	GoodAnswerIncludes string `json:"good_answer_includes"`
}

// Evaluation grades a single checkpoint answer
type Evaluation struct {
	Score            int      `json:"score"`
	Feedback         string   `json:"feedback"`
	KeyPointsCovered []string `json:"key_points_covered"`
	KeyPointsMissed  []string `json:"key_points_missed"`
}

const (
	MinScore = 0
	MaxScore = 10
)

// ClampScore forces a score into [MinScore, MaxScore]
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// CheckpointResponse is a recorded answer submission
type CheckpointResponse struct {
	ID           string         `json:"id"`
	DebriefID    string         `json:"debrief_id"`
	QuestionID   string         `json:"question_id"`
	QuestionText string         `json:"question_text"`
	ResponseText string         `json:"response_text"`
	Evaluation   *Evaluation    `json:"evaluation"`
	Mode         CheckpointMode `json:"mode"`
	CreatedAt    time.Time      `json:"created_at"`
}

// KnowledgeNote is a markdown note in the personal knowledge base
type KnowledgeNote struct {
	ID            string    `json:"id"`
	ProjectID     *string   `json:"project_id"`
	Title         string    `json:"title"`
	CategoryPath  string    `json:"category_path"`
	FilePath      string    `json:"file_path"`
	AutoGenerated bool      `json:"auto_generated"`
	Tags          []string  `json:"tags"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NoteDraft is the input to a note save. Only Title is required; the rest is
// merged over an existing note when ID matches. Nil Tags keeps the existing
// tags and an empty list clears them.
type NoteDraft struct {
	ID            string   `json:"id,omitempty"`
	ProjectID     *string  `json:"project_id,omitempty"`
	Title         string   `json:"title"`
	CategoryPath  string   `json:"category_path"`
	Content       string   `json:"content"`
	AutoGenerated *bool    `json:"auto_generated,omitempty"`
	Tags          []string `json:"tags"`
}

// NoteFilePath is where a note lives relative to the knowledge root
func NoteFilePath(categoryPath, title string) string {
	if categoryPath == "" {
		return title + ".md"
	}
	return categoryPath + "/" + title + ".md"
}

// DraftFromDebrief turns a debrief-proposed note into a save request
func DraftFromDebrief(n KnowledgeBaseNote) NoteDraft {
	auto := true
	return NoteDraft{
		Title:         n.Title,
		CategoryPath:  n.Category,
		Content:       n.Content,
		AutoGenerated: &auto,
		Tags:          append([]string(nil), n.Tags...),
	}
}

// SkillDetect describes how a skill is auto-detected in a project
type SkillDetect struct {
	Files           []string `json:"files" yaml:"files"`
	ContentPatterns []string `json:"content_patterns" yaml:"content_patterns"`
	Extensions      []string `json:"extensions" yaml:"extensions"`
}

// Skill is a named body of review knowledge
type Skill struct {
	ID           string      `json:"id" yaml:"id"`
	Name         string      `json:"name" yaml:"name"`
	Description  string      `json:"description" yaml:"description"`
	Tags         []string    `json:"tags" yaml:"tags"`
	Detect       SkillDetect `json:"detect" yaml:"detect"`
	Content      string      `json:"content" yaml:"content"`
	Enabled      bool        `json:"enabled" yaml:"enabled"`
	AutoDetected bool        `json:"auto_detected" yaml:"auto_detected"`
	BuiltIn      bool        `json:"built_in" yaml:"built_in"`
}

// ConnectionResult is the outcome of an AI endpoint connectivity check
type ConnectionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
