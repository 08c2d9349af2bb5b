package domain

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme accepts only the two known themes
func ParseTheme(s string) (Theme, bool) {
	switch Theme(s) {
	case ThemeDark, ThemeLight:
		return Theme(s), true
	}
	return "", false
}

type AnalysisDepth string

const (
	DepthQuick    AnalysisDepth = "quick"
	DepthBalanced AnalysisDepth = "balanced"
	DepthDeep     AnalysisDepth = "deep"
)

type DebriefLanguage string

const (
	LanguageEnglish    DebriefLanguage = "english"
	LanguagePortuguese DebriefLanguage = "portuguese"
	LanguageAuto       DebriefLanguage = "auto"
)

type ProjectSettings struct {
	MonitoredDirectory string `json:"monitored_directory"`
	FileExtensions     string `json:"file_extensions"`
	IgnoredPaths       string `json:"ignored_paths"`
}

type AISettings struct {
	EndpointURL string `json:"endpoint_url"`
	Model       string `json:"model"`
	APIKey      string `json:"api_key"`
	Provider    string `json:"provider"`
	WebSearch   bool   `json:"web_search"`
}

type AnalysisSettings struct {
	AutoAnalyze    bool           `json:"auto_analyze"`
	CheckpointMode CheckpointMode `json:"checkpoint_mode"`
	AnalysisDepth  AnalysisDepth  `json:"analysis_depth"`
}

type KnowledgeSettings struct {
	StoragePath       string `json:"storage_path"`
	AutoGenerateNotes bool   `json:"auto_generate_notes"`
}

type AppearanceSettings struct {
	Theme           Theme           `json:"theme"`
	DebriefLanguage DebriefLanguage `json:"debrief_language"`
}

// AppSettings always carries all five sections
type AppSettings struct {
	Project    ProjectSettings    `json:"project"`
	AI         AISettings         `json:"ai"`
	Analysis   AnalysisSettings   `json:"analysis"`
	Knowledge  KnowledgeSettings  `json:"knowledge"`
	Appearance AppearanceSettings `json:"appearance"`
}

// DefaultSettings is the configuration a fresh install starts with
func DefaultSettings() AppSettings {
	return AppSettings{
		Project: ProjectSettings{
			FileExtensions: ".ts, .tsx, .js, .jsx, .py, .rs, .go",
			IgnoredPaths:   "node_modules, .git, dist, __pycache__, vendor",
		},
		AI: AISettings{
			EndpointURL: "https://api.anthropic.com/v1",
			Model:       "claude-sonnet-4-20250514",
			Provider:    "anthropic",
		},
		Analysis: AnalysisSettings{
			CheckpointMode: ModeFreeText,
			AnalysisDepth:  DepthBalanced,
		},
		Knowledge: KnowledgeSettings{
			StoragePath:       "~/.diffadvisor/knowledge",
			AutoGenerateNotes: true,
		},
		Appearance: AppearanceSettings{
			Theme:           ThemeDark,
			DebriefLanguage: LanguageEnglish,
		},
	}
}

// Section patches. A nil field leaves the current value untouched.

type ProjectSettingsPatch struct {
	MonitoredDirectory *string `json:"monitored_directory,omitempty"`
	FileExtensions     *string `json:"file_extensions,omitempty"`
	IgnoredPaths       *string `json:"ignored_paths,omitempty"`
}

type AISettingsPatch struct {
	EndpointURL *string `json:"endpoint_url,omitempty"`
	Model       *string `json:"model,omitempty"`
	APIKey      *string `json:"api_key,omitempty"`
	Provider    *string `json:"provider,omitempty"`
	WebSearch   *bool   `json:"web_search,omitempty"`
}

type AnalysisSettingsPatch struct {
	AutoAnalyze    *bool           `json:"auto_analyze,omitempty"`
	CheckpointMode *CheckpointMode `json:"checkpoint_mode,omitempty"`
	AnalysisDepth  *AnalysisDepth  `json:"analysis_depth,omitempty"`
}

type KnowledgeSettingsPatch struct {
	StoragePath       *string `json:"storage_path,omitempty"`
	AutoGenerateNotes *bool   `json:"auto_generate_notes,omitempty"`
}

type AppearanceSettingsPatch struct {
	Theme           *Theme           `json:"theme,omitempty"`
	DebriefLanguage *DebriefLanguage `json:"debrief_language,omitempty"`
}

// SettingsPatch is a partial AppSettings update
type SettingsPatch struct {
	Project    *ProjectSettingsPatch    `json:"project,omitempty"`
	AI         *AISettingsPatch         `json:"ai,omitempty"`
	Analysis   *AnalysisSettingsPatch   `json:"analysis,omitempty"`
	Knowledge  *KnowledgeSettingsPatch  `json:"knowledge,omitempty"`
	Appearance *AppearanceSettingsPatch `json:"appearance,omitempty"`
}

// Apply merges p section by section over s and returns the result.
// Used by backends only; clients send the patch and trust the response.
func (p SettingsPatch) Apply(s AppSettings) AppSettings {
	if q := p.Project; q != nil {
		set(&s.Project.MonitoredDirectory, q.MonitoredDirectory)
		set(&s.Project.FileExtensions, q.FileExtensions)
		set(&s.Project.IgnoredPaths, q.IgnoredPaths)
	}
	if q := p.AI; q != nil {
		set(&s.AI.EndpointURL, q.EndpointURL)
		set(&s.AI.Model, q.Model)
		set(&s.AI.APIKey, q.APIKey)
		set(&s.AI.Provider, q.Provider)
		set(&s.AI.WebSearch, q.WebSearch)
	}
	if q := p.Analysis; q != nil {
		set(&s.Analysis.AutoAnalyze, q.AutoAnalyze)
		set(&s.Analysis.CheckpointMode, q.CheckpointMode)
		set(&s.Analysis.AnalysisDepth, q.AnalysisDepth)
	}
	if q := p.Knowledge; q != nil {
		set(&s.Knowledge.StoragePath, q.StoragePath)
		set(&s.Knowledge.AutoGenerateNotes, q.AutoGenerateNotes)
	}
	if q := p.Appearance; q != nil {
		set(&s.Appearance.Theme, q.Theme)
		set(&s.Appearance.DebriefLanguage, q.DebriefLanguage)
	}
	return s
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
