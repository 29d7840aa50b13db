package llm

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Profile struct {
	Key       string   `yaml:"key" json:"key" validate:"required,max=32"`
	Label     string   `yaml:"label" json:"label"`
	Provider  Provider `yaml:"provider" json:"provider" validate:"required,oneof=nvidia gemini"`
	Model     string   `yaml:"model" json:"model" validate:"required"`
	APIKeyEnv string   `yaml:"api_key_env" json:"-"`
	Reasoning string   `yaml:"reasoning" json:"reasoning,omitempty" validate:"omitempty,oneof=system_prefix chat_template"`
	// System overrides the built-in system instruction per prompt kind.
	System map[string]string `yaml:"system" json:"-"`
}

// DefaultProfiles mirrors the two NVIDIA-hosted vision models plus Gemini.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Key:       "nemotron",
			Label:     "Rapide et Efficace",
			Provider:  ProviderNVIDIA,
			Model:     "nvidia/nemotron-nano-12b-v2-vl",
			APIKeyEnv: "NVIDIA_API_KEY_NEMOTRON",
			Reasoning: ReasoningSystemPrefix,
		},
		{
			Key:       "qwen",
			Label:     "Lent et (accurate)",
			Provider:  ProviderNVIDIA,
			Model:     "qwen/qwen3.5-397b-a17b",
			APIKeyEnv: "NVIDIA_API_KEY",
			Reasoning: ReasoningTemplate,
			System: map[string]string{
				"analysis": "Tu es un expert en urbanisme français. Réponds UNIQUEMENT en JSON valide. Commence par { et finis par }.",
			},
		},
		{
			Key:       "gemini",
			Label:     "Gemini",
			Provider:  ProviderGemini,
			Model:     "gemini-2.5-flash",
			APIKeyEnv: "GEMINI_API_KEY",
		},
	}
}

type profilesFile struct {
	Default  string    `yaml:"default"`
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads a YAML profile file. The returned default key may be empty.
func LoadProfiles(path string) ([]Profile, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read profiles file: %w", err)
	}
	var f profilesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("failed to parse profiles YAML: %w", err)
	}
	return f.Profiles, f.Default, nil
}

// Profiles is the read-only registry of selectable model profiles.
type Profiles struct {
	byKey map[string]Profile
	keys  []string
	def   string
}

var validate = validator.New()

func NewProfiles(list []Profile, def string) (*Profiles, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("no model profiles")
	}
	p := &Profiles{byKey: make(map[string]Profile, len(list))}
	for i, pr := range list {
		pr.Key = strings.ToLower(strings.TrimSpace(pr.Key))
		if err := validate.Struct(pr); err != nil {
			return nil, fmt.Errorf("profile %d (%q): %w", i, pr.Key, err)
		}
		if _, dup := p.byKey[pr.Key]; dup {
			return nil, fmt.Errorf("duplicate profile %q", pr.Key)
		}
		p.byKey[pr.Key] = pr
		p.keys = append(p.keys, pr.Key)
	}
	def = strings.ToLower(strings.TrimSpace(def))
	if def == "" {
		def = p.keys[0]
	}
	if _, ok := p.byKey[def]; !ok {
		return nil, fmt.Errorf("default profile %q is not defined", def)
	}
	p.def = def
	return p, nil
}

func (p *Profiles) Lookup(key string) (Profile, bool) {
	pr, ok := p.byKey[strings.ToLower(strings.TrimSpace(key))]
	return pr, ok
}

// Get returns the profile for key, or the default one when key is unknown.
func (p *Profiles) Get(key string) Profile {
	if pr, ok := p.Lookup(key); ok {
		return pr
	}
	return p.byKey[p.def]
}

func (p *Profiles) Default() Profile { return p.byKey[p.def] }

func (p *Profiles) Keys() []string {
	out := append([]string(nil), p.keys...)
	sort.Strings(out)
	return out
}

// Labels maps profile keys to their UI labels.
func (p *Profiles) Labels() map[string]string {
	out := make(map[string]string, len(p.byKey))
	for k, pr := range p.byKey {
		out[k] = pr.Label
	}
	return out
}
