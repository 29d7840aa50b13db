package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"dp-normalizer/api/internal/llm"
)

// Kind names one of the model calls the service makes.
type Kind string

const (
	KindAnalysis    Kind = "analysis"
	KindTranslation Kind = "translation"
	KindNotice      Kind = "notice"
	KindPhoto       Kind = "photo"
)

var defaultSystem = map[Kind]string{
	KindAnalysis:    "Tu es un expert en urbanisme français. Réponds UNIQUEMENT en JSON.",
	KindTranslation: "Tu es un outil de conversion texte→JSON. Réponds UNIQUEMENT avec un JSON valide.",
	KindNotice:      "Tu es un expert en urbanisme. Réponds UNIQUEMENT en JSON. Commence par {.",
	KindPhoto:       "",
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := defaultSystem[k]; !ok {
		return "", fmt.Errorf("unknown prompt kind %q", s)
	}
	return k, nil
}

var nameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

// Catalog resolves system instructions. A file
// <Dir>/<profile>/<kind>.system.txt wins over the profile's own override,
// which wins over the built-in text.
type Catalog struct {
	Dir string
}

func (c Catalog) System(kind Kind, p llm.Profile) string {
	if c.Dir != "" && nameRe.MatchString(p.Key) {
		if b, err := os.ReadFile(c.path(p.Key, kind)); err == nil {
			if s := strings.TrimSpace(string(b)); s != "" {
				return s
			}
		}
	}
	if s := strings.TrimSpace(p.System[string(kind)]); s != "" {
		return s
	}
	return defaultSystem[kind]
}

func (c Catalog) path(profileKey string, kind Kind) string {
	return filepath.Join(c.Dir, profileKey, string(kind)+".system.txt")
}

// Save writes a system instruction override atomically and returns its path.
func (c Catalog) Save(profileKey string, kind Kind, text string) (string, error) {
	if c.Dir == "" {
		return "", errors.New("prompt directory is not configured")
	}
	profileKey = strings.ToLower(strings.TrimSpace(profileKey))
	if !nameRe.MatchString(profileKey) {
		return "", fmt.Errorf("invalid profile key %q", profileKey)
	}
	if _, ok := defaultSystem[kind]; !ok {
		return "", fmt.Errorf("unknown prompt kind %q", kind)
	}
	dir := filepath.Join(c.Dir, profileKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("make dir: %w", err)
	}
	dst := c.path(profileKey, kind)

	tmp, err := os.CreateTemp(dir, string(kind)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write temp: %w", err)
	}
	_ = tmp.Chmod(0o644)
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename: %w", err)
	}
	return dst, nil
}
