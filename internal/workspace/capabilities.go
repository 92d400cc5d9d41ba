package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/meridianhq/agentdesk/pkg/models"
)

// ReadMCPConfig loads a workspace's MCP server document. A missing file
// yields an empty server map; a corrupt file is logged and also yields
// an empty map, since capability documents are reconstructible.
func (s *Store) ReadMCPConfig(slug string) models.MCPConfig {
	cfg := models.MCPConfig{Servers: map[string]models.MCPServer{}}
	data, err := os.ReadFile(s.paths.MCPConfigFile(slug))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("slug", slug).Msg("Failed to read MCP config")
		}
		return cfg
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("MCP config unparseable, treating as empty")
		return models.MCPConfig{Servers: map[string]models.MCPServer{}}
	}
	if cfg.Servers == nil {
		cfg.Servers = map[string]models.MCPServer{}
	}
	return cfg
}

// WriteMCPConfig rewrites a workspace's entire MCP server document.
func (s *Store) WriteMCPConfig(slug string, cfg models.MCPConfig) error {
	if err := s.ensureDirs(slug); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal MCP config: %w", err)
	}
	if err := os.WriteFile(s.paths.MCPConfigFile(slug), data, 0o644); err != nil {
		return fmt.Errorf("write MCP config: %w", err)
	}
	return nil
}

// skillHeader is the YAML frontmatter of a SKILL.md document.
type skillHeader struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// ListSkills scans a workspace's skills directory: one subdirectory per
// skill, each holding a SKILL.md. Unparseable entries are skipped.
func (s *Store) ListSkills(slug string) []models.Skill {
	entries, err := os.ReadDir(s.paths.SkillsDir(slug))
	if err != nil {
		return nil
	}

	var skills []models.Skill
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		skill, err := s.readSkill(slug, entry.Name())
		if err != nil {
			log.Warn().Err(err).Str("skill", entry.Name()).Msg("Skipping unreadable skill")
			continue
		}
		skills = append(skills, skill)
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	return skills
}

// WriteSkill rewrites one skill's directory entry as a whole document.
func (s *Store) WriteSkill(slug string, skill models.Skill) error {
	dirName := Slugify(skill.Name)
	if dirName == "" {
		return fmt.Errorf("skill name %q produces an empty directory name", skill.Name)
	}
	dir := filepath.Join(s.paths.SkillsDir(slug), dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create skill dir: %w", err)
	}

	header, err := yaml.Marshal(skillHeader{Name: skill.Name, Description: skill.Description})
	if err != nil {
		return fmt.Errorf("marshal skill header: %w", err)
	}
	doc := fmt.Sprintf("---\n%s---\n\n%s", header, skill.Body)
	if err := os.WriteFile(s.paths.SkillFile(slug, dirName), []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write skill: %w", err)
	}
	return nil
}

// DeleteSkill removes a skill directory.
func (s *Store) DeleteSkill(slug, skillName string) error {
	dirName := Slugify(skillName)
	if dirName == "" {
		return fmt.Errorf("skill name %q produces an empty directory name", skillName)
	}
	return os.RemoveAll(filepath.Join(s.paths.SkillsDir(slug), dirName))
}

func (s *Store) readSkill(slug, dirName string) (models.Skill, error) {
	data, err := os.ReadFile(s.paths.SkillFile(slug, dirName))
	if err != nil {
		return models.Skill{}, err
	}

	header, body := splitFrontmatter(string(data))
	var h skillHeader
	if header != "" {
		if err := yaml.Unmarshal([]byte(header), &h); err != nil {
			return models.Skill{}, fmt.Errorf("parse skill header: %w", err)
		}
	}
	if h.Name == "" {
		h.Name = dirName
	}
	return models.Skill{Name: h.Name, Description: h.Description, Body: body}, nil
}

// splitFrontmatter separates a leading "---" YAML block from the body.
// Documents without frontmatter return an empty header and the whole
// content as body.
func splitFrontmatter(doc string) (header, body string) {
	const marker = "---\n"
	if !strings.HasPrefix(doc, marker) {
		return "", doc
	}
	rest := doc[len(marker):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", doc
	}
	header = rest[:end+1]
	body = rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimPrefix(body, "\n")
	return header, body
}
