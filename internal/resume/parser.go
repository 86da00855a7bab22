// Package resume extracts structured fields from raw resume text and infers
// likely roles from the skills found.
package resume

import (
	"regexp"
	"sort"
	"strings"
)

const maxSkills = 200

var (
	emailRe    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRe    = regexp.MustCompile(`(?:\+\d{1,3}[ -]?)?\(?\d{3}\)?[ -]?\d{3}[ -]?\d{4}`)
	linkedinRe = regexp.MustCompile(`(?i)linkedin\.com/in/[A-Za-z0-9_-]+`)
	githubRe   = regexp.MustCompile(`(?i)github\.com/[A-Za-z0-9._-]+`)
	skillRe    = regexp.MustCompile(`[A-Za-z0-9+#.\-_/]{2,}`)
)

// Contact holds the fields harvested from the resume header.
type Contact struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
}

// Parsed is the structured view of one resume.
type Parsed struct {
	Contact  Contact           `json:"contact"`
	Skills   []string          `json:"skills"`
	Sections map[string]string `json:"raw_sections"`
}

// Parse extracts contact details, section bodies and a deduplicated skill
// list from resume text.
func Parse(text string) *Parsed {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	content := strings.Join(lines, "\n")

	skillsBlock := section(content, "Skills", "Technical Skills", "Skills & Tools", "Core Skills")

	return &Parsed{
		Contact: Contact{
			Email:    emailRe.FindString(content),
			Phone:    phoneRe.FindString(content),
			LinkedIn: linkedinRe.FindString(content),
			GitHub:   githubRe.FindString(content),
		},
		Skills: skillTokens(skillsBlock),
		Sections: map[string]string{
			"skills":     skillsBlock,
			"experience": section(content, "Experience", "Professional Experience", "Work Experience"),
			"education":  section(content, "Education", "Academic Background"),
			"projects":   section(content, "Projects", "Selected Projects"),
		},
	}
}

// section returns everything after the last standalone occurrence of one of
// the given headers, or "" when no header is present.
func section(content string, headers ...string) string {
	for i, h := range headers {
		headers[i] = regexp.QuoteMeta(h)
	}
	pattern := regexp.MustCompile(`(?im)^\s*(?:` + strings.Join(headers, "|") + `)\s*$`)

	locs := pattern.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return ""
	}
	return strings.TrimSpace(content[locs[len(locs)-1][1]:])
}

func skillTokens(block string) []string {
	if block == "" {
		return nil
	}

	seen := make(map[string]struct{})
	for _, token := range skillRe.FindAllString(block, -1) {
		seen[strings.ToLower(token)] = struct{}{}
	}

	skills := make([]string, 0, len(seen))
	for s := range seen {
		skills = append(skills, s)
	}
	sort.Strings(skills)

	if len(skills) > maxSkills {
		skills = skills[:maxSkills]
	}
	return skills
}
