package resume

import "sort"

// roleKeywords maps a role profile to the skills that indicate it.
var roleKeywords = map[string][]string{
	"backend":  {"python", "java", "go", "microservices", "api", "postgres", "redis", "aws"},
	"frontend": {"react", "typescript", "javascript", "vue", "css", "html", "nextjs"},
	"ml":       {"pytorch", "tensorflow", "ml", "machine learning", "nlp", "cv"},
	"devops":   {"kubernetes", "docker", "terraform", "cicd", "aws", "gcp", "azure"},
}

// minRoleScore is how many keyword hits qualify a role as likely.
const minRoleScore = 2

// RoleScore is one inferred role with its keyword hit count.
type RoleScore struct {
	Role  string `json:"role"`
	Score int    `json:"score"`
}

// Insights summarizes what the resume suggests about the candidate.
type Insights struct {
	LikelyRoles []RoleScore `json:"likely_roles"`
	Strengths   []string    `json:"strengths"`
	Gaps        []string    `json:"gaps"`
}

// Analyze scores the parsed resume against the role keyword profiles and
// collects strengths and gaps.
func Analyze(parsed *Parsed) *Insights {
	skills := make(map[string]struct{}, len(parsed.Skills))
	for _, s := range parsed.Skills {
		skills[s] = struct{}{}
	}

	var roles []RoleScore
	for role, keywords := range roleKeywords {
		score := 0
		for _, k := range keywords {
			if _, ok := skills[k]; ok {
				score++
			}
		}
		if score >= minRoleScore {
			roles = append(roles, RoleScore{Role: role, Score: score})
		}
	}
	sort.Slice(roles, func(i, j int) bool {
		if roles[i].Score != roles[j].Score {
			return roles[i].Score > roles[j].Score
		}
		return roles[i].Role < roles[j].Role
	})

	var strengths []string
	if len(skills) >= 10 {
		strengths = append(strengths, "Breadth of skills")
	}
	for _, core := range []string{"python", "java", "react", "kubernetes"} {
		if _, ok := skills[core]; ok {
			strengths = append(strengths, "In-demand core technologies present")
			break
		}
	}

	var gaps []string
	if parsed.Sections["projects"] == "" {
		gaps = append(gaps, "Add 1-2 measurable project summaries with outcomes")
	}
	if parsed.Sections["experience"] == "" {
		gaps = append(gaps, "Detail recent experience with metrics (impact, scale)")
	}

	return &Insights{
		LikelyRoles: roles,
		Strengths:   strengths,
		Gaps:        gaps,
	}
}
