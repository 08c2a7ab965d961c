// internal/discovery/persona/prompts.go
package persona

import (
	"encoding/json"
	"fmt"
	"strings"

	"resource-discovery/internal/models"
)

// PromptContext carries the per-request facts folded into a system prompt.
type PromptContext struct {
	Location     string
	County       string
	Urgency      models.Urgency
	MaxResources int
}

type promptResource struct {
	Name            string `json:"name"`
	Organization    string `json:"organization,omitempty"`
	Type            string `json:"type"`
	Description     string `json:"description,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Website         string `json:"website,omitempty"`
	City            string `json:"city,omitempty"`
	County          string `json:"county,omitempty"`
	Verified        bool   `json:"verified"`
	JusticeFriendly bool   `json:"justice_friendly,omitempty"`
}

var introductions = map[Persona]string{
	Crisis: "You are Coach Kay, the crisis support companion serving all 88 counties across Ohio. " +
		"You focus on immediate safety, safety planning and connecting people with local support.",
	CrisisEmergency: "You are a crisis emergency support assistant serving all 88 counties across Ohio. " +
		"Provide immediate, calm support during crisis situations and point to emergency services first.",
	Reentry: "You are a reentry navigator specializing in reentry support and success planning in Ohio. " +
		"You cover housing, employment, legal aid and expungement, education, healthcare and family reunification.",
	Victim: "You are Coach Kay, a trauma-informed navigator serving crime victims and survivors across Ohio's 88 counties. " +
		"You cover victim rights, compensation, counseling and advocacy.",
	General: "You are an assistant specializing in Ohio community resources and support services. " +
		"You have access to a database of resources across all 88 Ohio counties.",
	Coach: "You are Coach K, a friendly navigator for justice-impacted people and families in Columbus, Ohio. " +
		"Ask one or two clarifying questions and give two to four local, free or sliding-scale resources in plain English.",
}

var guidelines = map[Persona][]string{
	Crisis: {
		"For immediate danger, prioritize 911.",
		"For suicide or crisis support, emphasize 988.",
		"For domestic violence, emphasize 1-800-799-7233.",
	},
	CrisisEmergency: {
		"If anyone is in immediate danger, tell them to call 911 now.",
		"Mention 988 and the Crisis Text Line (text HOME to 741741).",
	},
	Reentry: {
		"Prioritize justice-friendly employers and programs.",
		"Mention 211 for comprehensive resource navigation.",
	},
	Victim: {
		"Use trauma-informed, non-judgmental language.",
		"For domestic violence, emphasize 1-800-799-7233; for sexual assault, 1-800-656-4673.",
		"For immediate danger, prioritize 911.",
	},
	General: {
		"Only recommend resources from the list above or well-known statewide services.",
		"Suggest calling 211 when nothing local fits.",
	},
	Coach: {
		"Flag URGENT if the user mentions eviction within 3 days, court tomorrow or no food today, and give hotlines first.",
		"Never give legal, medical or mental-health advice; point to licensed providers.",
		"End every reply with: '" + CoachClosingLine + "'",
	},
}

// CoachClosingLine ends every coach reply.
const CoachClosingLine = "Need more help? Reply here any time."

// BuildSystemPrompt renders the system prompt for p. It has no side effects.
func BuildSystemPrompt(p Persona, resources []models.Resource, pc PromptContext) string {
	var b strings.Builder

	intro, ok := introductions[p]
	if !ok {
		intro = introductions[General]
	}
	b.WriteString(intro)
	b.WriteString("\n\n### Response Format\n")
	b.WriteString("- Use clear markdown headers and bullet points for resources and next steps.\n")
	b.WriteString("- For every resource give the name, phone, website and a next-step action when known.\n")
	b.WriteString("- Never invent phone numbers or links.\n")
	if p != Coach {
		b.WriteString("- End with exactly ONE guided question.\n")
	}

	b.WriteString("\n### Request Context\n")
	if pc.Location != "" {
		fmt.Fprintf(&b, "- Location: %s\n", pc.Location)
	}
	if pc.County != "" {
		fmt.Fprintf(&b, "- County: %s\n", pc.County)
	}
	urgency := pc.Urgency
	if urgency == "" {
		urgency = models.UrgencyModerate
	}
	fmt.Fprintf(&b, "- Urgency: %s\n", urgency)

	b.WriteString("\n### Available Ohio Resources\n")
	b.WriteString(encodeResources(resources, pc.MaxResources))
	b.WriteString("\n")

	if lines := guidelines[p]; len(lines) > 0 {
		b.WriteString("\n### Important Guidelines\n")
		for _, line := range lines {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func encodeResources(resources []models.Resource, max int) string {
	if max > 0 && len(resources) > max {
		resources = resources[:max]
	}
	items := make([]promptResource, 0, len(resources))
	for _, r := range resources {
		items = append(items, promptResource{
			Name:            r.Name,
			Organization:    r.Organization,
			Type:            r.Type,
			Description:     r.Description,
			Phone:           r.Phone,
			Website:         r.Website,
			City:            r.City,
			County:          r.County,
			Verified:        r.Verified,
			JusticeFriendly: r.JusticeFriendly,
		})
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

var searchSubjects = map[Persona]string{
	Crisis:          "crisis support",
	CrisisEmergency: "crisis and emergency support",
	Reentry:         "reentry support",
	Victim:          "victim support",
	General:         "community resources",
	Coach:           "community resources",
}

// WebSearchInstruction returns the system and user messages sent to the web-search service.
func WebSearchInstruction(p Persona, query, location, county string) (system, user string) {
	subject, ok := searchSubjects[p]
	if !ok {
		subject = searchSubjects[General]
	}
	system = fmt.Sprintf("You are a %s resource finder. Find verified Ohio %s organizations across all 88 counties. "+
		"Prioritize Columbus and Franklin County if applicable. "+
		`Return a JSON array of objects with the keys "name", "phone", "website" and "description".`,
		subject, subject)

	var u strings.Builder
	fmt.Fprintf(&u, "Search for Ohio %s related to: %s", subject, query)
	if location != "" {
		fmt.Fprintf(&u, " near %s", location)
	}
	if county != "" {
		fmt.Fprintf(&u, " in %s County", county)
	}
	return system, u.String()
}
