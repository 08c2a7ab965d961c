// internal/discovery/persona/messages.go
package persona

import (
	"fmt"
	"strings"

	"resource-discovery/internal/models"
)

// RateLimitError is the error text of a quota rejection.
const RateLimitError = "Rate limit exceeded. Please wait a few minutes before trying again."

const crisisHotlines = "**If you're in immediate danger, please call 911 right now.**\n\n" +
	"**For crisis support:**\n" +
	"• 911 - Emergency services\n" +
	"• 988 - Suicide & Crisis Lifeline (available 24/7)\n" +
	"• Text HOME to 741741 - Crisis Text Line\n" +
	"• 1-800-799-7233 - National Domestic Violence Hotline"

var staticSafety = map[Persona]string{
	Crisis: "I am here to support you. While I am experiencing technical difficulties, your safety is the highest priority.\n\n" +
		crisisHotlines,
	CrisisEmergency: "I am here to support you. While I am experiencing technical difficulties, your safety is the highest priority.\n\n" +
		crisisHotlines,
	Reentry: "I apologize for the technical issue. For immediate reentry support, please call 211 for comprehensive " +
		"resource navigation or visit your local reentry program.",
	Victim: "I apologize for the technical difficulty. Your safety matters.\n\n" +
		"• 911 - If you are in immediate danger\n" +
		"• 1-800-799-7233 - National Domestic Violence Hotline\n" +
		"• 1-800-656-4673 - National Sexual Assault Hotline\n" +
		"• 988 - Suicide & Crisis Lifeline",
	General: "I'm having trouble reaching my resource tools right now. Please call 211 for help finding local services, " +
		"or 988 if you need someone to talk to right away.",
	Coach: "I'm having trouble right now. Please call 211 for local resources, or 988 if you need to talk to someone now. " +
		CoachClosingLine,
}

var rateLimitSupport = map[Persona]string{
	Crisis:          "For immediate crisis support, please call 988 (Suicide & Crisis Lifeline) or 911.",
	CrisisEmergency: "For immediate crisis support, please call 988 (Suicide & Crisis Lifeline) or 911.",
	Victim:          "For immediate victim support, please call the National Domestic Violence Hotline at 1-800-799-7233.",
	Reentry:         "For immediate reentry support, please call 211 for comprehensive resource navigation.",
	General:         "For help finding local services, please call 211. If you are in crisis, call 988.",
	Coach:           "For help finding local services, please call 211. If you are in crisis, call 988.",
}

// StaticSafetyMessage is the last-resort reply that needs no upstream at all.
func StaticSafetyMessage(p Persona) string {
	if msg, ok := staticSafety[p]; ok {
		return msg
	}
	return staticSafety[General]
}

// RateLimitSupportMessage accompanies a quota rejection.
func RateLimitSupportMessage(p Persona) string {
	if msg, ok := rateLimitSupport[p]; ok {
		return msg
	}
	return rateLimitSupport[General]
}

// DegradedMessage is returned alongside keyword-matched resources when reasoning is unavailable.
func DegradedMessage(p Persona, resources []models.Resource) string {
	if len(resources) == 0 {
		return StaticSafetyMessage(p)
	}

	switch p {
	case General, Coach:
		var b strings.Builder
		fmt.Fprintf(&b, "I found %d resources that might help with your request. "+
			"While I can't provide personalized guidance right now, here are some options to explore:\n\n", len(resources))
		for i, r := range resources {
			if i == 3 {
				break
			}
			b.WriteString(formatListing(r))
			b.WriteString("\n")
		}
		b.WriteString("\nPlease call these organizations directly for current information and availability.")
		return b.String()
	case Crisis, CrisisEmergency:
		return StaticSafetyMessage(p) + "\n\nI found some local Ohio resources that may be able to help. Please see the list below."
	default:
		return fmt.Sprintf("I'm having trouble generating a personalized answer right now, but I found %d local resources "+
			"that may help. Please see the list below. %s", len(resources), RateLimitSupportMessage(p))
	}
}

func formatListing(r models.Resource) string {
	org := r.Organization
	if org == "" {
		org = r.Name
	}
	line := fmt.Sprintf("• %s (%s) - %s", r.Name, org, r.Type)
	if loc := r.Locality(); loc != "" {
		line += " in " + loc
	}
	return line
}
