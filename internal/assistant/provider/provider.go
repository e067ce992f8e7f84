// Package provider generates assistant replies. The remote provider calls a
// hosted LLM; the rule-based provider answers from a fixed intent table and
// is the permanent fallback, so the assistant never errors out.
package provider

import (
	"context"
	"strings"

	"covergate/internal/assistant/models"
)

// Turn is one prior message handed to a provider as context.
type Turn struct {
	Sender models.Sender
	Text   string
}

// Provider turns a user message plus recent history into a reply.
type Provider interface {
	Reply(ctx context.Context, message string, history []Turn) (string, error)
}

// RuleBased answers from keyword intents. It never fails.
type RuleBased struct{}

func NewRuleBased() *RuleBased { return &RuleBased{} }

var intents = []struct {
	keywords []string
	reply    string
}{
	{[]string{"hello", "hi"}, "Hello! How can I help you with your insurance today?"},
	{[]string{"policy", "plan"}, "You can view all our available plans on the 'Policies' page. We offer Life, Health, Travel, and Auto insurance."},
	{[]string{"claim"}, "To file a claim, please go to the 'Claims' tab in your dashboard. It's a quick and easy process."},
	{[]string{"contact", "support"}, "You can reach our support team at support@covergate.example or call 1-800-INSURE."},
	{[]string{"travel"}, "Our Travel Protection Plus plan covers lost luggage, delays, and medical emergencies abroad. Would you like to know more?"},
	{[]string{"life"}, "Family Life Secure provides high-value coverage to protect your loved ones. Check the details in the Policies section."},
	{[]string{"health"}, "Health Pro Max includes dental, vision, and comprehensive care. It's one of our most popular plans."},
}

const defaultReply = "I'm currently operating in offline mode. Please check the 'Policies' or 'Claims' sections for more details, or try again later."

func (*RuleBased) Reply(_ context.Context, message string, _ []Turn) (string, error) {
	msg := strings.ToLower(message)
	for _, intent := range intents {
		for _, kw := range intent.keywords {
			if strings.Contains(msg, kw) {
				return intent.reply, nil
			}
		}
	}
	return defaultReply, nil
}
