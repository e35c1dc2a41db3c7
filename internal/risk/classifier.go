// Package risk assigns an escalation tier to a conversation by scanning the
// user's side of the transcript for crisis and concern vocabulary. It is a
// coarse keyword heuristic, not a diagnostic tool.
package risk

import (
	"strings"

	"github.com/hanzhang719/mindline/internal/chat"
)

type Tier int

const (
	TierNotEvaluated Tier = iota
	TierNormal
	TierConsultation
	TierUrgent
)

func (t Tier) String() string {
	switch t {
	case TierNormal:
		return "normal"
	case TierConsultation:
		return "consultation"
	case TierUrgent:
		return "urgent"
	default:
		return "not-evaluated"
	}
}

// Assessment is derived from the live transcript on every call and never
// stored.
type Assessment struct {
	Tier     Tier   `json:"-"`
	Status   string `json:"status"`
	Label    string `json:"label"`
	Guidance string `json:"guidance,omitempty"`
}

// Matching is deliberately loose substring containment ("sad" matches inside
// other words). Changing it to word-boundary matching would change observed
// tiers and needs a product decision first.
var urgentPhrases = []string{
	"suicide",
	"suicidal",
	"kill myself",
	"end my life",
	"want to die",
	"self harm",
	"hurt myself",
	"cutting",
	"overdose",
	"no reason to live",
	"better off dead",
	"can't go on",
}

var concernPhrases = []string{
	"depressed",
	"depression",
	"hopeless",
	"helpless",
	"worthless",
	"panic attack",
	"severe anxiety",
	"can't cope",
	"breakdown",
	"trauma",
	"ptsd",
	"intrusive thoughts",
	"constantly anxious",
	"can't sleep",
	"insomnia",
	"nightmares",
	"overwhelming",
}

var mildPhrases = []string{
	"stressed",
	"stress",
	"anxious",
	"anxiety",
	"worried",
	"nervous",
	"sad",
	"upset",
	"overwhelmed",
	"tired",
	"exhausted",
}

// Thresholds are heuristic, kept as named constants so tuning them is a
// one-line change.
const (
	minUserMessages       = 3
	concernCountHigh      = 3
	concernCountRepeated  = 2
	repeatedMessageCount  = 5
	mildCountConsultation = 4
)

// Evaluate classifies the transcript. Only user-authored messages are
// scanned; assistant messages never influence the tier.
func Evaluate(messages []chat.Message) Assessment {
	var userTexts []string
	for _, m := range messages {
		if m.Sender == chat.SenderUser {
			userTexts = append(userTexts, strings.ToLower(m.Content))
		}
	}

	if len(userTexts) < minUserMessages {
		return Assessment{
			Tier:     TierNotEvaluated,
			Status:   TierNotEvaluated.String(),
			Label:    "Not Evaluated",
			Guidance: "Continue chatting to receive a mental health evaluation.",
		}
	}

	text := strings.Join(userTexts, " ")

	for _, p := range urgentPhrases {
		if strings.Contains(text, p) {
			return Assessment{
				Tier:     TierUrgent,
				Status:   TierUrgent.String(),
				Label:    "Urgent Professional Consultation Recommended",
				Guidance: "Please seek immediate professional help. Contact a mental health crisis line or visit your nearest emergency room.",
			}
		}
	}

	concerns := countDistinct(text, concernPhrases)
	if concerns >= concernCountHigh ||
		(len(userTexts) >= repeatedMessageCount && concerns >= concernCountRepeated) {
		return consultation()
	}

	if countDistinct(text, mildPhrases) >= mildCountConsultation {
		return consultation()
	}

	return Assessment{
		Tier:   TierNormal,
		Status: TierNormal.String(),
		Label:  "Normal",
	}
}

func consultation() Assessment {
	return Assessment{
		Tier:     TierConsultation,
		Status:   TierConsultation.String(),
		Label:    "Professional Consultation Recommended",
		Guidance: "Consider scheduling an appointment with a mental health professional to discuss your concerns.",
	}
}

// countDistinct counts how many vocabulary entries appear in the text; each
// entry counts once no matter how often it occurs.
func countDistinct(text string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(text, p) {
			n++
		}
	}
	return n
}
