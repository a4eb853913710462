package assistant

import (
	"regexp"
	"strconv"

	"maitre/internal/models"
)

// Fixed confidences of the deterministic analyzer
const (
	ConfidenceStatus  = 0.8
	ConfidenceQuery   = 0.7
	ConfidenceMenu    = 0.6
	ConfidenceHelp    = 0.9
	ConfidenceUnknown = 0.1
)

var (
	actionVerb = regexp.MustCompile(`\b(?:mark|set|update|change|complete|finish|cancel)\b`)
	// A status word next to an order number is a status change in either
	// word order: "order 5 is done", "done 7".
	statusWord = regexp.MustCompile(`\b(?:done|cancelled|pending)\b`)

	orderNumberRe = regexp.MustCompile(`\border\s+(?:number\s+)?#?(\d+)`)
	digitsRe      = regexp.MustCompile(`\d+`)

	doneWords      = regexp.MustCompile(`\b(?:done|finish|finished|complete|completed|ready|cooked|served)\b`)
	cancelledWords = regexp.MustCompile(`\b(?:cancelled|canceled|cancel|void|remove|delete|stop)\b`)
	pendingWords   = regexp.MustCompile(`\b(?:pending|waiting|queue|queued)\b`)

	queryPhrase = regexp.MustCompile(`\b(?:how many|list out|what are|show me|tell me|when did|which)\b`)
	menuWords   = regexp.MustCompile(`\b(?:menu|popular|best)\b`)
	popularity  = regexp.MustCompile(`\b(?:popular|best)\b`)
	helpPhrase  = regexp.MustCompile(`\bhelp\b|\bwhat can you do\b`)
)

// FallbackAnalysis classifies a command with ordered keyword heuristics.
// Action verbs are looked for before status words are rewritten; every
// other rule sees the fully normalized text.
func (n *Normalizer) FallbackAnalysis(command string) CommandAnalysis {
	text := n.Normalize(command)

	switch {
	case actionVerb.MatchString(n.normalizeBefore(command, stageStatus)) || isStatusChange(text):
		return newAnalysis(OrderStatusEntities{
			OrderNumber: extractOrderNumber(text),
			Status:      extractStatus(text),
		}, ConfidenceStatus, "update_order_status")

	case queryPhrase.MatchString(text) || extractStatus(text) != nil:
		return newAnalysis(OrderQueryEntities{}, ConfidenceQuery, "summarize_orders")

	case menuWords.MatchString(text):
		return newAnalysis(MenuQueryEntities{
			SortByPopularity: popularity.MatchString(text),
		}, ConfidenceMenu, "summarize_menu")

	case helpPhrase.MatchString(text):
		return newAnalysis(HelpEntities{}, ConfidenceHelp, "show_help")

	default:
		return newAnalysis(UnknownEntities{}, ConfidenceUnknown, "none")
	}
}

func isStatusChange(text string) bool {
	return statusWord.MatchString(text) && digitsRe.MatchString(text) && !queryPhrase.MatchString(text)
}

func extractOrderNumber(text string) *int {
	var digits string
	if m := orderNumberRe.FindStringSubmatch(text); m != nil {
		digits = m[1]
	} else {
		digits = digitsRe.FindString(text)
	}
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}

func extractStatus(text string) *models.OrderStatus {
	var s models.OrderStatus
	switch {
	case doneWords.MatchString(text):
		s = models.OrderStatusDone
	case cancelledWords.MatchString(text):
		s = models.OrderStatusCancelled
	case pendingWords.MatchString(text):
		s = models.OrderStatusPending
	default:
		return nil
	}
	return &s
}
