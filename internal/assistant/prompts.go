package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"maitre/internal/models"
)

const (
	promptOrderLimit = 10
	promptMenuLimit  = 20
)

const analysisInstructions = `You interpret short spoken commands from restaurant staff managing orders.

Classify the command into exactly one intent:
- order_status: change the status of one order ("mark order 7 as done", "cancel order 12")
- order_query: ask about orders ("how many pending orders", "show me today's orders")
- menu_query: ask about the menu ("what is the most popular item", "how many items are available")
- help: ask what the assistant can do
- unknown: anything else

Rules:
- Order statuses are exactly: pending, done, cancelled.
- "finished", "complete", "ready" and "served" mean done. "void", "remove" and "stop" mean cancelled.
- Order numbers are the display numbers listed below, never internal ids.
- A question about orders is order_query even when it mentions a status.
- Use parameters.filter only when the user asks about one status alone.
- Use parameters.sortBy = "popularity" for popular or best-selling items.

Reply with a single JSON object and nothing else:
{"intent": "...", "entities": {"orderNumber": 7, "status": "done", "menuItem": "", "quantity": null, "timeframe": ""},
 "confidence": 0.0-1.0, "suggestedAction": "...", "parameters": {"filter": "", "sortBy": ""}}`

const responseInstructions = `You are the voice of a restaurant order desk. Turn the result below into a
short spoken reply of two or three sentences. Sound natural and vary your wording.
Never say "I have processed your request", "Command executed successfully",
"Your request has been completed", "As an AI" or "Operation successful".
If the result is a failure, explain the problem plainly and suggest what to say instead.
Reply with the spoken text only.`

type promptOrder struct {
	Number int                `json:"number"`
	Status models.OrderStatus `json:"status"`
	Total  string             `json:"total"`
	Note   string             `json:"note,omitempty"`
}

type promptMenuItem struct {
	Name         string `json:"name"`
	Price        string `json:"price"`
	Available    bool   `json:"available"`
	TotalOrdered int    `json:"totalOrdered"`
}

// buildAnalysisPrompt grounds the instructions with the first orders and
// menu items of the snapshot.
func buildAnalysisPrompt(command string, snap Snapshot) string {
	orders := make([]promptOrder, 0, promptOrderLimit)
	for i, o := range snap.Orders {
		if i == promptOrderLimit {
			break
		}
		orders = append(orders, promptOrder{Number: o.Number, Status: o.Status, Total: o.Total.StringFixed(2), Note: o.Note})
	}

	items := make([]promptMenuItem, 0, promptMenuLimit)
	for i, m := range snap.MenuItems {
		if i == promptMenuLimit {
			break
		}
		items = append(items, promptMenuItem{Name: m.Name, Price: m.Price.StringFixed(2), Available: m.Available, TotalOrdered: m.TotalOrdered})
	}

	ordersJSON, _ := json.Marshal(orders)
	itemsJSON, _ := json.Marshal(items)

	var b strings.Builder
	fmt.Fprintf(&b, "Current orders: %s\n", ordersJSON)
	fmt.Fprintf(&b, "Menu items: %s\n\n", itemsJSON)
	fmt.Fprintf(&b, "Command: %q", command)
	return b.String()
}

func buildResponsePrompt(analysis CommandAnalysis, result ExecutionResult) string {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		resultJSON = []byte(`{}`)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Intent: %s\n", analysis.Intent)
	fmt.Fprintf(&b, "Suggested action: %s\n", analysis.SuggestedAction)
	fmt.Fprintf(&b, "Result: %s", resultJSON)
	return b.String()
}
