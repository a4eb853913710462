package assistant

import (
	"encoding/json"

	"maitre/internal/models"
)

// Intent is the classified purpose of a command
type Intent string

const (
	IntentOrderStatus Intent = "order_status"
	IntentOrderQuery  Intent = "order_query"
	IntentMenuQuery   Intent = "menu_query"
	IntentHelp        Intent = "help"
	IntentUnknown     Intent = "unknown"
)

// ParseIntent maps a model-provided string onto the closed intent set.
// Anything unrecognized becomes IntentUnknown.
func ParseIntent(s string) Intent {
	switch Intent(s) {
	case IntentOrderStatus, IntentOrderQuery, IntentMenuQuery, IntentHelp:
		return Intent(s)
	default:
		return IntentUnknown
	}
}

// Entities is the per-intent set of extracted values. The concrete type
// always matches the analysis intent.
type Entities interface {
	intent() Intent
}

// OrderStatusEntities carries the target of a status change
type OrderStatusEntities struct {
	OrderNumber *int
	Status      *models.OrderStatus
}

// OrderQueryEntities narrows an order query
type OrderQueryEntities struct {
	Filter    *models.OrderStatus
	Timeframe string
}

// MenuQueryEntities narrows a menu query
type MenuQueryEntities struct {
	MenuItem         string
	Quantity         *int
	SortByPopularity bool
}

type HelpEntities struct{}

type UnknownEntities struct{}

func (OrderStatusEntities) intent() Intent { return IntentOrderStatus }
func (OrderQueryEntities) intent() Intent  { return IntentOrderQuery }
func (MenuQueryEntities) intent() Intent   { return IntentMenuQuery }
func (HelpEntities) intent() Intent        { return IntentHelp }
func (UnknownEntities) intent() Intent     { return IntentUnknown }

// CommandAnalysis is the structured reading of one command
type CommandAnalysis struct {
	Intent          Intent
	Entities        Entities
	Confidence      float64
	SuggestedAction string
}

// newAnalysis keeps Intent and Entities consistent
func newAnalysis(entities Entities, confidence float64, action string) CommandAnalysis {
	if entities == nil {
		entities = UnknownEntities{}
	}
	return CommandAnalysis{
		Intent:          entities.intent(),
		Entities:        entities,
		Confidence:      clamp(confidence),
		SuggestedAction: action,
	}
}

func clamp(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

type entitiesJSON struct {
	OrderNumber *int                `json:"orderNumber,omitempty"`
	Status      *models.OrderStatus `json:"status,omitempty"`
	Quantity    *int                `json:"quantity,omitempty"`
	MenuItem    string              `json:"menuItem,omitempty"`
	Timeframe   string              `json:"timeframe,omitempty"`
}

type parametersJSON struct {
	Filter *models.OrderStatus `json:"filter,omitempty"`
	SortBy string              `json:"sortBy,omitempty"`
}

// MarshalJSON renders the analysis in the flat
// {intent, entities, confidence, suggestedAction, parameters} shape.
func (a CommandAnalysis) MarshalJSON() ([]byte, error) {
	var (
		ent    entitiesJSON
		params parametersJSON
	)
	switch e := a.Entities.(type) {
	case OrderStatusEntities:
		ent.OrderNumber = e.OrderNumber
		ent.Status = e.Status
	case OrderQueryEntities:
		ent.Timeframe = e.Timeframe
		params.Filter = e.Filter
	case MenuQueryEntities:
		ent.MenuItem = e.MenuItem
		ent.Quantity = e.Quantity
		if e.SortByPopularity {
			params.SortBy = "popularity"
		}
	}

	return json.Marshal(struct {
		Intent          Intent         `json:"intent"`
		Entities        entitiesJSON   `json:"entities"`
		Confidence      float64        `json:"confidence"`
		SuggestedAction string         `json:"suggestedAction"`
		Parameters      parametersJSON `json:"parameters"`
	}{a.Intent, ent, a.Confidence, a.SuggestedAction, params})
}

// Failure classifies why an execution did not succeed
type Failure string

const (
	FailureInvalid   Failure = "invalid"   // not understood or missing entities
	FailureNotFound  Failure = "not_found" // no such order
	FailureUnchanged Failure = "unchanged" // already in the requested status
	FailureConflict  Failure = "conflict"  // changed concurrently
	FailureStore     Failure = "store"     // the database write failed
)

// ExecutionResult is the outcome of executing an analysis
type ExecutionResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Failure Failure     `json:"failure,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func succeeded(message string, data interface{}) ExecutionResult {
	return ExecutionResult{Success: true, Message: message, Data: data}
}

func failed(kind Failure, msg string) ExecutionResult {
	return ExecutionResult{Success: false, Error: msg, Failure: kind}
}

// StatusChange is returned after a successful order_status command
type StatusChange struct {
	Order          models.Order       `json:"order"`
	PreviousStatus models.OrderStatus `json:"previousStatus"`
	NewStatus      models.OrderStatus `json:"newStatus"`
}

// OrderSummary is the unfiltered order_query result
type OrderSummary struct {
	models.OrderCounts
	RecentOrders []models.Order `json:"recentOrders"`
}

// FilteredOrders is the order_query result when a status filter is set
type FilteredOrders struct {
	Filter models.OrderStatus `json:"filter"`
	Count  int                `json:"count"`
	Orders []models.Order     `json:"orders"`
}

// MenuSummary is the default menu_query result
type MenuSummary struct {
	Available int `json:"available"`
	Total     int `json:"total"`
}

// PopularItems is the menu_query result sorted by popularity
type PopularItems struct {
	TopItems []models.MenuItem `json:"topItems"`
	TopItem  *models.MenuItem  `json:"topItem,omitempty"`
}

// HelpInfo lists example commands
type HelpInfo struct {
	Examples []string `json:"examples"`
}

// Snapshot is the order and menu state read at the start of one command
type Snapshot struct {
	Orders    []models.Order
	MenuItems []models.MenuItem
}
