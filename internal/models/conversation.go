// Package models defines conversation state structures for orderbot flows.
package models

import (
	"errors"
	"fmt"
	"time"
)

// ConversationStep identifies a state in the per-user conversation FSM.
type ConversationStep string

// Category flow steps.
const (
	StepCategoryWelcome   ConversationStep = "category_welcome"
	StepCategorySelection ConversationStep = "category_selection"
	StepItemSelection     ConversationStep = "item_selection"
	StepItemCustomization ConversationStep = "item_customization"
)

// Sequential flow steps.
const (
	StepSequentialWelcome   ConversationStep = "sequential_welcome"
	StepSequentialSelection ConversationStep = "sequential_step_selection"
)

// Shared cart and checkout steps.
const (
	StepQuantitySelection ConversationStep = "quantity_selection"
	StepCartActions       ConversationStep = "cart_actions"
	StepCheckout          ConversationStep = "checkout"
	StepFinal             ConversationStep = "final"
)

// Cart quantity bounds, inclusive.
const (
	MinCartQuantity = 1
	MaxCartQuantity = 10
)

// CustomizedItemCategory marks cart items composed by the sequential flow.
const CustomizedItemCategory = "customized_item"

// Cart item validation errors.
var (
	ErrQuantityOutOfRange = errors.New("quantity out of range")
	ErrEmptyItemName      = errors.New("cart item name cannot be empty")
)

// CartItem is one line of a cart. Price is the resolved unit price at
// add-time and is never re-derived from the menu later.
type CartItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int    `json:"price"`
	Category string `json:"category"`
}

// Validate checks cart item invariants.
func (ci CartItem) Validate() error {
	if ci.Name == "" {
		return ErrEmptyItemName
	}
	if ci.Quantity < MinCartQuantity || ci.Quantity > MaxCartQuantity {
		return fmt.Errorf("%w: %d", ErrQuantityOutOfRange, ci.Quantity)
	}
	return nil
}

// ItemRef is a name/price snapshot of a pending selection.
type ItemRef struct {
	Name        string `json:"name"`
	Price       int    `json:"price"`
	Description string `json:"description,omitempty"`
}

// SequentialSelection records one step's choice in a sequential flow.
type SequentialSelection struct {
	StepName     string  `json:"step_name"`
	SelectedItem ItemRef `json:"selected_item"`
}

// SequentialFlowState is the scratch state of an in-progress sequential
// composition. CurrentStep holds the Order value of the active step and is
// reset to zero once the composed item is built.
type SequentialFlowState struct {
	CurrentStep    int                            `json:"current_step"`
	Selections     map[string]SequentialSelection `json:"selections"`
	CustomizedItem *ItemRef                       `json:"customized_item,omitempty"`
}

// CustomizationState is the scratch state of an in-progress item
// customization sub-flow in the categories flow.
type CustomizationState struct {
	CurrentStep int                `json:"current_step"`
	Selections  map[string]ItemRef `json:"selections"`
	BaseItem    ItemRef            `json:"base_item"`
}

// Conversation is the persisted per-user state, keyed by
// "{tenantID}-{phoneNumber}". Scratch fields are nil/empty except while the
// owning flow is mid-selection.
type Conversation struct {
	Key             string           `json:"key"`
	Step            ConversationStep `json:"step"`
	Cart            []CartItem       `json:"cart"`
	LastInteraction int64            `json:"last_interaction"` // unix milliseconds

	SelectedCategory  string               `json:"selected_category,omitempty"`
	SelectedItem      *ItemRef             `json:"selected_item,omitempty"`
	SequentialFlow    *SequentialFlowState `json:"sequential_flow,omitempty"`
	CustomizationFlow *CustomizationState  `json:"customization_flow,omitempty"`
}

// Touch stamps the last-interaction timestamp with the current time.
func (c *Conversation) Touch(now time.Time) {
	c.LastInteraction = now.UnixMilli()
}

// Expired reports whether the conversation has been idle longer than timeout.
func (c *Conversation) Expired(now time.Time, timeout time.Duration) bool {
	return now.UnixMilli()-c.LastInteraction > timeout.Milliseconds()
}

// ClearScratch drops all flow-specific pending-selection state.
func (c *Conversation) ClearScratch() {
	c.SelectedCategory = ""
	c.SelectedItem = nil
	c.SequentialFlow = nil
	c.CustomizationFlow = nil
}
