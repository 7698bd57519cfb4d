// Package models defines the core data structures for orderbot.
//
// It includes tenant configuration (flow type, menu, pricing), conversation
// state, cart items and orders, which are shared across modules.
package models

import (
	"errors"
	"fmt"
)

// FlowType selects which ordering flow a tenant runs.
type FlowType string

const (
	// FlowCategories walks the user through category -> item -> quantity.
	FlowCategories FlowType = "categories"
	// FlowSequential composes one item from an ordered list of steps.
	FlowSequential FlowType = "sequential"
)

// IsValidFlowType checks if the given flow type is supported.
func IsValidFlowType(ft FlowType) bool {
	switch ft {
	case FlowCategories, FlowSequential:
		return true
	default:
		return false
	}
}

// Validation error variables for tenant configuration.
var (
	ErrEmptyTenantID        = errors.New("tenant id cannot be empty")
	ErrInvalidFlowType      = errors.New("invalid flow type")
	ErrEmptyTransfersNumber = errors.New("transfers phone number is required")
	ErrInvalidTimeout       = errors.New("timeout minutes must be positive")
	ErrNoCategories         = errors.New("categories flow requires at least one category")
	ErrNoSteps              = errors.New("sequential flow requires at least one step")
	ErrBothFlowShapes       = errors.New("config populates both categories and steps")
	ErrDuplicateCategoryKey = errors.New("duplicate category key")
	ErrDuplicateStepOrder   = errors.New("duplicate sequential step order")
)

// MenuItem is a purchasable entry inside a category or sequential step.
type MenuItem struct {
	Name        string `json:"name"`
	Price       int    `json:"price"`
	Description string `json:"description,omitempty"`
	// CustomizationSteps, when present, route the item through the
	// item_customization sub-flow before quantity selection.
	CustomizationSteps []CustomizationStep `json:"customization_steps,omitempty"`
}

// CustomizationStep is one ordered sub-step of an item customization flow.
// Option prices are deltas added to the base item price.
type CustomizationStep struct {
	Order      int        `json:"order"`
	Name       string     `json:"name"`
	Emoji      string     `json:"emoji,omitempty"`
	FooterInfo string     `json:"footer_info,omitempty"`
	Options    []MenuItem `json:"options"`
}

// Category groups menu items under a display name. Key is the stable
// identifier recorded on cart items; declaration order is display order.
type Category struct {
	Key        string     `json:"key"`
	Name       string     `json:"name"`
	Emoji      string     `json:"emoji,omitempty"`
	FooterInfo string     `json:"footer_info,omitempty"`
	Items      []MenuItem `json:"items"`
}

// SequentialStep is one ordered composition step of a sequential flow.
// Traversal order is defined by Order, not by declaration order.
type SequentialStep struct {
	Order      int        `json:"order"`
	Name       string     `json:"name"`
	Emoji      string     `json:"emoji,omitempty"`
	FooterInfo string     `json:"footer_info,omitempty"`
	Items      []MenuItem `json:"items"`
}

// TenantConfig is the resolved, validated configuration for one tenant.
// Exactly one of Categories or Steps is populated, tagged by FlowType.
type TenantConfig struct {
	TenantID             string           `json:"tenant_id"`
	FlowType             FlowType         `json:"flow_type"`
	TransfersPhoneNumber string           `json:"transfers_phone_number"`
	DeliveryCost         int              `json:"delivery_cost"`
	TimeoutMinutes       int              `json:"timeout_minutes"`
	InitialMessage       string           `json:"initial_message,omitempty"`
	FooterInfo           string           `json:"footer_info,omitempty"`
	Categories           []Category       `json:"categories,omitempty"`
	Steps                []SequentialStep `json:"steps,omitempty"`
	// TriggerWords start a new conversation for this tenant from the
	// shared sandbox entry point.
	TriggerWords []string `json:"trigger_words,omitempty"`
	// AdminPhones may request admin dashboard links for this tenant.
	AdminPhones []string `json:"admin_phones,omitempty"`
}

// Validate performs comprehensive validation on a TenantConfig.
func (c *TenantConfig) Validate() error {
	if c.TenantID == "" {
		return ErrEmptyTenantID
	}
	if !IsValidFlowType(c.FlowType) {
		return fmt.Errorf("%w: %q", ErrInvalidFlowType, c.FlowType)
	}
	if c.TransfersPhoneNumber == "" {
		return ErrEmptyTransfersNumber
	}
	if c.TimeoutMinutes <= 0 {
		return ErrInvalidTimeout
	}
	if len(c.Categories) > 0 && len(c.Steps) > 0 {
		return ErrBothFlowShapes
	}

	switch c.FlowType {
	case FlowCategories:
		return c.validateCategories()
	case FlowSequential:
		return c.validateSteps()
	}
	return nil
}

// validateCategories validates the categories flow shape.
func (c *TenantConfig) validateCategories() error {
	if len(c.Categories) == 0 {
		return ErrNoCategories
	}
	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Key == "" {
			return fmt.Errorf("category %q has no key", cat.Name)
		}
		if seen[cat.Key] {
			return fmt.Errorf("%w: %q", ErrDuplicateCategoryKey, cat.Key)
		}
		seen[cat.Key] = true
		if len(cat.Items) == 0 {
			return fmt.Errorf("category %q has no items", cat.Key)
		}
	}
	return nil
}

// validateSteps validates the sequential flow shape.
func (c *TenantConfig) validateSteps() error {
	if len(c.Steps) == 0 {
		return ErrNoSteps
	}
	seen := make(map[int]bool, len(c.Steps))
	for _, step := range c.Steps {
		if seen[step.Order] {
			return fmt.Errorf("%w: %d", ErrDuplicateStepOrder, step.Order)
		}
		seen[step.Order] = true
		if len(step.Items) == 0 {
			return fmt.Errorf("sequential step %q has no items", step.Name)
		}
	}
	return nil
}

// CategoryByKey returns the category with the given key, or nil.
func (c *TenantConfig) CategoryByKey(key string) *Category {
	for i := range c.Categories {
		if c.Categories[i].Key == key {
			return &c.Categories[i]
		}
	}
	return nil
}

// TenantInfo is the subset of tenant configuration the order factory needs.
type TenantInfo struct {
	Name                 string `json:"name"`
	TransfersPhoneNumber string `json:"transfers_phone_number"`
	DeliveryCost         int    `json:"delivery_cost"`
}

// Info returns the order-factory view of the config.
func (c *TenantConfig) Info() TenantInfo {
	return TenantInfo{
		Name:                 c.TenantID,
		TransfersPhoneNumber: c.TransfersPhoneNumber,
		DeliveryCost:         c.DeliveryCost,
	}
}
