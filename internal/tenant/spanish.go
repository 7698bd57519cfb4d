// Package tenant resolves tenant configuration: raw configs arrive in the
// Spanish field shape, are mapped to the normalized models.TenantConfig, and
// are served through a caching Resolver with per-tenant fallback data.
package tenant

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chatea-chevere/orderbot/internal/models"
)

// Raw-config errors.
var (
	ErrInvalidRawConfig = errors.New("raw tenant config failed validation")
	ErrNoFallbackConfig = errors.New("tenant has no fallback config")
)

// SpanishMenuItem is a menu entry in the raw config shape. Personalizacion,
// when present, makes the item customizable.
type SpanishMenuItem struct {
	Nombre          string                     `json:"nombre"`
	Precio          int                        `json:"precio"`
	Descripcion     string                     `json:"descripcion,omitempty"`
	Personalizacion []SpanishCustomizationStep `json:"personalizacion,omitempty"`
}

// SpanishCustomizationStep is one raw customization sub-step. Option prices
// are deltas over the base item.
type SpanishCustomizationStep struct {
	Orden         int               `json:"orden"`
	Nombre        string            `json:"nombre"`
	Emoji         string            `json:"emoji,omitempty"`
	InfoAdicional string            `json:"infoAdicional,omitempty"`
	Opciones      []SpanishMenuItem `json:"opciones"`
}

// SpanishCategory is a raw menu category.
type SpanishCategory struct {
	Nombre        string            `json:"nombre"`
	Emoji         string            `json:"emoji,omitempty"`
	InfoAdicional string            `json:"infoAdicional,omitempty"`
	Items         []SpanishMenuItem `json:"items"`
}

// SpanishStep is a raw sequential flow step.
type SpanishStep struct {
	Orden         int               `json:"orden"`
	Nombre        string            `json:"nombre"`
	Emoji         string            `json:"emoji,omitempty"`
	InfoAdicional string            `json:"infoAdicional,omitempty"`
	Items         []SpanishMenuItem `json:"items"`
}

// SpanishConfig is a raw tenant config document. Exactly one of Etapas
// (sequential flow) or Categorias (categories flow) is populated.
type SpanishConfig struct {
	NumeroTransferencias string                     `json:"numeroTransferencias"`
	CostoDomicilio       int                        `json:"costoDomicilio"`
	MensajeInicial       string                     `json:"mensajeInicial,omitempty"`
	InfoAdicional        string                     `json:"infoAdicional,omitempty"`
	Etapas               []SpanishStep              `json:"etapas,omitempty"`
	Categorias           map[string]SpanishCategory `json:"categorias,omitempty"`

	// categoryOrder preserves the document order of the categorias keys,
	// which is the menu display order.
	categoryOrder []string
}

// IsSequential reports whether the raw config describes a sequential flow.
func (sc *SpanishConfig) IsSequential() bool {
	return len(sc.Etapas) > 0
}

// ParseSpanishConfig decodes a raw config document. JSON objects carry key
// order in the document even though Go maps do not, so the categorias key
// order is extracted separately and kept as the display order.
func ParseSpanishConfig(data []byte) (*SpanishConfig, error) {
	var cfg SpanishConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing tenant config: %w", err)
	}
	if cfg.NumeroTransferencias == "" {
		return nil, fmt.Errorf("%w: missing numeroTransferencias", ErrInvalidRawConfig)
	}
	if len(cfg.Categorias) == 0 && len(cfg.Etapas) == 0 {
		return nil, fmt.Errorf("%w: neither categorias nor etapas present", ErrInvalidRawConfig)
	}

	if len(cfg.Categorias) > 0 {
		var shell struct {
			Categorias json.RawMessage `json:"categorias"`
		}
		if err := json.Unmarshal(data, &shell); err != nil {
			return nil, fmt.Errorf("parsing tenant config: %w", err)
		}
		order, err := objectKeyOrder(shell.Categorias)
		if err != nil {
			return nil, fmt.Errorf("reading category order: %w", err)
		}
		cfg.categoryOrder = order
	}
	return &cfg, nil
}

// objectKeyOrder walks a JSON object's tokens and returns its keys in
// document order.
func objectKeyOrder(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		keys = append(keys, key)

		var discard json.RawMessage
		if err := dec.Decode(&discard); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// MapSpanishConfig normalizes a raw config into a validated
// models.TenantConfig, merging in the per-tenant setup fields the raw
// document does not carry (id, timeout, trigger words, admin phones).
func MapSpanishConfig(sc *SpanishConfig, src Source) (*models.TenantConfig, error) {
	cfg := &models.TenantConfig{
		TenantID:             src.TenantID,
		TransfersPhoneNumber: sc.NumeroTransferencias,
		DeliveryCost:         sc.CostoDomicilio,
		TimeoutMinutes:       src.TimeoutMinutes,
		InitialMessage:       sc.MensajeInicial,
		FooterInfo:           sc.InfoAdicional,
		TriggerWords:         src.TriggerWords,
		AdminPhones:          src.AdminPhones,
	}

	if sc.IsSequential() {
		cfg.FlowType = models.FlowSequential
		cfg.Steps = make([]models.SequentialStep, len(sc.Etapas))
		for i, step := range sc.Etapas {
			cfg.Steps[i] = models.SequentialStep{
				Order:      step.Orden,
				Name:       step.Nombre,
				Emoji:      step.Emoji,
				FooterInfo: step.InfoAdicional,
				Items:      mapItems(step.Items),
			}
		}
	} else {
		cfg.FlowType = models.FlowCategories
		cfg.Categories = make([]models.Category, 0, len(sc.Categorias))
		for _, key := range sc.categoryOrder {
			cat, ok := sc.Categorias[key]
			if !ok {
				continue
			}
			cfg.Categories = append(cfg.Categories, models.Category{
				Key:        key,
				Name:       cat.Nombre,
				Emoji:      cat.Emoji,
				FooterInfo: cat.InfoAdicional,
				Items:      mapItems(cat.Items),
			})
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRawConfig, err)
	}
	return cfg, nil
}

func mapItems(items []SpanishMenuItem) []models.MenuItem {
	mapped := make([]models.MenuItem, len(items))
	for i, item := range items {
		mapped[i] = models.MenuItem{
			Name:        item.Nombre,
			Price:       item.Precio,
			Description: item.Descripcion,
		}
		if len(item.Personalizacion) > 0 {
			steps := make([]models.CustomizationStep, len(item.Personalizacion))
			for j, step := range item.Personalizacion {
				steps[j] = models.CustomizationStep{
					Order:      step.Orden,
					Name:       step.Nombre,
					Emoji:      step.Emoji,
					FooterInfo: step.InfoAdicional,
					Options:    mapItems(step.Opciones),
				}
			}
			mapped[i].CustomizationSteps = steps
		}
	}
	return mapped
}
