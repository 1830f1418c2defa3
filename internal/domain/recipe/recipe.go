// Package recipe defines the normalized recipe structure shared by the chat
// transcript and the checklist panel, and recovers it from the loosely
// structured text the chat backend produces.
package recipe

import "strings"

// DefaultTitle is used when a parsed recipe carries no usable title.
const DefaultTitle = "Recipe"

// Ingredient is a single entry in the ingredient checklist
type Ingredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Notes  string `json:"notes,omitempty"`
}

// Payload is the normalized recipe structure
type Payload struct {
	Title       string       `json:"title"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       []string     `json:"steps"`
}

// Empty reports whether the payload carries no content at all. A payload is
// considered empty only when title, ingredients, and steps are all empty.
func (p *Payload) Empty() bool {
	return p == nil || (p.Title == "" && len(p.Ingredients) == 0 && len(p.Steps) == 0)
}

// Normalize converts a decoded, heterogeneous backend object into a Payload.
// Title comes from title/food_name/name (first non-empty), ingredients accept
// both objects and bare strings, and steps come from steps or instructions.
// Returns nil when nothing usable is present.
func Normalize(obj map[string]any) *Payload {
	if obj == nil {
		return nil
	}

	// Some backend shapes nest the recipe under a "recipe" key
	if nested, ok := obj["recipe"].(map[string]any); ok {
		obj = nested
	}

	p := &Payload{
		Title:       firstString(obj, "title", "food_name", "name"),
		Ingredients: normalizeIngredients(obj["ingredients"]),
		Steps:       normalizeSteps(obj),
	}

	if p.Empty() {
		return nil
	}
	if p.Title == "" {
		p.Title = DefaultTitle
	}
	return p
}

func firstString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func normalizeIngredients(raw any) []Ingredient {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}

	var out []Ingredient
	for _, entry := range list {
		switch v := entry.(type) {
		case string:
			if name := strings.TrimSpace(v); name != "" {
				out = append(out, Ingredient{Name: name})
			}
		case map[string]any:
			ing := Ingredient{
				Name:   firstString(v, "name"),
				Amount: firstString(v, "amount"),
				Notes:  firstString(v, "notes"),
			}
			if ing.Name != "" || ing.Amount != "" {
				out = append(out, ing)
			}
		}
	}
	return out
}

func normalizeSteps(obj map[string]any) []string {
	raw, ok := obj["steps"]
	if !ok {
		raw = obj["instructions"]
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}

	var out []string
	for _, entry := range list {
		switch v := entry.(type) {
		case string:
			if step := strings.TrimSpace(v); step != "" {
				out = append(out, step)
			}
		case map[string]any:
			if step := firstString(v, "instruction", "text", "step", "description", "title"); step != "" {
				out = append(out, step)
			}
		}
	}
	return out
}
