package infobox

import (
	"fmt"

	"wikisync/models"
)

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// ExtractItem builds an Item record from an item infobox. Returns
// *WrongKindError when the content carries no item infobox.
func ExtractItem(raw string) (*models.Item, error) {
	kind, fields, ok := Parse(raw)
	if !ok {
		return nil, &WrongKindError{Want: "item", Got: "none"}
	}
	if kind != "item" {
		return nil, &WrongKindError{Want: "item", Got: kind}
	}

	id := Int(fields, "id")
	if id == nil {
		return nil, fmt.Errorf("item infobox has no usable id")
	}

	return &models.Item{
		ID:          *id,
		Name:        fields["name"],
		Examine:     fields["examine"],
		Members:     deref(Bool(fields, "members")),
		Tradeable:   deref(Bool(fields, "tradeable")),
		Equipable:   deref(Bool(fields, "equipable")),
		Stackable:   deref(Bool(fields, "stackable")),
		Value:       deref(Int(fields, "value")),
		Weight:      deref(Float(fields, "weight")),
		ReleaseDate: Date(fields, "release"),
	}, nil
}

// ExtractMonster builds a Monster record from a monster infobox. Returns
// *WrongKindError when the content carries no monster infobox.
func ExtractMonster(raw string) (*models.Monster, error) {
	kind, fields, ok := Parse(raw)
	if !ok {
		return nil, &WrongKindError{Want: "monster", Got: "none"}
	}
	if kind != "monster" {
		return nil, &WrongKindError{Want: "monster", Got: kind}
	}

	id := Int(fields, "id")
	if id == nil {
		return nil, fmt.Errorf("monster infobox has no usable id")
	}

	return &models.Monster{
		ID:           *id,
		Name:         fields["name"],
		CombatLevel:  deref(Int(fields, "combat")),
		Hitpoints:    deref(Int(fields, "hitpoints")),
		MaxHit:       deref(Int(fields, "max hit")),
		AttackStyles: List(fields, "attack style"),
		Aggressive:   deref(Bool(fields, "aggressive")),
		Examine:      fields["examine"],
		SlayerLevel:  deref(Int(fields, "slaylvl")),
		ReleaseDate:  Date(fields, "release"),
	}, nil
}
