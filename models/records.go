package models

import "time"

// Item is a structured sub-record extracted from a game wiki item infobox.
// Identity is the natural item ID declared by the source.
type Item struct {
	ID          int
	Name        string
	Examine     string
	Members     bool
	Tradeable   bool
	Equipable   bool
	Stackable   bool
	Value       int
	Weight      float64
	ReleaseDate *time.Time
}

// Monster is a structured sub-record extracted from a game wiki monster
// infobox. Identity is the natural monster ID declared by the source.
type Monster struct {
	ID           int
	Name         string
	CombatLevel  int
	Hitpoints    int
	MaxHit       int
	AttackStyles []string
	Aggressive   bool
	Examine      string
	SlayerLevel  int
	ReleaseDate  *time.Time
}
