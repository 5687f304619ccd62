package domain

import "errors"

var (
	ErrNotFound             = errors.New("facility not found")
	ErrUnknownBlueprint     = errors.New("no such blueprint")
	ErrNotProductionCapable = errors.New("blueprint has no production definition")
	ErrNotOwner             = errors.New("not the facility owner")
)
